package tests

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"ridebook/internal/domain"
	"ridebook/internal/redis"
	"ridebook/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK STORE
// ──────────────────────────────────────────────

// MockStore is an in-memory repository.Store. Transactions run one at a time,
// which stands in for the row locks of the real database, and a failed
// transaction restores the state it started from.
type MockStore struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	users     map[string]*domain.User
	rides     map[string]*domain.Ride
	events    []*domain.RideEvent
	transfers map[string]*domain.Transfer

	// Counters for verification
	TxCount              int32
	RollbackCount        int32
	UpdateBalanceCount   int32
	LockedUserIDs        []string
	GetRideForUpdateCall int32

	// Error injection
	UpdateRideError     error
	AppendEventError    error
	CreateTransferError error
	UpdateBalanceError  error
}

// NewMockStore creates an empty store.
func NewMockStore() *MockStore {
	return &MockStore{
		users:     make(map[string]*domain.User),
		rides:     make(map[string]*domain.Ride),
		transfers: make(map[string]*domain.Transfer),
	}
}

func (m *MockStore) Users() repository.UserRepository { return mockUsers{m} }
func (m *MockStore) Rides() repository.RideRepository { return mockRides{m} }
func (m *MockStore) Events() repository.RideEventRepository { return mockEvents{m} }
func (m *MockStore) Transfers() repository.TransferRepository { return mockTransfers{m} }

func (m *MockStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	atomic.AddInt32(&m.TxCount, 1)

	snap := m.snapshot()
	if err := fn(ctx, m); err != nil {
		atomic.AddInt32(&m.RollbackCount, 1)
		m.restore(snap)
		return err
	}
	return nil
}

type storeSnapshot struct {
	users     map[string]domain.User
	rides     map[string]domain.Ride
	events    []*domain.RideEvent
	transfers map[string]*domain.Transfer
}

func (m *MockStore) snapshot() storeSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := storeSnapshot{
		users:     make(map[string]domain.User, len(m.users)),
		rides:     make(map[string]domain.Ride, len(m.rides)),
		events:    append([]*domain.RideEvent(nil), m.events...),
		transfers: make(map[string]*domain.Transfer, len(m.transfers)),
	}
	for id, u := range m.users {
		snap.users[id] = *u
	}
	for id, r := range m.rides {
		snap.rides[id] = *r
	}
	for ref, t := range m.transfers {
		snap.transfers[ref] = t
	}
	return snap
}

func (m *MockStore) restore(snap storeSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users = make(map[string]*domain.User, len(snap.users))
	for id, u := range snap.users {
		u := u
		m.users[id] = &u
	}
	m.rides = make(map[string]*domain.Ride, len(snap.rides))
	for id, r := range snap.rides {
		r := r
		m.rides[id] = &r
	}
	m.events = snap.events
	m.transfers = snap.transfers
}

// AddUser seeds a user.
func (m *MockStore) AddUser(id string, role domain.Role, balance string) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &domain.User{
		ID:        id,
		Username:  id,
		FirstName: id,
		LastName:  "Test",
		Role:      role,
		IsStaff:   role == domain.RoleStaff,
		Balance:   decimal.RequireFromString(balance),
	}
	m.users[id] = u
	copy := *u
	return &copy
}

// AddRide seeds a ride.
func (m *MockStore) AddRide(ride *domain.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *ride
	m.rides[ride.ID] = &copy
}

// Balance returns a user's balance for assertions.
func (m *MockStore) Balance(id string) decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.users[id].Balance
}

// Ride returns a stored ride for assertions.
func (m *MockStore) Ride(id string) *domain.Ride {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rides[id]
	if !ok {
		return nil
	}
	copy := *r
	return &copy
}

// Steps returns the event steps of a ride in creation order.
func (m *MockStore) Steps(rideID string) []domain.EventStep {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var steps []domain.EventStep
	for _, e := range m.events {
		if e.RideID == rideID {
			steps = append(steps, e.Step)
		}
	}
	return steps
}

// TransferCount returns the number of journal entries.
func (m *MockStore) TransferCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.transfers)
}

// ──────────────────────────────────────────────
// REPOSITORIES
// ──────────────────────────────────────────────

type mockUsers struct{ m *MockStore }

func (r mockUsers) Create(ctx context.Context, user *domain.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.Username == user.Username {
			return repository.ErrDuplicate
		}
	}
	copy := *user
	r.m.users[user.ID] = &copy
	return nil
}

func (r mockUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *u
	return &copy, nil
}

func (r mockUsers) GetByIDForUpdate(ctx context.Context, id string) (*domain.User, error) {
	r.m.mu.Lock()
	r.m.LockedUserIDs = append(r.m.LockedUserIDs, id)
	r.m.mu.Unlock()
	return r.GetByID(ctx, id)
}

func (r mockUsers) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, u := range r.m.users {
		if u.Username == username {
			copy := *u
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r mockUsers) List(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var out []*domain.User
	for _, u := range r.m.users {
		if role == "" || u.Role == role {
			copy := *u
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r mockUsers) UpdateBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	atomic.AddInt32(&r.m.UpdateBalanceCount, 1)
	if r.m.UpdateBalanceError != nil {
		return r.m.UpdateBalanceError
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Balance = balance
	return nil
}

type mockRides struct{ m *MockStore }

func (r mockRides) Create(ctx context.Context, ride *domain.Ride) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	copy := *ride
	r.m.rides[ride.ID] = &copy
	return nil
}

func (r mockRides) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	ride, ok := r.m.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *ride
	return &copy, nil
}

func (r mockRides) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ride, error) {
	atomic.AddInt32(&r.m.GetRideForUpdateCall, 1)
	return r.GetByID(ctx, id)
}

func (r mockRides) List(ctx context.Context, filter repository.RideFilter) ([]*domain.Ride, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var out []*domain.Ride
	for _, ride := range r.m.rides {
		switch {
		case filter.CustomerID != "" && ride.CustomerID != filter.CustomerID,
			filter.RiderID != "" && ride.RiderID != filter.RiderID,
			filter.Status != "" && ride.Status != filter.Status,
			filter.Unassigned && ride.HasRider():
			continue
		}
		copy := *ride
		out = append(out, &copy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r mockRides) Update(ctx context.Context, ride *domain.Ride) error {
	if r.m.UpdateRideError != nil {
		return r.m.UpdateRideError
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.rides[ride.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *ride
	r.m.rides[ride.ID] = &copy
	return nil
}

func (r mockRides) Delete(ctx context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.rides[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.m.rides, id)
	kept := r.m.events[:0:0]
	for _, e := range r.m.events {
		if e.RideID != id {
			kept = append(kept, e)
		}
	}
	r.m.events = kept
	return nil
}

type mockEvents struct{ m *MockStore }

func (r mockEvents) Append(ctx context.Context, event *domain.RideEvent) error {
	if r.m.AppendEventError != nil {
		return r.m.AppendEventError
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	copy := *event
	r.m.events = append(r.m.events, &copy)
	return nil
}

func (r mockEvents) ListByRide(ctx context.Context, rideID string) ([]*domain.RideEvent, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var out []*domain.RideEvent
	for _, e := range r.m.events {
		if e.RideID == rideID {
			copy := *e
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (r mockEvents) Recent(ctx context.Context, limit int) ([]*domain.RideEvent, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var out []*domain.RideEvent
	for i := len(r.m.events) - 1; i >= 0 && len(out) < limit; i-- {
		copy := *r.m.events[i]
		out = append(out, &copy)
	}
	return out, nil
}

type mockTransfers struct{ m *MockStore }

func (r mockTransfers) Create(ctx context.Context, transfer *domain.Transfer) error {
	if r.m.CreateTransferError != nil {
		return r.m.CreateTransferError
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.transfers[transfer.Reference]; ok {
		return repository.ErrDuplicate
	}
	copy := *transfer
	r.m.transfers[transfer.Reference] = &copy
	return nil
}

func (r mockTransfers) GetByReference(ctx context.Context, reference string) (*domain.Transfer, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	t, ok := r.m.transfers[reference]
	if !ok {
		return nil, nil
	}
	copy := *t
	return &copy, nil
}

// ──────────────────────────────────────────────
// MOCK STATUS CACHE
// ──────────────────────────────────────────────

// MockStatusCache is an in-memory redis.StatusCacheInterface with the same
// generation check as the Redis cache.
type MockStatusCache struct {
	mu          sync.Mutex
	entries     map[string]*redis.CachedRideStatus
	generations map[string]int64

	// BeforeSet, when set, runs once at the start of the next Set call. It lets
	// tests interleave a write between the database read and the cache write.
	BeforeSet func()

	GetCallCount        int32
	SetCallCount        int32
	StaleSetCount       int32
	InvalidateCallCount int32
}

// NewMockStatusCache creates an empty cache.
func NewMockStatusCache() *MockStatusCache {
	return &MockStatusCache{
		entries:     make(map[string]*redis.CachedRideStatus),
		generations: make(map[string]int64),
	}
}

func (c *MockStatusCache) Get(ctx context.Context, rideID string) (*redis.CachedRideStatus, error) {
	atomic.AddInt32(&c.GetCallCount, 1)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[rideID], nil
}

func (c *MockStatusCache) Generation(ctx context.Context, rideID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[rideID], nil
}

func (c *MockStatusCache) Set(ctx context.Context, status *redis.CachedRideStatus, generation int64) (bool, error) {
	atomic.AddInt32(&c.SetCallCount, 1)

	c.mu.Lock()
	hook := c.BeforeSet
	c.BeforeSet = nil
	c.mu.Unlock()
	if hook != nil {
		hook()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[status.Ride.ID] != generation {
		atomic.AddInt32(&c.StaleSetCount, 1)
		return false, nil
	}
	c.entries[status.Ride.ID] = status
	return true, nil
}

func (c *MockStatusCache) Invalidate(ctx context.Context, rideID string) error {
	atomic.AddInt32(&c.InvalidateCallCount, 1)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[rideID]++
	delete(c.entries, rideID)
	return nil
}

// Has reports whether a snapshot is cached.
func (c *MockStatusCache) Has(rideID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[rideID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK PUBLISHER
// ──────────────────────────────────────────────

// MockPublisher records published routing keys.
type MockPublisher struct {
	mu   sync.Mutex
	Keys []string
	Err  error
}

func (p *MockPublisher) Publish(ctx context.Context, routingKey string, msg any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Keys = append(p.Keys, routingKey)
	return nil
}

// Published returns the routing keys sent so far.
func (p *MockPublisher) Published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.Keys...)
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
