package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"ridebook/internal/domain"
	"ridebook/internal/service"
)

// RideHandler handles HTTP requests for rides.
type RideHandler struct {
	rides     *service.RideService
	lifecycle *service.LifecycleService
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(rides *service.RideService, lifecycle *service.LifecycleService) *RideHandler {
	return &RideHandler{
		rides:     rides,
		lifecycle: lifecycle,
	}
}

// RouteRequest is the HTTP request body for creating or updating a ride.
type RouteRequest struct {
	Pickup      string           `json:"pickup"`
	Destination string           `json:"destination"`
	Price       decimal.Decimal  `json:"price"`
	Distance    *decimal.Decimal `json:"total_distance,omitempty"`
	Description string           `json:"description,omitempty"`
}

func (r RouteRequest) input() service.RouteInput {
	return service.RouteInput{
		Pickup:      domain.Location(r.Pickup),
		Destination: domain.Location(r.Destination),
		Price:       r.Price,
		Distance:    r.Distance,
	}
}

// TransitionRequest is the optional body of a lifecycle operation.
type TransitionRequest struct {
	Description string `json:"description"`
}

// RideResponse is the HTTP response for ride data.
type RideResponse struct {
	ID              string `json:"id"`
	CustomerID      string `json:"customer_id"`
	RiderID         string `json:"rider_id,omitempty"`
	Pickup          string `json:"pickup"`
	PickupName      string `json:"pickup_name"`
	Destination     string `json:"destination"`
	DestinationName string `json:"destination_name"`
	TotalDistance   string `json:"total_distance"`
	Price           string `json:"price"`
	Status          string `json:"status"`
	StatusName      string `json:"status_name"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

// EventResponse is the HTTP response for a ride event.
type EventResponse struct {
	ID          string `json:"id"`
	RideID      string `json:"ride_id"`
	Step        int    `json:"step"`
	Label       string `json:"label"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

// TransferResponse is the HTTP response for a completion payout.
type TransferResponse struct {
	ID         string `json:"id"`
	FromUserID string `json:"from_user_id"`
	ToUserID   string `json:"to_user_id"`
	Amount     string `json:"amount"`
	Reference  string `json:"reference"`
}

// TransitionResponse is the HTTP response for a lifecycle operation.
type TransitionResponse struct {
	Ride     RideResponse      `json:"ride"`
	Event    EventResponse     `json:"event"`
	Transfer *TransferResponse `json:"transfer,omitempty"`
}

// StatusResponse is the HTTP response for a ride status report.
type StatusResponse struct {
	Ride              RideResponse   `json:"ride"`
	Status            string         `json:"status"`
	LatestEvent       *EventResponse `json:"latest_event,omitempty"`
	EventCount        int            `json:"event_count"`
	CustomerBalance   *string        `json:"customer_balance,omitempty"`
	RiderBalance      *string        `json:"rider_balance,omitempty"`
	AllowedActions    []string       `json:"allowed_actions"`
	HistoryConsistent bool           `json:"history_consistent"`
}

func toRideResponse(r *domain.Ride) RideResponse {
	return RideResponse{
		ID:              r.ID,
		CustomerID:      r.CustomerID,
		RiderID:         r.RiderID,
		Pickup:          string(r.Pickup),
		PickupName:      r.Pickup.DisplayName(),
		Destination:     string(r.Destination),
		DestinationName: r.Destination.DisplayName(),
		TotalDistance:   r.TotalDistance.StringFixed(2),
		Price:           r.Price.StringFixed(2),
		Status:          string(r.Status),
		StatusName:      r.Status.DisplayName(),
		CreatedAt:       formatTime(r.CreatedAt),
		UpdatedAt:       formatTime(r.UpdatedAt),
	}
}

func toEventResponse(e *domain.RideEvent) EventResponse {
	return EventResponse{
		ID:          e.ID,
		RideID:      e.RideID,
		Step:        int(e.Step),
		Label:       e.Step.Label(),
		Description: e.Description,
		CreatedAt:   formatTime(e.CreatedAt),
	}
}

func toTransitionResponse(res *service.TransitionResult) TransitionResponse {
	out := TransitionResponse{
		Ride:  toRideResponse(res.Ride),
		Event: toEventResponse(res.Event),
	}
	if t := res.Transfer; t != nil {
		out.Transfer = &TransferResponse{
			ID:         t.ID,
			FromUserID: t.FromUserID,
			ToUserID:   t.ToUserID,
			Amount:     t.Amount.StringFixed(2),
			Reference:  t.Reference,
		}
	}
	return out
}

func fixedOrNil(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.StringFixed(2)
	return &s
}

// CreateRide handles POST /v1/rides
func (h *RideHandler) CreateRide(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	res, err := h.lifecycle.RequestRide(c.Request.Context(), actor, service.RequestRideInput{
		RouteInput:  req.input(),
		Description: req.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toTransitionResponse(res))
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	ride, err := h.rides.GetRide(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// GetAll handles GET /v1/rides?status=
func (h *RideHandler) GetAll(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	rides, err := h.rides.ListRides(c.Request.Context(), actor, domain.RideStatus(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondRides(c, rides)
}

// GetAvailable handles GET /v1/rides/available
func (h *RideHandler) GetAvailable(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	rides, err := h.rides.ListAvailableRides(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondRides(c, rides)
}

func (h *RideHandler) respondRides(c *gin.Context, rides []*domain.Ride) {
	response := make([]RideResponse, 0, len(rides))
	for _, r := range rides {
		response = append(response, toRideResponse(r))
	}
	c.JSON(http.StatusOK, response)
}

// UpdateRide handles PUT /v1/rides/:id
func (h *RideHandler) UpdateRide(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	ride, err := h.rides.UpdateRoute(c.Request.Context(), actor, c.Param("id"), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// DeleteRide handles DELETE /v1/rides/:id
func (h *RideHandler) DeleteRide(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	if err := h.rides.DeleteRide(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Accept handles POST /v1/rides/:id/accept
func (h *RideHandler) Accept(c *gin.Context) {
	h.transition(c, func(actor domain.Actor, id, desc string) (*service.TransitionResult, error) {
		return h.lifecycle.AcceptRide(c.Request.Context(), actor, id, desc)
	})
}

// Arrive handles POST /v1/rides/:id/arrive
func (h *RideHandler) Arrive(c *gin.Context) {
	h.transition(c, func(actor domain.Actor, id, desc string) (*service.TransitionResult, error) {
		return h.lifecycle.AdvanceRide(c.Request.Context(), actor, id, domain.ActionArrive, desc)
	})
}

// Start handles POST /v1/rides/:id/start
func (h *RideHandler) Start(c *gin.Context) {
	h.transition(c, func(actor domain.Actor, id, desc string) (*service.TransitionResult, error) {
		return h.lifecycle.AdvanceRide(c.Request.Context(), actor, id, domain.ActionStart, desc)
	})
}

// Complete handles POST /v1/rides/:id/complete
func (h *RideHandler) Complete(c *gin.Context) {
	h.transition(c, func(actor domain.Actor, id, desc string) (*service.TransitionResult, error) {
		return h.lifecycle.CompleteRide(c.Request.Context(), actor, id, desc)
	})
}

// Cancel handles POST /v1/rides/:id/cancel
func (h *RideHandler) Cancel(c *gin.Context) {
	h.transition(c, func(actor domain.Actor, id, desc string) (*service.TransitionResult, error) {
		return h.lifecycle.CancelRide(c.Request.Context(), actor, id, desc)
	})
}

// Drop handles POST /v1/rides/:id/drop
func (h *RideHandler) Drop(c *gin.Context) {
	h.transition(c, func(actor domain.Actor, id, desc string) (*service.TransitionResult, error) {
		return h.lifecycle.DropRide(c.Request.Context(), actor, id, desc)
	})
}

// transition decodes the optional description body and runs op.
func (h *RideHandler) transition(c *gin.Context, op func(actor domain.Actor, id, desc string) (*service.TransitionResult, error)) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondBadRequest(c, "invalid request body")
		return
	}

	res, err := op(actor, c.Param("id"), req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toTransitionResponse(res))
}

// GetEvents handles GET /v1/rides/:id/events
func (h *RideHandler) GetEvents(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	events, err := h.lifecycle.ListEvents(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondEvents(c, events)
}

// GetRecentEvents handles GET /v1/events/recent?limit=
func (h *RideHandler) GetRecentEvents(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondBadRequest(c, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	events, err := h.lifecycle.RecentEvents(c.Request.Context(), actor, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondEvents(c, events)
}

func respondEvents(c *gin.Context, events []*domain.RideEvent) {
	response := make([]EventResponse, 0, len(events))
	for _, e := range events {
		response = append(response, toEventResponse(e))
	}
	c.JSON(http.StatusOK, response)
}

// GetStatus handles GET /v1/rides/:id/status
func (h *RideHandler) GetStatus(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	report, err := h.lifecycle.GetStatus(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := StatusResponse{
		Ride:              toRideResponse(report.Ride),
		Status:            string(report.Status),
		EventCount:        report.EventCount,
		CustomerBalance:   fixedOrNil(report.CustomerBalance),
		RiderBalance:      fixedOrNil(report.RiderBalance),
		AllowedActions:    make([]string, 0, len(report.AllowedActions)),
		HistoryConsistent: report.HistoryConsistent,
	}
	if report.LatestEvent != nil {
		ev := toEventResponse(report.LatestEvent)
		response.LatestEvent = &ev
	}
	for _, a := range report.AllowedActions {
		response.AllowedActions = append(response.AllowedActions, string(a))
	}
	respondJSON(c, http.StatusOK, response)
}

// StatsResponse is the HTTP response for a user's ride history.
type StatsResponse struct {
	UserID         string `json:"user_id"`
	Role           string `json:"role"`
	CompletedRides int    `json:"completed_rides"`
	CancelledRides int    `json:"cancelled_rides"`
	Amount         string `json:"amount"`
	TotalDistance  string `json:"total_distance"`
}

// GetUserStats handles GET /v1/users/:id/stats
func (h *RideHandler) GetUserStats(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	stats, err := h.rides.Stats(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, StatsResponse{
		UserID:         stats.UserID,
		Role:           string(stats.Role),
		CompletedRides: stats.CompletedRides,
		CancelledRides: stats.CancelledRides,
		Amount:         stats.Amount.StringFixed(2),
		TotalDistance:  stats.TotalDistance.StringFixed(2),
	})
}
