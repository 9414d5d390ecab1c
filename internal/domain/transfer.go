package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Transfer is a journal entry of money moved between two users.
type Transfer struct {
	ID               string
	RideID           string // empty for transfers not tied to a ride
	FromUserID       string
	ToUserID         string
	Amount           decimal.Decimal
	FromBalanceAfter decimal.Decimal
	ToBalanceAfter   decimal.Decimal
	Reference        string // unique; guards against paying out a ride twice
	CreatedAt        time.Time
}

// RidePayoutReference returns the transfer reference for a ride's completion payout.
func RidePayoutReference(rideID string) string {
	return fmt.Sprintf("ride:%s:payout", rideID)
}
