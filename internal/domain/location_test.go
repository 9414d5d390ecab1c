package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testTime = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func TestLocations_Catalogue(t *testing.T) {
	locs := Locations()
	assert.Len(t, locs, 13)
	for i := 1; i < len(locs); i++ {
		assert.Less(t, string(locs[i-1].Code), string(locs[i].Code))
	}

	assert.True(t, LocationClarkAirport.Valid())
	assert.False(t, Location("MANILA").Valid())
	assert.Equal(t, "Clark International Airport", LocationClarkAirport.DisplayName())
	assert.Equal(t, "MANILA", Location("MANILA").DisplayName())
}

func TestEstimateDistance(t *testing.T) {
	d := EstimateDistance(LocationClarkMain, LocationSMClark)
	assert.True(t, d.IsPositive())
	assert.True(t, d.Equal(d.Round(2)), "distance is rounded to two places")
	assert.True(t, d.Equal(EstimateDistance(LocationSMClark, LocationClarkMain)), "distance is symmetric")

	assert.True(t, EstimateDistance(LocationCDC, LocationCDC).IsZero())
	assert.True(t, EstimateDistance(LocationCDC, "NOWHERE").IsZero())

	far := EstimateDistance(LocationClarkSun, LocationMarqueeMall)
	assert.True(t, far.GreaterThan(d))
}

func TestRideStatus(t *testing.T) {
	assert.True(t, RideStatusCompleted.Terminal())
	assert.True(t, RideStatusCancelled.Terminal())
	assert.False(t, RideStatusOngoing.Terminal())
	assert.False(t, RideStatus("LOST").Valid())
	assert.Equal(t, "Ongoing", RideStatusOngoing.DisplayName())
}

func TestActorStaff(t *testing.T) {
	assert.True(t, Actor{Role: RoleStaff}.Staff())
	assert.True(t, Actor{Role: RoleCustomer, IsStaff: true}.Staff())
	assert.False(t, Actor{Role: RoleRider}.Staff())

	u := User{FirstName: "Maria", MiddleName: "S", LastName: "Reyes"}
	assert.Equal(t, "Maria S Reyes", u.FullName())
}
