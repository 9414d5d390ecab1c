package domain

import "fmt"

// Action is a lifecycle operation applied to an existing ride.
type Action string

const (
	ActionAccept   Action = "accept"
	ActionArrive   Action = "arrive"
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
	ActionDrop     Action = "drop" // cancel issued by a participant after acceptance
)

// Transition describes a validated status change and its effects.
type Transition struct {
	Action         Action
	From           RideStatus
	To             RideStatus
	Step           EventStep
	AssignRider    bool // accept: the actor becomes the ride's rider
	TransferPayout bool // complete: move the price from customer to rider
}

// Plan checks whether actor may apply action to ride and returns the transition.
// It never mutates the ride.
func Plan(ride *Ride, actor Actor, action Action) (Transition, error) {
	t := Transition{Action: action, From: ride.Status}

	switch action {
	case ActionAccept:
		if actor.Role != RoleRider {
			return t, fmt.Errorf("%w: only riders can accept rides", ErrInvalidTransition)
		}
		if ride.HasRider() {
			return t, fmt.Errorf("%w: ride %s", ErrAlreadyAccepted, ride.ID)
		}
		if err := requireStatus(ride, RideStatusPending); err != nil {
			return t, err
		}
		t.To, t.Step, t.AssignRider = RideStatusAccepted, StepAccepted, true

	case ActionArrive, ActionStart:
		if !isAssignedRider(ride, actor) {
			return t, fmt.Errorf("%w: only the assigned rider can %s the ride", ErrInvalidTransition, action)
		}
		if err := requireStatus(ride, RideStatusAccepted); err != nil {
			return t, err
		}
		if action == ActionArrive {
			t.To, t.Step = RideStatusAccepted, StepArrivedAtPickup
		} else {
			t.To, t.Step = RideStatusOngoing, StepJourneyStarted
		}

	case ActionComplete:
		if !actor.Staff() && !isAssignedRider(ride, actor) {
			return t, fmt.Errorf("%w: only staff or the assigned rider can complete the ride", ErrInvalidTransition)
		}
		if err := requireStatus(ride, RideStatusOngoing); err != nil {
			return t, err
		}
		t.To, t.Step, t.TransferPayout = RideStatusCompleted, StepJourneyCompleted, true

	case ActionCancel, ActionDrop:
		if !actor.Staff() && !ride.Involves(actor.UserID) {
			return t, fmt.Errorf("%w: actor is not part of ride %s", ErrForbidden, ride.ID)
		}
		if ride.Status.Terminal() || !ride.Status.Valid() {
			return t, fmt.Errorf("%w: ride %s is %s", ErrInvalidTransition, ride.ID, ride.Status)
		}
		if action == ActionDrop && ride.Status == RideStatusPending {
			return t, fmt.Errorf("%w: ride %s has not been accepted yet", ErrInvalidTransition, ride.ID)
		}
		t.To, t.Step = RideStatusCancelled, StepCancelled

	default:
		return t, fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, action)
	}

	return t, nil
}

// AllowedActions lists the actions actor could apply to ride right now.
func AllowedActions(ride *Ride, actor Actor) []Action {
	var out []Action
	for _, a := range []Action{ActionAccept, ActionArrive, ActionStart, ActionComplete, ActionCancel} {
		if _, err := Plan(ride, actor, a); err == nil {
			out = append(out, a)
		}
	}
	return out
}

// ReplaySteps walks a ride's event steps in creation order and returns the status
// they lead to. It fails on the first step that is not a legal continuation.
func ReplaySteps(steps []EventStep) (RideStatus, error) {
	var status RideStatus
	for i, step := range steps {
		next, ok := stepAfter(status, step)
		if !ok {
			return status, fmt.Errorf("%w: step %d (%s) after %q at position %d",
				ErrInvalidTransition, step, step.Label(), status, i)
		}
		status = next
	}
	return status, nil
}

func stepAfter(status RideStatus, step EventStep) (RideStatus, bool) {
	switch step {
	case StepRequested:
		return RideStatusPending, status == ""
	case StepAccepted:
		return RideStatusAccepted, status == RideStatusPending
	case StepArrivedAtPickup:
		return RideStatusAccepted, status == RideStatusAccepted
	case StepJourneyStarted:
		return RideStatusOngoing, status == RideStatusAccepted
	case StepJourneyCompleted:
		return RideStatusCompleted, status == RideStatusOngoing
	case StepCancelled:
		return RideStatusCancelled, status != "" && !status.Terminal()
	}
	return status, false
}

func requireStatus(ride *Ride, want RideStatus) error {
	if ride.Status != want {
		return fmt.Errorf("%w: ride %s is %s, expected %s", ErrInvalidTransition, ride.ID, ride.Status, want)
	}
	return nil
}

func isAssignedRider(ride *Ride, actor Actor) bool {
	return ride.HasRider() && actor.UserID == ride.RiderID
}
