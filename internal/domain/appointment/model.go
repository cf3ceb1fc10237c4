package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/medsched/medsched/pkg/timeofday"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// transitions lists the states reachable from each state in a single step.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCompleted, StatusNoShow, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusNoShow, StatusCancelled},
	StatusNoShow:    {StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// CanTransitionTo reports whether the single-step transition s -> target is
// allowed.
func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Appointment is a booked visit. Code is the human-facing identifier
// ("T-20260825-0001"), sequential per calendar day.
type Appointment struct {
	ID          uuid.UUID           `json:"id"`
	Code        string              `json:"code"`
	PatientID   uuid.UUID           `json:"patient_id"`
	DoctorID    uuid.UUID           `json:"doctor_id"`
	LocationID  uuid.UUID           `json:"location_id"`
	Date        time.Time           `json:"date"`
	Start       timeofday.TimeOfDay `json:"start"`
	DurationMin int                 `json:"duration_min"`
	Status      Status              `json:"status"`
	Reason      string              `json:"reason,omitempty"`
	CreatedBy   *uuid.UUID          `json:"created_by,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// End returns the appointment's end time of day.
func (a *Appointment) End() timeofday.TimeOfDay {
	return a.Start.Add(a.DurationMin)
}

// Blocks reports whether the appointment occupies its interval for
// availability purposes. Only cancellation frees the slot.
func (a *Appointment) Blocks() bool {
	return a.Status != StatusCancelled
}
