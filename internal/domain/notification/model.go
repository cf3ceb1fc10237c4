package notification

import (
	"time"

	"github.com/google/uuid"

	"github.com/medsched/medsched/internal/platform/notify"
)

// Status tracks the delivery outcome of a notification.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Notification is a persisted record of one delivery attempt, kept for
// auditing and to avoid duplicate reminders.
type Notification struct {
	ID            uuid.UUID      `json:"id"`
	AppointmentID *uuid.UUID     `json:"appointment_id,omitempty"`
	TemplateID    string         `json:"template_id"`
	Channel       notify.Channel `json:"channel"`
	Recipient     string         `json:"recipient"`
	Subject       string         `json:"subject"`
	Body          string         `json:"body"`
	Status        Status         `json:"status"`
	Error         string         `json:"error,omitempty"`
	SentAt        *time.Time     `json:"sent_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}
