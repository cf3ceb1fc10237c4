package notification

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	MarkOutcome(ctx context.Context, n *Notification) error
	ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*Notification, error)
	List(ctx context.Context, status Status, limit, offset int) ([]*Notification, int, error)
	ExistsForAppointment(ctx context.Context, appointmentID uuid.UUID, templateID string) (bool, error)
}
