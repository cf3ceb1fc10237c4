package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, w *WeeklySchedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*WeeklySchedule, error)
	Update(ctx context.Context, w *WeeklySchedule) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, activeOnly bool) ([]*WeeklySchedule, error)
	ListByDoctorWeekday(ctx context.Context, doctorID uuid.UUID, weekday time.Weekday) ([]*WeeklySchedule, error)
	ListByLocation(ctx context.Context, locationID uuid.UUID, limit, offset int) ([]*WeeklySchedule, int, error)
	DeactivateByDoctor(ctx context.Context, doctorID uuid.UUID) error
}
