package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetByCode(ctx context.Context, code string) (*Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, from, to *time.Time, limit, offset int) ([]*Appointment, int, error)
	// ListByDoctorDate returns every appointment of the doctor on the given
	// calendar day, regardless of status.
	ListByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*Appointment, error)
	// ListPendingByDate returns pending appointments on the given day,
	// used by the reminder job.
	ListPendingByDate(ctx context.Context, date time.Time) ([]*Appointment, error)
	// NextCodeSeq returns the next per-day sequence number for code
	// generation.
	NextCodeSeq(ctx context.Context, date time.Time) (int, error)
}
