package prescription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	GetByCode(ctx context.Context, code string) (*Prescription, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status PrescriptionStatus) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, activeOnly bool, limit, offset int) ([]*Prescription, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Prescription, int, error)
	NextCodeSeq(ctx context.Context, date time.Time) (int, error)
}

type MedicationRepository interface {
	Create(ctx context.Context, m *Medication) error
	GetByID(ctx context.Context, id uuid.UUID) (*Medication, error)
	GetByName(ctx context.Context, name string) (*Medication, error)
	Update(ctx context.Context, m *Medication) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Medication, int, error)
	Search(ctx context.Context, query string, limit, offset int) ([]*Medication, int, error)
}
