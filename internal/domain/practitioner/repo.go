package practitioner

import (
	"context"

	"github.com/google/uuid"
)

type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetByLicense(ctx context.Context, licenseNumber string) (*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Doctor, int, error)
	ListBySpecialty(ctx context.Context, specialtyID uuid.UUID, limit, offset int) ([]*Doctor, int, error)
	// Specialty links
	AddSpecialty(ctx context.Context, link *DoctorSpecialty) error
	RemoveSpecialty(ctx context.Context, doctorID, specialtyID uuid.UUID) error
	Specialties(ctx context.Context, doctorID uuid.UUID) ([]*Specialty, error)
}

type SpecialtyRepository interface {
	Create(ctx context.Context, s *Specialty) error
	GetByID(ctx context.Context, id uuid.UUID) (*Specialty, error)
	GetByName(ctx context.Context, name string) (*Specialty, error)
	Update(ctx context.Context, s *Specialty) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Specialty, int, error)
}
