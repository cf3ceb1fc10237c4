package practitioner

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrDoctorNotFound    = errors.New("doctor not found")
	ErrSpecialtyNotFound = errors.New("specialty not found")
	ErrLicenseInUse      = errors.New("license number already registered")
	ErrSpecialtyInUse    = errors.New("specialty name already registered")
)

const defaultAppointmentMinutes = 30

// ScheduleDeactivator lets the doctor lifecycle cascade into the schedule
// domain without importing it.
type ScheduleDeactivator interface {
	DeactivateByDoctor(ctx context.Context, doctorID uuid.UUID) error
}

type Service struct {
	doctors     DoctorRepository
	specialties SpecialtyRepository
	schedules   ScheduleDeactivator
}

func NewService(doctors DoctorRepository, specialties SpecialtyRepository, schedules ScheduleDeactivator) *Service {
	return &Service{doctors: doctors, specialties: specialties, schedules: schedules}
}

// -- Doctor --

func (s *Service) CreateDoctor(ctx context.Context, d *Doctor) error {
	if d.FirstName == "" || d.LastName == "" {
		return fmt.Errorf("first_name and last_name are required")
	}
	if d.LicenseNumber == "" {
		return fmt.Errorf("license_number is required")
	}

	existing, err := s.doctors.GetByLicense(ctx, d.LicenseNumber)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if existing != nil && err == nil {
		return ErrLicenseInUse
	}

	if d.PrimarySpecialtyID != nil {
		if _, err := s.GetSpecialty(ctx, *d.PrimarySpecialtyID); err != nil {
			return err
		}
	}

	d.Active = true
	if err := s.doctors.Create(ctx, d); err != nil {
		return err
	}
	if d.PrimarySpecialtyID != nil {
		return s.doctors.AddSpecialty(ctx, &DoctorSpecialty{
			DoctorID:    d.ID,
			SpecialtyID: *d.PrimarySpecialtyID,
			IsPrimary:   true,
		})
	}
	return nil
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := s.doctors.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDoctorNotFound
	}
	return d, err
}

func (s *Service) UpdateDoctor(ctx context.Context, d *Doctor) error {
	current, err := s.GetDoctor(ctx, d.ID)
	if err != nil {
		return err
	}
	if d.LicenseNumber != current.LicenseNumber {
		other, err := s.doctors.GetByLicense(ctx, d.LicenseNumber)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		if other != nil && err == nil && other.ID != d.ID {
			return ErrLicenseInUse
		}
	}
	return s.doctors.Update(ctx, d)
}

// DeactivateDoctor soft-deletes the doctor and deactivates their weekly
// schedules so no further availability is offered.
func (s *Service) DeactivateDoctor(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetDoctor(ctx, id); err != nil {
		return err
	}
	if err := s.doctors.SetActive(ctx, id, false); err != nil {
		return err
	}
	if s.schedules != nil {
		return s.schedules.DeactivateByDoctor(ctx, id)
	}
	return nil
}

func (s *Service) ReactivateDoctor(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetDoctor(ctx, id); err != nil {
		return err
	}
	return s.doctors.SetActive(ctx, id, true)
}

func (s *Service) ListDoctors(ctx context.Context, activeOnly bool, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.List(ctx, activeOnly, limit, offset)
}

func (s *Service) ListDoctorsBySpecialty(ctx context.Context, specialtyID uuid.UUID, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.ListBySpecialty(ctx, specialtyID, limit, offset)
}

func (s *Service) AddDoctorSpecialty(ctx context.Context, doctorID, specialtyID uuid.UUID, isPrimary bool) error {
	if _, err := s.GetDoctor(ctx, doctorID); err != nil {
		return err
	}
	if _, err := s.GetSpecialty(ctx, specialtyID); err != nil {
		return err
	}
	return s.doctors.AddSpecialty(ctx, &DoctorSpecialty{
		DoctorID: doctorID, SpecialtyID: specialtyID, IsPrimary: isPrimary,
	})
}

func (s *Service) RemoveDoctorSpecialty(ctx context.Context, doctorID, specialtyID uuid.UUID) error {
	return s.doctors.RemoveSpecialty(ctx, doctorID, specialtyID)
}

func (s *Service) DoctorSpecialties(ctx context.Context, doctorID uuid.UUID) ([]*Specialty, error) {
	if _, err := s.GetDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	return s.doctors.Specialties(ctx, doctorID)
}

// -- Specialty --

func (s *Service) CreateSpecialty(ctx context.Context, sp *Specialty) error {
	if sp.Name == "" {
		return fmt.Errorf("name is required")
	}
	existing, err := s.specialties.GetByName(ctx, sp.Name)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if existing != nil && err == nil {
		return ErrSpecialtyInUse
	}
	if sp.DefaultDurationMin <= 0 {
		sp.DefaultDurationMin = defaultAppointmentMinutes
	}
	sp.Active = true
	return s.specialties.Create(ctx, sp)
}

func (s *Service) GetSpecialty(ctx context.Context, id uuid.UUID) (*Specialty, error) {
	sp, err := s.specialties.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSpecialtyNotFound
	}
	return sp, err
}

func (s *Service) UpdateSpecialty(ctx context.Context, sp *Specialty) error {
	if _, err := s.GetSpecialty(ctx, sp.ID); err != nil {
		return err
	}
	if sp.DefaultDurationMin <= 0 {
		sp.DefaultDurationMin = defaultAppointmentMinutes
	}
	return s.specialties.Update(ctx, sp)
}

func (s *Service) DeactivateSpecialty(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetSpecialty(ctx, id); err != nil {
		return err
	}
	return s.specialties.SetActive(ctx, id, false)
}

func (s *Service) ListSpecialties(ctx context.Context, activeOnly bool, limit, offset int) ([]*Specialty, int, error) {
	return s.specialties.List(ctx, activeOnly, limit, offset)
}
