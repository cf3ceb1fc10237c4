package prescription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/medsched/medsched/internal/domain/patient"
	"github.com/medsched/medsched/internal/domain/practitioner"
)

const defaultValidityDays = 30

var (
	ErrNotFound           = errors.New("prescription not found")
	ErrMedicationNotFound = errors.New("medication not found")
	ErrMedicationInUse    = errors.New("medication name already in use")
	ErrNoItems            = errors.New("prescription requires at least one item")
	ErrPatientInactive    = errors.New("patient is inactive or unknown")
	ErrDoctorInactive     = errors.New("doctor is inactive or unknown")
	ErrNotActive          = errors.New("prescription is not active")
)

// PatientSource is the subset of the patient service the issuing flow needs.
type PatientSource interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

// DoctorSource is the subset of the practitioner service the issuing flow
// needs.
type DoctorSource interface {
	GetDoctor(ctx context.Context, id uuid.UUID) (*practitioner.Doctor, error)
}

type Service struct {
	prescriptions Repository
	medications   MedicationRepository
	patients      PatientSource
	doctors       DoctorSource
	now           func() time.Time
}

func NewService(prescriptions Repository, medications MedicationRepository, patients PatientSource, doctors DoctorSource) *Service {
	return &Service{
		prescriptions: prescriptions,
		medications:   medications,
		patients:      patients,
		doctors:       doctors,
		now:           time.Now,
	}
}

// Issue creates a prescription. Both parties must be active, at least one
// item is required, and each item needs a medication name or a catalog id
// the name can be resolved from. Validity defaults to thirty days from the
// issue date.
func (s *Service) Issue(ctx context.Context, p *Prescription) error {
	pat, err := s.patients.Get(ctx, p.PatientID)
	if err != nil || !pat.Active {
		return ErrPatientInactive
	}
	doc, err := s.doctors.GetDoctor(ctx, p.DoctorID)
	if err != nil || !doc.Active {
		return ErrDoctorInactive
	}
	if len(p.Items) == 0 {
		return ErrNoItems
	}
	for _, item := range p.Items {
		if err := s.resolveItem(ctx, item); err != nil {
			return err
		}
	}

	if p.IssueDate.IsZero() {
		p.IssueDate = s.now()
	}
	if p.ValidUntil.IsZero() {
		p.ValidUntil = p.IssueDate.AddDate(0, 0, defaultValidityDays)
	}

	seq, err := s.prescriptions.NextCodeSeq(ctx, dateOnly(p.IssueDate))
	if err != nil {
		return fmt.Errorf("next code seq: %w", err)
	}
	p.Code = fmt.Sprintf("R-%s-%04d", p.IssueDate.Format("20060102"), seq)
	p.Status = StatusActive
	return s.prescriptions.Create(ctx, p)
}

func (s *Service) resolveItem(ctx context.Context, item *Item) error {
	if item.MedicationID != nil {
		med, err := s.medications.GetByID(ctx, *item.MedicationID)
		if err != nil {
			return ErrMedicationNotFound
		}
		if item.MedicationName == "" {
			item.MedicationName = med.Name
		}
	}
	if strings.TrimSpace(item.MedicationName) == "" {
		return fmt.Errorf("medication_name is required on every item")
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	p, err := s.prescriptions.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.markExpired(p)
	return p, nil
}

func (s *Service) GetByCode(ctx context.Context, code string) (*Prescription, error) {
	p, err := s.prescriptions.GetByCode(ctx, code)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.markExpired(p)
	return p, nil
}

// Cancel withdraws an active prescription. Cancelled and expired ones stay
// as they are.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusActive {
		return nil, ErrNotActive
	}
	if err := s.prescriptions.UpdateStatus(ctx, id, StatusCancelled); err != nil {
		return nil, err
	}
	p.Status = StatusCancelled
	return p, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, activeOnly bool, limit, offset int) ([]*Prescription, int, error) {
	items, total, err := s.prescriptions.ListByPatient(ctx, patientID, activeOnly, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for _, p := range items {
		s.markExpired(p)
	}
	return items, total, nil
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	items, total, err := s.prescriptions.ListByDoctor(ctx, doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for _, p := range items {
		s.markExpired(p)
	}
	return items, total, nil
}

// markExpired derives the expired status on read instead of relying on a
// background sweep.
func (s *Service) markExpired(p *Prescription) {
	if p.Status == StatusActive && p.Expired(s.now()) {
		p.Status = StatusExpired
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// -- Medication catalog --

func (s *Service) CreateMedication(ctx context.Context, m *Medication) error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("name is required")
	}
	existing, err := s.medications.GetByName(ctx, m.Name)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if existing != nil && err == nil {
		return ErrMedicationInUse
	}
	m.Active = true
	return s.medications.Create(ctx, m)
}

func (s *Service) GetMedication(ctx context.Context, id uuid.UUID) (*Medication, error) {
	m, err := s.medications.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMedicationNotFound
	}
	return m, err
}

func (s *Service) UpdateMedication(ctx context.Context, id uuid.UUID, in *Medication) (*Medication, error) {
	m, err := s.GetMedication(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != "" && !strings.EqualFold(in.Name, m.Name) {
		existing, err := s.medications.GetByName(ctx, in.Name)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		if existing != nil && err == nil {
			return nil, ErrMedicationInUse
		}
		m.Name = in.Name
	}
	m.ActiveIngredient = in.ActiveIngredient
	m.Description = in.Description
	m.RequiresPrescription = in.RequiresPrescription
	if err := s.medications.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) DeactivateMedication(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetMedication(ctx, id); err != nil {
		return err
	}
	return s.medications.SetActive(ctx, id, false)
}

func (s *Service) ListMedications(ctx context.Context, activeOnly bool, limit, offset int) ([]*Medication, int, error) {
	return s.medications.List(ctx, activeOnly, limit, offset)
}

func (s *Service) SearchMedications(ctx context.Context, query string, limit, offset int) ([]*Medication, int, error) {
	return s.medications.Search(ctx, query, limit, offset)
}
