package clinicalrecord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/medsched/medsched/internal/domain/appointment"
)

var (
	ErrNotFound            = errors.New("clinical record not found")
	ErrAlreadyDocumented   = errors.New("appointment already has a clinical record")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrVisitNotHeld        = errors.New("appointment was cancelled or missed, nothing to document")
)

// AppointmentSource is the subset of the appointment service used when a
// record is created from a visit.
type AppointmentSource interface {
	Get(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	Complete(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
}

type Service struct {
	records      Repository
	appointments AppointmentSource
	now          func() time.Time
}

func NewService(records Repository, appointments AppointmentSource) *Service {
	return &Service{records: records, appointments: appointments, now: time.Now}
}

// CreateFromAppointment documents a visit. The appointment must exist, not
// be documented yet, and represent a visit that actually happened: cancelled
// and no-show bookings cannot be documented. A pending or confirmed
// appointment is marked completed as part of the operation.
func (s *Service) CreateFromAppointment(ctx context.Context, appointmentID uuid.UUID, rec *ClinicalRecord) error {
	appt, err := s.appointments.Get(ctx, appointmentID)
	if err != nil {
		return ErrAppointmentNotFound
	}
	if appt.Status == appointment.StatusCancelled || appt.Status == appointment.StatusNoShow {
		return ErrVisitNotHeld
	}

	existing, err := s.records.GetByAppointment(ctx, appointmentID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if existing != nil && err == nil {
		return ErrAlreadyDocumented
	}

	if appt.Status == appointment.StatusPending || appt.Status == appointment.StatusConfirmed {
		if _, err := s.appointments.Complete(ctx, appointmentID); err != nil {
			return fmt.Errorf("complete appointment: %w", err)
		}
	}

	rec.AppointmentID = &appointmentID
	rec.PatientID = appt.PatientID
	rec.DoctorID = appt.DoctorID
	if rec.Reason == "" {
		rec.Reason = appt.Reason
	}
	if rec.ConsultationDate.IsZero() {
		rec.ConsultationDate = appt.Date
	}
	return s.records.Create(ctx, rec)
}

// Create documents a consultation without a booked appointment.
func (s *Service) Create(ctx context.Context, rec *ClinicalRecord) error {
	if rec.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if rec.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	rec.AppointmentID = nil
	if rec.ConsultationDate.IsZero() {
		rec.ConsultationDate = s.now()
	}
	return s.records.Create(ctx, rec)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*ClinicalRecord, error) {
	rec, err := s.records.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// Update changes the clinical fields only; the parties and the appointment
// link are immutable.
func (s *Service) Update(ctx context.Context, id uuid.UUID, reason, diagnosis, treatment, notes string) (*ClinicalRecord, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Reason = reason
	rec.Diagnosis = diagnosis
	rec.Treatment = treatment
	rec.Notes = notes
	if err := s.records.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// History returns the patient's records, most recent first.
func (s *Service) History(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*ClinicalRecord, int, error) {
	return s.records.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*ClinicalRecord, int, error) {
	return s.records.ListByDoctor(ctx, doctorID, limit, offset)
}
