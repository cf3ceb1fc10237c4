package appointment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/medsched/medsched/internal/domain/patient"
	"github.com/medsched/medsched/internal/domain/practitioner"
	"github.com/medsched/medsched/internal/domain/schedule"
	"github.com/medsched/medsched/pkg/timeofday"
)

var (
	ErrNotFound           = errors.New("appointment not found")
	ErrInvalidDuration    = errors.New("duration must be positive")
	ErrPastDate           = errors.New("appointment date is in the past")
	ErrPatientUnavailable = errors.New("patient does not exist or is inactive")
	ErrDoctorUnavailable  = errors.New("doctor does not exist or is inactive")
	ErrSlotTaken          = errors.New("requested start time is not available")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrCompletedImmutable = errors.New("completed appointments cannot be deleted")
)

// PatientSource is the subset of the patient service the booking flow needs.
type PatientSource interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

// DoctorSource is the subset of the practitioner service the booking flow
// needs.
type DoctorSource interface {
	GetDoctor(ctx context.Context, id uuid.UUID) (*practitioner.Doctor, error)
	GetSpecialty(ctx context.Context, id uuid.UUID) (*practitioner.Specialty, error)
}

// ScheduleSource provides the doctor's weekly working-hours blocks.
type ScheduleSource interface {
	ListForWeekday(ctx context.Context, doctorID uuid.UUID, weekday time.Weekday) ([]*schedule.WeeklySchedule, error)
}

// Notifier observes appointment lifecycle events. The notification domain
// implements it; a nil Notifier disables fan-out.
type Notifier interface {
	AppointmentCreated(ctx context.Context, a *Appointment)
	AppointmentConfirmed(ctx context.Context, a *Appointment)
	AppointmentCancelled(ctx context.Context, a *Appointment)
}

type Service struct {
	appointments Repository
	patients     PatientSource
	doctors      DoctorSource
	schedules    ScheduleSource
	notifier     Notifier
	now          func() time.Time
}

func NewService(appointments Repository, patients PatientSource, doctors DoctorSource, schedules ScheduleSource, notifier Notifier) *Service {
	return &Service{
		appointments: appointments,
		patients:     patients,
		doctors:      doctors,
		schedules:    schedules,
		notifier:     notifier,
		now:          time.Now,
	}
}

// Availability returns the free start times for a doctor on a date,
// ascending. No working hours on that weekday yields an empty result, not an
// error.
func (s *Service) Availability(ctx context.Context, doctorID uuid.UUID, date time.Time, durationMin int) ([]timeofday.TimeOfDay, error) {
	if durationMin <= 0 {
		return nil, ErrInvalidDuration
	}

	blocks, err := s.schedules.ListForWeekday(ctx, doctorID, date.Weekday())
	if err != nil {
		return nil, fmt.Errorf("load working hours: %w", err)
	}
	if len(blocks) == 0 {
		return []timeofday.TimeOfDay{}, nil
	}

	booked, err := s.appointments.ListByDoctorDate(ctx, doctorID, dateOnly(date))
	if err != nil {
		return nil, fmt.Errorf("load existing appointments: %w", err)
	}

	slots := []timeofday.TimeOfDay{}
	for _, block := range blocks {
		for cand := block.Start; cand.Add(durationMin) <= block.End; cand = cand.Add(durationMin) {
			if s.slotFree(cand, durationMin, booked) {
				slots = append(slots, cand)
			}
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
	return slots, nil
}

func (s *Service) slotFree(start timeofday.TimeOfDay, durationMin int, booked []*Appointment) bool {
	for _, a := range booked {
		if !a.Blocks() {
			continue
		}
		if start.Overlaps(durationMin, a.Start, a.DurationMin) {
			return false
		}
	}
	return true
}

// Create books an appointment after checking every precondition: active
// patient and doctor, a date that is not past, and a start that is free
// within the doctor's working hours. Nothing is written on rejection.
func (s *Service) Create(ctx context.Context, a *Appointment) error {
	p, err := s.patients.Get(ctx, a.PatientID)
	if err != nil || !p.Active {
		return ErrPatientUnavailable
	}
	d, err := s.doctors.GetDoctor(ctx, a.DoctorID)
	if err != nil || !d.Active {
		return ErrDoctorUnavailable
	}

	a.Date = dateOnly(a.Date)
	if a.Date.Before(dateOnly(s.now())) {
		return ErrPastDate
	}

	if a.DurationMin <= 0 {
		a.DurationMin = s.defaultDuration(ctx, d)
	}

	free, err := s.Availability(ctx, a.DoctorID, a.Date, a.DurationMin)
	if err != nil {
		return err
	}
	if !containsSlot(free, a.Start) {
		return ErrSlotTaken
	}

	seq, err := s.appointments.NextCodeSeq(ctx, a.Date)
	if err != nil {
		return fmt.Errorf("assign appointment code: %w", err)
	}
	a.Code = fmt.Sprintf("T-%s-%04d", a.Date.Format("20060102"), seq)
	a.Status = StatusPending

	if err := s.appointments.Create(ctx, a); err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.AppointmentCreated(ctx, a)
	}
	return nil
}

// defaultDuration resolves the doctor's primary-specialty duration, falling
// back to 30 minutes.
func (s *Service) defaultDuration(ctx context.Context, d *practitioner.Doctor) int {
	if d.PrimarySpecialtyID != nil {
		if sp, err := s.doctors.GetSpecialty(ctx, *d.PrimarySpecialtyID); err == nil && sp.DefaultDurationMin > 0 {
			return sp.DefaultDurationMin
		}
	}
	return 30
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func (s *Service) GetByCode(ctx context.Context, code string) (*Appointment, error) {
	a, err := s.appointments.GetByCode(ctx, code)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.transition(ctx, id, StatusConfirmed)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.AppointmentConfirmed(ctx, a)
	}
	return a, nil
}

func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusCompleted)
}

func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusNoShow)
}

// Cancel releases the appointment's interval: subsequent availability
// queries offer it again.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.transition(ctx, id, StatusCancelled)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.AppointmentCancelled(ctx, a)
	}
	return a, nil
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, target Status) (*Appointment, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.Status.CanTransitionTo(target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, target)
	}
	if err := s.appointments.UpdateStatus(ctx, id, target); err != nil {
		return nil, err
	}
	a.Status = target
	return a, nil
}

// Delete removes an appointment record. Completed visits are part of the
// clinical history and cannot be removed.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	a, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if a.Status == StatusCompleted {
		return ErrCompletedImmutable
	}
	return s.appointments.Delete(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, from, to *time.Time, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.ListByDoctor(ctx, doctorID, from, to, limit, offset)
}

// ListPendingByDate feeds the reminder job.
func (s *Service) ListPendingByDate(ctx context.Context, date time.Time) ([]*Appointment, error) {
	return s.appointments.ListPendingByDate(ctx, dateOnly(date))
}

func containsSlot(slots []timeofday.TimeOfDay, t timeofday.TimeOfDay) bool {
	for _, s := range slots {
		if s == t {
			return true
		}
	}
	return false
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
