package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrNotFound     = errors.New("schedule entry not found")
	ErrInvalidRange = errors.New("end must be after start")
	ErrOverlap      = errors.New("schedule overlaps an existing entry for this doctor")
)

type Service struct {
	schedules Repository
}

func NewService(schedules Repository) *Service {
	return &Service{schedules: schedules}
}

func (s *Service) Create(ctx context.Context, w *WeeklySchedule) error {
	if err := s.validate(ctx, w, uuid.Nil); err != nil {
		return err
	}
	w.Active = true
	return s.schedules.Create(ctx, w)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*WeeklySchedule, error) {
	w, err := s.schedules.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return w, err
}

func (s *Service) Update(ctx context.Context, w *WeeklySchedule) error {
	if _, err := s.Get(ctx, w.ID); err != nil {
		return err
	}
	if err := s.validate(ctx, w, w.ID); err != nil {
		return err
	}
	return s.schedules.Update(ctx, w)
}

func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.schedules.SetActive(ctx, id, false)
}

// DeactivateByDoctor retires every active entry of a doctor. The practitioner
// service calls this when a doctor is deactivated.
func (s *Service) DeactivateByDoctor(ctx context.Context, doctorID uuid.UUID) error {
	return s.schedules.DeactivateByDoctor(ctx, doctorID)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, activeOnly bool) ([]*WeeklySchedule, error) {
	return s.schedules.ListByDoctor(ctx, doctorID, activeOnly)
}

// ListForWeekday returns the doctor's active blocks on one weekday, used by
// the availability computation.
func (s *Service) ListForWeekday(ctx context.Context, doctorID uuid.UUID, weekday time.Weekday) ([]*WeeklySchedule, error) {
	return s.schedules.ListByDoctorWeekday(ctx, doctorID, weekday)
}

func (s *Service) ListByLocation(ctx context.Context, locationID uuid.UUID, limit, offset int) ([]*WeeklySchedule, int, error) {
	return s.schedules.ListByLocation(ctx, locationID, limit, offset)
}

// validate enforces the block invariants: a positive time range and no
// overlap with the doctor's other active entries on the same weekday. The
// entry identified by excludeID (the one being updated) is skipped.
func (s *Service) validate(ctx context.Context, w *WeeklySchedule, excludeID uuid.UUID) error {
	if w.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if w.LocationID == uuid.Nil {
		return fmt.Errorf("location_id is required")
	}
	if w.Weekday < time.Sunday || w.Weekday > time.Saturday {
		return fmt.Errorf("weekday out of range: %d", w.Weekday)
	}
	if w.End <= w.Start {
		return ErrInvalidRange
	}

	existing, err := s.schedules.ListByDoctorWeekday(ctx, w.DoctorID, w.Weekday)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.ID == excludeID {
			continue
		}
		if w.OverlapsWith(other) {
			return ErrOverlap
		}
	}
	return nil
}
