package report

import (
	"context"
	"errors"
	"time"
)

// defaultRangeDays bounds a report when the caller gives no explicit range.
const defaultRangeDays = 30

var ErrInvalidRange = errors.New("report range end precedes start")

type Service struct {
	reports Repository
	now     func() time.Time
}

func NewService(reports Repository) *Service {
	return &Service{reports: reports, now: time.Now}
}

// normalize fills missing bounds (last thirty days by default) and rejects
// inverted ranges.
func (s *Service) normalize(r DateRange) (DateRange, error) {
	if r.To.IsZero() {
		now := s.now()
		r.To = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	if r.From.IsZero() {
		r.From = r.To.AddDate(0, 0, -defaultRangeDays)
	}
	if r.To.Before(r.From) {
		return DateRange{}, ErrInvalidRange
	}
	return r, nil
}

func (s *Service) DoctorActivity(ctx context.Context, r DateRange) ([]*DoctorActivity, error) {
	r, err := s.normalize(r)
	if err != nil {
		return nil, err
	}
	return s.reports.DoctorActivity(ctx, r)
}

func (s *Service) SpecialtyActivity(ctx context.Context, r DateRange) ([]*SpecialtyActivity, error) {
	r, err := s.normalize(r)
	if err != nil {
		return nil, err
	}
	return s.reports.SpecialtyActivity(ctx, r)
}

func (s *Service) DailyVolume(ctx context.Context, r DateRange) ([]*DailyVolume, error) {
	r, err := s.normalize(r)
	if err != nil {
		return nil, err
	}
	return s.reports.DailyVolume(ctx, r)
}

// Attendance derives the no-show rate over decided visits. A range with no
// completed or no-show appointments reports a rate of zero.
func (s *Service) Attendance(ctx context.Context, r DateRange) (*AttendanceStats, error) {
	r, err := s.normalize(r)
	if err != nil {
		return nil, err
	}
	counts, err := s.reports.StatusCounts(ctx, r)
	if err != nil {
		return nil, err
	}

	stats := &AttendanceStats{
		Range:     r,
		Total:     counts.Total,
		Completed: counts.Completed,
		NoShow:    counts.NoShow,
		Cancelled: counts.Cancelled,
	}
	if decided := counts.Completed + counts.NoShow; decided > 0 {
		stats.NoShowRate = float64(counts.NoShow) / float64(decided) * 100
	}
	return stats, nil
}
