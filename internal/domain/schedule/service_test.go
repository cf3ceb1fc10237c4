package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/medsched/medsched/pkg/timeofday"
)

// -- Mock Repository --

type mockRepo struct {
	entries map[uuid.UUID]*WeeklySchedule
}

func newMockRepo() *mockRepo {
	return &mockRepo{entries: make(map[uuid.UUID]*WeeklySchedule)}
}

func (m *mockRepo) Create(_ context.Context, w *WeeklySchedule) error {
	w.ID = uuid.New()
	m.entries[w.ID] = w
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*WeeklySchedule, error) {
	w, ok := m.entries[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return w, nil
}

func (m *mockRepo) Update(_ context.Context, w *WeeklySchedule) error {
	m.entries[w.ID] = w
	return nil
}

func (m *mockRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	if w, ok := m.entries[id]; ok {
		w.Active = active
	}
	return nil
}

func (m *mockRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, activeOnly bool) ([]*WeeklySchedule, error) {
	var result []*WeeklySchedule
	for _, w := range m.entries {
		if w.DoctorID != doctorID {
			continue
		}
		if activeOnly && !w.Active {
			continue
		}
		result = append(result, w)
	}
	return result, nil
}

func (m *mockRepo) ListByDoctorWeekday(_ context.Context, doctorID uuid.UUID, weekday time.Weekday) ([]*WeeklySchedule, error) {
	var result []*WeeklySchedule
	for _, w := range m.entries {
		if w.DoctorID == doctorID && w.Weekday == weekday && w.Active {
			result = append(result, w)
		}
	}
	return result, nil
}

func (m *mockRepo) ListByLocation(_ context.Context, locationID uuid.UUID, limit, offset int) ([]*WeeklySchedule, int, error) {
	var result []*WeeklySchedule
	for _, w := range m.entries {
		if w.LocationID == locationID {
			result = append(result, w)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) DeactivateByDoctor(_ context.Context, doctorID uuid.UUID) error {
	for _, w := range m.entries {
		if w.DoctorID == doctorID {
			w.Active = false
		}
	}
	return nil
}

func entry(doctorID uuid.UUID, weekday time.Weekday, startH, startM, endH, endM int) *WeeklySchedule {
	return &WeeklySchedule{
		DoctorID:   doctorID,
		LocationID: uuid.New(),
		Weekday:    weekday,
		Start:      timeofday.New(startH, startM),
		End:        timeofday.New(endH, endM),
	}
}

// -- Tests --

func TestCreateRejectsInvertedRange(t *testing.T) {
	svc := NewService(newMockRepo())

	w := entry(uuid.New(), time.Monday, 12, 0, 9, 0)
	if err := svc.Create(context.Background(), w); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("Create inverted range = %v, want ErrInvalidRange", err)
	}

	zero := entry(uuid.New(), time.Monday, 9, 0, 9, 0)
	if err := svc.Create(context.Background(), zero); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("Create empty range = %v, want ErrInvalidRange", err)
	}
}

func TestCreateRejectsOverlapSameWeekday(t *testing.T) {
	svc := NewService(newMockRepo())
	doctorID := uuid.New()

	if err := svc.Create(context.Background(), entry(doctorID, time.Monday, 9, 0, 12, 0)); err != nil {
		t.Fatalf("Create first: %v", err)
	}

	overlapping := entry(doctorID, time.Monday, 11, 0, 14, 0)
	if err := svc.Create(context.Background(), overlapping); !errors.Is(err, ErrOverlap) {
		t.Errorf("Create overlapping = %v, want ErrOverlap", err)
	}
}

func TestCreateAllowsAbuttingAndOtherWeekday(t *testing.T) {
	svc := NewService(newMockRepo())
	doctorID := uuid.New()

	if err := svc.Create(context.Background(), entry(doctorID, time.Monday, 9, 0, 12, 0)); err != nil {
		t.Fatalf("Create first: %v", err)
	}
	// Abuts at 12:00 on the same weekday.
	if err := svc.Create(context.Background(), entry(doctorID, time.Monday, 12, 0, 15, 0)); err != nil {
		t.Errorf("Create abutting: %v", err)
	}
	// Same hours, different weekday.
	if err := svc.Create(context.Background(), entry(doctorID, time.Tuesday, 9, 0, 12, 0)); err != nil {
		t.Errorf("Create other weekday: %v", err)
	}
	// Same hours, different doctor.
	if err := svc.Create(context.Background(), entry(uuid.New(), time.Monday, 9, 0, 12, 0)); err != nil {
		t.Errorf("Create other doctor: %v", err)
	}
}

func TestUpdateExcludesSelfFromOverlapCheck(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	doctorID := uuid.New()

	w := entry(doctorID, time.Monday, 9, 0, 12, 0)
	if err := svc.Create(context.Background(), w); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Widening the same entry must not collide with itself.
	w.End = timeofday.New(13, 0)
	if err := svc.Update(context.Background(), w); err != nil {
		t.Errorf("Update widening own entry: %v", err)
	}
}

func TestDeactivateByDoctor(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	doctorID := uuid.New()

	for _, wd := range []time.Weekday{time.Monday, time.Wednesday} {
		if err := svc.Create(context.Background(), entry(doctorID, wd, 9, 0, 12, 0)); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if err := svc.DeactivateByDoctor(context.Background(), doctorID); err != nil {
		t.Fatalf("DeactivateByDoctor: %v", err)
	}

	remaining, err := svc.ListForWeekday(context.Background(), doctorID, time.Monday)
	if err != nil {
		t.Fatalf("ListForWeekday: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("expected no active entries after doctor deactivation, got %d", len(remaining))
	}
}
