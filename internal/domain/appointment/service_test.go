package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/medsched/medsched/internal/domain/patient"
	"github.com/medsched/medsched/internal/domain/practitioner"
	"github.com/medsched/medsched/internal/domain/schedule"
	"github.com/medsched/medsched/pkg/timeofday"
)

// -- Mocks --

type mockRepo struct {
	appointments map[uuid.UUID]*Appointment
	seq          map[string]int
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		appointments: make(map[uuid.UUID]*Appointment),
		seq:          make(map[string]int),
	}
}

func (m *mockRepo) Create(_ context.Context, a *Appointment) error {
	a.ID = uuid.New()
	m.appointments[a.ID] = a
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appointments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return a, nil
}

func (m *mockRepo) GetByCode(_ context.Context, code string) (*Appointment, error) {
	for _, a := range m.appointments {
		if a.Code == code {
			return a, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockRepo) UpdateStatus(_ context.Context, id uuid.UUID, status Status) error {
	if a, ok := m.appointments[id]; ok {
		a.Status = status
	}
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.appointments, id)
	return nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var result []*Appointment
	for _, a := range m.appointments {
		if a.PatientID == patientID {
			result = append(result, a)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, from, to *time.Time, limit, offset int) ([]*Appointment, int, error) {
	var result []*Appointment
	for _, a := range m.appointments {
		if a.DoctorID == doctorID {
			result = append(result, a)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) ListByDoctorDate(_ context.Context, doctorID uuid.UUID, date time.Time) ([]*Appointment, error) {
	var result []*Appointment
	for _, a := range m.appointments {
		if a.DoctorID == doctorID && a.Date.Equal(date) {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *mockRepo) ListPendingByDate(_ context.Context, date time.Time) ([]*Appointment, error) {
	var result []*Appointment
	for _, a := range m.appointments {
		if a.Date.Equal(date) && a.Status == StatusPending {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *mockRepo) NextCodeSeq(_ context.Context, date time.Time) (int, error) {
	key := date.Format("20060102")
	m.seq[key]++
	return m.seq[key], nil
}

type mockPatientSource struct {
	patients map[uuid.UUID]*patient.Patient
}

func (m *mockPatientSource) Get(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, patient.ErrNotFound
	}
	return p, nil
}

type mockDoctorSource struct {
	doctors     map[uuid.UUID]*practitioner.Doctor
	specialties map[uuid.UUID]*practitioner.Specialty
}

func (m *mockDoctorSource) GetDoctor(_ context.Context, id uuid.UUID) (*practitioner.Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, practitioner.ErrDoctorNotFound
	}
	return d, nil
}

func (m *mockDoctorSource) GetSpecialty(_ context.Context, id uuid.UUID) (*practitioner.Specialty, error) {
	sp, ok := m.specialties[id]
	if !ok {
		return nil, practitioner.ErrSpecialtyNotFound
	}
	return sp, nil
}

type mockScheduleSource struct {
	blocks map[time.Weekday][]*schedule.WeeklySchedule
}

func (m *mockScheduleSource) ListForWeekday(_ context.Context, doctorID uuid.UUID, weekday time.Weekday) ([]*schedule.WeeklySchedule, error) {
	return m.blocks[weekday], nil
}

type mockNotifier struct {
	created   []*Appointment
	confirmed []*Appointment
	cancelled []*Appointment
}

func (m *mockNotifier) AppointmentCreated(_ context.Context, a *Appointment)   { m.created = append(m.created, a) }
func (m *mockNotifier) AppointmentConfirmed(_ context.Context, a *Appointment) { m.confirmed = append(m.confirmed, a) }
func (m *mockNotifier) AppointmentCancelled(_ context.Context, a *Appointment) { m.cancelled = append(m.cancelled, a) }

// -- Fixture --

type fixture struct {
	svc      *Service
	repo     *mockRepo
	notifier *mockNotifier
	patient  *patient.Patient
	doctor   *practitioner.Doctor
	// monday is a fixed future Monday relative to the injected clock.
	monday time.Time
}

// newFixture wires a doctor working Mondays 08:00-12:00 and a frozen clock.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	p := &patient.Patient{ID: uuid.New(), FirstName: "Ana", LastName: "Gomez", Active: true}
	d := &practitioner.Doctor{ID: uuid.New(), FirstName: "Laura", LastName: "Diaz", Active: true}

	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) // a Monday
	blocks := map[time.Weekday][]*schedule.WeeklySchedule{
		time.Monday: {{
			ID:       uuid.New(),
			DoctorID: d.ID,
			Weekday:  time.Monday,
			Start:    timeofday.New(8, 0),
			End:      timeofday.New(12, 0),
			Active:   true,
		}},
	}

	repo := newMockRepo()
	notifier := &mockNotifier{}
	svc := NewService(
		repo,
		&mockPatientSource{patients: map[uuid.UUID]*patient.Patient{p.ID: p}},
		&mockDoctorSource{doctors: map[uuid.UUID]*practitioner.Doctor{d.ID: d}},
		&mockScheduleSource{blocks: blocks},
		notifier,
	)
	svc.now = func() time.Time { return monday.AddDate(0, 0, -7) }

	return &fixture{svc: svc, repo: repo, notifier: notifier, patient: p, doctor: d, monday: monday}
}

func (f *fixture) book(t *testing.T, start timeofday.TimeOfDay, duration int) *Appointment {
	t.Helper()
	a := &Appointment{
		PatientID:   f.patient.ID,
		DoctorID:    f.doctor.ID,
		LocationID:  uuid.New(),
		Date:        f.monday,
		Start:       start,
		DurationMin: duration,
	}
	if err := f.svc.Create(context.Background(), a); err != nil {
		t.Fatalf("Create at %s: %v", start, err)
	}
	return a
}

// -- Availability tests --

func TestAvailabilityEmptyWithoutSchedule(t *testing.T) {
	f := newFixture(t)

	// Tuesday has no working-hours block.
	tuesday := f.monday.AddDate(0, 0, 1)
	slots, err := f.svc.Availability(context.Background(), f.doctor.ID, tuesday, 30)
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("expected no slots on a free weekday, got %v", slots)
	}
}

func TestAvailabilityRejectsNonPositiveDuration(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Availability(context.Background(), f.doctor.ID, f.monday, 0); !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("duration 0 = %v, want ErrInvalidDuration", err)
	}
	if _, err := f.svc.Availability(context.Background(), f.doctor.ID, f.monday, -15); !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("duration -15 = %v, want ErrInvalidDuration", err)
	}
}

func TestAvailabilityStepsThroughBlock(t *testing.T) {
	f := newFixture(t)

	slots, err := f.svc.Availability(context.Background(), f.doctor.ID, f.monday, 60)
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	want := []timeofday.TimeOfDay{
		timeofday.New(8, 0), timeofday.New(9, 0), timeofday.New(10, 0), timeofday.New(11, 0),
	}
	assertSlots(t, slots, want)
}

func TestAvailabilityExcludesBookedAndOffersAbutting(t *testing.T) {
	f := newFixture(t)

	// Occupy 09:00-10:00; 30-minute candidates 09:00 and 09:30 must vanish,
	// while 08:30 (abutting the booking) stays.
	f.book(t, timeofday.New(9, 0), 60)

	slots, err := f.svc.Availability(context.Background(), f.doctor.ID, f.monday, 30)
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	want := []timeofday.TimeOfDay{
		timeofday.New(8, 0), timeofday.New(8, 30),
		timeofday.New(10, 0), timeofday.New(10, 30), timeofday.New(11, 0), timeofday.New(11, 30),
	}
	assertSlots(t, slots, want)
}

func TestAvailabilityWorkedExample(t *testing.T) {
	f := newFixture(t)

	// Single 08:00-09:00 block, one 08:00-08:30 booking: only 08:30 remains.
	f.svc.schedules = &mockScheduleSource{blocks: map[time.Weekday][]*schedule.WeeklySchedule{
		time.Monday: {{
			DoctorID: f.doctor.ID,
			Weekday:  time.Monday,
			Start:    timeofday.New(8, 0),
			End:      timeofday.New(9, 0),
			Active:   true,
		}},
	}}
	f.book(t, timeofday.New(8, 0), 30)

	slots, err := f.svc.Availability(context.Background(), f.doctor.ID, f.monday, 30)
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	assertSlots(t, slots, []timeofday.TimeOfDay{timeofday.New(8, 30)})
}

func TestCancelledAppointmentFreesSlot(t *testing.T) {
	f := newFixture(t)

	a := f.book(t, timeofday.New(8, 0), 30)

	slots, _ := f.svc.Availability(context.Background(), f.doctor.ID, f.monday, 30)
	if containsSlot(slots, timeofday.New(8, 0)) {
		t.Fatal("booked slot still offered")
	}

	if _, err := f.svc.Cancel(context.Background(), a.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	slots, _ = f.svc.Availability(context.Background(), f.doctor.ID, f.monday, 30)
	if !containsSlot(slots, timeofday.New(8, 0)) {
		t.Error("cancelled slot not offered again")
	}
}

func TestNoShowStillBlocksSlot(t *testing.T) {
	f := newFixture(t)

	a := f.book(t, timeofday.New(8, 0), 30)
	if _, err := f.svc.MarkNoShow(context.Background(), a.ID); err != nil {
		t.Fatalf("MarkNoShow: %v", err)
	}

	slots, _ := f.svc.Availability(context.Background(), f.doctor.ID, f.monday, 30)
	if containsSlot(slots, timeofday.New(8, 0)) {
		t.Error("no-show slot should stay blocked")
	}
}

// -- Creation tests --

func TestCreateAssignsCodeAndStatus(t *testing.T) {
	f := newFixture(t)

	a := f.book(t, timeofday.New(8, 0), 30)
	wantCode := "T-" + f.monday.Format("20060102") + "-0001"
	if a.Code != wantCode {
		t.Errorf("code = %q, want %q", a.Code, wantCode)
	}
	if a.Status != StatusPending {
		t.Errorf("status = %q, want pending", a.Status)
	}

	b := f.book(t, timeofday.New(8, 30), 30)
	wantCode = "T-" + f.monday.Format("20060102") + "-0002"
	if b.Code != wantCode {
		t.Errorf("second code = %q, want %q", b.Code, wantCode)
	}

	if len(f.notifier.created) != 2 {
		t.Errorf("created notifications = %d, want 2", len(f.notifier.created))
	}
}

func TestCreateRejectsUnavailableStart(t *testing.T) {
	f := newFixture(t)
	f.book(t, timeofday.New(8, 0), 30)

	dup := &Appointment{
		PatientID: f.patient.ID, DoctorID: f.doctor.ID, LocationID: uuid.New(),
		Date: f.monday, Start: timeofday.New(8, 0), DurationMin: 30,
	}
	if err := f.svc.Create(context.Background(), dup); !errors.Is(err, ErrSlotTaken) {
		t.Errorf("Create on taken slot = %v, want ErrSlotTaken", err)
	}

	// Off-grid start inside working hours is also rejected.
	offGrid := &Appointment{
		PatientID: f.patient.ID, DoctorID: f.doctor.ID, LocationID: uuid.New(),
		Date: f.monday, Start: timeofday.New(8, 45), DurationMin: 30,
	}
	if err := f.svc.Create(context.Background(), offGrid); !errors.Is(err, ErrSlotTaken) {
		t.Errorf("Create off-grid = %v, want ErrSlotTaken", err)
	}

	if len(f.repo.appointments) != 1 {
		t.Errorf("rejected creations must not write, have %d rows", len(f.repo.appointments))
	}
}

func TestCreateRejectsPastDate(t *testing.T) {
	f := newFixture(t)
	f.svc.now = func() time.Time { return f.monday.AddDate(0, 0, 7) }

	a := &Appointment{
		PatientID: f.patient.ID, DoctorID: f.doctor.ID, LocationID: uuid.New(),
		Date: f.monday, Start: timeofday.New(8, 0), DurationMin: 30,
	}
	if err := f.svc.Create(context.Background(), a); !errors.Is(err, ErrPastDate) {
		t.Errorf("Create past date = %v, want ErrPastDate", err)
	}
}

func TestCreateRejectsInactiveParties(t *testing.T) {
	f := newFixture(t)

	f.patient.Active = false
	a := &Appointment{
		PatientID: f.patient.ID, DoctorID: f.doctor.ID, LocationID: uuid.New(),
		Date: f.monday, Start: timeofday.New(8, 0), DurationMin: 30,
	}
	if err := f.svc.Create(context.Background(), a); !errors.Is(err, ErrPatientUnavailable) {
		t.Errorf("Create inactive patient = %v, want ErrPatientUnavailable", err)
	}

	f.patient.Active = true
	f.doctor.Active = false
	if err := f.svc.Create(context.Background(), a); !errors.Is(err, ErrDoctorUnavailable) {
		t.Errorf("Create inactive doctor = %v, want ErrDoctorUnavailable", err)
	}
}

// -- Status machine tests --

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusNoShow, true},
		{StatusPending, StatusCancelled, true},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusNoShow, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusNoShow, StatusCancelled, true},
		{StatusConfirmed, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCompleted, StatusConfirmed, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCancelled, StatusCancelled, false},
		{StatusNoShow, StatusCompleted, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.ok {
			t.Errorf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestTransitionServiceCalls(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, timeofday.New(8, 0), 30)

	if _, err := f.svc.Confirm(context.Background(), a.ID); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if len(f.notifier.confirmed) != 1 {
		t.Errorf("confirmed notifications = %d, want 1", len(f.notifier.confirmed))
	}

	if _, err := f.svc.Complete(context.Background(), a.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	// Completed appointments are terminal.
	if _, err := f.svc.Cancel(context.Background(), a.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Cancel completed = %v, want ErrInvalidTransition", err)
	}
	if err := f.svc.Delete(context.Background(), a.ID); !errors.Is(err, ErrCompletedImmutable) {
		t.Errorf("Delete completed = %v, want ErrCompletedImmutable", err)
	}
}

func assertSlots(t *testing.T, got, want []timeofday.TimeOfDay) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("slots = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slots[%d] = %s, want %s (all: %v)", i, got[i], want[i], got)
		}
	}
}
