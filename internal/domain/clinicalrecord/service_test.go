package clinicalrecord

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/medsched/medsched/internal/domain/appointment"
)

// -- Mocks --

type mockRepo struct {
	records map[uuid.UUID]*ClinicalRecord
}

func newMockRepo() *mockRepo {
	return &mockRepo{records: make(map[uuid.UUID]*ClinicalRecord)}
}

func (m *mockRepo) Create(_ context.Context, r *ClinicalRecord) error {
	r.ID = uuid.New()
	m.records[r.ID] = r
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*ClinicalRecord, error) {
	r, ok := m.records[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return r, nil
}

func (m *mockRepo) GetByAppointment(_ context.Context, appointmentID uuid.UUID) (*ClinicalRecord, error) {
	for _, r := range m.records {
		if r.AppointmentID != nil && *r.AppointmentID == appointmentID {
			return r, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockRepo) Update(_ context.Context, r *ClinicalRecord) error {
	m.records[r.ID] = r
	return nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*ClinicalRecord, int, error) {
	var result []*ClinicalRecord
	for _, r := range m.records {
		if r.PatientID == patientID {
			result = append(result, r)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, limit, offset int) ([]*ClinicalRecord, int, error) {
	var result []*ClinicalRecord
	for _, r := range m.records {
		if r.DoctorID == doctorID {
			result = append(result, r)
		}
	}
	return result, len(result), nil
}

type mockAppointmentSource struct {
	appointments map[uuid.UUID]*appointment.Appointment
	completed    []uuid.UUID
}

func (m *mockAppointmentSource) Get(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	a, ok := m.appointments[id]
	if !ok {
		return nil, appointment.ErrNotFound
	}
	return a, nil
}

func (m *mockAppointmentSource) Complete(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	a, ok := m.appointments[id]
	if !ok {
		return nil, appointment.ErrNotFound
	}
	a.Status = appointment.StatusCompleted
	m.completed = append(m.completed, id)
	return a, nil
}

// -- Tests --

func TestCreateFromAppointmentCompletesVisit(t *testing.T) {
	appt := &appointment.Appointment{
		ID:        uuid.New(),
		PatientID: uuid.New(),
		DoctorID:  uuid.New(),
		Date:      time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Status:    appointment.StatusConfirmed,
		Reason:    "checkup",
	}
	appts := &mockAppointmentSource{appointments: map[uuid.UUID]*appointment.Appointment{appt.ID: appt}}
	svc := NewService(newMockRepo(), appts)

	rec := &ClinicalRecord{Diagnosis: "healthy"}
	if err := svc.CreateFromAppointment(context.Background(), appt.ID, rec); err != nil {
		t.Fatalf("CreateFromAppointment: %v", err)
	}

	if len(appts.completed) != 1 {
		t.Error("appointment was not completed")
	}
	if rec.PatientID != appt.PatientID || rec.DoctorID != appt.DoctorID {
		t.Error("record did not inherit the appointment's parties")
	}
	if rec.Reason != "checkup" {
		t.Errorf("reason = %q, want inherited %q", rec.Reason, "checkup")
	}
	if !rec.ConsultationDate.Equal(appt.Date) {
		t.Errorf("consultation date = %v, want %v", rec.ConsultationDate, appt.Date)
	}
}

func TestCreateFromAppointmentSkipsCompleteWhenAlreadyDone(t *testing.T) {
	appt := &appointment.Appointment{
		ID: uuid.New(), PatientID: uuid.New(), DoctorID: uuid.New(),
		Date: time.Now(), Status: appointment.StatusCompleted,
	}
	appts := &mockAppointmentSource{appointments: map[uuid.UUID]*appointment.Appointment{appt.ID: appt}}
	svc := NewService(newMockRepo(), appts)

	if err := svc.CreateFromAppointment(context.Background(), appt.ID, &ClinicalRecord{}); err != nil {
		t.Fatalf("CreateFromAppointment: %v", err)
	}
	if len(appts.completed) != 0 {
		t.Error("Complete should not be called for an already-completed appointment")
	}
}

func TestCreateFromAppointmentRejectsDuplicate(t *testing.T) {
	appt := &appointment.Appointment{
		ID: uuid.New(), PatientID: uuid.New(), DoctorID: uuid.New(),
		Date: time.Now(), Status: appointment.StatusCompleted,
	}
	appts := &mockAppointmentSource{appointments: map[uuid.UUID]*appointment.Appointment{appt.ID: appt}}
	svc := NewService(newMockRepo(), appts)

	if err := svc.CreateFromAppointment(context.Background(), appt.ID, &ClinicalRecord{}); err != nil {
		t.Fatalf("first CreateFromAppointment: %v", err)
	}
	err := svc.CreateFromAppointment(context.Background(), appt.ID, &ClinicalRecord{})
	if !errors.Is(err, ErrAlreadyDocumented) {
		t.Errorf("duplicate = %v, want ErrAlreadyDocumented", err)
	}
}

func TestCreateFromAppointmentRejectsVisitNotHeld(t *testing.T) {
	for _, status := range []appointment.Status{appointment.StatusCancelled, appointment.StatusNoShow} {
		t.Run(string(status), func(t *testing.T) {
			appt := &appointment.Appointment{
				ID: uuid.New(), PatientID: uuid.New(), DoctorID: uuid.New(),
				Date: time.Now(), Status: status,
			}
			appts := &mockAppointmentSource{appointments: map[uuid.UUID]*appointment.Appointment{appt.ID: appt}}
			repo := newMockRepo()
			svc := NewService(repo, appts)

			err := svc.CreateFromAppointment(context.Background(), appt.ID, &ClinicalRecord{Diagnosis: "x"})
			if !errors.Is(err, ErrVisitNotHeld) {
				t.Fatalf("status %s = %v, want ErrVisitNotHeld", status, err)
			}
			if len(repo.records) != 0 {
				t.Error("no record may be created for a visit that never happened")
			}
			if len(appts.completed) != 0 {
				t.Errorf("appointment must not be completed, status is still %s", appt.Status)
			}
		})
	}
}

func TestCreateFromAppointmentUnknownAppointment(t *testing.T) {
	svc := NewService(newMockRepo(), &mockAppointmentSource{appointments: map[uuid.UUID]*appointment.Appointment{}})
	err := svc.CreateFromAppointment(context.Background(), uuid.New(), &ClinicalRecord{})
	if !errors.Is(err, ErrAppointmentNotFound) {
		t.Errorf("unknown appointment = %v, want ErrAppointmentNotFound", err)
	}
}

func TestUpdateChangesClinicalFieldsOnly(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockAppointmentSource{})

	rec := &ClinicalRecord{PatientID: uuid.New(), DoctorID: uuid.New(), Diagnosis: "initial"}
	if err := svc.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := svc.Update(context.Background(), rec.ID, "r", "d", "t", "n")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Diagnosis != "d" || updated.Treatment != "t" {
		t.Errorf("clinical fields not updated: %+v", updated)
	}
	if updated.PatientID != rec.PatientID {
		t.Error("patient link must not change on update")
	}
}
