package notification

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/medsched/medsched/internal/domain/appointment"
	"github.com/medsched/medsched/internal/domain/patient"
	"github.com/medsched/medsched/internal/domain/practitioner"
	"github.com/medsched/medsched/internal/platform/notify"
	"github.com/medsched/medsched/pkg/timeofday"
)

// -- Mocks --

type mockRepo struct {
	notifications map[uuid.UUID]*Notification
}

func newMockRepo() *mockRepo {
	return &mockRepo{notifications: make(map[uuid.UUID]*Notification)}
}

func (m *mockRepo) Create(_ context.Context, n *Notification) error {
	n.ID = uuid.New()
	m.notifications[n.ID] = n
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Notification, error) {
	n, ok := m.notifications[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return n, nil
}

func (m *mockRepo) MarkOutcome(_ context.Context, n *Notification) error {
	m.notifications[n.ID] = n
	return nil
}

func (m *mockRepo) ListByAppointment(_ context.Context, appointmentID uuid.UUID) ([]*Notification, error) {
	var result []*Notification
	for _, n := range m.notifications {
		if n.AppointmentID != nil && *n.AppointmentID == appointmentID {
			result = append(result, n)
		}
	}
	return result, nil
}

func (m *mockRepo) List(_ context.Context, status Status, limit, offset int) ([]*Notification, int, error) {
	var result []*Notification
	for _, n := range m.notifications {
		if status != "" && n.Status != status {
			continue
		}
		result = append(result, n)
	}
	return result, len(result), nil
}

func (m *mockRepo) ExistsForAppointment(_ context.Context, appointmentID uuid.UUID, templateID string) (bool, error) {
	for _, n := range m.notifications {
		if n.AppointmentID != nil && *n.AppointmentID == appointmentID &&
			n.TemplateID == templateID && n.Status == StatusSent {
			return true, nil
		}
	}
	return false, nil
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
	doctors map[uuid.UUID]*practitioner.Doctor
}

func (m *mockDoctorSource) GetDoctor(_ context.Context, id uuid.UUID) (*practitioner.Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, practitioner.ErrDoctorNotFound
	}
	return d, nil
}

type sentMessage struct {
	recipient string
	subject   string
	body      string
}

// fakeStrategy records every send and fails while failing is set.
type fakeStrategy struct {
	channel notify.Channel
	sent    []sentMessage
	failing bool
}

func (f *fakeStrategy) Channel() notify.Channel { return f.channel }

func (f *fakeStrategy) Send(_ context.Context, recipient, subject, body string) error {
	if f.failing {
		return errors.New("provider unreachable")
	}
	f.sent = append(f.sent, sentMessage{recipient: recipient, subject: subject, body: body})
	return nil
}

// -- Fixture --

type fixture struct {
	svc   *Service
	repo  *mockRepo
	email *fakeStrategy
	sms   *fakeStrategy
	pat   *patient.Patient
	doc   *practitioner.Doctor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	pat := &patient.Patient{
		ID: uuid.New(), FirstName: "Ana", LastName: "Silva",
		Email: "ana@example.com", Phone: "+351911111111", Active: true,
	}
	doc := &practitioner.Doctor{
		ID: uuid.New(), FirstName: "Rui", LastName: "Costa", Active: true,
	}
	repo := newMockRepo()
	email := &fakeStrategy{channel: notify.ChannelEmail}
	sms := &fakeStrategy{channel: notify.ChannelSMS}
	svc := NewService(repo,
		&mockPatientSource{patients: map[uuid.UUID]*patient.Patient{pat.ID: pat}},
		&mockDoctorSource{doctors: map[uuid.UUID]*practitioner.Doctor{doc.ID: doc}},
		notify.NewRegistry(email, sms),
		notify.NewTemplateEngine(),
		zerolog.Nop(),
	)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return &fixture{svc: svc, repo: repo, email: email, sms: sms, pat: pat, doc: doc}
}

func (f *fixture) appointment() *appointment.Appointment {
	return &appointment.Appointment{
		ID:        uuid.New(),
		Code:      "T-20260302-0001",
		PatientID: f.pat.ID,
		DoctorID:  f.doc.ID,
		Date:      time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Start:     timeofday.TimeOfDay(8 * 60),
		Status:    appointment.StatusPending,
	}
}

func (f *fixture) only(t *testing.T) *Notification {
	t.Helper()
	if len(f.repo.notifications) != 1 {
		t.Fatalf("notifications recorded = %d, want 1", len(f.repo.notifications))
	}
	for _, n := range f.repo.notifications {
		return n
	}
	return nil
}

// -- Tests --

func TestCreatedEventPrefersEmail(t *testing.T) {
	f := newFixture(t)
	f.svc.AppointmentCreated(context.Background(), f.appointment())

	if len(f.email.sent) != 1 || len(f.sms.sent) != 0 {
		t.Fatalf("email sends = %d, sms sends = %d, want 1/0", len(f.email.sent), len(f.sms.sent))
	}
	msg := f.email.sent[0]
	if msg.recipient != "ana@example.com" {
		t.Errorf("recipient = %q, want the patient's email", msg.recipient)
	}
	if !strings.Contains(msg.subject, "T-20260302-0001") {
		t.Errorf("subject %q does not carry the appointment code", msg.subject)
	}
	if !strings.Contains(msg.body, "Silva, Ana") || !strings.Contains(msg.body, "Costa, Rui") {
		t.Errorf("body %q missing rendered names", msg.body)
	}
	if !strings.Contains(msg.body, "2026-03-02") || !strings.Contains(msg.body, "08:00") {
		t.Errorf("body %q missing date or time", msg.body)
	}

	n := f.only(t)
	if n.Status != StatusSent || n.SentAt == nil {
		t.Errorf("recorded status = %q sent_at = %v, want sent with timestamp", n.Status, n.SentAt)
	}
}

func TestFallsBackToSMSWithoutEmail(t *testing.T) {
	f := newFixture(t)
	f.pat.Email = ""

	f.svc.AppointmentConfirmed(context.Background(), f.appointment())

	if len(f.sms.sent) != 1 || len(f.email.sent) != 0 {
		t.Fatalf("sms sends = %d, email sends = %d, want 1/0", len(f.sms.sent), len(f.email.sent))
	}
	if f.sms.sent[0].recipient != "+351911111111" {
		t.Errorf("recipient = %q, want the patient's phone", f.sms.sent[0].recipient)
	}
	if f.only(t).Channel != notify.ChannelSMS {
		t.Error("recorded channel should be sms")
	}
}

func TestSkipsPatientWithoutContact(t *testing.T) {
	f := newFixture(t)
	f.pat.Email = ""
	f.pat.Phone = ""

	f.svc.AppointmentCancelled(context.Background(), f.appointment())

	if len(f.repo.notifications) != 0 {
		t.Error("no row should be recorded when the patient has no contact")
	}
}

func TestDeliveryFailureRecordedAndResendable(t *testing.T) {
	f := newFixture(t)
	f.email.failing = true

	f.svc.AppointmentCreated(context.Background(), f.appointment())

	n := f.only(t)
	if n.Status != StatusFailed || n.Error == "" {
		t.Fatalf("status = %q error = %q, want failed with reason", n.Status, n.Error)
	}

	f.email.failing = false
	resent, err := f.svc.Resend(context.Background(), n.ID)
	if err != nil {
		t.Fatalf("Resend: %v", err)
	}
	if resent.Status != StatusSent || resent.Error != "" {
		t.Errorf("after resend status = %q error = %q, want sent", resent.Status, resent.Error)
	}

	if _, err := f.svc.Resend(context.Background(), n.ID); !errors.Is(err, ErrNotRetryable) {
		t.Errorf("resend of sent = %v, want ErrNotRetryable", err)
	}
}

func TestSendManualDeliversComposedMessage(t *testing.T) {
	f := newFixture(t)

	n, err := f.svc.SendManual(context.Background(), notify.ChannelEmail,
		"ana@example.com", "Schedule change", "The clinic closes early on Friday.", nil)
	if err != nil {
		t.Fatalf("SendManual: %v", err)
	}
	if n.Status != StatusSent || n.TemplateID != notify.TemplateManual {
		t.Errorf("status = %q template = %q, want sent manual", n.Status, n.TemplateID)
	}
	if len(f.email.sent) != 1 || f.email.sent[0].body != "The clinic closes early on Friday." {
		t.Errorf("email sends = %+v, want the composed body", f.email.sent)
	}
}

func TestSendManualValidates(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.SendManual(context.Background(), notify.ChannelEmail, "", "s", "b", nil); err == nil {
		t.Error("empty recipient should be rejected")
	}
	if _, err := f.svc.SendManual(context.Background(), notify.ChannelEmail, "ana@example.com", "s", "", nil); err == nil {
		t.Error("empty body should be rejected")
	}
	if _, err := f.svc.SendManual(context.Background(), notify.Channel("fax"), "ana@example.com", "s", "b", nil); err == nil {
		t.Error("unknown channel should be rejected")
	}
	if len(f.repo.notifications) != 0 {
		t.Error("rejected sends must not be recorded")
	}
}

func TestSendManualRecordsDeliveryFailure(t *testing.T) {
	f := newFixture(t)
	f.email.failing = true

	n, err := f.svc.SendManual(context.Background(), notify.ChannelEmail,
		"ana@example.com", "s", "b", nil)
	if err != nil {
		t.Fatalf("SendManual: %v", err)
	}
	if n.Status != StatusFailed || n.Error == "" {
		t.Errorf("status = %q error = %q, want failed with reason", n.Status, n.Error)
	}
}

func TestDoctorInvitedEmailsToken(t *testing.T) {
	f := newFixture(t)
	expires := time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)

	f.svc.DoctorInvited(context.Background(), "new.doctor@example.com", "tok-123", expires)

	if len(f.email.sent) != 1 {
		t.Fatalf("email sends = %d, want 1", len(f.email.sent))
	}
	msg := f.email.sent[0]
	if msg.recipient != "new.doctor@example.com" {
		t.Errorf("recipient = %q, want the invited address", msg.recipient)
	}
	if !strings.Contains(msg.body, "tok-123") || !strings.Contains(msg.body, "2026-03-08") {
		t.Errorf("body %q missing token or expiry", msg.body)
	}
	if f.only(t).TemplateID != notify.TemplateDoctorInvitation {
		t.Error("recorded template should be the invitation")
	}
}

func TestReminderSentOnce(t *testing.T) {
	f := newFixture(t)
	appt := f.appointment()

	sent, err := f.svc.SendReminder(context.Background(), appt)
	if err != nil || !sent {
		t.Fatalf("first reminder = (%v, %v), want sent", sent, err)
	}
	sent, err = f.svc.SendReminder(context.Background(), appt)
	if err != nil {
		t.Fatalf("second reminder: %v", err)
	}
	if sent {
		t.Error("reminder must not be sent twice for the same appointment")
	}
	if len(f.email.sent) != 1 {
		t.Errorf("email sends = %d, want 1", len(f.email.sent))
	}
}
