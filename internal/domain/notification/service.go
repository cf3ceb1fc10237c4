package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/medsched/medsched/internal/domain/appointment"
	"github.com/medsched/medsched/internal/domain/patient"
	"github.com/medsched/medsched/internal/domain/practitioner"
	"github.com/medsched/medsched/internal/platform/notify"
)

var (
	ErrNotFound     = errors.New("notification not found")
	ErrNotRetryable = errors.New("only failed notifications can be resent")
)

// PatientSource resolves the recipient of a patient-facing message.
type PatientSource interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

// DoctorSource resolves doctor display data for message rendering.
type DoctorSource interface {
	GetDoctor(ctx context.Context, id uuid.UUID) (*practitioner.Doctor, error)
}

// Service renders and delivers appointment notifications and keeps a record
// of every attempt. It implements the appointment service's Notifier.
type Service struct {
	notifications Repository
	patients      PatientSource
	doctors       DoctorSource
	strategies    *notify.Registry
	templates     *notify.TemplateEngine
	log           zerolog.Logger
	now           func() time.Time
}

func NewService(notifications Repository, patients PatientSource, doctors DoctorSource,
	strategies *notify.Registry, templates *notify.TemplateEngine, log zerolog.Logger) *Service {
	return &Service{
		notifications: notifications,
		patients:      patients,
		doctors:       doctors,
		strategies:    strategies,
		templates:     templates,
		log:           log,
		now:           time.Now,
	}
}

// Lifecycle hooks. Delivery problems are recorded and logged, never
// propagated: a booking must not fail because the mail server is down.

func (s *Service) AppointmentCreated(ctx context.Context, a *appointment.Appointment) {
	s.dispatch(ctx, notify.TemplateAppointmentCreated, a)
}

func (s *Service) AppointmentConfirmed(ctx context.Context, a *appointment.Appointment) {
	s.dispatch(ctx, notify.TemplateAppointmentConfirmed, a)
}

func (s *Service) AppointmentCancelled(ctx context.Context, a *appointment.Appointment) {
	s.dispatch(ctx, notify.TemplateAppointmentCancelled, a)
}

// SendReminder dispatches the day-before reminder for an appointment, unless
// one was already delivered. It reports whether a reminder went out.
func (s *Service) SendReminder(ctx context.Context, a *appointment.Appointment) (bool, error) {
	sent, err := s.notifications.ExistsForAppointment(ctx, a.ID, notify.TemplateAppointmentReminder)
	if err != nil {
		return false, err
	}
	if sent {
		return false, nil
	}
	s.dispatch(ctx, notify.TemplateAppointmentReminder, a)
	return true, nil
}

func (s *Service) dispatch(ctx context.Context, templateID string, a *appointment.Appointment) {
	pat, err := s.patients.Get(ctx, a.PatientID)
	if err != nil {
		s.log.Error().Err(err).Str("appointment", a.Code).Msg("notification: patient lookup failed")
		return
	}
	doc, err := s.doctors.GetDoctor(ctx, a.DoctorID)
	if err != nil {
		s.log.Error().Err(err).Str("appointment", a.Code).Msg("notification: doctor lookup failed")
		return
	}

	channel, recipient := pickChannel(pat)
	if recipient == "" {
		s.log.Warn().Str("appointment", a.Code).Msg("notification: patient has no email or phone, skipping")
		return
	}

	subject, body, err := s.templates.Render(templateID, map[string]string{
		"code":         a.Code,
		"patient_name": pat.FullName(),
		"doctor_name":  doc.FullName(),
		"date":         a.Date.Format("2006-01-02"),
		"time":         a.Start.String(),
	})
	if err != nil {
		s.log.Error().Err(err).Str("template", templateID).Msg("notification: render failed")
		return
	}

	n := &Notification{
		AppointmentID: &a.ID,
		TemplateID:    templateID,
		Channel:       channel,
		Recipient:     recipient,
		Subject:       subject,
		Body:          body,
		Status:        StatusPending,
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		s.log.Error().Err(err).Str("appointment", a.Code).Msg("notification: persist failed")
		return
	}
	s.deliver(ctx, n)
}

// deliver attempts the send and records the outcome on the row.
func (s *Service) deliver(ctx context.Context, n *Notification) {
	strategy, err := s.strategies.For(n.Channel)
	if err == nil {
		err = strategy.Send(ctx, n.Recipient, n.Subject, n.Body)
	}
	if err != nil {
		n.Status = StatusFailed
		n.Error = err.Error()
		s.log.Error().Err(err).
			Str("channel", string(n.Channel)).
			Str("template", n.TemplateID).
			Msg("notification: delivery failed")
	} else {
		now := s.now()
		n.Status = StatusSent
		n.Error = ""
		n.SentAt = &now
	}
	if err := s.notifications.MarkOutcome(ctx, n); err != nil {
		s.log.Error().Err(err).Msg("notification: outcome update failed")
	}
}

// SendManual persists and delivers a staff-composed message outside the
// appointment templates. Unlike the lifecycle hooks it reports validation
// errors to the caller; the delivery outcome is on the returned record.
func (s *Service) SendManual(ctx context.Context, channel notify.Channel, recipient, subject, body string, appointmentID *uuid.UUID) (*Notification, error) {
	if recipient == "" {
		return nil, fmt.Errorf("recipient is required")
	}
	if body == "" {
		return nil, fmt.Errorf("body is required")
	}
	if _, err := s.strategies.For(channel); err != nil {
		return nil, err
	}

	n := &Notification{
		AppointmentID: appointmentID,
		TemplateID:    notify.TemplateManual,
		Channel:       channel,
		Recipient:     recipient,
		Subject:       subject,
		Body:          body,
		Status:        StatusPending,
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return nil, err
	}
	s.deliver(ctx, n)
	return n, nil
}

// DoctorInvited emails a registration invitation token. It implements the
// user service's InvitationMailer; like the appointment hooks, problems are
// recorded and logged rather than propagated.
func (s *Service) DoctorInvited(ctx context.Context, email, token string, expiresAt time.Time) {
	subject, body, err := s.templates.Render(notify.TemplateDoctorInvitation, map[string]string{
		"token":   token,
		"expires": expiresAt.Format("2006-01-02"),
	})
	if err != nil {
		s.log.Error().Err(err).Msg("notification: render failed")
		return
	}

	n := &Notification{
		TemplateID: notify.TemplateDoctorInvitation,
		Channel:    notify.ChannelEmail,
		Recipient:  email,
		Subject:    subject,
		Body:       body,
		Status:     StatusPending,
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		s.log.Error().Err(err).Str("recipient", email).Msg("notification: persist failed")
		return
	}
	s.deliver(ctx, n)
}

// Resend retries a failed notification with the already-rendered content.
func (s *Service) Resend(ctx context.Context, id uuid.UUID) (*Notification, error) {
	n, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.Status != StatusFailed {
		return nil, ErrNotRetryable
	}
	n.Status = StatusPending
	s.deliver(ctx, n)
	return n, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Notification, error) {
	n, err := s.notifications.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return n, err
}

func (s *Service) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*Notification, error) {
	return s.notifications.ListByAppointment(ctx, appointmentID)
}

func (s *Service) List(ctx context.Context, status Status, limit, offset int) ([]*Notification, int, error) {
	return s.notifications.List(ctx, status, limit, offset)
}

// pickChannel prefers email and falls back to SMS when the patient has only
// a phone number.
func pickChannel(p *patient.Patient) (notify.Channel, string) {
	if p.Email != "" {
		return notify.ChannelEmail, p.Email
	}
	if p.Phone != "" {
		return notify.ChannelSMS, p.Phone
	}
	return notify.ChannelEmail, ""
}
