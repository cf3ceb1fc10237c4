package notify

import (
	"fmt"
	"strings"
	"sync"
)

// Template defines a reusable notification template. SMS delivery uses the
// body only; the subject applies to email.
type Template struct {
	ID      string
	Subject string
	Body    string
}

// TemplateEngine manages notification templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// Template IDs for the appointment lifecycle.
const (
	TemplateAppointmentCreated   = "appointment-created"
	TemplateAppointmentConfirmed = "appointment-confirmed"
	TemplateAppointmentCancelled = "appointment-cancelled"
	TemplateAppointmentReminder  = "appointment-reminder"
)

// Template IDs outside the appointment lifecycle.
const (
	TemplateDoctorInvitation = "doctor-invitation"
	// TemplateManual marks staff-composed messages that carry their own
	// subject and body instead of a rendered template.
	TemplateManual = "manual"
)

// NewTemplateEngine creates a TemplateEngine with the built-in templates
// pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		templates: make(map[string]*Template),
	}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:      TemplateAppointmentCreated,
			Subject: "Appointment {{code}} scheduled",
			Body:    "Dear {{patient_name}}, your appointment {{code}} with Dr. {{doctor_name}} has been scheduled for {{date}} at {{time}}.",
		},
		{
			ID:      TemplateAppointmentConfirmed,
			Subject: "Appointment {{code}} confirmed",
			Body:    "Dear {{patient_name}}, your appointment {{code}} on {{date}} at {{time}} with Dr. {{doctor_name}} is confirmed.",
		},
		{
			ID:      TemplateAppointmentCancelled,
			Subject: "Appointment {{code}} cancelled",
			Body:    "Dear {{patient_name}}, your appointment {{code}} on {{date}} at {{time}} has been cancelled. Contact us to reschedule.",
		},
		{
			ID:      TemplateAppointmentReminder,
			Subject: "Reminder: appointment {{code}} tomorrow",
			Body:    "Dear {{patient_name}}, this is a reminder of your appointment {{code}} on {{date}} at {{time}} with Dr. {{doctor_name}}.",
		},
		{
			ID:      TemplateDoctorInvitation,
			Subject: "Invitation to register as a doctor",
			Body:    "You have been invited to join the clinic as a doctor. Complete your registration with token {{token}} before {{expires}}.",
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render looks up a template by ID and performs {{key}} replacement using the
// supplied data map. Keys present in the template but absent from data are
// left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject = t.Subject
	body = t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}
