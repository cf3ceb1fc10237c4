// Package reminder runs the day-before appointment reminder sweep, either
// once (CLI) or on a ticker inside the server process.
package reminder

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/medsched/medsched/internal/domain/appointment"
)

// AppointmentSource lists the appointments still awaiting confirmation on a
// given day.
type AppointmentSource interface {
	ListPendingByDate(ctx context.Context, date time.Time) ([]*appointment.Appointment, error)
}

// ReminderSender dispatches one reminder, reporting whether it actually went
// out (false means one was already delivered).
type ReminderSender interface {
	SendReminder(ctx context.Context, a *appointment.Appointment) (bool, error)
}

type Job struct {
	appointments AppointmentSource
	sender       ReminderSender
	log          zerolog.Logger
	now          func() time.Time
}

func NewJob(appointments AppointmentSource, sender ReminderSender, log zerolog.Logger) *Job {
	return &Job{appointments: appointments, sender: sender, log: log, now: time.Now}
}

// RunOnce sweeps tomorrow's pending appointments and dispatches reminders
// for those that have not received one yet. It returns the number sent.
func (j *Job) RunOnce(ctx context.Context) (int, error) {
	tomorrow := j.now().AddDate(0, 0, 1)
	pending, err := j.appointments.ListPendingByDate(ctx, tomorrow)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, a := range pending {
		ok, err := j.sender.SendReminder(ctx, a)
		if err != nil {
			j.log.Error().Err(err).Str("appointment", a.Code).Msg("reminder dispatch failed")
			continue
		}
		if ok {
			sent++
		}
	}
	j.log.Info().
		Int("pending", len(pending)).
		Int("sent", sent).
		Time("for", tomorrow).
		Msg("reminder sweep finished")
	return sent, nil
}

// Run repeats the sweep at the given interval until the context is done. An
// immediate sweep runs before the first tick.
func (j *Job) Run(ctx context.Context, interval time.Duration) {
	if _, err := j.RunOnce(ctx); err != nil {
		j.log.Error().Err(err).Msg("reminder sweep failed")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := j.RunOnce(ctx); err != nil {
				j.log.Error().Err(err).Msg("reminder sweep failed")
			}
		}
	}
}
