package notification

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medsched/medsched/internal/platform/db"
	"github.com/medsched/medsched/internal/platform/notify"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const notifCols = `id, appointment_id, template_id, channel, recipient, subject,
	body, status, error, sent_at, created_at`

func (r *repoPG) scan(row pgx.Row) (*Notification, error) {
	var n Notification
	var channel, status string
	err := row.Scan(&n.ID, &n.AppointmentID, &n.TemplateID, &channel, &n.Recipient,
		&n.Subject, &n.Body, &status, &n.Error, &n.SentAt, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	n.Channel = notify.Channel(channel)
	n.Status = Status(status)
	return &n, nil
}

func (r *repoPG) Create(ctx context.Context, n *Notification) error {
	n.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO notification (id, appointment_id, template_id, channel,
			recipient, subject, body, status, error)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		n.ID, n.AppointmentID, n.TemplateID, string(n.Channel),
		n.Recipient, n.Subject, n.Body, string(n.Status), n.Error)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+notifCols+` FROM notification WHERE id = $1`, id))
}

func (r *repoPG) MarkOutcome(ctx context.Context, n *Notification) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE notification SET status=$2, error=$3, sent_at=$4 WHERE id = $1`,
		n.ID, string(n.Status), n.Error, n.SentAt)
	return err
}

func (r *repoPG) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*Notification, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+notifCols+` FROM notification WHERE appointment_id = $1 ORDER BY created_at`,
		appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *repoPG) List(ctx context.Context, status Status, limit, offset int) ([]*Notification, int, error) {
	where := ``
	args := []interface{}{}
	if status != "" {
		where = ` WHERE status = $1`
		args = append(args, string(status))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM notification`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	var rows pgx.Rows
	var err error
	if status != "" {
		rows, err = r.conn(ctx).Query(ctx,
			`SELECT `+notifCols+` FROM notification`+where+` ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
			string(status), limit, offset)
	} else {
		rows, err = r.conn(ctx).Query(ctx,
			`SELECT `+notifCols+` FROM notification ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
			limit, offset)
	}
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := r.collect(rows)
	return items, total, err
}

func (r *repoPG) ExistsForAppointment(ctx context.Context, appointmentID uuid.UUID, templateID string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM notification
			WHERE appointment_id = $1 AND template_id = $2 AND status = 'sent'
		)`, appointmentID, templateID).Scan(&exists)
	return exists, err
}

func (r *repoPG) collect(rows pgx.Rows) ([]*Notification, error) {
	var items []*Notification
	for rows.Next() {
		n, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}
