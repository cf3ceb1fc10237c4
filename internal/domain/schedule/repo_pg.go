package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medsched/medsched/internal/platform/db"
	"github.com/medsched/medsched/pkg/timeofday"
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

const scheduleCols = `id, doctor_id, location_id, weekday, start_min, end_min, active, created_at, updated_at`

func (r *repoPG) scan(row pgx.Row) (*WeeklySchedule, error) {
	var w WeeklySchedule
	var weekday, startMin, endMin int
	err := row.Scan(&w.ID, &w.DoctorID, &w.LocationID, &weekday, &startMin, &endMin,
		&w.Active, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	w.Weekday = time.Weekday(weekday)
	w.Start = timeofday.TimeOfDay(startMin)
	w.End = timeofday.TimeOfDay(endMin)
	return &w, nil
}

func (r *repoPG) Create(ctx context.Context, w *WeeklySchedule) error {
	w.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO weekly_schedule (id, doctor_id, location_id, weekday, start_min, end_min, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		w.ID, w.DoctorID, w.LocationID, int(w.Weekday), int(w.Start), int(w.End), w.Active)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*WeeklySchedule, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+scheduleCols+` FROM weekly_schedule WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, w *WeeklySchedule) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE weekly_schedule SET location_id=$2, weekday=$3, start_min=$4, end_min=$5, updated_at=NOW()
		WHERE id = $1`,
		w.ID, w.LocationID, int(w.Weekday), int(w.Start), int(w.End))
	return err
}

func (r *repoPG) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE weekly_schedule SET active=$2, updated_at=NOW() WHERE id = $1`, id, active)
	return err
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, activeOnly bool) ([]*WeeklySchedule, error) {
	q := `SELECT ` + scheduleCols + ` FROM weekly_schedule WHERE doctor_id = $1`
	if activeOnly {
		q += ` AND active`
	}
	q += ` ORDER BY weekday, start_min`
	rows, err := r.conn(ctx).Query(ctx, q, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *repoPG) ListByDoctorWeekday(ctx context.Context, doctorID uuid.UUID, weekday time.Weekday) ([]*WeeklySchedule, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+scheduleCols+` FROM weekly_schedule
		 WHERE doctor_id = $1 AND weekday = $2 AND active
		 ORDER BY start_min`,
		doctorID, int(weekday))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *repoPG) ListByLocation(ctx context.Context, locationID uuid.UUID, limit, offset int) ([]*WeeklySchedule, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM weekly_schedule WHERE location_id = $1`, locationID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+scheduleCols+` FROM weekly_schedule WHERE location_id = $1
		 ORDER BY weekday, start_min LIMIT $2 OFFSET $3`,
		locationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := r.collect(rows)
	return items, total, err
}

func (r *repoPG) DeactivateByDoctor(ctx context.Context, doctorID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE weekly_schedule SET active=false, updated_at=NOW() WHERE doctor_id = $1 AND active`,
		doctorID)
	return err
}

func (r *repoPG) collect(rows pgx.Rows) ([]*WeeklySchedule, error) {
	var items []*WeeklySchedule
	for rows.Next() {
		w, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, w)
	}
	return items, rows.Err()
}
