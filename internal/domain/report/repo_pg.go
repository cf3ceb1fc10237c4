package report

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medsched/medsched/internal/platform/db"
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

func (r *repoPG) DoctorActivity(ctx context.Context, dr DateRange) ([]*DoctorActivity, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT d.id,
			d.last_name || ', ' || d.first_name,
			COUNT(a.id),
			COUNT(a.id) FILTER (WHERE a.status = 'pending'),
			COUNT(a.id) FILTER (WHERE a.status = 'confirmed'),
			COUNT(a.id) FILTER (WHERE a.status = 'completed'),
			COUNT(a.id) FILTER (WHERE a.status = 'no_show'),
			COUNT(a.id) FILTER (WHERE a.status = 'cancelled')
		FROM doctor d
		JOIN appointment a ON a.doctor_id = d.id
		WHERE a.appointment_date BETWEEN $1 AND $2
		GROUP BY d.id, d.last_name, d.first_name
		ORDER BY COUNT(a.id) DESC`,
		dr.From, dr.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*DoctorActivity
	for rows.Next() {
		var da DoctorActivity
		if err := rows.Scan(&da.DoctorID, &da.DoctorName, &da.Total,
			&da.Pending, &da.Confirmed, &da.Completed, &da.NoShow, &da.Cancelled); err != nil {
			return nil, err
		}
		items = append(items, &da)
	}
	return items, rows.Err()
}

func (r *repoPG) SpecialtyActivity(ctx context.Context, dr DateRange) ([]*SpecialtyActivity, error) {
	// Appointments attribute to the doctor's primary specialty.
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT s.id, s.name,
			COUNT(a.id),
			COUNT(a.id) FILTER (WHERE a.status = 'completed')
		FROM specialty s
		JOIN doctor d ON d.primary_specialty_id = s.id
		JOIN appointment a ON a.doctor_id = d.id
		WHERE a.appointment_date BETWEEN $1 AND $2
		GROUP BY s.id, s.name
		ORDER BY COUNT(a.id) DESC`,
		dr.From, dr.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*SpecialtyActivity
	for rows.Next() {
		var sa SpecialtyActivity
		if err := rows.Scan(&sa.SpecialtyID, &sa.SpecialtyName, &sa.Total, &sa.Completed); err != nil {
			return nil, err
		}
		items = append(items, &sa)
	}
	return items, rows.Err()
}

func (r *repoPG) DailyVolume(ctx context.Context, dr DateRange) ([]*DailyVolume, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT appointment_date,
			COUNT(DISTINCT patient_id),
			COUNT(id)
		FROM appointment
		WHERE appointment_date BETWEEN $1 AND $2
		GROUP BY appointment_date
		ORDER BY appointment_date`,
		dr.From, dr.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*DailyVolume
	for rows.Next() {
		var dv DailyVolume
		if err := rows.Scan(&dv.Day, &dv.Patients, &dv.Total); err != nil {
			return nil, err
		}
		items = append(items, &dv)
	}
	return items, rows.Err()
}

func (r *repoPG) StatusCounts(ctx context.Context, dr DateRange) (Counts, error) {
	var c Counts
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(id),
			COUNT(id) FILTER (WHERE status = 'completed'),
			COUNT(id) FILTER (WHERE status = 'no_show'),
			COUNT(id) FILTER (WHERE status = 'cancelled')
		FROM appointment
		WHERE appointment_date BETWEEN $1 AND $2`,
		dr.From, dr.To).Scan(&c.Total, &c.Completed, &c.NoShow, &c.Cancelled)
	return c, err
}
