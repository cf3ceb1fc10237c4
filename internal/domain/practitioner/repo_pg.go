package practitioner

import (
	"context"

	"github.com/google/uuid"
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

// =========== Doctor Repository ===========

type doctorRepoPG struct{ pool *pgxpool.Pool }

func NewDoctorRepoPG(pool *pgxpool.Pool) DoctorRepository { return &doctorRepoPG{pool: pool} }

func (r *doctorRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const doctorCols = `id, first_name, last_name, license_number, primary_specialty_id,
	phone, email, user_id, active, created_at, updated_at`

func (r *doctorRepoPG) scan(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.FirstName, &d.LastName, &d.LicenseNumber, &d.PrimarySpecialtyID,
		&d.Phone, &d.Email, &d.UserID, &d.Active, &d.CreatedAt, &d.UpdatedAt)
	return &d, err
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	d.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctor (id, first_name, last_name, license_number, primary_specialty_id,
			phone, email, user_id, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		d.ID, d.FirstName, d.LastName, d.LicenseNumber, d.PrimarySpecialtyID,
		d.Phone, d.Email, d.UserID, d.Active)
	return err
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctor WHERE id = $1`, id))
}

func (r *doctorRepoPG) GetByLicense(ctx context.Context, licenseNumber string) (*Doctor, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctor WHERE license_number = $1`, licenseNumber))
}

func (r *doctorRepoPG) Update(ctx context.Context, d *Doctor) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctor SET first_name=$2, last_name=$3, license_number=$4, primary_specialty_id=$5,
			phone=$6, email=$7, user_id=$8, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.FirstName, d.LastName, d.LicenseNumber, d.PrimarySpecialtyID,
		d.Phone, d.Email, d.UserID)
	return err
}

func (r *doctorRepoPG) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE doctor SET active=$2, updated_at=NOW() WHERE id = $1`, id, active)
	return err
}

func (r *doctorRepoPG) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Doctor, int, error) {
	where := ``
	if activeOnly {
		where = ` WHERE active`
	}
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctor`+where).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+doctorCols+` FROM doctor`+where+` ORDER BY last_name, first_name LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Doctor
	for rows.Next() {
		d, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

func (r *doctorRepoPG) ListBySpecialty(ctx context.Context, specialtyID uuid.UUID, limit, offset int) ([]*Doctor, int, error) {
	const where = ` FROM doctor d
		JOIN doctor_specialty ds ON ds.doctor_id = d.id
		WHERE ds.specialty_id = $1 AND d.active`
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*)`+where, specialtyID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT d.id, d.first_name, d.last_name, d.license_number,
		d.primary_specialty_id, d.phone, d.email, d.user_id, d.active, d.created_at, d.updated_at`+
		where+` ORDER BY d.last_name, d.first_name LIMIT $2 OFFSET $3`,
		specialtyID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Doctor
	for rows.Next() {
		d, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

func (r *doctorRepoPG) AddSpecialty(ctx context.Context, link *DoctorSpecialty) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctor_specialty (doctor_id, specialty_id, is_primary)
		VALUES ($1,$2,$3)
		ON CONFLICT (doctor_id, specialty_id) DO UPDATE SET is_primary = EXCLUDED.is_primary`,
		link.DoctorID, link.SpecialtyID, link.IsPrimary)
	return err
}

func (r *doctorRepoPG) RemoveSpecialty(ctx context.Context, doctorID, specialtyID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM doctor_specialty WHERE doctor_id = $1 AND specialty_id = $2`,
		doctorID, specialtyID)
	return err
}

func (r *doctorRepoPG) Specialties(ctx context.Context, doctorID uuid.UUID) ([]*Specialty, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT s.id, s.name, s.description, s.default_duration_min, s.active, s.created_at, s.updated_at
		FROM specialty s
		JOIN doctor_specialty ds ON ds.specialty_id = s.id
		WHERE ds.doctor_id = $1
		ORDER BY ds.is_primary DESC, s.name`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Specialty
	for rows.Next() {
		var s Specialty
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.DefaultDurationMin,
			&s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &s)
	}
	return items, rows.Err()
}

// =========== Specialty Repository ===========

type specialtyRepoPG struct{ pool *pgxpool.Pool }

func NewSpecialtyRepoPG(pool *pgxpool.Pool) SpecialtyRepository { return &specialtyRepoPG{pool: pool} }

func (r *specialtyRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const specialtyCols = `id, name, description, default_duration_min, active, created_at, updated_at`

func (r *specialtyRepoPG) scan(row pgx.Row) (*Specialty, error) {
	var s Specialty
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.DefaultDurationMin,
		&s.Active, &s.CreatedAt, &s.UpdatedAt)
	return &s, err
}

func (r *specialtyRepoPG) Create(ctx context.Context, s *Specialty) error {
	s.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO specialty (id, name, description, default_duration_min, active)
		VALUES ($1,$2,$3,$4,$5)`,
		s.ID, s.Name, s.Description, s.DefaultDurationMin, s.Active)
	return err
}

func (r *specialtyRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Specialty, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+specialtyCols+` FROM specialty WHERE id = $1`, id))
}

func (r *specialtyRepoPG) GetByName(ctx context.Context, name string) (*Specialty, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+specialtyCols+` FROM specialty WHERE LOWER(name) = LOWER($1)`, name))
}

func (r *specialtyRepoPG) Update(ctx context.Context, s *Specialty) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE specialty SET name=$2, description=$3, default_duration_min=$4, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.Name, s.Description, s.DefaultDurationMin)
	return err
}

func (r *specialtyRepoPG) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE specialty SET active=$2, updated_at=NOW() WHERE id = $1`, id, active)
	return err
}

func (r *specialtyRepoPG) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Specialty, int, error) {
	where := ``
	if activeOnly {
		where = ` WHERE active`
	}
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM specialty`+where).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+specialtyCols+` FROM specialty`+where+` ORDER BY name LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Specialty
	for rows.Next() {
		s, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}
