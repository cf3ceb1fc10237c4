package prescription

import (
	"context"
	"time"

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

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const rxCols = `id, code, clinical_record_id, patient_id, doctor_id, issue_date,
	status, valid_until, created_at, updated_at`

func (r *repoPG) scan(row pgx.Row) (*Prescription, error) {
	var p Prescription
	var status string
	err := row.Scan(&p.ID, &p.Code, &p.ClinicalRecordID, &p.PatientID, &p.DoctorID,
		&p.IssueDate, &status, &p.ValidUntil, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = PrescriptionStatus(status)
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Prescription) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO prescription (id, code, clinical_record_id, patient_id, doctor_id,
			issue_date, status, valid_until)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.Code, p.ClinicalRecordID, p.PatientID, p.DoctorID,
		p.IssueDate, string(p.Status), p.ValidUntil)
	if err != nil {
		return err
	}
	for _, item := range p.Items {
		item.ID = uuid.New()
		item.PrescriptionID = p.ID
		_, err = r.conn(ctx).Exec(ctx, `
			INSERT INTO prescription_item (id, prescription_id, medication_id,
				medication_name, dose, frequency, quantity, duration_days, instructions)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			item.ID, item.PrescriptionID, item.MedicationID,
			item.MedicationName, item.Dose, item.Frequency, item.Quantity,
			item.DurationDays, item.Instructions)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	p, err := r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+rxCols+` FROM prescription WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	p.Items, err = r.items(ctx, p.ID)
	return p, err
}

func (r *repoPG) GetByCode(ctx context.Context, code string) (*Prescription, error) {
	p, err := r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+rxCols+` FROM prescription WHERE code = $1`, code))
	if err != nil {
		return nil, err
	}
	p.Items, err = r.items(ctx, p.ID)
	return p, err
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status PrescriptionStatus) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE prescription SET status=$2, updated_at=NOW() WHERE id = $1`, id, string(status))
	return err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, activeOnly bool, limit, offset int) ([]*Prescription, int, error) {
	where := ` WHERE patient_id = $1`
	args := []interface{}{patientID}
	if activeOnly {
		where += ` AND status = 'active' AND valid_until >= NOW()`
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM prescription`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+rxCols+` FROM prescription`+where+` ORDER BY issue_date DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := r.collect(ctx, rows)
	return items, total, err
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM prescription WHERE doctor_id = $1`, doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+rxCols+` FROM prescription WHERE doctor_id = $1
		 ORDER BY issue_date DESC LIMIT $2 OFFSET $3`,
		doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := r.collect(ctx, rows)
	return items, total, err
}

func (r *repoPG) NextCodeSeq(ctx context.Context, date time.Time) (int, error) {
	var seq int
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO prescription_code_seq (day, last_seq) VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET last_seq = prescription_code_seq.last_seq + 1
		RETURNING last_seq`, date).Scan(&seq)
	return seq, err
}

func (r *repoPG) items(ctx context.Context, prescriptionID uuid.UUID) ([]*Item, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, prescription_id, medication_id, medication_name, dose,
			frequency, quantity, duration_days, instructions
		FROM prescription_item WHERE prescription_id = $1 ORDER BY created_at`,
		prescriptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.PrescriptionID, &it.MedicationID, &it.MedicationName,
			&it.Dose, &it.Frequency, &it.Quantity, &it.DurationDays, &it.Instructions); err != nil {
			return nil, err
		}
		items = append(items, &it)
	}
	return items, rows.Err()
}

type medicationRepoPG struct{ pool *pgxpool.Pool }

func NewMedicationRepoPG(pool *pgxpool.Pool) MedicationRepository { return &medicationRepoPG{pool: pool} }

func (r *medicationRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const medCols = `id, name, active_ingredient, description, requires_prescription,
	active, created_at, updated_at`

func (r *medicationRepoPG) scan(row pgx.Row) (*Medication, error) {
	var m Medication
	err := row.Scan(&m.ID, &m.Name, &m.ActiveIngredient, &m.Description,
		&m.RequiresPrescription, &m.Active, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *medicationRepoPG) Create(ctx context.Context, m *Medication) error {
	m.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medication (id, name, active_ingredient, description, requires_prescription, active)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		m.ID, m.Name, m.ActiveIngredient, m.Description, m.RequiresPrescription, m.Active)
	return err
}

func (r *medicationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Medication, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+medCols+` FROM medication WHERE id = $1`, id))
}

func (r *medicationRepoPG) GetByName(ctx context.Context, name string) (*Medication, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+medCols+` FROM medication WHERE LOWER(name) = LOWER($1)`, name))
}

func (r *medicationRepoPG) Update(ctx context.Context, m *Medication) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE medication SET name=$2, active_ingredient=$3, description=$4,
			requires_prescription=$5, updated_at=NOW()
		WHERE id = $1`,
		m.ID, m.Name, m.ActiveIngredient, m.Description, m.RequiresPrescription)
	return err
}

func (r *medicationRepoPG) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE medication SET active=$2, updated_at=NOW() WHERE id = $1`, id, active)
	return err
}

func (r *medicationRepoPG) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Medication, int, error) {
	where := ``
	if activeOnly {
		where = ` WHERE active`
	}
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM medication`+where).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+medCols+` FROM medication`+where+` ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := r.collect(rows)
	return items, total, err
}

func (r *medicationRepoPG) Search(ctx context.Context, query string, limit, offset int) ([]*Medication, int, error) {
	pattern := "%" + query + "%"
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM medication
		WHERE name ILIKE $1 OR active_ingredient ILIKE $1`, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+medCols+` FROM medication
		WHERE name ILIKE $1 OR active_ingredient ILIKE $1
		ORDER BY name LIMIT $2 OFFSET $3`, pattern, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := r.collect(rows)
	return items, total, err
}

func (r *medicationRepoPG) collect(rows pgx.Rows) ([]*Medication, error) {
	var items []*Medication
	for rows.Next() {
		m, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *repoPG) collect(ctx context.Context, rows pgx.Rows) ([]*Prescription, error) {
	var items []*Prescription
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	// Release the row set before issuing the item queries so this also
	// works on a single tx connection.
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, p := range items {
		var err error
		if p.Items, err = r.items(ctx, p.ID); err != nil {
			return nil, err
		}
	}
	return items, nil
}
