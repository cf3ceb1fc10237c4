package prescription

import (
	"time"

	"github.com/google/uuid"
)

// Medication is a catalog entry prescriptions refer to.
type Medication struct {
	ID                   uuid.UUID `json:"id"`
	Name                 string    `json:"name"`
	ActiveIngredient     string    `json:"active_ingredient,omitempty"`
	Description          string    `json:"description,omitempty"`
	RequiresPrescription bool      `json:"requires_prescription"`
	Active               bool      `json:"active"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// PrescriptionStatus is the lifecycle state of a prescription.
type PrescriptionStatus string

const (
	StatusActive    PrescriptionStatus = "active"
	StatusCancelled PrescriptionStatus = "cancelled"
	StatusExpired   PrescriptionStatus = "expired"
)

// Prescription is an issued set of medication orders. Code is the
// human-facing identifier ("R-20260825-0001"), sequential per day.
type Prescription struct {
	ID               uuid.UUID          `json:"id"`
	Code             string             `json:"code"`
	ClinicalRecordID *uuid.UUID         `json:"clinical_record_id,omitempty"`
	PatientID        uuid.UUID          `json:"patient_id"`
	DoctorID         uuid.UUID          `json:"doctor_id"`
	IssueDate        time.Time          `json:"issue_date"`
	Status           PrescriptionStatus `json:"status"`
	ValidUntil       time.Time          `json:"valid_until"`
	Items            []*Item            `json:"items"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// Item is one medication order inside a prescription. MedicationName is
// denormalized so the prescription stays readable if the catalog changes.
type Item struct {
	ID             uuid.UUID  `json:"id"`
	PrescriptionID uuid.UUID  `json:"prescription_id"`
	MedicationID   *uuid.UUID `json:"medication_id,omitempty"`
	MedicationName string     `json:"medication_name"`
	Dose           string     `json:"dose,omitempty"`
	Frequency      string     `json:"frequency,omitempty"`
	Quantity       int        `json:"quantity,omitempty"`
	DurationDays   int        `json:"duration_days,omitempty"`
	Instructions   string     `json:"instructions,omitempty"`
}

// Expired reports whether the prescription is past its validity at the given
// instant.
func (p *Prescription) Expired(at time.Time) bool {
	return at.After(p.ValidUntil)
}
