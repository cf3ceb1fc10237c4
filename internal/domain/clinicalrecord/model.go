package clinicalrecord

import (
	"time"

	"github.com/google/uuid"
)

// ClinicalRecord documents a consultation. At most one record exists per
// appointment; records can also be created standalone (walk-ins, imports).
type ClinicalRecord struct {
	ID               uuid.UUID  `json:"id"`
	AppointmentID    *uuid.UUID `json:"appointment_id,omitempty"`
	PatientID        uuid.UUID  `json:"patient_id"`
	DoctorID         uuid.UUID  `json:"doctor_id"`
	ConsultationDate time.Time  `json:"consultation_date"`
	Reason           string     `json:"reason,omitempty"`
	Diagnosis        string     `json:"diagnosis,omitempty"`
	Treatment        string     `json:"treatment,omitempty"`
	Notes            string     `json:"notes,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
