package practitioner

import (
	"time"

	"github.com/google/uuid"
)

// Doctor is a practicing physician. LicenseNumber (matrícula) is unique.
type Doctor struct {
	ID                 uuid.UUID  `json:"id"`
	FirstName          string     `json:"first_name"`
	LastName           string     `json:"last_name"`
	LicenseNumber      string     `json:"license_number"`
	PrimarySpecialtyID *uuid.UUID `json:"primary_specialty_id,omitempty"`
	Phone              string     `json:"phone,omitempty"`
	Email              string     `json:"email,omitempty"`
	UserID             *uuid.UUID `json:"user_id,omitempty"`
	Active             bool       `json:"active"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (d *Doctor) FullName() string {
	return d.LastName + ", " + d.FirstName
}

// Specialty is a medical specialty. DefaultDurationMin is the appointment
// length used when the caller does not ask for a specific duration.
type Specialty struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	Description        string    `json:"description,omitempty"`
	DefaultDurationMin int       `json:"default_duration_min"`
	Active             bool      `json:"active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// DoctorSpecialty links a doctor to a specialty they practice.
type DoctorSpecialty struct {
	DoctorID    uuid.UUID `json:"doctor_id"`
	SpecialtyID uuid.UUID `json:"specialty_id"`
	IsPrimary   bool      `json:"is_primary"`
}
