package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient is a person receiving care. RecordNumber is the human-facing
// clinical record identifier ("HC-000123"), assigned on creation.
type Patient struct {
	ID             uuid.UUID  `json:"id"`
	RecordNumber   string     `json:"record_number"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	DocumentType   string     `json:"document_type"`
	DocumentNumber string     `json:"document_number"`
	BirthDate      *time.Time `json:"birth_date,omitempty"`
	Gender         string     `json:"gender,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	Email          string     `json:"email,omitempty"`
	UserID         *uuid.UUID `json:"user_id,omitempty"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// FullName returns "Last, First" for display and notifications.
func (p *Patient) FullName() string {
	return p.LastName + ", " + p.FirstName
}
