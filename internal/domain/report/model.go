package report

import (
	"time"

	"github.com/google/uuid"
)

// DateRange bounds a report query, inclusive on both ends.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// DoctorActivity is the appointment volume of one doctor broken down by
// status over a range.
type DoctorActivity struct {
	DoctorID   uuid.UUID `json:"doctor_id"`
	DoctorName string    `json:"doctor_name"`
	Total      int       `json:"total"`
	Pending    int       `json:"pending"`
	Confirmed  int       `json:"confirmed"`
	Completed  int       `json:"completed"`
	NoShow     int       `json:"no_show"`
	Cancelled  int       `json:"cancelled"`
}

// SpecialtyActivity is the appointment volume per specialty.
type SpecialtyActivity struct {
	SpecialtyID   uuid.UUID `json:"specialty_id"`
	SpecialtyName string    `json:"specialty_name"`
	Total         int       `json:"total"`
	Completed     int       `json:"completed"`
}

// DailyVolume counts distinct patients seen per day.
type DailyVolume struct {
	Day      time.Time `json:"day"`
	Patients int       `json:"patients"`
	Total    int       `json:"total"`
}

// AttendanceStats summarizes show-up behavior over a range. NoShowRate is a
// percentage over decided visits (completed plus no-show).
type AttendanceStats struct {
	Range      DateRange `json:"range"`
	Total      int       `json:"total"`
	Completed  int       `json:"completed"`
	NoShow     int       `json:"no_show"`
	Cancelled  int       `json:"cancelled"`
	NoShowRate float64   `json:"no_show_rate"`
}
