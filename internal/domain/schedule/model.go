package schedule

import (
	"time"

	"github.com/google/uuid"

	"github.com/medsched/medsched/pkg/timeofday"
)

// WeeklySchedule is a recurring working-hours block: a doctor attends at a
// location every given weekday between Start and End. Times are stored as
// minutes since midnight.
type WeeklySchedule struct {
	ID        uuid.UUID           `json:"id"`
	DoctorID  uuid.UUID           `json:"doctor_id"`
	LocationID uuid.UUID          `json:"location_id"`
	Weekday   time.Weekday        `json:"weekday"`
	Start     timeofday.TimeOfDay `json:"start"`
	End       timeofday.TimeOfDay `json:"end"`
	Active    bool                `json:"active"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// OverlapsWith reports whether two blocks intersect. Abutting blocks
// (one ends where the other starts) do not overlap.
func (w *WeeklySchedule) OverlapsWith(other *WeeklySchedule) bool {
	return w.Start < other.End && other.Start < w.End
}
