package report

import "context"

// Counts are raw status totals the service turns into derived figures.
type Counts struct {
	Total     int
	Completed int
	NoShow    int
	Cancelled int
}

type Repository interface {
	DoctorActivity(ctx context.Context, r DateRange) ([]*DoctorActivity, error)
	SpecialtyActivity(ctx context.Context, r DateRange) ([]*SpecialtyActivity, error)
	DailyVolume(ctx context.Context, r DateRange) ([]*DailyVolume, error)
	StatusCounts(ctx context.Context, r DateRange) (Counts, error)
}
