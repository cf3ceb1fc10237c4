package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByRecordNumber(ctx context.Context, recordNumber string) (*Patient, error)
	GetByDocument(ctx context.Context, docType, docNumber string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Patient, int, error)
	Search(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error)
	// NextRecordSeq returns the next value of the clinical-record sequence.
	NextRecordSeq(ctx context.Context) (int64, error)
}
