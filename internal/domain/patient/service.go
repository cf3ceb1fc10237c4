package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrNotFound      = errors.New("patient not found")
	ErrDocumentInUse = errors.New("document number already registered")
)

type Service struct {
	patients Repository
}

func NewService(patients Repository) *Service {
	return &Service{patients: patients}
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if p.FirstName == "" || p.LastName == "" {
		return fmt.Errorf("first_name and last_name are required")
	}
	if p.DocumentType == "" || p.DocumentNumber == "" {
		return fmt.Errorf("document_type and document_number are required")
	}

	existing, err := s.patients.GetByDocument(ctx, p.DocumentType, p.DocumentNumber)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if existing != nil && err == nil {
		return ErrDocumentInUse
	}

	seq, err := s.patients.NextRecordSeq(ctx)
	if err != nil {
		return fmt.Errorf("assign record number: %w", err)
	}
	p.RecordNumber = fmt.Sprintf("HC-%06d", seq)
	p.Active = true

	return s.patients.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (s *Service) GetByRecordNumber(ctx context.Context, recordNumber string) (*Patient, error) {
	p, err := s.patients.GetByRecordNumber(ctx, recordNumber)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	current, err := s.Get(ctx, p.ID)
	if err != nil {
		return err
	}
	if p.DocumentType != current.DocumentType || p.DocumentNumber != current.DocumentNumber {
		other, err := s.patients.GetByDocument(ctx, p.DocumentType, p.DocumentNumber)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		if other != nil && err == nil && other.ID != p.ID {
			return ErrDocumentInUse
		}
	}
	// Record number is immutable once assigned.
	p.RecordNumber = current.RecordNumber
	return s.patients.Update(ctx, p)
}

// Deactivate soft-deletes the patient.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.patients.SetActive(ctx, id, false)
}

func (s *Service) Reactivate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.patients.SetActive(ctx, id, true)
}

func (s *Service) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, activeOnly, limit, offset)
}

func (s *Service) Search(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	return s.patients.Search(ctx, query, limit, offset)
}
