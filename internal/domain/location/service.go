package location

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrNotFound = errors.New("location not found")

type Service struct {
	locations Repository
}

func NewService(locations Repository) *Service {
	return &Service{locations: locations}
}

func (s *Service) Create(ctx context.Context, l *Location) error {
	if l.Name == "" {
		return fmt.Errorf("name is required")
	}
	l.Active = true
	return s.locations.Create(ctx, l)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Location, error) {
	l, err := s.locations.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return l, err
}

func (s *Service) Update(ctx context.Context, l *Location) error {
	if _, err := s.Get(ctx, l.ID); err != nil {
		return err
	}
	if l.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.locations.Update(ctx, l)
}

func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.locations.SetActive(ctx, id, false)
}

func (s *Service) Reactivate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.locations.SetActive(ctx, id, true)
}

func (s *Service) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Location, int, error) {
	return s.locations.List(ctx, activeOnly, limit, offset)
}

func (s *Service) Search(ctx context.Context, query string, limit, offset int) ([]*Location, int, error) {
	return s.locations.Search(ctx, query, limit, offset)
}
