package products

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Service implements product catalog business logic.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

func (s *Service) List(ctx context.Context, search string) ([]Product, error) {
	return s.repo.List(ctx, search)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Product, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in ProductInput) (*Product, error) {
	p := fromInput(in)
	p.ID = uuid.New()
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in ProductInput) (*Product, error) {
	p := fromInput(in)
	p.ID = id
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// EnsureMany adds catalog entries for line items the operators typed by hand.
// Names already in the catalog are left alone. Used by the quote save path;
// callers treat failures as non-fatal.
func (s *Service) EnsureMany(ctx context.Context, inputs []ProductInput) error {
	for _, in := range inputs {
		if in.Name == "" {
			continue
		}
		p := fromInput(in)
		p.ID = uuid.New()
		if err := s.repo.InsertMissing(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func fromInput(in ProductInput) *Product {
	unit := in.Unit
	if unit == "" {
		unit = "式"
	}
	return &Product{
		Name:      in.Name,
		Spec:      in.Spec,
		Unit:      unit,
		Price:     in.Price,
		Frequency: in.Frequency,
	}
}
