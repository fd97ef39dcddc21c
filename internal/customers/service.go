package customers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Service implements customer business logic.
type Service struct {
	repo     Repository
	registry TaxRegistryLookup
	logger   *slog.Logger
}

// NewService constructs the customer service. registry may be nil when the
// government lookup webhook is not configured.
func NewService(repo Repository, registry TaxRegistryLookup, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, registry: registry, logger: logger}
}

func (s *Service) List(ctx context.Context, search string) ([]Customer, error) {
	return s.repo.List(ctx, search)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Customer, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in CustomerInput) (*Customer, error) {
	c := fromInput(in)
	c.ID = uuid.New()
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in CustomerInput) (*Customer, error) {
	c := fromInput(in)
	c.ID = id
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// Upsert refreshes the master record for a company name. Used by the quote
// save path; callers treat failures as non-fatal.
func (s *Service) Upsert(ctx context.Context, in CustomerInput) error {
	if in.Name == "" {
		return nil
	}
	c := fromInput(in)
	c.ID = uuid.New()
	return s.repo.UpsertByName(ctx, c)
}

// LookupTaxID resolves a unified business number via the government
// registry webhook.
func (s *Service) LookupTaxID(ctx context.Context, taxID string) (*CompanyProfile, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("tax registry lookup is not configured")
	}
	profile, err := s.registry.Lookup(ctx, taxID)
	if err != nil {
		return nil, err
	}
	if !profile.Found {
		s.logger.Info("tax id not found in registry", "tax_id", taxID)
	}
	return profile, nil
}

func fromInput(in CustomerInput) *Customer {
	return &Customer{
		Name:    in.Name,
		TaxID:   in.TaxID,
		Contact: in.Contact,
		Phone:   in.Phone,
		Fax:     in.Fax,
		Address: in.Address,
		Email:   in.Email,
	}
}
