package customers

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	byName  map[string]*Customer
	upserts int
}

func newMemRepo() *memRepo {
	return &memRepo{byName: make(map[string]*Customer)}
}

func (m *memRepo) List(ctx context.Context, search string) ([]Customer, error) {
	var out []Customer
	for _, c := range m.byName {
		out = append(out, *c)
	}
	return out, nil
}

func (m *memRepo) Get(ctx context.Context, id uuid.UUID) (*Customer, error) {
	for _, c := range m.byName {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memRepo) Create(ctx context.Context, c *Customer) error {
	if _, ok := m.byName[c.Name]; ok {
		return ErrDuplicate
	}
	cp := *c
	m.byName[c.Name] = &cp
	return nil
}

func (m *memRepo) Update(ctx context.Context, c *Customer) error {
	for name, stored := range m.byName {
		if stored.ID == c.ID {
			delete(m.byName, name)
			cp := *c
			m.byName[c.Name] = &cp
			return nil
		}
	}
	return ErrNotFound
}

func (m *memRepo) Delete(ctx context.Context, id uuid.UUID) error {
	for name, stored := range m.byName {
		if stored.ID == id {
			delete(m.byName, name)
			return nil
		}
	}
	return ErrNotFound
}

func (m *memRepo) UpsertByName(ctx context.Context, c *Customer) error {
	m.upserts++
	if existing, ok := m.byName[c.Name]; ok {
		if c.TaxID != "" {
			existing.TaxID = c.TaxID
		}
		if c.Contact != "" {
			existing.Contact = c.Contact
		}
		return nil
	}
	cp := *c
	m.byName[c.Name] = &cp
	return nil
}

func newTestService(repo Repository, registry TaxRegistryLookup) *Service {
	return NewService(repo, registry, slog.New(slog.DiscardHandler))
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)

	_, err := svc.Create(context.Background(), CustomerInput{Name: "大同精密股份有限公司"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CustomerInput{Name: "大同精密股份有限公司"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUpsertSkipsEmptyName(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)

	require.NoError(t, svc.Upsert(context.Background(), CustomerInput{Name: ""}))
	assert.Zero(t, repo.upserts)
}

func TestUpsertCreatesThenRefreshes(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)

	require.NoError(t, svc.Upsert(context.Background(), CustomerInput{Name: "宏遠紡織"}))
	require.NoError(t, svc.Upsert(context.Background(), CustomerInput{Name: "宏遠紡織", TaxID: "12345678"}))

	assert.Equal(t, 2, repo.upserts)
	assert.Equal(t, "12345678", repo.byName["宏遠紡織"].TaxID)
}

func TestLookupTaxIDUnconfigured(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)
	_, err := svc.LookupTaxID(context.Background(), "12345678")
	assert.Error(t, err)
}

type stubRegistry struct{ profile CompanyProfile }

func (s stubRegistry) Lookup(ctx context.Context, taxID string) (*CompanyProfile, error) {
	p := s.profile
	return &p, nil
}

func TestTaxLookupEndpoint(t *testing.T) {
	registry := stubRegistry{profile: CompanyProfile{
		Found:          true,
		Name:           "宏遠紡織股份有限公司",
		Address:        "台南市山上區明和里256號",
		Representative: "葉清來",
	}}
	h := NewHandler(newTestService(newMemRepo(), registry))
	srv := httptest.NewServer(Routes(h))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/tax-lookup?tax_id=12345678")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/tax-lookup?tax_id=1234")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
