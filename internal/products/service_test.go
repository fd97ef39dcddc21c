package products

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	byName map[string]*Product
}

func newMemRepo() *memRepo {
	return &memRepo{byName: make(map[string]*Product)}
}

func (m *memRepo) List(ctx context.Context, search string) ([]Product, error) {
	var out []Product
	for _, p := range m.byName {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memRepo) Get(ctx context.Context, id uuid.UUID) (*Product, error) {
	for _, p := range m.byName {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memRepo) Create(ctx context.Context, p *Product) error {
	if _, ok := m.byName[p.Name]; ok {
		return ErrDuplicate
	}
	cp := *p
	m.byName[p.Name] = &cp
	return nil
}

func (m *memRepo) Update(ctx context.Context, p *Product) error {
	for name, stored := range m.byName {
		if stored.ID == p.ID {
			delete(m.byName, name)
			cp := *p
			m.byName[p.Name] = &cp
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

func (m *memRepo) InsertMissing(ctx context.Context, p *Product) error {
	if _, ok := m.byName[p.Name]; ok {
		return nil
	}
	cp := *p
	m.byName[p.Name] = &cp
	return nil
}

func TestEnsureManyKeepsCuratedEntries(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, slog.New(slog.DiscardHandler))

	_, err := svc.Create(context.Background(), ProductInput{Name: "水質採樣", Unit: "次", Price: 1200})
	require.NoError(t, err)

	err = svc.EnsureMany(context.Background(), []ProductInput{
		{Name: "水質採樣", Unit: "次", Price: 999}, // already curated, price untouched
		{Name: "底泥檢測", Unit: "件", Price: 4500},
		{Name: ""}, // blank lines skipped
	})
	require.NoError(t, err)

	assert.Len(t, repo.byName, 2)
	assert.Equal(t, float64(1200), repo.byName["水質採樣"].Price)
	assert.Equal(t, float64(4500), repo.byName["底泥檢測"].Price)
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	svc := NewService(newMemRepo(), slog.New(slog.DiscardHandler))

	_, err := svc.Create(context.Background(), ProductInput{Name: "噪音監測"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), ProductInput{Name: "噪音監測"})
	assert.ErrorIs(t, err, ErrDuplicate)
}
