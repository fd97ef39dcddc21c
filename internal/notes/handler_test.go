package notes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	templates map[uuid.UUID]*Template
}

func newMemRepo() *memRepo {
	return &memRepo{templates: make(map[uuid.UUID]*Template)}
}

func (m *memRepo) List(ctx context.Context) ([]Template, error) {
	var out []Template
	for _, t := range m.templates {
		out = append(out, *t)
	}
	return out, nil
}

func (m *memRepo) Create(ctx context.Context, t *Template) error {
	if t.IsDefault {
		for _, existing := range m.templates {
			existing.IsDefault = false
		}
	}
	cp := *t
	m.templates[t.ID] = &cp
	return nil
}

func (m *memRepo) Update(ctx context.Context, t *Template) error {
	if _, ok := m.templates[t.ID]; !ok {
		return ErrNotFound
	}
	if t.IsDefault {
		for id, existing := range m.templates {
			if id != t.ID {
				existing.IsDefault = false
			}
		}
	}
	cp := *t
	m.templates[t.ID] = &cp
	return nil
}

func (m *memRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.templates[id]; !ok {
		return ErrNotFound
	}
	delete(m.templates, id)
	return nil
}

func TestCreateTemplate(t *testing.T) {
	repo := newMemRepo()
	srv := httptest.NewServer(Routes(NewHandler(repo)))
	defer srv.Close()

	body, _ := json.Marshal(TemplateInput{
		Title:   "標準付款條件",
		Content: "1. 本報價單有效期限30天\n2. 付款方式：驗收後30天內電匯",
	})
	resp, err := http.Post(srv.URL+"/", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Len(t, repo.templates, 1)
}

func TestCreateTemplateRequiresTitle(t *testing.T) {
	srv := httptest.NewServer(Routes(NewHandler(newMemRepo())))
	defer srv.Close()

	body, _ := json.Marshal(TemplateInput{Content: "內容"})
	resp, err := http.Post(srv.URL+"/", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDefaultFlagIsExclusive(t *testing.T) {
	repo := newMemRepo()
	first := &Template{ID: uuid.New(), Title: "A", Content: "a", IsDefault: true}
	require.NoError(t, repo.Create(context.Background(), first))
	second := &Template{ID: uuid.New(), Title: "B", Content: "b", IsDefault: true}
	require.NoError(t, repo.Create(context.Background(), second))

	assert.False(t, repo.templates[first.ID].IsDefault)
	assert.True(t, repo.templates[second.ID].IsDefault)
}
