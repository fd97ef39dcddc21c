package notes

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jetenv/quoteflow/internal/platform/httpx"
)

// Handler exposes the note-template HTTP API. Templates are simple enough
// that the handler talks to the repository directly.
type Handler struct {
	repo     Repository
	validate *validator.Validate
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo, validate: validator.New()}
}

// Routes mounts the note-template endpoints.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	return r
}

func respondError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		return
	}
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	result, err := h.repo.List(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	if result == nil {
		result = []Template{}
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in TemplateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	t := &Template{ID: uuid.New(), Title: in.Title, Content: in.Content, IsDefault: in.IsDefault}
	if err := h.repo.Create(r.Context(), t); err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, t)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid template id")
		return
	}
	var in TemplateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	t := &Template{ID: id, Title: in.Title, Content: in.Content, IsDefault: in.IsDefault}
	if err := h.repo.Update(r.Context(), t); err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid template id")
		return
	}
	if err := h.repo.Delete(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
