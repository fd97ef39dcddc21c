package quotes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jetenv/quoteflow/internal/platform/httpx"
)

// Handler exposes the quotation HTTP API.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a quotation handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
	}
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrVersionExists), errors.Is(err, ErrNumberTaken):
		httpx.Problem(w, http.StatusConflict, "Number Conflict", err.Error())
	case errors.Is(err, ErrInvalidStatus):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
	case errors.Is(err, ErrConflict), errors.Is(err, ErrTooManyProbes):
		httpx.Problem(w, http.StatusServiceUnavailable, "Save Failed", err.Error())
	default:
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func pathID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	return id, err == nil
}

// List handles GET /quotes.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	req := ListQuotationsRequest{
		Client: r.URL.Query().Get("client"),
		Search: r.URL.Query().Get("search"),
		Tab:    r.URL.Query().Get("tab"),
	}
	if v := r.URL.Query().Get("status"); v != "" {
		st := Status(v)
		if !st.Valid() {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "unknown status "+v)
			return
		}
		req.Status = &st
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		req.Limit, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		req.Offset, _ = strconv.Atoi(v)
	}

	quotes, total, err := h.service.List(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	if quotes == nil {
		quotes = []Quotation{}
	}
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"quotations": quotes,
		"total":      total,
		"stats":      stats,
	})
}

// Stats handles GET /quotes/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

// Get handles GET /quotes/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid quotation id")
		return
	}
	q, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

// Create handles POST /quotes.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateQuotationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	q, err := h.service.Create(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, q)
}

// Update handles PUT /quotes/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid quotation id")
		return
	}
	var req CreateQuotationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	q, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

// Version handles POST /quotes/{id}/version.
func (h *Handler) Version(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid quotation id")
		return
	}
	q, err := h.service.Version(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, q)
}

// Duplicate handles POST /quotes/{id}/duplicate.
func (h *Handler) Duplicate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid quotation id")
		return
	}
	q, err := h.service.Duplicate(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, q)
}

// UpdateStatus handles PUT /quotes/{id}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid quotation id")
		return
	}
	var req UpdateStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	q, err := h.service.UpdateStatus(r.Context(), id, Status(req.Status))
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

// Delete handles DELETE /quotes/{id} (soft delete).
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid quotation id")
		return
	}
	if err := h.service.SoftDelete(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Restore handles POST /quotes/{id}/restore.
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid quotation id")
		return
	}
	q, err := h.service.Restore(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

// PermanentDelete handles DELETE /quotes/{id}/permanent.
func (h *Handler) PermanentDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid quotation id")
		return
	}
	if err := h.service.PermanentDelete(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Send handles POST /quotes/{id}/send.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid quotation id")
		return
	}
	var req SendRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
			return
		}
		if err := h.validate.Struct(req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
	}
	q, err := h.service.Send(r.Context(), id, req)
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}
