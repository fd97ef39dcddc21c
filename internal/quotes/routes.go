package quotes

import "github.com/go-chi/chi/v5"

// Routes mounts the quotation endpoints.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/stats", h.Stats)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
		r.Put("/status", h.UpdateStatus)
		r.Post("/version", h.Version)
		r.Post("/duplicate", h.Duplicate)
		r.Post("/restore", h.Restore)
		r.Delete("/permanent", h.PermanentDelete)
		r.Post("/send", h.Send)
	})
	return r
}
