package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/jetenv/quoteflow/internal/customers"
	"github.com/jetenv/quoteflow/internal/notes"
	"github.com/jetenv/quoteflow/internal/observability"
	"github.com/jetenv/quoteflow/internal/products"
	"github.com/jetenv/quoteflow/internal/quotes"
	"github.com/jetenv/quoteflow/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	QuoteHandler    *quotes.Handler
	CustomerHandler *customers.Handler
	ProductHandler  *products.Handler
	NoteHandler     *notes.Handler
	JobHandler      *jobs.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with QuoteFlow defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/quotes", quotes.Routes(params.QuoteHandler))
	r.Mount("/customers", customers.Routes(params.CustomerHandler))
	r.Mount("/products", products.Routes(params.ProductHandler))
	r.Mount("/note-templates", notes.Routes(params.NoteHandler))

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
