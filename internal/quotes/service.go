package quotes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// reconstructionScanLimit bounds the fallback scan used to rebuild the
	// sequence counter from existing quote numbers.
	reconstructionScanLimit = 50

	// maxCollisionProbes caps the candidate-number probe loop so a corrupt
	// counter can never spin a transaction forever.
	maxCollisionProbes = 1000

	// maxTxAttempts is how many times a serialization conflict is retried
	// before the operation fails.
	maxTxAttempts = 5

	retryBaseDelay = 50 * time.Millisecond
)

var (
	ErrVersionExists = errors.New("versioned quote number already exists")
	ErrTooManyProbes = errors.New("could not allocate a free quote number")
)

// DocumentRenderer produces the printable HTML document for a quotation.
type DocumentRenderer interface {
	RenderQuotation(q *Quotation) (html string, filename string, err error)
}

// EmailSender dispatches a rendered quotation to the client. Send is
// synchronous: the quote only moves to "sent" once the webhook accepted it.
type EmailSender interface {
	SendQuotation(ctx context.Context, q *Quotation, html, filename, recipient, message string) error
}

// SyncQueue enqueues fire-and-forget cloud sync deliveries.
type SyncQueue interface {
	EnqueueSync(ctx context.Context, mode string, q *Quotation, html, filename string) error
}

// CatalogSync keeps the customer and product master data in step with what
// operators type into quotes. Failures here never fail the quote operation.
type CatalogSync interface {
	SyncFromQuotation(ctx context.Context, q *Quotation) error
}

// Service implements quotation business logic.
type Service struct {
	repo     Repository
	renderer DocumentRenderer
	email    EmailSender
	syncq    SyncQueue
	catalog  CatalogSync
	logger   *slog.Logger
	metrics  QuoteMetrics

	now func() time.Time
}

// QuoteMetrics is the subset of the observability registry the service needs.
type QuoteMetrics interface {
	RecordQuoteCreated()
}

type noopMetrics struct{}

func (noopMetrics) RecordQuoteCreated() {}

// NewService constructs the quotation service. renderer, email, syncq,
// catalog and metrics may be nil; the corresponding side effects are skipped.
func NewService(repo Repository, renderer DocumentRenderer, email EmailSender, syncq SyncQueue, catalog CatalogSync, metrics QuoteMetrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Service{
		repo:     repo,
		renderer: renderer,
		email:    email,
		syncq:    syncq,
		catalog:  catalog,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// withRetry re-runs fn when the transaction lost a serialization race.
// Only ErrConflict is retried; business errors surface immediately.
func (s *Service) withRetry(ctx context.Context, fn func(context.Context) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil || !errors.Is(err, ErrConflict) {
			return err
		}
		delay := retryBaseDelay << (attempt - 1)
		s.logger.Warn("quote transaction conflict, retrying",
			"attempt", attempt, "delay", delay.String())
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("after %d attempts: %w", maxTxAttempts, err)
}

// allocateNumber picks the next free quote number for the month of ts.
//
// The counter row is read under a row lock. When it is missing (fresh
// database, or the row was lost), the sequence is reconstructed by scanning
// recent quote numbers for the current prefix. The candidate is then probed
// against existing numbers, stepping forward until a free one is found, and
// the counter is written back as the sequence actually used.
func (s *Service) allocateNumber(ctx context.Context, tx TxRepository, ts time.Time) (string, int64, error) {
	prefix := NumberPrefix(ts)

	var nextSeq int64
	counter, err := tx.CounterForUpdate(ctx)
	switch {
	case err == nil:
		nextSeq = counter.CurrentSeq + 1
	case errors.Is(err, ErrNotFound):
		recent, err := tx.RecentNumbers(ctx, reconstructionScanLimit)
		if err != nil {
			return "", 0, err
		}
		var maxSeq int64
		for _, number := range recent {
			if seq, ok := SeqFromNumber(number, prefix); ok && seq > maxSeq {
				maxSeq = seq
			}
		}
		nextSeq = maxSeq + 1
		s.logger.Info("quote counter missing, reconstructed from recent numbers",
			"prefix", prefix, "next_seq", nextSeq)
	default:
		return "", 0, err
	}

	candidate := FormatNumber(prefix, nextSeq)
	for probes := 0; ; probes++ {
		if probes >= maxCollisionProbes {
			return "", 0, ErrTooManyProbes
		}
		exists, err := tx.NumberExists(ctx, candidate)
		if err != nil {
			return "", 0, err
		}
		if !exists {
			break
		}
		nextSeq++
		candidate = FormatNumber(prefix, nextSeq)
	}

	if err := tx.PutCounter(ctx, nextSeq); err != nil {
		return "", 0, err
	}
	return candidate, nextSeq, nil
}

func (s *Service) buildQuotation(req CreateQuotationRequest) (*Quotation, error) {
	quoteDate := s.now().Truncate(24 * time.Hour)
	if req.QuoteDate != "" {
		var err error
		quoteDate, err = time.Parse("2006-01-02", req.QuoteDate)
		if err != nil {
			return nil, fmt.Errorf("quote_date: %w", err)
		}
	}
	validUntil := quoteDate.AddDate(0, 0, 30)
	if req.ValidUntil != "" {
		var err error
		validUntil, err = time.Parse("2006-01-02", req.ValidUntil)
		if err != nil {
			return nil, fmt.Errorf("valid_until: %w", err)
		}
	}

	items := make([]Item, len(req.Items))
	for i, in := range req.Items {
		items[i] = Item{
			Name:      in.Name,
			Spec:      in.Spec,
			Unit:      in.Unit,
			Price:     in.Price,
			Qty:       in.Qty,
			Frequency: in.Frequency,
			Note:      in.Note,
			LineOrder: i,
		}
	}
	subtotal, tax, grandTotal := ComputeTotals(items)

	return &Quotation{
		ID:             uuid.New(),
		Version:        1,
		Status:         StatusDraft,
		ProjectName:    req.ProjectName,
		QuoteDate:      quoteDate,
		ValidUntil:     validUntil,
		CompanyContact: req.CompanyContact,
		CompanyPhone:   req.CompanyPhone,
		ClientName:     req.ClientName,
		ClientTaxID:    req.ClientTaxID,
		ClientContact:  req.ClientContact,
		ClientPhone:    req.ClientPhone,
		ClientFax:      req.ClientFax,
		ClientAddress:  req.ClientAddress,
		ClientEmail:    req.ClientEmail,
		PaymentMethod:  req.PaymentMethod,
		PaymentTerms:   req.PaymentTerms,
		Notes:          req.Notes,
		Subtotal:       subtotal,
		Tax:            tax,
		GrandTotal:     grandTotal,
		Items:          items,
	}, nil
}

// Create allocates a quote number and stores the quotation atomically.
func (s *Service) Create(ctx context.Context, req CreateQuotationRequest) (*Quotation, error) {
	q, err := s.buildQuotation(req)
	if err != nil {
		return nil, err
	}

	err = s.withRetry(ctx, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			number, _, err := s.allocateNumber(ctx, tx, s.now())
			if err != nil {
				return err
			}
			q.QuoteNumber = number
			if err := tx.InsertQuotation(ctx, q); err != nil {
				return err
			}
			return tx.InsertItems(ctx, q.ID, q.Items)
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordQuoteCreated()
	s.logger.Info("quotation created", "quote_number", q.QuoteNumber, "client", q.ClientName)
	s.afterSave(ctx, "create", q)
	return q, nil
}

// Update replaces a quotation's content and items, recomputing totals.
// Quote number, version and status are not touched here.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req CreateQuotationRequest) (*Quotation, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	q, err := s.buildQuotation(req)
	if err != nil {
		return nil, err
	}
	q.ID = current.ID
	q.QuoteNumber = current.QuoteNumber
	q.Version = current.Version
	q.Status = current.Status
	q.CreatedAt = current.CreatedAt
	q.DeletedAt = current.DeletedAt

	err = s.withRetry(ctx, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			if err := tx.UpdateQuotation(ctx, q); err != nil {
				return err
			}
			if err := tx.DeleteItems(ctx, q.ID); err != nil {
				return err
			}
			return tx.InsertItems(ctx, q.ID, q.Items)
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("quotation updated", "quote_number", q.QuoteNumber)
	s.afterSave(ctx, "update", q)
	return q, nil
}

// Version derives a new revision from an existing quotation. The number is
// the base number with a -V{n} suffix; the derived number must not already
// exist, otherwise the operation fails without writing anything.
func (s *Service) Version(ctx context.Context, id uuid.UUID) (*Quotation, error) {
	source, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *source
	next.ID = uuid.New()
	next.Version = source.Version + 1
	next.QuoteNumber = VersionedNumber(source.QuoteNumber, next.Version)
	next.Status = StatusDraft
	next.DeletedAt = nil
	next.Items = copyItems(source.Items)

	err = s.withRetry(ctx, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			exists, err := tx.NumberExists(ctx, next.QuoteNumber)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("%w: %s", ErrVersionExists, next.QuoteNumber)
			}
			if err := tx.InsertQuotation(ctx, &next); err != nil {
				return err
			}
			return tx.InsertItems(ctx, next.ID, next.Items)
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("quotation versioned",
		"source", source.QuoteNumber, "quote_number", next.QuoteNumber, "version", next.Version)
	s.afterSave(ctx, "version", &next)
	return &next, nil
}

// Duplicate copies a quotation into a brand-new draft with its own freshly
// allocated number, today's date and a 30-day validity window.
func (s *Service) Duplicate(ctx context.Context, id uuid.UUID) (*Quotation, error) {
	source, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	today := s.now()
	dup := *source
	dup.ID = uuid.New()
	dup.Version = 1
	dup.Status = StatusDraft
	dup.ProjectName = source.ProjectName + " (複製)"
	dup.QuoteDate = today
	dup.ValidUntil = today.AddDate(0, 0, 30)
	dup.DeletedAt = nil
	dup.Items = copyItems(source.Items)

	err = s.withRetry(ctx, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			number, _, err := s.allocateNumber(ctx, tx, today)
			if err != nil {
				return err
			}
			dup.QuoteNumber = number
			if err := tx.InsertQuotation(ctx, &dup); err != nil {
				return err
			}
			return tx.InsertItems(ctx, dup.ID, dup.Items)
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordQuoteCreated()
	s.logger.Info("quotation duplicated",
		"source", source.QuoteNumber, "quote_number", dup.QuoteNumber)
	s.afterSave(ctx, "create", &dup)
	return &dup, nil
}

func copyItems(src []Item) []Item {
	items := make([]Item, len(src))
	for i, it := range src {
		items[i] = Item{
			Name:      it.Name,
			Spec:      it.Spec,
			Unit:      it.Unit,
			Price:     it.Price,
			Qty:       it.Qty,
			Frequency: it.Frequency,
			Note:      it.Note,
			LineOrder: it.LineOrder,
		}
	}
	return items
}

// Get returns one quotation with its items.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Quotation, error) {
	return s.repo.Get(ctx, id)
}

// List returns quotations matching the filter plus the unpaged total.
func (s *Service) List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, int, error) {
	return s.repo.List(ctx, req)
}

// Stats returns dashboard aggregates across status buckets.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.repo.Stats(ctx)
}

// UpdateStatus moves a quotation through its lifecycle. Setting "deleted"
// behaves like SoftDelete; leaving it clears deleted_at.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Quotation, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	var deletedAt *time.Time
	if status == StatusDeleted {
		now := s.now()
		deletedAt = &now
	}
	err := s.withRetry(ctx, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			return tx.SetStatus(ctx, id, status, deletedAt)
		})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// SoftDelete moves the quotation to the deleted bucket. Its number and
// version stay reserved so the sequence never regresses.
func (s *Service) SoftDelete(ctx context.Context, id uuid.UUID) error {
	now := s.now()
	err := s.withRetry(ctx, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			return tx.SetStatus(ctx, id, StatusDeleted, &now)
		})
	})
	if err != nil {
		return err
	}
	s.logger.Info("quotation soft-deleted", "id", id)
	return nil
}

// Restore brings a soft-deleted quotation back as a draft.
func (s *Service) Restore(ctx context.Context, id uuid.UUID) (*Quotation, error) {
	err := s.withRetry(ctx, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			return tx.SetStatus(ctx, id, StatusDraft, nil)
		})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("quotation restored", "id", id)
	return s.repo.Get(ctx, id)
}

// PermanentDelete removes the quotation for good and tells the cloud sync to
// drop its copy.
func (s *Service) PermanentDelete(ctx context.Context, id uuid.UUID) error {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("quotation permanently deleted", "quote_number", q.QuoteNumber)
	if s.syncq != nil {
		if err := s.syncq.EnqueueSync(ctx, "delete", q, "", ""); err != nil {
			s.logger.Warn("cloud sync enqueue failed", "mode", "delete", "error", err)
		}
	}
	return nil
}

// Send renders the quotation and dispatches it by email. The status only
// becomes "sent" after the dispatch webhook accepted the payload.
func (s *Service) Send(ctx context.Context, id uuid.UUID, req SendRequest) (*Quotation, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.renderer == nil || s.email == nil {
		return nil, fmt.Errorf("email dispatch is not configured")
	}

	recipient := req.To
	if recipient == "" {
		recipient = q.ClientEmail
	}
	if recipient == "" {
		return nil, fmt.Errorf("%w: no recipient email", ErrInvalidStatus)
	}

	html, filename, err := s.renderer.RenderQuotation(q)
	if err != nil {
		return nil, fmt.Errorf("render quotation: %w", err)
	}
	if err := s.email.SendQuotation(ctx, q, html, filename, recipient, req.Message); err != nil {
		return nil, fmt.Errorf("send quotation: %w", err)
	}

	updated, err := s.UpdateStatus(ctx, id, StatusSent)
	if err != nil {
		// The mail went out; a status failure must not look like a failed send.
		s.logger.Error("quotation sent but status update failed", "quote_number", q.QuoteNumber, "error", err)
		return q, nil
	}
	s.logger.Info("quotation sent", "quote_number", q.QuoteNumber, "recipient", recipient)
	return updated, nil
}

// afterSave runs the best-effort follow-ups of a successful save: master
// data sync and the cloud backup enqueue. Neither can fail the save.
func (s *Service) afterSave(ctx context.Context, mode string, q *Quotation) {
	if s.catalog != nil {
		if err := s.catalog.SyncFromQuotation(ctx, q); err != nil {
			s.logger.Warn("catalog sync failed", "quote_number", q.QuoteNumber, "error", err)
		}
	}
	if s.syncq == nil {
		return
	}
	var html, filename string
	if s.renderer != nil {
		if h, f, err := s.renderer.RenderQuotation(q); err == nil {
			html, filename = h, f
		} else {
			s.logger.Warn("render for cloud sync failed", "quote_number", q.QuoteNumber, "error", err)
		}
	}
	if err := s.syncq.EnqueueSync(ctx, mode, q, html, filename); err != nil {
		s.logger.Warn("cloud sync enqueue failed", "mode", mode, "error", err)
	}
}
