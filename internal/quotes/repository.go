package quotes

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jetenv/quoteflow/internal/platform/db"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrConflict      = errors.New("transaction conflict")
	ErrNumberTaken   = errors.New("quote number already exists")
	ErrInvalidStatus = errors.New("invalid status")
)

// Repository provides PostgreSQL backed persistence for quotations.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id uuid.UUID) (*Quotation, error)
	GetByNumber(ctx context.Context, number string) (*Quotation, error)
	List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, int, error)
	Stats(ctx context.Context) (Stats, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// TxRepository exposes the operations available inside one transaction. The
// allocator runs entirely against this interface so that the counter read,
// the reconstruction scan, the collision probes and both writes share a
// single atomic unit.
type TxRepository interface {
	CounterForUpdate(ctx context.Context) (*Counter, error)
	PutCounter(ctx context.Context, seq int64) error
	RecentNumbers(ctx context.Context, limit int) ([]string, error)
	NumberExists(ctx context.Context, number string) (bool, error)
	InsertQuotation(ctx context.Context, q *Quotation) error
	InsertItems(ctx context.Context, quotationID uuid.UUID, items []Item) error
	UpdateQuotation(ctx context.Context, q *Quotation) error
	DeleteItems(ctx context.Context, quotationID uuid.UUID) error
	SetStatus(ctx context.Context, id uuid.UUID, status Status, deletedAt *time.Time) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in a repeatable-read transaction. Serialization and
// deadlock failures surface as ErrConflict so callers can retry.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
	return wrapConflict(err)
}

func wrapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		// 40001 serialization_failure, 40P01 deadlock_detected
		case "40001", "40P01":
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.Message)
		// 23505 unique_violation: the only unique constraint these
		// transactions can hit is quotations.quote_number, so a lost
		// race on an insert means the number is taken.
		case "23505":
			return fmt.Errorf("%w: %s", ErrNumberTaken, pgErr.Message)
		}
	}
	return err
}

const quotationColumns = `id, quote_number, version, status, project_name,
	       quote_date, valid_until, company_contact, company_phone,
	       client_name, client_tax_id, client_contact, client_phone,
	       client_fax, client_address, client_email,
	       payment_method, payment_terms, notes,
	       subtotal, tax, grand_total, created_at, updated_at, deleted_at`

func scanQuotation(row pgx.Row) (*Quotation, error) {
	var q Quotation
	err := row.Scan(
		&q.ID, &q.QuoteNumber, &q.Version, &q.Status, &q.ProjectName,
		&q.QuoteDate, &q.ValidUntil, &q.CompanyContact, &q.CompanyPhone,
		&q.ClientName, &q.ClientTaxID, &q.ClientContact, &q.ClientPhone,
		&q.ClientFax, &q.ClientAddress, &q.ClientEmail,
		&q.PaymentMethod, &q.PaymentTerms, &q.Notes,
		&q.Subtotal, &q.Tax, &q.GrandTotal, &q.CreatedAt, &q.UpdatedAt, &q.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &q, nil
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*Quotation, error) {
	query := `SELECT ` + quotationColumns + ` FROM quotations WHERE id = $1`
	q, err := scanQuotation(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	items, err := r.getItems(ctx, id)
	if err != nil {
		return nil, err
	}
	q.Items = items
	return q, nil
}

func (r *repository) GetByNumber(ctx context.Context, number string) (*Quotation, error) {
	query := `SELECT ` + quotationColumns + ` FROM quotations WHERE quote_number = $1`
	q, err := scanQuotation(r.pool.QueryRow(ctx, query, number))
	if err != nil {
		return nil, err
	}
	items, err := r.getItems(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	q.Items = items
	return q, nil
}

func (r *repository) getItems(ctx context.Context, quotationID uuid.UUID) ([]Item, error) {
	query := `
		SELECT id, quotation_id, name, spec, unit, price, qty, frequency, note, line_order
		FROM quote_items
		WHERE quotation_id = $1
		ORDER BY line_order ASC, id ASC
	`
	rows, err := r.pool.Query(ctx, query, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(
			&item.ID, &item.QuotationID, &item.Name, &item.Spec, &item.Unit,
			&item.Price, &item.Qty, &item.Frequency, &item.Note, &item.LineOrder,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *repository) List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, int, error) {
	conditions := []string{}
	args := []interface{}{}
	argPos := 0

	switch req.Tab {
	case "ordered":
		conditions = append(conditions, `status = 'ordered'`)
	case "cancelled":
		conditions = append(conditions, `status = 'cancelled'`)
	case "deleted":
		conditions = append(conditions, `status = 'deleted'`)
	case "all":
		// no bucket filter
	default:
		conditions = append(conditions, `status <> 'deleted'`)
	}

	if req.Status != nil {
		argPos++
		conditions = append(conditions, `status = $`+strconv.Itoa(argPos))
		args = append(args, *req.Status)
	}
	if req.Client != "" {
		argPos++
		conditions = append(conditions, `client_name = $`+strconv.Itoa(argPos))
		args = append(args, req.Client)
	}
	if req.Search != "" {
		argPos++
		p := strconv.Itoa(argPos)
		conditions = append(conditions,
			`(quote_number ILIKE $`+p+` OR project_name ILIKE $`+p+` OR client_name ILIKE $`+p+`)`)
		args = append(args, "%"+req.Search+"%")
	}

	where := ""
	for i, c := range conditions {
		if i == 0 {
			where = " WHERE " + c
		} else {
			where += " AND " + c
		}
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM quotations`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + quotationColumns + ` FROM quotations` + where +
		` ORDER BY created_at DESC, quote_number DESC` +
		` LIMIT $` + strconv.Itoa(argPos+1) + ` OFFSET $` + strconv.Itoa(argPos+2)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Quotation
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *q)
	}
	return result, total, rows.Err()
}

func (r *repository) Stats(ctx context.Context) (Stats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status IN ('draft','sent','confirmed')),
			COALESCE(SUM(grand_total) FILTER (WHERE status IN ('draft','sent','confirmed')), 0),
			COUNT(*) FILTER (WHERE status = 'ordered'),
			COALESCE(SUM(grand_total) FILTER (WHERE status = 'ordered'), 0),
			COUNT(*) FILTER (WHERE status = 'cancelled'),
			COALESCE(SUM(grand_total) FILTER (WHERE status = 'cancelled'), 0),
			COUNT(*) FILTER (WHERE status = 'deleted'),
			COALESCE(SUM(grand_total) FILTER (WHERE status <> 'deleted'), 0)
		FROM quotations
	`
	var s Stats
	err := r.pool.QueryRow(ctx, query).Scan(
		&s.ActiveCount, &s.ActiveTotal,
		&s.OrderedCount, &s.OrderedTotal,
		&s.CancelledCount, &s.CancelledTotal,
		&s.DeletedCount, &s.AllTotal,
	)
	return s, err
}

// Delete permanently removes a quotation. Items go with it via FK cascade.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM quotations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ============================================================================
// TRANSACTIONAL OPERATIONS
// ============================================================================

// CounterForUpdate reads the singleton sequence row under a row lock, so two
// allocators cannot read the same value.
func (t *txRepo) CounterForUpdate(ctx context.Context) (*Counter, error) {
	var c Counter
	err := t.tx.QueryRow(ctx,
		`SELECT current_seq, last_updated FROM quote_counters WHERE id = 1 FOR UPDATE`,
	).Scan(&c.CurrentSeq, &c.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// PutCounter upserts the singleton row, touching only its own fields.
func (t *txRepo) PutCounter(ctx context.Context, seq int64) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO quote_counters (id, current_seq, last_updated)
		VALUES (1, $1, NOW())
		ON CONFLICT (id)
		DO UPDATE SET current_seq = EXCLUDED.current_seq, last_updated = EXCLUDED.last_updated
	`, seq)
	return err
}

func (t *txRepo) RecentNumbers(ctx context.Context, limit int) ([]string, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT quote_number FROM quotations ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var numbers []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		numbers = append(numbers, n)
	}
	return numbers, rows.Err()
}

func (t *txRepo) NumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM quotations WHERE quote_number = $1)`, number,
	).Scan(&exists)
	return exists, err
}

func (t *txRepo) InsertQuotation(ctx context.Context, q *Quotation) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO quotations (
			id, quote_number, version, status, project_name,
			quote_date, valid_until, company_contact, company_phone,
			client_name, client_tax_id, client_contact, client_phone,
			client_fax, client_address, client_email,
			payment_method, payment_terms, notes,
			subtotal, tax, grand_total, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, NOW(), NOW()
		)
		RETURNING created_at, updated_at
	`,
		q.ID, q.QuoteNumber, q.Version, q.Status, q.ProjectName,
		q.QuoteDate, q.ValidUntil, q.CompanyContact, q.CompanyPhone,
		q.ClientName, q.ClientTaxID, q.ClientContact, q.ClientPhone,
		q.ClientFax, q.ClientAddress, q.ClientEmail,
		q.PaymentMethod, q.PaymentTerms, q.Notes,
		q.Subtotal, q.Tax, q.GrandTotal,
	).Scan(&q.CreatedAt, &q.UpdatedAt)
}

func (t *txRepo) InsertItems(ctx context.Context, quotationID uuid.UUID, items []Item) error {
	for i := range items {
		err := t.tx.QueryRow(ctx, `
			INSERT INTO quote_items (
				quotation_id, name, spec, unit, price, qty, frequency, note, line_order
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id
		`,
			quotationID, items[i].Name, items[i].Spec, items[i].Unit,
			items[i].Price, items[i].Qty, items[i].Frequency, items[i].Note,
			items[i].LineOrder,
		).Scan(&items[i].ID)
		if err != nil {
			return err
		}
		items[i].QuotationID = quotationID
	}
	return nil
}

func (t *txRepo) UpdateQuotation(ctx context.Context, q *Quotation) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE quotations SET
			project_name = $2, quote_date = $3, valid_until = $4,
			company_contact = $5, company_phone = $6,
			client_name = $7, client_tax_id = $8, client_contact = $9,
			client_phone = $10, client_fax = $11, client_address = $12,
			client_email = $13, payment_method = $14, payment_terms = $15,
			notes = $16, subtotal = $17, tax = $18, grand_total = $19,
			updated_at = NOW()
		WHERE id = $1
	`,
		q.ID, q.ProjectName, q.QuoteDate, q.ValidUntil,
		q.CompanyContact, q.CompanyPhone,
		q.ClientName, q.ClientTaxID, q.ClientContact,
		q.ClientPhone, q.ClientFax, q.ClientAddress,
		q.ClientEmail, q.PaymentMethod, q.PaymentTerms,
		q.Notes, q.Subtotal, q.Tax, q.GrandTotal,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) DeleteItems(ctx context.Context, quotationID uuid.UUID) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM quote_items WHERE quotation_id = $1`, quotationID)
	return err
}

func (t *txRepo) SetStatus(ctx context.Context, id uuid.UUID, status Status, deletedAt *time.Time) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE quotations SET status = $2, deleted_at = $3, updated_at = NOW()
		WHERE id = $1
	`, id, status, deletedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
