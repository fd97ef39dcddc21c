package customers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound  = errors.New("customer not found")
	ErrDuplicate = errors.New("customer name already exists")
)

// Repository provides PostgreSQL backed customer persistence.
type Repository interface {
	List(ctx context.Context, search string) ([]Customer, error)
	Get(ctx context.Context, id uuid.UUID) (*Customer, error)
	Create(ctx context.Context, c *Customer) error
	Update(ctx context.Context, c *Customer) error
	Delete(ctx context.Context, id uuid.UUID) error
	UpsertByName(ctx context.Context, c *Customer) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const columns = `id, name, tax_id, contact, phone, fax, address, email, created_at, updated_at`

func scan(row pgx.Row) (*Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.TaxID, &c.Contact, &c.Phone, &c.Fax,
		&c.Address, &c.Email, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *repository) List(ctx context.Context, search string) ([]Customer, error) {
	query := `SELECT ` + columns + ` FROM customers`
	args := []interface{}{}
	if search != "" {
		query += ` WHERE name ILIKE $1 OR tax_id ILIKE $1 OR contact ILIKE $1`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY name ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Customer
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*Customer, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM customers WHERE id = $1`, id))
}

func (r *repository) Create(ctx context.Context, c *Customer) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO customers (id, name, tax_id, contact, phone, fax, address, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING created_at, updated_at
	`, c.ID, c.Name, c.TaxID, c.Contact, c.Phone, c.Fax, c.Address, c.Email).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	return uniqueViolation(err)
}

func (r *repository) Update(ctx context.Context, c *Customer) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE customers
		SET name = $2, tax_id = $3, contact = $4, phone = $5, fax = $6,
		    address = $7, email = $8, updated_at = NOW()
		WHERE id = $1
	`, c.ID, c.Name, c.TaxID, c.Contact, c.Phone, c.Fax, c.Address, c.Email)
	if err != nil {
		return uniqueViolation(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertByName inserts or refreshes a customer keyed by company name. Only
// non-empty incoming fields overwrite what is already stored.
func (r *repository) UpsertByName(ctx context.Context, c *Customer) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO customers (id, name, tax_id, contact, phone, fax, address, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (name) DO UPDATE SET
			tax_id  = CASE WHEN EXCLUDED.tax_id  <> '' THEN EXCLUDED.tax_id  ELSE customers.tax_id  END,
			contact = CASE WHEN EXCLUDED.contact <> '' THEN EXCLUDED.contact ELSE customers.contact END,
			phone   = CASE WHEN EXCLUDED.phone   <> '' THEN EXCLUDED.phone   ELSE customers.phone   END,
			fax     = CASE WHEN EXCLUDED.fax     <> '' THEN EXCLUDED.fax     ELSE customers.fax     END,
			address = CASE WHEN EXCLUDED.address <> '' THEN EXCLUDED.address ELSE customers.address END,
			email   = CASE WHEN EXCLUDED.email   <> '' THEN EXCLUDED.email   ELSE customers.email   END,
			updated_at = NOW()
	`, c.ID, c.Name, c.TaxID, c.Contact, c.Phone, c.Fax, c.Address, c.Email)
	return err
}

func uniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}
