package products

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound  = errors.New("product not found")
	ErrDuplicate = errors.New("product name already exists")
)

// Repository provides PostgreSQL backed product persistence.
type Repository interface {
	List(ctx context.Context, search string) ([]Product, error)
	Get(ctx context.Context, id uuid.UUID) (*Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	InsertMissing(ctx context.Context, p *Product) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const columns = `id, name, spec, unit, price, frequency, created_at, updated_at`

func scan(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Spec, &p.Unit, &p.Price, &p.Frequency,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) List(ctx context.Context, search string) ([]Product, error) {
	query := `SELECT ` + columns + ` FROM products`
	args := []interface{}{}
	if search != "" {
		query += ` WHERE name ILIKE $1 OR spec ILIKE $1`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY name ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Product
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*Product, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM products WHERE id = $1`, id))
}

func (r *repository) Create(ctx context.Context, p *Product) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO products (id, name, spec, unit, price, frequency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at
	`, p.ID, p.Name, p.Spec, p.Unit, p.Price, p.Frequency).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	return uniqueViolation(err)
}

func (r *repository) Update(ctx context.Context, p *Product) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE products
		SET name = $2, spec = $3, unit = $4, price = $5, frequency = $6, updated_at = NOW()
		WHERE id = $1
	`, p.ID, p.Name, p.Spec, p.Unit, p.Price, p.Frequency)
	if err != nil {
		return uniqueViolation(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertMissing adds the product only when no catalog entry with that name
// exists yet. Existing entries keep their curated price and spec.
func (r *repository) InsertMissing(ctx context.Context, p *Product) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO products (id, name, spec, unit, price, frequency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (name) DO NOTHING
	`, p.ID, p.Name, p.Spec, p.Unit, p.Price, p.Frequency)
	return err
}

func uniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}
