// Package notes manages reusable note templates for the quotation footer
// (payment terms, validity clauses, sampling disclaimers).
package notes

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("note template not found")

// Template is a canned block of quotation notes.
type Template struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Content   string    `json:"content" db:"content"`
	IsDefault bool      `json:"is_default" db:"is_default"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type TemplateInput struct {
	Title     string `json:"title" validate:"required,max=100"`
	Content   string `json:"content" validate:"required"`
	IsDefault bool   `json:"is_default"`
}

// Repository provides PostgreSQL backed template persistence.
type Repository interface {
	List(ctx context.Context) ([]Template, error)
	Create(ctx context.Context, t *Template) error
	Update(ctx context.Context, t *Template) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context) ([]Template, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, content, is_default, created_at, updated_at
		FROM note_templates
		ORDER BY is_default DESC, title ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Template
	for rows.Next() {
		var t Template
		if err := rows.Scan(&t.ID, &t.Title, &t.Content, &t.IsDefault, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// Create inserts a template. Marking one as default clears the flag on all
// others so there is at most one default.
func (r *repository) Create(ctx context.Context, t *Template) error {
	return pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if t.IsDefault {
			if _, err := tx.Exec(ctx, `UPDATE note_templates SET is_default = FALSE WHERE is_default`); err != nil {
				return err
			}
		}
		return tx.QueryRow(ctx, `
			INSERT INTO note_templates (id, title, content, is_default, created_at, updated_at)
			VALUES ($1, $2, $3, $4, NOW(), NOW())
			RETURNING created_at, updated_at
		`, t.ID, t.Title, t.Content, t.IsDefault).Scan(&t.CreatedAt, &t.UpdatedAt)
	})
}

func (r *repository) Update(ctx context.Context, t *Template) error {
	return pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if t.IsDefault {
			if _, err := tx.Exec(ctx, `UPDATE note_templates SET is_default = FALSE WHERE is_default AND id <> $1`, t.ID); err != nil {
				return err
			}
		}
		tag, err := tx.Exec(ctx, `
			UPDATE note_templates
			SET title = $2, content = $3, is_default = $4, updated_at = NOW()
			WHERE id = $1
		`, t.ID, t.Title, t.Content, t.IsDefault)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM note_templates WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
