package clients

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/clientkeeper/internal/common"
	"github.com/dmitrijs2005/clientkeeper/internal/dbx"
	"github.com/dmitrijs2005/clientkeeper/internal/server/models"
)

const clientColumns = `id, email, password_hash, salt, first_name, last_name, document, phone,
		 birth_date, avatar, is_confirmed, created_at, updated_at, deleted_at`

type PostgresRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db, now: time.Now}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanClient(row scanner) (*models.Client, error) {
	c := &models.Client{}
	var birthDate, updatedAt, deletedAt sql.NullTime

	err := row.Scan(&c.ID, &c.Email, &c.PasswordHash, &c.Salt, &c.FirstName, &c.LastName,
		&c.Document, &c.Phone, &birthDate, &c.Avatar, &c.IsConfirmed, &c.CreatedAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	if birthDate.Valid {
		c.BirthDate = &birthDate.Time
	}
	if updatedAt.Valid {
		c.UpdatedAt = &updatedAt.Time
	}
	if deletedAt.Valid {
		c.DeletedAt = &deletedAt.Time
	}
	return c, nil
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, args ...any) (*models.Client, error) {
	c, err := scanClient(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.Client, error) {
	query :=
		`SELECT ` + clientColumns + ` FROM clients
		 WHERE lower(email) = lower($1) AND deleted_at IS NULL
		 `
	return r.findOne(ctx, query, email)
}

func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*models.Client, error) {
	query :=
		`SELECT ` + clientColumns + ` FROM clients
		 WHERE id = $1 AND deleted_at IS NULL
		 `
	return r.findOne(ctx, query, id)
}

func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]*models.Client, error) {
	query :=
		`SELECT ` + clientColumns + ` FROM clients
		 WHERE deleted_at IS NULL
		 ORDER BY id
		 LIMIT $1 OFFSET $2
		 `

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Create(ctx context.Context, client *models.Client) (*models.Client, error) {

	query :=
		`INSERT INTO clients (email, password_hash, salt, first_name, last_name, document, phone, birth_date, avatar, is_confirmed)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		client.Email, client.PasswordHash, client.Salt, client.FirstName, client.LastName,
		client.Document, client.Phone, client.BirthDate, client.Avatar, client.IsConfirmed).
		Scan(&client.ID, &client.CreatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return client, nil
}

// Update applies patch on top of existing and persists the result. existing
// is not modified.
func (r *PostgresRepository) Update(ctx context.Context, existing *models.Client, patch models.ClientPatch) (*models.Client, error) {
	updated := patch.Apply(*existing)
	now := r.now().UTC()
	updated.UpdatedAt = &now

	if err := r.Overwrite(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Overwrite writes every mutable column of client back to its row. It is
// also used to restore a snapshot taken before an Update.
func (r *PostgresRepository) Overwrite(ctx context.Context, client *models.Client) error {
	query :=
		`UPDATE clients SET email = $2, password_hash = $3, salt = $4, first_name = $5, last_name = $6,
		 document = $7, phone = $8, birth_date = $9, avatar = $10, is_confirmed = $11, updated_at = $12
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, client.ID,
		client.Email, client.PasswordHash, client.Salt, client.FirstName, client.LastName,
		client.Document, client.Phone, client.BirthDate, client.Avatar, client.IsConfirmed, client.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorConflict
		}
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) SetConfirmed(ctx context.Context, id int64, confirmed bool) error {
	query :=
		`UPDATE clients SET is_confirmed = $2, updated_at = now()
		 WHERE id = $1 AND deleted_at IS NULL
		 `
	return r.exec(ctx, query, id, confirmed)
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, id int64) error {
	query :=
		`UPDATE clients SET deleted_at = now()
		 WHERE id = $1 AND deleted_at IS NULL
		 `
	return r.exec(ctx, query, id)
}

// Restore undoes SoftDelete.
func (r *PostgresRepository) Restore(ctx context.Context, id int64) error {
	query :=
		`UPDATE clients SET deleted_at = NULL
		 WHERE id = $1
		 `
	return r.exec(ctx, query, id)
}

func (r *PostgresRepository) HardDelete(ctx context.Context, id int64) error {
	return r.exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
