package addresses

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

type PostgresRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db, now: time.Now}
}

func (r *PostgresRepository) FindByClientID(ctx context.Context, clientID int64) (*models.Address, error) {
	query :=
		`SELECT id, client_id, zip_code, street, number, complement, neighborhood, city, state, country,
		 created_at, updated_at
		 FROM addresses
		 WHERE client_id = $1 AND deleted_at IS NULL
		 `

	a := &models.Address{}
	var updatedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, clientID).Scan(&a.ID, &a.ClientID, &a.ZipCode, &a.Street, &a.Number,
		&a.Complement, &a.Neighborhood, &a.City, &a.State, &a.Country, &a.CreatedAt, &updatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if updatedAt.Valid {
		a.UpdatedAt = &updatedAt.Time
	}
	return a, nil
}

func (r *PostgresRepository) Create(ctx context.Context, address *models.Address) (*models.Address, error) {

	query :=
		`INSERT INTO addresses (client_id, zip_code, street, number, complement, neighborhood, city, state, country)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		address.ClientID, address.ZipCode, address.Street, address.Number, address.Complement,
		address.Neighborhood, address.City, address.State, address.Country).
		Scan(&address.ID, &address.CreatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return address, nil
}

func (r *PostgresRepository) Update(ctx context.Context, existing *models.Address, patch models.AddressPatch) (*models.Address, error) {
	updated := patch.Apply(*existing)
	now := r.now().UTC()
	updated.UpdatedAt = &now

	if err := r.Overwrite(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *PostgresRepository) Overwrite(ctx context.Context, address *models.Address) error {
	query :=
		`UPDATE addresses SET zip_code = $2, street = $3, number = $4, complement = $5, neighborhood = $6,
		 city = $7, state = $8, country = $9, updated_at = $10
		 WHERE id = $1
		 `
	return r.exec(ctx, query, address.ID, address.ZipCode, address.Street, address.Number, address.Complement,
		address.Neighborhood, address.City, address.State, address.Country, address.UpdatedAt)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	return r.exec(ctx, `DELETE FROM addresses WHERE id = $1`, id)
}

// SoftDeleteByClientID hides the client's address. A client without an
// address is not an error.
func (r *PostgresRepository) SoftDeleteByClientID(ctx context.Context, clientID int64) error {
	query :=
		`UPDATE addresses SET deleted_at = now()
		 WHERE client_id = $1 AND deleted_at IS NULL
		 `
	if _, err := r.db.ExecContext(ctx, query, clientID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// RestoreByClientID brings back the most recently soft-deleted address of
// the client.
func (r *PostgresRepository) RestoreByClientID(ctx context.Context, clientID int64) error {
	query :=
		`UPDATE addresses SET deleted_at = NULL
		 WHERE id = (
		   SELECT id FROM addresses
		   WHERE client_id = $1 AND deleted_at IS NOT NULL
		   ORDER BY deleted_at DESC
		   LIMIT 1
		 )
		 `
	if _, err := r.db.ExecContext(ctx, query, clientID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
