package clients

import (
	"context"

	"github.com/dmitrijs2005/clientkeeper/internal/server/models"
)

// Repository persists clients. Soft-deleted rows are invisible to every
// finder.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*models.Client, error)
	FindByID(ctx context.Context, id int64) (*models.Client, error)
	List(ctx context.Context, limit, offset int) ([]*models.Client, error)
	Create(ctx context.Context, client *models.Client) (*models.Client, error)
	Update(ctx context.Context, existing *models.Client, patch models.ClientPatch) (*models.Client, error)
	Overwrite(ctx context.Context, client *models.Client) error
	SetConfirmed(ctx context.Context, id int64, confirmed bool) error
	SoftDelete(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) error
	HardDelete(ctx context.Context, id int64) error
}
