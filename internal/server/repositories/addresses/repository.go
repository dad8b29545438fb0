package addresses

import (
	"context"

	"github.com/dmitrijs2005/clientkeeper/internal/server/models"
)

type Repository interface {
	FindByClientID(ctx context.Context, clientID int64) (*models.Address, error)
	Create(ctx context.Context, address *models.Address) (*models.Address, error)
	Update(ctx context.Context, existing *models.Address, patch models.AddressPatch) (*models.Address, error)
	Overwrite(ctx context.Context, address *models.Address) error
	Delete(ctx context.Context, id int64) error
	SoftDeleteByClientID(ctx context.Context, clientID int64) error
	RestoreByClientID(ctx context.Context, clientID int64) error
}
