package orders

import (
	"context"

	"github.com/angelmondragon/pos-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the persistence surface for orders. Orders are insert-only,
// so there is no update method.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByIdempotencyKey(ctx context.Context, createdBy *uuid.UUID, key string) (*models.Order, error)
	List(ctx context.Context) ([]models.Order, error)
}

// Catalog is the slice of the item store the order service reads and, when
// stock decrement is enabled, writes.
type Catalog interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Item, error)
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) (int64, error)
}

// CatalogFactory binds a Catalog to the given transaction.
type CatalogFactory func(tx *gorm.DB) Catalog
