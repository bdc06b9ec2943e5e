package orders

import (
	"context"

	"github.com/angelmondragon/pos-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an order repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order together with its lines.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByIdempotencyKey looks the key up within one creator's orders. A nil
// creator matches orders submitted without one.
func (r *repository) FindByIdempotencyKey(ctx context.Context, createdBy *uuid.UUID, key string) (*models.Order, error) {
	var order models.Order
	q := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		Where("idempotency_key = ?", key)
	if createdBy == nil {
		q = q.Where("created_by IS NULL")
	} else {
		q = q.Where("created_by = ?", *createdBy)
	}
	err := q.First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// List returns every order, newest first, with lines in submission order.
func (r *repository) List(ctx context.Context) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func orderedLines(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}
