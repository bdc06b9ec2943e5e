package items

import (
	"context"

	"github.com/angelmondragon/pos-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists catalog items.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, item *models.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// FindByID loads one item or returns gorm.ErrRecordNotFound.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindByIDs returns the items that still exist among ids, keyed by id.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Item, error) {
	out := make(map[uuid.UUID]models.Item, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Item
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// FindByName matches the exact item name.
func (r *Repository) FindByName(ctx context.Context, name string) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).Where("name = ?", name).Order("created_at ASC").First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// List returns the full catalog sorted by name.
func (r *Repository) List(ctx context.Context) ([]models.Item, error) {
	var rows []models.Item
	if err := r.db.WithContext(ctx).Order("name ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Update writes the given columns and reports the number of matched rows.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Item{}).Where("id = ?", id).Updates(updates)
	return res.RowsAffected, res.Error
}

// IncrementStock adds delta to the stored stock in a single statement.
func (r *Repository) IncrementStock(ctx context.Context, id uuid.UUID, delta int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id = ?", id).
		Update("stock", gorm.Expr("stock + ?", delta))
	return res.RowsAffected, res.Error
}

// DecrementStock subtracts qty, flooring at zero.
func (r *Repository) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id = ?", id).
		Update("stock", gorm.Expr("CASE WHEN stock >= ? THEN stock - ? ELSE 0 END", qty, qty))
	return res.RowsAffected, res.Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Item{})
	return res.RowsAffected, res.Error
}

// DeleteByCategory removes every item whose category equals the argument byte for byte.
func (r *Repository) DeleteByCategory(ctx context.Context, category string) (int64, error) {
	res := r.db.WithContext(ctx).Where("category = ?", category).Delete(&models.Item{})
	return res.RowsAffected, res.Error
}

// ListCategories returns the distinct categories in use, sorted.
func (r *Repository) ListCategories(ctx context.Context) ([]string, error) {
	var categories []string
	err := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Distinct("category").
		Order("category ASC").
		Pluck("category", &categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}
