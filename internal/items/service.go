package items

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/angelmondragon/pos-backend/pkg/db"
	"github.com/angelmondragon/pos-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultCategory is applied when an item is created without one.
const DefaultCategory = "General"

// Service exposes catalog maintenance and the stock adjustment rules.
type Service interface {
	Create(ctx context.Context, input CreateItemInput) (*ItemDTO, error)
	List(ctx context.Context) ([]ItemDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*ItemDTO, error)
	Edit(ctx context.Context, id uuid.UUID, input EditItemInput) (*ItemDTO, error)
	Restock(ctx context.Context, id uuid.UUID, delta int) (*ItemDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteCategory(ctx context.Context, category string) (int64, error)
	ListCategories(ctx context.Context) ([]string, error)
	ImportWorkbook(ctx context.Context, r io.Reader) (*ImportResult, error)
}

// CreateItemInput holds the payload to create an item. Name and SellPrice are required.
type CreateItemInput struct {
	Name      string
	Category  string
	SellPrice *decimal.Decimal
	CostPrice *decimal.Decimal
	Stock     *int
}

// EditItemInput is a partial update; nil fields are left untouched.
type EditItemInput struct {
	Name      *string
	Category  *string
	SellPrice *decimal.Decimal
	CostPrice *decimal.Decimal
	Stock     *int
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo *Repository
	tx   txRunner
}

// NewService constructs the catalog service.
func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("item repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Create(ctx context.Context, input CreateItemInput) (*ItemDTO, error) {
	item, err := buildItem(input)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, db.MapError(err, "db: insert item")
	}
	return NewItemDTO(item), nil
}

func (s *service) List(ctx context.Context) ([]ItemDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, db.MapError(err, "db: list items")
	}
	return newItemDTOs(rows), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ItemDTO, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, db.MapError(err, "db: get item")
	}
	return NewItemDTO(item), nil
}

// Edit overwrites any provided field. A sell price below cost is accepted.
func (s *service) Edit(ctx context.Context, id uuid.UUID, input EditItemInput) (*ItemDTO, error) {
	updates, err := editUpdates(input)
	if err != nil {
		return nil, err
	}

	var updated *models.Item
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := txRepo.FindByID(ctx, id); err != nil {
			return db.MapError(err, "db: get item")
		}
		if len(updates) > 0 {
			if _, err := txRepo.Update(ctx, id, updates); err != nil {
				return db.MapError(err, "db: update item")
			}
		}
		item, err := txRepo.FindByID(ctx, id)
		if err != nil {
			return db.MapError(err, "db: reload item")
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewItemDTO(updated), nil
}

// Restock adds a positive delta to the item's stock.
func (s *service) Restock(ctx context.Context, id uuid.UUID, delta int) (*ItemDTO, error) {
	if delta <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restock quantity must be greater than zero")
	}

	var updated *models.Item
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		rows, err := txRepo.IncrementStock(ctx, id, delta)
		if err != nil {
			return db.MapError(err, "db: restock item")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		item, err := txRepo.FindByID(ctx, id)
		if err != nil {
			return db.MapError(err, "db: reload item")
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewItemDTO(updated), nil
}

// Delete removes the item. Order lines keep their snapshot of it.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	rows, err := s.repo.Delete(ctx, id)
	if err != nil {
		return db.MapError(err, "db: delete item")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	return nil
}

// DeleteCategory removes every item in the category as one transactional
// statement. Matching is exact and case sensitive.
func (s *service) DeleteCategory(ctx context.Context, category string) (int64, error) {
	if strings.TrimSpace(category) == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}

	var deleted int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.repo.WithTx(tx).DeleteByCategory(ctx, category)
		if err != nil {
			return db.MapError(err, "db: delete category")
		}
		deleted = rows
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (s *service) ListCategories(ctx context.Context) ([]string, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, db.MapError(err, "db: list categories")
	}
	return categories, nil
}

func buildItem(input CreateItemInput) (*models.Item, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.SellPrice == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sell_price is required")
	}
	if input.SellPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sell_price must be non-negative")
	}

	item := &models.Item{
		Name:      name,
		Category:  strings.TrimSpace(input.Category),
		SellPrice: *input.SellPrice,
		CostPrice: decimal.Zero,
	}
	if item.Category == "" {
		item.Category = DefaultCategory
	}
	if input.CostPrice != nil {
		if input.CostPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost_price must be non-negative")
		}
		item.CostPrice = *input.CostPrice
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must be non-negative")
		}
		item.Stock = *input.Stock
	}
	return item, nil
}

func editUpdates(input EditItemInput) (map[string]any, error) {
	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Category != nil {
		category := strings.TrimSpace(*input.Category)
		if category == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category cannot be empty")
		}
		updates["category"] = category
	}
	if input.SellPrice != nil {
		if input.SellPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "sell_price must be non-negative")
		}
		updates["sell_price"] = *input.SellPrice
	}
	if input.CostPrice != nil {
		if input.CostPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost_price must be non-negative")
		}
		updates["cost_price"] = *input.CostPrice
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must be non-negative")
		}
		updates["stock"] = *input.Stock
	}
	return updates, nil
}
