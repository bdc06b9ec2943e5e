package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Item is a catalog entry. Category is a free-form label, not a foreign key.
type Item struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name      string          `gorm:"column:name;not null"`
	Category  string          `gorm:"column:category;not null;default:'General';index"`
	SellPrice decimal.Decimal `gorm:"column:sell_price;type:numeric(12,2);not null"`
	CostPrice decimal.Decimal `gorm:"column:cost_price;type:numeric(12,2);not null;default:0"`
	Stock     int             `gorm:"column:stock;not null;default:0"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Item) TableName() string { return "items" }

func (i *Item) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
