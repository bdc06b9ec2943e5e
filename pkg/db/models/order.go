package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order is a persisted sale. Rows are insert-only. An idempotency key is unique
// per creator; RequestHash fingerprints the lines and tax it was first used with.
type Order struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Subtotal       decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Tax            decimal.Decimal `gorm:"column:tax;type:numeric(12,2);not null;default:0"`
	Total          decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`
	IdempotencyKey *string         `gorm:"column:idempotency_key;uniqueIndex:idx_orders_creator_idempotency_key,priority:2"`
	RequestHash    *string         `gorm:"column:request_hash"`
	CreatedBy      *uuid.UUID      `gorm:"column:created_by;type:uuid;uniqueIndex:idx_orders_creator_idempotency_key,priority:1"`
	Lines          []OrderLine     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderLine is the snapshot of an item as sold. ItemID is a reference, not a
// foreign key, so deleting the item leaves the line intact.
type OrderLine struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID        `gorm:"column:order_id;type:uuid;not null;index"`
	Position  int              `gorm:"column:position;not null"`
	ItemID    uuid.UUID        `gorm:"column:item_id;type:uuid;not null"`
	Name      string           `gorm:"column:name;not null"`
	Category  string           `gorm:"column:category;not null;default:''"`
	Qty       int              `gorm:"column:qty;not null"`
	SellPrice decimal.Decimal  `gorm:"column:sell_price;type:numeric(12,2);not null"`
	CostPrice *decimal.Decimal `gorm:"column:cost_price;type:numeric(12,2)"`
}

func (OrderLine) TableName() string { return "order_lines" }

func (l *OrderLine) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// LineTotal returns sellPrice x qty.
func (l OrderLine) LineTotal() decimal.Decimal {
	return l.SellPrice.Mul(decimal.NewFromInt(int64(l.Qty)))
}

// LineCost returns the captured cost x qty; a missing cost counts as zero.
func (l OrderLine) LineCost() decimal.Decimal {
	if l.CostPrice == nil {
		return decimal.Zero
	}
	return l.CostPrice.Mul(decimal.NewFromInt(int64(l.Qty)))
}
