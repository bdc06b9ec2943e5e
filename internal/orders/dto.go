package orders

import (
	"time"

	"github.com/angelmondragon/pos-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineDTO is an order line as sold.
type LineDTO struct {
	ItemID    uuid.UUID        `json:"item_id"`
	Name      string           `json:"name"`
	Category  string           `json:"category"`
	Qty       int              `json:"qty"`
	SellPrice decimal.Decimal  `json:"sell_price"`
	CostPrice *decimal.Decimal `json:"cost_price,omitempty"`
	LineTotal decimal.Decimal  `json:"line_total"`
}

// OrderDTO is the persisted order returned to clients.
type OrderDTO struct {
	ID             uuid.UUID       `json:"id"`
	Items          []LineDTO       `json:"items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Tax            decimal.Decimal `json:"tax"`
	Total          decimal.Decimal `json:"total"`
	IdempotencyKey *string         `json:"idempotency_key,omitempty"`
	CreatedBy      *uuid.UUID      `json:"created_by,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Receipt is the print-ready snapshot handed back after a successful submission.
type Receipt struct {
	Cart      []LineDTO       `json:"cart"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
	OrderID   uuid.UUID       `json:"order_id"`
	Timestamp time.Time       `json:"timestamp"`
}

// CreateOrderResult pairs the stored order with its receipt. Replayed is set
// when the idempotency key matched an earlier order.
type CreateOrderResult struct {
	Order    *OrderDTO `json:"order"`
	Receipt  *Receipt  `json:"receipt"`
	Replayed bool      `json:"replayed"`
}

// ListResult is the order history with its financial summary.
type ListResult struct {
	Orders  []OrderDTO      `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
	Cost    decimal.Decimal `json:"cost"`
	Profit  decimal.Decimal `json:"profit"`
}

func newLineDTOs(lines []models.OrderLine) []LineDTO {
	out := make([]LineDTO, 0, len(lines))
	for _, line := range lines {
		out = append(out, LineDTO{
			ItemID:    line.ItemID,
			Name:      line.Name,
			Category:  line.Category,
			Qty:       line.Qty,
			SellPrice: line.SellPrice,
			CostPrice: line.CostPrice,
			LineTotal: line.LineTotal(),
		})
	}
	return out
}

func NewOrderDTO(order *models.Order) *OrderDTO {
	if order == nil {
		return nil
	}
	return &OrderDTO{
		ID:             order.ID,
		Items:          newLineDTOs(order.Lines),
		Subtotal:       order.Subtotal,
		Tax:            order.Tax,
		Total:          order.Total,
		IdempotencyKey: order.IdempotencyKey,
		CreatedBy:      order.CreatedBy,
		CreatedAt:      order.CreatedAt,
	}
}

// NewReceipt projects a stored order onto its receipt.
func NewReceipt(order *models.Order) *Receipt {
	if order == nil {
		return nil
	}
	return &Receipt{
		Cart:      newLineDTOs(order.Lines),
		Subtotal:  order.Subtotal,
		Tax:       order.Tax,
		Total:     order.Total,
		OrderID:   order.ID,
		Timestamp: order.CreatedAt,
	}
}
