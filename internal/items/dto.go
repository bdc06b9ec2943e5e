package items

import (
	"time"

	"github.com/angelmondragon/pos-backend/pkg/db/models"
	"github.com/angelmondragon/pos-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemDTO is the catalog entry returned to clients.
type ItemDTO struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	SellPrice decimal.Decimal `json:"sell_price"`
	CostPrice decimal.Decimal `json:"cost_price"`
	Stock     int             `json:"stock"`
	StockBand enums.StockBand `json:"stock_band"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func NewItemDTO(item *models.Item) *ItemDTO {
	if item == nil {
		return nil
	}
	return &ItemDTO{
		ID:        item.ID,
		Name:      item.Name,
		Category:  item.Category,
		SellPrice: item.SellPrice,
		CostPrice: item.CostPrice,
		Stock:     item.Stock,
		StockBand: enums.BandForStock(item.Stock),
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
}

func newItemDTOs(rows []models.Item) []ItemDTO {
	out := make([]ItemDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *NewItemDTO(&rows[i]))
	}
	return out
}
