package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pos-backend/api/middleware"
	"github.com/angelmondragon/pos-backend/api/responses"
	"github.com/angelmondragon/pos-backend/api/validators"
	"github.com/angelmondragon/pos-backend/internal/orders"
	"github.com/angelmondragon/pos-backend/pkg/logger"
)

type orderLineRequest struct {
	ItemID    uuid.UUID        `json:"item_id"`
	Name      string           `json:"name"`
	Category  string           `json:"category"`
	Qty       int              `json:"qty"`
	SellPrice decimal.Decimal  `json:"sell_price"`
	CostPrice *decimal.Decimal `json:"cost_price,omitempty"`
}

type createOrderRequest struct {
	Items []orderLineRequest `json:"items"`
	Tax   decimal.Decimal    `json:"tax"`
	Total *decimal.Decimal   `json:"total,omitempty"`
}

func (r createOrderRequest) toInput(key string, createdBy *uuid.UUID) orders.CreateOrderInput {
	lines := make([]orders.LineInput, 0, len(r.Items))
	for _, item := range r.Items {
		lines = append(lines, orders.LineInput{
			ItemID:    item.ItemID,
			Name:      item.Name,
			Category:  item.Category,
			Qty:       item.Qty,
			SellPrice: item.SellPrice,
			CostPrice: item.CostPrice,
		})
	}
	return orders.CreateOrderInput{
		Lines:          lines,
		Tax:            r.Tax,
		Total:          r.Total,
		IdempotencyKey: key,
		CreatedBy:      createdBy,
	}
}

// CreateOrder submits a sale. A replayed Idempotency-Key answers 200 with the
// original order instead of 201.
func CreateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "order")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		var body createOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		key := strings.TrimSpace(r.Header.Get(middleware.IdempotencyHeader))
		result, err := svc.CreateOrder(r.Context(), body.toInput(key, &userID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeOrderResult(w, result)
	}
}

func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "order")
			return
		}
		result, err := svc.ListOrders(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "order")
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func writeOrderResult(w http.ResponseWriter, result *orders.CreateOrderResult) {
	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	responses.WriteSuccessStatus(w, status, result)
}
