package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pos-backend/api/middleware"
	"github.com/angelmondragon/pos-backend/api/responses"
	"github.com/angelmondragon/pos-backend/api/validators"
	"github.com/angelmondragon/pos-backend/internal/cart"
	"github.com/angelmondragon/pos-backend/pkg/logger"
)

type addCartItemRequest struct {
	ItemID uuid.UUID `json:"item_id" validate:"required"`
}

// updateCartItemRequest sets a line's quantity. Zero or negative removes the line.
type updateCartItemRequest struct {
	Qty *int `json:"qty" validate:"required"`
}

type checkoutRequest struct {
	Tax   decimal.Decimal  `json:"tax"`
	Total *decimal.Decimal `json:"total,omitempty"`
}

func GetCart(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "cart")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		view, err := svc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func AddCartItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "cart")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		var body addCartItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.AddItem(r.Context(), userID, body.ItemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// UpdateCartItem sets a line's quantity; zero or below removes the line.
func UpdateCartItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "cart")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.UpdateQuantity(r.Context(), userID, itemID, *body.Qty)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func RemoveCartItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "cart")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.RemoveItem(r.Context(), userID, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func ClearCart(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "cart")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		if err := svc.Clear(r.Context(), userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func CheckoutCart(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "cart")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		var body checkoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Checkout(r.Context(), cart.CheckoutInput{
			UserID:         userID,
			Tax:            body.Tax,
			Total:          body.Total,
			IdempotencyKey: strings.TrimSpace(r.Header.Get(middleware.IdempotencyHeader)),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeOrderResult(w, result)
	}
}
