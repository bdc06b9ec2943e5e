package controllers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pos-backend/api/responses"
	"github.com/angelmondragon/pos-backend/api/validators"
	"github.com/angelmondragon/pos-backend/internal/items"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/logger"
)

const maxImportBytes = 10 << 20

type createItemRequest struct {
	Name      string           `json:"name" validate:"required,max=200"`
	Category  string           `json:"category" validate:"max=100"`
	SellPrice *decimal.Decimal `json:"sell_price" validate:"required"`
	CostPrice *decimal.Decimal `json:"cost_price,omitempty"`
	Stock     *int             `json:"stock,omitempty"`
}

func (r createItemRequest) toInput() items.CreateItemInput {
	return items.CreateItemInput{
		Name:      validators.SanitizeString(r.Name, 200),
		Category:  validators.SanitizeString(r.Category, 100),
		SellPrice: r.SellPrice,
		CostPrice: r.CostPrice,
		Stock:     r.Stock,
	}
}

type editItemRequest struct {
	Name      *string          `json:"name,omitempty" validate:"omitempty,max=200"`
	Category  *string          `json:"category,omitempty" validate:"omitempty,max=100"`
	SellPrice *decimal.Decimal `json:"sell_price,omitempty"`
	CostPrice *decimal.Decimal `json:"cost_price,omitempty"`
	Stock     *int             `json:"stock,omitempty"`
}

type restockRequest struct {
	Qty int `json:"qty"`
}

func ListItems(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "item")
			return
		}
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func ListCategories(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "item")
			return
		}
		categories, err := svc.ListCategories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, categories)
	}
}

func CreateItem(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "item")
			return
		}
		var body createItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Create(r.Context(), body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func EditItem(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "item")
			return
		}
		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body editItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Edit(r.Context(), itemID, items.EditItemInput{
			Name:      validators.SanitizeOptional(body.Name, 200),
			Category:  validators.SanitizeOptional(body.Category, 100),
			SellPrice: body.SellPrice,
			CostPrice: body.CostPrice,
			Stock:     body.Stock,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func RestockItem(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "item")
			return
		}
		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body restockRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Restock(r.Context(), itemID, body.Qty)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func DeleteItem(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "item")
			return
		}
		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// DeleteCategory removes every item in the named category. The name is matched
// exactly, including case.
func DeleteCategory(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "item")
			return
		}
		name := chi.URLParam(r, "category")
		// chi matches on RawPath when the request carries one, leaving the param escaped
		if r.URL.RawPath != "" {
			decoded, err := url.PathUnescape(name)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category"))
				return
			}
			name = decoded
		}
		deleted, err := svc.DeleteCategory(r.Context(), strings.TrimSpace(name))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"category": name, "deleted": deleted})
	}
}

// ImportItems upserts the catalog from an uploaded xlsx workbook in the "file" field.
func ImportItems(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "item")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
		if err := r.ParseMultipartForm(maxImportBytes); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid upload"))
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file is required"))
			return
		}
		defer file.Close()

		result, err := svc.ImportWorkbook(r.Context(), file)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
