package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pos-backend/api/responses"
	"github.com/angelmondragon/pos-backend/api/validators"
	"github.com/angelmondragon/pos-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/logger"
	"github.com/angelmondragon/pos-backend/pkg/printer"
)

type printReceiptRequest struct {
	Receipt        *orders.Receipt `json:"receipt" validate:"required"`
	UseServerPrint bool            `json:"use_server_print"`
}

type printResult struct {
	Printed     bool   `json:"printed"`
	ClientPrint bool   `json:"client_print"`
	Printer     string `json:"printer,omitempty"`
}

// PrintReceipt sends a receipt to the configured network printer, or tells the
// client to print locally when server printing is off or not requested. A nil
// device means server printing is disabled.
func PrintReceipt(device printer.Printer, title string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body printReceiptRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if device == nil || !body.UseServerPrint {
			responses.WriteSuccess(w, printResult{ClientPrint: true})
			return
		}

		job := printer.Render(toPrinterReceipt(body.Receipt, title), 0)
		if err := device.Print(r.Context(), job); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "printer unavailable"))
			return
		}
		result := printResult{Printed: true}
		if named, ok := device.(interface{ Addr() string }); ok {
			result.Printer = named.Addr()
		}
		responses.WriteSuccess(w, result)
	}
}

func toPrinterReceipt(receipt *orders.Receipt, title string) printer.Receipt {
	lines := make([]printer.Line, 0, len(receipt.Cart))
	for _, line := range receipt.Cart {
		lines = append(lines, printer.Line{
			Name:      line.Name,
			Qty:       line.Qty,
			LineTotal: line.SellPrice.Mul(decimal.NewFromInt(int64(line.Qty))),
		})
	}
	return printer.Receipt{
		Title:     title,
		OrderID:   receipt.OrderID.String(),
		Timestamp: receipt.Timestamp,
		Lines:     lines,
		Subtotal:  receipt.Subtotal,
		Tax:       receipt.Tax,
		Total:     receipt.Total,
	}
}
