package orders

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pos-backend/pkg/db/models"
)

// saleLine is the part of a line that identifies a submission. Cost and
// category are filled from the catalog and stay out of it.
type saleLine struct {
	itemID uuid.UUID
	name   string
	qty    int
	price  decimal.Decimal
}

func fingerprint(lines []saleLine, tax decimal.Decimal) string {
	h := sha256.New()
	for _, l := range lines {
		fmt.Fprintf(h, "%s|%s|%d|%s\n", l.itemID, strings.TrimSpace(l.name), l.qty, l.price.StringFixed(2))
	}
	fmt.Fprintf(h, "tax|%s", tax.StringFixed(2))
	return hex.EncodeToString(h.Sum(nil))
}

func inputFingerprint(lines []LineInput, tax decimal.Decimal) string {
	out := make([]saleLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, saleLine{itemID: l.ItemID, name: l.Name, qty: l.Qty, price: l.SellPrice})
	}
	return fingerprint(out, tax)
}

func orderFingerprint(order *models.Order) string {
	if order.RequestHash != nil && *order.RequestHash != "" {
		return *order.RequestHash
	}
	out := make([]saleLine, 0, len(order.Lines))
	for _, l := range order.Lines {
		out = append(out, saleLine{itemID: l.ItemID, name: l.Name, qty: l.Qty, price: l.SellPrice})
	}
	return fingerprint(out, order.Tax)
}

// SameSale reports whether order holds exactly lines and tax, in order.
func SameSale(order *OrderDTO, lines []LineInput, tax decimal.Decimal) bool {
	if order == nil {
		return false
	}
	stored := make([]saleLine, 0, len(order.Items))
	for _, l := range order.Items {
		stored = append(stored, saleLine{itemID: l.ItemID, name: l.Name, qty: l.Qty, price: l.SellPrice})
	}
	return fingerprint(stored, order.Tax) == inputFingerprint(lines, tax)
}
