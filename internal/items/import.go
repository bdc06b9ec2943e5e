package items

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/angelmondragon/pos-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ImportResult summarizes a catalog workbook import.
type ImportResult struct {
	Created int        `json:"created"`
	Updated int        `json:"updated"`
	Skipped []RowIssue `json:"skipped"`
}

// RowIssue names a spreadsheet row that could not be imported.
type RowIssue struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

var importColumns = map[string]string{
	"name":       "name",
	"item":       "name",
	"category":   "category",
	"sell_price": "sell_price",
	"sellprice":  "sell_price",
	"price":      "sell_price",
	"cost_price": "cost_price",
	"costprice":  "cost_price",
	"cost":       "cost_price",
	"stock":      "stock",
	"qty":        "stock",
}

// ImportWorkbook reads the first sheet of an xlsx catalog and upserts rows by
// exact item name. The whole import runs in one transaction; rows with bad
// values are skipped and reported.
func (s *service) ImportWorkbook(ctx context.Context, r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read workbook rows")
	}
	if len(rows) < 2 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "workbook has no data rows")
	}

	header := mapHeader(rows[0])
	if _, ok := header["name"]; !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "workbook is missing a name column")
	}
	if _, ok := header["sell_price"]; !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "workbook is missing a sell_price column")
	}

	result := &ImportResult{Skipped: []RowIssue{}}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		for i, row := range rows[1:] {
			rowNum := i + 2
			if isBlankRow(row) {
				continue
			}
			input, err := parseImportRow(header, row)
			if err != nil {
				result.Skipped = append(result.Skipped, RowIssue{Row: rowNum, Reason: err.Error()})
				continue
			}
			item, err := buildItem(input)
			if err != nil {
				result.Skipped = append(result.Skipped, RowIssue{Row: rowNum, Reason: pkgerrors.As(err).Message()})
				continue
			}

			existing, err := txRepo.FindByName(ctx, item.Name)
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				if err := txRepo.Create(ctx, item); err != nil {
					return db.MapError(err, "db: insert item")
				}
				result.Created++
			case err != nil:
				return db.MapError(err, "db: find item by name")
			default:
				updates := map[string]any{
					"category":   item.Category,
					"sell_price": item.SellPrice,
					"cost_price": item.CostPrice,
					"stock":      item.Stock,
				}
				if _, err := txRepo.Update(ctx, existing.ID, updates); err != nil {
					return db.MapError(err, "db: update item")
				}
				result.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func mapHeader(row []string) map[string]int {
	out := map[string]int{}
	for idx, cell := range row {
		key := strings.ToLower(strings.TrimSpace(cell))
		key = strings.ReplaceAll(key, " ", "_")
		if col, ok := importColumns[key]; ok {
			if _, seen := out[col]; !seen {
				out[col] = idx
			}
		}
	}
	return out
}

func parseImportRow(header map[string]int, row []string) (CreateItemInput, error) {
	cell := func(col string) string {
		idx, ok := header[col]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	input := CreateItemInput{
		Name:     cell("name"),
		Category: cell("category"),
	}
	if raw := cell("sell_price"); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return input, fmt.Errorf("invalid sell_price %q", raw)
		}
		input.SellPrice = &price
	}
	if raw := cell("cost_price"); raw != "" {
		cost, err := decimal.NewFromString(raw)
		if err != nil {
			return input, fmt.Errorf("invalid cost_price %q", raw)
		}
		input.CostPrice = &cost
	}
	if raw := cell("stock"); raw != "" {
		stock, err := strconv.Atoi(raw)
		if err != nil {
			return input, fmt.Errorf("invalid stock %q", raw)
		}
		input.Stock = &stock
	}
	return input, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
