package analytics

import (
	"sort"
	"time"

	"github.com/angelmondragon/pos-backend/pkg/db/models"
	"github.com/angelmondragon/pos-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// DefaultTrendWindow is the number of most recent orders charted by RevenueTrend.
	DefaultTrendWindow = 7
	// DefaultLowStockThreshold flags items whose stock is strictly below it.
	DefaultLowStockThreshold = 10
	// DefaultLowStockAlertLimit caps the number of alerts returned.
	DefaultLowStockAlertLimit = 5
)

// DefaultCostEstimateRatio values stock without a cost price at this share of its sell price.
var DefaultCostEstimateRatio = decimal.RequireFromString("0.6")

// Financials summarizes the order history.
type Financials struct {
	Revenue decimal.Decimal `json:"revenue"`
	Cost    decimal.Decimal `json:"cost"`
	Profit  decimal.Decimal `json:"profit"`
}

// CategorySales is the revenue attributed to one current catalog category.
type CategorySales struct {
	Category string          `json:"category"`
	Revenue  decimal.Decimal `json:"revenue"`
	Units    int             `json:"units"`
	Items    int             `json:"items"`
}

// StockBuckets counts catalog items per stock band.
type StockBuckets struct {
	OutOfStock  int `json:"out_of_stock"`
	Low         int `json:"low"`
	InStock     int `json:"in_stock"`
	WellStocked int `json:"well_stocked"`
}

// ByBand returns the counts keyed by band.
func (b StockBuckets) ByBand() map[enums.StockBand]int {
	return map[enums.StockBand]int{
		enums.StockBandOutOfStock:  b.OutOfStock,
		enums.StockBandLow:         b.Low,
		enums.StockBandInStock:     b.InStock,
		enums.StockBandWellStocked: b.WellStocked,
	}
}

// TrendPoint is one charted order.
type TrendPoint struct {
	OrderID uuid.UUID       `json:"order_id"`
	Date    time.Time       `json:"date"`
	Total   decimal.Decimal `json:"total"`
}

// StockAlert names an item running low.
type StockAlert struct {
	ItemID   uuid.UUID `json:"item_id"`
	Name     string    `json:"name"`
	Category string    `json:"category"`
	Stock    int       `json:"stock"`
}

// ComputeFinancials sums order totals as revenue and captured line costs as
// cost. Lines without a captured cost count as zero.
func ComputeFinancials(orders []models.Order) Financials {
	revenue := decimal.Zero
	cost := decimal.Zero
	for _, order := range orders {
		revenue = revenue.Add(order.Total)
		for _, line := range order.Lines {
			cost = cost.Add(line.LineCost())
		}
	}
	return Financials{
		Revenue: revenue,
		Cost:    cost,
		Profit:  revenue.Sub(cost),
	}
}

// ComputeCategorySales attributes each order line to the current category of
// its item. Lines whose item is gone from the catalog are left out. Every
// category present in the catalog is reported, sorted by name.
func ComputeCategorySales(orders []models.Order, catalog []models.Item) []CategorySales {
	byID := make(map[uuid.UUID]models.Item, len(catalog))
	buckets := map[string]*CategorySales{}
	for _, item := range catalog {
		byID[item.ID] = item
		bucket, ok := buckets[item.Category]
		if !ok {
			bucket = &CategorySales{Category: item.Category, Revenue: decimal.Zero}
			buckets[item.Category] = bucket
		}
		bucket.Items++
	}

	for _, order := range orders {
		for _, line := range order.Lines {
			item, ok := byID[line.ItemID]
			if !ok {
				continue
			}
			bucket := buckets[item.Category]
			bucket.Revenue = bucket.Revenue.Add(line.LineTotal())
			bucket.Units += line.Qty
		}
	}

	out := make([]CategorySales, 0, len(buckets))
	for _, bucket := range buckets {
		out = append(out, *bucket)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// ComputeStockBuckets partitions the catalog into the 0, 1-10, 11-50 and 51+ bands.
func ComputeStockBuckets(catalog []models.Item) StockBuckets {
	var buckets StockBuckets
	for _, item := range catalog {
		switch enums.BandForStock(item.Stock) {
		case enums.StockBandOutOfStock:
			buckets.OutOfStock++
		case enums.StockBandLow:
			buckets.Low++
		case enums.StockBandInStock:
			buckets.InStock++
		default:
			buckets.WellStocked++
		}
	}
	return buckets
}

// RevenueTrend returns the last window orders in ascending creation order.
// A non-positive window falls back to DefaultTrendWindow. The input is not modified.
func RevenueTrend(orders []models.Order, window int) []TrendPoint {
	if window <= 0 {
		window = DefaultTrendWindow
	}
	sorted := make([]models.Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.Before(sorted[j].CreatedAt) })
	if len(sorted) > window {
		sorted = sorted[len(sorted)-window:]
	}

	points := make([]TrendPoint, 0, len(sorted))
	for _, order := range sorted {
		points = append(points, TrendPoint{OrderID: order.ID, Date: order.CreatedAt, Total: order.Total})
	}
	return points
}

// StockValue estimates the value of current stock. Items with no cost price
// are valued at sellPrice x ratio.
func StockValue(catalog []models.Item, ratio decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, item := range catalog {
		unit := item.CostPrice
		if !unit.IsPositive() {
			unit = item.SellPrice.Mul(ratio)
		}
		total = total.Add(unit.Mul(decimal.NewFromInt(int64(item.Stock))))
	}
	return total
}

// LowStockAlerts lists up to limit items with stock below threshold, lowest first.
func LowStockAlerts(catalog []models.Item, threshold, limit int) []StockAlert {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	if limit <= 0 {
		limit = DefaultLowStockAlertLimit
	}
	alerts := []StockAlert{}
	for _, item := range catalog {
		if item.Stock < threshold {
			alerts = append(alerts, StockAlert{ItemID: item.ID, Name: item.Name, Category: item.Category, Stock: item.Stock})
		}
	}
	sort.SliceStable(alerts, func(i, j int) bool { return alerts[i].Stock < alerts[j].Stock })
	if len(alerts) > limit {
		alerts = alerts[:limit]
	}
	return alerts
}

// LowStockCount counts items with stock below threshold, out-of-stock included.
func LowStockCount(catalog []models.Item, threshold int) int {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	n := 0
	for _, item := range catalog {
		if item.Stock < threshold {
			n++
		}
	}
	return n
}

func OutOfStockCount(catalog []models.Item) int {
	n := 0
	for _, item := range catalog {
		if item.Stock <= 0 {
			n++
		}
	}
	return n
}

// Categories returns the distinct catalog categories, sorted.
func Categories(catalog []models.Item) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, item := range catalog {
		if _, ok := seen[item.Category]; ok {
			continue
		}
		seen[item.Category] = struct{}{}
		out = append(out, item.Category)
	}
	sort.Strings(out)
	return out
}
