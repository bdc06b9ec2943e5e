package analytics

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/angelmondragon/pos-backend/pkg/config"
	"github.com/angelmondragon/pos-backend/pkg/db"
	"github.com/angelmondragon/pos-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"
)

type orderLister interface {
	List(ctx context.Context) ([]models.Order, error)
}

type itemLister interface {
	List(ctx context.Context) ([]models.Item, error)
}

// Service assembles dashboard views from the order history and the current catalog.
type Service interface {
	Dashboard(ctx context.Context) (*Dashboard, error)
	ExportWorkbook(ctx context.Context, w io.Writer) error
}

// Dashboard is the admin overview. It is computed on every request and never stored.
type Dashboard struct {
	TotalOrders     int             `json:"total_orders"`
	TotalProducts   int             `json:"total_products"`
	Financials      Financials      `json:"financials"`
	StockValue      decimal.Decimal `json:"stock_value"`
	LowStockCount   int             `json:"low_stock_count"`
	OutOfStockCount int             `json:"out_of_stock_count"`
	Categories      []string        `json:"categories"`
	CategorySales   []CategorySales `json:"category_sales"`
	StockBuckets    StockBuckets    `json:"stock_buckets"`
	RevenueTrend    []TrendPoint    `json:"revenue_trend"`
	StockAlerts     []StockAlert    `json:"stock_alerts"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

type service struct {
	orders orderLister
	items  itemLister
	cfg    settings
	now    func() time.Time
}

type settings struct {
	trendWindow   int
	costRatio     decimal.Decimal
	lowThreshold  int
	lowAlertLimit int
}

// NewService builds the analytics service.
func NewService(orders orderLister, items itemLister, cfg config.AnalyticsConfig) (Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("order lister required")
	}
	if items == nil {
		return nil, fmt.Errorf("item lister required")
	}
	ratio, err := cfg.EstimateRatio()
	if err != nil {
		return nil, err
	}
	return &service{
		orders: orders,
		items:  items,
		cfg: settings{
			trendWindow:   cfg.TrendWindow,
			costRatio:     ratio,
			lowThreshold:  cfg.LowStockThreshold,
			lowAlertLimit: cfg.LowStockAlertLimit,
		},
		now: time.Now,
	}, nil
}

func (s *service) load(ctx context.Context) ([]models.Order, []models.Item, error) {
	var (
		orders  []models.Order
		catalog []models.Item
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.orders.List(gctx)
		if err != nil {
			return db.MapError(err, "db: list orders")
		}
		orders = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.items.List(gctx)
		if err != nil {
			return db.MapError(err, "db: list items")
		}
		catalog = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return orders, catalog, nil
}

func (s *service) Dashboard(ctx context.Context) (*Dashboard, error) {
	orders, catalog, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.build(orders, catalog), nil
}

func (s *service) build(orders []models.Order, catalog []models.Item) *Dashboard {
	return &Dashboard{
		TotalOrders:     len(orders),
		TotalProducts:   len(catalog),
		Financials:      ComputeFinancials(orders),
		StockValue:      StockValue(catalog, s.cfg.costRatio),
		LowStockCount:   LowStockCount(catalog, s.cfg.lowThreshold),
		OutOfStockCount: OutOfStockCount(catalog),
		Categories:      Categories(catalog),
		CategorySales:   ComputeCategorySales(orders, catalog),
		StockBuckets:    ComputeStockBuckets(catalog),
		RevenueTrend:    RevenueTrend(orders, s.cfg.trendWindow),
		StockAlerts:     LowStockAlerts(catalog, s.cfg.lowThreshold, s.cfg.lowAlertLimit),
		GeneratedAt:     s.now().UTC(),
	}
}

// ExportWorkbook writes the dashboard as an xlsx report with Summary, Orders,
// Categories and Stock sheets.
func (s *service) ExportWorkbook(ctx context.Context, w io.Writer) error {
	orders, catalog, err := s.load(ctx)
	if err != nil {
		return err
	}
	dash := s.build(orders, catalog)

	f := excelize.NewFile()
	defer f.Close()

	if err := writeSummarySheet(f, dash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write summary sheet")
	}
	if err := writeOrdersSheet(f, orders); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write orders sheet")
	}
	if err := writeCategoriesSheet(f, dash.CategorySales); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write categories sheet")
	}
	if err := writeStockSheet(f, catalog); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write stock sheet")
	}
	if _, err := f.WriteTo(w); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write workbook")
	}
	return nil
}
