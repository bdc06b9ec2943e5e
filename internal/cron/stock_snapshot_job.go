package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/pos-backend/internal/analytics"
	"github.com/angelmondragon/pos-backend/pkg/db/models"
	"github.com/angelmondragon/pos-backend/pkg/logger"
	"github.com/angelmondragon/pos-backend/pkg/metrics"
	"github.com/shopspring/decimal"
)

type catalogLister interface {
	List(ctx context.Context) ([]models.Item, error)
}

type StockSnapshotJobParams struct {
	Logger       *logger.Logger
	Catalog      catalogLister
	Metrics      *metrics.StockMetrics
	CostRatio    decimal.Decimal
	LowThreshold int
}

// NewStockSnapshotJob publishes the current stock bands and stock value as gauges.
func NewStockSnapshotJob(params StockSnapshotJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog lister required")
	}
	ratio := params.CostRatio
	if ratio.IsZero() {
		ratio = analytics.DefaultCostEstimateRatio
	}
	return &stockSnapshotJob{
		logg:         params.Logger,
		catalog:      params.Catalog,
		metrics:      params.Metrics,
		ratio:        ratio,
		lowThreshold: params.LowThreshold,
	}, nil
}

type stockSnapshotJob struct {
	logg         *logger.Logger
	catalog      catalogLister
	metrics      *metrics.StockMetrics
	ratio        decimal.Decimal
	lowThreshold int
}

func (j *stockSnapshotJob) Name() string { return "stock-snapshot" }

func (j *stockSnapshotJob) Run(ctx context.Context) error {
	items, err := j.catalog.List(ctx)
	if err != nil {
		return fmt.Errorf("list catalog: %w", err)
	}
	buckets := analytics.ComputeStockBuckets(items)
	value := analytics.StockValue(items, j.ratio)
	j.metrics.SetBands(buckets.ByBand())
	j.metrics.SetValue(value)

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"items":        len(items),
		"out_of_stock": buckets.OutOfStock,
		"low_stock":    analytics.LowStockCount(items, j.lowThreshold),
		"stock_value":  value.StringFixed(2),
	})
	j.logg.Info(logCtx, "cron.stock_snapshot")
	return nil
}
