package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/pos-backend/pkg/enums"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
)

func TestCronJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)
	job := "test-job"
	metrics.Observe(job, 250*time.Millisecond, nil)
	metrics.Observe(job, 100*time.Millisecond, errors.New("boom"))

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "pos_job_runs_total", map[string]string{"job": job, "outcome": "success"}); err != nil {
		t.Fatalf("fetch success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "pos_job_runs_total", map[string]string{"job": job, "outcome": "failure"}); err != nil {
		t.Fatalf("fetch failure: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "pos_job_duration_seconds", map[string]string{"job": job}); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got < 0.35 {
		t.Fatalf("expected duration sum >= 0.35, got %f", got)
	}
}

func TestOrderMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewOrderMetrics(reg)
	metrics.OrderCreated(decimal.RequireFromString("140.00"), 2)
	metrics.OrderCreated(decimal.RequireFromString("10.50"), 1)
	metrics.OrderReplayed()
	metrics.OrderRejected("empty_cart")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, _ := fetchCounterValue(mfs, "pos_orders_created_total", nil); got != 2 {
		t.Fatalf("expected 2 orders, got %f", got)
	}
	if got, _ := fetchCounterValue(mfs, "pos_order_revenue_total", nil); got != 150.5 {
		t.Fatalf("expected revenue 150.5, got %f", got)
	}
	if got, _ := fetchCounterValue(mfs, "pos_orders_replayed_total", nil); got != 1 {
		t.Fatalf("expected 1 replay, got %f", got)
	}
	if got, _ := fetchCounterValue(mfs, "pos_orders_rejected_total", map[string]string{"reason": "empty_cart"}); got != 1 {
		t.Fatalf("expected 1 rejection, got %f", got)
	}
}

func TestStockMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewStockMetrics(reg)
	metrics.SetBands(map[enums.StockBand]int{enums.StockBandLow: 3})
	metrics.SetValue(decimal.NewFromInt(250))

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, _ := fetchGaugeValue(mfs, "pos_catalog_items", map[string]string{"band": "low"}); got != 3 {
		t.Fatalf("expected 3 low items, got %f", got)
	}
	if got, _ := fetchGaugeValue(mfs, "pos_catalog_items", map[string]string{"band": "out_of_stock"}); got != 0 {
		t.Fatalf("expected 0 out of stock items, got %f", got)
	}
	if got, _ := fetchGaugeValue(mfs, "pos_catalog_stock_value", nil); got != 250 {
		t.Fatalf("expected stock value 250, got %f", got)
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	NewOrderMetrics(nil).OrderCreated(decimal.NewFromInt(1), 1)
	NewCronJobMetrics(nil).Observe("job", time.Second, nil)
	NewStockMetrics(nil).SetValue(decimal.NewFromInt(1))
	var m *OrderMetrics
	m.OrderReplayed()
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	metric, err := findMetric(mfs, name, labels)
	if err != nil {
		return 0, err
	}
	return metric.GetCounter().GetValue(), nil
}

func fetchGaugeValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	metric, err := findMetric(mfs, name, labels)
	if err != nil {
		return 0, err
	}
	return metric.GetGauge().GetValue(), nil
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	metric, err := findMetric(mfs, name, labels)
	if err != nil {
		return 0, err
	}
	return metric.GetHistogram().GetSampleSum(), nil
}

func findMetric(mfs []*dto.MetricFamily, name string, labels map[string]string) (*dto.Metric, error) {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if matchesLabels(metric.GetLabel(), labels) {
				return metric, nil
			}
		}
		return nil, fmt.Errorf("metric %q missing labels %v", name, labels)
	}
	return nil, fmt.Errorf("metric %q not found", name)
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	for name, value := range want {
		found := false
		for _, pair := range pairs {
			if pair.GetName() == name && pair.GetValue() == value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
