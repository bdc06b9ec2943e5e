package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/pos-backend/internal/analytics"
	"github.com/angelmondragon/pos-backend/pkg/config"
	"github.com/angelmondragon/pos-backend/pkg/db"
	"github.com/angelmondragon/pos-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const maxIdempotencyKeyLen = 255

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service creates and reads orders.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error)
	ListOrders(ctx context.Context) (*ListResult, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*OrderDTO, error)
}

// LineInput is one submitted cart line. Name and SellPrice are the snapshot
// taken when the item entered the cart.
type LineInput struct {
	ItemID    uuid.UUID
	Name      string
	Category  string
	Qty       int
	SellPrice decimal.Decimal
	CostPrice *decimal.Decimal
}

// CreateOrderInput is a submission. Total is optional when totals are verified
// server-side and required otherwise.
type CreateOrderInput struct {
	Lines          []LineInput
	Tax            decimal.Decimal
	Total          *decimal.Decimal
	IdempotencyKey string
	CreatedBy      *uuid.UUID
}

type service struct {
	repo    Repository
	tx      txRunner
	catalog CatalogFactory
	cfg     config.OrdersConfig
	metrics *metrics.OrderMetrics
	now     func() time.Time
}

// NewService wires the order service. m may be nil.
func NewService(repo Repository, tx txRunner, catalog CatalogFactory, cfg config.OrdersConfig, m *metrics.OrderMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog factory required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		catalog: catalog,
		cfg:     cfg,
		metrics: m,
		now:     time.Now,
	}, nil
}

// CreateOrder validates the submission, prices it and persists the order and
// its lines in one transaction. Nothing is written when validation fails.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error) {
	key := strings.TrimSpace(input.IdempotencyKey)
	if len(key) > maxIdempotencyKeyLen {
		s.metrics.OrderRejected("idempotency_key")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is too long")
	}

	lines, subtotal, err := buildLines(input.Lines)
	if err != nil {
		s.metrics.OrderRejected("lines")
		return nil, err
	}
	if input.Tax.IsNegative() {
		s.metrics.OrderRejected("tax")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tax must be non-negative")
	}

	total, err := s.resolveTotal(subtotal.Add(input.Tax), input.Total)
	if err != nil {
		s.metrics.OrderRejected("total")
		return nil, err
	}

	requestHash := inputFingerprint(input.Lines, input.Tax)
	if key != "" {
		existing, err := s.repo.FindByIdempotencyKey(ctx, input.CreatedBy, key)
		switch {
		case err == nil:
			return s.replay(existing, requestHash)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, db.MapError(err, "db: find order by idempotency key")
		}
	}

	order := &models.Order{
		Subtotal:  subtotal,
		Tax:       input.Tax,
		Total:     total,
		CreatedBy: input.CreatedBy,
		Lines:     lines,
		CreatedAt: s.now().UTC(),
	}
	if key != "" {
		order.IdempotencyKey = &key
		order.RequestHash = &requestHash
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		catalog := s.catalog(tx)
		current, err := catalog.FindByIDs(ctx, lineItemIDs(lines))
		if err != nil {
			return db.MapError(err, "db: load catalog")
		}
		captureCosts(order.Lines, current)

		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return db.MapError(err, "db: insert order")
		}

		if s.cfg.DecrementStock {
			for _, line := range order.Lines {
				if _, ok := current[line.ItemID]; !ok {
					continue
				}
				if _, err := catalog.DecrementStock(ctx, line.ItemID, line.Qty); err != nil {
					return db.MapError(err, "db: decrement stock")
				}
			}
		}
		return nil
	})
	if err != nil {
		if key != "" && pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			existing, findErr := s.repo.FindByIdempotencyKey(ctx, input.CreatedBy, key)
			if findErr == nil {
				return s.replay(existing, requestHash)
			}
		}
		return nil, err
	}

	s.metrics.OrderCreated(order.Total, len(order.Lines))
	return &CreateOrderResult{
		Order:   NewOrderDTO(order),
		Receipt: NewReceipt(order),
	}, nil
}

// replay answers a repeated key with the stored order. A key reused for a
// different sale is refused so the caller does not mistake it for success.
func (s *service) replay(order *models.Order, requestHash string) (*CreateOrderResult, error) {
	if orderFingerprint(order) != requestHash {
		s.metrics.OrderRejected("idempotency_mismatch")
		return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key was already used for a different order").
			WithDetails(map[string]string{"order_id": order.ID.String()})
	}
	s.metrics.OrderReplayed()
	return &CreateOrderResult{
		Order:    NewOrderDTO(order),
		Receipt:  NewReceipt(order),
		Replayed: true,
	}, nil
}

// resolveTotal applies the total policy. With verification on, a supplied
// total must equal the computed one. With it off, the supplied total is stored
// as given and must be present.
func (s *service) resolveTotal(computed decimal.Decimal, supplied *decimal.Decimal) (decimal.Decimal, error) {
	if s.cfg.VerifyTotals {
		if supplied != nil && !supplied.Equal(computed) {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "total does not match items and tax").
				WithDetails(map[string]string{
					"expected": computed.StringFixed(2),
					"received": supplied.StringFixed(2),
				})
		}
		return computed, nil
	}
	if supplied == nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "total is required")
	}
	if supplied.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "total must be non-negative")
	}
	return *supplied, nil
}

func buildLines(inputs []LineInput) ([]models.OrderLine, decimal.Decimal, error) {
	if len(inputs) == 0 {
		return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}

	lines := make([]models.OrderLine, 0, len(inputs))
	subtotal := decimal.Zero
	for idx, in := range inputs {
		name := strings.TrimSpace(in.Name)
		switch {
		case in.ItemID == uuid.Nil:
			return nil, decimal.Zero, pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d]: item id is required", idx)
		case name == "":
			return nil, decimal.Zero, pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d]: name is required", idx)
		case in.Qty < 1:
			return nil, decimal.Zero, pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d]: qty must be at least 1", idx)
		case in.SellPrice.IsNegative():
			return nil, decimal.Zero, pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d]: sell_price must be non-negative", idx)
		case in.CostPrice != nil && in.CostPrice.IsNegative():
			return nil, decimal.Zero, pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d]: cost_price must be non-negative", idx)
		}

		line := models.OrderLine{
			Position:  idx,
			ItemID:    in.ItemID,
			Name:      name,
			Category:  strings.TrimSpace(in.Category),
			Qty:       in.Qty,
			SellPrice: in.SellPrice,
		}
		if in.CostPrice != nil {
			cost := *in.CostPrice
			line.CostPrice = &cost
		}
		subtotal = subtotal.Add(line.LineTotal())
		lines = append(lines, line)
	}
	return lines, subtotal, nil
}

func lineItemIDs(lines []models.OrderLine) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(lines))
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ItemID]; ok {
			continue
		}
		seen[line.ItemID] = struct{}{}
		ids = append(ids, line.ItemID)
	}
	return ids
}

// captureCosts fills missing line costs and categories from the current catalog.
// Lines for items that no longer exist keep a nil cost.
func captureCosts(lines []models.OrderLine, current map[uuid.UUID]models.Item) {
	for i := range lines {
		item, ok := current[lines[i].ItemID]
		if !ok {
			continue
		}
		if lines[i].CostPrice == nil {
			cost := item.CostPrice
			lines[i].CostPrice = &cost
		}
		if lines[i].Category == "" {
			lines[i].Category = item.Category
		}
	}
}

func (s *service) ListOrders(ctx context.Context) (*ListResult, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, db.MapError(err, "db: list orders")
	}

	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *NewOrderDTO(&rows[i]))
	}
	fin := analytics.ComputeFinancials(rows)
	return &ListResult{
		Orders:  out,
		Revenue: fin.Revenue,
		Cost:    fin.Cost,
		Profit:  fin.Profit,
	}, nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, db.MapError(err, "db: get order")
	}
	return NewOrderDTO(order), nil
}
