package cart

import (
	"context"
	"fmt"

	"github.com/angelmondragon/pos-backend/internal/orders"
	"github.com/angelmondragon/pos-backend/pkg/db"
	"github.com/angelmondragon/pos-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type itemLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
}

type orderCreator interface {
	CreateOrder(ctx context.Context, input orders.CreateOrderInput) (*orders.CreateOrderResult, error)
}

// Service manages the authenticated user's open cart.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*View, error)
	AddItem(ctx context.Context, userID, itemID uuid.UUID) (*View, error)
	UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, qty int) (*View, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*View, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	Checkout(ctx context.Context, input CheckoutInput) (*orders.CreateOrderResult, error)
}

// View is the cart as returned to clients.
type View struct {
	Items     []Line          `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

// CheckoutInput submits the user's cart as an order.
type CheckoutInput struct {
	UserID         uuid.UUID
	Tax            decimal.Decimal
	Total          *decimal.Decimal
	IdempotencyKey string
}

type service struct {
	store  *Store
	items  itemLoader
	orders orderCreator
	logg   *logger.Logger
}

// NewService builds the cart service.
func NewService(store *Store, items itemLoader, orders orderCreator, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if items == nil {
		return nil, fmt.Errorf("item loader required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order creator required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{store: store, items: items, orders: orders, logg: logg}, nil
}

func NewView(c *Cart) *View {
	return &View{Items: c.Lines(), Total: c.Total(), ItemCount: c.ItemCount()}
}

func (s *service) load(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	c, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return c, nil
}

func (s *service) save(ctx context.Context, userID uuid.UUID, c *Cart) (*View, error) {
	if err := s.store.Save(ctx, userID, c); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return NewView(c), nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*View, error) {
	c, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return NewView(c), nil
}

// AddItem snapshots the current catalog entry into the cart, or bumps its qty
// when already present. The snapshot of an existing line is not refreshed.
func (s *service) AddItem(ctx context.Context, userID, itemID uuid.UUID) (*View, error) {
	c, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		return nil, db.MapError(err, "db: get item")
	}
	c.Add(CatalogItem{
		ID:        item.ID,
		Name:      item.Name,
		Category:  item.Category,
		SellPrice: item.SellPrice,
	})
	return s.save(ctx, userID, c)
}

func (s *service) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, qty int) (*View, error) {
	c, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !c.UpdateQuantity(itemID, qty) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
	}
	return s.save(ctx, userID, c)
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*View, error) {
	c, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.Remove(itemID)
	return s.save(ctx, userID, c)
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	if err := s.store.Delete(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// Checkout submits the cart as an order. The cart is cleared only after the
// order is stored; on any failure it is left as it was so the cashier can retry.
func (s *service) Checkout(ctx context.Context, input CheckoutInput) (*orders.CreateOrderResult, error) {
	c, err := s.load(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	lines := c.Lines()
	orderLines := make([]orders.LineInput, 0, len(lines))
	for _, line := range lines {
		orderLines = append(orderLines, orders.LineInput{
			ItemID:    line.ItemID,
			Name:      line.Name,
			Category:  line.Category,
			Qty:       line.Qty,
			SellPrice: line.SellPrice,
		})
	}

	userID := input.UserID
	result, err := s.orders.CreateOrder(ctx, orders.CreateOrderInput{
		Lines:          orderLines,
		Tax:            input.Tax,
		Total:          input.Total,
		IdempotencyKey: input.IdempotencyKey,
		CreatedBy:      &userID,
	})
	if err != nil {
		return nil, err
	}
	// a replay only settles this cart if it is the same sale
	if result.Replayed && !orders.SameSale(result.Order, orderLines, input.Tax) {
		return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key belongs to a different order")
	}

	if err := s.store.Delete(ctx, input.UserID); err != nil {
		ctx = s.logg.WithOrderID(ctx, result.Order.ID.String())
		s.logg.Error(ctx, "cart.clear_after_checkout_failed", err)
	}
	return result, nil
}
