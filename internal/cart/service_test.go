package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/pos-backend/internal/orders"
	"github.com/angelmondragon/pos-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type memoryKV struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryKV) Get(_ context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (m *memoryKV) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.data[key] = value.(string)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryKV) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryKV) CartKey(userID string) string { return "pos:cart:" + userID }

type stubItems struct {
	items map[uuid.UUID]models.Item
}

func (s stubItems) FindByID(_ context.Context, id uuid.UUID) (*models.Item, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &item, nil
}

type stubOrders struct {
	createFn func(ctx context.Context, input orders.CreateOrderInput) (*orders.CreateOrderResult, error)
	calls    []orders.CreateOrderInput
}

func (s *stubOrders) CreateOrder(ctx context.Context, input orders.CreateOrderInput) (*orders.CreateOrderResult, error) {
	s.calls = append(s.calls, input)
	return s.createFn(ctx, input)
}

type fixture struct {
	svc    Service
	kv     *memoryKV
	orders *stubOrders
	burger models.Item
	soda   models.Item
	user   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	burger := models.Item{ID: uuid.New(), Name: "Burger", Category: "Mains", SellPrice: decimal.NewFromInt(50), Stock: 3}
	soda := models.Item{ID: uuid.New(), Name: "Soda", Category: "Drinks", SellPrice: decimal.NewFromInt(30)}
	kv := newMemoryKV()
	store, err := NewStore(kv, time.Hour)
	require.NoError(t, err)

	ord := &stubOrders{createFn: func(_ context.Context, input orders.CreateOrderInput) (*orders.CreateOrderResult, error) {
		subtotal := decimal.Zero
		for _, l := range input.Lines {
			subtotal = subtotal.Add(l.SellPrice.Mul(decimal.NewFromInt(int64(l.Qty))))
		}
		id := uuid.New()
		total := subtotal.Add(input.Tax)
		return &orders.CreateOrderResult{
			Order:   &orders.OrderDTO{ID: id, Subtotal: subtotal, Tax: input.Tax, Total: total},
			Receipt: &orders.Receipt{OrderID: id, Subtotal: subtotal, Tax: input.Tax, Total: total},
		}, nil
	}}

	svc, err := NewService(store, stubItems{items: map[uuid.UUID]models.Item{burger.ID: burger, soda.ID: soda}}, ord, nil)
	require.NoError(t, err)
	return &fixture{svc: svc, kv: kv, orders: ord, burger: burger, soda: soda, user: uuid.New()}
}

func TestServiceAddPersistsCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, f.user, f.burger.ID)
	require.NoError(t, err)
	view, err := f.svc.AddItem(ctx, f.user, f.burger.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, view.ItemCount)

	again, err := f.svc.Get(ctx, f.user)
	require.NoError(t, err)
	require.Len(t, again.Items, 1)
	assert.Equal(t, 2, again.Items[0].Qty)
	assert.True(t, again.Total.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, time.Hour, f.kv.ttls["pos:cart:"+f.user.String()])

	other, err := f.svc.Get(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, other.Items)
}

func TestServiceAddUnknownItem(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.AddItem(context.Background(), f.user, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestServiceUpdateQuantityAndRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.AddItem(ctx, f.user, f.burger.ID)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, f.user, f.soda.ID)
	require.NoError(t, err)

	view, err := f.svc.UpdateQuantity(ctx, f.user, f.burger.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, view.ItemCount)

	view, err = f.svc.UpdateQuantity(ctx, f.user, f.burger.ID, 0)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)

	_, err = f.svc.UpdateQuantity(ctx, f.user, f.burger.ID, 2)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	view, err = f.svc.RemoveItem(ctx, f.user, f.soda.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Empty(t, f.kv.data, "an empty cart is not stored")
}

func TestServiceCheckoutClearsCartOnSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.AddItem(ctx, f.user, f.burger.ID)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, f.user, f.burger.ID)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, f.user, f.soda.ID)
	require.NoError(t, err)

	res, err := f.svc.Checkout(ctx, CheckoutInput{UserID: f.user, Tax: decimal.NewFromInt(10), IdempotencyKey: "k-1"})
	require.NoError(t, err)
	assert.True(t, res.Receipt.Subtotal.Equal(decimal.NewFromInt(130)))
	assert.True(t, res.Receipt.Total.Equal(decimal.NewFromInt(140)))

	require.Len(t, f.orders.calls, 1)
	call := f.orders.calls[0]
	assert.Equal(t, "k-1", call.IdempotencyKey)
	require.NotNil(t, call.CreatedBy)
	assert.Equal(t, f.user, *call.CreatedBy)
	require.Len(t, call.Lines, 2)

	view, err := f.svc.Get(ctx, f.user)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Zero(t, view.ItemCount)
}

func TestServiceCheckoutKeepsCartOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.AddItem(ctx, f.user, f.soda.ID)
	require.NoError(t, err)
	f.orders.createFn = func(context.Context, orders.CreateOrderInput) (*orders.CreateOrderResult, error) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("db down"), "db: insert order")
	}

	_, err = f.svc.Checkout(ctx, CheckoutInput{UserID: f.user})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency), "got %v", err)

	view, err := f.svc.Get(ctx, f.user)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
}

func TestServiceCheckoutKeepsCartWhenReplayIsAnotherSale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.AddItem(ctx, f.user, f.soda.ID)
	require.NoError(t, err)

	earlier := &orders.OrderDTO{
		ID:    uuid.New(),
		Items: []orders.LineDTO{{ItemID: f.burger.ID, Name: "Burger", Qty: 1, SellPrice: decimal.NewFromInt(50)}},
	}
	f.orders.createFn = func(context.Context, orders.CreateOrderInput) (*orders.CreateOrderResult, error) {
		return &orders.CreateOrderResult{Order: earlier, Receipt: &orders.Receipt{OrderID: earlier.ID}, Replayed: true}, nil
	}

	_, err = f.svc.Checkout(ctx, CheckoutInput{UserID: f.user, IdempotencyKey: "k-1"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeIdempotency), "got %v", err)

	view, err := f.svc.Get(ctx, f.user)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, f.soda.ID, view.Items[0].ItemID)
}

func TestServiceCheckoutClearsCartOnMatchingReplay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.AddItem(ctx, f.user, f.soda.ID)
	require.NoError(t, err)

	same := &orders.OrderDTO{
		ID:    uuid.New(),
		Tax:   decimal.NewFromInt(2),
		Items: []orders.LineDTO{{ItemID: f.soda.ID, Name: "Soda", Qty: 1, SellPrice: decimal.NewFromInt(30)}},
	}
	f.orders.createFn = func(context.Context, orders.CreateOrderInput) (*orders.CreateOrderResult, error) {
		return &orders.CreateOrderResult{Order: same, Receipt: &orders.Receipt{OrderID: same.ID}, Replayed: true}, nil
	}

	res, err := f.svc.Checkout(ctx, CheckoutInput{UserID: f.user, Tax: decimal.NewFromInt(2), IdempotencyKey: "k-1"})
	require.NoError(t, err)
	assert.Equal(t, same.ID, res.Order.ID)

	view, err := f.svc.Get(ctx, f.user)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestServiceCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Checkout(context.Background(), CheckoutInput{UserID: f.user})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
	assert.Empty(t, f.orders.calls)
}
