package controllers

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/angelmondragon/pos-backend/internal/analytics"
	"github.com/angelmondragon/pos-backend/internal/auth"
	"github.com/angelmondragon/pos-backend/internal/cart"
	"github.com/angelmondragon/pos-backend/internal/items"
	"github.com/angelmondragon/pos-backend/internal/orders"
	"github.com/angelmondragon/pos-backend/internal/users"
)

type stubItemService struct {
	items.Service
	createFn         func(ctx context.Context, input items.CreateItemInput) (*items.ItemDTO, error)
	restockFn        func(ctx context.Context, id uuid.UUID, delta int) (*items.ItemDTO, error)
	deleteFn         func(ctx context.Context, id uuid.UUID) error
	deleteCategoryFn func(ctx context.Context, category string) (int64, error)
	importFn         func(ctx context.Context, r io.Reader) (*items.ImportResult, error)
}

func (s *stubItemService) Create(ctx context.Context, input items.CreateItemInput) (*items.ItemDTO, error) {
	return s.createFn(ctx, input)
}

func (s *stubItemService) Restock(ctx context.Context, id uuid.UUID, delta int) (*items.ItemDTO, error) {
	return s.restockFn(ctx, id, delta)
}

func (s *stubItemService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.deleteFn(ctx, id)
}

func (s *stubItemService) DeleteCategory(ctx context.Context, category string) (int64, error) {
	return s.deleteCategoryFn(ctx, category)
}

func (s *stubItemService) ImportWorkbook(ctx context.Context, r io.Reader) (*items.ImportResult, error) {
	return s.importFn(ctx, r)
}

type stubOrderService struct {
	orders.Service
	createFn func(ctx context.Context, input orders.CreateOrderInput) (*orders.CreateOrderResult, error)
	getFn    func(ctx context.Context, id uuid.UUID) (*orders.OrderDTO, error)
}

func (s *stubOrderService) CreateOrder(ctx context.Context, input orders.CreateOrderInput) (*orders.CreateOrderResult, error) {
	return s.createFn(ctx, input)
}

func (s *stubOrderService) GetOrder(ctx context.Context, id uuid.UUID) (*orders.OrderDTO, error) {
	return s.getFn(ctx, id)
}

type stubCartService struct {
	cart.Service
	updateFn   func(ctx context.Context, userID, itemID uuid.UUID, qty int) (*cart.View, error)
	checkoutFn func(ctx context.Context, input cart.CheckoutInput) (*orders.CreateOrderResult, error)
}

func (s *stubCartService) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, qty int) (*cart.View, error) {
	return s.updateFn(ctx, userID, itemID, qty)
}

func (s *stubCartService) Checkout(ctx context.Context, input cart.CheckoutInput) (*orders.CreateOrderResult, error) {
	return s.checkoutFn(ctx, input)
}

type stubAnalyticsService struct {
	analytics.Service
	exportFn func(ctx context.Context, w io.Writer) error
}

func (s *stubAnalyticsService) ExportWorkbook(ctx context.Context, w io.Writer) error {
	return s.exportFn(ctx, w)
}

type stubAuthService struct {
	auth.Service
	logoutFn func(ctx context.Context, accessID string) error
	meFn     func(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error)
}

func (s *stubAuthService) Logout(ctx context.Context, accessID string) error {
	return s.logoutFn(ctx, accessID)
}

func (s *stubAuthService) Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	return s.meFn(ctx, userID)
}
