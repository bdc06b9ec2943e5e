package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pos-backend/api/middleware"
	"github.com/angelmondragon/pos-backend/internal/cart"
	"github.com/angelmondragon/pos-backend/internal/items"
	"github.com/angelmondragon/pos-backend/internal/orders"
	"github.com/angelmondragon/pos-backend/internal/users"
	"github.com/angelmondragon/pos-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/logger"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func withRouteParams(req *http.Request, params map[string]string) *http.Request {
	routeCtx := chi.NewRouteContext()
	for k, v := range params {
		routeCtx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func withUser(req *http.Request, userID uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func TestCreateItem(t *testing.T) {
	logg := logger.Nop()
	var captured items.CreateItemInput
	svc := &stubItemService{createFn: func(_ context.Context, input items.CreateItemInput) (*items.ItemDTO, error) {
		captured = input
		return &items.ItemDTO{ID: uuid.New(), Name: input.Name, Category: "General", SellPrice: *input.SellPrice}, nil
	}}

	t.Run("created", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(`{"name":"  Burger ","sell_price":"50.00","stock":20}`))
		rec := httptest.NewRecorder()
		CreateItem(svc, logg).ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, "Burger", captured.Name)
		require.NotNil(t, captured.Stock)
		assert.Equal(t, 20, *captured.Stock)
		assert.True(t, captured.SellPrice.Equal(decimal.NewFromInt(50)))
	})

	t.Run("missing sell price", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(`{"name":"Burger"}`))
		rec := httptest.NewRecorder()
		CreateItem(svc, logg).ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, string(pkgerrors.CodeValidation), decodeEnvelope(t, rec).Error.Code)
	})

	t.Run("unknown field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(`{"name":"Burger","sell_price":"1","colour":"red"}`))
		rec := httptest.NewRecorder()
		CreateItem(svc, logg).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRestockItemPassesDelta(t *testing.T) {
	itemID := uuid.New()
	svc := &stubItemService{restockFn: func(_ context.Context, id uuid.UUID, delta int) (*items.ItemDTO, error) {
		if id != itemID {
			t.Fatalf("unexpected id %s", id)
		}
		if delta <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "restock quantity must be positive")
		}
		return &items.ItemDTO{ID: id, Stock: 5 + delta}, nil
	}}

	req := withRouteParams(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"qty":10}`)), map[string]string{"itemId": itemID.String()})
	rec := httptest.NewRecorder()
	RestockItem(svc, logger.Nop()).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = withRouteParams(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"qty":0}`)), map[string]string{"itemId": itemID.String()})
	rec = httptest.NewRecorder()
	RestockItem(svc, logger.Nop()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteItem(t *testing.T) {
	logg := logger.Nop()
	svc := &stubItemService{deleteFn: func(_ context.Context, id uuid.UUID) error {
		return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}}

	t.Run("invalid id", func(t *testing.T) {
		req := withRouteParams(httptest.NewRequest(http.MethodDelete, "/", nil), map[string]string{"itemId": "not-a-uuid"})
		rec := httptest.NewRecorder()
		DeleteItem(svc, logg).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing item", func(t *testing.T) {
		req := withRouteParams(httptest.NewRequest(http.MethodDelete, "/", nil), map[string]string{"itemId": uuid.NewString()})
		rec := httptest.NewRecorder()
		DeleteItem(svc, logg).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("deleted", func(t *testing.T) {
		ok := &stubItemService{deleteFn: func(context.Context, uuid.UUID) error { return nil }}
		req := withRouteParams(httptest.NewRequest(http.MethodDelete, "/", nil), map[string]string{"itemId": uuid.NewString()})
		rec := httptest.NewRecorder()
		DeleteItem(ok, logg).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestDeleteCategoryDecodesNameOnce(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"encoded space", "/api/items/categories/Hot%20Drinks", "Hot Drinks"},
		{"literal percent", "/api/items/categories/50%25Off", "50%Off"},
		{"encoded slash", "/api/items/categories/Tea%2FCoffee", "Tea/Coffee"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			svc := &stubItemService{deleteCategoryFn: func(_ context.Context, category string) (int64, error) {
				got = category
				return 3, nil
			}}
			router := chi.NewRouter()
			router.Delete("/api/items/categories/{category}", DeleteCategory(svc, logger.Nop()))

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, tt.path, nil))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, got)
			var data struct {
				Category string `json:"category"`
				Deleted  int64  `json:"deleted"`
			}
			require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &data))
			assert.Equal(t, tt.want, data.Category)
			assert.EqualValues(t, 3, data.Deleted)
		})
	}
}

func TestImportItemsReadsMultipartFile(t *testing.T) {
	var received []byte
	svc := &stubItemService{importFn: func(_ context.Context, r io.Reader) (*items.ImportResult, error) {
		received, _ = io.ReadAll(r)
		return &items.ImportResult{Created: 1}, nil
	}}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", "catalog.xlsx")
	require.NoError(t, err)
	_, _ = part.Write([]byte("workbook-bytes"))
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/items/import", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	ImportItems(svc, logger.Nop()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "workbook-bytes", string(received))

	req = httptest.NewRequest(http.MethodPost, "/api/items/import", strings.NewReader("nope"))
	rec = httptest.NewRecorder()
	ImportItems(svc, logger.Nop()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrder(t *testing.T) {
	logg := logger.Nop()
	userID := uuid.New()
	itemID := uuid.New()
	var captured orders.CreateOrderInput
	replay := false
	svc := &stubOrderService{createFn: func(_ context.Context, input orders.CreateOrderInput) (*orders.CreateOrderResult, error) {
		captured = input
		order := &orders.OrderDTO{ID: uuid.New(), Total: decimal.NewFromInt(140)}
		return &orders.CreateOrderResult{Order: order, Receipt: &orders.Receipt{OrderID: order.ID}, Replayed: replay}, nil
	}}
	body := `{"items":[{"item_id":"` + itemID.String() + `","name":"Burger","qty":2,"sell_price":"50"}],"tax":"10","total":"110"}`

	t.Run("requires user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
		rec := httptest.NewRecorder()
		CreateOrder(svc, logg).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("created", func(t *testing.T) {
		req := withUser(httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body)), userID)
		req.Header.Set(middleware.IdempotencyHeader, " sale-1 ")
		rec := httptest.NewRecorder()
		CreateOrder(svc, logg).ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		require.Len(t, captured.Lines, 1)
		assert.Equal(t, itemID, captured.Lines[0].ItemID)
		assert.Equal(t, 2, captured.Lines[0].Qty)
		assert.True(t, captured.Tax.Equal(decimal.NewFromInt(10)))
		require.NotNil(t, captured.Total)
		assert.True(t, captured.Total.Equal(decimal.NewFromInt(110)))
		assert.Equal(t, "sale-1", captured.IdempotencyKey)
		require.NotNil(t, captured.CreatedBy)
		assert.Equal(t, userID, *captured.CreatedBy)
	})

	t.Run("replayed answers 200", func(t *testing.T) {
		replay = true
		defer func() { replay = false }()
		req := withUser(httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body)), userID)
		rec := httptest.NewRecorder()
		CreateOrder(svc, logg).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("service validation", func(t *testing.T) {
		failing := &stubOrderService{createFn: func(context.Context, orders.CreateOrderInput) (*orders.CreateOrderResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no items")
		}}
		req := withUser(httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{"items":[],"tax":"0"}`)), userID)
		rec := httptest.NewRecorder()
		CreateOrder(failing, logg).ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "order has no items", decodeEnvelope(t, rec).Error.Message)
	})

	t.Run("store failure", func(t *testing.T) {
		failing := &stubOrderService{createFn: func(context.Context, orders.CreateOrderInput) (*orders.CreateOrderResult, error) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("conn reset"), "db: create order")
		}}
		req := withUser(httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body)), userID)
		rec := httptest.NewRecorder()
		CreateOrder(failing, logg).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestGetOrderNotFound(t *testing.T) {
	svc := &stubOrderService{getFn: func(context.Context, uuid.UUID) (*orders.OrderDTO, error) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}}
	req := withRouteParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"orderId": uuid.NewString()})
	rec := httptest.NewRecorder()
	GetOrder(svc, logger.Nop()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCartEndpoints(t *testing.T) {
	userID := uuid.New()
	itemID := uuid.New()

	t.Run("update quantity", func(t *testing.T) {
		var gotQty int
		svc := &stubCartService{updateFn: func(_ context.Context, uid, iid uuid.UUID, qty int) (*cart.View, error) {
			assert.Equal(t, userID, uid)
			assert.Equal(t, itemID, iid)
			gotQty = qty
			return cart.NewView(cart.New()), nil
		}}
		req := withRouteParams(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"qty":0}`)), map[string]string{"itemId": itemID.String()})
		req = withUser(req, userID)
		rec := httptest.NewRecorder()
		UpdateCartItem(svc, logger.Nop()).ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, 0, gotQty)
	})

	t.Run("negative quantity reaches the engine", func(t *testing.T) {
		gotQty := 99
		engine := cart.New()
		engine.Add(cart.CatalogItem{ID: itemID, Name: "Soda", SellPrice: decimal.NewFromInt(30)})
		svc := &stubCartService{updateFn: func(_ context.Context, _, iid uuid.UUID, qty int) (*cart.View, error) {
			gotQty = qty
			engine.UpdateQuantity(iid, qty)
			return cart.NewView(engine), nil
		}}
		req := withRouteParams(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"qty":-2}`)), map[string]string{"itemId": itemID.String()})
		req = withUser(req, userID)
		rec := httptest.NewRecorder()
		UpdateCartItem(svc, logger.Nop()).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, -2, gotQty)
		assert.True(t, engine.IsEmpty())
	})

	t.Run("missing quantity", func(t *testing.T) {
		called := false
		svc := &stubCartService{updateFn: func(context.Context, uuid.UUID, uuid.UUID, int) (*cart.View, error) {
			called = true
			return nil, nil
		}}
		req := withRouteParams(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{}`)), map[string]string{"itemId": itemID.String()})
		req = withUser(req, userID)
		rec := httptest.NewRecorder()
		UpdateCartItem(svc, logger.Nop()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, called)
	})

	t.Run("checkout", func(t *testing.T) {
		var captured cart.CheckoutInput
		svc := &stubCartService{checkoutFn: func(_ context.Context, input cart.CheckoutInput) (*orders.CreateOrderResult, error) {
			captured = input
			return &orders.CreateOrderResult{Order: &orders.OrderDTO{ID: uuid.New()}, Receipt: &orders.Receipt{}}, nil
		}}
		req := withUser(httptest.NewRequest(http.MethodPost, "/api/cart/checkout", strings.NewReader(`{"tax":"2.50"}`)), userID)
		req.Header.Set(middleware.IdempotencyHeader, "till-7")
		rec := httptest.NewRecorder()
		CheckoutCart(svc, logger.Nop()).ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, userID, captured.UserID)
		assert.Equal(t, "till-7", captured.IdempotencyKey)
		assert.True(t, captured.Tax.Equal(decimal.RequireFromString("2.5")))
		assert.Nil(t, captured.Total)
	})
}

func TestAnalyticsExportHeaders(t *testing.T) {
	svc := &stubAnalyticsService{exportFn: func(_ context.Context, w io.Writer) error {
		_, err := w.Write([]byte("PK-xlsx"))
		return err
	}}
	rec := httptest.NewRecorder()
	AnalyticsExport(svc, logger.Nop()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "pos-report-")
	assert.Equal(t, "PK-xlsx", rec.Body.String())

	failing := &stubAnalyticsService{exportFn: func(context.Context, io.Writer) error {
		return pkgerrors.New(pkgerrors.CodeDependency, "db: list orders")
	}}
	rec = httptest.NewRecorder()
	AnalyticsExport(failing, logger.Nop()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

type recordingPrinter struct {
	jobs [][]byte
	err  error
}

func (p *recordingPrinter) Print(_ context.Context, job []byte) error {
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, job)
	return nil
}

func TestPrintReceipt(t *testing.T) {
	body := `{"receipt":{"cart":[{"item_id":"` + uuid.NewString() + `","name":"Burger","category":"Mains","qty":2,"sell_price":"50","line_total":"100"}],` +
		`"subtotal":"100","tax":"10","total":"110","order_id":"` + uuid.NewString() + `","timestamp":"2026-05-02T13:45:00Z"},"use_server_print":true}`

	t.Run("no printer configured", func(t *testing.T) {
		rec := httptest.NewRecorder()
		PrintReceipt(nil, "RECEIPT", logger.Nop()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"printed":false,"client_print":true}`, string(decodeEnvelope(t, rec).Data))
	})

	t.Run("server print", func(t *testing.T) {
		device := &recordingPrinter{}
		rec := httptest.NewRecorder()
		PrintReceipt(device, "Corner Diner", logger.Nop()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.Len(t, device.jobs, 1)
		assert.Contains(t, string(device.jobs[0]), "Corner Diner")
		assert.Contains(t, string(device.jobs[0]), "2x Burger")
	})

	t.Run("printer offline", func(t *testing.T) {
		device := &recordingPrinter{err: errors.New("connection refused")}
		rec := httptest.NewRecorder()
		PrintReceipt(device, "", logger.Nop()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}

	rec := httptest.NewRecorder()
	HealthReady(cfg, logger.Nop(), map[string]Pinger{"db": stubPinger{}, "redis": stubPinger{}}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	HealthReady(cfg, logger.Nop(), map[string]Pinger{"db": stubPinger{}, "redis": stubPinger{err: errors.New("down")}}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-POS-Env"))
}

func TestAuthLogoutAndMe(t *testing.T) {
	userID := uuid.New()
	var revoked string
	svc := &stubAuthService{
		logoutFn: func(_ context.Context, accessID string) error {
			revoked = accessID
			return nil
		},
		meFn: func(_ context.Context, id uuid.UUID) (*users.UserDTO, error) {
			return &users.UserDTO{ID: id, Email: "cashier@example.com", CreatedAt: time.Now()}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req = req.WithContext(middleware.WithAccessID(req.Context(), "jti-1"))
	rec := httptest.NewRecorder()
	AuthLogout(svc, logger.Nop()).ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "jti-1", revoked)

	rec = httptest.NewRecorder()
	AuthMe(svc, logger.Nop()).ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), userID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), userID.String())
}
