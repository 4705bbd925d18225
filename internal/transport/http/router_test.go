package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/namoruso/inventory/internal/auth"
	"github.com/namoruso/inventory/internal/domain"
	"github.com/namoruso/inventory/internal/repository"
	"github.com/namoruso/inventory/internal/service"
	"github.com/namoruso/inventory/internal/stock"
	"github.com/namoruso/inventory/internal/transport/http/handler"
	"github.com/namoruso/inventory/internal/validator"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "router-secret"

// stubService answers from canned functions; nil functions fail the test.
type stubService struct {
	t *testing.T

	create   func(*domain.InventoryPayload) (*domain.CreatedProduct, error)
	findByID func(int64) (*domain.Product, error)
	list     func() ([]domain.Product, error)
	adjust   func(int64, string, int64) (*domain.StockChange, error)
	delete   func(int64) error
}

var _ service.InventoryService = (*stubService)(nil)

func (s *stubService) Create(_ context.Context, p *domain.InventoryPayload) (*domain.CreatedProduct, error) {
	require.NotNil(s.t, s.create, "unexpected Create")
	return s.create(p)
}

func (s *stubService) FindByID(_ context.Context, id int64) (*domain.Product, error) {
	require.NotNil(s.t, s.findByID, "unexpected FindByID")
	return s.findByID(id)
}

func (s *stubService) FindBySKU(_ context.Context, _ string) (*domain.Product, error) {
	return nil, repository.ErrProductNotFound
}

func (s *stubService) ListActive(_ context.Context) ([]domain.Product, error) {
	require.NotNil(s.t, s.list, "unexpected ListActive")
	return s.list()
}

func (s *stubService) Update(_ context.Context, _ int64, _ *domain.InventoryPayload) (*domain.Product, error) {
	s.t.Fatal("unexpected Update")
	return nil, nil
}

func (s *stubService) AdjustStock(_ context.Context, id int64, mode string, quantity int64) (*domain.StockChange, error) {
	require.NotNil(s.t, s.adjust, "unexpected AdjustStock")
	return s.adjust(id, mode, quantity)
}

func (s *stubService) Delete(_ context.Context, id int64) error {
	require.NotNil(s.t, s.delete, "unexpected Delete")
	return s.delete(id)
}

func newTestApp(t *testing.T, svc *stubService) *fiber.App {
	t.Helper()

	authenticator, err := auth.NewAuthenticator(testSecret)
	require.NoError(t, err)

	logger := zap.NewNop()
	app := fiber.New()
	RegisterRoutes(app, &Handlers{
		Inventory: handler.NewInventoryHandler(svc, time.Second, logger),
	}, authenticator, nil, logger)

	return app
}

func tokenFor(t *testing.T, role string, exp time.Time) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{
		Email:    "ops@example.com",
		RoleName: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "7",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	return token
}

type request struct {
	method      string
	path        string
	token       string
	body        string
	contentType string
}

func do(t *testing.T, app *fiber.App, r request) (int, map[string]any) {
	t.Helper()

	var body io.Reader
	if r.body != "" {
		body = strings.NewReader(r.body)
	}

	req := httptest.NewRequest(r.method, r.path, body)
	if r.token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+r.token)
	}
	if r.contentType != "" {
		req.Header.Set(fiber.HeaderContentType, r.contentType)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}

	return resp.StatusCode, decoded
}

func TestHealth_NoAuth(t *testing.T) {
	app := newTestApp(t, &stubService{t: t})

	status, _ := do(t, app, request{method: fiber.MethodGet, path: "/health"})
	require.Equal(t, fiber.StatusOK, status)
}

func TestAuthentication(t *testing.T) {
	app := newTestApp(t, &stubService{t: t})

	otherSecret, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{
		RoleName:         "admin",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "7", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("other"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		message string
	}{
		{name: "missing", token: "", message: "Unauthorized: missing token"},
		{name: "expired", token: tokenFor(t, "admin", time.Now().Add(-time.Minute)), message: "Unauthorized: token expired"},
		{name: "bad signature", token: otherSecret, message: "Unauthorized: invalid token signature"},
		{name: "garbage", token: "not.a.jwt", message: "Unauthorized: invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, app, request{method: fiber.MethodGet, path: "/api/inventory/all", token: tt.token})
			require.Equal(t, fiber.StatusUnauthorized, status)
			require.Equal(t, tt.message, body["error"])
		})
	}
}

func TestAuthorization_UserCannotManage(t *testing.T) {
	app := newTestApp(t, &stubService{t: t})
	token := tokenFor(t, "user", time.Now().Add(time.Hour))

	requests := []request{
		{method: fiber.MethodPost, path: "/api/inventory/add", body: `{"name":"Widget","maximun":5}`, contentType: fiber.MIMEApplicationJSON},
		{method: fiber.MethodPut, path: "/api/inventory/update/1", body: `{"name":"Widget","maximun":5}`, contentType: fiber.MIMEApplicationJSON},
		{method: fiber.MethodDelete, path: "/api/inventory/delete/1"},
	}

	for _, r := range requests {
		r.token = token
		status, body := do(t, app, r)
		require.Equal(t, fiber.StatusForbidden, status, r.path)
		require.Equal(t, "Forbidden: insufficient role", body["error"])
	}
}

func TestAuthorization_UnknownRoleDenied(t *testing.T) {
	app := newTestApp(t, &stubService{t: t})

	status, _ := do(t, app, request{
		method: fiber.MethodGet,
		path:   "/api/inventory/all",
		token:  tokenFor(t, "Admin", time.Now().Add(time.Hour)),
	})
	require.Equal(t, fiber.StatusForbidden, status)
}

func TestListActive(t *testing.T) {
	svc := &stubService{t: t, list: func() ([]domain.Product, error) {
		return []domain.Product{{ID: 1, Name: "Widget", Stock: 2, Maximum: 5, Active: true}}, nil
	}}
	app := newTestApp(t, svc)

	req := httptest.NewRequest(fiber.MethodGet, "/api/inventory/all", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+tokenFor(t, "user", time.Now().Add(time.Hour)))

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var products []domain.Product
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&products))
	require.Len(t, products, 1)
	require.Equal(t, "Widget", products[0].Name)
}

func TestFindByID(t *testing.T) {
	svc := &stubService{t: t, findByID: func(id int64) (*domain.Product, error) {
		if id == 1 {
			return &domain.Product{ID: 1, Name: "Widget", Minimum: 2, Maximum: 10, Active: true}, nil
		}
		return nil, repository.ErrProductNotFound
	}}
	app := newTestApp(t, svc)
	token := tokenFor(t, "user", time.Now().Add(time.Hour))

	status, body := do(t, app, request{method: fiber.MethodGet, path: "/api/inventory/1", token: token})
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "Widget", body["name"])
	require.Equal(t, float64(2), body["minimun"])
	require.Equal(t, float64(10), body["maximun"])

	status, body = do(t, app, request{method: fiber.MethodGet, path: "/api/inventory/2", token: token})
	require.Equal(t, fiber.StatusNotFound, status)
	require.Equal(t, "non-existent product", body["error"])

	status, _ = do(t, app, request{method: fiber.MethodGet, path: "/api/inventory/abc", token: token})
	require.Equal(t, fiber.StatusBadRequest, status)
}

func TestCreate(t *testing.T) {
	var received *domain.InventoryPayload
	svc := &stubService{t: t, create: func(p *domain.InventoryPayload) (*domain.CreatedProduct, error) {
		received = p
		if p.SKU != nil && *p.SKU == "DUP" {
			return nil, fmt.Errorf("%w: duplicate key", repository.ErrDuplicateSKU)
		}
		if p.Maximum != nil && *p.Maximum <= 0 {
			return nil, validator.ErrNonPositiveMaximum
		}
		return &domain.CreatedProduct{ID: 9, Name: p.Name, SKU: p.SKU}, nil
	}}
	app := newTestApp(t, svc)
	token := tokenFor(t, "admin", time.Now().Add(time.Hour))

	status, body := do(t, app, request{
		method: fiber.MethodPost, path: "/api/inventory/add", token: token,
		body: `{"name":"Widget","sku":"W-1","minimun":5,"maximun":20}`, contentType: fiber.MIMEApplicationJSON,
	})
	require.Equal(t, fiber.StatusCreated, status)
	require.Equal(t, float64(9), body["id"])
	require.Equal(t, "W-1", body["sku"])
	require.NotNil(t, received.Minimum)
	require.NotNil(t, received.Maximum)
	require.Equal(t, int64(5), *received.Minimum)
	require.Equal(t, int64(20), *received.Maximum)

	status, body = do(t, app, request{
		method: fiber.MethodPost, path: "/api/inventory/add", token: token,
		body: `{"name":"Widget","sku":"DUP","maximun":20}`, contentType: fiber.MIMEApplicationJSON,
	})
	require.Equal(t, fiber.StatusConflict, status)
	require.Equal(t, "existing SKU", body["error"])

	status, _ = do(t, app, request{
		method: fiber.MethodPost, path: "/api/inventory/add", token: token,
		body: `{"name":"Bolt","minimun":0,"maximun":0}`, contentType: fiber.MIMEApplicationJSON,
	})
	require.Equal(t, fiber.StatusBadRequest, status)

	status, _ = do(t, app, request{
		method: fiber.MethodPost, path: "/api/inventory/add", token: token,
		body: `{"name":"Widget","maximun":"many"}`, contentType: fiber.MIMEApplicationJSON,
	})
	require.Equal(t, fiber.StatusBadRequest, status)

	status, _ = do(t, app, request{
		method: fiber.MethodPost, path: "/api/inventory/add", token: token,
		body: `name=Widget`, contentType: fiber.MIMEApplicationForm,
	})
	require.Equal(t, fiber.StatusUnsupportedMediaType, status)
}

func TestAdjustStock(t *testing.T) {
	svc := &stubService{t: t, adjust: func(id int64, mode string, quantity int64) (*domain.StockChange, error) {
		switch {
		case mode != "increase" && mode != "decrease":
			return nil, stock.ErrUnknownDirection
		case mode == "increase" && quantity > 2:
			return nil, &repository.RejectedError{Err: stock.ErrMaximumExceeded}
		case id == 404:
			return nil, repository.ErrProductNotFound
		}
		return &domain.StockChange{ID: id, Name: "Widget", PreviousStock: 8, Stock: 8 - quantity}, nil
	}}
	app := newTestApp(t, svc)
	token := tokenFor(t, "user", time.Now().Add(time.Hour))

	adjust := func(path, body string) (int, map[string]any) {
		return do(t, app, request{method: fiber.MethodPut, path: path, token: token, body: body, contentType: fiber.MIMEApplicationJSON})
	}

	status, body := adjust("/api/inventory/update/1/decrease", `{"update":5}`)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, float64(3), body["stock"])

	status, body = adjust("/api/inventory/update/1/increase", `{"update":3}`)
	require.Equal(t, fiber.StatusBadRequest, status)
	require.Equal(t, stock.ErrMaximumExceeded.Error(), body["error"])

	status, _ = adjust("/api/inventory/update/1/sideways", `{"update":1}`)
	require.Equal(t, fiber.StatusBadRequest, status)

	status, _ = adjust("/api/inventory/update/404/decrease", `{"update":1}`)
	require.Equal(t, fiber.StatusNotFound, status)

	status, _ = adjust("/api/inventory/update/1/decrease", `{}`)
	require.Equal(t, fiber.StatusBadRequest, status)
}

func TestDelete_StoreFailureIsGeneric(t *testing.T) {
	svc := &stubService{t: t, delete: func(int64) error {
		return fmt.Errorf("error deleting product: %w", errors.New("relation \"inventory\" is locked"))
	}}
	app := newTestApp(t, svc)

	status, body := do(t, app, request{
		method: fiber.MethodDelete,
		path:   "/api/inventory/delete/3",
		token:  tokenFor(t, "admin", time.Now().Add(time.Hour)),
	})
	require.Equal(t, fiber.StatusInternalServerError, status)
	require.Equal(t, "internal error", body["error"])
}

func TestDelete_Unavailable(t *testing.T) {
	svc := &stubService{t: t, delete: func(int64) error {
		return fmt.Errorf("error deleting product: %w", repository.ErrUnavailable)
	}}
	app := newTestApp(t, svc)

	status, _ := do(t, app, request{
		method: fiber.MethodDelete,
		path:   "/api/inventory/delete/3",
		token:  tokenFor(t, "admin", time.Now().Add(time.Hour)),
	})
	require.Equal(t, fiber.StatusServiceUnavailable, status)
}
