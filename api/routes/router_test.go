package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/partnest/sparesync/pkg/auth"
	"github.com/partnest/sparesync/pkg/config"
	"github.com/partnest/sparesync/pkg/enums"
	"github.com/partnest/sparesync/pkg/metrics"
	"github.com/partnest/sparesync/pkg/types"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type stubService struct {
	advanced bool
}

func (s *stubService) Products(context.Context) ([]types.Product, error) { return nil, nil }
func (s *stubService) Cart(context.Context, uuid.UUID) (types.Cart, error) {
	return types.Cart{Items: []types.CartLine{}}, nil
}
func (s *stubService) AddItem(context.Context, uuid.UUID, uuid.UUID) (types.Cart, error) {
	return types.Cart{}, nil
}
func (s *stubService) SetQuantity(context.Context, uuid.UUID, uuid.UUID, int) (types.Cart, error) {
	return types.Cart{}, nil
}
func (s *stubService) RemoveItem(context.Context, uuid.UUID, uuid.UUID) (types.Cart, error) {
	return types.Cart{}, nil
}
func (s *stubService) PlaceOrder(context.Context, uuid.UUID, types.PlaceOrderRequest) (types.Order, error) {
	return types.Order{}, nil
}
func (s *stubService) CancelOrder(context.Context, uuid.UUID, uuid.UUID) (types.Order, error) {
	return types.Order{}, nil
}
func (s *stubService) ListOrders(context.Context, uuid.UUID, *enums.ShipmentStatus) ([]types.Order, error) {
	return nil, nil
}
func (s *stubService) AdvanceOrder(context.Context, uuid.UUID, enums.ShipmentStatus) (types.Order, error) {
	s.advanced = true
	return types.Order{}, nil
}
func (s *stubService) Wallet(context.Context, uuid.UUID) (types.Wallet, error) {
	return types.Wallet{}, nil
}
func (s *stubService) CreditWallet(context.Context, uuid.UUID, decimal.Decimal) (types.Wallet, error) {
	return types.Wallet{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: config.AppEnvDev},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "sparesync", ExpirationMinutes: 30},
	}
}

func bearer(t *testing.T, cfg *config.Config, role enums.MemberRole) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg.JWT, time.Now(), auth.AccessTokenPayload{UserID: uuid.New(), Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func TestHealthRoutes(t *testing.T) {
	cfg := testConfig()
	router := NewRouter(cfg, nil, Dependencies{DB: stubPinger{}, Redis: stubPinger{err: errors.New("down")}})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected live 200 got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusBadGateway && resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected ready to fail with redis down, got %d", resp.Code)
	}
}

func TestAPIRequiresAuth(t *testing.T) {
	router := NewRouter(testConfig(), nil, Dependencies{Service: &stubService{}})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCartRouteWithToken(t *testing.T) {
	cfg := testConfig()
	router := NewRouter(cfg, nil, Dependencies{Service: &stubService{}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", bearer(t, cfg, enums.MemberRoleBuyer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	cfg := testConfig()
	svc := &stubService{}
	router := NewRouter(cfg, nil, Dependencies{Service: svc})
	path := "/api/v1/admin/orders/" + uuid.NewString() + "/status"

	req := httptest.NewRequest(http.MethodPatch, path, strings.NewReader(`{"status":"processing"}`))
	req.Header.Set("Authorization", bearer(t, cfg, enums.MemberRoleBuyer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPatch, path, strings.NewReader(`{"status":"processing"}`))
	req.Header.Set("Authorization", bearer(t, cfg, enums.MemberRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !svc.advanced {
		t.Fatal("expected admin route to reach the service")
	}
}

func TestDevTokenOnlyOutsideProd(t *testing.T) {
	cfg := testConfig()
	router := NewRouter(cfg, nil, Dependencies{Service: &stubService{}})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/dev/token", strings.NewReader(`{"role":"buyer"}`)))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	var envelope struct {
		Data struct {
			AccessToken string `json:"accessToken"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, err := auth.ParseAccessToken(cfg.JWT, envelope.Data.AccessToken); err != nil {
		t.Fatalf("minted token does not parse: %v", err)
	}

	cfg.App.Env = config.AppEnvProd
	router = NewRouter(cfg, nil, Dependencies{Service: &stubService{}})
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/dev/token", strings.NewReader(`{"role":"buyer"}`)))
	if resp.Code != http.StatusNotFound && resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected dev token route to be absent in prod, got %d", resp.Code)
	}
}

func TestMetricsEndpointExposesRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	router := NewRouter(testConfig(), nil, Dependencies{
		Service:  &stubService{},
		Gatherer: reg,
		Metrics:  metrics.NewHTTPMetrics(reg),
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `route="/health/live"`) {
		t.Fatalf("expected route label in metrics output:\n%s", resp.Body.String())
	}
}
