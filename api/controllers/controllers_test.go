package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/partnest/sparesync/api/middleware"
	"github.com/partnest/sparesync/pkg/enums"
	pkgerrors "github.com/partnest/sparesync/pkg/errors"
	"github.com/partnest/sparesync/pkg/types"
)

type stubService struct {
	cart    types.Cart
	order   types.Order
	orders  []types.Order
	catalog []types.Product
	wallet  types.Wallet
	err     error

	lastUser     uuid.UUID
	lastProduct  uuid.UUID
	lastQuantity int
	lastStatus   *enums.ShipmentStatus
	lastPlace    types.PlaceOrderRequest
	lastAmount   decimal.Decimal
	lastAdvance  enums.ShipmentStatus
}

func (s *stubService) Products(context.Context) ([]types.Product, error) {
	return s.catalog, s.err
}

func (s *stubService) Cart(_ context.Context, userID uuid.UUID) (types.Cart, error) {
	s.lastUser = userID
	return s.cart, s.err
}

func (s *stubService) AddItem(_ context.Context, userID, productID uuid.UUID) (types.Cart, error) {
	s.lastUser, s.lastProduct = userID, productID
	return s.cart, s.err
}

func (s *stubService) SetQuantity(_ context.Context, userID, productID uuid.UUID, quantity int) (types.Cart, error) {
	s.lastUser, s.lastProduct, s.lastQuantity = userID, productID, quantity
	return s.cart, s.err
}

func (s *stubService) RemoveItem(_ context.Context, userID, productID uuid.UUID) (types.Cart, error) {
	s.lastUser, s.lastProduct = userID, productID
	return s.cart, s.err
}

func (s *stubService) PlaceOrder(_ context.Context, userID uuid.UUID, req types.PlaceOrderRequest) (types.Order, error) {
	s.lastUser, s.lastPlace = userID, req
	return s.order, s.err
}

func (s *stubService) CancelOrder(_ context.Context, userID, orderID uuid.UUID) (types.Order, error) {
	s.lastUser = userID
	return s.order, s.err
}

func (s *stubService) ListOrders(_ context.Context, userID uuid.UUID, status *enums.ShipmentStatus) ([]types.Order, error) {
	s.lastUser, s.lastStatus = userID, status
	return s.orders, s.err
}

func (s *stubService) AdvanceOrder(_ context.Context, orderID uuid.UUID, status enums.ShipmentStatus) (types.Order, error) {
	s.lastAdvance = status
	return s.order, s.err
}

func (s *stubService) Wallet(_ context.Context, userID uuid.UUID) (types.Wallet, error) {
	s.lastUser = userID
	return s.wallet, s.err
}

func (s *stubService) CreditWallet(_ context.Context, userID uuid.UUID, amount decimal.Decimal) (types.Wallet, error) {
	s.lastUser, s.lastAmount = userID, amount
	return s.wallet, s.err
}

func authed(req *http.Request, userID uuid.UUID, role enums.MemberRole) *http.Request {
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithRole(ctx, role)
	return req.WithContext(ctx)
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var envelope types.ErrorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return envelope.Error
}

func TestCartFetchRequiresUser(t *testing.T) {
	handler := CartFetch(&stubService{}, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCartFetchSuccess(t *testing.T) {
	userID := uuid.New()
	productID := uuid.New()
	svc := &stubService{cart: types.Cart{
		Items:       []types.CartLine{{SparePartID: productID, Quantity: 2, SubTotal: decimal.NewFromInt(20)}},
		TotalAmount: decimal.NewFromInt(20),
	}}
	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil), userID, enums.MemberRoleBuyer)
	resp := httptest.NewRecorder()
	CartFetch(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data types.Cart `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Items) != 1 || envelope.Data.Items[0].SparePartID != productID {
		t.Fatalf("unexpected cart %+v", envelope.Data)
	}
	if svc.lastUser != userID {
		t.Fatalf("expected user %s got %s", userID, svc.lastUser)
	}
}

func TestCartAddItemConflictCarriesDetails(t *testing.T) {
	productID := uuid.New()
	svc := &stubService{err: pkgerrors.New(pkgerrors.CodeConflict, "not enough stock").
		WithDetails(map[string]any{"productIds": []string{productID.String()}})}
	body := fmt.Sprintf(`{"productId":"%s"}`, productID)
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body)), uuid.New(), enums.MemberRoleBuyer)
	resp := httptest.NewRecorder()
	CartAddItem(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	apiErr := decodeError(t, resp)
	if apiErr.Code != string(pkgerrors.CodeConflict) || apiErr.Details == nil {
		t.Fatalf("unexpected error %+v", apiErr)
	}
	if svc.lastProduct != productID {
		t.Fatalf("expected product %s got %s", productID, svc.lastProduct)
	}
}

func TestCartSetQuantityValidatesBody(t *testing.T) {
	svc := &stubService{}
	body := fmt.Sprintf(`{"productId":"%s","quantity":0}`, uuid.New())
	req := authed(httptest.NewRequest(http.MethodPatch, "/api/v1/cart/items", strings.NewReader(body)), uuid.New(), enums.MemberRoleBuyer)
	resp := httptest.NewRecorder()
	CartSetQuantity(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.lastQuantity != 0 || svc.lastProduct != uuid.Nil {
		t.Fatal("service should not be called on invalid body")
	}
}

func TestCartRemoveItemSuccess(t *testing.T) {
	svc := &stubService{}
	productID := uuid.New()
	body := fmt.Sprintf(`{"productId":"%s"}`, productID)
	req := authed(httptest.NewRequest(http.MethodPatch, "/api/v1/cart/items/remove", strings.NewReader(body)), uuid.New(), enums.MemberRoleBuyer)
	resp := httptest.NewRecorder()
	CartRemoveItem(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastProduct != productID {
		t.Fatalf("expected product %s got %s", productID, svc.lastProduct)
	}
}

func TestOrderPlaceReturnsCreated(t *testing.T) {
	orderID := uuid.New()
	svc := &stubService{order: types.Order{ID: orderID, ShipmentStatus: enums.ShipmentStatusPending}}
	body := `{"shippingAddress":{"houseNo":"12","street":"Main","postalCode":"10001","city":"Lagos","state":"LA"},"paymentMethod":"cash_on_delivery"}`
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body)), uuid.New(), enums.MemberRoleBuyer)
	resp := httptest.NewRecorder()
	OrderPlace(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if svc.lastPlace.PaymentMethod != enums.PaymentMethodCashOnDelivery {
		t.Fatalf("unexpected payment method %q", svc.lastPlace.PaymentMethod)
	}
	if svc.lastPlace.ShippingAddress.City != "Lagos" {
		t.Fatalf("unexpected address %+v", svc.lastPlace.ShippingAddress)
	}
}

func TestOrderPlaceRejectsMissingAddress(t *testing.T) {
	svc := &stubService{}
	body := `{"paymentMethod":"wallet"}`
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body)), uuid.New(), enums.MemberRoleBuyer)
	resp := httptest.NewRecorder()
	OrderPlace(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if apiErr := decodeError(t, resp); apiErr.Code != string(pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error got %s", apiErr.Code)
	}
}

func TestOrderPlaceStockConflict(t *testing.T) {
	svc := &stubService{err: pkgerrors.New(pkgerrors.CodeStockConflict, "insufficient stock")}
	body := `{"shippingAddress":{"houseNo":"1","street":"A","postalCode":"1","city":"B","state":"C"},"paymentMethod":"wallet"}`
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body)), uuid.New(), enums.MemberRoleBuyer)
	resp := httptest.NewRecorder()
	OrderPlace(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	if apiErr := decodeError(t, resp); apiErr.Code != string(pkgerrors.CodeStockConflict) {
		t.Fatalf("expected stock conflict got %s", apiErr.Code)
	}
}

func TestOrderListFilter(t *testing.T) {
	svc := &stubService{}
	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/orders?status=Shipped", nil), uuid.New(), enums.MemberRoleBuyer)
	resp := httptest.NewRecorder()
	OrderList(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastStatus == nil || *svc.lastStatus != enums.ShipmentStatusShipped {
		t.Fatalf("expected shipped filter got %v", svc.lastStatus)
	}
	if !strings.Contains(resp.Body.String(), `"data":[]`) {
		t.Fatalf("expected empty list got %s", resp.Body.String())
	}

	resp = httptest.NewRecorder()
	req = authed(httptest.NewRequest(http.MethodGet, "/api/v1/orders?status=lost", nil), uuid.New(), enums.MemberRoleBuyer)
	OrderList(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestOrderCancelPassesOrderID(t *testing.T) {
	orderID := uuid.New()
	svc := &stubService{order: types.Order{ID: orderID, ShipmentStatus: enums.ShipmentStatusCancelled}}
	body := fmt.Sprintf(`{"orderId":"%s"}`, orderID)
	req := authed(httptest.NewRequest(http.MethodPatch, "/api/v1/orders", strings.NewReader(body)), uuid.New(), enums.MemberRoleBuyer)
	resp := httptest.NewRecorder()
	OrderCancel(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestProductListFiltersForSeller(t *testing.T) {
	seller := uuid.New()
	svc := &stubService{catalog: []types.Product{
		{ID: uuid.New(), SellerID: seller, Name: "Brake pad"},
		{ID: uuid.New(), SellerID: uuid.New(), Name: "Spark plug"},
	}}
	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/products", nil), seller, enums.MemberRoleSeller)
	resp := httptest.NewRecorder()
	ProductList(svc, nil).ServeHTTP(resp, req)

	var envelope struct {
		Data []types.Product `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 1 || envelope.Data[0].Name != "Brake pad" {
		t.Fatalf("unexpected catalog %+v", envelope.Data)
	}
}

func TestAdminOrderStatus(t *testing.T) {
	svc := &stubService{}
	r := chi.NewRouter()
	r.Patch("/admin/orders/{orderId}/status", AdminOrderStatus(svc, nil))

	req := httptest.NewRequest(http.MethodPatch, "/admin/orders/"+uuid.NewString()+"/status", strings.NewReader(`{"status":"processing"}`))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastAdvance != enums.ShipmentStatusProcessing {
		t.Fatalf("expected processing got %s", svc.lastAdvance)
	}

	req = httptest.NewRequest(http.MethodPatch, "/admin/orders/not-a-uuid/status", strings.NewReader(`{"status":"processing"}`))
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminWalletCredit(t *testing.T) {
	userID := uuid.New()
	svc := &stubService{wallet: types.Wallet{UserID: userID, Amount: decimal.RequireFromString("25.50")}}
	r := chi.NewRouter()
	r.Post("/admin/wallets/{userId}/credit", AdminWalletCredit(svc, nil))

	req := httptest.NewRequest(http.MethodPost, "/admin/wallets/"+userID.String()+"/credit", strings.NewReader(`{"amount":"25.50"}`))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastUser != userID || !svc.lastAmount.Equal(decimal.RequireFromString("25.50")) {
		t.Fatalf("unexpected credit %s %s", svc.lastUser, svc.lastAmount)
	}
}
