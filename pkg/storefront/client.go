// Package storefront is the HTTP client for the SpareSync REST contracts
// (cart, orders, products, wallet). Every failure comes back as a typed
// pkg/errors error so callers can branch on the code.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/partnest/sparesync/pkg/config"
	"github.com/partnest/sparesync/pkg/enums"
	pkgerrors "github.com/partnest/sparesync/pkg/errors"
	"github.com/partnest/sparesync/pkg/logger"
	"github.com/partnest/sparesync/pkg/types"
)

const (
	defaultTimeout              = 15 * time.Second
	errorBodyReadLimit    int64 = 64 * 1024
	requestIDHeader             = "X-Request-Id"
	authorizationHeader         = "Authorization"
	bearerPrefix                = "Bearer "
	contentTypeHeader           = "Content-Type"
	contentTypeJSON             = "application/json"
)

var errBaseURLRequired = errors.New("storefront base url is required")

// TokenSource returns the bearer token attached to each request. An empty
// token sends the request unauthenticated.
type TokenSource func(ctx context.Context) (string, error)

// Client talks to the storefront backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
	tokens     TokenSource
	logg       *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(src TokenSource) Option {
	return func(c *Client) {
		c.tokens = src
	}
}

// WithStaticToken attaches the same bearer token to every request.
func WithStaticToken(token string) Option {
	return WithTokenSource(func(context.Context) (string, error) { return token, nil })
}

// WithLogger enables debug logging of outgoing requests.
func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		c.logg = logg
	}
}

// NewClient builds a client rooted at baseURL, for example http://localhost:8080/api/v1.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("parse storefront base url: %w", err)
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{},
		timeout:    defaultTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.logg == nil {
		client.logg = logger.Nop()
	}
	return client, nil
}

// NewFromConfig builds a client from the Client config section.
func NewFromConfig(cfg config.ClientConfig, opts ...Option) (*Client, error) {
	base := []Option{WithTimeout(cfg.RequestTimeout)}
	return NewClient(cfg.BaseURL, append(base, opts...)...)
}

// GetCart fetches the caller's canonical cart.
func (c *Client) GetCart(ctx context.Context) (types.Cart, error) {
	var cart types.Cart
	err := c.do(ctx, http.MethodGet, "/cart", nil, &cart)
	return cart, err
}

// AddCartItem adds one unit of productID. The server answers CONFLICT when the product is out of stock.
func (c *Client) AddCartItem(ctx context.Context, productID uuid.UUID) (types.Cart, error) {
	var cart types.Cart
	err := c.do(ctx, http.MethodPost, "/cart/items", types.CartItemRequest{ProductID: productID}, &cart)
	return cart, err
}

// SetCartItemQuantity sets the quantity of an existing line.
func (c *Client) SetCartItemQuantity(ctx context.Context, productID uuid.UUID, quantity int) (types.Cart, error) {
	var cart types.Cart
	err := c.do(ctx, http.MethodPatch, "/cart/items", types.CartQuantityRequest{ProductID: productID, Quantity: quantity}, &cart)
	return cart, err
}

// RemoveCartItem deletes the line for productID.
func (c *Client) RemoveCartItem(ctx context.Context, productID uuid.UUID) (types.Cart, error) {
	var cart types.Cart
	err := c.do(ctx, http.MethodPatch, "/cart/items/remove", types.CartItemRequest{ProductID: productID}, &cart)
	return cart, err
}

// PlaceOrder converts the current cart into an order.
func (c *Client) PlaceOrder(ctx context.Context, req types.PlaceOrderRequest) (types.Order, error) {
	var order types.Order
	err := c.do(ctx, http.MethodPost, "/orders", req, &order)
	return order, err
}

// CancelOrder asks the server to cancel orderID.
func (c *Client) CancelOrder(ctx context.Context, orderID uuid.UUID) (types.Order, error) {
	var order types.Order
	err := c.do(ctx, http.MethodPatch, "/orders", types.CancelOrderRequest{OrderID: orderID}, &order)
	return order, err
}

// ListOrders returns the caller's orders, optionally filtered by status.
func (c *Client) ListOrders(ctx context.Context, status *enums.ShipmentStatus) ([]types.Order, error) {
	path := "/orders"
	if status != nil {
		q := url.Values{}
		q.Set("status", status.String())
		path += "?" + q.Encode()
	}
	var orders []types.Order
	err := c.do(ctx, http.MethodGet, path, nil, &orders)
	return orders, err
}

// ListProducts returns the catalog snapshot.
func (c *Client) ListProducts(ctx context.Context) ([]types.Product, error) {
	var products []types.Product
	err := c.do(ctx, http.MethodGet, "/products", nil, &products)
	return products, err
}

// GetWallet returns the caller's wallet balance.
func (c *Client) GetWallet(ctx context.Context) (types.Wallet, error) {
	var wallet types.Wallet
	err := c.do(ctx, http.MethodGet, "/wallet", nil, &wallet)
	return wallet, err
}

func (c *Client) do(ctx context.Context, method, path string, body any, dest any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "storefront client not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
	}
	if body != nil {
		req.Header.Set(contentTypeHeader, contentTypeJSON)
	}
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set(requestIDHeader, uuid.NewString())

	if c.tokens != nil {
		token, err := c.tokens(ctx)
		if err != nil {
			return err
		}
		if token = strings.TrimSpace(token); token != "" {
			req.Header.Set(authorizationHeader, bearerPrefix+token)
		}
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	logCtx := c.logg.WithFields(ctx, map[string]any{
		"method":      method,
		"path":        path,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(started).Milliseconds(),
		"request_id":  req.Header.Get(requestIDHeader),
	})
	c.logg.Debug(logCtx, "storefront.request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(method, path, resp)
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return transportError(method, path, ctxErr)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode response envelope")
	}
	if dest == nil || len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode response data")
	}
	return nil
}

func transportError(method, path string, err error) error {
	msg := "network error"
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "request timed out"
	} else if errors.Is(err, context.Canceled) {
		msg = "request cancelled"
	}
	return pkgerrors.Wrap(pkgerrors.CodeNetwork, fmt.Errorf("%s %s: %w", method, path, err), msg)
}

func decodeError(method, path string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))

	code := pkgerrors.CodeForStatus(resp.StatusCode)
	message := pkgerrors.MetadataFor(code).PublicMessage
	var details any

	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Code != "" {
		if candidate := pkgerrors.Code(envelope.Error.Code); pkgerrors.IsKnown(candidate) {
			code = candidate
		}
		if envelope.Error.Message != "" {
			message = envelope.Error.Message
		}
		details = envelope.Error.Details
	}

	cause := fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	return pkgerrors.Wrap(code, cause, message).WithDetails(details)
}
