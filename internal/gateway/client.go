package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dlc_store/internal/models"
	"dlc_store/internal/pkg/logger"
)

const defaultClientTimeout = 15 * time.Second

// Client is a Gateway talking to the store API over HTTP. Replies with status below 500 are
// decoded as envelopes; anything else is a transport failure.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cred       *Credential
	log        *logger.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

// NewClient creates a network gateway for the API rooted at baseURL.
func NewClient(baseURL string, cred *Credential, l *logger.Logger, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultClientTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		cred:       cred,
		log:        l,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Authenticate(ctx context.Context, req models.LoginRequest) (models.Response[models.AuthPayload], error) {
	resp, err := doJSON[models.AuthPayload](ctx, c, http.MethodPost, "/api/auth/login", req)
	if err == nil && resp.Success {
		c.cred.Set(ctx, resp.Data.Token)
	}
	return resp, err
}

func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (models.Response[models.AuthPayload], error) {
	resp, err := doJSON[models.AuthPayload](ctx, c, http.MethodPost, "/api/auth/register", req)
	if err == nil && resp.Success {
		c.cred.Set(ctx, resp.Data.Token)
	}
	return resp, err
}

func (c *Client) EndSession(ctx context.Context) error {
	c.cred.Clear(ctx)
	return nil
}

func (c *Client) CurrentUser(ctx context.Context) (models.Response[models.User], error) {
	if !c.cred.Present() {
		return models.Fail[models.User](MsgNotAuthorized), nil
	}
	return doJSON[models.User](ctx, c, http.MethodGet, "/api/me", nil)
}

func (c *Client) ListProducts(ctx context.Context, category, search string) (models.Response[[]models.Product], error) {
	query := url.Values{}
	if category != "" {
		query.Set("category", category)
	}
	if search != "" {
		query.Set("search", search)
	}
	return doJSON[[]models.Product](ctx, c, http.MethodGet, withQuery("/api/products", query), nil)
}

func (c *Client) GetProduct(ctx context.Context, id int) (models.Response[models.Product], error) {
	return doJSON[models.Product](ctx, c, http.MethodGet, "/api/products/"+strconv.Itoa(id), nil)
}

func (c *Client) SearchProducts(ctx context.Context, query string) (models.Response[[]models.Product], error) {
	return doJSON[[]models.Product](ctx, c, http.MethodGet, withQuery("/api/search", url.Values{"q": {query}}), nil)
}

func (c *Client) ListCategories(ctx context.Context) (models.Response[[]string], error) {
	return doJSON[[]string](ctx, c, http.MethodGet, "/api/categories", nil)
}

func (c *Client) SubmitOrder(ctx context.Context, items []models.CartItem, paymentMethod string) (models.Response[models.Order], error) {
	if !c.cred.Present() {
		return models.Fail[models.Order](MsgAuthRequired), nil
	}
	req := models.OrderRequest{Items: items, PaymentMethod: paymentMethod}
	return doJSON[models.Order](ctx, c, http.MethodPost, "/api/orders", req)
}

func (c *Client) ListOrders(ctx context.Context) (models.Response[[]models.Order], error) {
	if !c.cred.Present() {
		return models.Fail[[]models.Order](MsgAuthRequired), nil
	}
	return doJSON[[]models.Order](ctx, c, http.MethodGet, "/api/orders", nil)
}

func (c *Client) GetOrder(ctx context.Context, id string) (models.Response[models.Order], error) {
	if !c.cred.Present() {
		return models.Fail[models.Order](MsgAuthRequired), nil
	}
	return doJSON[models.Order](ctx, c, http.MethodGet, "/api/orders/"+url.PathEscape(id), nil)
}

func withQuery(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}

// doJSON sends body as JSON, attaches the ambient credential and decodes the reply envelope.
func doJSON[T any](ctx context.Context, c *Client, method, path string, body any) (models.Response[T], error) {
	var envelope models.Response[T]

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return envelope, fmt.Errorf("gateway: marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return envelope, fmt.Errorf("gateway: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.cred.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Sugar().Errorf("Request %s %s failed: %s", method, path, err)
		return envelope, fmt.Errorf("gateway: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		c.log.Sugar().Errorf("Request %s %s returned status %d", method, path, resp.StatusCode)
		return envelope, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		c.log.Sugar().Errorf("Failed to decode %s %s response: %s", method, path, err)
		return models.Response[T]{}, fmt.Errorf("gateway: decode response: %w", err)
	}
	return envelope, nil
}

var _ Gateway = (*Client)(nil)
