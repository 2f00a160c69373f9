// Package gateway is the single boundary between storefront state and the backend.
// It defines the Gateway contract together with two implementations: Mock, an in-memory backend
// with simulated latency, and Client, a network client for the store API. Both share a Credential
// holding the ambient bearer token.
//
// Every operation returns a models.Response envelope. Negative outcomes such as wrong credentials
// or an unknown product are reported inside the envelope; a non-nil error means the call itself failed
// (network, cancelled context, undecodable reply).
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"dlc_store/internal/models"
	"dlc_store/internal/pkg/logger"
	"dlc_store/internal/tokenstore"
)

// User-facing messages carried by failed envelopes.
const (
	MsgInvalidCredentials = "invalid email or password"
	MsgNotAuthorized      = "not authorized"
	MsgAuthRequired       = "authorization required"
	MsgProductNotFound    = "product not found"
	MsgOrderNotFound      = "order not found"
	MsgUserExists         = "user with this email already exists"
	MsgInvalidRequest     = "invalid request"
)

// ErrUnexpectedStatus is returned by Client when the server answers outside the envelope contract.
var ErrUnexpectedStatus = errors.New("gateway: unexpected response status")

// Gateway is the backend contract used by the session manager and the storefront.
type Gateway interface {
	// Authenticate checks credentials and, on success, makes the issued token the ambient credential.
	Authenticate(ctx context.Context, req models.LoginRequest) (models.Response[models.AuthPayload], error)
	// Register creates a customer and makes the issued token the ambient credential.
	Register(ctx context.Context, req models.RegisterRequest) (models.Response[models.AuthPayload], error)
	// EndSession clears the ambient credential. It never contacts the backend.
	EndSession(ctx context.Context) error
	// CurrentUser returns the customer owning the ambient credential.
	CurrentUser(ctx context.Context) (models.Response[models.User], error)

	ListProducts(ctx context.Context, category, search string) (models.Response[[]models.Product], error)
	GetProduct(ctx context.Context, id int) (models.Response[models.Product], error)
	SearchProducts(ctx context.Context, query string) (models.Response[[]models.Product], error)
	ListCategories(ctx context.Context) (models.Response[[]string], error)

	// SubmitOrder places an order for the given cart lines. The returned order is a processing
	// snapshot; use GetOrder to observe settlement.
	SubmitOrder(ctx context.Context, items []models.CartItem, paymentMethod string) (models.Response[models.Order], error)
	ListOrders(ctx context.Context) (models.Response[[]models.Order], error)
	GetOrder(ctx context.Context, id string) (models.Response[models.Order], error)
}

// Credential holds the ambient bearer token and mirrors it into durable storage.
type Credential struct {
	mu    sync.RWMutex
	token string
	store tokenstore.Store
	log   *logger.Logger
}

// NewCredential creates an empty credential persisted through store.
func NewCredential(store tokenstore.Store, l *logger.Logger) *Credential {
	return &Credential{store: store, log: l}
}

// Load restores a previously persisted token. A missing token is not an error.
func (c *Credential) Load(ctx context.Context) error {
	token, err := c.store.Get(ctx, tokenstore.AuthTokenKey)
	if errors.Is(err, tokenstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("gateway: load credential: %w", err)
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	return nil
}

// Token returns the current token, or "" when anonymous.
func (c *Credential) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Present reports whether a token is held.
func (c *Credential) Present() bool {
	return c.Token() != ""
}

// Set replaces the token. The in-memory value is updated even if persisting it fails.
func (c *Credential) Set(ctx context.Context, token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	if err := c.store.Set(ctx, tokenstore.AuthTokenKey, token); err != nil {
		c.log.Sugar().Warnf("Failed to persist auth token: %s", err)
	}
}

// Clear drops the token from memory and storage.
func (c *Credential) Clear(ctx context.Context) {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()

	if err := c.store.Delete(ctx, tokenstore.AuthTokenKey); err != nil {
		c.log.Sugar().Warnf("Failed to remove persisted auth token: %s", err)
	}
}
