// Package storefront composes the session manager, the cart and the backend gateway into the
// browsing and checkout workflow of the DLC store.
//
// Catalog state is replaced on every category or search change. Checkout is gated on an
// authenticated session: an anonymous checkout opens the sign-in prompt and leaves the cart alone.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"dlc_store/internal/cart"
	"dlc_store/internal/catalog"
	"dlc_store/internal/gateway"
	"dlc_store/internal/models"
	"dlc_store/internal/pkg/logger"
	"dlc_store/internal/session"
)

// PaymentMethodCard is the only payment method offered at checkout.
const PaymentMethodCard = "card"

// User-facing checkout messages.
const (
	MsgOrderPlaced          = "order placed, keys have been sent to your email"
	MsgOrderFailedPrefix    = "order failed: "
	MsgCheckoutNetworkError = "network error while placing order"
	MsgCartEmpty            = "cart is empty"
	MsgCheckoutInProgress   = "checkout already in progress"
)

var (
	// ErrRejected wraps the message of an unsuccessful envelope.
	ErrRejected = errors.New("storefront: request rejected")
	// ErrInvalidInterval is returned by WaitForSettlement for a non-positive poll interval.
	ErrInvalidInterval = errors.New("storefront: poll interval must be positive")
)

// Outcome classifies a checkout attempt.
type Outcome int

const (
	OrderPlaced Outcome = iota
	AuthRequired
	OrderFailed
)

func (o Outcome) String() string {
	switch o {
	case OrderPlaced:
		return "placed"
	case AuthRequired:
		return "auth_required"
	case OrderFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CheckoutResult reports what a checkout attempt did.
type CheckoutResult struct {
	Outcome Outcome
	Order   *models.Order
	Message string
}

// Storefront holds the catalog view, cart view and checkout state of one client.
type Storefront struct {
	gateway gateway.Gateway
	session *session.Manager
	cart    *cart.Cart
	log     *logger.Logger

	mu             sync.RWMutex
	products       []models.Product
	categories     []string
	category       string
	search         string
	generation     uint64
	loading        bool
	cartOpen       bool
	authPromptOpen bool
	processing     bool
	notice         string
	lastOrder      *models.Order
}

// New creates a storefront with no category filter and an empty search.
func New(gw gateway.Gateway, sess *session.Manager, c *cart.Cart, l *logger.Logger) *Storefront {
	return &Storefront{
		gateway:    gw,
		session:    sess,
		cart:       c,
		log:        l,
		category:   catalog.AllCategories,
		categories: catalog.WithAll(nil),
	}
}

// Session returns the session manager.
func (s *Storefront) Session() *session.Manager { return s.session }

// Cart returns the cart.
func (s *Storefront) Cart() *cart.Cart { return s.cart }

// SetCategory changes the category filter and reloads the catalog.
func (s *Storefront) SetCategory(ctx context.Context, category string) error {
	if category == "" {
		category = catalog.AllCategories
	}
	s.mu.Lock()
	s.category = category
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// SetSearch changes the search term and reloads the catalog.
func (s *Storefront) SetSearch(ctx context.Context, search string) error {
	s.mu.Lock()
	s.search = search
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// Refresh fetches products for the current filters and the category list concurrently.
// Results of a refresh superseded by a newer one are dropped. On a transport failure the
// previous catalog state is kept and the error is returned.
func (s *Storefront) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.generation++
	generation := s.generation
	category, search := s.category, s.search
	s.loading = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.generation == generation {
			s.loading = false
		}
		s.mu.Unlock()
	}()

	var (
		productsResp   models.Response[[]models.Product]
		categoriesResp models.Response[[]string]
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		productsResp, err = s.gateway.ListProducts(gctx, category, search)
		return err
	})
	g.Go(func() error {
		var err error
		categoriesResp, err = s.gateway.ListCategories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Sugar().Errorf("Failed to load catalog: %s", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != generation {
		return nil
	}
	if productsResp.Success {
		s.products = productsResp.Data
	}
	if categoriesResp.Success {
		s.categories = catalog.WithAll(categoriesResp.Data)
	}
	return nil
}

// Products returns the currently displayed products.
func (s *Storefront) Products() []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Product(nil), s.products...)
}

// Categories returns the category choices, "all" first.
func (s *Storefront) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.categories...)
}

// Filters returns the active category and search term.
func (s *Storefront) Filters() (category, search string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.category, s.search
}

// Loading reports whether a catalog refresh is outstanding.
func (s *Storefront) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// AddToCart adds one unit of the product.
func (s *Storefront) AddToCart(product models.Product) {
	s.cart.Add(product)
}

// RemoveFromCart drops the product's line.
func (s *Storefront) RemoveFromCart(productID int) {
	s.cart.Remove(productID)
}

// UpdateQuantity sets a line's quantity; zero or less removes it.
func (s *Storefront) UpdateQuantity(productID, quantity int) {
	s.cart.SetQuantity(productID, quantity)
}

func (s *Storefront) OpenCart() {
	s.mu.Lock()
	s.cartOpen = true
	s.mu.Unlock()
}

func (s *Storefront) CloseCart() {
	s.mu.Lock()
	s.cartOpen = false
	s.mu.Unlock()
}

func (s *Storefront) ToggleCart() {
	s.mu.Lock()
	s.cartOpen = !s.cartOpen
	s.mu.Unlock()
}

func (s *Storefront) CartOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cartOpen
}

// AuthPromptOpen reports whether the sign-in prompt should be shown.
func (s *Storefront) AuthPromptOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authPromptOpen
}

func (s *Storefront) OpenAuthPrompt() {
	s.mu.Lock()
	s.authPromptOpen = true
	s.mu.Unlock()
}

func (s *Storefront) DismissAuthPrompt() {
	s.mu.Lock()
	s.authPromptOpen = false
	s.mu.Unlock()
}

// Login signs in through the session manager and closes the sign-in prompt on success.
func (s *Storefront) Login(ctx context.Context, credentials models.LoginRequest) bool {
	ok := s.session.Login(ctx, credentials)
	if ok {
		s.DismissAuthPrompt()
	}
	return ok
}

// Register creates an account and closes the sign-in prompt on success.
func (s *Storefront) Register(ctx context.Context, data models.RegisterRequest) bool {
	ok := s.session.Register(ctx, data)
	if ok {
		s.DismissAuthPrompt()
	}
	return ok
}

// Logout ends the session. The cart is kept.
func (s *Storefront) Logout(ctx context.Context) {
	s.session.Logout(ctx)
}

// Notice returns the last checkout message shown to the customer.
func (s *Storefront) Notice() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.notice
}

// Processing reports whether a checkout is outstanding.
func (s *Storefront) Processing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.processing
}

// LastOrder returns the order placed by the latest successful checkout, or nil.
func (s *Storefront) LastOrder() *models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastOrder == nil {
		return nil
	}
	order := *s.lastOrder
	return &order
}

// Checkout submits the cart as a card order. Anonymous customers get the sign-in prompt instead.
// The cart is cleared and closed only when the backend accepts the order; there is no retry.
func (s *Storefront) Checkout(ctx context.Context) CheckoutResult {
	if !s.session.IsAuthenticated() {
		s.OpenAuthPrompt()
		return CheckoutResult{Outcome: AuthRequired}
	}

	s.mu.Lock()
	if s.processing {
		s.mu.Unlock()
		return CheckoutResult{Outcome: OrderFailed, Message: MsgCheckoutInProgress}
	}
	s.processing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.processing = false
		s.mu.Unlock()
	}()

	items := s.cart.Items()
	if len(items) == 0 {
		return s.fail(MsgCartEmpty)
	}

	resp, err := s.gateway.SubmitOrder(ctx, items, PaymentMethodCard)
	if err != nil {
		s.log.Sugar().Errorf("Order submission failed: %s", err)
		return s.fail(MsgCheckoutNetworkError)
	}
	if !resp.Success {
		return s.fail(MsgOrderFailedPrefix + resp.Message)
	}

	order := resp.Data
	s.cart.Clear()
	s.mu.Lock()
	s.cartOpen = false
	s.notice = MsgOrderPlaced
	s.lastOrder = &order
	s.mu.Unlock()

	s.log.Sugar().Infof("Order %s placed, total %d", order.ID, order.Total)
	return CheckoutResult{Outcome: OrderPlaced, Order: &order, Message: MsgOrderPlaced}
}

func (s *Storefront) fail(message string) CheckoutResult {
	s.mu.Lock()
	s.notice = message
	s.mu.Unlock()
	return CheckoutResult{Outcome: OrderFailed, Message: message}
}

// Product fetches a single product.
func (s *Storefront) Product(ctx context.Context, id int) (models.Product, error) {
	resp, err := s.gateway.GetProduct(ctx, id)
	if err != nil {
		return models.Product{}, err
	}
	if !resp.Success {
		return models.Product{}, fmt.Errorf("%w: %s", ErrRejected, resp.Message)
	}
	return resp.Data, nil
}

// Search runs a free-text search over title, description and category.
func (s *Storefront) Search(ctx context.Context, query string) ([]models.Product, error) {
	resp, err := s.gateway.SearchProducts(ctx, query)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: %s", ErrRejected, resp.Message)
	}
	return resp.Data, nil
}

// Orders lists the customer's past orders.
func (s *Storefront) Orders(ctx context.Context) ([]models.Order, error) {
	resp, err := s.gateway.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: %s", ErrRejected, resp.Message)
	}
	return resp.Data, nil
}

// Order fetches the current state of one order.
func (s *Storefront) Order(ctx context.Context, id string) (models.Order, error) {
	resp, err := s.gateway.GetOrder(ctx, id)
	if err != nil {
		return models.Order{}, err
	}
	if !resp.Success {
		return models.Order{}, fmt.Errorf("%w: %s", ErrRejected, resp.Message)
	}
	return resp.Data, nil
}

// WaitForSettlement polls an order every interval until it is completed or failed,
// or until ctx is done.
func (s *Storefront) WaitForSettlement(ctx context.Context, id string, interval time.Duration) (models.Order, error) {
	if interval <= 0 {
		return models.Order{}, ErrInvalidInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		order, err := s.Order(ctx, id)
		if err != nil {
			return order, err
		}
		if order.Status == models.OrderCompleted || order.Status == models.OrderFailed {
			return order, nil
		}

		select {
		case <-ctx.Done():
			return order, ctx.Err()
		case <-ticker.C:
		}
	}
}
