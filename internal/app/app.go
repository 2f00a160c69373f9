// Package app provides the business logic of the store API: customer authentication and
// registration, catalog queries, order placement with redemption keys, and order settlement.
// It works on top of the storage layer and issues tokens through the auth package.
package app

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"dlc_store/internal/cart"
	"dlc_store/internal/catalog"
	"dlc_store/internal/models"
	"dlc_store/internal/pkg/auth"
	"dlc_store/internal/pkg/keygen"
	"dlc_store/internal/pkg/logger"
	"dlc_store/internal/pkg/security"
	"dlc_store/internal/storage"
)

// Errors returned to the HTTP layer.
var (
	ErrMissingCredentials  = errors.New("app: missing email or password")
	ErrMissingRegistration = errors.New("app: missing email, username or password")
	ErrInvalidCredentials  = errors.New("app: invalid email or password")
	ErrUserExists          = errors.New("app: user already exists")
	ErrNotFound            = errors.New("app: not found")
	ErrEmptyOrder          = errors.New("app: order has no items")
	ErrInvalidQuantity     = errors.New("app: quantity must be positive")
	ErrUnknownProduct      = errors.New("app: unknown product")
	ErrOutOfStock          = errors.New("app: product is out of stock")
)

const (
	defaultBalance = 5000
	defaultAvatar  = "🎮"
	settleTimeout  = 10 * time.Second
)

// App encapsulates the application logic and its dependencies.
type App struct {
	db          storage.Storage
	log         *logger.Logger
	settleDelay time.Duration
	now         func() time.Time

	wg   sync.WaitGroup
	once sync.Once
	done chan struct{}
}

// NewApp creates an App. Placed orders complete settleDelay after submission.
func NewApp(db storage.Storage, log *logger.Logger, settleDelay time.Duration) *App {
	return &App{db: db, log: log, settleDelay: settleDelay, now: time.Now, done: make(chan struct{})}
}

// Prepare applies the schema and seeds the catalog.
func (app *App) Prepare(ctx context.Context) error {
	if err := app.db.Migrate(ctx); err != nil {
		return err
	}
	return app.db.SeedProducts(ctx, catalog.Seed())
}

// Shutdown abandons pending settlements and waits for their goroutines to exit.
func (app *App) Shutdown() {
	app.once.Do(func() { close(app.done) })
	app.wg.Wait()
}

// ProcessLogin verifies credentials and issues a token.
func (app *App) ProcessLogin(ctx context.Context, req models.LoginRequest) (*models.AuthPayload, error) {
	if req.Email == "" || req.Password == "" {
		return nil, ErrMissingCredentials
	}

	user, passwordHash, err := app.db.GetUserCredentials(ctx, req.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := security.CheckPassword(passwordHash, req.Password); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	token, err := auth.GenerateToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &models.AuthPayload{User: *user, Token: token}, nil
}

// ProcessRegister creates a customer with the default balance and issues a token.
// Emails are unique regardless of case.
func (app *App) ProcessRegister(ctx context.Context, req models.RegisterRequest) (*models.AuthPayload, error) {
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return nil, ErrMissingRegistration
	}

	passwordHash, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:            "user-" + uuid.NewString(),
		Email:         strings.TrimSpace(req.Email),
		Username:      strings.TrimSpace(req.Username),
		Avatar:        defaultAvatar,
		PurchasedDLCs: []string{},
		Balance:       defaultBalance,
		CreatedAt:     app.now().UTC(),
	}
	user, err = app.db.CreateUser(ctx, user, passwordHash)
	if err != nil {
		var pgError *pgconn.PgError
		if errors.As(err, &pgError) && pgError.Code == pgerrcode.UniqueViolation {
			return nil, ErrUserExists
		}
		return nil, err
	}

	token, err := auth.GenerateToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &models.AuthPayload{User: *user, Token: token}, nil
}

// ProcessCurrentUser returns the customer identified by the token.
func (app *App) ProcessCurrentUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := app.db.GetUser(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return user, err
}

// ProcessListProducts returns the catalog filtered by category and search term.
func (app *App) ProcessListProducts(ctx context.Context, category, search string) ([]models.Product, error) {
	products, err := app.db.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Filter(products, category, search), nil
}

// ProcessSearch matches query against title, description and category.
func (app *App) ProcessSearch(ctx context.Context, query string) ([]models.Product, error) {
	products, err := app.db.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Search(products, query), nil
}

// ProcessCategories returns the distinct catalog categories.
func (app *App) ProcessCategories(ctx context.Context) ([]string, error) {
	products, err := app.db.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Categories(products), nil
}

// ProcessGetProduct returns one product.
func (app *App) ProcessGetProduct(ctx context.Context, id int) (*models.Product, error) {
	product, err := app.db.GetProduct(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return product, err
}

// ProcessCreateOrder prices the requested lines from the catalog, issues a redemption key per line,
// stores the order as processing and schedules its settlement. Lines repeating a product id are
// merged into one.
func (app *App) ProcessCreateOrder(ctx context.Context, userID string, req models.OrderRequest) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
	}
	lines := cart.Merge(req.Items)

	order := &models.Order{
		ID:            "order-" + uuid.NewString(),
		UserID:        userID,
		Items:         make([]models.CartItem, 0, len(lines)),
		Status:        models.OrderProcessing,
		PaymentMethod: req.PaymentMethod,
		CreatedAt:     app.now().UTC(),
		Keys:          make(map[string]string, len(lines)),
	}
	for _, item := range lines {
		product, err := app.db.GetProduct(ctx, item.ID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnknownProduct
		}
		if err != nil {
			return nil, err
		}
		if !product.InStock {
			return nil, ErrOutOfStock
		}

		line := models.CartItem{Product: *product, Quantity: item.Quantity}
		order.Items = append(order.Items, line)
		order.Total += line.Subtotal()

		key, err := keygen.RedemptionKey(product.GameID)
		if err != nil {
			return nil, err
		}
		order.Keys[strconv.Itoa(product.ID)] = key
	}

	if err := app.db.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	app.scheduleSettlement(order.ID)
	return order, nil
}

// ProcessListOrders returns the customer's orders.
func (app *App) ProcessListOrders(ctx context.Context, userID string) ([]models.Order, error) {
	return app.db.ListOrders(ctx, userID)
}

// ProcessGetOrder returns one of the customer's orders.
func (app *App) ProcessGetOrder(ctx context.Context, userID, orderID string) (*models.Order, error) {
	order, err := app.db.GetOrder(ctx, userID, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return order, err
}

func (app *App) scheduleSettlement(orderID string) {
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()

		timer := time.NewTimer(app.settleDelay)
		defer timer.Stop()
		select {
		case <-app.done:
			return
		case <-timer.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), settleTimeout)
		defer cancel()
		err := app.db.UpdateOrderStatus(ctx, orderID, models.OrderProcessing, models.OrderCompleted)
		if err != nil {
			app.log.Sugar().Errorf("Failed to settle order %s: %s", orderID, err)
			return
		}
		app.log.Sugar().Infof("Order %s completed", orderID)
	}()
}
