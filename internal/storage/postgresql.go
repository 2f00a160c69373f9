// Package storage persists customers, the DLC catalog and orders for the store API.
// It defines the Storage interface along with a PostgreSQL implementation built on the pgx driver.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"dlc_store/internal/models"
	"dlc_store/internal/pkg/logger"
)

// ErrStatusConflict is returned when an order is not in the expected status.
var ErrStatusConflict = errors.New("storage: order status changed concurrently")

const (
	createUserQuery        = `INSERT INTO content.users (id, email, username, password_hash, avatar, balance, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7);`
	getUserCredentialQuery = `SELECT id, email, username, avatar, balance, created_at, password_hash FROM content.users WHERE lower(email) = lower($1);`
	getUserQuery           = `SELECT id, email, username, avatar, balance, created_at FROM content.users WHERE id = $1;`
	getPurchasedQuery      = `SELECT DISTINCT product_id FROM content.purchases WHERE user_id = $1 ORDER BY product_id;`
	upsertProductQuery     = `INSERT INTO content.products (id, category, payload) VALUES ($1, $2, $3) ON CONFLICT (id) DO UPDATE SET category = EXCLUDED.category, payload = EXCLUDED.payload;`
	listProductsQuery      = `SELECT payload FROM content.products ORDER BY id;`
	getProductQuery        = `SELECT payload FROM content.products WHERE id = $1;`
	createOrderQuery       = `INSERT INTO content.orders (id, user_id, items, total, status, payment_method, keys, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`
	createPurchaseQuery    = `INSERT INTO content.purchases (user_id, product_id, order_id, redemption_key) VALUES ($1, $2, $3, $4);`
	listOrdersQuery        = `SELECT id, user_id, items, total, status, payment_method, keys, created_at FROM content.orders WHERE user_id = $1 ORDER BY created_at;`
	getOrderQuery          = `SELECT id, user_id, items, total, status, payment_method, keys, created_at FROM content.orders WHERE id = $1 AND user_id = $2;`
	updateOrderStatusQuery = `UPDATE content.orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3;`
)

// Storage defines the methods required for data storage operations.
type Storage interface {
	// Close closes the database connection.
	Close()
	// Migrate creates the schema if it does not exist.
	Migrate(ctx context.Context) error

	// Customer methods. GetUserCredentials returns sql.ErrNoRows for unknown emails.
	CreateUser(ctx context.Context, user *models.User, passwordHash string) (*models.User, error)
	GetUserCredentials(ctx context.Context, email string) (*models.User, string, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)

	// Catalog methods.
	SeedProducts(ctx context.Context, products []models.Product) error
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id int) (*models.Product, error)

	// Order methods.
	CreateOrder(ctx context.Context, order *models.Order) error
	ListOrders(ctx context.Context, userID string) ([]models.Order, error)
	GetOrder(ctx context.Context, userID, orderID string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, from, to models.OrderStatus) error
}

// PostgreSQL implements the Storage interface using a PostgreSQL database.
type PostgreSQL struct {
	db  *sql.DB
	log *logger.Logger
}

// NewPostgreSQL opens a connection with the given DSN and pings the database.
func NewPostgreSQL(configDBString string, l *logger.Logger) (*PostgreSQL, error) {
	db, err := sql.Open("pgx", configDBString)
	if err != nil {
		l.Sugar().Errorf("Failed to open a database: %s", err)
		return &PostgreSQL{db: db, log: l}, err
	}

	const defaultTimeout = 10 * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		l.Sugar().Errorf("Database ping failed: %s", err)
		return &PostgreSQL{db: db, log: l}, err
	}

	return &PostgreSQL{db: db, log: l}, nil
}

// NewPostgreSQLFromDB wraps an already opened connection.
func NewPostgreSQLFromDB(db *sql.DB, l *logger.Logger) *PostgreSQL {
	return &PostgreSQL{db: db, log: l}
}

// Close closes the database connection if it is open.
func (postgresql *PostgreSQL) Close() {
	if postgresql.db != nil {
		postgresql.db.Close()
	}
}

// Migrate applies the schema statements in order.
func (postgresql *PostgreSQL) Migrate(ctx context.Context) error {
	for i, statement := range migrations {
		if _, err := postgresql.db.ExecContext(ctx, statement); err != nil {
			postgresql.log.Sugar().Errorf("Failed to apply migration %d: %s", i+1, err)
			return fmt.Errorf("storage: migration %d: %w", i+1, err)
		}
	}
	return nil
}

// CreateUser inserts a customer with an already hashed password.
func (postgresql *PostgreSQL) CreateUser(ctx context.Context, user *models.User, passwordHash string) (*models.User, error) {
	_, err := postgresql.db.ExecContext(ctx, createUserQuery,
		user.ID, user.Email, user.Username, passwordHash, user.Avatar, user.Balance, user.CreatedAt)
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query createUserQuery: %s", err)
		return user, err
	}
	if user.PurchasedDLCs == nil {
		user.PurchasedDLCs = []string{}
	}
	return user, nil
}

// GetUserCredentials loads a customer and the stored password hash by email (case-insensitive).
func (postgresql *PostgreSQL) GetUserCredentials(ctx context.Context, email string) (*models.User, string, error) {
	user := &models.User{}
	var passwordHash string
	err := postgresql.db.QueryRowContext(ctx, getUserCredentialQuery, email).
		Scan(&user.ID, &user.Email, &user.Username, &user.Avatar, &user.Balance, &user.CreatedAt, &passwordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", err
	}
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query getUserCredentialQuery: %s", err)
		return nil, "", err
	}

	if user.PurchasedDLCs, err = postgresql.purchasedDLCs(ctx, user.ID); err != nil {
		return nil, "", err
	}
	return user, passwordHash, nil
}

// GetUser loads a customer with the ids of the DLCs they own.
func (postgresql *PostgreSQL) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user := &models.User{}
	err := postgresql.db.QueryRowContext(ctx, getUserQuery, userID).
		Scan(&user.ID, &user.Email, &user.Username, &user.Avatar, &user.Balance, &user.CreatedAt)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			postgresql.log.Sugar().Errorf("Failed to execute a query getUserQuery: %s", err)
		}
		return nil, err
	}

	if user.PurchasedDLCs, err = postgresql.purchasedDLCs(ctx, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

func (postgresql *PostgreSQL) purchasedDLCs(ctx context.Context, userID string) ([]string, error) {
	rows, err := postgresql.db.QueryContext(ctx, getPurchasedQuery, userID)
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query getPurchasedQuery: %s", err)
		return nil, err
	}
	defer rows.Close()

	purchased := make([]string, 0)
	for rows.Next() {
		var productID int
		if err := rows.Scan(&productID); err != nil {
			postgresql.log.Sugar().Errorf("Failed to scan purchase in purchasedDLCs method: %s", err)
			return nil, err
		}
		purchased = append(purchased, strconv.Itoa(productID))
	}
	if err := rows.Err(); err != nil {
		postgresql.log.Sugar().Errorf("The last error encountered by Rows.Scan in purchasedDLCs method: %s", err)
		return nil, err
	}
	return purchased, nil
}

// SeedProducts inserts or refreshes catalog entries within one transaction.
func (postgresql *PostgreSQL) SeedProducts(ctx context.Context, products []models.Product) error {
	tx, err := postgresql.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, product := range products {
		payload, err := json.Marshal(product)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, upsertProductQuery, product.ID, product.Category, payload); err != nil {
			postgresql.log.Sugar().Errorf("Failed to execute a query upsertProductQuery: %s", err)
			return err
		}
	}

	return tx.Commit()
}

// ListProducts returns the whole catalog ordered by id.
func (postgresql *PostgreSQL) ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := postgresql.db.QueryContext(ctx, listProductsQuery)
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query listProductsQuery: %s", err)
		return nil, err
	}
	defer rows.Close()

	const initialCatalogCapacity = 16
	products := make([]models.Product, 0, initialCatalogCapacity)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			postgresql.log.Sugar().Errorf("Failed to scan product in ListProducts method: %s", err)
			return nil, err
		}
		var product models.Product
		if err := json.Unmarshal(payload, &product); err != nil {
			return nil, fmt.Errorf("storage: decode product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		postgresql.log.Sugar().Errorf("The last error encountered by Rows.Scan in ListProducts method: %s", err)
		return products, err
	}
	return products, nil
}

// GetProduct returns one catalog entry, or sql.ErrNoRows.
func (postgresql *PostgreSQL) GetProduct(ctx context.Context, id int) (*models.Product, error) {
	var payload []byte
	if err := postgresql.db.QueryRowContext(ctx, getProductQuery, id).Scan(&payload); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			postgresql.log.Sugar().Errorf("Failed to execute a query getProductQuery: %s", err)
		}
		return nil, err
	}
	product := &models.Product{}
	if err := json.Unmarshal(payload, product); err != nil {
		return nil, fmt.Errorf("storage: decode product: %w", err)
	}
	return product, nil
}

// CreateOrder stores the order and one purchase row per line within a transaction.
func (postgresql *PostgreSQL) CreateOrder(ctx context.Context, order *models.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return err
	}
	keys, err := json.Marshal(order.Keys)
	if err != nil {
		return err
	}

	tx, err := postgresql.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, createOrderQuery,
		order.ID, order.UserID, items, order.Total, string(order.Status), order.PaymentMethod, keys, order.CreatedAt)
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query createOrderQuery: %s", err)
		return err
	}

	for _, item := range order.Items {
		key := order.Keys[strconv.Itoa(item.ID)]
		if _, err := tx.ExecContext(ctx, createPurchaseQuery, order.UserID, item.ID, order.ID, key); err != nil {
			postgresql.log.Sugar().Errorf("Failed to execute a query createPurchaseQuery: %s", err)
			return err
		}
	}

	return tx.Commit()
}

// ListOrders returns the customer's orders, oldest first.
func (postgresql *PostgreSQL) ListOrders(ctx context.Context, userID string) ([]models.Order, error) {
	rows, err := postgresql.db.QueryContext(ctx, listOrdersQuery, userID)
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query listOrdersQuery: %s", err)
		return nil, err
	}
	defer rows.Close()

	orders := make([]models.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			postgresql.log.Sugar().Errorf("Failed to scan order in ListOrders method: %s", err)
			return nil, err
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		postgresql.log.Sugar().Errorf("The last error encountered by Rows.Scan in ListOrders method: %s", err)
		return orders, err
	}
	return orders, nil
}

// GetOrder returns one of the customer's orders, or sql.ErrNoRows.
func (postgresql *PostgreSQL) GetOrder(ctx context.Context, userID, orderID string) (*models.Order, error) {
	order, err := scanOrder(postgresql.db.QueryRowContext(ctx, getOrderQuery, orderID, userID))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		postgresql.log.Sugar().Errorf("Failed to execute a query getOrderQuery: %s", err)
	}
	return order, err
}

// UpdateOrderStatus moves an order from one status to another.
// It returns ErrStatusConflict if the order is not currently in the from status.
func (postgresql *PostgreSQL) UpdateOrderStatus(ctx context.Context, orderID string, from, to models.OrderStatus) error {
	result, err := postgresql.db.ExecContext(ctx, updateOrderStatusQuery, string(to), orderID, string(from))
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query updateOrderStatusQuery: %s", err)
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute RowsAffected in updateOrderStatusQuery: %s", err)
		return err
	}
	if rows == 0 {
		return ErrStatusConflict
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (*models.Order, error) {
	var (
		order  models.Order
		items  []byte
		keys   []byte
		status string
	)
	if err := row.Scan(&order.ID, &order.UserID, &items, &order.Total, &status, &order.PaymentMethod, &keys, &order.CreatedAt); err != nil {
		return nil, err
	}
	order.Status = models.OrderStatus(status)
	if err := json.Unmarshal(items, &order.Items); err != nil {
		return nil, fmt.Errorf("storage: decode order items: %w", err)
	}
	if len(keys) > 0 {
		if err := json.Unmarshal(keys, &order.Keys); err != nil {
			return nil, fmt.Errorf("storage: decode order keys: %w", err)
		}
	}
	return &order, nil
}
