package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dlc_store/internal/catalog"
	"dlc_store/internal/models"
	"dlc_store/internal/pkg/logger"
)

func newMockedStorage(t *testing.T) (*PostgreSQL, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgreSQLFromDB(db, logger.Discard()), mock
}

func TestMigrate(t *testing.T) {
	storage, mock := newMockedStorage(t)
	for range migrations {
		mock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, storage.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateStopsOnError(t *testing.T) {
	storage, mock := newMockedStorage(t)
	mock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(".*").WillReturnError(errors.New("permission denied"))

	err := storage.Migrate(context.Background())
	assert.ErrorContains(t, err, "migration 2")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser(t *testing.T) {
	storage, mock := newMockedStorage(t)
	createdAt := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	user := &models.User{ID: "user-1", Email: "a@b.c", Username: "abc", Avatar: "🎮", Balance: 5000, CreatedAt: createdAt}

	mock.ExpectExec(regexp.QuoteMeta(createUserQuery)).
		WithArgs("user-1", "a@b.c", "abc", "hash", "🎮", 5000, createdAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	created, err := storage.CreateUser(context.Background(), user, "hash")
	require.NoError(t, err)
	assert.Equal(t, []string{}, created.PurchasedDLCs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserCredentials(t *testing.T) {
	storage, mock := newMockedStorage(t)
	createdAt := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(getUserCredentialQuery)).WithArgs("missing@b.c").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta(getUserCredentialQuery)).WithArgs("A@b.c").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "username", "avatar", "balance", "created_at", "password_hash"}).
			AddRow("user-1", "a@b.c", "abc", "", 5000, createdAt, "hash"))
	mock.ExpectQuery(regexp.QuoteMeta(getPurchasedQuery)).WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"product_id"}).AddRow(1).AddRow(3))

	_, _, err := storage.GetUserCredentials(context.Background(), "missing@b.c")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	user, hash, err := storage.GetUserCredentials(context.Background(), "A@b.c")
	require.NoError(t, err)
	assert.Equal(t, "hash", hash)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, []string{"1", "3"}, user.PurchasedDLCs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedAndListProducts(t *testing.T) {
	storage, mock := newMockedStorage(t)
	products := catalog.Seed()

	mock.ExpectBegin()
	for _, p := range products {
		mock.ExpectExec(regexp.QuoteMeta(upsertProductQuery)).
			WithArgs(p.ID, p.Category, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()
	require.NoError(t, storage.SeedProducts(context.Background(), products))

	rows := sqlmock.NewRows([]string{"payload"})
	for _, p := range products {
		payload, err := json.Marshal(p)
		require.NoError(t, err)
		rows.AddRow(payload)
	}
	mock.ExpectQuery(regexp.QuoteMeta(listProductsQuery)).WillReturnRows(rows)

	listed, err := storage.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, products, listed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedProductsRollsBack(t *testing.T) {
	storage, mock := newMockedStorage(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(upsertProductQuery)).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	assert.Error(t, storage.SeedProducts(context.Background(), catalog.Seed()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProductNotFound(t *testing.T) {
	storage, mock := newMockedStorage(t)
	mock.ExpectQuery(regexp.QuoteMeta(getProductQuery)).WithArgs(42).WillReturnError(sql.ErrNoRows)

	_, err := storage.GetProduct(context.Background(), 42)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCreateAndGetOrder(t *testing.T) {
	storage, mock := newMockedStorage(t)
	createdAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	order := &models.Order{
		ID:            "order-1",
		UserID:        "user-1",
		Items:         []models.CartItem{{Product: models.Product{ID: 1, Price: 299, GameID: "minecraft-dungeons"}, Quantity: 1}},
		Total:         299,
		Status:        models.OrderProcessing,
		PaymentMethod: "card",
		CreatedAt:     createdAt,
		Keys:          map[string]string{"1": "MINECRAFT-DUNGEONS-ABCDEFGHI"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(createOrderQuery)).
		WithArgs("order-1", "user-1", sqlmock.AnyArg(), 299, "processing", "card", sqlmock.AnyArg(), createdAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(createPurchaseQuery)).
		WithArgs("user-1", 1, "order-1", "MINECRAFT-DUNGEONS-ABCDEFGHI").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, storage.CreateOrder(context.Background(), order))

	items, err := json.Marshal(order.Items)
	require.NoError(t, err)
	keys, err := json.Marshal(order.Keys)
	require.NoError(t, err)
	mock.ExpectQuery(regexp.QuoteMeta(getOrderQuery)).WithArgs("order-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "items", "total", "status", "payment_method", "keys", "created_at"}).
			AddRow("order-1", "user-1", items, 299, "completed", "card", keys, createdAt))

	stored, err := storage.GetOrder(context.Background(), "user-1", "order-1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderCompleted, stored.Status)
	assert.Equal(t, order.Items, stored.Items)
	assert.Equal(t, order.Keys, stored.Keys)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrderStatus(t *testing.T) {
	storage, mock := newMockedStorage(t)

	mock.ExpectExec(regexp.QuoteMeta(updateOrderStatusQuery)).
		WithArgs("completed", "order-1", "processing").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(updateOrderStatusQuery)).
		WithArgs("completed", "order-1", "processing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, storage.UpdateOrderStatus(context.Background(), "order-1", models.OrderProcessing, models.OrderCompleted))
	assert.ErrorIs(t, storage.UpdateOrderStatus(context.Background(), "order-1", models.OrderProcessing, models.OrderCompleted), ErrStatusConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}
