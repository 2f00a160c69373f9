package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dlc_store/internal/models"
	"dlc_store/internal/pkg/logger"
	"dlc_store/internal/tokenstore"
)

func newTestMock(t *testing.T, opts ...MockOption) (*Mock, *Credential, *tokenstore.Memory) {
	t.Helper()
	store := tokenstore.NewMemory()
	cred := NewCredential(store, logger.Discard())
	opts = append([]MockOption{WithLatency(Latency{})}, opts...)
	m := NewMock(cred, logger.Discard(), opts...)
	t.Cleanup(m.Close)
	return m, cred, store
}

func login(t *testing.T, m *Mock) {
	t.Helper()
	resp, err := m.Authenticate(context.Background(), models.LoginRequest{Email: DemoEmail, Password: DemoPassword})
	require.NoError(t, err)
	require.True(t, resp.Success)
}

func TestMockAuthenticate(t *testing.T) {
	ctx := context.Background()
	m, cred, store := newTestMock(t, WithClock(func() time.Time { return time.UnixMilli(1700000000000) }))

	resp, err := m.Authenticate(ctx, models.LoginRequest{Email: DemoEmail, Password: "wrong"})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, MsgInvalidCredentials, resp.Message)
	assert.Empty(t, resp.Data.Token)
	assert.False(t, cred.Present(), "failed login must not set a credential")

	resp, err = m.Authenticate(ctx, models.LoginRequest{Email: DemoEmail, Password: DemoPassword})
	require.NoError(t, err)
	require.True(t, resp.Success)
	assert.Equal(t, "mock_jwt_token_1700000000000_1", resp.Data.Token)
	assert.Equal(t, "ProGamer2024", resp.Data.User.Username)
	assert.Equal(t, resp.Data.Token, cred.Token())

	persisted, err := store.Get(ctx, tokenstore.AuthTokenKey)
	require.NoError(t, err)
	assert.Equal(t, resp.Data.Token, persisted)

	failed, err := m.Authenticate(ctx, models.LoginRequest{Email: "someone@else.com", Password: DemoPassword})
	require.NoError(t, err)
	assert.False(t, failed.Success)
	assert.Equal(t, resp.Data.Token, cred.Token(), "failed login leaves the ambient credential unchanged")
}

func TestMockRegisterIsPermissive(t *testing.T) {
	ctx := context.Background()
	m, cred, _ := newTestMock(t)

	req := models.RegisterRequest{Email: "new@example.com", Username: "Newbie", Password: "pw"}
	first, err := m.Register(ctx, req)
	require.NoError(t, err)
	second, err := m.Register(ctx, req)
	require.NoError(t, err)

	assert.True(t, first.Success)
	assert.True(t, second.Success)
	assert.NotEqual(t, first.Data.User.ID, second.Data.User.ID)
	assert.Equal(t, "new@example.com", second.Data.User.Email)
	assert.Equal(t, second.Data.Token, cred.Token())

	current, err := m.CurrentUser(ctx)
	require.NoError(t, err)
	require.True(t, current.Success)
	assert.Equal(t, "Newbie", current.Data.Username)
}

func TestMockRegisterWithinSameMillisecond(t *testing.T) {
	ctx := context.Background()
	m, cred, _ := newTestMock(t, WithClock(func() time.Time { return time.UnixMilli(1700000000000) }))

	first, err := m.Register(ctx, models.RegisterRequest{Email: "a@example.com", Username: "Alpha"})
	require.NoError(t, err)
	second, err := m.Register(ctx, models.RegisterRequest{Email: "b@example.com", Username: "Beta"})
	require.NoError(t, err)
	require.NotEqual(t, first.Data.Token, second.Data.Token)

	cred.Set(ctx, first.Data.Token)
	current, err := m.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", current.Data.Username, "a later registration does not replace an earlier one")
}

func TestMockSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	m, cred, store := newTestMock(t)

	resp, err := m.CurrentUser(ctx)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, MsgNotAuthorized, resp.Message)

	login(t, m)
	resp, err = m.CurrentUser(ctx)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "user-123", resp.Data.ID)

	require.NoError(t, m.EndSession(ctx))
	assert.False(t, cred.Present())
	_, err = store.Get(ctx, tokenstore.AuthTokenKey)
	assert.ErrorIs(t, err, tokenstore.ErrNotFound)

	require.NoError(t, m.EndSession(ctx), "ending an absent session is harmless")
}

func TestMockCatalog(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestMock(t)

	all, err := m.ListProducts(ctx, "all", "")
	require.NoError(t, err)
	assert.Len(t, all.Data, 3)

	rpg, err := m.ListProducts(ctx, "RPG", "")
	require.NoError(t, err)
	require.Len(t, rpg.Data, 1)
	assert.Equal(t, 2, rpg.Data[0].ID)

	product, err := m.GetProduct(ctx, 3)
	require.NoError(t, err)
	assert.True(t, product.Success)
	assert.Equal(t, "elden-ring", product.Data.GameID)

	missing, err := m.GetProduct(ctx, 99)
	require.NoError(t, err)
	assert.False(t, missing.Success)
	assert.Equal(t, MsgProductNotFound, missing.Message)
	assert.Zero(t, missing.Data.ID, "failed envelopes carry no placeholder data")

	categories, err := m.ListCategories(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Adventure", "RPG", "Action"}, categories.Data)

	search, err := m.SearchProducts(ctx, "action")
	require.NoError(t, err)
	require.Len(t, search.Data, 1)
	assert.Equal(t, 3, search.Data[0].ID)
}

func TestMockSubmitOrder(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestMock(t, WithSettleDelay(20*time.Millisecond))

	item := models.CartItem{Product: models.Product{ID: 1, Price: 299, GameID: "minecraft-dungeons"}, Quantity: 1}

	denied, err := m.SubmitOrder(ctx, []models.CartItem{item}, "card")
	require.NoError(t, err)
	assert.False(t, denied.Success)
	assert.Equal(t, MsgAuthRequired, denied.Message)

	login(t, m)
	resp, err := m.SubmitOrder(ctx, []models.CartItem{item}, "card")
	require.NoError(t, err)
	require.True(t, resp.Success)

	order := resp.Data
	assert.Equal(t, 299, order.Total)
	assert.Equal(t, models.OrderProcessing, order.Status)
	assert.Equal(t, "card", order.PaymentMethod)
	assert.Equal(t, "user-123", order.UserID)
	assert.Regexp(t, `^MINECRAFT-DUNGEONS-[A-Z0-9]{9}$`, order.Keys["1"])

	assert.Eventually(t, func() bool {
		current, err := m.GetOrder(ctx, order.ID)
		return err == nil && current.Success && current.Data.Status == models.OrderCompleted
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, models.OrderProcessing, order.Status, "returned snapshot is not mutated")
}

func TestMockSubmitOrderTotal(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestMock(t)
	login(t, m)

	items := []models.CartItem{
		{Product: models.Product{ID: 1, Price: 100, GameID: "a"}, Quantity: 2},
		{Product: models.Product{ID: 2, Price: 50, GameID: "b"}, Quantity: 1},
	}
	resp, err := m.SubmitOrder(ctx, items, "card")
	require.NoError(t, err)
	assert.Equal(t, 250, resp.Data.Total)
	assert.Len(t, resp.Data.Keys, 2)
}

func TestMockSubmitOrderMergesRepeatedProducts(t *testing.T) {
	m, _, _ := newTestMock(t)
	login(t, m)

	line := models.CartItem{Product: models.Product{ID: 1, Price: 100, GameID: "a"}, Quantity: 1}
	resp, err := m.SubmitOrder(context.Background(), []models.CartItem{line, line}, "card")
	require.NoError(t, err)
	require.Len(t, resp.Data.Items, 1)
	assert.Equal(t, 2, resp.Data.Items[0].Quantity)
	assert.Equal(t, 200, resp.Data.Total)
	assert.Len(t, resp.Data.Keys, 1)
}

func TestMockOrders(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestMock(t)

	denied, err := m.ListOrders(ctx)
	require.NoError(t, err)
	assert.False(t, denied.Success)

	unknown, err := m.GetOrder(ctx, "order-123")
	require.NoError(t, err)
	assert.Equal(t, MsgAuthRequired, unknown.Message)

	login(t, m)
	history, err := m.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, history.Data, 1)
	assert.Equal(t, "order-123", history.Data[0].ID)
	assert.Equal(t, models.OrderCompleted, history.Data[0].Status)
	assert.Equal(t, "MINECRAFT-DLC-ABC123XYZ", history.Data[0].Keys["1"])

	listed, err := m.GetOrder(ctx, HistoryOrderID)
	require.NoError(t, err)
	require.True(t, listed.Success, "every listed order can be looked up")
	assert.Equal(t, history.Data[0], listed.Data)

	placed, err := m.SubmitOrder(ctx, []models.CartItem{{Product: models.Product{ID: 2, Price: 1299, GameID: "cyberpunk-2077"}, Quantity: 1}}, "card")
	require.NoError(t, err)

	history, err = m.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, history.Data, 2)
	assert.Equal(t, placed.Data.ID, history.Data[1].ID)

	missing, err := m.GetOrder(ctx, "order-missing")
	require.NoError(t, err)
	assert.Equal(t, MsgOrderNotFound, missing.Message)
}

func TestMockHonorsCancellation(t *testing.T) {
	store := tokenstore.NewMemory()
	m := NewMock(NewCredential(store, logger.Discard()), logger.Discard())
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.ListProducts(ctx, "", "")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = m.Authenticate(ctx, models.LoginRequest{Email: DemoEmail, Password: DemoPassword})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCredentialLoad(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.NewMemory()
	require.NoError(t, store.Set(ctx, tokenstore.AuthTokenKey, "restored"))

	cred := NewCredential(store, logger.Discard())
	assert.False(t, cred.Present())
	require.NoError(t, cred.Load(ctx))
	assert.Equal(t, "restored", cred.Token())

	empty := NewCredential(tokenstore.NewMemory(), logger.Discard())
	require.NoError(t, empty.Load(ctx))
	assert.False(t, empty.Present())
}
