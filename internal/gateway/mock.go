package gateway

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"dlc_store/internal/cart"
	"dlc_store/internal/catalog"
	"dlc_store/internal/models"
	"dlc_store/internal/pkg/keygen"
	"dlc_store/internal/pkg/logger"
)

// DemoEmail and DemoPassword form the only credential pair the in-memory backend accepts.
const (
	DemoEmail    = "admin@booster.com"
	DemoPassword = "123456"
)

// Latency sets how long each Mock operation suspends the caller.
type Latency struct {
	Login        time.Duration
	Register     time.Duration
	CurrentUser  time.Duration
	ListProducts time.Duration
	GetProduct   time.Duration
	Search       time.Duration
	Categories   time.Duration
	SubmitOrder  time.Duration
	ListOrders   time.Duration
	GetOrder     time.Duration
}

// DefaultLatency mirrors the delays of the hosted demo backend.
func DefaultLatency() Latency {
	return Latency{
		Login:        1000 * time.Millisecond,
		Register:     1200 * time.Millisecond,
		CurrentUser:  500 * time.Millisecond,
		ListProducts: 800 * time.Millisecond,
		GetProduct:   600 * time.Millisecond,
		Search:       600 * time.Millisecond,
		Categories:   400 * time.Millisecond,
		SubmitOrder:  1500 * time.Millisecond,
		ListOrders:   700 * time.Millisecond,
		GetOrder:     300 * time.Millisecond,
	}
}

// HistoryOrderID identifies the completed order every Mock starts with.
const HistoryOrderID = "order-123"

// DefaultSettleDelay is how long a submitted order stays in processing.
const DefaultSettleDelay = 3 * time.Second

// MockOption configures a Mock.
type MockOption func(*Mock)

// WithLatency overrides the simulated latencies. A zero Latency makes every call return immediately.
func WithLatency(latency Latency) MockOption {
	return func(m *Mock) { m.latency = latency }
}

// WithSettleDelay overrides the processing-to-completed delay of submitted orders.
func WithSettleDelay(delay time.Duration) MockOption {
	return func(m *Mock) { m.settleDelay = delay }
}

// WithClock overrides the time source used for tokens, ids and timestamps.
func WithClock(now func() time.Time) MockOption {
	return func(m *Mock) { m.now = now }
}

// Mock is an in-memory Gateway backed by the seed catalog and a single demo customer.
type Mock struct {
	cred        *Credential
	log         *logger.Logger
	latency     Latency
	settleDelay time.Duration
	now         func() time.Time
	products    []models.Product
	demoUser    models.User

	mu       sync.Mutex
	users    map[string]models.User // by token
	orders   map[string]*models.Order
	placed   []string // history first, then orders submitted through this gateway
	timers   []*time.Timer
	isClosed bool
	tokenSeq int
}

// NewMock creates an in-memory gateway that keeps its ambient credential in cred.
func NewMock(cred *Credential, l *logger.Logger, opts ...MockOption) *Mock {
	m := &Mock{
		cred:        cred,
		log:         l,
		latency:     DefaultLatency(),
		settleDelay: DefaultSettleDelay,
		now:         time.Now,
		products:    catalog.Seed(),
		demoUser: models.User{
			ID:            "user-123",
			Email:         "gamer@example.com",
			Username:      "ProGamer2024",
			Avatar:        "🎮",
			PurchasedDLCs: []string{},
			Balance:       5000,
			CreatedAt:     time.Date(2024, time.January, 15, 10, 30, 0, 0, time.UTC),
		},
		users:  make(map[string]models.User),
		orders: make(map[string]*models.Order),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.seedHistory()
	return m
}

// seedHistory records the demo customer's past purchase so it can be listed and looked up.
func (m *Mock) seedHistory() {
	first, _ := catalog.Find(m.products, 1)
	order := &models.Order{
		ID:            HistoryOrderID,
		UserID:        m.demoUser.ID,
		Items:         []models.CartItem{{Product: first, Quantity: 1}},
		Total:         first.Price,
		Status:        models.OrderCompleted,
		PaymentMethod: "card",
		CreatedAt:     time.Date(2024, time.January, 10, 15, 30, 0, 0, time.UTC),
		Keys:          map[string]string{"1": "MINECRAFT-DLC-ABC123XYZ"},
	}
	m.orders[order.ID] = order
	m.placed = append(m.placed, order.ID)
}

// Close stops pending order settlements.
func (m *Mock) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, timer := range m.timers {
		timer.Stop()
	}
	m.timers = nil
	m.isClosed = true
}

func (m *Mock) Authenticate(ctx context.Context, req models.LoginRequest) (models.Response[models.AuthPayload], error) {
	if err := sleep(ctx, m.latency.Login); err != nil {
		return models.Response[models.AuthPayload]{}, err
	}

	if req.Email != DemoEmail || req.Password != DemoPassword {
		return models.Fail[models.AuthPayload](MsgInvalidCredentials), nil
	}

	token := m.issueToken()
	m.cred.Set(ctx, token)
	return models.OK(models.AuthPayload{User: m.demoUser, Token: token}), nil
}

// Register accepts any payload; duplicate emails and usernames are not checked.
func (m *Mock) Register(ctx context.Context, req models.RegisterRequest) (models.Response[models.AuthPayload], error) {
	if err := sleep(ctx, m.latency.Register); err != nil {
		return models.Response[models.AuthPayload]{}, err
	}

	user := m.demoUser
	user.ID = "user-" + uuid.NewString()
	user.Email = req.Email
	user.Username = req.Username
	user.PurchasedDLCs = []string{}
	user.CreatedAt = m.now().UTC()

	token := m.issueToken()
	m.mu.Lock()
	m.users[token] = user
	m.mu.Unlock()

	m.cred.Set(ctx, token)
	return models.OK(models.AuthPayload{User: user, Token: token}), nil
}

func (m *Mock) EndSession(ctx context.Context) error {
	m.cred.Clear(ctx)
	return nil
}

func (m *Mock) CurrentUser(ctx context.Context) (models.Response[models.User], error) {
	if !m.cred.Present() {
		return models.Fail[models.User](MsgNotAuthorized), nil
	}
	if err := sleep(ctx, m.latency.CurrentUser); err != nil {
		return models.Response[models.User]{}, err
	}
	return models.OK(m.userFor(m.cred.Token())), nil
}

func (m *Mock) ListProducts(ctx context.Context, category, search string) (models.Response[[]models.Product], error) {
	if err := sleep(ctx, m.latency.ListProducts); err != nil {
		return models.Response[[]models.Product]{}, err
	}
	return models.OK(catalog.Filter(m.products, category, search)), nil
}

func (m *Mock) GetProduct(ctx context.Context, id int) (models.Response[models.Product], error) {
	if err := sleep(ctx, m.latency.GetProduct); err != nil {
		return models.Response[models.Product]{}, err
	}
	product, ok := catalog.Find(m.products, id)
	if !ok {
		return models.Fail[models.Product](MsgProductNotFound), nil
	}
	return models.OK(product), nil
}

func (m *Mock) SearchProducts(ctx context.Context, query string) (models.Response[[]models.Product], error) {
	if err := sleep(ctx, m.latency.Search); err != nil {
		return models.Response[[]models.Product]{}, err
	}
	return models.OK(catalog.Search(m.products, query)), nil
}

func (m *Mock) ListCategories(ctx context.Context) (models.Response[[]string], error) {
	if err := sleep(ctx, m.latency.Categories); err != nil {
		return models.Response[[]string]{}, err
	}
	return models.OK(catalog.Categories(m.products)), nil
}

// SubmitOrder prices the lines as given, merging repeated product ids, issues one redemption key per line and schedules
// the order to complete after the settle delay.
func (m *Mock) SubmitOrder(ctx context.Context, items []models.CartItem, paymentMethod string) (models.Response[models.Order], error) {
	if !m.cred.Present() {
		return models.Fail[models.Order](MsgAuthRequired), nil
	}
	if err := sleep(ctx, m.latency.SubmitOrder); err != nil {
		return models.Response[models.Order]{}, err
	}

	items = cart.Merge(items)
	user := m.userFor(m.cred.Token())
	order := &models.Order{
		ID:            "order-" + uuid.NewString(),
		UserID:        user.ID,
		Items:         append([]models.CartItem(nil), items...),
		Status:        models.OrderProcessing,
		PaymentMethod: paymentMethod,
		CreatedAt:     m.now().UTC(),
		Keys:          make(map[string]string, len(items)),
	}
	for _, item := range items {
		order.Total += item.Subtotal()
		key, err := keygen.RedemptionKey(item.GameID)
		if err != nil {
			return models.Response[models.Order]{}, fmt.Errorf("gateway: issue key: %w", err)
		}
		order.Keys[strconv.Itoa(item.ID)] = key
	}

	m.mu.Lock()
	m.orders[order.ID] = order
	m.placed = append(m.placed, order.ID)
	snapshot := cloneOrder(order)
	if !m.isClosed {
		m.timers = append(m.timers, time.AfterFunc(m.settleDelay, func() { m.settle(order.ID) }))
	}
	m.mu.Unlock()

	m.log.Sugar().Debugf("Order %s placed, total %d", order.ID, order.Total)
	return models.OK(snapshot), nil
}

// ListOrders returns the demo purchase history followed by orders placed through this gateway.
func (m *Mock) ListOrders(ctx context.Context) (models.Response[[]models.Order], error) {
	if !m.cred.Present() {
		return models.Fail[[]models.Order](MsgAuthRequired), nil
	}
	if err := sleep(ctx, m.latency.ListOrders); err != nil {
		return models.Response[[]models.Order]{}, err
	}

	m.mu.Lock()
	orders := make([]models.Order, 0, len(m.placed))
	for _, id := range m.placed {
		orders = append(orders, cloneOrder(m.orders[id]))
	}
	m.mu.Unlock()

	return models.OK(orders), nil
}

func (m *Mock) GetOrder(ctx context.Context, id string) (models.Response[models.Order], error) {
	if !m.cred.Present() {
		return models.Fail[models.Order](MsgAuthRequired), nil
	}
	if err := sleep(ctx, m.latency.GetOrder); err != nil {
		return models.Response[models.Order]{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return models.Fail[models.Order](MsgOrderNotFound), nil
	}
	return models.OK(cloneOrder(order)), nil
}

func (m *Mock) settle(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if order, ok := m.orders[id]; ok && order.Status == models.OrderProcessing {
		order.Status = models.OrderCompleted
		m.log.Sugar().Debugf("Order %s completed", id)
	}
}

// issueToken returns "mock_jwt_token_<unix ms>_<seq>"; the sequence keeps tokens issued
// within the same millisecond distinct.
func (m *Mock) issueToken() string {
	m.mu.Lock()
	m.tokenSeq++
	seq := m.tokenSeq
	m.mu.Unlock()
	return "mock_jwt_token_" + strconv.FormatInt(m.now().UnixMilli(), 10) + "_" + strconv.Itoa(seq)
}

// userFor returns the customer registered with token, falling back to the demo customer.
func (m *Mock) userFor(token string) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user, ok := m.users[token]; ok {
		return user
	}
	return m.demoUser
}

func cloneOrder(order *models.Order) models.Order {
	clone := *order
	clone.Items = append([]models.CartItem(nil), order.Items...)
	if order.Keys != nil {
		clone.Keys = make(map[string]string, len(order.Keys))
		for k, v := range order.Keys {
			clone.Keys[k] = v
		}
	}
	return clone
}

// sleep suspends the caller for d, returning early with the context error on cancellation.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ Gateway = (*Mock)(nil)
