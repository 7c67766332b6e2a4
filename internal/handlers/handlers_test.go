package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopcart/apiserver/internal/services"
	"github.com/shopcart/apiserver/internal/store"
	"github.com/shopcart/apiserver/internal/token"
	"github.com/shopcart/apiserver/types"
)

// In-memory doubles for the repositories and the blocklist, so the full
// router can be exercised without Postgres.

type memUserRepo struct {
	mu     sync.Mutex
	users  map[int]types.User
	nextID int
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[int]types.User), nextID: 1}
}

func (m *memUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (m *memUserRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrConflict
		}
	}
	user.ID = m.nextID
	m.nextID++
	m.users[user.ID] = user
	return user, nil
}

func (m *memUserRepo) Update(ctx context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	m.users[user.ID] = user
	return user, nil
}

func (m *memUserRepo) List(ctx context.Context) ([]types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]types.User, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, user)
	}
	return users, nil
}

func (m *memUserRepo) setAdmin(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user := m.users[id]
	user.IsAdmin = true
	m.users[id] = user
}

type memAddressRepo struct {
	mu     sync.Mutex
	byUser map[int]types.Address
	nextID int
}

func newMemAddressRepo() *memAddressRepo {
	return &memAddressRepo{byUser: make(map[int]types.Address), nextID: 1}
}

func (m *memAddressRepo) GetByUserID(ctx context.Context, userID int) (types.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	address, ok := m.byUser[userID]
	if !ok {
		return types.Address{}, store.ErrNotFound
	}
	return address, nil
}

func (m *memAddressRepo) Create(ctx context.Context, address types.Address) (types.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byUser[address.UserID]; ok {
		return types.Address{}, store.ErrConflict
	}
	address.ID = m.nextID
	m.nextID++
	m.byUser[address.UserID] = address
	return address, nil
}

func (m *memAddressRepo) Update(ctx context.Context, address types.Address) (types.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byUser[address.UserID]; !ok {
		return types.Address{}, store.ErrNotFound
	}
	m.byUser[address.UserID] = address
	return address, nil
}

func (m *memAddressRepo) List(ctx context.Context) ([]types.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	addresses := make([]types.Address, 0, len(m.byUser))
	for _, address := range m.byUser {
		addresses = append(addresses, address)
	}
	return addresses, nil
}

type memItemRepo struct {
	mu     sync.Mutex
	items  map[int]types.Item
	nextID int
}

func newMemItemRepo() *memItemRepo {
	return &memItemRepo{items: make(map[int]types.Item), nextID: 1}
}

func (m *memItemRepo) Get(ctx context.Context, id int) (types.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return types.Item{}, store.ErrNotFound
	}
	return item, nil
}

func (m *memItemRepo) Create(ctx context.Context, item types.Item) (types.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.Name == item.Name {
			return types.Item{}, store.ErrConflict
		}
	}
	item.ID = m.nextID
	m.nextID++
	m.items[item.ID] = item
	return item, nil
}

func (m *memItemRepo) Update(ctx context.Context, item types.Item) (types.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[item.ID]; !ok {
		return types.Item{}, store.ErrNotFound
	}
	m.items[item.ID] = item
	return item, nil
}

func (m *memItemRepo) Delete(ctx context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memItemRepo) List(ctx context.Context) ([]types.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]types.Item, 0, len(m.items))
	for _, item := range m.items {
		items = append(items, item)
	}
	return items, nil
}

type memOrderRepo struct {
	mu     sync.Mutex
	orders map[int]types.Order
	nextID int
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[int]types.Order), nextID: 1}
}

func (m *memOrderRepo) Get(ctx context.Context, id int) (types.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return types.Order{}, store.ErrNotFound
	}
	return order, nil
}

func (m *memOrderRepo) Create(ctx context.Context, order types.Order) (types.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order.ID = m.nextID
	m.nextID++
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	m.orders[order.ID] = order
	return order, nil
}

func (m *memOrderRepo) ReplaceItems(ctx context.Context, orderID int, items []types.OrderItem) (types.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return types.Order{}, store.ErrNotFound
	}
	for i := range items {
		items[i].OrderID = orderID
	}
	order.Items = items
	m.orders[orderID] = order
	return order, nil
}

func (m *memOrderRepo) Delete(ctx context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.orders, id)
	return nil
}

func (m *memOrderRepo) AdvanceStatus(ctx context.Context, id int, from, to types.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return store.ErrNotFound
	}
	if order.Status != from {
		return store.ErrConflict
	}
	order.Status = to
	m.orders[id] = order
	return nil
}

func (m *memOrderRepo) ListByUser(ctx context.Context, userID int) ([]types.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	orders := make([]types.Order, 0)
	for _, order := range m.orders {
		if order.UserID == userID {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

func (m *memOrderRepo) List(ctx context.Context) ([]types.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	orders := make([]types.Order, 0, len(m.orders))
	for _, order := range m.orders {
		orders = append(orders, order)
	}
	return orders, nil
}

type memBlocklist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func newMemBlocklist() *memBlocklist {
	return &memBlocklist{revoked: make(map[string]time.Time)}
}

func (m *memBlocklist) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = expiresAt
	return nil
}

func (m *memBlocklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiresAt, ok := m.revoked[jti]
	return ok && time.Now().Before(expiresAt), nil
}

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{objects: make(map[string][]byte)}
}

func (m *memStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func itoa(id int) string { return strconv.Itoa(id) }

// testEnv bundles the wired router and its fakes.
type testEnv struct {
	router *chi.Mux
	users  *memUserRepo
	items  *memItemRepo
	orders *memOrderRepo
}

// newTestEnv wires the full route table against in-memory backends,
// mirroring the production server layout.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := newMemUserRepo()
	addresses := newMemAddressRepo()
	items := newMemItemRepo()
	orders := newMemOrderRepo()
	revoked := newMemBlocklist()
	issuer := token.NewIssuer("test-secret", time.Minute, time.Hour)

	userService := services.NewUserService(users, newMemStorage())
	addressService := services.NewAddressService(addresses)
	itemService := services.NewItemService(items, newMemStorage())
	orderService := services.NewOrderService(orders, items, nil)

	requireAuth := RequireAuth(issuer, revoked)
	requireAdmin := RequireAdmin(userService)

	router := chi.NewRouter()
	router.Route("/user", func(r chi.Router) {
		AuthRouter(r, userService, issuer, revoked)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			UserRouter(r, userService, addressService)
			OrderRouter(r, orderService)
		})
	})
	router.Route("/admin", func(r chi.Router) {
		r.Use(requireAuth, requireAdmin)
		AdminUserRouter(r, userService, addressService)
		AdminItemRouter(r, itemService)
		AdminOrderRouter(r, orderService)
	})

	return &testEnv{
		router: router,
		users:  users,
		items:  items,
		orders: orders,
	}
}

func (env *testEnv) do(t *testing.T, method, target, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

// register creates an account through the API and returns the token
// pair.
func (env *testEnv) register(t *testing.T, name, email, password string) AuthResponse {
	t.Helper()

	rec := env.do(t, http.MethodPost, "/user/register", "", map[string]string{
		"full_name": name,
		"email":     email,
		"password":  password,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", email, rec.Code, rec.Body.String())
	}

	var resp AuthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	return resp
}

// registerAdmin registers an account and flips the persisted admin flag,
// then logs in again so the token carries the admin claim.
func (env *testEnv) registerAdmin(t *testing.T, email string) AuthResponse {
	t.Helper()

	resp := env.register(t, "Admin", email, "admin-pw")
	env.users.setAdmin(resp.User.ID)

	rec := env.do(t, http.MethodPost, "/user/login", "", map[string]string{
		"email":    email,
		"password": "admin-pw",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("admin login: status %d body %s", rec.Code, rec.Body.String())
	}
	var login AuthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &login); err != nil {
		t.Fatalf("decode admin login response: %v", err)
	}
	return login
}
