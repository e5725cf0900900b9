// Package checkouttest provides in-memory collaborators for exercising the
// checkout flow without Postgres or a payment provider.
package checkouttest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-shop-checkout/internal/shop"
)

type memState struct {
	nextID     int64
	users      map[int64]shop.User
	categories map[int64]shop.Category
	products   map[int64]shop.Product
	cart       map[int64]shop.CartItem
	orders     []shop.Order
	attempts   map[string]shop.CheckoutAttempt
}

func (s *memState) clone() *memState {
	c := &memState{
		nextID:     s.nextID,
		users:      make(map[int64]shop.User, len(s.users)),
		categories: make(map[int64]shop.Category, len(s.categories)),
		products:   make(map[int64]shop.Product, len(s.products)),
		cart:       make(map[int64]shop.CartItem, len(s.cart)),
		orders:     append([]shop.Order(nil), s.orders...),
		attempts:   make(map[string]shop.CheckoutAttempt, len(s.attempts)),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.cart {
		c.cart[k] = v
	}
	for k, v := range s.attempts {
		c.attempts[k] = v
	}
	return c
}

func (s *memState) id() int64 {
	s.nextID++
	return s.nextID
}

// MemStore implements shop.Store and shop.Catalog. InTx runs against a copy of the state that
// replaces the live state only when the callback succeeds.
type MemStore struct {
	mu     sync.Mutex
	st     *memState
	faults map[string]fault
	calls  map[string]int
}

type fault struct {
	after int
	err   error
}

var (
	_ shop.Store   = (*MemStore)(nil)
	_ shop.Catalog = (*MemStore)(nil)
)

func NewMemStore() *MemStore {
	return &MemStore{
		st: &memState{
			users:      map[int64]shop.User{},
			categories: map[int64]shop.Category{},
			products:   map[int64]shop.Product{},
			cart:       map[int64]shop.CartItem{},
			attempts:   map[string]shop.CheckoutAttempt{},
		},
		faults: map[string]fault{},
		calls:  map[string]int{},
	}
}

// FailAfter makes write operation op (for example "AdjustStock") return err
// once it has succeeded n times.
func (m *MemStore) FailAfter(op string, n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[op] = fault{after: n, err: err}
	m.calls[op] = 0
}

func (m *MemStore) ClearFaults() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults = map[string]fault{}
	m.calls = map[string]int{}
}

func (m *MemStore) check(op string) error {
	f, ok := m.faults[op]
	if !ok {
		return nil
	}
	m.calls[op]++
	if m.calls[op] > f.after {
		return f.err
	}
	return nil
}

func (m *MemStore) view(st *memState) *memView { return &memView{st: st, m: m} }

// Seeding helpers.

func (m *MemStore) AddUser(u shop.User) shop.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		u.ID = m.st.id()
	}
	m.st.users[u.ID] = u
	return u
}

func (m *MemStore) PutProduct(p shop.Product) shop.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == 0 {
		p.ID = m.st.id()
	}
	m.st.products[p.ID] = p
	return p
}

// DropProduct removes a product but leaves cart lines pointing at it, the way
// a concurrent delete looks to a checkout already in flight.
func (m *MemStore) DropProduct(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.st.products, id)
}

func (m *MemStore) PutOrder(o shop.Order) shop.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.ID = m.st.id()
	m.st.orders = append(m.st.orders, o)
	return o
}

// Snapshots.

func (m *MemStore) Orders() []shop.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]shop.Order(nil), m.st.orders...)
}

func (m *MemStore) Attempt(sessionID string) (shop.CheckoutAttempt, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.st.attempts[sessionID]
	return a, ok
}

func (m *MemStore) Stock(productID int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.products[productID].Stock
}

// shop.Store

func (m *MemStore) User(ctx context.Context, id int64) (shop.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view(m.st).User(ctx, id)
}

func (m *MemStore) UserByEmail(ctx context.Context, email string) (shop.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view(m.st).UserByEmail(ctx, email)
}

func (m *MemStore) Product(ctx context.Context, id int64) (shop.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view(m.st).Product(ctx, id)
}

func (m *MemStore) ListProducts(ctx context.Context, limit int) ([]shop.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view(m.st).ListProducts(ctx, limit)
}

func (m *MemStore) CartItems(ctx context.Context, userID int64) ([]shop.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view(m.st).CartItems(ctx, userID)
}

func (m *MemStore) PurchasedProductIDs(ctx context.Context, userID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view(m.st).PurchasedProductIDs(ctx, userID)
}

func (m *MemStore) PurchasedCategories(ctx context.Context, userID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view(m.st).PurchasedCategories(ctx, userID)
}

func (m *MemStore) ProductsInCategories(ctx context.Context, categoryIDs, excludeIDs []int64, limit int) ([]shop.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view(m.st).ProductsInCategories(ctx, categoryIDs, excludeIDs, limit)
}

func (m *MemStore) CheckoutAttempt(ctx context.Context, sessionID string) (shop.CheckoutAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view(m.st).CheckoutAttempt(ctx, sessionID)
}

func (m *MemStore) SaveCheckoutAttempt(ctx context.Context, a shop.CheckoutAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view(m.st).SaveCheckoutAttempt(ctx, a)
}

func (m *MemStore) AddCartItem(_ context.Context, item shop.CartItem) (shop.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.st.products[item.ProductID]; !ok {
		return shop.CartItem{}, shop.ErrNotFound
	}
	for _, c := range m.st.cart {
		if c.UserID == item.UserID && c.ProductID == item.ProductID {
			return shop.CartItem{}, shop.ErrDuplicate
		}
	}
	item.ID = m.st.id()
	m.st.cart[item.ID] = item
	return item, nil
}

func (m *MemStore) RemoveCartItem(_ context.Context, userID, itemID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.st.cart[itemID]
	if !ok || c.UserID != userID {
		return shop.ErrNotFound
	}
	delete(m.st.cart, itemID)
	return nil
}

func (m *MemStore) InTx(_ context.Context, fn func(tx shop.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	work := m.st.clone()
	if err := fn(m.view(work)); err != nil {
		return err
	}
	m.st = work
	return nil
}

// memView operates on one state without locking; MemStore holds the lock.
type memView struct {
	st *memState
	m  *MemStore
}

var _ shop.Tx = (*memView)(nil)

func (v *memView) User(_ context.Context, id int64) (shop.User, error) {
	u, ok := v.st.users[id]
	if !ok {
		return shop.User{}, shop.ErrNotFound
	}
	return u, nil
}

func (v *memView) UserByEmail(_ context.Context, email string) (shop.User, error) {
	for _, u := range v.st.users {
		if u.Email == email {
			return u, nil
		}
	}
	return shop.User{}, shop.ErrNotFound
}

func (v *memView) Product(_ context.Context, id int64) (shop.Product, error) {
	p, ok := v.st.products[id]
	if !ok {
		return shop.Product{}, shop.ErrNotFound
	}
	return p, nil
}

func (v *memView) sortedProducts(keep func(shop.Product) bool, limit int) []shop.Product {
	var out []shop.Product
	for _, p := range v.st.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (v *memView) ListProducts(_ context.Context, limit int) ([]shop.Product, error) {
	return v.sortedProducts(func(shop.Product) bool { return true }, limit), nil
}

func (v *memView) ProductsInCategories(_ context.Context, categoryIDs, excludeIDs []int64, limit int) ([]shop.Product, error) {
	cats := toSet(categoryIDs)
	excluded := toSet(excludeIDs)
	return v.sortedProducts(func(p shop.Product) bool {
		return p.CategoryID != nil && cats[*p.CategoryID] && !excluded[p.ID]
	}, limit), nil
}

func (v *memView) CartItems(_ context.Context, userID int64) ([]shop.CartItem, error) {
	var out []shop.CartItem
	for _, c := range v.st.cart {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *memView) PurchasedProductIDs(_ context.Context, userID int64) ([]int64, error) {
	seen := map[int64]bool{}
	for _, o := range v.st.orders {
		if o.UserID == userID {
			seen[o.ProductID] = true
		}
	}
	return sortedKeys(seen), nil
}

func (v *memView) PurchasedCategories(_ context.Context, userID int64) ([]int64, error) {
	seen := map[int64]bool{}
	for _, o := range v.st.orders {
		if o.UserID != userID {
			continue
		}
		if p, ok := v.st.products[o.ProductID]; ok && p.CategoryID != nil {
			seen[*p.CategoryID] = true
		}
	}
	return sortedKeys(seen), nil
}

func (v *memView) CheckoutAttempt(_ context.Context, sessionID string) (shop.CheckoutAttempt, error) {
	a, ok := v.st.attempts[sessionID]
	if !ok {
		return shop.CheckoutAttempt{}, shop.ErrNotFound
	}
	return a, nil
}

func (v *memView) SaveCheckoutAttempt(_ context.Context, a shop.CheckoutAttempt) error {
	if err := v.m.check("SaveCheckoutAttempt"); err != nil {
		return err
	}
	now := time.Now().UTC()
	if prev, ok := v.st.attempts[a.SessionID]; ok {
		prev.State = a.State
		prev.UpdatedAt = now
		v.st.attempts[a.SessionID] = prev
		return nil
	}
	a.CreatedAt, a.UpdatedAt = now, now
	v.st.attempts[a.SessionID] = a
	return nil
}

func (v *memView) CreateOrder(_ context.Context, o shop.Order) (shop.Order, error) {
	if err := v.m.check("CreateOrder"); err != nil {
		return shop.Order{}, err
	}
	o.ID = v.st.id()
	o.CreatedAt = time.Now().UTC()
	v.st.orders = append(v.st.orders, o)
	return o, nil
}

func (v *memView) AdjustStock(_ context.Context, productID, delta int64) error {
	if err := v.m.check("AdjustStock"); err != nil {
		return err
	}
	p, ok := v.st.products[productID]
	if !ok {
		return shop.ErrNotFound
	}
	p.Stock += delta
	v.st.products[productID] = p
	return nil
}

func (v *memView) DeleteCartItem(_ context.Context, id int64) error {
	if err := v.m.check("DeleteCartItem"); err != nil {
		return err
	}
	if _, ok := v.st.cart[id]; !ok {
		return shop.ErrNotFound
	}
	delete(v.st.cart, id)
	return nil
}

func toSet(ids []int64) map[int64]bool {
	s := make(map[int64]bool, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}

func sortedKeys(m map[int64]bool) []int64 {
	out := make([]int64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
