package checkouttest

import (
	"context"
	"sort"

	"github.com/ariefcatur/go-shop-checkout/internal/shop"
)

// Catalog writes mirror the Postgres constraints: unique emails, category
// references that must exist, and cascades on delete.

func (m *MemStore) CreateUser(_ context.Context, u shop.User) (shop.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.st.users {
		if existing.Email == u.Email {
			return shop.User{}, shop.ErrDuplicate
		}
	}
	u.ID = m.st.id()
	m.st.users[u.ID] = u
	return u, nil
}

func (m *MemStore) ListCategories(_ context.Context) ([]shop.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]shop.Category, 0, len(m.st.categories))
	for _, c := range m.st.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemStore) CreateCategory(_ context.Context, c shop.Category) (shop.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.st.id()
	m.st.categories[c.ID] = c
	return c, nil
}

func (m *MemStore) UpdateCategory(_ context.Context, c shop.Category) (shop.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.st.categories[c.ID]; !ok {
		return shop.Category{}, shop.ErrNotFound
	}
	m.st.categories[c.ID] = c
	return c, nil
}

func (m *MemStore) DeleteCategory(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.st.categories[id]; !ok {
		return shop.ErrNotFound
	}
	delete(m.st.categories, id)
	for pid, p := range m.st.products {
		if p.CategoryID != nil && *p.CategoryID == id {
			p.CategoryID = nil
			m.st.products[pid] = p
		}
	}
	return nil
}

func (m *MemStore) categoryExists(id *int64) bool {
	if id == nil {
		return true
	}
	_, ok := m.st.categories[*id]
	return ok
}

func (m *MemStore) CreateProduct(_ context.Context, p shop.Product) (shop.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.categoryExists(p.CategoryID) {
		return shop.Product{}, shop.ErrNotFound
	}
	p.ID = m.st.id()
	m.st.products[p.ID] = p
	return p, nil
}

func (m *MemStore) UpdateProduct(_ context.Context, p shop.Product) (shop.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.st.products[p.ID]; !ok || !m.categoryExists(p.CategoryID) {
		return shop.Product{}, shop.ErrNotFound
	}
	m.st.products[p.ID] = p
	return p, nil
}

func (m *MemStore) DeleteProduct(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.st.products[id]; !ok {
		return shop.ErrNotFound
	}
	delete(m.st.products, id)
	for cid, c := range m.st.cart {
		if c.ProductID == id {
			delete(m.st.cart, cid)
		}
	}
	kept := m.st.orders[:0]
	for _, o := range m.st.orders {
		if o.ProductID != id {
			kept = append(kept, o)
		}
	}
	m.st.orders = kept
	return nil
}

func (m *MemStore) ProductsByCategory(_ context.Context, categoryID int64, limit int) ([]shop.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view(m.st).sortedProducts(func(p shop.Product) bool {
		return p.CategoryID != nil && *p.CategoryID == categoryID
	}, limit), nil
}

func (m *MemStore) OrdersByUser(_ context.Context, userID int64) ([]shop.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []shop.Order{}
	for _, o := range m.st.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
