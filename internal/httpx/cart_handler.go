package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/ariefcatur/go-shop-checkout/internal/shop"
)

type addToCartReq struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

func (a *API) listCart(w http.ResponseWriter, r *http.Request) {
	c, ok := a.currentCustomer(w, r)
	if !ok {
		return
	}
	items, err := a.Store.CartItems(r.Context(), c.ID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if items == nil {
		items = []shop.CartItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) addToCart(w http.ResponseWriter, r *http.Request) {
	c, ok := a.currentCustomer(w, r)
	if !ok {
		return
	}
	if c.Role != shop.RoleCustomer {
		writeError(w, http.StatusForbidden, "customer access required")
		return
	}
	var req addToCartReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}
	item, err := a.Store.AddCartItem(r.Context(), shop.CartItem{UserID: c.ID, ProductID: req.ProductID, Quantity: req.Quantity})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (a *API) removeFromCart(w http.ResponseWriter, r *http.Request) {
	c, ok := a.currentCustomer(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := a.Store.RemoveCartItem(r.Context(), c.ID, id); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listOrders(w http.ResponseWriter, r *http.Request) {
	c, ok := a.currentCustomer(w, r)
	if !ok {
		return
	}
	orders, err := a.Catalog.OrdersByUser(r.Context(), c.ID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if orders == nil {
		orders = []shop.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}
