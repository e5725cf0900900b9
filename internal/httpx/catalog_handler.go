package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/ariefcatur/go-shop-checkout/internal/shop"
	"github.com/go-chi/chi/v5"
)

const categoryPageSize = 10

type productReq struct {
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	CategoryID  *int64 `json:"category"`
	Stock       int64  `json:"stock"`
}

func (req productReq) validate() string {
	switch {
	case strings.TrimSpace(req.Name) == "":
		return "name is required"
	case req.Price < 0:
		return "price must not be negative"
	case req.Stock < 0:
		return "stock must not be negative"
	}
	return ""
}

func (req productReq) product(id int64) shop.Product {
	return shop.Product{
		ID:          id,
		Name:        strings.TrimSpace(req.Name),
		Price:       req.Price,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		CategoryID:  req.CategoryID,
		Stock:       req.Stock,
	}
}

type categoryReq struct {
	Name string `json:"name"`
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func (a *API) listProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := a.Store.ListProducts(r.Context(), 0)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if ps == nil {
		ps = []shop.Product{}
	}
	writeJSON(w, http.StatusOK, ps)
}

func (a *API) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := a.Store.Product(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) productsByCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ps, err := a.Catalog.ProductsByCategory(r.Context(), id, categoryPageSize)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if ps == nil {
		ps = []shop.Product{}
	}
	writeJSON(w, http.StatusOK, ps)
}

func (a *API) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	p, err := a.Catalog.CreateProduct(r.Context(), req.product(0))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req productReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	p, err := a.Catalog.UpdateProduct(r.Context(), req.product(id))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := a.Catalog.DeleteProduct(r.Context(), id); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listCategories(w http.ResponseWriter, r *http.Request) {
	cs, err := a.Catalog.ListCategories(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if cs == nil {
		cs = []shop.Category{}
	}
	writeJSON(w, http.StatusOK, cs)
}

func decodeCategory(w http.ResponseWriter, r *http.Request) (categoryReq, bool) {
	var req categoryReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return req, false
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return req, false
	}
	return req, true
}

func (a *API) createCategory(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCategory(w, r)
	if !ok {
		return
	}
	c, err := a.Catalog.CreateCategory(r.Context(), shop.Category{Name: req.Name})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (a *API) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	req, ok := decodeCategory(w, r)
	if !ok {
		return
	}
	c, err := a.Catalog.UpdateCategory(r.Context(), shop.Category{ID: id, Name: req.Name})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *API) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := a.Catalog.DeleteCategory(r.Context(), id); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
