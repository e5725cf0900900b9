package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ariefcatur/go-shop-checkout/internal/checkout"
	"github.com/go-chi/chi/v5"
)

func (a *API) suggestions(w http.ResponseWriter, r *http.Request) {
	c, ok := a.currentCustomer(w, r)
	if !ok {
		return
	}
	limit := checkout.DefaultSuggestionLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	ps, err := a.Checkout.Suggestions(r.Context(), c, limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (a *API) createSession(w http.ResponseWriter, r *http.Request) {
	c, ok := a.currentCustomer(w, r)
	if !ok {
		return
	}
	var in checkout.SessionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if in.SuccessURL == "" || in.CancelURL == "" || in.Address == "" {
		writeError(w, http.StatusBadRequest, "success_url, cancel_url and address are required")
		return
	}
	res, err := a.Checkout.CreateSession(r.Context(), c, in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) confirmPayment(w http.ResponseWriter, r *http.Request) {
	c, ok := a.currentCustomer(w, r)
	if !ok {
		return
	}
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	res, err := a.Checkout.ConfirmPayment(r.Context(), c, sessionID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) sessionDetails(w http.ResponseWriter, r *http.Request) {
	c, ok := a.currentCustomer(w, r)
	if !ok {
		return
	}
	res, err := a.Checkout.SessionDetails(r.Context(), c, chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
