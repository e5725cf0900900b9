package httpx

import (
	"errors"
	"net/http"

	"github.com/ariefcatur/go-shop-checkout/internal/auth"
	"github.com/ariefcatur/go-shop-checkout/internal/checkout"
	"github.com/ariefcatur/go-shop-checkout/internal/shop"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// API serves registration, login, catalog, cart, order history and checkout
// endpoints.
type API struct {
	Checkout *checkout.Service
	Store    shop.Store
	Catalog  shop.Catalog
	Issuer   *auth.Issuer
	Limiter  *RateLimiter // optional
	Log      zerolog.Logger
}

func (a *API) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		if a.Limiter != nil {
			r.Use(a.Limiter.Middleware)
		}
		r.Post("/register", a.register)
		r.Post("/login", a.login)
		r.Post("/refresh", a.refresh)

		r.Route("/api", func(r chi.Router) {
			r.Get("/products", a.listProducts)
			r.Get("/products/{id}", a.getProduct)
			r.Get("/categories", a.listCategories)
			r.Get("/categories/{id}/products", a.productsByCategory)

			r.Group(func(r chi.Router) {
				r.Use(auth.Middleware(a.Issuer))

				r.Get("/orders", a.listOrders)

				r.Route("/cart", func(r chi.Router) {
					r.Get("/", a.listCart)
					r.Post("/", a.addToCart)
					r.Delete("/{id}", a.removeFromCart)
				})

				r.Group(func(r chi.Router) {
					r.Use(requireRole(shop.CanManageCatalog, "seller or admin access required"))
					r.Post("/products", a.createProduct)
					r.Put("/products/{id}", a.updateProduct)
					r.Delete("/products/{id}", a.deleteProduct)
					r.Post("/categories", a.createCategory)
					r.Put("/categories/{id}", a.updateCategory)
					r.Delete("/categories/{id}", a.deleteCategory)
				})

				r.Route("/checkout", func(r chi.Router) {
					r.Use(requireRole(isCustomer, checkout.ErrNotCustomer.Error()))
					r.Get("/suggestions", a.suggestions)
					r.Post("/create-session", a.createSession)
					r.Post("/confirm-payment", a.confirmPayment)
					r.Get("/session/{id}", a.sessionDetails)
				})
			})
		})
	})
}

func isCustomer(role string) bool { return role == shop.RoleCustomer }

// requireRole rejects principals whose role claim fails allow, before any
// request body is read.
func requireRole(allow func(role string) bool, msg string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := auth.PrincipalFrom(r.Context())
			if err != nil {
				writeError(w, http.StatusUnauthorized, "could not validate credentials")
				return
			}
			if !allow(p.Role) {
				writeError(w, http.StatusForbidden, msg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// currentCustomer resolves the token subject to a stored user. A token for a
// user that no longer exists is treated like an invalid token.
func (a *API) currentCustomer(w http.ResponseWriter, r *http.Request) (checkout.Customer, bool) {
	p, err := auth.PrincipalFrom(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "could not validate credentials")
		return checkout.Customer{}, false
	}
	u, err := a.Store.User(r.Context(), p.UserID)
	if errors.Is(err, shop.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, "could not validate credentials")
		return checkout.Customer{}, false
	}
	if err != nil {
		a.fail(w, r, err)
		return checkout.Customer{}, false
	}
	return checkout.Customer{ID: u.ID, Email: u.Email, Role: p.Role}, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, checkout.ErrNotCustomer),
		errors.Is(err, checkout.ErrSessionOwnership):
		return http.StatusForbidden
	case errors.Is(err, checkout.ErrProductNotFound),
		errors.Is(err, shop.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrInsufficientStock),
		errors.Is(err, checkout.ErrPaymentNotCompleted),
		errors.Is(err, checkout.ErrGateway):
		return http.StatusBadRequest
	case errors.Is(err, checkout.ErrInvalidTransition),
		errors.Is(err, shop.ErrDuplicate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Unclassified errors are logged and
// hidden from the client.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		a.Log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, code, "internal server error")
		return
	}
	writeError(w, code, err.Error())
}
