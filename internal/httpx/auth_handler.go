package httpx

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/mail"
	"strings"

	"github.com/ariefcatur/go-shop-checkout/internal/auth"
	"github.com/ariefcatur/go-shop-checkout/internal/shop"
)

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResp struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

// decodeLogin accepts a JSON body or an OAuth2 style password form.
func decodeLogin(r *http.Request) (loginReq, error) {
	var req loginReq
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		err := json.NewDecoder(r.Body).Decode(&req)
		return req, err
	}
	if err := r.ParseForm(); err != nil {
		return req, err
	}
	req.Username = r.PostForm.Get("username")
	req.Password = r.PostForm.Get("password")
	return req, nil
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	req, err := decodeLogin(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	u, err := a.Store.UserByEmail(r.Context(), req.Username)
	if err != nil && !errors.Is(err, shop.ErrNotFound) {
		a.fail(w, r, err)
		return
	}
	if err != nil || !u.IsActive || !auth.VerifyPassword(req.Password, u.PasswordHash) {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	access, err := a.Issuer.IssueAccess(u.ID, u.Role)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	refresh, err := a.Issuer.IssueRefresh(u.ID, u.Role)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResp{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"})
}

func (a *API) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}
	claims, err := a.Issuer.Verify(req.RefreshToken, auth.TokenRefresh)
	if err != nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	access, err := a.Issuer.IssueAccess(claims.UserID, claims.Role)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResp{AccessToken: access, TokenType: "bearer"})
}

// register creates an active customer account.
func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if _, err := mail.ParseAddress(req.Email); err != nil || req.Password == "" {
		writeError(w, http.StatusBadRequest, "a valid email and a password are required")
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	u, err := a.Catalog.CreateUser(r.Context(), shop.User{
		Email:        req.Email,
		PasswordHash: hash,
		IsActive:     true,
		Role:         shop.RoleCustomer,
	})
	if errors.Is(err, shop.ErrDuplicate) {
		writeError(w, http.StatusBadRequest, "Email already registered")
		return
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}
