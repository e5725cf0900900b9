package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims carry the user id and role of the subject.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"id"`
	Role   string `json:"role"`
	Type   string `json:"typ"`
}

// Issuer signs and verifies access and refresh tokens with a shared secret.
type Issuer struct {
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewIssuer(secret, algorithm string, accessTTL, refreshTTL time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported jwt algorithm %q", algorithm)
	}
	return &Issuer{
		secret:     []byte(secret),
		method:     method,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

func (i *Issuer) IssueAccess(userID int64, role string) (string, error) {
	return i.issue(userID, role, TokenAccess, i.accessTTL)
}

func (i *Issuer) IssueRefresh(userID int64, role string) (string, error) {
	return i.issue(userID, role, TokenRefresh, i.refreshTTL)
}

func (i *Issuer) issue(userID int64, role, typ string, ttl time.Duration) (string, error) {
	now := i.now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
		Role:   role,
		Type:   typ,
	}
	return jwt.NewWithClaims(i.method, claims).SignedString(i.secret)
}

// Verify parses tokenStr and checks signature, expiry, token type and that
// the id and role claims are present.
func (i *Issuer) Verify(tokenStr, wantType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == 0 || claims.Role == "" {
		return nil, fmt.Errorf("%w: missing id or role", ErrInvalidToken)
	}
	if claims.Type != wantType {
		return nil, fmt.Errorf("%w: %s token used as %s", ErrInvalidToken, claims.Type, wantType)
	}
	return claims, nil
}
