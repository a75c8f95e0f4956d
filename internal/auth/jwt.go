// Package auth provides JWT validation and the permission context the
// entity adapters use to scope visibility. Search is open to anonymous
// callers; a valid bearer token widens visibility to the caller's own
// records, and the admin role widens it further.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/machinesoul11/yg-backend-sub016/internal/search"
)

// DefaultLeeway is the default leeway for token validation.
const DefaultLeeway = 30 * time.Second

// AccessTokenExpiry is the lifetime of issued access tokens.
const AccessTokenExpiry = 15 * time.Minute

// ErrInvalidToken is returned when token validation fails.
var ErrInvalidToken = errors.New("invalid token")

// ErrEmptyUserID is returned when userID is empty.
var ErrEmptyUserID = errors.New("userID cannot be empty")

// Claims represents custom JWT claims for the application.
type Claims struct {
	jwt.RegisteredClaims
	Role      string `json:"role,omitempty"`
	SessionID string `json:"sid,omitempty"`
}

// JWTService handles JWT token operations.
type JWTService struct {
	secret []byte
	leeway time.Duration
}

// NewJWTService creates a new JWTService with the given secret.
func NewJWTService(secret string) *JWTService {
	return &JWTService{
		secret: []byte(secret),
		leeway: DefaultLeeway,
	}
}

// NewJWTServiceWithLeeway creates a new JWTService with custom leeway.
func NewJWTServiceWithLeeway(secret string, leeway time.Duration) *JWTService {
	return &JWTService{
		secret: []byte(secret),
		leeway: leeway,
	}
}

// GenerateToken creates a new access token for the user.
func (s *JWTService) GenerateToken(userID, role, sessionID string) (string, error) {
	if userID == "" {
		return "", ErrEmptyUserID
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenExpiry)),
		},
		Role:      role,
		SessionID: sessionID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken parses and validates a token, returning its claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithLeeway(s.leeway))
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// permKey is the context key for the caller's permission context.
type permKey struct{}

// WithPermission stores the permission context in the request context.
func WithPermission(ctx context.Context, perm search.PermissionContext) context.Context {
	return context.WithValue(ctx, permKey{}, perm)
}

// Permission returns the caller's permission context. The zero value
// (anonymous) is returned when no token was presented.
func Permission(ctx context.Context) search.PermissionContext {
	if perm, ok := ctx.Value(permKey{}).(search.PermissionContext); ok {
		return perm
	}
	return search.PermissionContext{}
}

// Middleware extracts and validates an optional bearer token, storing
// the resulting permission context. An invalid token is treated as
// anonymous rather than rejected: search visibility degrades, it does
// not error.
func Middleware(svc *JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := svc.ValidateToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			perm := search.PermissionContext{
				CallerID:  claims.Subject,
				Role:      claims.Role,
				SessionID: claims.SessionID,
			}
			next.ServeHTTP(w, r.WithContext(WithPermission(r.Context(), perm)))
		})
	}
}
