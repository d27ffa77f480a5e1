package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/roessland/coachsync/bridge"
)

// AuthConfig holds bearer token verification parameters
type AuthConfig struct {
	Secret string
	Issuer string
}

var (
	// ErrMissingToken is returned when the Authorization header is absent
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken wraps parsing and validation errors
	ErrInvalidToken = errors.New("invalid bearer token")
)

type principalKey struct{}

// WithPrincipal stores the principal in the context
func WithPrincipal(ctx context.Context, p bridge.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom retrieves the principal from the context
func PrincipalFrom(ctx context.Context) (bridge.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(bridge.Principal)
	return p, ok
}

// ParseToken validates an HS256 JWT and maps its claims onto a principal.
// "sub" is required, "email" is optional.
func ParseToken(token string, cfg AuthConfig) (bridge.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return bridge.Principal{}, ErrMissingToken
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}), jwt.WithExpirationRequired()}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil {
		return bridge.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return bridge.Principal{}, ErrInvalidToken
	}

	subject, _ := claims["sub"].(string)
	if subject == "" {
		return bridge.Principal{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	email, _ := claims["email"].(string)

	return bridge.Principal{ID: subject, Email: email}, nil
}

// IssueToken signs a token for p, valid for ttl
func IssueToken(cfg AuthConfig, p bridge.Principal, ttl time.Duration) (string, error) {
	if cfg.Secret == "" {
		return "", errors.New("jwt secret is not configured")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": p.ID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if p.Email != "" {
		claims["email"] = p.Email
	}
	if cfg.Issuer != "" {
		claims["iss"] = cfg.Issuer
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Skipper allows callers to bypass authentication for specific requests
type Skipper func(r *http.Request) bool

// AuthMiddleware enforces bearer-token authentication on incoming requests
type AuthMiddleware struct {
	Config  AuthConfig
	Skipper Skipper
}

// NewAuthMiddleware constructs the middleware. Health and metrics endpoints are public.
func NewAuthMiddleware(cfg AuthConfig) AuthMiddleware {
	skipper := func(r *http.Request) bool {
		return r.URL.Path == "/healthz" || r.URL.Path == "/metrics"
	}
	return AuthMiddleware{Config: cfg, Skipper: skipper}
}

// Wrap wraps an http.Handler with authentication
func (m AuthMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Skipper != nil && m.Skipper(r) {
			next.ServeHTTP(w, r)
			return
		}

		principal, err := m.parseRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

func (m AuthMiddleware) parseRequest(r *http.Request) (bridge.Principal, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return bridge.Principal{}, ErrMissingToken
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return bridge.Principal{}, ErrInvalidToken
	}
	return ParseToken(header[len("Bearer "):], m.Config)
}
