package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/alchemorsel/recipemod/internal/infrastructure/http/response"
	apperrors "github.com/alchemorsel/recipemod/pkg/errors"
)

// UserIDHeader identifies the caller when no JWT secret is configured
const UserIDHeader = "X-User-ID"

type contextKey string

const userIDKey contextKey = "user_id"

// WithUserID stores the authenticated user on ctx
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext extracts the authenticated user from ctx
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}

// Authenticator resolves the caller of a request. With a secret it requires
// an HS256 bearer token and uses its subject. Without one it trusts the
// X-User-ID header set by an upstream gateway.
type Authenticator struct {
	secret []byte
	issuer string
	logger *zap.Logger
}

// NewAuthenticator creates an authenticator. An empty secret selects header mode.
func NewAuthenticator(secret, issuer string, logger *zap.Logger) *Authenticator {
	a := &Authenticator{issuer: issuer, logger: logger.Named("auth")}
	if secret != "" {
		a.secret = []byte(secret)
	}
	return a
}

// Middleware rejects requests without an identifiable user
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := a.identify(r)
		if err != nil {
			response.Error(w, r, a.logger, apperrors.NewUnauthorizedError(err.Error()))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

func (a *Authenticator) identify(r *http.Request) (string, error) {
	if a.secret == nil {
		userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if userID == "" {
			return "", errors.New("X-User-ID header required")
		}
		return userID, nil
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("Authorization header required")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("Invalid authorization header format")
	}

	return a.ValidateToken(parts[1])
}

// ValidateToken checks signature, expiry and issuer and returns the subject
func (a *Authenticator) ValidateToken(tokenString string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		a.logger.Debug("Rejected token", zap.Error(err))
		return "", errors.New("Invalid or expired token")
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", errors.New("Token has no subject")
	}
	return subject, nil
}
