package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Unbanked0/btcmap-api/internal/repository"
)

type contextKey string

const adminUserIDKey contextKey = "adminUserID"

// ErrUnauthorized is returned when a request carries no valid admin token.
var ErrUnauthorized = errors.New("unauthorized")

// ContextWithAdminUserID returns a new context that carries the
// authenticated admin's user id.
func ContextWithAdminUserID(ctx context.Context, id int64) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, adminUserIDKey, id)
}

// AdminUserIDFromContext retrieves the authenticated admin's user id
// from the context, if any.
func AdminUserIDFromContext(ctx context.Context) (int64, bool) {
	if ctx == nil {
		return 0, false
	}
	value := ctx.Value(adminUserIDKey)
	if value == nil {
		return 0, false
	}
	id, ok := value.(int64)
	if !ok || id == 0 {
		return 0, false
	}
	return id, true
}

// Authenticate validates the request's bearer token against the token
// store and returns a context carrying the admin's user id.
func Authenticate(r *http.Request, tokens repository.TokenRepository) (context.Context, error) {
	header := r.Header.Get("Authorization")
	secret, found := strings.CutPrefix(header, "Bearer ")
	if !found || strings.TrimSpace(secret) == "" {
		return nil, ErrUnauthorized
	}
	token, err := tokens.SelectBySecret(r.Context(), strings.TrimSpace(secret))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return ContextWithAdminUserID(r.Context(), token.UserID), nil
}
