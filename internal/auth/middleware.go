package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"ms-booking/internal/config"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/token"
	"ms-booking/internal/utils"
)

var (
	ErrMissingCredential   = errors.New("access token not found in headers or cookies")
	ErrMalformedCredential = errors.New("authorization header format must be 'Bearer {token}'")
	// ErrPrincipalNotFound means the token verified but the account is gone.
	// Deleting a user is how this system revokes outstanding credentials, so
	// this case is kept distinct from a plain bad token.
	ErrPrincipalNotFound = errors.New("the user belonging to this token no longer exists")
)

type contextKey string

const principalKey contextKey = "principal"

// PrincipalStore resolves a verified subject ID to a user row.
type PrincipalStore interface {
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
}

// Guard authenticates requests: extract credential, verify signature and
// expiry, resolve the principal, attach it to the request context. Every
// failure is terminal for the request.
type Guard struct {
	Auth   config.AuthConfig
	Store  PrincipalStore
	Cache  *PrincipalCache
	Logger *logger.Logger
}

func NewGuard(auth config.AuthConfig, store PrincipalStore, cache *PrincipalCache, log *logger.Logger) *Guard {
	return &Guard{Auth: auth, Store: store, Cache: cache, Logger: log}
}

func (g *Guard) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, status, err := g.Authenticate(r)
			if err != nil {
				g.Logger.LogSecurity("AUTH_REJECT", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
				utils.WriteJSON(w, status, utils.ErrorResponse("unauthorized", err.Error()))
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authenticate resolves the request to a principal or reports the HTTP
// status the rejection should carry. 401 for every credential problem, 500
// only when the principal lookup itself fails.
func (g *Guard) Authenticate(r *http.Request) (*models.User, int, error) {
	credential, err := ExtractCredential(r, AccessTokenCookie)
	if err != nil {
		return nil, http.StatusUnauthorized, err
	}

	subjectID, err := token.Verify(g.Auth.AccessSecret, credential)
	if err != nil {
		return nil, http.StatusUnauthorized, err
	}

	principal, err := g.resolvePrincipal(r.Context(), subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, http.StatusUnauthorized, ErrPrincipalNotFound
		}
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to check user existence: %w", err)
	}

	return principal, http.StatusOK, nil
}

func (g *Guard) resolvePrincipal(ctx context.Context, subjectID string) (*models.User, error) {
	if g.Cache != nil {
		if cached, err := g.Cache.Get(ctx, subjectID); err == nil && cached != nil {
			return cached, nil
		}
	}

	principal, err := g.Store.GetUserByID(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	if g.Cache != nil {
		if err := g.Cache.Set(ctx, principal); err != nil {
			g.Logger.Warn("AUTH", fmt.Sprintf("failed to cache principal: %v", err))
		}
	}
	return principal, nil
}

// Principal returns the authenticated user attached by the guard. Handlers
// must use this, never a client-supplied identifier, as the acting user.
func Principal(ctx context.Context) (*models.User, bool) {
	principal, ok := ctx.Value(principalKey).(*models.User)
	return principal, ok
}

// WithPrincipal is used by handler tests to seed an authenticated context.
func WithPrincipal(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, principalKey, user)
}
