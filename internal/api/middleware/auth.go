package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/edvin/vpn/internal/api/response"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the resolved caller attached to every authenticated request.
type Identity struct {
	IdentityID int64
	AccountID  int64
	DeviceID   int64
}

// IdentityResolver maps a presented (account id, device id) pair to the
// stable internal identity id. Implemented by core.IdentityService.
type IdentityResolver interface {
	Resolve(ctx context.Context, accountID, deviceID int64) (int64, error)
}

// Auth returns a middleware that resolves the caller from the X-Account-ID
// and X-Device-ID headers. Both must parse as positive integers or the
// request is rejected before reaching any handler. Unknown accounts and
// devices are auto-registered by the resolver.
func Auth(resolver IdentityResolver, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID, ok := parsePositiveInt(r.Header.Get("X-Account-ID"))
			if !ok {
				response.WriteError(w, http.StatusBadRequest, "missing or invalid X-Account-ID header")
				return
			}
			deviceID, ok := parsePositiveInt(r.Header.Get("X-Device-ID"))
			if !ok {
				response.WriteError(w, http.StatusBadRequest, "missing or invalid X-Device-ID header")
				return
			}

			identityID, err := resolver.Resolve(r.Context(), accountID, deviceID)
			if err != nil {
				logger.Error().Err(err).Int64("account_id", accountID).Msg("identity resolution failed")
				response.WriteError(w, http.StatusInternalServerError, "internal error")
				return
			}

			identity := &Identity{IdentityID: identityID, AccountID: accountID, DeviceID: deviceID}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// WithIdentity attaches the identity to the context.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// GetIdentity returns the identity attached by Auth, or nil outside an
// authenticated request.
func GetIdentity(ctx context.Context) *Identity {
	identity, _ := ctx.Value(identityKey).(*Identity)
	return identity
}

func parsePositiveInt(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
