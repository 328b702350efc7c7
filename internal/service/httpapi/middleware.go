package httpapi

import (
	"context"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop-orders/internal/auth"
)

type contextKey struct{ name string }

var identityKey = &contextKey{name: "identity"}

const invalidTokenMessage = "Invalid or expired token. Please login again!"

// RequireAuth извлекает bearer-токен, проверяет его и кладёт личность
// вызывающего в контекст запроса. Без валидного токена — 401.
func RequireAuth(verifier auth.Verifier, logger *log.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, invalidTokenMessage)
				return
			}

			identity, err := verifier.Verify(token)
			if err != nil {
				logger.WithError(err).Debug("token verification failed")
				writeError(w, http.StatusUnauthorized, invalidTokenMessage)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin пропускает только вызывающих с ролью admin. Ставится после RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, invalidTokenMessage)
			return
		}
		if !identity.IsAdmin() {
			writeError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IdentityFromContext достаёт личность вызывающего, сохранённую RequireAuth.
func IdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(auth.Identity)
	return identity, ok
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
