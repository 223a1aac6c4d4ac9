package server

import (
	"net/http"
	"strings"

	"github.com/skyfold/cloudflare-ddns/internal/store"
)

// TokenAuthMiddleware guards mutating endpoints with the admin token. The
// bcrypt hash of the token lives in settings; requests present the plaintext
// as "Authorization: Bearer <token>". When no hash is configured the API is
// open, which is the expected state for a loopback-only deployment.
func (h *Handler) TokenAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		settings, err := h.store.Settings(r.Context())
		if err != nil {
			h.logger.Error("failed to load settings for auth check", "error", err)
			WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
			return
		}

		if settings.AdminTokenHash == "" {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			WriteErrorWithHint(w, http.StatusUnauthorized, ErrCodeUnauthorized,
				"Missing admin token", "Send the token as: Authorization: Bearer <token>")
			return
		}

		if err := store.VerifyToken(token, settings.AdminTokenHash); err != nil {
			h.logger.Warn("invalid admin token attempt", "remote_addr", r.RemoteAddr)
			WriteError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Invalid admin token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(auth, prefix))
	return token, token != ""
}
