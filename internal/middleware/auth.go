package middleware

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/vuminh/blogapi/backend/internal/auth"
	"github.com/vuminh/blogapi/backend/internal/web"
)

// Identify validates the request credential and injects the decoded
// identity into the request context. Missing, invalid, and revoked
// tokens all fail closed with the same response.
func Identify(tokens *auth.Tokens, revoked auth.Revoker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := auth.TokenFromRequest(r)
			if raw == "" {
				web.Fail(w, http.StatusForbidden, "Unauthorized")
				return
			}

			id, err := tokens.Verify(raw)
			if err != nil {
				web.Fail(w, http.StatusForbidden, "Unauthorized")
				return
			}

			if id.TokenID != "" {
				gone, err := revoked.IsRevoked(r.Context(), id.TokenID)
				if err != nil {
					log.Error().Err(err).Msg("revocation check")
					web.Fail(w, http.StatusInternalServerError, "server error")
					return
				}
				if gone {
					web.Fail(w, http.StatusForbidden, "Unauthorized")
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}
