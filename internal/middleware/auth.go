package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hoyoclaw/claimd/internal/audit"
	apperrors "github.com/hoyoclaw/claimd/internal/errors"
	"github.com/hoyoclaw/claimd/internal/util"
)

// AdminAuthMiddleware guards the operational API with a single admin
// token, verified against a configured hash.
type AdminAuthMiddleware struct {
	tokenHash string
}

func NewAdminAuthMiddleware(tokenHash string) *AdminAuthMiddleware {
	return &AdminAuthMiddleware{tokenHash: tokenHash}
}

func (m *AdminAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			writeError(w, apperrors.Unauthorized("Missing authentication token"))
			return
		}

		if !util.VerifyAdminToken(token, m.tokenHash) {
			log.Warn().Msg("auth middleware: invalid token attempt")
			audit.LogFromRequest(r, audit.Event{Type: audit.EventAuthFailure})
			writeError(w, apperrors.Unauthorized("Invalid token"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
