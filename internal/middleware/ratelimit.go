package middleware

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/hoyoclaw/claimd/internal/errors"
	"github.com/hoyoclaw/claimd/internal/ratelimit"
)

// RateLimitMiddleware admits API requests per target account through the
// shared sliding-window limiter.
type RateLimitMiddleware struct {
	limiter *ratelimit.Limiter
}

func NewRateLimitMiddleware(limiter *ratelimit.Limiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter}
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "api"
		if accountID := chi.URLParam(r, "accountID"); accountID != "" {
			key = "api:" + accountID
		}

		res := m.limiter.Attempt(key)

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

		if !res.Allowed {
			log.Warn().Str("key", key).Msg("api rate limit exceeded")
			writeError(w, apperrors.RateLimitExceeded())
			return
		}

		next.ServeHTTP(w, r)
	})
}
