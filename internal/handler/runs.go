package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/hoyoclaw/claimd/internal/audit"
	apperrors "github.com/hoyoclaw/claimd/internal/errors"
	"github.com/hoyoclaw/claimd/internal/processor"
)

// RunHandler exposes the on-demand variant of the account processor: an
// explicit request runs every linked game regardless of automation
// flags, and successful entries are never suppressed.
type RunHandler struct {
	proc      processor.AccountRunner
	rateLimit func(http.Handler) http.Handler
}

func NewRunHandler(proc processor.AccountRunner, rateLimit func(http.Handler) http.Handler) *RunHandler {
	return &RunHandler{proc: proc, rateLimit: rateLimit}
}

// Routes mounts the rate limiter inside the {accountID} subtree so chi
// has resolved the parameter by the time the limiter picks its key.
func (h *RunHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/{accountID}", func(r chi.Router) {
		if h.rateLimit != nil {
			r.Use(h.rateLimit)
		}
		r.Post("/run", h.RunAccount)
	})
	return r
}

// RunAccount executes one manual pass for one account and returns its
// result record.
func (h *RunHandler) RunAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	if accountID == "" {
		writeError(w, apperrors.InvalidInput("accountID", "must not be empty"))
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:      audit.EventManualRun,
		AccountID: accountID,
	})

	record, err := h.proc.Process(r.Context(), accountID, processor.Options{Automatic: false})
	if errors.Is(err, processor.ErrRateLimited) {
		writeError(w, apperrors.RateLimitExceeded())
		return
	}
	if err != nil {
		log.Error().Err(err).Str("account_id", accountID).Msg("manual run failed")
		writeError(w, apperrors.Internal("Account processing failed"))
		return
	}
	if record == nil {
		writeError(w, apperrors.NotFound("Account with linked games"))
		return
	}

	writeJSON(w, http.StatusOK, record)
}
