package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoyoclaw/claimd/internal/middleware"
	"github.com/hoyoclaw/claimd/internal/model"
	"github.com/hoyoclaw/claimd/internal/processor"
	"github.com/hoyoclaw/claimd/internal/ratelimit"
)

type stubRunner struct {
	record *model.ResultRecord
	err    error
	seenID string
	opts   processor.Options
}

func (s *stubRunner) Process(ctx context.Context, accountID string, opts processor.Options) (*model.ResultRecord, error) {
	s.seenID = accountID
	s.opts = opts
	return s.record, s.err
}

func TestRunAccount(t *testing.T) {
	t.Run("returns the result record of a manual pass", func(t *testing.T) {
		runner := &stubRunner{record: &model.ResultRecord{
			AccountID: "acct-1",
			Entries: []model.ResultEntry{
				{Game: model.GameGenshin, Kind: model.EntryCheckinSuccess, Detail: "daily check-in claimed"},
			},
		}}
		h := NewRunHandler(runner, nil)

		req := httptest.NewRequest(http.MethodPost, "/acct-1/run", nil)
		rec := httptest.NewRecorder()
		h.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "acct-1", runner.seenID)
		assert.False(t, runner.opts.Automatic, "manual runs bypass the automation flags")

		var record model.ResultRecord
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&record))
		assert.Equal(t, "acct-1", record.AccountID)
		require.Len(t, record.Entries, 1)
	})

	t.Run("unknown account maps to 404", func(t *testing.T) {
		h := NewRunHandler(&stubRunner{}, nil)

		req := httptest.NewRequest(http.MethodPost, "/no-such/run", nil)
		rec := httptest.NewRecorder()
		h.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("deferred account maps to 429", func(t *testing.T) {
		h := NewRunHandler(&stubRunner{err: processor.ErrRateLimited}, nil)

		req := httptest.NewRequest(http.MethodPost, "/acct-1/run", nil)
		rec := httptest.NewRecorder()
		h.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Contains(t, rec.Body.String(), "RATE_LIMIT_EXCEEDED")
	})

	t.Run("processing failure maps to 500", func(t *testing.T) {
		h := NewRunHandler(&stubRunner{err: errors.New("boom")}, nil)

		req := httptest.NewRequest(http.MethodPost, "/acct-1/run", nil)
		rec := httptest.NewRecorder()
		h.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

// TestRunAccountRateLimitKeys drives the mounted route exactly as the
// server wires it and verifies the API limiter buckets by account
// rather than collapsing every request onto one shared key.
func TestRunAccountRateLimitKeys(t *testing.T) {
	newRouter := func(limit int) (http.Handler, *stubRunner) {
		runner := &stubRunner{record: &model.ResultRecord{}}
		limiter := middleware.NewRateLimitMiddleware(ratelimit.New(limit, time.Minute))
		h := NewRunHandler(runner, limiter.Handler)

		r := chi.NewRouter()
		r.Route("/v1/accounts", func(r chi.Router) {
			r.Mount("/", h.Routes())
		})
		return r, runner
	}

	post := func(h http.Handler, accountID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/accounts/"+accountID+"/run", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("distinct accounts never share a bucket", func(t *testing.T) {
		h, _ := newRouter(1)

		assert.Equal(t, http.StatusOK, post(h, "acct-1").Code)
		assert.Equal(t, http.StatusOK, post(h, "acct-2").Code)
	})

	t.Run("one account exhausting its bucket is limited", func(t *testing.T) {
		h, runner := newRouter(1)

		assert.Equal(t, http.StatusOK, post(h, "acct-1").Code)
		assert.Equal(t, http.StatusTooManyRequests, post(h, "acct-1").Code)
		assert.Equal(t, "acct-1", runner.seenID)
	})
}
