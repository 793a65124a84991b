package hoyo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoyoclaw/claimd/internal/model"
)

func TestValidCodes(t *testing.T) {
	t.Run("filters malformed entries", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "genshin", r.URL.Query().Get("game"))
			fmt.Fprint(w, `{"codes":[
				{"code":"GENSHINGIFT"},
				{"code":""},
				{"code":"has spaces"},
				{"code":"ok1"},
				{"code":"STARRAILGIFT2024"}
			]}`)
		}))
		defer server.Close()

		feed := NewCodesFeed(server.URL, 5*time.Second)
		codes, err := feed.ValidCodes(context.Background(), model.GameGenshin)
		require.NoError(t, err)
		assert.Equal(t, []string{"GENSHINGIFT", "STARRAILGIFT2024"}, codes)
	})

	t.Run("non-200 is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		feed := NewCodesFeed(server.URL, 5*time.Second)
		_, err := feed.ValidCodes(context.Background(), model.GameGenshin)
		assert.Error(t, err)
	})

	t.Run("breaker opens after consecutive failures", func(t *testing.T) {
		var calls atomic.Int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		feed := NewCodesFeed(server.URL, 5*time.Second)
		for i := 0; i < 5; i++ {
			_, err := feed.ValidCodes(context.Background(), model.GameGenshin)
			assert.Error(t, err)
		}

		// The breaker trips after three consecutive failures, so the
		// remaining calls never reach the server.
		assert.EqualValues(t, 3, calls.Load())
	})
}
