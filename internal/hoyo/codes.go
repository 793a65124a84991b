package hoyo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/hoyoclaw/claimd/internal/model"
	"github.com/hoyoclaw/claimd/internal/util"
)

// CodesFeed fetches the third-party list of currently valid promotional
// codes for a game. The feed is identical for every account, so callers
// go through the shared TTL cache and hit this client once per game per
// run. A circuit breaker makes a flapping feed fail fast for the rest of
// a run instead of stalling every cache miss.
type CodesFeed struct {
	client  *http.Client
	baseURL string
	breaker *gobreaker.CircuitBreaker[[]string]
}

func NewCodesFeed(baseURL string, timeout time.Duration) *CodesFeed {
	return &CodesFeed{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		breaker: gobreaker.NewCircuitBreaker[[]string](gobreaker.Settings{
			Name:    "codes-feed",
			Timeout: 2 * time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}
}

// ValidCodes returns the codes currently redeemable for game.
func (f *CodesFeed) ValidCodes(ctx context.Context, game model.Game) ([]string, error) {
	return f.breaker.Execute(func() ([]string, error) {
		return f.fetch(ctx, game)
	})
}

func (f *CodesFeed) fetch(ctx context.Context, game model.Game) ([]string, error) {
	url := fmt.Sprintf("%s/codes?game=%s", f.baseURL, game)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("codes feed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("codes feed status %d", resp.StatusCode)
	}

	var parsed struct {
		Codes []struct {
			Code string `json:"code"`
		} `json:"codes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode codes feed: %w", err)
	}

	codes := make([]string, 0, len(parsed.Codes))
	for _, c := range parsed.Codes {
		if util.IsValidCode(c.Code) {
			codes = append(codes, c.Code)
		}
	}
	return codes, nil
}
