// Package hoyo wraps the HoYoLAB daily check-in and code redemption
// endpoints. Each client call performs at most one state-changing
// request and never retries internally; retry policy belongs to the
// caller, which must consult idempotency state first.
package hoyo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hoyoclaw/claimd/internal/model"
)

type gameEndpoints struct {
	signBase string // daily check-in act base, e.g. .../event/sol
	actID    string
	redeem   string // webExchangeCdkey endpoint, empty when unsupported
	gameBiz  string
}

var endpoints = map[model.Game]gameEndpoints{
	model.GameGenshin: {
		signBase: "https://sg-hk4e-api.hoyolab.com/event/sol",
		actID:    "e202102251931481",
		redeem:   "https://sg-hk4e-api.hoyoverse.com/common/apicdkey/api/webExchangeCdkey",
		gameBiz:  "hk4e_global",
	},
	model.GameStarRail: {
		signBase: "https://sg-public-api.hoyolab.com/event/luna/os",
		actID:    "e202303301540311",
		redeem:   "https://sg-hkrpg-api.hoyoverse.com/common/apicdkey/api/webExchangeCdkey",
		gameBiz:  "hkrpg_global",
	},
	model.GameZZZ: {
		signBase: "https://sg-act-nap-api.hoyolab.com/event/luna/zzz/os",
		actID:    "e202406031448091",
		redeem:   "https://public-operation-nap.hoyoverse.com/common/apicdkey/api/webExchangeCdkey",
		gameBiz:  "nap_global",
	},
	model.GameHonkai3rd: {
		signBase: "https://sg-public-api.hoyolab.com/event/mani",
		actID:    "e202110291205111",
		gameBiz:  "bh3_global",
	},
}

// apiResponse is the common HoYoLAB envelope.
type apiResponse struct {
	RetCode int             `json:"retcode"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type Client struct {
	client *http.Client
	// baseURL overrides every endpoint host when non-empty. Used by
	// tests and self-hosted proxies.
	baseURL string
}

func NewClient(timeout time.Duration, baseURL string) *Client {
	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (c *Client) rewrite(rawURL string) string {
	if c.baseURL == "" {
		return rawURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return c.baseURL + parsed.Path
}

func cookieHeader(creds model.Credentials) string {
	parts := []string{
		fmt.Sprintf("ltuid_v2=%s", creds.Ltuid),
		fmt.Sprintf("ltoken_v2=%s", creds.Ltoken),
	}
	if creds.CookieToken != "" {
		parts = append(parts, fmt.Sprintf("cookie_token_v2=%s", creds.CookieToken))
	}
	return strings.Join(parts, "; ")
}

// PerformCheckin claims the daily check-in for one game. Exactly one
// state change may occur on the remote service per successful call.
func (c *Client) PerformCheckin(ctx context.Context, game model.Game, creds model.Credentials) Outcome {
	ep, ok := endpoints[game]
	if !ok {
		return Outcome{Kind: KindRemoteRejected, Message: fmt.Sprintf("unsupported game %q", game)}
	}

	signURL := c.rewrite(ep.signBase+"/sign") + "?act_id=" + ep.actID
	body := strings.NewReader(fmt.Sprintf(`{"act_id":%q}`, ep.actID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, signURL, body)
	if err != nil {
		return transportFailure(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cookie", cookieHeader(creds))

	resp, err := c.do(req)
	if err != nil {
		return transportFailure(err)
	}

	return classifyCheckin(resp.RetCode, resp.Message)
}

// FetchCheckinReward reads today's reward detail after a successful
// check-in: the sign-in counter plus the month's reward calendar. It is
// best-effort; a failure here does not undo the check-in.
func (c *Client) FetchCheckinReward(ctx context.Context, game model.Game, creds model.Credentials) (*model.Reward, error) {
	ep, ok := endpoints[game]
	if !ok {
		return nil, fmt.Errorf("unsupported game %q", game)
	}

	var info struct {
		TotalSignDay int `json:"total_sign_day"`
	}
	if err := c.getJSON(ctx, c.rewrite(ep.signBase+"/info")+"?act_id="+ep.actID, creds, &info); err != nil {
		return nil, fmt.Errorf("fetch sign info: %w", err)
	}
	if info.TotalSignDay < 1 {
		return nil, fmt.Errorf("sign info reports no signed days")
	}

	var home struct {
		Awards []struct {
			Name  string `json:"name"`
			Count int    `json:"cnt"`
			Icon  string `json:"icon"`
		} `json:"awards"`
	}
	if err := c.getJSON(ctx, c.rewrite(ep.signBase+"/home")+"?act_id="+ep.actID, creds, &home); err != nil {
		return nil, fmt.Errorf("fetch reward calendar: %w", err)
	}
	if info.TotalSignDay > len(home.Awards) {
		return nil, fmt.Errorf("reward calendar shorter than sign day %d", info.TotalSignDay)
	}

	award := home.Awards[info.TotalSignDay-1]
	return &model.Reward{Name: award.Name, Count: award.Count, Icon: award.Icon}, nil
}

// RedeemCode redeems one promotional code for one game. The caller must
// have checked idempotency state first: many failure outcomes are
// terminal and the remote service has seen the code either way.
func (c *Client) RedeemCode(ctx context.Context, game model.Game, creds model.Credentials, lg model.LinkedGame, code string) Outcome {
	ep, ok := endpoints[game]
	if !ok || ep.redeem == "" {
		return Outcome{Kind: KindRemoteRejected, Message: fmt.Sprintf("game %q has no web redemption", game)}
	}

	q := url.Values{}
	q.Set("uid", lg.UID)
	q.Set("region", lg.Region)
	q.Set("cdkey", code)
	q.Set("game_biz", ep.gameBiz)
	q.Set("lang", "en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.rewrite(ep.redeem)+"?"+q.Encode(), nil)
	if err != nil {
		return transportFailure(err)
	}
	req.Header.Set("Cookie", cookieHeader(creds))

	resp, err := c.do(req)
	if err != nil {
		return transportFailure(err)
	}

	return classifyRedeem(resp.RetCode, resp.Message)
}

func (c *Client) do(req *http.Request) (*apiResponse, error) {
	start := time.Now()
	resp, err := c.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		log.Debug().Err(err).Str("url", req.URL.Path).Dur("elapsed", elapsed).Msg("hoyo request failed")
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	log.Debug().
		Str("url", req.URL.Path).
		Int("retcode", parsed.RetCode).
		Dur("elapsed", elapsed).
		Msg("hoyo request")

	return &parsed, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, creds model.Credentials, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Cookie", cookieHeader(creds))

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	if resp.RetCode != retOK {
		return fmt.Errorf("retcode %d: %s", resp.RetCode, resp.Message)
	}
	return json.Unmarshal(resp.Data, out)
}
