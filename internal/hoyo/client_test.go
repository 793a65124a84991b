package hoyo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoyoclaw/claimd/internal/model"
)

var testCreds = model.Credentials{Ltuid: "12345", Ltoken: "token", CookieToken: "ct"}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(5*time.Second, server.URL)
}

func TestPerformCheckin(t *testing.T) {
	tests := []struct {
		name    string
		retcode int
		message string
		want    Kind
	}{
		{"success", 0, "OK", KindSuccess},
		{"already signed", -5003, "already signed in today", KindAlreadyDone},
		{"invalid cookie", -100, "please login", KindInvalidCredentials},
		{"login required", 10001, "not logged in", KindInvalidCredentials},
		{"no game account", -1073, "no character", KindNoGameAccount},
		{"other rejection", -500, "activity not found", KindRemoteRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Contains(t, r.URL.RawQuery, "act_id=")
				assert.Contains(t, r.Header.Get("Cookie"), "ltuid_v2=12345")
				fmt.Fprintf(w, `{"retcode":%d,"message":%q,"data":null}`, tt.retcode, tt.message)
			})

			outcome := client.PerformCheckin(context.Background(), model.GameGenshin, testCreds)
			assert.Equal(t, tt.want, outcome.Kind)
			if tt.want == KindRemoteRejected {
				assert.Equal(t, tt.retcode, outcome.RetCode)
				assert.Equal(t, tt.message, outcome.Message)
			}
		})
	}

	t.Run("non-200 is a transport failure", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		outcome := client.PerformCheckin(context.Background(), model.GameGenshin, testCreds)
		assert.Equal(t, KindTransportFailure, outcome.Kind)
	})

	t.Run("malformed body is a transport failure", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "<html>maintenance</html>")
		})
		outcome := client.PerformCheckin(context.Background(), model.GameGenshin, testCreds)
		assert.Equal(t, KindTransportFailure, outcome.Kind)
	})

	t.Run("unreachable host is a transport failure", func(t *testing.T) {
		client := NewClient(100*time.Millisecond, "http://127.0.0.1:1")
		outcome := client.PerformCheckin(context.Background(), model.GameGenshin, testCreds)
		assert.Equal(t, KindTransportFailure, outcome.Kind)
	})
}

func TestRedeemCode(t *testing.T) {
	lg := model.LinkedGame{UID: "800000001", Region: "os_euro"}

	tests := []struct {
		name    string
		retcode int
		want    Kind
	}{
		{"success", 0, KindSuccess},
		{"already used", -2017, KindAlreadyDone},
		{"claimed elsewhere", -2018, KindAlreadyDone},
		{"expired", -2001, KindRemoteRejected},
		{"malformed code", -2003, KindRemoteRejected},
		{"cooldown", -2016, KindRemoteRejected},
		{"invalid cookie", -100, KindInvalidCredentials},
		{"no game account", -1073, KindNoGameAccount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				q := r.URL.Query()
				assert.Equal(t, "800000001", q.Get("uid"))
				assert.Equal(t, "os_euro", q.Get("region"))
				assert.Equal(t, "GENSHINGIFT", q.Get("cdkey"))
				assert.Equal(t, "hk4e_global", q.Get("game_biz"))
				fmt.Fprintf(w, `{"retcode":%d,"message":"msg","data":null}`, tt.retcode)
			})

			outcome := client.RedeemCode(context.Background(), model.GameGenshin, testCreds, lg, "GENSHINGIFT")
			assert.Equal(t, tt.want, outcome.Kind)
		})
	}

	t.Run("games without web redemption are rejected locally", func(t *testing.T) {
		called := false
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			called = true
		})

		outcome := client.RedeemCode(context.Background(), model.GameHonkai3rd, testCreds, lg, "CODE")
		assert.Equal(t, KindRemoteRejected, outcome.Kind)
		assert.False(t, called, "no request should reach the remote service")
	})
}

func TestFetchCheckinReward(t *testing.T) {
	t.Run("returns the award for the current sign day", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			switch {
			case strings.Contains(r.URL.Path, "/info"):
				fmt.Fprint(w, `{"retcode":0,"message":"OK","data":{"total_sign_day":2}}`)
			case strings.Contains(r.URL.Path, "/home"):
				fmt.Fprint(w, `{"retcode":0,"message":"OK","data":{"awards":[
					{"name":"Primogem","cnt":20,"icon":"a.png"},
					{"name":"Mora","cnt":8000,"icon":"b.png"}
				]}}`)
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		})

		reward, err := client.FetchCheckinReward(context.Background(), model.GameGenshin, testCreds)
		require.NoError(t, err)
		assert.Equal(t, "Mora", reward.Name)
		assert.Equal(t, 8000, reward.Count)
	})

	t.Run("fails when the calendar is shorter than the sign day", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if strings.Contains(r.URL.Path, "/info") {
				fmt.Fprint(w, `{"retcode":0,"message":"OK","data":{"total_sign_day":5}}`)
				return
			}
			fmt.Fprint(w, `{"retcode":0,"message":"OK","data":{"awards":[{"name":"Primogem","cnt":20}]}}`)
		})

		_, err := client.FetchCheckinReward(context.Background(), model.GameGenshin, testCreds)
		assert.Error(t, err)
	})

	t.Run("fails on a non-zero retcode", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"retcode":-100,"message":"please login","data":null}`)
		})

		_, err := client.FetchCheckinReward(context.Background(), model.GameGenshin, testCreds)
		assert.Error(t, err)
	})
}
