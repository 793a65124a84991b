package audit

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventRunStarted         EventType = "run_started"
	EventRunFinished        EventType = "run_finished"
	EventManualRun          EventType = "manual_run"
	EventNotifyDisabled     EventType = "notify_disabled"
	EventAutomationDisabled EventType = "automation_disabled"
	EventAuthFailure        EventType = "auth_failure"
)

type Event struct {
	Type      EventType
	AccountID string
	RunID     string
	IP        string
	Details   map[string]interface{}
}

func Log(ctx context.Context, event Event) {
	logger := log.With().
		Str("audit", "runner").
		Str("event_type", string(event.Type)).
		Time("timestamp", time.Now()).
		Logger()

	if event.AccountID != "" {
		logger = logger.With().Str("account_id", event.AccountID).Logger()
	}
	if event.RunID != "" {
		logger = logger.With().Str("run_id", event.RunID).Logger()
	}
	if event.IP != "" {
		logger = logger.With().Str("ip", event.IP).Logger()
	}

	logEvent := logger.Info()
	for k, v := range event.Details {
		logEvent = addField(logEvent, k, v)
	}
	logEvent.Msg("audit event")
}

func LogFromRequest(r *http.Request, event Event) {
	event.IP = clientIP(r)
	Log(r.Context(), event)
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}

func addField(e *zerolog.Event, key string, value interface{}) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return e.Str(key, v)
	case int:
		return e.Int(key, v)
	case int64:
		return e.Int64(key, v)
	case bool:
		return e.Bool(key, v)
	case time.Duration:
		return e.Dur(key, v)
	default:
		return e.Interface(key, v)
	}
}
