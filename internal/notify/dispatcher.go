// Package notify delivers per-run result records to each account's
// registered webhook. Delivery is best-effort: transient failures are
// retried implicitly on the next run, while a permanent "recipient
// unreachable" response disables the account's notification flags so a
// dead channel is never hammered again.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hoyoclaw/claimd/internal/audit"
	"github.com/hoyoclaw/claimd/internal/model"
)

// NotifyFlagStore persists the per-action notification toggles.
// Implemented by repository.AccountRepository.
type NotifyFlagStore interface {
	SetNotifyFlag(ctx context.Context, id string, action model.AutomationAction, enabled bool) error
}

type Dispatcher struct {
	client   *http.Client
	accounts NotifyFlagStore
}

func NewDispatcher(accounts NotifyFlagStore, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		client:   &http.Client{Timeout: timeout},
		accounts: accounts,
	}
}

// ShouldNotify applies the suppression rule: empty records are never
// sent, manual runs and records with error entries always are, and
// routine successes are gated on the account's per-action flags.
func ShouldNotify(account *model.Account, record *model.ResultRecord) bool {
	if record.Empty() {
		return false
	}
	if !record.Automatic {
		return true
	}
	if record.HasErrors() {
		return true
	}
	for _, e := range record.Entries {
		switch e.Kind {
		case model.EntryCheckinSuccess:
			if account.NotifyCheckin {
				return true
			}
		case model.EntryRedeemSuccess, model.EntryManualRedeem:
			if account.NotifyRedeem {
				return true
			}
		}
	}
	return false
}

// Dispatch sends the record to the account's webhook when the
// suppression rule allows it. The returned bool reports whether a
// delivery was made. A nil error with sent=false means the record was
// suppressed or the channel is permanently gone.
func (d *Dispatcher) Dispatch(ctx context.Context, account *model.Account, record *model.ResultRecord) (bool, error) {
	if !ShouldNotify(account, record) {
		return false, nil
	}
	if account.WebhookURL == nil || *account.WebhookURL == "" {
		return false, nil
	}

	body, err := json.Marshal(record)
	if err != nil {
		return false, fmt.Errorf("marshal record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, *account.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := d.client.Do(req)
	elapsed := time.Since(start)

	if err != nil {
		// Transient: no flag change, retried next run.
		return false, fmt.Errorf("notification request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		log.Info().
			Str("account_id", account.ID).
			Int("status", resp.StatusCode).
			Dur("elapsed", elapsed).
			Msg("notification delivered")
		return true, nil

	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusGone:
		// The recipient revoked the permission needed to deliver.
		// Disable future notification attempts, once, silently.
		d.disableNotifications(ctx, account)
		return false, nil

	default:
		return false, fmt.Errorf("notification failed with status %d", resp.StatusCode)
	}
}

func (d *Dispatcher) disableNotifications(ctx context.Context, account *model.Account) {
	for _, action := range []model.AutomationAction{model.ActionCheckin, model.ActionRedeem} {
		if !account.NotifyFlag(action) {
			continue
		}
		if err := d.accounts.SetNotifyFlag(ctx, account.ID, action, false); err != nil {
			log.Error().Err(err).
				Str("account_id", account.ID).
				Str("action", string(action)).
				Msg("failed to disable notification flag")
			continue
		}
	}
	account.NotifyCheckin = false
	account.NotifyRedeem = false

	audit.Log(ctx, audit.Event{
		Type:      audit.EventNotifyDisabled,
		AccountID: account.ID,
		Details:   map[string]interface{}{"reason": "channel permanently unreachable"},
	})
	log.Info().Str("account_id", account.ID).Msg("notifications disabled: channel permanently unreachable")
}
