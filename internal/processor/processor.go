// Package processor runs one automation pass for one account: load
// state, claim daily check-ins, redeem outstanding promotional codes,
// aggregate a result record and hand it to the notifier. A failure on
// one game never aborts the account's other games, and a failure on one
// account never propagates past Process.
package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hoyoclaw/claimd/internal/audit"
	"github.com/hoyoclaw/claimd/internal/cache"
	"github.com/hoyoclaw/claimd/internal/hoyo"
	"github.com/hoyoclaw/claimd/internal/model"
	"github.com/hoyoclaw/claimd/internal/ratelimit"
	"github.com/hoyoclaw/claimd/internal/repository"
	"github.com/hoyoclaw/claimd/internal/util"
)

// ActionClient performs one remote action per call against the HoYoLAB
// API. Implemented by hoyo.Client.
type ActionClient interface {
	PerformCheckin(ctx context.Context, game model.Game, creds model.Credentials) hoyo.Outcome
	FetchCheckinReward(ctx context.Context, game model.Game, creds model.Credentials) (*model.Reward, error)
	RedeemCode(ctx context.Context, game model.Game, creds model.Credentials, lg model.LinkedGame, code string) hoyo.Outcome
}

// CodesSource yields the currently valid promotional codes for a game.
// Implemented by hoyo.CodesFeed.
type CodesSource interface {
	ValidCodes(ctx context.Context, game model.Game) ([]string, error)
}

// Notifier delivers a finished result record to the account's channel.
// Implemented by notify.Dispatcher.
type Notifier interface {
	Dispatch(ctx context.Context, account *model.Account, record *model.ResultRecord) (bool, error)
}

// AccountRunner is the narrow interface through which callers trigger a
// pass. Implemented by Processor.
type AccountRunner interface {
	Process(ctx context.Context, accountID string, opts Options) (*model.ResultRecord, error)
}

// ErrRateLimited reports that a pass was denied admission by the
// per-account limiter. The account is untouched and eligible again once
// its window slides.
var ErrRateLimited = errors.New("account rate limited")

// Options selects between the scheduled and the on-demand variant of a
// pass. Manual passes skip the per-game eligibility filter and never
// suppress successful entries.
type Options struct {
	Automatic bool
	RunID     string
}

type Processor struct {
	accounts repository.AccountRepository
	games    repository.LinkedGameRepository
	tracker  *Tracker
	client   ActionClient
	codes    CodesSource
	notifier Notifier

	codesCache *cache.Cache[[]string]
	limiter    *ratelimit.Limiter

	encryptionKey string
	pacing        time.Duration
	sleep         func(ctx context.Context, d time.Duration)
}

type Config struct {
	Accounts      repository.AccountRepository
	Games         repository.LinkedGameRepository
	Client        ActionClient
	Codes         CodesSource
	Notifier      Notifier
	CodesCache    *cache.Cache[[]string]
	Limiter       *ratelimit.Limiter
	EncryptionKey string
	Pacing        time.Duration
}

func New(cfg Config) *Processor {
	return &Processor{
		accounts:      cfg.Accounts,
		games:         cfg.Games,
		tracker:       NewTracker(cfg.Games),
		client:        cfg.Client,
		codes:         cfg.Codes,
		notifier:      cfg.Notifier,
		codesCache:    cfg.CodesCache,
		limiter:       cfg.Limiter,
		encryptionKey: cfg.EncryptionKey,
		pacing:        cfg.Pacing,
		sleep:         sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Process runs one pass for one account. It returns a nil record when
// the account had nothing to automate or was skipped by admission
// control. Panics and unexpected errors are contained here; the caller
// only ever sees a logged, per-account failure.
func (p *Processor) Process(ctx context.Context, accountID string, opts Options) (record *model.ResultRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("account_id", accountID).Interface("panic", r).Msg("account processing panicked")
			record = nil
			err = fmt.Errorf("account %s: panic: %v", accountID, r)
		}
	}()

	account, err := p.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load account %s: %w", accountID, err)
	}
	if account == nil || !account.HasCredentials() {
		return nil, nil
	}

	creds, err := p.decryptCredentials(account)
	if err != nil {
		return nil, fmt.Errorf("decrypt credentials for %s: %w", accountID, err)
	}

	games, err := p.games.FindByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load linked games for %s: %w", accountID, err)
	}
	if len(games) == 0 {
		return nil, nil
	}

	if res := p.limiter.Attempt("account:" + accountID); !res.Allowed {
		log.Warn().
			Str("account_id", accountID).
			Time("reset_at", res.ResetAt).
			Msg("account skipped by rate limiter, will retry next run")
		return nil, ErrRateLimited
	}

	record = &model.ResultRecord{
		AccountID: accountID,
		RunID:     opts.RunID,
		Automatic: opts.Automatic,
		StartedAt: time.Now(),
	}

	for i := range games {
		lg := &games[i]
		if opts.Automatic && !lg.AutomationEnabled(model.ActionCheckin) {
			continue
		}
		p.runCheckin(ctx, account, creds, lg, record)
	}

	for i := range games {
		lg := &games[i]
		if opts.Automatic && !lg.AutomationEnabled(model.ActionRedeem) {
			continue
		}
		p.runRedeem(ctx, account, creds, lg, record)
	}

	if account.AnalyticsConsent && record.NewSuccesses > 0 {
		if err := p.accounts.IncrementStat(ctx, accountID, "successful_actions", record.NewSuccesses); err != nil {
			log.Warn().Err(err).Str("account_id", accountID).Msg("failed to update usage stats")
		}
	}

	p.dispatch(ctx, account, record)

	return record, nil
}

func (p *Processor) decryptCredentials(account *model.Account) (model.Credentials, error) {
	var creds model.Credentials
	var err error
	if creds.Ltuid, err = p.decryptField(account.LtuidEncrypted); err != nil {
		return creds, err
	}
	if creds.Ltoken, err = p.decryptField(account.LtokenEncrypted); err != nil {
		return creds, err
	}
	if creds.CookieToken, err = p.decryptField(account.CookieTokenEncrypted); err != nil {
		return creds, err
	}
	return creds, nil
}

// decryptField passes values through unchanged when no encryption key is
// configured (local development).
func (p *Processor) decryptField(value *string) (string, error) {
	if value == nil {
		return "", nil
	}
	if p.encryptionKey == "" {
		return *value, nil
	}
	return util.Decrypt(p.encryptionKey, *value)
}

func (p *Processor) runCheckin(ctx context.Context, account *model.Account, creds model.Credentials, lg *model.LinkedGame, record *model.ResultRecord) {
	outcome := p.client.PerformCheckin(ctx, lg.Game, creds)

	switch outcome.Kind {
	case hoyo.KindSuccess:
		reward, err := p.client.FetchCheckinReward(ctx, lg.Game, creds)
		if err != nil {
			// The check-in itself succeeded; record it without detail.
			log.Debug().Err(err).Str("account_id", account.ID).Str("game", string(lg.Game)).Msg("reward detail unavailable")
			reward = nil
		}
		record.Append(model.ResultEntry{
			Game:   lg.Game,
			Kind:   model.EntryCheckinSuccess,
			Detail: "daily check-in claimed",
			Reward: reward,
		})

	case hoyo.KindAlreadyDone:
		if account.AlwaysNotifyFailures {
			record.Append(model.ResultEntry{
				Game:   lg.Game,
				Kind:   model.EntryError,
				Detail: "already checked in today",
			})
		}

	case hoyo.KindInvalidCredentials:
		record.Append(model.ResultEntry{
			Game:   lg.Game,
			Kind:   model.EntryError,
			Detail: "credentials rejected, please relink your account",
		})

	case hoyo.KindNoGameAccount:
		p.disableAutomation(ctx, lg, model.ActionCheckin)
		record.Append(model.ResultEntry{
			Game:   lg.Game,
			Kind:   model.EntryError,
			Detail: "no game account on this server, auto check-in disabled",
		})

	case hoyo.KindRemoteRejected:
		record.Append(model.ResultEntry{
			Game:   lg.Game,
			Kind:   model.EntryError,
			Detail: fmt.Sprintf("check-in rejected (retcode %d: %s)", outcome.RetCode, outcome.Message),
		})

	case hoyo.KindTransportFailure:
		// Transient: invisible to the user, next run tries again.
		log.Warn().
			Str("account_id", account.ID).
			Str("game", string(lg.Game)).
			Str("reason", outcome.Message).
			Msg("check-in transport failure")
	}
}

func (p *Processor) runRedeem(ctx context.Context, account *model.Account, creds model.Credentials, lg *model.LinkedGame, record *model.ResultRecord) {
	valid, err := p.codesCache.GetOrSet("codes:"+string(lg.Game), func() ([]string, error) {
		return p.codes.ValidCodes(ctx, lg.Game)
	})
	if err != nil {
		log.Warn().Err(err).Str("game", string(lg.Game)).Msg("codes feed unavailable")
		return
	}

	var pending []string
	for _, code := range valid {
		if !p.tracker.HasAttempted(lg, code) {
			pending = append(pending, code)
		}
	}
	if len(pending) == 0 {
		return
	}

	if !lg.Game.SupportsWebRedemption() {
		p.recordManualCodes(ctx, lg, pending, record)
		return
	}

	// Codes for one game run strictly sequentially with a fixed pause
	// between calls, independent of the global limiter.
	for i, code := range pending {
		if i > 0 {
			p.sleep(ctx, p.pacing)
		}
		if ctx.Err() != nil {
			return
		}

		outcome := p.client.RedeemCode(ctx, lg.Game, creds, *lg, code)

		if outcome.Terminal() {
			if err := p.tracker.MarkAttempted(ctx, lg, code); err != nil {
				log.Error().Err(err).
					Str("account_id", account.ID).
					Str("game", string(lg.Game)).
					Str("code", util.MaskCode(code)).
					Msg("failed to persist attempted code")
			}
		}

		switch outcome.Kind {
		case hoyo.KindSuccess:
			record.Append(model.ResultEntry{
				Game:   lg.Game,
				Kind:   model.EntryRedeemSuccess,
				Code:   code,
				Detail: "code redeemed",
			})

		case hoyo.KindAlreadyDone:
			record.Append(model.ResultEntry{
				Game:   lg.Game,
				Kind:   model.EntryRedeemFailed,
				Code:   code,
				Detail: "code already redeemed",
			})

		case hoyo.KindInvalidCredentials:
			record.Append(model.ResultEntry{
				Game:   lg.Game,
				Kind:   model.EntryError,
				Detail: "credentials rejected, please relink your account",
			})
			return

		case hoyo.KindNoGameAccount:
			p.disableAutomation(ctx, lg, model.ActionRedeem)
			record.Append(model.ResultEntry{
				Game:   lg.Game,
				Kind:   model.EntryError,
				Detail: "no game account on this server, auto redeem disabled",
			})
			return

		case hoyo.KindRemoteRejected:
			record.Append(model.ResultEntry{
				Game:   lg.Game,
				Kind:   model.EntryRedeemFailed,
				Code:   code,
				Detail: fmt.Sprintf("redemption rejected (retcode %d: %s)", outcome.RetCode, outcome.Message),
			})

		case hoyo.KindTransportFailure:
			log.Warn().
				Str("account_id", account.ID).
				Str("game", string(lg.Game)).
				Str("code", util.MaskCode(code)).
				Str("reason", outcome.Message).
				Msg("redeem transport failure, code will be retried next run")
		}
	}
}

// recordManualCodes handles games without web redemption: the codes are
// marked attempted so the user is told exactly once, and the entry asks
// for in-game redemption.
func (p *Processor) recordManualCodes(ctx context.Context, lg *model.LinkedGame, pending []string, record *model.ResultRecord) {
	for _, code := range pending {
		if err := p.tracker.MarkAttempted(ctx, lg, code); err != nil {
			log.Error().Err(err).
				Str("account_id", lg.AccountID).
				Str("game", string(lg.Game)).
				Msg("failed to persist attempted code")
			continue
		}
		record.Append(model.ResultEntry{
			Game:   lg.Game,
			Kind:   model.EntryManualRedeem,
			Code:   code,
			Detail: "redeem this code in-game, web redemption is not available",
		})
	}
}

func (p *Processor) disableAutomation(ctx context.Context, lg *model.LinkedGame, action model.AutomationAction) {
	if err := p.games.SetAutomationFlag(ctx, lg.AccountID, lg.Game, action, false); err != nil {
		log.Error().Err(err).
			Str("account_id", lg.AccountID).
			Str("game", string(lg.Game)).
			Msg("failed to disable automation flag")
		return
	}
	audit.Log(ctx, audit.Event{
		Type:      audit.EventAutomationDisabled,
		AccountID: lg.AccountID,
		Details: map[string]interface{}{
			"game":   string(lg.Game),
			"action": string(action),
			"reason": "no game account on this server",
		},
	})
	log.Info().
		Str("account_id", lg.AccountID).
		Str("game", string(lg.Game)).
		Str("action", string(action)).
		Msg("automation disabled: no game account on this server")
}

func (p *Processor) dispatch(ctx context.Context, account *model.Account, record *model.ResultRecord) {
	if record.Empty() || p.notifier == nil {
		return
	}
	sent, err := p.notifier.Dispatch(ctx, account, record)
	if err != nil {
		log.Warn().Err(err).Str("account_id", account.ID).Msg("notification delivery failed")
		return
	}
	if sent {
		log.Debug().Str("account_id", account.ID).Int("entries", len(record.Entries)).Msg("notification delivered")
	}
}
