package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hoyoclaw/claimd/internal/model"
)

type AccountRepository interface {
	FindByID(ctx context.Context, id string) (*model.Account, error)
	// FindAutomatable returns the population for one scheduled run: every
	// enabled account with at least one linked game that has an automation
	// flag set. Each account appears at most once.
	FindAutomatable(ctx context.Context) ([]model.Account, error)
	Create(ctx context.Context, params model.CreateAccountParams) (*model.Account, error)
	Update(ctx context.Context, id string, params model.UpdateAccountParams) (*model.Account, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	// SetNotifyFlag flips one notification toggle. Used by the dispatcher
	// when delivery is permanently blocked.
	SetNotifyFlag(ctx context.Context, id string, action model.AutomationAction, enabled bool) error
	// IncrementStat bumps a per-account usage counter, best-effort.
	IncrementStat(ctx context.Context, id, stat string, delta int) error
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) AccountRepository
}

type accountRepo struct {
	db sqlxDB
}

// sqlxDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type sqlxDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func NewAccountRepository(db *sqlx.DB) AccountRepository {
	return &accountRepo{db: db}
}

func (r *accountRepo) WithTx(tx *sqlx.Tx) AccountRepository {
	return &accountRepo{db: tx}
}

func (r *accountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		SELECT * FROM accounts WHERE id = $1
	`, id)
	return HandleNotFound(&account, err)
}

func (r *accountRepo) FindAutomatable(ctx context.Context) ([]model.Account, error) {
	var accounts []model.Account
	err := r.db.SelectContext(ctx, &accounts, `
		SELECT DISTINCT a.* FROM accounts a
		JOIN linked_games g ON g.account_id = a.id
		WHERE a.disabled_at IS NULL
		  AND (g.auto_checkin OR g.auto_redeem)
	`)
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *accountRepo) Create(ctx context.Context, params model.CreateAccountParams) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		INSERT INTO accounts (id, webhook_url, ltuid_encrypted, ltoken_encrypted, cookie_token_encrypted)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`, params.ID, params.WebhookURL, params.LtuidEncrypted, params.LtokenEncrypted, params.CookieTokenEncrypted)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepo) Update(ctx context.Context, id string, params model.UpdateAccountParams) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		UPDATE accounts SET
			webhook_url = COALESCE($2, webhook_url),
			notify_checkin = COALESCE($3, notify_checkin),
			notify_redeem = COALESCE($4, notify_redeem),
			always_notify_failures = COALESCE($5, always_notify_failures),
			ltuid_encrypted = COALESCE($6, ltuid_encrypted),
			ltoken_encrypted = COALESCE($7, ltoken_encrypted),
			cookie_token_encrypted = COALESCE($8, cookie_token_encrypted),
			disabled_at = $9,
			updated_at = $10
		WHERE id = $1
		RETURNING *
	`, id, params.WebhookURL, params.NotifyCheckin, params.NotifyRedeem,
		params.AlwaysNotifyFailures, params.LtuidEncrypted, params.LtokenEncrypted,
		params.CookieTokenEncrypted, params.DisabledAt, time.Now())
	return HandleNotFound(&account, err)
}

func (r *accountRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	return err
}

func (r *accountRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM accounts`)
	return count, err
}

func (r *accountRepo) SetNotifyFlag(ctx context.Context, id string, action model.AutomationAction, enabled bool) error {
	column := "notify_redeem"
	if action == model.ActionCheckin {
		column = "notify_checkin"
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET `+column+` = $2, updated_at = $3 WHERE id = $1
	`, id, enabled, time.Now())
	return err
}

func (r *accountRepo) IncrementStat(ctx context.Context, id, stat string, delta int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO account_stats (account_id, stat, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id, stat) DO UPDATE SET value = account_stats.value + $3
	`, id, stat, delta)
	return err
}
