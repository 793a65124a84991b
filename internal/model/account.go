package model

import (
	"time"
)

// Account is one registered tenant of the bot. Credentials are stored
// encrypted at rest; the repository returns them as-is and the processor
// decrypts them on load.
type Account struct {
	ID                   string     `db:"id" json:"id"`
	WebhookURL           *string    `db:"webhook_url" json:"-"`
	NotifyCheckin        bool       `db:"notify_checkin" json:"notifyCheckin"`
	NotifyRedeem         bool       `db:"notify_redeem" json:"notifyRedeem"`
	AlwaysNotifyFailures bool       `db:"always_notify_failures" json:"alwaysNotifyFailures"`
	Private              bool       `db:"private" json:"private"`
	AnalyticsConsent     bool       `db:"analytics_consent" json:"analyticsConsent"`
	LtuidEncrypted       *string    `db:"ltuid_encrypted" json:"-"`
	LtokenEncrypted      *string    `db:"ltoken_encrypted" json:"-"`
	CookieTokenEncrypted *string    `db:"cookie_token_encrypted" json:"-"`
	CreatedAt            time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updatedAt"`
	DisabledAt           *time.Time `db:"disabled_at" json:"disabledAt,omitempty"`
}

// HasCredentials reports whether the account carries a usable credential
// bundle. Accounts without one have nothing to automate.
func (a *Account) HasCredentials() bool {
	return a.LtuidEncrypted != nil && a.LtokenEncrypted != nil
}

// NotifyFlag returns the notification toggle for the given action.
func (a *Account) NotifyFlag(action AutomationAction) bool {
	if action == ActionCheckin {
		return a.NotifyCheckin
	}
	return a.NotifyRedeem
}

// Credentials is the decrypted credential bundle passed through to the
// remote action client. It is never persisted in this form.
type Credentials struct {
	Ltuid       string
	Ltoken      string
	CookieToken string
}

type CreateAccountParams struct {
	ID                   string
	WebhookURL           *string
	LtuidEncrypted       *string
	LtokenEncrypted      *string
	CookieTokenEncrypted *string
}

type UpdateAccountParams struct {
	WebhookURL           *string
	NotifyCheckin        *bool
	NotifyRedeem         *bool
	AlwaysNotifyFailures *bool
	LtuidEncrypted       *string
	LtokenEncrypted      *string
	CookieTokenEncrypted *string
	DisabledAt           *time.Time
}
