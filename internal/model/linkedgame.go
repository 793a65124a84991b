package model

import (
	"time"

	"github.com/lib/pq"
)

// LinkedGame is one game account linked under an Account. The attempted
// code set only grows during normal processing; the cleanup job is the
// only code path allowed to shrink it.
type LinkedGame struct {
	ID             int64          `db:"id" json:"-"`
	AccountID      string         `db:"account_id" json:"accountId"`
	Game           Game           `db:"game" json:"game"`
	UID            string         `db:"uid" json:"uid"`
	Region         string         `db:"region" json:"region"`
	AutoCheckin    bool           `db:"auto_checkin" json:"autoCheckin"`
	AutoRedeem     bool           `db:"auto_redeem" json:"autoRedeem"`
	AttemptedCodes pq.StringArray `db:"attempted_codes" json:"attemptedCodes"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updatedAt"`
}

// AutomationEnabled reports whether the given action is switched on for
// this linked game.
func (g *LinkedGame) AutomationEnabled(action AutomationAction) bool {
	if action == ActionCheckin {
		return g.AutoCheckin
	}
	return g.AutoRedeem
}

// HasAttempted reports membership of code in the attempted set.
func (g *LinkedGame) HasAttempted(code string) bool {
	for _, c := range g.AttemptedCodes {
		if c == code {
			return true
		}
	}
	return false
}

type UpsertLinkedGameParams struct {
	AccountID   string
	Game        Game
	UID         string
	Region      string
	AutoCheckin bool
	AutoRedeem  bool
}
