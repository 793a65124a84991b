package model

import "time"

// Reward describes the item granted by a successful check-in, when the
// supplementary detail fetch succeeded.
type Reward struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Icon  string `json:"icon,omitempty"`
}

// ResultEntry is one per-game outcome line of a processing pass.
type ResultEntry struct {
	Game   Game      `json:"game"`
	Kind   EntryKind `json:"kind"`
	Code   string    `json:"code,omitempty"`
	Detail string    `json:"detail"`
	Reward *Reward   `json:"reward,omitempty"`
}

// ResultRecord is the transient per-account output of one processing
// pass. It is created fresh per run and discarded after notification.
type ResultRecord struct {
	AccountID    string        `json:"accountId"`
	RunID        string        `json:"runId"`
	Automatic    bool          `json:"automatic"`
	StartedAt    time.Time     `json:"startedAt"`
	Entries      []ResultEntry `json:"entries"`
	NewSuccesses int           `json:"newSuccesses"`
}

// Append adds one entry, bumping the success counter for genuinely new
// successful actions.
func (r *ResultRecord) Append(e ResultEntry) {
	r.Entries = append(r.Entries, e)
	if e.Kind == EntryCheckinSuccess || e.Kind == EntryRedeemSuccess {
		r.NewSuccesses++
	}
}

// HasErrors reports whether any entry must be surfaced regardless of the
// account's notification preferences.
func (r *ResultRecord) HasErrors() bool {
	for _, e := range r.Entries {
		if e.Kind.IsError() {
			return true
		}
	}
	return false
}

// Empty reports whether the pass produced nothing worth telling the user
// about. Empty records are never dispatched.
func (r *ResultRecord) Empty() bool {
	return len(r.Entries) == 0
}
