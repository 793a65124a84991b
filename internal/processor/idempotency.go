package processor

import (
	"context"
	"fmt"

	"github.com/hoyoclaw/claimd/internal/model"
	"github.com/hoyoclaw/claimd/internal/repository"
)

// Tracker is the idempotency record of actions already tried for a
// linked game, regardless of outcome. It is backed by the persisted
// attempted-code set and keeps the in-memory row in sync so a single
// pass never re-reads the database.
type Tracker struct {
	games repository.LinkedGameRepository
}

func NewTracker(games repository.LinkedGameRepository) *Tracker {
	return &Tracker{games: games}
}

// HasAttempted reports whether code was already tried for lg.
func (t *Tracker) HasAttempted(lg *model.LinkedGame, code string) bool {
	return lg.HasAttempted(code)
}

// MarkAttempted records code as tried, persisting the append and
// updating the in-memory set. It must be called exactly once per action
// attempt, immediately after the remote client returns, for every
// outcome the remote service has seen. Transport failures are the one
// exception: they are not marked, so a future run retries the code.
func (t *Tracker) MarkAttempted(ctx context.Context, lg *model.LinkedGame, code string) error {
	if lg.HasAttempted(code) {
		return nil
	}
	if err := t.games.AppendAttemptedCode(ctx, lg.AccountID, lg.Game, code); err != nil {
		return fmt.Errorf("append attempted code: %w", err)
	}
	lg.AttemptedCodes = append(lg.AttemptedCodes, code)
	return nil
}

// PruneStale drops attempted entries that no longer appear in the
// current valid-code universe, bounding growth of the set. Ids that are
// valid but already attempted are kept.
func (t *Tracker) PruneStale(ctx context.Context, accountID string, game model.Game, validCodes []string) (int64, error) {
	return t.games.PruneAttemptedCodes(ctx, accountID, game, validCodes)
}
