// Package jobs hosts the periodic maintenance sweep: expired cache
// entries, idle rate-limiter keys, and attempted-code sets that have
// outgrown the current valid-code universe.
package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hoyoclaw/claimd/internal/cache"
	"github.com/hoyoclaw/claimd/internal/model"
	"github.com/hoyoclaw/claimd/internal/ratelimit"
)

// CodesSource yields the currently valid codes for a game.
type CodesSource interface {
	ValidCodes(ctx context.Context, game model.Game) ([]string, error)
}

// GameStore is the slice of the linked-game repository the sweep needs.
type GameStore interface {
	FindWithAttemptedCodes(ctx context.Context) ([]model.LinkedGame, error)
	PruneAttemptedCodes(ctx context.Context, accountID string, game model.Game, validCodes []string) (int64, error)
}

type CleanupJob struct {
	games      GameStore
	codes      CodesSource
	codesCache *cache.Cache[[]string]
	limiter    *ratelimit.Limiter
	interval   time.Duration
	done       chan struct{}
}

func NewCleanupJob(
	games GameStore,
	codes CodesSource,
	codesCache *cache.Cache[[]string],
	limiter *ratelimit.Limiter,
	interval time.Duration,
) *CleanupJob {
	return &CleanupJob{
		games:      games,
		codes:      codes,
		codesCache: codesCache,
		limiter:    limiter,
		interval:   interval,
		done:       make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if removed := j.codesCache.Cleanup(); removed > 0 {
		log.Info().Int("count", removed).Msg("cleaned up expired cache entries")
	}
	if removed := j.limiter.Cleanup(); removed > 0 {
		log.Info().Int("count", removed).Msg("cleaned up idle rate limit keys")
	}

	j.pruneAttemptedCodes(ctx)
}

// pruneAttemptedCodes drops attempted entries that no longer appear in
// the valid-code universe. Entries still valid are never removed, even
// when already attempted, so the processing path stays idempotent.
func (j *CleanupJob) pruneAttemptedCodes(ctx context.Context) {
	games, err := j.games.FindWithAttemptedCodes(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list linked games for pruning")
		return
	}

	valid := make(map[model.Game][]string)
	var pruned int64
	for _, lg := range games {
		codes, ok := valid[lg.Game]
		if !ok {
			game := lg.Game
			codes, err = j.codesCache.GetOrSet("codes:"+string(game), func() ([]string, error) {
				return j.codes.ValidCodes(ctx, game)
			})
			if err != nil {
				log.Warn().Err(err).Str("game", string(game)).Msg("codes feed unavailable, skipping prune")
				continue
			}
			valid[game] = codes
		}
		if len(codes) == 0 {
			// An empty universe would wipe every set; skip rather than
			// trust a feed that returned nothing.
			continue
		}

		removed, err := j.games.PruneAttemptedCodes(ctx, lg.AccountID, lg.Game, codes)
		if err != nil {
			log.Error().Err(err).
				Str("account_id", lg.AccountID).
				Str("game", string(lg.Game)).
				Msg("failed to prune attempted codes")
			continue
		}
		pruned += removed
	}

	if pruned > 0 {
		log.Info().Int64("count", pruned).Msg("pruned stale attempted codes")
	}
}
