package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/hoyoclaw/claimd/internal/model"
)

type LinkedGameRepository interface {
	FindByAccount(ctx context.Context, accountID string) ([]model.LinkedGame, error)
	FindByAccountAndGame(ctx context.Context, accountID string, game model.Game) (*model.LinkedGame, error)
	// FindWithAttemptedCodes returns every linked game whose attempted
	// set is non-empty. Used by the cleanup sweep.
	FindWithAttemptedCodes(ctx context.Context) ([]model.LinkedGame, error)
	Upsert(ctx context.Context, params model.UpsertLinkedGameParams) (*model.LinkedGame, error)
	Delete(ctx context.Context, accountID string, game model.Game) error
	// AppendAttemptedCode records one action id in the idempotency set.
	// The append is guarded server-side so duplicates cannot occur.
	AppendAttemptedCode(ctx context.Context, accountID string, game model.Game, code string) error
	// PruneAttemptedCodes removes attempted entries no longer present in
	// validCodes and returns how many were dropped. Entries still valid
	// are kept even when already attempted.
	PruneAttemptedCodes(ctx context.Context, accountID string, game model.Game, validCodes []string) (int64, error)
	// SetAutomationFlag flips one automation toggle for a single game.
	SetAutomationFlag(ctx context.Context, accountID string, game model.Game, action model.AutomationAction, enabled bool) error
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) LinkedGameRepository
}

type linkedGameRepo struct {
	db sqlxDB
}

func NewLinkedGameRepository(db *sqlx.DB) LinkedGameRepository {
	return &linkedGameRepo{db: db}
}

func (r *linkedGameRepo) WithTx(tx *sqlx.Tx) LinkedGameRepository {
	return &linkedGameRepo{db: tx}
}

func (r *linkedGameRepo) FindByAccount(ctx context.Context, accountID string) ([]model.LinkedGame, error) {
	var games []model.LinkedGame
	err := r.db.SelectContext(ctx, &games, `
		SELECT * FROM linked_games
		WHERE account_id = $1
		ORDER BY game
	`, accountID)
	if err != nil {
		return nil, err
	}
	return games, nil
}

func (r *linkedGameRepo) FindByAccountAndGame(ctx context.Context, accountID string, game model.Game) (*model.LinkedGame, error) {
	var lg model.LinkedGame
	err := r.db.GetContext(ctx, &lg, `
		SELECT * FROM linked_games
		WHERE account_id = $1 AND game = $2
	`, accountID, game)
	return HandleNotFound(&lg, err)
}

func (r *linkedGameRepo) FindWithAttemptedCodes(ctx context.Context) ([]model.LinkedGame, error) {
	var games []model.LinkedGame
	err := r.db.SelectContext(ctx, &games, `
		SELECT * FROM linked_games
		WHERE cardinality(attempted_codes) > 0
		ORDER BY account_id, game
	`)
	if err != nil {
		return nil, err
	}
	return games, nil
}

func (r *linkedGameRepo) Upsert(ctx context.Context, params model.UpsertLinkedGameParams) (*model.LinkedGame, error) {
	var lg model.LinkedGame
	err := r.db.GetContext(ctx, &lg, `
		INSERT INTO linked_games (account_id, game, uid, region, auto_checkin, auto_redeem, attempted_codes)
		VALUES ($1, $2, $3, $4, $5, $6, '{}')
		ON CONFLICT (account_id, game) DO UPDATE SET
			uid = EXCLUDED.uid,
			region = EXCLUDED.region,
			auto_checkin = EXCLUDED.auto_checkin,
			auto_redeem = EXCLUDED.auto_redeem,
			updated_at = $7
		RETURNING *
	`, params.AccountID, params.Game, params.UID, params.Region,
		params.AutoCheckin, params.AutoRedeem, time.Now())
	if err != nil {
		return nil, err
	}
	return &lg, nil
}

func (r *linkedGameRepo) Delete(ctx context.Context, accountID string, game model.Game) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM linked_games WHERE account_id = $1 AND game = $2
	`, accountID, game)
	return err
}

func (r *linkedGameRepo) AppendAttemptedCode(ctx context.Context, accountID string, game model.Game, code string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE linked_games SET
			attempted_codes = array_append(attempted_codes, $3),
			updated_at = $4
		WHERE account_id = $1 AND game = $2
		  AND NOT ($3 = ANY(attempted_codes))
	`, accountID, game, code, time.Now())
	return err
}

func (r *linkedGameRepo) PruneAttemptedCodes(ctx context.Context, accountID string, game model.Game, validCodes []string) (int64, error) {
	var removed int64
	err := r.db.GetContext(ctx, &removed, `
		WITH before AS (
			SELECT cardinality(attempted_codes) AS n FROM linked_games
			WHERE account_id = $1 AND game = $2
		), updated AS (
			UPDATE linked_games SET
				attempted_codes = COALESCE((
					SELECT array_agg(c) FROM unnest(attempted_codes) AS c
					WHERE c = ANY($3)
				), '{}'),
				updated_at = $4
			WHERE account_id = $1 AND game = $2
			RETURNING cardinality(attempted_codes) AS n
		)
		SELECT COALESCE((SELECT n FROM before), 0) - COALESCE((SELECT n FROM updated), 0)
	`, accountID, game, pq.Array(validCodes), time.Now())
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (r *linkedGameRepo) SetAutomationFlag(ctx context.Context, accountID string, game model.Game, action model.AutomationAction, enabled bool) error {
	column := "auto_redeem"
	if action == model.ActionCheckin {
		column = "auto_checkin"
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE linked_games SET `+column+` = $3, updated_at = $4
		WHERE account_id = $1 AND game = $2
	`, accountID, game, enabled, time.Now())
	return err
}
