package processor

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/hoyoclaw/claimd/internal/model"
	"github.com/hoyoclaw/claimd/internal/repository"
)

type mockAccountRepo struct {
	mock.Mock
}

func (m *mockAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *mockAccountRepo) FindAutomatable(ctx context.Context) ([]model.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Account), args.Error(1)
}

func (m *mockAccountRepo) Create(ctx context.Context, params model.CreateAccountParams) (*model.Account, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *mockAccountRepo) Update(ctx context.Context, id string, params model.UpdateAccountParams) (*model.Account, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *mockAccountRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockAccountRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockAccountRepo) SetNotifyFlag(ctx context.Context, id string, action model.AutomationAction, enabled bool) error {
	args := m.Called(ctx, id, action, enabled)
	return args.Error(0)
}

func (m *mockAccountRepo) IncrementStat(ctx context.Context, id, stat string, delta int) error {
	args := m.Called(ctx, id, stat, delta)
	return args.Error(0)
}

func (m *mockAccountRepo) WithTx(tx *sqlx.Tx) repository.AccountRepository {
	return m
}

type mockLinkedGameRepo struct {
	mock.Mock
}

func (m *mockLinkedGameRepo) FindByAccount(ctx context.Context, accountID string) ([]model.LinkedGame, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.LinkedGame), args.Error(1)
}

func (m *mockLinkedGameRepo) FindByAccountAndGame(ctx context.Context, accountID string, game model.Game) (*model.LinkedGame, error) {
	args := m.Called(ctx, accountID, game)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LinkedGame), args.Error(1)
}

func (m *mockLinkedGameRepo) FindWithAttemptedCodes(ctx context.Context) ([]model.LinkedGame, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.LinkedGame), args.Error(1)
}

func (m *mockLinkedGameRepo) Upsert(ctx context.Context, params model.UpsertLinkedGameParams) (*model.LinkedGame, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LinkedGame), args.Error(1)
}

func (m *mockLinkedGameRepo) Delete(ctx context.Context, accountID string, game model.Game) error {
	args := m.Called(ctx, accountID, game)
	return args.Error(0)
}

func (m *mockLinkedGameRepo) AppendAttemptedCode(ctx context.Context, accountID string, game model.Game, code string) error {
	args := m.Called(ctx, accountID, game, code)
	return args.Error(0)
}

func (m *mockLinkedGameRepo) PruneAttemptedCodes(ctx context.Context, accountID string, game model.Game, validCodes []string) (int64, error) {
	args := m.Called(ctx, accountID, game, validCodes)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockLinkedGameRepo) SetAutomationFlag(ctx context.Context, accountID string, game model.Game, action model.AutomationAction, enabled bool) error {
	args := m.Called(ctx, accountID, game, action, enabled)
	return args.Error(0)
}

func (m *mockLinkedGameRepo) WithTx(tx *sqlx.Tx) repository.LinkedGameRepository {
	return m
}
