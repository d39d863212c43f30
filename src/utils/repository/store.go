package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/artcommission/anchor/src/utils/config"
	"github.com/artcommission/anchor/src/utils/model"
)

// Second SUCCEEDED record for the same (contract, action) was refused by the storage
var ErrDuplicateSuccess = fmt.Errorf("%w: action already succeeded for the contract", model.ErrInvariantViolation)

type Contracts interface {
	// Assigns the id
	CreateContract(ctx context.Context, c *model.Contract) error

	GetContract(ctx context.Context, id int64) (*model.Contract, error)

	// Saves the contract only if its stored status is still the expected one.
	// Applied fee rate is never updated.
	SaveContract(ctx context.Context, c *model.Contract, expected model.ContractStatus) error

	// Contracts in one of the statuses, last updated before the cutoff, that have no record at all
	// for the action. Id greater than afterID, ordered by id.
	ListUnanchored(ctx context.Context, action model.ActionType, statuses []model.ContractStatus, updatedBefore time.Time, afterID int64, limit int) ([]model.Contract, error)
}

type OnchainRecords interface {
	CreateRecord(ctx context.Context, r *model.OnchainRecord) error
	GetRecord(ctx context.Context, id int64) (*model.OnchainRecord, error)

	// Nil if the action didn't succeed yet
	FindSucceeded(ctx context.Context, contractID int64, action model.ActionType) (*model.OnchainRecord, error)

	// Most recently created record for the pair
	LatestRecord(ctx context.Context, contractID int64, action model.ActionType) (*model.OnchainRecord, error)

	// All records for the pair, oldest first
	ListRecords(ctx context.Context, contractID int64, action model.ActionType) ([]model.OnchainRecord, error)

	// PENDING records created before the cutoff with id greater than afterID, ordered by id
	ListStalePending(ctx context.Context, createdBefore time.Time, afterID int64, limit int) ([]model.OnchainRecord, error)

	// FAILED records, most recently closed first. Empty action means all actions.
	ListFailed(ctx context.Context, action model.ActionType, offset, limit int) (records []model.OnchainRecord, total int64, err error)

	// Closing is a compare-and-set, only PENDING records are updated
	MarkSucceeded(ctx context.Context, id int64, txHash string, now time.Time) error
	MarkFailed(ctx context.Context, id int64, now time.Time) error
}

type ActionLogs interface {
	AppendActionLog(ctx context.Context, l *model.ActionLog) error

	// Oldest first
	ListActionLogs(ctx context.Context, contractID int64) ([]model.ActionLog, error)

	LatestEventTimestamp(ctx context.Context, contractID int64, kind model.ActionLogType) (ts time.Time, found bool, err error)
}

type Store interface {
	Contracts
	OnchainRecords
	ActionLogs

	// Runs f atomically. Store passed to f must be used for all operations inside.
	Transaction(ctx context.Context, f func(tx Store) error) error
}

func NewStore(ctx context.Context, conf *config.Config, applicationName string) (store Store, err error) {
	switch conf.Database.Driver {
	case config.DatabaseDriverMemory:
		return NewMemory(), nil
	case "", config.DatabaseDriverPostgres:
		db, err := model.NewConnection(ctx, conf, applicationName)
		if err != nil {
			return nil, err
		}
		return NewGorm(db), nil
	}
	return nil, fmt.Errorf("unknown database driver: %q", conf.Database.Driver)
}

func notFound(entity string, id int64) error {
	return fmt.Errorf("%w: %s %d", model.ErrNotFound, entity, id)
}

func notPending(r *model.OnchainRecord) error {
	return fmt.Errorf("%w: record %d is %s, not PENDING", model.ErrConflictingState, r.ID, r.Status)
}
