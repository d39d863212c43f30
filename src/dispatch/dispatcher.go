// Package dispatch turns contract events into ledger actions recorded in the onchain journal
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/artcommission/anchor/src/utils/config"
	"github.com/artcommission/anchor/src/utils/events"
	"github.com/artcommission/anchor/src/utils/ledger"
	"github.com/artcommission/anchor/src/utils/logger"
	"github.com/artcommission/anchor/src/utils/model"
	"github.com/artcommission/anchor/src/utils/monitoring"
	"github.com/artcommission/anchor/src/utils/repository"

	"github.com/patrickmn/go-cache"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"github.com/teivah/onecontext"
)

type Dispatcher struct {
	log     *logrus.Entry
	config  *config.Config
	store   repository.Store
	gateway ledger.Gateway
	monitor monitoring.Monitor

	// Pairs known to be SUCCEEDED. SUCCEEDED is permanent so entries never go stale.
	succeeded *cache.Cache

	// Serializes dispatches of the same pair within the process
	locks *keyedLock

	// Lifetime of the process. Submissions outlive the caller but not the process.
	ctx context.Context
	now func() time.Time
}

func NewDispatcher(config *config.Config) (self *Dispatcher) {
	self = new(Dispatcher)
	self.log = logger.NewSublogger("dispatcher")
	self.config = config
	self.monitor = monitoring.NewService()
	self.succeeded = cache.New(config.Dispatcher.SucceededCacheTTL, config.Dispatcher.SucceededCacheCleanup)
	self.locks = newKeyedLock()
	self.ctx = context.Background()
	self.now = time.Now
	return
}

func (self *Dispatcher) WithStore(store repository.Store) *Dispatcher {
	self.store = store
	return self
}

func (self *Dispatcher) WithGateway(gateway ledger.Gateway) *Dispatcher {
	self.gateway = gateway
	return self
}

func (self *Dispatcher) WithMonitor(monitor monitoring.Monitor) *Dispatcher {
	self.monitor = monitor
	return self
}

func (self *Dispatcher) WithContext(ctx context.Context) *Dispatcher {
	self.ctx = ctx
	return self
}

func (self *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	self.now = now
	return self
}

func pairKey(contractID int64, action model.ActionType) string {
	return fmt.Sprintf("%d/%s", contractID, action)
}

// Handles one event. Redelivery of an already anchored event is a no-op.
// Ledger failures are not returned, they are reflected in the record status.
func (self *Dispatcher) Handle(ctx context.Context, e events.Event) (err error) {
	report := self.monitor.GetReport().Dispatcher
	report.State.EventsReceived.Inc()

	action, err := events.ActionFor(e)
	if err != nil {
		return
	}

	contractID := e.ContractID()
	key := pairKey(contractID, action)
	log := self.log.WithFields(logrus.Fields{
		"contract_id": contractID,
		"action":      action,
		"attempt":     xid.New().String(),
	})

	if _, found := self.succeeded.Get(key); found {
		report.State.SkippedDuplicates.Inc()
		log.Debug("Action already succeeded, skipping")
		return nil
	}

	unlock := self.locks.Lock(key)
	defer unlock()

	existing, err := self.store.FindSucceeded(ctx, contractID, action)
	if err != nil {
		report.Errors.Storage.Inc()
		log.WithError(err).Error("Failed to check for succeeded action")
		return
	}
	if existing != nil {
		self.succeeded.SetDefault(key, existing.ID)
		report.State.SkippedDuplicates.Inc()
		log.WithField("record_id", existing.ID).Debug("Action already succeeded, skipping")
		return nil
	}

	c, err := self.store.GetContract(ctx, contractID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			report.Errors.ContractNotFound.Inc()
		} else {
			report.Errors.Storage.Inc()
		}
		log.WithError(err).Error("Failed to get contract")
		return
	}

	record := model.NewOnchainRecord(contractID, action, self.now())
	err = self.store.CreateRecord(ctx, record)
	if err != nil {
		report.Errors.Storage.Inc()
		log.WithError(err).Error("Failed to create onchain record")
		return
	}
	log = log.WithField("record_id", record.ID)

	// Caller may go away, the process shutting down still interrupts the submission
	opCtx, cancel := onecontext.Merge(context.WithoutCancel(ctx), self.ctx)
	defer cancel()

	submitCtx := opCtx
	if self.config.Ledger.SubmitTimeout > 0 {
		var cancelTimeout context.CancelFunc
		submitCtx, cancelTimeout = context.WithTimeout(opCtx, self.config.Ledger.SubmitTimeout)
		defer cancelTimeout()
	}

	report.State.Submitted.Inc()
	receipt, err := self.gateway.Submit(submitCtx, ledger.Command{
		RecordID:   record.ID,
		ContractID: contractID,
		Action:     action,
		TokenURI:   c.NftImageUrl,
		Status:     c.Status,
	})
	switch {
	case err == nil:
		return self.succeed(opCtx, log, record, receipt.TxHash, key)
	case ledger.IsDeterministic(err):
		log.WithError(err).Warn("Ledger rejected the action")
		return self.fail(opCtx, log, record)
	default:
		report.State.LeftPending.Inc()
		log.WithError(err).Warn("Outcome unknown, record left PENDING for reconciliation")
		return nil
	}
}

func (self *Dispatcher) succeed(ctx context.Context, log *logrus.Entry, record *model.OnchainRecord, txHash, key string) (err error) {
	report := self.monitor.GetReport().Dispatcher

	err = self.store.MarkSucceeded(ctx, record.ID, txHash, self.now())
	switch {
	case err == nil:
		self.succeeded.SetDefault(key, record.ID)
		report.State.Succeeded.Inc()
		log.WithField("tx_hash", txHash).Info("Action anchored")
		return nil
	case errors.Is(err, repository.ErrDuplicateSuccess):
		// Another process anchored the same pair, the ledger accepted the effect twice
		report.Errors.InvariantViolations.Inc()
		log.WithError(err).WithField("tx_hash", txHash).Error("Duplicate success, closing record as FAILED")
		return self.fail(ctx, log, record)
	case errors.Is(err, model.ErrConflictingState):
		log.WithError(err).Warn("Record already closed")
		return nil
	}

	report.Errors.Storage.Inc()
	log.WithError(err).WithField("tx_hash", txHash).Error("Failed to mark record as SUCCEEDED, left for reconciliation")
	return
}

func (self *Dispatcher) fail(ctx context.Context, log *logrus.Entry, record *model.OnchainRecord) (err error) {
	report := self.monitor.GetReport().Dispatcher

	err = self.store.MarkFailed(ctx, record.ID, self.now())
	switch {
	case err == nil:
		report.State.Failed.Inc()
		log.Info("Record FAILED")
		return nil
	case errors.Is(err, model.ErrConflictingState):
		log.WithError(err).Warn("Record already closed")
		return nil
	}

	report.Errors.Storage.Inc()
	log.WithError(err).Error("Failed to mark record as FAILED")
	return
}
