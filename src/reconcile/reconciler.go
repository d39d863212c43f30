// Package reconcile closes PENDING onchain records whose outcome was never recorded,
// by asking the ledger what actually happened. It also republishes events that never
// produced a record.
package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/artcommission/anchor/src/utils/config"
	"github.com/artcommission/anchor/src/utils/events"
	"github.com/artcommission/anchor/src/utils/ledger"
	"github.com/artcommission/anchor/src/utils/logger"
	"github.com/artcommission/anchor/src/utils/model"
	"github.com/artcommission/anchor/src/utils/monitoring"
	"github.com/artcommission/anchor/src/utils/repository"

	"github.com/gammazero/workerpool"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

var ErrSweepInProgress = errors.New("reconciliation sweep already in progress")

type resolution int

const (
	resolvedUnknown resolution = iota
	resolvedSucceeded
	resolvedFailed
	resolvedConflict
	resolvedError
)

// Summary of one sweep
type SweepReport struct {
	RunID     string `json:"run_id"`
	Stale     int    `json:"stale"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Unknown   int    `json:"unknown"`
	Conflicts int    `json:"conflicts"`
	Errors    int    `json:"errors"`

	// Contracts whose event never produced a record
	Republished int `json:"republished"`

	Duration time.Duration `json:"duration"`
}

func (self *SweepReport) add(r resolution) {
	switch r {
	case resolvedSucceeded:
		self.Succeeded++
	case resolvedFailed:
		self.Failed++
	case resolvedConflict:
		self.Conflicts++
	case resolvedError:
		self.Errors++
	default:
		self.Unknown++
	}
}

type Reconciler struct {
	log       *logrus.Entry
	config    *config.Config
	store     repository.Store
	gateway   ledger.Gateway
	publisher events.Publisher
	monitor   monitoring.Monitor
	now       func() time.Time

	// Only one sweep at a time
	running atomic.Bool
}

func NewReconciler(config *config.Config) (self *Reconciler) {
	self = new(Reconciler)
	self.log = logger.NewSublogger("reconciler")
	self.config = config
	self.monitor = monitoring.NewService()
	self.now = time.Now
	return
}

func (self *Reconciler) WithStore(store repository.Store) *Reconciler {
	self.store = store
	return self
}

func (self *Reconciler) WithGateway(gateway ledger.Gateway) *Reconciler {
	self.gateway = gateway
	return self
}

// Without a publisher lost events aren't looked for
func (self *Reconciler) WithPublisher(publisher events.Publisher) *Reconciler {
	self.publisher = publisher
	return self
}

func (self *Reconciler) WithMonitor(monitor monitoring.Monitor) *Reconciler {
	self.monitor = monitor
	return self
}

func (self *Reconciler) WithClock(now func() time.Time) *Reconciler {
	self.now = now
	return self
}

// Resolves all PENDING records older than Reconciler.StaleAfter.
// Records with an unknown outcome are left untouched until the next sweep.
func (self *Reconciler) Sweep(ctx context.Context) (out SweepReport, err error) {
	if !self.running.CompareAndSwap(false, true) {
		err = ErrSweepInProgress
		return
	}
	defer self.running.Store(false)

	report := self.monitor.GetReport().Reconciler
	start := self.now()
	out.RunID = xid.New().String()
	log := self.log.WithField("run", out.RunID)
	cutoff := start.Add(-self.config.Reconciler.StaleAfter)

	limit := self.config.Reconciler.MaxRecordsPerRun
	if limit <= 0 {
		limit = 100
	}
	workers := self.config.Reconciler.WorkerPoolSize
	if workers <= 0 {
		workers = 1
	}

	log.WithField("cutoff", cutoff).Debug("Sweep started")

	var mtx sync.Mutex
	pool := workerpool.New(workers)

	var afterID int64
	for {
		if err = ctx.Err(); err != nil {
			break
		}

		var batch []model.OnchainRecord
		batch, err = self.store.ListStalePending(ctx, cutoff, afterID, limit)
		if err != nil {
			report.Errors.Storage.Inc()
			log.WithError(err).Error("Failed to list stale records")
			break
		}

		for i := range batch {
			record := batch[i]
			pool.Submit(func() {
				r := self.resolve(ctx, log, &record)
				mtx.Lock()
				out.add(r)
				mtx.Unlock()
			})
		}
		out.Stale += len(batch)

		if len(batch) < limit {
			break
		}
		afterID = batch[len(batch)-1].ID
	}

	pool.StopWait()

	if err == nil && self.publisher != nil {
		err = self.republish(ctx, log, cutoff, limit, &out)
	}

	out.Duration = self.now().Sub(start)

	report.State.Runs.Inc()
	report.State.LastRunTimestamp.Store(start.Unix())
	report.State.LastRunDurationMs.Store(out.Duration.Milliseconds())
	report.State.LastRunStaleRecords.Store(uint64(out.Stale))
	report.State.RecordsChecked.Add(uint64(out.Stale))
	report.State.RecordsSucceeded.Add(uint64(out.Succeeded))
	report.State.RecordsFailed.Add(uint64(out.Failed))
	report.State.RecordsUnknown.Add(uint64(out.Unknown))
	report.State.EventsRepublished.Add(uint64(out.Republished))

	log.WithFields(logrus.Fields{
		"stale":       out.Stale,
		"succeeded":   out.Succeeded,
		"failed":      out.Failed,
		"unknown":     out.Unknown,
		"conflicts":   out.Conflicts,
		"errors":      out.Errors,
		"republished": out.Republished,
		"duration":    out.Duration,
	}).Info("Sweep finished")
	return
}

// Publishes again the events of contracts that reached a status implying an action,
// but have no record of it. Such event was lost between the commit and the dispatcher.
func (self *Reconciler) republish(ctx context.Context, log *logrus.Entry, cutoff time.Time, limit int, out *SweepReport) (err error) {
	report := self.monitor.GetReport().Reconciler

	for _, action := range model.ActionTypes {
		var afterID int64
		for {
			if err = ctx.Err(); err != nil {
				return
			}

			var contracts []model.Contract
			contracts, err = self.store.ListUnanchored(ctx, action, action.ExpectedIn(), cutoff, afterID, limit)
			if err != nil {
				report.Errors.Storage.Inc()
				log.WithError(err).WithField("action", action).Error("Failed to list contracts missing records")
				return
			}

			for i := range contracts {
				c := &contracts[i]
				l := log.WithFields(logrus.Fields{
					"contract_id": c.ID,
					"action":      action,
					"status":      c.Status,
				})

				e, err := events.ForAction(action, c.ID)
				if err == nil {
					err = self.publisher.Publish(ctx, e)
				}
				if err != nil {
					report.Errors.Publish.Inc()
					out.Errors++
					l.WithError(err).Error("Failed to republish event")
					continue
				}

				out.Republished++
				l.Warn("Event never produced a record, republished")
			}

			if len(contracts) < limit {
				break
			}
			afterID = contracts[len(contracts)-1].ID
		}
	}
	return
}

func (self *Reconciler) resolve(ctx context.Context, log *logrus.Entry, record *model.OnchainRecord) (out resolution) {
	report := self.monitor.GetReport().Reconciler
	log = log.WithFields(logrus.Fields{
		"record_id":   record.ID,
		"contract_id": record.ContractID,
		"action":      record.ActionType,
	})

	// One broken record doesn't stop the sweep
	defer func() {
		if p := recover(); p != nil {
			report.Errors.Panics.Inc()
			log.WithField("panic", p).Error("Panic while reconciling record")
			out = resolvedError
		}
	}()

	queryCtx := ctx
	if self.config.Ledger.QueryTimeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, self.config.Ledger.QueryTimeout)
		defer cancel()
	}

	outcome, err := self.gateway.QueryOutcome(queryCtx, record.ContractID, record.ActionType)
	if err != nil {
		report.Errors.Query.Inc()
		log.WithError(err).Warn("Outcome query failed, record left PENDING")
		return resolvedUnknown
	}

	switch outcome.Kind {
	case ledger.OutcomeSucceeded:
		err = self.store.MarkSucceeded(ctx, record.ID, outcome.TxHash, self.now())
		if errors.Is(err, repository.ErrDuplicateSuccess) {
			// Effect on the ledger belongs to a sibling that is already SUCCEEDED
			log.WithField("tx_hash", outcome.TxHash).Warn("Pair already succeeded, closing record as FAILED")
			return self.closed(log, self.store.MarkFailed(ctx, record.ID, self.now()), resolvedFailed)
		}
		return self.closed(log.WithField("tx_hash", outcome.TxHash), err, resolvedSucceeded)
	case ledger.OutcomeAbsent:
		return self.closed(log, self.store.MarkFailed(ctx, record.ID, self.now()), resolvedFailed)
	}

	log.Debug("Outcome unknown, record left PENDING")
	return resolvedUnknown
}

func (self *Reconciler) closed(log *logrus.Entry, err error, ok resolution) resolution {
	report := self.monitor.GetReport().Reconciler
	switch {
	case err == nil:
		log.Info("Record reconciled")
		return ok
	case errors.Is(err, model.ErrConflictingState):
		report.Errors.CasConflicts.Inc()
		log.WithError(err).Info("Record closed in the meantime")
		return resolvedConflict
	}

	report.Errors.Storage.Inc()
	log.WithError(err).Error("Failed to close record")
	return resolvedError
}
