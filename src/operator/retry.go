// Package operator lets operators inspect failed onchain jobs and retry them
package operator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/artcommission/anchor/src/utils/config"
	"github.com/artcommission/anchor/src/utils/events"
	"github.com/artcommission/anchor/src/utils/logger"
	"github.com/artcommission/anchor/src/utils/model"
	"github.com/artcommission/anchor/src/utils/monitoring"
	"github.com/artcommission/anchor/src/utils/repository"
	"github.com/artcommission/anchor/src/utils/task"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var (
	ErrThrottled = errors.New("too many retry requests")

	errNotYetVisible = errors.New("new record not visible yet")
)

type RetryService struct {
	log       *logrus.Entry
	config    *config.Config
	store     repository.Store
	publisher events.Publisher
	monitor   monitoring.Monitor
	limiter   *rate.Limiter
	now       func() time.Time
}

func NewRetryService(config *config.Config) (self *RetryService) {
	self = new(RetryService)
	self.log = logger.NewSublogger("retry")
	self.config = config
	self.monitor = monitoring.NewService()
	self.limiter = rate.NewLimiter(rate.Limit(config.Operator.RetryRate), config.Operator.RetryBurst)
	self.now = time.Now
	return
}

func (self *RetryService) WithStore(store repository.Store) *RetryService {
	self.store = store
	return self
}

func (self *RetryService) WithPublisher(publisher events.Publisher) *RetryService {
	self.publisher = publisher
	return self
}

func (self *RetryService) WithMonitor(monitor monitoring.Monitor) *RetryService {
	self.monitor = monitor
	return self
}

// Re-emits the event behind a FAILED record. Returns the id of the record created for the new attempt,
// 0 if it didn't show up within Operator.RetryLookupTimeout.
func (self *RetryService) Retry(ctx context.Context, recordID int64) (newRecordID int64, err error) {
	report := self.monitor.GetReport().Operator
	log := self.log.WithField("record_id", recordID)

	if !self.limiter.Allow() {
		report.Errors.Throttled.Inc()
		err = ErrThrottled
		log.Warn("Retry throttled")
		return
	}
	report.State.RetriesRequested.Inc()

	record, err := self.store.GetRecord(ctx, recordID)
	if err != nil {
		return
	}
	log = log.WithFields(logrus.Fields{
		"contract_id": record.ContractID,
		"action":      record.ActionType,
	})

	if record.Status != model.OnchainStatusFailed {
		report.Errors.Rejected.Inc()
		err = fmt.Errorf("%w: cannot retry a non-failed job, record %d is %s", model.ErrConflictingState, record.ID, record.Status)
		log.WithError(err).Warn("Retry rejected")
		return
	}

	succeeded, err := self.store.FindSucceeded(ctx, record.ContractID, record.ActionType)
	if err != nil {
		return
	}
	if succeeded != nil {
		report.Errors.Rejected.Inc()
		err = fmt.Errorf("%w: already succeeded in record %d, retry would duplicate the effect", model.ErrConflictingState, succeeded.ID)
		log.WithError(err).Warn("Retry rejected")
		return
	}

	event, err := events.ForAction(record.ActionType, record.ContractID)
	if err != nil {
		return
	}

	err = self.store.AppendActionLog(ctx, &model.ActionLog{
		ContractID: record.ContractID,
		ActorID:    model.SystemActorID,
		Type:       model.ActionLogOnchainRetryRequested,
		Memo:       fmt.Sprintf("%s retry of record %d", record.ActionType, record.ID),
		CreatedAt:  self.now(),
	})
	if err != nil {
		return
	}

	// Anything newer than this belongs to the new attempt
	latest, err := self.store.LatestRecord(ctx, record.ContractID, record.ActionType)
	if err != nil {
		return
	}

	err = self.publisher.Publish(ctx, event)
	if err != nil {
		log.WithError(err).Error("Failed to publish retried event")
		return
	}
	report.State.RetriesAccepted.Inc()

	newRecordID, err = self.lookup(ctx, latest)
	if err != nil {
		return
	}

	log.WithField("new_record_id", newRecordID).Info("Retry requested")
	return
}

// Waits for the dispatcher to open a record newer than seen
func (self *RetryService) lookup(ctx context.Context, seen *model.OnchainRecord) (id int64, err error) {
	find := func() error {
		latest, err := self.store.LatestRecord(ctx, seen.ContractID, seen.ActionType)
		if err != nil {
			return err
		}
		if latest.ID <= seen.ID {
			return errNotYetVisible
		}
		id = latest.ID
		return nil
	}

	if self.config.Operator.RetryLookupTimeout <= 0 {
		err = find()
	} else {
		err = task.NewRetry().
			WithContext(ctx).
			WithMaxElapsedTime(self.config.Operator.RetryLookupTimeout).
			WithInitialInterval(self.config.Operator.RetryLookupInterval).
			WithMaxInterval(self.config.Operator.RetryLookupInterval).
			Run(find)
	}

	if errors.Is(err, errNotYetVisible) || errors.Is(err, context.DeadlineExceeded) {
		// Dispatch is asynchronous, the record will show up later
		return 0, nil
	}
	return
}
