package task

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Implement operation retrying
type Retry struct {
	ctx                context.Context
	maxElapsedTime     time.Duration
	initialInterval    time.Duration
	maxInterval        time.Duration
	acceptableDuration time.Duration
	onError            func(error, bool) error
}

func NewRetry() *Retry {
	return new(Retry)
}

func (self *Retry) WithMaxElapsedTime(maxElapsedTime time.Duration) *Retry {
	self.maxElapsedTime = maxElapsedTime
	return self
}

func (self *Retry) WithInitialInterval(initialInterval time.Duration) *Retry {
	self.initialInterval = initialInterval
	return self
}

func (self *Retry) WithMaxInterval(maxInterval time.Duration) *Retry {
	self.maxInterval = maxInterval
	return self
}

// Errors happening within this duration since the start are reported as acceptable
func (self *Retry) WithAcceptableDuration(acceptableDuration time.Duration) *Retry {
	self.acceptableDuration = acceptableDuration
	return self
}

func (self *Retry) WithContext(ctx context.Context) *Retry {
	self.ctx = ctx
	return self
}

// Callback may return backoff.Permanent to stop retrying
func (self *Retry) WithOnError(v func(error, bool) error) *Retry {
	self.onError = v
	return self
}

func (self *Retry) Run(f func() error) error {
	if self.ctx == nil {
		self.ctx = context.Background()
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = self.maxElapsedTime
	if self.initialInterval > 0 {
		b.InitialInterval = self.initialInterval
	}
	if self.maxInterval > 0 {
		b.MaxInterval = self.maxInterval
	}

	started := time.Now()
	op := func() error {
		err := f()
		if err == nil || self.onError == nil {
			return err
		}
		isDurationAcceptable := time.Since(started) <= self.acceptableDuration
		return self.onError(err, isDurationAcceptable)
	}

	return backoff.Retry(op, backoff.WithContext(b, self.ctx))
}
