package events

import (
	"context"
	"errors"
	"sync"

	"github.com/artcommission/anchor/src/utils/logger"

	"github.com/sirupsen/logrus"
)

// Delivers events synchronously, on the publisher's goroutine, to handlers in registration order
type InProcessBus struct {
	log *logrus.Entry

	mtx      sync.RWMutex
	handlers []Handler
}

func NewInProcessBus() *InProcessBus {
	return &InProcessBus{
		log: logger.NewSublogger("in-process-bus"),
	}
}

func (self *InProcessBus) Subscribe(h Handler) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	self.handlers = append(self.handlers, h)
}

// All handlers are called even if some of them fail, errors are joined
func (self *InProcessBus) Publish(ctx context.Context, e Event) error {
	self.mtx.RLock()
	handlers := make([]Handler, len(self.handlers))
	copy(handlers, self.handlers)
	self.mtx.RUnlock()

	self.log.WithFields(logrus.Fields{
		"type":        e.Kind(),
		"contract_id": e.ContractID(),
		"handlers":    len(handlers),
	}).Debug("Publishing event")

	var errs []error
	for _, h := range handlers {
		err := h(ctx, e)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
