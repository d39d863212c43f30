package dispatch

import (
	"errors"

	"github.com/artcommission/anchor/src/utils/config"
	"github.com/artcommission/anchor/src/utils/ledger"
	"github.com/artcommission/anchor/src/utils/monitoring"
	"github.com/artcommission/anchor/src/utils/repository"
	"github.com/artcommission/anchor/src/utils/task"
)

var ErrNothingToConsume = errors.New("dispatch needs the redis event bus, in-process events are dispatched by the publisher")

type Controller struct {
	*task.Task
}

// Dispatcher using the configured database and ledger, submissions are interrupted when owner stops
func NewConfiguredDispatcher(owner *task.Task, monitor monitoring.Monitor) (dispatcher *Dispatcher, store repository.Store, err error) {
	store, err = repository.NewStore(owner.Ctx, owner.Config, "anchor-dispatch")
	if err != nil {
		return
	}

	gateway, err := ledger.NewGateway(owner.Config)
	if err != nil {
		return
	}

	dispatcher = NewDispatcher(owner.Config).
		WithStore(store).
		WithGateway(gateway).
		WithMonitor(monitor).
		WithContext(owner.Ctx)
	return
}

// Consumes contract events from Redis and anchors them on the ledger
func NewController(conf *config.Config) (self *Controller, err error) {
	if conf.EventBus.Driver != config.EventBusDriverRedis {
		err = ErrNothingToConsume
		return
	}

	self = new(Controller)

	self.Task = task.NewTask(conf, "dispatch-controller")

	monitor := monitoring.NewService()

	dispatcher, _, err := NewConfiguredDispatcher(self.Task, monitor)
	if err != nil {
		return
	}

	_, busTask, err := NewBus(conf, dispatcher, monitor, true)
	if err != nil {
		return
	}

	server := monitoring.NewServer(conf).
		WithMonitor(monitor)

	self.Task = self.Task.
		WithSubtask(server.Task).
		WithSubtask(busTask)

	return
}
