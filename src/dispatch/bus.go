package dispatch

import (
	"fmt"

	"github.com/artcommission/anchor/src/utils/config"
	"github.com/artcommission/anchor/src/utils/events"
	"github.com/artcommission/anchor/src/utils/monitoring"
	"github.com/artcommission/anchor/src/utils/repository"
	"github.com/artcommission/anchor/src/utils/task"
)

// Bus selected by EventBus.Driver.
// In-process bus runs the dispatcher on the publishing goroutine and has no task.
// Redis bus feeds the dispatcher only if consume is set, otherwise it just publishes.
func NewBus(conf *config.Config, dispatcher *Dispatcher, monitor monitoring.Monitor, consume bool) (bus events.Bus, busTask *task.Task, err error) {
	switch conf.EventBus.Driver {
	case "", config.EventBusDriverInProcess:
		inProcess := events.NewInProcessBus()
		inProcess.Subscribe(dispatcher.Handle)
		return inProcess, nil, nil

	case config.EventBusDriverRedis:
		redisBus := events.NewRedisBus(conf).
			WithOnConsumed(func(err error) {
				if err != nil {
					monitor.GetReport().EventBus.Errors.Consume.Inc()
					return
				}
				monitor.GetReport().EventBus.State.MessagesConsumed.Inc()
			}).
			WithOnReclaimed(func(n int) {
				monitor.GetReport().EventBus.State.MessagesReclaimed.Add(uint64(n))
			})
		if consume {
			redisBus.Subscribe(dispatcher.Handle)
		}
		return redisBus, redisBus.Task, nil
	}

	err = fmt.Errorf("unknown event bus driver: %q", conf.EventBus.Driver)
	return
}

// Store and bus for components publishing events. With the in-process bus events are dispatched
// right away, with Redis they are left to the dispatch command. Bus task, if any, becomes a subtask of owner.
func NewPublishing(owner *task.Task, monitor monitoring.Monitor) (store repository.Store, bus events.Bus, err error) {
	var dispatcher *Dispatcher
	if owner.Config.EventBus.Driver == config.EventBusDriverRedis {
		store, err = repository.NewStore(owner.Ctx, owner.Config, "anchor-"+owner.Name)
	} else {
		dispatcher, store, err = NewConfiguredDispatcher(owner, monitor)
	}
	if err != nil {
		return
	}

	bus, busTask, err := NewBus(owner.Config, dispatcher, monitor, false)
	if err != nil {
		return
	}
	if busTask != nil {
		owner.WithSubtask(busTask)
	}
	return
}
