// Package serve runs the whole service in one process
package serve

import (
	"github.com/artcommission/anchor/src/dispatch"
	"github.com/artcommission/anchor/src/operator"
	"github.com/artcommission/anchor/src/reconcile"
	"github.com/artcommission/anchor/src/utils/config"
	"github.com/artcommission/anchor/src/utils/ledger"
	"github.com/artcommission/anchor/src/utils/monitoring"
	"github.com/artcommission/anchor/src/utils/repository"
	"github.com/artcommission/anchor/src/utils/task"
)

type Controller struct {
	*task.Task
}

// Dispatcher, reconciliation scheduler and operator endpoints sharing one store, ledger and monitor
func NewController(config *config.Config) (self *Controller, err error) {
	self = new(Controller)

	self.Task = task.NewTask(config, "serve-controller")

	monitor := monitoring.NewService()

	store, err := repository.NewStore(self.Ctx, config, "anchor")
	if err != nil {
		return
	}

	gateway, err := ledger.NewGateway(config)
	if err != nil {
		return
	}

	dispatcher := dispatch.NewDispatcher(config).
		WithStore(store).
		WithGateway(gateway).
		WithMonitor(monitor).
		WithContext(self.Ctx)

	bus, busTask, err := dispatch.NewBus(config, dispatcher, monitor, true)
	if err != nil {
		return
	}

	reconciler := reconcile.NewReconciler(config).
		WithStore(store).
		WithGateway(gateway).
		WithPublisher(bus).
		WithMonitor(monitor)

	scheduler := reconcile.NewScheduler(config).
		WithReconciler(reconciler)

	retry := operator.NewRetryService(config).
		WithStore(store).
		WithPublisher(bus).
		WithMonitor(monitor)

	handlers := operator.NewHandlers(config).
		WithStore(store).
		WithRetryService(retry)

	server := monitoring.NewServer(config).
		WithMonitor(monitor).
		WithRoutes(handlers.Register)

	self.Task = self.Task.
		WithSubtask(server.Task).
		WithSubtask(scheduler.Task)

	if busTask != nil {
		self.Task = self.Task.WithSubtask(busTask)
	}

	return
}
