package reconcile

import (
	"github.com/artcommission/anchor/src/dispatch"
	"github.com/artcommission/anchor/src/utils/config"
	"github.com/artcommission/anchor/src/utils/ledger"
	"github.com/artcommission/anchor/src/utils/monitoring"
	"github.com/artcommission/anchor/src/utils/repository"
	"github.com/artcommission/anchor/src/utils/task"
)

type Controller struct {
	*task.Task
}

// Reconciler using the configured database, ledger and event bus.
// Bus task, if any, becomes a subtask of owner.
func NewConfiguredReconciler(owner *task.Task, monitor monitoring.Monitor) (reconciler *Reconciler, err error) {
	store, err := repository.NewStore(owner.Ctx, owner.Config, "anchor-reconcile")
	if err != nil {
		return
	}

	gateway, err := ledger.NewGateway(owner.Config)
	if err != nil {
		return
	}

	// Republished events are dispatched right here with the in-process bus
	dispatcher := dispatch.NewDispatcher(owner.Config).
		WithStore(store).
		WithGateway(gateway).
		WithMonitor(monitor).
		WithContext(owner.Ctx)

	bus, busTask, err := dispatch.NewBus(owner.Config, dispatcher, monitor, false)
	if err != nil {
		return
	}
	if busTask != nil {
		owner.WithSubtask(busTask)
	}

	reconciler = NewReconciler(owner.Config).
		WithStore(store).
		WithGateway(gateway).
		WithPublisher(bus).
		WithMonitor(monitor)
	return
}

// Periodically reconciles stale records, serves monitoring endpoints
func NewController(config *config.Config) (self *Controller, err error) {
	self = new(Controller)

	self.Task = task.NewTask(config, "reconcile-controller")

	monitor := monitoring.NewService()

	reconciler, err := NewConfiguredReconciler(self.Task, monitor)
	if err != nil {
		return
	}

	scheduler := NewScheduler(config).
		WithReconciler(reconciler)

	server := monitoring.NewServer(config).
		WithMonitor(monitor)

	self.Task = self.Task.
		WithSubtask(server.Task).
		WithSubtask(scheduler.Task)

	return
}
