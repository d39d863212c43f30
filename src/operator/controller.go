package operator

import (
	"github.com/artcommission/anchor/src/dispatch"
	"github.com/artcommission/anchor/src/utils/config"
	"github.com/artcommission/anchor/src/utils/monitoring"
	"github.com/artcommission/anchor/src/utils/task"
)

type Controller struct {
	*task.Task
}

// Serves the operator endpoints
func NewController(config *config.Config) (self *Controller, err error) {
	self = new(Controller)

	self.Task = task.NewTask(config, "operator-controller")

	monitor := monitoring.NewService()

	store, bus, err := dispatch.NewPublishing(self.Task, monitor)
	if err != nil {
		return
	}

	retry := NewRetryService(config).
		WithStore(store).
		WithPublisher(bus).
		WithMonitor(monitor)

	handlers := NewHandlers(config).
		WithStore(store).
		WithRetryService(retry)

	server := monitoring.NewServer(config).
		WithMonitor(monitor).
		WithRoutes(handlers.Register)

	self.Task = self.Task.
		WithSubtask(server.Task)

	return
}
