package reconcile

import (
	"github.com/artcommission/anchor/src/utils/config"
	"github.com/artcommission/anchor/src/utils/task"
)

// Runs sweeps according to Reconciler.Schedule. A tick firing during a sweep is dropped.
type Scheduler struct {
	*task.Task

	reconciler *Reconciler
}

func NewScheduler(config *config.Config) (self *Scheduler) {
	self = new(Scheduler)

	self.Task = task.NewTask(config, "reconcile-scheduler").
		WithCronSubtaskFunc(config.Reconciler.Schedule, config.Reconciler.RunOnStart, self.run)

	return
}

func (self *Scheduler) WithReconciler(reconciler *Reconciler) *Scheduler {
	self.reconciler = reconciler
	return self
}

func (self *Scheduler) run() (err error) {
	_, err = self.reconciler.Sweep(self.Ctx)
	return
}
