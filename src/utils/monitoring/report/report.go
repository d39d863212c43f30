package report

type Report struct {
	Run        *RunReport        `json:"run,omitempty"`
	Dispatcher *DispatcherReport `json:"dispatcher,omitempty"`
	Reconciler *ReconcilerReport `json:"reconciler,omitempty"`
	Operator   *OperatorReport   `json:"operator,omitempty"`
	EventBus   *EventBusReport   `json:"event_bus,omitempty"`
}

func New() Report {
	return Report{
		Run:        &RunReport{},
		Dispatcher: &DispatcherReport{},
		Reconciler: &ReconcilerReport{},
		Operator:   &OperatorReport{},
		EventBus:   &EventBusReport{},
	}
}
