package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metric struct {
	desc      *prometheus.Desc
	valueType prometheus.ValueType
	value     func(s *Service) float64
}

type Collector struct {
	monitor *Service
	metrics []metric
}

func NewCollector() *Collector {
	labels := prometheus.Labels{
		"app": "anchor",
	}

	counter := func(name, help string, value func(s *Service) float64) metric {
		return metric{prometheus.NewDesc(name, help, nil, labels), prometheus.CounterValue, value}
	}
	gauge := func(name, help string, value func(s *Service) float64) metric {
		return metric{prometheus.NewDesc(name, help, nil, labels), prometheus.GaugeValue, value}
	}

	return &Collector{
		metrics: []metric{
			// Dispatcher
			counter("dispatcher_events_received", "Events handled by the dispatcher", func(s *Service) float64 {
				return float64(s.Report.Dispatcher.State.EventsReceived.Load())
			}),
			counter("dispatcher_submitted", "Actions submitted to the ledger", func(s *Service) float64 {
				return float64(s.Report.Dispatcher.State.Submitted.Load())
			}),
			counter("dispatcher_succeeded", "Records closed as SUCCEEDED right after submission", func(s *Service) float64 {
				return float64(s.Report.Dispatcher.State.Succeeded.Load())
			}),
			counter("dispatcher_failed", "Records closed as FAILED right after submission", func(s *Service) float64 {
				return float64(s.Report.Dispatcher.State.Failed.Load())
			}),
			counter("dispatcher_left_pending", "Records left PENDING for the reconciler", func(s *Service) float64 {
				return float64(s.Report.Dispatcher.State.LeftPending.Load())
			}),
			counter("dispatcher_skipped_duplicates", "Events ignored because the action already succeeded", func(s *Service) float64 {
				return float64(s.Report.Dispatcher.State.SkippedDuplicates.Load())
			}),
			counter("dispatcher_error_contract_not_found", "", func(s *Service) float64 {
				return float64(s.Report.Dispatcher.Errors.ContractNotFound.Load())
			}),
			counter("dispatcher_error_storage", "", func(s *Service) float64 {
				return float64(s.Report.Dispatcher.Errors.Storage.Load())
			}),
			counter("dispatcher_error_invariant_violations", "", func(s *Service) float64 {
				return float64(s.Report.Dispatcher.Errors.InvariantViolations.Load())
			}),

			// Reconciler
			counter("reconciler_runs", "Finished reconciliation sweeps", func(s *Service) float64 {
				return float64(s.Report.Reconciler.State.Runs.Load())
			}),
			counter("reconciler_records_checked", "", func(s *Service) float64 {
				return float64(s.Report.Reconciler.State.RecordsChecked.Load())
			}),
			counter("reconciler_records_succeeded", "", func(s *Service) float64 {
				return float64(s.Report.Reconciler.State.RecordsSucceeded.Load())
			}),
			counter("reconciler_records_failed", "", func(s *Service) float64 {
				return float64(s.Report.Reconciler.State.RecordsFailed.Load())
			}),
			counter("reconciler_records_unknown", "", func(s *Service) float64 {
				return float64(s.Report.Reconciler.State.RecordsUnknown.Load())
			}),
			counter("reconciler_events_republished", "Events published again for contracts missing records", func(s *Service) float64 {
				return float64(s.Report.Reconciler.State.EventsRepublished.Load())
			}),
			gauge("reconciler_last_run_timestamp", "", func(s *Service) float64 {
				return float64(s.Report.Reconciler.State.LastRunTimestamp.Load())
			}),
			gauge("reconciler_last_run_duration_ms", "", func(s *Service) float64 {
				return float64(s.Report.Reconciler.State.LastRunDurationMs.Load())
			}),
			gauge("reconciler_last_run_stale_records", "", func(s *Service) float64 {
				return float64(s.Report.Reconciler.State.LastRunStaleRecords.Load())
			}),
			counter("reconciler_error_query", "", func(s *Service) float64 {
				return float64(s.Report.Reconciler.Errors.Query.Load())
			}),
			counter("reconciler_error_storage", "", func(s *Service) float64 {
				return float64(s.Report.Reconciler.Errors.Storage.Load())
			}),
			counter("reconciler_error_panics", "", func(s *Service) float64 {
				return float64(s.Report.Reconciler.Errors.Panics.Load())
			}),
			counter("reconciler_error_cas_conflicts", "", func(s *Service) float64 {
				return float64(s.Report.Reconciler.Errors.CasConflicts.Load())
			}),
			counter("reconciler_error_publish", "", func(s *Service) float64 {
				return float64(s.Report.Reconciler.Errors.Publish.Load())
			}),

			// Operator
			counter("operator_retries_requested", "", func(s *Service) float64 {
				return float64(s.Report.Operator.State.RetriesRequested.Load())
			}),
			counter("operator_retries_accepted", "", func(s *Service) float64 {
				return float64(s.Report.Operator.State.RetriesAccepted.Load())
			}),
			counter("operator_error_throttled", "", func(s *Service) float64 {
				return float64(s.Report.Operator.Errors.Throttled.Load())
			}),
			counter("operator_error_rejected", "", func(s *Service) float64 {
				return float64(s.Report.Operator.Errors.Rejected.Load())
			}),

			// Event bus
			counter("event_bus_messages_published", "", func(s *Service) float64 {
				return float64(s.Report.EventBus.State.MessagesPublished.Load())
			}),
			counter("event_bus_messages_consumed", "", func(s *Service) float64 {
				return float64(s.Report.EventBus.State.MessagesConsumed.Load())
			}),
			counter("event_bus_messages_reclaimed", "Stream entries taken over from stopped consumers", func(s *Service) float64 {
				return float64(s.Report.EventBus.State.MessagesReclaimed.Load())
			}),
			counter("event_bus_error_publish", "", func(s *Service) float64 {
				return float64(s.Report.EventBus.Errors.Publish.Load())
			}),
			counter("event_bus_error_consume", "", func(s *Service) float64 {
				return float64(s.Report.EventBus.Errors.Consume.Load())
			}),
		},
	}
}

func (self *Collector) WithMonitor(m *Service) *Collector {
	self.monitor = m
	return self
}

func (self *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range self.metrics {
		ch <- m.desc
	}
}

// Collect implements required collect function for all prometheus collectors
func (self *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, m := range self.metrics {
		ch <- prometheus.MustNewConstMetric(m.desc, m.valueType, m.value(self.monitor))
	}
}
