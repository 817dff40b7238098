package protection

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventProcessDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "guardian_event_duration_sec",
	Help: "Total duration of protection event processing",
}, []string{"type"})

var eventProcessCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guardian_event_processed",
	Help: "Number of events processed",
}, []string{"type"})

var eventErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guardian_event_errors",
	Help: "Number of events which failed processing",
}, []string{"type"})

var verdictCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guardian_verdicts",
	Help: "Number of verdicts raised, by detector",
}, []string{"kind"})

var classifierPanicCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guardian_classifier_panics",
	Help: "Number of classifier evaluations that panicked",
}, []string{"kind"})
