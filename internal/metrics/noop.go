package metrics

import "time"

// NoopMetrics discards everything; used when METRICS_ENABLED is false.
type NoopMetrics struct{}

var _ Recorder = (*NoopMetrics)(nil)

func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordLaunch(success bool)                           {}
func (n *NoopMetrics) RecordSubmission(success bool)                       {}
func (n *NoopMetrics) RecordGradeUpdate(result string)                     {}
func (n *NoopMetrics) RecordOutcome(result string, duration time.Duration) {}
