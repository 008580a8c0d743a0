package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {}
func (n *NoopRecorder) IncRateLimited(scope string)                                                {}
func (n *NoopRecorder) IncAuthEvent(event string, success bool)                                    {}
func (n *NoopRecorder) IncExpenseCreated()                                                         {}
func (n *NoopRecorder) IncExpenseUpdated()                                                         {}
func (n *NoopRecorder) IncExpenseDeleted()                                                         {}
