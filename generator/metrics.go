package generator

import "time"

// Attempt and generation outcome labels.
const (
	StatusSuccess     = "success"
	StatusFailure     = "failure"
	StatusCancelled   = "cancelled"
	StatusCircuitOpen = "circuit_open"
	StatusFallback    = "fallback"
	StatusUnavailable = "unavailable"
	StatusInvalid     = "invalid_input"
)

// MetricsRecorder receives orchestrator measurements.
type MetricsRecorder interface {
	RecordProviderAttempt(provider, status string, duration time.Duration)
	RecordFallback(status string)
	RecordGeneration(status string, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordProviderAttempt(string, string, time.Duration) {}
func (nopRecorder) RecordFallback(string)                               {}
func (nopRecorder) RecordGeneration(string, time.Duration)              {}

type multiRecorder []MetricsRecorder

// MultiRecorder fans measurements out to every non-nil recorder.
func MultiRecorder(recorders ...MetricsRecorder) MetricsRecorder {
	var out multiRecorder
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (m multiRecorder) RecordProviderAttempt(provider, status string, duration time.Duration) {
	for _, r := range m {
		r.RecordProviderAttempt(provider, status, duration)
	}
}

func (m multiRecorder) RecordFallback(status string) {
	for _, r := range m {
		r.RecordFallback(status)
	}
}

func (m multiRecorder) RecordGeneration(status string, duration time.Duration) {
	for _, r := range m {
		r.RecordGeneration(status, duration)
	}
}
