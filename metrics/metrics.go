// Package metrics defines the recorder interface the facilitator emits
// operational counters and latencies through.
package metrics

import "time"

// Recorder receives facilitator events.
type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}

// Noop discards all events.
type Noop struct{}

func (Noop) IncCounter(string, map[string]string)                   {}
func (Noop) ObserveLatency(string, time.Duration, map[string]string) {}
