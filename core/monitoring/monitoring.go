package monitoring

import "time"

// Monitor reports failed dispatch operations to an external error tracker.
// The orchestrator tags every capture with the operation and trip id.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Recover()
	Flush(timeout time.Duration)
}

// NopMonitor discards every report. It is the active monitor until the app
// wires a real one from config.
type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Recover()                                  {}
func (NopMonitor) Flush(time.Duration)                       {}

var active Monitor = NopMonitor{}

// Init installs the process-wide monitor. Nil is ignored so callers can
// pass an unconfigured optional monitor straight through.
func Init(m Monitor) {
	if m != nil {
		active = m
	}
}

// CaptureException forwards err and its tags to the active monitor.
func CaptureException(err error, tags map[string]string) {
	active.CaptureException(err, tags)
}

// Recover reports a panic in the calling goroutine; use it in a defer.
func Recover() {
	active.Recover()
}

// Flush blocks until buffered reports are delivered or timeout elapses.
// Call it on shutdown so the last captures are not lost.
func Flush(d time.Duration) {
	active.Flush(d)
}
