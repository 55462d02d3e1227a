package lifecycle

import (
	"sync"

	"constserv/metrics"
)

// Shutdown is a single-use, zero-payload shutdown event.
//
// The coordinator owns the receiving end (Done). Producers hold Trigger
// values, which are cheap to copy; firing more than once is a no-op.
type Shutdown struct {
	once sync.Once
	done chan struct{}
}

// NewShutdown creates an unfired shutdown signal.
func NewShutdown() *Shutdown {
	return &Shutdown{done: make(chan struct{})}
}

// Trigger returns a sender for this signal, tagged with the producer name
// used in metrics and logs.
func (s *Shutdown) Trigger(source string) Trigger {
	return Trigger{s: s, source: source}
}

// Done is closed once the signal has fired.
func (s *Shutdown) Done() <-chan struct{} {
	return s.done
}

// Fired reports whether the signal has been delivered.
func (s *Shutdown) Fired() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Shutdown) fire() bool {
	fired := false
	s.once.Do(func() {
		close(s.done)
		fired = true
	})
	return fired
}

// Trigger is a copyable sender for a Shutdown.
type Trigger struct {
	s      *Shutdown
	source string
}

// Fire delivers the shutdown signal. It reports whether this call was the
// one that delivered it; later calls return false and do nothing else.
func (t Trigger) Fire() bool {
	if t.s == nil {
		return false
	}
	metrics.RecordShutdownTrigger(t.source)
	return t.s.fire()
}

// Source returns the producer name.
func (t Trigger) Source() string {
	return t.source
}
