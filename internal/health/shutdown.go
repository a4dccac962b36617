package health

import "sync/atomic"

// ready gates the readiness probe during graceful shutdown. It starts
// true so a freshly booted process that passes its dependency probes is
// immediately routable.
var ready atomic.Bool

func init() {
	ready.Store(true)
}

// SetReady flips the readiness gate. Called with false at the start of
// graceful shutdown so load balancers drain the instance before the
// listener closes.
func SetReady(v bool) {
	ready.Store(v)
}

// Ready reports the current gate state.
func Ready() bool {
	return ready.Load()
}
