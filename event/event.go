// Package event provides synchronous, re-entrancy safe change notification.
//
// A [Signal] is a list of parameterless listeners. Emitting a signal runs
// every listener to completion before returning. The listener list is
// snapshotted into a pooled buffer before dispatch, so listeners may connect
// or cancel other listeners of the same signal while it is being emitted.
//
// A [Table] groups the signals of one emitting type and indexes them by a
// small per-emitter enum, which gives compile-time checked event names:
//
//	type LightEvent uint8
//
//	const (
//	    LightColorChanged LightEvent = iota
//	    LightDirectionChanged
//	)
//
//	var events event.Table[LightEvent]
//	sub := events.On(LightColorChanged, func() { ... })
//	events.Emit(LightColorChanged)
//	sub.Cancel()
package event

import "github.com/gogpu/g3d/pool"

// listener is a connected callback.
type listener struct {
	id uint64
	fn func()
}

// Signal is an ordered list of listeners.
// The zero value is ready for use.
type Signal struct {
	listeners []listener
	nextID    uint64
}

// Subscription identifies one connected listener.
// The zero value is an inactive subscription.
type Subscription struct {
	sig *Signal
	id  uint64
}

// Connect appends fn to the listener list.
func (s *Signal) Connect(fn func()) Subscription {
	s.nextID++
	s.listeners = append(s.listeners, listener{id: s.nextID, fn: fn})
	return Subscription{sig: s, id: s.nextID}
}

// Len returns the number of connected listeners.
func (s *Signal) Len() int { return len(s.listeners) }

// Emit calls every listener connected at the time of the call, in
// connection order. Listeners connected or cancelled during dispatch take
// effect on the next Emit.
func (s *Signal) Emit() {
	switch len(s.listeners) {
	case 0:
		return
	case 1:
		s.listeners[0].fn()
		return
	}

	snap := snapshots.Lease(len(s.listeners))
	for _, l := range s.listeners {
		snap.fns = append(snap.fns, l.fn)
	}
	for _, fn := range snap.fns {
		fn()
	}
	snapshots.Release(snap)
}

// remove disconnects the listener with the given id.
func (s *Signal) remove(id uint64) bool {
	for i, l := range s.listeners {
		if l.id == id {
			copy(s.listeners[i:], s.listeners[i+1:])
			s.listeners[len(s.listeners)-1] = listener{}
			s.listeners = s.listeners[:len(s.listeners)-1]
			return true
		}
	}
	return false
}

// Cancel disconnects the listener. It returns false if the subscription
// was already cancelled or never connected.
func (sub *Subscription) Cancel() bool {
	if sub.sig == nil {
		return false
	}
	ok := sub.sig.remove(sub.id)
	sub.sig = nil
	return ok
}

// Active reports whether the subscription has not been cancelled.
func (sub Subscription) Active() bool { return sub.sig != nil }

// snapshot is a pooled dispatch buffer.
type snapshot struct {
	fns []func()
}

func (s *snapshot) Init(n int) {
	if cap(s.fns) < n {
		s.fns = make([]func(), 0, n)
	}
}

func (s *snapshot) Clean() {
	clear(s.fns)
	s.fns = s.fns[:0]
}

// snapshots backs Emit for signals with more than one listener.
var snapshots = pool.New[*snapshot, int]("event.snapshot", func() *snapshot {
	return &snapshot{}
})
