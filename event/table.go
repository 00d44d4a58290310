package event

// Table holds the signals of one emitting type, indexed by a small enum.
// The zero value is ready for use; signals are allocated on first use.
type Table[K ~uint8] struct {
	signals []*Signal
}

// Signal returns the signal for k, allocating it if needed.
func (t *Table[K]) Signal(k K) *Signal {
	if int(k) >= len(t.signals) {
		grown := make([]*Signal, int(k)+1)
		copy(grown, t.signals)
		t.signals = grown
	}
	if t.signals[k] == nil {
		t.signals[k] = &Signal{}
	}
	return t.signals[k]
}

// On connects fn to the signal for k.
func (t *Table[K]) On(k K, fn func()) Subscription {
	return t.Signal(k).Connect(fn)
}

// Emit emits the signal for k. Emitting a signal nobody listens to is free.
func (t *Table[K]) Emit(k K) {
	if int(k) < len(t.signals) && t.signals[k] != nil {
		t.signals[k].Emit()
	}
}

// Listeners returns the number of listeners connected to k.
func (t *Table[K]) Listeners(k K) int {
	if int(k) < len(t.signals) && t.signals[k] != nil {
		return t.signals[k].Len()
	}
	return 0
}
