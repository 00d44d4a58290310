package pool

import (
	"testing"
	"time"
)

type countingSweeper struct {
	name  string
	calls int
	ret   int
}

func (s *countingSweeper) Name() string { return s.name }

func (s *countingSweeper) Sweep(time.Time) int {
	s.calls++
	return s.ret
}

func TestRegistrySweepAll(t *testing.T) {
	reg := NewRegistry()
	a := &countingSweeper{name: "a", ret: 2}
	b := &countingSweeper{name: "b", ret: 3}
	reg.Register(a)
	reg.Register(b)
	reg.Register(a)

	if reg.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", reg.Len())
	}
	if got := reg.SweepAll(time.Now()); got != 5 {
		t.Errorf("SweepAll() = %d, want 5", got)
	}
	if a.calls != 1 || b.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", a.calls, b.calls)
	}
}

func TestRegistryUnregister(t *testing.T) {
	reg := NewRegistry()
	a := &countingSweeper{name: "a"}
	reg.Register(a)

	if !reg.Unregister(a) {
		t.Error("Unregister() = false for registered sweeper")
	}
	if reg.Unregister(a) {
		t.Error("Unregister() = true for already removed sweeper")
	}
	reg.SweepAll(time.Now())
	if a.calls != 0 {
		t.Errorf("unregistered sweeper swept %d times", a.calls)
	}
}

func TestRegistrySweepsPools(t *testing.T) {
	reg := NewRegistry()
	clock := &fakeClock{now: time.Unix(0, 0)}
	p := New[*widget, widgetArgs]("reg", func() *widget { return &widget{} },
		WithRegistry(reg), WithClock(clock.Now), WithMaxLifetime(time.Second))
	p.Release(p.Lease(widgetArgs{}))

	if got := reg.SweepAll(time.Unix(5, 0)); got != 1 {
		t.Errorf("SweepAll() = %d, want 1", got)
	}
}
