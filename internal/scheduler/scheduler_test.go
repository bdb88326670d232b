package scheduler

import "testing"

func TestScheduleKeepsDeadlineOrder(t *testing.T) {
	c := New()
	c.Schedule(100, VBlankStart)
	c.Schedule(10, HBlankStart)
	c.Schedule(50, HBlankEnd)

	want := []struct {
		deadline uint64
		kind     EventKind
	}{
		{10, HBlankStart},
		{50, HBlankEnd},
		{100, VBlankStart},
	}

	for _, w := range want {
		e, ok := c.Peek()
		if !ok {
			t.Fatal("expected an event, calendar empty")
		}
		if e.Deadline != w.deadline || e.Kind != w.kind {
			t.Fatalf("got {%d %v}, want {%d %v}", e.Deadline, e.Kind, w.deadline, w.kind)
		}
		c.Pop()
	}
	if c.Len() != 0 {
		t.Fatalf("calendar should be empty after draining, got %d left", c.Len())
	}
}

func TestPeekOnEmptyCalendar(t *testing.T) {
	c := New()
	if _, ok := c.Peek(); ok {
		t.Fatal("Peek on an empty calendar must report ok=false")
	}
}

func TestEventKindString(t *testing.T) {
	cases := map[EventKind]string{
		HBlankStart: "HBLANK_START",
		HBlankEnd:   "HBLANK_END",
		VBlankStart: "VBLANK_START",
		VBlankEnd:   "VBLANK_END",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Fatalf("EventKind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}
