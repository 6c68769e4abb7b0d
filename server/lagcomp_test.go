package server

import (
	"math"
	"testing"
	"time"

	"wolfarena/protocol"
)

func TestHistoryClosest(t *testing.T) {
	t0 := time.Unix(100, 0)
	h := NewHistory(8)
	if _, ok := h.Closest(t0); ok {
		t.Fatalf("empty history returned an entry")
	}
	for i := 0; i < 5; i++ {
		h.Record(t0.Add(time.Duration(i)*50*time.Millisecond), map[EntityRef]Position{
			playerRef("a"): {X: float64(i)},
		})
	}
	e, ok := h.Closest(t0.Add(120 * time.Millisecond))
	if !ok || e.Positions[playerRef("a")].X != 2 {
		t.Fatalf("closest = %+v", e)
	}
	e, _ = h.Closest(t0.Add(-time.Second))
	if e.Positions[playerRef("a")].X != 0 {
		t.Fatalf("before range should clamp to oldest, got %+v", e)
	}
}

func TestHistoryRingOverwritesOldest(t *testing.T) {
	t0 := time.Unix(100, 0)
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Record(t0.Add(time.Duration(i)*time.Second), map[EntityRef]Position{
			playerRef("a"): {X: float64(i)},
		})
	}
	if h.Len() != 3 {
		t.Fatalf("len = %d", h.Len())
	}
	e, _ := h.Closest(t0)
	if e.Positions[playerRef("a")].X != 2 {
		t.Fatalf("oldest retained should be 2, got %+v", e)
	}
	h.Clear()
	if h.Len() != 0 {
		t.Fatalf("clear left %d entries", h.Len())
	}
}

func TestRewindRestoresView(t *testing.T) {
	t0 := time.Unix(100, 0)
	h := NewHistory(4)
	h.Record(t0, map[EntityRef]Position{
		playerRef("shooter"): {X: 1, Y: 1},
		playerRef("b"):       {X: 20, Y: 20},
	})

	view := []Target{
		target("shooter", 5.123456789, 8.5),
		target("b", 10.1, 8.3),
		{Ref: enemyRef(3), X: 0.1 + 0.2, Y: 7, Radius: 0.3, Alive: true},
	}
	before := append([]Target(nil), view...)

	rewound := h.Rewind(t0, playerRef("shooter"), view, func(ts []Target) {
		if ts[0].X != before[0].X {
			t.Errorf("shooter must not be rewound")
		}
		if ts[1].X != 20 || ts[1].Y != 20 {
			t.Errorf("target not rewound: %+v", ts[1])
		}
		if ts[2].X != before[2].X {
			t.Errorf("entity without history should keep its position")
		}
	})
	if !rewound {
		t.Fatalf("expected rewind")
	}
	assertSameView(t, before, view)

	// fn panic 时同样还原
	func() {
		defer func() { _ = recover() }()
		h.Rewind(t0, playerRef("shooter"), view, func([]Target) { panic("boom") })
	}()
	assertSameView(t, before, view)
}

func TestRewindWithoutHistoryUsesCurrentView(t *testing.T) {
	h := NewHistory(4)
	view := []Target{target("b", 3, 4)}
	called := false
	if h.Rewind(time.Now(), playerRef("a"), view, func(ts []Target) {
		called = true
		if ts[0].X != 3 {
			t.Errorf("view modified")
		}
	}) {
		t.Fatalf("empty history must not report a rewind")
	}
	if !called {
		t.Fatalf("fn not called")
	}
}

func assertSameView(t *testing.T, want, got []Target) {
	t.Helper()
	for i := range want {
		if math.Float64bits(want[i].X) != math.Float64bits(got[i].X) ||
			math.Float64bits(want[i].Y) != math.Float64bits(got[i].Y) {
			t.Fatalf("target %d not restored: want (%v,%v) got (%v,%v)", i, want[i].X, want[i].Y, got[i].X, got[i].Y)
		}
	}
}

func TestRoomCompensatesHighLatencyShooter(t *testing.T) {
	run := func(ping float64) (int, *harness) {
		h := newHarness(t, nil)
		h.join("a", "alice")
		h.join("b", "bob")
		h.start(protocol.ModeDeathmatch)
		h.place("a", 5.5, 8.5, 0)
		h.place("b", 10.5, 8.5, math.Pi)
		h.player("a").PingMs = ping
		h.ticks(10)

		// B 已经离开 A 的准星
		h.place("b", 10.5, 11.5, math.Pi)
		h.ticks(3)
		h.msg("a", protocol.MsgShoot, protocol.Shoot{})
		h.tick()
		return h.player("b").Health, h
	}

	health, h := run(400)
	if health != PlayerMaxHealth-25 {
		t.Fatalf("lagged shooter should hit the rewound position, health=%d", health)
	}
	if h.r.metrics.Rewinds != 1 {
		t.Fatalf("rewinds = %d", h.r.metrics.Rewinds)
	}
	if b := h.player("b"); b.X != 10.5 || b.Y != 11.5 {
		t.Fatalf("live position touched: (%v,%v)", b.X, b.Y)
	}

	health, h = run(0)
	if health != PlayerMaxHealth {
		t.Fatalf("low latency shooter should miss, health=%d", health)
	}
	if h.r.metrics.Rewinds != 0 {
		t.Fatalf("rewind below threshold")
	}
}
