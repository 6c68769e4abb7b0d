package client

import (
	"math"
	"testing"

	"wolfarena/protocol"
	"wolfarena/world"
)

func correction(x, y float64, health int, alive bool) protocol.PlayerDelta {
	return protocol.PlayerDelta{X: &x, Y: &y, Health: &health, Alive: &alive}
}

func newTestPredictor(t *testing.T) *Predictor {
	t.Helper()
	p := NewPredictor(world.NewArena(world.DefaultGrid(), world.DefaultDoorConfig()))
	p.Reconcile(correction(5.5, 8.5, 100, true))
	if !p.Synced() || p.X != 5.5 || p.Y != 8.5 {
		t.Fatalf("first correction must snap: %+v", p)
	}
	return p
}

func TestPredictorAppliesInputImmediately(t *testing.T) {
	p := newTestPredictor(t)
	p.Step(world.Intent{Forward: true, Angle: 0}, 0.1)
	want := 5.5 + world.PlayerSpeed*0.1
	if math.Abs(p.X-want) > 1e-9 || p.Y != 8.5 {
		t.Fatalf("predicted (%v,%v), want (%v,8.5)", p.X, p.Y, want)
	}
}

func TestPredictorMatchesServerMovement(t *testing.T) {
	arena := world.NewArena(world.DefaultGrid(), world.DefaultDoorConfig())
	p := newTestPredictor(t)
	sx, sy := 5.5, 8.5
	in := world.Intent{Forward: true, Right: true, Angle: 0.3}
	for i := 0; i < 40; i++ {
		p.Step(in, 0.05)
		sx, sy = world.Step(arena, sx, sy, in, world.PlayerSpeed, world.PlayerRadius, 0.05)
	}
	if p.X != sx || p.Y != sy {
		t.Fatalf("client (%v,%v) diverged from server (%v,%v)", p.X, p.Y, sx, sy)
	}
}

func TestPredictorSnapsLargeError(t *testing.T) {
	p := newTestPredictor(t)
	p.Reconcile(correction(20.5, 20.5, 100, true))
	if p.X != 20.5 || p.Y != 20.5 || p.Pending() != 0 {
		t.Fatalf("teleport-class error must snap: (%v,%v)", p.X, p.Y)
	}
}

func TestPredictorBlendsSmallError(t *testing.T) {
	p := newTestPredictor(t)
	p.Reconcile(correction(5.9, 8.5, 100, true))
	if p.X != 5.5 {
		t.Fatalf("small error must not snap")
	}
	p.Step(world.Intent{}, 1.0/60)
	if got, want := p.X, 5.5+0.4*BlendFactor; math.Abs(got-want) > 1e-9 {
		t.Fatalf("after one frame x = %v, want %v", got, want)
	}
	for i := 0; i < 100; i++ {
		p.Step(world.Intent{}, 1.0/60)
	}
	if math.Abs(p.X-5.9) > DeadZone || p.Pending() != 0 {
		t.Fatalf("correction not absorbed: x=%v pending=%v", p.X, p.Pending())
	}
}

func TestPredictorIgnoresNoise(t *testing.T) {
	p := newTestPredictor(t)
	p.Reconcile(correction(5.505, 8.5, 100, true))
	p.Step(world.Intent{}, 1.0/60)
	if p.X != 5.5 {
		t.Fatalf("sub dead-zone error moved the player: %v", p.X)
	}
}

func TestPredictorTakesHealthVerbatim(t *testing.T) {
	p := newTestPredictor(t)
	p.Reconcile(correction(5.5, 8.5, 0, false))
	if p.Health != 0 || p.Alive {
		t.Fatalf("health/alive not applied: %d %v", p.Health, p.Alive)
	}
	p.Step(world.Intent{Forward: true}, 0.5)
	if p.X != 5.5 {
		t.Fatalf("dead player moved")
	}

	h := 40
	p.Reconcile(protocol.PlayerDelta{Health: &h})
	if p.Health != 40 || p.X != 5.5 {
		t.Fatalf("partial correction = %+v", p)
	}
}

func TestPredictorUnsyncSnapsNextCorrection(t *testing.T) {
	p := newTestPredictor(t)
	p.Unsync()
	p.Reconcile(correction(5.8, 8.5, 100, true))
	if p.X != 5.8 {
		t.Fatalf("unsynced predictor should snap, x=%v", p.X)
	}
}
