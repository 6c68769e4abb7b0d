package world

import (
	"math"
	"testing"
)

func testDoors(t *testing.T) (*Arena, TileKey) {
	t.Helper()
	a := NewArena(DefaultGrid(), DefaultDoorConfig())
	k := TileKey{X: 3, Y: 6}
	if _, ok := a.Doors.Door(k); !ok {
		t.Fatalf("expected door at %v", k)
	}
	return a, k
}

func TestDoorOpensMonotonically(t *testing.T) {
	a, k := testDoors(t)
	if !a.Doors.Open(k) {
		t.Fatalf("open from closed should succeed")
	}
	d, _ := a.Doors.Door(k)
	if d.State != DoorOpening {
		t.Fatalf("state = %v, want opening", d.State)
	}
	prev := d.Progress
	for i := 0; i < 100; i++ {
		a.Doors.Update(0.05, nil)
		d, _ = a.Doors.Door(k)
		if d.Progress > 1 || d.Progress < 0 {
			t.Fatalf("progress out of range: %f", d.Progress)
		}
		if d.State == DoorOpen {
			break
		}
		if d.Progress <= prev {
			t.Fatalf("progress did not increase: %f -> %f", prev, d.Progress)
		}
		prev = d.Progress
	}
	if d.State != DoorOpen || d.Progress != 1 {
		t.Fatalf("door not open: %v %f", d.State, d.Progress)
	}
	if a.Doors.Open(k) {
		t.Fatalf("open on an open door should be a no-op")
	}
}

func TestDoorAutoClosesWhenFree(t *testing.T) {
	a, k := testDoors(t)
	a.Doors.Open(k)
	for i := 0; i < 40; i++ {
		a.Doors.Update(0.05, nil)
		if d, _ := a.Doors.Door(k); d.State == DoorOpen {
			break
		}
	}
	// 5 秒自动关门：95 步后仍开着，再 10 步开始关
	for i := 0; i < 95; i++ {
		a.Doors.Update(0.05, nil)
	}
	if d, _ := a.Doors.Door(k); d.State != DoorOpen {
		t.Fatalf("closed too early: %v", d.State)
	}
	for i := 0; i < 10; i++ {
		a.Doors.Update(0.05, nil)
	}
	d, _ := a.Doors.Door(k)
	if d.State != DoorClosing {
		t.Fatalf("state = %v, want closing", d.State)
	}
	prev := d.Progress
	for d.State == DoorClosing {
		a.Doors.Update(0.05, nil)
		d, _ = a.Doors.Door(k)
		if d.Progress >= prev && d.State == DoorClosing {
			t.Fatalf("progress did not decrease: %f -> %f", prev, d.Progress)
		}
		prev = d.Progress
	}
	if d.State != DoorClosed || d.Progress != 0 {
		t.Fatalf("door not closed: %v %f", d.State, d.Progress)
	}
}

func TestDoorOccupancyDefersClose(t *testing.T) {
	a, k := testDoors(t)
	a.Doors.Open(k)
	occupied := true
	occ := func(tk TileKey) bool { return occupied && tk == k }
	for i := 0; i < 300; i++ {
		a.Doors.Update(0.05, occ)
		if d, _ := a.Doors.Door(k); d.State == DoorClosing {
			t.Fatalf("door started closing while occupied (step %d)", i)
		}
	}
	occupied = false
	// 离开后最多一个重试间隔内开始关门
	steps := int(math.Ceil(a.Doors.Config().RetryDelay/0.05)) + 1
	for i := 0; i < steps; i++ {
		a.Doors.Update(0.05, occ)
	}
	if d, _ := a.Doors.Door(k); d.State != DoorClosing {
		t.Fatalf("state = %v, want closing after occupant left", d.State)
	}
}

func TestDoorPassabilityThreshold(t *testing.T) {
	a, k := testDoors(t)
	cx, cy := float64(k.X)+0.5, float64(k.Y)+0.5
	if !a.IsWall(cx, cy) {
		t.Fatalf("closed door must be a wall")
	}
	a.Doors.Open(k)
	// 2.0/s * 0.4s = 0.8，尚未超过阈值
	for i := 0; i < 8; i++ {
		a.Doors.Update(0.05, nil)
	}
	if !a.IsWall(cx, cy) {
		t.Fatalf("door at progress 0.8 must still block")
	}
	a.Doors.Update(0.05, nil)
	if a.IsWall(cx, cy) {
		t.Fatalf("door past threshold must be passable")
	}
	if a.Doors.IsFullyOpen(k) {
		t.Fatalf("door should not be fully open yet")
	}
}

func TestDoorSnapshotRoundTrip(t *testing.T) {
	a, k := testDoors(t)
	if got := a.Doors.Snapshot(); len(got) != 0 {
		t.Fatalf("closed doors must be absent, got %v", got)
	}
	a.Doors.Open(k)
	a.Doors.Update(0.05, nil)
	snap := a.Doors.Snapshot()
	if len(snap) != 1 || snap[0].Key != k || snap[0].State != DoorOpening {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	mirror := NewDoors(DefaultGrid(), DefaultDoorConfig())
	other := TileKey{X: 26, Y: 6}
	mirror.Open(other)
	mirror.Update(0.05, nil)
	mirror.ApplySnapshot(snap)
	if d, _ := mirror.Door(other); d.State != DoorClosed || d.Progress != 0 {
		t.Fatalf("door missing from list must reset to closed, got %v %f", d.State, d.Progress)
	}
	if d, _ := mirror.Door(k); d.State != DoorOpening || d.Progress != snap[0].Progress {
		t.Fatalf("door not applied: %+v", d)
	}
}

func TestFindInteractable(t *testing.T) {
	a, k := testDoors(t)
	// 站在门正上方的格子中心，面朝 +Y
	key, ok := a.Doors.FindInteractable(3.5, 5.5, math.Pi/2)
	if !ok || key != k {
		t.Fatalf("got %v %v, want %v", key, ok, k)
	}
	if _, ok := a.Doors.FindInteractable(3.5, 5.5, -math.Pi/2); ok {
		t.Fatalf("facing away should find nothing")
	}
}

func TestParseTileKey(t *testing.T) {
	k, err := ParseTileKey("12,7")
	if err != nil || k != (TileKey{X: 12, Y: 7}) {
		t.Fatalf("got %v %v", k, err)
	}
	if _, err := ParseTileKey("nope"); err == nil {
		t.Fatalf("expected error")
	}
	if k.String() != "12,7" {
		t.Fatalf("String() = %q", k.String())
	}
}
