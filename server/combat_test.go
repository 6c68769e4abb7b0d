package server

import (
	"math"
	"testing"

	"wolfarena/world"
)

func pistolShot(x, y, angle float64) Shot {
	return Shot{Shooter: playerRef("shooter"), X: x, Y: y, Angle: angle, Weapon: weapons["pistol"]}
}

func target(id string, x, y float64) Target {
	return Target{Ref: playerRef(PlayerID(id)), X: x, Y: y, Radius: world.PlayerRadius, Alive: true}
}

func TestResolveShotNearestWinsRegardlessOfOrder(t *testing.T) {
	a := world.NewArena(world.DefaultGrid(), world.DefaultDoorConfig())
	s := pistolShot(2.5, 8.5, 0)
	near, mid, far := target("near", 5.5, 8.5), target("mid", 8.5, 8.5), target("far", 11.5, 8.5)

	orders := [][]Target{
		{near, mid, far},
		{far, mid, near},
		{mid, far, near},
	}
	for i, ts := range orders {
		got, dist, ok := ResolveShot(a, s, ts)
		if !ok || got.Ref != near.Ref {
			t.Fatalf("order %d: got %v ok=%v, want near", i, got.Ref, ok)
		}
		if math.Abs(dist-3) > 1e-9 {
			t.Fatalf("order %d: dist = %v", i, dist)
		}
	}

	// 最近者不在了，次近者被命中
	got, _, ok := ResolveShot(a, s, []Target{far, mid})
	if !ok || got.Ref != mid.Ref {
		t.Fatalf("got %v, want mid", got.Ref)
	}
}

func TestResolveShotSkipsInvalidCandidates(t *testing.T) {
	a := world.NewArena(world.DefaultGrid(), world.DefaultDoorConfig())
	s := pistolShot(2.5, 8.5, 0)

	dead := target("dead", 4.5, 8.5)
	dead.Alive = false
	self := Target{Ref: s.Shooter, X: 3.0, Y: 8.5, Radius: world.PlayerRadius, Alive: true}
	offAxis := target("off", 8.5, 10.5)

	if _, _, ok := ResolveShot(a, s, []Target{dead, self, offAxis}); ok {
		t.Fatalf("expected miss")
	}
}

func TestResolveShotBlockedByWall(t *testing.T) {
	a := world.NewArena(world.DefaultGrid(), world.DefaultDoorConfig())
	// (9,9) 是墙
	s := pistolShot(6.5, 9.5, 0)
	if _, _, ok := ResolveShot(a, s, []Target{target("behind", 12.5, 9.5)}); ok {
		t.Fatalf("hit through wall")
	}
}

func TestResolveShotBlockedByClosedDoor(t *testing.T) {
	a := world.NewArena(world.DefaultGrid(), world.DefaultDoorConfig())
	k := world.TileKey{X: 3, Y: 6}
	s := pistolShot(3.5, 8.5, -math.Pi/2)
	behind := []Target{target("room", 3.5, 3.5)}

	if _, _, ok := ResolveShot(a, s, behind); ok {
		t.Fatalf("hit through closed door")
	}
	a.Doors.Open(k)
	for i := 0; i < 20; i++ {
		a.Doors.Update(0.05, nil)
	}
	if !a.Doors.IsPassable(k) {
		t.Fatalf("door should be open")
	}
	if _, _, ok := ResolveShot(a, s, behind); !ok {
		t.Fatalf("open door should not block the shot")
	}
}

func TestResolveShotTolerance(t *testing.T) {
	a := world.NewArena(world.DefaultGrid(), world.DefaultDoorConfig())
	const d = 5.0
	w := weapons["pistol"]
	tol := ShotTolerance(world.PlayerRadius, d, w)

	tests := []struct {
		name   string
		offset float64
		hit    bool
	}{
		{"center", 0, true},
		{"inside edge", tol * 0.95, true},
		{"outside edge", tol * 1.05, false},
		{"negative inside", -tol * 0.95, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := pistolShot(10.5, 8.5, tt.offset)
			_, _, ok := ResolveShot(a, s, []Target{target("t", 10.5+d, 8.5)})
			if ok != tt.hit {
				t.Fatalf("offset %.4f: hit=%v want %v", tt.offset, ok, tt.hit)
			}
		})
	}
}

func TestShotToleranceParts(t *testing.T) {
	pistol := weapons["pistol"]
	if got, want := ShotTolerance(0.2, 5, pistol), math.Atan2(0.35, 5)+0.03; math.Abs(got-want) > 1e-12 {
		t.Fatalf("pistol tolerance = %v, want %v", got, want)
	}
	shotgun := weapons["shotgun"]
	if d := ShotTolerance(0.2, 5, shotgun) - ShotTolerance(0.2, 5, pistol); math.Abs(d-shotgun.Spread) > 1e-12 {
		t.Fatalf("weapon spread not additive: %v", d)
	}
}

func TestEntityRefString(t *testing.T) {
	if got := playerRef("abc").String(); got != "player:abc" {
		t.Fatalf("got %s", got)
	}
	if got := enemyRef(7).String(); got != "enemy:7" {
		t.Fatalf("got %s", got)
	}
}
