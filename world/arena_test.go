package world

import (
	"math"
	"testing"
	"testing/fstest"
)

func TestIsWallOutOfBounds(t *testing.T) {
	a := NewArena(DefaultGrid(), DefaultDoorConfig())
	cases := []struct {
		x, y float64
		want bool
	}{
		{-0.5, 5, true},
		{5, 30.2, true},
		{0.5, 0.5, true},
		{3.5, 3.5, false},
		{6.5, 3.5, true}, // 暗门
	}
	for _, c := range cases {
		if got := a.IsWall(c.x, c.y); got != c.want {
			t.Errorf("IsWall(%v,%v) = %v, want %v", c.x, c.y, got, c.want)
		}
	}
}

func TestLineOfSightBlockedByClosedDoor(t *testing.T) {
	a := NewArena(DefaultGrid(), DefaultDoorConfig())
	k := TileKey{X: 3, Y: 6}
	if a.HasLineOfSight(3.5, 4.5, 3.5, 8.5) {
		t.Fatalf("closed door must block sight")
	}
	a.Doors.Open(k)
	for i := 0; i < 20; i++ {
		a.Doors.Update(0.05, nil)
	}
	if !a.HasLineOfSight(3.5, 4.5, 3.5, 8.5) {
		t.Fatalf("open door must not block sight")
	}
	if !a.HasLineOfSight(10, 10, 10.2, 10.2) {
		t.Fatalf("very short lines are always visible")
	}
}

func TestMoveSlidesAlongWall(t *testing.T) {
	a := NewArena(DefaultGrid(), DefaultDoorConfig())
	// 贴着左侧外墙向左上方移动：x 被挡住，y 继续前进
	x, y := Move(a, 1.25, 10.5, -0.2, -0.2, PlayerRadius)
	if x != 1.25 {
		t.Fatalf("x moved into wall: %v", x)
	}
	if math.Abs(y-10.3) > 1e-9 {
		t.Fatalf("y = %v, want 10.3", y)
	}
}

func TestIntentDirectionNormalized(t *testing.T) {
	in := Intent{Forward: true, Right: true, Angle: 0.3}
	dx, dy := in.Direction()
	if l := math.Hypot(dx, dy); math.Abs(l-1) > 1e-9 {
		t.Fatalf("diagonal length = %v", l)
	}
	if dx, dy := (Intent{Forward: true, Backward: true}).Direction(); dx != 0 || dy != 0 {
		t.Fatalf("opposite keys should cancel, got %v,%v", dx, dy)
	}
}

func TestNormalizeAngle(t *testing.T) {
	if got := NormalizeAngle(math.NaN()); got != 0 {
		t.Fatalf("NaN -> %v", got)
	}
	if got := NormalizeAngle(3 * math.Pi / 2); math.Abs(got+math.Pi/2) > 1e-9 {
		t.Fatalf("3π/2 -> %v", got)
	}
}

const testTMX = `<?xml version="1.0" encoding="UTF-8"?>
<map version="1.10" orientation="orthogonal" renderorder="right-down" width="4" height="3" tilewidth="16" tileheight="16" infinite="0" nextlayerid="3" nextobjectid="3">
 <tileset firstgid="1" name="walls" tilewidth="16" tileheight="16" tilecount="2" columns="2">
  <tile id="0"><properties><property name="kind" value="brick"/></properties></tile>
  <tile id="1"><properties><property name="kind" value="door"/></properties></tile>
 </tileset>
 <layer id="1" name="walls" width="4" height="3">
  <data encoding="csv">
1,1,1,1,
1,0,2,1,
1,1,1,1
</data>
 </layer>
 <objectgroup id="2" name="PlayerSpawn">
  <object id="1" x="24" y="24"/>
 </objectgroup>
</map>
`

func TestLoadTMX(t *testing.T) {
	fsys := fstest.MapFS{"levels/small.tmx": {Data: []byte(testTMX)}}
	g, err := LoadTMX(fsys, "levels/small.tmx")
	if err != nil {
		t.Fatalf("LoadTMX: %v", err)
	}
	if g.Width != 4 || g.Height != 3 {
		t.Fatalf("size = %dx%d", g.Width, g.Height)
	}
	if got := g.At(TileKey{X: 0, Y: 0}); got != TileBrick {
		t.Fatalf("corner = %v, want brick", got)
	}
	if got := g.At(TileKey{X: 1, Y: 1}); got != TileEmpty {
		t.Fatalf("floor = %v, want empty", got)
	}
	if got := g.At(TileKey{X: 2, Y: 1}); got != TileDoor {
		t.Fatalf("door tile = %v", got)
	}
	if len(g.PlayerSpawns) != 1 || g.PlayerSpawns[0] != (Point{X: 1.5, Y: 1.5}) {
		t.Fatalf("spawns = %v", g.PlayerSpawns)
	}
	if d := NewDoors(g, DefaultDoorConfig()); d.Len() != 1 {
		t.Fatalf("doors = %d, want 1", d.Len())
	}
}
