package server

import (
	"math/rand"
	"testing"

	"wolfarena/protocol"
	"wolfarena/world"
)

// mirrorPlayer 客户端视角下的玩家字段
type mirrorPlayer struct {
	x, y, angle   float64
	health        int
	alive         bool
	name, color   string
	kills, deaths int
	gold          int
	weapon        string
}

type mirror map[string]*mirrorPlayer

func (m mirror) apply(gs protocol.GameState) {
	if gs.Full == 1 {
		for id := range m {
			if _, ok := gs.Players[id]; !ok {
				delete(m, id)
			}
		}
	}
	for _, id := range gs.Removed {
		delete(m, id)
	}
	for id, d := range gs.Players {
		p := m[id]
		if p == nil {
			p = &mirrorPlayer{}
			m[id] = p
		}
		set(&p.x, d.X)
		set(&p.y, d.Y)
		set(&p.angle, d.Angle)
		set(&p.health, d.Health)
		set(&p.alive, d.Alive)
		set(&p.name, d.Name)
		set(&p.color, d.Color)
		set(&p.kills, d.Kills)
		set(&p.deaths, d.Deaths)
		set(&p.gold, d.Gold)
		set(&p.weapon, d.Weapon)
	}
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func testPlayer(id string) *Player {
	p := newPlayer(PlayerID(id), id, "#fff", nil, protocol.JSON)
	p.Alive = true
	return p
}

func TestMirrorTracksAuthoritativeState(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	players := []*Player{testPlayer("me"), testPlayer("b"), testPlayer("c")}
	rp := NewReplicator(5)
	m := mirror{}

	for tick := uint64(1); tick <= 40; tick++ {
		for _, p := range players[1:] {
			p.X += rng.Float64() - 0.5
			p.Y += rng.Float64() - 0.5
			p.Angle = rng.Float64()
			if rng.Intn(4) == 0 {
				p.Health = rng.Intn(PlayerMaxHealth + 1)
				p.Kills++
			}
		}
		if tick == 17 {
			rp.Forget("c")
			players = players[:2]
		}
		f := &Frame{Tick: tick, Players: players}
		m.apply(rp.Build("me", f))

		// 每一帧之后镜像都必须等于量化后的权威状态
		for _, p := range players[1:] {
			s := snapshotPlayer(p)
			want := mirrorPlayer{s.x, s.y, s.angle, s.health, s.alive, s.name, s.color, s.kills, s.deaths, s.gold, s.weapon}
			got := m[string(p.ID)]
			if got == nil || *got != want {
				t.Fatalf("tick %d: mirror of %s = %+v, want %+v", tick, p.ID, got, want)
			}
		}
		if tick > 17 {
			if _, ok := m["c"]; ok {
				t.Fatalf("tick %d: removed player still mirrored", tick)
			}
		}
	}
}

func TestLocalPlayerAlwaysCorrected(t *testing.T) {
	me := testPlayer("me")
	me.X, me.Y, me.Angle = 3.5, 4.5, 1.2
	rp := NewReplicator(5)
	rp.Build("me", &Frame{Tick: 1, Players: []*Player{me}})

	gs := rp.Build("me", &Frame{Tick: 2, Players: []*Player{me}})
	if gs.Full == 1 {
		t.Fatalf("tick 2 should be sparse")
	}
	d, ok := gs.Players["me"]
	if !ok || d.X == nil || d.Y == nil || d.Health == nil || d.Alive == nil {
		t.Fatalf("local correction missing: %+v", d)
	}
	if d.Angle != nil {
		t.Fatalf("local angle must not be sent")
	}
	if d.Name != nil {
		t.Fatalf("unchanged fields should be omitted")
	}
}

func TestQuantizedNoiseIsNotSent(t *testing.T) {
	b := testPlayer("b")
	b.X, b.Y = 10.501, 8.5
	rp := NewReplicator(100)
	rp.Build("me", &Frame{Tick: 1, Players: []*Player{b}})

	b.X = 10.502
	gs := rp.Build("me", &Frame{Tick: 2, Players: []*Player{b}})
	if _, ok := gs.Players["b"]; ok {
		t.Fatalf("sub-centimetre movement replicated: %+v", gs.Players["b"])
	}
	b.X = 10.6
	gs = rp.Build("me", &Frame{Tick: 3, Players: []*Player{b}})
	d := gs.Players["b"]
	if d.X == nil || *d.X != 10.6 || d.Y != nil {
		t.Fatalf("delta = %+v", d)
	}
}

func TestEnemyRemovalListed(t *testing.T) {
	e1 := newEnemy(1, world.Point{X: 5, Y: 5}, WaveStats(1), false)
	e2 := newEnemy(2, world.Point{X: 6, Y: 6}, WaveStats(1), false)
	rp := NewReplicator(100)
	cf := &CoopFrame{Enemies: []*Enemy{e1, e2}}
	gs := rp.Build("me", &Frame{Tick: 1, Coop: cf})
	if gs.Coop.EnemiesFull != 1 || len(gs.Coop.Enemies) != 2 {
		t.Fatalf("first coop frame should be full: %+v", gs.Coop)
	}

	e1.X += 1
	cf.Enemies = []*Enemy{e1}
	gs = rp.Build("me", &Frame{Tick: 2, Coop: cf})
	if len(gs.Coop.RemovedEnemies) != 1 || gs.Coop.RemovedEnemies[0] != 2 {
		t.Fatalf("removed = %v", gs.Coop.RemovedEnemies)
	}
	if len(gs.Coop.Enemies) != 1 || gs.Coop.Enemies[0].X == nil || gs.Coop.Enemies[0].Health != nil {
		t.Fatalf("enemy delta = %+v", gs.Coop.Enemies)
	}

	gs = rp.Build("me", &Frame{Tick: 3, Coop: cf})
	if len(gs.Coop.Enemies) != 0 || len(gs.Coop.RemovedEnemies) != 0 {
		t.Fatalf("unchanged enemies should not be sent: %+v", gs.Coop)
	}
}

func TestPickupsAlwaysListedWhenActive(t *testing.T) {
	rp := NewReplicator(100)
	cf := &CoopFrame{Pickups: []*Pickup{
		{ID: 1, X: 2.5, Y: 2.5, Kind: pickupHealth, Active: true},
		{ID: 2, X: 3.5, Y: 2.5, Kind: pickupHealth, Active: false},
	}}
	for tick := uint64(1); tick <= 3; tick++ {
		gs := rp.Build("me", &Frame{Tick: tick, Coop: cf})
		if len(gs.Coop.Pickups) != 1 || gs.Coop.Pickups[0].ID != 1 {
			t.Fatalf("tick %d pickups = %+v", tick, gs.Coop.Pickups)
		}
	}
}

func TestForceFullForNewRecipient(t *testing.T) {
	b := testPlayer("b")
	rp := NewReplicator(100)
	rp.Build("me", &Frame{Tick: 1, Players: []*Player{b}})
	rp.Build("me", &Frame{Tick: 2, Players: []*Player{b}})
	rp.ForceFull("me")
	gs := rp.Build("me", &Frame{Tick: 3, Players: []*Player{b}})
	if gs.Full != 1 || gs.Players["b"].Name == nil {
		t.Fatalf("forced frame not full: %+v", gs)
	}
}
