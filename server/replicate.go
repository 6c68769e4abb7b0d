package server

import (
	"wolfarena/protocol"
)

// Frame 一个 Tick 的复制输入（只读引用实体，不做拷贝）
type Frame struct {
	Tick       uint64
	Time       int64
	Players    []*Player
	Coop       *CoopFrame
	Doors      []protocol.DoorState
	KillLimit  int
	DMGameOver bool
}

type CoopFrame struct {
	Enemies      []*Enemy
	Pickups      []*Pickup
	Wave         int
	BetweenWaves bool
	Countdown    float64
	GameOver     bool
}

// sentPlayer 上次发给某个接收者的玩家字段（已量化）
type sentPlayer struct {
	x, y, angle   float64
	health        int
	alive         bool
	name, color   string
	kills, deaths int
	gold          int
	weapon        string
}

type sentEnemy struct {
	x, y              float64
	health, maxHealth int
	alive, hurt, boss bool
	state             string
}

type recipientCache struct {
	players   map[PlayerID]sentPlayer
	enemies   map[int]sentEnemy
	removed   []string
	forceFull bool
}

func newRecipientCache() *recipientCache {
	return &recipientCache{
		players:   make(map[PlayerID]sentPlayer),
		enemies:   make(map[int]sentEnemy),
		forceFull: true,
	}
}

// Replicator 每个接收者一份"上次发送值"，据此生成稀疏增量
type Replicator struct {
	every  int
	caches map[PlayerID]*recipientCache
}

func NewReplicator(every int) *Replicator {
	if every <= 0 {
		every = 1
	}
	return &Replicator{every: every, caches: make(map[PlayerID]*recipientCache)}
}

func (rp *Replicator) SetEvery(every int) {
	if every > 0 {
		rp.every = every
	}
}

// ForceFull 下一次 Build 对该接收者发全量（中途加入）
func (rp *Replicator) ForceFull(id PlayerID) {
	rp.cache(id).forceFull = true
}

// Forget 实体被移除：丢弃它自己的缓存，并在其他接收者的下一帧里列出移除
func (rp *Replicator) Forget(id PlayerID) {
	delete(rp.caches, id)
	for _, c := range rp.caches {
		if _, ok := c.players[id]; ok {
			delete(c.players, id)
			c.removed = append(c.removed, string(id))
		}
	}
}

// Reset 新一局：全部缓存作废
func (rp *Replicator) Reset() {
	for id := range rp.caches {
		rp.caches[id] = newRecipientCache()
	}
}

func (rp *Replicator) cache(id PlayerID) *recipientCache {
	c, ok := rp.caches[id]
	if !ok {
		c = newRecipientCache()
		rp.caches[id] = c
	}
	return c
}

func snapshotPlayer(p *Player) sentPlayer {
	return sentPlayer{
		x:      protocol.Quantize(p.X),
		y:      protocol.Quantize(p.Y),
		angle:  protocol.Quantize(p.Angle),
		health: p.Health,
		alive:  p.Alive,
		name:   p.Name,
		color:  p.Color,
		kills:  p.Kills,
		deaths: p.Deaths,
		gold:   p.Gold,
		weapon: p.Weapon,
	}
}

func snapshotEnemy(e *Enemy) sentEnemy {
	return sentEnemy{
		x:         protocol.Quantize(e.X),
		y:         protocol.Quantize(e.Y),
		health:    e.Health,
		maxHealth: e.MaxHealth,
		alive:     e.Alive,
		hurt:      e.Hurt > 0,
		boss:      e.Boss,
		state:     e.State.String(),
	}
}

// Build 为接收者 to 生成本 Tick 的 gameState
// 本地玩家总是带 x/y/h/al 校正；其余实体全量帧发完整记录，否则只发变化字段
func (rp *Replicator) Build(to PlayerID, f *Frame) protocol.GameState {
	c := rp.cache(to)
	full := c.forceFull || f.Tick%uint64(rp.every) == 0
	gs := protocol.GameState{
		Tick:       f.Tick,
		Time:       f.Time,
		Players:    make(map[string]protocol.PlayerDelta, len(f.Players)),
		Doors:      f.Doors,
		KillLimit:  f.KillLimit,
		DMGameOver: f.DMGameOver,
	}
	if full {
		gs.Full = 1
		c.forceFull = false
	}
	if len(c.removed) > 0 {
		gs.Removed = c.removed
		c.removed = nil
	}

	for _, p := range f.Players {
		cur := snapshotPlayer(p)
		prev, known := c.players[p.ID]
		var d protocol.PlayerDelta
		switch {
		case full || !known:
			d = fullPlayer(cur)
		default:
			d = diffPlayer(prev, cur)
		}
		if p.ID == to {
			// 本地玩家朝向由客户端自己决定
			d.Angle = nil
			d.X, d.Y = protocol.Ptr(cur.x), protocol.Ptr(cur.y)
			d.Health, d.Alive = protocol.Ptr(cur.health), protocol.Ptr(cur.alive)
		}
		c.players[p.ID] = cur
		if !d.Empty() {
			gs.Players[string(p.ID)] = d
		}
	}

	if f.Coop != nil {
		gs.Coop = rp.buildCoop(c, f.Coop, full)
	} else if len(c.enemies) > 0 {
		clear(c.enemies)
	}
	return gs
}

func (rp *Replicator) buildCoop(c *recipientCache, cf *CoopFrame, full bool) *protocol.CoopState {
	cs := &protocol.CoopState{
		Enemies:      make([]protocol.EnemyDelta, 0, len(cf.Enemies)),
		Pickups:      make([]protocol.PickupState, 0, len(cf.Pickups)),
		Wave:         cf.Wave,
		BetweenWaves: cf.BetweenWaves,
		Countdown:    protocol.Quantize(cf.Countdown),
		GameOver:     cf.GameOver,
	}
	if full {
		cs.EnemiesFull = 1
		clear(c.enemies)
	}
	present := make(map[int]struct{}, len(cf.Enemies))
	for _, e := range cf.Enemies {
		present[e.ID] = struct{}{}
		cur := snapshotEnemy(e)
		prev, known := c.enemies[e.ID]
		var d protocol.EnemyDelta
		if full || !known {
			d = fullEnemy(e.ID, cur)
		} else {
			d = diffEnemy(e.ID, prev, cur)
		}
		c.enemies[e.ID] = cur
		if full || !known || d != (protocol.EnemyDelta{ID: e.ID}) {
			cs.Enemies = append(cs.Enemies, d)
		}
	}
	for id := range c.enemies {
		if _, ok := present[id]; !ok {
			delete(c.enemies, id)
			cs.RemovedEnemies = append(cs.RemovedEnemies, id)
		}
	}
	for _, pk := range cf.Pickups {
		if !pk.Active {
			continue
		}
		cs.Pickups = append(cs.Pickups, protocol.PickupState{
			ID: pk.ID, X: protocol.Quantize(pk.X), Y: protocol.Quantize(pk.Y), Kind: pk.Kind,
		})
	}
	return cs
}

func fullPlayer(s sentPlayer) protocol.PlayerDelta {
	return protocol.PlayerDelta{
		X:      protocol.Ptr(s.x),
		Y:      protocol.Ptr(s.y),
		Angle:  protocol.Ptr(s.angle),
		Health: protocol.Ptr(s.health),
		Alive:  protocol.Ptr(s.alive),
		Name:   protocol.Ptr(s.name),
		Color:  protocol.Ptr(s.color),
		Kills:  protocol.Ptr(s.kills),
		Deaths: protocol.Ptr(s.deaths),
		Gold:   protocol.Ptr(s.gold),
		Weapon: protocol.Ptr(s.weapon),
	}
}

func diffPlayer(prev, cur sentPlayer) protocol.PlayerDelta {
	var d protocol.PlayerDelta
	if cur.x != prev.x {
		d.X = protocol.Ptr(cur.x)
	}
	if cur.y != prev.y {
		d.Y = protocol.Ptr(cur.y)
	}
	if cur.angle != prev.angle {
		d.Angle = protocol.Ptr(cur.angle)
	}
	if cur.health != prev.health {
		d.Health = protocol.Ptr(cur.health)
	}
	if cur.alive != prev.alive {
		d.Alive = protocol.Ptr(cur.alive)
	}
	if cur.name != prev.name {
		d.Name = protocol.Ptr(cur.name)
	}
	if cur.color != prev.color {
		d.Color = protocol.Ptr(cur.color)
	}
	if cur.kills != prev.kills {
		d.Kills = protocol.Ptr(cur.kills)
	}
	if cur.deaths != prev.deaths {
		d.Deaths = protocol.Ptr(cur.deaths)
	}
	if cur.gold != prev.gold {
		d.Gold = protocol.Ptr(cur.gold)
	}
	if cur.weapon != prev.weapon {
		d.Weapon = protocol.Ptr(cur.weapon)
	}
	return d
}

func fullEnemy(id int, s sentEnemy) protocol.EnemyDelta {
	return protocol.EnemyDelta{
		ID:        id,
		X:         protocol.Ptr(s.x),
		Y:         protocol.Ptr(s.y),
		Health:    protocol.Ptr(s.health),
		MaxHealth: protocol.Ptr(s.maxHealth),
		Alive:     protocol.Ptr(s.alive),
		Hurt:      protocol.Ptr(s.hurt),
		Boss:      protocol.Ptr(s.boss),
		State:     protocol.Ptr(s.state),
	}
}

func diffEnemy(id int, prev, cur sentEnemy) protocol.EnemyDelta {
	d := protocol.EnemyDelta{ID: id}
	if cur.x != prev.x {
		d.X = protocol.Ptr(cur.x)
	}
	if cur.y != prev.y {
		d.Y = protocol.Ptr(cur.y)
	}
	if cur.health != prev.health {
		d.Health = protocol.Ptr(cur.health)
	}
	if cur.maxHealth != prev.maxHealth {
		d.MaxHealth = protocol.Ptr(cur.maxHealth)
	}
	if cur.alive != prev.alive {
		d.Alive = protocol.Ptr(cur.alive)
	}
	if cur.hurt != prev.hurt {
		d.Hurt = protocol.Ptr(cur.hurt)
	}
	if cur.boss != prev.boss {
		d.Boss = protocol.Ptr(cur.boss)
	}
	if cur.state != prev.state {
		d.State = protocol.Ptr(cur.state)
	}
	return d
}
