package client

import (
	"sort"

	"wolfarena/protocol"
	"wolfarena/world"
)

// PlayerView 客户端镜像中的玩家字段（最近一次服务端值）
type PlayerView struct {
	ID            string
	Name, Color   string
	X, Y, Angle   float64
	Health        int
	Alive         bool
	Kills, Deaths int
	Gold          int
	Weapon        string
}

// EnemyView 合作模式敌人
type EnemyView struct {
	ID                int
	X, Y              float64
	Health, MaxHealth int
	Alive, Hurt, Boss bool
	State             string
}

// CoopView 合作模式的全局字段
type CoopView struct {
	Wave         int
	BetweenWaves bool
	Countdown    float64
	GameOver     bool
}

type remotePlayer struct {
	PlayerView
	track Track
}

type remoteEnemy struct {
	EnemyView
	track Track
}

// Mirror 把 gameState 增量累积成完整的世界副本
// 只在渲染协程中使用
type Mirror struct {
	localID  string
	interval float64 // 插值时长（一个 Tick）
	doors    *world.Doors

	tick       uint64
	players    map[string]*remotePlayer
	enemies    map[int]*remoteEnemy
	pickups    []protocol.PickupState
	coop       *CoopView
	killLimit  int
	dmGameOver bool
}

// NewMirror doors 为客户端自己的门注册表副本，可以为 nil
func NewMirror(doors *world.Doors, tickRate int) *Mirror {
	if tickRate <= 0 {
		tickRate = 20
	}
	return &Mirror{
		doors:    doors,
		interval: 1 / float64(tickRate),
		players:  make(map[string]*remotePlayer),
		enemies:  make(map[int]*remoteEnemy),
	}
}

// SetLocal 收到 welcome 后设置本地玩家 id
func (m *Mirror) SetLocal(id string) { m.localID = id }

func (m *Mirror) LocalID() string { return m.localID }

// Reset 回到大厅或重开时清空
func (m *Mirror) Reset() {
	clear(m.players)
	clear(m.enemies)
	m.pickups = nil
	m.coop = nil
	m.dmGameOver = false
	m.tick = 0
	if m.doors != nil {
		m.doors.ApplySnapshot(nil)
	}
}

// Apply 合并一帧；返回本地玩家的校正字段（若有）
func (m *Mirror) Apply(gs protocol.GameState) (protocol.PlayerDelta, bool) {
	if gs.Tick != 0 && gs.Tick < m.tick {
		// 乱序的旧帧直接丢弃
		return protocol.PlayerDelta{}, false
	}
	m.tick = gs.Tick
	m.killLimit = gs.KillLimit
	m.dmGameOver = gs.DMGameOver

	if gs.Full == 1 {
		for id := range m.players {
			if _, ok := gs.Players[id]; !ok {
				delete(m.players, id)
			}
		}
	}
	for _, id := range gs.Removed {
		delete(m.players, id)
	}

	var (
		local    protocol.PlayerDelta
		hasLocal bool
	)
	for id, d := range gs.Players {
		p := m.players[id]
		if p == nil {
			p = &remotePlayer{PlayerView: PlayerView{ID: id}}
			m.players[id] = p
		}
		applyPlayer(&p.PlayerView, d)
		if id == m.localID {
			local, hasLocal = d, true
			continue
		}
		p.track.Retarget(p.X, p.Y, m.interval)
		p.track.SetAngle(p.Angle)
	}

	if gs.Coop != nil {
		m.applyCoop(gs.Coop)
	} else {
		clear(m.enemies)
		m.pickups = nil
		m.coop = nil
	}
	if m.doors != nil {
		m.doors.ApplySnapshot(doorSnapshots(gs.Doors))
	}
	return local, hasLocal
}

func (m *Mirror) applyCoop(cs *protocol.CoopState) {
	if cs.EnemiesFull == 1 {
		present := make(map[int]struct{}, len(cs.Enemies))
		for _, e := range cs.Enemies {
			present[e.ID] = struct{}{}
		}
		for id := range m.enemies {
			if _, ok := present[id]; !ok {
				delete(m.enemies, id)
			}
		}
	}
	for _, id := range cs.RemovedEnemies {
		delete(m.enemies, id)
	}
	for _, d := range cs.Enemies {
		e := m.enemies[d.ID]
		if e == nil {
			e = &remoteEnemy{EnemyView: EnemyView{ID: d.ID}}
			m.enemies[d.ID] = e
		}
		applyEnemy(&e.EnemyView, d)
		e.track.Retarget(e.X, e.Y, m.interval)
	}
	m.pickups = append(m.pickups[:0], cs.Pickups...)
	m.coop = &CoopView{
		Wave:         cs.Wave,
		BetweenWaves: cs.BetweenWaves,
		Countdown:    cs.Countdown,
		GameOver:     cs.GameOver,
	}
}

// Advance 推进所有远端实体的插值
func (m *Mirror) Advance(dt float64) {
	for id, p := range m.players {
		if id == m.localID {
			continue
		}
		p.track.Advance(dt)
	}
	for _, e := range m.enemies {
		e.track.Advance(dt)
	}
}

func (m *Mirror) Tick() uint64 { return m.tick }

// Player 最近一次服务端值
func (m *Mirror) Player(id string) (PlayerView, bool) {
	p, ok := m.players[id]
	if !ok {
		return PlayerView{}, false
	}
	return p.PlayerView, true
}

// Players 按 id 排序
func (m *Mirror) Players() []PlayerView {
	out := make([]PlayerView, 0, len(m.players))
	for _, p := range m.players {
		out = append(out, p.PlayerView)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Display 远端玩家的插值显示位置
func (m *Mirror) Display(id string) (x, y, angle float64, ok bool) {
	p, found := m.players[id]
	if !found || id == m.localID {
		return 0, 0, 0, false
	}
	return p.track.X, p.track.Y, p.track.Angle, true
}

func (m *Mirror) Enemy(id int) (EnemyView, bool) {
	e, ok := m.enemies[id]
	if !ok {
		return EnemyView{}, false
	}
	return e.EnemyView, true
}

// Enemies 按 id 排序
func (m *Mirror) Enemies() []EnemyView {
	out := make([]EnemyView, 0, len(m.enemies))
	for _, e := range m.enemies {
		out = append(out, e.EnemyView)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// EnemyDisplay 敌人的插值显示位置
func (m *Mirror) EnemyDisplay(id int) (x, y float64, ok bool) {
	e, found := m.enemies[id]
	if !found {
		return 0, 0, false
	}
	return e.track.X, e.track.Y, true
}

func (m *Mirror) Pickups() []protocol.PickupState { return m.pickups }

// Coop 非合作模式返回 nil
func (m *Mirror) Coop() *CoopView { return m.coop }

func (m *Mirror) KillLimit() int   { return m.killLimit }
func (m *Mirror) DMGameOver() bool { return m.dmGameOver }

func applyPlayer(p *PlayerView, d protocol.PlayerDelta) {
	set(&p.X, d.X)
	set(&p.Y, d.Y)
	set(&p.Angle, d.Angle)
	set(&p.Health, d.Health)
	set(&p.Alive, d.Alive)
	set(&p.Name, d.Name)
	set(&p.Color, d.Color)
	set(&p.Kills, d.Kills)
	set(&p.Deaths, d.Deaths)
	set(&p.Gold, d.Gold)
	set(&p.Weapon, d.Weapon)
}

func applyEnemy(e *EnemyView, d protocol.EnemyDelta) {
	set(&e.X, d.X)
	set(&e.Y, d.Y)
	set(&e.Health, d.Health)
	set(&e.MaxHealth, d.MaxHealth)
	set(&e.Alive, d.Alive)
	set(&e.Hurt, d.Hurt)
	set(&e.Boss, d.Boss)
	set(&e.State, d.State)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// doorSnapshots 无法解析的键直接跳过
func doorSnapshots(list []protocol.DoorState) []world.DoorSnapshot {
	out := make([]world.DoorSnapshot, 0, len(list))
	for _, d := range list {
		k, err := world.ParseTileKey(d.Key)
		if err != nil {
			continue
		}
		out = append(out, world.DoorSnapshot{Key: k, State: world.ParseDoorState(d.State), Progress: d.Progress})
	}
	return out
}
