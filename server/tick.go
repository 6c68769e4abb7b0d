package server

import (
	"math"
	"time"

	"wolfarena/protocol"
	"wolfarena/world"
)

// StartTicker 启动房间的 Tick 循环（单线程推进世界）
func (r *Room) StartTicker() {
	if !r.tickerStarted.CompareAndSwap(false, true) {
		return
	}
	go func() {
		ticker := time.NewTicker(r.cfg.TickInterval())
		defer ticker.Stop()
		for {
			select {
			case <-r.done:
				return
			case <-ticker.C:
				r.Tick()
			}
		}
	}()
}

// Stop 结束 Tick 循环；之后 RequestLeave 不再阻塞
func (r *Room) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
	})
}

// Tick 核心循环：处理命令 → 门 → 波次 → 玩家 → 射击 → 敌人 → 历史 → 复制
func (r *Room) Tick() {
	start := time.Now()
	now := r.now()
	dt := r.dt()
	r.tickSeq++

	r.drainInbox(now)
	r.arena.Doors.Update(dt, r.doorOccupied)
	if r.phase == protocol.PhasePlaying {
		r.simulate(now, dt)
	}
	r.processKicks()
	if r.phase == protocol.PhasePlaying {
		r.replicate(now)
	}
	r.processKicks()
	r.publishStatus()
	r.metrics.AddTick(time.Since(start).Nanoseconds())
}

func (r *Room) simulate(now time.Time, dt float64) {
	if r.matchFrozen() {
		// 结算画面：不移动、不复活，宽限期结束回大厅
		if !now.Before(r.endAt) {
			r.returnToLobby()
		}
		return
	}
	coop := r.mode == protocol.ModeCooperative
	if coop && !r.waves.GameOver {
		if wave := r.waves.Update(dt, r.aliveEnemies()); wave > 0 {
			r.startWave(wave)
		}
	}

	// 目标位置在 Tick 开始时冻结，射击顺序不影响选中的目标
	view := r.targetView(coop)
	var shots []Shot
	for _, id := range r.order {
		p := r.players[id]
		r.safeStep(playerRef(id), func() {
			if s, ok := r.stepPlayer(p, now, dt); ok {
				shots = append(shots, s)
			}
		})
	}
	for _, s := range shots {
		r.safeStep(s.Shooter, func() { r.fire(s, view, now) })
	}

	if coop {
		for _, e := range r.enemies {
			r.safeStep(enemyRef(e.ID), func() { r.updateEnemy(e, dt, now) })
		}
		r.collectPickups()
	}

	r.history.Record(now, r.positions())
	r.checkMatchEnd(now)
}

func (r *Room) respawnDelay() time.Duration {
	if r.mode == protocol.ModeCooperative {
		return seconds(r.cfg.RespawnCoop)
	}
	return seconds(r.cfg.RespawnDeathmatch)
}

// stepPlayer 复活检查 / 移动积分 / 冷却；返回本 Tick 要结算的射击
func (r *Room) stepPlayer(p *Player, now time.Time, dt float64) (Shot, bool) {
	if !p.Alive {
		if now.Sub(p.DiedAt) >= r.respawnDelay() {
			r.spawn(p)
		}
		return Shot{}, false
	}
	p.X, p.Y = world.Step(r.arena, p.X, p.Y, p.Intent, world.PlayerSpeed, world.PlayerRadius, dt)
	p.Angle = p.Intent.Angle
	if p.Cooldown > 0 {
		p.Cooldown = math.Max(0, p.Cooldown-dt)
	}
	if !p.ShootRequested {
		return Shot{}, false
	}
	p.ShootRequested = false
	if p.Cooldown > 0 {
		return Shot{}, false
	}
	w := p.weapon()
	p.Cooldown = w.Cooldown
	return Shot{
		Shooter: playerRef(p.ID),
		X:       p.X,
		Y:       p.Y,
		Angle:   p.Angle,
		Weapon:  w,
		PingMs:  p.PingMs,
	}, true
}

// targetView 合作模式下不开友军伤害，只有敌人是目标
func (r *Room) targetView(coop bool) []Target {
	view := make([]Target, 0, len(r.order)+len(r.enemies))
	if !coop {
		for _, id := range r.order {
			p := r.players[id]
			view = append(view, Target{Ref: playerRef(id), X: p.X, Y: p.Y, Radius: world.PlayerRadius, Alive: p.Alive})
		}
	}
	for _, e := range r.enemies {
		view = append(view, Target{Ref: enemyRef(e.ID), X: e.X, Y: e.Y, Radius: e.Radius, Alive: e.Alive})
	}
	return view
}

// positions 本 Tick 结束时的存活实体位置（写入历史）
func (r *Room) positions() map[EntityRef]Position {
	out := make(map[EntityRef]Position, len(r.players)+len(r.enemies))
	for id, p := range r.players {
		if p.Alive {
			out[playerRef(id)] = Position{X: p.X, Y: p.Y}
		}
	}
	for _, e := range r.enemies {
		if e.Alive {
			out[enemyRef(e.ID)] = Position{X: e.X, Y: e.Y}
		}
	}
	return out
}

// fire 高延迟射手先回溯目标视图再判定；回溯只作用于视图副本
func (r *Room) fire(s Shot, view []Target, now time.Time) {
	shooter := r.players[s.Shooter.Player]
	if shooter == nil {
		return
	}
	r.metrics.IncShots()
	var (
		hit Target
		ok  bool
	)
	resolve := func(ts []Target) { hit, _, ok = ResolveShot(r.arena, s, ts) }
	if s.PingMs > r.cfg.LagCompThresholdMs {
		if r.history.Rewind(rewindTime(now, s.PingMs), s.Shooter, view, resolve) {
			r.metrics.IncRewinds()
		}
	} else {
		resolve(view)
	}
	if !ok {
		return
	}
	// 同一 Tick 内目标可能已被前一发击杀，只有实际造成伤害才确认命中
	dmg := s.Weapon.Damage
	switch hit.Ref.Kind {
	case KindPlayer:
		victim := r.players[hit.Ref.Player]
		if victim == nil || !victim.Alive {
			return
		}
		r.confirmHit(shooter)
		r.damagePlayer(victim, dmg, s.Shooter, shooter.Name, now)
	case KindEnemy:
		e := r.enemyByID(hit.Ref.Enemy)
		if e == nil || !e.Alive {
			return
		}
		r.confirmHit(shooter)
		r.damageEnemy(e, dmg, shooter)
	}
}

func (r *Room) confirmHit(shooter *Player) {
	r.metrics.IncHits()
	r.send(shooter, protocol.ShotHit{})
}

// damagePlayer 生命值夹在 [0,max]；归零是唯一的死亡入口，每条命只触发一次
func (r *Room) damagePlayer(victim *Player, dmg int, by EntityRef, byName string, now time.Time) bool {
	if !victim.Alive || dmg <= 0 {
		return false
	}
	victim.Health = max(0, victim.Health-dmg)
	r.send(victim, protocol.Hit{Damage: dmg, AttackerName: byName})
	if victim.Health > 0 {
		return false
	}
	victim.Alive = false
	victim.DiedAt = now
	victim.Deaths++
	victim.ShootRequested = false

	killerID := by.String()
	if by.Kind == KindPlayer {
		killerID = string(by.Player)
		if killer := r.players[by.Player]; killer != nil && killer != victim {
			killer.Kills++
			killer.Gold += goldPerFrag
		}
	}
	r.broadcast(protocol.Kill{
		KillerID:   killerID,
		KillerName: byName,
		VictimID:   string(victim.ID),
		VictimName: victim.Name,
	})
	r.log.Infof("kill: %s -> %s", byName, victim.Name)
	return true
}

func (r *Room) damageEnemy(e *Enemy, dmg int, shooter *Player) bool {
	if !e.Alive || dmg <= 0 {
		return false
	}
	e.Health = max(0, e.Health-dmg)
	e.Hurt = enemyHurtFlash
	if e.State == EnemyIdle {
		e.State = EnemyChase
	}
	if e.Health > 0 {
		return false
	}
	e.Alive = false
	shooter.Kills++
	if e.Boss {
		shooter.Gold += goldPerBoss
	} else {
		shooter.Gold += goldPerEnemy
	}
	r.broadcast(protocol.EnemyKilled{ID: e.ID, KillerName: shooter.Name, X: e.X, Y: e.Y, Boss: e.Boss})
	return true
}

// doorOccupied 门格子上有存活实体（按包围盒四角判断）
func (r *Room) doorOccupied(k world.TileKey) bool {
	for _, p := range r.players {
		if p.Alive && touchesTile(p.X, p.Y, world.PlayerRadius, k) {
			return true
		}
	}
	for _, e := range r.enemies {
		if e.Alive && touchesTile(e.X, e.Y, e.Radius, k) {
			return true
		}
	}
	return false
}

func touchesTile(x, y, radius float64, k world.TileKey) bool {
	return world.Occupies(x, y, k) ||
		world.TileOf(x-radius, y-radius) == k || world.TileOf(x+radius, y-radius) == k ||
		world.TileOf(x-radius, y+radius) == k || world.TileOf(x+radius, y+radius) == k
}

// replicate 每个接收者一份增量
func (r *Room) replicate(now time.Time) {
	f := r.frame(now)
	for _, id := range r.order {
		p := r.players[id]
		if !r.sendVolatile(p, r.repl.Build(id, f)) {
			continue
		}
		// 被覆盖的帧里的增量已经记入缓存：立即改发全量帧替换它
		r.repl.ForceFull(id)
		r.sendVolatile(p, r.repl.Build(id, f))
	}
}

func (r *Room) frame(now time.Time) *Frame {
	f := &Frame{
		Tick:       r.tickSeq,
		Time:       now.UnixMilli(),
		Players:    make([]*Player, 0, len(r.order)),
		Doors:      doorStates(r.arena.Doors.Snapshot()),
		DMGameOver: r.dmOver,
	}
	for _, id := range r.order {
		f.Players = append(f.Players, r.players[id])
	}
	if r.mode == protocol.ModeCooperative {
		f.Coop = &CoopFrame{
			Enemies:      r.enemies,
			Pickups:      r.pickups,
			Wave:         r.waves.Wave,
			BetweenWaves: r.waves.BetweenWaves(),
			Countdown:    r.waves.Countdown,
			GameOver:     r.waves.GameOver,
		}
	} else {
		f.KillLimit = r.cfg.KillLimit
	}
	return f
}

func doorStates(snap []world.DoorSnapshot) []protocol.DoorState {
	out := make([]protocol.DoorState, 0, len(snap))
	for _, d := range snap {
		out = append(out, protocol.DoorState{Key: d.Key.String(), State: d.State.String(), Progress: d.Progress})
	}
	return out
}
