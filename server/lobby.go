package server

import (
	"math"
	"time"

	"wolfarena/protocol"
	"wolfarena/world"
)

// 出生点与玩家保持的最小距离
const spawnClearance = 6.0

func (r *Room) lobbyUpdate() protocol.LobbyUpdate {
	players := make([]protocol.LobbyPlayer, 0, len(r.order))
	for _, id := range r.order {
		players = append(players, r.players[id].lobbyEntry(r.host))
	}
	return protocol.LobbyUpdate{HostID: string(r.host), Mode: r.mode, State: r.phase, Players: players}
}

func (r *Room) broadcastLobby() {
	if len(r.players) == 0 {
		return
	}
	r.broadcast(r.lobbyUpdate())
}

func validMode(mode string) bool {
	return mode == protocol.ModeDeathmatch || mode == protocol.ModeCooperative
}

func (r *Room) selectMode(by PlayerID, mode string) {
	if by != r.host || r.phase != protocol.PhaseWaiting || !validMode(mode) || mode == r.mode {
		return
	}
	r.mode = mode
	r.broadcastLobby()
	r.log.Infof("mode selected: %s", mode)
}

// startGame 仅房主可在大厅中开局
func (r *Room) startGame(by PlayerID) {
	if by != r.host || r.phase != protocol.PhaseWaiting {
		return
	}
	r.clearMatch()
	r.phase = protocol.PhasePlaying
	for _, id := range r.order {
		p := r.players[id]
		p.resetStats()
		r.spawn(p)
	}
	r.broadcast(protocol.GameStart{Mode: r.mode})
	r.broadcastLobby()
	r.log.Infof("game started: mode=%s players=%d", r.mode, len(r.players))
}

// clearMatch 清空对局状态（波次、敌人、医疗包、历史、复制缓存）
func (r *Room) clearMatch() {
	r.waves.Reset()
	r.enemies = r.enemies[:0]
	r.clearPickups()
	r.history.Clear()
	r.repl.Reset()
	r.endAt = time.Time{}
	r.dmOver = false
}

// returnToLobby 宽限期结束：回到等待状态，战绩与位置全部复原
func (r *Room) returnToLobby() {
	r.clearMatch()
	r.phase = protocol.PhaseWaiting
	for _, id := range r.order {
		p := r.players[id]
		p.resetStats()
		r.spawn(p)
	}
	r.broadcast(protocol.ReturnToLobby{})
	r.broadcastLobby()
	r.log.Infof("returned to lobby")
}

// resetSession 最后一个玩家离开
func (r *Room) resetSession() {
	r.clearMatch()
	r.phase = protocol.PhaseWaiting
	r.host = ""
}

func (r *Room) matchFrozen() bool { return !r.endAt.IsZero() }

// checkMatchEnd 死斗达到击杀上限，或合作模式全员阵亡
func (r *Room) checkMatchEnd(now time.Time) {
	if r.matchFrozen() || len(r.players) == 0 {
		return
	}
	switch r.mode {
	case protocol.ModeDeathmatch:
		for _, id := range r.order {
			p := r.players[id]
			if p.Kills < r.cfg.KillLimit {
				continue
			}
			r.dmOver = true
			r.endAt = now.Add(seconds(r.cfg.GameOverGrace))
			r.broadcast(protocol.GameEnd{
				Mode:       r.mode,
				WinnerID:   string(p.ID),
				WinnerName: p.Name,
				Scores:     r.scores(),
				KillLimit:  r.cfg.KillLimit,
			})
			r.log.Infof("deathmatch won by %s (%d kills)", p.Name, p.Kills)
			return
		}
	case protocol.ModeCooperative:
		for _, p := range r.players {
			if p.Alive {
				return
			}
		}
		r.waves.GameOver = true
		r.endAt = now.Add(seconds(r.cfg.GameOverGrace))
		r.broadcast(protocol.CoopGameOver{Wave: r.waves.Wave})
		r.broadcast(protocol.GameEnd{Mode: r.mode, Wave: r.waves.Wave, Scores: r.scores()})
		r.log.Infof("coop game over at wave %d", r.waves.Wave)
	}
}

// startWave 生成一波敌人与医疗包
func (r *Room) startWave(wave int) {
	r.enemies = r.enemies[:0]
	r.clearPickups()

	st := WaveStats(wave)
	for i := 0; i < st.Count; i++ {
		r.nextEnemyID++
		r.enemies = append(r.enemies, newEnemy(r.nextEnemyID, r.enemySpawnPoint(), st, false))
	}
	boss := IsBossWave(wave)
	if boss {
		r.nextEnemyID++
		r.enemies = append(r.enemies, newEnemy(r.nextEnemyID, r.enemySpawnPoint(), BossStats(wave), true))
	}
	for i := 0; i < PickupCount(st.Count); i++ {
		r.nextPickup++
		pt := r.freePoint()
		pk := &Pickup{ID: r.nextPickup, X: pt.X, Y: pt.Y, Kind: pickupHealth, Active: true}
		r.field.add(pk)
		r.pickups = append(r.pickups, pk)
	}
	r.broadcast(protocol.WaveStart{Wave: wave, EnemyCount: len(r.enemies), Boss: boss})
	r.log.Infof("wave %d started: enemies=%d boss=%v", wave, len(r.enemies), boss)
}

// enemySpawnPoint 优先远离存活玩家的敌人出生点，其次任意远离玩家的空地
func (r *Room) enemySpawnPoint() world.Point {
	g := r.arena.Grid
	if pts := r.clearOfPlayers(g.EnemySpawns); len(pts) > 0 {
		return pts[r.rng.Intn(len(pts))]
	}
	if pts := r.clearOfPlayers(g.FreeTiles()); len(pts) > 0 {
		return pts[r.rng.Intn(len(pts))]
	}
	if len(g.EnemySpawns) > 0 {
		return g.EnemySpawns[r.rng.Intn(len(g.EnemySpawns))]
	}
	return r.freePoint()
}

func (r *Room) clearOfPlayers(pts []world.Point) []world.Point {
	out := make([]world.Point, 0, len(pts))
	for _, pt := range pts {
		ok := true
		for _, p := range r.players {
			if p.Alive && math.Hypot(p.X-pt.X, p.Y-pt.Y) < spawnClearance {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, pt)
		}
	}
	return out
}

func (r *Room) freePoint() world.Point {
	free := r.arena.Grid.FreeTiles()
	if len(free) == 0 {
		return r.arena.Grid.PlayerSpawns[0]
	}
	return free[r.rng.Intn(len(free))]
}
