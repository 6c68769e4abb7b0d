package server

import (
	"strings"
	"time"
	"unicode/utf8"

	"wolfarena/protocol"
	"wolfarena/world"
)

// PlayerID 表示玩家唯一标识（连接建立时分配的 uuid）
type PlayerID string

const (
	PlayerMaxHealth = 100
	maxNameRunes    = 15
	maxChatRunes    = 100
	defaultName     = "Player"
)

// 玩家颜色按加入顺序轮流分配
var playerColors = []string{
	"#ff4444", "#4488ff", "#44cc44", "#ffcc00",
	"#cc44ff", "#44cccc", "#ff8844", "#88ff44",
}

// Player 房间内的玩家实体（服务端权威状态）
type Player struct {
	ID    PlayerID
	Name  string
	Color string

	X, Y   float64
	Angle  float64
	Health int
	Alive  bool
	DiedAt time.Time

	Kills, Deaths int
	Gold          int
	Owned         map[string]bool
	Weapon        string

	Intent         world.Intent // 下一次 Tick 生效的移动意图
	ShootRequested bool
	Cooldown       float64
	PingMs         float64

	joinSeq uint64
	conn    Conn
	codec   protocol.Codec
}

func newPlayer(id PlayerID, name, color string, conn Conn, codec protocol.Codec) *Player {
	return &Player{
		ID:     id,
		Name:   sanitizeName(name),
		Color:  color,
		Health: PlayerMaxHealth,
		Owned:  map[string]bool{protocol.WeaponPistol: true},
		Weapon: protocol.WeaponPistol,
		conn:   conn,
		codec:  codec,
	}
}

// resetStats 新一局开始或回到大厅时清零战绩与武器
func (p *Player) resetStats() {
	p.Kills, p.Deaths, p.Gold = 0, 0, 0
	p.Owned = map[string]bool{protocol.WeaponPistol: true}
	p.Weapon = protocol.WeaponPistol
	p.Cooldown = 0
	p.ShootRequested = false
	p.Intent = world.Intent{Angle: p.Angle}
}

// spawnAt 满血复活在给定出生点
func (p *Player) spawnAt(pt world.Point, angle float64) {
	p.X, p.Y = pt.X, pt.Y
	p.Angle = angle
	p.Intent = world.Intent{Angle: angle}
	p.Health = PlayerMaxHealth
	p.Alive = true
	p.Cooldown = 0
	p.ShootRequested = false
}

func (p *Player) lobbyEntry(host PlayerID) protocol.LobbyPlayer {
	return protocol.LobbyPlayer{ID: string(p.ID), Name: p.Name, Color: p.Color, IsHost: p.ID == host}
}

func (p *Player) score() protocol.Score {
	return protocol.Score{ID: string(p.ID), Name: p.Name, Color: p.Color, Kills: p.Kills, Deaths: p.Deaths}
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return defaultName
	}
	return truncateRunes(name, maxNameRunes)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
