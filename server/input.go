package server

import (
	"fmt"
	"math"
	"strings"
	"time"

	"wolfarena/protocol"
	"wolfarena/world"
)

// command 网络协程只负责把意图放进收件箱，真正的修改在下一次 Tick 开始时执行
type command interface {
	apply(r *Room, now time.Time)
}

type joinCmd struct {
	id    PlayerID
	name  string
	conn  Conn
	codec protocol.Codec
}

type leaveCmd struct{ id PlayerID }

type inputCmd struct {
	id  PlayerID
	msg protocol.Input
}

type shootCmd struct{ id PlayerID }

type interactCmd struct {
	id  PlayerID
	msg protocol.Interact
}

type chatCmd struct {
	id  PlayerID
	msg string
}

type selectModeCmd struct {
	id   PlayerID
	mode string
}

type startGameCmd struct{ id PlayerID }

type reportPingCmd struct {
	id   PlayerID
	ping float64
}

type buyCmd struct {
	id     PlayerID
	weapon string
}

type configCmd struct{ patch configPatch }

func (c joinCmd) apply(r *Room, _ time.Time)  { r.addPlayer(c.id, c.name, c.conn, c.codec) }
func (c leaveCmd) apply(r *Room, _ time.Time) { r.removePlayer(c.id) }

func (c inputCmd) apply(r *Room, _ time.Time) {
	p := r.players[c.id]
	if p == nil || !p.Alive {
		return
	}
	// 缺省朝向按 0 处理
	angle := 0.0
	if c.msg.Angle != nil {
		angle = world.NormalizeAngle(*c.msg.Angle)
	}
	p.Intent = world.Intent{
		Forward:  c.msg.Forward,
		Backward: c.msg.Backward,
		Left:     c.msg.Left,
		Right:    c.msg.Right,
		Angle:    angle,
	}
	p.selectWeapon(c.msg.Weapon)
}

func (c shootCmd) apply(r *Room, _ time.Time) {
	if p := r.players[c.id]; p != nil && p.Alive {
		p.ShootRequested = true
	}
}

// 开门用服务端位置，只采用客户端的朝向
func (c interactCmd) apply(r *Room, _ time.Time) {
	p := r.players[c.id]
	if p == nil || !p.Alive {
		return
	}
	k, ok := r.arena.Doors.FindInteractable(p.X, p.Y, world.NormalizeAngle(c.msg.Angle))
	if !ok || !r.arena.Doors.Open(k) {
		return
	}
	r.broadcast(protocol.DoorOpened{Key: k.String()})
}

func (c chatCmd) apply(r *Room, _ time.Time) {
	p := r.players[c.id]
	if p == nil {
		return
	}
	msg := truncateRunes(strings.TrimSpace(c.msg), maxChatRunes)
	if msg == "" {
		return
	}
	r.broadcast(protocol.ChatMessage{Name: p.Name, Message: msg, Color: p.Color})
}

func (c selectModeCmd) apply(r *Room, _ time.Time) { r.selectMode(c.id, c.mode) }
func (c startGameCmd) apply(r *Room, _ time.Time)  { r.startGame(c.id) }

func (c reportPingCmd) apply(r *Room, _ time.Time) {
	if p := r.players[c.id]; p != nil {
		p.PingMs = clampPing(c.ping)
	}
}

func (c buyCmd) apply(r *Room, _ time.Time) {
	p := r.players[c.id]
	if p == nil {
		return
	}
	if p.buy(c.weapon) {
		r.log.Infof("%s bought %s (gold left %d)", p.Name, c.weapon, p.Gold)
	}
}

func (c configCmd) apply(r *Room, _ time.Time) {
	r.cfg = c.patch.applyTo(r.cfg)
	r.arena.Doors.SetConfig(r.cfg.DoorConfig())
	r.waves.SetInterval(r.cfg.WaveCountdown)
	r.repl.SetEvery(r.cfg.FullSnapshotEvery)
	r.log.Infof("config updated: killLimit=%d lagComp=%.0fms fullEvery=%d doors=[%.2f,%.2f]",
		r.cfg.KillLimit, r.cfg.LagCompThresholdMs, r.cfg.FullSnapshotEvery, r.cfg.DoorOpenSpeed, r.cfg.DoorCloseSpeed)
}

func clampPing(ms float64) float64 {
	if math.IsNaN(ms) || ms < 0 {
		return 0
	}
	return math.Min(ms, 1000)
}

// enqueue 不阻塞：收件箱满时丢弃，保证网络协程不拖慢 Tick
func (r *Room) enqueue(c command) bool {
	select {
	case r.inbox <- c:
		r.metrics.IncAccepted()
		return true
	default:
		r.metrics.IncDropped()
		return false
	}
}

// drainInbox 只处理进入本 Tick 时已在队列中的命令
func (r *Room) drainInbox(now time.Time) {
	n := len(r.inbox)
	for i := 0; i < n; i++ {
		c := <-r.inbox
		c.apply(r, now)
	}
}

// Join 连接建立后收到 join 消息时调用
func (r *Room) Join(id PlayerID, name string, conn Conn, codec protocol.Codec) bool {
	return r.enqueue(joinCmd{id: id, name: name, conn: conn, codec: codec})
}

// RequestLeave 请求在 Tick 线程中移除玩家；阻塞写入保证移除一定生效，房间停止后直接返回
func (r *Room) RequestLeave(id PlayerID) {
	select {
	case r.inbox <- leaveCmd{id: id}:
	case <-r.done:
	}
}

// UpdateConfig 管理接口的热更新，同样在 Tick 边界生效
func (r *Room) UpdateConfig(p configPatch) bool {
	return r.enqueue(configCmd{patch: p})
}

// HandleMessage 解码一条客户端消息并转为命令；ping 直接回 pong，不经过 Tick
func (r *Room) HandleMessage(id PlayerID, conn Conn, codec protocol.Codec, frame []byte) error {
	env, err := protocol.DecodeEnvelope(codec, frame)
	if err != nil {
		return err
	}
	var c command
	switch env.T {
	case protocol.MsgJoin:
		m, err := protocol.DecodePayload[protocol.Join](codec, env)
		if err != nil {
			return fmt.Errorf("decode %s: %w", env.T, err)
		}
		if !r.Join(id, m.Name, conn, codec) {
			conn.Close()
		}
		return nil
	case protocol.MsgInput:
		m, err := protocol.DecodePayload[protocol.Input](codec, env)
		if err != nil {
			return fmt.Errorf("decode %s: %w", env.T, err)
		}
		c = inputCmd{id: id, msg: m}
	case protocol.MsgShoot:
		c = shootCmd{id: id}
	case protocol.MsgInteract:
		m, err := protocol.DecodePayload[protocol.Interact](codec, env)
		if err != nil {
			return fmt.Errorf("decode %s: %w", env.T, err)
		}
		c = interactCmd{id: id, msg: m}
	case protocol.MsgChat:
		m, err := protocol.DecodePayload[protocol.Chat](codec, env)
		if err != nil {
			return fmt.Errorf("decode %s: %w", env.T, err)
		}
		c = chatCmd{id: id, msg: m.Message}
	case protocol.MsgSelectMode:
		m, err := protocol.DecodePayload[protocol.SelectMode](codec, env)
		if err != nil {
			return fmt.Errorf("decode %s: %w", env.T, err)
		}
		c = selectModeCmd{id: id, mode: m.Mode}
	case protocol.MsgStartGame:
		c = startGameCmd{id: id}
	case protocol.MsgReportPing:
		m, err := protocol.DecodePayload[protocol.ReportPing](codec, env)
		if err != nil {
			return fmt.Errorf("decode %s: %w", env.T, err)
		}
		c = reportPingCmd{id: id, ping: m.Ping}
	case protocol.MsgBuy:
		m, err := protocol.DecodePayload[protocol.Buy](codec, env)
		if err != nil {
			return fmt.Errorf("decode %s: %w", env.T, err)
		}
		c = buyCmd{id: id, weapon: m.Weapon}
	case protocol.MsgPing:
		m, err := protocol.DecodePayload[protocol.Ping](codec, env)
		if err != nil {
			return fmt.Errorf("decode %s: %w", env.T, err)
		}
		b, err := protocol.EncodeEvent(codec, protocol.Pong{Time: m.Time})
		if err != nil {
			return err
		}
		conn.Send(b)
		return nil
	default:
		return fmt.Errorf("unknown message %q", env.T)
	}
	r.enqueue(c)
	return nil
}
