package client

import (
	"wolfarena/protocol"
	"wolfarena/world"
)

// Game 客户端的本地世界：预测 + 镜像 + 事件
// Deliver 由网络读协程调用，其余方法只在渲染协程中调用
type Game struct {
	Arena     *world.Arena
	Predictor *Predictor
	Mirror    *Mirror
	Events    *EventQueue

	ID    string
	Color string
	Mode  string
	Phase string
	Lobby protocol.LobbyUpdate

	states chan protocol.GameState // 容量 1，只保留最新一帧
}

// NewGame grid 必须与服务端地图一致
func NewGame(grid *world.Grid, tickRate int) *Game {
	arena := world.NewArena(grid, world.DefaultDoorConfig())
	return &Game{
		Arena:     arena,
		Predictor: NewPredictor(arena),
		Mirror:    NewMirror(arena.Doors, tickRate),
		Events:    NewEventQueue(256),
		Mode:      protocol.ModeDeathmatch,
		Phase:     protocol.PhaseWaiting,
		states:    make(chan protocol.GameState, 1),
	}
}

// Deliver gameState 覆盖旧帧，其余事件按序排队
func (g *Game) Deliver(ev protocol.Event) {
	gs, ok := ev.(protocol.GameState)
	if !ok {
		g.Events.Push(ev)
		return
	}
	select {
	case <-g.states:
	default:
	}
	select {
	case g.states <- gs:
	default:
	}
}

// Frame 每个渲染帧调用：处理事件 → 合并最新快照 → 本地预测 → 远端插值
// 返回本帧取出的事件，供界面显示
func (g *Game) Frame(dt float64, in world.Intent) []protocol.Event {
	evs := g.Events.Poll()
	for _, ev := range evs {
		g.handle(ev)
	}
	select {
	case gs := <-g.states:
		g.applyState(gs)
	default:
	}
	if g.Phase == protocol.PhasePlaying {
		g.Predictor.Step(in, dt)
	}
	g.Mirror.Advance(dt)
	return evs
}

func (g *Game) handle(ev protocol.Event) {
	switch v := ev.(type) {
	case protocol.Welcome:
		g.ID, g.Color = v.ID, v.Color
		g.Mirror.SetLocal(v.ID)
	case protocol.LobbyUpdate:
		g.Lobby = v
		g.Mode, g.Phase = v.Mode, v.State
	case protocol.GameStart:
		g.Mode, g.Phase = v.Mode, protocol.PhasePlaying
		g.Mirror.Reset()
		g.Predictor.Unsync()
	case protocol.ReturnToLobby:
		g.Phase = protocol.PhaseWaiting
		g.Mirror.Reset()
		g.Predictor.Unsync()
		// 丢弃上一局残留的快照
		select {
		case <-g.states:
		default:
		}
	}
}

func (g *Game) applyState(gs protocol.GameState) {
	local, ok := g.Mirror.Apply(gs)
	if ok {
		g.Predictor.Reconcile(local)
	}
}

// IsHost 当前大厅的房主是否是自己
func (g *Game) IsHost() bool { return g.ID != "" && g.Lobby.HostID == g.ID }

// Local 本地玩家：位置与朝向来自预测，其余字段来自服务端
func (g *Game) Local() PlayerView {
	v, _ := g.Mirror.Player(g.ID)
	v.ID = g.ID
	v.X, v.Y, v.Angle = g.Predictor.X, g.Predictor.Y, g.Predictor.Angle
	v.Health, v.Alive = g.Predictor.Health, g.Predictor.Alive
	return v
}
