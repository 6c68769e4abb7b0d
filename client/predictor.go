package client

import (
	"math"

	"wolfarena/protocol"
	"wolfarena/world"
)

// 校正参数：超过 SnapDistance 直接瞬移（出生/复活），小于 DeadZone 忽略
const (
	SnapDistance = 1.0
	BlendFactor  = 0.15
	DeadZone     = 0.01
)

// Predictor 本地玩家预测：输入立即生效，服务端位置只用于校正
// 生命值与存活状态从不预测，始终照搬服务端
type Predictor struct {
	X, Y   float64
	Angle  float64
	Health int
	Alive  bool

	q            world.SpatialQuery
	corrX, corrY float64 // 尚未吸收的校正量
	synced       bool
}

func NewPredictor(q world.SpatialQuery) *Predictor {
	return &Predictor{q: q, Health: 100}
}

// Synced 是否已收到过至少一次服务端位置
func (p *Predictor) Synced() bool { return p.synced }

// Step 每个渲染帧调用一次，dt 为帧间隔（秒）
func (p *Predictor) Step(in world.Intent, dt float64) {
	p.Angle = world.NormalizeAngle(in.Angle)
	if !p.Alive {
		return
	}
	p.X, p.Y = world.Step(p.q, p.X, p.Y, in, world.PlayerSpeed, world.PlayerRadius, dt)

	// 每帧吸收剩余校正量的一部分
	if p.corrX != 0 || p.corrY != 0 {
		dx, dy := p.corrX*BlendFactor, p.corrY*BlendFactor
		p.X += dx
		p.Y += dy
		p.corrX -= dx
		p.corrY -= dy
		if math.Hypot(p.corrX, p.corrY) < DeadZone {
			p.corrX, p.corrY = 0, 0
		}
	}
}

// Reconcile 处理 gameState 中本地玩家的校正字段
func (p *Predictor) Reconcile(d protocol.PlayerDelta) {
	if d.Health != nil {
		p.Health = *d.Health
	}
	if d.Alive != nil {
		p.Alive = *d.Alive
	}
	if d.X == nil || d.Y == nil {
		return
	}
	sx, sy := *d.X, *d.Y
	if !p.synced {
		p.Snap(sx, sy)
		return
	}
	dx, dy := sx-p.X, sy-p.Y
	switch dist := math.Hypot(dx, dy); {
	case dist > SnapDistance:
		p.Snap(sx, sy)
	case dist > DeadZone:
		p.corrX, p.corrY = dx, dy
	default:
		p.corrX, p.corrY = 0, 0
	}
}

// Snap 立即采用服务端位置并丢弃未完成的校正
func (p *Predictor) Snap(x, y float64) {
	p.X, p.Y = x, y
	p.corrX, p.corrY = 0, 0
	p.synced = true
}

// Unsync 新一局或回到大厅：下一次校正直接瞬移
func (p *Predictor) Unsync() {
	p.synced = false
	p.corrX, p.corrY = 0, 0
}

// Pending 剩余未吸收的校正距离
func (p *Predictor) Pending() float64 { return math.Hypot(p.corrX, p.corrY) }
