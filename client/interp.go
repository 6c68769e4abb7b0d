package client

import (
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Track 远端实体的显示位置：每次收到新目标就从当前显示位置缓动过去
// 远端实体从不预测，只插值
type Track struct {
	X, Y  float64
	Angle float64

	targetX, targetY float64
	targetAngle      float64
	tx, ty           *gween.Tween
	ready, angleSet  bool
}

// Retarget 设置新的服务端目标；duration 约为一个 Tick 间隔
// 首次出现或跳变超过 SnapDistance（复活）时直接到位
func (t *Track) Retarget(x, y float64, duration float64) {
	if !t.ready || math.Hypot(x-t.X, y-t.Y) > SnapDistance {
		t.Snap(x, y)
		return
	}
	if x == t.targetX && y == t.targetY {
		return
	}
	t.targetX, t.targetY = x, y
	d := float32(duration)
	t.tx = gween.New(float32(t.X), float32(x), d, ease.InOutQuad)
	t.ty = gween.New(float32(t.Y), float32(y), d, ease.InOutQuad)
}

// SetAngle 朝向按最短弧插值
func (t *Track) SetAngle(a float64) {
	if !t.angleSet {
		t.Angle = a
		t.angleSet = true
	}
	t.targetAngle = a
}

// Snap 跳过插值
func (t *Track) Snap(x, y float64) {
	t.X, t.Y = x, y
	t.targetX, t.targetY = x, y
	t.tx, t.ty = nil, nil
	t.ready = true
}

// Advance 渲染帧推进；可以在两次快照之间被调用任意多次
func (t *Track) Advance(dt float64) {
	if t.tx != nil {
		x, doneX := t.tx.Update(float32(dt))
		y, doneY := t.ty.Update(float32(dt))
		t.X, t.Y = float64(x), float64(y)
		if doneX && doneY {
			// float32 缓动结束后落到精确目标
			t.X, t.Y = t.targetX, t.targetY
			t.tx, t.ty = nil, nil
		}
	}
	diff := math.Remainder(t.targetAngle-t.Angle, 2*math.Pi)
	t.Angle = math.Remainder(t.Angle+diff*math.Min(1, dt*10), 2*math.Pi)
}

// Target 最近一次服务端目标
func (t *Track) Target() (float64, float64) { return t.targetX, t.targetY }

// Settled 已到达目标
func (t *Track) Settled() bool { return t.tx == nil }
