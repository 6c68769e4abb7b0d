package world

import "math"

// 服务端与客户端预测共用的移动常量，两端必须一致
const (
	PlayerSpeed  = 3.5 // 单位/秒
	PlayerRadius = 0.2
)

// Intent 移动意图（WASD + 朝向）
type Intent struct {
	Forward, Backward, Left, Right bool
	Angle                          float64
}

// Direction 意图转单位向量，斜向移动不会更快
func (in Intent) Direction() (float64, float64) {
	dirX, dirY := math.Cos(in.Angle), math.Sin(in.Angle)
	var mx, my float64
	if in.Forward {
		mx += dirX
		my += dirY
	}
	if in.Backward {
		mx -= dirX
		my -= dirY
	}
	if in.Left {
		mx += dirY
		my -= dirX
	}
	if in.Right {
		mx -= dirY
		my += dirX
	}
	l := math.Hypot(mx, my)
	if l == 0 {
		return 0, 0
	}
	return mx / l, my / l
}

// Move 按轴分离的碰撞检测，贴墙时沿墙滑动而不是停住
func Move(q SpatialQuery, x, y, dx, dy, r float64) (float64, float64) {
	if nx := x + dx; !blocked(q, nx, y, r) {
		x = nx
	}
	if ny := y + dy; !blocked(q, x, ny, r) {
		y = ny
	}
	return x, y
}

// Step 一帧的意图移动
func Step(q SpatialQuery, x, y float64, in Intent, speed, r, dt float64) (float64, float64) {
	mx, my := in.Direction()
	if mx == 0 && my == 0 {
		return x, y
	}
	return Move(q, x, y, mx*speed*dt, my*speed*dt, r)
}

// StepToward 朝目标点移动（敌人 AI 用），距离过近时不动
func StepToward(q SpatialQuery, x, y, tx, ty, speed, r, dt float64) (float64, float64) {
	dx, dy := tx-x, ty-y
	d := math.Hypot(dx, dy)
	if d < 0.5 {
		return x, y
	}
	s := speed * dt
	return Move(q, x, y, dx/d*s, dy/d*s, r)
}

func blocked(q SpatialQuery, x, y, r float64) bool {
	return q.IsWall(x+r, y+r) || q.IsWall(x+r, y-r) ||
		q.IsWall(x-r, y+r) || q.IsWall(x-r, y-r)
}

// NormalizeAngle 归一化到 [-π, π]
func NormalizeAngle(a float64) float64 {
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return 0
	}
	a = math.Mod(a, 2*math.Pi)
	if a > math.Pi {
		a -= 2 * math.Pi
	} else if a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
