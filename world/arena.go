package world

import "math"

// SpatialQuery 移动与战斗模块消费的只读空间查询
type SpatialQuery interface {
	IsWall(x, y float64) bool
	HasLineOfSight(fromX, fromY, toX, toY float64) bool
}

// Arena 地图 + 门注册表，回答"是否是墙"与"是否可见"
type Arena struct {
	Grid  *Grid
	Doors *Doors
}

func NewArena(g *Grid, cfg DoorConfig) *Arena {
	return &Arena{Grid: g, Doors: NewDoors(g, cfg)}
}

// IsWall 门格子按开启进度判断，而不是离散状态
func (a *Arena) IsWall(x, y float64) bool {
	k := TileOf(x, y)
	kind := a.Grid.At(k)
	info := kind.Info()
	if info.Door && a.Grid.InBounds(k) {
		return !a.Doors.IsPassable(k)
	}
	return info.Solid
}

// HasLineOfSight 沿线段每 1/3 格采样一次
func (a *Arena) HasLineOfSight(fromX, fromY, toX, toY float64) bool {
	return lineOfSight(a, fromX, fromY, toX, toY)
}

func lineOfSight(q interface{ IsWall(x, y float64) bool }, fromX, fromY, toX, toY float64) bool {
	dx := toX - fromX
	dy := toY - fromY
	dist := math.Hypot(dx, dy)
	if dist < 0.5 {
		return true
	}
	steps := int(math.Ceil(dist * 3))
	for i := 1; i < steps; i++ {
		t := float64(i) / float64(steps)
		if q.IsWall(fromX+dx*t, fromY+dy*t) {
			return false
		}
	}
	return true
}

// Occupies 圆形实体是否站在指定格子上（按中心点）
func Occupies(x, y float64, k TileKey) bool {
	return TileOf(x, y) == k
}
