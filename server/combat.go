package server

import (
	"math"
	"strconv"

	"wolfarena/world"
)

// 命中容差 = atan2(半径+hitSlack, 距离) + aimSlack + 武器 Spread
const (
	hitSlack = 0.15 // 目标半径之外的额外宽容
	aimSlack = 0.03 // 所有武器共有的固定角度宽容（弧度）
)

type EntityKind uint8

const (
	KindPlayer EntityKind = iota
	KindEnemy
)

// EntityRef 跨玩家/敌人的统一实体键，可作 map 键
type EntityRef struct {
	Kind   EntityKind
	Player PlayerID
	Enemy  int
}

func playerRef(id PlayerID) EntityRef { return EntityRef{Kind: KindPlayer, Player: id} }
func enemyRef(id int) EntityRef       { return EntityRef{Kind: KindEnemy, Enemy: id} }

func (r EntityRef) String() string {
	if r.Kind == KindEnemy {
		return "enemy:" + strconv.Itoa(r.Enemy)
	}
	return "player:" + string(r.Player)
}

// Target 命中判定用的目标视图（位置在 Tick 开始时冻结）
type Target struct {
	Ref    EntityRef
	X, Y   float64
	Radius float64
	Alive  bool
}

// Shot 一次射击请求
type Shot struct {
	Shooter EntityRef
	X, Y    float64
	Angle   float64
	Weapon  Weapon
	PingMs  float64
}

// ResolveShot 在所有满足角度容差且视线无遮挡的候选中取最近者
// 距离相同时保留视图中靠前的目标，结果与调用顺序无关
func ResolveShot(q world.SpatialQuery, s Shot, targets []Target) (Target, float64, bool) {
	var (
		best     Target
		bestDist = math.Inf(1)
		found    bool
	)
	for _, t := range targets {
		if t.Ref == s.Shooter || !t.Alive {
			continue
		}
		dx, dy := t.X-s.X, t.Y-s.Y
		dist := math.Hypot(dx, dy)
		diff := world.NormalizeAngle(math.Atan2(dy, dx) - s.Angle)
		tolerance := ShotTolerance(t.Radius, dist, s.Weapon)
		if math.Abs(diff) >= tolerance {
			continue
		}
		if dist >= bestDist {
			continue
		}
		if !q.HasLineOfSight(s.X, s.Y, t.X, t.Y) {
			continue
		}
		best, bestDist, found = t, dist, true
	}
	return best, bestDist, found
}

// ShotTolerance 目标在距离 dist 处允许的最大角度偏差
func ShotTolerance(radius, dist float64, w Weapon) float64 {
	return math.Atan2(radius+hitSlack, dist) + aimSlack + w.Spread
}
