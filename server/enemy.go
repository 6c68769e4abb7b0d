package server

import (
	"math"
	"time"

	"wolfarena/world"
)

// 敌人 AI 参数
const (
	enemySight       = 16.0
	enemyAttackRange = 8.0
	enemyLeashSlack  = 2.0 // 超出攻击距离这么多才退回追击
	enemyHurtFlash   = 0.15
	minHitChance     = 0.3
)

type EnemyState uint8

const (
	EnemyIdle EnemyState = iota
	EnemyChase
	EnemyAttack
)

func (s EnemyState) String() string {
	switch s {
	case EnemyChase:
		return "chase"
	case EnemyAttack:
		return "attack"
	default:
		return "idle"
	}
}

// Enemy 合作模式敌人；死亡后保留到本波结束
type Enemy struct {
	ID                int
	X, Y              float64
	Health, MaxHealth int
	Speed             float64
	Damage            int
	Alive             bool
	Hurt              float64
	AttackTimer       float64
	AttackCooldown    float64
	Radius            float64
	State             EnemyState
	Boss              bool
}

func newEnemy(id int, pt world.Point, st EnemyStats, boss bool) *Enemy {
	return &Enemy{
		ID:             id,
		X:              pt.X,
		Y:              pt.Y,
		Health:         st.Health,
		MaxHealth:      st.Health,
		Speed:          st.Speed,
		Damage:         st.Damage,
		Alive:          true,
		AttackTimer:    st.Cooldown,
		AttackCooldown: st.Cooldown,
		Radius:         st.Radius,
		Boss:           boss,
	}
}

// nearestPlayer 最近的存活玩家（按加入顺序遍历，距离相同取先加入者）
func (r *Room) nearestPlayer(x, y float64) (*Player, float64) {
	var (
		best     *Player
		bestDist = math.Inf(1)
	)
	for _, id := range r.order {
		p := r.players[id]
		if p == nil || !p.Alive {
			continue
		}
		if d := math.Hypot(p.X-x, p.Y-y); d < bestDist {
			best, bestDist = p, d
		}
	}
	return best, bestDist
}

// updateEnemy idle -> chase -> attack 状态机
func (r *Room) updateEnemy(e *Enemy, dt float64, now time.Time) {
	if !e.Alive {
		return
	}
	if e.Hurt > 0 {
		e.Hurt = math.Max(0, e.Hurt-dt)
	}
	target, dist := r.nearestPlayer(e.X, e.Y)
	if target == nil {
		e.State = EnemyIdle
		return
	}
	los := r.arena.HasLineOfSight(e.X, e.Y, target.X, target.Y)

	switch e.State {
	case EnemyIdle:
		if dist <= enemySight && los {
			e.State = EnemyChase
		}
	case EnemyChase:
		if dist <= enemyAttackRange && los {
			e.State = EnemyAttack
			break
		}
		e.X, e.Y = world.StepToward(r.arena, e.X, e.Y, target.X, target.Y, e.Speed, e.Radius, dt)
	case EnemyAttack:
		if dist > enemyAttackRange+enemyLeashSlack || !los {
			e.State = EnemyChase
			break
		}
		// 边打边靠近，半速
		e.X, e.Y = world.StepToward(r.arena, e.X, e.Y, target.X, target.Y, e.Speed*0.5, e.Radius, dt)
		e.AttackTimer -= dt
		if e.AttackTimer <= 0 {
			e.AttackTimer = e.AttackCooldown
			chance := math.Max(minHitChance, 1-dist/enemyAttackRange)
			if r.rng.Float64() < chance {
				r.damagePlayer(target, e.Damage, enemyRef(e.ID), e.displayName(), now)
			}
		}
	}
}

func (e *Enemy) displayName() string {
	if e.Boss {
		return "Boss"
	}
	return "Enemy"
}

func (r *Room) aliveEnemies() int {
	n := 0
	for _, e := range r.enemies {
		if e.Alive {
			n++
		}
	}
	return n
}
