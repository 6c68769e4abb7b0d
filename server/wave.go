package server

import "math"

// 波次数值上限
const (
	maxWaveEnemies = 24
	maxEnemyHealth = 150
	maxEnemySpeed  = 3.0
	maxEnemyDamage = 20
	bossEvery      = 5
	bossRadius     = 0.5
	bossCooldown   = 0.8
	enemyRadius    = 0.3
	enemyCooldown  = 1.5
)

// EnemyStats 一波敌人的属性
type EnemyStats struct {
	Count    int
	Health   int
	Speed    float64
	Damage   int
	Cooldown float64
	Radius   float64
}

// WaveStats 普通敌人：数量线性增长，血量/速度/伤害递增并封顶
func WaveStats(wave int) EnemyStats {
	if wave < 1 {
		wave = 1
	}
	n := wave - 1
	return EnemyStats{
		Count:    min(3+2*n, maxWaveEnemies),
		Health:   min(50+10*n, maxEnemyHealth),
		Speed:    math.Min(1.8+0.1*float64(n), maxEnemySpeed),
		Damage:   min(8+n, maxEnemyDamage),
		Cooldown: enemyCooldown,
		Radius:   enemyRadius,
	}
}

// BossStats 每第 5 波额外出现一个 Boss
func BossStats(wave int) EnemyStats {
	base := WaveStats(wave)
	return EnemyStats{
		Count:    1,
		Health:   base.Health * 5,
		Speed:    base.Speed,
		Damage:   base.Damage * 2,
		Cooldown: bossCooldown,
		Radius:   bossRadius,
	}
}

func IsBossWave(wave int) bool { return wave > 0 && wave%bossEvery == 0 }

// PickupCount 每三个敌人一个医疗包，至少一个
func PickupCount(enemies int) int {
	return max(1, enemies/3)
}

// WavePhase 波次状态机：倒计时 / 进行中
type WavePhase uint8

const (
	WaveCountdown WavePhase = iota
	WaveActive
)

func (p WavePhase) String() string {
	if p == WaveActive {
		return "active"
	}
	return "countdown"
}

// WaveDirector 合作模式的波次节奏，只负责计时与编号，生成敌人由房间完成
type WaveDirector struct {
	Wave      int
	Phase     WavePhase
	Countdown float64
	GameOver  bool

	interval   float64
	firstDelay float64
}

func NewWaveDirector(interval, firstDelay float64) *WaveDirector {
	w := &WaveDirector{interval: interval, firstDelay: firstDelay}
	w.Reset()
	return w
}

// Reset 新一局：第一波使用较短的开场延迟
func (w *WaveDirector) Reset() {
	w.Wave = 0
	w.Phase = WaveCountdown
	w.Countdown = w.firstDelay
	w.GameOver = false
}

func (w *WaveDirector) SetInterval(interval float64) { w.interval = interval }

// Update 推进一个 Tick；返回值大于 0 表示该编号的波次此刻开始
func (w *WaveDirector) Update(dt float64, aliveEnemies int) int {
	if w.GameOver {
		return 0
	}
	switch w.Phase {
	case WaveCountdown:
		w.Countdown -= dt
		if w.Countdown <= 0 {
			w.Countdown = 0
			w.Wave++
			w.Phase = WaveActive
			return w.Wave
		}
	case WaveActive:
		if aliveEnemies == 0 {
			w.Phase = WaveCountdown
			w.Countdown = w.interval
		}
	}
	return 0
}

// BetweenWaves 是否处于倒计时
func (w *WaveDirector) BetweenWaves() bool { return w.Phase == WaveCountdown }
