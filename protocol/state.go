package protocol

import "math"

// GameState 每 tick 发给单个接收者的复制载荷（可丢弃）
// 指针字段为 nil 表示"自上次发送以来未变化"
type GameState struct {
	Full    int                    `json:"f,omitempty" msgpack:"f,omitempty"`
	Tick    uint64                 `json:"tick" msgpack:"tick"`
	Time    int64                  `json:"t" msgpack:"t"`
	Players map[string]PlayerDelta `json:"p" msgpack:"p"`
	Removed []string               `json:"r,omitempty" msgpack:"r,omitempty"`
	Coop    *CoopState             `json:"coop,omitempty" msgpack:"coop,omitempty"`
	Doors   []DoorState            `json:"doors" msgpack:"doors"`

	KillLimit  int  `json:"killLimit,omitempty" msgpack:"killLimit,omitempty"`
	DMGameOver bool `json:"dmGameOver,omitempty" msgpack:"dmGameOver,omitempty"`
}

// PlayerDelta 本地玩家只带权威校正字段，其他玩家带变化字段或全量字段
type PlayerDelta struct {
	X      *float64 `json:"x,omitempty" msgpack:"x,omitempty"`
	Y      *float64 `json:"y,omitempty" msgpack:"y,omitempty"`
	Angle  *float64 `json:"a,omitempty" msgpack:"a,omitempty"`
	Health *int     `json:"h,omitempty" msgpack:"h,omitempty"`
	Alive  *bool    `json:"al,omitempty" msgpack:"al,omitempty"`
	Name   *string  `json:"n,omitempty" msgpack:"n,omitempty"`
	Color  *string  `json:"c,omitempty" msgpack:"c,omitempty"`
	Kills  *int     `json:"k,omitempty" msgpack:"k,omitempty"`
	Deaths *int     `json:"d,omitempty" msgpack:"d,omitempty"`
	Gold   *int     `json:"g,omitempty" msgpack:"g,omitempty"`
	Weapon *string  `json:"w,omitempty" msgpack:"w,omitempty"`
}

// Empty 没有任何字段变化
func (d PlayerDelta) Empty() bool {
	return d.X == nil && d.Y == nil && d.Angle == nil && d.Health == nil && d.Alive == nil &&
		d.Name == nil && d.Color == nil && d.Kills == nil && d.Deaths == nil && d.Gold == nil && d.Weapon == nil
}

// CoopState 合作模式附加字段；ef=1 时客户端可回收列表外的敌人
type CoopState struct {
	Enemies        []EnemyDelta  `json:"enemies" msgpack:"enemies"`
	EnemiesFull    int           `json:"ef,omitempty" msgpack:"ef,omitempty"`
	RemovedEnemies []int         `json:"re,omitempty" msgpack:"re,omitempty"`
	Pickups        []PickupState `json:"pickups" msgpack:"pickups"`
	Wave           int           `json:"wave" msgpack:"wave"`
	BetweenWaves   bool          `json:"betweenWaves" msgpack:"betweenWaves"`
	Countdown      float64       `json:"countdown" msgpack:"countdown"`
	GameOver       bool          `json:"gameOver,omitempty" msgpack:"gameOver,omitempty"`
}

type EnemyDelta struct {
	ID        int      `json:"id" msgpack:"id"`
	X         *float64 `json:"x,omitempty" msgpack:"x,omitempty"`
	Y         *float64 `json:"y,omitempty" msgpack:"y,omitempty"`
	Health    *int     `json:"health,omitempty" msgpack:"health,omitempty"`
	MaxHealth *int     `json:"maxHealth,omitempty" msgpack:"maxHealth,omitempty"`
	Alive     *bool    `json:"alive,omitempty" msgpack:"alive,omitempty"`
	Hurt      *bool    `json:"hurt,omitempty" msgpack:"hurt,omitempty"`
	Boss      *bool    `json:"boss,omitempty" msgpack:"boss,omitempty"`
	State     *string  `json:"state,omitempty" msgpack:"state,omitempty"`
}

type PickupState struct {
	ID   int     `json:"id" msgpack:"id"`
	X    float64 `json:"x" msgpack:"x"`
	Y    float64 `json:"y" msgpack:"y"`
	Kind string  `json:"kind" msgpack:"kind"`
}

// DoorState 非 closed 的门：k 为 "x,y"
type DoorState struct {
	Key      string  `json:"k" msgpack:"k"`
	State    string  `json:"s" msgpack:"s"`
	Progress float64 `json:"p" msgpack:"p"`
}

// Quantize 位置/角度保留两位小数，同时用于比较与传输
func Quantize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}

// Ptr 取地址的小工具，构造增量字段用
func Ptr[T any](v T) *T { return &v }
