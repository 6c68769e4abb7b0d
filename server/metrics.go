package server

import (
	"sync/atomic"
)

// RoomMetrics 记录房间运行期的关键指标（用于监控与调试）
type RoomMetrics struct {
	TickCount          int64 // 统计的 Tick 次数
	TotalTickNs        int64 // Tick 累计耗时（纳秒）
	CommandsAccepted   int64 // 进入收件箱的命令数
	CommandsDropped    int64 // 因收件箱满被丢弃的命令数
	Shots              int64
	Hits               int64
	Rewinds            int64 // 触发延迟补偿的射击数
	StatesSent         int64 // 发出的 gameState 帧
	VolatileSuperseded int64 // 未写出就被新帧覆盖的可丢弃帧
	EntityFaults       int64 // 单实体更新中被恢复的 panic
	SlowConsumers      int64 // 可靠队列溢出被断开的连接
}

func (m *RoomMetrics) IncAccepted()           { atomic.AddInt64(&m.CommandsAccepted, 1) }
func (m *RoomMetrics) IncDropped()            { atomic.AddInt64(&m.CommandsDropped, 1) }
func (m *RoomMetrics) IncShots()              { atomic.AddInt64(&m.Shots, 1) }
func (m *RoomMetrics) IncHits()               { atomic.AddInt64(&m.Hits, 1) }
func (m *RoomMetrics) IncRewinds()            { atomic.AddInt64(&m.Rewinds, 1) }
func (m *RoomMetrics) IncStatesSent()         { atomic.AddInt64(&m.StatesSent, 1) }
func (m *RoomMetrics) IncVolatileSuperseded() { atomic.AddInt64(&m.VolatileSuperseded, 1) }
func (m *RoomMetrics) IncEntityFaults()       { atomic.AddInt64(&m.EntityFaults, 1) }
func (m *RoomMetrics) IncSlowConsumers()      { atomic.AddInt64(&m.SlowConsumers, 1) }
func (m *RoomMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *RoomMetrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":          tick,
		"avg_tick_ms":         avgMs,
		"commands_accepted":   atomic.LoadInt64(&m.CommandsAccepted),
		"commands_dropped":    atomic.LoadInt64(&m.CommandsDropped),
		"shots":               atomic.LoadInt64(&m.Shots),
		"hits":                atomic.LoadInt64(&m.Hits),
		"rewinds":             atomic.LoadInt64(&m.Rewinds),
		"states_sent":         atomic.LoadInt64(&m.StatesSent),
		"volatile_superseded": atomic.LoadInt64(&m.VolatileSuperseded),
		"entity_faults":       atomic.LoadInt64(&m.EntityFaults),
		"slow_consumers":      atomic.LoadInt64(&m.SlowConsumers),
	}
}
