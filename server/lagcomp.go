package server

import (
	"math"
	"time"
)

// Position 历史中的一个坐标
type Position struct {
	X, Y float64
}

// HistoryEntry 某一 Tick 结束时所有实体的位置
type HistoryEntry struct {
	At        time.Time
	Positions map[EntityRef]Position
}

// History 固定容量的环形缓冲，只用于回溯命中判定
type History struct {
	entries []HistoryEntry
	next    int
	size    int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 1
	}
	return &History{entries: make([]HistoryEntry, capacity)}
}

func (h *History) Len() int { return h.size }

// Record 写入一帧，满了覆盖最旧的
func (h *History) Record(at time.Time, positions map[EntityRef]Position) {
	h.entries[h.next] = HistoryEntry{At: at, Positions: positions}
	h.next = (h.next + 1) % len(h.entries)
	if h.size < len(h.entries) {
		h.size++
	}
}

// Closest 返回时间戳最接近 at 的一帧
func (h *History) Closest(at time.Time) (HistoryEntry, bool) {
	if h.size == 0 {
		return HistoryEntry{}, false
	}
	var (
		best     HistoryEntry
		bestDiff = time.Duration(math.MaxInt64)
	)
	for i := 0; i < h.size; i++ {
		e := h.entries[i]
		d := e.At.Sub(at)
		if d < 0 {
			d = -d
		}
		if d < bestDiff {
			best, bestDiff = e, d
		}
	}
	return best, true
}

// Clear 回到大厅或重开时丢弃历史
func (h *History) Clear() {
	for i := range h.entries {
		h.entries[i] = HistoryEntry{}
	}
	h.next, h.size = 0, 0
}

// Rewind 把目标视图中除射手外的实体替换为历史位置，执行 fn 后无条件还原
// fn 内 panic 也会先还原再向上传播
func (h *History) Rewind(at time.Time, shooter EntityRef, targets []Target, fn func([]Target)) bool {
	entry, ok := h.Closest(at)
	if !ok {
		fn(targets)
		return false
	}
	saved := make([]Position, len(targets))
	for i := range targets {
		saved[i] = Position{X: targets[i].X, Y: targets[i].Y}
	}
	defer func() {
		for i := range targets {
			targets[i].X, targets[i].Y = saved[i].X, saved[i].Y
		}
	}()
	for i := range targets {
		if targets[i].Ref == shooter {
			continue
		}
		if pos, ok := entry.Positions[targets[i].Ref]; ok {
			targets[i].X, targets[i].Y = pos.X, pos.Y
		}
	}
	fn(targets)
	return true
}

// rewindTime 射手看到的世界时间 = 现在 - 单程延迟
func rewindTime(now time.Time, pingMs float64) time.Time {
	return now.Add(-time.Duration(pingMs / 2 * float64(time.Millisecond)))
}
