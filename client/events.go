package client

import (
	"sync/atomic"

	"wolfarena/protocol"
)

// EventQueue 可靠事件的缓冲队列：读协程写入，渲染协程每帧 Poll
// 满了丢弃新事件并计数，读协程永不阻塞
type EventQueue struct {
	ch      chan protocol.Event
	dropped atomic.Int64
}

func NewEventQueue(size int) *EventQueue {
	if size <= 0 {
		size = 256
	}
	return &EventQueue{ch: make(chan protocol.Event, size)}
}

// Push 非阻塞写入
func (q *EventQueue) Push(ev protocol.Event) bool {
	select {
	case q.ch <- ev:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Poll 取出当前所有事件，保持到达顺序
func (q *EventQueue) Poll() []protocol.Event {
	var out []protocol.Event
	for {
		select {
		case ev := <-q.ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

// C 需要阻塞等待事件时使用
func (q *EventQueue) C() <-chan protocol.Event { return q.ch }

func (q *EventQueue) Dropped() int64 { return q.dropped.Load() }
