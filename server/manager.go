package server

import (
	"sort"

	"github.com/sasha-s/go-deadlock"

	"wolfarena/world"
)

// RoomManager 管理多个房间的生命周期；每个房间有独立的门状态，地图数据共享只读
type RoomManager struct {
	mu    deadlock.RWMutex
	rooms map[string]*Room
	cfg   GameConfig
	grid  *world.Grid
}

func NewRoomManager(cfg GameConfig, grid *world.Grid) *RoomManager {
	if grid == nil {
		grid = world.DefaultGrid()
	}
	return &RoomManager{rooms: make(map[string]*Room), cfg: cfg, grid: grid}
}

// GetOrCreateRoom 获取或创建房间，并确保开始 Tick
func (m *RoomManager) GetOrCreateRoom(id string) *Room {
	m.mu.RLock()
	r, ok := m.rooms[id]
	m.mu.RUnlock()
	if ok {
		return r
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok = m.rooms[id]; !ok {
		r = NewRoom(id, m.cfg, WithGrid(m.grid))
		m.rooms[id] = r
		r.StartTicker()
		Log.Infof("room created: %s", id)
	}
	return r
}

// Room 只查不建
func (m *RoomManager) Room(id string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

// IDs 按名称排序的房间列表
func (m *RoomManager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close 停止所有房间的 Tick
func (m *RoomManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.rooms {
		r.Stop()
		delete(m.rooms, id)
	}
}
