package world

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// DoorState 门的四态状态机
type DoorState uint8

const (
	DoorClosed DoorState = iota
	DoorOpening
	DoorOpen
	DoorClosing
)

func (s DoorState) String() string {
	switch s {
	case DoorOpening:
		return "opening"
	case DoorOpen:
		return "open"
	case DoorClosing:
		return "closing"
	default:
		return "closed"
	}
}

// ParseDoorState 未知字符串按 closed 处理
func ParseDoorState(s string) DoorState {
	switch s {
	case "opening":
		return DoorOpening
	case "open":
		return DoorOpen
	case "closing":
		return DoorClosing
	default:
		return DoorClosed
	}
}

func (k TileKey) String() string {
	return strconv.Itoa(k.X) + "," + strconv.Itoa(k.Y)
}

// ParseTileKey 解析 "x,y" 形式的键
func ParseTileKey(s string) (TileKey, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return TileKey{}, fmt.Errorf("tile key %q: missing comma", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return TileKey{}, fmt.Errorf("tile key %q: %w", s, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return TileKey{}, fmt.Errorf("tile key %q: %w", s, err)
	}
	return TileKey{X: x, Y: y}, nil
}

// DoorConfig 门动画参数（开/关速度独立可调）
type DoorConfig struct {
	OpenSpeed   float64 // 每秒进度
	CloseSpeed  float64
	AutoClose   float64 // open 保持秒数
	RetryDelay  float64 // 被占用时重试间隔
	PassableAt  float64 // 进度超过此值可通行
	ReachRanges []float64
}

func DefaultDoorConfig() DoorConfig {
	return DoorConfig{
		OpenSpeed:   2.0,
		CloseSpeed:  1.5,
		AutoClose:   5.0,
		RetryDelay:  1.0,
		PassableAt:  0.8,
		ReachRanges: []float64{1.0, 1.8},
	}
}

// Door 单个门的状态，只能由 Doors 修改
type Door struct {
	Key      TileKey
	Kind     TileKind
	State    DoorState
	Progress float64
	timer    float64
}

// DoorSnapshot 网络同步用的门状态
type DoorSnapshot struct {
	Key      TileKey
	State    DoorState
	Progress float64
}

// Doors 门注册表：门结构体数组 + 坐标索引
type Doors struct {
	cfg   DoorConfig
	doors []Door
	index map[TileKey]int
}

// NewDoors 扫描地图登记所有门格子
func NewDoors(g *Grid, cfg DoorConfig) *Doors {
	d := &Doors{cfg: cfg, index: make(map[TileKey]int)}
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			k := TileKey{X: x, Y: y}
			kind := g.At(k)
			if !kind.Info().Door {
				continue
			}
			d.index[k] = len(d.doors)
			d.doors = append(d.doors, Door{Key: k, Kind: kind})
		}
	}
	return d
}

func (d *Doors) Config() DoorConfig { return d.cfg }

// SetConfig 热更新速度参数，不影响当前进度
func (d *Doors) SetConfig(cfg DoorConfig) { d.cfg = cfg }

func (d *Doors) Len() int { return len(d.doors) }

// Door 返回副本，调用方无法直接改字段
func (d *Doors) Door(k TileKey) (Door, bool) {
	i, ok := d.index[k]
	if !ok {
		return Door{}, false
	}
	return d.doors[i], true
}

// Open closed/closing -> opening；其他状态返回 false
func (d *Doors) Open(k TileKey) bool {
	i, ok := d.index[k]
	if !ok {
		return false
	}
	door := &d.doors[i]
	if door.State != DoorClosed && door.State != DoorClosing {
		return false
	}
	door.State = DoorOpening
	door.timer = 0
	return true
}

// Update 以固定步长推进所有门的动画
// occupied 判断门格子上是否有实体，占用时只重新计时不取消关门
func (d *Doors) Update(dt float64, occupied func(TileKey) bool) {
	for i := range d.doors {
		door := &d.doors[i]
		switch door.State {
		case DoorOpening:
			door.Progress += d.cfg.OpenSpeed * dt
			if door.Progress >= 1.0 {
				door.Progress = 1.0
				door.State = DoorOpen
				door.timer = d.cfg.AutoClose
			}
		case DoorOpen:
			door.timer -= dt
			if door.timer <= 0 {
				if occupied != nil && occupied(door.Key) {
					door.timer = d.cfg.RetryDelay
				} else {
					door.State = DoorClosing
				}
			}
		case DoorClosing:
			door.Progress -= d.cfg.CloseSpeed * dt
			if door.Progress <= 0 {
				door.Progress = 0
				door.State = DoorClosed
			}
		}
	}
}

// IsPassable 进度超过阈值才可通行（与离散状态无关）
func (d *Doors) IsPassable(k TileKey) bool {
	i, ok := d.index[k]
	if !ok {
		return false
	}
	return d.doors[i].Progress > d.cfg.PassableAt
}

// IsFullyOpen 进度达到 1.0
func (d *Doors) IsFullyOpen(k TileKey) bool {
	i, ok := d.index[k]
	if !ok {
		return false
	}
	return d.doors[i].Progress >= 1.0
}

// Snapshot 只列出非 closed 的门，closed 由缺省表示
func (d *Doors) Snapshot() []DoorSnapshot {
	out := make([]DoorSnapshot, 0, 4)
	for _, door := range d.doors {
		if door.State == DoorClosed {
			continue
		}
		out = append(out, DoorSnapshot{
			Key:      door.Key,
			State:    door.State,
			Progress: math.Round(door.Progress*100) / 100,
		})
	}
	return out
}

// ApplySnapshot 客户端全量同步：先全部视为 closed，再套用列表
func (d *Doors) ApplySnapshot(list []DoorSnapshot) {
	for i := range d.doors {
		d.doors[i].State = DoorClosed
		d.doors[i].Progress = 0
		d.doors[i].timer = 0
	}
	for _, s := range list {
		i, ok := d.index[s.Key]
		if !ok {
			continue
		}
		d.doors[i].State = s.State
		d.doors[i].Progress = clamp01(s.Progress)
	}
}

// FindInteractable 沿朝向按探测距离依次查找最近的可交互门
func (d *Doors) FindInteractable(x, y, angle float64) (TileKey, bool) {
	reaches := append([]float64(nil), d.cfg.ReachRanges...)
	sort.Float64s(reaches)
	for _, r := range reaches {
		k := TileOf(x+math.Cos(angle)*r, y+math.Sin(angle)*r)
		if _, ok := d.index[k]; ok {
			return k, true
		}
	}
	return TileKey{}, false
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
