package world

import (
	"errors"
	"math"
)

// TileKind 地图格子类型（替代 0-6 的数字编码）
type TileKind uint8

const (
	TileEmpty TileKind = iota
	TileStone
	TileBrick
	TileWood
	TileMetal
	TileDoor       // 可见的门
	TileSecretDoor // 伪装成墙的暗门
)

// TileInfo 格子行为表：是否阻挡、是否为门、纹理类别
type TileInfo struct {
	Solid    bool
	Door     bool
	Texture  string
	Interact bool
}

var tileTable = map[TileKind]TileInfo{
	TileEmpty:      {Texture: ""},
	TileStone:      {Solid: true, Texture: "stone"},
	TileBrick:      {Solid: true, Texture: "brick"},
	TileWood:       {Solid: true, Texture: "wood"},
	TileMetal:      {Solid: true, Texture: "metal"},
	TileDoor:       {Solid: true, Door: true, Texture: "door", Interact: true},
	TileSecretDoor: {Solid: true, Door: true, Texture: "disguised", Interact: true},
}

// Info 查询格子行为；未知类型按石墙处理
func (k TileKind) Info() TileInfo {
	if info, ok := tileTable[k]; ok {
		return info
	}
	return tileTable[TileStone]
}

func (k TileKind) String() string {
	switch k {
	case TileEmpty:
		return "empty"
	case TileDoor:
		return "door"
	case TileSecretDoor:
		return "secret_door"
	default:
		return k.Info().Texture
	}
}

var (
	ErrMapSize  = errors.New("world: map rows do not match declared size")
	ErrNoSpawns = errors.New("world: map has no spawn points")
)

// TileKey 门/格子的整数坐标键
type TileKey struct {
	X, Y int
}

// TileOf 连续坐标所在的格子
func TileOf(x, y float64) TileKey {
	return TileKey{X: int(math.Floor(x)), Y: int(math.Floor(y))}
}

// Point 连续地图坐标
type Point struct {
	X, Y float64
}

// Grid 静态地图数据（行优先）
type Grid struct {
	Width, Height int
	Tiles         []TileKind
	PlayerSpawns  []Point
	EnemySpawns   []Point
}

// NewGrid 由二维数组构造地图
func NewGrid(rows [][]TileKind, playerSpawns, enemySpawns []Point) (*Grid, error) {
	if len(rows) == 0 {
		return nil, ErrMapSize
	}
	w := len(rows[0])
	g := &Grid{Width: w, Height: len(rows), Tiles: make([]TileKind, 0, w*len(rows))}
	for _, row := range rows {
		if len(row) != w {
			return nil, ErrMapSize
		}
		g.Tiles = append(g.Tiles, row...)
	}
	if len(playerSpawns) == 0 {
		return nil, ErrNoSpawns
	}
	g.PlayerSpawns = append([]Point(nil), playerSpawns...)
	g.EnemySpawns = append([]Point(nil), enemySpawns...)
	return g, nil
}

// InBounds 判断格子是否在地图内
func (g *Grid) InBounds(k TileKey) bool {
	return k.X >= 0 && k.X < g.Width && k.Y >= 0 && k.Y < g.Height
}

// At 越界按石墙处理
func (g *Grid) At(k TileKey) TileKind {
	if !g.InBounds(k) {
		return TileStone
	}
	return g.Tiles[k.Y*g.Width+k.X]
}

// FreeTiles 列出所有空地格子的中心点
func (g *Grid) FreeTiles() []Point {
	out := make([]Point, 0, len(g.Tiles)/2)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			if g.Tiles[y*g.Width+x] == TileEmpty {
				out = append(out, Point{X: float64(x) + 0.5, Y: float64(y) + 0.5})
			}
		}
	}
	return out
}
