package world

import (
	"fmt"
	"io/fs"
	"sort"

	"github.com/lafriks/go-tiled"
)

// TMX 图层/对象组命名约定
const (
	tmxWallLayer   = "walls"
	tmxPlayerSpawn = "PlayerSpawn"
	tmxEnemySpawn  = "EnemySpawn"
)

var kindByName = map[string]TileKind{
	"stone":       TileStone,
	"brick":       TileBrick,
	"wood":        TileWood,
	"metal":       TileMetal,
	"door":        TileDoor,
	"secret_door": TileSecretDoor,
}

// LoadTMX 从 Tiled 地图读取墙体、门与出生点
// 墙体图层中每个非空格子读取 tileset 属性 "kind"，缺省为石墙
// 对象坐标为像素，按格子尺寸换算成地图单位
func LoadTMX(fsys fs.FS, path string) (*Grid, error) {
	m, err := tiled.LoadFile(path, tiled.WithFileSystem(fsys))
	if err != nil {
		return nil, fmt.Errorf("load TMX %s: %w", path, err)
	}
	if m.Width <= 0 || m.Height <= 0 || m.TileWidth <= 0 || m.TileHeight <= 0 {
		return nil, fmt.Errorf("load TMX %s: %w", path, ErrMapSize)
	}

	rows := make([][]TileKind, m.Height)
	for y := range rows {
		rows[y] = make([]TileKind, m.Width)
	}
	for _, layer := range m.Layers {
		if layer.Name != tmxWallLayer {
			continue
		}
		if len(layer.Tiles) < m.Width*m.Height {
			return nil, fmt.Errorf("load TMX %s: %w", path, ErrMapSize)
		}
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				tile := layer.Tiles[y*m.Width+x]
				if tile.IsNil() {
					continue
				}
				kind := TileStone
				if tile.Tileset != nil {
					if tt, err := tile.Tileset.GetTilesetTile(tile.ID); err == nil {
						if k, ok := kindByName[tt.Properties.GetString("kind")]; ok {
							kind = k
						}
					}
				}
				rows[y][x] = kind
			}
		}
		break
	}

	tw, th := float64(m.TileWidth), float64(m.TileHeight)
	var players, enemies []Point
	for _, og := range m.ObjectGroups {
		var dst *[]Point
		switch og.Name {
		case tmxPlayerSpawn:
			dst = &players
		case tmxEnemySpawn:
			dst = &enemies
		default:
			continue
		}
		for _, o := range og.Objects {
			*dst = append(*dst, Point{X: o.X / tw, Y: o.Y / th})
		}
	}
	// 保证出生点顺序稳定
	sortPoints(players)
	sortPoints(enemies)

	g, err := NewGrid(rows, players, enemies)
	if err != nil {
		return nil, fmt.Errorf("load TMX %s: %w", path, err)
	}
	return g, nil
}

func sortPoints(ps []Point) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].X != ps[j].X {
			return ps[i].X < ps[j].X
		}
		return ps[i].Y < ps[j].Y
	})
}
