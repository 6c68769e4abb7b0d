package world

// 内置 30x30 竞技场：四角房间通过门连接中央大厅
// 0 空地, 1 石墙, 2 砖墙, 3 木墙, 4 金属墙, 5 门, 6 暗门
var defaultLayout = [30]string{
	"111111111111111111111111111111",
	"100002100000000000000001300001",
	"100000200000000000000003000001",
	"100000600000000000000003000001",
	"100002100000000000000001300001",
	"122022100000000000000001330331",
	"111511100000001010000001115111",
	"100000000000000000000000000001",
	"100000000000000000000000000001",
	"100000000300000000003000000001",
	"100000000000000000000000000001",
	"100000000000000000000000000001",
	"100000000000020004000000000001",
	"100000000000000000000000000001",
	"110001100000000000000001100011",
	"100000100000000000000001000001",
	"110001100000000000000001100011",
	"100000000000000000000000000001",
	"100000000000020004000000000001",
	"100000000000000000000000000001",
	"100000000000000000000000000001",
	"100000000300000000003000000001",
	"100000000000000000000000000001",
	"100000000000000000000000000001",
	"111511100000001010000001115111",
	"133033100000000000000001220221",
	"100003100000000000000001200001",
	"100000300000000000000006000001",
	"100000100000000000000001000001",
	"111111111111111111111111111111",
}

var defaultPlayerSpawns = []Point{
	{X: 3.5, Y: 3.5}, {X: 26.5, Y: 3.5}, {X: 3.5, Y: 27.5}, {X: 26.5, Y: 27.5},
	{X: 15.0, Y: 10.5}, {X: 15.0, Y: 19.5}, {X: 8.5, Y: 15.5}, {X: 21.5, Y: 15.5},
}

var defaultEnemySpawns = []Point{
	{X: 26.5, Y: 2.5}, {X: 15.0, Y: 8.5}, {X: 10.5, Y: 15.0}, {X: 20.5, Y: 15.0},
	{X: 15.0, Y: 13.0}, {X: 15.0, Y: 17.5}, {X: 2.5, Y: 27.5}, {X: 27.5, Y: 27.5},
}

// DefaultGrid 返回内置地图的一份新副本
func DefaultGrid() *Grid {
	rows := make([][]TileKind, len(defaultLayout))
	for y, line := range defaultLayout {
		row := make([]TileKind, len(line))
		for x, c := range line {
			row[x] = TileKind(c - '0')
		}
		rows[y] = row
	}
	g, err := NewGrid(rows, defaultPlayerSpawns, defaultEnemySpawns)
	if err != nil {
		// 内置数据固定，不会失败
		panic(err)
	}
	return g
}
