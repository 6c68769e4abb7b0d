package server

import (
	"math"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"wolfarena/protocol"
	"wolfarena/world"
)

// Conn 房间向单个客户端发送数据的出口
// Send 为可靠有序通道，队列满返回 false；SendVolatile 只保留最新一帧
type Conn interface {
	Send(frame []byte) bool
	SendVolatile(frame []byte) (superseded bool)
	Close()
}

// RoomStatus Tick 结束时发布的只读快照，供 HTTP 协程读取
type RoomStatus struct {
	Tick    uint64     `json:"tick"`
	Phase   string     `json:"phase"`
	Mode    string     `json:"mode"`
	Host    string     `json:"host"`
	Players int        `json:"players"`
	Wave    int        `json:"wave"`
	Config  GameConfig `json:"config"`
}

// Room 一个独立的对局：实体集合、大厅、波次、门、历史与复制缓存都挂在这里
// 除 inbox 外所有字段只在 Tick 协程中读写
type Room struct {
	ID string

	cfg     GameConfig
	arena   *world.Arena
	log     *zap.SugaredLogger
	metrics *RoomMetrics
	now     func() time.Time
	rng     *rand.Rand

	inbox chan command
	done  chan struct{}

	players  map[PlayerID]*Player
	order    []PlayerID // 加入顺序，保证稳定遍历
	joinSeq  uint64
	colorIdx int

	host  PlayerID
	mode  string
	phase string

	waves       *WaveDirector
	enemies     []*Enemy
	nextEnemyID int
	pickups     []*Pickup
	nextPickup  int
	field       *pickupField

	history *History
	repl    *Replicator

	tickSeq uint64
	endAt   time.Time // 对局结束后的回大厅时间
	dmOver  bool
	kicked  []PlayerID

	status        atomic.Pointer[RoomStatus]
	tickerStarted atomic.Bool
	stopOnce      sync.Once
}

// RoomOption 测试与自定义地图用
type RoomOption func(*Room)

func WithClock(now func() time.Time) RoomOption { return func(r *Room) { r.now = now } }
func WithRand(rng *rand.Rand) RoomOption        { return func(r *Room) { r.rng = rng } }
func WithGrid(g *world.Grid) RoomOption {
	return func(r *Room) { r.arena = world.NewArena(g, r.cfg.DoorConfig()) }
}

// NewRoom 创建房间，初始化数据结构
func NewRoom(id string, cfg GameConfig, opts ...RoomOption) *Room {
	cfg.Validate()
	r := &Room{
		ID:      id,
		cfg:     cfg,
		metrics: &RoomMetrics{},
		now:     time.Now,
		inbox:   make(chan command, cfg.InboxSize), // 足够缓冲，避免网络读阻塞影响 Tick
		done:    make(chan struct{}),
		players: make(map[PlayerID]*Player),
		mode:    protocol.ModeDeathmatch,
		phase:   protocol.PhaseWaiting,
		history: NewHistory(cfg.HistorySize),
		repl:    NewReplicator(cfg.FullSnapshotEvery),
		waves:   NewWaveDirector(cfg.WaveCountdown, cfg.FirstWaveDelay),
	}
	for _, o := range opts {
		o(r)
	}
	if r.arena == nil {
		r.arena = world.NewArena(world.DefaultGrid(), cfg.DoorConfig())
	}
	if r.rng == nil {
		r.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	r.field = newPickupField(r.arena.Grid.Width, r.arena.Grid.Height)
	r.log = Log.Named("room").With("room", id)
	r.publishStatus()
	return r
}

func (r *Room) Metrics() *RoomMetrics { return r.metrics }

// Status 最近一次 Tick 结束时的状态
func (r *Room) Status() RoomStatus { return *r.status.Load() }

func (r *Room) publishStatus() {
	st := &RoomStatus{
		Tick:    r.tickSeq,
		Phase:   r.phase,
		Mode:    r.mode,
		Host:    string(r.host),
		Players: len(r.players),
		Wave:    r.waves.Wave,
		Config:  r.cfg,
	}
	r.status.Store(st)
}

func (r *Room) dt() float64 { return 1.0 / float64(r.cfg.TickRate) }

func seconds(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }

// ---- 加入 / 离开 ----

func (r *Room) addPlayer(id PlayerID, name string, conn Conn, codec protocol.Codec) {
	if _, ok := r.players[id]; ok {
		return
	}
	if len(r.players) >= r.cfg.MaxPlayers {
		r.log.Infof("room full, rejecting %s", id)
		conn.Close()
		return
	}
	color := playerColors[r.colorIdx%len(playerColors)]
	r.colorIdx++
	p := newPlayer(id, name, color, conn, codec)
	r.joinSeq++
	p.joinSeq = r.joinSeq
	r.players[id] = p
	r.order = append(r.order, id)
	if r.host == "" {
		r.host = id
	}
	r.spawn(p)

	r.send(p, protocol.Welcome{ID: string(id), Color: color})
	r.broadcast(protocol.PlayerJoined{ID: string(id), Name: p.Name, Color: color})
	r.broadcastLobby()
	if r.phase == protocol.PhasePlaying {
		// 中途加入：补发开局事件，下一帧强制全量
		r.send(p, protocol.GameStart{Mode: r.mode})
		r.repl.ForceFull(id)
	}
	r.log.Infof("player joined: id=%s name=%s color=%s players=%d", id, p.Name, color, len(r.players))
}

// removePlayer 断线即离开：实体、复制缓存与大厅在同一 Tick 内一起清理
func (r *Room) removePlayer(id PlayerID) {
	p, ok := r.players[id]
	if !ok {
		return
	}
	delete(r.players, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.repl.Forget(id)
	if p.conn != nil {
		p.conn.Close()
	}
	r.broadcast(protocol.PlayerLeft{ID: string(id), Name: p.Name})

	if r.host == id {
		r.host = ""
		if len(r.order) > 0 {
			r.host = r.order[0]
		}
		r.log.Infof("host changed: %s -> %s", id, r.host)
	}
	if len(r.players) == 0 {
		r.resetSession()
	}
	r.broadcastLobby()
	r.log.Infof("player left: id=%s name=%s players=%d", id, p.Name, len(r.players))
}

// kick 发送失败的慢客户端，在 Tick 末尾移除
func (r *Room) kick(id PlayerID) {
	r.kicked = append(r.kicked, id)
}

func (r *Room) processKicks() {
	for len(r.kicked) > 0 {
		ids := r.kicked
		r.kicked = nil
		for _, id := range ids {
			r.removePlayer(id)
		}
	}
}

// ---- 出生 ----

func (r *Room) spawn(p *Player) {
	pts := r.arena.Grid.PlayerSpawns
	pt := pts[r.rng.Intn(len(pts))]
	p.spawnAt(pt, world.NormalizeAngle(r.rng.Float64()*2*math.Pi))
}

// ---- 发送 ----

func (r *Room) send(p *Player, ev protocol.Event) {
	if p.conn == nil {
		return
	}
	b, err := protocol.EncodeEvent(p.codec, ev)
	if err != nil {
		r.log.Debugf("encode %s: %v", ev.EventName(), err)
		return
	}
	if !p.conn.Send(b) {
		r.metrics.IncSlowConsumers()
		r.log.Infof("send queue full, disconnecting %s", p.ID)
		r.kick(p.ID)
	}
}

// broadcast 同一编解码只编码一次
func (r *Room) broadcast(ev protocol.Event) {
	frames := make(map[string][]byte, 2)
	for _, id := range r.order {
		p := r.players[id]
		if p == nil || p.conn == nil {
			continue
		}
		b, ok := frames[p.codec.Name()]
		if !ok {
			var err error
			b, err = protocol.EncodeEvent(p.codec, ev)
			if err != nil {
				r.log.Debugf("encode %s: %v", ev.EventName(), err)
				return
			}
			frames[p.codec.Name()] = b
		}
		if !p.conn.Send(b) {
			r.metrics.IncSlowConsumers()
			r.kick(p.ID)
		}
	}
}

// sendVolatile 返回 true 表示覆盖了一帧尚未写出的旧帧
func (r *Room) sendVolatile(p *Player, ev protocol.Event) bool {
	if p.conn == nil {
		return false
	}
	b, err := protocol.EncodeEvent(p.codec, ev)
	if err != nil {
		r.log.Debugf("encode %s: %v", ev.EventName(), err)
		return false
	}
	r.metrics.IncStatesSent()
	if !p.conn.SendVolatile(b) {
		return false
	}
	r.metrics.IncVolatileSuperseded()
	return true
}

// ---- 实体辅助 ----

func (r *Room) enemyByID(id int) *Enemy {
	for _, e := range r.enemies {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func (r *Room) scores() []protocol.Score {
	out := make([]protocol.Score, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.players[id].score())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Kills > out[j].Kills })
	return out
}

// safeStep 单个实体的更新出错只影响它自己
func (r *Room) safeStep(ref EntityRef, fn func()) {
	defer func() {
		if v := recover(); v != nil {
			r.metrics.IncEntityFaults()
			r.log.Warnw("entity step recovered", "entity", ref.String(), "panic", v)
		}
	}()
	fn()
}
