package protocol

// 客户端 -> 服务端消息名
const (
	MsgJoin       = "join"
	MsgInput      = "input"
	MsgShoot      = "shoot"
	MsgInteract   = "interact"
	MsgChat       = "chat"
	MsgSelectMode = "selectMode"
	MsgStartGame  = "startGame"
	MsgPing       = "ping"
	MsgReportPing = "reportPing"
	MsgBuy        = "buy"
)

// 游戏模式与大厅阶段
const (
	ModeDeathmatch  = "deathmatch"
	ModeCooperative = "coop"

	PhaseWaiting = "waiting"
	PhasePlaying = "playing"
)

// 武器名
const (
	WeaponPistol     = "pistol"
	WeaponShotgun    = "shotgun"
	WeaponMachinegun = "machinegun"
)

type Join struct {
	Name string `json:"name" msgpack:"name"`
}

// Input 每帧发送（可丢弃），只携带移动意图与朝向
type Input struct {
	Forward  bool     `json:"forward" msgpack:"forward"`
	Backward bool     `json:"backward" msgpack:"backward"`
	Left     bool     `json:"left" msgpack:"left"`
	Right    bool     `json:"right" msgpack:"right"`
	Angle    *float64 `json:"angle,omitempty" msgpack:"angle,omitempty"`
	Weapon   string   `json:"weapon,omitempty" msgpack:"weapon,omitempty"`
}

type Shoot struct{}

// Interact 尝试开门；x/y 仅供参考，服务端使用权威位置
type Interact struct {
	X     float64 `json:"x" msgpack:"x"`
	Y     float64 `json:"y" msgpack:"y"`
	Angle float64 `json:"angle" msgpack:"angle"`
}

type Chat struct {
	Message string `json:"message" msgpack:"message"`
}

type SelectMode struct {
	Mode string `json:"mode" msgpack:"mode"`
}

type StartGame struct{}

type Ping struct {
	Time int64 `json:"time" msgpack:"time"`
}

type ReportPing struct {
	Ping float64 `json:"ping" msgpack:"ping"`
}

type Buy struct {
	Weapon string `json:"weapon" msgpack:"weapon"`
}
