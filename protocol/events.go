package protocol

import "fmt"

// 服务端 -> 客户端事件名
const (
	EvWelcome         = "welcome"
	EvLobbyUpdate     = "lobbyUpdate"
	EvGameStart       = "gameStart"
	EvReturnToLobby   = "returnToLobby"
	EvGameState       = "gameState"
	EvPlayerJoined    = "playerJoined"
	EvPlayerLeft      = "playerLeft"
	EvKill            = "kill"
	EvHit             = "hit"
	EvShotHit         = "shotHit"
	EvChat            = "chat"
	EvDoorOpened      = "doorOpened"
	EvWaveStart       = "waveStart"
	EvEnemyKilled     = "enemyKilled"
	EvPickupCollected = "pickupCollected"
	EvCoopGameOver    = "coopGameOver"
	EvGameEnd         = "gameEnd"
	EvPong            = "pong"
)

// Event 服务端事件的封闭和类型，每种线上事件对应一个结构体
type Event interface {
	EventName() string
	isEvent()
}

type Welcome struct {
	ID    string `json:"id" msgpack:"id"`
	Color string `json:"color" msgpack:"color"`
}

type LobbyPlayer struct {
	ID     string `json:"id" msgpack:"id"`
	Name   string `json:"name" msgpack:"name"`
	Color  string `json:"color" msgpack:"color"`
	IsHost bool   `json:"isHost" msgpack:"isHost"`
}

type LobbyUpdate struct {
	HostID  string        `json:"hostId" msgpack:"hostId"`
	Mode    string        `json:"mode" msgpack:"mode"`
	State   string        `json:"state" msgpack:"state"`
	Players []LobbyPlayer `json:"players" msgpack:"players"`
}

type GameStart struct {
	Mode string `json:"mode" msgpack:"mode"`
}

type ReturnToLobby struct{}

type PlayerJoined struct {
	ID    string `json:"id" msgpack:"id"`
	Name  string `json:"name" msgpack:"name"`
	Color string `json:"color" msgpack:"color"`
}

type PlayerLeft struct {
	ID   string `json:"id" msgpack:"id"`
	Name string `json:"name" msgpack:"name"`
}

// Kill 玩家被击杀（凶手可能是玩家或敌人）
type Kill struct {
	KillerID   string `json:"killerId" msgpack:"killerId"`
	KillerName string `json:"killerName" msgpack:"killerName"`
	VictimID   string `json:"victimId" msgpack:"victimId"`
	VictimName string `json:"victimName" msgpack:"victimName"`
}

// Hit 只发给被击中的玩家
type Hit struct {
	Damage       int    `json:"damage" msgpack:"damage"`
	AttackerName string `json:"attackerName" msgpack:"attackerName"`
}

// ShotHit 只发给射手的命中确认
type ShotHit struct{}

type ChatMessage struct {
	Name    string `json:"name" msgpack:"name"`
	Message string `json:"message" msgpack:"message"`
	Color   string `json:"color" msgpack:"color"`
}

type DoorOpened struct {
	Key string `json:"key" msgpack:"key"`
}

type WaveStart struct {
	Wave       int  `json:"wave" msgpack:"wave"`
	EnemyCount int  `json:"enemyCount" msgpack:"enemyCount"`
	Boss       bool `json:"boss" msgpack:"boss"`
}

type EnemyKilled struct {
	ID         int     `json:"id" msgpack:"id"`
	KillerName string  `json:"killerName" msgpack:"killerName"`
	X          float64 `json:"x" msgpack:"x"`
	Y          float64 `json:"y" msgpack:"y"`
	Boss       bool    `json:"boss" msgpack:"boss"`
}

type PickupCollected struct {
	ID       int    `json:"id" msgpack:"id"`
	PlayerID string `json:"playerId" msgpack:"playerId"`
}

type CoopGameOver struct {
	Wave int `json:"wave" msgpack:"wave"`
}

type Score struct {
	ID     string `json:"id" msgpack:"id"`
	Name   string `json:"name" msgpack:"name"`
	Color  string `json:"color" msgpack:"color"`
	Kills  int    `json:"kills" msgpack:"kills"`
	Deaths int    `json:"deaths" msgpack:"deaths"`
}

type GameEnd struct {
	Mode       string  `json:"mode" msgpack:"mode"`
	WinnerID   string  `json:"winnerId,omitempty" msgpack:"winnerId,omitempty"`
	WinnerName string  `json:"winnerName,omitempty" msgpack:"winnerName,omitempty"`
	Wave       int     `json:"wave,omitempty" msgpack:"wave,omitempty"`
	Scores     []Score `json:"scores" msgpack:"scores"`
	KillLimit  int     `json:"killLimit,omitempty" msgpack:"killLimit,omitempty"`
}

type Pong struct {
	Time int64 `json:"time" msgpack:"time"`
}

func (Welcome) EventName() string         { return EvWelcome }
func (LobbyUpdate) EventName() string     { return EvLobbyUpdate }
func (GameStart) EventName() string       { return EvGameStart }
func (ReturnToLobby) EventName() string   { return EvReturnToLobby }
func (GameState) EventName() string       { return EvGameState }
func (PlayerJoined) EventName() string    { return EvPlayerJoined }
func (PlayerLeft) EventName() string      { return EvPlayerLeft }
func (Kill) EventName() string            { return EvKill }
func (Hit) EventName() string             { return EvHit }
func (ShotHit) EventName() string         { return EvShotHit }
func (ChatMessage) EventName() string     { return EvChat }
func (DoorOpened) EventName() string      { return EvDoorOpened }
func (WaveStart) EventName() string       { return EvWaveStart }
func (EnemyKilled) EventName() string     { return EvEnemyKilled }
func (PickupCollected) EventName() string { return EvPickupCollected }
func (CoopGameOver) EventName() string    { return EvCoopGameOver }
func (GameEnd) EventName() string         { return EvGameEnd }
func (Pong) EventName() string            { return EvPong }

func (Welcome) isEvent()         {}
func (LobbyUpdate) isEvent()     {}
func (GameStart) isEvent()       {}
func (ReturnToLobby) isEvent()   {}
func (GameState) isEvent()       {}
func (PlayerJoined) isEvent()    {}
func (PlayerLeft) isEvent()      {}
func (Kill) isEvent()            {}
func (Hit) isEvent()             {}
func (ShotHit) isEvent()         {}
func (ChatMessage) isEvent()     {}
func (DoorOpened) isEvent()      {}
func (WaveStart) isEvent()       {}
func (EnemyKilled) isEvent()     {}
func (PickupCollected) isEvent() {}
func (CoopGameOver) isEvent()    {}
func (GameEnd) isEvent()         {}
func (Pong) isEvent()            {}

// Volatile 可丢弃类：只保留最新值
func Volatile(ev Event) bool {
	_, ok := ev.(GameState)
	return ok
}

func decodeAs[T Event](c Codec, env Envelope) (Event, error) {
	v, err := DecodePayload[T](c, env)
	if err != nil {
		return nil, err
	}
	return v, nil
}

var eventDecoders = map[string]func(Codec, Envelope) (Event, error){
	EvWelcome:         decodeAs[Welcome],
	EvLobbyUpdate:     decodeAs[LobbyUpdate],
	EvGameStart:       decodeAs[GameStart],
	EvReturnToLobby:   decodeAs[ReturnToLobby],
	EvGameState:       decodeAs[GameState],
	EvPlayerJoined:    decodeAs[PlayerJoined],
	EvPlayerLeft:      decodeAs[PlayerLeft],
	EvKill:            decodeAs[Kill],
	EvHit:             decodeAs[Hit],
	EvShotHit:         decodeAs[ShotHit],
	EvChat:            decodeAs[ChatMessage],
	EvDoorOpened:      decodeAs[DoorOpened],
	EvWaveStart:       decodeAs[WaveStart],
	EvEnemyKilled:     decodeAs[EnemyKilled],
	EvPickupCollected: decodeAs[PickupCollected],
	EvCoopGameOver:    decodeAs[CoopGameOver],
	EvGameEnd:         decodeAs[GameEnd],
	EvPong:            decodeAs[Pong],
}

// DecodeEvent 客户端侧：信封 -> 具体事件
func DecodeEvent(c Codec, b []byte) (Event, error) {
	env, err := DecodeEnvelope(c, b)
	if err != nil {
		return nil, err
	}
	dec, ok := eventDecoders[env.T]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.T)
	}
	ev, err := dec(c, env)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.T, err)
	}
	return ev, nil
}
