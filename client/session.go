package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"

	"wolfarena/protocol"
	"wolfarena/world"
)

const writeWait = 5 * time.Second

var ErrClosed = errors.New("client: session closed")

// State 连接状态
type State int

const (
	StateConnected State = iota
	StateJoined
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	default:
		return "connected"
	}
}

// Session 一条到服务端的 WebSocket 连接
// 读协程只负责解码并投递到 Game；写入由 writeMu 串行化
type Session struct {
	mu    deadlock.RWMutex
	state State
	err   error
	rttMs float64

	writeMu deadlock.Mutex
	ws      *websocket.Conn
	codec   protocol.Codec

	game      *Game
	log       *zap.SugaredLogger
	done      chan struct{}
	closeOnce sync.Once
}

// Dial 连接 ws://host/ws，room 为空时由服务端选择默认房间
func Dial(ctx context.Context, endpoint, room string, codec protocol.Codec, game *Game, log *zap.SugaredLogger) (*Session, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", endpoint, err)
	}
	q := u.Query()
	if room != "" {
		q.Set("room", room)
	}
	q.Set("codec", codec.Name())
	u.RawQuery = q.Encode()

	d := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	ws, _, err := d.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &Session{
		ws:    ws,
		codec: codec,
		game:  game,
		log:   log.Named("session"),
		done:  make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

func (s *Session) Game() *Game { return s.game }

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Err 连接结束的原因；正常关闭为 nil
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// RTT 最近一次 ping 往返（毫秒）
func (s *Session) RTT() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rttMs
}

func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) readLoop() {
	defer s.Close()
	for {
		_, b, err := s.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.mu.Lock()
				s.err = err
				s.mu.Unlock()
				s.log.Warnf("read: %v", err)
			}
			return
		}
		ev, err := protocol.DecodeEvent(s.codec, b)
		if err != nil {
			s.log.Debugf("decode: %v", err)
			continue
		}
		switch v := ev.(type) {
		case protocol.Welcome:
			s.setState(StateJoined)
			s.log.Infof("joined as %s (%s)", v.ID, v.Color)
		case protocol.Pong:
			rtt := float64(time.Now().UnixMilli() - v.Time)
			s.mu.Lock()
			s.rttMs = rtt
			s.mu.Unlock()
			// 服务端据此决定是否对本客户端做延迟补偿
			if err := s.send(protocol.MsgReportPing, protocol.ReportPing{Ping: rtt}); err != nil {
				s.log.Debugf("reportPing: %v", err)
			}
		}
		s.game.Deliver(ev)
	}
}

func (s *Session) send(t string, payload any) error {
	b, err := protocol.Encode(s.codec, t, payload)
	if err != nil {
		return err
	}
	mt := websocket.TextMessage
	if s.codec.Binary() {
		mt = websocket.BinaryMessage
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.ws.WriteMessage(mt, b); err != nil {
		return fmt.Errorf("write %s: %w", t, err)
	}
	return nil
}

func (s *Session) Join(name string) error {
	return s.send(protocol.MsgJoin, protocol.Join{Name: name})
}

// SendInput 每帧发送当前意图；weapon 为空表示不切换
func (s *Session) SendInput(in world.Intent, weapon string) error {
	angle := in.Angle
	return s.send(protocol.MsgInput, protocol.Input{
		Forward:  in.Forward,
		Backward: in.Backward,
		Left:     in.Left,
		Right:    in.Right,
		Angle:    &angle,
		Weapon:   weapon,
	})
}

func (s *Session) Shoot() error { return s.send(protocol.MsgShoot, protocol.Shoot{}) }

// Interact 附带预测位置；服务端只采用朝向
func (s *Session) Interact() error {
	p := s.game.Predictor
	return s.send(protocol.MsgInteract, protocol.Interact{X: p.X, Y: p.Y, Angle: p.Angle})
}

func (s *Session) Chat(msg string) error {
	return s.send(protocol.MsgChat, protocol.Chat{Message: msg})
}

func (s *Session) SelectMode(mode string) error {
	return s.send(protocol.MsgSelectMode, protocol.SelectMode{Mode: mode})
}

func (s *Session) StartGame() error { return s.send(protocol.MsgStartGame, protocol.StartGame{}) }

func (s *Session) Buy(weapon string) error {
	return s.send(protocol.MsgBuy, protocol.Buy{Weapon: weapon})
}

// Ping 发送带本地时间戳的 ping，pong 返回后自动上报延迟
func (s *Session) Ping() error {
	return s.send(protocol.MsgPing, protocol.Ping{Time: time.Now().UnixMilli()})
}

// Frame 渲染帧：推进本地世界，对局中顺带发送本帧输入
func (s *Session) Frame(dt float64, in world.Intent, weapon string) ([]protocol.Event, error) {
	evs := s.game.Frame(dt, in)
	if s.State() != StateJoined || s.game.Phase != protocol.PhasePlaying {
		return evs, nil
	}
	return evs, s.SendInput(in, weapon)
}

// Close 可重复调用
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		_ = s.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		close(s.done)
		s.writeMu.Unlock()
		_ = s.ws.Close()
		s.setState(StateClosed)
	})
}
