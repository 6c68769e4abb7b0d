package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sasha-s/go-deadlock"

	"wolfarena/protocol"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxMessage = 1 << 16
)

// ClientConn 负责发送（写）数据到客户端的轻量包装
// 可靠消息走有界队列；gameState 只保留最新一帧，旧帧未写出就被覆盖
type ClientConn struct {
	ws    *websocket.Conn
	codec protocol.Codec

	send   chan []byte
	notify chan struct{}
	done   chan struct{}

	mu       deadlock.Mutex
	volatile []byte
	closed   bool
}

func NewClientConn(ws *websocket.Conn, codec protocol.Codec, queue int) *ClientConn {
	return &ClientConn{
		ws:     ws,
		codec:  codec,
		send:   make(chan []byte, queue),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Send 将可靠消息压入队列（非阻塞），满了返回 false 由房间断开该连接
func (c *ClientConn) Send(b []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

// SendVolatile 覆盖待发送的最新帧
func (c *ClientConn) SendVolatile(b []byte) bool {
	c.mu.Lock()
	superseded := c.volatile != nil
	c.volatile = b
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return false
	}
	select {
	case c.notify <- struct{}{}:
	default:
	}
	return superseded
}

// Close 关闭底层连接并结束写协程，可重复调用
func (c *ClientConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()
	_ = c.ws.Close()
}

func (c *ClientConn) takeVolatile() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := c.volatile
	c.volatile = nil
	return b
}

func (c *ClientConn) messageType() int {
	if c.codec.Binary() {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

// writePump 独立协程，负责从队列写出到 WS
func (c *ClientConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	write := func(mt int, b []byte) bool {
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		return c.ws.WriteMessage(mt, b) == nil
	}
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			if !write(c.messageType(), msg) {
				return
			}
		case <-c.notify:
			if b := c.takeVolatile(); b != nil && !write(c.messageType(), b) {
				return
			}
		case <-ticker.C:
			if !write(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

// readPump 读取客户端消息，交给房间转成命令
func (c *ClientConn) readPump(room *Room, id PlayerID) {
	defer c.Close()
	// 读泵退出时，通知房间在 Tick 线程中移除该玩家
	defer room.RequestLeave(id)
	c.ws.SetReadLimit(maxMessage)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error { return c.ws.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				Log.Debugf("read %s: %v", id, err)
			}
			return
		}
		if err := room.HandleMessage(id, c, c.codec, payload); err != nil {
			Log.Debugf("message from %s: %v", id, err)
		}
	}
}

// HandleWS WebSocket 接入：?room=room-1&codec=json|msgpack
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("room")
	if roomID == "" {
		roomID = defaultRoom
	}
	codec := protocol.CodecByName(r.URL.Query().Get("codec"))

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Infof("upgrade error: %v", err)
		return
	}

	room := s.rooms.GetOrCreateRoom(roomID)
	id := PlayerID(uuid.NewString())
	client := NewClientConn(ws, codec, s.cfg.SendQueue)
	Log.Debugf("connection %s room=%s codec=%s remote=%s", id, roomID, codec.Name(), r.RemoteAddr)

	go client.writePump()
	go client.readPump(room, id)
}
