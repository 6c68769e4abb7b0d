package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
)

const defaultRoom = "room-1"

// Server HTTP 入口：WebSocket 接入与管理接口
type Server struct {
	rooms    *RoomManager
	cfg      GameConfig
	upgrader websocket.Upgrader
}

func NewServer(rooms *RoomManager, cfg GameConfig) *Server {
	return &Server{
		rooms: rooms,
		cfg:   cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// 演示环境：允许所有来源（生产环境需严格限制）
				return true
			},
		},
	}
}

// Routes 注册 /ws、/admin/config、/metrics、/healthz
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.HandleWS)
	mux.HandleFunc("/admin/config", s.HandleAdminConfig)
	mux.HandleFunc("/metrics", s.HandleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
}

func roomParam(r *http.Request) string {
	if id := r.URL.Query().Get("room"); id != "" {
		return id
	}
	return defaultRoom
}

// HandleAdminConfig 提供房间配置的读取与更新（热更新基本规则）
// GET /admin/config?room=room-1  返回当前配置
// POST /admin/config?room=room-1 以 JSON 载荷更新部分字段，下一个 Tick 生效
func (s *Server) HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	roomID := roomParam(r)
	room := s.rooms.GetOrCreateRoom(roomID)

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, room.Status().Config)
	case http.MethodPost:
		var body configPatch
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if !room.UpdateConfig(body) {
			http.Error(w, "room busy", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
		Log.Infof("config update staged: room=%s", roomID)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleMetrics 输出指定房间的运行指标
// GET /metrics?room=room-1
func (s *Server) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	roomID := roomParam(r)
	room, ok := s.rooms.Room(roomID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"room": roomID, "rooms": s.rooms.IDs()})
		return
	}
	st := room.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"room":    roomID,
		"tick":    st.Tick,
		"phase":   st.Phase,
		"mode":    st.Mode,
		"players": st.Players,
		"wave":    st.Wave,
		"metrics": room.Metrics().Snapshot(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
