package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"wolfarena/protocol"
	"wolfarena/server"
	"wolfarena/world"
)

func startServer(t *testing.T) string {
	t.Helper()
	rm := server.NewRoomManager(server.DefaultGameConfig(), nil)
	mux := http.NewServeMux()
	server.NewServer(rm, server.DefaultGameConfig()).Routes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		rm.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

// runUntil 以 60Hz 驱动渲染帧直到 cond 成立
func runUntil(t *testing.T, s *Session, what string, cond func(evs []protocol.Event) bool) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(time.Second / 60)
	defer tick.Stop()
	for {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		case <-s.Done():
			t.Fatalf("session closed while waiting for %s: %v", what, s.Err())
		case <-tick.C:
			evs, err := s.Frame(1.0/60, world.Intent{}, "")
			if err != nil {
				t.Fatalf("frame: %v", err)
			}
			if cond(evs) {
				return
			}
		}
	}
}

func hasEvent(evs []protocol.Event, name string) bool {
	for _, ev := range evs {
		if ev.EventName() == name {
			return true
		}
	}
	return false
}

func TestSessionEndToEnd(t *testing.T) {
	for _, codec := range []protocol.Codec{protocol.JSON, protocol.Msgpack} {
		t.Run(codec.Name(), func(t *testing.T) {
			endpoint := startServer(t)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			s, err := Dial(ctx, endpoint, "e2e", codec, NewGame(world.DefaultGrid(), 20), nil)
			if err != nil {
				t.Fatalf("dial: %v", err)
			}
			defer s.Close()

			if err := s.Join("tester"); err != nil {
				t.Fatalf("join: %v", err)
			}
			runUntil(t, s, "welcome", func([]protocol.Event) bool {
				return s.State() == StateJoined && s.Game().ID != ""
			})
			runUntil(t, s, "lobby", func([]protocol.Event) bool { return s.Game().IsHost() })

			if err := s.StartGame(); err != nil {
				t.Fatalf("start: %v", err)
			}
			runUntil(t, s, "first snapshot", func([]protocol.Event) bool {
				g := s.Game()
				return g.Phase == protocol.PhasePlaying && g.Predictor.Synced()
			})
			if l := s.Game().Local(); !l.Alive || l.Health != 100 {
				t.Fatalf("local player after spawn = %+v", l)
			}

			if err := s.Ping(); err != nil {
				t.Fatalf("ping: %v", err)
			}
			runUntil(t, s, "pong", func(evs []protocol.Event) bool { return hasEvent(evs, protocol.EvPong) })
			if s.RTT() < 0 {
				t.Fatalf("rtt = %v", s.RTT())
			}
		})
	}
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	endpoint := startServer(t)
	s, err := Dial(context.Background(), endpoint, "", protocol.JSON, NewGame(world.DefaultGrid(), 20), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	s.Close()
	s.Close()
	<-s.Done()
	if s.State() != StateClosed {
		t.Fatalf("state = %v", s.State())
	}
	if err := s.Chat("hi"); err != ErrClosed {
		t.Fatalf("send after close = %v", err)
	}
}
