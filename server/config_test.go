package server

import (
	"encoding/json"
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("ARENA_ADDR=:9090\nARENA_TICK_RATE=30\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("ARENA_ADDR") })
	// 已存在的环境变量优先于 .env
	t.Setenv("ARENA_TICK_RATE", "40")
	t.Setenv("ARENA_RESPAWN_DM", "1.5")

	cfg := DefaultConfig()
	if err := cfg.LoadEnv(envFile); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.Game.TickRate != 40 || cfg.Game.RespawnDeathmatch != 1.5 {
		t.Fatalf("cfg = %+v", cfg)
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.BindFlags(fs)
	if err := fs.Parse([]string{"-tick-rate", "25", "-kill-limit", "7"}); err != nil {
		t.Fatal(err)
	}
	if cfg.Game.TickRate != 25 || cfg.Game.KillLimit != 7 || cfg.Addr != ":9090" {
		t.Fatalf("flags not applied over env: %+v", cfg)
	}
}

func TestLoadEnvMissingFileAndBadValue(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.LoadEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("missing .env must be ignored: %v", err)
	}
	t.Setenv("ARENA_GRACE", "soon")
	if err := cfg.LoadEnv(""); err == nil || !strings.Contains(err.Error(), "ARENA_GRACE") {
		t.Fatalf("bad value error = %v", err)
	}
}

func TestValidateRestoresDefaults(t *testing.T) {
	c := GameConfig{TickRate: -1, RespawnCoop: -3, DoorAutoClose: -1}
	c.Validate()
	def := DefaultGameConfig()
	if c.TickRate != def.TickRate || c.KillLimit != def.KillLimit || c.DoorOpenSpeed != def.DoorOpenSpeed {
		t.Fatalf("defaults not restored: %+v", c)
	}
	if c.RespawnCoop != 0 || c.DoorAutoClose != 0 {
		t.Fatalf("negative timers not clamped: %+v", c)
	}
	if c.TickInterval() != 50*time.Millisecond {
		t.Fatalf("interval = %v", c.TickInterval())
	}
}

func TestConfigPatchOnlyTouchesPresentFields(t *testing.T) {
	var p configPatch
	if err := json.Unmarshal([]byte(`{"killLimit":3,"doorAutoClose":2.5,"fullSnapshotEvery":0}`), &p); err != nil {
		t.Fatal(err)
	}
	c := p.applyTo(DefaultGameConfig())
	def := DefaultGameConfig()
	if c.KillLimit != 3 || c.DoorAutoClose != 2.5 || c.RespawnDeathmatch != def.RespawnDeathmatch {
		t.Fatalf("patched = %+v", c)
	}
	if c.FullSnapshotEvery != def.FullSnapshotEvery {
		t.Fatalf("invalid patch value not validated: %d", c.FullSnapshotEvery)
	}
	if d := c.DoorConfig(); d.AutoClose != 2.5 || len(d.ReachRanges) == 0 {
		t.Fatalf("door config = %+v", d)
	}
}

func TestAdminEndpoints(t *testing.T) {
	rm := NewRoomManager(DefaultGameConfig(), nil)
	t.Cleanup(rm.Close)
	mux := http.NewServeMux()
	NewServer(rm, DefaultGameConfig()).Routes(mux)

	do := func(method, target, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
		return rec
	}

	if rec := do(http.MethodGet, "/metrics?room=nope", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown room metrics = %d", rec.Code)
	}
	if rec := do(http.MethodPost, "/admin/config?room=adm", "{"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json = %d", rec.Code)
	}
	if rec := do(http.MethodPost, "/admin/config?room=adm", `{"killLimit":9}`); rec.Code != http.StatusAccepted {
		t.Fatalf("patch = %d %s", rec.Code, rec.Body)
	}

	// 补丁在下一个 Tick 边界生效
	deadline := time.Now().Add(3 * time.Second)
	for {
		var got GameConfig
		rec := do(http.MethodGet, "/admin/config?room=adm", "")
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode config: %v", err)
		}
		if got.KillLimit == 9 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("config patch never applied, killLimit=%d", got.KillLimit)
		}
		time.Sleep(20 * time.Millisecond)
	}

	rec := do(http.MethodGet, "/metrics?room=adm", "")
	var m struct {
		Room    string         `json:"room"`
		Metrics map[string]any `json:"metrics"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&m); err != nil || m.Room != "adm" {
		t.Fatalf("metrics = %+v, %v", m, err)
	}
	if m.Metrics["tick_count"].(float64) < 1 || m.Metrics["commands_accepted"].(float64) < 1 {
		t.Fatalf("metrics not counting: %v", m.Metrics)
	}
	if rec := do(http.MethodPut, "/admin/config", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("PUT = %d", rec.Code)
	}
}
