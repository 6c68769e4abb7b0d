package server

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"wolfarena/world"
)

// GameConfig 房间玩法参数；带 json 标签的字段可经 /admin/config 读取
type GameConfig struct {
	TickRate           int     `json:"tickRate"`
	KillLimit          int     `json:"killLimit"`
	RespawnDeathmatch  float64 `json:"respawnDeathmatch"` // 秒
	RespawnCoop        float64 `json:"respawnCoop"`
	WaveCountdown      float64 `json:"waveCountdown"`
	FirstWaveDelay     float64 `json:"firstWaveDelay"`
	GameOverGrace      float64 `json:"gameOverGrace"`
	LagCompThresholdMs float64 `json:"lagCompThresholdMs"`
	HistorySize        int     `json:"historySize"`
	FullSnapshotEvery  int     `json:"fullSnapshotEvery"`
	MaxPlayers         int     `json:"maxPlayers"`
	InboxSize          int     `json:"inboxSize"`
	SendQueue          int     `json:"sendQueue"`

	DoorOpenSpeed  float64 `json:"doorOpenSpeed"`
	DoorCloseSpeed float64 `json:"doorCloseSpeed"`
	DoorAutoClose  float64 `json:"doorAutoClose"`
	DoorRetryDelay float64 `json:"doorRetryDelay"`
}

// Config 进程级配置
type Config struct {
	Addr    string
	MapPath string
	WebDir  string
	Log     LogConfig
	Game    GameConfig
}

func DefaultGameConfig() GameConfig {
	d := world.DefaultDoorConfig()
	return GameConfig{
		TickRate:           20,
		KillLimit:          20,
		RespawnDeathmatch:  3,
		RespawnCoop:        5,
		WaveCountdown:      10,
		FirstWaveDelay:     3,
		GameOverGrace:      5,
		LagCompThresholdMs: 30,
		HistorySize:        20,
		FullSnapshotEvery:  5,
		MaxPlayers:         16,
		InboxSize:          1024,
		SendQueue:          256,
		DoorOpenSpeed:      d.OpenSpeed,
		DoorCloseSpeed:     d.CloseSpeed,
		DoorAutoClose:      d.AutoClose,
		DoorRetryDelay:     d.RetryDelay,
	}
}

func DefaultConfig() Config {
	return Config{
		Addr:   ":8080",
		WebDir: "web",
		Log:    LogConfig{File: "app.log", Level: "info"},
		Game:   DefaultGameConfig(),
	}
}

// DoorConfig 转成门注册表参数
func (c GameConfig) DoorConfig() world.DoorConfig {
	d := world.DefaultDoorConfig()
	d.OpenSpeed = c.DoorOpenSpeed
	d.CloseSpeed = c.DoorCloseSpeed
	d.AutoClose = c.DoorAutoClose
	d.RetryDelay = c.DoorRetryDelay
	return d
}

// TickInterval 固定步长
func (c GameConfig) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

// Validate 把明显无效的值拉回默认，避免除零或负数计时
func (c *GameConfig) Validate() {
	def := DefaultGameConfig()
	if c.TickRate <= 0 || c.TickRate > 120 {
		c.TickRate = def.TickRate
	}
	if c.KillLimit <= 0 {
		c.KillLimit = def.KillLimit
	}
	if c.HistorySize <= 0 {
		c.HistorySize = def.HistorySize
	}
	if c.FullSnapshotEvery <= 0 {
		c.FullSnapshotEvery = def.FullSnapshotEvery
	}
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = def.MaxPlayers
	}
	if c.InboxSize <= 0 {
		c.InboxSize = def.InboxSize
	}
	if c.SendQueue <= 0 {
		c.SendQueue = def.SendQueue
	}
	if c.DoorOpenSpeed <= 0 {
		c.DoorOpenSpeed = def.DoorOpenSpeed
	}
	if c.DoorCloseSpeed <= 0 {
		c.DoorCloseSpeed = def.DoorCloseSpeed
	}
	for _, p := range []*float64{&c.RespawnDeathmatch, &c.RespawnCoop, &c.WaveCountdown, &c.FirstWaveDelay,
		&c.GameOverGrace, &c.LagCompThresholdMs, &c.DoorAutoClose, &c.DoorRetryDelay} {
		if *p < 0 {
			*p = 0
		}
	}
}

// LoadEnv 读取 .env（不存在则忽略），再用 ARENA_* 环境变量覆盖
func (c *Config) LoadEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	str("ARENA_ADDR", &c.Addr)
	str("ARENA_MAP", &c.MapPath)
	str("ARENA_WEB_DIR", &c.WebDir)
	str("ARENA_LOG_FILE", &c.Log.File)
	str("ARENA_LOG_LEVEL", &c.Log.Level)
	if v, ok := os.LookupEnv("ARENA_LOG_STDERR"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ARENA_LOG_STDERR: %w", err)
		}
		c.Log.Stderr = b
	}

	ints := map[string]*int{
		"ARENA_TICK_RATE":   &c.Game.TickRate,
		"ARENA_KILL_LIMIT":  &c.Game.KillLimit,
		"ARENA_MAX_PLAYERS": &c.Game.MaxPlayers,
		"ARENA_HISTORY":     &c.Game.HistorySize,
		"ARENA_FULL_EVERY":  &c.Game.FullSnapshotEvery,
	}
	for key, dst := range ints {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
	}
	floats := map[string]*float64{
		"ARENA_RESPAWN_DM":     &c.Game.RespawnDeathmatch,
		"ARENA_RESPAWN_COOP":   &c.Game.RespawnCoop,
		"ARENA_WAVE_COUNTDOWN": &c.Game.WaveCountdown,
		"ARENA_GRACE":          &c.Game.GameOverGrace,
		"ARENA_LAGCOMP_MS":     &c.Game.LagCompThresholdMs,
	}
	for key, dst := range floats {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = f
	}
	return nil
}

// BindFlags 命令行参数优先级最高，默认值取当前配置
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Addr, "addr", c.Addr, "server listen address, e.g. :8080")
	fs.StringVar(&c.MapPath, "map", c.MapPath, "optional Tiled .tmx map (default: built-in arena)")
	fs.StringVar(&c.WebDir, "web", c.WebDir, "static web client directory")
	fs.StringVar(&c.Log.File, "log", c.Log.File, "log file path (rolled by size)")
	fs.StringVar(&c.Log.Level, "log-level", c.Log.Level, "debug|info|warn|error")
	fs.BoolVar(&c.Log.Stderr, "log-stderr", c.Log.Stderr, "also log to stderr")
	fs.IntVar(&c.Game.TickRate, "tick-rate", c.Game.TickRate, "simulation ticks per second")
	fs.IntVar(&c.Game.KillLimit, "kill-limit", c.Game.KillLimit, "deathmatch kill limit")
	fs.IntVar(&c.Game.MaxPlayers, "max-players", c.Game.MaxPlayers, "players per room")
}

// configPatch /admin/config POST 载荷，只更新出现的字段
type configPatch struct {
	KillLimit          *int     `json:"killLimit,omitempty"`
	RespawnDeathmatch  *float64 `json:"respawnDeathmatch,omitempty"`
	RespawnCoop        *float64 `json:"respawnCoop,omitempty"`
	WaveCountdown      *float64 `json:"waveCountdown,omitempty"`
	GameOverGrace      *float64 `json:"gameOverGrace,omitempty"`
	LagCompThresholdMs *float64 `json:"lagCompThresholdMs,omitempty"`
	FullSnapshotEvery  *int     `json:"fullSnapshotEvery,omitempty"`
	DoorOpenSpeed      *float64 `json:"doorOpenSpeed,omitempty"`
	DoorCloseSpeed     *float64 `json:"doorCloseSpeed,omitempty"`
	DoorAutoClose      *float64 `json:"doorAutoClose,omitempty"`
	DoorRetryDelay     *float64 `json:"doorRetryDelay,omitempty"`
}

func (p configPatch) applyTo(c GameConfig) GameConfig {
	if p.KillLimit != nil {
		c.KillLimit = *p.KillLimit
	}
	if p.RespawnDeathmatch != nil {
		c.RespawnDeathmatch = *p.RespawnDeathmatch
	}
	if p.RespawnCoop != nil {
		c.RespawnCoop = *p.RespawnCoop
	}
	if p.WaveCountdown != nil {
		c.WaveCountdown = *p.WaveCountdown
	}
	if p.GameOverGrace != nil {
		c.GameOverGrace = *p.GameOverGrace
	}
	if p.LagCompThresholdMs != nil {
		c.LagCompThresholdMs = *p.LagCompThresholdMs
	}
	if p.FullSnapshotEvery != nil {
		c.FullSnapshotEvery = *p.FullSnapshotEvery
	}
	if p.DoorOpenSpeed != nil {
		c.DoorOpenSpeed = *p.DoorOpenSpeed
	}
	if p.DoorCloseSpeed != nil {
		c.DoorCloseSpeed = *p.DoorCloseSpeed
	}
	if p.DoorAutoClose != nil {
		c.DoorAutoClose = *p.DoorAutoClose
	}
	if p.DoorRetryDelay != nil {
		c.DoorRetryDelay = *p.DoorRetryDelay
	}
	c.Validate()
	return c
}
