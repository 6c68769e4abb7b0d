package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"wolfarena/client"
	"wolfarena/protocol"
	"wolfarena/world"
)

// arenabot 无界面机器人：加入房间后以 60Hz 运行预测与插值，原地转圈射击
func main() {
	var (
		endpoint = flag.String("url", "ws://localhost:8080/ws", "server websocket endpoint")
		room     = flag.String("room", "", "room id (empty: server default)")
		name     = flag.String("name", "bot", "player name")
		codec    = flag.String("codec", "json", "wire codec: json|msgpack")
		duration = flag.Duration("duration", 0, "stop after this long (0: until signal)")
		start    = flag.Bool("start", false, "start the match when this bot is host")
		mode     = flag.String("mode", protocol.ModeDeathmatch, "mode to select when starting")
		verbose  = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	zcfg := zap.NewDevelopmentConfig()
	zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if !*verbose {
		zcfg.Level.SetLevel(zapcore.InfoLevel)
	}
	logger, err := zcfg.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Sugar().Named(*name)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	game := client.NewGame(world.DefaultGrid(), 20)
	s, err := client.Dial(ctx, *endpoint, *room, protocol.CodecByName(*codec), game, log)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer s.Close()
	if err := s.Join(*name); err != nil {
		log.Fatalf("join: %v", err)
	}

	run(ctx, s, log, *start, *mode)
	log.Infof("bot stopped: rtt=%.0fms dropped=%d err=%v", s.RTT(), game.Events.Dropped(), s.Err())
}

func run(ctx context.Context, s *client.Session, log *zap.SugaredLogger, start bool, mode string) {
	const frame = time.Second / 60
	ticker := time.NewTicker(frame)
	defer ticker.Stop()
	pingEvery := time.NewTicker(2 * time.Second)
	defer pingEvery.Stop()

	g := s.Game()
	angle := 0.0
	frames := 0
	requested := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.Done():
			log.Warnf("connection closed: %v", s.Err())
			return
		case <-pingEvery.C:
			if err := s.Ping(); err != nil {
				log.Debugf("ping: %v", err)
			}
		case <-ticker.C:
			frames++
			angle = world.NormalizeAngle(angle + 0.02)
			in := world.Intent{Forward: frames/120%2 == 0, Left: frames/90%2 == 1, Angle: angle}
			evs, err := s.Frame(frame.Seconds(), in, "")
			if err != nil {
				log.Debugf("frame: %v", err)
			}
			for _, ev := range evs {
				logEvent(log, ev)
			}

			if start && !requested && g.IsHost() && g.Phase == protocol.PhaseWaiting {
				_ = s.SelectMode(mode)
				_ = s.StartGame()
				requested = true
			}
			if g.Phase != protocol.PhasePlaying {
				requested = requested && g.Phase != protocol.PhaseWaiting
				continue
			}
			if frames%30 == 0 {
				_ = s.Shoot()
			}
			if frames%180 == 0 {
				_ = s.Interact()
			}
		}
	}
}

func logEvent(log *zap.SugaredLogger, ev protocol.Event) {
	switch v := ev.(type) {
	case protocol.Welcome:
		log.Infof("welcome id=%s color=%s", v.ID, v.Color)
	case protocol.GameStart:
		log.Infof("game start: %s", v.Mode)
	case protocol.Kill:
		log.Infof("%s killed %s", v.KillerName, v.VictimName)
	case protocol.Hit:
		log.Infof("hit by %s for %d", v.AttackerName, v.Damage)
	case protocol.WaveStart:
		log.Infof("wave %d: %d enemies boss=%v", v.Wave, v.EnemyCount, v.Boss)
	case protocol.GameEnd:
		log.Infof("game end: mode=%s winner=%s wave=%d", v.Mode, v.WinnerName, v.Wave)
	case protocol.ChatMessage:
		log.Infof("<%s> %s", v.Name, v.Message)
	default:
		log.Debugf("event %s", ev.EventName())
	}
}
