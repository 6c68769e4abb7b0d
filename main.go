package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"wolfarena/server"
	"wolfarena/world"
)

// wolfarena 入口：启动 HTTP + WebSocket 服务，并初始化房间管理器
func main() {
	cfg := server.DefaultConfig()
	// 优先级：默认值 < .env < ARENA_* 环境变量 < 命令行
	if err := cfg.LoadEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg.BindFlags(flag.CommandLine)
	flag.Parse()
	cfg.Game.Validate()

	// 使用第三方 zap 日志库写入 app.log（带滚动）
	if err := server.InitLogger(cfg.Log); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	grid, err := loadGrid(cfg.MapPath)
	if err != nil {
		server.Log.Fatalf("map: %v", err)
	}

	rm := server.NewRoomManager(cfg.Game, grid)
	defer rm.Close()
	// 先预创建一个默认房间，便于快速试跑
	_ = rm.GetOrCreateRoom("room-1")

	mux := http.NewServeMux()
	server.NewServer(rm, cfg.Game).Routes(mux)
	// 前后端分离：将 / 映射到 web 目录的静态资源
	mux.Handle("/", http.FileServer(http.Dir(cfg.WebDir)))

	srv := &http.Server{Addr: cfg.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		server.Log.Infof("wolfarena listening on %s (tick %d Hz, map %dx%d)", cfg.Addr, cfg.Game.TickRate, grid.Width, grid.Height)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			server.Log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	server.Log.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		server.Log.Warnf("shutdown: %v", err)
	}
}

// loadGrid 未指定地图时使用内置竞技场
func loadGrid(path string) (*world.Grid, error) {
	if path == "" {
		return world.DefaultGrid(), nil
	}
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	return world.LoadTMX(os.DirFS(dir), name)
}
