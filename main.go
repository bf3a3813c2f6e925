package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"datachat/config"
	"datachat/logger"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON config file")
	listenAddr := flag.String("listen", "", "listen address, overrides the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}

	l := logger.NewLogger()
	if cfg.LogDir != "" {
		if err := l.Init(cfg.LogDir); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to initialize log file: %v\n", err)
			os.Exit(1)
		}
	}
	defer l.Close()

	l.Logf("[STARTUP] Provider: %s, model: %s", cfg.LLMProvider, cfg.ModelName)
	l.Logf("[STARTUP] Artifact directory: %s", cfg.ArtifactDir)

	app, err := NewApp(context.Background(), cfg, l)
	if err != nil {
		l.Errorf("[STARTUP] %v", err)
		os.Exit(1)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", cfg.MaxUploadMB)))

	NewServer(app).RegisterRoutes(e)

	go func() {
		if err := e.Start(cfg.ListenAddr); err != nil && err != http.ErrServerClosed {
			l.Errorf("[STARTUP] Server failed: %v", err)
			os.Exit(1)
		}
	}()
	l.Logf("[STARTUP] Listening on %s", cfg.ListenAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Log("[SHUTDOWN] Stopping server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		l.Errorf("[SHUTDOWN] Failed to stop gracefully: %v", err)
	}
	l.Log("[SHUTDOWN] Server stopped")
}
