package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gogpu/gg"

	"github.com/ashtrail/devtools/internal/backend"
	"github.com/ashtrail/devtools/internal/config"
	"github.com/ashtrail/devtools/internal/inspector"
	"github.com/ashtrail/devtools/internal/server"
	"github.com/ashtrail/devtools/internal/storage"
	"github.com/ashtrail/devtools/internal/texload"
)

func main() {
	log.Println("=== STARTING ASHTRAIL DEVTOOLS ===")
	gg.SetLogger(slog.Default())

	cfg := config.Load()
	api := backend.New(cfg.BackendURL)

	// Init session
	log.Println("Creating inspector session...")
	var session *inspector.Session
	if cfg.Demo {
		log.Printf("Demo mode, planets seeded from %d", cfg.DemoSeed)
		demo := inspector.NewDemo(cfg.DemoSeed)
		session = inspector.NewSession(demo, demo, demo)
	} else {
		loader := texload.New(cfg.BackendURL)
		loader.Logf = log.Printf
		if !cfg.NoCache {
			cache := storage.NewSnapshotCache(cfg.DataDir)
			loader.Cache = cache
			log.Printf("Texture cache at %s", cache.Dir)
			defer func() {
				if err := cache.Clear(); err != nil {
					log.Println("Texture cache cleanup failed:", err)
				}
			}()
		}
		session = inspector.NewSession(loader, api, api)
	}
	defer session.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start broadcaster in background
	log.Println("Starting broadcaster...")
	broadcaster := inspector.NewBroadcaster(session, cfg.FrameInterval)
	go broadcaster.Run(ctx)

	if cfg.Demo {
		go func() {
			if err := session.Reload(ctx, texload.Source{PlanetID: "demo", BaseTextureURL: "synth://demo"}); err != nil {
				log.Println("Demo load failed:", err)
			}
		}()
	}

	// Setup and start server
	log.Println("Setting up router...")
	r := server.SetupRouter(server.NewApp(session, broadcaster, api))
	srv := &http.Server{Addr: cfg.Addr(), Handler: r}
	go func() {
		<-ctx.Done()
		log.Println("=== SHUTTING DOWN ===")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Println("Shutdown error:", err)
		}
	}()

	log.Printf("Server starting at port %s (backend %s)", cfg.Port, cfg.BackendURL)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("Server failed:", err)
	}
}
