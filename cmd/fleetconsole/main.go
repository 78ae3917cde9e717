package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"fleetconsole/config"
	"fleetconsole/engine"
	"fleetconsole/messaging"
	"fleetconsole/store"
	"fleetconsole/telemetry"
	"fleetconsole/www"
)

var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "fleetconsole.yaml", "path to config file")
	flag.Parse()

	if *showVersion {
		fmt.Println("fleetconsole", Version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Database
	db, err := store.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	log.Printf("fleetconsole: database open (%s)", cfg.Database.Driver)

	// Seed the registry with the configured fleet; robots heard on the
	// wire but missing from config register themselves later.
	for _, robotID := range cfg.Fleet.Robots {
		if err := db.RegisterRobot(robotID, robotID); err != nil {
			log.Printf("fleetconsole: register %s: %v", robotID, err)
		}
	}

	// Redis mirror (optional)
	var mirror *telemetry.Mirror
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("fleetconsole: redis not available (%v), running without mirror", err)
		} else {
			log.Printf("fleetconsole: redis connected (%s)", cfg.Redis.Address)
			mirror = telemetry.NewMirror(redisClient)
		}
		cancel()
		defer redisClient.Close()
	}

	// Telemetry cache covers configured robots plus any already registered.
	knownRobots := cfg.Fleet.Robots
	if ids, err := db.ListEnabledRobotIDs(); err == nil {
		knownRobots = mergeRobotIDs(cfg.Fleet.Robots, ids)
	}
	cache := telemetry.NewCache(knownRobots, cfg.Fleet.ExpectedChannels)

	// Messaging client and outbound commander
	msgClient := messaging.NewClient(&cfg.Messaging)
	defer msgClient.Close()
	commander := messaging.NewCommander(msgClient, db)

	// Engine
	eng := engine.New(engine.Config{
		AppConfig:  cfg,
		ConfigPath: *configPath,
		DB:         db,
		Cache:      cache,
		Mirror:     mirror,
		Commander:  commander,
	})
	eng.Start()
	defer eng.Stop()

	// Inbound telemetry
	sub := messaging.NewSubscriber(msgClient, eng)
	if err := sub.Start(); err != nil {
		log.Printf("fleetconsole: telemetry subscribe failed (%v), will retry on reconnect", err)
	} else {
		log.Printf("fleetconsole: telemetry flowing (%s)", cfg.Messaging.Backend)
	}

	// Outbox drainer retries commands that failed to publish.
	drainer := messaging.NewOutboxDrainer(db, msgClient, cfg.Messaging.OutboxDrainInterval)
	drainer.Start()
	defer drainer.Stop()

	// Web server
	handler, stopWeb := www.NewRouter(eng)

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		log.Printf("fleetconsole: web server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("web server: %v", err)
		}
	}()

	log.Printf("fleetconsole: ready")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("fleetconsole: shutting down...")
	stopWeb()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	log.Printf("fleetconsole: stopped")
}

func mergeRobotIDs(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, list := range [][]string{a, b} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
