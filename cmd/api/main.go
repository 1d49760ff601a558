package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"roulette/internal/database"
	"roulette/internal/game"
	"roulette/internal/server"
)

func gracefulShutdown(fiberServer *server.FiberServer, done chan bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")
	stop()

	if err := fiberServer.Shutdown(); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")
	done <- true
}

func main() {
	cfg := tableConfigFromEnv()

	if getEnv("RUN_MIGRATIONS", "") != "" {
		db := database.New()
		if err := database.RunMigrations(db.DB(), getEnv("MIGRATIONS_PATH", "./migrations")); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
	}

	srv := server.New(cfg)
	srv.RegisterFiberRoutes()

	done := make(chan bool, 1)

	go func() {
		port := getEnvAsInt("PORT", 8080)
		if err := srv.Listen(fmt.Sprintf(":%d", port)); err != nil {
			log.Fatalf("http server error: %s", err)
		}
	}()

	go gracefulShutdown(srv, done)

	<-done
	log.Println("Graceful shutdown complete.")
}

func tableConfigFromEnv() game.TableConfig {
	cfg := game.DefaultTableConfig()

	if rate := getEnvAsInt("ROULETTE_TICK_RATE", game.DEFAULT_TICK_RATE); rate > 0 {
		cfg.TickInterval = time.Second / time.Duration(rate)
	}
	cfg.BroadcastEvery = getEnvAsInt("ROULETTE_BROADCAST_EVERY", game.DEFAULT_BROADCAST_EVERY)
	cfg.InitialBalance = getEnvAsInt("ROULETTE_INITIAL_BALANCE", game.DEFAULT_INITIAL_BALANCE)
	cfg.IdleTimeout = time.Duration(getEnvAsInt("ROULETTE_IDLE_TIMEOUT_SECONDS", int(game.DEFAULT_IDLE_TIMEOUT/time.Second))) * time.Second

	if err := cfg.Physics.Validate(); err != nil {
		log.Fatalf("Invalid physics configuration: %v", err)
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
