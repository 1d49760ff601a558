package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"

	"roulette/internal/game"
)

const (
	REDIS_KEY_USER_BALANCE = "roulette:balance:"
	REDIS_KEY_SNAPSHOT     = "roulette:snapshot:"
	SNAPSHOT_TTL           = 1 * time.Hour
)

type Service interface {
	game.BalanceStore
	GetClient() *redis.Client
	SaveSnapshot(ctx context.Context, userID string, snap game.SpinSnapshot) error
	LoadSnapshot(ctx context.Context, userID string) (*game.SpinSnapshot, error)
	Health() map[string]string
	Close() error
}

type service struct {
	client *redis.Client
}

var (
	redisAddr     = getEnv("REDIS_URL", "localhost:6379")
	redisPassword = getEnv("REDIS_PASSWORD", "")
	redisDB       = getEnvAsInt("REDIS_DB", 0)
	cacheInstance *service
)

func New() Service {
	if cacheInstance != nil {
		return cacheInstance
	}

	client := redis.NewClient(&redis.Options{
		Addr:         redisAddr,
		Password:     redisPassword,
		DB:           redisDB,
		PoolSize:     100,
		MinIdleConns: 10,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Printf("[CACHE] Redis connection failed: %v", err)
		log.Println("[CACHE] Running without Redis cache")
		return nil
	}

	log.Println("[CACHE] Redis connected successfully")

	cacheInstance = &service{
		client: client,
	}

	return cacheInstance
}

// NewWithClient wraps an existing client, bypassing the shared instance.
func NewWithClient(client *redis.Client) Service {
	return &service{client: client}
}

func (s *service) GetClient() *redis.Client {
	return s.client
}

// LoadBalance reports found=false when the player has no stored balance.
func (s *service) LoadBalance(ctx context.Context, userID string) (int, bool, error) {
	balance, err := s.client.Get(ctx, REDIS_KEY_USER_BALANCE+userID).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get balance: %w", err)
	}
	return balance, true, nil
}

func (s *service) SaveBalance(ctx context.Context, userID string, balance int) error {
	if err := s.client.Set(ctx, REDIS_KEY_USER_BALANCE+userID, balance, 0).Err(); err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	return nil
}

func (s *service) SaveSnapshot(ctx context.Context, userID string, snap game.SpinSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, REDIS_KEY_SNAPSHOT+userID, data, SNAPSHOT_TTL).Err()
}

// LoadSnapshot returns nil without error when nothing is cached.
func (s *service) LoadSnapshot(ctx context.Context, userID string) (*game.SpinSnapshot, error) {
	data, err := s.client.Get(ctx, REDIS_KEY_SNAPSHOT+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap game.SpinSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	_, err := s.client.Ping(ctx).Result()
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("redis down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "Redis is healthy"

	poolStats := s.client.PoolStats()
	stats["hits"] = strconv.FormatUint(uint64(poolStats.Hits), 10)
	stats["misses"] = strconv.FormatUint(uint64(poolStats.Misses), 10)
	stats["timeouts"] = strconv.FormatUint(uint64(poolStats.Timeouts), 10)
	stats["total_conns"] = strconv.FormatUint(uint64(poolStats.TotalConns), 10)
	stats["idle_conns"] = strconv.FormatUint(uint64(poolStats.IdleConns), 10)

	return stats
}

func (s *service) Close() error {
	log.Println("[CACHE] Disconnecting from Redis")
	return s.client.Close()
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
