package statestore

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"purchasekit/internal/settings"
	"purchasekit/internal/types"
)

const pendingStorePaymentKey = "purchasekit:pending_store_payment"

// Store persists the coordinator's pending store payment snapshot so a
// store-initiated prompt that arrived before the application was ready
// survives a process restart. Purchase history is never persisted here.
type Store struct {
	client *redis.Client
	ctx    context.Context
}

// New connects to Redis and verifies the connection.
func New(cfg settings.RedisConfig) (*Store, error) {
	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx := context.Background()

	_, err := rdb.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Printf("Connected to Redis at %s", addr)

	return &Store{client: rdb, ctx: ctx}, nil
}

// SavePendingStorePayment overwrites the snapshot.
func (s *Store) SavePendingStorePayment(pending *types.PendingStorePayment) error {
	if pending == nil {
		return fmt.Errorf("nil pending store payment")
	}
	data, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("failed to marshal pending store payment: %w", err)
	}
	if err := s.client.Set(s.ctx, pendingStorePaymentKey, string(data), 0).Err(); err != nil {
		return fmt.Errorf("failed to save pending store payment: %w", err)
	}
	return nil
}

// LoadPendingStorePayment returns the snapshot, or nil when none is stored.
func (s *Store) LoadPendingStorePayment() (*types.PendingStorePayment, error) {
	val, err := s.client.Get(s.ctx, pendingStorePaymentKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pending store payment: %w", err)
	}
	var pending types.PendingStorePayment
	if err := json.Unmarshal([]byte(val), &pending); err != nil {
		return nil, fmt.Errorf("failed to parse pending store payment: %w", err)
	}
	return &pending, nil
}

// ClearPendingStorePayment drops the snapshot.
func (s *Store) ClearPendingStorePayment() error {
	return s.client.Del(s.ctx, pendingStorePaymentKey).Err()
}

// HealthCheck pings Redis with a short timeout.
func (s *Store) HealthCheck() error {
	ctx, cancel := context.WithTimeout(s.ctx, 2*time.Second)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

// Close releases the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
