package cartstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"cart-service/internal/models"
	"cart-service/internal/util"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

//go:embed scripts/swap_cart.lua
var swapCartScript string

//go:embed scripts/clear_cart.lua
var clearCartScript string

// RedisStorage stores each cart as a JSON blob under a fixed key set
// carried over from the storefront's legacy cart layout.
type RedisStorage struct {
	rdb         *redis.Client
	prefix      string
	swapScript  *redis.Script
	clearScript *redis.Script
	logger      *zap.Logger
}

// NewRedisStorage creates a Redis-backed cart storage with Lua scripts loaded
func NewRedisStorage(addr, password string, db int, prefix string) (*RedisStorage, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStorage{
		rdb:         rdb,
		prefix:      prefix,
		swapScript:  redis.NewScript(swapCartScript),
		clearScript: redis.NewScript(clearCartScript),
		logger:      util.GetLogger(),
	}, nil
}

// Client returns the underlying Redis client
func (s *RedisStorage) Client() *redis.Client {
	return s.rdb
}

// Close closes the Redis connection
func (s *RedisStorage) Close() error {
	return s.rdb.Close()
}

func (s *RedisStorage) itemsKey(cartID string) string {
	return fmt.Sprintf("%s:cart:%s:items", s.prefix, cartID)
}

func (s *RedisStorage) versionKey(cartID string) string {
	return fmt.Sprintf("%s:cart:%s:version", s.prefix, cartID)
}

// purgeKeys is the fixed set of keys an emergency reset wipes for a cart.
func (s *RedisStorage) purgeKeys(cartID string) []string {
	return []string{
		s.itemsKey(cartID),
		s.versionKey(cartID),
		fmt.Sprintf("%s:cart:%s", s.prefix, cartID),
		fmt.Sprintf("%s:cart:%s:timestamp", s.prefix, cartID),
		fmt.Sprintf("%s:cart:%s:checksum", s.prefix, cartID),
		fmt.Sprintf("%s:cart:%s:backup", s.prefix, cartID),
		fmt.Sprintf("%s:cart:%s:validation", s.prefix, cartID),
		fmt.Sprintf("%s:guest:%s", s.prefix, cartID),
	}
}

// ReadRaw returns the raw items blob and the cart version
func (s *RedisStorage) ReadRaw(ctx context.Context, cartID string) ([]byte, int64, error) {
	pipe := s.rdb.Pipeline()
	itemsCmd := pipe.Get(ctx, s.itemsKey(cartID))
	versionCmd := pipe.Get(ctx, s.versionKey(cartID))
	_, err := pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		return nil, 0, fmt.Errorf("failed to read cart %s: %w", cartID, err)
	}

	var version int64
	if raw, err := versionCmd.Result(); err == nil {
		version, _ = strconv.ParseInt(raw, 10, 64)
	}

	data, err := itemsCmd.Bytes()
	if err == redis.Nil {
		return nil, version, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read cart %s: %w", cartID, err)
	}
	return data, version, nil
}

// WriteItems replaces the items blob via the compare-and-swap script
func (s *RedisStorage) WriteItems(ctx context.Context, cartID string, items []models.CartItem, expectedVersion int64) error {
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal cart items: %w", err)
	}

	keys := []string{s.itemsKey(cartID), s.versionKey(cartID)}
	result, err := s.swapScript.Run(ctx, s.rdb, keys, payload, expectedVersion).Result()
	if err != nil {
		return fmt.Errorf("swap cart script failed: %w", err)
	}

	if swapped, ok := result.(int64); !ok || swapped != 1 {
		return ErrVersionConflict
	}
	return nil
}

// Clear removes the items blob and bumps the version
func (s *RedisStorage) Clear(ctx context.Context, cartID string) error {
	keys := []string{s.itemsKey(cartID), s.versionKey(cartID)}
	if _, err := s.clearScript.Run(ctx, s.rdb, keys).Result(); err != nil {
		return fmt.Errorf("clear cart script failed: %w", err)
	}
	return nil
}

// Purge deletes every known cart key, best effort per key. Failures are
// logged and swallowed so the reset always completes.
func (s *RedisStorage) Purge(ctx context.Context, cartID string) (int, error) {
	cleared := 0
	for _, key := range s.purgeKeys(cartID) {
		if err := s.rdb.Del(ctx, key).Err(); err != nil {
			s.logger.Warn("Failed to purge cart key",
				zap.String("cart_id", cartID),
				zap.String("key", key),
				zap.Error(err))
			continue
		}
		cleared++
	}

	if err := s.rdb.SRem(ctx, s.activeSetKey(), cartID).Err(); err != nil {
		s.logger.Warn("Failed to drop cart from active set",
			zap.String("cart_id", cartID),
			zap.Error(err))
	}
	return cleared, nil
}

func (s *RedisStorage) activeSetKey() string {
	return fmt.Sprintf("%s:carts:active", s.prefix)
}

// ActiveCartIDs lists carts the storefront recently touched, used by the
// periodic corruption scanner.
func (s *RedisStorage) ActiveCartIDs(ctx context.Context) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, s.activeSetKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list active carts: %w", err)
	}
	return ids, nil
}
