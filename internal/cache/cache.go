// Package cache holds time-boxed aggregate results keyed by user and day.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"
)

// DefaultTTL is how long a daily aggregate stays fresh
const DefaultTTL = time.Hour

// Cache stores opaque payloads with a TTL. Get reports false on a miss or
// an expired entry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// BriefingKey is the cache key for a user's briefing on day (YYYY-MM-DD)
func BriefingKey(userID, day string) string {
	return fmt.Sprintf("briefing:%s:%s", userID, day)
}

// Options select and configure the backend
type Options struct {
	ValkeyEnabled bool
	ValkeyAddr    string
	Prefix        string
}

// New builds a Valkey cache when enabled and reachable, otherwise an
// in-memory cache.
func New(opts Options, logger *slog.Logger) Cache {
	if !opts.ValkeyEnabled {
		return NewMemoryCache(nil)
	}
	opt, err := valkeyOptions(opts.ValkeyAddr)
	if err != nil {
		logger.Error("invalid valkey configuration, falling back to memory cache", "error", err)
		return NewMemoryCache(nil)
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, falling back to memory cache", "error", err)
		return NewMemoryCache(nil)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, falling back to memory cache", "error", err)
		client.Close()
		return NewMemoryCache(nil)
	}
	logger.Info("valkey cache enabled", "addr", opts.ValkeyAddr)
	return NewValkeyCache(client, opts.Prefix)
}

func valkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	if addr == "" {
		return valkey.ClientOption{}, fmt.Errorf("valkey address is empty")
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}
