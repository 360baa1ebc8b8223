package export

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brawlstats/statsagg/internal/models"
)

// Redis keys used by RedisNotifier.
const (
	ManifestKey      = "statsagg:manifest"
	PublishedChannel = "statsagg:published"
)

// RedisNotifier stores the latest manifest in a hash and announces the run id on a
// pub/sub channel.
type RedisNotifier struct {
	client *redis.Client
}

// NewRedisNotifier creates a RedisNotifier.
func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

// NewRedisNotifierFromURL parses a redis:// URL and creates a RedisNotifier.
func NewRedisNotifierFromURL(url string) (*RedisNotifier, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisNotifier(redis.NewClient(opts)), nil
}

func (n *RedisNotifier) Notify(ctx context.Context, m *models.Manifest) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	pipe := n.client.TxPipeline()
	pipe.HSet(ctx, ManifestKey,
		"run_id", m.RunID,
		"generated_at", m.GeneratedAt.UTC().Format(time.RFC3339),
		"since", m.Since,
		"manifest", payload,
	)
	pipe.Publish(ctx, PublishedChannel, m.RunID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis notify: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (n *RedisNotifier) Close() error { return n.client.Close() }
