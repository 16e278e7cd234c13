package registry

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var isPurgedDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "omnigest_is_subject_purged_duration_ms",
	Help:    "Latency of purge registry lookups in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

// Redis key prefix for purged subject references
const purgedSubjectKeyPrefix = "purge:subject:"

// RedisRegistry is the shared implementation for distributed deployments
// where every ingest instance must see the same purge markers.
type RedisRegistry struct {
	client *redis.Client
}

func NewRedisRegistry(client *redis.Client) *RedisRegistry {
	return &RedisRegistry{client: client}
}

// MarkPurged records the subject reference with TTL. Uses a plain SET with
// expiry; the key's existence is the marker.
func (r *RedisRegistry) MarkPurged(ctx context.Context, subjectRef string, ttl time.Duration) error {
	if subjectRef == "" {
		return nil
	}
	return r.client.Set(ctx, purgedSubjectKeyPrefix+subjectRef, "1", ttl).Err()
}

// IsPurged reports whether the subject has an unexpired purge marker.
func (r *RedisRegistry) IsPurged(ctx context.Context, subjectRef string) (bool, error) {
	start := time.Now()
	defer func() {
		isPurgedDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	if subjectRef == "" {
		return false, nil
	}
	_, err := r.client.Get(ctx, purgedSubjectKeyPrefix+subjectRef).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
