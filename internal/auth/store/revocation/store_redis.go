package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var revocationCheckSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "petcare_trl_check_duration_seconds",
	Help:    "Latency of revocation list lookups against Redis.",
	Buckets: []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025},
})

const jtiKeyPrefix = "petcare:trl:jti:"

// RedisTRL is the revocation list shared by every server instance. Keys
// expire together with the token they revoke.
type RedisTRL struct {
	client *redis.Client
}

func NewRedisTRL(client *redis.Client) *RedisTRL {
	return &RedisTRL{client: client}
}

func jtiKey(jti string) string { return jtiKeyPrefix + jti }

func (t *RedisTRL) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	if err := t.client.Set(ctx, jtiKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke %s: %w", jti, err)
	}
	return nil
}

// IsRevoked reports false for unknown or expired entries.
func (t *RedisTRL) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	timer := prometheus.NewTimer(revocationCheckSeconds)
	defer timer.ObserveDuration()

	n, err := t.client.Exists(ctx, jtiKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return n > 0, nil
}
