package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/loyala/internal/config"
)

const keyScanStore = "scan:store:%s"

// ScanLimiter throttles stamp scans per store. Kiosks replay QR scans
// aggressively on flaky networks, so the bucket absorbs short bursts
// while capping the sustained rate.
type ScanLimiter struct {
	enabled bool

	bucket *TokenBucket

	scanRate  float64
	scanBurst int
}

func NewScanLimiter(cfg config.Config) (*ScanLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.ScanRate <= 0 || limitCfg.ScanBurst <= 0 {
		return nil, errors.New("scan rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &ScanLimiter{
		enabled:   true,
		bucket:    NewTokenBucket(client),
		scanRate:  limitCfg.ScanRate,
		scanBurst: limitCfg.ScanBurst,
	}, nil
}

func (l *ScanLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *ScanLimiter) AllowStore(ctx context.Context, storeID string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyScanStore, strings.TrimSpace(storeID)), l.scanRate, l.scanBurst)
}
