package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mamadbah2/stockmetrics/internal/config"
)

// ErrLockNotObtained is returned when the key stays held for the whole wait.
var ErrLockNotObtained = errors.New("metrics lock not obtained")

// Locker holds one Redis lock per key so only one process computes a given
// (business, period) at a time.
type Locker struct {
	client *goredis.Client
	locker *redislock.Client
	ttl    time.Duration
	retry  time.Duration
	logger *zap.Logger
}

// NewLocker connects to Redis and verifies the connection.
func NewLocker(ctx context.Context, cfg config.RedisConfig, ttl time.Duration, logger *zap.Logger) (*Locker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis %s: %w", cfg.Address, err)
	}

	return newLocker(client, ttl, logger), nil
}

func newLocker(client *goredis.Client, ttl time.Duration, logger *zap.Logger) *Locker {
	return &Locker{
		client: client,
		locker: redislock.New(client),
		ttl:    ttl,
		retry:  250 * time.Millisecond,
		logger: logger,
	}
}

// Lock obtains key, retrying until the TTL elapses or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	attempts := int(l.ttl / l.retry)
	opts := &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(l.retry), attempts),
	}

	lock, err := l.locker.Obtain(ctx, key, l.ttl, opts)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrLockNotObtained, key)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(lock, key, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done

			// Release with a fresh context so a cancelled run still frees the key.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := lock.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				l.logger.Warn("failed to release metrics lock", zap.String("key", key), zap.Error(err))
			}
		})
	}, nil
}

// keepAlive extends lock every half TTL until stop is closed.
func (l *Locker) keepAlive(lock *redislock.Lock, key string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), l.ttl/2)
			err := lock.Refresh(ctx, l.ttl, nil)
			cancel()
			if err != nil {
				l.logger.Warn("failed to refresh metrics lock", zap.String("key", key), zap.Error(err))
				if errors.Is(err, redislock.ErrNotObtained) {
					return
				}
			}
		}
	}
}

// Close closes the Redis connection.
func (l *Locker) Close() error {
	return l.client.Close()
}
