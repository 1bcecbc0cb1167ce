package utils

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/mmdatafocus/precast_backend/config"
	"github.com/sirupsen/logrus"
)

// RedisScopeLocker serializes work per key when Redis is available.
// It is best-effort: a lock that cannot be obtained never blocks the caller.
type RedisScopeLocker struct {
	client *redislock.Client
	ttl    time.Duration
	logger *logrus.Logger
}

func NewRedisScopeLocker(client *redislock.Client, ttl time.Duration) *RedisScopeLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisScopeLocker{client: client, ttl: ttl, logger: config.GetLogger()}
}

// Lock returns a release func that is always safe to call.
func (l *RedisScopeLocker) Lock(ctx context.Context, key string) func() {
	noop := func() {}
	if l == nil || l.client == nil {
		return noop
	}
	lock, err := l.client.Obtain(ctx, "lock:"+key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 20),
	})
	if err != nil {
		msg := "error obtaining redis lock; proceeding without redis lock: " + err.Error()
		if errors.Is(err, redislock.ErrNotObtained) {
			msg = "could not obtain redis lock; proceeding without redis lock"
		}
		l.logger.WithFields(logrus.Fields{
			"field": "RedisScopeLocker",
			"key":   key,
		}).Warn(msg)
		return noop
	}
	return func() {
		if releaseErr := lock.Release(context.WithoutCancel(ctx)); releaseErr != nil && !errors.Is(releaseErr, redislock.ErrLockNotHeld) {
			l.logger.WithFields(logrus.Fields{
				"field": "RedisScopeLocker",
				"key":   key,
			}).Warn("failed to release redis lock: " + releaseErr.Error())
		}
	}
}
