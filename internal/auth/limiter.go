package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// LimitPolicy はログイン試行制限の設定です。
type LimitPolicy struct {
	MaxAttempts  int
	Window       time.Duration
	LockDuration time.Duration
}

// AttemptLimiter はクライアント単位でログイン失敗を数え、上限に達したらロックします。
type AttemptLimiter interface {
	// CheckLock はロック中なら残り時間を返します。ロックされていなければ 0 です。
	CheckLock(ctx context.Context, key string) (time.Duration, error)
	// RecordFailure は失敗を1回記録し、ロックまでの残り回数を返します。
	RecordFailure(ctx context.Context, key string) (int, error)
	// Reset は失敗回数とロックを消去します。
	Reset(ctx context.Context, key string) error
}

type attemptState struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

// sweepInterval 回の失敗記録ごとに期限切れの状態をまとめて削除します。
const sweepInterval = 256

// MemoryLimiter はプロセス内で試行回数を管理します。
// 期間もロックも過ぎた状態は参照時と定期的な掃除で削除されます。
type MemoryLimiter struct {
	policy     LimitPolicy
	now        func() time.Time
	sweepEvery int
	recorded   int
	lock       sync.Mutex
	attempts   map[string]*attemptState
}

// NewMemoryLimiter は MemoryLimiter を作成します。
func NewMemoryLimiter(policy LimitPolicy) *MemoryLimiter {
	return &MemoryLimiter{
		policy:     policy,
		now:        time.Now,
		sweepEvery: sweepInterval,
		attempts:   make(map[string]*attemptState),
	}
}

// stale は state がロック中でなく、数える期間も過ぎているかを返します。
func (l *MemoryLimiter) stale(state *attemptState, now time.Time) bool {
	return !now.Before(state.lockedUntil) && now.Sub(state.firstAttempt) > l.policy.Window
}

func (l *MemoryLimiter) sweep(now time.Time) {
	for key, state := range l.attempts {
		if l.stale(state, now) {
			delete(l.attempts, key)
		}
	}
}

func (l *MemoryLimiter) CheckLock(ctx context.Context, key string) (time.Duration, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	state, ok := l.attempts[key]
	if !ok {
		return 0, nil
	}
	now := l.now()
	if l.stale(state, now) {
		delete(l.attempts, key)
		return 0, nil
	}
	if !now.Before(state.lockedUntil) {
		return 0, nil
	}
	return state.lockedUntil.Sub(now), nil
}

func (l *MemoryLimiter) RecordFailure(ctx context.Context, key string) (int, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	now := l.now()
	l.recorded++
	if l.recorded%l.sweepEvery == 0 {
		l.sweep(now)
	}

	state, ok := l.attempts[key]
	if !ok || now.Sub(state.firstAttempt) > l.policy.Window {
		state = &attemptState{firstAttempt: now}
		l.attempts[key] = state
	}

	state.count++
	if state.count >= l.policy.MaxAttempts {
		state.lockedUntil = now.Add(l.policy.LockDuration)
		// ロック明けは新しい期間として数え直す
		state.count = 0
		state.firstAttempt = state.lockedUntil
	}

	return remaining(l.policy, state.count, !state.lockedUntil.IsZero() && now.Before(state.lockedUntil)), nil
}

func (l *MemoryLimiter) Reset(ctx context.Context, key string) error {
	l.lock.Lock()
	defer l.lock.Unlock()
	delete(l.attempts, key)
	return nil
}

const (
	failKeyPrefix = "login:fail:"
	lockKeyPrefix = "login:lock:"
)

// RedisLimiter は試行回数を Redis に保存し、複数プロセスで共有します。
type RedisLimiter struct {
	rdb    *redis.Client
	policy LimitPolicy
}

// NewRedisLimiter は RedisLimiter を作成します。
func NewRedisLimiter(rdb *redis.Client, policy LimitPolicy) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, policy: policy}
}

func (l *RedisLimiter) CheckLock(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := l.rdb.PTTL(ctx, lockKeyPrefix+key).Result()
	if err != nil {
		return 0, fmt.Errorf("check login lock: %w", err)
	}
	if ttl <= 0 {
		return 0, nil
	}
	return ttl, nil
}

func (l *RedisLimiter) RecordFailure(ctx context.Context, key string) (int, error) {
	failKey := failKeyPrefix + key
	count, err := l.rdb.Incr(ctx, failKey).Result()
	if err != nil {
		return 0, fmt.Errorf("record login failure: %w", err)
	}
	if count == 1 {
		if err := l.rdb.PExpire(ctx, failKey, l.policy.Window).Err(); err != nil {
			return 0, fmt.Errorf("set failure window: %w", err)
		}
	}
	if int(count) < l.policy.MaxAttempts {
		return remaining(l.policy, int(count), false), nil
	}

	_, err = l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, lockKeyPrefix+key, count, l.policy.LockDuration)
		pipe.Del(ctx, failKey)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("lock login: %w", err)
	}
	return 0, nil
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.rdb.Del(ctx, failKeyPrefix+key, lockKeyPrefix+key).Err()
}

func remaining(policy LimitPolicy, count int, locked bool) int {
	if locked {
		return 0
	}
	left := policy.MaxAttempts - count
	if left < 0 {
		left = 0
	}
	return left
}
