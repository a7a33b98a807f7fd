package redlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/streamledger/vms-api/pkg/logger"
)

// ErrLockUnavailable is returned when a quorum of coordinators could not
// grant the lock within the retry budget.
var ErrLockUnavailable = errors.New("lock unavailable")

// releaseScript deletes the key only if it still holds our token, so an
// expired lock re-acquired by someone else is never released by us.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// Conn is the command subset the lock manager needs from one coordinator.
// *redis.Client satisfies it.
type Conn interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// Lock is a handle to an acquired lock.
type Lock struct {
	Key   string
	token string
	until time.Time
}

// Until reports when the lock's TTL elapses on the coordinators.
func (l *Lock) Until() time.Time { return l.until }

type Config struct {
	// TTL bounds the worst-case hold time; it must exceed the expected
	// critical section duration with margin for coordinator latency.
	TTL        time.Duration
	Retries    int
	RetryDelay time.Duration
}

// Manager acquires named locks against a set of redundant coordinators.
// A lock is held once a majority of coordinators accepted the key.
type Manager struct {
	conns      []Conn
	ttl        time.Duration
	retries    int
	retryDelay time.Duration
	logger     *logger.Logger
}

func NewManager(conns []Conn, cfg Config, log *logger.Logger) (*Manager, error) {
	if len(conns) == 0 {
		return nil, errors.New("redlock: at least one coordinator is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 200 * time.Millisecond
	}
	return &Manager{
		conns:      conns,
		ttl:        cfg.TTL,
		retries:    cfg.Retries,
		retryDelay: cfg.RetryDelay,
		logger:     log,
	}, nil
}

func (m *Manager) quorum() int {
	return len(m.conns)/2 + 1
}

// Acquire grants the named lock if a quorum of coordinators accepts it
// before the TTL drifts away. Unreachable coordinators count as refusals.
func (m *Manager) Acquire(ctx context.Context, key string) (*Lock, error) {
	token := uuid.NewString()

	for attempt := 0; attempt <= m.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("lock acquisition cancelled: %w", ctx.Err())
			case <-time.After(m.retryDelay):
			}
		}

		start := time.Now()
		granted := 0
		for _, conn := range m.conns {
			ok, err := conn.SetNX(ctx, key, token, m.ttl).Result()
			if err != nil {
				m.logger.ZL.Debug().Err(err).Str("key", key).Msg("lock coordinator unreachable")
				continue
			}
			if ok {
				granted++
			}
		}

		validity := m.ttl - time.Since(start)
		if granted >= m.quorum() && validity > 0 {
			return &Lock{Key: key, token: token, until: start.Add(m.ttl)}, nil
		}

		// Partial grants would block other acquirers until TTL; undo them.
		m.releaseAll(ctx, key, token)
	}

	return nil, ErrLockUnavailable
}

// Release drops the lock on every coordinator. A coordinator that cannot be
// reached keeps the key until its TTL expires, which is the safety net; the
// error is reported so the caller can log it, never escalated further.
func (m *Manager) Release(ctx context.Context, lock *Lock) error {
	if lock == nil {
		return nil
	}
	if released := m.releaseAll(ctx, lock.Key, lock.token); released < m.quorum() {
		return fmt.Errorf("lock %q released on %d/%d coordinators", lock.Key, released, len(m.conns))
	}
	return nil
}

func (m *Manager) releaseAll(ctx context.Context, key, token string) int {
	released := 0
	for _, conn := range m.conns {
		if err := conn.Eval(ctx, releaseScript, []string{key}, token).Err(); err != nil {
			m.logger.ZL.Debug().Err(err).Str("key", key).Msg("lock release failed on coordinator")
			continue
		}
		released++
	}
	return released
}
