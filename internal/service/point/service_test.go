package point

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamledger/vms-api/internal/model"
	apperrors "github.com/streamledger/vms-api/pkg/errors"
	"github.com/streamledger/vms-api/pkg/logger"
	"github.com/streamledger/vms-api/pkg/metrics"
	"github.com/streamledger/vms-api/pkg/redlock"
)

var testMetrics = metrics.New("point_test")

type fakeConn struct {
	mu   sync.Mutex
	keys map[string]string
}

func newFakeConn() *fakeConn {
	return &fakeConn{keys: make(map[string]string)}
}

func (f *fakeConn) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, held := f.keys[key]; held {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeConn) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys[keys[0]] == args[0].(string) {
		delete(f.keys, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func (f *fakeConn) held(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.keys[key]
	return ok
}

type fakeLedger struct {
	mu      sync.Mutex
	err     error
	created []*model.UserVideoPoint
}

func (f *fakeLedger) Create(ctx context.Context, point *model.UserVideoPoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	point.ID = int64(len(f.created) + 1)
	f.created = append(f.created, point)
	return nil
}

func newTestService(t *testing.T, conn *fakeConn, ledger *fakeLedger) *Service {
	t.Helper()
	locks, err := redlock.NewManager([]redlock.Conn{conn}, redlock.Config{
		TTL:        time.Second,
		RetryDelay: time.Millisecond,
	}, logger.NewLogger(nil))
	require.NoError(t, err)
	return NewService(ledger, locks, testMetrics, logger.NewLogger(nil))
}

func TestAwardViewPoint(t *testing.T) {
	conn := newFakeConn()
	ledger := &fakeLedger{}
	svc := newTestService(t, conn, ledger)

	award, err := svc.AwardViewPoint(context.Background(), 7, 42)
	require.NoError(t, err)

	assert.Equal(t, int64(7), award.UserID)
	assert.Equal(t, int64(42), award.VideoID)
	assert.Equal(t, model.DefaultViewPoint, award.Point)
	require.Len(t, ledger.created, 1)

	// The lock must be gone so the next view can proceed.
	assert.False(t, conn.held("user_id:7:video:42:lock"))
}

func TestRepeatViewsKeepAwarding(t *testing.T) {
	conn := newFakeConn()
	ledger := &fakeLedger{}
	svc := newTestService(t, conn, ledger)

	for i := 0; i < 3; i++ {
		_, err := svc.AwardViewPoint(context.Background(), 7, 42)
		require.NoError(t, err)
	}
	assert.Len(t, ledger.created, 3)
}

func TestHeldLockReportsRateLimited(t *testing.T) {
	conn := newFakeConn()
	conn.keys["user_id:7:video:42:lock"] = "someone-else"
	svc := newTestService(t, conn, &fakeLedger{})

	_, err := svc.AwardViewPoint(context.Background(), 7, 42)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrRateLimited, appErr.Code)
}

func TestLockReleasedWhenInsertFails(t *testing.T) {
	conn := newFakeConn()
	ledger := &fakeLedger{err: errors.New("db down")}
	svc := newTestService(t, conn, ledger)

	_, err := svc.AwardViewPoint(context.Background(), 7, 42)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrRateLimited, appErr.Code)

	assert.False(t, conn.held("user_id:7:video:42:lock"))
}

func TestDifferentPairsDoNotContend(t *testing.T) {
	conn := newFakeConn()
	ledger := &fakeLedger{}
	svc := newTestService(t, conn, ledger)

	var wg sync.WaitGroup
	for i := int64(1); i <= 4; i++ {
		wg.Add(1)
		go func(videoID int64) {
			defer wg.Done()
			_, err := svc.AwardViewPoint(context.Background(), 7, videoID)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Len(t, ledger.created, 4)
}
