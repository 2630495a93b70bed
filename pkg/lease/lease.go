package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/atc-endorsement-api/pkg/errors"
)

// Client is the subset of redis commands the locker needs.
type Client interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// releaseScript deletes the lease only when the caller still owns it, so a
// run that outlived its TTL cannot release a successor's lease.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`

// Locker provides named time-boxed advisory locks with a strict
// skip-if-busy policy: a task whose lease is held is skipped, never queued.
type Locker struct {
	client Client
	logger *zap.Logger
}

// NewLocker constructs a Locker.
func NewLocker(client Client, logger *zap.Logger) *Locker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Locker{client: client, logger: logger}
}

// Lease is a held lock. Release it when the task run completes.
type Lease struct {
	locker *Locker
	key    string
	token  string
}

// Acquire takes the lease for the named task. It returns ErrLeaseBusy when
// another run holds it, and wraps infrastructure failures as internal errors.
func (l *Locker) Acquire(ctx context.Context, task string, ttl time.Duration) (*Lease, error) {
	key := "lease:" + task
	token := fmt.Sprintf("%d", time.Now().UnixNano())

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "acquire lease "+task)
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrLeaseBusy, "lease held for task "+task)
	}

	return &Lease{locker: l, key: key, token: token}, nil
}

// Release frees the lease. Failures are logged only; the TTL bounds the
// damage of a leaked lease.
func (le *Lease) Release(ctx context.Context) {
	if le == nil {
		return
	}
	if err := le.locker.client.Eval(ctx, releaseScript, []string{le.key}, le.token).Err(); err != nil {
		le.locker.logger.Warn("lease release failed", zap.String("key", le.key), zap.Error(err))
	}
}
