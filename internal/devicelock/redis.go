package devicelock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// unlockScript performs a compare-and-delete: only the session that
// currently holds the lock may release it, done atomically so a
// concurrent LockDevice from a third party can't race between the GET
// and the DEL.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)

// DistributedCoordinator backs the same LockDevice/UnlockDevice
// contract with Redis, so a lock acquired on one host process behind a
// shared server is visible to another. Lock entries are still
// transient: they expire after ttl even if the holding process crashes
// without releasing, standing in for a watchdog that would otherwise
// have to expire stale locks itself.
type DistributedCoordinator struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewDistributed returns a DistributedCoordinator backed by client.
func NewDistributed(client *redis.Client, ttl time.Duration) *DistributedCoordinator {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &DistributedCoordinator{client: client, prefix: "vpt:devicelock:", ttl: ttl}
}

func (d *DistributedCoordinator) key(deviceKey string) string {
	return d.prefix + deviceKey
}

// IsDeviceLocked reports whether deviceKey currently has an owner.
func (d *DistributedCoordinator) IsDeviceLocked(ctx context.Context, deviceKey string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(deviceKey)).Result()
	if err != nil {
		return false, fmt.Errorf("devicelock: exists: %w", err)
	}
	return n > 0, nil
}

// LockDevice attempts to acquire deviceKey for sessionID using SETNX
// semantics, returning true iff the lock was newly acquired.
func (d *DistributedCoordinator) LockDevice(ctx context.Context, deviceKey, sessionID string) (bool, error) {
	ok, err := d.client.SetNX(ctx, d.key(deviceKey), sessionID, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("devicelock: setnx: %w", err)
	}
	return ok, nil
}

// UnlockDevice releases deviceKey only if sessionID is the current
// holder, atomically.
func (d *DistributedCoordinator) UnlockDevice(ctx context.Context, deviceKey, sessionID string) error {
	if err := unlockScript.Run(ctx, d.client, []string{d.key(deviceKey)}, sessionID).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("devicelock: unlock script: %w", err)
	}
	return nil
}

// Owner returns the session id currently holding deviceKey, or "" if
// unlocked.
func (d *DistributedCoordinator) Owner(ctx context.Context, deviceKey string) (string, error) {
	v, err := d.client.Get(ctx, d.key(deviceKey)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("devicelock: get: %w", err)
	}
	return v, nil
}
