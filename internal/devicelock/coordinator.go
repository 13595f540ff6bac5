// Package devicelock implements a device lock coordinator:
// exclusive-ownership tokens for host-attached devices across
// concurrent clients. The default backend is a process-local map,
// valid only for the lifetime of the host process; DistributedCoordinator
// extends it for hosts load-balanced behind the same server.
package devicelock

import (
	"sync"

	"github.com/virtualpytest/core/internal/metrics"
)

// Coordinator is a process-local map of device key to the session id
// that currently owns it.
type Coordinator struct {
	mu      sync.Mutex
	locks   map[string]string // device_key -> session_id
	metrics *metrics.Recorder
}

// New returns an empty Coordinator.
func New(m *metrics.Recorder) *Coordinator {
	return &Coordinator{locks: make(map[string]string), metrics: m}
}

// IsDeviceLocked reports whether deviceKey currently has an owner.
func (c *Coordinator) IsDeviceLocked(deviceKey string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.locks[deviceKey]
	return ok
}

// LockDevice attempts to acquire deviceKey for sessionID. It returns
// true iff no lock existed, setting the lock atomically with the check
// ( invariant: a second concurrent LockDevice for any
// other session id must observe false until UnlockDevice succeeds).
func (c *Coordinator) LockDevice(deviceKey, sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, held := c.locks[deviceKey]; held {
		return false
	}
	c.locks[deviceKey] = sessionID
	if c.metrics != nil {
		c.metrics.SetDevicesLocked(len(c.locks))
	}
	return true
}

// UnlockDevice releases deviceKey only if its current holder is
// sessionID; otherwise it is a silent no-op, preventing one client from
// releasing another's lock.
func (c *Coordinator) UnlockDevice(deviceKey, sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if held, ok := c.locks[deviceKey]; ok && held == sessionID {
		delete(c.locks, deviceKey)
		if c.metrics != nil {
			c.metrics.SetDevicesLocked(len(c.locks))
		}
	}
}

// Owner returns the session id currently holding deviceKey, or "" if
// unlocked. Exposed for diagnostics and for the watchdog described in
// ("stale locks"), not part of the core contract itself.
func (c *Coordinator) Owner(deviceKey string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.locks[deviceKey]
}
