package devicelock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/virtualpytest/core/internal/metrics"
)

func TestLockDeviceGrantsFirstSessionOnly(t *testing.T) {
	c := New(metrics.New("test"))

	assert.True(t, c.LockDevice("host:dev1", "session-a"))
	assert.False(t, c.LockDevice("host:dev1", "session-b"))
	assert.Equal(t, "session-a", c.Owner("host:dev1"))
	assert.True(t, c.IsDeviceLocked("host:dev1"))
}

func TestUnlockDeviceOnlyReleasesOwnSession(t *testing.T) {
	c := New(metrics.New("test"))
	c.LockDevice("host:dev1", "session-a")

	c.UnlockDevice("host:dev1", "session-b")
	assert.True(t, c.IsDeviceLocked("host:dev1"), "a non-owner's unlock must be a no-op")

	c.UnlockDevice("host:dev1", "session-a")
	assert.False(t, c.IsDeviceLocked("host:dev1"))
}

func TestLockDeviceAfterReleaseIsAvailableAgain(t *testing.T) {
	c := New(metrics.New("test"))
	c.LockDevice("host:dev1", "session-a")
	c.UnlockDevice("host:dev1", "session-a")

	assert.True(t, c.LockDevice("host:dev1", "session-b"))
}

func TestLockDeviceConcurrentCallersOnlyOneWins(t *testing.T) {
	c := New(metrics.New("test"))
	const attempts = 50

	var wg sync.WaitGroup
	results := make([]bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.LockDevice("host:dev1", "session")
		}(i)
	}
	wg.Wait()

	granted := 0
	for _, ok := range results {
		if ok {
			granted++
		}
	}
	assert.Equal(t, 1, granted)
}
