package timer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeoutFiresUnderLock(t *testing.T) {
	var mu sync.Mutex
	fired := make(chan struct{}, 1)

	mu.Lock()
	to := New(&mu)
	to.Arm(10*time.Millisecond, func() {
		// TryLock fails while the callback owns the lock
		assert.False(t, mu.TryLock())
		fired <- struct{}{}
	})
	require.True(t, to.Pending())
	require.False(t, to.Deadline().IsZero())
	mu.Unlock()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timeout never fired")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.False(t, to.Pending())
	assert.True(t, to.Deadline().IsZero())
}

func TestTimeoutRearmDropsPreviousCallback(t *testing.T) {
	var mu sync.Mutex
	var calls []string

	mu.Lock()
	to := New(&mu)
	to.Arm(5*time.Millisecond, func() { calls = append(calls, "first") })
	to.Arm(20*time.Millisecond, func() { calls = append(calls, "second") })
	mu.Unlock()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(calls) == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"second"}, calls)
}

func TestTimeoutCancelAfterExpiryIsStale(t *testing.T) {
	var mu sync.Mutex
	fired := false

	mu.Lock()
	to := New(&mu)
	to.Arm(time.Millisecond, func() { fired = true })
	// hold the lock past expiry so the callback is blocked, then cancel
	time.Sleep(20 * time.Millisecond)
	assert.True(t, to.Cancel())
	mu.Unlock()

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.False(t, fired)
	assert.False(t, to.Cancel())
}
