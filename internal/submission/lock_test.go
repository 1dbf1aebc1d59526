package submission

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeyedLockSerializesKey(t *testing.T) {
	k := newKeyedLock()
	release, err := k.acquire(t.Context(), "a")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		r, err := k.acquire(context.Background(), "a")
		if err == nil {
			close(acquired)
			r()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a held key")
	case <-time.After(30 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the released key")
	}
	require.Eventually(t, func() bool { return k.size() == 0 }, time.Second, 5*time.Millisecond)
}

func TestKeyedLockIndependentKeys(t *testing.T) {
	k := newKeyedLock()
	ra, err := k.acquire(t.Context(), "a")
	require.NoError(t, err)
	rb, err := k.acquire(t.Context(), "b")
	require.NoError(t, err)
	require.Equal(t, 2, k.size())
	ra()
	rb()
	require.Zero(t, k.size())
}

func TestKeyedLockWaitHonorsContext(t *testing.T) {
	k := newKeyedLock()
	release, err := k.acquire(t.Context(), "a")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	_, err = k.acquire(ctx, "a")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, k.size())
}

func TestKeyedLockReleaseIsIdempotent(t *testing.T) {
	k := newKeyedLock()
	release, err := k.acquire(t.Context(), "a")
	require.NoError(t, err)
	release()
	release()
	require.Zero(t, k.size())

	again, err := k.acquire(t.Context(), "a")
	require.NoError(t, err)
	again()
}
