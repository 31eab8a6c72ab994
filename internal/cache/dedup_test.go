package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeduperAcquireOnce(t *testing.T) {
	d := NewDeduper(time.Hour)
	defer d.Close()

	ctx := context.Background()

	first, err := d.AcquireOnce(ctx, "msg-1")
	require.NoError(t, err)
	assert.True(t, first)

	second, err := d.AcquireOnce(ctx, "msg-1")
	require.NoError(t, err)
	assert.False(t, second)

	other, err := d.AcquireOnce(ctx, "msg-2")
	require.NoError(t, err)
	assert.True(t, other)
}

func TestDeduperReleaseAllowsRetry(t *testing.T) {
	d := NewDeduper(time.Hour)
	defer d.Close()

	ctx := context.Background()

	first, err := d.AcquireOnce(ctx, "msg-1")
	require.NoError(t, err)
	require.True(t, first)

	require.NoError(t, d.Release(ctx, "msg-1"))

	again, err := d.AcquireOnce(ctx, "msg-1")
	require.NoError(t, err)
	assert.True(t, again)
}

func TestDeduperExpiredEntryReacquirable(t *testing.T) {
	d := NewDeduper(10 * time.Millisecond)
	defer d.Close()

	ctx := context.Background()

	first, err := d.AcquireOnce(ctx, "msg-1")
	require.NoError(t, err)
	require.True(t, first)

	time.Sleep(20 * time.Millisecond)

	again, err := d.AcquireOnce(ctx, "msg-1")
	require.NoError(t, err)
	assert.True(t, again)
}
