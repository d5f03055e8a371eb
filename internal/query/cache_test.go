package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counting(calls *int32, value []string) Fetcher[[]string] {
	return func(context.Context) ([]string, error) {
		atomic.AddInt32(calls, 1)
		return value, nil
	}
}

func TestReadCachesUntilInvalidated(t *testing.T) {
	c := New()
	ctx := context.Background()
	var calls int32
	key := Key{"holidays"}

	res, err := Read(ctx, c, key, counting(&calls, []string{"Christmas"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"Christmas"}, res.Data)

	_, err = Read(ctx, c, Key{"holidays"}, counting(&calls, []string{"other"}))
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls, "equal keys must share one cached value")

	c.Invalidate("holidays")
	res, err = Read(ctx, c, key, counting(&calls, []string{"New Year"}))
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls)
	assert.Equal(t, []string{"New Year"}, res.Data, "refetch replaces the value wholesale")
}

func TestDisabledReadNeverFetches(t *testing.T) {
	c := New()
	var calls int32
	res, err := Read(context.Background(), c, Key{"users", "", "pto"}, counting(&calls, nil), Enabled(false))
	require.NoError(t, err)
	assert.True(t, res.Disabled)
	assert.Zero(t, calls)
	assert.Zero(t, c.Len())
}

func TestConcurrentReadsShareOneRequest(t *testing.T) {
	c := New()
	var calls int32
	release := make(chan struct{})
	fetch := func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 42, nil
	}
	var wg sync.WaitGroup
	results := make([]int, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := Read(context.Background(), c, Key{"strategies"}, fetch)
			if err == nil {
				results[i] = res.Data
			}
		}(i)
	}
	require.Eventually(t, func() bool { return c.IsLoading(Key{"strategies"}) }, time.Second, time.Millisecond)
	assert.True(t, Snapshot[int](c, Key{"strategies"}).IsLoading)
	close(release)
	wg.Wait()
	assert.EqualValues(t, 1, calls)
	for _, r := range results {
		assert.Equal(t, 42, r)
	}
}

func TestInvalidateByTagHitsFamilies(t *testing.T) {
	c := New()
	ctx := context.Background()
	fetch := func(context.Context) (string, error) { return "v", nil }
	keys := []Key{
		{"workstreams", "s1"},
		{"phases", "s1"},
		{"workstream-tasks", "w1"},
		{"holidays"},
		{"users", "u1", "pto"},
	}
	for _, k := range keys {
		_, err := Read(ctx, c, k, fetch)
		require.NoError(t, err)
	}
	_, err := Read(ctx, c, Key{"users", "u1", "strategy-assignments"}, fetch, WithTags("strategy-assignments"))
	require.NoError(t, err)

	hit := c.Invalidate("workstreams", "phases", "workstream-tasks")
	assert.Len(t, hit, 3)
	for _, k := range keys[:3] {
		_, fresh, ok := Peek[string](c, k)
		assert.True(t, ok)
		assert.False(t, fresh, k.String())
	}
	_, fresh, _ := Peek[string](c, Key{"holidays"})
	assert.True(t, fresh)

	hit = c.Invalidate("strategy-assignments")
	require.Len(t, hit, 1)
	assert.Equal(t, "users/u1/strategy-assignments", hit[0].String())
	_, fresh, _ = Peek[string](c, Key{"users", "u1", "pto"})
	assert.True(t, fresh, "extra tags must not leak onto sibling keys")
}

func TestInvalidateKeyIsExact(t *testing.T) {
	c := New()
	ctx := context.Background()
	fetch := func(context.Context) (string, error) { return "v", nil }
	_, _ = Read(ctx, c, Key{"users"}, fetch)
	_, _ = Read(ctx, c, Key{"users", "u1", "strategy-assignments"}, fetch)

	assert.True(t, c.InvalidateKey(Key{"users", "u1", "strategy-assignments"}))
	_, fresh, _ := Peek[string](c, Key{"users"})
	assert.True(t, fresh)
	assert.False(t, c.InvalidateKey(Key{"nope"}))
}

func TestSubscribersSeeInvalidatedKeys(t *testing.T) {
	c := New()
	ctx := context.Background()
	_, _ = Read(ctx, c, Key{"team-tags"}, func(context.Context) (int, error) { return 1, nil })
	var seen []string
	cancel := c.Subscribe(func(k Key) { seen = append(seen, k.String()) })
	c.Invalidate("team-tags")
	cancel()
	c.Invalidate("team-tags")
	assert.Equal(t, []string{"team-tags"}, seen)
}

func TestFetchErrorIsNotCached(t *testing.T) {
	c := New()
	ctx := context.Background()
	boom := errors.New("boom")
	_, err := Read(ctx, c, Key{"users"}, func(context.Context) (int, error) { return 0, boom })
	require.ErrorIs(t, err, boom)
	res, err := Read(ctx, c, Key{"users"}, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, res.Data)
}

func TestInvalidationDuringFetchLeavesValueStale(t *testing.T) {
	c := New()
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = Read(ctx, c, Key{"users"}, func(context.Context) (string, error) {
			close(started)
			<-release
			return "old", nil
		})
	}()
	<-started
	c.Invalidate("users")
	close(release)
	<-done
	_, fresh, ok := Peek[string](c, Key{"users"})
	assert.True(t, ok)
	assert.False(t, fresh)
}
