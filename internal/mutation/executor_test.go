package mutation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/strata/internal/apiclient"
	"github.com/kingrea/strata/internal/query"
	"github.com/kingrea/strata/internal/toast"
	"github.com/kingrea/strata/internal/validation"
)

func TestSuccessInvalidatesAndToastsOnce(t *testing.T) {
	cache := query.New()
	ctx := context.Background()
	_, _ = query.Read(ctx, cache, query.Key{"holidays"}, func(context.Context) (int, error) { return 1, nil })
	_, _ = query.Read(ctx, cache, query.Key{"users", "u1", "pto"}, func(context.Context) (int, error) { return 1, nil })

	var sink toast.Recorder
	var hooked string
	exec := New(Spec[string, string]{
		Name:        "Create holiday",
		Do:          func(_ context.Context, in string) (string, error) { return "id-" + in, nil },
		Invalidates: []query.Tag{"holidays"},
		Keys:        func(string, string) []query.Key { return []query.Key{{"users", "u1", "pto"}} },
		Success:     func(in, _ string) string { return in + " added" },
		OnSuccess:   func(_, out string) { hooked = out },
	}, cache, &sink)

	out, err := exec.Run(ctx, "Christmas")
	require.NoError(t, err)
	assert.Equal(t, "id-Christmas", out)
	assert.Equal(t, "id-Christmas", hooked)
	require.Equal(t, 1, sink.Len())
	last, _ := sink.Last()
	assert.Equal(t, toast.VariantDefault, last.Variant)
	assert.Equal(t, "Christmas added", last.Description)

	_, fresh, _ := query.Peek[int](cache, query.Key{"holidays"})
	assert.False(t, fresh)
	_, fresh, _ = query.Peek[int](cache, query.Key{"users", "u1", "pto"})
	assert.False(t, fresh)
}

func TestFailureUsesServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Holiday already exists on that date"}`))
	}))
	t.Cleanup(srv.Close)
	client, err := apiclient.New(srv.URL)
	require.NoError(t, err)

	cache := query.New()
	ctx := context.Background()
	_, _ = query.Read(ctx, cache, query.Key{"holidays"}, func(context.Context) (int, error) { return 1, nil })
	var sink toast.Recorder
	var hookErr error
	exec := New(Spec[string, struct{}]{
		Name: "Create holiday",
		Do: func(ctx context.Context, in string) (struct{}, error) {
			return struct{}{}, client.Post(ctx, apiclient.Path("holidays"), map[string]string{"name": in}, nil)
		},
		Invalidates: []query.Tag{"holidays"},
		OnError:     func(_ string, err error) { hookErr = err },
	}, cache, &sink)

	_, err = exec.Run(ctx, "Christmas")
	require.Error(t, err)
	require.Error(t, hookErr)
	require.Equal(t, 1, sink.Len())
	last, _ := sink.Last()
	assert.Equal(t, toast.VariantDestructive, last.Variant)
	assert.Equal(t, "Holiday already exists on that date", last.Description)
	_, fresh, _ := query.Peek[int](cache, query.Key{"holidays"})
	assert.True(t, fresh, "failed mutations must not invalidate")
}

func TestFailureFallsBackToGenericText(t *testing.T) {
	var sink toast.Recorder
	exec := New(Spec[int, int]{
		Name: "Delete team tag",
		Do:   func(context.Context, int) (int, error) { return 0, errors.New("dial tcp: refused") },
	}, nil, &sink)
	_, err := exec.Run(context.Background(), 1)
	require.Error(t, err)
	last, _ := sink.Last()
	assert.Equal(t, "Failed to delete team tag", last.Description)
}

func TestPendingBlocksDuplicateSubmission(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	exec := New(Spec[int, int]{
		Name: "Save",
		Do: func(context.Context, int) (int, error) {
			calls++
			close(started)
			<-release
			return 1, nil
		},
	}, nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := exec.Run(context.Background(), 1)
		done <- err
	}()
	<-started
	assert.True(t, exec.IsPending())
	_, err := exec.Run(context.Background(), 2)
	assert.ErrorIs(t, err, ErrPending)
	close(release)
	require.NoError(t, <-done)
	assert.False(t, exec.IsPending())
	assert.Equal(t, 1, calls)
}

func TestRejectShowsValidationToast(t *testing.T) {
	var sink toast.Recorder
	err := Reject(&sink, validation.Errorf("EndDate", "End date must be after start date"))
	require.Error(t, err)
	last, _ := sink.Last()
	assert.Equal(t, "Validation error", last.Title)
	assert.Equal(t, "End date must be after start date", last.Description)
}

func TestOutcomesAreLogged(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	fail := true
	exec := New(Spec[int, int]{
		Name: "Rotate link",
		Do: func(_ context.Context, in int) (int, error) {
			if fail {
				return 0, errors.New("boom")
			}
			return in, nil
		},
	}, nil, toast.Discard, WithLogger(logger))

	_, err := exec.Run(context.Background(), 1)
	require.Error(t, err)
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "Rotate link", entry.Data["mutation"])
	assert.EqualError(t, entry.Data[logrus.ErrorKey].(error), "boom")

	fail = false
	_, err = exec.Run(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, hook.LastEntry().Level)
	assert.Len(t, hook.AllEntries(), 2)
}
