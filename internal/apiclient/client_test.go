package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoEncodesBodyAndDecodesResponse(t *testing.T) {
	var gotMethod, gotPath, gotContentType, gotRequestID string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotRequestID = r.Header.Get(RequestIDHeader)
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"h1","name":"Christmas"}`))
	}))
	t.Cleanup(srv.Close)

	client, err := New(srv.URL, WithRequestIDs(func() string { return "req-1" }))
	require.NoError(t, err)

	var out struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	err = client.Post(context.Background(), Path("holidays"), map[string]string{"name": "Christmas"}, &out)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/holidays", gotPath)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "req-1", gotRequestID)
	assert.Equal(t, "Christmas", gotBody["name"])
	assert.Equal(t, "h1", out.ID)
}

func TestDoReturnsServerMessageOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"A tag with this name already exists"}`))
	}))
	t.Cleanup(srv.Close)

	client, err := New(srv.URL)
	require.NoError(t, err)
	err = client.Post(context.Background(), Path("team-tags"), map[string]string{"name": "Ops"}, nil)
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "A tag with this name already exists", Message(err, "fallback"))
}

func TestMessageFallsBackWithoutEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	t.Cleanup(srv.Close)

	client, err := New(srv.URL)
	require.NoError(t, err)
	err = client.Delete(context.Background(), Path("holidays", "h1"))
	require.Error(t, err)
	assert.Equal(t, "Failed to delete holiday", Message(err, "Failed to delete holiday"))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
	assert.Equal(t, "fallback", Message(errors.New("network down"), "fallback"))
}

func TestLegacyErrorFieldIsRead(t *testing.T) {
	assert.Equal(t, "User not authenticated", serverMessage(`{"error":"User not authenticated"}`))
	assert.Equal(t, "", serverMessage(`not json`))
}

func TestWithCSRFEchoesCookie(t *testing.T) {
	var header string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/2fa/status" {
			http.SetCookie(w, &http.Cookie{Name: CSRFCookie, Value: "tok-123", Path: "/"})
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"enabled":false}`))
			return
		}
		header = r.Header.Get(CSRFHeader)
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	client, err := New(srv.URL)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, client.Get(ctx, Path("auth", "2fa", "status"), nil))
	require.NoError(t, client.Post(ctx, Path("auth", "2fa", "setup"), map[string]string{}, nil, WithCSRF()))
	assert.Equal(t, "tok-123", header)
}

func TestSessionCookieIsSent(t *testing.T) {
	var session string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ck, err := r.Cookie("connect.sid"); err == nil {
			session = ck.Value
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	client, err := New(srv.URL, WithSessionCookie("connect.sid", "s%3Aabc"))
	require.NoError(t, err)
	require.NoError(t, client.Get(context.Background(), Path("users"), nil))
	assert.Equal(t, "s%3Aabc", session)
}

func TestQueryParametersAreEncoded(t *testing.T) {
	var raw string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	client, err := New(srv.URL + "/")
	require.NoError(t, err)
	var out []any
	require.NoError(t, client.Get(context.Background(), Path("workstreams"), &out, WithQuery("strategyId", "s 1")))
	assert.Equal(t, "strategyId=s+1", raw)
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := New("/api")
	require.Error(t, err)
	_, err = New("")
	require.Error(t, err)
}

func TestOriginDefaultsToBaseHost(t *testing.T) {
	client, err := New("https://plan.example.com/backend")
	require.NoError(t, err)
	assert.Equal(t, "https://plan.example.com", client.Origin())

	client, err = New("https://api.example.com", WithOrigin("https://app.example.com/"))
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.com", client.Origin())
}
