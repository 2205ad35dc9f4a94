package leboncoin

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogaillard63/lbcwatch/internal/domain"
)

type recordingEventLog struct {
	mu      sync.Mutex
	entries []string
	levels  []string
}

func (r *recordingEventLog) Append(_ context.Context, message, level string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, message)
	r.levels = append(r.levels, level)
	return nil
}

func (r *recordingEventLog) countLevel(level string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, l := range r.levels {
		if l == level {
			n++
		}
	}
	return n
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestClient(t *testing.T, siteURL string, maxRetries int, events EventLog) *Client {
	t.Helper()
	c := NewClient(context.Background(), ClientConfig{
		SiteURL:    siteURL,
		Timeout:    5 * time.Second,
		MaxRetries: maxRetries,
	}, events, testLogger())
	c.sleep = func(context.Context, time.Duration) {}
	return c
}

func TestPost_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Write([]byte(`{"ads":[]}`))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL+"/", 5, &recordingEventLog{})

	body, status, err := client.Post(context.Background(), server.URL+"/finder/search", map[string]any{})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"ads":[]}`, string(body))
}

func TestPost_BlockedRotatesSessionsThenGivesUp(t *testing.T) {
	var mu sync.Mutex
	posts, warmups := 0, 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if r.Method == http.MethodPost {
			posts++
			w.WriteHeader(http.StatusForbidden)
			return
		}
		warmups++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	events := &recordingEventLog{}
	client := newTestClient(t, server.URL+"/", 5, events)

	body, status, err := client.Post(context.Background(), server.URL+"/finder/search", map[string]any{})

	require.ErrorIs(t, err, ErrBlocked)
	assert.Nil(t, body)
	assert.Equal(t, http.StatusForbidden, status)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 6, posts, "initial request plus five retries")
	assert.Equal(t, 6, warmups, "one warm-up at creation plus one per rotation")
	assert.Equal(t, 5, events.countLevel(domain.LevelWarning), "one warning per rotation")
}

func TestPost_OtherStatusReturnedWithoutRetry(t *testing.T) {
	var mu sync.Mutex
	posts := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			mu.Lock()
			posts++
			mu.Unlock()
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("oops"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	events := &recordingEventLog{}
	client := newTestClient(t, server.URL+"/", 5, events)

	body, status, err := client.Post(context.Background(), server.URL+"/finder/search", map[string]any{})

	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "oops", string(body))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, posts)
	assert.Equal(t, 1, events.countLevel(domain.LevelError))
}

func TestPost_TransportErrorRetriesWithRotation(t *testing.T) {
	var mu sync.Mutex
	posts := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			mu.Lock()
			posts++
			mu.Unlock()
			if hj, ok := w.(http.Hijacker); ok {
				if conn, _, err := hj.Hijack(); err == nil {
					conn.Close()
				}
			}
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	events := &recordingEventLog{}
	client := newTestClient(t, server.URL+"/", 2, events)

	_, _, err := client.Post(context.Background(), server.URL+"/finder/search", map[string]any{})

	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, posts, "initial request plus two retries")
}

func TestInitSession_PicksKnownProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL+"/", 5, &recordingEventLog{})

	found := false
	for _, p := range browserProfiles {
		if p.name == client.profile.name {
			found = true
		}
	}
	assert.True(t, found, "session profile must come from the fixed set")
	assert.NotNil(t, client.http.Jar, "session must carry a cookie jar")
}
