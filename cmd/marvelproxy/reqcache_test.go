package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moddengine/marvel"
)

func countingUpstream(t *testing.T, status int, body string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func get(t *testing.T, client *http.Client, url string) (int, string) {
	t.Helper()
	resp, err := client.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestCacheKeyIgnoresSigning(t *testing.T) {
	a, _ := http.NewRequest(http.MethodGet, "https://gw/v1/public/comics?apikey=k&hash=aa&limit=10&offset=0&ts=1", nil)
	b, _ := http.NewRequest(http.MethodGet, "https://gw/v1/public/comics?ts=2&hash=bb&offset=0&limit=10&apikey=k", nil)
	c, _ := http.NewRequest(http.MethodGet, "https://gw/v1/public/comics?apikey=k&hash=aa&limit=10&offset=10&ts=1", nil)
	assert.Equal(t, cacheKey(a), cacheKey(b))
	assert.NotEqual(t, cacheKey(a), cacheKey(c))
}

func TestReqCacheServesRepeats(t *testing.T) {
	upstream, hits := countingUpstream(t, http.StatusOK, `{"code":200,"data":{"results":[{"title":"Hulk #1"}]}}`)
	rc := NewReqCache(newTestStore(t), nil, time.Hour)
	client := &http.Client{Transport: rc}

	status, body := get(t, client, upstream.URL+"/comics?limit=1&offset=0&ts=1&hash=a")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Hulk #1")

	status, body = get(t, client, upstream.URL+"/comics?limit=1&offset=0&ts=2&hash=b")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Hulk #1")
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))

	get(t, client, upstream.URL+"/comics?limit=1&offset=1&ts=2&hash=b")
	assert.Equal(t, int32(2), atomic.LoadInt32(hits))
}

func TestReqCacheExpires(t *testing.T) {
	upstream, hits := countingUpstream(t, http.StatusOK, `{"code":200,"data":{"results":[]}}`)
	rc := NewReqCache(newTestStore(t), nil, time.Minute)
	now := time.Unix(1700000000, 0)
	rc.now = func() time.Time { return now }
	client := &http.Client{Transport: rc}

	get(t, client, upstream.URL+"/characters?limit=1")
	now = now.Add(2 * time.Minute)
	get(t, client, upstream.URL+"/characters?limit=1")
	assert.Equal(t, int32(2), atomic.LoadInt32(hits))
}

func TestReqCacheSkipsErrors(t *testing.T) {
	upstream, hits := countingUpstream(t, http.StatusConflict, `{"code":409,"status":"Limit greater than 100."}`)
	rc := NewReqCache(newTestStore(t), nil, time.Hour)
	client := &http.Client{Transport: rc}

	for i := 0; i < 2; i++ {
		status, body := get(t, client, upstream.URL+"/comics?limit=500")
		assert.Equal(t, http.StatusConflict, status)
		assert.Contains(t, body, "409")
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(hits))
}

func TestReqCacheWithClient(t *testing.T) {
	upstream, hits := countingUpstream(t, http.StatusOK, `{"code":200,"data":{"results":[{"id":7,"title":"Thor #1"}]}}`)
	rc := NewReqCache(newTestStore(t), nil, time.Hour)
	client := marvel.New("pub", "priv",
		marvel.WithBaseURL(upstream.URL),
		marvel.WithHTTPClient(&http.Client{Transport: rc}),
	)

	for i := 0; i < 3; i++ {
		comics, err := client.FetchComics(context.Background(), 1, 1)
		require.NoError(t, err)
		require.Len(t, comics, 1)
		assert.Equal(t, "Thor #1", comics[0].Title)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestPurgeExpiredStops(t *testing.T) {
	store := newTestStore(t)
	store.StoreResponse("stale", []byte("x"), 1)
	rc := NewReqCache(store, nil, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rc.purgeExpired(ctx, time.Hour)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("purge loop did not stop")
	}
	_, ok := store.GetResponse("stale", 0)
	assert.False(t, ok)
}
