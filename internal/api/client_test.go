package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/marketdesk/internal/query"
)

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	require.NoError(t, err)
	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, "127.0.0.1:8088", u.Host)
	assert.Equal(t, "/api/", u.Path)

	u, err = parseBaseURL("example.com:1234/admin-api?x=1#frag")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com:1234/admin-api/", u.String())
}

func TestClient_ListEncodesQueryInOrder(t *testing.T) {
	t.Parallel()

	var gotPath, gotRawQuery, gotUserAgent, gotAuth, gotRequestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRawQuery = r.URL.RawQuery
		gotUserAgent = r.Header.Get("User-Agent")
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"id":"b1","name":"Acme"}],"total":41}`))
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL+"/api", Options{Token: "secret"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	resp, err := c.List(ctx, "admin/buyers", query.Of("q", "acme", "f_user_status", "ACTIVE", "page", "2"))
	require.NoError(t, err)

	assert.Equal(t, "/api/admin/buyers", gotPath)
	assert.Equal(t, "q=acme&f_user_status=ACTIVE&page=2", gotRawQuery)
	assert.True(t, strings.HasPrefix(gotUserAgent, "marketdesk/"), "User-Agent = %q", gotUserAgent)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Len(t, gotRequestID, 36)

	require.Len(t, resp.Items, 1)
	assert.Equal(t, "b1", resp.Items[0].ID())
	require.NotNil(t, resp.Total)
	assert.Equal(t, 41, *resp.Total)
}

func TestClient_ListEmptyItemsIsNonNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, Options{})
	require.NoError(t, err)
	resp, err := c.List(context.Background(), "admin/roles", query.Query{})
	require.NoError(t, err)
	assert.NotNil(t, resp.Items)
	assert.Nil(t, resp.Total)
}

func TestClient_ListCollapsesIdenticalConcurrentRequests(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, Options{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.List(context.Background(), "admin/products", query.Of("page", "1"))
			assert.NoError(t, err)
		}()
	}
	require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_ListAfterMutationGetsFreshRoundTrip(t *testing.T) {
	var gets atomic.Int32
	release := make(chan struct{})
	var mu sync.Mutex
	items := []string{`{"id":"p-1"}`}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			mu.Lock()
			items = append(items, `{"id":"p-2"}`)
			mu.Unlock()
			_, _ = w.Write([]byte(`{"id":"p-2"}`))
			return
		}
		mu.Lock()
		body := `{"items":[` + strings.Join(items, ",") + `]}`
		mu.Unlock()
		if gets.Add(1) == 1 {
			<-release
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, Options{})
	require.NoError(t, err)
	ctx := context.Background()

	first := make(chan ListResponse, 1)
	go func() {
		resp, err := c.List(ctx, "admin/products", query.Of("page", "1"))
		assert.NoError(t, err)
		first <- resp
	}()
	require.Eventually(t, func() bool { return gets.Load() == 1 }, time.Second, 5*time.Millisecond)

	_, err = c.Create(ctx, "/admin/products/", Record{"name": "Lamp"})
	require.NoError(t, err)

	second, err := c.List(ctx, "admin/products", query.Of("page", "1"))
	require.NoError(t, err)
	assert.Len(t, second.Items, 2)
	assert.Equal(t, int32(2), gets.Load())

	close(release)
	assert.Len(t, (<-first).Items, 1)
}

func TestClient_CancelledCallerLeavesSharedListRunning(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		_, _ = w.Write([]byte(`{"items":[{"id":"p-1"}]}`))
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancelled := make(chan error, 1)
	go func() {
		_, err := c.List(ctx, "admin/products", query.Query{})
		cancelled <- err
	}()
	require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)

	other := make(chan error, 1)
	go func() {
		resp, err := c.List(context.Background(), "admin/products", query.Query{})
		if err == nil && len(resp.Items) != 1 {
			err = errors.New("unexpected items")
		}
		other <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	require.ErrorIs(t, <-cancelled, context.Canceled)

	close(release)
	require.NoError(t, <-other)
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_MutationsUseMethodsAndPaths(t *testing.T) {
	t.Parallel()

	type call struct {
		method, path, body string
	}
	var mu sync.Mutex
	var calls []call
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, call{r.Method, r.URL.Path, string(raw)})
		mu.Unlock()
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		var rec Record
		_ = json.Unmarshal(raw, &rec)
		rec["id"] = "s9"
		_ = json.NewEncoder(w).Encode(rec)
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL+"/api", Options{})
	require.NoError(t, err)
	ctx := context.Background()

	created, err := c.Create(ctx, "admin/sellers", Record{"name": "Shop"})
	require.NoError(t, err)
	assert.Equal(t, "s9", created.ID())

	updated, err := c.Update(ctx, "admin/sellers", "s9", Record{"status": "ACTIVE"})
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", updated.String("status"))

	require.NoError(t, c.Delete(ctx, "admin/sellers", "s9"))

	require.Len(t, calls, 3)
	assert.Equal(t, call{"POST", "/api/admin/sellers", `{"name":"Shop"}`}, calls[0])
	assert.Equal(t, "PATCH", calls[1].method)
	assert.Equal(t, "/api/admin/sellers/s9", calls[1].path)
	assert.Equal(t, call{"DELETE", "/api/admin/sellers/s9", ""}, calls[2])
}

func TestClient_StatusAndDecodeErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/admin/buyers":
			_, _ = w.Write([]byte("{not-json"))
		case "/api/admin/reviews":
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"message":"rating out of range"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL+"/api", Options{})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.List(ctx, "admin/buyers", query.Query{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")

	_, err = c.Create(ctx, "admin/reviews", Record{"rating": 9})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnprocessableEntity, se.Code)
	assert.Equal(t, "rating out of range", se.Message)

	err = c.Delete(ctx, "admin/missing", "1")
	assert.True(t, errors.Is(err, ErrNotFound), "err = %v", err)
}

func TestClient_RequiresIDAndResource(t *testing.T) {
	c, err := NewClient("127.0.0.1:1", Options{})
	require.NoError(t, err)
	_, err = c.Update(context.Background(), "admin/buyers", " ", Record{})
	assert.Error(t, err)
	assert.Error(t, c.Delete(context.Background(), "admin/buyers", ""))
	_, err = c.List(context.Background(), " / ", query.Query{})
	assert.Error(t, err)
}

func TestRecordString(t *testing.T) {
	r := Record{"id": float64(12), "name": "Acme", "tags": []any{"a", "b"}, "ok": true, "nil": nil}
	assert.Equal(t, "12", r.ID())
	assert.Equal(t, "Acme", r.String("name"))
	assert.Equal(t, "a, b", r.String("tags"))
	assert.Equal(t, "true", r.String("ok"))
	assert.Equal(t, "", r.String("nil"))
	assert.Equal(t, "", r.String("missing"))
}
