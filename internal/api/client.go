package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/five82/marketdesk/internal/query"
)

// Lister is the read side used by the list synchronisation layer.
type Lister interface {
	List(ctx context.Context, resource string, q query.Query) (ListResponse, error)
}

// Mutator is the write side used by page submit flows.
type Mutator interface {
	Create(ctx context.Context, resource string, body Record) (Record, error)
	Update(ctx context.Context, resource, id string, body Record) (Record, error)
	Delete(ctx context.Context, resource, id string) error
}

var (
	_ Lister  = (*Client)(nil)
	_ Mutator = (*Client)(nil)
)

// Client talks to the marketplace admin REST API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	token     string
	limiter   *rate.Limiter
	group     singleflight.Group

	mu      sync.Mutex
	changes map[string]uint64 // per resource, bumped by every mutation
}

const (
	defaultBaseURL   = "http://127.0.0.1:8088/api/"
	defaultUserAgent = "marketdesk/0.1"
	requestTimeout   = 10 * time.Second
)

// Options configure a Client.
type Options struct {
	Token string
	// RequestsPerSecond caps outgoing requests; zero disables limiting.
	RequestsPerSecond float64
	HTTPClient        *http.Client
}

// NewClient builds a Client rooted at baseURL. Resource paths are resolved
// relative to it, so "admin/buyers" against "http://host/api/" requests
// "http://host/api/admin/buyers".
func NewClient(baseURL string, opts Options) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	c := &Client{
		baseURL:   base,
		http:      httpClient,
		userAgent: defaultUserAgent,
		token:     strings.TrimSpace(opts.Token),
		changes:   make(map[string]uint64),
	}
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return c, nil
}

// List fetches one page of a resource. Identical concurrent requests share a
// single round trip, but never across a create, update or delete of the same
// resource: a list requested after a mutation always reaches the server.
// The shared round trip is not tied to any one caller; each caller stops
// waiting when its own ctx ends.
func (c *Client) List(ctx context.Context, resource string, q query.Query) (ListResponse, error) {
	if c == nil {
		return ListResponse{}, fmt.Errorf("client is nil")
	}
	rel, err := resourceURL(resource, "", q)
	if err != nil {
		return ListResponse{}, err
	}
	key := fmt.Sprintf("%d %s", c.generation(rel.Path), rel.String())
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		reqCtx, cancel := context.WithTimeout(shared, requestTimeout)
		defer cancel()
		var payload ListResponse
		if err := c.doURL(reqCtx, http.MethodGet, rel, nil, &payload); err != nil {
			return nil, err
		}
		if payload.Items == nil {
			payload.Items = []Record{}
		}
		return payload, nil
	})

	select {
	case <-ctx.Done():
		return ListResponse{}, fmt.Errorf("list %s: %w", rel.Path, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return ListResponse{}, res.Err
		}
		return res.Val.(ListResponse), nil
	}
}

// generation returns the mutation count of the resource at path.
func (c *Client) generation(path string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.changes[path]
}

// changed marks the resource at path as mutated so later lists do not join
// a round trip that started before the mutation finished.
func (c *Client) changed(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changes[path]++
}

// Create posts a new record to the resource.
func (c *Client) Create(ctx context.Context, resource string, body Record) (Record, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	rel, err := resourceURL(resource, "", query.Query{})
	if err != nil {
		return nil, err
	}
	defer c.changed(collectionPath(resource))
	var out Record
	if err := c.doURL(ctx, http.MethodPost, rel, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update patches an existing record.
func (c *Client) Update(ctx context.Context, resource, id string, body Record) (Record, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("record id required")
	}
	rel, err := resourceURL(resource, id, query.Query{})
	if err != nil {
		return nil, err
	}
	defer c.changed(collectionPath(resource))
	var out Record
	if err := c.doURL(ctx, http.MethodPatch, rel, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a record.
func (c *Client) Delete(ctx context.Context, resource, id string) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("record id required")
	}
	rel, err := resourceURL(resource, id, query.Query{})
	if err != nil {
		return err
	}
	defer c.changed(collectionPath(resource))
	return c.doURL(ctx, http.MethodDelete, rel, nil, nil)
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, body any, dest any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return statusError(method, rel, resp)
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func statusError(method string, rel *url.URL, resp *http.Response) error {
	se := &StatusError{Method: method, Path: rel.Path, Code: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body errorBody
	if json.Unmarshal(raw, &body) == nil {
		se.Message = strings.TrimSpace(body.Message)
		if se.Message == "" {
			se.Message = strings.TrimSpace(body.Error)
		}
	}
	return se
}

func collectionPath(resource string) string {
	return strings.Trim(strings.TrimSpace(resource), "/")
}

func resourceURL(resource, id string, q query.Query) (*url.URL, error) {
	path := collectionPath(resource)
	if path == "" {
		return nil, fmt.Errorf("resource path is empty")
	}
	if id != "" {
		path += "/" + id
	}
	return &url.URL{Path: path, RawQuery: q.Encode()}, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_url %q: %w", raw, err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
