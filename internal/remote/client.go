package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"sheetsync/internal/record"
)

// Clock supplies the cache-busting timestamp on read requests.
type Clock interface {
	Now() time.Time
}

// Observer is notified after every round trip. Used for metrics.
type Observer interface {
	ObserveRequest(kind, action string, d time.Duration, err error)
}

// Client talks to a spreadsheet-style record store exposing a single
// endpoint multiplexed on an "action" field. Reads are GET requests with
// ?action=<list>; writes are POSTs of {"action", "id", "data"}.
//
// Create, Update and Delete never return a Go error: every failure is
// carried in the Result so callers can always run their rollback branch.
type Client struct {
	endpoint string
	kind     record.Kind
	http     *http.Client
	clock    Clock
	observer Observer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithClock replaces the wall clock used for cache busting.
func WithClock(clock Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// WithObserver registers a request observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// NewClient creates a client for one record kind at endpoint.
func NewClient(endpoint string, kind record.Kind, opts ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("endpoint must be an http(s) URL: %q", endpoint)
	}

	c := &Client{
		endpoint: endpoint,
		kind:     kind,
		http:     http.DefaultClient,
		clock:    wallClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Kind returns the record kind this client serves.
func (c *Client) Kind() record.Kind {
	return c.kind
}

// List fetches the whole collection. Transport, status and JSON failures
// return a *record.ConnectionError. A valid JSON payload that is not an
// array (the store's error object, for instance) yields an empty collection.
func (c *Client) List(ctx context.Context) (record.Collection, error) {
	action := c.kind.Actions.List
	start := c.clock.Now()

	coll, err := c.list(ctx, action, start)
	c.observe(action, start, err)
	if err != nil {
		return nil, &record.ConnectionError{Op: action, Err: err}
	}
	return coll, nil
}

func (c *Client) list(ctx context.Context, action string, now time.Time) (record.Collection, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("action", action)
	q.Set("_", strconv.FormatInt(now.UnixMilli(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-store")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	rows, ok := payload.([]any)
	if !ok {
		return record.Collection{}, nil
	}
	coll := make(record.Collection, 0, len(rows))
	for _, row := range rows {
		obj, ok := row.(map[string]any)
		if !ok {
			continue
		}
		coll = append(coll, record.FromRow(obj))
	}
	return coll, nil
}

// Create submits a new record. On success Result.ID holds the id the
// store assigned.
func (c *Client) Create(ctx context.Context, fields record.Fields) Result {
	res := c.write(ctx, writeRequest{Action: c.kind.Actions.Create, Data: fields})
	if res.OK() && res.ID == "" {
		return Result{Err: &record.ConnectionError{Op: c.kind.Actions.Create, Err: errMissingID}}
	}
	return res
}

// Update patches the record with the given id.
func (c *Client) Update(ctx context.Context, id string, fields record.Fields) Result {
	return c.write(ctx, writeRequest{Action: c.kind.Actions.Update, ID: record.CanonicalID(id), Data: fields})
}

// Delete removes the record with the given id.
func (c *Client) Delete(ctx context.Context, id string) Result {
	return c.write(ctx, writeRequest{Action: c.kind.Actions.Delete, ID: record.CanonicalID(id)})
}

type writeRequest struct {
	Action string        `json:"action"`
	ID     string        `json:"id,omitempty"`
	Data   record.Fields `json:"data,omitempty"`
}

func (c *Client) write(ctx context.Context, wr writeRequest) Result {
	start := c.clock.Now()
	res := c.post(ctx, wr)
	c.observe(wr.Action, start, res.Err)
	return res
}

func (c *Client) post(ctx context.Context, wr writeRequest) Result {
	connErr := func(err error) Result {
		return Result{Err: &record.ConnectionError{Op: wr.Action, Err: err}}
	}

	payload, err := json.Marshal(wr)
	if err != nil {
		return connErr(fmt.Errorf("encoding request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return connErr(err)
	}
	// text/plain keeps Apps Script style endpoints from requiring a CORS preflight.
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")

	body, err := c.do(req)
	if err != nil {
		return connErr(err)
	}

	res, err := decodeResult(wr.Action, body)
	if err != nil {
		return connErr(err)
	}
	return res
}

// do executes req and returns the body of a 2xx response.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return body, nil
}

func (c *Client) observe(action string, start time.Time, err error) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveRequest(c.kind.Name, action, c.clock.Now().Sub(start), err)
}
