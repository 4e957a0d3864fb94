package resource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tendant/rbac-console/pkg/errors"
)

// maxErrorBody bounds how much of a failed response is kept in error details.
const maxErrorBody = 512

// Client issues list/create/update/delete requests against one resource collection.
type Client[T any] struct {
	endpoint   string
	resource   string
	httpClient *http.Client
}

type clientOptions struct {
	httpClient *http.Client
	timeout    time.Duration
}

// Option configures a Client
type Option func(*clientOptions)

// WithHTTPClient replaces the default http.Client (tests use httptest clients).
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}

// WithTimeout sets a per-request timeout on the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		o.timeout = d
	}
}

// NewClient creates a client for baseURL/resource.
// baseURL may be "host:port" or a full "http(s)://host:port" URL.
func NewClient[T any](baseURL, resource string, opts ...Option) *Client[T] {
	o := clientOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: o.timeout}
	}

	endpoint := baseURL
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "http://" + endpoint
	}
	resource = strings.Trim(resource, "/")
	endpoint = strings.TrimRight(endpoint, "/") + "/" + resource

	return &Client[T]{
		endpoint:   endpoint,
		resource:   resource,
		httpClient: o.httpClient,
	}
}

// Resource returns the collection name, e.g. "roles".
func (c *Client[T]) Resource() string {
	return c.resource
}

// List fetches the whole collection.
func (c *Client[T]) List(ctx context.Context) ([]T, error) {
	body, err := c.do(ctx, http.MethodGet, c.endpoint, nil, "list")
	if err != nil {
		return nil, err
	}

	var records []T
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, errors.Transport(err, fmt.Sprintf("decode %s list", c.resource))
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}

// Create posts a full record, including its client-assigned id.
func (c *Client[T]) Create(ctx context.Context, record T) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return errors.InternalWrap(err, fmt.Sprintf("encode %s record", c.resource))
	}
	_, err = c.do(ctx, http.MethodPost, c.endpoint, payload, "create")
	return err
}

// Update replaces the record stored under id.
func (c *Client[T]) Update(ctx context.Context, id int, record T) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return errors.InternalWrap(err, fmt.Sprintf("encode %s record", c.resource))
	}
	_, err = c.do(ctx, http.MethodPut, c.itemURL(id), payload, "update")
	return err
}

// Delete removes the record stored under id.
func (c *Client[T]) Delete(ctx context.Context, id int) error {
	_, err := c.do(ctx, http.MethodDelete, c.itemURL(id), nil, "delete")
	return err
}

func (c *Client[T]) itemURL(id int) string {
	return c.endpoint + "/" + strconv.Itoa(id)
}

func (c *Client[T]) do(ctx context.Context, method, url string, payload []byte, op string) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, errors.InternalWrap(err, fmt.Sprintf("%s %s: build request", op, c.resource))
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	slog.Debug("Resource request", "method", method, "url", url)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Transport(err, fmt.Sprintf("%s %s", op, c.resource))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Transport(err, fmt.Sprintf("%s %s: read response", op, c.resource))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(op, c.resource, resp.StatusCode, body)
	}
	return body, nil
}

func statusError(op, resource string, status int, body []byte) error {
	code := errors.MapHTTPStatusToErrorCode(status)
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	err := errors.Newf(code, "%s %s: backend returned %d", op, resource, status).
		WithDetail("status", status).
		WithDetail("body", msg)

	var reply struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &reply) == nil && reply.Message != "" {
		err.WithDetail("message", reply.Message)
	}
	return err
}
