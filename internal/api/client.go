package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ErrAPIUnavailable is returned when no daemon API is configured or reachable.
var ErrAPIUnavailable = errors.New("barscan API unavailable")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code      int
	Message   string
	EventType string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned status %d", e.Code)
	}
	return fmt.Sprintf("api returned status %d: %s", e.Code, e.Message)
}

// Client talks to the daemon HTTP API.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

// NewClient builds a client for bind, which may be a host:port or a URL.
// A wildcard listen host is dialled on loopback.
func NewClient(bind, token string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, ErrAPIUnavailable
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, err
	}
	if host, port, splitErr := net.SplitHostPort(base.Host); splitErr == nil {
		if host == "" || host == "0.0.0.0" || host == "::" {
			base.Host = net.JoinHostPort("127.0.0.1", port)
		}
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	return &Client{
		base:  base,
		token: strings.TrimSpace(token),
		// No timeout: a waiting scan blocks until the caller's context ends.
		http: &http.Client{},
	}, nil
}

// BaseURL returns the resolved API root.
func (c *Client) BaseURL() string {
	if c == nil {
		return ""
	}
	return c.base.String()
}

// Health calls the unauthenticated health probe.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var payload HealthResponse
	err := c.do(ctx, http.MethodGet, "/api/health", nil, &payload)
	return payload, err
}

// Status fetches the daemon status.
func (c *Client) Status(ctx context.Context) (DaemonStatus, error) {
	var payload DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &payload)
	return payload, err
}

// Scan arms the scan gate. With wait set the call blocks until the attempt
// completes or ctx ends.
func (c *Client) Scan(ctx context.Context, wait bool) (ScanResponse, error) {
	values := url.Values{}
	if wait {
		values.Set("wait", "1")
	}
	var payload ScanResponse
	err := c.do(ctx, http.MethodPost, "/api/scan", values, &payload)
	return payload, err
}

// Torch toggles the torch.
func (c *Client) Torch(ctx context.Context) (TorchResponse, error) {
	var payload TorchResponse
	err := c.do(ctx, http.MethodPost, "/api/torch", nil, &payload)
	return payload, err
}

// Scans returns up to limit recent scan log entries.
func (c *Client) Scans(ctx context.Context, limit int) (ScansResponse, error) {
	values := url.Values{}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	var payload ScansResponse
	err := c.do(ctx, http.MethodGet, "/api/scans", values, &payload)
	return payload, err
}

// Product looks up a catalog entry by barcode.
func (c *Client) Product(ctx context.Context, barcode string) (Product, error) {
	var payload ProductResponse
	err := c.do(ctx, http.MethodGet, "/api/products/"+url.PathEscape(barcode), nil, &payload)
	return payload.Product, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, out any) error {
	if c == nil {
		return ErrAPIUnavailable
	}
	endpoint := c.base.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		statusErr := &StatusError{Code: resp.StatusCode}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var payload ErrorResponse
		if json.Unmarshal(body, &payload) == nil {
			statusErr.Message = payload.Error
			statusErr.EventType = payload.EventType
		} else {
			statusErr.Message = strings.TrimSpace(string(body))
		}
		return statusErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// IsAPIUnavailable reports whether err means the daemon could not be reached.
func IsAPIUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrAPIUnavailable) || errors.As(err, &opErr)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code
	}
	return 0
}
