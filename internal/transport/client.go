// Package transport performs the HTTPS exchanges with the check-in and registration endpoints.
// Each call is exactly one attempt; retry policy belongs to callers.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/http2"
)

const (
	// DefaultCheckinURL is the production check-in endpoint.
	DefaultCheckinURL = "https://android.clients.google.com/checkin"
	// DefaultRegisterURL is the production push registration endpoint.
	DefaultRegisterURL = "https://android.clients.google.com/c2dm/register3"

	// ContentTypeProtobuf identifies the check-in body as the binary schema.
	ContentTypeProtobuf = "application/x-protobuffer"
	// CheckinUserAgent is the fixed client identifier sent with every check-in.
	CheckinUserAgent = "Android-Checkin/2.0"

	defaultTimeout = 30 * time.Second
	// maxResponseBytes bounds how much of a reply is read into memory.
	maxResponseBytes = 4 << 20
)

// Error is returned for every failed exchange. Unavailable is true for network and timeout
// failures; otherwise StatusCode/Status hold the non-200 reply.
type Error struct {
	StatusCode  int
	Status      string
	Unavailable bool
	Err         error
}

func (e *Error) Error() string {
	if e.Unavailable {
		return fmt.Sprintf("transport: unavailable: %v", e.Err)
	}
	return fmt.Sprintf("transport: request failed status=%d %s", e.StatusCode, e.Status)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsUnavailable reports whether err is a transport failure without an HTTP status.
func IsUnavailable(err error) bool {
	var te *Error
	return errors.As(err, &te) && te.Unavailable
}

// Client posts encoded requests and returns the raw reply body.
type Client struct {
	CheckinURL  string
	RegisterURL string
	HTTPClient  *http.Client
}

// NewClient returns a client for the given endpoints. Empty URLs select the production
// endpoints. The HTTP client negotiates HTTP/2 over TLS and falls back to HTTP/1.1.
func NewClient(checkinURL, registerURL string, timeout time.Duration) (*Client, error) {
	if checkinURL == "" {
		checkinURL = DefaultCheckinURL
	}
	if registerURL == "" {
		registerURL = DefaultRegisterURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		TLSHandshakeTimeout: 10 * time.Second,
		DisableKeepAlives:   true,
	}
	if err := http2.ConfigureTransport(tr); err != nil {
		return nil, fmt.Errorf("transport: configure http2: %w", err)
	}
	return &Client{
		CheckinURL:  checkinURL,
		RegisterURL: registerURL,
		HTTPClient:  &http.Client{Transport: tr, Timeout: timeout},
	}, nil
}

// Checkin posts an encoded CheckinRequest and returns the encoded CheckinResponse.
func (c *Client) Checkin(ctx context.Context, body []byte) ([]byte, error) {
	h := http.Header{}
	h.Set("User-Agent", CheckinUserAgent)
	return c.Post(ctx, c.CheckinURL, ContentTypeProtobuf, h, body)
}

// Register posts an encoded registration form with the given headers (authorization, app).
func (c *Client) Register(ctx context.Context, body []byte, header http.Header) ([]byte, error) {
	return c.Post(ctx, c.RegisterURL, "application/x-www-form-urlencoded", header, body)
}

// Post performs one POST exchange. Any status other than 200 is an *Error carrying the code and
// the server's reason phrase; network failures are an *Error with Unavailable set.
func (c *Client) Post(ctx context.Context, url, contentType string, header http.Header, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &Error{Unavailable: true, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, &Error{StatusCode: resp.StatusCode, Status: reasonPhrase(resp)}
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &Error{Unavailable: true, Err: err}
	}
	return b, nil
}

// reasonPhrase returns the status message the server sent, without the leading code.
func reasonPhrase(resp *http.Response) string {
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
}
