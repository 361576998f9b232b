package crowd

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/crowdauth/internal/metrics"
	"github.com/dropDatabas3/crowdauth/internal/observability/logger"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/tidwall/gjson"
)

const (
	DefaultServiceURI        = "/crowd/rest/usermanagement/1/"
	DefaultConnectTimeout    = 10 * time.Second
	DefaultConnectionRetries = 2
)

// Config configures a Client.
type Config struct {
	ApplicationName     string
	ApplicationPassword string
	ServiceURL          string // e.g. https://crowd.example.com
	ServiceURI          string // default DefaultServiceURI
	// ConnectTimeout bounds the TCP/TLS dial of each attempt. There is no
	// read timeout.
	ConnectTimeout time.Duration
	// ConnectionRetries is the number of extra attempts after a transport
	// failure. 0 means a single attempt.
	ConnectionRetries int

	// HTTPClient replaces the pooled client built from ConnectTimeout.
	HTTPClient *http.Client
}

// Client talks to one Crowd application endpoint. It is safe for
// concurrent use.
type Client struct {
	base       string
	authHeader string
	retries    int
	http       *http.Client
}

// New builds a Client. Negative retries are treated as 0.
func New(cfg Config) *Client {
	uri := cfg.ServiceURI
	if strings.TrimSpace(uri) == "" {
		uri = DefaultServiceURI
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	retries := cfg.ConnectionRetries
	if retries < 0 {
		retries = 0
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = newHTTPClient(timeout)
	}

	creds := base64.StdEncoding.EncodeToString([]byte(cfg.ApplicationName + ":" + cfg.ApplicationPassword))
	return &Client{
		base:       strings.TrimRight(cfg.ServiceURL, "/") + "/" + strings.Trim(uri, "/") + "/",
		authHeader: "Basic " + creds,
		retries:    retries,
		http:       hc,
	}
}

func newHTTPClient(connectTimeout time.Duration) *http.Client {
	tr := cleanhttp.DefaultPooledTransport()
	tr.DialContext = (&net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	return &http.Client{Transport: tr}
}

// BaseURL returns the resolved REST root, with trailing slash.
func (c *Client) BaseURL() string { return c.base }

// call describes one logical REST request.
type call struct {
	action  string // metrics/log label
	method  string
	path    string // relative to base, query included
	body    []byte
	success int
	// notFound is the Kind used for a 404 without a recognized reason.
	notFound Kind
}

// do runs c with the retry policy and returns the body of a successful,
// JSON-object response.
func (c *Client) do(ctx context.Context, cl call) ([]byte, error) {
	log := logger.From(ctx).With(logger.Component("crowd"), logger.Action(cl.action))
	start := time.Now()
	defer func() {
		metrics.CrowdRequestDuration.WithLabelValues(cl.action).Observe(time.Since(start).Seconds())
	}()

	status, body, err := c.attempt(ctx, cl)
	for attempt := 1; err != nil; attempt++ {
		if ctx.Err() != nil || attempt > c.retries {
			log.Warn("crowd server unavailable", logger.Attempt(attempt), logger.Err(err))
			return nil, c.fail(&Error{
				Kind:    KindServerUnavailable,
				Action:  cl.action,
				Message: "connection to crowd server failed",
				Err:     err,
			})
		}
		metrics.CrowdRetries.WithLabelValues(cl.action).Inc()
		log.Debug("transport failure, retrying", logger.Attempt(attempt), logger.Err(err))
		status, body, err = c.attempt(ctx, cl)
	}

	if status == http.StatusUnauthorized {
		log.Error("crowd rejected application credentials", logger.Status(status))
		return nil, c.fail(&Error{
			Kind:    KindAuthClientMisconfigured,
			Action:  cl.action,
			Message: "application failed to authenticate",
			Status:  status,
			Payload: body,
		})
	}

	if status != cl.success {
		return nil, c.fail(statusError(cl, status, body))
	}

	if !isJSONObject(body) {
		return nil, c.fail(unexpected(cl.action, "content from server is not valid JSON", status, body))
	}

	metrics.CrowdRequests.WithLabelValues(cl.action, "ok").Inc()
	return body, nil
}

// attempt performs a single request. A non-nil error is always a transport
// failure; HTTP statuses are returned as data.
func (c *Client) attempt(ctx context.Context, cl call) (int, []byte, error) {
	var rd io.Reader
	if cl.body != nil {
		rd = bytes.NewReader(cl.body)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, c.base+cl.path, rd)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, b, nil
}

func (c *Client) fail(e *Error) *Error {
	metrics.CrowdRequests.WithLabelValues(e.Action, e.Kind.String()).Inc()
	return e
}

func statusError(cl call, status int, body []byte) *Error {
	if isJSONObject(body) {
		res := gjson.ParseBytes(body)
		reason := res.Get("reason").String()
		if k, ok := KindForReason(reason); ok {
			return &Error{
				Kind:    k,
				Action:  cl.action,
				Reason:  reason,
				Message: res.Get("message").String(),
				Status:  status,
			}
		}
	}
	if status == http.StatusNotFound && cl.notFound != KindUnknown {
		return &Error{Kind: cl.notFound, Action: cl.action, Status: status}
	}
	return unexpected(cl.action, "unknown error received", status, body)
}

func isJSONObject(b []byte) bool {
	return gjson.ValidBytes(b) && gjson.ParseBytes(b).IsObject()
}
