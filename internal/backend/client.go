// Package backend forwards admitted requests to the inference backend.
package backend

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/keygate/internal/domain/apikey"
)

// Config configures the backend client.
type Config struct {
	URL     string
	Timeout time.Duration
	Breaker BreakerConfig
}

// BreakerConfig configures the circuit breaker around backend calls.
type BreakerConfig struct {
	Enabled bool
	// Failures is the number of consecutive transport failures that opens
	// the breaker.
	Failures int
	// OpenTimeout is how long the breaker stays open before a probe request.
	OpenTimeout time.Duration
}

// Options holds the optional telemetry dependencies of the client.
type Options struct {
	Logger         *zap.Logger
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	// Transport is the base round tripper, http.DefaultTransport when nil.
	Transport http.RoundTripper
}

// Client sends requests to the backend. Transport failures and timeouts are
// returned as *apikey.UpstreamError, any HTTP response is returned as is.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
	lg      *zap.Logger
}

// New creates a Client for cfg.
func New(cfg Config, opts Options) (*Client, error) {
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, errors.Wrap(err, "parse backend url")
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.Errorf("backend url %q: scheme must be http or https", cfg.URL)
	}
	if base.Host == "" {
		return nil, errors.Errorf("backend url %q: missing host", cfg.URL)
	}
	if cfg.Timeout <= 0 {
		return nil, errors.New("backend timeout must be positive")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport
	}

	var otelOpts []otelhttp.Option
	if opts.TracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(opts.TracerProvider))
	}
	if opts.MeterProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithMeterProvider(opts.MeterProvider))
	}

	c := &Client{
		base:    base,
		http:    &http.Client{Transport: otelhttp.NewTransport(opts.Transport, otelOpts...)},
		timeout: cfg.Timeout,
		lg:      opts.Logger,
	}
	if cfg.Breaker.Enabled {
		c.breaker = newBreaker(cfg.Breaker, opts.Logger)
	}
	return c, nil
}

func newBreaker(cfg BreakerConfig, lg *zap.Logger) *gobreaker.CircuitBreaker {
	failures := uint32(1)
	if cfg.Failures > 1 {
		failures = uint32(cfg.Failures) //nolint:gosec // bounded by config
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "backend",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			lg.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		},
		IsSuccessful: func(err error) bool {
			// Callers hanging up say nothing about backend health.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
}

// Request is a call to forward.
type Request struct {
	Method string
	// Path is the backend path, already escaped, e.g. "/api/generate".
	Path        string
	Query       string
	ContentType string
	Accept      string
	Body        io.Reader
}

// Do forwards req. On success the caller must close the response body; the
// backend timeout covers the whole exchange and is released on close.
func (c *Client) Do(ctx context.Context, req Request) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		cancel()
		return nil, errors.Wrap(err, "build backend request")
	}

	resp, err := c.execute(httpReq)
	if err != nil {
		cancel()
		return nil, &apikey.UpstreamError{Err: err}
	}
	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// Ping checks that the backend answers HTTP at all.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/"})
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<10))
	_ = resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return errors.Errorf("backend responded %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	u, err := url.Parse(strings.TrimSuffix(c.base.String(), "/") + req.Path)
	if err != nil {
		return nil, err
	}
	u.RawQuery = req.Query

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), req.Body)
	if err != nil {
		return nil, err
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	if req.Accept != "" {
		httpReq.Header.Set("Accept", req.Accept)
	}
	return httpReq, nil
}

func (c *Client) execute(req *http.Request) (*http.Response, error) {
	if c.breaker == nil {
		return c.http.Do(req)
	}
	v, err := c.breaker.Execute(func() (interface{}, error) {
		return c.http.Do(req)
	})
	if err != nil {
		return nil, err
	}
	return v.(*http.Response), nil
}

type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
