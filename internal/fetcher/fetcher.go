// Package fetcher performs single HTTP GET attempts for download targets.
//
// A call to Fetch is exactly one network attempt: the retry policy lives in
// the engine, which inspects the returned error type to decide whether a
// target is worth another attempt.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/omeister/jpegbatch/internal/domain"
)

// Options configures the fetch client.
type Options struct {
	// Timeout bounds a single request attempt.
	// Default: 30s
	Timeout time.Duration

	// MaxBodySize is the largest response body accepted, in bytes.
	// Default: 50MB
	MaxBodySize int64

	// MaxRedirects bounds the redirect chain before the target is failed
	// permanently. Default: 5
	MaxRedirects int

	// RequestsPerSecond throttles outgoing requests across all workers.
	// Zero disables throttling.
	RequestsPerSecond float64

	// UserAgent overrides the request User-Agent header when set.
	UserAgent string
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:      30 * time.Second,
		MaxBodySize:  50 * 1024 * 1024,
		MaxRedirects: 5,
	}
}

// Result is the body of one successful fetch.
type Result struct {
	Data        []byte
	ContentType string
	Length      int64
}

// Client fetches single targets over HTTP.
type Client struct {
	client  *http.Client
	opts    Options
	limiter *rate.Limiter
}

func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = DefaultOptions().MaxBodySize
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = DefaultOptions().MaxRedirects
	}

	transport := &http.Transport{
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
		DisableCompression:  true, // raw image bytes, nothing to gain
	}

	c := &Client{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= opts.MaxRedirects {
					return errTooManyRedirects
				}
				return nil
			},
		},
		opts: opts,
	}

	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return c
}

// Fetch performs one request attempt for the target.
//
// It returns *TransientError for failures worth retrying, *PermanentError
// for failures that will not improve, and the bare context error when the
// run is being cancelled.
func (c *Client) Fetch(ctx context.Context, target domain.Target) (*Result, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target.URL, nil)
	if err != nil {
		return nil, &PermanentError{Reason: fmt.Sprintf("create request: %v", err)}
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, c.classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp.StatusCode, resp.Status); err != nil {
		return nil, err
	}

	if resp.ContentLength > c.opts.MaxBodySize {
		return nil, &PermanentError{
			Reason: fmt.Sprintf("content length %d exceeds limit %d", resp.ContentLength, c.opts.MaxBodySize),
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if !acceptableContentType(contentType) {
		return nil, &PermanentError{Reason: fmt.Sprintf("unexpected content type %q", contentType)}
	}

	// Read one byte past the limit so an unannounced oversized body is
	// detected without buffering all of it.
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.opts.MaxBodySize+1))
	if err != nil {
		return nil, c.classifyTransportError(ctx, err)
	}
	if int64(len(data)) > c.opts.MaxBodySize {
		return nil, &PermanentError{
			Reason: fmt.Sprintf("body exceeds size limit %d", c.opts.MaxBodySize),
		}
	}

	return &Result{
		Data:        data,
		ContentType: contentType,
		Length:      int64(len(data)),
	}, nil
}

// classifyTransportError sorts request/read errors into cancellation,
// permanent (redirect limit) and transient (everything else on the wire).
func (c *Client) classifyTransportError(ctx context.Context, err error) error {
	// Parent cancellation is not a fetch failure; the worker records the
	// target as cancelled.
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && errors.Is(urlErr.Err, errTooManyRedirects) {
		return &PermanentError{
			Reason: fmt.Sprintf("redirect limit %d exceeded", c.opts.MaxRedirects),
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &TransientError{
			Reason: fmt.Sprintf("request timed out after %s", c.opts.Timeout),
		}
	}

	return &TransientError{Reason: err.Error()}
}

// checkStatus maps a response status to nil, transient or permanent.
// 3xx never reaches here; the client follows redirects internally.
func checkStatus(code int, status string) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests, code >= 500:
		return &TransientError{Reason: fmt.Sprintf("server responded %s", status)}
	default:
		return &PermanentError{Reason: fmt.Sprintf("server responded %s", status)}
	}
}

// acceptableContentType accepts the image/jpeg family. An absent header is
// allowed: the URL already passed extension policy and some servers omit
// the type entirely.
func acceptableContentType(value string) bool {
	if strings.TrimSpace(value) == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		return false
	}
	switch mediaType {
	case "image/jpeg", "image/jpg", "image/pjpeg":
		return true
	default:
		return false
	}
}
