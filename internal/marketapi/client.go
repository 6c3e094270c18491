// Package marketapi is the client for the marketplace backend's REST API.
//
// It is the only place that knows the backend's paths and record shapes; callers
// get [market] types back.
package marketapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/oauth2"

	bazerrs "github.com/jdholdren/bazaar/internal/errors"
	"github.com/jdholdren/bazaar/internal/market"
	"github.com/jdholdren/bazaar/internal/session"
)

// Client talks to the backend on behalf of one session.
type Client struct {
	baseURL string
	sess    *session.Session

	anon   *http.Client
	authed *http.Client

	retries   uint64
	retryBase time.Duration
}

type Option func(*Client)

// WithHTTPClient replaces the base client; its transport and timeout are kept for authenticated calls too.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.anon = hc
	}
}

// WithTimeout bounds each attempt of a backend call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.anon
		hc.Timeout = d
		c.anon = &hc
	}
}

// WithRetries bounds how often idempotent reads are retried on transient failures.
func WithRetries(max uint64, base time.Duration) Option {
	return func(c *Client) {
		c.retries = max
		c.retryBase = base
	}
}

func New(baseURL string, sess *session.Session, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		sess:    sess,
		anon: &http.Client{
			Timeout: 5 * time.Second,
		},
		retries:   3,
		retryBase: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.authed = &http.Client{
		Timeout: c.anon.Timeout,
		Transport: &oauth2.Transport{
			Source: sess,
			Base:   c.anon.Transport,
		},
	}

	return c
}

// Session is the session this client acts for.
func (c *Client) Session() *session.Session {
	return c.sess
}

// Describes a single call to the backend.
type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	auth        bool // Whether the call needs a logged in user
}

func jsonRequest(method, path string, in any) (request, error) {
	byts, err := json.Marshal(in)
	if err != nil {
		return request{}, fmt.Errorf("error encoding request body: %w", err)
	}

	return request{method: method, path: path, body: byts, contentType: "application/json"}, nil
}

// do sends the request and decodes a JSON response into out, if given.
//
// GETs are retried on network errors and 5xx responses.
func (c *Client) do(ctx context.Context, req request, out any) error {
	if req.auth && !c.sess.Active() {
		return bazerrs.E(market.ErrUnauthorized, http.StatusUnauthorized)
	}

	if req.method != http.MethodGet {
		return c.once(ctx, req, out)
	}

	b := retry.WithMaxRetries(c.retries, retry.NewExponential(c.retryBase))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := c.once(ctx, req, out)
		if transient(ctx, err) {
			slog.DebugContext(ctx, "retrying backend call", "path", req.path, "error", err)
			return retry.RetryableError(err)
		}

		return err
	})
}

func (c *Client) once(ctx context.Context, req request, out any) error {
	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}

	// Send the token whenever there is one, some reads are personalised.
	hc := c.anon
	if c.sess.Active() {
		hc = c.authed
		httpReq.Header.Set("X-User-Id", c.sess.User().ID)
	}

	resp, err := hc.Do(httpReq)
	if err != nil {
		return fmt.Errorf("error calling %s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	return decodeBody(resp, out)
}

func decodeBody(resp *http.Response, out any) error {
	switch out := out.(type) {
	case nil:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	case *string:
		byts, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("error reading response: %w", err)
		}
		// Tolerate a JSON encoded string too.
		*out = strings.Trim(strings.TrimSpace(string(byts)), `"`)
		return nil
	default:
		err := json.NewDecoder(resp.Body).Decode(out)
		if errors.Is(err, io.EOF) {
			// Some writes answer with an empty body.
			return nil
		}
		if err != nil {
			return fmt.Errorf("error decoding response: %w", err)
		}
		return nil
	}
}

// decodeError turns a non-2xx response into a structured error.
//
// The backend answers with {"message": ...} most of the time, otherwise plain text.
func decodeError(resp *http.Response) error {
	byts, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	msg := strings.TrimSpace(string(byts))
	var structured bazerrs.Error
	if err := json.Unmarshal(byts, &structured); err == nil && structured.Err != nil && structured.Err.Error() != "" {
		msg = structured.Err.Error()
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	var err error = errors.New(msg)
	switch resp.StatusCode {
	case http.StatusNotFound:
		err = fmt.Errorf("%w: %s", market.ErrNotFound, msg)
	case http.StatusUnauthorized:
		err = fmt.Errorf("%w: %s", market.ErrUnauthorized, msg)
	case http.StatusForbidden:
		err = fmt.Errorf("%w: %s", market.ErrForbidden, msg)
	}

	return bazerrs.E(err, resp.StatusCode, structured.Details)
}

// transient reports whether a failed read is worth another attempt.
func transient(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}

	var e *bazerrs.Error
	if errors.As(err, &e) {
		return e.Status >= http.StatusInternalServerError
	}

	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF)
}
