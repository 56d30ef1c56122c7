package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/auction-storefront/internal/errors"
	"github.com/jrsteele09/auction-storefront/outcome"
	"github.com/jrsteele09/auction-storefront/sessions"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const (
	defaultTimeout  = 30 * time.Second
	requestIDHeader = "X-Request-ID"
)

// SessionSource is the view of the session controller the client needs. The
// bearer is read through Token at the start of every request.
type SessionSource interface {
	oauth2.TokenSource
	// Expire ends the session if accessToken is still current and reports
	// whether this call did so
	Expire(accessToken, reason string) bool
	RefreshSession(ctx context.Context) (sessions.Session, error)
}

// Notifier is told when a request ended the session, so the presentation
// layer can send the user back to login
type Notifier interface {
	SessionEnded(reason string)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(reason string)

func (f NotifierFunc) SessionEnded(reason string) {
	f(reason)
}

// RequestOptions describe one call. Headers are applied after the defaults
// and replace them. Body may be nil, []byte, io.Reader or any JSON encodable value.
type RequestOptions struct {
	Method  string
	Headers http.Header
	Body    any
}

// Client wraps every data call: it attaches the bearer token, classifies the
// response into an Outcome and ends the session on a 401. It never retries.
type Client struct {
	source            SessionSource
	httpClient        *http.Client
	notifier          Notifier
	logger            zerolog.Logger
	nowTime           func() time.Time
	preemptiveRefresh bool
}

// Option defines a function type to modify the Client instance.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithNotifier(n Notifier) Option {
	return func(c *Client) {
		c.notifier = n
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithNowTime sets the clock used for the local expiry check
func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *Client) {
		c.nowTime = nowFunc
	}
}

// WithPreemptiveRefresh refreshes a locally expired access token once before
// sending the request instead of ending the session
func WithPreemptiveRefresh() Option {
	return func(c *Client) {
		c.preemptiveRefresh = true
	}
}

func New(source SessionSource, options ...Option) *Client {
	c := &Client{
		source:     source,
		httpClient: &http.Client{Timeout: defaultTimeout},
		notifier:   NotifierFunc(func(string) {}),
		logger:     zerolog.Nop(),
		nowTime:    time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Request performs an authenticated call. With no active session it returns
// AuthFailure("no active session") without touching the network.
func (c *Client) Request(ctx context.Context, url string, opts RequestOptions) outcome.Outcome {
	tok, err := c.source.Token()
	if err != nil || tok == nil || tok.AccessToken == "" {
		c.notifier.SessionEnded(outcome.ReasonNoActiveSession)
		return outcome.AuthFailure(outcome.ReasonNoActiveSession)
	}

	if c.expired(tok) {
		var failed *outcome.Outcome
		tok, failed = c.handleLocalExpiry(ctx, tok)
		if failed != nil {
			return *failed
		}
	}

	o := c.send(ctx, url, opts, tok.AccessToken)
	if o.Kind == outcome.KindAuthFailure {
		c.expire(tok.AccessToken, o.Message)
	}
	return o
}

// PublicRequest performs a call that needs no session. No bearer is sent and
// a 401 does not touch the session.
func (c *Client) PublicRequest(ctx context.Context, url string, opts RequestOptions) outcome.Outcome {
	return c.send(ctx, url, opts, "")
}

func (c *Client) Get(ctx context.Context, url string) outcome.Outcome {
	return c.Request(ctx, url, RequestOptions{Method: http.MethodGet})
}

func (c *Client) Post(ctx context.Context, url string, body any) outcome.Outcome {
	return c.Request(ctx, url, RequestOptions{Method: http.MethodPost, Body: body})
}

func (c *Client) Put(ctx context.Context, url string, body any) outcome.Outcome {
	return c.Request(ctx, url, RequestOptions{Method: http.MethodPut, Body: body})
}

func (c *Client) Patch(ctx context.Context, url string, body any) outcome.Outcome {
	return c.Request(ctx, url, RequestOptions{Method: http.MethodPatch, Body: body})
}

func (c *Client) Delete(ctx context.Context, url string) outcome.Outcome {
	return c.Request(ctx, url, RequestOptions{Method: http.MethodDelete})
}

// expired only trusts tokens whose expiry could be decoded
func (c *Client) expired(tok *oauth2.Token) bool {
	return !tok.Expiry.IsZero() && !c.nowTime().Before(tok.Expiry)
}

func (c *Client) handleLocalExpiry(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, *outcome.Outcome) {
	expiredOutcome := outcome.AuthFailure(outcome.ReasonSessionExpired)
	if !c.preemptiveRefresh {
		c.expire(tok.AccessToken, outcome.ReasonSessionExpired)
		return nil, &expiredOutcome
	}

	if _, err := c.source.RefreshSession(ctx); err != nil {
		if errors.Is(err, errors.ErrTransport) {
			failed := outcome.TransportFailure(err.Error())
			return nil, &failed
		}
		c.logger.Info().Err(err).Msg("Preemptive refresh failed")
		if errors.Is(err, errors.ErrInvalidRefreshToken) {
			// the controller already ended the session
			c.notifier.SessionEnded(outcome.ReasonSessionExpired)
		} else {
			c.expire(tok.AccessToken, outcome.ReasonSessionExpired)
		}
		return nil, &expiredOutcome
	}

	fresh, err := c.source.Token()
	if err != nil || fresh == nil || fresh.AccessToken == "" {
		return nil, &expiredOutcome
	}
	return fresh, nil
}

func (c *Client) expire(accessToken, reason string) {
	if c.source.Expire(accessToken, reason) {
		c.notifier.SessionEnded(reason)
	}
}

func (c *Client) send(ctx context.Context, url string, opts RequestOptions, accessToken string) outcome.Outcome {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	requestID := uuid.NewString()
	log := c.logger.With().Str("method", method).Str("url", url).Str("request_id", requestID).Logger()

	body, err := encodeBody(opts.Body)
	if err != nil {
		log.Err(err).Msg("Failed to encode request body")
		return outcome.TransportFailure(err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		log.Err(err).Msg("Failed to build request")
		return outcome.TransportFailure("failed to create request: " + err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	req.Header.Set(requestIDHeader, requestID)
	for key, values := range opts.Headers {
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		o := outcome.ClassifyTransportError(ctx, err)
		log.Warn().Err(err).Object("outcome", o).Msg("Request failed")
		return o
	}

	o := outcome.Classify(resp)
	log.Debug().Object("outcome", o).Msg("Request completed")
	return o
}

func encodeBody(body any) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.NewReader(b), nil
	case json.RawMessage:
		return bytes.NewReader(b), nil
	case io.Reader:
		return b, nil
	default:
		payload, err := json.Marshal(b)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to marshal request")
		}
		return bytes.NewReader(payload), nil
	}
}
