package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-go-golems/infravoice/pkg/credentials"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL = "http://localhost:8000"
	PathPrefix     = "/api/v1/"

	maxResponseBytes = 16 << 20
)

type Options struct {
	BaseURL     string
	Timeout     time.Duration
	HTTPClient  *http.Client
	Credentials credentials.Store
	// OnAuthFailure runs after a failed token refresh has wiped the stored
	// credentials. Front-ends use it to send the user back to login.
	OnAuthFailure func()
}

// Client talks to the backend. Every authenticated request goes through a
// single-retry refresh policy, see Do.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	creds         credentials.Store
	onAuthFailure func()
}

func New(opts Options) (*Client, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return nil, errors.Errorf("api url must start with http:// or https://: %q", opts.BaseURL)
	}
	if opts.Credentials == nil {
		return nil, errors.New("missing credential store")
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		baseURL:       base,
		httpClient:    hc,
		creds:         opts.Credentials,
		onAuthFailure: opts.OnAuthFailure,
	}, nil
}

func (c *Client) BaseURL() string { return c.baseURL }

// SetOnAuthFailure replaces the login redirect hook.
func (c *Client) SetOnAuthFailure(fn func()) { c.onAuthFailure = fn }

// Do sends req and decodes a successful JSON response into out (when out is
// non-nil). Authenticated requests that come back 401 trigger exactly one
// token refresh followed by exactly one replay.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	if req.Anonymous {
		return c.send(ctx, req, "", out)
	}
	return c.withRefresh(ctx, req, out)
}

// withRefresh is the refresh decorator. The attempt counter lives here, not
// on the request, so a replayed request can never trigger a second refresh.
func (c *Client) withRefresh(ctx context.Context, req Request, out any) error {
	refreshed := false
	for {
		token, err := c.creds.AccessToken()
		if err != nil {
			return errors.Wrap(err, "read access token")
		}
		err = c.send(ctx, req, token, out)
		if err == nil || refreshed || !errors.Is(err, ErrUnauthorized) {
			return err
		}
		refreshed = true

		log.Debug().Str("path", req.Path).Msg("access token rejected; refreshing")
		if rerr := c.refresh(ctx); rerr != nil {
			c.forceLogout(rerr)
			return errors.Wrapf(ErrLoginRequired, "session expired (%v)", rerr)
		}
	}
}

func (c *Client) refresh(ctx context.Context) error {
	rt, err := c.creds.RefreshToken()
	if err != nil {
		return errors.Wrap(err, "read refresh token")
	}
	if rt == "" {
		return errors.New("no refresh token stored")
	}
	var tokens credentials.Tokens
	err = c.send(ctx, Request{
		Method:    http.MethodPost,
		Path:      "auth/refresh",
		Body:      JSONBody(map[string]string{"refresh_token": rt}),
		Anonymous: true,
	}, "", &tokens)
	if err != nil {
		return err
	}
	if tokens.AccessToken == "" {
		return errors.New("refresh returned no access token")
	}
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = rt
	}
	return c.creds.UpdateTokens(tokens)
}

func (c *Client) forceLogout(cause error) {
	log.Warn().Err(cause).Msg("token refresh failed; clearing stored credentials")
	if err := c.creds.Clear(); err != nil {
		log.Error().Err(err).Msg("clear credentials")
	}
	if c.onAuthFailure != nil {
		c.onAuthFailure()
	}
}

func (c *Client) url(req Request) string {
	u := c.baseURL + PathPrefix + strings.TrimPrefix(req.Path, "/")
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	return u
}

func (c *Client) send(ctx context.Context, req Request, token string, out any) error {
	var body io.Reader
	contentType := ""
	if req.Body != nil {
		var err error
		body, contentType, err = req.Body()
		if err != nil {
			return err
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.url(req), body)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestIDFromContext(ctx))
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return errors.Wrapf(err, "%s %s", req.Method, req.Path)
	}
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return errors.Wrapf(err, "read %s %s response", req.Method, req.Path)
	}
	log.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("api call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newError(req.Method, req.Path, resp.StatusCode, b)
	}
	if out == nil || len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return errors.Wrapf(err, "decode %s %s response", req.Method, req.Path)
	}
	return nil
}
