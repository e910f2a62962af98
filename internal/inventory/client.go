package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds one API call when no timeout is configured.
const DefaultTimeout = 15 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

// ErrNoCredentials is returned by authenticated calls on a client without
// credentials.
var ErrNoCredentials = errors.New("inventory: no credentials, sign in first")

// APIError is a request the API answered but refused.
type APIError struct {
	// Status is the HTTP status code.
	Status int

	// Message is the server's message, shown to the operator as is.
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("inventory API error (HTTP %d)", e.Status)
	}
	return e.Message
}

// Credentials identify the signed-in operator and station.
type Credentials struct {
	Token      string
	UserID     string
	MACAddress string
	IPAddress  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithCredentials attaches a signed-in session.
func WithCredentials(creds Credentials) Option {
	return func(c *Client) { c.creds = &creds }
}

// Client talks to one inventory API server.
type Client struct {
	base  *url.URL
	http  *http.Client
	creds *Credentials
}

// New returns a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q: missing host", baseURL)
	}

	c := &Client{
		base: u,
		http: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the server URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// envelope is the wrapper around every API response.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type call struct {
	method string
	path   string
	body   any
	// auth sends the x-* session headers.
	auth bool
	// header is sent in addition to the session headers.
	header http.Header
}

func (c *Client) endpoint(path string) string {
	return c.base.String() + path
}

// do performs one call and decodes the envelope's data into out (if not nil).
func (c *Client) do(ctx context.Context, cl call, out any) error {
	var body io.Reader
	if cl.body != nil {
		data, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.endpoint(cl.path), body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.auth {
		if c.creds == nil || c.creds.Token == "" {
			return ErrNoCredentials
		}
		req.Header.Set("x-token", c.creds.Token)
		req.Header.Set("x-user-id", c.creds.UserID)
		req.Header.Set("x-mac-address", c.creds.MACAddress)
		req.Header.Set("x-ip-address", c.creds.IPAddress)
	}
	for k, vs := range cl.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", cl.method, cl.path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s %s: failed to read response: %w", cl.method, cl.path, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 400 {
			return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		}
		return fmt.Errorf("%s %s: malformed response: %w", cl.method, cl.path, err)
	}
	if !env.Success || resp.StatusCode >= 400 {
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s %s: unexpected data: %w", cl.method, cl.path, err)
	}
	return nil
}

// Ping reports whether the server answers at all. Any HTTP response counts
// as online.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/"), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("server %s is offline: %w", c.base.Host, err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return resp.Body.Close()
}

// SignIn exchanges a username and password for a session token.
func (c *Client) SignIn(ctx context.Context, username, password string) (*SignInResult, error) {
	var res SignInResult
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/auth/signin",
		body:   map[string]string{"username": username, "password": password},
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Verify confirms a second-factor code for the token of a previous sign-in
// and returns the refreshed session.
func (c *Client) Verify(ctx context.Context, token, otp string) (*SignInResult, error) {
	var res SignInResult
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/auth/verify",
		body:   map[string]string{"otp": otp},
		header: http.Header{"Authorization": []string{token}},
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Sticker fetches the product sticker data for a device.
func (c *Client) Sticker(ctx context.Context, imei string) (*Product, error) {
	var products []Product
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/win/QR/sticker/" + url.PathEscape(imei),
	}, &products)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, &APIError{Status: http.StatusOK, Message: fmt.Sprintf("No product found for %s", imei)}
	}
	return &products[0], nil
}

// BIS fetches the three certification lines for a device.
func (c *Client) BIS(ctx context.Context, imei string) (*BISLabel, error) {
	var lbl BISLabel
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/win/QR/bis/" + url.PathEscape(imei),
	}, &lbl)
	if err != nil {
		return nil, err
	}
	return &lbl, nil
}

// SubmitMaster registers a master carton and returns its box data.
func (c *Client) SubmitMaster(ctx context.Context, req MasterRequest) (*MasterCarton, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var carton MasterCarton
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/win/QR/master",
		body:   req,
		auth:   true,
	}, &carton)
	if err != nil {
		return nil, err
	}
	if !carton.IsOK {
		return nil, &APIError{Status: http.StatusOK, Message: "Master carton was not accepted by the server"}
	}
	return &carton, nil
}

// SubmitMono registers a single unit and returns its label data.
func (c *Client) SubmitMono(ctx context.Context, req MonoRequest) (*MonoResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var res MonoResult
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/win/QR/mono/" + url.PathEscape(req.Serial),
		body:   req,
		auth:   true,
	}, &res)
	if err != nil {
		return nil, err
	}
	if !res.IsOK {
		return nil, &APIError{Status: http.StatusOK, Message: "Mono unit was not accepted by the server"}
	}
	return &res, nil
}
