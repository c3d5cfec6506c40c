// Package trunity is a small client for the Trunity 3 content API: question
// pools, topics, file uploads and questionnaire payloads.
package trunity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

type Config struct {
	BaseURL  string // e.g. https://api.trunity.net/v1
	TokenURL string
	ClientID string
	Username string
	Password string
	Timeout  time.Duration
}

type Client struct {
	base string
	cfg  Config
	http *http.Client
}

// New builds a client whose requests carry a password-grant bearer token.
// The token is fetched on first use and again whenever it expires.
func New(cfg Config) *Client {
	oc := &oauth2.Config{
		ClientID: cfg.ClientID,
		Endpoint: oauth2.Endpoint{TokenURL: cfg.TokenURL, AuthStyle: oauth2.AuthStyleInParams},
	}
	ctx := context.Background()
	ts := oauth2.ReuseTokenSource(nil, passwordSource{ctx: ctx, oauth: oc, user: cfg.Username, pass: cfg.Password})
	h := oauth2.NewClient(ctx, ts)
	if cfg.Timeout > 0 {
		h.Timeout = cfg.Timeout
	}
	return &Client{base: strings.TrimRight(cfg.BaseURL, "/"), cfg: cfg, http: h}
}

type passwordSource struct {
	ctx        context.Context
	oauth      *oauth2.Config
	user, pass string
}

func (s passwordSource) Token() (*oauth2.Token, error) {
	return s.oauth.PasswordCredentialsToken(s.ctx, s.user, s.pass)
}

// Authenticate checks the configured credentials by requesting a token.
func (c *Client) Authenticate(ctx context.Context) error {
	return VerifyCredentials(ctx, c.cfg, c.cfg.Username, c.cfg.Password)
}

// VerifyCredentials requests a token for username/password against the
// token endpoint in cfg.
func VerifyCredentials(ctx context.Context, cfg Config, username, password string) error {
	oc := &oauth2.Config{
		ClientID: cfg.ClientID,
		Endpoint: oauth2.Endpoint{TokenURL: cfg.TokenURL, AuthStyle: oauth2.AuthStyleInParams},
	}
	if _, err := oc.PasswordCredentialsToken(ctx, username, password); err != nil {
		return fmt.Errorf("trunity: authenticate %s: %w", username, err)
	}
	return nil
}

// APIError is a non-2xx response.
type APIError struct {
	Op         string
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("trunity: %s: %s", e.Op, e.Status)
	}
	return fmt.Sprintf("trunity: %s: %s: %s", e.Op, e.Status, e.Body)
}

func (c *Client) endpoint(path string, args ...any) string {
	return c.base + fmt.Sprintf(path, args...)
}

func (c *Client) postForm(ctx context.Context, op, u string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(op, req, out)
}

func (c *Client) sendJSON(ctx context.Context, op, method, u string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(op, req, out)
}

func (c *Client) do(op string, req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("trunity: %s: %w", op, err)
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return &APIError{Op: op, StatusCode: res.StatusCode, Status: res.Status, Body: strings.TrimSpace(string(body))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("trunity: %s: decode response: %w", op, err)
	}
	return nil
}
