package erep

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"erepbot/internal/game"
)

// Client talks to the game gateway over HTTP JSON. Every request passes
// through a shared rate limiter.
type Client struct {
	BaseURL string
	HTTP    *http.Client

	limiter *rate.Limiter
	log     *slog.Logger

	mu       sync.Mutex
	session  Session
	email    string
	password string
	persist  bool
}

func NewClient(baseURL string, requestsPerSecond float64, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	burst := 1
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
		burst = max(1, int(requestsPerSecond))
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(limit, burst),
		log:     logger,
	}
}

// WithCredentials enables automatic re-login when the gateway rejects the
// session token.
func (c *Client) WithCredentials(email, password string) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.email = strings.TrimSpace(email)
	c.password = password
	return c
}

// PersistSessions makes every successful login write ~/.erepbot/session.json.
func (c *Client) PersistSessions() *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.persist = true
	return c
}

func (c *Client) SetSession(s Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

func (c *Client) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	var out Session
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/login", "", map[string]any{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return Session{}, fmt.Errorf("login: %w", err)
	}
	if out.Email == "" {
		out.Email = email
	}
	c.mu.Lock()
	c.session = out
	persist := c.persist
	c.mu.Unlock()
	if persist {
		if err := SaveSession(out); err != nil {
			c.log.Warn("save session failed", "err", err)
		}
	}
	c.log.Info("logged in", "citizen_id", out.CitizenID)
	return out, nil
}

// EnsureSession logs in when there is no usable token.
func (c *Client) EnsureSession(ctx context.Context) error {
	c.mu.Lock()
	valid := c.session.Valid(time.Now())
	email, password := c.email, c.password
	c.mu.Unlock()
	if valid {
		return nil
	}
	if email == "" {
		return fmt.Errorf("%w: no session and no credentials", game.ErrUnauthorized)
	}
	_, err := c.Login(ctx, email, password)
	return err
}

// call runs an authenticated request, logging in again once on 401.
func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	token := c.Session().Token
	err := c.jsonRequest(ctx, method, path, token, in, out)
	if !errors.Is(err, game.ErrUnauthorized) {
		return err
	}
	c.mu.Lock()
	email, password := c.email, c.password
	c.mu.Unlock()
	if email == "" {
		return err
	}
	c.log.Warn("session rejected, logging in again", "path", path)
	session, lerr := c.Login(ctx, email, password)
	if lerr != nil {
		return lerr
	}
	return c.jsonRequest(ctx, method, path, session.Token, in, out)
}

type gatewayError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) jsonRequest(ctx context.Context, method, path, token string, in any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s %s: %v", game.ErrTransient, method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return statusError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", game.ErrTransient, path, err)
	}
	return nil
}

func statusError(status int, raw []byte) error {
	text := strings.TrimSpace(string(raw))
	switch {
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", game.ErrUnauthorized, text)
	case status == http.StatusTooManyRequests, status >= 500:
		return fmt.Errorf("%w: gateway status %d: %s", game.ErrTransient, status, text)
	}
	var ge gatewayError
	if json.Unmarshal(raw, &ge) == nil && ge.Code != "" {
		if sentinel := game.ErrorForCode(ge.Code); sentinel != nil {
			return fmt.Errorf("%w: %s", sentinel, ge.Message)
		}
		return fmt.Errorf("gateway error %s: %s", ge.Code, ge.Message)
	}
	return fmt.Errorf("gateway status %d: %s", status, text)
}
