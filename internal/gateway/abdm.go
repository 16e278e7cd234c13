// Package gateway talks to the ABDM sandbox: session establishment and
// profile share of exported bundles.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"omnigest/internal/export"
	"omnigest/pkg/platform/sentinel"
)

const (
	sessionPath      = "/v0.5/sessions"
	profileSharePath = "/v1.0/patients/profile/share"

	// Fallback token lifetime when the gateway's token carries no usable
	// exp claim.
	defaultTokenLifetime = 55 * time.Minute

	// Refresh this far ahead of expiry so an in-flight call never crosses
	// the boundary with a stale token.
	expiryBuffer = 2 * time.Minute
)

// Config carries ABDM connection settings.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	CMID         string
	Timeout      time.Duration
}

// Client is safe for concurrent use; the session token is cached and
// refreshed under lock.
type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

func NewClient(cfg Config, log *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log,
	}
}

type sessionRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

type sessionResponse struct {
	AccessToken string `json:"accessToken"`
}

// ensureSession returns a cached token, establishing a new session when
// the cache is empty or inside the expiry buffer.
func (c *Client) ensureSession(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExp.Add(-expiryBuffer)) {
		return c.token, nil
	}

	body, err := json.Marshal(sessionRequest{ClientID: c.cfg.ClientID, ClientSecret: c.cfg.ClientSecret})
	if err != nil {
		return "", fmt.Errorf("marshal session request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+sessionPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: abdm session: %w", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: abdm session returned %d", sentinel.ErrUnavailable, resp.StatusCode)
	}

	var session sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return "", fmt.Errorf("decode session response: %w", err)
	}
	if session.AccessToken == "" {
		return "", fmt.Errorf("%w: abdm session returned no token", sentinel.ErrUnavailable)
	}

	c.token = session.AccessToken
	c.tokenExp = tokenExpiry(session.AccessToken)
	c.log.DebugContext(ctx, "abdm session established",
		slog.Time("expires", c.tokenExp))
	return c.token, nil
}

// tokenExpiry reads the exp claim without verifying the signature; the
// token is the gateway's own and only gates our refresh schedule.
func tokenExpiry(token string) time.Time {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err == nil {
		if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	return time.Now().Add(defaultTokenLifetime)
}

type profileShareRequest struct {
	RequestID string        `json:"requestId"`
	Timestamp string        `json:"timestamp"`
	Bundle    export.Bundle `json:"bundle"`
}

type ShareResult struct {
	RequestID string
	Status    int
}

// ProfileShare pushes a bundle to the consent manager. Each call gets a
// fresh request ID so the gateway can deduplicate retries.
func (c *Client) ProfileShare(ctx context.Context, bundle export.Bundle) (ShareResult, error) {
	token, err := c.ensureSession(ctx)
	if err != nil {
		return ShareResult{}, err
	}

	requestID := uuid.NewString()
	body, err := json.Marshal(profileShareRequest{
		RequestID: requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Bundle:    bundle,
	})
	if err != nil {
		return ShareResult{}, fmt.Errorf("marshal profile share: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+profileSharePath, bytes.NewReader(body))
	if err != nil {
		return ShareResult{}, fmt.Errorf("build profile share request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-CM-ID", c.cfg.CMID)

	resp, err := c.http.Do(req)
	if err != nil {
		return ShareResult{}, fmt.Errorf("%w: profile share: %w", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ShareResult{}, fmt.Errorf("%w: profile share returned %d", sentinel.ErrUnavailable, resp.StatusCode)
	}

	c.log.InfoContext(ctx, "profile share accepted",
		slog.String("request_id", requestID),
		slog.Int("entries", len(bundle.Entry)))
	return ShareResult{RequestID: requestID, Status: resp.StatusCode}, nil
}
