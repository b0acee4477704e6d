// Package vault is the REST client for the upstream secrets vault. The
// vault authenticates with a resource-owner password grant on its own
// /oauth2/token endpoint; expired sessions re-authenticate transparently.
package vault

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
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const defaultTimeout = 10 * time.Second

// Config describes the vault connection. Password is sourced from the
// environment by the caller and never persisted.
type Config struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// APIError is a non-2xx response from the vault.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vault: api error %d: %s", e.StatusCode, e.Body)
}

// Session is an authenticated vault client. It is safe for concurrent
// use; the bearer token is refreshed under the mutex on expiry.
type Session struct {
	cfg  Config
	conf *oauth2.Config
	hc   *http.Client

	mu    sync.Mutex
	token *oauth2.Token
}

// NewSession authenticates against the vault and returns a ready client.
func NewSession(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("vault: base URL is required")
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("vault: username and password are required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	s := &Session{
		cfg: cfg,
		conf: &oauth2.Config{
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.BaseURL + "/oauth2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		hc: &http.Client{Timeout: cfg.Timeout},
	}
	if err := s.authenticate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) authenticate(ctx context.Context) error {
	token, err := s.conf.PasswordCredentialsToken(ctx, s.cfg.Username, s.cfg.Password)
	if err != nil {
		return fmt.Errorf("vault: authentication failed: %w", err)
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	log.Debug().Str("base_url", s.cfg.BaseURL).Msg("vault session authenticated")
	return nil
}

func (s *Session) accessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return ""
	}
	return s.token.AccessToken
}

// Do performs an authenticated request against the vault API. body is
// JSON-encoded when non-nil; the response is decoded into out when
// non-nil. A 401 triggers a single re-authentication and retry.
func (s *Session) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	resp, err := s.send(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		log.Info().Msg("vault session expired, re-authenticating")
		if err := s.authenticate(ctx); err != nil {
			return err
		}
		if resp, err = s.send(ctx, method, path, query, body); err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil {
		return nil
	}
	// Some endpoints answer 2xx with an empty body.
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("vault: decode %s %s response: %w", method, path, err)
	}
	return nil
}

// BaseURL returns the vault's root URL, without the /api suffix.
func (s *Session) BaseURL() string {
	return s.cfg.BaseURL
}

// Token returns the current vault access token. Callers embedding it in
// generated output must treat the result as secret material.
func (s *Session) Token() string {
	return s.accessToken()
}

func (s *Session) send(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	target := s.cfg.BaseURL + "/api" + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("vault: encode %s %s request: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("vault: build %s %s request: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+s.accessToken())

	log.Debug().Str("method", method).Str("url", target).Msg("vault request")
	return s.hc.Do(req)
}
