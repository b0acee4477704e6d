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
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// PlatformConfig describes the Delinea Platform identity service. The
// service password is sourced from the environment by the caller.
type PlatformConfig struct {
	Hostname        string
	ServiceAccount  string
	ServicePassword string
	TenantID        string
	Timeout         time.Duration
}

// Platform is a client for the platform user API. It authenticates with
// a client-credentials grant; the token source handles refresh.
type Platform struct {
	cfg     PlatformConfig
	baseURL string
	tokens  oauth2.TokenSource
	hc      *http.Client
}

// NewPlatform builds a platform client. A bare hostname is addressed
// over https.
func NewPlatform(ctx context.Context, cfg PlatformConfig) (*Platform, error) {
	if cfg.Hostname == "" {
		return nil, fmt.Errorf("vault: platform hostname is required")
	}
	if cfg.ServiceAccount == "" || cfg.ServicePassword == "" {
		return nil, fmt.Errorf("vault: platform service account and password are required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	baseURL := strings.TrimRight(cfg.Hostname, "/")
	if !strings.Contains(baseURL, "://") {
		baseURL = "https://" + baseURL
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ServiceAccount,
		ClientSecret: cfg.ServicePassword,
		TokenURL:     baseURL + "/identity/api/oauth2/token/xpmplatform",
		Scopes:       []string{"xpmheadless"},
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	return &Platform{
		cfg:     cfg,
		baseURL: baseURL,
		tokens:  cc.TokenSource(ctx),
		hc:      &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (p *Platform) do(ctx context.Context, method, path string, query url.Values, body any, out *Document) error {
	token, err := p.tokens.Token()
	if err != nil {
		return fmt.Errorf("vault: platform authentication failed: %w", err)
	}

	target := p.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("vault: encode platform %s %s request: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("vault: build platform %s %s request: %w", method, path, err)
	}
	token.SetAuthHeader(req)
	req.Header.Set("X-MT-SecondaryId", p.cfg.TenantID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log.Debug().Str("method", method).Str("url", target).Msg("platform request")
	resp, err := p.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("vault: decode platform %s %s response: %w", method, path, err)
	}
	return nil
}

// SearchUser runs the platform's user-by-name report. The search string
// is matched as a substring.
func (p *Platform) SearchUser(ctx context.Context, username string) (Document, error) {
	if username == "" {
		return nil, fmt.Errorf("vault: username is required for platform user search")
	}
	body := Document{
		"ID": "user_searchbyname",
		"Args": Document{
			"PageNumber":  1,
			"PageSize":    60,
			"Limit":       100000,
			"FilterQuery": nil,
			"Caching":     0,
			"Ascending":   true,
			"SortBy":      "Username",
			"Parameters": []Document{
				{"Name": "searchString", "Value": "%" + username + "%", "Label": "searchString", "Type": "string", "ColumnType": 12},
				{"Name": "orderby", "Value": "Username", "Label": "orderby", "Type": "string", "ColumnType": 12},
			},
		},
	}
	var out Document
	err := p.do(ctx, http.MethodPost, "/identity/api/Report/RunReport", nil, body, &out)
	return out, err
}

// GetUser fetches a platform user by id.
func (p *Platform) GetUser(ctx context.Context, userID string) (Document, error) {
	var out Document
	err := p.do(ctx, http.MethodGet, "/identity/UserMgmt/GetUser", url.Values{"userId": {userID}}, nil, &out)
	return out, err
}

// verifySearch is the follow-up read after a mutation; failures are
// folded into the decision.
func (p *Platform) verifySearch(ctx context.Context, username string) Document {
	verification, err := p.SearchUser(ctx, username)
	if err != nil {
		log.Warn().Err(err).Str("username", username).Msg("platform user verification failed")
		return Document{"error": err.Error()}
	}
	return verification
}

func nameFromBody(body Document, fallback string) string {
	for _, key := range []string{"Name", "Username"} {
		if name, ok := body[key].(string); ok && name != "" {
			return name
		}
	}
	return fallback
}

// CreateUser creates a platform user and verifies it by name search.
func (p *Platform) CreateUser(ctx context.Context, body Document) (*Decision, error) {
	var result Document
	if err := p.do(ctx, http.MethodPost, "/identity/CDirectoryService/CreateUser", nil, body, &result); err != nil {
		return nil, err
	}
	return &Decision{Result: result, Verification: p.verifySearch(ctx, nameFromBody(body, ""))}, nil
}

// UpdateUser changes a platform user, defaulting the body's ID to the
// given user id.
func (p *Platform) UpdateUser(ctx context.Context, userID string, body Document) (*Decision, error) {
	if _, ok := body["ID"]; !ok {
		body["ID"] = userID
	}
	var result Document
	if err := p.do(ctx, http.MethodPost, "/identity/CDirectoryService/ChangeUser", nil, body, &result); err != nil {
		return nil, err
	}
	return &Decision{Result: result, Verification: p.verifySearch(ctx, nameFromBody(body, userID))}, nil
}

// DeleteUser removes a platform user and verifies the removal.
func (p *Platform) DeleteUser(ctx context.Context, userID string) (*Decision, error) {
	var result Document
	if err := p.do(ctx, http.MethodPost, "/identity/UserMgmt/RemoveUsers", nil, Document{"Users": []string{userID}}, &result); err != nil {
		return nil, err
	}
	return &Decision{Result: result, Verification: p.verifySearch(ctx, userID)}, nil
}
