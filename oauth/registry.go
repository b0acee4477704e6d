package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.etcd.io/bbolt"
	"golang.org/x/crypto/bcrypt"
)

const clientsBucket = "clients"

// MemoryRegistryLocation runs the registry without durable storage.
const MemoryRegistryLocation = ":memory:"

// ErrInvalidRedirectURIs is returned by Register when the redirect URI
// list is empty or contains a non-absolute or non-http(s) entry.
var ErrInvalidRedirectURIs = errors.New("oauth: at least one absolute http or https redirect URI is required")

// Client is a registered OAuth client. The secret is stored only as a
// one-way hash; redirect URIs are immutable after registration.
type Client struct {
	ID           string    `json:"client_id"`
	SecretHash   string    `json:"client_secret_hash"`
	Name         string    `json:"client_name"`
	RedirectURIs []string  `json:"redirect_uris"`
	CreatedAt    time.Time `json:"created_at"`
}

// ClientCredentials is the registration response. The plaintext secret is
// returned exactly once and never stored.
type ClientCredentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// ClientRegistry is the durable mapping of registered clients. It owns
// both the in-memory index and the bbolt handle; every registration is
// committed to disk before it is visible.
type ClientRegistry struct {
	mu      sync.RWMutex
	clients map[string]*Client
	db      *bbolt.DB
}

// NewClientRegistry opens the registry at the given bbolt file path and
// rebuilds the in-memory index from it. An empty path or
// MemoryRegistryLocation runs without durable storage.
func NewClientRegistry(path string) (*ClientRegistry, error) {
	r := &ClientRegistry{clients: make(map[string]*Client)}
	if path == "" || path == MemoryRegistryLocation {
		return r, nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create client db directory: %w", err)
		}
	}
	// 0600: the client table holds secret hashes.
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open client db %s: %w", path, err)
	}
	r.db = db

	err = db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(clientsBucket))
		if err != nil {
			return err
		}
		// Full reload, not incremental: the index is rebuilt entirely
		// from durable state on every startup.
		return bucket.ForEach(func(k, v []byte) error {
			var client Client
			if err := json.Unmarshal(v, &client); err != nil {
				log.Warn().Err(err).Str("client_id", string(k)).
					Msg("skipping unreadable client record")
				return nil
			}
			r.clients[client.ID] = &client
			return nil
		})
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load client db %s: %w", path, err)
	}

	log.Debug().Str("path", path).Int("clients", len(r.clients)).Msg("client registry loaded")
	return r, nil
}

// Close releases the durable handle.
func (r *ClientRegistry) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

func validateRedirectURIs(uris []string) error {
	if len(uris) == 0 {
		return ErrInvalidRedirectURIs
	}
	for _, raw := range uris {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("%w: %q", ErrInvalidRedirectURIs, raw)
		}
	}
	return nil
}

// Register creates a new client with a fresh unguessable id and secret.
// Only a bcrypt hash of the secret is stored; the registration is written
// to durable storage before it is considered committed.
func (r *ClientRegistry) Register(ctx context.Context, name string, redirectURIs []string) (*ClientCredentials, error) {
	if err := validateRedirectURIs(redirectURIs); err != nil {
		return nil, err
	}

	secret := randomToken(24)
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash client secret: %w", err)
	}

	client := &Client{
		ID:           uuid.NewString(),
		SecretHash:   string(hash),
		Name:         name,
		RedirectURIs: append([]string(nil), redirectURIs...),
		CreatedAt:    time.Now().UTC(),
	}

	if r.db != nil {
		record, err := json.Marshal(client)
		if err != nil {
			return nil, fmt.Errorf("encode client record: %w", err)
		}
		err = r.db.Update(func(tx *bbolt.Tx) error {
			return tx.Bucket([]byte(clientsBucket)).Put([]byte(client.ID), record)
		})
		if err != nil {
			return nil, fmt.Errorf("persist client record: %w", err)
		}
	}

	r.mu.Lock()
	r.clients[client.ID] = client
	r.mu.Unlock()

	log.Info().Str("client_id", client.ID).Str("client_name", name).Msg("registered oauth client")
	return &ClientCredentials{ClientID: client.ID, ClientSecret: secret}, nil
}

// Get returns the registered client for the id, if any.
func (r *ClientRegistry) Get(clientID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[clientID]
	return client, ok
}

// VerifySecret compares the supplied secret against the stored hash.
// Unknown client ids report false, not an error.
func (r *ClientRegistry) VerifySecret(clientID, secret string) bool {
	client, ok := r.Get(clientID)
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(client.SecretHash), []byte(secret)) == nil
}

// ValidateRedirectURI requires an exact string match against the
// registered set. No prefix, host-suffix or scheme-relaxed matching.
func (r *ClientRegistry) ValidateRedirectURI(clientID, uri string) bool {
	client, ok := r.Get(clientID)
	if !ok {
		return false
	}
	for _, registered := range client.RedirectURIs {
		if registered == uri {
			return true
		}
	}
	return false
}

// Reset clears both the in-memory index and durable state. Administrative
// and test hook.
func (r *ClientRegistry) Reset(ctx context.Context) error {
	r.mu.Lock()
	r.clients = make(map[string]*Client)
	r.mu.Unlock()

	if r.db == nil {
		return nil
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(clientsBucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(clientsBucket))
		return err
	})
}

// randomToken returns a URL-safe cryptographically random string.
func randomToken(bytes int) string {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(fmt.Sprintf("oauth: read random bytes: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
