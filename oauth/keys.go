package oauth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MemoryKeyLocation selects an ephemeral signing keypair that is lost on
// restart. Any other location is treated as a durable PEM file path.
const MemoryKeyLocation = ":memory:"

// Token verification failures. Handlers must not leak which one occurred
// to unauthenticated callers.
var (
	ErrTokenInvalid     = errors.New("oauth: token invalid")
	ErrTokenExpired     = errors.New("oauth: token expired")
	ErrAudienceMismatch = errors.New("oauth: token audience mismatch")
)

// TokenClaims is the validated claim set of a bearer token.
type TokenClaims struct {
	ClientID  string
	Scopes    []string
	Audience  string
	ExpiresAt time.Time
}

// HasScope reports whether any of the required scopes is present in the
// token's scope set.
func (c *TokenClaims) HasScope(required ...string) bool {
	for _, want := range required {
		for _, got := range c.Scopes {
			if got == want {
				return true
			}
		}
	}
	return false
}

// JSONWebKey is the public half of the signing key in JWK format.
type JSONWebKey struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JSONWebKeySet is the document served from the jwks_uri.
type JSONWebKeySet struct {
	Keys []JSONWebKey `json:"keys"`
}

// KeyStore owns the asymmetric keypair used to mint and verify bearer
// tokens. The keypair is read-only after construction and may be shared
// freely across concurrent verifications.
type KeyStore struct {
	key   *rsa.PrivateKey
	keyID string
}

// NewKeyStore initializes the signing keypair. An empty location or
// MemoryKeyLocation yields an ephemeral keypair. For a durable path the
// persisted key is loaded when parseable; otherwise a fresh RSA-2048
// keypair is generated and persisted best-effort with owner-only
// permissions. A failed write is logged, not fatal.
func NewKeyStore(location string) (*KeyStore, error) {
	if location == "" || location == MemoryKeyLocation {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
		log.Debug().Msg("generated ephemeral signing keypair")
		return &KeyStore{key: key, keyID: uuid.NewString()}, nil
	}

	if key, err := loadPrivateKey(location); err == nil {
		log.Debug().Str("path", location).Msg("loaded signing keypair")
		return &KeyStore{key: key, keyID: uuid.NewString()}, nil
	} else if !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", location).
			Msg("persisted signing key unreadable, regenerating")
	}

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	if err := savePrivateKey(location, key); err != nil {
		log.Error().Err(err).Str("path", location).
			Msg("failed to persist signing key, continuing with in-memory keypair")
	} else {
		log.Debug().Str("path", location).Msg("generated and persisted signing keypair")
	}
	return &KeyStore{key: key, keyID: uuid.NewString()}, nil
}

func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in %s", path)
	}
	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("unsupported key type %T in %s", key, path)
		}
		return rsaKey, nil
	}
	return x509.ParsePKCS1PrivateKey(block.Bytes)
}

func savePrivateKey(path string, key *rsa.PrivateKey) error {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return fmt.Errorf("marshal signing key: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create key directory: %w", err)
		}
	}
	data := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
	// Secret material is owner read/write only.
	return os.WriteFile(path, data, 0o600)
}

// Issue mints a signed bearer token bound to the client, scopes and
// audience with the given validity window.
func (ks *KeyStore) Issue(clientID string, scopes []string, audience string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"aud":       audience,
		"scope":     strings.Join(scopes, " "),
		"exp":       time.Now().Add(ttl).Unix(),
		"client_id": clientID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = ks.keyID

	signed, err := token.SignedString(ks.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry, and the audience when
// expectedAudience is non-empty. It returns ErrTokenExpired,
// ErrAudienceMismatch or ErrTokenInvalid on failure.
func (ks *KeyStore) Verify(tokenString, expectedAudience string) (*TokenClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	parsed, err := parser.Parse(tokenString, func(*jwt.Token) (any, error) {
		return &ks.key.PublicKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}

	audiences, err := mapClaims.GetAudience()
	if err != nil {
		return nil, ErrTokenInvalid
	}
	claims := &TokenClaims{}
	if len(audiences) > 0 {
		claims.Audience = audiences[0]
	}
	if expectedAudience != "" && claims.Audience != expectedAudience {
		return nil, ErrAudienceMismatch
	}

	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if clientID, ok := mapClaims["client_id"].(string); ok {
		claims.ClientID = clientID
	}
	if scope, ok := mapClaims["scope"].(string); ok {
		claims.Scopes = strings.Fields(scope)
	}
	return claims, nil
}

// PublicJWK exposes the verification key for the discovery endpoint.
func (ks *KeyStore) PublicJWK() JSONWebKey {
	pub := &ks.key.PublicKey
	return JSONWebKey{
		Kid: ks.keyID,
		Kty: "RSA",
		Alg: "RS256",
		Use: "sig",
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}
