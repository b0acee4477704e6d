package oauth

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog/log"
)

// Codes are meant to be exchanged within seconds; the TTL is a backstop
// on top of the single-use consumption semantics.
const codeTTL = 10 * time.Minute

type grant struct {
	ClientID string
	Scopes   []string
}

// CodeStore is the ephemeral, in-memory mapping from one-time
// authorization codes to the (client, scopes) tuple that produced them.
// Process restart invalidates all outstanding codes.
type CodeStore struct {
	cache *ttlcache.Cache[string, grant]
}

// NewCodeStore creates the store and starts its expiry loop.
func NewCodeStore() *CodeStore {
	cache := ttlcache.New[string, grant](
		ttlcache.WithTTL[string, grant](codeTTL),
		ttlcache.WithDisableTouchOnHit[string, grant](),
	)
	go cache.Start()
	return &CodeStore{cache: cache}
}

// Create mints an opaque, unguessable one-time code bound to the client
// and its granted scopes.
func (s *CodeStore) Create(clientID string, scopes []string) string {
	code := randomToken(16)
	s.cache.Set(code, grant{ClientID: clientID, Scopes: scopes}, ttlcache.DefaultTTL)
	log.Debug().Str("client_id", clientID).Msg("issued authorization code")
	return code
}

// Consume atomically looks up and destroys a code. A second consume of
// the same code reports not found.
func (s *CodeStore) Consume(code string) (clientID string, scopes []string, ok bool) {
	item, present := s.cache.GetAndDelete(code)
	if !present || item == nil {
		return "", nil, false
	}
	g := item.Value()
	return g.ClientID, g.Scopes, true
}

// Stop terminates the expiry loop.
func (s *CodeStore) Stop() {
	s.cache.Stop()
}
