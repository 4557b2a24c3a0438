package credvault

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/goccy/go-json"

	"apiclient-backend/pkg/model/mauth"
)

// OAuth2Token is the cached token shape, keyed by client id.
type OAuth2Token struct {
	AccessToken  string `json:"accessToken"`
	TokenType    string `json:"tokenType"`
	RefreshToken string `json:"refreshToken,omitempty"`
	// ExpiresAt is the absolute expiry in unix milliseconds; zero means the
	// token never expires.
	ExpiresAt int64 `json:"expiresAt,omitempty"`
}

func (t OAuth2Token) Expired(now time.Time) bool {
	return t.ExpiresAt != 0 && now.UnixMilli() > t.ExpiresAt
}

// Store keeps per-request auth descriptors and OAuth2 tokens. Tokens are
// encrypted through the vault before they sit in memory. Writes are
// last-write-wins; each executor call writes synchronously within its own
// control flow.
type Store struct {
	vault   *Vault
	encType EncryptionType
	logger  *slog.Logger

	mu     sync.RWMutex
	creds  map[string]*mauth.Auth
	tokens map[string][]byte

	refreshGroup singleflight.Group
}

func NewStore(vault *Vault, encType EncryptionType, logger *slog.Logger) *Store {
	if vault == nil {
		vault = NewDefaultVault()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		vault:   vault,
		encType: encType,
		logger:  logger,
		creds:   make(map[string]*mauth.Auth),
		tokens:  make(map[string][]byte),
	}
}

// StoreCredentials remembers the auth descriptor used for a request
// identity (url+method), so re-runs can offer the previous credentials.
func (s *Store) StoreCredentials(id string, auth *mauth.Auth) {
	if auth == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[id] = auth.Clone()
}

func (s *Store) GetCredentials(id string) (*mauth.Auth, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	auth, ok := s.creds[id]
	if !ok {
		return nil, false
	}
	return auth.Clone(), true
}

// StoreOAuth2Token caches a token under the client id.
func (s *Store) StoreOAuth2Token(clientID string, token OAuth2Token) error {
	plain, err := json.Marshal(token)
	if err != nil {
		return err
	}
	sealed, err := s.vault.Encrypt(plain, s.encType)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[clientID] = sealed
	return nil
}

// GetOAuth2Token returns the cached token for a client id, dropping it when
// it has expired.
func (s *Store) GetOAuth2Token(clientID string) (OAuth2Token, bool) {
	s.mu.RLock()
	sealed, ok := s.tokens[clientID]
	s.mu.RUnlock()
	if !ok {
		return OAuth2Token{}, false
	}

	plain, err := s.vault.Decrypt(sealed, s.encType)
	if err != nil {
		s.logger.Warn("failed to decrypt cached oauth2 token", "clientId", clientID, "error", err)
		return OAuth2Token{}, false
	}
	var token OAuth2Token
	if err := json.Unmarshal(plain, &token); err != nil {
		return OAuth2Token{}, false
	}

	if token.Expired(time.Now()) {
		s.mu.Lock()
		delete(s.tokens, clientID)
		s.mu.Unlock()
		return OAuth2Token{}, false
	}
	return token, true
}

// RefreshOAuth2Token is the refresh flow entry point. The flow itself is not
// implemented: callers always get nil and a logged warning. Expiry-based
// invalidation already runs in GetOAuth2Token, so once refresh is built it
// slots in here; singleflight keeps concurrent refreshes for one client id
// collapsed to a single call.
func (s *Store) RefreshOAuth2Token(clientID string) *OAuth2Token {
	result, _, _ := s.refreshGroup.Do(clientID, func() (any, error) {
		s.logger.Warn("oauth2 token refresh is not implemented", "clientId", clientID)
		return (*OAuth2Token)(nil), nil
	})
	token, _ := result.(*OAuth2Token)
	return token
}
