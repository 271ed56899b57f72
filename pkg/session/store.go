// Package session holds the signed-in user's token and identity.
//
// The Store is the only writer of session state. Every mutator writes
// through to the cache so that Restore can rebuild the session after a
// restart without contacting the server. Absence of data is the Anonymous
// state, never an error.
package session

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eva-app/evaclient/pkg/cache"
	"github.com/eva-app/evaclient/pkg/logging"
	"github.com/eva-app/evaclient/pkg/models"
)

// State is the logical authentication state.
type State string

const (
	Anonymous     State = "anonymous"
	Authenticated State = "authenticated"
)

// Default cache keys.
const (
	DefaultTokenKey    = "token"
	DefaultIdentityKey = "user_info"
)

// Config controls where the session is persisted.
type Config struct {
	TokenKey    string
	IdentityKey string
	// TokenTTL bounds how long a persisted token survives restarts.
	// Zero keeps it until logout.
	TokenTTL time.Duration
}

// Store owns the in-memory session and its durable copy.
type Store struct {
	mu    sync.RWMutex
	cache *cache.Manager
	cfg   Config
	log   *zap.Logger

	token       string
	identity    *models.UserInfo
	roles       map[string]struct{}
	permissions map[string]struct{}
}

// New creates an Anonymous Store persisting through c.
func New(c *cache.Manager, cfg Config, log *zap.Logger) *Store {
	if cfg.TokenKey == "" {
		cfg.TokenKey = DefaultTokenKey
	}
	if cfg.IdentityKey == "" {
		cfg.IdentityKey = DefaultIdentityKey
	}
	return &Store{
		cache: c,
		cfg:   cfg,
		log:   logging.OrNop(log),
	}
}

// Restore loads the persisted session. The store becomes Authenticated only
// when both token and identity are present; otherwise it is left unchanged.
func (s *Store) Restore() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	var token string
	var identity models.UserInfo
	haveToken := s.cache.Get(s.cfg.TokenKey, &token) && token != ""
	haveIdentity := s.cache.Get(s.cfg.IdentityKey, &identity)

	if haveToken && haveIdentity {
		s.setLocked(token, &identity)
		s.log.Debug("session restored", zap.String("user_id", identity.ID))
	}
	return s.stateLocked()
}

// Login persists token and identity and makes the session Authenticated.
func (s *Store) Login(token string, identity *models.UserInfo) {
	identity = identity.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Set(s.cfg.TokenKey, token, s.cfg.TokenTTL)
	if identity != nil {
		s.cache.Set(s.cfg.IdentityKey, identity, 0)
	} else {
		s.cache.Remove(s.cfg.IdentityKey)
	}
	s.setLocked(token, identity)

	userID := ""
	if identity != nil {
		userID = identity.ID
	}
	s.log.Info("session login", zap.String("user_id", userID))
}

// Logout forgets the session in memory and in the cache. It is safe to
// call on an Anonymous store.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Remove(s.cfg.TokenKey)
	s.cache.Remove(s.cfg.IdentityKey)

	wasAuthenticated := s.stateLocked() == Authenticated
	s.setLocked("", nil)
	if wasAuthenticated {
		s.log.Info("session logout")
	}
}

// SetIdentity replaces the identity, for example after a profile edit.
// The token and authentication state are not touched.
func (s *Store) SetIdentity(identity *models.UserInfo) {
	identity = identity.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	if identity != nil {
		s.cache.Set(s.cfg.IdentityKey, identity, 0)
	} else {
		s.cache.Remove(s.cfg.IdentityKey)
	}
	s.setLocked(s.token, identity)
}

// Token returns the bearer token, or "" when there is none.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Identity returns a copy of the current identity, or nil.
func (s *Store) Identity() *models.UserInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity.Clone()
}

// IsAuthenticated reports whether both token and identity are present.
func (s *Store) IsAuthenticated() bool {
	return s.State() == Authenticated
}

// State returns the current authentication state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

// Roles returns the role set, sorted.
func (s *Store) Roles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.roles)
}

// Permissions returns the permission set, sorted.
func (s *Store) Permissions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.permissions)
}

func (s *Store) stateLocked() State {
	if s.token != "" && s.identity != nil {
		return Authenticated
	}
	return Anonymous
}

func (s *Store) setLocked(token string, identity *models.UserInfo) {
	s.token = token
	s.identity = identity
	s.roles = make(map[string]struct{})
	s.permissions = make(map[string]struct{})
	if identity == nil {
		return
	}
	for _, r := range identity.Roles {
		s.roles[r] = struct{}{}
	}
	for _, p := range identity.Permissions {
		s.permissions[p] = struct{}{}
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
