// Package session holds the signed-in user's credential.
//
// A Store is either unauthenticated or authenticated with a token, the
// user's id and a local expiry. Expiry is counted from SaveToken using the
// configured validity; expiry claims inside the token are not consulted.
// Every transition is published to subscribers, and clearing an already
// cleared store publishes again.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/bazaar/internal/broadcast"
	"github.com/dmitrijs2005/bazaar/internal/logging"
	"github.com/dmitrijs2005/bazaar/internal/timex"
)

// DefaultValidity is how long a saved token is trusted.
const DefaultValidity = 24 * time.Hour

// Credential is the persisted form of an authenticated session.
type Credential struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
}

// Persister keeps the credential across restarts.
type Persister interface {
	Save(ctx context.Context, c Credential) error
	Load(ctx context.Context) (*Credential, error)
	Clear(ctx context.Context) error
}

type Options struct {
	Validity  time.Duration
	Clock     timex.Clock
	Persister Persister
	Logger    logging.Logger
}

// Store is safe for concurrent use; the last write wins.
type Store struct {
	validity time.Duration
	clock    timex.Clock
	persist  Persister
	log      logging.Logger

	mu        sync.RWMutex
	token     string
	userID    int64
	expiresAt time.Time

	hub broadcast.Hub[bool]
}

func NewStore(opts Options) *Store {
	s := &Store{
		validity: opts.Validity,
		clock:    opts.Clock,
		persist:  opts.Persister,
		log:      opts.Logger,
	}
	if s.validity <= 0 {
		s.validity = DefaultValidity
	}
	if s.clock == nil {
		s.clock = timex.RealClock{}
	}
	if s.log == nil {
		s.log = logging.Nop()
	}
	return s
}

// SaveToken authenticates the store until now plus the validity period.
func (s *Store) SaveToken(ctx context.Context, token string, userID int64) {
	s.mu.Lock()
	s.token = token
	s.userID = userID
	s.expiresAt = s.clock.Now().Add(s.validity)
	cred := Credential{Token: token, UserID: userID, ExpiresAt: s.expiresAt}
	s.hub.Publish(true)
	s.mu.Unlock()

	s.log.Info(ctx, "session started", "user_id", userID, "expires_at", cred.ExpiresAt)
	if s.persist != nil {
		if err := s.persist.Save(ctx, cred); err != nil {
			s.log.Warn(ctx, "persist session failed", "error", err)
		}
	}
}

// Token returns the token while it is valid. An expired token clears the
// store as a side effect.
func (s *Store) Token(ctx context.Context) (string, bool) {
	s.mu.RLock()
	token, exp := s.token, s.expiresAt
	s.mu.RUnlock()

	if token == "" {
		return "", false
	}
	if !s.clock.Now().Before(exp) {
		s.expire(ctx, token)
		return "", false
	}
	return token, true
}

func (s *Store) IsAuthenticated(ctx context.Context) bool {
	_, ok := s.Token(ctx)
	return ok
}

// UserID returns the signed-in user's id, or 0.
func (s *Store) UserID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// ExpiresAt returns when the current token stops being trusted, or the zero
// time when unauthenticated.
func (s *Store) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// expire clears the store unless a different token was saved meanwhile.
func (s *Store) expire(ctx context.Context, token string) {
	s.mu.Lock()
	if s.token != token {
		s.mu.Unlock()
		return
	}
	s.resetLocked()
	s.mu.Unlock()

	s.log.Info(ctx, "session expired")
	s.clearPersisted(ctx)
}

// Clear signs out. It is idempotent and publishes false every time.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()

	s.clearPersisted(ctx)
}

func (s *Store) resetLocked() {
	s.token = ""
	s.userID = 0
	s.expiresAt = time.Time{}
	s.hub.Publish(false)
}

func (s *Store) clearPersisted(ctx context.Context) {
	if s.persist == nil {
		return
	}
	if err := s.persist.Clear(ctx); err != nil {
		s.log.Warn(ctx, "clear persisted session failed", "error", err)
	}
}

// Subscribe streams the authenticated flag. The channel starts with the
// current value, keeps only the newest unread value and is closed when ctx
// is done.
func (s *Store) Subscribe(ctx context.Context) <-chan bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	current := s.token != "" && s.clock.Now().Before(s.expiresAt)
	return s.hub.SubscribeWith(ctx, current)
}

// Restore loads a persisted session. An expired one is discarded. It
// reports whether the store is now authenticated.
func (s *Store) Restore(ctx context.Context) (bool, error) {
	if s.persist == nil {
		return false, nil
	}
	cred, err := s.persist.Load(ctx)
	if err != nil {
		return false, err
	}
	if cred == nil || cred.Token == "" {
		return false, nil
	}
	if !s.clock.Now().Before(cred.ExpiresAt) {
		s.log.Info(ctx, "discarding expired session", "user_id", cred.UserID)
		s.clearPersisted(ctx)
		return false, nil
	}

	s.mu.Lock()
	s.token = cred.Token
	s.userID = cred.UserID
	s.expiresAt = cred.ExpiresAt
	s.hub.Publish(true)
	s.mu.Unlock()

	s.log.Info(ctx, "session restored", "user_id", cred.UserID, "expires_at", cred.ExpiresAt)
	return true, nil
}
