// Package sessionstore keeps per-visitor storefront state in memory.
// Clean Architecture: Adapter. Sessions are bounded by an LRU so abandoned
// carts are evicted instead of growing without limit.
package sessionstore

import (
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tamsal/storefront/internal/domain/entities"
	"github.com/tamsal/storefront/internal/domain/usecases"
)

const DefaultMaxSessions = 10000

// State is the mutable part of a session. Access it through Session.Do.
type State struct {
	Language     entities.Language
	Cart         *usecases.Cart
	Conversation *usecases.Conversation
	LastEstimate *entities.EstimationResult
}

// Session is one visitor's cart, conversation and language.
type Session struct {
	ID string

	// Estimates and Chats order the in-flight remote calls of this session.
	Estimates usecases.RequestSlot
	Chats     usecases.RequestSlot

	mu    sync.Mutex
	state State
}

func newSession(id string, lang entities.Language) *Session {
	return &Session{
		ID: id,
		state: State{
			Language:     lang,
			Cart:         usecases.NewCart(),
			Conversation: usecases.NewConversation(lang),
		},
	}
}

// Do runs fn with the session state locked.
func (s *Session) Do(fn func(st *State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}

// Language returns the session's display language.
func (s *Session) Language() entities.Language {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Language
}

// SetLanguage switches the display language. The conversation restarts with a
// welcome message in the new language; the cart keeps its lines.
func (s *Session) SetLanguage(lang entities.Language) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Language = lang
	s.state.Conversation.Reset(lang)
	s.state.LastEstimate = nil
}

// Store is an LRU-bounded, concurrency-safe session map.
type Store struct {
	mu          sync.Mutex
	cache       *lru.Cache[string, *Session]
	defaultLang entities.Language
}

// New creates a store holding at most size sessions.
func New(size int, defaultLang entities.Language) (*Store, error) {
	if size <= 0 {
		size = DefaultMaxSessions
	}
	if defaultLang == "" {
		defaultLang = entities.DefaultLanguage
	}
	cache, err := lru.New[string, *Session](size)
	if err != nil {
		return nil, err
	}
	return &Store{cache: cache, defaultLang: defaultLang}, nil
}

// Get returns the session with id, if it is still held.
func (s *Store) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	return s.cache.Get(id)
}

// Create starts a new session with a random ID.
func (s *Store) Create() *Session {
	sess := newSession(uuid.NewString(), s.defaultLang)
	s.cache.Add(sess.ID, sess)
	return sess
}

// GetOrCreate returns the session for id, or a fresh one when id is unknown
// or evicted. created reports which happened.
func (s *Store) GetOrCreate(id string) (sess *Session, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.Get(id); ok {
		return sess, false
	}
	return s.Create(), true
}

// Delete drops a session.
func (s *Store) Delete(id string) {
	s.cache.Remove(id)
}

// Len is the number of live sessions.
func (s *Store) Len() int {
	return s.cache.Len()
}
