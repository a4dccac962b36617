package cart

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pos-pricing/internal/rules"
)

// ErrNotFound indicates the requested session could not be located.
var ErrNotFound = errors.New("cart session not found")

// Manager owns the live cart sessions of this process. One session per
// cart; sessions are created on demand and evicted explicitly.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	Sync       *Synchronizer
	Reconciler Reconciler
	Debounce   time.Duration
	TaskTTL    time.Duration
	Log        zerolog.Logger
}

// NewManager constructs an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Create opens a new session for the given commercial context.
func (m *Manager) Create(rctx rules.Context, index *rules.Index) *Session {
	id := uuid.NewString()
	s := &Session{
		ID:         id,
		ctx:        rctx,
		index:      index,
		Sync:       m.Sync,
		Reconciler: m.Reconciler,
		Tasks:      NewTaskCache(m.TaskTTL),
		Debounce:   m.Debounce,
		Log:        m.Log.With().Str("cart", id).Logger(),
	}
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	return s
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Drop removes a session.
func (m *Manager) Drop(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
