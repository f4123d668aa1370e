// Package session tracks the server-issued session identifier that ties
// successive sends into one conversation.
//
// Per send the hooks run in a fixed order: AttachCredential before the
// request, then ObserveResponse and ObserveStatus once headers arrive.
package session

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	DefaultInitHeader    = "x-init-token"
	DefaultSessionHeader = "x-agentforce-session-id"
)

// Headers names the credential headers used on the wire.
type Headers struct {
	Init        string // sent with a fresh token when no session is held
	SessionSend string // carries the held identifier on outgoing requests
	SessionRecv string // read from responses to learn a new identifier
}

func (h Headers) withDefaults() Headers {
	if h.Init == "" {
		h.Init = DefaultInitHeader
	}
	if h.SessionRecv == "" {
		h.SessionRecv = DefaultSessionHeader
	}
	if h.SessionSend == "" {
		h.SessionSend = h.SessionRecv
	}
	return h
}

type Option func(*Manager)

// WithTokenSource replaces the init-token generator.
func WithTokenSource(fn func() string) Option {
	return func(m *Manager) {
		m.newToken = fn
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// Manager holds at most one session identifier.
type Manager struct {
	mu        sync.RWMutex
	sessionID string
	headers   Headers
	newToken  func() string
	logger    zerolog.Logger
}

func NewManager(headers Headers, opts ...Option) *Manager {
	m := &Manager{
		headers:  headers.withDefaults(),
		newToken: uuid.NewString,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AttachCredential sets exactly one of the init or continue-session headers.
func (m *Manager) AttachCredential(h http.Header) {
	m.mu.RLock()
	sid := m.sessionID
	m.mu.RUnlock()

	if sid == "" {
		h.Del(m.headers.SessionSend)
		h.Set(m.headers.Init, m.newToken())
		return
	}
	h.Del(m.headers.Init)
	h.Set(m.headers.SessionSend, sid)
}

// ObserveResponse stores a server-issued identifier, replacing any held one.
func (m *Manager) ObserveResponse(h http.Header) {
	issued := h.Get(m.headers.SessionRecv)
	if issued == "" {
		return
	}

	m.mu.Lock()
	rotated := m.sessionID != "" && m.sessionID != issued
	m.sessionID = issued
	m.mu.Unlock()

	if rotated {
		m.logger.Debug().Msg("session identifier rotated")
	}
}

// ObserveStatus drops the held identifier on authentication failure.
func (m *Manager) ObserveStatus(code int) {
	if code != http.StatusUnauthorized {
		return
	}
	m.mu.Lock()
	m.sessionID = ""
	m.mu.Unlock()
	m.logger.Info().Int("status", code).Msg("session cleared after authentication failure")
}

// SessionID returns the held identifier and whether one is held.
func (m *Manager) SessionID() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessionID, m.sessionID != ""
}

func (m *Manager) Reset() {
	m.mu.Lock()
	m.sessionID = ""
	m.mu.Unlock()
}
