// Package memory keeps per-session conversation history in process, with idle expiry.
package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/erkion1127/ds-ai2/internal/entity"
	"github.com/patrickmn/go-cache"
)

const (
	DefaultWindowSize  = 10
	DefaultIdleTimeout = 30 * time.Minute

	// summaryWindow is how many recent messages Summarize looks at
	summaryWindow = 20
)

type Config struct {
	WindowSize  int
	IdleTimeout time.Duration
}

type session struct {
	mu           sync.RWMutex
	id           string
	messages     []entity.ConversationMessage
	scratch      map[string]any
	createdAt    time.Time
	lastActivity time.Time
}

// Store maps session ids to sessions. Entries expire after IdleTimeout without activity;
// expired entries are invisible to reads and reclaimed by CleanupOldSessions.
type Store struct {
	// mu serializes get-or-create with the write that refreshes expiry
	mu       sync.Mutex
	sessions *cache.Cache
	cfg      Config
}

func NewStore(cfg Config) *Store {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = DefaultWindowSize
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}

	return &Store{
		// no janitor: the application schedules CleanupOldSessions
		sessions: cache.New(cfg.IdleTimeout, 0),
		cfg:      cfg,
	}
}

// AddMessage appends to the session, creating it on first use, and refreshes its idle timer
func (s *Store) AddMessage(sessionID string, role entity.Role, content string, metadata map[string]any) entity.ConversationMessage {
	msg := entity.NewMessage(role, content, copyMap(metadata))

	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreate(sessionID)

	sess.mu.Lock()
	sess.messages = append(sess.messages, msg)
	sess.lastActivity = msg.Timestamp
	sess.mu.Unlock()

	s.sessions.SetDefault(sessionID, sess)

	return msg
}

// getOrCreate must be called with s.mu held
func (s *Store) getOrCreate(sessionID string) *session {
	if v, ok := s.sessions.Get(sessionID); ok {
		return v.(*session)
	}

	now := time.Now().UTC()
	return &session{
		id:           sessionID,
		scratch:      make(map[string]any),
		createdAt:    now,
		lastActivity: now,
	}
}

func (s *Store) get(sessionID string) (*session, bool) {
	v, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, false
	}
	return v.(*session), true
}

// GetContext returns up to window most recent messages in chronological order.
// window <= 0 uses the configured default. Unknown sessions yield an empty slice.
func (s *Store) GetContext(sessionID string, window int) []entity.ConversationMessage {
	if window <= 0 {
		window = s.cfg.WindowSize
	}

	sess, ok := s.get(sessionID)
	if !ok {
		return []entity.ConversationMessage{}
	}

	sess.mu.RLock()
	defer sess.mu.RUnlock()

	from := max(len(sess.messages)-window, 0)
	return copyMessages(sess.messages[from:])
}

// History returns every message of the session
func (s *Store) History(sessionID string) []entity.ConversationMessage {
	sess, ok := s.get(sessionID)
	if !ok {
		return []entity.ConversationMessage{}
	}

	sess.mu.RLock()
	defer sess.mu.RUnlock()

	return copyMessages(sess.messages)
}

func (s *Store) ClearSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions.Delete(sessionID)
}

// CleanupOldSessions removes sessions idle past the timeout and reports how many were removed
func (s *Store) CleanupOldSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.sessions.ItemCount()
	s.sessions.DeleteExpired()
	return before - s.sessions.ItemCount()
}

// ListActiveSessions returns the ids of unexpired sessions, sorted
func (s *Store) ListActiveSessions() []string {
	items := s.sessions.Items()

	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) SessionInfo(sessionID string) (entity.SessionInfo, error) {
	sess, ok := s.get(sessionID)
	if !ok {
		return entity.SessionInfo{}, entity.ErrSessionNotFound
	}

	sess.mu.RLock()
	info := entity.SessionInfo{
		SessionID:    sess.id,
		MessageCount: len(sess.messages),
		CreatedAt:    sess.createdAt,
		LastActivity: sess.lastActivity,
	}
	sess.mu.RUnlock()

	info.Summary = s.Summarize(sessionID)
	return info, nil
}

// Summarize lists the intents discussed and actions performed in recent messages.
// Empty when the session is unknown or has no such metadata.
func (s *Store) Summarize(sessionID string) string {
	messages := s.GetContext(sessionID, summaryWindow)
	if len(messages) == 0 {
		return ""
	}

	var intents, actions []string
	seen := make(map[string]bool)
	for _, msg := range messages {
		if intent, ok := msg.Metadata[entity.MetaIntent].(string); ok && intent != "" && !seen[intent] {
			seen[intent] = true
			intents = append(intents, intent)
		}
		if action, ok := msg.Metadata[entity.MetaAction].(string); ok && action != "" {
			actions = append(actions, action)
		}
	}

	var sb strings.Builder
	if len(intents) > 0 {
		sb.WriteString("Topics discussed: ")
		sb.WriteString(strings.Join(intents, ", "))
	}
	if len(actions) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("Actions performed: ")
		sb.WriteString(strings.Join(actions, ", "))
	}
	return sb.String()
}

// Scratch returns a copy of the session's scratch map
func (s *Store) Scratch(sessionID string) map[string]any {
	sess, ok := s.get(sessionID)
	if !ok {
		return map[string]any{}
	}

	sess.mu.RLock()
	defer sess.mu.RUnlock()
	return copyMap(sess.scratch)
}

// SetScratch stores a scratch value, creating the session if needed. It does not count as activity.
func (s *Store) SetScratch(sessionID, key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.get(sessionID)
	if !ok {
		sess = s.getOrCreate(sessionID)
		s.sessions.SetDefault(sessionID, sess)
	}

	sess.mu.Lock()
	sess.scratch[key] = value
	sess.mu.Unlock()
}

// copyMessages returns messages whose metadata shares no maps or slices with the stored ones
func copyMessages(messages []entity.ConversationMessage) []entity.ConversationMessage {
	out := make([]entity.ConversationMessage, len(messages))
	for i, msg := range messages {
		msg.Metadata = copyMap(msg.Metadata)
		out[i] = msg
	}
	return out
}

// copyMap deep-copies nested maps and slices; other values are copied as is
func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}
