// Package conversation keeps the saved chat threads. The whole history is
// one JSON document in a store.KV, loaded at start-up and rewritten after
// every change.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/agrimate/internal/model"
	"github.com/sells-group/agrimate/internal/store"
)

// HistoryKey is the KV key holding the serialized history.
const HistoryKey = "agrimate-chat-history"

// DefaultTitle names a conversation until its first user message arrives.
const DefaultTitle = "New Chat"

const (
	maxTitleLen  = 40
	truncatedLen = 37
)

// ErrNotFound is returned for operations on an unknown conversation id.
var ErrNotFound = eris.New("conversation not found")

type document struct {
	Conversations        []model.Conversation `json:"conversations"`
	ActiveConversationID *string              `json:"activeConversationId"`
}

// Store holds conversations in memory and persists them to a KV.
type Store struct {
	kv  store.KV
	now func() time.Time
	ids func() string

	mu            sync.Mutex
	conversations []model.Conversation
	activeID      string
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDs sets the generator for conversation and message ids.
func WithIDs(ids func() string) Option {
	return func(s *Store) {
		s.ids = ids
	}
}

// Open loads the saved history from kv. A missing or unreadable document
// yields an empty history.
func Open(ctx context.Context, kv store.KV, opts ...Option) *Store {
	s := &Store{
		kv:  kv,
		now: time.Now,
		ids: uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) {
	raw, err := s.kv.Get(ctx, HistoryKey)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		zap.L().Warn("conversation: load history failed, starting empty", zap.Error(err))
		return
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		zap.L().Warn("conversation: history is corrupt, starting empty", zap.Error(err))
		return
	}
	s.conversations = doc.Conversations
	if doc.ActiveConversationID != nil {
		s.activeID = *doc.ActiveConversationID
	}
	for i := range s.conversations {
		if s.conversations[i].Messages == nil {
			s.conversations[i].Messages = []model.Message{}
		}
	}
}

// save writes the history. Failures are logged and the in-memory state is
// kept. Callers hold s.mu.
func (s *Store) save(ctx context.Context) {
	doc := document{Conversations: s.conversations}
	if doc.Conversations == nil {
		doc.Conversations = []model.Conversation{}
	}
	if s.activeID != "" {
		id := s.activeID
		doc.ActiveConversationID = &id
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		zap.L().Error("conversation: encode history", zap.Error(err))
		return
	}
	if err := s.kv.Put(ctx, HistoryKey, raw); err != nil {
		zap.L().Error("conversation: save history", zap.Error(err))
	}
}

// List returns all conversations, newest first.
func (s *Store) List() []model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Conversation, len(s.conversations))
	for i, c := range s.conversations {
		out[i] = clone(c)
	}
	return out
}

// Get returns the conversation with id.
func (s *Store) Get(id string) (model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return model.Conversation{}, ErrNotFound
	}
	return clone(s.conversations[i]), nil
}

// Active returns the active conversation. ok is false when none is active.
func (s *Store) Active() (c model.Conversation, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(s.activeID)
	if i < 0 {
		return model.Conversation{}, false
	}
	return clone(s.conversations[i]), true
}

// ActiveID returns the active conversation id, or "".
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Create starts an empty conversation at the top of the list and makes it
// active.
func (s *Store) Create(ctx context.Context) model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	c := model.Conversation{
		ID:        s.ids(),
		Title:     DefaultTitle,
		Messages:  []model.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.conversations = append([]model.Conversation{c}, s.conversations...)
	s.activeID = c.ID
	s.save(ctx)
	return clone(c)
}

// Delete removes the conversation with id. Deleting the active conversation
// activates the first remaining one, if any.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return ErrNotFound
	}
	s.conversations = append(s.conversations[:i], s.conversations[i+1:]...)
	if s.activeID == id {
		s.activeID = ""
		if len(s.conversations) > 0 {
			s.activeID = s.conversations[0].ID
		}
	}
	s.save(ctx)
	return nil
}

// Rename sets the title of the conversation with id.
func (s *Store) Rename(ctx context.Context, id, title string) (model.Conversation, error) {
	return s.update(ctx, id, func(c *model.Conversation) {
		c.Title = title
	})
}

// SetActive marks id as the active conversation. An empty id clears it.
func (s *Store) SetActive(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" && s.index(id) < 0 {
		return ErrNotFound
	}
	s.activeID = id
	s.save(ctx)
	return nil
}

// AddMessage appends a turn to the conversation with id. Missing ids and
// timestamps are filled in. The first user message of a conversation still
// titled DefaultTitle becomes its title.
func (s *Store) AddMessage(ctx context.Context, id string, m model.Message) (model.Message, error) {
	if m.ID == "" {
		m.ID = s.ids()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = s.now().UTC()
	}

	_, err := s.update(ctx, id, func(c *model.Conversation) {
		if c.Title == DefaultTitle && m.Role == model.RoleUser && !hasUserMessage(c.Messages) {
			c.Title = Title(m.Content)
		}
		c.Messages = append(c.Messages, m)
	})
	if err != nil {
		return model.Message{}, err
	}
	return m, nil
}

// Clear removes every message from the conversation with id and resets its
// title.
func (s *Store) Clear(ctx context.Context, id string) (model.Conversation, error) {
	return s.update(ctx, id, func(c *model.Conversation) {
		c.Messages = []model.Message{}
		c.Title = DefaultTitle
	})
}

func (s *Store) update(ctx context.Context, id string, fn func(*model.Conversation)) (model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return model.Conversation{}, ErrNotFound
	}
	c := &s.conversations[i]
	fn(c)
	c.UpdatedAt = s.now().UTC()
	s.save(ctx)
	return clone(*c), nil
}

func (s *Store) index(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.conversations {
		if s.conversations[i].ID == id {
			return i
		}
	}
	return -1
}

// Title derives a conversation title from its first message: markdown marks
// are dropped and long text is cut to 37 characters plus "...".
func Title(first string) string {
	clean := strings.TrimSpace(strings.Map(func(r rune) rune {
		if strings.ContainsRune("#*_~`", r) {
			return -1
		}
		return r
	}, first))

	runes := []rune(clean)
	if len(runes) <= maxTitleLen {
		return clean
	}
	return string(runes[:truncatedLen]) + "..."
}

func hasUserMessage(msgs []model.Message) bool {
	for _, m := range msgs {
		if m.Role == model.RoleUser {
			return true
		}
	}
	return false
}

func clone(c model.Conversation) model.Conversation {
	c.Messages = append([]model.Message{}, c.Messages...)
	return c
}
