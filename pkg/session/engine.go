// Package session implements the conversation session engine: the sole
// authority over the conversation list and active selection, and the single
// entry point for all state-mutating commands.
package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/earthchat/earth/pkg/attachments"
	"github.com/earthchat/earth/pkg/backend"
	"github.com/earthchat/earth/pkg/chat"
	"github.com/earthchat/earth/pkg/events"
	"github.com/earthchat/earth/pkg/store"
	"github.com/earthchat/earth/pkg/title"
)

// TitleSynthesizer produces a display title for a conversation's first user
// message. It must never fail; implementations return a fallback instead.
type TitleSynthesizer interface {
	Synthesize(ctx context.Context, seed string) string
}

// Engine owns the authoritative in-memory conversation list, the active
// selection, the per-conversation streaming flags, and the transient pending
// attachments of the current composition.
//
// All mutations happen under one mutex; asynchronous completions (stream
// deltas, title synthesis, attachment loads) re-enter through patch
// operations keyed by conversation id, so a completion always lands on its
// originating conversation even if the active selection moved on.
type Engine struct {
	mu            sync.Mutex
	conversations []*chat.Conversation
	activeID      string
	streaming     map[string]bool
	pending       []chat.Attachment
	systemPrompt  string

	backend   backend.Backend
	titles    TitleSynthesizer
	store     *store.ConversationStore
	repo      attachments.Repository
	publisher *events.PublisherManager

	// persistCh holds at most the newest pending snapshot; the persist loop
	// drains it so the last mutation always wins on disk.
	persistCh   chan *chat.Document
	persistDone chan struct{}

	wg sync.WaitGroup
}

type Option func(*Engine)

// WithStore enables durable write-through persistence. Without it the engine
// runs purely in memory (signed-out mode).
func WithStore(s *store.ConversationStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

func WithRepository(r attachments.Repository) Option {
	return func(e *Engine) {
		e.repo = r
	}
}

func WithPublisher(p *events.PublisherManager) Option {
	return func(e *Engine) {
		e.publisher = p
	}
}

func WithSystemPrompt(prompt string) Option {
	return func(e *Engine) {
		e.systemPrompt = prompt
	}
}

func WithTitleSynthesizer(t TitleSynthesizer) Option {
	return func(e *Engine) {
		e.titles = t
	}
}

func New(b backend.Backend, options ...Option) *Engine {
	ret := &Engine{
		backend:   b,
		streaming: map[string]bool{},
	}
	for _, option := range options {
		option(ret)
	}
	if ret.titles == nil {
		ret.titles = title.NewSynthesizer(b)
	}
	if ret.repo == nil {
		ret.repo = attachments.NewMemoryRepository()
	}
	if ret.publisher == nil {
		ret.publisher = events.NewPublisherManager()
	}
	if ret.store != nil {
		ret.persistCh = make(chan *chat.Document, 1)
		ret.persistDone = make(chan struct{})
		go ret.persistLoop(ret.persistCh)
	}
	return ret
}

// Load initializes engine state from the durable store. A user with no
// stored history (or an unreadable document) starts with one fresh, active
// conversation. Attachments for the restored active conversation load
// asynchronously.
func (e *Engine) Load(ctx context.Context) {
	var doc *chat.Document
	if e.store != nil {
		var err error
		doc, err = e.store.Load(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("could not read stored conversations, initializing fresh state")
			doc = nil
		}
	}

	e.mu.Lock()
	if doc != nil && len(doc.Conversations) > 0 {
		e.conversations = doc.Conversations
		e.activeID = doc.ActiveID
		if e.conversationLocked(e.activeID) == nil {
			e.activeID = doc.Conversations[0].ID
		}
		if doc.SystemPrompt != "" {
			e.systemPrompt = doc.SystemPrompt
		}
	} else {
		c := chat.NewConversation()
		e.conversations = []*chat.Conversation{c}
		e.activeID = c.ID
	}
	activeID := e.activeID
	e.mu.Unlock()

	e.loadAttachmentsAsync(activeID)
}

// Close flushes pending persistence writes and waits for in-flight
// asynchronous operations. The engine must not be used afterwards.
func (e *Engine) Close() {
	e.wg.Wait()
	e.mu.Lock()
	ch := e.persistCh
	e.persistCh = nil
	e.mu.Unlock()
	if ch != nil {
		close(ch)
		<-e.persistDone
	}
}

// Wait blocks until all currently in-flight asynchronous operations (stream
// consumption, title synthesis, attachment IO) have completed.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) persistLoop(ch chan *chat.Document) {
	for doc := range ch {
		if err := e.store.Save(context.Background(), doc); err != nil {
			log.Warn().Err(err).Msg("failed to persist conversations")
		}
	}
	close(e.persistDone)
}

// queuePersistLocked snapshots current state and hands it to the persist
// loop, replacing any not-yet-written older snapshot. Persistence is
// best-effort: a crash between mutation and write loses the last change.
func (e *Engine) queuePersistLocked() {
	if e.persistCh == nil {
		return
	}
	doc := e.documentLocked()
	for {
		select {
		case e.persistCh <- doc:
			return
		default:
		}
		select {
		case <-e.persistCh:
		default:
		}
	}
}

func (e *Engine) documentLocked() *chat.Document {
	doc := &chat.Document{
		ActiveID:      e.activeID,
		SystemPrompt:  e.systemPrompt,
		Conversations: make([]*chat.Conversation, len(e.conversations)),
	}
	for i, c := range e.conversations {
		doc.Conversations[i] = c.Clone()
	}
	return doc
}

func (e *Engine) conversationLocked(id string) *chat.Conversation {
	for _, c := range e.conversations {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (e *Engine) publish(ev events.Event) {
	e.publisher.PublishBlind(ev)
}

// loadAttachmentsAsync replaces the pending attachment view with the durable
// records of the given conversation, provided it is still active when the
// load resolves. On failure the view is cleared, never left stale.
func (e *Engine) loadAttachmentsAsync(conversationID string) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		recs, err := e.repo.GetByConversation(context.Background(), conversationID)
		e.mu.Lock()
		stillActive := e.activeID == conversationID
		if stillActive {
			if err != nil {
				e.pending = nil
			} else {
				e.pending = recs
			}
		}
		e.mu.Unlock()
		if err != nil {
			log.Warn().Err(err).Str("conversation_id", conversationID).Msg("failed to load attachments")
			if stillActive {
				e.publish(events.NewNoticeEvent(conversationID, "Could not load attachments for this conversation."))
			}
		}
	}()
}
