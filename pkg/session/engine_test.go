package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/earthchat/earth/pkg/attachments"
	"github.com/earthchat/earth/pkg/backend"
	"github.com/earthchat/earth/pkg/chat"
	"github.com/earthchat/earth/pkg/store"
)

// fakeBackend hands out manually driven streams so tests control exactly
// when and how a response terminates.
type fakeBackend struct {
	mu        sync.Mutex
	streams   chan *backend.Stream
	prompts   []string
	systems   []string
	histories [][]chat.Message
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{streams: make(chan *backend.Stream, 8)}
}

func (b *fakeBackend) NewChat(systemPrompt string, history []chat.Message) (backend.Chat, error) {
	b.mu.Lock()
	b.systems = append(b.systems, systemPrompt)
	b.histories = append(b.histories, history)
	b.mu.Unlock()
	return &fakeChat{b: b}, nil
}

func (b *fakeBackend) Complete(_ context.Context, _ string) (string, error) {
	return "Fake Title", nil
}

func (b *fakeBackend) nextStream(t *testing.T) *backend.Stream {
	t.Helper()
	select {
	case s := <-b.streams:
		return s
	case <-time.After(time.Second):
		t.Fatal("no stream was opened")
		return nil
	}
}

func (b *fakeBackend) streamCount() int {
	return len(b.streams)
}

func (b *fakeBackend) lastPrompt() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.prompts) == 0 {
		return ""
	}
	return b.prompts[len(b.prompts)-1]
}

type fakeChat struct {
	b *fakeBackend
}

func (c *fakeChat) Send(_ context.Context, prompt string) (*backend.Stream, error) {
	s := backend.NewStream(8)
	c.b.mu.Lock()
	c.b.prompts = append(c.b.prompts, prompt)
	c.b.mu.Unlock()
	c.b.streams <- s
	return s, nil
}

type titleFunc func(ctx context.Context, seed string) string

func (f titleFunc) Synthesize(ctx context.Context, seed string) string {
	return f(ctx, seed)
}

func newTestEngine(t *testing.T, options ...Option) (*Engine, *fakeBackend) {
	t.Helper()
	b := newFakeBackend()
	e := New(b, options...)
	e.Load(context.Background())
	e.Wait()
	return e, b
}

func completeStream(t *testing.T, b *fakeBackend, deltas ...string) {
	t.Helper()
	s := b.nextStream(t)
	for _, d := range deltas {
		s.Push(d)
	}
	s.Close()
}

func TestLoadCreatesFreshConversationForNewUser(t *testing.T) {
	e, _ := newTestEngine(t)
	snap := e.Snapshot()
	require.Len(t, snap.Conversations, 1)
	require.Equal(t, snap.Conversations[0].ID, snap.ActiveID)
	require.Equal(t, chat.PlaceholderTitle, snap.Conversations[0].Title)
	require.Empty(t, snap.Conversations[0].Messages)
}

func TestSendMessageKeepsStrictAlternation(t *testing.T) {
	e, b := newTestEngine(t)
	defer e.Close()

	const n = 3
	for i := 0; i < n; i++ {
		require.NoError(t, e.SendMessage(context.Background(), "question", nil))
		completeStream(t, b, "answer")
		e.Wait()
	}

	conv, ok := e.ActiveConversation()
	require.True(t, ok)
	require.Len(t, conv.Messages, 2*n)
	for i, m := range conv.Messages {
		if i%2 == 0 {
			require.Equal(t, chat.RoleUser, m.Role)
		} else {
			require.Equal(t, chat.RoleModel, m.Role)
			require.Equal(t, "answer", m.Content)
		}
	}
}

func TestStreamingAccumulatesDeltas(t *testing.T) {
	e, b := newTestEngine(t)
	defer e.Close()

	require.NoError(t, e.SendMessage(context.Background(), "greet me", nil))
	completeStream(t, b, "Hel", "lo")
	e.Wait()

	conv, _ := e.ActiveConversation()
	require.Equal(t, "Hello", conv.Messages[1].Content)
}

func TestSendRejectedWhileStreaming(t *testing.T) {
	e, b := newTestEngine(t)
	defer e.Close()

	require.NoError(t, e.SendMessage(context.Background(), "first", nil))
	err := e.SendMessage(context.Background(), "second", nil)
	require.ErrorIs(t, err, ErrStreamActive)

	conv, _ := e.ActiveConversation()
	require.Len(t, conv.Messages, 2)

	completeStream(t, b, "done")
	e.Wait()
}

func TestSendRejectedWhenEmpty(t *testing.T) {
	e, _ := newTestEngine(t)
	defer e.Close()

	require.ErrorIs(t, e.SendMessage(context.Background(), "", nil), ErrEmptyMessage)
	require.ErrorIs(t, e.SendMessage(context.Background(), "   \n", nil), ErrEmptyMessage)

	conv, _ := e.ActiveConversation()
	require.Empty(t, conv.Messages)
}

func TestSendAttachmentsOnlyIsAllowed(t *testing.T) {
	e, b := newTestEngine(t)
	defer e.Close()

	att := chat.Attachment{Name: "notes.txt", MediaType: "text/plain", Content: "remember this", Size: 12}
	require.NoError(t, e.SendMessage(context.Background(), "", []chat.Attachment{att}))
	completeStream(t, b, "noted")
	e.Wait()

	conv, _ := e.ActiveConversation()
	require.Len(t, conv.Messages, 2)
	require.Len(t, conv.Messages[0].Attachments, 1)
	require.Contains(t, b.lastPrompt(), "[file attached: notes.txt]")
	require.Contains(t, b.lastPrompt(), "remember this")
}

func TestSendRejectedBeforeLoad(t *testing.T) {
	e := New(newFakeBackend())
	require.ErrorIs(t, e.SendMessage(context.Background(), "hi", nil), ErrNoActiveConversation)
}

func TestTitleAppliesToOriginatingConversation(t *testing.T) {
	gate := make(chan string)
	b := newFakeBackend()
	e := New(b, WithTitleSynthesizer(titleFunc(func(_ context.Context, _ string) string {
		return <-gate
	})))
	e.Load(context.Background())
	e.Wait()
	defer e.Close()

	convA := e.Snapshot().ActiveID
	require.NoError(t, e.SendMessage(context.Background(), "tell me about space lizards", nil))

	// switch away before the title resolves
	convB := e.NewConversation()
	require.Equal(t, convB.ID, e.Snapshot().ActiveID)

	gate <- "Space Lizards"
	completeStream(t, b, "they are green")
	e.Wait()

	snap := e.Snapshot()
	titles := map[string]string{}
	for _, c := range snap.Conversations {
		titles[c.ID] = c.Title
	}
	require.Equal(t, "Space Lizards", titles[convA])
	require.Equal(t, chat.PlaceholderTitle, titles[convB.ID])
}

func TestTitleOnlySynthesizedForFirstMessage(t *testing.T) {
	calls := 0
	var mu sync.Mutex
	b := newFakeBackend()
	e := New(b, WithTitleSynthesizer(titleFunc(func(_ context.Context, _ string) string {
		mu.Lock()
		calls++
		mu.Unlock()
		return "Once"
	})))
	e.Load(context.Background())
	e.Wait()
	defer e.Close()

	for i := 0; i < 2; i++ {
		require.NoError(t, e.SendMessage(context.Background(), "hi", nil))
		completeStream(t, b, "hello")
		e.Wait()
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, calls)
}

func TestDeleteOnlyConversationLeavesExactlyOneFresh(t *testing.T) {
	e, _ := newTestEngine(t)
	defer e.Close()

	before := e.Snapshot()
	require.NoError(t, e.DeleteConversation(context.Background(), before.ActiveID))
	e.Wait()

	after := e.Snapshot()
	require.Len(t, after.Conversations, 1)
	require.NotEqual(t, before.ActiveID, after.Conversations[0].ID)
	require.Equal(t, after.Conversations[0].ID, after.ActiveID)
	require.Empty(t, after.Conversations[0].Messages)
}

func TestDeleteConversationCascadesAttachments(t *testing.T) {
	repo := attachments.NewMemoryRepository()
	b := newFakeBackend()
	e := New(b, WithRepository(repo))
	e.Load(context.Background())
	e.Wait()
	defer e.Close()

	convID := e.Snapshot().ActiveID
	att := chat.Attachment{Name: "doc.txt", MediaType: "text/plain", Content: "x", Size: 1}
	require.NoError(t, e.SendMessage(context.Background(), "look at this", []chat.Attachment{att}))
	completeStream(t, b, "ok")
	e.Wait()

	recs, err := repo.GetByConversation(context.Background(), convID)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	require.NoError(t, e.DeleteConversation(context.Background(), convID))
	e.Wait()

	recs, err = repo.GetByConversation(context.Background(), convID)
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestDeleteInactiveConversationKeepsSelection(t *testing.T) {
	e, _ := newTestEngine(t)
	defer e.Close()

	first := e.Snapshot().ActiveID
	second := e.NewConversation()
	require.NoError(t, e.DeleteConversation(context.Background(), first))
	e.Wait()

	snap := e.Snapshot()
	require.Len(t, snap.Conversations, 1)
	require.Equal(t, second.ID, snap.ActiveID)
}

func TestRegenerateWithoutPrecedingUserMessageIsNoOp(t *testing.T) {
	kv := store.NewMemoryKV()
	cs, err := store.NewConversationStore(kv, "user-1")
	require.NoError(t, err)
	conv := chat.NewConversation()
	conv.Messages = append(conv.Messages, chat.NewModelMessage("orphan reply"))
	require.NoError(t, cs.Save(context.Background(), &chat.Document{
		ActiveID:      conv.ID,
		Conversations: []*chat.Conversation{conv},
	}))

	b := newFakeBackend()
	e := New(b, WithStore(cs))
	e.Load(context.Background())
	e.Wait()
	defer e.Close()

	require.ErrorIs(t, e.RegenerateResponse(context.Background(), conv.ID, 0), ErrNoUserMessage)
	got, _ := e.ActiveConversation()
	require.Equal(t, "orphan reply", got.Messages[0].Content)
	require.Zero(t, b.streamCount())
}

func TestRegenerateReplacesModelMessageInPlace(t *testing.T) {
	kv := store.NewMemoryKV()
	cs, err := store.NewConversationStore(kv, "user-1")
	require.NoError(t, err)
	conv := chat.NewConversation()
	conv.Messages = append(conv.Messages,
		chat.NewUserMessage("what color is the sky"),
		chat.NewModelMessage("old answer"),
	)
	require.NoError(t, cs.Save(context.Background(), &chat.Document{
		ActiveID:      conv.ID,
		Conversations: []*chat.Conversation{conv},
	}))

	b := newFakeBackend()
	e := New(b, WithStore(cs))
	e.Load(context.Background())
	e.Wait()
	defer e.Close()

	require.NoError(t, e.RegenerateResponse(context.Background(), conv.ID, 1))
	completeStream(t, b, "blue, usually")
	e.Wait()

	got, _ := e.ActiveConversation()
	require.Len(t, got.Messages, 2)
	require.Equal(t, chat.RoleUser, got.Messages[0].Role)
	require.Equal(t, "blue, usually", got.Messages[1].Content)
	require.Equal(t, "what color is the sky", b.lastPrompt())
}

func TestRegenerateRejectsUserMessage(t *testing.T) {
	e, b := newTestEngine(t)
	defer e.Close()

	require.NoError(t, e.SendMessage(context.Background(), "hi", nil))
	completeStream(t, b, "hello")
	e.Wait()

	convID := e.Snapshot().ActiveID
	require.ErrorIs(t, e.RegenerateResponse(context.Background(), convID, 0), ErrNotModelMessage)
}

func TestStreamErrorWritesVisibleMessageAndRecovers(t *testing.T) {
	e, b := newTestEngine(t)
	defer e.Close()

	require.NoError(t, e.SendMessage(context.Background(), "hi", nil))
	s := b.nextStream(t)
	s.Push("par")
	s.Fail(errors.New("backend overloaded"))
	e.Wait()

	conv, _ := e.ActiveConversation()
	require.Equal(t, StreamErrorMessage, conv.Messages[1].Content)
	require.False(t, e.IsStreaming(conv.ID))

	// the conversation remains usable
	require.NoError(t, e.SendMessage(context.Background(), "try again", nil))
	completeStream(t, b, "better now")
	e.Wait()
	conv, _ = e.ActiveConversation()
	require.Len(t, conv.Messages, 4)
	require.Equal(t, "better now", conv.Messages[3].Content)
}

func TestEditMessageLastWriteWins(t *testing.T) {
	e, b := newTestEngine(t)
	defer e.Close()

	require.NoError(t, e.SendMessage(context.Background(), "original", nil))
	completeStream(t, b, "reply")
	e.Wait()

	convID := e.Snapshot().ActiveID
	require.NoError(t, e.EditMessage(convID, 0, "first edit"))
	require.NoError(t, e.EditMessage(convID, 0, "second edit"))

	conv, _ := e.ActiveConversation()
	require.Equal(t, "second edit", conv.Messages[0].Content)
	require.Equal(t, "reply", conv.Messages[1].Content)
	require.Equal(t, chat.RoleUser, conv.Messages[0].Role)
}

func TestDeleteMessageRemovesOnlyThatIndex(t *testing.T) {
	e, b := newTestEngine(t)
	defer e.Close()

	for i := 0; i < 2; i++ {
		require.NoError(t, e.SendMessage(context.Background(), "q", nil))
		completeStream(t, b, "a")
		e.Wait()
	}

	convID := e.Snapshot().ActiveID
	require.NoError(t, e.DeleteMessage(convID, 1))

	conv, _ := e.ActiveConversation()
	require.Len(t, conv.Messages, 3)
	require.Equal(t, chat.RoleUser, conv.Messages[0].Role)
	require.Equal(t, chat.RoleUser, conv.Messages[1].Role)
	require.Equal(t, chat.RoleModel, conv.Messages[2].Role)

	require.ErrorIs(t, e.DeleteMessage(convID, 7), ErrNoSuchMessage)
}

func TestPersistedStateRoundTrips(t *testing.T) {
	kv := store.NewMemoryKV()
	cs, err := store.NewConversationStore(kv, "user-1")
	require.NoError(t, err)

	b := newFakeBackend()
	e := New(b, WithStore(cs), WithSystemPrompt("be helpful"))
	e.Load(context.Background())
	e.Wait()

	require.NoError(t, e.SendMessage(context.Background(), "remember me", nil))
	completeStream(t, b, "I will")
	e.Wait()
	first := e.Snapshot()
	e.Close()

	cs2, err := store.NewConversationStore(kv, "user-1")
	require.NoError(t, err)
	e2 := New(newFakeBackend(), WithStore(cs2))
	e2.Load(context.Background())
	e2.Wait()
	defer e2.Close()

	second := e2.Snapshot()
	require.Equal(t, first.ActiveID, second.ActiveID)
	require.Equal(t, first.Conversations, second.Conversations)
	require.Equal(t, "be helpful", second.SystemPrompt)
}

func TestSelectConversationLoadsItsAttachments(t *testing.T) {
	repo := attachments.NewMemoryRepository()
	b := newFakeBackend()
	e := New(b, WithRepository(repo))
	e.Load(context.Background())
	e.Wait()
	defer e.Close()

	other := e.NewConversation()
	first := e.Snapshot().Conversations[1]

	rec := chat.Attachment{ID: "att-1", ConversationID: first.ID, Name: "old.txt", MediaType: "text/plain"}
	require.NoError(t, repo.Save(context.Background(), rec))

	require.NoError(t, e.SelectConversation(first.ID))
	e.Wait()
	require.Equal(t, []chat.Attachment{rec}, e.PendingAttachments())

	require.NoError(t, e.SelectConversation(other.ID))
	e.Wait()
	require.Empty(t, e.PendingAttachments())
}

type failingRepo struct {
	attachments.Repository
}

func (r failingRepo) GetByConversation(_ context.Context, _ string) ([]chat.Attachment, error) {
	return nil, errors.New("disk on fire")
}

func TestSelectConversationClearsPendingOnLoadFailure(t *testing.T) {
	b := newFakeBackend()
	e := New(b, WithRepository(failingRepo{attachments.NewMemoryRepository()}))
	e.Load(context.Background())
	e.Wait()
	defer e.Close()

	second := e.NewConversation()
	first := e.Snapshot().Conversations[1]
	e.AttachPending(chat.Attachment{Name: "stale.txt", MediaType: "text/plain"})

	require.NoError(t, e.SelectConversation(first.ID))
	e.Wait()
	require.Empty(t, e.PendingAttachments())
	_ = second
}

func TestSelectUnknownConversationRejected(t *testing.T) {
	e, _ := newTestEngine(t)
	defer e.Close()
	require.ErrorIs(t, e.SelectConversation("nope"), ErrNoSuchConversation)
}

func TestPendingAttachmentsAreSentAndResetOnCompletion(t *testing.T) {
	repo := attachments.NewMemoryRepository()
	b := newFakeBackend()
	e := New(b, WithRepository(repo))
	e.Load(context.Background())
	e.Wait()
	defer e.Close()

	e.AttachPending(chat.Attachment{Name: "draft.txt", MediaType: "text/plain", Content: "wip", Size: 3})
	require.NoError(t, e.SendMessage(context.Background(), "review this", nil))
	completeStream(t, b, "looks fine")
	e.Wait()

	conv, _ := e.ActiveConversation()
	require.Len(t, conv.Messages[0].Attachments, 1)
	require.Equal(t, conv.ID, conv.Messages[0].Attachments[0].ConversationID)
	require.Empty(t, e.PendingAttachments())

	recs, err := repo.GetByConversation(context.Background(), conv.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
}

func TestStreamForDeletedConversationDropsItsPatches(t *testing.T) {
	e, b := newTestEngine(t)
	defer e.Close()

	doomed := e.Snapshot().ActiveID
	require.NoError(t, e.SendMessage(context.Background(), "hello?", nil))
	s := b.nextStream(t)

	e.NewConversation()
	require.NoError(t, e.DeleteConversation(context.Background(), doomed))

	s.Push("into the void")
	s.Close()
	e.Wait()

	snap := e.Snapshot()
	require.Len(t, snap.Conversations, 1)
	for _, c := range snap.Conversations {
		require.NotEqual(t, doomed, c.ID)
	}
}

func TestSetSystemPromptStartsFreshConversation(t *testing.T) {
	e, b := newTestEngine(t)
	defer e.Close()

	before := e.Snapshot().ActiveID
	fresh := e.SetSystemPrompt("you are a pirate")
	require.NotEqual(t, before, fresh.ID)
	require.Equal(t, fresh.ID, e.Snapshot().ActiveID)
	require.Equal(t, "you are a pirate", e.SystemPrompt())

	require.NoError(t, e.SendMessage(context.Background(), "ahoy", nil))
	completeStream(t, b, "arr")
	e.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()
	require.Equal(t, "you are a pirate", b.systems[len(b.systems)-1])
}
