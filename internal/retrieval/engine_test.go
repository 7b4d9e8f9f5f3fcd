package retrieval

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pickeld/lucy/internal/conversation"
	"github.com/pickeld/lucy/internal/costmeter"
	"github.com/pickeld/lucy/internal/identity"
	"github.com/pickeld/lucy/internal/models/chat"
	"github.com/pickeld/lucy/internal/richcontent"
	"github.com/pickeld/lucy/internal/types"
	"github.com/pickeld/lucy/internal/vectorstore"
)

// fakeChat is a scripted chat.Chat implementation: each call consumes
// the next queued response, or errs if the queue is empty.
type fakeChat struct {
	responses []types.ChatResponse
	errs      []error
	calls     int
}

func (f *fakeChat) Chat(ctx context.Context, messages []chat.Message, opts *chat.ChatOptions) (*types.ChatResponse, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		r := f.responses[i]
		return &r, nil
	}
	return &types.ChatResponse{Content: "default"}, nil
}
func (f *fakeChat) ChatStream(ctx context.Context, messages []chat.Message, opts *chat.ChatOptions) (<-chan types.StreamResponse, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeChat) GetModelName() string { return "fake-model" }
func (f *fakeChat) GetModelID() string   { return "fake-model-id" }

func newTestIdentityStore(t *testing.T) *identity.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(identity.AllModels()...))
	return identity.New(db)
}

func newTestConversationStore(t *testing.T) *conversation.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(conversation.AllModels()...))
	return conversation.New(db)
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	rc, err := richcontent.NewProcessor(t.TempDir(), filepath.Join(t.TempDir(), "events"), time.UTC)
	require.NoError(t, err)

	return &Engine{
		Identity:      newTestIdentityStore(t),
		Conversations: newTestConversationStore(t),
		RichContent:   rc,
		CostMeter:     costmeter.NewMeter(nil, 0),
		Timezone:      time.UTC,
		DefaultK:      15,
	}
}

func TestCondenseSkipsLLMWithoutHistory(t *testing.T) {
	e := newTestEngine(t)
	e.Chat = &fakeChat{}

	got := e.condense(context.Background(), "what did David say?", nil, "")
	require.Equal(t, "what did David say?", got)
}

func TestCondenseRewritesWithHistory(t *testing.T) {
	e := newTestEngine(t)
	e.Chat = &fakeChat{responses: []types.ChatResponse{{Content: "What did David say about the trip?"}}}

	history := []conversation.Message{{Role: "user", Content: "Tell me about the trip"}, {Role: "assistant", Content: "Which trip?"}}
	got := e.condense(context.Background(), "what did he say about it?", history, "")
	require.Equal(t, "What did David say about the trip?", got)
}

func TestCondenseFallsBackToOriginalOnLLMError(t *testing.T) {
	e := newTestEngine(t)
	e.Chat = &fakeChat{errs: []error{errors.New("boom")}}

	history := []conversation.Message{{Role: "user", Content: "hi"}}
	got := e.condense(context.Background(), "what about it?", history, "")
	require.Equal(t, "what about it?", got)
}

func TestResolveEntitiesSkipsSentenceStartersAndUnknownNames(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	pid, err := e.Identity.FindOrCreatePerson(ctx, "David Cohen", identity.Identifiers{})
	require.NoError(t, err)

	resolved, unresolved := e.resolveEntities(ctx, "What did David Cohen tell Sarah Levi yesterday?")
	require.Equal(t, []uint64{pid}, resolved)
	require.Contains(t, unresolved, "Sarah Levi")
}

func TestExpandFamilyContextWidensResolvedPersons(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	a, err := e.Identity.FindOrCreatePerson(ctx, "Alice", identity.Identifiers{})
	require.NoError(t, err)
	b, err := e.Identity.FindOrCreatePerson(ctx, "Bob", identity.Identifiers{})
	require.NoError(t, err)
	require.NoError(t, e.Identity.LinkRelationship(ctx, a, b, "spouse", 1.0, ""))

	expandedPersons, _, _ := e.expand(ctx, []Intent{IntentFamilyContext}, []uint64{a})
	require.Contains(t, expandedPersons, b)
}

func TestExpandPersonFactsInjectsFacts(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	a, err := e.Identity.FindOrCreatePerson(ctx, "Alice", identity.Identifiers{})
	require.NoError(t, err)
	require.NoError(t, e.Identity.SetFact(ctx, a, "city", "Tel Aviv", 0.9, "whatsapp", "msg-1", "I live in Tel Aviv"))

	_, _, facts := e.expand(ctx, []Intent{IntentPersonFacts}, []uint64{a})
	require.Len(t, facts, 1)
	require.Equal(t, "city", facts[0].Key)
}

func TestRerankAppliesMinScoreWithoutReranker(t *testing.T) {
	e := newTestEngine(t)
	e.MinScore = 0.5

	candidates := []vectorstore.ScoredPoint{
		{Score: 0.9, Payload: vectorstore.ChunkPayload{Text: "a"}},
		{Score: 0.1, Payload: vectorstore.ChunkPayload{Text: "b"}},
	}
	out := e.rerank(context.Background(), "query", candidates, "")
	require.Len(t, out, 1)
	require.Equal(t, 0.9, out[0].Score)
}

func TestRerankWithoutMinScoreKeepsAllCandidates(t *testing.T) {
	e := newTestEngine(t)
	e.MinScore = 0 // no static cutoff

	candidates := []vectorstore.ScoredPoint{
		{Score: 0.9, Payload: vectorstore.ChunkPayload{Text: "a"}},
		{Score: 0.1, Payload: vectorstore.ChunkPayload{Text: "b"}},
	}
	out := e.rerank(context.Background(), "query", candidates, "")
	require.Len(t, out, 2, "no cutoff configured means nothing gets filtered")
}

func TestBuildPromptIncludesFactsSourcesAndHistory(t *testing.T) {
	e := newTestEngine(t)
	history := []conversation.Message{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}}
	facts := []identity.Fact{{Key: "city", Value: "Tel Aviv"}}
	candidates := []vectorstore.ScoredPoint{
		{Payload: vectorstore.ChunkPayload{Sender: "David", ChatName: "Family", Text: "see you tomorrow", Timestamp: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)}},
	}

	messages := e.buildPrompt("when are we meeting?", history, facts, nil, candidates)
	require.Equal(t, "system", messages[0].Role)
	require.Contains(t, messages[0].Content, "Current date/time")
	require.Equal(t, "user", messages[1].Role)
	require.Equal(t, "hi", messages[1].Content)
	last := messages[len(messages)-1]
	require.Contains(t, last.Content, "city: Tel Aviv")
	require.Contains(t, last.Content, "David")
	require.Contains(t, last.Content, "when are we meeting?")
}

func TestBuildPromptNotesMissingSources(t *testing.T) {
	e := newTestEngine(t)
	messages := e.buildPrompt("anything new?", nil, nil, nil, nil)
	last := messages[len(messages)-1]
	require.Contains(t, last.Content, "[No archive sources found]")
}

func TestSynthesizeTracksCost(t *testing.T) {
	e := newTestEngine(t)
	e.ChatProviderName = "openai"
	e.Chat = &fakeChat{responses: []types.ChatResponse{
		{Content: "The answer is 42.", Usage: types.ChatUsage{PromptTokens: 100, CompletionTokens: 20}},
	}}

	before := e.CostMeter.SessionTotal()
	answer, err := e.synthesize(context.Background(), nil, "")
	require.NoError(t, err)
	require.Equal(t, "The answer is 42.", answer)
	require.GreaterOrEqual(t, e.CostMeter.SessionTotal(), before)
}

func TestSynthesizeReturnsErrorOnChatFailure(t *testing.T) {
	e := newTestEngine(t)
	e.Chat = &fakeChat{errs: []error{errors.New("rate limited")}}

	_, err := e.synthesize(context.Background(), nil, "")
	require.Error(t, err)
}

func TestFailAnswerBillsPartialCostAndRecordsHistory(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	snapshot := e.CostMeter.Snapshot()

	ans := e.failAnswer(ctx, Query{Question: "what happened?", ConversationID: "conv-1"}, snapshot, errors.New("vector store unavailable"))
	require.Contains(t, ans.Answer, "Sorry, I encountered an error")
	require.Contains(t, ans.Answer, "vector store unavailable")

	history, err := e.Conversations.History(ctx, "conv-1", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "user", history[0].Role)
	require.Equal(t, "assistant", history[1].Role)
}

func TestShortReasonTruncatesLongMessages(t *testing.T) {
	long := ""
	for i := 0; i < 200; i++ {
		long += "x"
	}
	got := shortReason(errors.New(long))
	require.Len(t, got, 160)
}

func TestAssetRelationFilterForCrossChannelIsUnrestricted(t *testing.T) {
	filter := assetRelationFilterFor([]Intent{IntentAssetThread, IntentCrossChannel})
	require.Nil(t, filter)
}

func TestAssetRelationFilterForThreadAndAttachment(t *testing.T) {
	filter := assetRelationFilterFor([]Intent{IntentAssetThread, IntentAssetAttachment})
	require.Contains(t, filter, identity.RelationThreadMember)
	require.Contains(t, filter, identity.RelationReplyTo)
	require.Contains(t, filter, identity.RelationAttachmentOf)
}

func TestBuildCitationsAssignsSequentialIDs(t *testing.T) {
	candidates := []vectorstore.ScoredPoint{
		{Score: 0.5, Payload: vectorstore.ChunkPayload{Sender: "A"}},
		{Score: 0.8, Payload: vectorstore.ChunkPayload{Sender: "B"}},
	}
	citations := buildCitations(candidates)
	require.Equal(t, 1, citations[0].ID)
	require.Equal(t, 2, citations[1].ID)
	require.Equal(t, "A", citations[0].Sender)
}

func TestIdsToStringsAndHasIntent(t *testing.T) {
	require.Equal(t, []string{"1", "2"}, idsToStrings([]uint64{1, 2}))
	require.True(t, hasIntent([]Intent{IntentGeneral, IntentPersonHistory}, IntentPersonHistory))
	require.False(t, hasIntent([]Intent{IntentGeneral}, IntentPersonHistory))
}
