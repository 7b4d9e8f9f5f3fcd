package retrieval

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pickeld/lucy/internal/conversation"
	"github.com/pickeld/lucy/internal/costmeter"
	"github.com/pickeld/lucy/internal/identity"
	"github.com/pickeld/lucy/internal/logger"
	"github.com/pickeld/lucy/internal/models/chat"
	"github.com/pickeld/lucy/internal/models/embedding"
	"github.com/pickeld/lucy/internal/models/rerank"
	"github.com/pickeld/lucy/internal/richcontent"
	"github.com/pickeld/lucy/internal/settings"
	"github.com/pickeld/lucy/internal/tokenize"
	"github.com/pickeld/lucy/internal/types"
	"github.com/pickeld/lucy/internal/vectorstore"
)

// State names the retrieval engine's per-query state machine steps,
// used only for logging/observability — every step runs in this fixed
// order for every query, short-circuiting to Done on a fatal error.
type State string

const (
	StateNew         State = "new"
	StateCondense    State = "condense"
	StateResolve     State = "resolve"
	StateClassify    State = "classify"
	StateExpand      State = "expand"
	StateRetrieve    State = "retrieve"
	StateRerank      State = "rerank"
	StateSynthesize  State = "synthesize"
	StatePostProcess State = "post_process"
	StateDone        State = "done"
)

// Filters are the caller-supplied retrieval scopes, applied
// unconditionally and intersected with the intent filter, per the UI
// filter contract.
type Filters struct {
	ChatName   string
	Sender     string
	FilterDays int
}

// Query is one /rag/query (or /rag/search) request.
type Query struct {
	Question       string
	ConversationID string
	Filters        Filters
	K              int
}

// Citation is one grounding reference the synthesized answer may cite.
type Citation struct {
	ID        int       `json:"id"`
	Score     float64   `json:"score"`
	Sender    string    `json:"sender"`
	ChatName  string    `json:"chat_name"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Answer is the full result of a /rag/query call.
type Answer struct {
	Answer         string              `json:"answer"`
	RichContent    []richcontent.Block `json:"rich_content"`
	Citations      []Citation          `json:"sources"`
	ConversationID string              `json:"conversation_id,omitempty"`
	CostUSD        float64             `json:"cost_usd"`
}

// Engine wires every subsystem the retrieval pipeline touches: C3
// identity, C4 vectors, the embedder/chat model clients, C2's cost
// meter, conversation history, post-processing, and an optional
// cross-encoder reranker.
type Engine struct {
	Identity      *identity.Store
	Vectors       *vectorstore.Store
	Embedder      embedding.Embedder
	Chat          chat.Chat
	CostMeter     *costmeter.Meter
	Conversations *conversation.Store
	RichContent   *richcontent.Processor
	Settings      *settings.Store

	// Reranker is nil when no rerank provider is configured — step 6
	// then relies on RRF order alone.
	Reranker rerank.Reranker

	// DefaultK is the candidate count requested from C4.Search when
	// the caller doesn't specify one.
	DefaultK int
	// MinScore is the post-rerank/post-fusion score cutoff below which
	// a candidate is dropped before prompt assembly.
	MinScore float64
	// Timezone is used to render the current date/time in the system
	// prompt and when captioning extracted images/events.
	Timezone *time.Location
	// HistoryRounds bounds how many prior messages Condense and prompt
	// assembly load from conversation history.
	HistoryRounds int
	// ChatProviderName is the configured chat.provider setting value
	// (e.g. "openai", "anthropic"), used as the cost meter's pricing
	// key provider rather than the vendor-specific model ID.
	ChatProviderName string
}

// Answer runs the full ten-step pipeline for one query and returns the
// synthesized answer, its rich content, citations, and the cost
// incurred for this call alone (via a Snapshot/Delta pair around the
// whole run).
func (e *Engine) Answer(ctx context.Context, q Query) (Answer, error) {
	snapshot := e.CostMeter.Snapshot()
	k := q.K
	if k <= 0 {
		k = e.DefaultK
	}
	if k <= 0 {
		k = 15
	}

	var history []conversation.Message
	if q.ConversationID != "" && e.Conversations != nil {
		rounds := e.HistoryRounds
		if rounds <= 0 {
			rounds = 6
		}
		history, _ = e.Conversations.History(ctx, q.ConversationID, rounds)
	}

	state := StateCondense
	condensed := e.condense(ctx, q.Question, history, q.ConversationID)

	state = StateResolve
	resolvedPersonIDs, unresolvedNames := e.resolveEntities(ctx, condensed)

	state = StateClassify
	intents := ClassifyIntent(condensed, len(resolvedPersonIDs) > 0, false)

	state = StateExpand
	expandedPersonIDs, expandedThreadIDs, injectedFacts := e.expand(ctx, intents, resolvedPersonIDs)

	state = StateRetrieve
	candidates, err := e.retrieve(ctx, condensed, q.Filters, k, intents, resolvedPersonIDs, expandedPersonIDs, expandedThreadIDs)
	if err != nil {
		logger.ErrorWithFields(ctx, err, map[string]interface{}{"component": "retrieval", "state": string(state)})
		return e.failAnswer(ctx, q, snapshot, err), nil
	}

	state = StateRerank
	candidates = e.rerank(ctx, condensed, candidates, q.ConversationID)

	messages := e.buildPrompt(q.Question, history, injectedFacts, unresolvedNames, candidates)

	state = StateSynthesize
	answerText, err := e.synthesize(ctx, messages, q.ConversationID)
	if err != nil {
		logger.ErrorWithFields(ctx, err, map[string]interface{}{"component": "retrieval", "state": string(state)})
		return e.failAnswer(ctx, q, snapshot, err), nil
	}

	state = StatePostProcess
	cleanedAnswer, richBlocks := e.RichContent.Process(answerText, candidates)

	citations := buildCitations(candidates)

	state = StateDone
	costUSD := e.CostMeter.Delta(snapshot)
	e.recordHistory(ctx, q, cleanedAnswer, costUSD)

	return Answer{
		Answer:         cleanedAnswer,
		RichContent:    richBlocks,
		Citations:      citations,
		ConversationID: q.ConversationID,
		CostUSD:        costUSD,
	}, nil
}

// Search runs only the retrieval half of the pipeline (steps 1-6,
// minus reranking's cost side-effects still applying) for /rag/search,
// which wants raw grounding candidates without paying for synthesis.
func (e *Engine) Search(ctx context.Context, q Query) ([]vectorstore.ScoredPoint, error) {
	k := q.K
	if k <= 0 {
		k = e.DefaultK
	}
	if k <= 0 {
		k = 15
	}

	condensed := e.condense(ctx, q.Question, nil, "")
	resolvedPersonIDs, _ := e.resolveEntities(ctx, condensed)
	intents := ClassifyIntent(condensed, len(resolvedPersonIDs) > 0, false)
	expandedPersonIDs, expandedThreadIDs, _ := e.expand(ctx, intents, resolvedPersonIDs)

	candidates, err := e.retrieve(ctx, condensed, q.Filters, k, intents, resolvedPersonIDs, expandedPersonIDs, expandedThreadIDs)
	if err != nil {
		return nil, err
	}
	return e.rerank(ctx, condensed, candidates, ""), nil
}

// failAnswer implements the retrieval-path recovery policy: surface a
// short apology rather than a hard error, while still billing
// whatever partial cost was incurred up to the failure.
func (e *Engine) failAnswer(ctx context.Context, q Query, snapshot float64, cause error) Answer {
	costUSD := e.CostMeter.Delta(snapshot)
	answer := fmt.Sprintf("Sorry, I encountered an error: %s", shortReason(cause))
	e.recordHistory(ctx, q, answer, costUSD)
	return Answer{Answer: answer, ConversationID: q.ConversationID, CostUSD: costUSD}
}

func (e *Engine) recordHistory(ctx context.Context, q Query, answer string, costUSD float64) {
	if q.ConversationID == "" || e.Conversations == nil {
		return
	}
	if _, err := e.Conversations.Append(ctx, q.ConversationID, "user", q.Question, 0); err != nil {
		logger.ErrorWithFields(ctx, err, map[string]interface{}{"component": "retrieval", "step": "append_user_message"})
	}
	if _, err := e.Conversations.Append(ctx, q.ConversationID, "assistant", answer, costUSD); err != nil {
		logger.ErrorWithFields(ctx, err, map[string]interface{}{"component": "retrieval", "step": "append_assistant_message"})
	}
}

func shortReason(err error) string {
	msg := err.Error()
	if len(msg) > 160 {
		msg = msg[:160]
	}
	return msg
}

// --------------------------------------------------------------------
// Step 1: condense
// --------------------------------------------------------------------

const condensePrompt = `Given the conversation history and a follow-up question, rewrite the
follow-up question to be a standalone question that preserves its original
meaning and its original language. If the follow-up question is already
standalone, or there is no history, return it unchanged. Reply with only the
rewritten question, nothing else.`

// condense rewrites question standalone against prior conversation
// history via a single cost-tracked LLM call. Any failure degrades to
// the original question rather than aborting the query — condensation
// is an optimization, not a correctness requirement.
func (e *Engine) condense(ctx context.Context, question string, history []conversation.Message, conversationID string) string {
	if len(history) == 0 || e.Chat == nil {
		return question
	}

	var sb strings.Builder
	for _, m := range history {
		sb.WriteString(m.Role)
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	sb.WriteString("Follow-up question: ")
	sb.WriteString(question)

	resp, err := e.Chat.Chat(ctx, []chat.Message{
		{Role: "system", Content: condensePrompt},
		{Role: "user", Content: sb.String()},
	}, &chat.ChatOptions{Temperature: 0, MaxTokens: 256})
	if err != nil {
		logger.ErrorWithFields(ctx, err, map[string]interface{}{"component": "retrieval", "step": "condense"})
		return question
	}

	e.trackChat(ctx, resp, conversationID, "condense")

	rewritten := strings.TrimSpace(resp.Content)
	if rewritten == "" {
		return question
	}
	return rewritten
}

// --------------------------------------------------------------------
// Step 2: entity linking
// --------------------------------------------------------------------

// capitalizedNamePattern is a crude noun-capture heuristic for
// candidate person names in an English query — runs of 1-3 title-case
// words. No NER model is wired into the retrieval path, so ambiguous
// or non-Latin names simply fail to resolve and the query proceeds
// without person-scoping.
var capitalizedNamePattern = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,2}\b`)

var commonSentenceStarters = map[string]bool{
	"What": true, "Who": true, "When": true, "Where": true, "Why": true, "How": true,
	"Did": true, "Does": true, "Do": true, "Is": true, "Are": true, "Was": true, "Were": true,
	"Can": true, "Could": true, "Please": true, "Tell": true, "Show": true,
}

// resolveEntities extracts candidate person names from the query and
// resolves each against the identity graph without ever creating a
// new person — a name appearing in a question is not evidence strong
// enough to mint an identity. unresolved carries every candidate name
// that didn't match anyone, for informational prompt context.
func (e *Engine) resolveEntities(ctx context.Context, query string) ([]uint64, []string) {
	if e.Identity == nil {
		return nil, nil
	}

	var resolved []uint64
	var unresolved []string
	seen := map[uint64]bool{}

	for _, candidate := range capitalizedNamePattern.FindAllString(query, -1) {
		first, _, _ := strings.Cut(candidate, " ")
		if commonSentenceStarters[first] && !strings.Contains(candidate, " ") {
			continue
		}
		pid, ok := e.Identity.ResolveByName(ctx, candidate)
		if !ok {
			unresolved = append(unresolved, candidate)
			continue
		}
		if !seen[pid] {
			seen[pid] = true
			resolved = append(resolved, pid)
		}
	}
	return resolved, unresolved
}

// --------------------------------------------------------------------
// Step 3 lives in intent.go (ClassifyIntent).
// --------------------------------------------------------------------

// --------------------------------------------------------------------
// Step 4: graph expansion
// --------------------------------------------------------------------

// expand applies the intent-gated graph expansions: FAMILY_CONTEXT
// widens resolvedPersonIDs with depth-1 relationship edges,
// PERSON_FACTS pulls facts directly for prompt injection, and the
// asset-directed intents widen a thread/neighborhood scope from the
// resolved persons' known assets.
func (e *Engine) expand(ctx context.Context, intents []Intent, resolvedPersonIDs []uint64) ([]uint64, []string, []identity.Fact) {
	var expandedPersonIDs []uint64
	var expandedThreads []string
	var facts []identity.Fact

	if e.Identity == nil {
		return expandedPersonIDs, expandedThreads, facts
	}

	if ShouldExpandRelationships(intents) {
		seen := map[uint64]bool{}
		for _, pid := range resolvedPersonIDs {
			seen[pid] = true
		}
		for _, pid := range resolvedPersonIDs {
			rels, err := e.Identity.RelationshipsOf(ctx, pid, 1)
			if err != nil {
				logger.ErrorWithFields(ctx, err, map[string]interface{}{"component": "retrieval", "step": "expand_relationships"})
				continue
			}
			for _, r := range rels {
				other := r.PersonB
				if other == pid {
					other = r.PersonA
				}
				if !seen[other] {
					seen[other] = true
					expandedPersonIDs = append(expandedPersonIDs, other)
				}
			}
		}
	}

	for _, intent := range intents {
		if intent == IntentPersonFacts {
			for _, pid := range resolvedPersonIDs {
				pf, err := e.Identity.FactsFor(ctx, pid)
				if err != nil {
					logger.ErrorWithFields(ctx, err, map[string]interface{}{"component": "retrieval", "step": "expand_facts"})
					continue
				}
				facts = append(facts, pf...)
			}
			break
		}
	}

	if ShouldExpandAssetNeighborhood(intents) {
		relationFilter := assetRelationFilterFor(intents)
		seenThread := map[string]bool{}
		for _, pid := range append(append([]uint64{}, resolvedPersonIDs...), expandedPersonIDs...) {
			links, err := e.Identity.AssetsOf(ctx, pid, nil)
			if err != nil {
				logger.ErrorWithFields(ctx, err, map[string]interface{}{"component": "retrieval", "step": "expand_assets"})
				continue
			}
			for _, link := range links {
				if !seenThread[link.AssetRef] {
					seenThread[link.AssetRef] = true
					expandedThreads = append(expandedThreads, link.AssetRef)
				}
				neighbors, err := e.Identity.NeighborsOf(ctx, link.AssetRef, relationFilter, 2)
				if err != nil {
					logger.ErrorWithFields(ctx, err, map[string]interface{}{"component": "retrieval", "step": "expand_neighbors"})
					continue
				}
				for _, n := range neighbors {
					if !seenThread[n] {
						seenThread[n] = true
						expandedThreads = append(expandedThreads, n)
					}
				}
			}
		}
	}

	return expandedPersonIDs, expandedThreads, facts
}

func assetRelationFilterFor(intents []Intent) []identity.AssetEdgeRelation {
	var filter []identity.AssetEdgeRelation
	for _, intent := range intents {
		switch intent {
		case IntentAssetThread:
			filter = append(filter, identity.RelationThreadMember, identity.RelationReplyTo)
		case IntentAssetAttachment:
			filter = append(filter, identity.RelationAttachmentOf)
		case IntentCrossChannel:
			return nil // unrestricted: full neighborhood across every relation type
		}
	}
	return filter
}

// --------------------------------------------------------------------
// Step 5: retrieval
// --------------------------------------------------------------------

func (e *Engine) retrieve(ctx context.Context, query string, userFilters Filters, k int, intents []Intent, resolvedPersonIDs, expandedPersonIDs []uint64, expandedThreads []string) ([]vectorstore.ScoredPoint, error) {
	dense, err := e.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	sparse := tokenize.QuerySparseVector(query)

	userFilter := vectorstore.Filter{}
	if userFilters.ChatName != "" {
		userFilter = userFilter.Equals("chat_name", userFilters.ChatName)
	}
	if userFilters.Sender != "" {
		userFilter = userFilter.Equals("sender", userFilters.Sender)
	}
	if userFilters.FilterDays > 0 {
		since := time.Now().Add(-time.Duration(userFilters.FilterDays) * 24 * time.Hour)
		userFilter = userFilter.TimestampRange("timestamp", &since, nil)
	}

	intentFilter := vectorstore.Filter{}
	personScope := ShouldExpandRelationships(intents) || hasIntent(intents, IntentPersonHistory)
	if personScope && len(resolvedPersonIDs) > 0 {
		ids := append(append([]string{}, idsToStrings(resolvedPersonIDs)...), idsToStrings(expandedPersonIDs)...)
		intentFilter = intentFilter.In("person_ids", ids)
	}
	if ShouldExpandAssetNeighborhood(intents) && len(expandedThreads) > 0 {
		intentFilter = intentFilter.In("thread_id", expandedThreads)
	}

	filter := vectorstore.Intersect(userFilter, intentFilter)

	hits, err := e.Vectors.Search(ctx, dense, vectorstore.SparseVec{Indices: sparse.Indices, Values: sparse.Values}, k, filter)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return hits, nil
}

func hasIntent(intents []Intent, want Intent) bool {
	for _, i := range intents {
		if i == want {
			return true
		}
	}
	return false
}

func idsToStrings(ids []uint64) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = fmt.Sprintf("%d", id)
	}
	return out
}

// --------------------------------------------------------------------
// Step 6: reranking
// --------------------------------------------------------------------

// rerank passes candidates through the configured cross-encoder when
// there are enough of them to be worth the round trip, otherwise
// leaves the RRF fusion order from Search untouched. Applies MinScore
// afterward either way.
func (e *Engine) rerank(ctx context.Context, query string, candidates []vectorstore.ScoredPoint, conversationID string) []vectorstore.ScoredPoint {
	if e.Reranker != nil && len(candidates) >= 5 {
		docs := make([]string, len(candidates))
		for i, c := range candidates {
			docs[i] = c.Payload.Text
		}
		results, err := e.Reranker.Rerank(ctx, query, docs)
		if err != nil {
			logger.ErrorWithFields(ctx, err, map[string]interface{}{"component": "retrieval", "step": "rerank"})
		} else {
			reordered := make([]vectorstore.ScoredPoint, 0, len(results))
			for _, r := range results {
				if r.Index < 0 || r.Index >= len(candidates) {
					continue
				}
				pt := candidates[r.Index]
				pt.Score = r.RelevanceScore
				reordered = append(reordered, pt)
			}
			if len(reordered) > 0 {
				candidates = reordered
			}
			if e.CostMeter != nil {
				e.CostMeter.OnCallComplete(ctx, costmeter.CallResult{
					Provider:       e.rerankerProviderName(),
					Model:          e.Reranker.GetModelName(),
					Kind:           costmeter.KindRerank,
					DocCount:       len(docs),
					ConversationID: conversationID,
					RequestContext: "rerank",
				})
			}
		}
	}

	minScore := e.MinScore
	if e.Settings != nil {
		if raw, ok := e.Settings.Get(ctx, "retrieval.min_score"); ok {
			if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
				minScore = parsed
			}
		}
	}
	if minScore <= 0 {
		return candidates
	}
	filtered := candidates[:0]
	for _, c := range candidates {
		if c.Score >= minScore {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// rerankerProviderName recovers the pricing-table provider key from
// the configured reranker, defaulting to jina's request shape for
// anything not explicitly zhipu — mirroring NewReranker's fallback.
func (e *Engine) rerankerProviderName() string {
	if _, ok := e.Reranker.(*rerank.ZhipuReranker); ok {
		return "zhipu"
	}
	return "jina"
}

// --------------------------------------------------------------------
// Step 7: prompt assembly
// --------------------------------------------------------------------

var hebrewDayNames = map[string]string{
	"Monday":    "יום שני",
	"Tuesday":   "יום שלישי",
	"Wednesday": "יום רביעי",
	"Thursday":  "יום חמישי",
	"Friday":    "יום שישי",
	"Saturday":  "שבת",
	"Sunday":    "יום ראשון",
}

const systemPromptTemplate = `You are a helpful AI assistant for a personal archive search system covering
WhatsApp messages, email, documents and call-recording transcripts.

Current date/time: %s
תאריך ושעה נוכחיים: %s

Answer directly when the question needs no archive context. Ground every
archive-based claim in the sources provided below, citing each with its [n]
marker, the sender, and the timestamp. Reply in the language of the question.
If no relevant sources were found and the question requires them, say so
rather than guessing.`

func (e *Engine) buildPrompt(question string, history []conversation.Message, facts []identity.Fact, unresolvedNames []string, candidates []vectorstore.ScoredPoint) []chat.Message {
	tz := e.Timezone
	if tz == nil {
		tz = time.UTC
	}
	now := time.Now().In(tz)
	current := now.Format("Monday, January 02, 2006 at 15:04")
	dayName := hebrewDayNames[now.Format("Monday")]
	hebrewDate := fmt.Sprintf("%s, %d/%d/%d בשעה %s", dayName, now.Day(), now.Month(), now.Year(), now.Format("15:04"))

	systemPrompt := fmt.Sprintf(systemPromptTemplate, current, hebrewDate)

	messages := []chat.Message{{Role: "system", Content: systemPrompt}}
	for _, m := range history {
		messages = append(messages, chat.Message{Role: m.Role, Content: m.Content})
	}

	var sb strings.Builder
	if len(facts) > 0 {
		sb.WriteString("Known facts:\n")
		for _, f := range facts {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", f.Key, f.Value))
		}
		sb.WriteString("\n")
	}
	if len(candidates) == 0 {
		sb.WriteString("[No archive sources found]\n\n")
	} else {
		sb.WriteString("Archive sources:\n")
		for i, c := range candidates {
			sb.WriteString(fmt.Sprintf("[%d] %s (%s, %s): %s\n", i+1, c.Payload.Sender, c.Payload.ChatName,
				c.Payload.Timestamp.In(tz).Format("02/01/2006 15:04"), c.Payload.Text))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("User question: ")
	sb.WriteString(question)

	messages = append(messages, chat.Message{Role: "user", Content: sb.String()})
	return messages
}

// --------------------------------------------------------------------
// Step 8: synthesis
// --------------------------------------------------------------------

func (e *Engine) synthesize(ctx context.Context, messages []chat.Message, conversationID string) (string, error) {
	resp, err := e.Chat.Chat(ctx, messages, &chat.ChatOptions{Temperature: 0.2, MaxTokens: 1024})
	if err != nil {
		return "", fmt.Errorf("synthesizing answer: %w", err)
	}
	e.trackChat(ctx, resp, conversationID, "synthesize")
	return resp.Content, nil
}

func (e *Engine) trackChat(ctx context.Context, resp *types.ChatResponse, conversationID, requestContext string) {
	if e.CostMeter == nil || resp == nil {
		return
	}
	e.CostMeter.OnCallComplete(ctx, costmeter.CallResult{
		Provider:       e.ChatProviderName,
		Model:          e.Chat.GetModelName(),
		Kind:           costmeter.KindChat,
		InTokens:       resp.Usage.PromptTokens,
		OutTokens:      resp.Usage.CompletionTokens,
		ConversationID: conversationID,
		RequestContext: requestContext,
	})
}

// --------------------------------------------------------------------
// Citations
// --------------------------------------------------------------------

func buildCitations(candidates []vectorstore.ScoredPoint) []Citation {
	out := make([]Citation, len(candidates))
	for i, c := range candidates {
		out[i] = Citation{
			ID:        i + 1,
			Score:     c.Score,
			Sender:    c.Payload.Sender,
			ChatName:  c.Payload.ChatName,
			Content:   c.Payload.Text,
			Timestamp: c.Payload.Timestamp,
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
