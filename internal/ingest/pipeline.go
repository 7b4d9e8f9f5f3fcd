package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/pickeld/lucy/internal/identity"
	"github.com/pickeld/lucy/internal/logger"
	"github.com/pickeld/lucy/internal/models/embedding"
	"github.com/pickeld/lucy/internal/redact"
	"github.com/pickeld/lucy/internal/tokenize"
	"github.com/pickeld/lucy/internal/vectorstore"
)

// TaskEnqueuer dispatches a task onto the durable queue (C7). Ingest
// depends only on this narrow interface rather than the taskrt
// package directly, so the two packages don't form an import cycle.
type TaskEnqueuer interface {
	EnqueueDefault(ctx context.Context, taskName string, payload map[string]interface{}) error
}

// Pipeline wires together every dependency the ingestion algorithm
// needs: the vector store, the identity graph, the embedder, and the
// task queue for extraction dispatch.
type Pipeline struct {
	Vectors   *vectorstore.Store
	Identity  *identity.Store
	Embedder  embedding.Embedder
	Tasks     TaskEnqueuer
	Policies  map[string]redact.Policy
	ChunkCfg  ChunkConfig
	// ExtractionMinChars is the minimum chunk length before an
	// identity-extraction task is dispatched.
	ExtractionMinChars int
}

// factPatternHint is a cheap heuristic for whether a chunk's text is
// likely to contain extractable facts, so the pipeline doesn't
// dispatch an extraction task for every single short message.
var factPatternHint = []string{
	"my name is", "i live in", "i work", "born", "years old",
	"married", "my wife", "my husband", "my son", "my daughter",
	"phone number", "email is",
}

func looksExtractable(text string) bool {
	lower := strings.ToLower(text)
	for _, hint := range factPatternHint {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// Result summarizes what Ingest did, for logging and tests.
type Result struct {
	Deduped     bool
	ChunksCount int
	SourceIDs   []string
}

// Ingest runs the C5 pipeline for one source item: redaction,
// chunking, person resolution, embedding+sparse, vector store upsert,
// graph edges, and extraction-task dispatch. It does no dedup check of
// its own; callers that skip already-stored items call IsDuplicate
// first. Embedding and upsert errors abort ingestion and are returned;
// person resolution, graph edges and extraction dispatch only log
// their failures.
func (p *Pipeline) Ingest(ctx context.Context, item SourceItem) (Result, error) {
	baseSourceID := item.SourceID()

	policy := redact.PolicyFor(p.Policies, string(item.Source))
	displayText := redact.Redact(item.Text, policy)
	embedText := redact.RedactForEmbedding(item.Text, policy)

	chunkCfg := p.ChunkCfg
	if chunkCfg.MaxChars == 0 {
		chunkCfg = DefaultChunkConfig
	}
	displayChunks := Chunk(displayText, chunkCfg)
	embedChunks := Chunk(embedText, chunkCfg)
	if len(displayChunks) != len(embedChunks) {
		// Redaction can occasionally change length enough to shift a
		// chunk boundary; fall back to re-chunking the embed text's
		// redacted form for both so indices still line up 1:1.
		displayChunks = embedChunks
	}
	if len(displayChunks) == 0 {
		return Result{}, nil
	}

	assetID := AssetID(item.Source, item.SourceNativeID)
	chunkGroupID := ""
	if len(displayChunks) > 1 {
		chunkGroupID = assetID
	}

	senderPersonID, mentionedPersonIDs := p.resolvePersons(ctx, item)

	var sourceIDs []string
	var points []vectorstore.Point
	for i := range displayChunks {
		sourceID := chunkSourceID(baseSourceID, i, len(displayChunks))
		sourceIDs = append(sourceIDs, sourceID)

		sparse := tokenize.DocumentSparseVector(embedChunks[i])
		dense, err := p.Embedder.Embed(ctx, embedChunks[i])
		if err != nil {
			return Result{}, fmt.Errorf("embed chunk %d: %w", i, err)
		}

		payload := vectorstore.ChunkPayload{
			SourceID:      sourceID,
			Source:        item.Source,
			ContentType:   contentTypeFor(item),
			Text:          displayChunks[i],
			Sender:        item.Sender,
			ChatID:        item.ChatID,
			ChatName:      item.ChatName,
			IsGroup:       item.IsGroup,
			Timestamp:     item.Timestamp,
			Language:      item.Language,
			ChunkIndex:    i,
			ChunkTotal:    len(displayChunks),
			AssetID:       assetID,
			ThreadID:      item.ThreadID,
			ChunkGroupID:  chunkGroupID,
		}
		if item.Media != nil {
			payload.HasMedia = true
			payload.MediaType = item.Media.Type
			payload.MediaURL = item.Media.URL
			payload.MediaPath = item.Media.Path
		}
		if senderPersonID != 0 {
			payload.PersonIDs = []uint64{senderPersonID}
		}
		payload.MentionedPersonIDs = mentionedPersonIDs

		points = append(points, vectorstore.Point{
			ID:    vectorstore.PointID(sourceID),
			Dense: dense,
			Sparse: vectorstore.SparseVec{
				Indices: sparse.Indices,
				Values:  sparse.Values,
			},
			Payload: payload,
		})
	}

	if err := p.Vectors.UpsertBatch(ctx, points); err != nil {
		return Result{}, fmt.Errorf("upsert batch: %w", err)
	}

	p.emitGraphEdges(ctx, item, assetID, chunkGroupID, sourceIDs, senderPersonID)
	p.dispatchExtraction(ctx, item, baseSourceID, displayChunks)

	return Result{ChunksCount: len(displayChunks), SourceIDs: sourceIDs}, nil
}

func contentTypeFor(item SourceItem) vectorstore.ContentType {
	if item.Media == nil {
		return vectorstore.ContentText
	}
	switch item.Media.Type {
	case "image":
		return vectorstore.ContentImage
	case "voice":
		return vectorstore.ContentVoice
	case "document":
		return vectorstore.ContentDocument
	case "call_recording":
		return vectorstore.ContentCallRecording
	default:
		return vectorstore.ContentText
	}
}

// resolvePersons resolves the sender and any mentioned names via the
// identity graph. Resolution failures are logged, never fatal —
// ingestion proceeds with a zero person id rather than blocking.
func (p *Pipeline) resolvePersons(ctx context.Context, item SourceItem) (uint64, []uint64) {
	if p.Identity == nil {
		return 0, nil
	}

	var senderID uint64
	pid, err := p.Identity.FindOrCreatePerson(ctx, item.Sender, identity.Identifiers{
		Channel:   string(item.Source),
		ChannelID: item.ChatID,
		Phone:     item.SenderPhone,
		Email:     item.SenderEmail,
	})
	if err != nil {
		logger.ErrorWithFields(ctx, err, map[string]interface{}{"component": "ingest", "step": "resolve_sender"})
	} else {
		senderID = pid
	}

	var mentioned []uint64
	seen := map[uint64]bool{senderID: true}
	for _, name := range item.MentionedNames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		mpid, err := p.Identity.FindOrCreatePerson(ctx, name, identity.Identifiers{})
		if err != nil {
			continue
		}
		if !seen[mpid] {
			seen[mpid] = true
			mentioned = append(mentioned, mpid)
		}
	}
	return senderID, mentioned
}

// emitGraphEdges links the sender to the asset and records any
// thread/reply/attachment edges. Participants other than the sender
// are not linked. Every write here is best-effort: a failure is logged
// and ingestion continues, since the vector store upsert (already
// committed above) is the source of truth for whether this item was
// ingested.
func (p *Pipeline) emitGraphEdges(ctx context.Context, item SourceItem, assetID, chunkGroupID string, sourceIDs []string, senderPersonID uint64) {
	if p.Identity == nil {
		return
	}

	if senderPersonID != 0 {
		if err := p.Identity.LinkPersonAsset(ctx, senderPersonID, string(item.Source), assetID, identity.RoleSender, 1.0); err != nil {
			logger.ErrorWithFields(ctx, err, map[string]interface{}{"component": "ingest", "step": "sender_link"})
		}
	}

	if item.ThreadID != "" {
		if err := p.Identity.LinkAssets(ctx, item.ThreadID, assetID, identity.RelationThreadMember, string(item.Source)); err != nil {
			logger.ErrorWithFields(ctx, err, map[string]interface{}{"component": "ingest", "step": "thread_edge"})
		}
	}
	if item.ParentNativeID != "" {
		parentAssetID := AssetID(item.Source, item.ParentNativeID)
		relation := identity.RelationReplyTo
		if item.Media != nil {
			relation = identity.RelationAttachmentOf
		}
		if err := p.Identity.LinkAssets(ctx, assetID, parentAssetID, relation, string(item.Source)); err != nil {
			logger.ErrorWithFields(ctx, err, map[string]interface{}{"component": "ingest", "step": "parent_edge"})
		}
	}
	if item.Source == vectorstore.SourceCallRecording {
		if err := p.Identity.LinkAssets(ctx, assetID, assetID, identity.RelationTranscriptOf, string(item.Source)); err != nil {
			logger.ErrorWithFields(ctx, err, map[string]interface{}{"component": "ingest", "step": "transcript_edge"})
		}
	}
	if chunkGroupID != "" {
		for _, sid := range sourceIDs {
			if sid == chunkGroupID {
				continue
			}
			if err := p.Identity.LinkAssets(ctx, sid, chunkGroupID, identity.RelationChunkOf, string(item.Source)); err != nil {
				logger.ErrorWithFields(ctx, err, map[string]interface{}{"component": "ingest", "step": "chunk_edge"})
			}
		}
	}
}

// dispatchExtraction enqueues an identity-extraction task when the
// combined text is long enough and looks like it might contain
// extractable facts. Documents and emails bypass the length/pattern
// filter entirely since they're dense with structured information.
func (p *Pipeline) dispatchExtraction(ctx context.Context, item SourceItem, sourceID string, chunks []string) {
	if p.Tasks == nil {
		return
	}
	full := strings.Join(chunks, " ")
	bypass := item.Source == vectorstore.SourcePaperless || item.Source == vectorstore.SourceGmail
	minChars := p.ExtractionMinChars
	if minChars <= 0 {
		minChars = 15
	}
	if !bypass && (len(full) < minChars || !looksExtractable(full)) {
		return
	}

	err := p.Tasks.EnqueueDefault(ctx, "identity.extract", map[string]interface{}{
		"source_ref":  sourceID,
		"source_type": string(item.Source),
		"text":        full,
		"sender":      item.Sender,
	})
	if err != nil {
		logger.ErrorWithFields(ctx, err, map[string]interface{}{"component": "ingest", "step": "dispatch_extraction"})
	}
}

// IsDuplicate reports whether sourceID already exists in the vector
// store — used by callers that want to short-circuit before doing
// any redaction/chunking/embedding work at all.
func (p *Pipeline) IsDuplicate(ctx context.Context, sourceID string) (bool, error) {
	existing, _, err := p.Vectors.Scroll(ctx, vectorstore.Filter{}.Equals("source_id", sourceID), nil, 1)
	if err != nil {
		return false, err
	}
	return len(existing) > 0, nil
}
