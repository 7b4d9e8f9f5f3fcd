// Package vectorstore adapts the dual dense/sparse Qdrant collection
// that backs retrieval (spec component C4): one collection, two named
// vectors per point, upsert/search/scroll/delete operations, and the
// reciprocal-rank fusion that combines dense and sparse search.
package vectorstore

import "time"

// ContentType enumerates the kind of content a chunk carries.
type ContentType string

const (
	ContentText             ContentType = "text"
	ContentImage            ContentType = "image"
	ContentVoice            ContentType = "voice"
	ContentDocument         ContentType = "document"
	ContentCallRecording    ContentType = "call_recording"
	ContentConversationChunk ContentType = "conversation_chunk"
)

// Source identifies which channel plugin produced a chunk.
type Source string

const (
	SourceWhatsApp       Source = "whatsapp"
	SourceGmail          Source = "gmail"
	SourcePaperless      Source = "paperless"
	SourceCallRecording  Source = "call_recording"
	SourceManual         Source = "manual"
)

// ChunkPayload is the JSON payload stored alongside each point's dense
// and sparse vectors. SourceID is the dedup key: re-upserting the same
// SourceID with the same payload must be a no-op in effect, since the
// point id is a deterministic hash of SourceID.
type ChunkPayload struct {
	SourceID    string      `json:"source_id"`
	Source      Source      `json:"source"`
	ContentType ContentType `json:"content_type"`
	Text        string      `json:"text"`

	Sender    string    `json:"sender,omitempty"`
	ChatID    string    `json:"chat_id,omitempty"`
	ChatName  string    `json:"chat_name,omitempty"`
	IsGroup   bool      `json:"is_group,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Language  string    `json:"language,omitempty"`

	HasMedia  bool   `json:"has_media,omitempty"`
	MediaType string `json:"media_type,omitempty"`
	MediaURL  string `json:"media_url,omitempty"`
	MediaPath string `json:"media_path,omitempty"`

	ChunkIndex int `json:"chunk_index"`
	ChunkTotal int `json:"chunk_total"`

	AssetID       string `json:"asset_id"`
	ParentAssetID string `json:"parent_asset_id,omitempty"`
	ThreadID      string `json:"thread_id,omitempty"`
	ChunkGroupID  string `json:"chunk_group_id,omitempty"`

	PersonIDs          []uint64 `json:"person_ids,omitempty"`
	MentionedPersonIDs []uint64 `json:"mentioned_person_ids,omitempty"`

	// CustomFields carries plugin-specific metadata that doesn't
	// warrant a first-class payload field.
	CustomFields map[string]string `json:"custom_fields,omitempty"`
}

// Point is one vector-store record: the hashed point id, both named
// vectors, and its payload.
type Point struct {
	ID      uint64
	Dense   []float32
	Sparse  SparseVec
	Payload ChunkPayload
}

// SparseVec mirrors tokenize.SparseVector so this package doesn't need
// to import the tokenizer directly — callers in internal/ingest and
// internal/retrieval compute it and pass it through.
type SparseVec struct {
	Indices []uint32
	Values  []float32
}

// ScoredPoint is a single hit returned from Search, carrying its fused
// RRF score.
type ScoredPoint struct {
	ID      uint64
	Score   float64
	Payload ChunkPayload
}
