package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/pickeld/lucy/internal/vectorstore"
)

// Media describes an attachment carried by a SourceItem.
type Media struct {
	Type string // image|voice|document|call_recording
	URL  string
	Path string
}

// SourceItem is what a channel plugin hands the ingestion pipeline:
// one logical piece of content (a message, an email, a document, a
// call recording) before dedup, redaction, or chunking.
type SourceItem struct {
	Text           string
	Source         vectorstore.Source
	SourceNativeID string
	Sender         string
	SenderPhone    string
	SenderEmail    string
	ChatID         string
	ChatName       string
	IsGroup        bool
	Timestamp      time.Time
	Language       string
	Media          *Media
	ThreadID       string
	ParentNativeID string
	// ParticipantNames lists chat or call participants as the channel
	// reports them (the WhatsApp plugin puts a group message's sender
	// here). Pipeline.Ingest neither resolves nor links these names.
	ParticipantNames []string
	// MentionedNames are names mentioned in the text, resolved to
	// MentionedPersonIDs rather than PersonIDs.
	MentionedNames []string
}

// SourceID computes the dedup key for a source item, per-source
// format: "<chat_id>:<timestamp>" for chat-like sources,
// "paperless:<doc_id>", "gmail:<msg_id>", or
// "call_recording:<sha256-of-native-id>" for call recordings (native
// ids there may not be stable across syncs, so they're hashed).
func (si SourceItem) SourceID() string {
	switch si.Source {
	case vectorstore.SourceWhatsApp:
		if si.ChatID != "" {
			return fmt.Sprintf("%s:%d", si.ChatID, si.Timestamp.UnixNano())
		}
		return fmt.Sprintf("whatsapp:%s", si.SourceNativeID)
	case vectorstore.SourcePaperless:
		return fmt.Sprintf("paperless:%s", si.SourceNativeID)
	case vectorstore.SourceGmail:
		return fmt.Sprintf("gmail:%s", si.SourceNativeID)
	case vectorstore.SourceCallRecording:
		sum := sha256.Sum256([]byte(si.SourceNativeID))
		return fmt.Sprintf("call_recording:%s", hex.EncodeToString(sum[:]))
	default:
		return fmt.Sprintf("%s:%s", si.Source, si.SourceNativeID)
	}
}

// AssetID computes the logical asset identifier an item's chunks
// share, regardless of how many chunks chunking produces.
func AssetID(source vectorstore.Source, nativeID string) string {
	return fmt.Sprintf("%s:%s", source, nativeID)
}

// chunkSourceID derives the per-chunk source_id when an item produces
// more than one chunk: the base source_id with ":<chunk_index>"
// appended, so each chunk dedups independently while still sharing
// AssetID/ChunkGroupID.
func chunkSourceID(base string, index int, total int) string {
	if total <= 1 {
		return base
	}
	return fmt.Sprintf("%s:%d", base, index)
}
