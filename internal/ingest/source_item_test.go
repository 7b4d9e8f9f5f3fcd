package ingest

import (
	"testing"
	"time"

	"github.com/pickeld/lucy/internal/vectorstore"
	"github.com/stretchr/testify/require"
)

func TestSourceIDFormats(t *testing.T) {
	gmail := SourceItem{Source: vectorstore.SourceGmail, SourceNativeID: "msg-1"}
	require.Equal(t, "gmail:msg-1", gmail.SourceID())

	paperless := SourceItem{Source: vectorstore.SourcePaperless, SourceNativeID: "doc-9"}
	require.Equal(t, "paperless:doc-9", paperless.SourceID())

	call := SourceItem{Source: vectorstore.SourceCallRecording, SourceNativeID: "rec-1"}
	require.Equal(t, call.SourceID(), call.SourceID(), "call recording source id must be stable/deterministic")
	require.Contains(t, call.SourceID(), "call_recording:")
}

func TestAssetIDDeterministic(t *testing.T) {
	a := AssetID(vectorstore.SourceWhatsApp, "972501234567@c.us")
	b := AssetID(vectorstore.SourceWhatsApp, "972501234567@c.us")
	require.Equal(t, a, b)
}

func TestChunkSourceIDSharesPrefix(t *testing.T) {
	require.Equal(t, "base", chunkSourceID("base", 0, 1))
	require.Equal(t, "base:0", chunkSourceID("base", 0, 3))
	require.Equal(t, "base:2", chunkSourceID("base", 2, 3))
}

func TestLooksExtractableHeuristic(t *testing.T) {
	require.True(t, looksExtractable("Hi, my name is David and I live in Tel Aviv"))
	require.False(t, looksExtractable("ok see you later"))
}

func TestContentTypeForMedia(t *testing.T) {
	item := SourceItem{Media: &Media{Type: "image"}, Timestamp: time.Now()}
	require.Equal(t, vectorstore.ContentImage, contentTypeFor(item))

	textItem := SourceItem{Timestamp: time.Now()}
	require.Equal(t, vectorstore.ContentText, contentTypeFor(textItem))
}
