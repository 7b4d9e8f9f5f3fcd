package richcontent

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pickeld/lucy/internal/vectorstore"
)

func newTestProcessor(t *testing.T) *Processor {
	t.Helper()
	dir := t.TempDir()
	p, err := NewProcessor(dir, filepath.Join(dir, "events"), time.UTC)
	require.NoError(t, err)
	return p
}

func TestExtractImagesDedupsByPathAndSkipsMissingFiles(t *testing.T) {
	p := newTestProcessor(t)
	require.NoError(t, os.WriteFile(filepath.Join(p.MediaRoot, "photo.jpg"), []byte("x"), 0o644))

	ts := time.Date(2026, 2, 16, 10, 30, 0, 0, time.UTC)
	chunks := []vectorstore.ScoredPoint{
		{Payload: vectorstore.ChunkPayload{HasMedia: true, MediaPath: "photo.jpg", Sender: "David", ChatName: "Family", Timestamp: ts}},
		{Payload: vectorstore.ChunkPayload{HasMedia: true, MediaPath: "photo.jpg", Sender: "David", ChatName: "Family", Timestamp: ts}},
		{Payload: vectorstore.ChunkPayload{HasMedia: true, MediaPath: "missing.jpg"}},
		{Payload: vectorstore.ChunkPayload{HasMedia: false, MediaPath: "photo2.jpg"}},
	}

	_, blocks := p.Process("ok", chunks)
	require.Len(t, blocks, 1)
	require.Equal(t, KindImage, blocks[0].Type)
	require.Contains(t, blocks[0].Caption, "Image from David in Family on 16/02/2026 10:30")
}

func TestExtractICSEventsParsesBlockAndStripsMarker(t *testing.T) {
	p := newTestProcessor(t)
	answer := "Sure, I'll set that up.\n[CREATE_EVENT]\ntitle: Meeting with David\nstart: 2026-02-16T10:00\nend: 2026-02-16T11:00\nlocation: Office\n[/CREATE_EVENT]\nLet me know if that works."

	cleaned, blocks := p.Process(answer, nil)
	require.Len(t, blocks, 1)
	require.Equal(t, KindICSEvent, blocks[0].Type)
	require.Equal(t, "Meeting with David", blocks[0].Title)
	require.NotContains(t, cleaned, "CREATE_EVENT")
	require.Contains(t, cleaned, "Sure, I'll set that up.")

	entries, err := os.ReadDir(p.EventsDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestExtractICSEventsSkipsIncompleteBlock(t *testing.T) {
	p := newTestProcessor(t)
	answer := "[CREATE_EVENT]\ntitle: No start given\n[/CREATE_EVENT]"

	_, blocks := p.Process(answer, nil)
	require.Empty(t, blocks)
}

func TestExtractButtonsRequiresQuestionIndicatorAndTwoOptions(t *testing.T) {
	p := newTestProcessor(t)
	answer := "Did you mean:\n1) David Cohen\n2) David Levi\nPlease choose one."

	cleaned, blocks := p.Process(answer, nil)
	require.Len(t, blocks, 1)
	require.Equal(t, KindButtons, blocks[0].Type)
	require.Len(t, blocks[0].Options, 2)
	require.Equal(t, "David Cohen", blocks[0].Options[0].Label)
	require.NotContains(t, cleaned, "1) David Cohen")
}

func TestExtractButtonsIgnoresSingleOption(t *testing.T) {
	p := newTestProcessor(t)
	answer := "Did you mean:\n1) David Cohen"

	_, blocks := p.Process(answer, nil)
	require.Empty(t, blocks)
}

func TestExtractButtonsIgnoresNumberedListWithoutQuestionIndicator(t *testing.T) {
	p := newTestProcessor(t)
	answer := "Here is the plan:\n1) Buy milk\n2) Call David"

	_, blocks := p.Process(answer, nil)
	require.Empty(t, blocks)
}
