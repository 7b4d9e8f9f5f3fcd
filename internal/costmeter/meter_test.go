package costmeter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestMeter(t *testing.T) *Meter {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Event{}))
	return NewMeter(db, 8)
}

func TestResolveModelKeyAliases(t *testing.T) {
	require.Equal(t, "openai:gpt-4o", resolveModelKey("openai", "gpt-4o-2024-11-20"))
	require.Equal(t, "gemini:gemini-1.5-pro", resolveModelKey("gemini", "models/gemini-1.5-pro"))
	require.Equal(t, "openai:gpt-4o", resolveModelKey("OpenAI", " gpt-4o "))
}

func TestChatCostComputation(t *testing.T) {
	key := resolveModelKey("openai", "gpt-4o")
	cost := chatCost(key, 1000, 1000)
	require.InDelta(t, 0.0025+0.010, cost, 1e-9)
}

func TestUnknownModelIsZeroCost(t *testing.T) {
	require.Equal(t, 0.0, chatCost("unknown:model", 1000, 1000))
}

func TestSessionTotalAccumulatesAcrossCalls(t *testing.T) {
	m := newTestMeter(t)
	ctx := context.Background()

	snap := m.Snapshot()
	m.OnCallComplete(ctx, CallResult{Provider: "openai", Model: "gpt-4o", Kind: KindChat, InTokens: 1000, OutTokens: 1000})
	m.OnCallComplete(ctx, CallResult{Provider: "openai", Model: "gpt-4o-mini", Kind: KindChat, InTokens: 1000, OutTokens: 1000})

	require.Eventually(t, func() bool {
		delta := m.Delta(snap)
		expected := chatCost("openai:gpt-4o", 1000, 1000) + chatCost("openai:gpt-4o-mini", 1000, 1000)
		return delta == expected
	}, time.Second, 10*time.Millisecond)
}

func TestRingBufferEvictsOldest(t *testing.T) {
	m := newTestMeter(t)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		m.OnCallComplete(ctx, CallResult{Provider: "ollama", Model: "llama3", Kind: KindChat, InTokens: 1, OutTokens: 1})
	}
	recent := m.RecentEvents(100)
	require.Len(t, recent, 8, "ring buffer capped at bufCap must evict the oldest entries")
}

func TestConversationTotal(t *testing.T) {
	m := newTestMeter(t)
	ctx := context.Background()
	m.OnCallComplete(ctx, CallResult{Provider: "openai", Model: "gpt-4o", Kind: KindChat, InTokens: 1000, OutTokens: 0, ConversationID: "conv-1"})
	m.OnCallComplete(ctx, CallResult{Provider: "openai", Model: "gpt-4o", Kind: KindChat, InTokens: 1000, OutTokens: 0, ConversationID: "conv-2"})

	require.Eventually(t, func() bool {
		total, err := m.ConversationTotal(ctx, "conv-1")
		require.NoError(t, err)
		return total == chatCost("openai:gpt-4o", 1000, 0)
	}, time.Second, 10*time.Millisecond)
}
