package conversation

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(AllModels()...))
	return New(db)
}

func TestAppendCreatesConversationImplicitly(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Append(ctx, "conv-1", "user", "hello", 0)
	require.NoError(t, err)

	c, err := s.Get(ctx, "conv-1")
	require.NoError(t, err)
	require.Equal(t, "conv-1", c.ID)
}

func TestAppendAssignsMonotonicSequence(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Append(ctx, "conv-1", "user", "first", 0)
	require.NoError(t, err)
	_, err = s.Append(ctx, "conv-1", "assistant", "second", 0.002)
	require.NoError(t, err)

	history, err := s.History(ctx, "conv-1", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "first", history[0].Content)
	require.Equal(t, "second", history[1].Content)
	require.Less(t, history[0].Seq, history[1].Seq)
}

func TestDeleteCascadesMessages(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Append(ctx, "conv-1", "user", "hello", 0)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "conv-1"))

	history, err := s.History(ctx, "conv-1", 0)
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestHistoryRespectsLimitKeepingMostRecent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		_, err := s.Append(ctx, "conv-1", "user", fmt.Sprintf("msg-%d", i), 0)
		require.NoError(t, err)
	}

	history, err := s.History(ctx, "conv-1", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "msg-3", history[0].Content)
	require.Equal(t, "msg-4", history[1].Content)
}
