package taskrt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	apperrors "github.com/pickeld/lucy/internal/errors"
	"github.com/pickeld/lucy/internal/identity"
)

func TestRetryDelayGrowsExponentiallyAndCaps(t *testing.T) {
	d0 := retryDelay(0, nil, nil)
	d1 := retryDelay(1, nil, nil)
	d2 := retryDelay(2, nil, nil)
	require.Equal(t, 30*time.Second, d0)
	require.Equal(t, 60*time.Second, d1)
	require.Equal(t, 120*time.Second, d2)
	require.LessOrEqual(t, retryDelay(20, nil, nil), 30*time.Minute)
}

func TestIsFatalClassification(t *testing.T) {
	require.True(t, isFatal(MarkFatal(errors.New("bad payload"))))
	require.True(t, isFatal(apperrors.NewBadRequestError("nope")))
	require.True(t, isFatal(apperrors.NewNotFoundError("nope")))
	require.False(t, isFatal(apperrors.NewExternalUnavailableError("qdrant down")))
	require.False(t, isFatal(errors.New("transient io error")))
}

func TestWrapHandlerConvertsFatalToSkipRetry(t *testing.T) {
	h := wrapHandler("test.task", func(ctx context.Context, tk *asynq.Task) error {
		return MarkFatal(errors.New("malformed"))
	})
	err := h(context.Background(), asynq.NewTask("test.task", nil))
	require.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestWrapHandlerPassesThroughTransientError(t *testing.T) {
	h := wrapHandler("test.task", func(ctx context.Context, tk *asynq.Task) error {
		return errors.New("redis timeout")
	})
	err := h(context.Background(), asynq.NewTask("test.task", nil))
	require.EqualError(t, err, "redis timeout")
}

func TestRoutingTableCoversEveryTaskConstant(t *testing.T) {
	for _, taskType := range []string{TaskIdentityExtract, TaskIngestItem, TaskScheduledSync, TaskBackfillAssetEdge, TaskTranscribe} {
		_, ok := routing[taskType]
		require.True(t, ok, "no route for %s", taskType)
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(identity.AllModels()...))
	return db
}

func TestHandleBackfillAssetEdgeLinksAssets(t *testing.T) {
	db := newTestDB(t)
	store := identity.New(db)
	handler := handleBackfillAssetEdge(store)

	payload := []byte(`{"source_asset_ref":"whatsapp:msg-1","dest_asset_ref":"whatsapp:msg-0","relation":"reply_to","provenance":"whatsapp"}`)
	err := handler(context.Background(), asynq.NewTask(TaskBackfillAssetEdge, payload))
	require.NoError(t, err)
}

func TestHandleBackfillAssetEdgeRejectsMalformedPayload(t *testing.T) {
	db := newTestDB(t)
	store := identity.New(db)
	handler := handleBackfillAssetEdge(store)

	err := handler(context.Background(), asynq.NewTask(TaskBackfillAssetEdge, []byte("not json")))
	require.Error(t, err)
	require.True(t, isFatal(err))
}
