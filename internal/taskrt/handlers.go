package taskrt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/pickeld/lucy/internal/identity"
	"github.com/pickeld/lucy/internal/ingest"
)

// PluginDispatcher is the narrow slice of the plugin registry (C6)
// the task runtime needs: running a named plugin's scheduled sync and
// handing a transcription job to whichever plugin owns the recording.
// taskrt depends on this interface rather than the plugins package
// directly, the same way ingest depends on TaskEnqueuer rather than
// taskrt — neither package ever imports the other.
type PluginDispatcher interface {
	RunScheduledSync(ctx context.Context, pluginName string) error
	Transcribe(ctx context.Context, payload map[string]interface{}) error
}

// Deps bundles everything BuildMux needs to wire up every registered
// task type's handler.
type Deps struct {
	Extractor *identity.Extractor
	Identity  *identity.Store
	Ingest    *ingest.Pipeline
	Plugins   PluginDispatcher
}

// BuildMux registers every known task type's handler, each wrapped so
// a fatal error short-circuits retries and every failure is logged
// through the dead-letter path.
func BuildMux(d Deps) *asynq.ServeMux {
	mux := asynq.NewServeMux()

	mux.Handle(TaskIdentityExtract, wrapHandler(TaskIdentityExtract, handleIdentityExtract(d.Extractor)))
	mux.Handle(TaskIngestItem, wrapHandler(TaskIngestItem, handleIngestItem(d.Ingest)))
	mux.Handle(TaskScheduledSync, wrapHandler(TaskScheduledSync, handleScheduledSync(d.Plugins)))
	mux.Handle(TaskTranscribe, wrapHandler(TaskTranscribe, handleTranscribe(d.Plugins)))
	mux.Handle(TaskBackfillAssetEdge, wrapHandler(TaskBackfillAssetEdge, handleBackfillAssetEdge(d.Identity)))

	return mux
}

type identityExtractPayload struct {
	SourceRef  string `json:"source_ref"`
	SourceType string `json:"source_type"`
	Text       string `json:"text"`
	Sender     string `json:"sender"`
}

func handleIdentityExtract(extractor *identity.Extractor) HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var p identityExtractPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return MarkFatal(fmt.Errorf("decoding identity.extract payload: %w", err))
		}
		_, err := extractor.Extract(ctx, p.Text, p.SourceType, p.SourceRef, p.Sender)
		return err
	}
}

type ingestItemPayload struct {
	Item ingest.SourceItem `json:"item"`
}

func handleIngestItem(pipeline *ingest.Pipeline) HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var p ingestItemPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return MarkFatal(fmt.Errorf("decoding ingest.item payload: %w", err))
		}
		dup, err := pipeline.IsDuplicate(ctx, p.Item.SourceID())
		if err != nil {
			return err
		}
		if dup {
			return nil
		}
		_, err = pipeline.Ingest(ctx, p.Item)
		return err
	}
}

type scheduledSyncPayload struct {
	Plugin string `json:"plugin"`
}

func handleScheduledSync(dispatch PluginDispatcher) HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var p scheduledSyncPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return MarkFatal(fmt.Errorf("decoding plugin.scheduled_sync payload: %w", err))
		}
		if dispatch == nil {
			return MarkFatal(fmt.Errorf("no plugin dispatcher configured"))
		}
		return dispatch.RunScheduledSync(ctx, p.Plugin)
	}
}

type backfillAssetEdgePayload struct {
	SourceAssetRef string                       `json:"source_asset_ref"`
	DestAssetRef   string                       `json:"dest_asset_ref"`
	Relation       identity.AssetEdgeRelation   `json:"relation"`
	Provenance     string                       `json:"provenance"`
}

// handleBackfillAssetEdge links two already-ingested assets after the
// fact — used by a one-off resync that discovers a thread/reply
// relationship the original ingestion pass missed (e.g. a parent
// message that synced after its reply).
func handleBackfillAssetEdge(store *identity.Store) HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var p backfillAssetEdgePayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return MarkFatal(fmt.Errorf("decoding graph.backfill_asset_edge payload: %w", err))
		}
		return store.LinkAssets(ctx, p.SourceAssetRef, p.DestAssetRef, p.Relation, p.Provenance)
	}
}

func handleTranscribe(dispatch PluginDispatcher) HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload map[string]interface{}
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return MarkFatal(fmt.Errorf("decoding media.transcribe payload: %w", err))
		}
		if dispatch == nil {
			return MarkFatal(fmt.Errorf("no plugin dispatcher configured"))
		}
		return dispatch.Transcribe(ctx, payload)
	}
}
