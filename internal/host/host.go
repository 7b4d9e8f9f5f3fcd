package host

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/pickeld/lucy/internal/config"
	"github.com/pickeld/lucy/internal/conversation"
	"github.com/pickeld/lucy/internal/costmeter"
	"github.com/pickeld/lucy/internal/identity"
	"github.com/pickeld/lucy/internal/ingest"
	"github.com/pickeld/lucy/internal/logger"
	"github.com/pickeld/lucy/internal/models/chat"
	"github.com/pickeld/lucy/internal/models/embedding"
	"github.com/pickeld/lucy/internal/models/provider"
	"github.com/pickeld/lucy/internal/models/rerank"
	"github.com/pickeld/lucy/internal/redact"
	"github.com/pickeld/lucy/internal/retrieval"
	"github.com/pickeld/lucy/internal/richcontent"
	"github.com/pickeld/lucy/internal/settings"
	"github.com/pickeld/lucy/internal/types"
	"github.com/pickeld/lucy/internal/vectorstore"
)

// Host is the single explicit struct every subsystem constructor and
// every plugin's Initialize(host) call receives. It replaces the
// reflection-based container the server used to resolve dependencies
// from: nothing here is looked up by name at call time, and every field
// except Tasks (see below) is populated once at boot in NewHost and
// never mutated afterward except through the subsystems' own exported
// methods.
type Host struct {
	Config *config.Config
	DB     *gorm.DB

	Settings  *settings.Store
	CostMeter *costmeter.Meter
	Identity  *identity.Store
	Vectors   *vectorstore.Store
	Embedder  embedding.Embedder
	Chat      chat.Chat

	// Tasks is the durable queue (C7) plugins dispatch ingestion and
	// scheduled-sync work through. Left nil until cmd/lucyd sets it
	// after constructing the task-runtime enqueuer — plugins must not
	// dispatch before that assignment happens during boot.
	Tasks ingest.TaskEnqueuer

	// Ingest is the pipeline plugin-originated tasks ultimately call
	// into, shared by every channel rather than one instance per
	// plugin since none of its state is channel-specific.
	Ingest *ingest.Pipeline

	EmbedPool *EmbedderPool

	RedactPolicies map[string]redact.Policy

	Conversations *conversation.Store
	Retrieval     *retrieval.Engine

	// Blobs is the object-storage client channel plugins archive raw
	// source media to (e.g. call_recording's uploaded audio) so it
	// survives past the local staging directory. Nil when cfg.Minio.Endpoint
	// is unset — plugins must treat archival as best-effort in that case.
	Blobs       *minio.Client
	BlobsBucket string
}

// NewHost wires every C1-C8 subsystem from cfg, in dependency order:
// DB first, then settings (everything else reads its tuning from the
// settings store), then the cost meter, identity graph, embedder
// (its dimension sizes the vector collection), vector store, and chat
// client, the model clients reading their API keys and model names
// from settings.
func NewHost(ctx context.Context, cfg *config.Config) (*Host, error) {
	db, err := gorm.Open(postgres.Open(cfg.Postgres.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	if err := db.AutoMigrate(settings.AllModels()...); err != nil {
		return nil, fmt.Errorf("migrating settings: %w", err)
	}
	if err := db.AutoMigrate(costmeter.AllModels()...); err != nil {
		return nil, fmt.Errorf("migrating cost meter: %w", err)
	}
	if err := db.AutoMigrate(identity.AllModels()...); err != nil {
		return nil, fmt.Errorf("migrating identity graph: %w", err)
	}
	if err := db.AutoMigrate(conversation.AllModels()...); err != nil {
		return nil, fmt.Errorf("migrating conversations: %w", err)
	}

	settingsStore := settings.New(db)
	if err := settingsStore.RegisterDefaults(ctx, settings.BuiltinDefaults); err != nil {
		return nil, fmt.Errorf("registering setting defaults: %w", err)
	}
	if cfg.Settings.SeedFromEnv {
		if err := settingsStore.SeedFromEnv(ctx, settings.BuiltinDefaults); err != nil {
			return nil, fmt.Errorf("seeding settings from env: %w", err)
		}
	}

	bufSize := cfg.CostMeter.RingBufferSize
	if bufSize <= 0 {
		bufSize = 10000
	}
	meter := costmeter.NewMeter(db, bufSize)

	identityStore := identity.New(db)

	pool, err := NewEmbedderPool(16)
	if err != nil {
		return nil, fmt.Errorf("creating embedder pool: %w", err)
	}

	embedProvider, _ := settingsStore.Get(ctx, "embedding.provider")
	embedBaseURL, _ := settingsStore.Get(ctx, "embedding.base_url")
	embedModelName, _ := settingsStore.Get(ctx, "embedding.model_name")
	embedAPIKey, _ := settingsStore.Get(ctx, "embedding.api_key")
	embedCfg := embedding.Config{
		Source:    resolveModelSource(embedProvider),
		BaseURL:   embedBaseURL,
		ModelName: embedModelName,
		APIKey:    embedAPIKey,
		Provider:  embedProvider,
	}
	embedder, err := embedding.NewEmbedder(embedCfg, pool)
	if err != nil {
		return nil, fmt.Errorf("constructing embedder: %w", err)
	}

	var vectorDim uint64 = 1536
	if embedder.GetDimensions() > 0 {
		vectorDim = uint64(embedder.GetDimensions())
	}

	vdb := cfg.VectorDatabase
	if vdb == nil {
		vdb = &config.VectorDatabaseConfig{Host: "localhost", Port: 6334, Collection: "lucy_chunks"}
	}
	vectors, err := vectorstore.NewStore(ctx, vectorstore.Config{
		Host:           vdb.Host,
		Port:           vdb.Port,
		APIKey:         vdb.APIKey,
		CollectionName: vdb.Collection,
		DenseDimension: vectorDim,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to vector store: %w", err)
	}

	chatProvider, _ := settingsStore.Get(ctx, "chat.provider")
	chatBaseURL, _ := settingsStore.Get(ctx, "chat.base_url")
	chatModelName, _ := settingsStore.Get(ctx, "chat.model_name")
	chatAPIKey, _ := settingsStore.Get(ctx, "chat.api_key")
	chatCfg := chat.ChatConfig{
		Source:    resolveModelSource(chatProvider),
		BaseURL:   chatBaseURL,
		APIKey:    chatAPIKey,
		ModelName: chatModelName,
	}
	var chatClient chat.Chat
	if chatCfg.Source == types.ModelSourceRemote && chatProvider != "" {
		// C1 names the provider explicitly rather than leaving it to be
		// sniffed from a base URL, so route through the pinned-provider
		// constructor instead of NewChat's URL-detection path.
		chatClient, err = chat.NewChatForProvider(provider.ProviderName(chatProvider), chatCfg)
	} else {
		chatClient, err = chat.NewChat(chatCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("constructing chat client: %w", err)
	}

	maxChunkChars := settingsInt(ctx, settingsStore, "ingestion.max_chunk_chars", 4500)
	overlapChars := settingsInt(ctx, settingsStore, "ingestion.chunk_overlap_chars", 200)
	extractionMinChars := settingsInt(ctx, settingsStore, "ingestion.extraction_min_chars", 15)

	pipeline := &ingest.Pipeline{
		Vectors:  vectors,
		Identity: identityStore,
		Embedder: embedder,
		// Tasks is left nil here; cmd/lucyd assigns the concrete
		// taskrt.Enqueuer once the redis connection for the task
		// runtime is up, since that connection is independent of
		// everything NewHost wires.
		Policies:           redact.DefaultPolicies,
		ChunkCfg:           ingest.ChunkConfig{MaxChars: maxChunkChars, OverlapChars: overlapChars},
		ExtractionMinChars: extractionMinChars,
	}

	tzName, _ := settingsStore.Get(ctx, "timezone")
	tz, err := time.LoadLocation(tzName)
	if err != nil {
		tz = time.UTC
	}

	mediaRoot, _ := settingsStore.Get(ctx, "media.root_dir")
	eventsDir, _ := settingsStore.Get(ctx, "media.events_dir")
	richContent, err := richcontent.NewProcessor(mediaRoot, eventsDir, tz)
	if err != nil {
		return nil, fmt.Errorf("constructing rich content processor: %w", err)
	}

	conversations := conversation.New(db)

	var reranker rerank.Reranker
	if settingsBool(ctx, settingsStore, "retrieval.rerank_enabled", false) {
		rerankProvider, _ := settingsStore.Get(ctx, "rerank.provider")
		if rerankProvider != "" {
			rerankAPIKey, _ := settingsStore.Get(ctx, "rerank.api_key")
			rerankModelName, _ := settingsStore.Get(ctx, "rerank.model_name")
			reranker, err = rerank.NewReranker(provider.ProviderName(rerankProvider), &rerank.RerankerConfig{
				APIKey:    rerankAPIKey,
				ModelName: rerankModelName,
			})
			if err != nil {
				return nil, fmt.Errorf("constructing reranker: %w", err)
			}
		}
	}

	retrievalEngine := &retrieval.Engine{
		Identity:         identityStore,
		Vectors:          vectors,
		Embedder:         embedder,
		Chat:             chatClient,
		CostMeter:        meter,
		Conversations:    conversations,
		RichContent:      richContent,
		Settings:         settingsStore,
		Reranker:         reranker,
		DefaultK:         settingsInt(ctx, settingsStore, "retrieval.default_k", 15),
		MinScore:         settingsFloat(ctx, settingsStore, "retrieval.min_score", 0.15),
		Timezone:         tz,
		HistoryRounds:    6,
		ChatProviderName: chatProvider,
	}

	var blobs *minio.Client
	if cfg.Minio.Endpoint != "" {
		blobs, err = minio.New(cfg.Minio.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.Minio.AccessKeyID, cfg.Minio.SecretAccessKey, ""),
			Secure: cfg.Minio.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("constructing minio client: %w", err)
		}
	}

	h := &Host{
		Config:         cfg,
		DB:             db,
		Settings:       settingsStore,
		CostMeter:      meter,
		Identity:       identityStore,
		Vectors:        vectors,
		Embedder:       embedder,
		Chat:           chatClient,
		Ingest:         pipeline,
		EmbedPool:      pool,
		RedactPolicies: redact.DefaultPolicies,
		Conversations:  conversations,
		Retrieval:      retrievalEngine,
		Blobs:          blobs,
		BlobsBucket:    cfg.Minio.Bucket,
	}

	logger.Info(ctx, "host initialized")
	return h, nil
}

// Close releases every resource NewHost acquired. Safe to call once
// during graceful shutdown; not safe to call twice.
func (h *Host) Close() error {
	h.EmbedPool.Release()
	sqlDB, err := h.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// resolveModelSource maps a settings-store provider name onto the
// local/remote split chat/embedding constructors switch on: "ollama"
// is the only provider that runs against a local daemon rather than a
// hosted API.
func resolveModelSource(provider string) types.ModelSource {
	if provider == "" || provider == "ollama" {
		return types.ModelSourceLocal
	}
	return types.ModelSourceRemote
}

// settingsInt reads an integer-typed setting, falling back to def if
// the row is missing or holds a value that doesn't parse — callers
// use this for tuning knobs where a malformed override should degrade
// to the built-in default rather than fail boot.
func settingsInt(ctx context.Context, s *settings.Store, key string, def int) int {
	raw, ok := s.Get(ctx, key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// settingsFloat mirrors settingsInt for float-typed tuning knobs.
func settingsFloat(ctx context.Context, s *settings.Store, key string, def float64) float64 {
	raw, ok := s.Get(ctx, key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return f
}

// settingsBool mirrors settingsInt for bool-typed tuning knobs.
func settingsBool(ctx context.Context, s *settings.Store, key string, def bool) bool {
	raw, ok := s.Get(ctx, key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return b
}
