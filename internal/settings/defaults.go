package settings

// BuiltinDefaults is the catalog of every setting Lucy ships with,
// seeded on first boot via RegisterDefaults/SeedFromEnv. Nothing
// appends to it at runtime; plugin settings are not listed here but
// come from each plugin's DefaultSettings.
var BuiltinDefaults = []Default{
	{
		Key: "timezone", Value: "UTC", Category: "general", Type: TypeText,
		Description: "Timezone used when rendering the current date/time into the retrieval prompt.",
		EnvVar:      "LUCY_TIMEZONE",
	},
	{
		Key: "retrieval.default_k", Value: "15", Category: "retrieval", Type: TypeInt,
		Description: "Number of candidates requested from the vector store per query before reranking.",
	},
	{
		Key: "retrieval.min_score", Value: "0.15", Category: "retrieval", Type: TypeFloat,
		Description: "Fused-score cutoff below which a retrieved chunk is dropped from the prompt.",
	},
	{
		Key: "retrieval.rerank_enabled", Value: "false", Category: "retrieval", Type: TypeBool,
		Description: "Whether to run a cross-encoder rerank pass when at least 5 candidates are retrieved.",
	},
	{
		Key: "rerank.provider", Value: "", Category: "retrieval", Type: TypeSelect,
		Description: "Cross-encoder rerank provider (jina|zhipu). Empty disables reranking regardless of retrieval.rerank_enabled.",
		EnvVar:      "LUCY_RERANK_PROVIDER",
	},
	{
		Key: "rerank.api_key", Value: "", Category: "retrieval", Type: TypeSecret,
		Description: "API key for the configured rerank provider.",
		EnvVar:      "LUCY_RERANK_API_KEY",
	},
	{
		Key: "rerank.model_name", Value: "", Category: "retrieval", Type: TypeText,
		Description: "Model name passed to the rerank provider. Empty uses the provider's default.",
		EnvVar:      "LUCY_RERANK_MODEL_NAME",
	},
	{
		Key: "media.root_dir", Value: "./data/media", Category: "ingestion", Type: TypeText,
		Description: "Directory inline chunk media (images, attachments) is stored under and served from.",
		EnvVar:      "LUCY_MEDIA_ROOT_DIR",
	},
	{
		Key: "media.events_dir", Value: "./data/events", Category: "ingestion", Type: TypeText,
		Description: "Directory generated .ics calendar files are written to.",
		EnvVar:      "LUCY_MEDIA_EVENTS_DIR",
	},
	{
		Key: "chat.provider", Value: "ollama", Category: "models", Type: TypeSelect,
		Description: "Default chat model provider used for condense/classify/synthesis calls.",
		EnvVar:      "LUCY_CHAT_PROVIDER",
	},
	{
		Key: "chat.api_key", Value: "", Category: "models", Type: TypeSecret,
		Description: "API key for the configured remote chat provider.",
		EnvVar:      "LUCY_CHAT_API_KEY",
	},
	{
		Key: "chat.base_url", Value: "", Category: "models", Type: TypeText,
		Description: "Base URL for the chat provider's API. Empty uses the provider's default.",
		EnvVar:      "LUCY_CHAT_BASE_URL",
	},
	{
		Key: "chat.model_name", Value: "llama3.1", Category: "models", Type: TypeText,
		Description: "Model name used for condense/classify/synthesis calls.",
		EnvVar:      "LUCY_CHAT_MODEL_NAME",
	},
	{
		Key: "embedding.provider", Value: "ollama", Category: "models", Type: TypeSelect,
		Description: "Default embedding model provider.",
		EnvVar:      "LUCY_EMBEDDING_PROVIDER",
	},
	{
		Key: "embedding.api_key", Value: "", Category: "models", Type: TypeSecret,
		Description: "API key for the configured remote embedding provider.",
		EnvVar:      "LUCY_EMBEDDING_API_KEY",
	},
	{
		Key: "embedding.base_url", Value: "", Category: "models", Type: TypeText,
		Description: "Base URL for the embedding provider's API. Empty uses the provider's default.",
		EnvVar:      "LUCY_EMBEDDING_BASE_URL",
	},
	{
		Key: "embedding.model_name", Value: "nomic-embed-text", Category: "models", Type: TypeText,
		Description: "Model name used to embed ingested chunks and queries.",
		EnvVar:      "LUCY_EMBEDDING_MODEL_NAME",
	},
	{
		Key: "ingestion.max_chunk_chars", Value: "4500", Category: "ingestion", Type: TypeInt,
		Description: "Hard ceiling on characters per chunk before a paragraph/sentence split is forced.",
	},
	{
		Key: "ingestion.chunk_overlap_chars", Value: "200", Category: "ingestion", Type: TypeInt,
		Description: "Characters of overlap carried across a hard chunk boundary.",
	},
	{
		Key: "ingestion.extraction_min_chars", Value: "15", Category: "ingestion", Type: TypeInt,
		Description: "Minimum text length before an identity-extraction task is dispatched for a chunk.",
	},
	{
		Key: "redaction.default_action", Value: "replace", Category: "redaction", Type: TypeSelect,
		Description: "Fallback PII action (redact|replace|hash) for channels without an explicit policy.",
	},
	{
		Key: "redaction.score_threshold", Value: "0.5", Category: "redaction", Type: TypeFloat,
		Description: "Minimum detector confidence before a PII span is acted on.",
	},
	{
		Key: "tasks.default_concurrency", Value: "4", Category: "tasks", Type: TypeInt,
		Description: "Worker concurrency for the default task queue.",
	},
	{
		Key: "tasks.heavy_concurrency", Value: "1", Category: "tasks", Type: TypeInt,
		Description: "Worker concurrency for the heavy (transcription) task queue.",
	},
	{
		Key: "costmeter.ring_buffer_size", Value: "10000", Category: "costmeter", Type: TypeInt,
		Description: "Maximum number of recent cost events retained in memory for SessionTotal snapshots.",
	},
}
