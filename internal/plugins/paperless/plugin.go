// Package paperless implements the Paperless-ngx channel plugin: a
// scheduled sync that pulls newly created, already-OCR'd documents
// from a Paperless-ngx instance's REST API.
package paperless

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pickeld/lucy/internal/host"
	"github.com/pickeld/lucy/internal/ingest"
	"github.com/pickeld/lucy/internal/logger"
	"github.com/pickeld/lucy/internal/plugins"
	"github.com/pickeld/lucy/internal/vectorstore"
)

func init() {
	plugins.Register(&Plugin{})
}

const lastSyncedKey = "paperless.last_synced_at"

// Plugin polls a Paperless-ngx instance for documents, since paperless
// has no webhook mechanism comparable to WAHA's.
type Plugin struct {
	host     *host.Host
	client   *paperlessClient
	schedule string
}

func (p *Plugin) Name() string        { return "paperless" }
func (p *Plugin) DisplayName() string { return "Paperless" }
func (p *Plugin) Icon() string        { return "📄" }
func (p *Plugin) Version() string     { return "1.0.0" }
func (p *Plugin) Description() string {
	return "Paperless-ngx document archive sync"
}
func (p *Plugin) RoutePrefix() string { return "paperless" }

func (p *Plugin) DefaultSettings() []plugins.PluginSetting {
	return []plugins.PluginSetting{
		{Key: "paperless.base_url", Value: "http://paperless:8000", Category: "paperless", Type: "text",
			Description: "Paperless-ngx base URL", EnvVar: "PAPERLESS_BASE_URL"},
		{Key: "paperless.api_token", Value: "", Category: "paperless", Type: "secret",
			Description: "Paperless-ngx API token", EnvVar: "PAPERLESS_API_TOKEN"},
		{Key: "paperless.sync_schedule", Value: "@every 15m", Category: "paperless", Type: "text",
			Description: "cron expression for the polling interval", EnvVar: "PAPERLESS_SYNC_SCHEDULE"},
		{Key: lastSyncedKey, Value: "1970-01-01", Category: "paperless", Type: "text",
			Description: "watermark of the last synced document creation date"},
	}
}

func (p *Plugin) Initialize(ctx context.Context, h *host.Host) error {
	p.host = h
	baseURL, _ := h.Settings.Get(ctx, "paperless.base_url")
	token, _ := h.Settings.Get(ctx, "paperless.api_token")
	p.schedule, _ = h.Settings.Get(ctx, "paperless.sync_schedule")
	if p.schedule == "" {
		p.schedule = "@every 15m"
	}
	p.client = newPaperlessClient(baseURL, token)
	logger.Info(ctx, "paperless plugin initialized")
	return nil
}

func (p *Plugin) Shutdown(ctx context.Context) error {
	logger.Info(ctx, "paperless plugin shut down")
	return nil
}

func (p *Plugin) HealthCheck(ctx context.Context) map[string]plugins.HealthStatus {
	if err := p.client.ping(ctx); err != nil {
		return map[string]plugins.HealthStatus{"paperless_api": plugins.HealthDown}
	}
	return map[string]plugins.HealthStatus{"paperless_api": plugins.HealthOK}
}

func (p *Plugin) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/sync", func(c *gin.Context) {
		if err := p.ScheduledSync(c.Request.Context(), p.host); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

func (p *Plugin) SyncSchedule() string { return p.schedule }

// ScheduledSync fetches every document created since the last synced
// watermark, ingests it, and advances the watermark to the newest
// document's creation date.
func (p *Plugin) ScheduledSync(ctx context.Context, h *host.Host) error {
	watermarkStr, _ := h.Settings.Get(ctx, lastSyncedKey)
	watermark, err := time.Parse("2006-01-02", watermarkStr)
	if err != nil {
		watermark = time.Unix(0, 0)
	}

	docs, err := p.client.documentsSince(ctx, watermark)
	if err != nil {
		return err
	}

	newest := watermark
	for _, doc := range docs {
		created, err := time.Parse(time.RFC3339, doc.Created)
		if err != nil {
			created = time.Now().UTC()
		}
		item := ingest.SourceItem{
			Text:           doc.Content,
			Source:         vectorstore.Source("paperless"),
			SourceNativeID: strconv.Itoa(doc.ID),
			Sender:         doc.CorrespondentName,
			ChatID:         "paperless",
			ChatName:       doc.Title,
			Timestamp:      created,
		}
		if _, err := h.Ingest.Ingest(ctx, item); err != nil {
			logger.ErrorWithFields(ctx, err, map[string]interface{}{
				"component": "plugins.paperless", "document_id": doc.ID,
			})
			continue
		}
		if created.After(newest) {
			newest = created
		}
	}

	if newest.After(watermark) {
		return h.Settings.Set(ctx, lastSyncedKey, newest.Format("2006-01-02"))
	}
	return nil
}
