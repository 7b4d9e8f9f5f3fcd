// Package gmail implements the Gmail channel plugin: a scheduled IMAP
// poll for unseen mail in the configured mailbox, normalized into the
// ingestion pipeline the same way every other channel feeds it.
package gmail

import (
	"context"
	"fmt"
	"net/http"

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

// Plugin integrates Gmail by polling an IMAP mailbox on a cron
// schedule rather than receiving webhooks — Gmail's push notification
// API needs a Pub/Sub subscription per account, which is out of scope
// for a personal-archive sync running against one mailbox.
type Plugin struct {
	host     *host.Host
	imapAddr string
	user     string
	password string
	mailbox  string
	schedule string
}

func (p *Plugin) Name() string        { return "gmail" }
func (p *Plugin) DisplayName() string { return "Gmail" }
func (p *Plugin) Icon() string        { return "✉️" }
func (p *Plugin) Version() string     { return "1.0.0" }
func (p *Plugin) Description() string {
	return "Gmail archive sync via IMAP polling"
}
func (p *Plugin) RoutePrefix() string { return "gmail" }

func (p *Plugin) DefaultSettings() []plugins.PluginSetting {
	return []plugins.PluginSetting{
		{Key: "gmail.imap_addr", Value: "imap.gmail.com:993", Category: "gmail", Type: "text",
			Description: "IMAP server host:port", EnvVar: "GMAIL_IMAP_ADDR"},
		{Key: "gmail.user", Value: "", Category: "gmail", Type: "text",
			Description: "Gmail account address", EnvVar: "GMAIL_USER"},
		{Key: "gmail.app_password", Value: "", Category: "gmail", Type: "secret",
			Description: "Gmail app password (not the account password)", EnvVar: "GMAIL_APP_PASSWORD"},
		{Key: "gmail.mailbox", Value: "INBOX", Category: "gmail", Type: "text",
			Description: "IMAP mailbox to poll", EnvVar: "GMAIL_MAILBOX"},
		{Key: "gmail.sync_schedule", Value: "@every 5m", Category: "gmail", Type: "text",
			Description: "cron expression for the polling interval", EnvVar: "GMAIL_SYNC_SCHEDULE"},
	}
}

func (p *Plugin) Initialize(ctx context.Context, h *host.Host) error {
	p.host = h
	p.imapAddr, _ = h.Settings.Get(ctx, "gmail.imap_addr")
	p.user, _ = h.Settings.Get(ctx, "gmail.user")
	p.password, _ = h.Settings.Get(ctx, "gmail.app_password")
	p.mailbox, _ = h.Settings.Get(ctx, "gmail.mailbox")
	p.schedule, _ = h.Settings.Get(ctx, "gmail.sync_schedule")
	if p.mailbox == "" {
		p.mailbox = "INBOX"
	}
	if p.schedule == "" {
		p.schedule = "@every 5m"
	}
	logger.Info(ctx, "gmail plugin initialized")
	return nil
}

func (p *Plugin) Shutdown(ctx context.Context) error {
	logger.Info(ctx, "gmail plugin shut down")
	return nil
}

func (p *Plugin) HealthCheck(ctx context.Context) map[string]plugins.HealthStatus {
	c, err := dialIMAP(p.imapAddr, p.user, p.password)
	if err != nil {
		return map[string]plugins.HealthStatus{"imap": plugins.HealthDown}
	}
	c.logout()
	return map[string]plugins.HealthStatus{"imap": plugins.HealthOK}
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

// ScheduledSync polls the mailbox for unseen mail, ingests each
// message, and marks it seen so the next poll doesn't re-fetch it —
// Gmail has no durable cursor API over plain IMAP, so "seen" status
// is the dedup signal at the transport level; SourceID-based dedup in
// the pipeline is the second line of defense against redelivery.
func (p *Plugin) ScheduledSync(ctx context.Context, h *host.Host) error {
	client, err := dialIMAP(p.imapAddr, p.user, p.password)
	if err != nil {
		return fmt.Errorf("connecting to gmail imap: %w", err)
	}
	defer client.logout()

	if err := client.selectMailbox(p.mailbox); err != nil {
		return fmt.Errorf("selecting mailbox %s: %w", p.mailbox, err)
	}
	ids, err := client.searchUnseen()
	if err != nil {
		return fmt.Errorf("searching unseen mail: %w", err)
	}

	pipeline := h.Ingest
	for _, id := range ids {
		msg, body, err := client.fetchMessage(id)
		if err != nil {
			logger.ErrorWithFields(ctx, err, map[string]interface{}{
				"component": "plugins.gmail", "message_seq": id,
			})
			continue
		}
		item := ingest.SourceItem{
			Text:           body,
			Source:         vectorstore.Source("gmail"),
			SourceNativeID: messageID(msg),
			Sender:         msg.Header.Get("From"),
			SenderEmail:    msg.Header.Get("From"),
			ChatID:         msg.Header.Get("Subject"),
			ChatName:       msg.Header.Get("Subject"),
			Timestamp:      messageDate(msg),
		}
		if pipeline != nil {
			dup, dupErr := pipeline.IsDuplicate(ctx, item.SourceID())
			if dupErr != nil || !dup {
				if _, err := pipeline.Ingest(ctx, item); err != nil {
					logger.ErrorWithFields(ctx, err, map[string]interface{}{
						"component": "plugins.gmail", "message_id": item.SourceNativeID,
					})
					continue
				}
			}
		}
		if err := client.markSeen(id); err != nil {
			logger.ErrorWithFields(ctx, err, map[string]interface{}{
				"component": "plugins.gmail", "message_id": item.SourceNativeID, "action": "mark_seen",
			})
		}
	}
	return nil
}
