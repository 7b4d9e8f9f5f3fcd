package whatsapp

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
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

// Plugin integrates WhatsApp via WAHA (WhatsApp HTTP API): webhook
// ingestion of incoming messages, session pairing, and a QR-code
// view for linking a device.
type Plugin struct {
	host   *host.Host
	client *wahaClient

	sessionName string
	webhookURL  string
}

func (p *Plugin) Name() string        { return "whatsapp" }
func (p *Plugin) DisplayName() string { return "WhatsApp" }
func (p *Plugin) Icon() string        { return "💬" }
func (p *Plugin) Version() string     { return "1.0.0" }
func (p *Plugin) Description() string {
	return "WhatsApp messaging integration via WAHA API"
}
func (p *Plugin) RoutePrefix() string { return "whatsapp" }

func (p *Plugin) DefaultSettings() []plugins.PluginSetting {
	return []plugins.PluginSetting{
		{Key: "whatsapp.waha_session_name", Value: "default", Category: "whatsapp", Type: "text",
			Description: "WAHA WhatsApp session name", EnvVar: "WAHA_SESSION_NAME"},
		{Key: "whatsapp.waha_base_url", Value: "http://waha:3000", Category: "whatsapp", Type: "text",
			Description: "WAHA server URL", EnvVar: "WAHA_BASE_URL"},
		{Key: "whatsapp.waha_api_key", Value: "", Category: "whatsapp", Type: "secret",
			Description: "WAHA API key", EnvVar: "WAHA_API_KEY"},
		{Key: "whatsapp.webhook_url", Value: "http://app:8765/plugins/whatsapp/webhook", Category: "whatsapp", Type: "text",
			Description: "Webhook callback URL registered with WAHA", EnvVar: "WEBHOOK_URL"},
	}
}

func (p *Plugin) Initialize(ctx context.Context, h *host.Host) error {
	p.host = h
	p.sessionName, _ = h.Settings.Get(ctx, "whatsapp.waha_session_name")
	if p.sessionName == "" {
		p.sessionName = "default"
	}
	baseURL, _ := h.Settings.Get(ctx, "whatsapp.waha_base_url")
	apiKey, _ := h.Settings.Get(ctx, "whatsapp.waha_api_key")
	p.webhookURL, _ = h.Settings.Get(ctx, "whatsapp.webhook_url")
	p.client = newWahaClient(baseURL, apiKey)
	logger.Info(ctx, "whatsapp plugin initialized")
	return nil
}

func (p *Plugin) Shutdown(ctx context.Context) error {
	logger.Info(ctx, "whatsapp plugin shut down")
	return nil
}

func (p *Plugin) HealthCheck(ctx context.Context) map[string]plugins.HealthStatus {
	status, err := p.client.listSessions(ctx)
	if err != nil {
		return map[string]plugins.HealthStatus{"waha": plugins.HealthDown}
	}
	if status >= 500 {
		return map[string]plugins.HealthStatus{"waha": plugins.HealthDegraded}
	}
	return map[string]plugins.HealthStatus{"waha": plugins.HealthOK}
}

func (p *Plugin) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/webhook", p.handleWebhook)
	group.GET("/status", p.handleStatus)
	group.GET("/qr_code", p.handleQRCode)
	group.GET("/pair", p.handlePair)
}

// shouldProcess filters non-message webhook events the same way the
// original handler does: acks, newsletters/broadcasts, and internal
// e2e/notification-template events never reach ingestion.
func shouldProcess(payload map[string]interface{}) bool {
	if payload["event"] == "message_ack" {
		return false
	}
	from, _ := payload["from"].(string)
	if strings.HasSuffix(from, "@newsletter") || strings.HasSuffix(from, "@broadcast") {
		return false
	}
	if data, ok := payload["_data"].(map[string]interface{}); ok {
		switch data["type"] {
		case "e2e_notification", "notification_template":
			return false
		}
	}
	return true
}

func (p *Plugin) handleWebhook(c *gin.Context) {
	var body struct {
		Payload map[string]interface{} `json:"payload"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	if !shouldProcess(body.Payload) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	ctx := c.Request.Context()
	go func() {
		if err := p.processWebhookPayload(context.Background(), body.Payload); err != nil {
			logger.ErrorWithFields(ctx, err, map[string]interface{}{
				"component": "plugins.whatsapp", "action": "webhook",
			})
		}
	}()
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// processWebhookPayload normalizes a WAHA message payload into a
// SourceItem and hands it straight to the shared pipeline. Gmail and
// Paperless ingest from a scheduled-sync task on the default queue and
// call recordings from a transcription task on the heavy queue, but
// WhatsApp messages are cheap enough to
// ingest inline from the webhook goroutine, matching the original
// background-thread-pool behavior.
func (p *Plugin) processWebhookPayload(ctx context.Context, payload map[string]interface{}) error {
	item, ok := toSourceItem(payload)
	if !ok {
		return nil
	}
	_, err := p.host.Ingest.Ingest(ctx, item)
	return err
}

func toSourceItem(payload map[string]interface{}) (ingest.SourceItem, bool) {
	data, _ := payload["_data"].(map[string]interface{})
	message, _ := payload["body"].(string)
	if message == "" {
		if data != nil {
			message, _ = data["body"].(string)
		}
	}
	if message == "" {
		return ingest.SourceItem{}, false
	}

	from, _ := payload["from"].(string)
	participant, _ := payload["participant"].(string)
	isGroup := strings.HasSuffix(from, "@g.us")

	chatID := from
	sender := from
	if isGroup && participant != "" {
		sender = participant
	}

	senderName := ""
	if data != nil {
		if notify, ok := data["notifyName"].(string); ok {
			senderName = notify
		}
	}
	if senderName == "" {
		senderName = sender
	}

	ts := time.Now()
	if raw, ok := payload["timestamp"]; ok {
		switch v := raw.(type) {
		case float64:
			ts = time.Unix(int64(v), 0).UTC()
		case string:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				ts = time.Unix(n, 0).UTC()
			}
		}
	}

	nativeID, _ := payload["id"].(string)

	item := ingest.SourceItem{
		Text:           message,
		Source:         vectorstore.Source("whatsapp"),
		SourceNativeID: nativeID,
		Sender:         senderName,
		SenderPhone:    strings.TrimSuffix(strings.TrimSuffix(sender, "@c.us"), "@lid"),
		ChatID:         chatID,
		ChatName:       senderName,
		IsGroup:        isGroup,
		Timestamp:      ts,
	}
	if isGroup {
		item.ParticipantNames = []string{senderName}
	}
	return item, true
}

func (p *Plugin) handleStatus(c *gin.Context) {
	ctx := c.Request.Context()
	status, err := p.client.sessionStatus(ctx, p.sessionName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	engineState := ""
	if engine, ok := status["engine"].(map[string]interface{}); ok {
		engineState, _ = engine["state"].(string)
	}
	if status["status"] == "WORKING" && engineState == "CONNECTED" {
		c.JSON(http.StatusOK, gin.H{"status": "connected", "session": status})
		return
	}
	if status["status"] == "SCAN_QR_CODE" {
		c.JSON(http.StatusOK, gin.H{"status": "needs_pairing", "redirect": "/plugins/whatsapp/qr_code"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unknown", "response": status})
}

func (p *Plugin) handleQRCode(c *gin.Context) {
	data, err := p.client.qrCode(c.Request.Context(), p.sessionName)
	if err != nil || len(data) == 0 {
		c.String(http.StatusOK, "QR code not available yet. Please refresh in a few seconds.")
		return
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(fmt.Sprintf(
		"<h1>Scan to Pair WhatsApp</h1><img src='data:image/png;base64,%s'>", encoded)))
}

func (p *Plugin) handlePair(c *gin.Context) {
	ctx := c.Request.Context()
	if err := p.client.startSession(ctx, p.sessionName); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := p.client.configureWebhook(ctx, p.sessionName, p.webhookURL); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Redirect(http.StatusFound, "/plugins/whatsapp/qr_code")
}
