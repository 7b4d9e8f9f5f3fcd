// Package call_recording implements the call-recording channel
// plugin: an upload endpoint that stashes the audio file and enqueues
// an async transcription task on the heavy queue, since AssemblyAI
// calls can take minutes for a long recording.
package call_recording

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"github.com/pickeld/lucy/internal/host"
	"github.com/pickeld/lucy/internal/ingest"
	"github.com/pickeld/lucy/internal/logger"
	"github.com/pickeld/lucy/internal/plugins"
	"github.com/pickeld/lucy/internal/vectorstore"
)

func init() {
	plugins.Register(&Plugin{})
}

// Plugin transcribes uploaded call recordings via AssemblyAI and
// ingests the resulting transcript like any other source item.
type Plugin struct {
	host       *host.Host
	transcribe *assemblyAIClient
	storageDir string
}

func (p *Plugin) Name() string        { return "call_recording" }
func (p *Plugin) DisplayName() string { return "Call Recordings" }
func (p *Plugin) Icon() string        { return "📞" }
func (p *Plugin) Version() string     { return "1.0.0" }
func (p *Plugin) Description() string {
	return "Call recording transcription via AssemblyAI"
}
func (p *Plugin) RoutePrefix() string { return "call_recording" }

func (p *Plugin) DefaultSettings() []plugins.PluginSetting {
	return []plugins.PluginSetting{
		{Key: "call_recording.assemblyai_api_key", Value: "", Category: "call_recording", Type: "secret",
			Description: "AssemblyAI API key", EnvVar: "ASSEMBLYAI_API_KEY"},
		{Key: "call_recording.model", Value: "universal-2", Category: "call_recording", Type: "select",
			Description: "AssemblyAI speech model", EnvVar: "ASSEMBLYAI_MODEL"},
		{Key: "call_recording.diarization", Value: "true", Category: "call_recording", Type: "bool",
			Description: "enable speaker diarization"},
		{Key: "call_recording.storage_dir", Value: "/data/call_recordings", Category: "call_recording", Type: "text",
			Description: "directory uploaded recordings are staged in before transcription"},
	}
}

func (p *Plugin) Initialize(ctx context.Context, h *host.Host) error {
	p.host = h
	apiKey, _ := h.Settings.Get(ctx, "call_recording.assemblyai_api_key")
	model, _ := h.Settings.Get(ctx, "call_recording.model")
	diarize := h.Settings.GetBool(ctx, "call_recording.diarization")
	p.storageDir, _ = h.Settings.Get(ctx, "call_recording.storage_dir")
	if p.storageDir == "" {
		p.storageDir = "/data/call_recordings"
	}
	if err := os.MkdirAll(p.storageDir, 0o755); err != nil {
		return fmt.Errorf("creating call recording storage dir: %w", err)
	}
	p.transcribe = newAssemblyAIClient(apiKey, model, diarize)
	logger.Info(ctx, "call_recording plugin initialized")
	return nil
}

func (p *Plugin) Shutdown(ctx context.Context) error {
	logger.Info(ctx, "call_recording plugin shut down")
	return nil
}

func (p *Plugin) HealthCheck(ctx context.Context) map[string]plugins.HealthStatus {
	if p.transcribe.apiKey == "" {
		return map[string]plugins.HealthStatus{"assemblyai": plugins.HealthDegraded}
	}
	return map[string]plugins.HealthStatus{"assemblyai": plugins.HealthOK}
}

func (p *Plugin) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/upload", p.handleUpload)
}

// handleUpload stages the uploaded audio file on disk and dispatches
// a media.transcribe task rather than transcribing inline, since
// transcription is the one workload the task runtime's heavy queue
// (concurrency=1) exists for.
func (p *Plugin) handleUpload(c *gin.Context) {
	file, header, err := c.Request.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing audio file"})
		return
	}
	defer file.Close()

	recordingID := uuid.NewString()
	destPath := filepath.Join(p.storageDir, recordingID+filepath.Ext(header.Filename))
	dest, err := os.Create(destPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer dest.Close()
	if _, err := io.Copy(dest, file); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	phoneNumber := c.PostForm("phone_number")
	language := c.PostForm("language")

	if p.host.Tasks != nil {
		err = p.host.Tasks.EnqueueDefault(c.Request.Context(), "media.transcribe", map[string]interface{}{
			"plugin":       p.Name(),
			"audio_path":   destPath,
			"recording_id": recordingID,
			"phone_number": phoneNumber,
			"language":     language,
		})
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "recording_id": recordingID})
}

// archive uploads the staged audio file to object storage once
// transcription succeeds, so the recording survives past the local
// staging directory getting cleaned out. Best-effort: a transcript is
// still useful without its source audio, so a failure here only logs.
func (p *Plugin) archive(ctx context.Context, h *host.Host, recordingID, audioPath string) {
	if h.Blobs == nil {
		return
	}
	objectName := recordingID + filepath.Ext(audioPath)
	if _, err := h.Blobs.FPutObject(ctx, h.BlobsBucket, objectName, audioPath, minio.PutObjectOptions{}); err != nil {
		logger.ErrorWithFields(ctx, err, map[string]interface{}{
			"component": "call_recording", "step": "archive", "recording_id": recordingID,
		})
	}
}

// Transcribe satisfies plugins.Transcriber: it's invoked by the task
// runtime's media.transcribe handler once the task is popped off the
// heavy queue.
func (p *Plugin) Transcribe(ctx context.Context, h *host.Host, payload map[string]interface{}) error {
	audioPath, _ := payload["audio_path"].(string)
	recordingID, _ := payload["recording_id"].(string)
	phoneNumber, _ := payload["phone_number"].(string)
	language, _ := payload["language"].(string)
	if audioPath == "" {
		return fmt.Errorf("media.transcribe payload missing audio_path")
	}

	text, detectedLanguage, err := p.transcribe.transcribeFile(ctx, audioPath, language)
	if err != nil {
		return fmt.Errorf("transcribing %s: %w", recordingID, err)
	}
	if text == "" {
		return nil
	}

	p.archive(ctx, h, recordingID, audioPath)

	item := ingest.SourceItem{
		Text:           text,
		Source:         vectorstore.Source("call_recording"),
		SourceNativeID: recordingID,
		SenderPhone:    phoneNumber,
		ChatID:         phoneNumber,
		ChatName:       phoneNumber,
		Language:       detectedLanguage,
		Timestamp:      time.Now().UTC(),
		Media:          &ingest.Media{Type: "call_recording", Path: audioPath},
	}
	_, err = h.Ingest.Ingest(ctx, item)
	return err
}
