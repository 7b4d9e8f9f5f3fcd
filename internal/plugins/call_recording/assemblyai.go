package call_recording

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// assemblyAIClient uploads an audio file and polls AssemblyAI's REST
// API for its transcript, the same upload-then-poll flow the SDK
// wraps — no Go AssemblyAI SDK appeared in the retrieved corpus, so
// this talks the documented REST endpoints directly.
type assemblyAIClient struct {
	apiKey     string
	model      string
	diarize    bool
	httpClient *http.Client
}

const assemblyAIBaseURL = "https://api.assemblyai.com/v2"

func newAssemblyAIClient(apiKey, model string, diarize bool) *assemblyAIClient {
	if model == "" {
		model = "universal-2"
	}
	return &assemblyAIClient{
		apiKey:     apiKey,
		model:      model,
		diarize:    diarize,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *assemblyAIClient) authedRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, assemblyAIBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// upload streams the audio file to AssemblyAI's upload endpoint and
// returns the temporary URL the transcription request consumes.
func (c *assemblyAIClient) upload(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", filepath.Base(audioPath), err)
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, assemblyAIBaseURL+"/upload", f)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("uploading to assemblyai: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		UploadURL string `json:"upload_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding upload response: %w", err)
	}
	return out.UploadURL, nil
}

type transcriptUtterance struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

type transcriptStatus struct {
	ID         string                `json:"id"`
	Status     string                `json:"status"`
	Text       string                `json:"text"`
	Error      string                `json:"error"`
	Language   string                `json:"language_code"`
	Utterances []transcriptUtterance `json:"utterances"`
}

func (c *assemblyAIClient) submit(ctx context.Context, uploadURL, language string) (string, error) {
	payload := map[string]interface{}{
		"audio_url":       uploadURL,
		"speaker_labels":  c.diarize,
		"speech_models":   []string{c.model},
		"language_detection": language == "",
	}
	if language != "" {
		payload["language_code"] = language
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := c.authedRequest(ctx, http.MethodPost, "/transcript", body)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("submitting transcription: %w", err)
	}
	defer resp.Body.Close()

	var out transcriptStatus
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding transcript response: %w", err)
	}
	return out.ID, nil
}

// poll blocks (with ctx-respecting sleeps) until the transcription
// reaches a terminal state.
func (c *assemblyAIClient) poll(ctx context.Context, id string) (transcriptStatus, error) {
	for {
		req, err := c.authedRequest(ctx, http.MethodGet, "/transcript/"+id, nil)
		if err != nil {
			return transcriptStatus{}, err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return transcriptStatus{}, fmt.Errorf("polling transcript: %w", err)
		}
		var out transcriptStatus
		decodeErr := json.NewDecoder(resp.Body).Decode(&out)
		resp.Body.Close()
		if decodeErr != nil {
			return transcriptStatus{}, fmt.Errorf("decoding poll response: %w", decodeErr)
		}

		switch out.Status {
		case "completed":
			return out, nil
		case "error":
			return out, fmt.Errorf("assemblyai transcription failed: %s", out.Error)
		}

		select {
		case <-ctx.Done():
			return transcriptStatus{}, ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
}

// transcribeFile is the full upload -> submit -> poll -> format flow,
// formatting diarized output as "Speaker A: ..." lines the same way
// the original formatter groups consecutive same-speaker utterances.
func (c *assemblyAIClient) transcribeFile(ctx context.Context, audioPath, language string) (string, string, error) {
	uploadURL, err := c.upload(ctx, audioPath)
	if err != nil {
		return "", "", err
	}
	id, err := c.submit(ctx, uploadURL, language)
	if err != nil {
		return "", "", err
	}
	result, err := c.poll(ctx, id)
	if err != nil {
		return "", "", err
	}
	if len(result.Utterances) == 0 {
		return result.Text, result.Language, nil
	}
	return formatWithSpeakers(result.Utterances), result.Language, nil
}

func formatWithSpeakers(utterances []transcriptUtterance) string {
	var lines []string
	currentSpeaker := ""
	var currentText string
	flush := func() {
		if currentSpeaker != "" && currentText != "" {
			lines = append(lines, fmt.Sprintf("Speaker %s: %s", currentSpeaker, currentText))
		}
	}
	for _, u := range utterances {
		if u.Speaker != currentSpeaker {
			flush()
			currentSpeaker = u.Speaker
			currentText = u.Text
		} else {
			currentText += " " + u.Text
		}
	}
	flush()
	return strings.Join(lines, "\n")
}
