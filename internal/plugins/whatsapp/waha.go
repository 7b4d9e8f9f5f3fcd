// Package whatsapp implements the WhatsApp channel plugin (spec
// component C6 concrete instance): receives WAHA (WhatsApp HTTP API)
// webhooks, normalizes them into ingest.SourceItem, and dispatches
// session-management calls back to WAHA for QR-code pairing.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// wahaClient is a thin HTTP client over the WAHA REST API, grounded
// on the same retry-free request-per-call shape the embedding
// clients use for their own provider APIs.
type wahaClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func newWahaClient(baseURL, apiKey string) *wahaClient {
	return &wahaClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *wahaClient) do(ctx context.Context, method, path string, payload interface{}) ([]byte, int, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("marshaling waha request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, 0, fmt.Errorf("building waha request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("calling waha: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading waha response: %w", err)
	}
	return data, resp.StatusCode, nil
}

func (c *wahaClient) sessionStatus(ctx context.Context, session string) (map[string]interface{}, error) {
	data, _, err := c.do(ctx, http.MethodGet, "/api/sessions/"+session, nil)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding session status: %w", err)
	}
	return out, nil
}

func (c *wahaClient) startSession(ctx context.Context, session string) error {
	_, _, err := c.do(ctx, http.MethodPost, "/api/sessions/start", map[string]string{"name": session})
	return err
}

func (c *wahaClient) configureWebhook(ctx context.Context, session, webhookURL string) error {
	_, _, err := c.do(ctx, http.MethodPut, "/api/sessions/"+session, map[string]interface{}{
		"config": map[string]interface{}{
			"webhooks": []map[string]interface{}{
				{"url": webhookURL, "events": []string{"message.any"}},
			},
		},
	})
	return err
}

func (c *wahaClient) qrCode(ctx context.Context, session string) ([]byte, error) {
	data, status, err := c.do(ctx, http.MethodGet, "/api/"+session+"/auth/qr", nil)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, fmt.Errorf("waha returned HTTP %d fetching qr code", status)
	}
	return data, nil
}

func (c *wahaClient) listSessions(ctx context.Context) (int, error) {
	_, status, err := c.do(ctx, http.MethodGet, "/api/sessions", nil)
	return status, err
}
