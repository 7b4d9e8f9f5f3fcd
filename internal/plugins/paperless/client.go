package paperless

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// paperlessClient talks to a paperless-ngx REST API. No ecosystem
// client for paperless-ngx appeared in the retrieved corpus, so this
// is a thin purpose-built client the same shape as the embedding
// providers' own hand-rolled HTTP clients.
type paperlessClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func newPaperlessClient(baseURL, token string) *paperlessClient {
	return &paperlessClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type paperlessDocument struct {
	ID                int    `json:"id"`
	Title             string `json:"title"`
	Content           string `json:"content"`
	Created           string `json:"created"`
	CorrespondentName string `json:"correspondent_name,omitempty"`
	Tags              []int  `json:"tags"`
	OriginalFileName  string `json:"original_file_name"`
}

type documentListResponse struct {
	Results []paperlessDocument `json:"results"`
	Next    *string             `json:"next"`
}

func (c *paperlessClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building paperless request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling paperless: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("paperless returned HTTP %d for %s", resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// documentsSince lists documents created on or after since, ordered
// oldest first so a sync run resumes cleanly from the last document
// it processed.
func (c *paperlessClient) documentsSince(ctx context.Context, since time.Time) ([]paperlessDocument, error) {
	path := fmt.Sprintf("/api/documents/?ordering=created&created__date__gte=%s",
		since.Format("2006-01-02"))
	var all []paperlessDocument
	for path != "" {
		var page documentListResponse
		if err := c.get(ctx, path, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Results...)
		if page.Next == nil {
			break
		}
		path = *page.Next
	}
	return all, nil
}

func (c *paperlessClient) ping(ctx context.Context) error {
	var page documentListResponse
	return c.get(ctx, "/api/documents/?page_size=1", &page)
}

// Tag is a paperless-ngx tag with its document count, as returned by
// GET /api/tags/.
type Tag struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	DocumentCount int    `json:"document_count"`
}

type tagListResponse struct {
	Results []Tag   `json:"results"`
	Next    *string `json:"next"`
}

// AdminClient is the exported handle cmd/lucyctl uses for maintenance
// operations (tag garbage collection) that don't belong on the
// always-running sync path Plugin itself drives.
type AdminClient struct {
	inner *paperlessClient
}

// NewAdminClient builds a maintenance client against a paperless-ngx
// instance, independent of any running Plugin instance.
func NewAdminClient(baseURL, token string) *AdminClient {
	return &AdminClient{inner: newPaperlessClient(baseURL, token)}
}

// ListTags fetches every tag, handling pagination.
func (a *AdminClient) ListTags(ctx context.Context) ([]Tag, error) {
	var all []Tag
	path := "/api/tags/?page_size=100"
	for path != "" {
		var page tagListResponse
		if err := a.inner.get(ctx, path, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Results...)
		if page.Next == nil {
			break
		}
		path = *page.Next
	}
	return all, nil
}

// DeleteTags removes the given tag ids in batches via paperless-ngx's
// bulk_edit_objects endpoint, mirroring the batching the original
// maintenance script used to avoid overloading the server on a large
// deletion.
func (a *AdminClient) DeleteTags(ctx context.Context, ids []int, batchSize int) (ok, failed int) {
	if batchSize <= 0 {
		batchSize = 25
	}
	for i := 0; i < len(ids); i += batchSize {
		end := i + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[i:end]
		if err := a.inner.bulkDeleteTags(ctx, batch); err != nil {
			failed += len(batch)
			continue
		}
		ok += len(batch)
	}
	return ok, failed
}

func (c *paperlessClient) bulkDeleteTags(ctx context.Context, ids []int) error {
	body := map[string]interface{}{
		"objects":     ids,
		"object_type": "tags",
		"operation":   "delete",
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling bulk_edit_objects payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/bulk_edit_objects/", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building bulk_edit_objects request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling bulk_edit_objects: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("bulk_edit_objects returned HTTP %d", resp.StatusCode)
	}
	return nil
}
