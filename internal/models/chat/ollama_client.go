package chat

import (
	"net/http"
	"net/url"

	ollamaapi "github.com/ollama/ollama/api"
)

// ollamaClientFor builds an Ollama API client for baseURL, defaulting
// to the standard local daemon address.
func ollamaClientFor(baseURL string) (*ollamaapi.Client, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return ollamaapi.NewClient(u, http.DefaultClient), nil
}
