package embedding

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"lecturmate/config"
	"lecturmate/internal/domain"
)

// Client talks to an OpenAI-compatible /embeddings endpoint. Ollama, OpenAI
// and anything wire-compatible with them share this code path. One Client is
// created per process and reused for corpus and query encoding alike.
type Client struct {
	apiKey    string
	model     string
	baseURL   string
	dimension int
	batchSize int
	http      *http.Client
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Error *apiError       `json:"error,omitempty"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// NewFromConfig builds the embedding client for the configured provider.
// A missing API key is reported as ErrModelUnavailable: nothing downstream
// can work without the model.
func NewFromConfig(cfg config.EmbeddingConfig) (*Client, error) {
	switch cfg.Provider {
	case "ollama", "":
		return NewOllama(cfg.Model, cfg.BaseURL, cfg.Dimension, cfg.BatchSize), nil
	case "openai":
		apiKey := os.Getenv(cfg.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("%w: API key not set in $%s", domain.ErrModelUnavailable, cfg.APIKeyEnv)
		}
		return NewOpenAI(apiKey, cfg.Model, cfg.BaseURL, cfg.Dimension, cfg.BatchSize), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", cfg.Provider)
	}
}

// NewOllama builds a client for a local Ollama server.
func NewOllama(model, baseURL string, dimension, batchSize int) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:11434/v1"
	}
	if dimension == 0 {
		dimension = ollamaDimension(model)
	}
	return newClient("ollama", model, baseURL, dimension, batchSize, 120*time.Second)
}

// NewOpenAI builds a client for the OpenAI API or a compatible endpoint.
func NewOpenAI(apiKey, model, baseURL string, dimension, batchSize int) *Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if dimension == 0 {
		dimension = openAIDimension(model)
	}
	return newClient(apiKey, model, baseURL, dimension, batchSize, 60*time.Second)
}

func newClient(apiKey, model, baseURL string, dimension, batchSize int, timeout time.Duration) *Client {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Client{
		apiKey:    apiKey,
		model:     model,
		baseURL:   baseURL,
		dimension: dimension,
		batchSize: batchSize,
		http:      &http.Client{Timeout: timeout},
	}
}

func ollamaDimension(model string) int {
	switch model {
	case "mxbai-embed-large":
		return 1024
	case "all-minilm":
		return 384
	default:
		return 768 // nomic-embed-text and friends
	}
}

func openAIDimension(model string) int {
	switch model {
	case "text-embedding-3-large":
		return 3072
	default:
		return 1536
	}
}

// Embed encodes texts in input order. Batches are sized by configuration so
// corpus re-embeds stay within API limits.
func (c *Client) Embed(texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var all [][]float32
	for i := 0; i < len(texts); i += c.batchSize {
		end := i + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := c.embedBatch(texts[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
	}
	return all, nil
}

func (c *Client) embedBatch(texts []string) ([][]float32, error) {
	jsonData, err := json.Marshal(embeddingRequest{Input: texts, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/embeddings", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding API returned status %d: %s", resp.StatusCode, string(body))
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("failed to parse embedding response: %w", err)
	}
	if embResp.Error != nil {
		return nil, fmt.Errorf("embedding API error: %s", embResp.Error.Message)
	}
	if len(embResp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding API returned %d vectors for %d inputs", len(embResp.Data), len(texts))
	}

	// The API reports the input index per vector; reassemble in input order.
	embeddings := make([][]float32, len(texts))
	for _, data := range embResp.Data {
		if data.Index < 0 || data.Index >= len(embeddings) {
			return nil, fmt.Errorf("embedding API returned out-of-range index %d", data.Index)
		}
		embeddings[data.Index] = data.Embedding
	}
	return embeddings, nil
}

func (c *Client) Dimension() int { return c.dimension }

func (c *Client) ModelName() string { return c.model }
