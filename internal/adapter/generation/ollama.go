package generation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// answerPrompt restricts the model to the retrieved context so it cannot
// answer from its own weights.
const answerPrompt = `You are a helpful assistant. Answer the question based ONLY on the provided context.
If the answer is not in the context, say "I don't know."

Context: %s

Question: %s`

// Ollama generates answers through a local Ollama server's /api/generate
// endpoint, non-streaming.
type Ollama struct {
	model   string
	baseURL string
	http    *http.Client
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

func NewOllama(model, baseURL string, timeout time.Duration) *Ollama {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Ollama{
		model:   model,
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (o *Ollama) Generate(query, context string) (string, error) {
	prompt := fmt.Sprintf(answerPrompt, context, query)

	jsonData, err := json.Marshal(ollamaRequest{
		Model:  o.model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := o.http.Post(o.baseURL+"/api/generate", "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generation API returned status %d: %s", resp.StatusCode, string(body))
	}

	var genResp ollamaResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return "", fmt.Errorf("failed to parse generation response: %w", err)
	}
	if genResp.Error != "" {
		return "", fmt.Errorf("generation API error: %s", genResp.Error)
	}

	return genResp.Response, nil
}

func (o *Ollama) ModelName() string { return o.model }
