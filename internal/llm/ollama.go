package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// OllamaClient implements Client against an Ollama-compatible chat API,
// consuming its newline-delimited JSON stream.
type OllamaClient struct {
	baseURL      string
	defaultModel string
	client       *http.Client
}

// NewOllamaClient constructs an OllamaClient. Empty arguments fall back to
// the local daemon and a small general-purpose model.
func NewOllamaClient(baseURL, defaultModel string) *OllamaClient {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if defaultModel == "" {
		defaultModel = "llama3.2"
	}
	return &OllamaClient{
		baseURL:      baseURL,
		defaultModel: defaultModel,
		client: &http.Client{
			Timeout: 300 * time.Second, // streams run long
		},
	}
}

// WithTimeout overrides the HTTP client timeout when d is positive.
func (c *OllamaClient) WithTimeout(d time.Duration) *OllamaClient {
	if d > 0 {
		c.client.Timeout = d
	}
	return c
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// StreamChat implements Client. The request is bound to ctx, so cancelling
// the caller's context tears down the upstream connection.
func (c *OllamaClient) StreamChat(ctx context.Context, model, systemInstruction string, history []Turn) (<-chan Delta, error) {
	if model == "" {
		model = c.defaultModel
	}

	msgs := make([]ollamaMessage, 0, len(history)+1)
	if systemInstruction != "" {
		msgs = append(msgs, ollamaMessage{Role: "system", Content: systemInstruction})
	}
	for _, t := range history {
		role := "user"
		if t.Role == "model" {
			role = "assistant"
		}
		msgs = append(msgs, ollamaMessage{Role: role, Content: t.Text})
	}

	body, err := json.Marshal(ollamaChatRequest{Model: model, Messages: msgs, Stream: true})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling backend: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("backend returned status %d", resp.StatusCode)
	}

	ch := make(chan Delta, 100)

	go func() {
		defer close(ch)
		defer resp.Body.Close()

		// A blocked channel send cannot be interrupted by cancellation, so
		// every send races ctx.Done; otherwise an abandoned consumer would
		// pin this goroutine and the response body forever.
		send := func(d Delta) bool {
			select {
			case ch <- d:
				return true
			case <-ctx.Done():
				return false
			}
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case <-ctx.Done():
				send(Delta{Done: true, Err: ctx.Err()})
				return
			default:
			}

			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var chunk ollamaChatResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				continue // a single corrupt delta must not lose the rest of the answer
			}

			if !send(Delta{Content: chunk.Message.Content, Done: chunk.Done}) {
				return
			}
			if chunk.Done {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			send(Delta{Done: true, Err: err})
			return
		}
		// Stream ended without a done marker; surface a terminal delta anyway.
		send(Delta{Done: true})
	}()

	return ch, nil
}
