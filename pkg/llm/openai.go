package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPOracle speaks the OpenAI-compatible chat-completions API, which is
// what Ollama, vLLM, OpenRouter and similar backends all serve.
type HTTPOracle struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPOracle creates an oracle against baseURL (e.g.
// "http://localhost:11434/v1"). apiKey may be empty for local backends.
func NewHTTPOracle(baseURL, apiKey string) *HTTPOracle {
	return &HTTPOracle{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatChoice struct {
	Message      chatMessage `json:"message"`
	Delta        chatMessage `json:"delta"`
	FinishReason string      `json:"finish_reason"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

// Generate sends one chat-completions call. With req.Stream set, each
// content delta is forwarded to onToken as it arrives and the concatenated
// text is returned; otherwise a single blocking completion is made.
func (o *HTTPOracle) Generate(ctx context.Context, req Request, onToken TokenFunc) (string, error) {
	body := chatRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		Stream:      req.Stream,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
	}

	respBody, err := o.doRequest(ctx, body)
	if err != nil {
		return "", err
	}
	defer respBody.Close()

	if !req.Stream {
		var resp chatResponse
		if err := json.NewDecoder(respBody).Decode(&resp); err != nil {
			return "", fmt.Errorf("decode completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("completion returned no choices")
		}
		return resp.Choices[0].Message.Content, nil
	}

	var out strings.Builder
	scanner := bufio.NewScanner(respBody)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}
		var chunk chatResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			out.WriteString(delta)
			if onToken != nil {
				onToken(delta)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read stream: %w", err)
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	return out.String(), nil
}

func (o *HTTPOracle) doRequest(ctx context.Context, body chatRequest) (io.ReadCloser, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llm request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("llm request: status %d: %s", resp.StatusCode, string(errBody))
	}
	return resp.Body, nil
}
