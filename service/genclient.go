package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"vibeboard-server/config"
	"vibeboard-server/pipeline"
)

// GenClient talks to the generation backend over HTTP. Transport and auth
// live here; the pipeline only sees the request/response contracts.
type GenClient struct {
	Endpoint string
	Client   *http.Client
}

func NewGenClient() *GenClient {
	cfg := config.AppConfig.Generation
	return &GenClient{
		Endpoint: cfg.Endpoint,
		Client: &http.Client{
			// Generation is slow; outline and script calls can take minutes.
			Timeout: time.Duration(cfg.TimeoutMinutes) * time.Minute,
		},
	}
}

func (g *GenClient) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.Endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		detail := string(bodyBytes)
		if len(detail) > 500 {
			detail = detail[:500] + "..."
		}
		return fmt.Errorf("generation status %d: %s", resp.StatusCode, detail)
	}
	if out != nil {
		if err := json.Unmarshal(bodyBytes, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (g *GenClient) GenerateOutline(ctx context.Context, req pipeline.OutlineRequest) (*pipeline.Outline, error) {
	var outline pipeline.Outline
	if err := g.post(ctx, "/v1/outline", req, &outline); err != nil {
		return nil, err
	}
	return &outline, nil
}

func (g *GenClient) GenerateScript(ctx context.Context, req pipeline.ScriptRequest) (string, error) {
	var resp struct {
		Script string `json:"script"`
	}
	if err := g.post(ctx, "/v1/script", req, &resp); err != nil {
		return "", err
	}
	if resp.Script == "" {
		return "", fmt.Errorf("script response missing 'script'")
	}
	return resp.Script, nil
}

func (g *GenClient) ParseScript(ctx context.Context, scriptText string) (*pipeline.ParsedScript, error) {
	req := map[string]string{"script": scriptText}
	var parsed pipeline.ParsedScript
	if err := g.post(ctx, "/v1/parse-script", req, &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

func (g *GenClient) BreakdownScene(ctx context.Context, req pipeline.BreakdownRequest) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := g.post(ctx, "/v1/breakdown", req, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (g *GenClient) GeneratePrompts(ctx context.Context, req pipeline.PromptRequest) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := g.post(ctx, "/v1/prompts", req, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
