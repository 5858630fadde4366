package hosted

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ldco/Kroma-sub000/internal/tooling"
)

const openAIDefaultTimeout = 120 * time.Second

// OpenAIOptions configures the OpenAI image generation client.
type OpenAIOptions struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// OpenAIImageClient generates candidates through the OpenAI images API.
type OpenAIImageClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type openAIImageRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	N       int    `json:"n"`
	Size    string `json:"size,omitempty"`
	Quality string `json:"quality,omitempty"`
}

type openAIImageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Rough per-image price by quality tier, recorded as a cost event per
// generation.
var openAIImageCostUSD = map[string]float64{
	"low":    0.02,
	"medium": 0.07,
	"high":   0.19,
}

// NewOpenAIImageClient validates the options and builds the client.
func NewOpenAIImageClient(opts OpenAIOptions) (*OpenAIImageClient, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: openAIDefaultTimeout}
	}
	return &OpenAIImageClient{
		apiKey:  strings.TrimSpace(opts.APIKey),
		baseURL: baseURL,
		client:  client,
	}, nil
}

// Generate renders one candidate and writes it to the requested output path.
func (c *OpenAIImageClient) Generate(ctx context.Context, req tooling.GenerateRequest) (tooling.GenerateResult, error) {
	payload := openAIImageRequest{
		Model:   req.Model,
		Prompt:  req.Prompt,
		N:       1,
		Size:    req.Size,
		Quality: req.Quality,
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return tooling.GenerateResult{}, fmt.Errorf("openai: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/generations", &buf)
	if err != nil {
		return tooling.GenerateResult{}, fmt.Errorf("openai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return tooling.GenerateResult{}, fmt.Errorf("openai: request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return tooling.GenerateResult{}, fmt.Errorf("openai: read response: %w", err)
	}
	var out openAIImageResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return tooling.GenerateResult{}, fmt.Errorf("openai: decode response: %w", err)
	}
	if resp.StatusCode >= 300 {
		msg := ""
		if out.Error != nil {
			msg = out.Error.Message
		}
		return tooling.GenerateResult{}, fmt.Errorf("openai: status %d: %s", resp.StatusCode, msg)
	}
	if len(out.Data) == 0 || out.Data[0].B64JSON == "" {
		return tooling.GenerateResult{}, errors.New("openai: response carried no image data")
	}
	raw, err := base64.StdEncoding.DecodeString(out.Data[0].B64JSON)
	if err != nil {
		return tooling.GenerateResult{}, fmt.Errorf("openai: decode image payload: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return tooling.GenerateResult{}, fmt.Errorf("openai: ensure output dir: %w", err)
	}
	if err := os.WriteFile(req.OutputPath, raw, 0o644); err != nil {
		return tooling.GenerateResult{}, fmt.Errorf("openai: write output: %w", err)
	}
	cost, ok := openAIImageCostUSD[strings.ToLower(req.Quality)]
	if !ok {
		cost = openAIImageCostUSD["medium"]
	}
	return tooling.GenerateResult{OutputPath: req.OutputPath, CostUSD: cost}, nil
}

var _ tooling.Generator = (*OpenAIImageClient)(nil)
