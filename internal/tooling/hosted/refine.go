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
	"strings"
	"time"
)

// OpenAIRefiner runs the auxiliary edge-refinement pass some background
// removal plans request after the primary cutout. Its outcome is reported to
// the caller as a note or error string; whether a refinement failure is
// fatal is the caller's decision.
type OpenAIRefiner struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewOpenAIRefiner builds the refiner. A missing API key is an error; wire
// the refiner only when refinement is configured.
func NewOpenAIRefiner(opts OpenAIOptions) (*OpenAIRefiner, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 90 * time.Second}
	}
	return &OpenAIRefiner{
		apiKey:  strings.TrimSpace(opts.APIKey),
		baseURL: baseURL,
		client:  client,
	}, nil
}

type refineResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Refine sends the cutout through the images edit endpoint and overwrites
// path with the refined result. It returns a one-line note describing what
// happened.
func (r *OpenAIRefiner) Refine(ctx context.Context, path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("openai refine: read input: %w", err)
	}
	payload := map[string]any{
		"model":  "gpt-image-1",
		"image":  base64.StdEncoding.EncodeToString(raw),
		"prompt": "Clean up the alpha matte edges of this cutout without altering the subject.",
		"n":      1,
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", fmt.Errorf("openai refine: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/images/edits", &buf)
	if err != nil {
		return "", fmt.Errorf("openai refine: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai refine: request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return "", fmt.Errorf("openai refine: read response: %w", err)
	}
	var out refineResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("openai refine: decode response: %w", err)
	}
	if resp.StatusCode >= 300 {
		msg := ""
		if out.Error != nil {
			msg = out.Error.Message
		}
		return "", fmt.Errorf("openai refine: status %d: %s", resp.StatusCode, msg)
	}
	if len(out.Data) == 0 || out.Data[0].B64JSON == "" {
		return "", errors.New("openai refine: response carried no image data")
	}
	refined, err := base64.StdEncoding.DecodeString(out.Data[0].B64JSON)
	if err != nil {
		return "", fmt.Errorf("openai refine: decode image payload: %w", err)
	}
	if err := os.WriteFile(path, refined, 0o644); err != nil {
		return "", fmt.Errorf("openai refine: write output: %w", err)
	}
	return "edge refinement applied via openai images edit", nil
}
