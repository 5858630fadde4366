package hosted

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ldco/Kroma-sub000/internal/tooling"
)

// BgRemovalOptions configures a hosted background-removal client.
type BgRemovalOptions struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Refiner    *OpenAIRefiner
}

// bgRemovalClient is the shared body of the PhotoRoom and remove.bg clients:
// a multipart image upload returning the cutout bytes, followed by the
// optional refinement pass whose outcome is recorded, not raised.
type bgRemovalClient struct {
	apiKey    string
	endpoint  string
	fileField string
	keyHeader string
	client    *http.Client
	refiner   *OpenAIRefiner
}

// NewPhotoroomClient removes backgrounds through the PhotoRoom segmentation
// API.
func NewPhotoroomClient(opts BgRemovalOptions) (tooling.BackgroundRemover, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://sdk.photoroom.com/v1"
	}
	return newBgRemovalClient(opts, base+"/segment", "image_file", "x-api-key")
}

// NewRemoveBgClient removes backgrounds through the remove.bg API.
func NewRemoveBgClient(opts BgRemovalOptions) (tooling.BackgroundRemover, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.remove.bg/v1.0"
	}
	return newBgRemovalClient(opts, base+"/removebg", "image_file", "X-Api-Key")
}

func newBgRemovalClient(opts BgRemovalOptions, endpoint, fileField, keyHeader string) (tooling.BackgroundRemover, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("background removal api key is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	return &bgRemovalClient{
		apiKey:    strings.TrimSpace(opts.APIKey),
		endpoint:  endpoint,
		fileField: fileField,
		keyHeader: keyHeader,
		client:    client,
		refiner:   opts.Refiner,
	}, nil
}

func (c *bgRemovalClient) RemoveBackground(ctx context.Context, req tooling.BgRemovalRequest) (tooling.BgRemovalResult, error) {
	cutout, err := c.upload(ctx, req.InputPath)
	if err != nil {
		return tooling.BgRemovalResult{}, err
	}
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return tooling.BgRemovalResult{}, fmt.Errorf("bg removal: ensure output dir: %w", err)
	}
	if err := os.WriteFile(req.OutputPath, cutout, 0o644); err != nil {
		return tooling.BgRemovalResult{}, fmt.Errorf("bg removal: write output: %w", err)
	}

	res := tooling.BgRemovalResult{OutputPath: req.OutputPath}
	if req.RefineEnabled && c.refiner != nil {
		note, err := c.refiner.Refine(ctx, req.OutputPath)
		if err != nil {
			res.RefineError = err.Error()
		} else {
			res.RefineNote = note
		}
	}
	return res, nil
}

func (c *bgRemovalClient) upload(ctx context.Context, inputPath string) ([]byte, error) {
	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("bg removal: read input: %w", err)
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile(c.fileField, filepath.Base(inputPath))
	if err != nil {
		return nil, fmt.Errorf("bg removal: build form: %w", err)
	}
	if _, err := part.Write(raw); err != nil {
		return nil, fmt.Errorf("bg removal: build form: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("bg removal: build form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("bg removal: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())
	httpReq.Header.Set(c.keyHeader, c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("bg removal: request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("bg removal: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("bg removal: status %d: %s", resp.StatusCode, firstBytesLine(payload))
	}
	if len(payload) == 0 {
		return nil, errors.New("bg removal: response carried no image data")
	}
	return payload, nil
}

func firstBytesLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
