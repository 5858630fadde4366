package tooling

import (
	"context"
	"fmt"
)

// MuxBgRemover routes background-removal calls to the adapter registered for
// the request's backend name.
type MuxBgRemover struct {
	backends map[string]BackgroundRemover
}

// NewMuxBgRemover builds a router over the given backend registry.
func NewMuxBgRemover(backends map[string]BackgroundRemover) *MuxBgRemover {
	return &MuxBgRemover{backends: backends}
}

func (m *MuxBgRemover) RemoveBackground(ctx context.Context, req BgRemovalRequest) (BgRemovalResult, error) {
	impl, ok := m.backends[req.Backend]
	if !ok || impl == nil {
		return BgRemovalResult{}, fmt.Errorf("no background removal adapter registered for backend %q", req.Backend)
	}
	return impl.RemoveBackground(ctx, req)
}

// MuxUpscaler routes upscale calls to the adapter registered for the
// request's backend name.
type MuxUpscaler struct {
	backends map[string]Upscaler
}

// NewMuxUpscaler builds a router over the given backend registry.
func NewMuxUpscaler(backends map[string]Upscaler) *MuxUpscaler {
	return &MuxUpscaler{backends: backends}
}

func (m *MuxUpscaler) Upscale(ctx context.Context, req UpscaleRequest) (UpscaleResult, error) {
	impl, ok := m.backends[req.Backend]
	if !ok || impl == nil {
		return UpscaleResult{}, fmt.Errorf("no upscale adapter registered for backend %q", req.Backend)
	}
	return impl.Upscale(ctx, req)
}

var (
	_ BackgroundRemover = (*MuxBgRemover)(nil)
	_ Upscaler          = (*MuxUpscaler)(nil)
)
