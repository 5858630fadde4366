package postprocess

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestResolveDefaults(t *testing.T) {
	p, err := Resolve(Config{}, Toggles{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.UpscaleBackend != "ncnn" || p.BgBackend != "rembg" || p.ColorProfile != "neutral" {
		t.Fatalf("unexpected defaults: %+v", p)
	}
	if want := []string{"generate"}; !reflect.DeepEqual(p.Order, want) {
		t.Fatalf("Order = %v, want %v with nothing enabled", p.Order, want)
	}
}

func TestResolveFullOrder(t *testing.T) {
	cfg := Config{BgRemoval: BgConfig{Refine: RefineConfig{Enabled: true}}}
	p, err := Resolve(cfg, Toggles{Upscale: true, Color: true, BgRemove: true})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []string{"generate", "bg_remove", "bg_refine_openai", "upscale", "color"}
	if !reflect.DeepEqual(p.Order, want) {
		t.Fatalf("Order = %v, want %v", p.Order, want)
	}
}

func TestResolveRefineNeedsBgRemove(t *testing.T) {
	cfg := Config{BgRemoval: BgConfig{Refine: RefineConfig{Enabled: true}}}
	p, err := Resolve(cfg, Toggles{Upscale: true})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []string{"generate", "upscale"}
	if !reflect.DeepEqual(p.Order, want) {
		t.Fatalf("Order = %v, refine must not run without bg removal", p.Order)
	}
}

func TestResolveRequestOverridesConfig(t *testing.T) {
	cfg := Config{
		Upscale:   UpscaleConfig{Backend: "ncnn", Scale: 2},
		Color:     ColorConfig{Profile: "filmic"},
		BgRemoval: BgConfig{Backend: "rembg"},
	}
	p, err := Resolve(cfg, Toggles{
		Upscale:        true,
		UpscaleBackend: "python",
		BgRemove:       true,
		BgBackend:      "photoroom",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.UpscaleBackend != "python" {
		t.Fatalf("UpscaleBackend = %q, want request override", p.UpscaleBackend)
	}
	if p.BgBackend != "photoroom" {
		t.Fatalf("BgBackend = %q, want request override", p.BgBackend)
	}
	if p.ColorProfile != "filmic" {
		t.Fatalf("ColorProfile = %q, want config default", p.ColorProfile)
	}
	if p.UpscaleScale != 2 {
		t.Fatalf("UpscaleScale = %d, want config value", p.UpscaleScale)
	}
}

func TestResolveInvalidUpscaleBackend(t *testing.T) {
	_, err := Resolve(Config{}, Toggles{Upscale: true, UpscaleBackend: "waifu2x"})
	var bad *InvalidUpscaleBackendError
	if !errors.As(err, &bad) {
		t.Fatalf("err = %v, want *InvalidUpscaleBackendError", err)
	}
	if bad.Name != "waifu2x" {
		t.Fatalf("Name = %q, want waifu2x", bad.Name)
	}
}

func TestResolveInvalidBgBackendEvenWhenDisabled(t *testing.T) {
	cfg := Config{BgRemoval: BgConfig{Backend: "clipdrop"}}
	_, err := Resolve(cfg, Toggles{})
	var bad *InvalidBgBackendError
	if !errors.As(err, &bad) {
		t.Fatalf("err = %v, want *InvalidBgBackendError", err)
	}
}

func TestLoadConfigProjectShadowsApp(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "postprocess.yaml"), "upscale:\n  backend: ncnn\n")
	mustWrite(t, filepath.Join(root, "projects", "demo", "postprocess.yaml"), "upscale:\n  backend: python\n")

	cfg, path, err := LoadConfig(root, "demo")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Upscale.Backend != "python" {
		t.Fatalf("Backend = %q, want project file to shadow app file", cfg.Upscale.Backend)
	}
	if filepath.Base(filepath.Dir(path)) != "demo" {
		t.Fatalf("path = %q, want project file path", path)
	}
}

func TestLoadConfigMissingEverywhere(t *testing.T) {
	cfg, path, err := LoadConfig(t.TempDir(), "demo")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if path != "" {
		t.Fatalf("path = %q, want empty for defaults", path)
	}
	if cfg.Upscale.Backend != "" {
		t.Fatalf("cfg = %+v, want zero config", cfg)
	}
}

func TestLoadConfigJSONFallback(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "postprocess.json"), `{"bg_removal":{"backend":"removebg"}}`)

	cfg, path, err := LoadConfig(root, "demo")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.BgRemoval.Backend != "removebg" {
		t.Fatalf("Backend = %q, want removebg", cfg.BgRemoval.Backend)
	}
	if filepath.Ext(path) != ".json" {
		t.Fatalf("path = %q, want json file", path)
	}
}

func mustWrite(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}
