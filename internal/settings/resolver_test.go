package settings

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func strptr(s string) *string { return &s }

func TestResolveDefaultsWhenNoFiles(t *testing.T) {
	root := t.TempDir()
	r := Resolver{ConfigRoot: filepath.Join(root, "config"), DataRoot: filepath.Join(root, "data")}

	eff, err := r.Resolve("demo", Overlay{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if eff.Model != DefaultModel || eff.Size != DefaultSize || eff.Quality != DefaultQuality {
		t.Fatalf("unexpected defaults: %+v", eff)
	}
	if eff.StorageBackend != "local" {
		t.Fatalf("StorageBackend = %q, want local", eff.StorageBackend)
	}
	if want := filepath.Join(root, "data", "projects"); eff.LocalRoot != want {
		t.Fatalf("LocalRoot = %q, want %q", eff.LocalRoot, want)
	}
	if eff.Sources.AppLoaded || eff.Sources.ProjectLoaded {
		t.Fatalf("no tier should report loaded: %+v", eff.Sources)
	}
}

func TestResolveMergesFieldByField(t *testing.T) {
	root := t.TempDir()
	cfg := filepath.Join(root, "config")
	writeFile(t, filepath.Join(cfg, "settings.yaml"),
		"model: dall-e-3\nsize: 512x512\nstorage:\n  local_root: /srv/app-projects\n")
	writeFile(t, filepath.Join(cfg, "projects", "demo", "settings.yaml"),
		"model: gpt-image-1\nstorage:\n  backend: s3\n")

	r := Resolver{ConfigRoot: cfg, DataRoot: filepath.Join(root, "data")}
	eff, err := r.Resolve("demo", Overlay{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if eff.Model != "gpt-image-1" {
		t.Fatalf("Model = %q, want project override", eff.Model)
	}
	if eff.Size != "512x512" {
		t.Fatalf("Size = %q, want app value to survive project tier", eff.Size)
	}
	if eff.Quality != DefaultQuality {
		t.Fatalf("Quality = %q, want default", eff.Quality)
	}
	if eff.StorageBackend != "s3" {
		t.Fatalf("StorageBackend = %q, want s3", eff.StorageBackend)
	}
	if eff.LocalRoot != "/srv/app-projects" {
		t.Fatalf("LocalRoot = %q, want app tier value", eff.LocalRoot)
	}
	if !eff.Sources.AppLoaded || !eff.Sources.ProjectLoaded {
		t.Fatalf("both tiers should load: %+v", eff.Sources)
	}
}

func TestResolveExplicitOverlayWins(t *testing.T) {
	root := t.TempDir()
	cfg := filepath.Join(root, "config")
	writeFile(t, filepath.Join(cfg, "settings.yaml"), "quality: low\n")
	writeFile(t, filepath.Join(cfg, "projects", "demo", "settings.yaml"), "quality: medium\n")

	r := Resolver{ConfigRoot: cfg, DataRoot: root}
	eff, err := r.Resolve("demo", Overlay{Quality: strptr("high")})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if eff.Quality != "high" {
		t.Fatalf("Quality = %q, want explicit overlay to win", eff.Quality)
	}
}

func TestResolveJSONFallback(t *testing.T) {
	root := t.TempDir()
	cfg := filepath.Join(root, "config")
	writeFile(t, filepath.Join(cfg, "settings.json"), `{"model":"dall-e-3"}`)

	r := Resolver{ConfigRoot: cfg, DataRoot: root}
	eff, err := r.Resolve("demo", Overlay{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if eff.Model != "dall-e-3" {
		t.Fatalf("Model = %q, want value from json fallback", eff.Model)
	}
	if !eff.Sources.AppLoaded {
		t.Fatal("app tier should report loaded from json")
	}
	if !strings.HasSuffix(eff.Sources.AppPath, "settings.json") {
		t.Fatalf("AppPath = %q, want json path", eff.Sources.AppPath)
	}
}

func TestResolvePrefersYAMLOverJSON(t *testing.T) {
	root := t.TempDir()
	cfg := filepath.Join(root, "config")
	writeFile(t, filepath.Join(cfg, "settings.yaml"), "model: from-yaml\n")
	writeFile(t, filepath.Join(cfg, "settings.json"), `{"model":"from-json"}`)

	r := Resolver{ConfigRoot: cfg, DataRoot: root}
	eff, err := r.Resolve("demo", Overlay{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if eff.Model != "from-yaml" {
		t.Fatalf("Model = %q, want yaml to shadow json", eff.Model)
	}
}

func TestResolveUnknownYAMLFieldIsParseError(t *testing.T) {
	root := t.TempDir()
	cfg := filepath.Join(root, "config")
	writeFile(t, filepath.Join(cfg, "settings.yaml"), "modle: oops\n")

	r := Resolver{ConfigRoot: cfg, DataRoot: root}
	_, err := r.Resolve("demo", Overlay{})
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
	if !strings.Contains(err.Error(), "modle") {
		t.Fatalf("error should name the offending field: %v", err)
	}
}

func TestResolveJSONTypeMismatchNamesField(t *testing.T) {
	root := t.TempDir()
	cfg := filepath.Join(root, "config")
	writeFile(t, filepath.Join(cfg, "settings.json"), `{"model":3}`)

	r := Resolver{ConfigRoot: cfg, DataRoot: root}
	_, err := r.Resolve("demo", Overlay{})
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
	if perr.Field != "model" {
		t.Fatalf("Field = %q, want model", perr.Field)
	}
}

func TestResolveRejectsUnknownStorageBackend(t *testing.T) {
	root := t.TempDir()
	cfg := filepath.Join(root, "config")
	writeFile(t, filepath.Join(cfg, "settings.yaml"), "storage:\n  backend: gcs\n")

	r := Resolver{ConfigRoot: cfg, DataRoot: root}
	_, err := r.Resolve("demo", Overlay{})
	if err == nil || !strings.Contains(err.Error(), "gcs") {
		t.Fatalf("err = %v, want unsupported backend error", err)
	}
}

func TestOverlayIsZero(t *testing.T) {
	if !(Overlay{}).IsZero() {
		t.Fatal("empty overlay should be zero")
	}
	if (Overlay{Model: strptr("m")}).IsZero() {
		t.Fatal("overlay with model should not be zero")
	}
	if (Overlay{Storage: &StorageOverlay{}}).IsZero() != true {
		t.Fatal("empty storage block should still be zero")
	}
	if (Overlay{Storage: &StorageOverlay{Backend: strptr("s3")}}).IsZero() {
		t.Fatal("storage backend set should not be zero")
	}
}
