package postprocess

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Backend enumerations. Anything outside these lists is rejected outright.
var (
	UpscaleBackends = []string{"ncnn", "python"}
	BgBackends      = []string{"rembg", "photoroom", "removebg"}
)

const (
	DefaultUpscaleBackend = "ncnn"
	DefaultBgBackend      = "rembg"
	DefaultColorProfile   = "neutral"
)

// Config is the optional on-disk postprocess configuration. Zero values fall
// back to the package defaults at plan time.
type Config struct {
	Upscale   UpscaleConfig `yaml:"upscale" json:"upscale"`
	Color     ColorConfig   `yaml:"color" json:"color"`
	BgRemoval BgConfig      `yaml:"bg_removal" json:"bg_removal"`
}

type UpscaleConfig struct {
	Backend string `yaml:"backend" json:"backend"`
	Scale   int    `yaml:"scale" json:"scale"`
}

type ColorConfig struct {
	Profile string `yaml:"profile" json:"profile"`
}

type BgConfig struct {
	Backend string       `yaml:"backend" json:"backend"`
	Refine  RefineConfig `yaml:"refine_openai" json:"refine_openai"`
}

// RefineConfig is the embedded quality-refinement sub-toggle: Enabled runs
// the refinement after background removal, Required makes a refinement
// failure fatal instead of a recorded note.
type RefineConfig struct {
	Enabled  bool `yaml:"enabled" json:"enabled"`
	Required bool `yaml:"required" json:"required"`
}

// LoadConfig resolves the postprocess configuration for a project: the
// project file shadows the application file, and a missing file means
// defaults. The returned path is the file actually read, or "" for defaults.
func LoadConfig(configRoot, slug string) (Config, string, error) {
	candidates := []string{
		filepath.Join(configRoot, "projects", slug, "postprocess"),
		filepath.Join(configRoot, "postprocess"),
	}
	for _, stem := range candidates {
		for _, ext := range []string{".yaml", ".json"} {
			path := stem + ext
			raw, err := os.ReadFile(path)
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			if err != nil {
				return Config{}, "", fmt.Errorf("postprocess: read %s: %w", path, err)
			}
			cfg, err := parseConfig(raw)
			if err != nil {
				return Config{}, "", fmt.Errorf("postprocess: parse %s: %w", path, err)
			}
			return cfg, path, nil
		}
	}
	return Config{}, "", nil
}

func parseConfig(raw []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	return cfg, nil
}
