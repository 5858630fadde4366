package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Hard-coded bottom tier. Everything above it is optional.
const (
	DefaultModel          = "gpt-image-1"
	DefaultSize           = "1024x1024"
	DefaultQuality        = "high"
	DefaultStorageBackend = "local"
)

// ParseError reports a settings file that exists but does not decode. The
// wrapped decoder error names the offending field or value.
type ParseError struct {
	Path  string
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("settings: parse %s: field %q: %v", e.Path, e.Field, e.Err)
	}
	return fmt.Sprintf("settings: parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Effective is the merged result of all tiers, with no optional fields left.
type Effective struct {
	Model          string
	Size           string
	Quality        string
	StorageBackend string
	LocalRoot      string
	S3Mirror       string
	SyncTarget     string

	Sources SourceReport
}

// SourceReport records which tier files were found, for diagnostics and the
// validate endpoint.
type SourceReport struct {
	AppPath       string
	AppLoaded     bool
	ProjectPath   string
	ProjectLoaded bool
}

// Resolver merges the application tier, the per-project tier and an explicit
// overlay on top of the hard-coded defaults. ConfigRoot holds the application
// settings file and the projects/ tree; DataRoot anchors the default storage
// paths.
type Resolver struct {
	ConfigRoot string
	DataRoot   string
}

// Resolve loads both file tiers for slug and merges them field by field with
// the explicit overlay. Missing files contribute an empty overlay; files that
// exist but fail to decode abort with a ParseError.
func (r Resolver) Resolve(slug string, explicit Overlay) (Effective, error) {
	appOv, appPath, appLoaded, err := loadTier(filepath.Join(r.ConfigRoot, "settings"))
	if err != nil {
		return Effective{}, err
	}
	projOv, projPath, projLoaded, err := loadTier(filepath.Join(r.ConfigRoot, "projects", slug, "settings"))
	if err != nil {
		return Effective{}, err
	}

	eff := Effective{
		Model:   pick(DefaultModel, explicit.Model, projOv.Model, appOv.Model),
		Size:    pick(DefaultSize, explicit.Size, projOv.Size, appOv.Size),
		Quality: pick(DefaultQuality, explicit.Quality, projOv.Quality, appOv.Quality),
		StorageBackend: pick(DefaultStorageBackend,
			storageField(explicit, func(s *StorageOverlay) *string { return s.Backend }),
			storageField(projOv, func(s *StorageOverlay) *string { return s.Backend }),
			storageField(appOv, func(s *StorageOverlay) *string { return s.Backend })),
		LocalRoot: pick(filepath.Join(r.DataRoot, "projects"),
			storageField(explicit, func(s *StorageOverlay) *string { return s.LocalRoot }),
			storageField(projOv, func(s *StorageOverlay) *string { return s.LocalRoot }),
			storageField(appOv, func(s *StorageOverlay) *string { return s.LocalRoot })),
		S3Mirror: pick(filepath.Join(r.DataRoot, "s3"),
			storageField(explicit, func(s *StorageOverlay) *string { return s.S3Mirror }),
			storageField(projOv, func(s *StorageOverlay) *string { return s.S3Mirror }),
			storageField(appOv, func(s *StorageOverlay) *string { return s.S3Mirror })),
		SyncTarget: pick(filepath.Join(r.DataRoot, "sync"),
			storageField(explicit, func(s *StorageOverlay) *string { return s.SyncTarget }),
			storageField(projOv, func(s *StorageOverlay) *string { return s.SyncTarget }),
			storageField(appOv, func(s *StorageOverlay) *string { return s.SyncTarget })),
		Sources: SourceReport{
			AppPath:       appPath,
			AppLoaded:     appLoaded,
			ProjectPath:   projPath,
			ProjectLoaded: projLoaded,
		},
	}

	switch eff.StorageBackend {
	case "local", "s3":
	default:
		return Effective{}, fmt.Errorf("settings: unsupported storage backend %q", eff.StorageBackend)
	}
	return eff, nil
}

// loadTier reads stem+".yaml", falling back to stem+".json". A tier with
// neither file present is an empty overlay, not an error.
func loadTier(stem string) (Overlay, string, bool, error) {
	yamlPath := stem + ".yaml"
	if ov, ok, err := loadYAML(yamlPath); err != nil || ok {
		return ov, yamlPath, ok, err
	}
	jsonPath := stem + ".json"
	if ov, ok, err := loadJSON(jsonPath); err != nil || ok {
		return ov, jsonPath, ok, err
	}
	return Overlay{}, yamlPath, false, nil
}

func loadYAML(path string) (Overlay, bool, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Overlay{}, false, nil
	}
	if err != nil {
		return Overlay{}, false, fmt.Errorf("settings: read %s: %w", path, err)
	}
	var ov Overlay
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&ov); err != nil {
		if errors.Is(err, io.EOF) {
			return Overlay{}, true, nil
		}
		return Overlay{}, false, &ParseError{Path: path, Err: err}
	}
	return ov, true, nil
}

func loadJSON(path string) (Overlay, bool, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Overlay{}, false, nil
	}
	if err != nil {
		return Overlay{}, false, fmt.Errorf("settings: read %s: %w", path, err)
	}
	var ov Overlay
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ov); err != nil {
		if errors.Is(err, io.EOF) {
			return Overlay{}, true, nil
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return Overlay{}, false, &ParseError{Path: path, Field: typeErr.Field, Err: err}
		}
		return Overlay{}, false, &ParseError{Path: path, Err: err}
	}
	return ov, true, nil
}
