package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ldco/Kroma-sub000/internal/outputguard"
	"github.com/ldco/Kroma-sub000/internal/runlog"
	"github.com/ldco/Kroma-sub000/internal/settings"
	"github.com/ldco/Kroma-sub000/internal/tooling"
)

// fakeTools implements every adapter contract in process. Generation writes
// a placeholder file; postprocess passes are pass-through; the quality
// checker replays the scripted chroma values in call order.
type fakeTools struct {
	chromaScript []float64
	qualityCalls int
	generated    []string
	archived     []string
}

func (f *fakeTools) Generate(ctx context.Context, req tooling.GenerateRequest) (tooling.GenerateResult, error) {
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return tooling.GenerateResult{}, err
	}
	if err := os.WriteFile(req.OutputPath, []byte("png:"+req.JobID), 0o644); err != nil {
		return tooling.GenerateResult{}, err
	}
	f.generated = append(f.generated, req.OutputPath)
	return tooling.GenerateResult{OutputPath: req.OutputPath}, nil
}

func (f *fakeTools) RemoveBackground(ctx context.Context, req tooling.BgRemovalRequest) (tooling.BgRemovalResult, error) {
	res := tooling.BgRemovalResult{OutputPath: req.OutputPath}
	if req.RefineEnabled {
		res.RefineNote = "refined"
	}
	return res, nil
}

func (f *fakeTools) Upscale(ctx context.Context, req tooling.UpscaleRequest) (tooling.UpscaleResult, error) {
	return tooling.UpscaleResult{OutputPath: req.OutputPath}, nil
}

func (f *fakeTools) CorrectColor(ctx context.Context, req tooling.ColorRequest) (tooling.ColorResult, error) {
	return tooling.ColorResult{OutputPath: req.OutputPath}, nil
}

func (f *fakeTools) CheckQuality(ctx context.Context, path string) (outputguard.Report, error) {
	var chroma float64
	if f.qualityCalls < len(f.chromaScript) {
		chroma = f.chromaScript[f.qualityCalls]
	}
	f.qualityCalls++
	return outputguard.Report{
		Files: []outputguard.FileMeasurement{{Path: path, ChromaDelta: chroma}},
	}, nil
}

func (f *fakeTools) Archive(ctx context.Context, path, archiveDir string) (string, error) {
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", err
	}
	dst := filepath.Join(archiveDir, filepath.Base(path))
	if err := os.Rename(path, dst); err != nil {
		return "", err
	}
	f.archived = append(f.archived, dst)
	return dst, nil
}

func (f *fakeTools) toolchain() tooling.Toolchain {
	return tooling.Toolchain{
		Generator: f,
		BgRemover: f,
		Upscaler:  f,
		Color:     f,
		Quality:   f,
		Archiver:  f,
	}
}

// fakeIngestor records every ingest call.
type fakeIngestor struct {
	paths   []string
	records []runlog.Record
}

func (f *fakeIngestor) IngestRunLog(ctx context.Context, path string, rec runlog.Record) error {
	f.paths = append(f.paths, path)
	f.records = append(f.records, rec)
	return nil
}

func testDeps(t *testing.T, tools *fakeTools) (Deps, string) {
	t.Helper()
	configRoot := t.TempDir()
	dataRoot := t.TempDir()
	return Deps{
		Logger:      zerolog.Nop(),
		Resolver:    settings.Resolver{ConfigRoot: configRoot, DataRoot: dataRoot},
		ConfigRoot:  configRoot,
		BatchLimit:  12,
		Tools:       tools.toolchain(),
		AdapterName: "fake",
		Now:         func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) },
	}, dataRoot
}

// findRunLogs returns every run-log file written under root.
func findRunLogs(t *testing.T, root string) []string {
	t.Helper()
	var logs []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".json" && filepath.Base(filepath.Dir(path)) == "runs" {
			logs = append(logs, path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", root, err)
	}
	return logs
}
