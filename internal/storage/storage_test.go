package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ldco/Kroma-sub000/internal/domain"
	"github.com/ldco/Kroma-sub000/internal/settings"
)

func TestFileStoreWriteRead(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	key, err := store.Write(context.Background(), "out/style/a.png", []byte("img"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if key != "out/style/a.png" {
		t.Fatalf("key = %q", key)
	}
	data, err := store.Read(context.Background(), key)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "img" {
		t.Fatalf("data = %q", data)
	}
}

func TestFileStoreMove(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := store.Write(context.Background(), "out/a.png", []byte("img")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	toKey, err := store.Move(context.Background(), "out/a.png", "archive/a.png")
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if toKey != "archive/a.png" {
		t.Fatalf("toKey = %q", toKey)
	}
	if _, err := store.Read(context.Background(), "out/a.png"); err == nil {
		t.Fatal("source should be gone after move")
	}
	if _, err := store.Read(context.Background(), "archive/a.png"); err != nil {
		t.Fatalf("destination missing: %v", err)
	}
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := store.Write(context.Background(), "../escape.png", []byte("x")); err == nil {
		t.Fatal("expected traversal key to be rejected")
	}
}

func TestResolveProjectRootBackends(t *testing.T) {
	eff := settings.Effective{
		StorageBackend: "local",
		LocalRoot:      "/srv/projects",
		S3Mirror:       "/srv/s3",
	}
	root, backend, err := ResolveProjectRoot(eff, "demo", "")
	if err != nil {
		t.Fatalf("ResolveProjectRoot: %v", err)
	}
	if root != filepath.Join("/srv/projects", "demo") || backend != "local" {
		t.Fatalf("got %q %q", root, backend)
	}

	eff.StorageBackend = "s3"
	root, backend, err = ResolveProjectRoot(eff, "demo", "")
	if err != nil {
		t.Fatalf("ResolveProjectRoot: %v", err)
	}
	if root != filepath.Join("/srv/s3", "demo") || backend != "s3" {
		t.Fatalf("got %q %q", root, backend)
	}

	root, backend, err = ResolveProjectRoot(eff, "demo", "/tmp/elsewhere")
	if err != nil {
		t.Fatalf("ResolveProjectRoot: %v", err)
	}
	if root != "/tmp/elsewhere" || backend != "override" {
		t.Fatalf("got %q %q", root, backend)
	}
}

func TestResolveProjectRootRejectsBadSlug(t *testing.T) {
	eff := settings.Effective{StorageBackend: "local", LocalRoot: "/srv"}
	_, _, err := ResolveProjectRoot(eff, "Bad Slug!", "")
	var bad *domain.InvalidProjectSlugError
	if !errors.As(err, &bad) {
		t.Fatalf("err = %v, want *InvalidProjectSlugError", err)
	}
}

func TestLayoutEnsureAndRunLogPath(t *testing.T) {
	root := t.TempDir()
	l := Layout{ProjectRoot: root}
	if err := l.EnsureModeLayout(domain.StageWeather); err != nil {
		t.Fatalf("EnsureModeLayout: %v", err)
	}
	for _, dir := range []string{l.RunsDir(), l.OutputDir(domain.StageWeather), l.ArchiveDir()} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("missing layout dir %s: %v", dir, err)
		}
	}

	now := time.Date(2026, 8, 21, 10, 30, 0, 0, time.UTC)
	path := l.RunLogPath(domain.StageWeather, now)
	if !strings.HasPrefix(path, l.RunsDir()) {
		t.Fatalf("path = %q, want under runs dir", path)
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "run_weather_20260821T103000Z_") || !strings.HasSuffix(base, ".json") {
		t.Fatalf("base = %q", base)
	}
	if other := l.RunLogPath(domain.StageWeather, now); other == path {
		t.Fatal("two paths for the same instant must differ")
	}
}

func TestMirrorSyncerCopiesAndSkips(t *testing.T) {
	projectRoot := t.TempDir()
	target := t.TempDir()

	writeSyncFile(t, filepath.Join(projectRoot, "runs", "run_a.json"), "{}\n")
	writeSyncFile(t, filepath.Join(projectRoot, "out", "style", "a.png"), "img")
	writeSyncFile(t, filepath.Join(projectRoot, "archive", "ignored.png"), "x")

	s := MirrorSyncer{Target: target, Logger: zerolog.Nop()}
	if err := s.SyncRun(context.Background(), "demo", projectRoot); err != nil {
		t.Fatalf("SyncRun: %v", err)
	}

	for _, rel := range []string{"demo/runs/run_a.json", "demo/out/style/a.png"} {
		if _, err := os.Stat(filepath.Join(target, rel)); err != nil {
			t.Fatalf("missing synced file %s: %v", rel, err)
		}
	}
	if _, err := os.Stat(filepath.Join(target, "demo", "archive", "ignored.png")); err == nil {
		t.Fatal("archive dir must not be synced")
	}

	// A second sync of unchanged files must not rewrite them.
	synced := filepath.Join(target, "demo", "runs", "run_a.json")
	past := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	src := filepath.Join(projectRoot, "runs", "run_a.json")
	if err := os.Chtimes(src, past, past); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	if err := os.Chtimes(synced, past, past); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	if err := s.SyncRun(context.Background(), "demo", projectRoot); err != nil {
		t.Fatalf("SyncRun again: %v", err)
	}
	info, err := os.Stat(synced)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if !info.ModTime().Equal(past) {
		t.Fatal("unchanged file was rewritten during sync")
	}
}

func TestMirrorSyncerRejectsTraversalSlug(t *testing.T) {
	projectRoot := t.TempDir()
	target := filepath.Join(t.TempDir(), "sync")

	writeSyncFile(t, filepath.Join(projectRoot, "runs", "run_a.json"), "{}\n")

	s := MirrorSyncer{Target: target, Logger: zerolog.Nop()}
	if err := s.SyncRun(context.Background(), "../escape", projectRoot); err == nil {
		t.Fatal("want error for slug escaping the sync target")
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(target), "escape")); err == nil {
		t.Fatal("file was written outside the sync target")
	}
}

func writeSyncFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}
