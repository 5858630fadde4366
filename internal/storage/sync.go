package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/rs/zerolog"
)

// MirrorSyncer copies a project's run artifacts into a sync target directory,
// mirroring the project-relative layout under a per-project prefix. The target
// side is a FileStore, so every destination key is sanitized before any write.
// Files already present with matching size and modification time are skipped.
type MirrorSyncer struct {
	Target string
	Logger zerolog.Logger
}

// syncedDirs are the project subtrees worth mirroring after a run.
var syncedDirs = []string{"runs", "out"}

// SyncRun mirrors the project's runs/ and out/ trees into the target.
func (s MirrorSyncer) SyncRun(ctx context.Context, slug, projectRoot string) error {
	if s.Target == "" {
		return fmt.Errorf("storage: sync target not configured")
	}
	store, err := NewFileStore(s.Target)
	if err != nil {
		return err
	}
	copied := 0
	for _, sub := range syncedDirs {
		srcRoot := filepath.Join(projectRoot, sub)
		if _, err := os.Stat(srcRoot); os.IsNotExist(err) {
			continue
		}
		err := filepath.WalkDir(srcRoot, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if d.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(projectRoot, p)
			if err != nil {
				return err
			}
			changed, err := mirrorFile(ctx, store, p, path.Join(slug, filepath.ToSlash(rel)))
			if err != nil {
				return err
			}
			if changed {
				copied++
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("storage: sync %s: %w", srcRoot, err)
		}
	}
	s.Logger.Info().Str("project", slug).Int("files", copied).Msg("storage sync complete")
	return nil
}

// mirrorFile writes one source file into the store under key, preserving the
// source modification time so unchanged files are skipped on the next pass.
func mirrorFile(ctx context.Context, store *FileStore, src, key string) (bool, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return false, err
	}
	dst := filepath.Join(store.BasePath(), filepath.FromSlash(cleanKey))
	if dstInfo, err := os.Stat(dst); err == nil {
		if dstInfo.Size() == srcInfo.Size() && dstInfo.ModTime().Equal(srcInfo.ModTime()) {
			return false, nil
		}
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return false, err
	}
	if _, err := store.Write(ctx, cleanKey, data); err != nil {
		return false, err
	}
	if err := os.Chtimes(dst, srcInfo.ModTime(), srcInfo.ModTime()); err != nil {
		return false, err
	}
	return true, nil
}
