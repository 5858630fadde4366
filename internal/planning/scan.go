package planning

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ldco/Kroma-sub000/internal/domain"
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

// ScanInputDir walks dir recursively and returns every image file found,
// sorted by path so repeated scans of the same tree plan the same jobs.
func ScanInputDir(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if imageExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, domain.Preflightf("scan input directory %s: %v", dir, err)
	}
	sort.Strings(files)
	return files, nil
}
