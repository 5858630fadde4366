package zip

import (
	"archive/zip"
	"bytes"
	"mime"
	"path/filepath"
	"strings"
)

// Asset is one run artifact to bundle. MIME defaults from the filename
// extension when left empty.
type Asset struct {
	Filename string
	MIME     string
	Data     []byte
}

// MIMEForFile guesses an asset's content type from its file extension.
func MIMEForFile(filename string) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); t != "" {
		return t
	}
	return "application/octet-stream"
}

// ArchiveAssets packs the assets into a single deflated zip. Each entry's
// content type is recorded in its header comment.
func ArchiveAssets(assets []Asset) []byte {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, asset := range assets {
		mimeType := asset.MIME
		if mimeType == "" {
			mimeType = MIMEForFile(asset.Filename)
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:    asset.Filename,
			Method:  zip.Deflate,
			Comment: mimeType,
		})
		if err != nil {
			continue
		}
		if _, err := w.Write(asset.Data); err != nil {
			return nil
		}
	}
	_ = zw.Close()
	return buf.Bytes()
}
