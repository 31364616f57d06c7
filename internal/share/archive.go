package share

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// zipMethodZstd is the ZIP compression method ID for Zstandard (APPNOTE 6.3.7).
const zipMethodZstd uint16 = 93

var registerOnce sync.Once

// registerZstd installs the zstd compressor for archive/zip. Level 12 maps to
// SpeedBestCompression in klauspost/compress.
func registerZstd() {
	registerOnce.Do(func() {
		zip.RegisterCompressor(zipMethodZstd, func(w io.Writer) (io.WriteCloser, error) {
			return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(12)))
		})
		zip.RegisterDecompressor(zipMethodZstd, func(r io.Reader) io.ReadCloser {
			dec, err := zstd.NewReader(r)
			if err != nil {
				return io.NopCloser(errReader{err})
			}
			return dec.IOReadCloser()
		})
	})
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

// Entry is one file in a share archive.
type Entry struct {
	Name     string
	Data     []byte
	Modified time.Time
}

// WriteArchive writes entries as a zstd-compressed ZIP. Names are made
// unique by suffixing " (2)", " (3)", ... before the extension.
func WriteArchive(w io.Writer, entries []Entry) error {
	registerZstd()
	zw := zip.NewWriter(w)
	seen := make(map[string]int, len(entries))

	for _, e := range entries {
		name := uniqueName(sanitizeName(e.Name), seen)
		hdr := &zip.FileHeader{
			Name:     name,
			Method:   zipMethodZstd,
			Modified: e.Modified,
		}
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("zip header %s: %w", name, err)
		}
		if _, err := fw.Write(e.Data); err != nil {
			return fmt.Errorf("zip write %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("zip close: %w", err)
	}
	return nil
}

func sanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	return name
}

func uniqueName(name string, seen map[string]int) string {
	seen[name]++
	n := seen[name]
	if n == 1 {
		return name
	}
	ext := path.Ext(name)
	candidate := fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(name, ext), n, ext)
	// The suffixed form may itself collide with a real file name.
	for seen[candidate] > 0 {
		n++
		candidate = fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(name, ext), n, ext)
	}
	seen[candidate]++
	return candidate
}
