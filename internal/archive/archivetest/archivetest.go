// Package archivetest builds throwaway package archives for tests.
package archivetest

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
)

// WriteZip 在临时目录写入一个包含 files 的 zip，并将修改时间设置为 modTime（零值则保持当前时间）。
func WriteZip(t testing.TB, files map[string]string, modTime time.Time) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "package.nw")
	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	zw := zip.NewWriter(out)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			t.Fatalf("write entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}

	if !modTime.IsZero() {
		if err := os.Chtimes(path, modTime, modTime); err != nil {
			t.Fatalf("set archive mtime: %v", err)
		}
	}
	return path
}
