package out_test

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeFile(t *testing.T, path string, payload string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func manifestJSON(name, version string) string {
	return fmt.Sprintf(`{"name":%q,"display_name":%q,"version":%q}`, name, name+" pack", version)
}

// writePackDir lays out dir/metadata.json and dir/stickers/<file> for each
// sticker file name.
func writePackDir(t *testing.T, dir, manifest string, stickers ...string) {
	t.Helper()
	writeFile(t, filepath.Join(dir, "metadata.json"), manifest)
	for _, s := range stickers {
		writeFile(t, filepath.Join(dir, "stickers", s), "img:"+s)
	}
}

// buildZip writes entries (archive name to content) to path in sorted order.
func buildZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	zw := zip.NewWriter(f)
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(entries[name])); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
}

func packZipEntries(prefix, name, version string) map[string]string {
	return map[string]string{
		prefix + "metadata.json":     manifestJSON(name, version),
		prefix + "stickers/b.png":    "b",
		prefix + "stickers/a.jpg":    "a",
		prefix + "stickers/note.txt": "ignored",
	}
}
