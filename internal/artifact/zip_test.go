// Where: cli/internal/artifact/zip_test.go
// What: Tests for deterministic packaging.
// Why: The code diff relies on content-derived digests.
package artifact

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return dir
}

func TestPackageDeterministicAcrossRuns(t *testing.T) {
	files := map[string]string{
		"index.js":    "exports.handler = () => {};",
		"lib/util.js": "module.exports = 1;",
	}
	dirA := writeTree(t, files)
	dirB := writeTree(t, files)

	_, hashA, _, err := Package(dirA)
	if err != nil {
		t.Fatalf("package a: %v", err)
	}
	_, hashB, _, err := Package(dirB)
	if err != nil {
		t.Fatalf("package b: %v", err)
	}
	if hashA != hashB {
		t.Fatalf("identical trees hash differently: %s vs %s", hashA, hashB)
	}
}

func TestPackageContentChangesDigest(t *testing.T) {
	dirA := writeTree(t, map[string]string{"index.js": "a"})
	dirB := writeTree(t, map[string]string{"index.js": "b"})

	_, hashA, _, _ := Package(dirA)
	_, hashB, _, _ := Package(dirB)
	if hashA == hashB {
		t.Fatalf("different content produced identical digest")
	}
}

func TestPackageArchiveEntries(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"index.js":    "exports.handler = () => {};",
		"lib/util.js": "module.exports = 1;",
	})

	data, _, _, err := Package(dir)
	if err != nil {
		t.Fatalf("package: %v", err)
	}
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}

	var names []string
	for _, file := range reader.File {
		names = append(names, file.Name)
	}
	if len(names) != 2 || names[0] != "index.js" || names[1] != "lib/util.js" {
		t.Fatalf("unexpected entries: %v", names)
	}
	for _, file := range reader.File {
		if !file.Modified.Equal(zipEpoch) {
			t.Fatalf("entry %s carries a non-fixed timestamp: %v", file.Name, file.Modified)
		}
	}
}

func TestPackageEmptyDirectoryFails(t *testing.T) {
	if _, _, _, err := Package(t.TempDir()); err == nil {
		t.Fatalf("expected error for empty directory")
	}
}

func TestPackageMissingDirectoryFails(t *testing.T) {
	if _, _, _, err := Package(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}
