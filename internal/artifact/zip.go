// Where: cli/internal/artifact/zip.go
// What: Deterministic zip packaging of a source directory.
// Why: Content-identical trees must hash identically across runs.
package artifact

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// zipEpoch is the fixed modification time stamped into every archive entry.
// Entry timestamps would otherwise leak the packaging time into the digest.
var zipEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Package zips the directory rooted at dir and returns the archive bytes
// together with its base64 and hex SHA-256 digests. Entries are written in
// lexical path order with fixed timestamps so the digest depends only on
// content.
func Package(dir string) (data []byte, hashB64 string, hashHex string, err error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, "", "", fmt.Errorf("source directory: %w", err)
	}
	if !info.IsDir() {
		return nil, "", "", fmt.Errorf("source %s is not a directory", dir)
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, "", "", fmt.Errorf("walk %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, "", "", fmt.Errorf("source directory %s is empty", dir)
	}
	sort.Strings(paths)

	buf := &bytes.Buffer{}
	writer := zip.NewWriter(buf)
	for _, path := range paths {
		if err := addEntry(writer, dir, path); err != nil {
			_ = writer.Close()
			return nil, "", "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", "", fmt.Errorf("finalize archive: %w", err)
	}

	sum := sha256.Sum256(buf.Bytes())
	return buf.Bytes(),
		base64.StdEncoding.EncodeToString(sum[:]),
		hex.EncodeToString(sum[:]),
		nil
}

func addEntry(writer *zip.Writer, root, path string) error {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	header := &zip.FileHeader{
		Name:     filepath.ToSlash(rel),
		Method:   zip.Deflate,
		Modified: zipEpoch,
	}
	header.SetMode(normalizeMode(info.Mode(), rel))

	entry, err := writer.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("archive entry %s: %w", rel, err)
	}
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := io.Copy(entry, file); err != nil {
		return fmt.Errorf("archive entry %s: %w", rel, err)
	}
	return nil
}

// normalizeMode collapses host-specific permission noise: executables keep
// their execute bit, everything else becomes 0644. The runtime only cares
// about the execute bit, and stable modes keep the digest stable across
// checkouts with different umasks.
func normalizeMode(mode fs.FileMode, rel string) fs.FileMode {
	if mode&0o111 != 0 || strings.HasSuffix(rel, ".sh") {
		return 0o755
	}
	return 0o644
}
