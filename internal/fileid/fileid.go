// Package fileid derives deterministic document IDs for ingested files.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strconv"
	"strings"
)

const prefix = "file:"

// SourceID returns a stable ID for the file at path. Equivalent spellings of
// the same path (trailing slash, "." segments) map to the same ID.
func SourceID(path string) string {
	hash := sha256.Sum256([]byte(filepath.Clean(path)))
	return prefix + hex.EncodeToString(hash[:12])
}

// ChunkID returns the ID of the index-th chunk of the file at path. Re-ingesting
// the same file yields the same IDs, so duplicates are easy to spot in scans.
func ChunkID(path string, index int) string {
	return SourceID(path) + "#" + strconv.Itoa(index)
}

// SplitChunkID returns the source ID and chunk index of a ChunkID value.
func SplitChunkID(id string) (source string, index int, ok bool) {
	if !strings.HasPrefix(id, prefix) {
		return "", 0, false
	}
	i := strings.LastIndexByte(id, '#')
	if i < 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(id[i+1:])
	if err != nil || n < 0 {
		return "", 0, false
	}
	return id[:i], n, true
}
