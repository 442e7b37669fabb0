package fileid

import (
	"strings"
	"testing"
)

func TestSourceID(t *testing.T) {
	id1 := SourceID("/docs/dgft/ftp-2023.pdf")
	if id1 != SourceID("/docs/dgft/ftp-2023.pdf") {
		t.Error("same path should give same ID")
	}
	if !strings.HasPrefix(id1, prefix) || len(id1) != len(prefix)+24 {
		t.Errorf("unexpected ID shape: %q", id1)
	}
	if id1 == SourceID("/docs/dgft/ftp-2015.pdf") {
		t.Error("different paths should give different IDs")
	}
}

func TestSourceID_normalized(t *testing.T) {
	id := SourceID("/foo/bar")
	for _, p := range []string{"/foo/bar/", "/foo/./bar", "/foo/baz/../bar"} {
		if SourceID(p) != id {
			t.Errorf("SourceID(%q) should equal SourceID(/foo/bar)", p)
		}
	}
}

func TestChunkID(t *testing.T) {
	a0 := ChunkID("/docs/a.txt", 0)
	a1 := ChunkID("/docs/a.txt", 1)
	if a0 == a1 {
		t.Error("chunk index should change the ID")
	}
	if !strings.HasPrefix(a0, SourceID("/docs/a.txt")) {
		t.Errorf("chunk ID should start with the source ID: %q", a0)
	}

	source, index, ok := SplitChunkID(a1)
	if !ok || source != SourceID("/docs/a.txt") || index != 1 {
		t.Errorf("SplitChunkID(%q) = %q, %d, %v", a1, source, index, ok)
	}
}

func TestSplitChunkID_invalid(t *testing.T) {
	for _, id := range []string{"", "doc-1", "file:abc", "file:abc#x", "file:abc#-1"} {
		if _, _, ok := SplitChunkID(id); ok {
			t.Errorf("SplitChunkID(%q) should fail", id)
		}
	}
}
