package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/eximrag/internal/embedding"
	"github.com/hyperjump/eximrag/internal/fileid"
	"github.com/hyperjump/eximrag/internal/models"
	"github.com/hyperjump/eximrag/internal/vector"
)

const testDim = 16

func testIndexer(t *testing.T, chunkSize, overlap int) (*Indexer, *vector.Store) {
	t.Helper()
	svc, err := embedding.NewService(embedding.NewMockBackend(testDim))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	store, err := vector.NewStore(testDim)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return NewIndexer(svc, store, chunkSize, overlap), store
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestExtensionAllowed(t *testing.T) {
	tests := []struct {
		ext     string
		allowed []string
		want    bool
	}{
		{".txt", []string{".txt", ".md"}, true},
		{".TXT", []string{".txt"}, true},
		{".pdf", []string{"pdf"}, true},
		{".go", []string{".txt"}, false},
		{"", []string{".txt"}, false},
	}
	for _, tt := range tests {
		if got := extensionAllowed(tt.ext, tt.allowed); got != tt.want {
			t.Errorf("extensionAllowed(%q, %v) = %v, want %v", tt.ext, tt.allowed, got, tt.want)
		}
	}
}

func TestIngestFile(t *testing.T) {
	idx, store := testIndexer(t, 4, 1)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "rodtep.txt")
	writeFile(t, path, "RoDTEP rates apply to exports of notified goods from India.")

	report, err := idx.IngestFile(ctx, path, map[string]interface{}{"source": "DGFT"})
	if err != nil {
		t.Fatal(err)
	}
	if report.Files != 1 || report.Chunks != 3 || len(report.Skipped) != 0 {
		t.Fatalf("report=%+v", report)
	}

	docs, _ := store.SearchByMetadata(ctx, vector.Filters{"source": "DGFT"})
	if len(docs) != 3 {
		t.Fatalf("stored %d chunks, want 3", len(docs))
	}
	abs, _ := filepath.Abs(path)
	for i, d := range docs {
		if d.ID != fileid.ChunkID(abs, i) {
			t.Errorf("chunk %d ID=%q", i, d.ID)
		}
		if d.Metadata[MetaSourcePath] != abs || d.Metadata[MetaFileName] != "rodtep.txt" {
			t.Errorf("chunk %d metadata=%v", i, d.Metadata)
		}
		if d.Metadata[MetaChunkIndex] != i {
			t.Errorf("chunk %d chunk_index=%v", i, d.Metadata[MetaChunkIndex])
		}
		if len(d.Embedding) != testDim {
			t.Errorf("chunk %d embedding length %d", i, len(d.Embedding))
		}
	}
	if !strings.HasPrefix(docs[0].Content, "RoDTEP rates apply to") {
		t.Errorf("first chunk content %q", docs[0].Content)
	}
}

func TestIngestFile_unchangedIsSkipped(t *testing.T) {
	idx, store := testIndexer(t, 50, 5)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "notice.md")
	writeFile(t, path, "Public notice on export obligation.")

	if _, err := idx.IngestFile(ctx, path, nil); err != nil {
		t.Fatal(err)
	}
	report, err := idx.IngestFile(ctx, path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if report.Unchanged != 1 || report.Chunks != 0 {
		t.Errorf("second ingest report=%+v", report)
	}
	if st := store.Stats(); st.TotalDocuments != 1 {
		t.Errorf("TotalDocuments=%d, want 1", st.TotalDocuments)
	}
}

func TestIngestFile_callerMetadataCannotOverrideSourceKeys(t *testing.T) {
	idx, store := testIndexer(t, 50, 5)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "circular.txt")
	writeFile(t, path, "Trade notice on onion export price.")
	meta := map[string]interface{}{
		MetaSourcePath:  "/elsewhere/circular.txt",
		MetaSourceMtime: "0",
		MetaSourceSize:  "1",
		MetaFileName:    "renamed.txt",
		"source":        "DGFT",
	}

	if _, err := idx.IngestFile(ctx, path, meta); err != nil {
		t.Fatal(err)
	}
	docs, err := store.SearchByMetadata(ctx, vector.Filters{"source": "DGFT"})
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d chunks, want 1", len(docs))
	}
	abs, _ := filepath.Abs(path)
	if got := docs[0].Metadata[MetaSourcePath]; got != abs {
		t.Errorf("%s = %v, want %s", MetaSourcePath, got, abs)
	}
	if got := docs[0].Metadata[MetaFileName]; got != "circular.txt" {
		t.Errorf("%s = %v, want circular.txt", MetaFileName, got)
	}

	report, err := idx.IngestFile(ctx, path, meta)
	if err != nil {
		t.Fatal(err)
	}
	if report.Unchanged != 1 || report.Chunks != 0 {
		t.Errorf("second ingest report=%+v, want unchanged", report)
	}
}

func TestIngestFile_errors(t *testing.T) {
	idx, _ := testIndexer(t, 10, 2)
	ctx := context.Background()
	dir := t.TempDir()
	if _, err := idx.IngestFile(ctx, filepath.Join(dir, "missing.txt"), nil); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := idx.IngestFile(ctx, dir, nil); err == nil {
		t.Error("expected error for directory")
	}
}

func TestIngestFile_emptyText(t *testing.T) {
	idx, store := testIndexer(t, 10, 2)
	path := filepath.Join(t.TempDir(), "blank.txt")
	writeFile(t, path, "  \n ")
	report, err := idx.IngestFile(context.Background(), path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if report.Files != 1 || report.Chunks != 0 {
		t.Errorf("report=%+v", report)
	}
	if store.Stats().TotalDocuments != 0 {
		t.Error("blank file should add nothing")
	}
}

func TestIngestDirectory(t *testing.T) {
	idx, store := testIndexer(t, 100, 10)
	ctx := context.Background()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "Advance authorisation for duty free import.")
	writeFile(t, filepath.Join(root, "sub", "b.md"), "EPCG scheme for capital goods.")
	writeFile(t, filepath.Join(root, "sub", "c.go"), "package main")
	writeFile(t, filepath.Join(root, "slides.pptx"), "not extractable")
	writeFile(t, filepath.Join(root, ".git", "d.txt"), "hidden directory")

	report, err := idx.IngestDirectory(ctx, root, nil, map[string]interface{}{"batch": "2024-q1"})
	if err != nil {
		t.Fatal(err)
	}
	if report.Files != 2 || report.Chunks != 2 {
		t.Errorf("report=%+v", report)
	}
	docs, _ := store.SearchByMetadata(ctx, vector.Filters{"batch": "2024-q1"})
	if len(docs) != 2 {
		t.Errorf("stored %d documents, want 2", len(docs))
	}

	only, err := idx.IngestDirectory(ctx, root, []string{".md"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if only.Unchanged != 1 || only.Files != 0 {
		t.Errorf("filtered re-ingest report=%+v", only)
	}
}

func TestIngestDirectory_notADirectory(t *testing.T) {
	idx, _ := testIndexer(t, 10, 2)
	path := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, path, "x")
	if _, err := idx.IngestDirectory(context.Background(), path, nil, nil); err == nil {
		t.Error("expected error for a file root")
	}
}

func TestIngestTexts(t *testing.T) {
	idx, store := testIndexer(t, 3, 0)
	ctx := context.Background()
	report, err := idx.IngestTexts(ctx, []*models.DocumentInput{
		{ID: "fda-1", Content: "prior notice required", Metadata: map[string]interface{}{"source": "FDA"}},
		{Content: "facility registration renewal every two years", Metadata: map[string]interface{}{"source": "FDA"}},
		{ID: "blank", Content: "   "},
		nil,
	})
	if err != nil {
		t.Fatal(err)
	}
	if report.Chunks != 3 {
		t.Fatalf("report=%+v", report)
	}
	docs, _ := store.SearchByMetadata(ctx, vector.Filters{"source": "FDA"})
	if len(docs) != 3 {
		t.Fatalf("stored %d documents", len(docs))
	}
	if docs[0].ID != "fda-1" {
		t.Errorf("single-chunk input should keep its ID, got %q", docs[0].ID)
	}
	if !strings.HasSuffix(docs[1].ID, "#0") || !strings.HasSuffix(docs[2].ID, "#1") {
		t.Errorf("multi-chunk IDs: %q %q", docs[1].ID, docs[2].ID)
	}
	if strings.TrimSuffix(docs[1].ID, "#0") == "" {
		t.Error("blank input ID should be replaced with a UUID")
	}
}

type failingEmbedder struct{}

func (failingEmbedder) EmbedDocuments(context.Context, []string) ([][]float32, error) {
	return nil, embedding.ErrBackendUnavailable
}

func TestIngestTexts_embedError(t *testing.T) {
	store, err := vector.NewStore(testDim)
	if err != nil {
		t.Fatal(err)
	}
	idx := NewIndexer(failingEmbedder{}, store, 10, 0)
	_, err = idx.IngestTexts(context.Background(), []*models.DocumentInput{{ID: "a", Content: "text"}})
	if !errors.Is(err, embedding.ErrBackendUnavailable) {
		t.Errorf("err=%v, want ErrBackendUnavailable", err)
	}
	if store.Stats().TotalDocuments != 0 {
		t.Error("nothing should be stored when embedding fails")
	}
}
