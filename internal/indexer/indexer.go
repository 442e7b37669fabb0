package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/hyperjump/eximrag/internal/extract"
	"github.com/hyperjump/eximrag/internal/fileid"
	"github.com/hyperjump/eximrag/internal/models"
	"github.com/hyperjump/eximrag/internal/vector"
	"go.uber.org/zap"
)

// Metadata keys set on every chunk ingested from a file.
const (
	MetaSourcePath  = "source_path"
	MetaFileName    = "file_name"
	MetaChunkIndex  = "chunk_index"
	MetaSourceMtime = "source_mtime"
	MetaSourceSize  = "source_size"
)

// DocumentEmbedder embeds document texts in input order.
type DocumentEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// DocumentStore is the vector store as seen by the indexer.
type DocumentStore interface {
	Add(ctx context.Context, docs []*models.Document) (*vector.AddResult, error)
	SearchByMetadata(ctx context.Context, filters vector.Filters) ([]*models.Document, error)
}

// Report summarizes one ingestion call.
type Report struct {
	Files     int              `json:"files"`
	Unchanged int              `json:"unchanged"`
	Chunks    int              `json:"chunks"`
	Skipped   []vector.Skipped `json:"skipped,omitempty"`
}

// Merge adds o into r.
func (r *Report) Merge(o *Report) {
	r.Files += o.Files
	r.Unchanged += o.Unchanged
	r.Chunks += o.Chunks
	r.Skipped = append(r.Skipped, o.Skipped...)
}

// Indexer embeds documents and adds them to the store.
type Indexer struct {
	embedder  DocumentEmbedder
	store     DocumentStore
	chunker   *Chunker
	extractor *extract.Extractor
	logger    *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for per-file events.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithExtractor replaces the default extractor.
func WithExtractor(e *extract.Extractor) IndexerOption {
	return func(idx *Indexer) { idx.extractor = e }
}

// NewIndexer creates an indexer that chunks text into chunkSize-word windows
// overlapping by chunkOverlap words.
func NewIndexer(embedder DocumentEmbedder, store DocumentStore, chunkSize, chunkOverlap int, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		embedder:  embedder,
		store:     store,
		chunker:   NewChunker(chunkSize, chunkOverlap),
		extractor: extract.NewExtractor(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IngestTexts embeds caller-provided texts. Inputs with a blank ID get a UUID.
// Inputs longer than one chunk are split; their chunks carry IDs of the form
// <id>#<n>. Every chunk gets the chunk_index metadata key.
func (idx *Indexer) IngestTexts(ctx context.Context, inputs []*models.DocumentInput) (*Report, error) {
	var docs []*models.Document
	for _, in := range inputs {
		if in == nil {
			continue
		}
		id := in.ID
		if id == "" {
			id = uuid.New().String()
		}
		chunks := idx.chunker.Chunk(Preprocess(in.Content))
		for _, ch := range chunks {
			chunkID := id
			if len(chunks) > 1 {
				chunkID = id + "#" + strconv.Itoa(ch.Index)
			}
			docs = append(docs, newChunkDocument(chunkID, ch, in.Metadata))
		}
	}
	return idx.embedAndAdd(ctx, docs)
}

// IngestFile extracts, chunks and embeds one file. Chunks carry source_path,
// file_name and chunk_index plus the given metadata; their IDs come from
// fileid.ChunkID. A file already present in the store with the same size and
// modification time is left alone and counted as unchanged.
func (idx *Indexer) IngestFile(ctx context.Context, path string, metadata map[string]interface{}) (*Report, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}
	mtime := strconv.FormatInt(info.ModTime().UnixNano(), 10)
	size := strconv.FormatInt(info.Size(), 10)

	unchanged, err := idx.alreadyIngested(ctx, absPath, mtime, size)
	if err != nil {
		return nil, err
	}
	if unchanged {
		idx.logger.Debug("skipping unchanged file", zap.String("path", absPath))
		return &Report{Unchanged: 1}, nil
	}

	text, err := idx.extractor.Extract(absPath)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", absPath, err)
	}
	chunks := idx.chunker.Chunk(Preprocess(text))
	if len(chunks) == 0 {
		idx.logger.Warn("no text extracted", zap.String("path", absPath))
		return &Report{Files: 1}, nil
	}

	// Caller metadata cannot override the source keys alreadyIngested relies on.
	base := make(map[string]interface{}, len(metadata)+4)
	for k, v := range metadata {
		base[k] = v
	}
	base[MetaSourcePath] = absPath
	base[MetaFileName] = filepath.Base(absPath)
	base[MetaSourceMtime] = mtime
	base[MetaSourceSize] = size
	docs := make([]*models.Document, len(chunks))
	for i, ch := range chunks {
		docs[i] = newChunkDocument(fileid.ChunkID(absPath, ch.Index), ch, base)
	}
	report, err := idx.embedAndAdd(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", absPath, err)
	}
	report.Files = 1
	idx.logger.Info("ingested file",
		zap.String("path", absPath),
		zap.Int("chunks", report.Chunks),
		zap.Int("skipped", len(report.Skipped)))
	return report, nil
}

// IngestDirectory walks root recursively and ingests every regular file whose
// extension is in exts (all files the extractor supports when exts is empty).
// Unsupported files are skipped; other errors stop the walk and are returned
// with the report accumulated so far.
func (idx *Indexer) IngestDirectory(ctx context.Context, root string, exts []string, metadata map[string]interface{}) (*Report, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absRoot)
	}

	total := &Report{}
	err = filepath.WalkDir(absRoot, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != absRoot && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(path)
		if len(exts) > 0 && !extensionAllowed(ext, exts) {
			return nil
		}
		if !idx.extractor.Supports(ext) {
			return nil
		}
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		report, err := idx.IngestFile(ctx, path, metadata)
		if err != nil {
			if errors.Is(err, extract.ErrUnsupported) {
				return nil
			}
			return err
		}
		total.Merge(report)
		return nil
	})
	return total, err
}

func (idx *Indexer) embedAndAdd(ctx context.Context, docs []*models.Document) (*Report, error) {
	if len(docs) == 0 {
		return &Report{}, nil
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vectors, err := idx.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}
	for i := range docs {
		docs[i].Embedding = vectors[i]
	}
	res, err := idx.store.Add(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("add documents: %w", err)
	}
	return &Report{Chunks: res.Accepted, Skipped: res.Skipped}, nil
}

// alreadyIngested reports whether chunks of absPath with the given size and
// modification time are already stored.
func (idx *Indexer) alreadyIngested(ctx context.Context, absPath, mtime, size string) (bool, error) {
	existing, err := idx.store.SearchByMetadata(ctx, vector.Filters{
		MetaSourcePath:  absPath,
		MetaSourceMtime: mtime,
		MetaSourceSize:  size,
	})
	if err != nil {
		return false, fmt.Errorf("look up %s: %w", absPath, err)
	}
	return len(existing) > 0, nil
}

func newChunkDocument(id string, ch Chunk, metadata map[string]interface{}) *models.Document {
	meta := make(map[string]interface{}, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	meta[MetaChunkIndex] = ch.Index
	return &models.Document{ID: id, Content: ch.Text, Metadata: meta}
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
