package vector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/hyperjump/eximrag/internal/models"
	"github.com/hyperjump/eximrag/internal/observability"
	"github.com/hyperjump/eximrag/internal/storage"
	"go.uber.org/zap"
)

// Snapshot artifact suffixes. Both files always travel together.
const (
	IndexSuffix    = ".index"
	MetadataSuffix = ".metadata"
)

const snapshotVersion = 1

// snapshotMetadata is the JSON body of <path>.metadata.
type snapshotMetadata struct {
	Version            int                `json:"version"`
	SavedAt            time.Time          `json:"saved_at"`
	EmbeddingDimension int                `json:"embedding_dimension"`
	IndexType          IndexType          `json:"index_type"`
	DocumentIDs        []string           `json:"document_ids"`
	Documents          []*models.Document `json:"documents"`
}

// IndexPath returns the index artifact path for a snapshot path.
func IndexPath(path string) string { return path + IndexSuffix }

// MetadataPath returns the metadata artifact path for a snapshot path.
func MetadataPath(path string) string { return path + MetadataSuffix }

// SnapshotSize returns the combined on-disk size of both artifacts.
func SnapshotSize(path string) (int64, error) {
	return storage.DiskUsageBytes(IndexPath(path), MetadataPath(path))
}

// Save writes <path>.index and <path>.metadata atomically. When a remote store
// is configured both artifacts are uploaded as well; upload failures are
// logged and do not fail the save.
func (s *Store) Save(ctx context.Context, path string) (err error) {
	if path == "" {
		return errors.New("save: path is required")
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	defer func() {
		observability.SnapshotOperationsTotal.WithLabelValues("save", observability.StatusLabel(err)).Inc()
	}()

	blob, meta, docs, err := s.encodeSnapshot()
	if err != nil {
		return err
	}
	// The metadata file is written last: its appearance marks a complete snapshot.
	if err := storage.WriteFileAtomic(IndexPath(path), blob); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	if err := storage.WriteFileAtomic(MetadataPath(path), meta); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	s.logger.Info("saved snapshot",
		zap.String("path", path),
		zap.Int("documents", docs),
		zap.Int("index_bytes", len(blob)),
		zap.Int("metadata_bytes", len(meta)))

	if s.remote != nil {
		s.upload(ctx, path, blob, meta)
	}
	return nil
}

func (s *Store) encodeSnapshot() ([]byte, []byte, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.index
	if idx == nil {
		empty, err := NewIndex(s.indexType, s.dimension)
		if err != nil {
			return nil, nil, 0, fmt.Errorf("save: %w", err)
		}
		defer empty.Close()
		idx = empty
	}
	blob, err := idx.MarshalBinary()
	if err != nil {
		return nil, nil, 0, fmt.Errorf("encode index: %w", err)
	}
	docs := s.documents
	if docs == nil {
		docs = []*models.Document{}
	}
	ids := s.docIDs
	if ids == nil {
		ids = []string{}
	}
	meta, err := json.Marshal(snapshotMetadata{
		Version:            snapshotVersion,
		SavedAt:            time.Now().UTC(),
		EmbeddingDimension: s.dimension,
		IndexType:          s.indexType,
		DocumentIDs:        ids,
		Documents:          docs,
	})
	if err != nil {
		return nil, nil, 0, fmt.Errorf("encode metadata: %w", err)
	}
	return blob, meta, len(docs), nil
}

func (s *Store) upload(ctx context.Context, path string, blob, meta []byte) {
	base := filepath.Base(path)
	for _, obj := range []struct {
		key  string
		data []byte
	}{
		{base + IndexSuffix, blob},
		{base + MetadataSuffix, meta},
	} {
		err := s.remote.Put(ctx, obj.key, obj.data)
		observability.SnapshotOperationsTotal.WithLabelValues("upload", observability.StatusLabel(err)).Inc()
		if err != nil {
			s.logger.Warn("snapshot upload failed; local snapshot kept",
				zap.String("key", obj.key), zap.Error(err))
			return
		}
	}
	s.logger.Info("uploaded snapshot", zap.String("path", path))
}

// Load replaces the store's contents with the snapshot at path. If either
// artifact is missing locally and a remote store is configured, both are
// downloaded first. Missing artifacts after that fail with ErrNotFound;
// unreadable or inconsistent ones with ErrCorruptSnapshot. On any error the
// store is left unchanged.
func (s *Store) Load(ctx context.Context, path string) (err error) {
	if path == "" {
		return errors.New("load: path is required")
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	defer func() {
		observability.SnapshotOperationsTotal.WithLabelValues("load", observability.StatusLabel(err)).Inc()
	}()

	present, err := artifactsPresent(path)
	if err != nil {
		return err
	}
	if !present && s.remote != nil {
		if err := s.download(ctx, path); err != nil {
			s.logger.Warn("snapshot download failed", zap.String("path", path), zap.Error(err))
		}
	}

	blob, err := readArtifact(IndexPath(path))
	if err != nil {
		return err
	}
	metaBytes, err := readArtifact(MetadataPath(path))
	if err != nil {
		return err
	}
	var meta snapshotMetadata
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return fmt.Errorf("%w: decode metadata: %w", ErrCorruptSnapshot, err)
	}
	if err := meta.validate(); err != nil {
		return err
	}
	idx, err := NewIndex(meta.IndexType, meta.EmbeddingDimension)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	if err := idx.UnmarshalBinary(blob); err != nil {
		_ = idx.Close()
		return fmt.Errorf("load index: %w", err)
	}
	if idx.Size() != len(meta.Documents) {
		_ = idx.Close()
		return fmt.Errorf("%w: index holds %d vectors for %d documents", ErrCorruptSnapshot, idx.Size(), len(meta.Documents))
	}

	s.mu.Lock()
	old := s.index
	s.index = idx
	s.indexType = idx.Type()
	s.dimension = meta.EmbeddingDimension
	s.documents = meta.Documents
	s.docIDs = meta.DocumentIDs
	s.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}

	observability.Documents.Set(float64(len(meta.Documents)))
	s.logger.Info("loaded snapshot",
		zap.String("path", path),
		zap.Int("documents", len(meta.Documents)),
		zap.Int("dimension", meta.EmbeddingDimension),
		zap.String("index_type", string(meta.IndexType)))
	return nil
}

func (m *snapshotMetadata) validate() error {
	if m.EmbeddingDimension <= 0 {
		return fmt.Errorf("%w: embedding dimension %d", ErrCorruptSnapshot, m.EmbeddingDimension)
	}
	if len(m.Documents) != len(m.DocumentIDs) {
		return fmt.Errorf("%w: %d documents but %d ids", ErrCorruptSnapshot, len(m.Documents), len(m.DocumentIDs))
	}
	for i, doc := range m.Documents {
		if doc == nil {
			return fmt.Errorf("%w: document %d is null", ErrCorruptSnapshot, i)
		}
		if doc.ID != m.DocumentIDs[i] {
			return fmt.Errorf("%w: document %d id %q does not match id list entry %q", ErrCorruptSnapshot, i, doc.ID, m.DocumentIDs[i])
		}
		if len(doc.Embedding) != m.EmbeddingDimension {
			return fmt.Errorf("%w: document %q has %d-dimensional embedding, expected %d", ErrCorruptSnapshot, doc.ID, len(doc.Embedding), m.EmbeddingDimension)
		}
		doc.RelevanceScore = nil
	}
	return nil
}

// download fetches both artifacts and writes them locally only when both were retrieved.
func (s *Store) download(ctx context.Context, path string) (err error) {
	defer func() {
		observability.SnapshotOperationsTotal.WithLabelValues("download", observability.StatusLabel(err)).Inc()
	}()
	base := filepath.Base(path)
	blob, err := s.remote.Get(ctx, base+IndexSuffix)
	if err != nil {
		return err
	}
	meta, err := s.remote.Get(ctx, base+MetadataSuffix)
	if err != nil {
		return err
	}
	if err := storage.WriteFileAtomic(IndexPath(path), blob); err != nil {
		return err
	}
	if err := storage.WriteFileAtomic(MetadataPath(path), meta); err != nil {
		return err
	}
	s.logger.Info("downloaded snapshot", zap.String("path", path))
	return nil
}

func artifactsPresent(path string) (bool, error) {
	for _, p := range []string{IndexPath(path), MetadataPath(path)} {
		ok, err := storage.FileExists(p)
		if err != nil {
			return false, fmt.Errorf("stat %s: %w", p, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func readArtifact(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
