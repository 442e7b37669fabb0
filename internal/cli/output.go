// Package cli provides output and flag helpers for the eximrag command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hyperjump/eximrag/internal/embedding"
	"github.com/hyperjump/eximrag/internal/indexer"
	"github.com/hyperjump/eximrag/internal/models"
	"github.com/hyperjump/eximrag/internal/vector"
	"github.com/hyperjump/eximrag/pkg/utils"
)

// OutputFormat selects text or JSON output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text", "json" or "" (text).
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

const snippetLen = 240

// WriteSearchResults writes a search response in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms\n\n", response.Total, response.QueryTime)
	for i, doc := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "#%d | Score: %.4f | ID: %s\n", i+1, doc.Score(), doc.ID)
		if meta := formatMetadata(doc.Metadata); meta != "" {
			fmt.Fprintf(w, "%s\n", meta)
		}
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(doc.Content, snippetLen))
	}
	return nil
}

// StatsReport is the output of the stats command.
type StatsReport struct {
	Store        vector.Stats         `json:"store"`
	Cache        *embedding.CacheInfo `json:"embedding_cache,omitempty"`
	SnapshotPath string               `json:"snapshot_path"`
	SnapshotSize int64                `json:"snapshot_size_bytes"`
}

// WriteStats writes store statistics in the given format.
func WriteStats(w io.Writer, report *StatsReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	s := report.Store
	fmt.Fprintf(w, "Documents:        %d\n", s.TotalDocuments)
	fmt.Fprintf(w, "Index:            %s (%d vectors, dimension %d)\n", s.IndexType, s.IndexSize, s.EmbeddingDimension)
	fmt.Fprintf(w, "Remote sync:      %t\n", s.RemotePersistenceEnabled)
	fmt.Fprintf(w, "Snapshot:         %s (%s)\n", report.SnapshotPath, FormatBytes(report.SnapshotSize))
	if report.Cache != nil {
		fmt.Fprintf(w, "Embedding cache:  %d/%d entries, %d hits, %d misses\n",
			report.Cache.Size, report.Cache.Capacity, report.Cache.Hits, report.Cache.Misses)
	}
	return nil
}

// WriteIngestReport writes an ingestion summary in the given format.
func WriteIngestReport(w io.Writer, report *indexer.Report, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	fmt.Fprintf(w, "Ingested %d files (%d unchanged), %d chunks added, %d skipped\n",
		report.Files, report.Unchanged, report.Chunks, len(report.Skipped))
	for _, sk := range report.Skipped {
		fmt.Fprintf(w, "  skipped %s: %s %s\n", sk.ID, sk.Reason, sk.Detail)
	}
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func formatMetadata(meta map[string]interface{}) string {
	if len(meta) == 0 {
		return ""
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, meta[k])
	}
	return strings.Join(parts, " ")
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
