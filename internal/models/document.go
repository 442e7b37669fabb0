// Package models defines core data structures for documents, queries, and search results.
package models

// Document is a unit of retrievable text. Embedding is present once the
// document has been embedded; RelevanceScore is only set on search results.
type Document struct {
	ID             string                 `json:"id"`
	Content        string                 `json:"content"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	Embedding      []float32              `json:"embedding,omitempty"`
	RelevanceScore *float64               `json:"relevance_score,omitempty"`
}

// DocumentInput is the input for ingesting a raw text document.
type DocumentInput struct {
	ID       string                 `json:"id,omitempty"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Clone returns a copy of d that shares no mutable state with it.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{
		ID:      d.ID,
		Content: d.Content,
	}
	if d.Metadata != nil {
		out.Metadata = make(map[string]interface{}, len(d.Metadata))
		for k, v := range d.Metadata {
			out.Metadata[k] = cloneValue(v)
		}
	}
	if d.Embedding != nil {
		out.Embedding = make([]float32, len(d.Embedding))
		copy(out.Embedding, d.Embedding)
	}
	if d.RelevanceScore != nil {
		score := *d.RelevanceScore
		out.RelevanceScore = &score
	}
	return out
}

// WithScore returns a copy of d annotated with the given relevance score.
func (d *Document) WithScore(score float64) *Document {
	out := d.Clone()
	out.RelevanceScore = &score
	return out
}

// Score returns the relevance score, or 0 when the document is not a search result.
func (d *Document) Score() float64 {
	if d == nil || d.RelevanceScore == nil {
		return 0
	}
	return *d.RelevanceScore
}

func cloneValue(v interface{}) interface{} {
	switch x := v.(type) {
	case []interface{}:
		out := make([]interface{}, len(x))
		for i := range x {
			out[i] = cloneValue(x[i])
		}
		return out
	case []string:
		out := make([]string, len(x))
		copy(out, x)
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, e := range x {
			out[k] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
