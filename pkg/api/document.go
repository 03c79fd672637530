package api

const (
	// MetadataFilename is the metadata key carrying the original upload name.
	// It is the only key the service itself reads; callers may attach
	// arbitrary additional keys.
	MetadataFilename = "filename"

	// UnknownFilename is reported when a document's metadata carries no
	// filename entry.
	UnknownFilename = "unknown"

	// DefaultQueryResults is the fixed result count for similarity queries.
	DefaultQueryResults = 5
)

// Document is the unit of stored content: identity, text, metadata, and
// embedding. All fields are immutable after ingestion; re-ingesting the
// same text produces a new document under a new ID.
type Document struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`

	// Embedding holds the document's vector representation. Every document
	// in a store has the same embedding length. Listing responses omit it.
	Embedding []float32 `json:"embedding,omitempty"`
}

// Filename returns the document's filename metadata, or UnknownFilename
// when the key is absent or empty.
func (d *Document) Filename() string {
	if name := d.Metadata[MetadataFilename]; name != "" {
		return name
	}
	return UnknownFilename
}

// QueryResult is one entry of a similarity query response, ordered from
// closest to farthest. Score is a distance: smaller means more similar.
type QueryResult struct {
	Filename string  `json:"filename"`
	Score    float64 `json:"score"`
	Text     string  `json:"text"`
}

// QueryResponse wraps the ordered results of a similarity query.
type QueryResponse struct {
	Results []QueryResult `json:"results"`
}

// ListEntry is one entry of a full-corpus listing.
type ListEntry struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

// ListResponse wraps a full-corpus listing.
type ListResponse struct {
	Documents []ListEntry `json:"documents"`
}

// IngestResponse reports a successful ingestion.
type IngestResponse struct {
	Status string   `json:"status"`
	IDs    []string `json:"ids"`
}
