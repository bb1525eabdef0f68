package vector

// Chunk is the unit of ingestion sent to the destination.
type Chunk struct {
	ID       string
	Content  string
	Metadata Metadata
}

// Metadata travels with every chunk regardless of variant.
type Metadata struct {
	Source       string   `json:"source"`
	PageID       string   `json:"page_id"`
	Title        string   `json:"title"`
	SpaceKey     string   `json:"space_key"`
	Labels       []string `json:"labels"`
	Version      int      `json:"version"`
	LastModified string   `json:"last_modified"`
	ChunkIndex   int      `json:"chunk_index"`
	ContentHash  string   `json:"content_hash"`
	URL          string   `json:"url"`

	// DocumentID is only sent by variants that expect it inside metadata.
	DocumentID string `json:"document_id,omitempty"`
}
