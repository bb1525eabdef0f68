package worker

import (
	"time"

	"docsync/internal/fetch"
	"docsync/internal/text"
	"docsync/internal/vector"
)

const sourceName = "confluence"

// BuildChunks cuts normalized page text into identified chunks. The same
// revision and text always produce the same chunk IDs.
func BuildChunks(doc fetch.Document, body string, windowTokens, overlapTokens int) []vector.Chunk {
	spans := text.Chunk(body, windowTokens, overlapTokens)
	if len(spans) == 0 {
		return nil
	}

	var lastModified string
	if !doc.LastModified.IsZero() {
		lastModified = doc.LastModified.UTC().Format(time.RFC3339)
	}

	labels := doc.Labels
	if labels == nil {
		labels = []string{}
	}

	chunks := make([]vector.Chunk, 0, len(spans))
	for _, s := range spans {
		hash := text.ContentHash(s.Text)
		chunks = append(chunks, vector.Chunk{
			ID:      text.ChunkID(doc.ID, doc.Version, s.Ordinal, hash),
			Content: s.Text,
			Metadata: vector.Metadata{
				Source:       sourceName,
				PageID:       doc.ID,
				Title:        doc.Title,
				SpaceKey:     doc.SpaceKey,
				Labels:       labels,
				Version:      doc.Version,
				LastModified: lastModified,
				ChunkIndex:   s.Ordinal,
				ContentHash:  hash,
				URL:          doc.URL,
			},
		})
	}
	return chunks
}
