package vector

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/weaviate/weaviate/entities/models"
)

// chunkProperties is the Weaviate property layout for stored chunks.
func chunkProperties() []*models.Property {
	return []*models.Property{
		{Name: "content", DataType: []string{"text"}},
		{Name: "chunkId", DataType: []string{"text"}},
		{Name: "source", DataType: []string{"text"}},
		{Name: "pageId", DataType: []string{"text"}},
		{Name: "title", DataType: []string{"text"}},
		{Name: "spaceKey", DataType: []string{"text"}},
		{Name: "labels", DataType: []string{"text[]"}},
		{Name: "version", DataType: []string{"int"}},
		{Name: "lastModified", DataType: []string{"text"}},
		{Name: "chunkIndex", DataType: []string{"int"}},
		{Name: "contentHash", DataType: []string{"text"}},
		{Name: "url", DataType: []string{"text"}},
	}
}

// ClassName turns a collection id into a valid Weaviate class name.
func ClassName(collectionID string) string {
	var b strings.Builder
	for _, r := range collectionID {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	name := b.String()
	if name == "" {
		return "Chunk"
	}
	if !unicode.IsLetter(rune(name[0])) {
		name = "C" + name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// ObjectID maps a chunk id onto a stable UUID, since Weaviate only accepts
// UUID object ids.
func ObjectID(chunkID string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("docsync:"+chunkID))
}

func weaviateClass(collectionID, vectorizer string) *models.Class {
	if vectorizer == "" {
		vectorizer = "none"
	}
	return &models.Class{
		Class:       ClassName(collectionID),
		Description: "A chunk of a synchronized page",
		Vectorizer:  vectorizer,
		Properties:  chunkProperties(),
	}
}

func weaviateProperties(c Chunk) map[string]interface{} {
	labels := c.Metadata.Labels
	if labels == nil {
		labels = []string{}
	}
	return map[string]interface{}{
		"content":      c.Content,
		"chunkId":      c.ID,
		"source":       c.Metadata.Source,
		"pageId":       c.Metadata.PageID,
		"title":        c.Metadata.Title,
		"spaceKey":     c.Metadata.SpaceKey,
		"labels":       labels,
		"version":      c.Metadata.Version,
		"lastModified": c.Metadata.LastModified,
		"chunkIndex":   c.Metadata.ChunkIndex,
		"contentHash":  c.Metadata.ContentHash,
		"url":          c.Metadata.URL,
	}
}
