package vector

import (
	"encoding/json"
	"fmt"

	"github.com/go-openapi/strfmt"
	"github.com/weaviate/weaviate/entities/models"
)

// Collection describes the destination namespace chunks are written to.
type Collection struct {
	ID             string
	EmbeddingModel string
	Provider       string
	Vectorizer     string
}

// dash variant

type dashRegisterRequest struct {
	VectorDBID     string         `json:"vector_db_id"`
	ProviderID     string         `json:"provider_id"`
	EmbeddingModel string         `json:"embedding_model"`
	Config         map[string]any `json:"config"`
}

type dashChunk struct {
	ChunkID  string   `json:"chunk_id"`
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

type dashInsertRequest struct {
	VectorDBID       string      `json:"vector_db_id"`
	EmbeddingModelID string      `json:"embedding_model_id"`
	Chunks           []dashChunk `json:"chunks"`
}

// underscore variant

type underscoreRegisterRequest struct {
	CollectionID     string            `json:"collection_id"`
	EmbeddingModelID string            `json:"embedding_model_id"`
	Metadata         map[string]string `json:"metadata"`
}

type underscoreDocument struct {
	DocumentID string   `json:"document_id"`
	Text       string   `json:"text"`
	Metadata   Metadata `json:"metadata"`
}

type underscoreInsertRequest struct {
	CollectionID string               `json:"collection_id"`
	Documents    []underscoreDocument `json:"documents"`
}

// weaviate variant

type weaviateBatchRequest struct {
	Objects []*models.Object `json:"objects"`
}

// EncodeRegister builds the register body for the contract's variant.
func EncodeRegister(v Variant, col Collection) ([]byte, error) {
	switch v {
	case VariantDash:
		return json.Marshal(dashRegisterRequest{
			VectorDBID:     col.ID,
			ProviderID:     col.Provider,
			EmbeddingModel: col.EmbeddingModel,
			Config:         map[string]any{"kvstore": map[string]string{"type": "sqlite"}},
		})
	case VariantUnderscore:
		return json.Marshal(underscoreRegisterRequest{
			CollectionID:     col.ID,
			EmbeddingModelID: col.EmbeddingModel,
			Metadata:         map[string]string{"source": "confluence"},
		})
	case VariantWeaviate:
		return json.Marshal(weaviateClass(col.ID, col.Vectorizer))
	default:
		return nil, fmt.Errorf("unsupported variant %q", v)
	}
}

// EncodeInsert builds the insert body for the contract's variant.
func EncodeInsert(v Variant, col Collection, chunks []Chunk) ([]byte, error) {
	switch v {
	case VariantDash:
		req := dashInsertRequest{
			VectorDBID:       col.ID,
			EmbeddingModelID: col.EmbeddingModel,
			Chunks:           make([]dashChunk, 0, len(chunks)),
		}
		for _, c := range chunks {
			md := wireMetadata(c)
			md.DocumentID = c.ID
			req.Chunks = append(req.Chunks, dashChunk{ChunkID: c.ID, Content: c.Content, Metadata: md})
		}
		return json.Marshal(req)
	case VariantUnderscore:
		req := underscoreInsertRequest{
			CollectionID: col.ID,
			Documents:    make([]underscoreDocument, 0, len(chunks)),
		}
		for _, c := range chunks {
			md := wireMetadata(c)
			md.DocumentID = ""
			req.Documents = append(req.Documents, underscoreDocument{DocumentID: c.ID, Text: c.Content, Metadata: md})
		}
		return json.Marshal(req)
	case VariantWeaviate:
		class := ClassName(col.ID)
		req := weaviateBatchRequest{Objects: make([]*models.Object, 0, len(chunks))}
		for _, c := range chunks {
			req.Objects = append(req.Objects, &models.Object{
				Class:      class,
				ID:         strfmt.UUID(ObjectID(c.ID).String()),
				Properties: weaviateProperties(c),
			})
		}
		return json.Marshal(req)
	default:
		return nil, fmt.Errorf("unsupported variant %q", v)
	}
}

// wireMetadata copies chunk metadata with labels always encoded as a list.
func wireMetadata(c Chunk) Metadata {
	md := c.Metadata
	if md.Labels == nil {
		md.Labels = []string{}
	}
	return md
}
