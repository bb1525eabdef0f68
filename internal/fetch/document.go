package fetch

import (
	"context"
	"time"
)

// Document is one revision of a source page as returned by the source.
type Document struct {
	ID           string
	Title        string
	Body         string
	Version      int
	LastModified time.Time
	SpaceKey     string
	Labels       []string
	URL          string
}

// Source is the paginated page store documents are read from.
type Source interface {
	SearchPages(ctx context.Context, query string, start, limit int) ([]Document, error)
	GetPage(ctx context.Context, id string) (Document, error)
}
