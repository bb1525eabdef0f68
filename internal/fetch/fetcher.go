package fetch

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
)

// ErrSourceUnavailable means a search page could not be read, so the
// sequence cannot continue without losing its place.
var ErrSourceUnavailable = errors.New("source unavailable")

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// Stats counts the work a fetcher has done so far.
type Stats struct {
	Requests  int
	Documents int
}

type Options struct {
	PageIDs  []string
	Query    Query
	PageSize int
	// Resolve, when set, builds the query on first iteration instead of
	// using Query. Its error ends the sequence unchanged.
	Resolve func(ctx context.Context) (Query, error)
}

// Fetcher streams documents either by explicit ID or by a paginated query.
// A Fetcher is single use; its seen set lives for one Documents sequence.
type Fetcher struct {
	source   Source
	ids      []string
	query    Query
	resolve  func(ctx context.Context) (Query, error)
	pageSize int
	stats    Stats
}

func NewFetcher(source Source, opts Options) *Fetcher {
	size := opts.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	var ids []string
	for _, id := range opts.PageIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	return &Fetcher{
		source:   source,
		ids:      ids,
		query:    opts.Query,
		resolve:  opts.Resolve,
		pageSize: size,
	}
}

func (f *Fetcher) Stats() Stats {
	return f.stats
}

// ByID reports whether the fetcher runs in identifier mode.
func (f *Fetcher) ByID() bool {
	return len(f.ids) > 0
}

// Documents yields each document at most once. Errors end the sequence.
func (f *Fetcher) Documents(ctx context.Context) iter.Seq2[Document, error] {
	if f.ByID() {
		return f.byID(ctx)
	}
	return f.byQuery(ctx)
}

func (f *Fetcher) byID(ctx context.Context) iter.Seq2[Document, error] {
	return func(yield func(Document, error) bool) {
		seen := make(map[string]struct{}, len(f.ids))
		for _, id := range f.ids {
			if err := ctx.Err(); err != nil {
				yield(Document{}, err)
				return
			}
			if _, dup := seen[id]; dup {
				slog.InfoContext(ctx, "skipping repeated page id", "page_id", id)
				continue
			}
			seen[id] = struct{}{}

			f.stats.Requests++
			doc, err := f.source.GetPage(ctx, id)
			if err != nil {
				if ctx.Err() != nil {
					yield(Document{}, ctx.Err())
					return
				}
				slog.WarnContext(ctx, "failed to fetch page, skipping", "page_id", id, "error", err)
				continue
			}

			f.stats.Documents++
			if !yield(doc, nil) {
				return
			}
		}
	}
}

func (f *Fetcher) byQuery(ctx context.Context) iter.Seq2[Document, error] {
	return func(yield func(Document, error) bool) {
		if f.resolve != nil {
			q, err := f.resolve(ctx)
			if err != nil {
				yield(Document{}, err)
				return
			}
			f.query = q
		}

		cql := f.query.CQL()
		slog.InfoContext(ctx, "searching pages", "cql", cql, "page_size", f.pageSize)

		seen := make(map[string]struct{})
		start := 0
		for {
			if err := ctx.Err(); err != nil {
				yield(Document{}, err)
				return
			}

			f.stats.Requests++
			page, err := f.source.SearchPages(ctx, cql, start, f.pageSize)
			if err != nil {
				if ctx.Err() != nil {
					yield(Document{}, ctx.Err())
					return
				}
				yield(Document{}, fmt.Errorf("%w: search at offset %d: %v", ErrSourceUnavailable, start, err))
				return
			}

			if len(page) == 0 {
				slog.DebugContext(ctx, "pagination finished: empty page", "start", start)
				return
			}

			fresh := 0
			for _, doc := range page {
				if _, dup := seen[doc.ID]; dup {
					continue
				}
				seen[doc.ID] = struct{}{}
				fresh++

				f.stats.Documents++
				if !yield(doc, nil) {
					return
				}
			}

			if fresh == 0 {
				slog.WarnContext(ctx, "pagination stopped: page held only repeated ids", "start", start, "size", len(page))
				return
			}
			if len(page) < f.pageSize {
				slog.DebugContext(ctx, "pagination finished: short page", "start", start, "size", len(page))
				return
			}
			start += len(page)
		}
	}
}
