package confluence

import (
	"time"

	"docsync/internal/fetch"
)

// page is the subset of the content resource we read.
type page struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  struct {
		ExportView struct {
			Value string `json:"value"`
		} `json:"export_view"`
	} `json:"body"`
	Space struct {
		Key string `json:"key"`
	} `json:"space"`
	Metadata struct {
		Labels struct {
			Results []struct {
				Name string `json:"name"`
			} `json:"results"`
		} `json:"labels"`
	} `json:"metadata"`
	Version struct {
		Number int `json:"number"`
	} `json:"version"`
	History struct {
		LastUpdated struct {
			When string `json:"when"`
		} `json:"lastUpdated"`
	} `json:"history"`
}

func (p page) document(canonicalURL string) fetch.Document {
	version := p.Version.Number
	if version <= 0 {
		version = 1
	}

	labels := []string{}
	for _, l := range p.Metadata.Labels.Results {
		if l.Name != "" {
			labels = append(labels, l.Name)
		}
	}

	return fetch.Document{
		ID:           p.ID,
		Title:        p.Title,
		Body:         p.Body.ExportView.Value,
		Version:      version,
		LastModified: parseWhen(p.History.LastUpdated.When),
		SpaceKey:     p.Space.Key,
		Labels:       labels,
		URL:          canonicalURL,
	}
}

// parseWhen accepts the timestamp layouts the API has been seen to return.
func parseWhen(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.000Z0700"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
