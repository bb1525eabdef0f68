package app_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"docsync/internal/config"
)

// fakeVector speaks the dash variant and records what it receives.
type fakeVector struct {
	mu            sync.Mutex
	insertStatus  int
	registered    int
	chunkIDs      []string
	correlationID []string
}

func (f *fakeVector) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /openapi.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"paths":{"/v1/vector-io/insert":{},"/v1/vector-dbs":{},"/v1/health":{}}}`))
	})
	mux.HandleFunc("POST /v1/vector-dbs", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.registered++
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /v1/vector-io/insert", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Chunks []struct {
				ChunkID string `json:"chunk_id"`
			} `json:"chunks"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		f.mu.Lock()
		for _, c := range body.Chunks {
			f.chunkIDs = append(f.chunkIDs, c.ChunkID)
		}
		f.correlationID = append(f.correlationID, r.Header.Get("X-Correlation-ID"))
		status := f.insertStatus
		f.mu.Unlock()

		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

type fakePage struct {
	ID    string
	Title string
	Body  string
}

// fakeConfluence serves a fixed set of pages and spaces.
func fakeConfluence(t *testing.T, pages []fakePage) *httptest.Server {
	t.Helper()

	render := func(p fakePage) string {
		body, _ := json.Marshal(p.Body)
		return fmt.Sprintf(`{"id":%q,"title":%q,"body":{"export_view":{"value":%s}},"space":{"key":"OPS"},"version":{"number":2}}`,
			p.ID, p.Title, body)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /wiki/rest/api/content/search", func(w http.ResponseWriter, r *http.Request) {
		var items []string
		if r.URL.Query().Get("start") == "0" {
			for _, p := range pages {
				items = append(items, render(p))
			}
		}
		fmt.Fprintf(w, `{"results":[%s]}`, strings.Join(items, ","))
	})
	mux.HandleFunc("GET /wiki/rest/api/content/{id}", func(w http.ResponseWriter, r *http.Request) {
		for _, p := range pages {
			if p.ID == r.PathValue("id") {
				w.Write([]byte(render(p)))
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("GET /wiki/rest/api/space", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[{"key":"OPS","name":"Operations"}]}`))
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func testConfig(vectorURL, confluenceURL string) *config.Config {
	return &config.Config{
		VectorBaseURL:          vectorURL,
		OpenAPIPath:            "/openapi.json",
		CollectionID:           "confluence",
		EmbeddingModelID:       "all-MiniLM-L6-v2",
		VectorDBProvider:       "sqlite-vec",
		ConfBaseURL:            confluenceURL + "/wiki/rest/api",
		ConfUser:               "bot@example.com",
		ConfAPIToken:           "token",
		SourcePageSize:         50,
		SinceHours:             24,
		ChunkTokens:            50,
		ChunkOverlap:           10,
		MaxChunksPerInsert:     128,
		ProbeTimeoutSeconds:    5,
		FetchTimeoutSeconds:    5,
		RegisterTimeoutSeconds: 5,
		InsertTimeoutSeconds:   5,
		HTTPAddr:               "127.0.0.1:0",
	}
}

func twoPages() []fakePage {
	return []fakePage{
		{ID: "100", Title: "Runbook", Body: "<h1>Runbook</h1><p>" + strings.Repeat("restart the service ", 30) + "</p>"},
		{ID: "101", Title: "FAQ", Body: "<p>Short answer.</p>"},
	}
}
