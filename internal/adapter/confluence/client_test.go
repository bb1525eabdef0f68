package confluence_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsync/internal/adapter/confluence"
	"docsync/internal/fetch"
)

const pageJSON = `{
	"id": "42",
	"title": "Runbook",
	"body": {"export_view": {"value": "<h1>Runbook</h1><p>Restart it.</p>"}},
	"space": {"key": "OPS"},
	"metadata": {"labels": {"results": [{"name": "howto"}, {"name": "oncall"}]}},
	"version": {"number": 7},
	"history": {"lastUpdated": {"when": "2024-03-01T10:20:30.000Z"}}
}`

func newTestClient(t *testing.T, cfg confluence.Config, handler http.HandlerFunc) *confluence.Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	cfg.BaseURL = ts.URL + "/wiki/rest/api"
	return confluence.NewClient(ts.Client(), cfg)
}

func TestClient_GetPage(t *testing.T) {
	client := newTestClient(t, confluence.Config{User: "me@example.com", APIToken: "tok"}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wiki/rest/api/content/42", r.URL.Path)
		assert.Equal(t, confluence.Expand, r.URL.Query().Get("expand"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "me@example.com", user)
		assert.Equal(t, "tok", pass)

		w.Write([]byte(pageJSON))
	})

	doc, err := client.GetPage(context.Background(), "42")
	require.NoError(t, err)

	assert.Equal(t, "42", doc.ID)
	assert.Equal(t, "Runbook", doc.Title)
	assert.Equal(t, "<h1>Runbook</h1><p>Restart it.</p>", doc.Body)
	assert.Equal(t, 7, doc.Version)
	assert.Equal(t, "OPS", doc.SpaceKey)
	assert.Equal(t, []string{"howto", "oncall"}, doc.Labels)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC), doc.LastModified)
	assert.Equal(t, client.APIBase()+"/content/42", doc.URL)
}

func TestClient_GetPage_Defaults(t *testing.T) {
	client := newTestClient(t, confluence.Config{}, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"9","title":"Bare","history":{"lastUpdated":{"when":"yesterday"}}}`))
	})

	doc, err := client.GetPage(context.Background(), "9")
	require.NoError(t, err)

	assert.Equal(t, 1, doc.Version)
	assert.True(t, doc.LastModified.IsZero())
	assert.Empty(t, doc.Body)
	assert.Equal(t, []string{}, doc.Labels)
}

func TestClient_GetPage_Error(t *testing.T) {
	client := newTestClient(t, confluence.Config{}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"no such page"}`))
	})

	_, err := client.GetPage(context.Background(), "404")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "confluence api error: 404")
}

func TestClient_BearerAuth(t *testing.T) {
	client := newTestClient(t, confluence.Config{User: "u", APIToken: "t", AccessToken: "oauth"}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer oauth", r.Header.Get("Authorization"))
		w.Write([]byte(`{"results":[]}`))
	})

	_, err := client.SearchPages(context.Background(), "type=page", 0, 50)
	require.NoError(t, err)
}

func TestClient_SearchPages(t *testing.T) {
	client := newTestClient(t, confluence.Config{}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wiki/rest/api/content/search", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, `type=page and (space="OPS")`, q.Get("cql"))
		assert.Equal(t, "50", q.Get("start"))
		assert.Equal(t, "25", q.Get("limit"))
		assert.Equal(t, confluence.Expand, q.Get("expand"))

		fmt.Fprintf(w, `{"results":[%s,{"id":"43","title":"Second","version":{"number":2}}]}`, pageJSON)
	})

	docs, err := client.SearchPages(context.Background(), `type=page and (space="OPS")`, 50, 25)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "42", docs[0].ID)
	assert.Equal(t, "43", docs[1].ID)
	assert.Equal(t, 2, docs[1].Version)
}

func TestClient_ImplementsSource(t *testing.T) {
	var _ fetch.Source = confluence.NewClient(http.DefaultClient, confluence.Config{CloudID: "abc"})
}

func TestConfig_APIBase(t *testing.T) {
	assert.Equal(t,
		"https://api.atlassian.com/ex/confluence/cloud-1/wiki/rest/api",
		confluence.Config{CloudID: "cloud-1"}.APIBase())
	assert.Equal(t,
		"https://example.atlassian.net/wiki/rest/api",
		confluence.Config{CloudID: "ignored", BaseURL: "https://example.atlassian.net/wiki/rest/api/"}.APIBase())
}

func TestClient_ResolveSpaceKey(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, confluence.Config{}, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/wiki/rest/api/space", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"results":[{"key":"ENG","name":"Engineering"},{"key":"OPS","name":"Operations"}]}`))
	})

	key, err := client.ResolveSpaceKey(context.Background(), "operations")
	require.NoError(t, err)
	assert.Equal(t, "OPS", key)

	// Second lookup is served from the cache.
	key, err = client.ResolveSpaceKey(context.Background(), "Engineering")
	require.NoError(t, err)
	assert.Equal(t, "ENG", key)
	assert.Equal(t, int32(1), calls.Load())

	_, err = client.ResolveSpaceKey(context.Background(), "Marketing")
	assert.ErrorIs(t, err, confluence.ErrSpaceNotFound)
}

func TestClient_ResolveSpaceKey_Paginates(t *testing.T) {
	client := newTestClient(t, confluence.Config{}, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("start") == "0" {
			w.Write([]byte(`{"results":[`))
			for i := 0; i < 50; i++ {
				if i > 0 {
					w.Write([]byte(","))
				}
				fmt.Fprintf(w, `{"key":"K%d","name":"Space %d"}`, i, i)
			}
			w.Write([]byte(`]}`))
			return
		}
		assert.Equal(t, "50", r.URL.Query().Get("start"))
		w.Write([]byte(`{"results":[{"key":"LAST","name":"Last Space"}]}`))
	})

	keys, err := client.ResolveSpaceKeys(context.Background(), []string{"Space 3", " ", "last space"})
	require.NoError(t, err)
	assert.Equal(t, []string{"K3", "LAST"}, keys)
}

func TestClient_RateLimitHonoursContext(t *testing.T) {
	client := newTestClient(t, confluence.Config{RatePerSecond: 0.001}, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[]}`))
	})

	// The first request spends the only token.
	_, err := client.SearchPages(context.Background(), "type=page", 0, 50)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.SearchPages(ctx, "type=page", 0, 50)
	assert.Error(t, err)
}
