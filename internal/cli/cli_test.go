package cli_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsync/internal/cli"
	"docsync/internal/worker"
)

const searchResult = `{"results":[{"id":"7","title":"Oncall","body":{"export_view":{"value":"<p>Page the secondary after ten minutes.</p>"}},"version":{"number":4}}]}`

func vectorServer(t *testing.T, insertStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /openapi.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"paths":{"/v1/vector_io/collections":{},"/v1/vector_io/documents":{}}}`))
	})
	mux.HandleFunc("POST /v1/vector_io/collections", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	mux.HandleFunc("POST /v1/vector_io/documents", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(insertStatus)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func confluenceServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		switch r.URL.Path {
		case "/wiki/rest/api/content/search":
			w.Write([]byte(searchResult))
		case "/wiki/rest/api/content/7":
			w.Write([]byte(`{"id":"7","title":"Oncall","body":{"export_view":{"value":"<p>Direct fetch.</p>"}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func setEnv(t *testing.T, vectorURL, confluenceURL string) {
	t.Helper()
	t.Setenv("VECTOR_API_BASE_URL", vectorURL)
	t.Setenv("CONF_BASE_URL", confluenceURL+"/wiki/rest/api")
	t.Setenv("CONF_USER", "bot@example.com")
	t.Setenv("CONF_API_TOKEN", "token")
	t.Setenv("DB_ENABLED", "false")
	t.Setenv("NSQD_HOST", "")
	t.Setenv("PUSHGATEWAY_URL", "")
	t.Setenv("SENTRY_DSN", "")
	t.Setenv("LOG_LEVEL", "ERROR")
}

func run(ctx context.Context, args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := cli.Execute(ctx, args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersion_SkipsConfig(t *testing.T) {
	t.Setenv("CHUNK_TOKENS", "0")

	code, out, _ := run(context.Background(), "version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "dev\n", out)
}

func TestInvalidConfig(t *testing.T) {
	t.Setenv("CHUNK_TOKENS", "0")

	code, _, errOut := run(context.Background(), "probe")
	assert.Equal(t, worker.ExitConfig, code)
	assert.Contains(t, errOut, "CHUNK_TOKENS")
}

func TestProbe(t *testing.T) {
	vs := vectorServer(t, http.StatusOK)
	setEnv(t, vs.URL, "http://unused")

	code, out, _ := run(context.Background(), "probe")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "variant:  underscore")
	assert.Contains(t, out, vs.URL+"/v1/vector_io/documents")
}

func TestProbe_NoCapability(t *testing.T) {
	vs := httptest.NewServer(http.NotFoundHandler())
	defer vs.Close()
	setEnv(t, vs.URL, "http://unused")

	code, _, errOut := run(context.Background(), "probe")
	assert.Equal(t, worker.ExitCapabilityNotFound, code)
	assert.Contains(t, errOut, "capability not found")
}

func TestSync(t *testing.T) {
	vs := vectorServer(t, http.StatusCreated)
	cs := confluenceServer(t, http.StatusOK)
	setEnv(t, vs.URL, cs.URL)

	code, out, errOut := run(context.Background(), "sync", "--since-hours", "6")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "state=done")
	assert.Contains(t, out, "variant=underscore")
	assert.Contains(t, out, "documents=1")
	assert.Contains(t, out, "chunks_upserted=1")
}

func TestSync_PageIDFlag(t *testing.T) {
	vs := vectorServer(t, http.StatusOK)
	cs := confluenceServer(t, http.StatusOK)
	setEnv(t, vs.URL, cs.URL)

	code, out, errOut := run(context.Background(), "sync", "--page-id", "7,8")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "documents=1")
	assert.Contains(t, out, "pages_fetched=2")
}

func TestSync_ExitCodes(t *testing.T) {
	t.Run("insert route missing", func(t *testing.T) {
		vs := vectorServer(t, http.StatusNotFound)
		cs := confluenceServer(t, http.StatusOK)
		setEnv(t, vs.URL, cs.URL)

		code, out, _ := run(context.Background(), "sync")
		assert.Equal(t, worker.ExitInsertRouteNotFound, code)
		assert.Contains(t, out, "state=aborted")
	})

	t.Run("source unavailable", func(t *testing.T) {
		vs := vectorServer(t, http.StatusOK)
		cs := confluenceServer(t, http.StatusInternalServerError)
		setEnv(t, vs.URL, cs.URL)

		code, _, _ := run(context.Background(), "sync")
		assert.Equal(t, worker.ExitSourceUnavailable, code)
	})

	t.Run("cancelled", func(t *testing.T) {
		vs := vectorServer(t, http.StatusOK)
		cs := confluenceServer(t, http.StatusOK)
		setEnv(t, vs.URL, cs.URL)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		code, _, _ := run(ctx, "sync")
		assert.Equal(t, worker.ExitCancelled, code)
	})

	t.Run("missing credentials", func(t *testing.T) {
		vs := vectorServer(t, http.StatusOK)
		setEnv(t, vs.URL, "http://unused")
		t.Setenv("CONF_API_TOKEN", "")

		code, _, errOut := run(context.Background(), "sync")
		assert.Equal(t, worker.ExitConfig, code)
		assert.Contains(t, errOut, "CONF_API_TOKEN")
	})
}

func TestSync_ConfigCheckedBeforeDatabase(t *testing.T) {
	setEnv(t, "http://vector", "http://unused")
	t.Setenv("CONF_USER", "")
	t.Setenv("DB_ENABLED", "true")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", "1")
	t.Setenv("BOOTSTRAP_RETRY_ATTEMPTS", "1")
	t.Setenv("BOOTSTRAP_RETRY_DELAY_SECONDS", "0")

	code, out, errOut := run(context.Background(), "sync")
	assert.Equal(t, worker.ExitConfig, code)
	assert.Contains(t, errOut, "CONF_USER")
	assert.NotContains(t, errOut, "ping db")
	assert.Empty(t, out)
}

func TestJobs_VectorConfigCheckedBeforeDatabase(t *testing.T) {
	setEnv(t, "", "http://unused")
	t.Setenv("LLAMA_BASE_URL", "")
	t.Setenv("DB_ENABLED", "true")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", "1")
	t.Setenv("BOOTSTRAP_RETRY_ATTEMPTS", "1")
	t.Setenv("BOOTSTRAP_RETRY_DELAY_SECONDS", "0")

	code, _, errOut := run(context.Background(), "jobs", "list")
	assert.Equal(t, worker.ExitConfig, code)
	assert.Contains(t, errOut, "VECTOR_API_BASE_URL")
	assert.NotContains(t, errOut, "ping db")
}

func TestJobs_RequireDatabase(t *testing.T) {
	setEnv(t, "http://vector", "http://unused")

	code, _, errOut := run(context.Background(), "jobs", "list")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "DB_ENABLED")
}

func TestJobsRetry_Arguments(t *testing.T) {
	setEnv(t, "http://vector", "http://unused")

	code, _, errOut := run(context.Background(), "jobs", "retry", "abc", "--all")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "exactly one")

	code, _, _ = run(context.Background(), "jobs", "retry")
	assert.Equal(t, 1, code)
}
