package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Caia-Tech/sitemap-extractor/internal/fetch"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryFetcher map[string]string

func (m memoryFetcher) Fetch(ctx context.Context, source string) (string, error) {
	doc, ok := m[source]
	if !ok {
		return "", &fetch.Error{Source: source, Kind: fetch.KindFetchFailed, Attempts: 3, Err: errors.New("HTTP 403")}
	}
	return doc, nil
}

func testApp() *fiber.App {
	docs := memoryFetcher{
		"https://a.test/sitemap.xml": `<sitemapindex><sitemap><loc>https://a.test/pages.xml</loc></sitemap>` +
			`<sitemap><loc>https://a.test/blocked.xml</loc></sitemap></sitemapindex>`,
		"https://a.test/pages.xml":  `<urlset><url><loc>https://a.test/one</loc></url><url><loc>https://a.test/two</loc></url></urlset>`,
		"https://a.test/broken.xml": `<urlset><url>`,
		"https://a.test/empty.xml":  `<urlset></urlset>`,
	}
	return NewApp(NewHandlers(docs, 20), "")
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	return resp.StatusCode, decoded
}

func TestHealthCheck(t *testing.T) {
	status, body := doJSON(t, testApp(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "sitemap-extractor", body["service"])
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		check      func(t *testing.T, body map[string]any)
	}{
		{
			name:       "index with a blocked child",
			body:       `{"source":"https://a.test/sitemap.xml"}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.EqualValues(t, 2, body["count"])
				assert.Equal(t, []any{"https://a.test/one", "https://a.test/two"}, body["urls"])
				warnings := body["warnings"].([]any)
				require.Len(t, warnings, 1)
				w := warnings[0].(map[string]any)
				assert.Equal(t, "fetch_failed", w["kind"])
				assert.Equal(t, "https://a.test/blocked.xml", w["source"])
				assert.NotEmpty(t, body["run_id"])
			},
		},
		{
			name:       "missing source",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "local path rejected",
			body:       `{"source":"/etc/passwd"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid json",
			body:       `{"source":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed sitemap",
			body:       `{"source":"https://a.test/broken.xml"}`,
			wantStatus: http.StatusUnprocessableEntity,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "https://a.test/broken.xml", body["source"])
			},
		},
		{
			name:       "malformed sitemap skipped",
			body:       `{"source":"https://a.test/broken.xml","skip_malformed":true}`,
			wantStatus: http.StatusNotFound,
			check: func(t *testing.T, body map[string]any) {
				assert.EqualValues(t, 0, body["count"])
				require.Len(t, body["warnings"], 1)
			},
		},
		{
			name:       "no urls",
			body:       `{"source":"https://a.test/empty.xml"}`,
			wantStatus: http.StatusNotFound,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, []any{}, body["urls"])
			},
		},
	}

	app := testApp()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doJSON(t, app, http.MethodPost, "/api/v1/resolve", tt.body)
			assert.Equal(t, tt.wantStatus, status)
			if tt.check != nil {
				tt.check(t, body)
			}
		})
	}
}

func TestValidateSource(t *testing.T) {
	assert.NoError(t, validateSource("https://a.test/sitemap.xml"))
	assert.Error(t, validateSource(""))
	assert.Error(t, validateSource("sitemap.xml"))
	assert.Error(t, validateSource("https://"))
}

func TestResolve_NestedLocalSourcesNotRead(t *testing.T) {
	private := filepath.Join(t.TempDir(), "private.xml")
	require.NoError(t, os.WriteFile(private,
		[]byte(`<urlset><url><loc>https://internal.test/secret</loc></url></urlset>`), 0644))

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sitemap.xml":
			fmt.Fprintf(w, `<sitemapindex><sitemap><loc>%s</loc></sitemap><sitemap><loc>file://%s</loc></sitemap>`+
				`<sitemap><loc>%s/pages.xml</loc></sitemap></sitemapindex>`, private, private, server.URL)
		case "/pages.xml":
			fmt.Fprint(w, `<urlset><url><loc>https://a.test/public</loc></url></urlset>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	cfg := fetch.DefaultConfig()
	cfg.RequestsPerSecond = 0
	app := NewApp(NewHandlers(fetch.NewFetcher(cfg, nil, nil), 20), "")

	status, body := doJSON(t, app, http.MethodPost, "/api/v1/resolve",
		fmt.Sprintf(`{"source":"%s/sitemap.xml"}`, server.URL))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"https://a.test/public"}, body["urls"])

	warnings := body["warnings"].([]any)
	require.Len(t, warnings, 2)
	for _, raw := range warnings {
		w := raw.(map[string]any)
		assert.Equal(t, "fetch_failed", w["kind"])
		assert.Contains(t, w["source"], private)
	}
}

func TestRemoteOnly(t *testing.T) {
	guard := remoteOnly{next: memoryFetcher{"https://a.test/x.xml": "<urlset/>", "/tmp/x.xml": "<urlset/>"}}

	doc, err := guard.Fetch(context.Background(), "https://a.test/x.xml")
	require.NoError(t, err)
	assert.Equal(t, "<urlset/>", doc)

	for _, source := range []string{"/tmp/x.xml", "file:///tmp/x.xml", "x.xml"} {
		_, err := guard.Fetch(context.Background(), source)
		assert.True(t, fetch.IsKind(err, fetch.KindFetchFailed), source)
		assert.ErrorIs(t, err, errLocalSource)
	}
}
