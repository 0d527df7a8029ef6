package server

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ContextoAbierto/contexto-abierto/common/config"
	"github.com/ContextoAbierto/contexto-abierto/common/site"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var siteFiles = map[string]string{
	"index.html": `<!DOCTYPE html>
<html lang="es"><head><title>Contexto Abierto</title></head>
<body><main><section class="news-grid"></section></main></body></html>`,
	"data/news_index.json": `{
  "espana": {"politica": ["noticias/espana/politica/a.html"]},
  "internacional": {"economia": ["noticias/internacional/economia/b.html", "noticias/internacional/economia/missing.html"]},
  "humor": ["noticias/humor/h.html"]
}`,
	"noticias/espana/politica/a.html":        `<h1>Política</h1><p>Resumen A</p><em>Artículo generado automáticamente el 17/10/2026</em>`,
	"noticias/internacional/economia/b.html": `<h1>Economía</h1><p>Resumen B</p>`,
	"noticias/humor/h.html":                  `<h1>Humor</h1><p>Resumen H</p><p><em>Artículo de humor generado automáticamente · 18-10-2026</em></p>`,
}

func newTestServer(t *testing.T, extra string) (*httptest.Server, string) {
	root := t.TempDir()
	for name, content := range siteFiles {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	cfg, err := config.Parse([]byte(fmt.Sprintf(`
site:
  root: %q
grid:
  fan_out: ordered
database:
  driver: sqlite3
  connection_data: ":memory:"
feeds:
  link: https://contextoabierto.example/
%s`, root, extra)))
	require.NoError(t, err)

	s, err := site.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	srv := NewServer(s, cfg)
	srv.Setup()

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts, root
}

func get(t *testing.T, url string) (*http.Response, string) {
	res, err := http.Get(url)
	require.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, string(body)
}

func TestServePage(t *testing.T) {
	ts, _ := newTestServer(t, "")

	for i := 0; i < 2; i++ {
		res, body := get(t, ts.URL+"/")
		require.Equal(t, http.StatusOK, res.StatusCode)
		assert.Contains(t, res.Header.Get("Content-Type"), "text/html")

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
		require.NoError(t, err)

		// The missing article is left out, and reloading doesn't duplicate
		// the cards.
		var titles []string
		doc.Find(".news-grid > article h2").Each(func(i int, s *goquery.Selection) {
			titles = append(titles, s.Text())
		})
		assert.Equal(t, []string{"Política", "Economía", "Humor"}, titles)

		assert.Equal(t, "17/10/2026", doc.Find(".news-grid > article.espana .date").Text())
	}
}

func TestServePageMethods(t *testing.T) {
	ts, _ := newTestServer(t, "")

	res, err := http.Head(ts.URL + "/")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Header.Get("Content-Type"), "text/html")

	for _, path := range []string{"/", "/index.html"} {
		res, err = http.Post(ts.URL+path, "text/plain", strings.NewReader(""))
		require.NoError(t, err)
		body, err := io.ReadAll(res.Body)
		res.Body.Close()
		require.NoError(t, err)

		assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode, path)
		assert.Equal(t, "GET, HEAD", res.Header.Get("Allow"))
		// The raw host page never leaks through the static files.
		assert.NotContains(t, string(body), "news-grid")
	}
}

func TestServeStaticFiles(t *testing.T) {
	ts, _ := newTestServer(t, "")

	res, body := get(t, ts.URL+"/noticias/humor/h.html")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "<h1>Humor</h1>")
}

func TestServeFeed(t *testing.T) {
	ts, _ := newTestServer(t, "")

	// Cards are archived while the page loads.
	res, _ := get(t, ts.URL+"/")
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, body := get(t, ts.URL+"/feeds/internacional")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Header.Get("Content-Type"), "text/xml")
	assert.Contains(t, body, "<rss")
	assert.Contains(t, body, "Economía")
	assert.Contains(t, body, "https://contextoabierto.example/noticias/internacional/economia/b.html")
	assert.NotContains(t, body, "missing.html")

	res, _ = get(t, ts.URL+"/feeds/deportes")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestServeAtomFeed(t *testing.T) {
	ts, _ := newTestServer(t, "  type: atom\n")

	get(t, ts.URL+"/")

	res, body := get(t, ts.URL+"/feeds/humor")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "<feed")
	assert.Contains(t, body, "Humor")
}

func TestServePageManifestFailure(t *testing.T) {
	ts, root := newTestServer(t, "")

	require.NoError(t, os.Remove(filepath.Join(root, "data", "news_index.json")))

	res, body := get(t, ts.URL+"/")
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.Equal(t, "Internal server error\n", body)
}

func TestServeWithoutDatabase(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte(siteFiles["index.html"]), 0644))

	cfg, err := config.Parse([]byte(fmt.Sprintf("site:\n  root: %q\nfeeds:\n  type: rss\n", root)))
	require.NoError(t, err)

	s, err := site.New(cfg)
	require.NoError(t, err)
	assert.Nil(t, s.DB)

	srv := NewServer(s, cfg)
	srv.Setup()
	ts := httptest.NewServer(srv)
	defer ts.Close()

	// No archive, no feeds: the path falls through to the static files.
	res, _ := get(t, ts.URL+"/feeds/humor")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}
