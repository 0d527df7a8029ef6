package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("site:\n  root: public\n"))
	require.NoError(t, err)

	assert.Equal(t, DefaultManifest, cfg.Site.Manifest)
	assert.Equal(t, filepath.Join("public", "index.html"), cfg.Site.Page)
	assert.Equal(t, cfg.Site.Page, cfg.Site.Output)
	assert.Equal(t, ".news-grid", cfg.Grid.Container)
	assert.Equal(t, FanOutDetached, cfg.Grid.FanOut)
	assert.Equal(t, "h1", cfg.Selectors.Title)
	assert.Equal(t, "p", cfg.Selectors.Summary)
	assert.Equal(t, "em", cfg.Selectors.Date)
	assert.Equal(t, DefaultDatePrefix, cfg.Date.Prefix)
	assert.Equal(t, []string{"2/1/2006", "2-1-2006", "2006-1-2"}, cfg.Date.Layouts)
	assert.Zero(t, cfg.Fetch.Timeout)
	assert.False(t, cfg.Database.Enabled())
	assert.Nil(t, cfg.FeedsConfig)
}

func TestParseFull(t *testing.T) {
	cfg, err := Parse([]byte(`
site:
  base_url: https://contextoabierto.example/
  manifest: data/index.json
  page: templates/index.html
  output: out/index.html
grid:
  fan_out: ordered
  max_concurrency: 4
  qualify_tags: true
  error_placeholders: true
selectors:
  title: article h2
date:
  prefix: ""
  layouts: ["{DAY_NUM} de {MONTH_LONG} de {YEAR_LONG}"]
fetch:
  timeout: 10s
database:
  driver: sqlite3
  connection_data: cards.db
feeds:
  type: atom
  nb_items: 5
`))
	require.NoError(t, err)

	assert.Equal(t, "templates/index.html", cfg.Site.Page)
	assert.Equal(t, "out/index.html", cfg.Site.Output)
	assert.Equal(t, FanOutOrdered, cfg.Grid.FanOut)
	assert.Equal(t, 4, cfg.Grid.MaxConcurrency)
	assert.True(t, cfg.Grid.QualifyTags)
	assert.True(t, cfg.Grid.ErrorPlaceholders)
	assert.Equal(t, "article h2", cfg.Selectors.Title)
	assert.Equal(t, "p", cfg.Selectors.Summary)
	assert.Equal(t, "", cfg.Date.Prefix)
	assert.Equal(t, []string{"2 de January de 2006"}, cfg.Date.Layouts)
	assert.Equal(t, 10*time.Second, cfg.Fetch.Timeout)
	assert.True(t, cfg.Database.Enabled())

	require.NotNil(t, cfg.FeedsConfig)
	assert.Equal(t, FeedTypeAtom, cfg.FeedsConfig.Type)
	assert.Equal(t, 5, cfg.FeedsConfig.NbItems)
	assert.Equal(t, DefaultFeedPort, cfg.FeedsConfig.Port)
}

func TestParseInvalid(t *testing.T) {
	for name, doc := range map[string]string{
		"no site":         "grid:\n  fan_out: ordered\n",
		"fan out":         "site:\n  root: public\ngrid:\n  fan_out: sorted\n",
		"scheme":          "site:\n  base_url: ftp://example.com\n",
		"driver":          "site:\n  root: public\ndatabase:\n  driver: mysql\n",
		"feed type":       "site:\n  root: public\nfeeds:\n  type: json\n",
		"concurrency":     "site:\n  root: public\ngrid:\n  max_concurrency: -1\n",
		"not yaml at all": "site: [",
	} {
		_, err := Parse([]byte(doc))
		assert.Error(t, err, name)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("site:\n  root: public\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "public", cfg.Site.Root)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseLabel(t *testing.T) {
	cfg, err := Parse([]byte("site:\n  root: public\n"))
	require.NoError(t, err)

	for label, want := range map[string]time.Time{
		"18/10/2026": time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC),
		"2024-01-01": time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		"Artículo de humor generado automáticamente · 05-03-2024": time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
	} {
		got, ok := cfg.Date.ParseLabel(label)
		require.True(t, ok, label)
		assert.True(t, want.Equal(got), "%s: got %s", label, got)
	}

	for _, label := range []string{"", "   ", "ayer", "Publicado hace poco"} {
		_, ok := cfg.Date.ParseLabel(label)
		assert.False(t, ok, label)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg, err := Parse([]byte("site:\n  root: public\nfeeds:\n  type: rss\n"))
	require.NoError(t, err)

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"CONTEXTO_DATABASE_DRIVER=sqlite3\nCONTEXTO_DATABASE_URL=from-file.db\n",
	), 0644))

	// godotenv sets the file's variables in the process environment.
	t.Cleanup(func() { os.Unsetenv(EnvDatabaseDriver) })

	// Variables set in the environment win over the file.
	t.Setenv(EnvDatabaseURL, "from-env.db")
	t.Setenv(EnvFeedsPort, "9090")

	require.NoError(t, ApplyEnv(cfg, envFile))
	assert.Equal(t, "sqlite3", cfg.Database.DriverName)
	assert.Equal(t, "from-env.db", cfg.Database.ConnectionData)
	assert.Equal(t, 9090, cfg.FeedsConfig.Port)

	t.Setenv(EnvDatabaseDriver, "mysql")
	assert.Error(t, ApplyEnv(cfg, envFile))
}

func TestApplyEnvMissingFile(t *testing.T) {
	cfg, err := Parse([]byte("site:\n  root: public\n"))
	require.NoError(t, err)

	t.Setenv(EnvBaseURL, "https://contextoabierto.example/")
	require.NoError(t, ApplyEnv(cfg, filepath.Join(t.TempDir(), ".env")))
	assert.Equal(t, "https://contextoabierto.example/", cfg.Site.BaseURL)
}

func TestApplyEnvMalformedFile(t *testing.T) {
	cfg, err := Parse([]byte("site:\n  root: public\n"))
	require.NoError(t, err)

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("CONTEXTO_DATABASE_URL='unterminated\n"), 0644))

	assert.Error(t, ApplyEnv(cfg, envFile))
}

func TestApplyEnvSiteRoot(t *testing.T) {
	cfg, err := Parse([]byte("site:\n  root: public\n"))
	require.NoError(t, err)

	t.Setenv(EnvSiteRoot, "/srv/site")
	require.NoError(t, ApplyEnv(cfg, filepath.Join(t.TempDir(), ".env")))
	assert.Equal(t, "/srv/site", cfg.Site.Root)
	assert.Equal(t, filepath.Join("/srv/site", "index.html"), cfg.Site.Page)
	assert.Equal(t, filepath.Join("/srv/site", "index.html"), cfg.Site.Output)

	// Paths set in the configuration file are kept.
	cfg, err = Parse([]byte("site:\n  root: public\n  page: templates/index.html\n  output: dist/index.html\n"))
	require.NoError(t, err)
	require.NoError(t, ApplyEnv(cfg, filepath.Join(t.TempDir(), ".env")))
	assert.Equal(t, "/srv/site", cfg.Site.Root)
	assert.Equal(t, "templates/index.html", cfg.Site.Page)
	assert.Equal(t, "dist/index.html", cfg.Site.Output)

	// An explicit page still drives the default output.
	cfg, err = Parse([]byte("site:\n  root: public\n  page: templates/index.html\n"))
	require.NoError(t, err)
	require.NoError(t, ApplyEnv(cfg, filepath.Join(t.TempDir(), ".env")))
	assert.Equal(t, "templates/index.html", cfg.Site.Output)
}
