package site

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ContextoAbierto/contexto-abierto/common/config"
	"github.com/ContextoAbierto/contexto-abierto/common/grid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, name, content string) {
	path := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestNewMissingContainer(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.html", `<html><body><main></main></body></html>`)

	cfg, err := config.Parse([]byte(fmt.Sprintf("site:\n  root: %q\n", root)))
	require.NoError(t, err)

	_, err = New(cfg)
	assert.True(t, errors.Is(err, grid.ErrMissingContainer))
}

func TestNewLoadsLocalSite(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.html", `<html><body><div class="news-grid"></div></body></html>`)
	writeFile(t, root, "data/news_index.json", `{"espana": {}, "internacional": {}, "humor": ["noticias/humor/a.html"]}`)
	writeFile(t, root, "noticias/humor/a.html", `<h1>Chiste</h1>`)

	cfg, err := config.Parse([]byte(fmt.Sprintf("site:\n  root: %q\n", root)))
	require.NoError(t, err)

	s, err := New(cfg)
	require.NoError(t, err)
	defer s.Close()
	assert.Nil(t, s.DB)

	run, err := s.Loader.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, run.Wait())
	assert.Equal(t, 1, s.Grid.Len())
}
