// Copyright 2018 Informo core team <core@informo.network>
//
// Licensed under the GNU Affero General Public License, Version 3.0
// (the "License"); you may not use this file except in compliance with the
// License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package grid

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"os"
	"sync"

	"github.com/ContextoAbierto/contexto-abierto/common"
	"github.com/ContextoAbierto/contexto-abierto/common/config"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ErrMissingContainer is returned when the host page doesn't contain any
// element matching the container's selector.
var ErrMissingContainer = errors.New("grid container not found in page")

var cardTemplate = template.Must(template.New("card").Parse(`
{{- if .Failed -}}
<article class="card {{.Tag}} card-error">
  <div class="card-content">
    <h2>{{.ErrorTitle}}</h2>
    <p>{{.ErrorMessage}}</p>
    <a href="{{.Reference}}" class="read-more">{{.ReadMore}}</a>
  </div>
</article>
{{- else -}}
<article class="card {{.Tag}}">
  <img src="{{.Image}}" alt="{{.Title}}">
  <div class="card-content">
    <span class="date">{{.DateLabel}}</span>
    <h2>{{.Title}}</h2>
    <p>{{.Summary}}</p>
    <a href="{{.Reference}}" class="read-more">{{.ReadMore}}</a>
  </div>
</article>
{{- end -}}
`))

// cardData is what the card template is executed with.
type cardData struct {
	Tag          string
	Reference    string
	Image        string
	Title        string
	DateLabel    string
	Summary      string
	ReadMore     string
	Failed       bool
	ErrorTitle   string
	ErrorMessage string
}

// Grid is the container of the cards, inside a host page. It's shared by
// every card build of a load, so all of its methods are safe for concurrent
// use.
type Grid struct {
	mu        sync.Mutex
	doc       *goquery.Document
	container *goquery.Selection
	cfg       config.GridConfig
	size      int
}

// New parses the host page and looks up the grid container in it, using the
// selector from the configuration. The first match is used.
// Returns ErrMissingContainer if the page doesn't have a container.
func New(page io.Reader, cfg config.GridConfig) (*Grid, error) {
	doc, err := goquery.NewDocumentFromReader(page)
	if err != nil {
		return nil, err
	}

	container := doc.Find(cfg.Container).First()
	if container.Length() == 0 {
		return nil, ErrMissingContainer
	}

	return &Grid{
		doc:       doc,
		container: container,
		cfg:       cfg,
	}, nil
}

// Open is New for a host page stored on the local disk.
func Open(path string, cfg config.GridConfig) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	g, err := New(f, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return g, nil
}

// Clear removes every child of the container.
func (g *Grid) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.container.Empty()
	g.size = 0
}

// Append renders a card and adds it after the last child of the container.
// A card carrying an error is rendered as a placeholder.
func (g *Grid) Append(card *common.Card) error {
	data := cardData{
		Tag:       card.Tag,
		Reference: card.Reference,
		Image:     g.cfg.PlaceholderImage,
		Title:     card.Fields.Title,
		DateLabel: card.Fields.DateLabel,
		Summary:   card.Fields.Summary,
		ReadMore:  g.cfg.ReadMore,
	}
	if card.Err != nil {
		data.Failed = true
		data.ErrorTitle = g.cfg.ErrorTitle
		data.ErrorMessage = g.cfg.ErrorMessage
	}

	var buf bytes.Buffer
	if err := cardTemplate.Execute(&buf, data); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.container.AppendHtml(buf.String())
	g.size++

	return nil
}

// Len returns the number of cards appended since the last Clear.
func (g *Grid) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.size
}

// Render writes the whole host page, with its current cards.
func (g *Grid) Render(w io.Writer) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	return html.Render(w, g.doc.Get(0))
}

// WriteFile renders the host page into the file at the given path.
func (g *Grid) WriteFile(path string) error {
	var buf bytes.Buffer
	if err := g.Render(&buf); err != nil {
		return err
	}

	return os.WriteFile(path, buf.Bytes(), 0644)
}
