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

package cards

import (
	"io"
	"strings"

	"github.com/ContextoAbierto/contexto-abierto/common"
	"github.com/ContextoAbierto/contexto-abierto/common/config"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Extractor reads the fields of a card out of an article document, using the
// CSS selectors from the configuration file.
type Extractor struct {
	selectors    config.CSSSelectors
	defaultTitle string
	datePrefix   string
}

// NewExtractor instantiates an Extractor.
func NewExtractor(selectors config.CSSSelectors, date config.DateConfig) *Extractor {
	return &Extractor{
		selectors:    selectors,
		defaultTitle: config.DefaultTitle,
		datePrefix:   date.Prefix,
	}
}

// Extract parses an HTML document and extracts the card's fields from it.
// Each field is looked up independently and falls back to its default value
// when no element matches or when the element doesn't contain any visible
// text.
// Returns an error if the document couldn't be read.
func (e *Extractor) Extract(r io.Reader) (fields common.ArticleFields, err error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return
	}

	return e.ExtractDocument(doc), nil
}

// ExtractDocument extracts the card's fields from an already parsed document.
func (e *Extractor) ExtractDocument(doc *goquery.Document) common.ArticleFields {
	fields := common.ArticleFields{
		Title: e.defaultTitle,
	}

	if title, ok := firstText(doc, e.selectors.Title); ok {
		fields.Title = title
	}
	if summary, ok := firstText(doc, e.selectors.Summary); ok {
		fields.Summary = summary
	}
	if date, ok := firstText(doc, e.selectors.Date); ok {
		fields.DateLabel = strings.TrimPrefix(date, e.datePrefix)
	}

	return fields
}

// firstText returns the rendered text of the first element matching the
// selector. Returns false if there's no match or if the text is empty.
func firstText(doc *goquery.Document, selector string) (string, bool) {
	nodes := doc.Find(selector).Nodes
	if len(nodes) == 0 {
		return "", false
	}

	text := renderedText(nodes[0])
	return text, len(text) > 0
}

// renderedText returns the text a reader would see for the given node: the
// content of non-rendered elements is skipped, <br> elements start a new line,
// and every run of whitespace is collapsed into a single space.
func renderedText(n *html.Node) string {
	var lines []string
	var line strings.Builder

	flush := func() {
		if text := strings.Join(strings.Fields(line.String()), " "); len(text) > 0 {
			lines = append(lines, text)
		}
		line.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			line.WriteString(n.Data)
			return
		case html.CommentNode:
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Template, atom.Noscript:
				return
			case atom.Br:
				flush()
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	flush()

	return strings.Join(lines, "\n")
}
