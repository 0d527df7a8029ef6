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

package fetch

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/ContextoAbierto/contexto-abierto/common"
	"github.com/ContextoAbierto/contexto-abierto/common/config"

	"github.com/sirupsen/logrus"
)

// localBase is the base every reference is resolved against when the site is
// read from a local directory. Paths under it are served from that directory.
const localBase = "file:///"

// Fetcher retrieves the documents of the site: the news index and the
// articles it references.
type Fetcher struct {
	client    *http.Client
	base      *url.URL
	userAgent string
}

// NewFetcher instantiates a Fetcher from the site and fetch configurations.
// If the site has a base URL, documents are retrieved over HTTP, otherwise
// they're read from the site's root directory.
// Returns an error if the base URL can't be parsed.
func NewFetcher(site config.SiteConfig, cfg config.FetchConfig) (*Fetcher, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	baseURL := site.BaseURL
	if len(baseURL) == 0 {
		root, err := filepath.Abs(site.Root)
		if err != nil {
			return nil, err
		}
		transport.RegisterProtocol("file", http.NewFileTransport(http.Dir(root)))
		baseURL = localBase
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("Couldn't parse base URL: %s", err.Error())
	}

	return &Fetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		base:      base,
		userAgent: cfg.UserAgent,
	}, nil
}

// Resolve makes a reference absolute, using the site's base.
func (f *Fetcher) Resolve(ref string) (*url.URL, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}

	return f.base.ResolveReference(u), nil
}

// Fetch retrieves the document located at the given reference and returns
// its content.
// Returns a *common.RetrievalError if the request couldn't be performed, if
// the response isn't a success, or if its body couldn't be read.
func (f *Fetcher) Fetch(ctx context.Context, ref string) (body []byte, err error) {
	retrievalErr := func(kind common.RetrievalErrorKind, err error) error {
		return &common.RetrievalError{Kind: kind, Reference: ref, Err: err}
	}

	u, err := f.Resolve(ref)
	if err != nil {
		return nil, retrievalErr(common.RekFetch, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, retrievalErr(common.RekFetch, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	logrus.WithField("url", u.String()).Debug("Fetching document")

	res, err := f.client.Do(req)
	if err != nil {
		return nil, retrievalErr(common.RekFetch, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, retrievalErr(common.RekStatus, fmt.Errorf("Unexpected status %s", res.Status))
	}

	if body, err = ioutil.ReadAll(res.Body); err != nil {
		return nil, retrievalErr(common.RekRead, err)
	}

	return body, nil
}
