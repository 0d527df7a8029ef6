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

package loader

import (
	"context"

	"github.com/ContextoAbierto/contexto-abierto/common"
	"github.com/ContextoAbierto/contexto-abierto/common/config"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Fetcher retrieves the content of a document of the site.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// CardBuilder builds the card of a single article.
type CardBuilder interface {
	Build(ctx context.Context, job common.Job) (*common.Card, error)
}

// Container is the grid the cards are appended to.
type Container interface {
	Clear()
	Append(card *common.Card) error
}

// Loader populates the grid from the news index: it retrieves the index,
// clears the grid, and starts building a card for every article referenced
// in the index.
type Loader struct {
	fetcher  Fetcher
	builder  CardBuilder
	grid     Container
	manifest string
	cfg      config.GridConfig
}

// NewLoader instantiates a Loader. manifest is the reference of the news
// index, resolved by the fetcher like any other reference.
func NewLoader(
	fetcher Fetcher, builder CardBuilder, grid Container, manifest string, cfg config.GridConfig,
) *Loader {
	return &Loader{
		fetcher:  fetcher,
		builder:  builder,
		grid:     grid,
		manifest: manifest,
		cfg:      cfg,
	}
}

// Load retrieves and parses the news index, clears the grid, then starts one
// card build per reference, in the order of the index, without waiting for
// any of them to complete. The returned Run tracks these builds.
// Returns a *common.RetrievalError if the index couldn't be retrieved or
// parsed, in which case the grid is left untouched and no build is started.
func (l *Loader) Load(ctx context.Context) (*Run, error) {
	id := uuid.New().String()
	log := logrus.WithField("run_id", id)

	body, err := l.fetcher.Fetch(ctx, l.manifest)
	if err != nil {
		return nil, err
	}

	m, err := common.ParseManifest(body)
	if err != nil {
		return nil, &common.RetrievalError{Kind: common.RekParse, Reference: l.manifest, Err: err}
	}

	l.grid.Clear()

	jobs := m.Jobs(l.cfg.QualifyTags)

	log.WithFields(logrus.Fields{
		"cards":   len(jobs),
		"fan_out": l.cfg.FanOut,
	}).Info("Loading news grid")

	run := newRun(id, log, l.builder, l.grid, l.cfg, len(jobs))
	for _, job := range jobs {
		run.start(ctx, job)
	}

	return run, nil
}
