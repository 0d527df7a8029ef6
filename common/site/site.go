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

package site

import (
	"github.com/ContextoAbierto/contexto-abierto/common/cards"
	"github.com/ContextoAbierto/contexto-abierto/common/config"
	"github.com/ContextoAbierto/contexto-abierto/common/database"
	"github.com/ContextoAbierto/contexto-abierto/common/fetch"
	"github.com/ContextoAbierto/contexto-abierto/common/grid"
	"github.com/ContextoAbierto/contexto-abierto/common/loader"

	"github.com/sirupsen/logrus"
)

// Site wires together everything needed to load the news grid of the site
// described by the configuration.
type Site struct {
	Loader  *loader.Loader
	Grid    *grid.Grid
	Fetcher *fetch.Fetcher
	// nil if no database is configured.
	DB *database.Database
}

// New opens the host page, the database if one is configured, and
// instantiates the loader.
// Returns an error if the host page doesn't have a grid container, or if the
// database couldn't be opened.
func New(cfg *config.Config) (s *Site, err error) {
	s = new(Site)

	if s.Fetcher, err = fetch.NewFetcher(cfg.Site, cfg.Fetch); err != nil {
		return nil, err
	}

	if s.Grid, err = grid.Open(cfg.Site.Page, cfg.Grid); err != nil {
		return nil, err
	}

	// Only hand the database over to the builder if there's one, so the
	// builder doesn't end up with a non-nil interface wrapping a nil pointer.
	var archive cards.Archive
	if cfg.Database.Enabled() {
		if s.DB, err = database.NewDatabase(cfg.Database); err != nil {
			return nil, err
		}
		archive = s.DB

		logrus.WithField("driver", cfg.Database.DriverName).Info("Archiving cards")
	}

	builder := cards.NewBuilder(
		s.Fetcher, cards.NewExtractor(cfg.Selectors, cfg.Date), cfg.Date, archive,
	)

	s.Loader = loader.NewLoader(s.Fetcher, builder, s.Grid, cfg.Site.Manifest, cfg.Grid)

	return s, nil
}

// Close releases the database, if any.
func (s *Site) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}
