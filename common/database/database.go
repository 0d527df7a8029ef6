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

package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ContextoAbierto/contexto-abierto/common"
	"github.com/ContextoAbierto/contexto-abierto/common/config"

	// PostgreSQL driver
	_ "github.com/lib/pq"
	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

// Database represents the card archive.
type Database struct {
	db    *sql.DB
	cards cardsStatements
	// Returns the current time, replaced in tests.
	now func() time.Time
}

// NewDatabase creates a new instance of the Database structure by opening a
// PostgreSQL or SQLite database, according to the configuration, and
// preparing the different statements used.
// Returns an error if there was an issue opening the database or preparing the
// different statements.
func NewDatabase(cfg config.DatabaseConfig) (database *Database, err error) {
	database = &Database{now: time.Now}

	if database.db, err = sql.Open(cfg.DriverName, cfg.ConnectionData); err != nil {
		return nil, err
	}

	// SQLite only supports one writer at a time, and every connection to an
	// in-memory database opens a different database.
	if cfg.DriverName == "sqlite3" {
		database.db.SetMaxOpenConns(1)
	}

	if err = database.cards.prepare(database.db); err != nil {
		database.db.Close()
		return nil, err
	}

	return
}

// SaveCard saves a card into the database, replacing the previous version of
// the same article if there's one. Placeholder cards are never saved.
// Returns an error if the insertion failed.
func (d *Database) SaveCard(card *common.Card) error {
	if card.Err != nil {
		return fmt.Errorf("Refusing to archive the placeholder card of %s", card.Reference)
	}

	return d.cards.upsertCard(card, d.now())
}

// RetrieveLatestCardsForSection retrieves from the database the n most
// recently built cards of a given section.
// Returns an error if the retrieval failed.
func (d *Database) RetrieveLatestCardsForSection(section common.Section, n int) ([]ArchivedCard, error) {
	return d.cards.selectLatestCardsForSectionWithLimit(section, n)
}

// Close closes the database.
func (d *Database) Close() error {
	return d.db.Close()
}
