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
	"time"

	"github.com/ContextoAbierto/contexto-abierto/common"
)

const cardsSchema = `
-- Store the cards built while loading the news grid
CREATE TABLE IF NOT EXISTS cards (
	-- Article's reference, as written in the news index
	reference TEXT NOT NULL PRIMARY KEY,
	-- Section the article belongs to (espana, internacional or humor)
	section TEXT NOT NULL,
	-- Category within the section. Empty for humor.
	category TEXT NOT NULL,
	-- Card's title
	title TEXT NOT NULL,
	-- Card's summary
	summary TEXT NOT NULL,
	-- Date label, as displayed on the card
	date_label TEXT NOT NULL,
	-- Date parsed from the label. Can be NULL.
	date TIMESTAMP,
	-- Last time the card was built
	archived_at TIMESTAMP NOT NULL
);
`

const upsertCardSQL = `
	INSERT INTO cards (reference, section, category, title, summary, date_label, date, archived_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (reference) DO UPDATE SET
		section = excluded.section,
		category = excluded.category,
		title = excluded.title,
		summary = excluded.summary,
		date_label = excluded.date_label,
		date = excluded.date,
		archived_at = excluded.archived_at
`

const selectLatestCardsForSectionWithLimitSQL = `
	SELECT reference, section, category, title, summary, date_label, date, archived_at
	FROM cards WHERE section = $1 ORDER BY archived_at DESC, reference LIMIT $2
`

// ArchivedCard is a card as stored in the archive.
type ArchivedCard struct {
	Reference  string
	Section    common.Section
	Category   string
	Fields     common.ArticleFields
	Date       *time.Time
	ArchivedAt time.Time
}

type cardsStatements struct {
	upsertCardStmt                           *sql.Stmt
	selectLatestCardsForSectionWithLimitStmt *sql.Stmt
}

func (c *cardsStatements) prepare(db *sql.DB) (err error) {
	_, err = db.Exec(cardsSchema)
	if err != nil {
		return
	}
	if c.upsertCardStmt, err = db.Prepare(upsertCardSQL); err != nil {
		return
	}
	if c.selectLatestCardsForSectionWithLimitStmt, err = db.Prepare(selectLatestCardsForSectionWithLimitSQL); err != nil {
		return
	}
	return
}

func (c *cardsStatements) upsertCard(card *common.Card, archivedAt time.Time) (err error) {
	var date sql.NullTime

	// Optional field.
	date.Valid = card.Date != nil
	if date.Valid {
		date.Time = card.Date.UTC()
	}

	// Run the insertion, or the update if the card was already archived by a
	// previous load.
	_, err = c.upsertCardStmt.Exec(
		card.Reference, string(card.Section), card.Category, card.Fields.Title,
		card.Fields.Summary, card.Fields.DateLabel, date, archivedAt.UTC(),
	)

	return
}

func (c *cardsStatements) selectLatestCardsForSectionWithLimit(
	section common.Section, limit int,
) (cards []ArchivedCard, err error) {
	// Perform the query.
	rows, err := c.selectLatestCardsForSectionWithLimitStmt.Query(string(section), limit)
	if err != nil {
		return
	}
	defer rows.Close()

	// Initialise the slice.
	cards = []ArchivedCard{}

	var card ArchivedCard
	var sectionName string
	var date sql.NullTime
	for rows.Next() {
		if err = rows.Scan(
			&card.Reference, &sectionName, &card.Category, &card.Fields.Title,
			&card.Fields.Summary, &card.Fields.DateLabel, &date, &card.ArchivedAt,
		); err != nil {
			return
		}
		card.Section = common.Section(sectionName)

		// Fill the date if it's not NULL.
		card.Date = nil
		if date.Valid {
			// Re-allocating to be sure the referenced value won't change.
			d := date.Time
			card.Date = &d
		}

		cards = append(cards, card)
	}

	err = rows.Err()
	return
}
