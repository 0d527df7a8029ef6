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
	"bytes"
	"context"

	"github.com/ContextoAbierto/contexto-abierto/common"
	"github.com/ContextoAbierto/contexto-abierto/common/config"

	"github.com/sirupsen/logrus"
)

// Fetcher retrieves the content of an article document.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// Archive stores the cards once they're built.
type Archive interface {
	SaveCard(card *common.Card) error
}

// Builder builds the card of a single article: it retrieves the article,
// extracts its fields, and archives the result if an archive is configured.
type Builder struct {
	fetcher   Fetcher
	extractor *Extractor
	dates     config.DateConfig
	archive   Archive
}

// NewBuilder instantiates a Builder. The archive is optional and can be nil.
func NewBuilder(fetcher Fetcher, extractor *Extractor, dates config.DateConfig, archive Archive) *Builder {
	return &Builder{
		fetcher:   fetcher,
		extractor: extractor,
		dates:     dates,
		archive:   archive,
	}
}

// Build retrieves the article referenced by the job and builds its card.
// Returns a *common.RetrievalError if the article couldn't be retrieved or
// parsed. Failing to archive the card is only logged, the card is still
// returned.
func (b *Builder) Build(ctx context.Context, job common.Job) (*common.Card, error) {
	log := logrus.WithFields(logrus.Fields{
		"reference": job.Reference,
		"section":   job.Section,
	})

	body, err := b.fetcher.Fetch(ctx, job.Reference)
	if err != nil {
		return nil, err
	}

	fields, err := b.extractor.Extract(bytes.NewReader(body))
	if err != nil {
		return nil, &common.RetrievalError{Kind: common.RekParse, Reference: job.Reference, Err: err}
	}

	card := &common.Card{
		Job:    job,
		Fields: fields,
	}
	if date, ok := b.dates.ParseLabel(fields.DateLabel); ok {
		card.Date = &date
	}

	log.WithField("title", fields.Title).Debug("Built card")

	if b.archive != nil {
		if err = b.archive.SaveCard(card); err != nil {
			log.WithError(err).Warn("Couldn't archive card")
		}
	}

	return card, nil
}
