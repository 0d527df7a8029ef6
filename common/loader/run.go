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
	"sync"

	"github.com/ContextoAbierto/contexto-abierto/common"
	"github.com/ContextoAbierto/contexto-abierto/common/config"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Run tracks the card builds started by a single Load. The builds are
// independent from each other: a failed build only loses its own card.
type Run struct {
	ID string

	log          *logrus.Entry
	builder      CardBuilder
	grid         Container
	ordered      bool
	placeholders bool

	g errgroup.Group

	mu       sync.Mutex
	jobs     int
	appended int
	failures []error
	// Only used in ordered mode: results indexed by initiation order, and the
	// index of the first card not appended yet.
	results []result
	next    int
}

type result struct {
	card *common.Card
	done bool
}

func newRun(id string, log *logrus.Entry, builder CardBuilder, grid Container, cfg config.GridConfig, jobs int) *Run {
	r := &Run{
		ID:           id,
		log:          log,
		builder:      builder,
		grid:         grid,
		ordered:      cfg.FanOut == config.FanOutOrdered,
		placeholders: cfg.ErrorPlaceholders,
		jobs:         jobs,
	}

	if r.ordered {
		r.results = make([]result, jobs)
	}
	if cfg.MaxConcurrency > 0 {
		r.g.SetLimit(cfg.MaxConcurrency)
	}

	return r
}

// start runs the build of a card in its own goroutine. If a concurrency limit
// is set, blocks until a slot is available.
func (r *Run) start(ctx context.Context, job common.Job) {
	r.log.WithFields(logrus.Fields{
		"index":     job.Index,
		"reference": job.Reference,
	}).Debug("Starting card build")

	r.g.Go(func() error {
		card, err := r.builder.Build(ctx, job)
		r.complete(job, card, err)
		// Failures are collected by complete so one card never cancels or
		// hides another.
		return nil
	})
}

// complete records the outcome of a build and appends whatever can be
// appended to the grid.
func (r *Run) complete(job common.Job, card *common.Card, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		r.failures = append(r.failures, err)
		r.log.WithError(err).WithField("reference", job.Reference).Debug("Card build failed")

		card = nil
		if r.placeholders {
			card = &common.Card{Job: job, Err: err}
		}
	}

	if !r.ordered {
		r.append(card)
		return
	}

	// Append every card of the resolved prefix.
	r.results[job.Index] = result{card: card, done: true}
	for r.next < len(r.results) && r.results[r.next].done {
		r.append(r.results[r.next].card)
		r.results[r.next].card = nil
		r.next++
	}
}

// append must be called with r.mu held.
func (r *Run) append(card *common.Card) {
	if card == nil {
		return
	}

	if err := r.grid.Append(card); err != nil {
		r.failures = append(r.failures, err)
		return
	}
	r.appended++
}

// Wait blocks until every build of the run has completed and returns the
// failures, in completion order.
func (r *Run) Wait() []error {
	_ = r.g.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.log.WithFields(logrus.Fields{
		"cards":    r.jobs,
		"appended": r.appended,
		"failed":   len(r.failures),
	}).Info("News grid loaded")

	failures := make([]error, len(r.failures))
	copy(failures, r.failures)

	return failures
}

// Jobs returns the number of builds started by the run.
func (r *Run) Jobs() int {
	return r.jobs
}

// Appended returns the number of cards appended to the grid so far.
func (r *Run) Appended() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.appended
}

// LogFailures logs every failure returned by Wait. Card failures aren't
// reported anywhere else.
func LogFailures(log *logrus.Entry, failures []error) {
	for _, err := range failures {
		fields := logrus.Fields{}
		if rErr, ok := err.(*common.RetrievalError); ok {
			fields["reference"] = rErr.Reference
			fields["kind"] = rErr.Kind.String()
		}
		log.WithFields(fields).WithError(err).Error("Couldn't build card")
	}
}
