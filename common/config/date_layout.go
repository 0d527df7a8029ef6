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

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/goodsign/monday"
)

// patterns contains the list of known patterns used in date layouts. The name
// of each pattern is written without the curly brackets, which are added in the
// replaceLayoutPatterns function.
var patterns = map[string]string{
	"DAY_LONG":    "Monday",
	"DAY_SHORT":   "Mon",
	"DAY_NUM":     "2",
	"MONTH_LONG":  "January",
	"MONTH_SHORT": "Jan",
	"MONTH_NUM":   "1",
	"YEAR_LONG":   "2006",
	"YEAR_SHORT":  "06",
	"HOURS":       "15",
	"MINUTES":     "04",
	"SECONDS":     "05",
	"ZONE_OFFSET": "-0700",
	"ZONE_ABBREV": "MST",
}

// dateLocale is the language the articles are written in.
const dateLocale = monday.LocaleEsES

// replaceLayoutPatterns replaces all known {PATTERN}s in the date layout (aka
// date format) with the correct values so it can be read by time.Parse().
// Using patterns (which we replace at startup) means the user doesn't have to
// use January 2nd, 2006 as reference, and doesn't mix English words with the
// Spanish dates written in the articles: day and month names are translated by
// the "monday" library when parsing.
// Doesn't return any error, and replaces every occurrence of every {PATTERN} in
// the layout string.
func replaceLayoutPatterns(layout *string) {
	// Iterate over each pattern and its replacement string.
	for pattern, replacement := range patterns {
		// We call strings.Replace() with n = -1 so it replaces every occurrence
		// of the {PATTERN}, and not a limited number of these.
		*layout = strings.Replace(*layout, fmt.Sprintf("{%s}", pattern), replacement, -1)
	}
}

// layouts converts the configured layouts into Go layouts, falling back to
// DefaultDateLayouts when none is configured.
func layouts(configured []string) []string {
	if len(configured) == 0 {
		configured = DefaultDateLayouts
	}

	converted := make([]string, len(configured))
	for i, l := range configured {
		replaceLayoutPatterns(&l)
		converted[i] = l
	}

	return converted
}

// ParseLabel tries to read a date out of a card's date label. The whole label
// is tried first, then its last word, which is where the article generators
// put the date after a free-form sentence.
// Returns false if no layout matched.
func (dc DateConfig) ParseLabel(label string) (time.Time, bool) {
	label = strings.TrimSpace(label)
	if len(label) == 0 {
		return time.Time{}, false
	}

	candidates := []string{label}
	if words := strings.Fields(label); len(words) > 1 {
		candidates = append(candidates, words[len(words)-1])
	}

	for _, candidate := range candidates {
		for _, layout := range dc.Layouts {
			if t, err := monday.Parse(layout, candidate, dateLocale); err == nil {
				return t, true
			}
		}
	}

	return time.Time{}, false
}
