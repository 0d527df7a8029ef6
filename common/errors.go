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

package common

import (
	"fmt"
)

// RetrievalErrorKind tells at which step retrieving a document failed.
type RetrievalErrorKind int

const (
	// RekFetch is a network or transport failure.
	RekFetch RetrievalErrorKind = iota
	// RekStatus is a non-success response.
	RekStatus
	// RekRead is a failure while reading the response body.
	RekRead
	// RekParse is a JSON or HTML parsing failure.
	RekParse
)

var retrievalErrorKindNames = map[RetrievalErrorKind]string{
	RekFetch:  "fetch",
	RekStatus: "status",
	RekRead:   "read",
	RekParse:  "parse",
}

func (k RetrievalErrorKind) String() string {
	if name, ok := retrievalErrorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// RetrievalError is the only kind of error raised while loading the grid. It
// covers the news index and every article document.
type RetrievalError struct {
	Kind      RetrievalErrorKind
	Reference string
	Err       error
}

// Error implements error.
func (e *RetrievalError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("Unknown %s error on %s", e.Kind, e.Reference)
	}
	return fmt.Sprintf("%s error on %s: %s", e.Kind, e.Reference, e.Err.Error())
}

// Unwrap returns the underlying error.
func (e *RetrievalError) Unwrap() error {
	return e.Err
}
