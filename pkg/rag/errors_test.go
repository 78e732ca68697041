// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rag

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchError_TruncatesQueryByRunes(t *testing.T) {
	// 60 three-byte runes: a byte-based cut at 50 would land mid-rune
	query := strings.Repeat("日", 60)
	err := NewSearchError("embedder", "failed to embed query", query, nil)

	msg := err.Error()
	assert.True(t, utf8.ValidString(msg))
	assert.Contains(t, msg, strings.Repeat("日", 50)+"...")
	assert.NotContains(t, msg, strings.Repeat("日", 51))
}

func TestSearchError_ShortQueryKeptWhole(t *testing.T) {
	err := NewSearchError("vector_db", "similarity search failed", "sky color", nil)
	assert.Contains(t, err.Error(), `"sky color"`)
	assert.NotContains(t, err.Error(), "...")
}

func TestSearchError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewSearchError("vector_db", "similarity search failed", "q", cause)
	require.ErrorIs(t, err, cause)
}
