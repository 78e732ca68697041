// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rag

import (
	"fmt"

	"github.com/kadirpekel/corpus/pkg/config"
)

// defaultSeparators are tried in order when looking for a cut point:
// paragraph break, line break, sentence end, word boundary.
var defaultSeparators = []string{"\n\n", "\n", ". ", " "}

// Splitter cuts text into overlapping chunks at natural boundaries.
//
// Chunks are contiguous substrings of the input: each chunk starts exactly
// Overlap runes before the previous chunk's end, so the tail of one chunk
// equals the head of the next verbatim.
type Splitter struct {
	size       int
	overlap    int
	separators []string
}

// NewSplitter creates a splitter from configuration.
func NewSplitter(cfg config.SplitterConfig) (*Splitter, error) {
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", cfg.ChunkSize)
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("overlap must be in [0, chunk size), got %d with chunk size %d", cfg.Overlap, cfg.ChunkSize)
	}

	return &Splitter{
		size:       cfg.ChunkSize,
		overlap:    cfg.Overlap,
		separators: defaultSeparators,
	}, nil
}

// Split cuts text into chunks. Empty input yields no chunks; non-empty
// input yields at least one. Sizes are measured in runes so multi-byte
// text is never cut mid-character.
func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= s.size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for {
		if len(runes)-start <= s.size {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		cut := s.findCut(runes, start, start+s.size)
		chunks = append(chunks, string(runes[start:cut]))
		start = cut - s.overlap
	}

	return chunks
}

// findCut picks the cut position in (start, end]. It prefers the latest
// separator occurrence inside the budget; the cut must land after
// start+overlap so the next chunk makes progress.
func (s *Splitter) findCut(runes []rune, start, end int) int {
	min := start + s.overlap + 1

	for _, sep := range s.separators {
		sepRunes := []rune(sep)
		for i := end; i >= min+len(sepRunes)-1 && i >= len(sepRunes); i-- {
			if i < min {
				break
			}
			if runesEqual(runes[i-len(sepRunes):i], sepRunes) {
				return i
			}
		}
	}

	return end
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
