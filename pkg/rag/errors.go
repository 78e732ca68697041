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
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned when a document format is not one
	// of pdf, docx or txt.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrDuplicateCategory is returned when creating a training whose
	// category already exists in the catalog.
	ErrDuplicateCategory = errors.New("category already exists")

	// ErrUnknownCategory is returned when an operation names a category
	// that is absent from the catalog.
	ErrUnknownCategory = errors.New("unknown category")

	// ErrNotConfigured is returned when the chat pipeline runs without a
	// selected model or category.
	ErrNotConfigured = errors.New("session not configured")

	// ErrEmptyQuery is returned when a chat query is empty or whitespace.
	ErrEmptyQuery = errors.New("query is empty")
)

// ExtractionError represents an error during content extraction.
type ExtractionError struct {
	Extractor string // Extractor name (pdf, docx, txt)
	Message   string // Error message
	Err       error  // Underlying error
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	msg := fmt.Sprintf("[%s] extraction failed: %s", e.Extractor, e.Message)
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// NewExtractionError creates a new ExtractionError.
func NewExtractionError(extractor, message string, err error) *ExtractionError {
	return &ExtractionError{
		Extractor: extractor,
		Message:   message,
		Err:       err,
	}
}

// IndexError represents an error during indexing operations.
type IndexError struct {
	Category  string // Category being indexed
	Operation string // Operation (e.g., "embed", "upsert", "delete")
	Message   string // Error message
	Err       error  // Underlying error
}

// Error implements the error interface.
func (e *IndexError) Error() string {
	msg := fmt.Sprintf("index %s failed for category %q: %s", e.Operation, e.Category, e.Message)
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *IndexError) Unwrap() error {
	return e.Err
}

// NewIndexError creates a new IndexError.
func NewIndexError(category, operation, message string, err error) *IndexError {
	return &IndexError{
		Category:  category,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// SearchError represents an error during search operations.
type SearchError struct {
	Component string // Component that failed (e.g., "embedder", "vector_db")
	Message   string // Error message
	Query     string // Query that caused the error
	Err       error  // Underlying error
}

// Error implements the error interface.
func (e *SearchError) Error() string {
	msg := fmt.Sprintf("[%s] search failed: %s", e.Component, e.Message)
	if e.Query != "" {
		query := e.Query
		// truncate by runes so multi-byte characters are never split
		if runes := []rune(query); len(runes) > 50 {
			query = string(runes[:50]) + "..."
		}
		msg += fmt.Sprintf(" (query: %q)", query)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *SearchError) Unwrap() error {
	return e.Err
}

// NewSearchError creates a new SearchError.
func NewSearchError(component, message, query string, err error) *SearchError {
	return &SearchError{
		Component: component,
		Message:   message,
		Query:     query,
		Err:       err,
	}
}
