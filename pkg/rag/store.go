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
	"context"
	"fmt"
	"log/slog"
)

// Store is the training ingestion facade: extract, split, embed, index.
type Store struct {
	splitter *Splitter
	indexer  *Indexer
}

// NewStore creates a store over the given splitter and indexer.
func NewStore(splitter *Splitter, indexer *Indexer) *Store {
	return &Store{
		splitter: splitter,
		indexer:  indexer,
	}
}

// CreateTraining ingests a document under a new category. The category
// must not already exist. Returns the number of fragments indexed.
//
// Nothing is written when extraction or chunking fails; embedding is
// all-or-nothing inside the indexer.
func (s *Store) CreateTraining(ctx context.Context, category string, data []byte, format string) (int, error) {
	if category == "" {
		return 0, fmt.Errorf("category name is required")
	}

	exists, err := s.indexer.Catalog().Exists(ctx, category)
	if err != nil {
		return 0, NewIndexError(category, "create", "failed to check category", err)
	}
	if exists {
		return 0, fmt.Errorf("%w: %q", ErrDuplicateCategory, category)
	}

	return s.ingest(ctx, category, data, format)
}

// UpdateTraining replaces the fragments of an existing category with a
// freshly ingested document. The incoming document is extracted and split
// before the old fragments are removed, so a bad document leaves the
// existing training intact.
func (s *Store) UpdateTraining(ctx context.Context, category string, data []byte, format string) (int, error) {
	exists, err := s.indexer.Catalog().Exists(ctx, category)
	if err != nil {
		return 0, NewIndexError(category, "update", "failed to check category", err)
	}
	if !exists {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}

	fragments, err := s.prepare(category, data, format)
	if err != nil {
		return 0, err
	}

	if err := s.indexer.Delete(ctx, category); err != nil {
		return 0, err
	}

	if err := s.indexer.Insert(ctx, fragments); err != nil {
		return 0, err
	}

	slog.Info("Updated training", "category", category, "fragments", len(fragments))
	return len(fragments), nil
}

// DeleteTraining removes a category and all its fragments.
func (s *Store) DeleteTraining(ctx context.Context, category string) error {
	return s.indexer.Delete(ctx, category)
}

// ListTrainings returns the known categories, sorted.
func (s *Store) ListTrainings(ctx context.Context) ([]string, error) {
	return s.indexer.Categories(ctx)
}

func (s *Store) ingest(ctx context.Context, category string, data []byte, format string) (int, error) {
	fragments, err := s.prepare(category, data, format)
	if err != nil {
		return 0, err
	}

	if err := s.indexer.Insert(ctx, fragments); err != nil {
		return 0, err
	}

	slog.Info("Created training", "category", category, "fragments", len(fragments))
	return len(fragments), nil
}

// prepare extracts and splits a document into category-tagged fragments
// without touching the index.
func (s *Store) prepare(category string, data []byte, format string) ([]Fragment, error) {
	text, err := ExtractText(data, format)
	if err != nil {
		return nil, err
	}

	chunks := s.splitter.Split(text)
	// A training must carry at least one fragment: the catalog derives
	// categories from indexed fragments, so a zero-fragment "success"
	// would create a training that does not exist.
	if len(chunks) == 0 {
		return nil, fmt.Errorf("document for category %q contains no extractable text", category)
	}

	fragments := make([]Fragment, 0, len(chunks))
	for _, chunk := range chunks {
		fragments = append(fragments, Fragment{
			Content:  chunk,
			Category: category,
		})
	}
	return fragments, nil
}
