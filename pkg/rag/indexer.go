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
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kadirpekel/corpus/pkg/embedders"
	"github.com/kadirpekel/corpus/pkg/vector"
)

// Fragment is one chunk of a training document, tagged with its category.
type Fragment struct {
	Content  string
	Category string
}

// Indexer embeds fragments and stores them in a single vector collection,
// scoping every operation by the category metadata value.
type Indexer struct {
	embedder   embedders.Embedder
	provider   vector.Provider
	catalog    *Catalog
	collection string
}

// NewIndexer creates an indexer over the given embedder and vector provider.
func NewIndexer(embedder embedders.Embedder, provider vector.Provider, collection string) *Indexer {
	return &Indexer{
		embedder:   embedder,
		provider:   provider,
		catalog:    NewCatalog(provider, collection),
		collection: collection,
	}
}

// Catalog returns the category catalog backed by this index.
func (ix *Indexer) Catalog() *Catalog {
	return ix.catalog
}

// Insert embeds and stores fragments. All fragments are embedded before
// anything is written, so an embedding failure leaves the index untouched.
func (ix *Indexer) Insert(ctx context.Context, fragments []Fragment) error {
	vectors := make([][]float32, len(fragments))
	for i, fragment := range fragments {
		vec, err := ix.embedder.Embed(ctx, fragment.Content)
		if err != nil {
			return NewIndexError(fragment.Category, "embed",
				fmt.Sprintf("failed to embed fragment %d of %d", i+1, len(fragments)), err)
		}
		vectors[i] = vec
	}

	for i, fragment := range fragments {
		id := uuid.NewString()
		err := ix.provider.Upsert(ctx, ix.collection, id, vectors[i], map[string]any{
			metadataKeyCategory: fragment.Category,
			"content":           fragment.Content,
		})
		if err != nil {
			return NewIndexError(fragment.Category, "upsert",
				fmt.Sprintf("failed to store fragment %d of %d", i+1, len(fragments)), err)
		}
	}

	slog.Debug("Indexed fragments", "count", len(fragments), "collection", ix.collection)
	return nil
}

// Search returns the contents of the k fragments of the category most
// similar to the query, most similar first. An unknown category is a hard
// error; a known category with no sufficiently similar fragments yields an
// empty slice.
func (ix *Indexer) Search(ctx context.Context, query string, category string, k int) ([]string, error) {
	exists, err := ix.catalog.Exists(ctx, category)
	if err != nil {
		return nil, NewSearchError("catalog", "failed to check category", query, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}

	queryVec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, NewSearchError("embedder", "failed to embed query", query, err)
	}

	results, err := ix.provider.SearchWithFilter(ctx, ix.collection, queryVec, k,
		map[string]any{metadataKeyCategory: category})
	if err != nil {
		return nil, NewSearchError("vector_db", "similarity search failed", query, err)
	}

	contents := make([]string, 0, len(results))
	for _, r := range results {
		contents = append(contents, r.Content)
	}
	return contents, nil
}

// Delete removes every fragment of a category. Deleting an unknown
// category is an error, so a repeated delete fails the second time.
func (ix *Indexer) Delete(ctx context.Context, category string) error {
	exists, err := ix.catalog.Exists(ctx, category)
	if err != nil {
		return NewIndexError(category, "delete", "failed to check category", err)
	}
	if !exists {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}

	err = ix.provider.DeleteByFilter(ctx, ix.collection, map[string]any{
		metadataKeyCategory: category,
	})
	if err != nil {
		return NewIndexError(category, "delete", "failed to delete fragments", err)
	}

	slog.Info("Deleted category", "category", category)
	return nil
}

// Categories returns the distinct categories present in the index.
func (ix *Indexer) Categories(ctx context.Context) ([]string, error) {
	return ix.catalog.List(ctx)
}
