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

	"github.com/kadirpekel/corpus/pkg/vector"
)

// metadataKeyCategory is the metadata key that scopes fragments.
const metadataKeyCategory = "category"

// Catalog is a read-through view of the categories present in the index.
//
// There is no separate registry: a category exists exactly when at least
// one indexed fragment carries it, so the catalog can never drift from the
// index contents.
type Catalog struct {
	provider   vector.Provider
	collection string
}

// NewCatalog creates a catalog over the given collection.
func NewCatalog(provider vector.Provider, collection string) *Catalog {
	return &Catalog{
		provider:   provider,
		collection: collection,
	}
}

// List returns the distinct categories in the index, sorted.
func (c *Catalog) List(ctx context.Context) ([]string, error) {
	return c.provider.ListMetadataValues(ctx, c.collection, metadataKeyCategory)
}

// Exists reports whether at least one fragment carries the category.
func (c *Catalog) Exists(ctx context.Context, category string) (bool, error) {
	categories, err := c.List(ctx)
	if err != nil {
		return false, err
	}
	for _, existing := range categories {
		if existing == category {
			return true, nil
		}
	}
	return false, nil
}
