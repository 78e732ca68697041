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

// Package vector provides pluggable vector index backends for similarity
// search over embedded document fragments.
package vector

import (
	"context"
	"fmt"
)

// Result is a single similarity search hit.
type Result struct {
	ID       string
	Content  string
	Vector   []float32
	Metadata map[string]any
	Score    float32
}

// Provider abstracts a vector index backend.
//
// All fragments live in a single physical collection; logical scoping is
// expressed through metadata filters.
type Provider interface {
	// Upsert adds or updates a document with its pre-computed vector.
	Upsert(ctx context.Context, collection string, id string, vector []float32, metadata map[string]any) error

	// SearchWithFilter returns the topK most similar documents whose
	// metadata matches the filter, most similar first.
	SearchWithFilter(ctx context.Context, collection string, vector []float32, topK int, filter map[string]any) ([]Result, error)

	// DeleteByFilter removes all documents matching the filter.
	DeleteByFilter(ctx context.Context, collection string, filter map[string]any) error

	// ListMetadataValues returns the distinct values of a metadata key
	// across the whole collection.
	ListMetadataValues(ctx context.Context, collection string, key string) ([]string, error)

	// Count returns the number of documents in the collection.
	Count(ctx context.Context, collection string) (int, error)

	// Name returns the provider name.
	Name() string

	// Close releases resources held by the provider.
	Close() error
}

// NilProvider is a no-op provider used when no vector store is configured.
type NilProvider struct{}

func (NilProvider) Upsert(ctx context.Context, collection string, id string, vector []float32, metadata map[string]any) error {
	return fmt.Errorf("no vector provider configured")
}

func (NilProvider) SearchWithFilter(ctx context.Context, collection string, vector []float32, topK int, filter map[string]any) ([]Result, error) {
	return nil, fmt.Errorf("no vector provider configured")
}

func (NilProvider) DeleteByFilter(ctx context.Context, collection string, filter map[string]any) error {
	return fmt.Errorf("no vector provider configured")
}

func (NilProvider) ListMetadataValues(ctx context.Context, collection string, key string) ([]string, error) {
	return nil, fmt.Errorf("no vector provider configured")
}

func (NilProvider) Count(ctx context.Context, collection string) (int, error) {
	return 0, fmt.Errorf("no vector provider configured")
}

func (NilProvider) Name() string { return "nil" }

func (NilProvider) Close() error { return nil }

var _ Provider = NilProvider{}
