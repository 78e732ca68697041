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

package vector

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"sync"

	"github.com/philippgille/chromem-go"
)

// ChromemProvider implements Provider using chromem-go for embedded vector
// storage.
//
// This is the recommended provider for zero-config deployments as it requires
// no external services. It stores vectors in memory with optional file
// persistence.
//
// Limitations:
//   - Single-process only (no distributed search)
//   - Memory-bound (all vectors in RAM)
//
// Metadata-filtered queries rank the whole collection and filter afterwards,
// so search cost scales with total corpus size rather than category size.
type ChromemProvider struct {
	db          *chromem.DB
	persistPath string
	compress    bool
	dimension   int
	mu          sync.RWMutex

	// collections caches collection references for performance
	collections map[string]*chromem.Collection

	// embeddingFunc is required by chromem but never invoked: vectors are
	// pre-computed by the embedders package
	embeddingFunc chromem.EmbeddingFunc
}

// ChromemConfig configures the chromem provider.
type ChromemConfig struct {
	// PersistPath for file persistence (optional).
	// If empty, vectors are stored in memory only.
	PersistPath string `yaml:"persist_path,omitempty"`

	// Compress enables gzip compression for persistence.
	Compress bool `yaml:"compress,omitempty"`

	// Dimension is the embedding vector size, used to build probe vectors
	// for metadata enumeration.
	Dimension int `yaml:"dimension,omitempty"`
}

// NewChromemProvider creates a new chromem-based vector provider.
func NewChromemProvider(cfg ChromemConfig) (*ChromemProvider, error) {
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("chromem provider requires a positive vector dimension, got %d", cfg.Dimension)
	}

	var db *chromem.DB

	if cfg.PersistPath != "" {
		if err := os.MkdirAll(cfg.PersistPath, 0755); err != nil {
			return nil, fmt.Errorf("failed to create persist directory: %w", err)
		}

		dbPath := chromemDBPath(cfg.PersistPath, cfg.Compress)
		if _, statErr := os.Stat(dbPath); statErr == nil {
			loaded, err := chromem.NewPersistentDB(dbPath, cfg.Compress)
			if err != nil {
				slog.Warn("Failed to load existing vector database, creating new",
					"path", dbPath,
					"error", err)
				db = chromem.NewDB()
			} else {
				db = loaded
				slog.Info("Loaded vector database from file", "path", dbPath)
			}
		} else {
			db = chromem.NewDB()
			slog.Info("Created new vector database", "path", dbPath)
		}
	} else {
		db = chromem.NewDB()
		slog.Info("Created in-memory vector database (no persistence)")
	}

	identityEmbed := func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("embedding function called but vectors should be pre-computed")
	}

	return &ChromemProvider{
		db:            db,
		persistPath:   cfg.PersistPath,
		compress:      cfg.Compress,
		dimension:     cfg.Dimension,
		collections:   make(map[string]*chromem.Collection),
		embeddingFunc: identityEmbed,
	}, nil
}

func chromemDBPath(persistPath string, compress bool) string {
	dbPath := persistPath + "/vectors.gob"
	if compress {
		dbPath += ".gz"
	}
	return dbPath
}

// getCollection gets or creates a collection.
func (p *ChromemProvider) getCollection(name string) (*chromem.Collection, error) {
	p.mu.RLock()
	if col, ok := p.collections[name]; ok {
		p.mu.RUnlock()
		return col, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if col, ok := p.collections[name]; ok {
		return col, nil
	}

	col, err := p.db.GetOrCreateCollection(name, nil, p.embeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to get/create collection %q: %w", name, err)
	}

	p.collections[name] = col
	return col, nil
}

// Upsert adds or updates a document with its vector embedding.
func (p *ChromemProvider) Upsert(ctx context.Context, collection string, id string, vector []float32, metadata map[string]any) error {
	col, err := p.getCollection(collection)
	if err != nil {
		return err
	}

	// chromem metadata values must be strings
	strMetadata := make(map[string]string, len(metadata))
	for k, v := range metadata {
		strMetadata[k] = fmt.Sprint(v)
	}

	content := ""
	if c, ok := metadata["content"].(string); ok {
		content = c
	}

	doc := chromem.Document{
		ID:        id,
		Content:   content,
		Metadata:  strMetadata,
		Embedding: vector,
	}

	if err := col.AddDocuments(ctx, []chromem.Document{doc}, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	if err := p.persist(); err != nil {
		slog.Warn("Failed to persist after upsert", "error", err)
	}

	return nil
}

// SearchWithFilter combines vector similarity with metadata filtering.
//
// The whole collection is ranked and the filter applied in Go: chromem
// rejects queries asking for more results than the filtered document count,
// which the caller cannot know up front.
func (p *ChromemProvider) SearchWithFilter(ctx context.Context, collection string, vector []float32, topK int, filter map[string]any) ([]Result, error) {
	ranked, err := p.queryAll(ctx, collection, vector)
	if err != nil {
		return nil, err
	}

	out := make([]Result, 0, topK)
	for _, r := range ranked {
		if !matchesFilter(r.Metadata, filter) {
			continue
		}

		metadata := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			metadata[k] = v
		}

		out = append(out, Result{
			ID:       r.ID,
			Score:    r.Similarity,
			Content:  r.Content,
			Metadata: metadata,
		})
		if len(out) == topK {
			break
		}
	}

	return out, nil
}

// queryAll ranks every document in the collection against the vector.
func (p *ChromemProvider) queryAll(ctx context.Context, collection string, vector []float32) ([]chromem.Result, error) {
	col, err := p.getCollection(collection)
	if err != nil {
		return nil, err
	}

	total := col.Count()
	if total == 0 {
		return nil, nil
	}

	results, err := col.QueryEmbedding(ctx, vector, total, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return results, nil
}

func matchesFilter(metadata map[string]string, filter map[string]any) bool {
	for k, v := range filter {
		if metadata[k] != fmt.Sprint(v) {
			return false
		}
	}
	return true
}

// DeleteByFilter removes all documents matching the filter.
func (p *ChromemProvider) DeleteByFilter(ctx context.Context, collection string, filter map[string]any) error {
	col, err := p.getCollection(collection)
	if err != nil {
		return err
	}

	whereFilter := make(map[string]string, len(filter))
	for k, v := range filter {
		whereFilter[k] = fmt.Sprint(v)
	}

	if err := col.Delete(ctx, whereFilter, nil); err != nil {
		return fmt.Errorf("failed to delete by filter: %w", err)
	}

	if err := p.persist(); err != nil {
		slog.Warn("Failed to persist after delete", "error", err)
	}

	return nil
}

// ListMetadataValues returns the distinct values of a metadata key.
//
// chromem has no metadata scan API, so the collection is enumerated with a
// probe query against a unit vector.
func (p *ChromemProvider) ListMetadataValues(ctx context.Context, collection string, key string) ([]string, error) {
	probe := make([]float32, p.dimension)
	probe[0] = 1

	ranked, err := p.queryAll(ctx, collection, probe)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	values := make([]string, 0)
	for _, r := range ranked {
		v, ok := r.Metadata[key]
		if !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}

	sort.Strings(values)
	return values, nil
}

// Count returns the number of documents in the collection.
func (p *ChromemProvider) Count(ctx context.Context, collection string) (int, error) {
	col, err := p.getCollection(collection)
	if err != nil {
		return 0, err
	}
	return col.Count(), nil
}

// Name returns the provider name.
func (p *ChromemProvider) Name() string {
	return "chromem"
}

// Close persists the database and releases resources.
func (p *ChromemProvider) Close() error {
	return p.persist()
}

// persist saves the database to disk if persistence is enabled.
func (p *ChromemProvider) persist() error {
	if p.persistPath == "" {
		return nil
	}

	dbPath := chromemDBPath(p.persistPath, p.compress)

	//nolint:staticcheck // Using deprecated function for compatibility
	if err := p.db.Export(dbPath, p.compress, ""); err != nil {
		return fmt.Errorf("failed to persist database: %w", err)
	}

	return nil
}

// Ensure ChromemProvider implements Provider.
var _ Provider = (*ChromemProvider)(nil)
