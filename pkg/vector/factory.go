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

package vector

import (
	"fmt"

	"github.com/kadirpekel/corpus/pkg/config"
)

// ProviderType identifies a vector provider implementation.
type ProviderType string

const (
	// ProviderChromem uses chromem-go for embedded vector storage.
	// Zero-config, no external dependencies. Best for development and small deployments.
	ProviderChromem ProviderType = "chromem"

	// ProviderQdrant uses Qdrant vector database.
	// High-performance, supports distributed deployments.
	ProviderQdrant ProviderType = "qdrant"
)

// NewProvider creates a vector provider from configuration.
//
// The embedder dimension is passed separately so the chromem provider can
// build probe vectors without depending on the embedder package.
func NewProvider(cfg *config.VectorConfig, dimension int) (Provider, error) {
	if cfg == nil {
		return NilProvider{}, nil
	}

	switch ProviderType(cfg.Type) {
	case ProviderChromem:
		return NewChromemProvider(ChromemConfig{
			PersistPath: cfg.Path,
			Compress:    cfg.Compress,
			Dimension:   dimension,
		})

	case ProviderQdrant:
		return NewQdrantProvider(QdrantConfig{
			Host:   cfg.Host,
			Port:   cfg.Port,
			APIKey: cfg.APIKey,
			UseTLS: cfg.UseTLS,
		})

	default:
		return nil, fmt.Errorf("unknown provider type: %q", cfg.Type)
	}
}
