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
	"hash/fnv"
	"math"
	"strings"
	"sync"

	"github.com/kadirpekel/corpus/pkg/llms"
)

const stubDimension = 64

// stubEmbedder produces deterministic bag-of-words vectors so similarity
// ranking reflects shared vocabulary without a model runtime.
type stubEmbedder struct {
	mu       sync.Mutex
	calls    int
	failNext bool
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	s.calls++
	fail := s.failNext
	s.mu.Unlock()

	if fail {
		return nil, fmt.Errorf("embedder unavailable")
	}

	vec := make([]float32, stubDimension)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?")
		if word == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%stubDimension]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}

func (s *stubEmbedder) Dimension() int    { return stubDimension }
func (s *stubEmbedder) ModelName() string { return "stub" }
func (s *stubEmbedder) Close() error      { return nil }

func (s *stubEmbedder) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// mockLLM replays a scripted chunk sequence and records what it was asked.
type mockLLM struct {
	mu          sync.Mutex
	calls       int
	gotModel    string
	gotMessages []llms.Message

	chunks []llms.StreamChunk
}

func (m *mockLLM) ChatStream(ctx context.Context, model string, messages []llms.Message) (<-chan llms.StreamChunk, error) {
	m.mu.Lock()
	m.calls++
	m.gotModel = model
	m.gotMessages = messages
	chunks := m.chunks
	m.mu.Unlock()

	ch := make(chan llms.StreamChunk, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func (m *mockLLM) ListModels(ctx context.Context) ([]string, error) {
	return []string{"stub-model"}, nil
}

func (m *mockLLM) Close() error { return nil }

func (m *mockLLM) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockRetriever returns canned fragments and records the search arguments.
type mockRetriever struct {
	mu          sync.Mutex
	calls       int
	gotQuery    string
	gotCategory string
	gotK        int

	fragments []string
	err       error
}

func (m *mockRetriever) Search(ctx context.Context, query string, category string, k int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.gotQuery = query
	m.gotCategory = category
	m.gotK = k
	if m.err != nil {
		return nil, m.err
	}
	return m.fragments, nil
}
