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

// Package session holds the mutable chat session state: the selected model,
// the selected category and the retrieval tuning parameters.
package session

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrIndexOutOfRange is returned when a model index does not address
	// the known model list.
	ErrIndexOutOfRange = errors.New("model index out of range")

	// ErrInvalidParameter is returned when a tuning parameter is outside
	// its accepted range.
	ErrInvalidParameter = errors.New("invalid parameter")
)

const (
	DefaultMatches = 1
	DefaultLevel   = 0
	MaxLevel       = 2
)

// Settings is the process-scoped session configuration.
//
// Writes are last-writer-wins across concurrent requests; there is no
// per-client isolation.
type Settings struct {
	mu sync.RWMutex

	models        []string
	selectedModel string

	category string
	matches  int
	level    int
}

// NewSettings creates session settings over the given model list.
// No model is selected initially.
func NewSettings(models []string) *Settings {
	return &Settings{
		models:  models,
		matches: DefaultMatches,
		level:   DefaultLevel,
	}
}

// Models returns the known model names.
func (s *Settings) Models() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.models))
	copy(out, s.models)
	return out
}

// SetModels replaces the known model list. The selection is cleared if the
// selected model is no longer present.
func (s *Settings) SetModels(models []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models = models

	if s.selectedModel == "" {
		return
	}
	for _, m := range models {
		if m == s.selectedModel {
			return
		}
	}
	s.selectedModel = ""
}

// SelectModel selects a model by its position in the model list.
// On failure the current selection is untouched.
func (s *Settings) SelectModel(index int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.models) {
		return "", fmt.Errorf("%w: %d (have %d models)", ErrIndexOutOfRange, index, len(s.models))
	}

	s.selectedModel = s.models[index]
	return s.selectedModel, nil
}

// SelectedModel returns the selected model name, or "" if none is selected.
func (s *Settings) SelectedModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedModel
}

// SetCategory sets the active category. Any name is accepted here;
// existence is checked at retrieval time against the catalog.
func (s *Settings) SetCategory(category string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.category = category
}

// Category returns the active category, or "" if none is set.
func (s *Settings) Category() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.category
}

// SetMatches sets the retrieval fragment count. Values below 1 are
// rejected and the prior value kept.
func (s *Settings) SetMatches(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: matches must be at least 1, got %d", ErrInvalidParameter, n)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches = n
	return nil
}

// Matches returns the retrieval fragment count.
func (s *Settings) Matches() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matches
}

// SetLevel sets the response verbosity level (0, 1 or 2). Out-of-range
// values are rejected and the prior value kept.
func (s *Settings) SetLevel(level int) error {
	if level < 0 || level > MaxLevel {
		return fmt.Errorf("%w: level must be between 0 and %d, got %d", ErrInvalidParameter, MaxLevel, level)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = level
	return nil
}

// Level returns the response verbosity level.
func (s *Settings) Level() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.level
}
