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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/corpus/pkg/config"
	"github.com/kadirpekel/corpus/pkg/llms"
	"github.com/kadirpekel/corpus/pkg/session"
)

func configuredSettings(t *testing.T) *session.Settings {
	t.Helper()
	settings := session.NewSettings([]string{"llama3"})
	_, err := settings.SelectModel(0)
	require.NoError(t, err)
	settings.SetCategory("colors")
	return settings
}

func drain(t *testing.T, ch <-chan string) []string {
	t.Helper()
	var out []string
	for s := range ch {
		out = append(out, s)
	}
	return out
}

func TestPipeline_Ask_Validation(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*session.Settings)
		query   string
		wantErr error
	}{
		{
			name:    "no model selected",
			setup:   func(s *session.Settings) { s.SetCategory("colors") },
			query:   "hello",
			wantErr: ErrNotConfigured,
		},
		{
			name: "no category selected",
			setup: func(s *session.Settings) {
				_, err := s.SelectModel(0)
				require.NoError(t, err)
			},
			query:   "hello",
			wantErr: ErrNotConfigured,
		},
		{
			name: "empty query",
			setup: func(s *session.Settings) {
				_, err := s.SelectModel(0)
				require.NoError(t, err)
				s.SetCategory("colors")
			},
			query:   "   \t\n",
			wantErr: ErrEmptyQuery,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retriever := &mockRetriever{}
			llm := &mockLLM{}
			settings := session.NewSettings([]string{"llama3"})
			tt.setup(settings)

			p := NewPipeline(retriever, llm, settings, config.ChatConfig{Persona: "test persona"})

			_, err := p.Ask(context.Background(), tt.query)
			require.ErrorIs(t, err, tt.wantErr)

			// validation failures never reach the model
			assert.Equal(t, 0, llm.callCount())
		})
	}
}

func TestPipeline_Ask_UnknownCategoryMakesNoModelCall(t *testing.T) {
	retriever := &mockRetriever{err: fmt.Errorf("%w: %q", ErrUnknownCategory, "colors")}
	llm := &mockLLM{}

	p := NewPipeline(retriever, llm, configuredSettings(t), config.ChatConfig{Persona: "p"})

	_, err := p.Ask(context.Background(), "what color is the sky?")
	require.ErrorIs(t, err, ErrUnknownCategory)
	assert.Equal(t, 1, retriever.calls)
	assert.Equal(t, 0, llm.callCount())
}

func TestPipeline_Ask_StreamsIncrementsInOrder(t *testing.T) {
	retriever := &mockRetriever{fragments: []string{"the sky is blue"}}
	llm := &mockLLM{chunks: []llms.StreamChunk{
		{Type: "text", Text: "The"},
		{Type: "text", Text: " sky"},
		{Type: "text", Text: " is blue."},
		{Type: "done", Tokens: 12},
	}}

	settings := configuredSettings(t)
	require.NoError(t, settings.SetMatches(3))

	p := NewPipeline(retriever, llm, settings, config.ChatConfig{Persona: "p"})

	ch, err := p.Ask(context.Background(), "what color is the sky?")
	require.NoError(t, err)

	assert.Equal(t, []string{"The", " sky", " is blue."}, drain(t, ch))
	assert.Equal(t, "llama3", llm.gotModel)
	assert.Equal(t, "what color is the sky?", retriever.gotQuery)
	assert.Equal(t, "colors", retriever.gotCategory)
	assert.Equal(t, 3, retriever.gotK)
}

func TestPipeline_Ask_MidStreamFailureYieldsOneApology(t *testing.T) {
	retriever := &mockRetriever{fragments: []string{"the sky is blue"}}
	llm := &mockLLM{chunks: []llms.StreamChunk{
		{Type: "text", Text: "one"},
		{Type: "text", Text: "two"},
		{Type: "text", Text: "three"},
		{Type: "error", Error: fmt.Errorf("runner died")},
	}}

	p := NewPipeline(retriever, llm, configuredSettings(t), config.ChatConfig{Persona: "p"})

	ch, err := p.Ask(context.Background(), "hi")
	require.NoError(t, err)

	got := drain(t, ch)
	require.Len(t, got, 4)
	assert.Equal(t, []string{"one", "two", "three"}, got[:3])
	assert.Equal(t, apologyMessage, got[3])
	assert.NotContains(t, got[3], "runner died")
}

func TestPipeline_Ask_MessageAssembly(t *testing.T) {
	retriever := &mockRetriever{fragments: []string{
		"the   sky\n\tis  blue",
		"  grass is\ngreen  ",
	}}
	llm := &mockLLM{chunks: []llms.StreamChunk{{Type: "done"}}}

	settings := configuredSettings(t)
	require.NoError(t, settings.SetLevel(2))

	p := NewPipeline(retriever, llm, settings, config.ChatConfig{Persona: "You are a librarian."})

	ch, err := p.Ask(context.Background(), "what color is the sky?")
	require.NoError(t, err)
	drain(t, ch)

	require.Len(t, llm.gotMessages, 3)

	system := llm.gotMessages[0]
	assert.Equal(t, llms.RoleSystem, system.Role)
	assert.Contains(t, system.Content, "You are a librarian.")
	assert.Contains(t, system.Content, levelInstructions[2])

	reference := llm.gotMessages[1]
	assert.Equal(t, llms.RoleUser, reference.Role)
	// fragments are whitespace-collapsed and joined as a bullet list
	assert.Contains(t, reference.Content, "- the sky is blue\n\n- grass is green")

	question := llm.gotMessages[2]
	assert.Equal(t, llms.RoleUser, question.Role)
	assert.Contains(t, question.Content, "what color is the sky?")
}

func TestPipeline_Ask_EmptyRetrievalStillAnswers(t *testing.T) {
	// a known category with no similar fragments is a success with an
	// empty reference block, not an error
	retriever := &mockRetriever{fragments: nil}
	llm := &mockLLM{chunks: []llms.StreamChunk{
		{Type: "text", Text: "I don't know."},
		{Type: "done"},
	}}

	p := NewPipeline(retriever, llm, configuredSettings(t), config.ChatConfig{Persona: "p"})

	ch, err := p.Ask(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, []string{"I don't know."}, drain(t, ch))
	assert.Equal(t, 1, llm.callCount())
}

func TestPipeline_Ask_ContextCancellationStopsStream(t *testing.T) {
	retriever := &mockRetriever{fragments: []string{"x"}}
	llm := &mockLLM{chunks: []llms.StreamChunk{
		{Type: "text", Text: "a"},
		{Type: "text", Text: "b"},
		{Type: "done"},
	}}

	p := NewPipeline(retriever, llm, configuredSettings(t), config.ChatConfig{Persona: "p"})

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := p.Ask(ctx, "hi")
	require.NoError(t, err)

	cancel()
	// channel must close even though nobody reads the remaining chunks
	for range ch {
	}
}

func TestPipeline_EndToEnd(t *testing.T) {
	// real splitter, indexer and chromem store behind the pipeline; only
	// the embedder and the model are stubbed
	store, indexer := newTestStore(t, 20, 5)
	ctx := context.Background()

	_, err := store.CreateTraining(ctx, "colors",
		[]byte("The sky is blue. The grass is green."), "txt")
	require.NoError(t, err)

	llm := &mockLLM{chunks: []llms.StreamChunk{
		{Type: "text", Text: "Blue."},
		{Type: "done"},
	}}

	settings := session.NewSettings([]string{"llama3"})
	_, err = settings.SelectModel(0)
	require.NoError(t, err)
	settings.SetCategory("colors")

	p := NewPipeline(indexer, llm, settings, config.ChatConfig{Persona: "p"})

	ch, err := p.Ask(ctx, "what color is the sky?")
	require.NoError(t, err)
	assert.Equal(t, []string{"Blue."}, drain(t, ch))

	require.Len(t, llm.gotMessages, 3)
	assert.Contains(t, llm.gotMessages[1].Content, "sky")

	t.Run("unknown category never reaches the model", func(t *testing.T) {
		before := llm.callCount()
		settings.SetCategory("vehicles")

		_, err := p.Ask(ctx, "what color is the sky?")
		require.ErrorIs(t, err, ErrUnknownCategory)
		assert.Equal(t, before, llm.callCount())
	})
}
