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
	"regexp"
	"strings"

	"github.com/kadirpekel/corpus/pkg/config"
	"github.com/kadirpekel/corpus/pkg/llms"
	"github.com/kadirpekel/corpus/pkg/session"
	"github.com/kadirpekel/corpus/pkg/utils"
)

// Retriever is the search surface the pipeline needs from the index.
type Retriever interface {
	Search(ctx context.Context, query string, category string, k int) ([]string, error)
}

// levelInstructions maps the session verbosity level to the instruction
// appended to the system prompt.
var levelInstructions = [session.MaxLevel + 1]string{
	"Answer briefly, in one or two sentences.",
	"Answer with a moderate amount of detail.",
	"Answer thoroughly, covering every relevant detail in the reference material.",
}

// apologyMessage is emitted as a single final increment when the model
// fails mid-stream. It never exposes internal error details.
const apologyMessage = "I'm sorry, something went wrong while generating the answer. Please try again."

// Pipeline orchestrates a retrieval-augmented chat turn: validate the
// session, retrieve matching fragments, assemble the prompt and stream the
// model's answer.
type Pipeline struct {
	retriever Retriever
	llm       llms.Provider
	settings  *session.Settings

	persona          string
	maxContextTokens int
	counter          *utils.TokenCounter
}

// NewPipeline creates a pipeline bound to the given session settings.
func NewPipeline(retriever Retriever, llm llms.Provider, settings *session.Settings, cfg config.ChatConfig) *Pipeline {
	return &Pipeline{
		retriever:        retriever,
		llm:              llm,
		settings:         settings,
		persona:          cfg.Persona,
		maxContextTokens: cfg.MaxContextTokens,
		counter:          utils.NewTokenCounter(),
	}
}

// Ask runs one chat turn and streams the answer as text increments.
//
// Validation and retrieval failures are returned before any channel is
// created, so no model call is made for them. Once streaming has begun the
// only failure signal is a single apology increment followed by channel
// close.
func (p *Pipeline) Ask(ctx context.Context, query string) (<-chan string, error) {
	model := p.settings.SelectedModel()
	category := p.settings.Category()

	if model == "" {
		return nil, fmt.Errorf("%w: no model selected", ErrNotConfigured)
	}
	if category == "" {
		return nil, fmt.Errorf("%w: no category selected", ErrNotConfigured)
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	fragments, err := p.retriever.Search(ctx, query, category, p.settings.Matches())
	if err != nil {
		return nil, err
	}

	messages := p.assemble(query, fragments)

	streamCh, err := p.llm.ChatStream(ctx, model, messages)
	if err != nil {
		return nil, err
	}

	out := make(chan string)
	go func() {
		defer close(out)
		p.forward(ctx, streamCh, out)
	}()

	return out, nil
}

// assemble builds the chat messages: persona and verbosity instruction,
// the retrieved reference material, and the question.
func (p *Pipeline) assemble(query string, fragments []string) []llms.Message {
	level := p.settings.Level()
	system := p.persona + "\n\n" + levelInstructions[level]

	return []llms.Message{
		{Role: llms.RoleSystem, Content: system},
		{Role: llms.RoleUser, Content: "Reference material:\n\n- " + p.buildContext(fragments)},
		{Role: llms.RoleUser, Content: "Question: " + query},
	}
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// buildContext normalizes each fragment to single-spaced text and joins
// them as a bullet list. When a token budget is configured, trailing
// fragments that would exceed it are dropped (they are the least similar).
func (p *Pipeline) buildContext(fragments []string) string {
	cleaned := make([]string, 0, len(fragments))
	total := 0
	for _, fragment := range fragments {
		text := strings.TrimSpace(whitespaceRun.ReplaceAllString(fragment, " "))
		if text == "" {
			continue
		}

		if p.maxContextTokens > 0 {
			tokens := p.counter.Count(text)
			if len(cleaned) > 0 && total+tokens > p.maxContextTokens {
				slog.Debug("Context token budget reached",
					"kept", len(cleaned), "dropped", len(fragments)-len(cleaned))
				break
			}
			total += tokens
		}

		cleaned = append(cleaned, text)
	}

	return strings.Join(cleaned, "\n\n- ")
}

// forward relays text increments in order. A mid-stream model error
// becomes one apology increment; context cancellation stops promptly.
func (p *Pipeline) forward(ctx context.Context, in <-chan llms.StreamChunk, out chan<- string) {
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-in:
			if !ok {
				return
			}

			switch chunk.Type {
			case "text":
				select {
				case out <- chunk.Text:
				case <-ctx.Done():
					return
				}
			case "error":
				slog.Error("Model stream failed", "error", chunk.Error)
				select {
				case out <- apologyMessage:
				case <-ctx.Done():
				}
				return
			case "done":
				slog.Debug("Chat turn complete", "tokens", chunk.Tokens)
				return
			}
		}
	}
}
