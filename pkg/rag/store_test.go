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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/corpus/pkg/config"
)

func newTestStore(t *testing.T, chunkSize, overlap int) (*Store, *Indexer) {
	t.Helper()
	indexer, _ := newTestIndexer(t)
	splitter, err := NewSplitter(config.SplitterConfig{ChunkSize: chunkSize, Overlap: overlap})
	require.NoError(t, err)
	return NewStore(splitter, indexer), indexer
}

func TestStore_CreateTraining(t *testing.T) {
	store, _ := newTestStore(t, 1000, 200)
	ctx := context.Background()

	count, err := store.CreateTraining(ctx, "colors", []byte("the sky is blue"), "txt")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	trainings, err := store.ListTrainings(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"colors"}, trainings)

	t.Run("duplicate category is rejected", func(t *testing.T) {
		_, err := store.CreateTraining(ctx, "colors", []byte("other text"), "txt")
		assert.ErrorIs(t, err, ErrDuplicateCategory)
	})

	t.Run("empty category is rejected", func(t *testing.T) {
		_, err := store.CreateTraining(ctx, "", []byte("text"), "txt")
		assert.Error(t, err)
	})

	t.Run("empty document writes nothing", func(t *testing.T) {
		// a created training must be listable; zero fragments would
		// leave the category absent from the catalog
		_, err := store.CreateTraining(ctx, "blank", []byte(""), "txt")
		require.Error(t, err)

		trainings, err := store.ListTrainings(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"colors"}, trainings)
	})

	t.Run("unsupported format writes nothing", func(t *testing.T) {
		_, err := store.CreateTraining(ctx, "sheets", []byte("cells"), "xlsx")
		require.ErrorIs(t, err, ErrUnsupportedFormat)

		trainings, err := store.ListTrainings(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"colors"}, trainings)
	})
}

func TestStore_UpdateTraining(t *testing.T) {
	store, indexer := newTestStore(t, 1000, 200)
	ctx := context.Background()

	t.Run("updating an unknown category fails", func(t *testing.T) {
		_, err := store.UpdateTraining(ctx, "colors", []byte("text"), "txt")
		assert.ErrorIs(t, err, ErrUnknownCategory)
	})

	_, err := store.CreateTraining(ctx, "colors", []byte("the sky is blue"), "txt")
	require.NoError(t, err)

	t.Run("update replaces the fragments", func(t *testing.T) {
		count, err := store.UpdateTraining(ctx, "colors", []byte("roses are red"), "txt")
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		results, err := indexer.Search(ctx, "what color are roses", "colors", 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"roses are red"}, results)
	})

	t.Run("a bad document leaves the training intact", func(t *testing.T) {
		_, err := store.UpdateTraining(ctx, "colors", []byte("broken"), "pdf")
		require.Error(t, err)

		results, err := indexer.Search(ctx, "roses", "colors", 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"roses are red"}, results)
	})

	t.Run("an empty document leaves the training intact", func(t *testing.T) {
		_, err := store.UpdateTraining(ctx, "colors", []byte(""), "txt")
		require.Error(t, err)

		results, err := indexer.Search(ctx, "roses", "colors", 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"roses are red"}, results)
	})
}

func TestStore_DeleteTraining(t *testing.T) {
	store, _ := newTestStore(t, 1000, 200)
	ctx := context.Background()

	_, err := store.CreateTraining(ctx, "colors", []byte("the sky is blue"), "txt")
	require.NoError(t, err)

	require.NoError(t, store.DeleteTraining(ctx, "colors"))

	trainings, err := store.ListTrainings(ctx)
	require.NoError(t, err)
	assert.Empty(t, trainings)

	// the category is gone, so deleting again fails
	err = store.DeleteTraining(ctx, "colors")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestStore_IngestionRoundTrip(t *testing.T) {
	// Small chunks force the document through the overlap path end to end.
	store, indexer := newTestStore(t, 20, 5)
	ctx := context.Background()

	doc := []byte("The sky is blue. The grass is green. The sun is yellow.")
	count, err := store.CreateTraining(ctx, "colors", doc, "txt")
	require.NoError(t, err)
	assert.Greater(t, count, 1)

	_, err = store.CreateTraining(ctx, "animals", []byte("The cat meows. The dog barks."), "txt")
	require.NoError(t, err)

	results, err := indexer.Search(ctx, "sky", "colors", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0], "sky")

	// the other category never leaks in
	results, err = indexer.Search(ctx, "sky", "animals", 10)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotContains(t, r, "sky")
	}
}
