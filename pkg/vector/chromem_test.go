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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T) *ChromemProvider {
	t.Helper()
	p, err := NewChromemProvider(ChromemConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestChromemUpsertAndQuery(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	docs := []Document{
		{ID: "a", Content: "alpha", Embedding: []float32{1, 0, 0}, Metadata: map[string]string{"group": "x"}},
		{ID: "b", Content: "beta", Embedding: []float32{0, 1, 0}, Metadata: map[string]string{"group": "y"}},
		{ID: "c", Content: "gamma", Embedding: []float32{0.9, 0.1, 0}, Metadata: map[string]string{"group": "x"}},
	}
	require.NoError(t, p.Upsert(ctx, "test", docs))

	results, err := p.Query(ctx, "test", []float32{1, 0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "alpha", results[0].Content)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestChromemQueryWithFilter(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	docs := []Document{
		{ID: "a", Content: "alpha", Embedding: []float32{1, 0, 0}, Metadata: map[string]string{"group": "x"}},
		{ID: "b", Content: "beta", Embedding: []float32{1, 0, 0}, Metadata: map[string]string{"group": "y"}},
	}
	require.NoError(t, p.Upsert(ctx, "test", docs))

	results, err := p.Query(ctx, "test", []float32{1, 0, 0}, 2, map[string]string{"group": "y"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)
}

func TestChromemQueryLimitClamped(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	require.NoError(t, p.Upsert(ctx, "test", []Document{
		{ID: "a", Content: "alpha", Embedding: []float32{1, 0, 0}},
	}))

	// Asking for more results than documents must not error.
	results, err := p.Query(ctx, "test", []float32{1, 0, 0}, 10, nil)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestChromemQueryEmptyCollection(t *testing.T) {
	p := newTestProvider(t)

	results, err := p.Query(context.Background(), "empty", []float32{1, 0, 0}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChromemGet(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	require.NoError(t, p.Upsert(ctx, "test", []Document{
		{ID: "a", Content: "alpha", Embedding: []float32{1, 0, 0}, Metadata: map[string]string{"k": "v"}},
	}))

	doc, err := p.Get(ctx, "test", "a")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "alpha", doc.Content)
	assert.Equal(t, "v", doc.Metadata["k"])

	missing, err := p.Get(ctx, "test", "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestChromemDeleteByFilter(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	require.NoError(t, p.Upsert(ctx, "test", []Document{
		{ID: "a", Content: "alpha", Embedding: []float32{1, 0, 0}, Metadata: map[string]string{"group": "x"}},
		{ID: "b", Content: "beta", Embedding: []float32{0, 1, 0}, Metadata: map[string]string{"group": "y"}},
	}))

	require.NoError(t, p.DeleteByFilter(ctx, "test", map[string]string{"group": "x"}))

	count, err := p.Count(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestChromemPersistence(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	p, err := NewChromemProvider(ChromemConfig{PersistPath: dir})
	require.NoError(t, err)
	require.NoError(t, p.Upsert(ctx, "test", []Document{
		{ID: "a", Content: "alpha", Embedding: []float32{1, 0, 0}, Metadata: map[string]string{"group": "x"}},
	}))
	require.NoError(t, p.Close())

	reloaded, err := NewChromemProvider(ChromemConfig{PersistPath: dir})
	require.NoError(t, err)
	defer reloaded.Close()

	count, err := reloaded.Count(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// The reloaded index must serve lookups and similarity queries, not
	// just report a count.
	doc, err := reloaded.Get(ctx, "test", "a")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "alpha", doc.Content)
	assert.Equal(t, "x", doc.Metadata["group"])

	results, err := reloaded.Query(ctx, "test", []float32{1, 0, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}
