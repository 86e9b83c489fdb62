package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceGenerator_CountsPerTable(t *testing.T) {
	g := NewSequenceGenerator()
	assert.Equal(t, int64(0), g.Current("artist"))

	assert.Equal(t, int64(1), g.Next("artist"))
	assert.Equal(t, int64(2), g.Next("artist"))
	assert.Equal(t, int64(1), g.Next("painting"), "tables count independently")
	assert.Equal(t, int64(2), g.Current("artist"))
}

func TestSequenceGenerator_GeneratePK(t *testing.T) {
	g := NewSequenceGenerator()
	id := GalleryResolver().DbEntity("gallery").Attribute("id")
	require.NotNil(t, id)

	v, err := g.GeneratePK(context.Background(), nil, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	assert.Equal(t, int64(1), g.Current("gallery"))
}

func TestSequenceGenerator_Reset(t *testing.T) {
	g := NewSequenceGenerator()
	g.Next("artist")
	g.Next("artist")

	g.Reset()
	assert.Equal(t, int64(0), g.Current("artist"))
	assert.Equal(t, int64(1), g.Next("artist"))
}

func TestSequenceGenerator_ThreadSafe(t *testing.T) {
	g := NewSequenceGenerator()
	const numGoroutines = 50
	const callsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	results := make([][]int64, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		results[i] = make([]int64, callsPerGoroutine)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				results[idx][j] = g.Next("artist")
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool)
	for _, r := range results {
		for _, v := range r {
			require.False(t, seen[v], "duplicate key %d", v)
			seen[v] = true
		}
	}
	assert.Len(t, seen, numGoroutines*callsPerGoroutine)
	assert.Equal(t, int64(numGoroutines*callsPerGoroutine), g.Current("artist"))
}
