package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartitionMap(t *testing.T) {
	pm := NewPartitionMap(4, 10)
	var total int
	prevEnd := 0
	for n := 0; n < 4; n++ {
		kMin, kMax := pm.GetBucketRange(n)
		assert.Equal(t, prevEnd, kMin)
		prevEnd = kMax
		dim := pm.GetBucketDimension(n)
		assert.Equal(t, kMax-kMin, dim)
		// Imbalance of at most one item.
		assert.True(t, dim == 2 || dim == 3)
		total += dim
	}
	assert.Equal(t, 10, total)
	assert.Equal(t, 10, pm.GetBucketDimension(-1))
}

func TestIndex(t *testing.T) {
	r := NewRange(3, 7)
	assert.Equal(t, Index{3, 4, 5, 6, 7}, r)
	assert.True(t, r.Contains(5))
	assert.False(t, r.Contains(8))
	assert.Equal(t, 4, len(NewIndex(4)))
}
