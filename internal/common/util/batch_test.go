package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatchSizes(t *testing.T) {
	assert.Equal(t, []int{0}, BatchSizes(0, 1))
	assert.Equal(t, []int{10}, BatchSizes(10, 1))
	assert.Equal(t, []int{10}, BatchSizes(10, 0))
	assert.Equal(t, []int{10}, BatchSizes(10, -3))
	assert.Equal(t, []int{25, 25, 25, 25}, BatchSizes(100, 4))
	assert.Equal(t, []int{3, 3, 4}, BatchSizes(10, 3))
	assert.Equal(t, []int{1, 1, 1, 4}, BatchSizes(7, 4))
	assert.Equal(t, []int{0, 0, 0, 0, 3}, BatchSizes(3, 5))
	assert.Equal(t, []int{0}, BatchSizes(-1, 1))
}

func TestBatchSizes_SumsToTotal(t *testing.T) {
	for total := 1; total <= 200; total++ {
		for workers := 1; workers <= 16; workers++ {
			batches := BatchSizes(total, workers)
			if workers > 1 {
				assert.Len(t, batches, workers)
			}

			sum := 0
			for i, b := range batches {
				assert.GreaterOrEqual(t, b, 0)
				if i < len(batches)-1 {
					assert.Equal(t, batches[0], b, "only the final batch may differ")
				}
				sum += b
			}
			assert.Equal(t, total, sum, "total=%d workers=%d", total, workers)
			assert.GreaterOrEqual(t, batches[len(batches)-1], batches[0])
		}
	}
}
