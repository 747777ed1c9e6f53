package util

// BatchSizes splits total into one batch per worker. Every batch holds floor(total/workers)
// items except the last, which also takes the remainder, so the sizes always sum to total.
// A single worker (or fewer) gets the whole total in one batch.
func BatchSizes(total int, workers int) []int {
	if total < 0 {
		total = 0
	}
	if workers <= 1 {
		return []int{total}
	}

	batchSize := total / workers
	batches := make([]int, workers)
	for i := 0; i < workers-1; i++ {
		batches[i] = batchSize
	}
	batches[workers-1] = total - batchSize*(workers-1)
	return batches
}
