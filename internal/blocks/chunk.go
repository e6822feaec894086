package blocks

import (
	"fmt"
	"sort"

	"elasticAnalytics/internal/model"
)

// SplitChunks splits items into consecutive batches of at most size elements.
func SplitChunks[T any](items []T, size int) ([][]T, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be greater than zero")
	}

	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks, nil
}

// ByTimestamp indexes resolved blocks by their requested timestamp. Resolved
// lists drop unmatched timestamps, so positions never line up with the input.
func ByTimestamp(refs []model.BlockRef) map[int64]uint64 {
	out := make(map[int64]uint64, len(refs))
	for _, ref := range refs {
		out[ref.Timestamp] = ref.Number
	}
	return out
}

func uniqueSorted(timestamps []int64) []int64 {
	seen := make(map[int64]struct{}, len(timestamps))
	out := make([]int64, 0, len(timestamps))
	for _, ts := range timestamps {
		if _, ok := seen[ts]; ok {
			continue
		}
		seen[ts] = struct{}{}
		out = append(out, ts)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
