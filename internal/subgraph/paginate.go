package subgraph

import (
	"context"

	"elasticAnalytics/internal/abort"
)

// PageSize is the largest page the subgraphs serve.
const PageSize = 1000

// Paginate calls fetch with increasing skip offsets until a page shorter than
// pageSize arrives. A failed page discards everything fetched so far.
func Paginate[T any](ctx context.Context, pageSize int, fetch func(ctx context.Context, skip int) ([]T, error)) ([]T, error) {
	if pageSize <= 0 {
		pageSize = PageSize
	}

	var all []T
	for skip := 0; ; skip += pageSize {
		if err := abort.Check(ctx); err != nil {
			return nil, err
		}
		page, err := fetch(ctx, skip)
		if err != nil {
			return nil, abort.Wrap(ctx, err)
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
	}
}
