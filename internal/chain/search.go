package chain

import (
	"context"
	"fmt"

	"elasticAnalytics/internal/abort"
)

// TimestampSource is what block search needs from an RPC node.
type TimestampSource interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
}

// SearchFirstBlockAfter binary-searches [0, latest] for the first block whose
// timestamp is strictly greater than ts. ok is false when no such block exists.
func SearchFirstBlockAfter(ctx context.Context, src TimestampSource, ts uint64, latest uint64) (number uint64, blockTs uint64, ok bool, err error) {
	if src == nil {
		return 0, 0, false, fmt.Errorf("timestamp source is nil")
	}

	headTs, err := src.BlockTimestamp(ctx, latest)
	if err != nil {
		return 0, 0, false, abort.Wrap(ctx, fmt.Errorf("block %d timestamp: %w", latest, err))
	}
	if headTs <= ts {
		return 0, 0, false, nil
	}

	lo, hi := uint64(0), latest
	found := headTs
	for lo < hi {
		if err := abort.Check(ctx); err != nil {
			return 0, 0, false, err
		}
		mid := lo + (hi-lo)/2
		midTs, err := src.BlockTimestamp(ctx, mid)
		if err != nil {
			return 0, 0, false, abort.Wrap(ctx, fmt.Errorf("block %d timestamp: %w", mid, err))
		}
		if midTs > ts {
			hi = mid
			found = midTs
		} else {
			lo = mid + 1
		}
	}
	if lo == latest {
		found = headTs
	}
	return lo, found, true, nil
}
