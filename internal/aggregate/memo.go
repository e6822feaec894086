package aggregate

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"elasticAnalytics/internal/abort"
)

// Memoizer shares one in-flight fetch between callers asking for the same
// key. Settled results are not kept; the next call starts a fresh fetch.
type Memoizer struct {
	group singleflight.Group
}

// MemoKey builds the de-duplication key for an operation on a network.
func MemoKey(operation, networkID string, parts ...interface{}) string {
	key := operation + ":" + networkID
	for _, p := range parts {
		key += fmt.Sprintf(":%v", p)
	}
	return key
}

// Start joins the fetch in flight for key or starts fn with ctx. The fetch
// runs with the context of the caller that started it.
func (m *Memoizer) Start(ctx context.Context, key string, fn func(ctx context.Context) (interface{}, error)) <-chan singleflight.Result {
	return m.group.DoChan(key, func() (interface{}, error) {
		return fn(ctx)
	})
}

// Forget drops key so the next caller starts a new fetch.
func (m *Memoizer) Forget(key string) {
	m.group.Forget(key)
}

// Memo runs fn through m under key and waits for the shared result or for
// ctx to end. While ctx is live, a shared fetch aborted by the caller that
// started it is restarted; an abort from a fetch this call started is returned.
func Memo[T any](ctx context.Context, m *Memoizer, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	for {
		started := false
		ch := m.Start(ctx, key, func(ctx context.Context) (interface{}, error) {
			started = true
			return fn(ctx)
		})
		select {
		case <-ctx.Done():
			return zero, abort.Check(ctx)
		case res := <-ch:
			if res.Err != nil {
				if abort.Is(res.Err) && !started && ctx.Err() == nil {
					continue
				}
				return zero, abort.Wrap(ctx, res.Err)
			}
			return res.Val.(T), nil
		}
	}
}
