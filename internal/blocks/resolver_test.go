package blocks

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alitto/pond/v2"

	"elasticAnalytics/internal/abort"
	"elasticAnalytics/internal/model"
)

var aliasPattern = regexp.MustCompile(`t(\d+):`)

// fakeBlockSubgraph answers every aliased sub-query with block ts/10, except
// timestamps listed in missing.
type fakeBlockSubgraph struct {
	mu      sync.Mutex
	calls   int
	sizes   []int
	missing map[int64]bool
	onCall  func(call int)
}

func (f *fakeBlockSubgraph) Query(ctx context.Context, query string, vars map[string]interface{}, out interface{}) error {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	if f.onCall != nil {
		f.onCall(call)
	}

	resp := map[string][]map[string]string{}
	matches := aliasPattern.FindAllStringSubmatch(query, -1)
	f.mu.Lock()
	f.sizes = append(f.sizes, len(matches))
	f.mu.Unlock()
	for _, m := range matches {
		ts, _ := strconv.ParseInt(m[1], 10, 64)
		if f.missing[ts] {
			resp["t"+m[1]] = []map[string]string{}
			continue
		}
		resp["t"+m[1]] = []map[string]string{{"number": strconv.FormatInt(ts/10, 10)}}
	}
	data, _ := json.Marshal(resp)
	return json.Unmarshal(data, out)
}

type fakeService struct {
	calls atomic.Int32
	err   error
}

func (f *fakeService) Blocks(ctx context.Context, route string, timestamps []int64) ([]model.BlockRef, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.BlockRef, 0, len(timestamps))
	for _, ts := range timestamps {
		out = append(out, model.BlockRef{Timestamp: ts, Number: uint64(ts / 10)})
	}
	return out, nil
}

func timestamps(n int) []int64 {
	out := make([]int64, 0, n)
	for i := n; i > 0; i-- {
		out = append(out, int64(1_700_000_000+i*3600))
	}
	return out
}

func TestResolveFromSubgraphChunksAndDropsMissing(t *testing.T) {
	input := timestamps(1001)
	missing := input[10]
	fake := &fakeBlockSubgraph{missing: map[int64]bool{missing: true}}
	resolver := NewResolver(model.Network{ID: "ethereum"}, Source{Subgraph: fake}, pond.NewPool(2), nil)

	refs, err := resolver.Resolve(context.Background(), input)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if fake.calls != 3 {
		t.Fatalf("expected 3 chunked requests, got %d", fake.calls)
	}
	if fake.sizes[0] != SubgraphChunkSize || fake.sizes[2] != 1 {
		t.Fatalf("unexpected chunk sizes: %v", fake.sizes)
	}
	if len(refs) != 1000 {
		t.Fatalf("expected missing timestamp dropped, got %d refs", len(refs))
	}
	for i := 1; i < len(refs); i++ {
		if refs[i-1].Timestamp >= refs[i].Timestamp {
			t.Fatalf("refs not sorted at %d", i)
		}
	}
	index := ByTimestamp(refs)
	if _, ok := index[missing]; ok {
		t.Fatalf("missing timestamp resolved")
	}
	if index[input[0]] != uint64(input[0]/10) {
		t.Fatalf("wrong block for %d", input[0])
	}
}

func TestResolveFromSubgraphAbortStopsPagination(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fake := &fakeBlockSubgraph{onCall: func(call int) {
		if call == 2 {
			cancel()
		}
	}}
	resolver := NewResolver(model.Network{ID: "ethereum"}, Source{Subgraph: fake}, pond.NewPool(2), nil)

	refs, err := resolver.Resolve(ctx, timestamps(1500))
	if !errors.Is(err, abort.ErrAborted) {
		t.Fatalf("expected abort, got %v", err)
	}
	if refs != nil {
		t.Fatalf("aborted resolve must not return data")
	}
	if fake.calls != 2 {
		t.Fatalf("expected no requests after abort, got %d", fake.calls)
	}
}

func TestResolveFromService(t *testing.T) {
	service := &fakeService{}
	network := model.Network{ID: "polygon", UseBlockService: true, BlockServiceRoute: "polygon"}
	resolver := NewResolver(network, Source{Service: service, Subgraph: &fakeBlockSubgraph{}}, pond.NewPool(4), nil)

	refs, err := resolver.Resolve(context.Background(), timestamps(120))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got := service.calls.Load(); got != 3 {
		t.Fatalf("expected 3 parallel requests, got %d", got)
	}
	if len(refs) != 120 {
		t.Fatalf("expected 120 refs, got %d", len(refs))
	}
}

func TestResolveFromServiceError(t *testing.T) {
	service := &fakeService{err: errors.New("bad gateway")}
	network := model.Network{ID: "polygon", UseBlockService: true}
	resolver := NewResolver(network, Source{Service: service}, pond.NewPool(4), nil)

	_, err := resolver.Resolve(context.Background(), timestamps(10))
	if err == nil || abort.Is(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestResolveWithoutSource(t *testing.T) {
	resolver := NewResolver(model.Network{ID: "x"}, Source{}, nil, nil)
	if _, err := resolver.Resolve(context.Background(), []int64{1}); err == nil {
		t.Fatalf("expected error without source")
	}
}

type fakeRPC struct{}

func (fakeRPC) LatestBlockNumber(ctx context.Context) (uint64, error) { return 1_000, nil }

func (fakeRPC) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	return 10_000 + number*1_000, nil
}

func TestResolveFromRPC(t *testing.T) {
	resolver := NewResolver(model.Network{ID: "bsc"}, Source{RPC: fakeRPC{}}, nil, nil)
	// 10_500 -> block 1 at 11_000 (inside window); 20_000 -> block 11 at 21_000 (outside 600s window).
	refs, err := resolver.Resolve(context.Background(), []int64{10_500, 20_000})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(refs) != 1 || refs[0].Number != 1 || refs[0].Timestamp != 10_500 {
		t.Fatalf("unexpected refs: %+v", refs)
	}
}
