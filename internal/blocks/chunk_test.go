package blocks

import (
	"reflect"
	"testing"

	"elasticAnalytics/internal/model"
)

func TestSplitChunks(t *testing.T) {
	got, err := SplitChunks([]int64{100, 101, 102, 103, 104, 105}, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := [][]int64{
		{100, 101, 102, 103},
		{104, 105},
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("chunks mismatch: %+v != %+v", got, want)
	}
}

func TestSplitChunksEmpty(t *testing.T) {
	got, err := SplitChunks([]int64{}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no chunks, got %+v", got)
	}
}

func TestSplitChunksInvalid(t *testing.T) {
	if _, err := SplitChunks([]int64{1}, 0); err == nil {
		t.Fatalf("expected error for zero chunk size")
	}
}

func TestByTimestamp(t *testing.T) {
	got := ByTimestamp([]model.BlockRef{{Timestamp: 10, Number: 1}, {Timestamp: 30, Number: 3}})
	if got[10] != 1 || got[30] != 3 {
		t.Fatalf("unexpected index: %+v", got)
	}
	if _, ok := got[20]; ok {
		t.Fatalf("missing timestamp must stay missing")
	}
}
