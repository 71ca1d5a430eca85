package streaming

import (
	"errors"
	"testing"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		name   string
		header string
		size   int64
		want   Range
	}{
		{name: "open end", header: "bytes=100-", size: 1000, want: Range{Start: 100, End: 999}},
		{name: "suffix", header: "bytes=-100", size: 1000, want: Range{Start: 900, End: 999}},
		{name: "both bounds", header: "bytes=200-300", size: 1000, want: Range{Start: 200, End: 300}},
		{name: "no header", header: "", size: 1000, want: Range{Start: 0, End: 999}},
		{name: "bare dash", header: "bytes=-", size: 1000, want: Range{Start: 0, End: 999}},
		{name: "end clamped", header: "bytes=900-5000", size: 1000, want: Range{Start: 900, End: 999}},
		{name: "suffix beyond size", header: "bytes=-5000", size: 1000, want: Range{Start: 0, End: 999}},
		{name: "first of many", header: "bytes=0-9, 20-29", size: 1000, want: Range{Start: 0, End: 9}},
		{name: "last byte", header: "bytes=999-", size: 1000, want: Range{Start: 999, End: 999}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseRange(tc.header, tc.size)
			if err != nil {
				t.Fatalf("parse %q: %v", tc.header, err)
			}
			if got != tc.want {
				t.Fatalf("parse %q: expected %+v, got %+v", tc.header, tc.want, got)
			}
		})
	}
}

func TestParseRangeNotSatisfiable(t *testing.T) {
	tests := []struct {
		name   string
		header string
		size   int64
	}{
		{name: "start beyond size", header: "bytes=1000-", size: 1000},
		{name: "end before start", header: "bytes=300-200", size: 1000},
		{name: "wrong unit", header: "items=0-10", size: 1000},
		{name: "garbage", header: "bytes=abc", size: 1000},
		{name: "negative start", header: "bytes=--5", size: 1000},
		{name: "zero suffix", header: "bytes=-0", size: 1000},
		{name: "empty file", header: "", size: 0},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseRange(tc.header, tc.size); !errors.Is(err, ErrRangeNotSatisfiable) {
				t.Fatalf("expected ErrRangeNotSatisfiable, got %v", err)
			}
		})
	}
}

func TestRangeLength(t *testing.T) {
	if got := (Range{Start: 200, End: 300}).Length(); got != 101 {
		t.Fatalf("expected 101, got %d", got)
	}
	if got := (Range{Start: 999, End: 999}).Length(); got != 0 {
		t.Fatalf("expected 0 for coinciding bounds, got %d", got)
	}
	if got := (Range{Start: 900, End: 999}).ContentRange(1000); got != "bytes 900-999/1000" {
		t.Fatalf("unexpected content range %q", got)
	}
}
