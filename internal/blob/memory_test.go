package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
)

func commitBlob(t *testing.T, m *Memory, id string, data []byte) {
	t.Helper()
	ctx := context.Background()
	w, err := m.Create(ctx, id)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Commit(ctx, Meta{Title: id}); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestMemoryOpenRange(t *testing.T) {
	m := NewMemory(4)
	data := []byte("0123456789abcdef")
	commitBlob(t, m, "a", data)

	tests := []struct {
		name   string
		offset int64
		length int64
		want   string
	}{
		{name: "whole", offset: 0, length: -1, want: string(data)},
		{name: "inside chunk", offset: 1, length: 2, want: "12"},
		{name: "across chunks", offset: 3, length: 6, want: "345678"},
		{name: "tail", offset: 12, length: -1, want: "cdef"},
		{name: "past end", offset: 14, length: 10, want: "ef"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			rc, err := m.Open(context.Background(), "a", tc.offset, tc.length)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer rc.Close()
			got, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if string(got) != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestMemoryChunksAndStat(t *testing.T) {
	m := NewMemory(4)
	commitBlob(t, m, "a", bytes.Repeat([]byte("x"), 10))

	info, err := m.Stat(context.Background(), "a")
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Length != 10 || info.Meta.Title != "a" {
		t.Fatalf("unexpected info: %#v", info)
	}
	if got := len(m.blobs["a"].chunks); got != 3 {
		t.Fatalf("expected 3 chunks, got %d", got)
	}
}

func TestMemoryAbortLeavesNothing(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()

	w, err := m.Create(ctx, "a")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := w.Write([]byte("partial")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if m.Pending() != 1 {
		t.Fatalf("expected one pending upload, got %d", m.Pending())
	}
	if err := w.Abort(ctx); err != nil {
		t.Fatalf("abort: %v", err)
	}

	if m.Len() != 0 || m.Pending() != 0 {
		t.Fatalf("expected empty store, got %d blobs and %d pending", m.Len(), m.Pending())
	}
	if _, err := m.Stat(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := w.Commit(ctx, Meta{}); err == nil {
		t.Fatal("expected commit after abort to fail")
	}
}

func TestMemoryDelete(t *testing.T) {
	m := NewMemory(0)
	commitBlob(t, m, "a", []byte("data"))

	ctx := context.Background()
	if err := m.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := m.Delete(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := m.Open(ctx, "a", 0, -1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on open, got %v", err)
	}
}
