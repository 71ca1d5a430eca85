package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// DefaultChunkSize matches the GridFS default chunk size.
const DefaultChunkSize = 255 * 1024

type memoryBlob struct {
	chunks [][]byte
	length int64
	meta   Meta
}

// Memory is an in-process Store that keeps blobs as fixed-size chunks.
type Memory struct {
	mu        sync.RWMutex
	blobs     map[string]*memoryBlob
	staging   map[string]struct{}
	chunkSize int
}

// NewMemory returns an empty in-memory store.
func NewMemory(chunkSize int) *Memory {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Memory{
		blobs:     make(map[string]*memoryBlob),
		staging:   make(map[string]struct{}),
		chunkSize: chunkSize,
	}
}

// Create implements Store.
func (m *Memory) Create(ctx context.Context, id string) (Writer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[id]; ok {
		return nil, fmt.Errorf("create blob %s: already exists", id)
	}
	if _, ok := m.staging[id]; ok {
		return nil, fmt.Errorf("create blob %s: upload in progress", id)
	}
	m.staging[id] = struct{}{}
	return &memoryWriter{store: m, id: id}, nil
}

// Open implements Store.
func (m *Memory) Open(ctx context.Context, id string, offset, length int64) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	b, ok := m.blobs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if offset < 0 || offset > b.length {
		return nil, fmt.Errorf("open blob %s: offset %d out of bounds", id, offset)
	}

	readers := make([]io.Reader, 0, len(b.chunks))
	for _, c := range b.chunks {
		readers = append(readers, bytes.NewReader(c))
	}
	r := io.MultiReader(readers...)
	if _, err := io.CopyN(io.Discard, r, offset); err != nil {
		return nil, fmt.Errorf("open blob %s: %w", id, err)
	}
	if length >= 0 {
		r = io.LimitReader(r, length)
	}
	return io.NopCloser(r), nil
}

// Stat implements Store.
func (m *Memory) Stat(ctx context.Context, id string) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[id]
	if !ok {
		return Info{}, ErrNotFound
	}
	return Info{ID: id, Length: b.length, Meta: b.meta}, nil
}

// Delete implements Store.
func (m *Memory) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[id]; !ok {
		return ErrNotFound
	}
	delete(m.blobs, id)
	return nil
}

// Len returns the number of committed blobs.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}

// Pending returns the number of uploads that were neither committed nor
// aborted.
func (m *Memory) Pending() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.staging)
}

var errWriterClosed = errors.New("blob writer closed")

type memoryWriter struct {
	store  *Memory
	id     string
	chunks [][]byte
	cur    []byte
	length int64
	closed bool
}

func (w *memoryWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errWriterClosed
	}
	size := w.store.chunkSize
	written := 0
	for len(p) > 0 {
		room := size - len(w.cur)
		n := len(p)
		if n > room {
			n = room
		}
		w.cur = append(w.cur, p[:n]...)
		p = p[n:]
		written += n
		if len(w.cur) == size {
			w.chunks = append(w.chunks, w.cur)
			w.cur = make([]byte, 0, size)
		}
	}
	w.length += int64(written)
	return written, nil
}

func (w *memoryWriter) Commit(ctx context.Context, meta Meta) error {
	if w.closed {
		return errWriterClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	w.closed = true
	if len(w.cur) > 0 {
		w.chunks = append(w.chunks, w.cur)
	}

	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	delete(w.store.staging, w.id)
	w.store.blobs[w.id] = &memoryBlob{chunks: w.chunks, length: w.length, meta: meta}
	return nil
}

func (w *memoryWriter) Abort(context.Context) error {
	if w.closed {
		return errWriterClosed
	}
	w.closed = true
	w.chunks = nil
	w.cur = nil

	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	delete(w.store.staging, w.id)
	return nil
}
