// Package streamdup fans a single byte stream out to several readers that
// are fed in lockstep.
package streamdup

import (
	"context"
	"errors"
	"io"
)

// DefaultChunkSize bounds how much of the source is held in memory at once.
const DefaultChunkSize = 32 * 1024

// Duplicator copies every chunk read from a source into each of its branches
// before reading the next chunk. Branches are io.Pipe readers, so a write
// completes only once the branch consumer has taken the bytes.
//
// Branches must be consumed concurrently with Pump. A consumer that is done
// early closes its branch and stops receiving data; the remaining branches
// keep going.
type Duplicator struct {
	readers   []*io.PipeReader
	writers   []*io.PipeWriter
	chunkSize int
}

// New returns a Duplicator with n branches.
func New(n int) *Duplicator {
	return NewSize(n, DefaultChunkSize)
}

// NewSize returns a Duplicator with n branches that reads the source in
// chunks of at most chunkSize bytes.
func NewSize(n, chunkSize int) *Duplicator {
	if n < 1 {
		n = 1
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	d := &Duplicator{
		readers:   make([]*io.PipeReader, n),
		writers:   make([]*io.PipeWriter, n),
		chunkSize: chunkSize,
	}
	for i := 0; i < n; i++ {
		d.readers[i], d.writers[i] = io.Pipe()
	}
	return d
}

// Branch returns the i-th output stream.
func (d *Duplicator) Branch(i int) io.ReadCloser {
	return d.readers[i]
}

// Pump reads src until EOF and forwards each chunk to all live branches.
//
// At EOF every branch is closed normally. A read error from src is delivered
// to every branch and returned. When ctx is cancelled the branches fail with
// ctx.Err(). Once no branch is left to feed, the rest of src is discarded so
// the underlying transport can move on; Pump returns nil in that case unless
// discarding itself fails.
func (d *Duplicator) Pump(ctx context.Context, src io.Reader) error {
	stop := context.AfterFunc(ctx, func() {
		for _, w := range d.writers {
			_ = w.CloseWithError(ctx.Err())
		}
	})
	defer stop()

	live := make([]bool, len(d.writers))
	for i := range live {
		live[i] = true
	}
	remaining := len(live)

	buf := make([]byte, d.chunkSize)
	for remaining > 0 {
		n, err := src.Read(buf)
		if n > 0 {
			for i, w := range d.writers {
				if !live[i] {
					continue
				}
				if _, werr := w.Write(buf[:n]); werr != nil {
					live[i] = false
					remaining--
				}
			}
		}
		if errors.Is(err, io.EOF) {
			d.closeAll(nil)
			return nil
		}
		if err != nil {
			d.closeAll(err)
			return err
		}
	}

	d.closeAll(nil)
	if _, err := io.Copy(io.Discard, src); err != nil {
		return err
	}
	return nil
}

func (d *Duplicator) closeAll(err error) {
	for _, w := range d.writers {
		if err != nil {
			_ = w.CloseWithError(err)
			continue
		}
		_ = w.Close()
	}
}
