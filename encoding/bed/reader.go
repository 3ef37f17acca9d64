// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bed

import (
	"context"
	"io"
	"sync"

	"github.com/grailbio/base/file"
)

// Handle is an open .bed file: its path and declared geometry, plus the
// lazily-validated header state. A Handle has no other cached state; per
// property values are not memoized beyond the header check
// itself.
type Handle struct {
	// Path is the .bed file's path. It is opened through
	// github.com/grailbio/base/file, so a local path and a registered
	// remote scheme (e.g. an s3file-registered "s3://...") are both
	// accepted transparently; this package implements neither transport
	// itself.
	Path string
	// IidCount and SidCount are the matrix's declared dimensions: the
	// individual (row) and variant (column) counts.
	IidCount, SidCount int
	// Threads is the handle-level thread count override (0 = unset; see
	// EffectiveThreads).
	Threads int

	headerOnce sync.Once
	headerErr  error
}

// NewHandle opens a .bed handle for path with the given declared geometry.
// Unless skipFormatCheck is set, the three-byte header (and the file's
// overall size against the declared geometry) is validated immediately. If
// skipFormatCheck is set, that validation is deferred to the first Read
// call that selects a non-empty region, producing the same error kinds
// either way.
func NewHandle(ctx context.Context, path string, iidCount, sidCount int, skipFormatCheck bool, threads int) (*Handle, error) {
	h := &Handle{Path: path, IidCount: iidCount, SidCount: sidCount, Threads: threads}
	if !skipFormatCheck {
		if err := h.ensureHeader(ctx); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// ensureHeader validates the header and file geometry exactly once,
// regardless of how many times it or Read is called, via sync.Once — the
// the double-checked pattern used for cached
// handle-level metadata.
func (h *Handle) ensureHeader(ctx context.Context) error {
	h.headerOnce.Do(func() {
		h.headerErr = h.validateHeaderAndSize(ctx)
	})
	return h.headerErr
}

func (h *Handle) validateHeaderAndSize(ctx context.Context) error {
	f, err := file.Open(ctx, h.Path)
	if err != nil {
		return newError(IOError, err, h.Path)
	}
	defer func() { _ = f.Close(ctx) }()
	r, ok := f.Reader(ctx).(io.ReadSeeker)
	if !ok {
		return newError(IOError, "file reader for", h.Path, "does not support seeking")
	}
	var hdr [3]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return newError(NotBed, "file shorter than the 3-byte .bed header:", h.Path)
		}
		return newError(IOError, err, h.Path)
	}
	if err := ValidateHeader(hdr[:]); err != nil {
		return err
	}
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return newError(IOError, err, h.Path)
	}
	want := 3 + int64(h.SidCount)*int64(BytesPerVariant(h.IidCount))
	if size != want {
		return newError(Truncated, "file size", size, "does not match geometry-implied size", want, "for", h.Path)
	}
	return nil
}

// orderedErr records the error with the smallest pos ever reported to it,
// giving "first error by item order" semantics across concurrent workers —
// a stricter guarantee than github.com/grailbio/base/errors.Once's plain
// "first Set call wins", which is an acceptable tie-breaker when finish
// order, not item order, is all that matters.
type orderedErr struct {
	mu  sync.Mutex
	has bool
	pos int
	err error
}

func (o *orderedErr) set(pos int, err error) {
	if err == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.has || pos < o.pos {
		o.has, o.pos, o.err = true, pos, err
	}
}

func (o *orderedErr) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

// Read decodes the cells selected by rowIndex x variantIndex into out, which
// must be one of []int8, []float32, or []float64 with length exactly
// rowIndex.Len(h.IidCount) * variantIndex.Len(h.SidCount). Which of the
// three decides the element type dispatched to: the decoder is specialized
// per dtype only. The count_a1 choice is carried by the decode table, and
// the layout is resolved per cell by cellIndex rather than by a separate
// decoder per layout. Any other concrete type is UnsupportedDtype.
//
// threads resolves against h.Threads and the environment chain via
// EffectiveThreads. Empty output regions return immediately without opening
// the file.
func Read(ctx context.Context, h *Handle, rowIndex, variantIndex Index, countA1 bool, layout Layout, threads int, out interface{}) error {
	if layout != ColMajor && layout != RowMajor {
		return newError(UnsupportedLayout, "unsupported layout value:", int(layout))
	}
	rows, err := rowIndex.Resolve(h.IidCount)
	if err != nil {
		return err
	}
	variants, err := variantIndex.Resolve(h.SidCount)
	if err != nil {
		return err
	}
	nR, nK := len(rows), len(variants)
	if nR == 0 || nK == 0 {
		return nil
	}
	if err := h.ensureHeader(ctx); err != nil {
		return err
	}

	wantLen := len(rows) * len(variants)
	switch buf := out.(type) {
	case []int8:
		if len(buf) != wantLen {
			return newError(InvalidConfiguration, "output buffer length", len(buf), "does not match shape", len(rows), "x", len(variants))
		}
		table := decodeTableI8(countA1)
		return readShards(ctx, h, rows, variants, threads, func(k int, raw []byte) {
			for ri, j := range rows {
				buf[cellIndex(layout, ri, k, len(rows), len(variants))] = (*table)[raw[j>>2]][j&3]
			}
		})
	case []float32:
		if len(buf) != wantLen {
			return newError(InvalidConfiguration, "output buffer length", len(buf), "does not match shape", len(rows), "x", len(variants))
		}
		table := decodeTableF32(countA1)
		return readShards(ctx, h, rows, variants, threads, func(k int, raw []byte) {
			for ri, j := range rows {
				buf[cellIndex(layout, ri, k, len(rows), len(variants))] = (*table)[raw[j>>2]][j&3]
			}
		})
	case []float64:
		if len(buf) != wantLen {
			return newError(InvalidConfiguration, "output buffer length", len(buf), "does not match shape", len(rows), "x", len(variants))
		}
		table := decodeTableF64(countA1)
		return readShards(ctx, h, rows, variants, threads, func(k int, raw []byte) {
			for ri, j := range rows {
				buf[cellIndex(layout, ri, k, len(rows), len(variants))] = (*table)[raw[j>>2]][j&3]
			}
		})
	default:
		return newError(UnsupportedDtype, "unsupported output buffer type")
	}
}

// cellIndex maps a (row, variant) logical cell to its flat offset in an out
// buffer of the given layout and shape.
func cellIndex(layout Layout, ri, k, nRows, nVariants int) int {
	if layout == ColMajor {
		return k*nRows + ri
	}
	return ri*nVariants + k
}

// readShards fans variants across the shared ThreadPool, sharding over the
// variant dimension (the unit of contiguous on-disk bytes) and calls
// decode(k, raw) with each shard's raw bpv-byte variant block. Each worker
// opens its own file.File rather than sharing one, since a single
// file.File's reader is not safe to share a read position across
// goroutines. Errors are aggregated with "first by variant order"
// semantics (orderedErr).
func readShards(ctx context.Context, h *Handle, rows, variants []int, threads int, decode func(k int, raw []byte)) error {
	bpv := BytesPerVariant(h.IidCount)
	pool := &ThreadPool{Threads: h.Threads}
	var oerr orderedErr
	runErr := pool.RunParallelFor(len(variants), threads, func(_ int, start, end int) error {
		f, err := file.Open(ctx, h.Path)
		if err != nil {
			oerr.set(start, newError(IOError, err, h.Path))
			return nil
		}
		defer func() { _ = f.Close(ctx) }()
		r, ok := f.Reader(ctx).(io.ReadSeeker)
		if !ok {
			oerr.set(start, newError(IOError, "file reader for", h.Path, "does not support seeking"))
			return nil
		}
		raw := make([]byte, bpv)
		for k := start; k < end; k++ {
			off := variantByteOffset(variants[k], bpv)
			if _, err := r.Seek(off, io.SeekStart); err != nil {
				oerr.set(k, newError(IOError, err, h.Path))
				return nil
			}
			if _, err := io.ReadFull(r, raw); err != nil {
				oerr.set(k, newError(IOError, err, h.Path))
				return nil
			}
			decode(k, raw)
		}
		return nil
	})
	if runErr != nil {
		oerr.set(-1, runErr)
	}
	return oerr.Err()
}
