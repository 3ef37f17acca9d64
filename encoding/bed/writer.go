// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bed

import (
	"context"
	"os"
	"path/filepath"
)

// Write encodes in (one of []int8, []float32, or []float64, shaped
// nRows x nVariants per layout) into a freshly written .bed file at path, with
// declared geometry (iidCount, sidCount). nRows and nVariants must equal
// iidCount and sidCount: unlike Read, Write always populates the full matrix
// in one call; there is no partial/subset write path.
//
// The file is written to a temporary sibling of path and renamed into place
// on success, so a reader never observes a partially written .bed file and a
// failed Write never clobbers an existing one. This requires path to name a
// real local file: os.Rename's atomicity guarantee does not extend to every
// backend file.Open/file.Create can reach (an S3 key has no atomic rename),
// so Write bypasses the file package entirely rather than offer an atomicity
// guarantee it could not uniformly honor.
func Write(ctx context.Context, path string, iidCount, sidCount int, countA1 bool, layout Layout, threads int, in interface{}) error {
	if layout != ColMajor && layout != RowMajor {
		return newError(UnsupportedLayout, "unsupported layout value:", int(layout))
	}
	if iidCount < 0 || sidCount < 0 {
		return newError(InvalidConfiguration, "negative geometry:", iidCount, sidCount)
	}
	wantLen := iidCount * sidCount

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".bed-tmp-*")
	if err != nil {
		return newError(IOError, err, path)
	}
	tmpPath := tmp.Name()
	succeeded := false
	defer func() {
		_ = tmp.Close()
		if !succeeded {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write([]byte{magic0, magic1, snpMajorByte}); err != nil {
		return newError(IOError, err, tmpPath)
	}

	bpv := BytesPerVariant(iidCount)
	encode, err := writeEncoder(in, wantLen, countA1, layout, iidCount, sidCount)
	if err != nil {
		return err
	}

	pool := &ThreadPool{Threads: 0}
	var oerr orderedErr
	runErr := pool.RunParallelFor(sidCount, threads, func(_ int, start, end int) error {
		raw := make([]byte, bpv)
		for v := start; v < end; v++ {
			for i := range raw {
				raw[i] = 0
			}
			for r := 0; r < iidCount; r++ {
				code, ok := encode(r, v)
				if !ok {
					oerr.set(v, newError(InvalidGenotype, "genotype value at row", r, "variant", v, "is not one of {0, 1, 2, missing}"))
					return nil
				}
				raw[r>>2] |= code << uint(2*(r&3))
			}
			if _, err := tmp.WriteAt(raw, variantByteOffset(v, bpv)); err != nil {
				oerr.set(v, newError(IOError, err, tmpPath))
				return nil
			}
		}
		return nil
	})
	if runErr != nil {
		oerr.set(-1, runErr)
	}
	if err := oerr.Err(); err != nil {
		return err
	}

	if err := tmp.Sync(); err != nil {
		return newError(IOError, err, tmpPath)
	}
	if err := tmp.Close(); err != nil {
		return newError(IOError, err, tmpPath)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return newError(IOError, err, path)
	}
	succeeded = true
	return nil
}

// writeEncoder returns a function giving the raw 2-bit code for logical cell
// (row, variant) in in, dispatched on in's concrete type the same way Read
// dispatches its decode table. ok is false when the source value cannot be
// represented (InvalidGenotype is raised by the caller, not here, so the
// failing (row, variant) can be named in the error).
func writeEncoder(in interface{}, wantLen int, countA1 bool, layout Layout, nRows, nVariants int) (func(r, v int) (byte, bool), error) {
	encodeRaw := encodeRawA1
	if !countA1 {
		encodeRaw = encodeRawA2
	}
	switch buf := in.(type) {
	case []int8:
		if len(buf) != wantLen {
			return nil, newError(InvalidConfiguration, "input buffer length", len(buf), "does not match shape", nRows, "x", nVariants)
		}
		return func(r, v int) (byte, bool) {
			x := buf[cellIndex(layout, r, v, nRows, nVariants)]
			return encodeRaw(float64(x), x == MissingI8)
		}, nil
	case []float32:
		if len(buf) != wantLen {
			return nil, newError(InvalidConfiguration, "input buffer length", len(buf), "does not match shape", nRows, "x", nVariants)
		}
		return func(r, v int) (byte, bool) {
			x := buf[cellIndex(layout, r, v, nRows, nVariants)]
			return encodeRaw(float64(x), isNaN32(x))
		}, nil
	case []float64:
		if len(buf) != wantLen {
			return nil, newError(InvalidConfiguration, "input buffer length", len(buf), "does not match shape", nRows, "x", nVariants)
		}
		return func(r, v int) (byte, bool) {
			x := buf[cellIndex(layout, r, v, nRows, nVariants)]
			return encodeRaw(x, isNaN64(x))
		}, nil
	default:
		return nil, newError(UnsupportedDtype, "unsupported input buffer type")
	}
}

func isNaN32(f float32) bool { return f != f }
func isNaN64(f float64) bool { return f != f }
