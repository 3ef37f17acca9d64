// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bed

import (
	"github.com/ajroetker/go-highway/hwy/contrib/vec"
	"golang.org/x/exp/mmap"

	"github.com/grailbio/base/log"
)

// FileDot computes G = AᵀA for an iidCount x sidCount column-major float64
// matrix stored at byteOffset inside the file at path. Only the lower
// triangle (plus the diagonal blocks) is computed directly; the upper
// triangle is mirrored from it, so
// callers pay for roughly half the multiply-adds a naive dense AᵀA would
// cost. g must have length sidCount*sidCount and is filled in row-major
// order (g[i*sidCount+j] == G[i][j]).
//
// sidStep chooses the block-column width: each block computes a
// (sidCount-s) x w panel of G[s:, s:s+w] with the left operand streamed from
// the memory-mapped file column by column and the right operand a
// contiguous in-memory slab, so A may be larger than RAM while the working
// set per block stays bounded by sidStep columns.
//
// When logFrequency is positive, a debug line is emitted every logFrequency
// block-columns; this is a side effect only, and correctness never depends
// on it firing.
func FileDot(path string, byteOffset int64, iidCount, sidCount, sidStep, threads, logFrequency int, g []float64) error {
	if sidStep <= 0 {
		return newError(InvalidConfiguration, "sidStep must be positive:", sidStep)
	}
	if len(g) != sidCount*sidCount {
		return newError(InvalidConfiguration, "output buffer length", len(g), "does not match", sidCount, "x", sidCount)
	}
	if iidCount == 0 || sidCount == 0 {
		return nil
	}

	r, err := mmap.Open(path)
	if err != nil {
		return newError(IOError, err, path)
	}
	defer func() { _ = r.Close() }()

	col := func(j int, dst []float64) error {
		off := byteOffset + int64(j)*int64(iidCount)*8
		raw := make([]byte, iidCount*8)
		if _, err := r.ReadAt(raw, off); err != nil {
			return newError(IOError, err, path)
		}
		vec.BaseDecodeFloat64s(dst, raw)
		return nil
	}

	pool := &ThreadPool{Threads: 0}
	blockIdx := 0
	for s := 0; s < sidCount; s += sidStep {
		w := sidStep
		if s+w > sidCount {
			w = sidCount - s
		}
		right := make([]float64, w*iidCount)
		for k := 0; k < w; k++ {
			if err := col(s+k, right[k*iidCount:(k+1)*iidCount]); err != nil {
				return err
			}
		}

		nRowBlocks := sidCount - s
		var oerr orderedErr
		runErr := pool.RunParallelFor(nRowBlocks, threads, func(_ int, start, end int) error {
			left := make([]float64, iidCount)
			for ri := start; ri < end; ri++ {
				row := s + ri
				if err := col(row, left); err != nil {
					oerr.set(ri, err)
					return nil
				}
				for k := 0; k < w; k++ {
					g[row*sidCount+(s+k)] = vec.BaseDot(left, right[k*iidCount:(k+1)*iidCount])
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

		blockIdx++
		if logFrequency > 0 && blockIdx%logFrequency == 0 {
			log.Debug.Printf("FileDot: completed block-column %d (s=%d, w=%d) of %s", blockIdx, s, w, path)
		}
	}

	for i := 0; i < sidCount; i++ {
		for j := i + 1; j < sidCount; j++ {
			g[i*sidCount+j] = g[j*sidCount+i]
		}
	}
	return nil
}
