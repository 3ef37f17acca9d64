// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bed

import (
	"github.com/ajroetker/go-highway/hwy/contrib/vec"
	"golang.org/x/exp/mmap"

	"github.com/grailbio/base/log"
)

// FileBLessAATB streams the iidCount x sidCount column-major float64 matrix
// A at byteOffset inside the file at path once, computing:
//
//	aTb  = Aᵀ · bRight   (sidCount x bCols, column-major, into aTb)
//	aaTb = bLeft - A·aTb (iidCount x bCols, column-major, into bLeft)
//
// bRight is an untouched column-major copy of B (column j at
// bRight[j*iidCount:(j+1)*iidCount]) used as the dot-product operand; bLeft
// is a second, mutated column-major copy of B that becomes aaTb in place, so
// no separate aaTb buffer is allocated on top of the two copies of B. aTb's
// column j
// occupies aTb[j*sidCount : (j+1)*sidCount].
//
// For each column i of A, aTb's row i (one entry per B column) is
// aᵢᵀ·bRight[:,j], then bLeft is rank-1-updated: bLeft[:,j] -= aTb[i,j]·aᵢ.
// Both steps parallelize over the bCols dimension via the shared
// ThreadPool, since those columns are independent of one another within a
// single streamed column of A.
func FileBLessAATB(path string, byteOffset int64, iidCount, sidCount, bCols, threads, logFrequency int, bRight, bLeft, aTb []float64) error {
	if len(bRight) != iidCount*bCols {
		return newError(InvalidConfiguration, "bRight length", len(bRight), "does not match", iidCount, "x", bCols)
	}
	if len(bLeft) != iidCount*bCols {
		return newError(InvalidConfiguration, "bLeft length", len(bLeft), "does not match", iidCount, "x", bCols)
	}
	if len(aTb) != sidCount*bCols {
		return newError(InvalidConfiguration, "aTb length", len(aTb), "does not match", sidCount, "x", bCols)
	}
	if iidCount == 0 || sidCount == 0 || bCols == 0 {
		return nil
	}

	r, err := mmap.Open(path)
	if err != nil {
		return newError(IOError, err, path)
	}
	defer func() { _ = r.Close() }()

	pool := &ThreadPool{Threads: 0}

	for i := 0; i < sidCount; i++ {
		off := byteOffset + int64(i)*int64(iidCount)*8
		raw := make([]byte, iidCount*8)
		if _, err := r.ReadAt(raw, off); err != nil {
			return newError(IOError, err, path)
		}
		aCol := make([]float64, iidCount)
		vec.BaseDecodeFloat64s(aCol, raw)

		dots := make([]float64, bCols)
		var oerr orderedErr
		runErr := pool.RunParallelFor(bCols, threads, func(_ int, start, end int) error {
			for j := start; j < end; j++ {
				dots[j] = vec.BaseDot(aCol, bRight[j*iidCount:(j+1)*iidCount])
				aTb[j*sidCount+i] = dots[j]
			}
			return nil
		})
		if runErr != nil {
			oerr.set(-1, runErr)
		}
		if err := oerr.Err(); err != nil {
			return err
		}

		runErr = pool.RunParallelFor(bCols, threads, func(_ int, start, end int) error {
			for j := start; j < end; j++ {
				vec.BaseMulConstAddTo(bLeft[j*iidCount:(j+1)*iidCount], -dots[j], aCol)
			}
			return nil
		})
		if runErr != nil {
			oerr.set(-1, runErr)
		}
		if err := oerr.Err(); err != nil {
			return err
		}

		if logFrequency > 0 && (i+1)%logFrequency == 0 {
			log.Debug.Printf("FileBLessAATB: streamed column %d of %d from %s", i+1, sidCount, path)
		}
	}
	return nil
}
