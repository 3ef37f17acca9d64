// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bed

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileBLessAATBMatchesNaiveDense(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.bin")

	iid, sid, bCols := 6, 4, 3
	aVals := make([]float64, iid*sid)
	for i := range aVals {
		aVals[i] = math.Cos(float64(i)) * 2
	}
	writeColMajorF64(t, path, 0, aVals)

	bVals := make([]float64, iid*bCols)
	for i := range bVals {
		bVals[i] = float64(i) * 0.1
	}

	aCol := func(j int) []float64 { return aVals[j*iid : (j+1)*iid] }
	bCol := func(j int) []float64 { return bVals[j*iid : (j+1)*iid] }

	// Naive dense reference: aTb = Aᵀ·B, aaTb = B - A·aTb.
	wantATb := make([]float64, sid*bCols)
	for i := 0; i < sid; i++ {
		for j := 0; j < bCols; j++ {
			var sum float64
			ai, bj := aCol(i), bCol(j)
			for k := 0; k < iid; k++ {
				sum += ai[k] * bj[k]
			}
			wantATb[j*sid+i] = sum
		}
	}
	wantAATb := make([]float64, iid*bCols)
	copy(wantAATb, bVals)
	for i := 0; i < sid; i++ {
		ai := aCol(i)
		for j := 0; j < bCols; j++ {
			coef := wantATb[j*sid+i]
			for r := 0; r < iid; r++ {
				wantAATb[j*iid+r] -= coef * ai[r]
			}
		}
	}

	bRight := make([]float64, iid*bCols)
	copy(bRight, bVals)
	bLeft := make([]float64, iid*bCols)
	copy(bLeft, bVals)
	aTb := make([]float64, sid*bCols)

	require.NoError(t, FileBLessAATB(path, 0, iid, sid, bCols, 0, 0, bRight, bLeft, aTb))

	for i := range aTb {
		require.InDelta(t, wantATb[i], aTb[i], 1e-8, "aTb index %d", i)
	}
	for i := range bLeft {
		require.InDelta(t, wantAATb[i], bLeft[i], 1e-8, "aaTb index %d", i)
	}
}
