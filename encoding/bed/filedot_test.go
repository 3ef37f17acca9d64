// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bed

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeColMajorF64(t *testing.T, path string, offset int64, vals []float64) {
	buf := make([]byte, offset+int64(len(vals))*8)
	for i, v := range vals {
		binary.LittleEndian.PutUint64(buf[offset+int64(i)*8:], math.Float64bits(v))
	}
	require.NoError(t, os.WriteFile(path, buf, 0600))
}

func TestFileDotSmall(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.bin")
	// iid_count=2, sid_count=3, column-major: [[1,2,3],[4,5,6]]
	writeColMajorF64(t, path, 0, []float64{1, 4, 2, 5, 3, 6})

	g := make([]float64, 3*3)
	require.NoError(t, FileDot(path, 0, 2, 3, 2, 0, 0, g))

	want := []float64{17, 22, 27, 22, 29, 36, 27, 36, 45}
	for i := range want {
		require.InDelta(t, want[i], g[i], 1e-10, "index %d", i)
	}
}

func TestFileDotSymmetric(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.bin")
	iid, sid := 5, 4
	vals := make([]float64, iid*sid)
	for i := range vals {
		vals[i] = float64(i%7) - 3
	}
	writeColMajorF64(t, path, 16, vals)

	g := make([]float64, sid*sid)
	require.NoError(t, FileDot(path, 16, iid, sid, 3, 0, 0, g))

	for i := 0; i < sid; i++ {
		for j := 0; j < sid; j++ {
			require.InDelta(t, g[i*sid+j], g[j*sid+i], 1e-10)
		}
	}
}

func TestFileDotMatchesNaiveDense(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.bin")
	iid, sid := 6, 5
	vals := make([]float64, iid*sid)
	for i := range vals {
		vals[i] = math.Sin(float64(i))
	}
	writeColMajorF64(t, path, 0, vals)

	g := make([]float64, sid*sid)
	require.NoError(t, FileDot(path, 0, iid, sid, 2, 0, 0, g))

	col := func(j int) []float64 { return vals[j*iid : (j+1)*iid] }
	for i := 0; i < sid; i++ {
		for j := 0; j < sid; j++ {
			var want float64
			ci, cj := col(i), col(j)
			for k := 0; k < iid; k++ {
				want += ci[k] * cj[k]
			}
			require.InDelta(t, want, g[i*sid+j], 1e-8)
		}
	}
}
