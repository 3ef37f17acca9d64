// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bed

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bed")

	iid, sid := 4, 3
	in := []float64{
		2, 1, 0, math.NaN(),
		0, 1, 2, 0,
		math.NaN(), math.NaN(), 1, 2,
	}
	require.NoError(t, Write(context.Background(), path, iid, sid, true, ColMajor, 0, in))

	ctx := context.Background()
	h, err := NewHandle(ctx, path, iid, sid, false, 0)
	require.NoError(t, err)

	out := make([]float64, iid*sid)
	require.NoError(t, Read(ctx, h, All(), All(), true, ColMajor, 0, out))

	for i := range in {
		if math.IsNaN(in[i]) {
			require.True(t, math.IsNaN(out[i]), "index %d", i)
			continue
		}
		require.Equal(t, in[i], out[i], "index %d", i)
	}
}

func TestWriteRejectsInvalidGenotype(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bed")

	in := []float64{0, 1, 2, 3}
	err := Write(context.Background(), path, 4, 1, true, ColMajor, 0, in)
	require.Error(t, err)
	require.True(t, Is(err, InvalidGenotype))

	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr), "failed write must not leave a partial file")
}

func TestWriteDoesNotClobberOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bed")
	writeRawBed(t, path)
	original, err := os.ReadFile(path)
	require.NoError(t, err)

	in := []float64{0, 1, 2, 3}
	err = Write(context.Background(), path, 4, 1, true, ColMajor, 0, in)
	require.Error(t, err)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, original, after)
}
