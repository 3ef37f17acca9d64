// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeRawBed writes a minimal .bed file for 4 individuals x 2 variants:
// variant 0 raw codes [0, 2, 3, 1] (one byte), variant 1 raw codes
// [1, 0, 2, 3] (one byte).
func writeRawBed(t *testing.T, path string) {
	body := []byte{
		magic0, magic1, snpMajorByte,
		byte(0) | byte(2)<<2 | byte(3)<<4 | byte(1)<<6,
		byte(1) | byte(0)<<2 | byte(2)<<4 | byte(3)<<6,
	}
	require.NoError(t, os.WriteFile(path, body, 0600))
}

func TestNewHandleValidatesHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.bed")
	writeRawBed(t, path)

	ctx := context.Background()
	h, err := NewHandle(ctx, path, 4, 2, false, 0)
	require.NoError(t, err)
	require.Equal(t, 4, h.IidCount)
	require.Equal(t, 2, h.SidCount)
}

func TestNewHandleRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.bed")
	require.NoError(t, os.WriteFile(path, []byte{0, 0, 0}, 0600))

	_, err := NewHandle(context.Background(), path, 4, 2, false, 0)
	require.Error(t, err)
	require.True(t, Is(err, NotBed))
}

func TestNewHandleRejectsTruncated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "short.bed")
	require.NoError(t, os.WriteFile(path, []byte{magic0, magic1, snpMajorByte, 0x00}, 0600))

	_, err := NewHandle(context.Background(), path, 4, 2, false, 0)
	require.Error(t, err)
	require.True(t, Is(err, Truncated))
}

func TestReadFullMatrixI8(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.bed")
	writeRawBed(t, path)

	ctx := context.Background()
	h, err := NewHandle(ctx, path, 4, 2, false, 0)
	require.NoError(t, err)

	out := make([]int8, 4*2)
	require.NoError(t, Read(ctx, h, All(), All(), true, ColMajor, 0, out))

	want := []int8{2, 1, 0, MissingI8, MissingI8, 2, 1, 0}
	require.Equal(t, want, out)
}

func TestReadRowMajorMatchesColMajorTranspose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.bed")
	writeRawBed(t, path)

	ctx := context.Background()
	h, err := NewHandle(ctx, path, 4, 2, false, 0)
	require.NoError(t, err)

	colMajor := make([]float64, 4*2)
	require.NoError(t, Read(ctx, h, All(), All(), true, ColMajor, 0, colMajor))

	rowMajor := make([]float64, 4*2)
	require.NoError(t, Read(ctx, h, All(), All(), true, RowMajor, 0, rowMajor))

	for r := 0; r < 4; r++ {
		for v := 0; v < 2; v++ {
			require.Equal(t, colMajor[v*4+r], rowMajor[r*2+v])
		}
	}
}

func TestReadSubsetIndices(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.bed")
	writeRawBed(t, path)

	ctx := context.Background()
	h, err := NewHandle(ctx, path, 4, 2, false, 0)
	require.NoError(t, err)

	out := make([]float64, 2*1)
	rows := Positions([]int{3, 2})
	variants := Positions([]int{1})
	require.NoError(t, Read(ctx, h, rows, variants, true, ColMajor, 0, out))
	require.Equal(t, []float64{0, 1}, out)
}

func TestReadEmptySelectionIsNoop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.bed")
	writeRawBed(t, path)

	ctx := context.Background()
	h, err := NewHandle(ctx, path, 4, 2, false, 0)
	require.NoError(t, err)

	out := make([]float64, 0)
	require.NoError(t, Read(ctx, h, Positions(nil), All(), true, ColMajor, 0, out))
}

func TestReadWrongBufferLength(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.bed")
	writeRawBed(t, path)

	ctx := context.Background()
	h, err := NewHandle(ctx, path, 4, 2, false, 0)
	require.NoError(t, err)

	out := make([]float64, 3)
	err = Read(ctx, h, All(), All(), true, ColMajor, 0, out)
	require.Error(t, err)
	require.True(t, Is(err, InvalidConfiguration))
}

func TestReadUnsupportedDtype(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.bed")
	writeRawBed(t, path)

	ctx := context.Background()
	h, err := NewHandle(ctx, path, 4, 2, false, 0)
	require.NoError(t, err)

	out := make([]int, 8)
	err = Read(ctx, h, All(), All(), true, ColMajor, 0, out)
	require.Error(t, err)
	require.True(t, Is(err, UnsupportedDtype))
}
