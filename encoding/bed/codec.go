// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package bed decodes and encodes PLINK 1.x .bed genotype matrices: a
// compact, bit-packed binary format used in statistical genetics. It exposes
// the matrix as dense, typed, row/column-subselected arrays, decoded across
// a worker pool with a memory budget independent of the requested subset's
// physical layout.
//
// Two companion numerical routines, FileDot and FileBLessAATB, operate on
// large memory-mapped float64 matrices and share the same threading and
// chunking discipline as the genotype decoder.
package bed

import (
	"fmt"
	"math"
)

// magic0 and magic1 open the three-byte .bed header; the third byte is the
// mode byte, snpMajorByte or individualMajorByte.
const (
	magic0 = 0x6C
	magic1 = 0x1B
	snpMajorByte = 0x01
	individualMajorByte = 0x00
)

// MissingI8 is the sentinel value written into i8 output cells for a missing
// genotype call.
const MissingI8 = int8(-127)

// Dtype is the element type of a Read output buffer or Write input buffer.
type Dtype int

const (
	// I8 represents genotype codes as int8, with MissingI8 for missing.
	I8 Dtype = iota
	// F32 represents genotype codes as float32, with NaN for missing.
	F32
	// F64 represents genotype codes as float64, with NaN for missing.
	F64
)

func (d Dtype) String() string {
	switch d {
	case I8:
		return "i8"
	case F32:
		return "f32"
	case F64:
		return "f64"
	default:
		return fmt.Sprintf("Dtype(%d)", int(d))
	}
}

// ParseDtype maps the external dtype names ("i8", "f32", "f64") to a Dtype.
// Any other name is UnsupportedDtype.
func ParseDtype(s string) (Dtype, error) {
	switch s {
	case "i8":
		return I8, nil
	case "f32":
		return F32, nil
	case "f64":
		return F64, nil
	default:
		return 0, newError(UnsupportedDtype, "unsupported dtype:", s)
	}
}

// Layout is the memory layout of a Read output buffer or Write input buffer.
type Layout int

const (
	// ColMajor is "F": the buffer is variant-major (Fortran order); column k
	// (a variant) occupies a contiguous run of len(rowIndex) cells.
	ColMajor Layout = iota
	// RowMajor is "C": the buffer is individual-major (C order); row r
	// occupies a contiguous run of len(variantIndex) cells.
	RowMajor
)

func (l Layout) String() string {
	switch l {
	case ColMajor:
		return "F"
	case RowMajor:
		return "C"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// ParseLayout maps the external layout strings ("F", "C") to a Layout. Any
// other string is UnsupportedLayout.
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "F":
		return ColMajor, nil
	case "C":
		return RowMajor, nil
	default:
		return 0, newError(UnsupportedLayout, "unsupported layout:", s)
	}
}

// ValidateHeader checks the three-byte .bed magic prefix. hdr must have
// length >= 3; any shorter slice is NotBed.
func ValidateHeader(hdr []byte) error {
	if len(hdr) < 3 {
		return newError(NotBed, "file shorter than the 3-byte .bed header")
	}
	if hdr[0] != magic0 || hdr[1] != magic1 {
		return newError(NotBed, fmt.Sprintf("bad magic bytes: %#x %#x", hdr[0], hdr[1]))
	}
	switch hdr[2] {
	case snpMajorByte:
		return nil
	case individualMajorByte:
		return newError(NotSnpMajor, "file is individual-major; only SNP-major .bed files are supported")
	default:
		return newError(NotBed, fmt.Sprintf("unrecognized mode byte: %#x", hdr[2]))
	}
}

// BytesPerVariant returns the number of on-disk bytes occupied by one
// variant's block: ceil(iidCount / 4).
func BytesPerVariant(iidCount int) int {
	return (iidCount + 3) >> 2
}

// variantByteOffset returns the byte offset of variant v's block, counting
// from the start of the file (i.e. including the 3-byte header).
func variantByteOffset(v, bytesPerVariant int) int64 {
	return 3 + int64(v)*int64(bytesPerVariant)
}

// rawCountsA1 gives the standard-counting (A1-counted) value for each of the
// four raw 2-bit codes 0..3. NaN marks
// missing; callers specialize it per Dtype.
var rawCountsA1 = [4]float64{2, math.NaN(), 1, 0}

// rawCountsA2 is rawCountsA1 with homozygous calls (raw 0 and 3) swapped, as
// counting A2 instead of A1 swaps homozygous calls.
var rawCountsA2 = [4]float64{0, math.NaN(), 1, 2}

func rawCounts(countA1 bool) [4]float64 {
	if countA1 {
		return rawCountsA1
	}
	return rawCountsA2
}

// decodeTableF64 builds the 256-entry byte decode table for dtype F64: for
// every possible on-disk byte, the four decoded values of the individuals it
// packs, in bit-position order. Building this once per call amortizes the
// raw-code lookup over however many variant bytes get read.
func decodeTableF64(countA1 bool) *[256][4]float64 {
	counts := rawCounts(countA1)
	var table [256][4]float64
	for b := 0; b < 256; b++ {
		for sub := 0; sub < 4; sub++ {
			raw := (b >> uint(2*sub)) & 3
			table[b][sub] = counts[raw]
		}
	}
	return &table
}

func decodeTableF32(countA1 bool) *[256][4]float32 {
	src := decodeTableF64(countA1)
	var table [256][4]float32
	for b := 0; b < 256; b++ {
		for sub := 0; sub < 4; sub++ {
			table[b][sub] = float32(src[b][sub])
		}
	}
	return &table
}

func decodeTableI8(countA1 bool) *[256][4]int8 {
	src := decodeTableF64(countA1)
	var table [256][4]int8
	for b := 0; b < 256; b++ {
		for sub := 0; sub < 4; sub++ {
			v := src[b][sub]
			if math.IsNaN(v) {
				table[b][sub] = MissingI8
			} else {
				table[b][sub] = int8(v)
			}
		}
	}
	return &table
}

// encodeRawA1 maps a standard-counted (A1) genotype value and the missing
// sentinel back to its raw 2-bit on-disk code. It is the Writer's inverse of
// rawCountsA1. ok is false for any other value (InvalidGenotype).
func encodeRawA1(v float64, isMissing bool) (byte, bool) {
	if isMissing {
		return 1, true
	}
	switch v {
	case 2:
		return 0, true
	case 1:
		return 2, true
	case 0:
		return 3, true
	default:
		return 0, false
	}
}

// encodeRawA2 is encodeRawA1 with the A1/A2 swap applied.
func encodeRawA2(v float64, isMissing bool) (byte, bool) {
	if isMissing {
		return 1, true
	}
	switch v {
	case 0:
		return 0, true
	case 1:
		return 2, true
	case 2:
		return 3, true
	default:
		return 0, false
	}
}
