// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bed

import "fmt"

// Index selects a set of positions along one dimension (individuals or
// variants) for a subset read or write. It is already canonicalized integer
// positions by the time it reaches this package: negative-index
// normalization, slice expansion, and boolean-mask conversion are the
// externally-owned wrapper's job, not this package's.
type Index struct {
	all      bool
	positions []int
}

// All selects every position 0..n-1 along a dimension, without materializing
// the array until Resolve is called.
func All() Index { return Index{all: true} }

// Positions selects exactly the given positions, in the given order.
// Duplicates and arbitrary order are allowed; each produces its own output
// row/column.
func Positions(p []int) Index { return Index{positions: p} }

// Resolve validates and materializes the index against a dimension of size
// n, returning IndexOutOfBounds if any position falls outside [0, n), and
// IndexTooLarge if an explicit Positions array's length exceeds the positive
// 32-bit range (a soft limit on the dense path). All() is not length-checked.
func (x Index) Resolve(n int) ([]int, error) {
	if x.all {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out, nil
	}
	if len(x.positions) > math32PosMax {
		return nil, newError(IndexTooLarge, fmt.Sprintf("index array length %d exceeds %d", len(x.positions), math32PosMax))
	}
	for _, v := range x.positions {
		if v < 0 || v >= n {
			return nil, newError(IndexOutOfBounds, fmt.Sprintf("index %d out of bounds [0, %d)", v, n))
		}
	}
	return x.positions, nil
}

// Len reports the number of positions this index resolves to against a
// dimension of size n, without validating bounds.
func (x Index) Len(n int) int {
	if x.all {
		return n
	}
	return len(x.positions)
}

// math32PosMax is the largest positive value representable in a signed
// 32-bit integer, the soft cap on index array length.
const math32PosMax = 1<<31 - 1
