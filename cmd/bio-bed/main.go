// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

/*
bio-bed dumps a subset of a PLINK .bed genotype matrix to stdout as
whitespace-separated text. Its .fam/.bim sidecar files, when given, are
read only for their row counts.
*/

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"

	// Registers the s3:// file.Open/file.Create scheme, so -bed/-fam/-bim
	// accept an S3 path the same way they accept a local one.
	_ "github.com/grailbio/base/file/s3file"

	"github.com/grailbio/bio/encoding/bed"
)

var (
	iidCount   = flag.Int("iid-count", 0, "Individual (row) count")
	sidCount   = flag.Int("sid-count", 0, "Variant (column) count")
	famPath    = flag.String("fam", "", "Optional .fam sidecar path; if set, its row count replaces iid-count")
	bimPath    = flag.String("bim", "", "Optional .bim sidecar path; if set, its row count replaces sid-count")
	variantLo  = flag.Int("variant-start", 0, "First variant (column) index to dump, inclusive")
	variantHi  = flag.Int("variant-end", -1, "Last variant (column) index to dump, exclusive; -1 means sid-count")
	dtype      = flag.String("dtype", "f64", "Output element type: i8, f32, or f64")
	layout     = flag.String("layout", "F", "Output layout: F (column-major) or C (row-major)")
	countA1    = flag.Bool("count-a1", true, "Count the A1 allele rather than A2")
	threads    = flag.Int("threads", 0, "Worker count; 0 defers to PST_NUM_THREADS/NUM_THREADS/MKL_NUM_THREADS/available parallelism")
)

func bioBedUsage() {
	fmt.Printf("Usage: %s [OPTIONS] bedpath\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = bioBedUsage
	shutdown := grail.Init()
	defer shutdown()

	allArgs := flag.Args()
	nPositionalArgs := flag.NArg()
	positionalArgs := allArgs[len(allArgs)-nPositionalArgs:]
	if nPositionalArgs != 1 {
		log.Fatalf("Exactly one positional argument (bedpath) required; please check flag syntax: '%s'", strings.Join(positionalArgs, " "))
	}
	bedPath := positionalArgs[0]
	ctx := vcontext.Background()

	iid, sid := *iidCount, *sidCount
	if *famPath != "" {
		rows, err := bed.ReadFam(ctx, *famPath)
		if err != nil {
			log.Fatalf("%v", err)
		}
		iid = len(rows)
	}
	if *bimPath != "" {
		rows, err := bed.ReadBim(ctx, *bimPath)
		if err != nil {
			log.Fatalf("%v", err)
		}
		sid = len(rows)
	}
	if iid <= 0 || sid <= 0 {
		log.Fatalf("iid-count and sid-count must be known (pass -iid-count/-sid-count or -fam/-bim)")
	}

	dt, err := bed.ParseDtype(*dtype)
	if err != nil {
		log.Fatalf("%v", err)
	}
	lo, err := bed.ParseLayout(*layout)
	if err != nil {
		log.Fatalf("%v", err)
	}

	hi := *variantHi
	if hi < 0 {
		hi = sid
	}
	if *variantLo < 0 || hi > sid || *variantLo > hi {
		log.Fatalf("variant-start/variant-end out of range for sid-count=%d", sid)
	}
	variants := make([]int, hi-*variantLo)
	for i := range variants {
		variants[i] = *variantLo + i
	}

	h, err := bed.NewHandle(ctx, bedPath, iid, sid, false, *threads)
	if err != nil {
		log.Fatalf("%v", err)
	}

	rowIndex := bed.All()
	variantIndex := bed.Positions(variants)
	nRows, nCols := iid, len(variants)

	switch dt {
	case bed.I8:
		out := make([]int8, nRows*nCols)
		if err := bed.Read(ctx, h, rowIndex, variantIndex, *countA1, lo, *threads, out); err != nil {
			log.Fatalf("%v", err)
		}
		printI8(out, nRows, nCols, lo)
	case bed.F32:
		out := make([]float32, nRows*nCols)
		if err := bed.Read(ctx, h, rowIndex, variantIndex, *countA1, lo, *threads, out); err != nil {
			log.Fatalf("%v", err)
		}
		printF32(out, nRows, nCols, lo)
	case bed.F64:
		out := make([]float64, nRows*nCols)
		if err := bed.Read(ctx, h, rowIndex, variantIndex, *countA1, lo, *threads, out); err != nil {
			log.Fatalf("%v", err)
		}
		printF64(out, nRows, nCols, lo)
	}
	log.Debug.Printf("exiting")
}

func printI8(buf []int8, nRows, nCols int, lo bed.Layout) {
	for r := 0; r < nRows; r++ {
		vals := make([]string, nCols)
		for c := 0; c < nCols; c++ {
			vals[c] = fmt.Sprintf("%d", buf[flatIndex(lo, r, c, nRows, nCols)])
		}
		fmt.Println(strings.Join(vals, " "))
	}
}

func printF32(buf []float32, nRows, nCols int, lo bed.Layout) {
	for r := 0; r < nRows; r++ {
		vals := make([]string, nCols)
		for c := 0; c < nCols; c++ {
			vals[c] = fmt.Sprintf("%g", buf[flatIndex(lo, r, c, nRows, nCols)])
		}
		fmt.Println(strings.Join(vals, " "))
	}
}

func printF64(buf []float64, nRows, nCols int, lo bed.Layout) {
	for r := 0; r < nRows; r++ {
		vals := make([]string, nCols)
		for c := 0; c < nCols; c++ {
			vals[c] = fmt.Sprintf("%g", buf[flatIndex(lo, r, c, nRows, nCols)])
		}
		fmt.Println(strings.Join(vals, " "))
	}
}

func flatIndex(lo bed.Layout, r, c, nRows, nCols int) int {
	if lo == bed.ColMajor {
		return c*nRows + r
	}
	return r*nCols + c
}
