// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bed

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
)

// FamRow is one row of a .fam sidecar file: per-individual metadata. Missing
// values use the file format's own sentinels ("0" for father/mother id and
// phenotype, 0 for sex) rather than Go zero values with a separate
// "is missing" flag, matching the file's own convention.
type FamRow struct {
	FamilyID     string
	IndividualID string
	FatherID     string
	MotherID     string
	Sex          int8
	Phenotype    string
}

// ReadFam reads every row of a whitespace-separated .fam file at path:
// family id, individual id, father id, mother id, sex, phenotype, in that
// column order. The returned row count is the matrix's iid_count.
//
// .fam fields are whitespace-separated, not strictly tab-separated, so this
// reads with bufio.Scanner + strings.Fields rather than tsv.Reader (which
// splits on a single fixed delimiter); ReadBim below uses tsv.Reader
// because .bim is genuinely tab-separated.
func ReadFam(ctx context.Context, path string) ([]FamRow, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, newError(IOError, err, path)
	}
	defer func() { _ = f.Close(ctx) }()

	var rows []FamRow
	scanner := bufio.NewScanner(f.Reader(ctx))
	scanner.Buffer(make([]byte, 64<<10), 1<<20)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 6 {
			return nil, newError(IOError, "line", lineNum, "of", path, "has", len(fields), "fields, want 6")
		}
		sex, err := strconv.ParseInt(fields[4], 10, 8)
		if err != nil {
			return nil, newError(IOError, "line", lineNum, "of", path, "has non-integer sex column:", fields[4])
		}
		rows = append(rows, FamRow{
			FamilyID:     fields[0],
			IndividualID: fields[1],
			FatherID:     fields[2],
			MotherID:     fields[3],
			Sex:          int8(sex),
			Phenotype:    fields[5],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, newError(IOError, err, path)
	}
	return rows, nil
}

// BimRow is one row of a .bim sidecar file: per-variant metadata. Fields
// carry no tsv tag, so tsv.Reader maps columns to them positionally in
// declaration order rather than by header name.
type BimRow struct {
	Chromosome       string
	VariantID        string
	CentimorganPos   float32
	BasePairPosition int32
	Allele1          string
	Allele2          string
}

// ReadBim reads every row of a tab-separated, headerless .bim file at path:
// chromosome, variant id, centimorgan position, base-pair position, allele
// 1, allele 2, in that column order. The returned row count is the matrix's
// sid_count.
func ReadBim(ctx context.Context, path string) ([]BimRow, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, newError(IOError, err, path)
	}
	defer func() { _ = f.Close(ctx) }()

	reader := tsv.NewReader(bufio.NewReaderSize(f.Reader(ctx), 64<<10))

	var rows []BimRow
	for {
		var row BimRow
		if err := reader.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, newError(IOError, err, path)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
