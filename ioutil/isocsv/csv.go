// Package isocsv ingests a dense CSV training/prediction matrix into the
// column-access layer (spec.md §4.1, §6 "file I/O ... out of scope" as a
// core concern but wired here as the CLI's own collaborator). It
// generalizes the teacher's pkg/bio.ReadCSVSet (header row of named
// features, "?" for a missing value, one botanic.Sample per row) from a
// named-feature/sample model into the column-major numeric/categorical
// buffers column.Dense requires.
package isocsv

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/arborix/isoforest/column"
)

// ColumnKind selects how one named CSV column is parsed.
type ColumnKind int

const (
	KindNumeric ColumnKind = iota
	KindCategorical
)

// ColumnSpec names and types one input column, mirroring the role the
// teacher's feature.Feature plays for pkg/bio.ReadCSVSet, generalized
// from a feature object to a plain name/kind pair since the core engine
// only needs column.Matrix access, not a Feature abstraction (spec.md §9
// Design Note).
type ColumnSpec struct {
	Name string
	Kind ColumnKind
}

// ReadDense parses a CSV stream into a column.Dense matrix per cols:
// the header names which ColumnSpec each column maps to, in any order; a
// header name with no matching ColumnSpec, or a header whose column count
// differs from len(cols), is an error. "?" marks a missing value for any
// column kind. Categorical values are mapped to integer codes in
// first-seen order, and the matrix records how many distinct categories
// each categorical column had. The returned string slice holds every
// categorical column's category names in code order, concatenated in
// ColumnSpec order.
func ReadDense(r io.Reader, cols []ColumnSpec) (*column.Dense, []string, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("reading CSV header: %v", err)
	}
	order, err := columnOrder(header, cols)
	if err != nil {
		return nil, nil, err
	}

	numericCols := 0
	categCols := 0
	local := make([]int, len(cols)) // each spec's index among its own kind
	for i, c := range cols {
		if c.Kind == KindNumeric {
			local[i] = numericCols
			numericCols++
		} else {
			local[i] = categCols
			categCols++
		}
	}
	numeric := make([][]float64, numericCols)
	categ := make([][]int32, categCols)
	categNames := make([]map[string]int32, categCols)

	nrows := 0
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading CSV row %d: %v", line, err)
		}
		for pos, specIdx := range order {
			spec := cols[specIdx]
			v := row[pos]
			k := local[specIdx]
			switch spec.Kind {
			case KindNumeric:
				if v == "?" {
					numeric[k] = append(numeric[k], math.NaN())
				} else {
					f, err := strconv.ParseFloat(v, 64)
					if err != nil {
						return nil, nil, fmt.Errorf("row %d column %s: %v", line, spec.Name, err)
					}
					numeric[k] = append(numeric[k], f)
				}
			case KindCategorical:
				if categNames[k] == nil {
					categNames[k] = make(map[string]int32)
				}
				if v == "?" {
					categ[k] = append(categ[k], -1)
				} else {
					code, ok := categNames[k][v]
					if !ok {
						code = int32(len(categNames[k]))
						categNames[k][v] = code
					}
					categ[k] = append(categ[k], code)
				}
			}
		}
		nrows++
	}

	ncat := make([]int, categCols)
	categNameList := make([][]string, categCols)
	for i, names := range categNames {
		list := make([]string, len(names))
		for name, code := range names {
			list[code] = name
		}
		categNameList[i] = list
		ncat[i] = len(names)
	}

	return column.NewDense(nrows, numeric, categ, ncat), flatten(categNameList), nil
}

// ReadDenseFromFile opens filepath (or stdin when empty) and calls
// ReadDense on it.
func ReadDenseFromFile(filepath string, cols []ColumnSpec) (*column.Dense, []string, error) {
	f := os.Stdin
	if filepath != "" {
		var err error
		f, err = os.Open(filepath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening %s: %v", filepath, err)
		}
		defer f.Close()
	}
	return ReadDense(f, cols)
}

func columnOrder(header []string, cols []ColumnSpec) ([]int, error) {
	byName := make(map[string]int, len(cols))
	for i, c := range cols {
		byName[c.Name] = i
	}
	order := make([]int, 0, len(header))
	for _, name := range header {
		idx, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("reading CSV header: unknown column %q", name)
		}
		order = append(order, idx)
	}
	if len(order) != len(cols) {
		return nil, fmt.Errorf("reading CSV header: expected %d columns, found %d", len(cols), len(order))
	}
	return order, nil
}

func flatten(names [][]string) []string {
	var out []string
	for _, group := range names {
		out = append(out, group...)
	}
	return out
}
