// Package mongoset ingests a row-per-document MongoDB collection into
// the column-access layer, the Go analog of dataset/mongodataset
// generalized from botanic's labeled-sample/feature-criteria query
// model to a plain bulk read into a column.Dense matrix: the core engine
// only ever needs column.Matrix access (spec.md §9 design note), so
// there is no criteria/entropy querying to carry over, only ingestion.
package mongoset

import (
	"context"
	"fmt"
	"math"

	mgo "gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"

	"github.com/arborix/isoforest/column"
	"github.com/arborix/isoforest/ioutil/isocsv"
)

// ReadDense connects to the given collection through session and reads
// every document into a column.Dense matrix, per cols: a field absent
// from a document, or holding a BSON null, is treated as missing
// (NaN for a numeric column, code -1 for a categorical one), mirroring
// ioutil/isocsv.ReadDense's "?" convention but for a schemaless source.
// Categorical values are coded in first-seen document order.
func ReadDense(ctx context.Context, session *mgo.Session, database, collection string, cols []isocsv.ColumnSpec) (*column.Dense, []string, error) {
	c := session.DB(database).C(collection)

	numericCols := 0
	categCols := 0
	for _, col := range cols {
		if col.Kind == isocsv.KindNumeric {
			numericCols++
		} else {
			categCols++
		}
	}
	numeric := make([][]float64, numericCols)
	categ := make([][]int32, categCols)
	categNames := make([]map[string]int32, categCols)

	iter := c.Find(nil).Iter()
	defer iter.Close()

	var doc bson.M
	nrows := 0
	for iter.Next(&doc) {
		numIdx, catIdx := 0, 0
		for _, col := range cols {
			raw, present := doc[col.Name]
			switch col.Kind {
			case isocsv.KindNumeric:
				if !present || raw == nil {
					numeric[numIdx] = append(numeric[numIdx], math.NaN())
				} else {
					f, err := toFloat64(raw)
					if err != nil {
						return nil, nil, fmt.Errorf("document %d column %s: %v", nrows, col.Name, err)
					}
					numeric[numIdx] = append(numeric[numIdx], f)
				}
				numIdx++
			case isocsv.KindCategorical:
				if categNames[catIdx] == nil {
					categNames[catIdx] = make(map[string]int32)
				}
				if !present || raw == nil {
					categ[catIdx] = append(categ[catIdx], -1)
				} else {
					name := fmt.Sprintf("%v", raw)
					code, ok := categNames[catIdx][name]
					if !ok {
						code = int32(len(categNames[catIdx]))
						categNames[catIdx][name] = code
					}
					categ[catIdx] = append(categ[catIdx], code)
				}
				catIdx++
			}
		}
		nrows++
	}
	if err := iter.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading collection %s.%s: %v", database, collection, err)
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

func toFloat64(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("value %v of type %T is not numeric", v, v)
	}
}

func flatten(names [][]string) []string {
	var out []string
	for _, group := range names {
		out = append(out, group...)
	}
	return out
}
