package mongoset

import (
	"context"
	"math"
	"os"
	"testing"

	mgo "gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"

	"github.com/arborix/isoforest/ioutil/isocsv"
)

// dialMongo connects to ISOFOREST_MONGO_URI (e.g. "localhost"), skipping
// the test when it is unset since no MongoDB instance runs in this
// environment by default.
func dialMongo(t *testing.T) *mgo.Session {
	uri := os.Getenv("ISOFOREST_MONGO_URI")
	if uri == "" {
		t.Skip("ISOFOREST_MONGO_URI not set, skipping MongoDB integration test")
	}
	session, err := mgo.Dial(uri)
	if err != nil {
		t.Fatalf("dialing mongodb at %s: %v", uri, err)
	}
	t.Cleanup(session.Close)
	return session
}

func TestReadDenseIngestsDocumentsIntoDenseMatrix(t *testing.T) {
	session := dialMongo(t)
	ctx := context.Background()
	database, collection := "isoforest_test", "rows"
	c := session.DB(database).C(collection)
	defer c.DropCollection()

	docs := []bson.M{
		{"x": 1.5, "cat": "red"},
		{"x": nil, "cat": "blue"},
		{"x": 3.0}, // cat absent: treated as missing
	}
	for _, d := range docs {
		if err := c.Insert(d); err != nil {
			t.Fatal(err)
		}
	}

	cols := []isocsv.ColumnSpec{
		{Name: "x", Kind: isocsv.KindNumeric},
		{Name: "cat", Kind: isocsv.KindCategorical},
	}
	m, names, err := ReadDense(ctx, session, database, collection, cols)
	if err != nil {
		t.Fatal(err)
	}
	if m.NumRows() != 3 {
		t.Fatalf("NumRows() = %d, want 3", m.NumRows())
	}

	var numericVals, missingVals int
	for row := 0; row < 3; row++ {
		v := m.Numeric(row, 0)
		if math.IsNaN(v) {
			missingVals++
		} else {
			numericVals++
		}
	}
	if numericVals != 2 || missingVals != 1 {
		t.Errorf("numeric column has %d present, %d missing; want 2 present, 1 missing", numericVals, missingVals)
	}

	var catMissing int
	for row := 0; row < 3; row++ {
		if m.Categorical(row, 0) < 0 {
			catMissing++
		}
	}
	if catMissing != 1 {
		t.Errorf("categorical column has %d missing rows, want 1 (the document with no cat field)", catMissing)
	}
	if len(names) != 2 {
		t.Errorf("category name list has %d entries, want 2 (red, blue)", len(names))
	}
}
