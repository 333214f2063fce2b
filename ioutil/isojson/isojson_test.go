package isojson

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/arborix/isoforest/column"
	"github.com/arborix/isoforest/forest"
)

// simpleRand is a tiny deterministic linear congruential generator, used
// only to synthesize test fixtures.
type simpleRand struct{ state uint64 }

func (r *simpleRand) normal() float64 {
	r.state = r.state*6364136223846793005 + 1442695040888963407
	u1 := float64(r.state>>11) / float64(1<<53)
	r.state = r.state*6364136223846793005 + 1442695040888963407
	u2 := float64(r.state>>11) / float64(1<<53)
	if u1 < 1e-12 {
		u1 = 1e-12
	}
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// TestForestRoundTrip is spec.md §8 testable property 6: serializing and
// deserializing a forest gives byte-identical output depths on a fixed
// prediction input.
func TestForestRoundTrip(t *testing.T) {
	r := &simpleRand{state: 42}
	n := 200
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = r.normal()
	}
	m := column.NewDense(n, [][]float64{vals}, nil, nil)

	params := forest.Params{NumTrees: 10, NumWorkers: 2, RandomSeed: 11, SampleSize: n}
	f, err := forest.Fit(context.Background(), m, params)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteForest(context.Background(), &buf, f); err != nil {
		t.Fatalf("WriteForest: %v", err)
	}

	loaded, err := ReadForest(context.Background(), bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadForest: %v", err)
	}

	want, err := f.Predict(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	got, err := loaded.Predict(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("predicted depths changed across a round trip (-want +got):\n%s", diff)
	}

	var buf2 bytes.Buffer
	if err := WriteForest(context.Background(), &buf2, loaded); err != nil {
		t.Fatalf("re-serializing loaded forest: %v", err)
	}
	if diff := cmp.Diff(buf.String(), buf2.String()); diff != "" {
		t.Errorf("re-serialized JSON differs from the original (-want +got):\n%s", diff)
	}
}
