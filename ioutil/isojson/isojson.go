// Package isojson serializes a trained forest.Forest or forest.ExtForest
// to and from JSON, the Go analog of the teacher's pkg/bio.WriteJSONTree/
// ReadJSONTree. Unlike the teacher's botanic.Tree (whose nodes are plain
// structs with nullable feature/threshold fields), tree.Node's Split field
// is a tagged-variant interface (spec.md §9 design note), so each node is
// given an explicit Kind tag on the wire and a matching wireSplit payload.
package isojson

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/arborix/isoforest/forest"
	"github.com/arborix/isoforest/tree"
)

type splitKind string

const (
	kindLeaf        splitKind = "leaf"
	kindNumeric     splitKind = "numeric"
	kindCategSubset splitKind = "categ_subset"
	kindSingleCateg splitKind = "single_categ"
	kindHyperplane  splitKind = "hyperplane"
)

type wireNode struct {
	Kind        splitKind `json:"kind"`
	Left        int32     `json:"left,omitempty"`
	Right       int32     `json:"right,omitempty"`
	PctTreeLeft float64   `json:"pct_tree_left,omitempty"`
	RangeLow    float64   `json:"range_low,omitempty"`
	RangeHigh   float64   `json:"range_high,omitempty"`
	Remainder   float64   `json:"remainder,omitempty"`
	Score       float64   `json:"score,omitempty"`
	RandomSide  int       `json:"random_side,omitempty"`

	ColNum    int   `json:"col_num,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`

	Left_ []bool  `json:"left_subset,omitempty"`
	Category int32 `json:"category,omitempty"`

	HColNum    []int       `json:"h_col_num,omitempty"`
	HColType   []int       `json:"h_col_type,omitempty"`
	HCoef      []float64   `json:"h_coef,omitempty"`
	HCatCoef   [][]float64 `json:"h_cat_coef,omitempty"`
	HChosenCat []int32     `json:"h_chosen_cat,omitempty"`
	HFillVal   []float64   `json:"h_fill_val,omitempty"`
	HFillNew   []float64   `json:"h_fill_new,omitempty"`
	HSplitPt   float64     `json:"h_split_point,omitempty"`
}

type wireTree struct {
	RootIdx        int32      `json:"root_idx"`
	Nodes          []wireNode `json:"nodes"`
	NewCatAction   int        `json:"new_cat_action"`
	CatSplitType   int        `json:"cat_split_type"`
	MissingAction  int        `json:"missing_action"`
	PenalizeRange  bool       `json:"penalize_range"`
	ExpAvgDepth    float64    `json:"exp_avg_depth"`
	ExpAvgSep      float64    `json:"exp_avg_sep"`
	OrigSampleSize int        `json:"orig_sample_size"`
}

type wireForest struct {
	Extended     bool       `json:"extended"`
	Trees        []wireTree `json:"trees"`
	SampleSize   int        `json:"sample_size"`
	RawDepth     bool       `json:"raw_depth"`
	NRows        int        `json:"nrows"`
	OutputDepths []float64  `json:"output_depths,omitempty"`
	Tmat         []float64  `json:"tmat,omitempty"`
}

func nodeToWire(n *tree.Node) (wireNode, error) {
	w := wireNode{
		Left:        n.Left,
		Right:       n.Right,
		PctTreeLeft: n.PctTreeLeft,
		RangeLow:    n.RangeLow,
		RangeHigh:   n.RangeHigh,
		Remainder:   n.Remainder,
		Score:       n.Score,
		RandomSide:  int(n.RandomSide),
	}
	if n.IsLeaf() {
		w.Kind = kindLeaf
		return w, nil
	}
	switch s := n.Split.(type) {
	case tree.NumericSplitSpec:
		w.Kind = kindNumeric
		w.ColNum = s.ColNum
		w.Threshold = s.Threshold
	case tree.CategSubsetSplitSpec:
		w.Kind = kindCategSubset
		w.ColNum = s.ColNum
		w.Left_ = s.Left
	case tree.SingleCategSplitSpec:
		w.Kind = kindSingleCateg
		w.ColNum = s.ColNum
		w.Category = s.Category
	case tree.HyperplaneSplitSpec:
		w.Kind = kindHyperplane
		w.HColNum = s.ColNum
		w.HColType = make([]int, len(s.ColType))
		for i, ct := range s.ColType {
			w.HColType[i] = int(ct)
		}
		w.HCoef = s.Coef
		w.HCatCoef = s.CatCoef
		w.HChosenCat = s.ChosenCat
		w.HFillVal = s.FillVal
		w.HFillNew = s.FillNew
		w.HSplitPt = s.SplitPoint
	default:
		return w, fmt.Errorf("serializing node: unrecognized split type %T", s)
	}
	return w, nil
}

func wireToNode(w wireNode) (*tree.Node, error) {
	n := &tree.Node{
		Left:        w.Left,
		Right:       w.Right,
		PctTreeLeft: w.PctTreeLeft,
		RangeLow:    w.RangeLow,
		RangeHigh:   w.RangeHigh,
		Remainder:   w.Remainder,
		Score:       w.Score,
		RandomSide:  tree.NewCategSide(w.RandomSide),
	}
	switch w.Kind {
	case kindLeaf:
	case kindNumeric:
		n.Split = tree.NumericSplitSpec{ColNum: w.ColNum, Threshold: w.Threshold}
	case kindCategSubset:
		n.Split = tree.CategSubsetSplitSpec{ColNum: w.ColNum, Left: w.Left_}
	case kindSingleCateg:
		n.Split = tree.SingleCategSplitSpec{ColNum: w.ColNum, Category: w.Category}
	case kindHyperplane:
		colTypes := make([]tree.ColType, len(w.HColType))
		for i, ct := range w.HColType {
			colTypes[i] = tree.ColType(ct)
		}
		n.Split = tree.HyperplaneSplitSpec{
			ColNum:     w.HColNum,
			ColType:    colTypes,
			Coef:       w.HCoef,
			CatCoef:    w.HCatCoef,
			ChosenCat:  w.HChosenCat,
			FillVal:    w.HFillVal,
			FillNew:    w.HFillNew,
			SplitPoint: w.HSplitPt,
		}
	default:
		return nil, fmt.Errorf("decoding node: unrecognized kind %q", w.Kind)
	}
	return n, nil
}

func treeToWire(ctx context.Context, t *tree.Tree) (wireTree, error) {
	n, err := t.Len(ctx)
	if err != nil {
		return wireTree{}, fmt.Errorf("serializing tree: %v", err)
	}
	nodes := make([]wireNode, n)
	for i := int32(0); i < n; i++ {
		node, err := t.Get(ctx, i)
		if err != nil {
			return wireTree{}, fmt.Errorf("serializing tree: node %d: %v", i, err)
		}
		wn, err := nodeToWire(node)
		if err != nil {
			return wireTree{}, err
		}
		nodes[i] = wn
	}
	return wireTree{
		RootIdx:        t.RootIdx,
		Nodes:          nodes,
		NewCatAction:   int(t.NewCatAction),
		CatSplitType:   int(t.CatSplitType),
		MissingAction:  int(t.MissingAction),
		PenalizeRange:  t.PenalizeRange,
		ExpAvgDepth:    t.ExpAvgDepth,
		ExpAvgSep:      t.ExpAvgSep,
		OrigSampleSize: t.OrigSampleSize,
	}, nil
}

func wireToTree(ctx context.Context, w wireTree) (*tree.Tree, error) {
	ns := tree.NewMemoryNodeStore()
	for i, wn := range w.Nodes {
		n, err := wireToNode(wn)
		if err != nil {
			return nil, fmt.Errorf("decoding tree: node %d: %v", i, err)
		}
		if _, err := ns.Append(ctx, n); err != nil {
			return nil, fmt.Errorf("decoding tree: appending node %d: %v", i, err)
		}
	}
	return tree.New(w.RootIdx, ns, tree.NewCategAction(w.NewCatAction), tree.CatSplitType(w.CatSplitType),
		tree.MissingAction(w.MissingAction), w.PenalizeRange, w.ExpAvgDepth, w.ExpAvgSep, w.OrigSampleSize), nil
}

// WriteForest serializes f onto w as JSON.
func WriteForest(ctx context.Context, w io.Writer, f *forest.Forest) error {
	wf, err := baseToWire(ctx, false, f.Trees, f.SampleSize, f.RawDepth, f.NRows, f.OutputDepths, f.Tmat)
	if err != nil {
		return err
	}
	return json.NewEncoder(w).Encode(wf)
}

// WriteExtForest serializes f onto w as JSON.
func WriteExtForest(ctx context.Context, w io.Writer, f *forest.ExtForest) error {
	wf, err := baseToWire(ctx, true, f.Trees, f.SampleSize, f.RawDepth, f.NRows, f.OutputDepths, f.Tmat)
	if err != nil {
		return err
	}
	return json.NewEncoder(w).Encode(wf)
}

func baseToWire(ctx context.Context, extended bool, trees []*tree.Tree, sampleSize int, rawDepth bool, nrows int, depths, tmat []float64) (*wireForest, error) {
	wf := &wireForest{
		Extended:     extended,
		Trees:        make([]wireTree, len(trees)),
		SampleSize:   sampleSize,
		RawDepth:     rawDepth,
		NRows:        nrows,
		OutputDepths: depths,
		Tmat:         tmat,
	}
	for i, t := range trees {
		wt, err := treeToWire(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("serializing forest: tree %d: %v", i, err)
		}
		wf.Trees[i] = wt
	}
	return wf, nil
}

// ReadForest decodes a single-variable forest previously written by
// WriteForest. It returns an error if the stream encodes an extended
// forest instead.
func ReadForest(ctx context.Context, r io.Reader) (*forest.Forest, error) {
	var wf wireForest
	if err := json.NewDecoder(r).Decode(&wf); err != nil {
		return nil, fmt.Errorf("decoding forest: %v", err)
	}
	if wf.Extended {
		return nil, fmt.Errorf("decoding forest: stream holds an extended forest")
	}
	trees, err := wireTreesToTrees(ctx, wf.Trees)
	if err != nil {
		return nil, err
	}
	return forest.NewForest(trees, wf.SampleSize, wf.RawDepth, wf.NRows, wf.OutputDepths, wf.Tmat), nil
}

// ReadExtForest decodes an extended forest previously written by
// WriteExtForest. It returns an error if the stream encodes a
// single-variable forest instead.
func ReadExtForest(ctx context.Context, r io.Reader) (*forest.ExtForest, error) {
	var wf wireForest
	if err := json.NewDecoder(r).Decode(&wf); err != nil {
		return nil, fmt.Errorf("decoding forest: %v", err)
	}
	if !wf.Extended {
		return nil, fmt.Errorf("decoding forest: stream holds a single-variable forest")
	}
	trees, err := wireTreesToTrees(ctx, wf.Trees)
	if err != nil {
		return nil, err
	}
	return forest.NewExtForest(trees, wf.SampleSize, wf.RawDepth, wf.NRows, wf.OutputDepths, wf.Tmat), nil
}

func wireTreesToTrees(ctx context.Context, wts []wireTree) ([]*tree.Tree, error) {
	trees := make([]*tree.Tree, len(wts))
	for i, wt := range wts {
		t, err := wireToTree(ctx, wt)
		if err != nil {
			return nil, fmt.Errorf("decoding forest: tree %d: %v", i, err)
		}
		trees[i] = t
	}
	return trees, nil
}

// WriteForestToFile serializes f to filepath as JSON.
func WriteForestToFile(ctx context.Context, filepath string, f *forest.Forest) error {
	file, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteForest(ctx, file, f)
}

// ReadForestFromFile decodes a single-variable forest from filepath.
func ReadForestFromFile(ctx context.Context, filepath string) (*forest.Forest, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadForest(ctx, file)
}

// WriteExtForestToFile serializes f to filepath as JSON.
func WriteExtForestToFile(ctx context.Context, filepath string, f *forest.ExtForest) error {
	file, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteExtForest(ctx, file, f)
}

// ReadExtForestFromFile decodes an extended forest from filepath.
func ReadExtForestFromFile(ctx context.Context, filepath string) (*forest.ExtForest, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadExtForest(ctx, file)
}
