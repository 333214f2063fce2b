package redisstore

import (
	"encoding/json"
	"fmt"

	"github.com/arborix/isoforest/tree"
)

// wireNode mirrors store/sqlstore's codec: a JSON tagged-variant payload
// for one tree.Node, kept as its own small copy here (as the teacher
// keeps tree/redisstore.NodeEncodeDecoder separate from any SQL
// encoder) rather than sharing a codec package across two otherwise
// independent storage backends.
type wireNode struct {
	Kind        string  `json:"kind"`
	Left        int32   `json:"left,omitempty"`
	Right       int32   `json:"right,omitempty"`
	PctTreeLeft float64 `json:"pct_tree_left,omitempty"`
	RangeLow    float64 `json:"range_low,omitempty"`
	RangeHigh   float64 `json:"range_high,omitempty"`
	Remainder   float64 `json:"remainder,omitempty"`
	Score       float64 `json:"score,omitempty"`
	RandomSide  int     `json:"random_side,omitempty"`

	ColNum    int     `json:"col_num,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`

	LeftSubset []bool `json:"left_subset,omitempty"`
	Category   int32  `json:"category,omitempty"`

	HColNum    []int       `json:"h_col_num,omitempty"`
	HColType   []int       `json:"h_col_type,omitempty"`
	HCoef      []float64   `json:"h_coef,omitempty"`
	HCatCoef   [][]float64 `json:"h_cat_coef,omitempty"`
	HChosenCat []int32     `json:"h_chosen_cat,omitempty"`
	HFillVal   []float64   `json:"h_fill_val,omitempty"`
	HFillNew   []float64   `json:"h_fill_new,omitempty"`
	HSplitPt   float64     `json:"h_split_point,omitempty"`
}

func encodeNode(n *tree.Node) ([]byte, error) {
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
		w.Kind = "leaf"
		return json.Marshal(w)
	}
	switch s := n.Split.(type) {
	case tree.NumericSplitSpec:
		w.Kind = "numeric"
		w.ColNum = s.ColNum
		w.Threshold = s.Threshold
	case tree.CategSubsetSplitSpec:
		w.Kind = "categ_subset"
		w.ColNum = s.ColNum
		w.LeftSubset = s.Left
	case tree.SingleCategSplitSpec:
		w.Kind = "single_categ"
		w.ColNum = s.ColNum
		w.Category = s.Category
	case tree.HyperplaneSplitSpec:
		w.Kind = "hyperplane"
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
		return nil, fmt.Errorf("encoding node: unrecognized split type %T", s)
	}
	return json.Marshal(w)
}

func decodeNode(data []byte) (*tree.Node, error) {
	var w wireNode
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decoding node: %v", err)
	}
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
	case "leaf":
	case "numeric":
		n.Split = tree.NumericSplitSpec{ColNum: w.ColNum, Threshold: w.Threshold}
	case "categ_subset":
		n.Split = tree.CategSubsetSplitSpec{ColNum: w.ColNum, Left: w.LeftSubset}
	case "single_categ":
		n.Split = tree.SingleCategSplitSpec{ColNum: w.ColNum, Category: w.Category}
	case "hyperplane":
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
