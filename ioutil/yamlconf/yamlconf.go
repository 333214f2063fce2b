// Package yamlconf parses a column schema and a forest.Params block from
// one YAML document, the teacher's one-document-two-sections style
// (feature/yaml.ReadFeatures parses a `features:` map) generalized from
// named/typed features to the plain numeric/categorical column schema
// spec.md §4.1 and §6 need, plus the forest-level scalar parameters
// feature/yaml never had to carry (the teacher's pruning policy lived on
// the CLI's own flags, not in the metadata file).
package yamlconf

import (
	"fmt"
	"io/ioutil"

	yaml "gopkg.in/yaml.v2"

	"github.com/arborix/isoforest/builder"
	"github.com/arborix/isoforest/forest"
	"github.com/arborix/isoforest/ioutil/isocsv"
	"github.com/arborix/isoforest/split"
	"github.com/arborix/isoforest/tree"
)

// Document is the top-level shape: a `columns` map (name -> "numeric" or
// a category-count integer) plus a `params` block of forest.Params
// scalar fields.
type Document struct {
	Columns map[string]interface{} `yaml:"columns"`
	Params  paramsDoc              `yaml:"params"`
}

type paramsDoc struct {
	NumTrees        int     `yaml:"num_trees"`
	NumWorkers      int     `yaml:"num_workers"`
	RandomSeed      uint64  `yaml:"random_seed"`
	SampleSize      int     `yaml:"sample_size"`
	WithReplacement bool    `yaml:"with_replacement"`
	MaxDepth        int     `yaml:"max_depth"`
	LimitDepth      bool    `yaml:"limit_depth"`
	Ndim            int     `yaml:"ndim"`
	NTry            int     `yaml:"ntry"`
	MissingAction   string  `yaml:"missing_action"`
	NewCatAction    string  `yaml:"new_cat_action"`
	CatSplitType    string  `yaml:"cat_split_type"`
	PenalizeRange   bool    `yaml:"penalize_range"`
	PickByGainAvg   float64 `yaml:"prob_pick_by_gain_avg"`
	PickByGainPl    float64 `yaml:"prob_pick_by_gain_pl"`
	SplitByGainAvg  float64 `yaml:"prob_split_by_gain_avg"`
	SplitByGainPl   float64 `yaml:"prob_split_by_gain_pl"`
	AllPerm         bool    `yaml:"all_perm"`
	CoefType        string  `yaml:"coef_type"`
	WeighByKurtosis bool    `yaml:"weigh_by_kurt"`
	RawDepth        bool    `yaml:"raw_depth"`
}

// ReadConfig parses md into a column schema and a forest.Params.
func ReadConfig(md []byte) ([]isocsv.ColumnSpec, forest.Params, error) {
	var doc Document
	if err := yaml.Unmarshal(md, &doc); err != nil {
		return nil, forest.Params{}, fmt.Errorf("parsing yml config: %v", err)
	}
	if doc.Columns == nil {
		return nil, forest.Params{}, fmt.Errorf("config file has no columns section")
	}
	cols, err := parseColumns(doc.Columns)
	if err != nil {
		return nil, forest.Params{}, err
	}
	params, err := doc.Params.toParams()
	if err != nil {
		return nil, forest.Params{}, err
	}
	return cols, params, nil
}

// ReadConfigFromFile reads filepath and calls ReadConfig on its contents.
func ReadConfigFromFile(filepath string) ([]isocsv.ColumnSpec, forest.Params, error) {
	md, err := ioutil.ReadFile(filepath)
	if err != nil {
		return nil, forest.Params{}, fmt.Errorf("reading config file %s: %v", filepath, err)
	}
	cols, params, err := ReadConfig(md)
	if err != nil {
		err = fmt.Errorf("parsing config file %s: %v", filepath, err)
	}
	return cols, params, err
}

func parseColumns(raw map[string]interface{}) ([]isocsv.ColumnSpec, error) {
	var cols []isocsv.ColumnSpec
	for name, v := range raw {
		switch val := v.(type) {
		case string:
			if val != "numeric" {
				return nil, fmt.Errorf("column %s: unrecognized type %q", name, val)
			}
			cols = append(cols, isocsv.ColumnSpec{Name: name, Kind: isocsv.KindNumeric})
		case int:
			cols = append(cols, isocsv.ColumnSpec{Name: name, Kind: isocsv.KindCategorical})
		default:
			return nil, fmt.Errorf("column %s: invalid declaration of type %T", name, v)
		}
	}
	return cols, nil
}

func (d paramsDoc) toParams() (forest.Params, error) {
	missingAction, err := parseMissingAction(d.MissingAction)
	if err != nil {
		return forest.Params{}, err
	}
	newCatAction, err := parseNewCatAction(d.NewCatAction)
	if err != nil {
		return forest.Params{}, err
	}
	catSplitType, err := parseCatSplitType(d.CatSplitType)
	if err != nil {
		return forest.Params{}, err
	}
	coefType, err := parseCoefType(d.CoefType)
	if err != nil {
		return forest.Params{}, err
	}
	return forest.Params{
		NumTrees:        d.NumTrees,
		NumWorkers:      d.NumWorkers,
		RandomSeed:      d.RandomSeed,
		SampleSize:      d.SampleSize,
		WithReplacement: d.WithReplacement,
		MaxDepth:        d.MaxDepth,
		LimitDepth:      d.LimitDepth,
		Ndim:            d.Ndim,
		NTry:            d.NTry,
		MissingAction:   missingAction,
		NewCatAction:    newCatAction,
		CatSplitType:    catSplitType,
		PenalizeRange:   d.PenalizeRange,
		Probabilities: split.Probabilities{
			PickByGainAvg:  d.PickByGainAvg,
			PickByGainPl:   d.PickByGainPl,
			SplitByGainAvg: d.SplitByGainAvg,
			SplitByGainPl:  d.SplitByGainPl,
		},
		AllPerm:         d.AllPerm,
		CoefType:        coefType,
		WeighByKurtosis: d.WeighByKurtosis,
		RawDepth:        d.RawDepth,
	}, nil
}

func parseMissingAction(s string) (tree.MissingAction, error) {
	switch s {
	case "", "divide":
		return tree.Divide, nil
	case "impute":
		return tree.Impute, nil
	case "fail":
		return tree.Fail, nil
	}
	return 0, fmt.Errorf("missing_action: unrecognized value %q", s)
}

func parseNewCatAction(s string) (tree.NewCategAction, error) {
	switch s {
	case "", "weighted":
		return tree.Weighted, nil
	case "smallest":
		return tree.Smallest, nil
	case "random":
		return tree.Random, nil
	}
	return 0, fmt.Errorf("new_cat_action: unrecognized value %q", s)
}

func parseCatSplitType(s string) (tree.CatSplitType, error) {
	switch s {
	case "", "subset":
		return tree.SubSet, nil
	case "single_categ":
		return tree.SingleCateg, nil
	}
	return 0, fmt.Errorf("cat_split_type: unrecognized value %q", s)
}

func parseCoefType(s string) (builder.CoefType, error) {
	switch s {
	case "", "uniform":
		return builder.Uniform, nil
	case "normal":
		return builder.Normal, nil
	}
	return 0, fmt.Errorf("coef_type: unrecognized value %q", s)
}
