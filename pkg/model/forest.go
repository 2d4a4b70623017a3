package model

import (
	"errors"
	"fmt"

	"github.com/mchmarny/dropwatch/pkg/risk"
)

const (
	KindForest = "forest"

	leafNode = -1
)

// Tree is a binary decision tree in parallel-array form. Node 0 is the
// root. A node is a leaf when Left is -1; otherwise samples with
// x[Feature] <= Threshold go Left and the rest go Right.
type Tree struct {
	Feature   []int       `json:"feature" yaml:"feature"`
	Threshold []float64   `json:"threshold" yaml:"threshold"`
	Left      []int       `json:"left" yaml:"left"`
	Right     []int       `json:"right" yaml:"right"`
	Value     [][]float64 `json:"value" yaml:"value"`
}

type forestParams struct {
	Trees []Tree `json:"trees" yaml:"trees"`
}

// Forest averages the leaf class distributions of its trees.
type Forest struct {
	features int
	trees    []Tree
	// leaf distributions normalised to sum to 1, indexed [tree][node]
	dist [][][2]float64
}

func init() {
	Register(KindForest, decodeForest)
}

func decodeForest(h Header, unmarshal func(v any) error) (risk.Classifier, error) {
	var doc struct {
		Forest *forestParams `json:"forest" yaml:"forest"`
	}
	if err := unmarshal(&doc); err != nil {
		return nil, invalid("decoding forest section: %v", err)
	}
	if doc.Forest == nil {
		return nil, invalid("missing forest section")
	}
	return NewForest(h.Features, doc.Forest.Trees)
}

// NewForest validates every tree and precomputes leaf distributions.
func NewForest(features int, trees []Tree) (*Forest, error) {
	if features <= 0 {
		return nil, invalid("features must be positive, got %d", features)
	}
	if len(trees) == 0 {
		return nil, invalid("forest has no trees")
	}

	f := &Forest{
		features: features,
		trees:    trees,
		dist:     make([][][2]float64, len(trees)),
	}

	for t, tree := range trees {
		d, err := validateTree(tree, features)
		if err != nil {
			return nil, invalid("tree %d: %v", t, err)
		}
		f.dist[t] = d
	}
	return f, nil
}

func validateTree(t Tree, features int) ([][2]float64, error) {
	n := len(t.Left)
	if n == 0 {
		return nil, errors.New("no nodes")
	}
	if len(t.Right) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return nil, errors.New("node arrays differ in length")
	}

	dist := make([][2]float64, n)
	for i := 0; i < n; i++ {
		if t.Left[i] == leafNode {
			if t.Right[i] != leafNode {
				return nil, fmt.Errorf("node %d has only one child", i)
			}
			v := t.Value[i]
			if len(v) != 2 {
				return nil, fmt.Errorf("leaf %d has %d class values, expected 2", i, len(v))
			}
			if v[0] < 0 || v[1] < 0 || !finite(v[0]) || !finite(v[1]) {
				return nil, fmt.Errorf("leaf %d has invalid class values", i)
			}
			sum := v[0] + v[1]
			if sum == 0 {
				return nil, fmt.Errorf("leaf %d is empty", i)
			}
			dist[i] = [2]float64{v[0] / sum, v[1] / sum}
			continue
		}

		// children always follow their parent, which also rules out cycles
		if t.Left[i] <= i || t.Left[i] >= n || t.Right[i] <= i || t.Right[i] >= n {
			return nil, fmt.Errorf("node %d has out of range children", i)
		}
		if t.Feature[i] < 0 || t.Feature[i] >= features {
			return nil, fmt.Errorf("node %d splits on feature %d of %d", i, t.Feature[i], features)
		}
		if !finite(t.Threshold[i]) {
			return nil, fmt.Errorf("node %d threshold is not finite", i)
		}
	}
	return dist, nil
}

func (f *Forest) Features() int {
	return f.features
}

// Trees returns the number of trees in the forest.
func (f *Forest) Trees() int {
	return len(f.trees)
}

func (f *Forest) PredictProba(x [][]float64) ([][]float64, error) {
	if err := checkInput(x, f.features); err != nil {
		return nil, err
	}

	n := float64(len(f.trees))
	out := make([][]float64, len(x))
	for i, row := range x {
		var p0, p1 float64
		for t := range f.trees {
			leaf := f.trees[t].leaf(row)
			p0 += f.dist[t][leaf][0]
			p1 += f.dist[t][leaf][1]
		}
		out[i] = []float64{p0 / n, p1 / n}
	}
	return out, nil
}

func (t *Tree) leaf(row []float64) int {
	node := 0
	for t.Left[node] != leafNode {
		if row[t.Feature[node]] <= t.Threshold[node] {
			node = t.Left[node]
		} else {
			node = t.Right[node]
		}
	}
	return node
}
