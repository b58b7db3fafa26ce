// Package iforest implements an isolation forest for outlier scoring.
//
// An ensemble of randomized partitioning trees is built over a subsample of
// the training set; points that isolate in few splits are outliers.
// Score returns -2^(-E[h(x)]/c(ψ)), a negative number in [-1, 0)
// where more-negative means more anomalous, and Classify labels a point
// anomalous when its score falls below the contamination-calibrated offset
// learned at fit time.
package iforest

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/madrasiot/trackd/params"
	"github.com/montanaflynn/stats"
)

var (
	// ErrNoTrainingData is returned by Fit on an empty matrix.
	ErrNoTrainingData = errors.New("iforest: empty training set")
	// ErrFeatureDim is returned when a row or query vector does not match
	// the feature dimension, or is empty.
	ErrFeatureDim = errors.New("iforest: feature dimension mismatch")
	// ErrNotFitted is returned by Score and Classify before Fit.
	// Calling either before Fit is a contract violation by the caller.
	ErrNotFitted = errors.New("iforest: model not fitted")
)

// fallbackOffset stands in for the contamination percentile when the
// training set is too small to take one from.
const fallbackOffset = -0.5

type Forest struct {
	cfg    params.IsolationForestConfig
	dim    int
	sample int
	trees  []*node
	offset float64
	fitted bool
}

// node is one split of a partitioning tree. A node with a nil left child
// is a leaf; size is the number of subsample points that reached it.
type node struct {
	splitFeature int
	splitValue   float64
	left         *node
	right        *node
	size         int
}

func New(cfg params.IsolationForestConfig) *Forest {
	if cfg.Trees <= 0 {
		cfg.Trees = params.DefaultIsolationForestConfig().Trees
	}
	return &Forest{cfg: cfg}
}

// Fit trains the ensemble on X (rows are points, columns features).
// All randomness derives from the configured seed, so repeated fits on
// identical input produce identical trees and scores.
func (f *Forest) Fit(X [][]float64) error {
	if len(X) == 0 {
		return ErrNoTrainingData
	}
	dim := len(X[0])
	if dim == 0 {
		return fmt.Errorf("%w: zero-width row 0", ErrFeatureDim)
	}
	for i, row := range X {
		if len(row) != dim {
			return fmt.Errorf("%w: row %d has %d features, want %d", ErrFeatureDim, i, len(row), dim)
		}
	}

	sample := f.cfg.SampleSize
	if sample <= 0 || sample > len(X) {
		sample = len(X)
	}
	maxDepth := int(math.Ceil(math.Log2(float64(sample))))
	if maxDepth < 1 {
		maxDepth = 1
	}

	rng := rand.New(rand.NewSource(f.cfg.Seed))
	trees := make([]*node, f.cfg.Trees)
	for i := range trees {
		trees[i] = buildNode(rng, subsample(rng, X, sample), dim, 0, maxDepth)
	}

	f.dim = dim
	f.sample = sample
	f.trees = trees
	f.fitted = true
	f.offset = f.calibrateOffset(X)
	return nil
}

// calibrateOffset scores the training set and takes the contamination
// percentile as the decision boundary, so that roughly that fraction of
// training points classify as outliers.
func (f *Forest) calibrateOffset(X [][]float64) float64 {
	if f.cfg.Contamination <= 0 || f.cfg.Contamination >= 1 {
		return fallbackOffset
	}
	scores := make(stats.Float64Data, len(X))
	for i, row := range X {
		s, err := f.Score(row)
		if err != nil {
			return fallbackOffset
		}
		scores[i] = s
	}
	p, err := stats.Percentile(scores, f.cfg.Contamination*100)
	if err != nil || math.IsNaN(p) {
		return fallbackOffset
	}
	return p
}

// Score returns the anomaly score of v: negative, in [-1, 0), with larger
// magnitude for more confidently anomalous points.
func (f *Forest) Score(v []float64) (float64, error) {
	if !f.fitted {
		return 0, ErrNotFitted
	}
	if len(v) != f.dim {
		return 0, fmt.Errorf("%w: got %d features, want %d", ErrFeatureDim, len(v), f.dim)
	}
	sum := 0.0
	for _, t := range f.trees {
		sum += pathLength(v, t, 0)
	}
	avg := sum / float64(len(f.trees))
	return -math.Exp2(-avg / averagePathLength(float64(f.sample))), nil
}

// Classify labels v against the fitted decision boundary.
// Points scoring exactly on the boundary are normal.
func (f *Forest) Classify(v []float64) (anomaly bool, score float64, err error) {
	score, err = f.Score(v)
	if err != nil {
		return false, 0, err
	}
	return score < f.offset, score, nil
}

// Offset exposes the fitted decision boundary, mostly for tests and logs.
func (f *Forest) Offset() float64 { return f.offset }

func subsample(rng *rand.Rand, X [][]float64, size int) [][]float64 {
	if len(X) <= size {
		return X
	}
	sample := make([][]float64, size)
	for i, idx := range rng.Perm(len(X))[:size] {
		sample[i] = X[idx]
	}
	return sample
}

func buildNode(rng *rand.Rand, data [][]float64, dim, depth, maxDepth int) *node {
	if len(data) <= 1 || depth >= maxDepth {
		return &node{size: len(data)}
	}

	feature := rng.Intn(dim)
	minVal, maxVal := data[0][feature], data[0][feature]
	for _, d := range data {
		if d[feature] < minVal {
			minVal = d[feature]
		}
		if d[feature] > maxVal {
			maxVal = d[feature]
		}
	}
	if minVal == maxVal {
		return &node{size: len(data)}
	}

	splitValue := minVal + rng.Float64()*(maxVal-minVal)

	var left, right [][]float64
	for _, d := range data {
		if d[feature] < splitValue {
			left = append(left, d)
		} else {
			right = append(right, d)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &node{size: len(data)}
	}

	return &node{
		splitFeature: feature,
		splitValue:   splitValue,
		left:         buildNode(rng, left, dim, depth+1, maxDepth),
		right:        buildNode(rng, right, dim, depth+1, maxDepth),
		size:         len(data),
	}
}

func pathLength(v []float64, n *node, depth int) float64 {
	if n.left == nil {
		if n.size > 1 {
			return float64(depth) + averagePathLength(float64(n.size))
		}
		return float64(depth)
	}
	if v[n.splitFeature] < n.splitValue {
		return pathLength(v, n.left, depth+1)
	}
	return pathLength(v, n.right, depth+1)
}

// averagePathLength is c(n), the expected path length of an unsuccessful
// BST search among n points; it normalizes tree depths.
func averagePathLength(n float64) float64 {
	if n <= 1 {
		return 0
	}
	if n == 2 {
		return 1
	}
	const euler = 0.5772156649
	h := math.Log(n-1) + euler
	return 2*h - 2*(n-1)/n
}
