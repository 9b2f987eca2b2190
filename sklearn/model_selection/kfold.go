// Package model_selection provides the fold splitter and hold-out split
// used by stacking and cross-validated scoring.
package model_selection

import (
	"math/rand/v2"

	"github.com/YuminosukeSato/stackgo/pkg/errors"
)

// Fold is one train/test partition of row positions.
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold implements a deterministic k-fold cross-validation splitter.
// Folds are defined by positional row index, so callers must pass rows in
// a reset (0..N-1) order.
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed uint64
}

// NewKFold creates a new k-fold splitter. The split count is validated by
// Split against the row count.
func NewKFold(nSplits int, shuffle bool, randomSeed uint64) *KFold {
	return &KFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// GetNSplits returns the number of splits
func (kf *KFold) GetNSplits() int {
	return kf.NSplits
}

// Split partitions positions 0..n-1 into NSplits folds. Every position
// appears in exactly one fold's TestIndices. Test indices are returned in
// ascending order and train indices are the ascending complement.
// The same (n, NSplits, Shuffle, RandomSeed) always yields the same folds.
//
// Returns an InvalidFoldCountError when NSplits < 2 or NSplits > n.
func (kf *KFold) Split(n int) ([]Fold, error) {
	return kf.split(errors.StageFoldSplit, n)
}

// SplitAt is Split with the stage that requested the folds recorded on the error.
func (kf *KFold) SplitAt(stage errors.Stage, n int) ([]Fold, error) {
	return kf.split(stage, n)
}

func (kf *KFold) split(stage errors.Stage, n int) ([]Fold, error) {
	if kf.NSplits < 2 || kf.NSplits > n {
		return nil, errors.NewInvalidFoldCountError(stage, kf.NSplits, n)
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		r := rand.New(rand.NewPCG(kf.RandomSeed, kf.RandomSeed))
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	// owner[i] is the fold that tests row i
	owner := make([]int, n)
	foldSize := n / kf.NSplits
	remainder := n % kf.NSplits
	cur := 0
	for f := 0; f < kf.NSplits; f++ {
		size := foldSize
		if f < remainder {
			size++
		}
		for _, idx := range indices[cur : cur+size] {
			owner[idx] = f
		}
		cur += size
	}

	folds := make([]Fold, kf.NSplits)
	for f := range folds {
		size := foldSize
		if f < remainder {
			size++
		}
		folds[f] = Fold{
			TrainIndices: make([]int, 0, n-size),
			TestIndices:  make([]int, 0, size),
		}
	}
	for i, f := range owner {
		for g := range folds {
			if g == f {
				folds[g].TestIndices = append(folds[g].TestIndices, i)
			} else {
				folds[g].TrainIndices = append(folds[g].TrainIndices, i)
			}
		}
	}
	return folds, nil
}
