package model_selection

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/YuminosukeSato/stackgo/pkg/errors"
)

// TrainTestSplit partitions positions 0..n-1 into a training and a hold-out
// set. trainSize is the fraction of rows kept for training. Both returned
// slices are sorted so that the caller can reset the row index.
func TrainTestSplit(n int, trainSize float64, seed uint64) (train, test []int, err error) {
	if trainSize <= 0 || trainSize > 1 {
		return nil, nil, errors.NewValidationError("train_size", "must be in (0, 1]", trainSize)
	}
	if n < 2 && trainSize < 1 {
		return nil, nil, errors.NewValueError("TrainTestSplit", "need at least 2 rows for a hold-out split")
	}

	nTrain := int(math.Round(trainSize * float64(n)))
	if trainSize < 1 {
		nTrain = min(max(nTrain, 1), n-1)
	}

	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	r := rand.New(rand.NewPCG(seed, seed))
	r.Shuffle(n, func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })

	train = append([]int(nil), perm[:nTrain]...)
	test = append([]int(nil), perm[nTrain:]...)
	sort.Ints(train)
	sort.Ints(test)
	return train, test, nil
}
