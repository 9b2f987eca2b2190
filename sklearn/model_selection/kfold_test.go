package model_selection

import (
	"sort"
	"testing"

	"github.com/YuminosukeSato/stackgo/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKFoldPartitionsRows(t *testing.T) {
	for _, shuffle := range []bool{true, false} {
		for n := 2; n <= 23; n++ {
			for k := 2; k <= n; k++ {
				folds, err := NewKFold(k, shuffle, 42).Split(n)
				require.NoError(t, err)
				require.Len(t, folds, k)

				seen := make([]int, n)
				for _, f := range folds {
					assert.NotEmpty(t, f.TestIndices)
					assert.Equal(t, n, len(f.TestIndices)+len(f.TrainIndices))
					for _, i := range f.TestIndices {
						seen[i]++
					}
					// train is the complement of test
					inTest := map[int]bool{}
					for _, i := range f.TestIndices {
						inTest[i] = true
					}
					for _, i := range f.TrainIndices {
						assert.False(t, inTest[i], "row %d is in both train and test", i)
					}
					assert.True(t, sort.IntsAreSorted(f.TestIndices))
					assert.True(t, sort.IntsAreSorted(f.TrainIndices))
				}
				for i, c := range seen {
					assert.Equal(t, 1, c, "n=%d k=%d row %d tested %d times", n, k, i, c)
				}
			}
		}
	}
}

func TestKFoldDeterministic(t *testing.T) {
	a, err := NewKFold(5, true, 7).Split(100)
	require.NoError(t, err)
	b, err := NewKFold(5, true, 7).Split(100)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := NewKFold(5, true, 8).Split(100)
	require.NoError(t, err)
	assert.NotEqual(t, a, c, "different seeds should shuffle differently")
}

func TestKFoldContiguousWithoutShuffle(t *testing.T) {
	folds, err := NewKFold(3, false, 0).Split(7)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, folds[0].TestIndices)
	assert.Equal(t, []int{3, 4}, folds[1].TestIndices)
	assert.Equal(t, []int{5, 6}, folds[2].TestIndices)
	assert.Equal(t, []int{0, 1, 2, 5, 6}, folds[1].TrainIndices)
}

func TestKFoldInvalidCount(t *testing.T) {
	tests := []struct {
		name string
		k, n int
	}{
		{"k below two", 1, 10},
		{"k zero", 0, 10},
		{"k above rows", 11, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewKFold(tt.k, true, 0).Split(tt.n)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidFoldCount))

			var fe *errors.InvalidFoldCountError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, errors.StageFoldSplit, fe.Stage)
			assert.Equal(t, tt.k, fe.Folds)
			assert.Equal(t, tt.n, fe.Rows)
		})
	}

	_, err := NewKFold(3, true, 0).SplitAt(errors.StageMetaLevel, 2)
	var fe *errors.InvalidFoldCountError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, errors.StageMetaLevel, fe.Stage)
}

func TestTrainTestSplit(t *testing.T) {
	train, test, err := TrainTestSplit(100, 0.7, 123)
	require.NoError(t, err)
	assert.Len(t, train, 70)
	assert.Len(t, test, 30)

	all := append(append([]int(nil), train...), test...)
	sort.Ints(all)
	for i, v := range all {
		assert.Equal(t, i, v)
	}

	train2, test2, err := TrainTestSplit(100, 0.7, 123)
	require.NoError(t, err)
	assert.Equal(t, train, train2)
	assert.Equal(t, test, test2)

	full, none, err := TrainTestSplit(10, 1, 0)
	require.NoError(t, err)
	assert.Len(t, full, 10)
	assert.Empty(t, none)

	_, _, err = TrainTestSplit(10, 0, 0)
	assert.Error(t, err)
	_, _, err = TrainTestSplit(10, 1.5, 0)
	assert.Error(t, err)
}
