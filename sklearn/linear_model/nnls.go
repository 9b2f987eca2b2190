package linear_model

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// nnlsTol is the dual feasibility threshold of the active set iterations.
const nnlsTol = 1e-10

// solveNNLS minimises ||Ax - b|| subject to x >= 0 with the Lawson-Hanson
// active set method. It returns the solution and the size of the final
// passive set.
func solveNNLS(A *mat.Dense, b []float64) ([]float64, int, error) {
	rows, cols := A.Dims()
	bv := mat.NewVecDense(rows, b)
	x := make([]float64, cols)
	passive := make([]bool, cols)

	grad := func() []float64 {
		var r mat.VecDense
		r.MulVec(A, mat.NewVecDense(cols, x))
		r.SubVec(bv, &r)
		var w mat.VecDense
		w.MulVec(A.T(), &r)
		return w.RawVector().Data
	}

	for iter := 0; iter < 3*cols+1; iter++ {
		w := grad()
		j, best := -1, nnlsTol
		for k := range w {
			if !passive[k] && w[k] > best {
				j, best = k, w[k]
			}
		}
		if j < 0 {
			break
		}
		passive[j] = true

		for inner := 0; inner < 3*cols+1; inner++ {
			s, err := passiveSolve(A, bv, passive)
			if err != nil {
				return nil, 0, err
			}
			feasible := true
			alpha := 1.0
			for k := range s {
				if passive[k] && s[k] <= 0 {
					feasible = false
					if step := x[k] / (x[k] - s[k]); step < alpha {
						alpha = step
					}
				}
			}
			if feasible {
				copy(x, s)
				break
			}
			// move towards s until the first passive coefficient hits zero
			for k := range x {
				x[k] += alpha * (s[k] - x[k])
				if passive[k] && x[k] <= nnlsTol {
					x[k] = 0
					passive[k] = false
				}
			}
		}
	}

	n := 0
	for k := range passive {
		if passive[k] {
			n++
		} else {
			x[k] = 0
		}
	}
	return x, n, nil
}

// passiveSolve solves the unconstrained problem on the passive columns and
// returns a full-length vector with zeros elsewhere.
func passiveSolve(A *mat.Dense, b *mat.VecDense, passive []bool) ([]float64, error) {
	rows, cols := A.Dims()
	idx := make([]int, 0, cols)
	for k, p := range passive {
		if p {
			idx = append(idx, k)
		}
	}
	out := make([]float64, cols)
	if len(idx) == 0 {
		return out, nil
	}
	sub := mat.NewDense(rows, len(idx), nil)
	for c, k := range idx {
		sub.SetCol(c, mat.Col(nil, k, A))
	}
	coef, _, err := solveLeastSquares(sub, b)
	if err != nil {
		return nil, err
	}
	for c, k := range idx {
		out[k] = coef[c]
	}
	return out, nil
}

// fitPositive fits non-negative coefficients. With an intercept the columns
// and target are centred first so the intercept itself stays unconstrained.
func fitPositive(X, y mat.Matrix, intercept bool) ([]float64, float64, int, error) {
	rows, cols := X.Dims()
	A := mat.DenseCopyOf(X)
	b := mat.Col(nil, 0, y)

	means := make([]float64, cols)
	yMean := 0.0
	if intercept {
		for j := 0; j < cols; j++ {
			col := mat.Col(nil, j, A)
			means[j] = floats.Sum(col) / float64(rows)
			floats.AddConst(-means[j], col)
			A.SetCol(j, col)
		}
		yMean = floats.Sum(b) / float64(rows)
		floats.AddConst(-yMean, b)
	}

	coef, rank, err := solveNNLS(A, b)
	if err != nil {
		return nil, 0, 0, err
	}
	if !intercept {
		return coef, 0, rank, nil
	}
	return coef, yMean - floats.Dot(means, coef), rank + 1, nil
}
