// Package linalg holds the small-matrix helpers shared by the filters.
// Matrices never exceed 3x3 here, so every helper allocates freely.
package linalg

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Eye returns the n x n identity matrix.
func Eye(n int) *mat.Dense {
	result := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		result.Set(i, i, 1.0)
	}
	return result
}

// Diag returns a square matrix with values on its diagonal.
func Diag(values ...float64) *mat.Dense {
	n := len(values)
	result := mat.NewDense(n, n, nil)
	for i, v := range values {
		result.Set(i, i, v)
	}
	return result
}

// Rows builds a dense matrix from row slices. All rows must share one length.
func Rows(rows ...[]float64) *mat.Dense {
	r := len(rows)
	c := len(rows[0])
	data := make([]float64, 0, r*c)
	for _, row := range rows {
		if len(row) != c {
			panic("linalg: ragged rows")
		}
		data = append(data, row...)
	}
	return mat.NewDense(r, c, data)
}

// Vec returns a column vector holding a copy of values.
func Vec(values ...float64) *mat.VecDense {
	data := make([]float64, len(values))
	copy(data, values)
	return mat.NewVecDense(len(data), data)
}

// Values copies the elements of v into a new slice.
func Values(v mat.Vector) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}

// IsSymmetric reports whether m is square and m[i][j] and m[j][i] differ by
// no more than tol relative to the larger magnitude (absolute below 1).
func IsSymmetric(m mat.Matrix, tol float64) bool {
	r, c := m.Dims()
	if r != c {
		return false
	}
	for i := 0; i < r; i++ {
		for j := i + 1; j < c; j++ {
			a, b := m.At(i, j), m.At(j, i)
			scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
			if math.Abs(a-b) > tol*scale {
				return false
			}
		}
	}
	return true
}

// Symmetrize overwrites m with (m + mᵀ)/2. m must be square.
func Symmetrize(m *mat.Dense) {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		for j := i + 1; j < r; j++ {
			avg := 0.5 * (m.At(i, j) + m.At(j, i))
			m.Set(i, j, avg)
			m.Set(j, i, avg)
		}
	}
}

// Trace returns the sum of the diagonal of a square matrix.
func Trace(m mat.Matrix) float64 {
	r, _ := m.Dims()
	var sum float64
	for i := 0; i < r; i++ {
		sum += m.At(i, i)
	}
	return sum
}
