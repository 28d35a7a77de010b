package calibration

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Below this angle the rotation is treated as the identity.
const rodriguesEpsilon = 2.220446049250313e-16

// Rodrigues converts an axis-angle vector (angle = norm, axis = direction) into a 3x3 rotation
// matrix: R = I + sin(θ)[k]× + (1 - cos(θ))[k]×².
func Rodrigues(v r3.Vector) *mat.Dense {
	rot := identity3()
	theta := v.Norm()
	if theta < rodriguesEpsilon {
		return rot
	}
	k := v.Mul(1 / theta)
	cross := mat.NewDense(3, 3, []float64{
		0, -k.Z, k.Y,
		k.Z, 0, -k.X,
		-k.Y, k.X, 0,
	})

	var term mat.Dense
	term.Scale(math.Sin(theta), cross)
	rot.Add(rot, &term)

	var crossSq mat.Dense
	crossSq.Mul(cross, cross)
	term.Scale(1-math.Cos(theta), &crossSq)
	rot.Add(rot, &term)
	return rot
}

func identity3() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})
}

// rowMajor copies m's entries in row-major order.
func rowMajor(m mat.Matrix, dst []float64) {
	rows, cols := m.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			dst[i*cols+j] = m.At(i, j)
		}
	}
}
