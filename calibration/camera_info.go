package calibration

import (
	"gonum.org/v1/gonum/mat"
)

// DistortionModel is the name of the lens distortion model, as used in camera_info messages.
type DistortionModel string

const (
	// PlumbBob is the 5 parameter radial/tangential model (k1, k2, t1, t2, k3), also known as
	// Brown-Conrady.
	PlumbBob = DistortionModel("plumb_bob")
	// RationalPolynomial is the 8 parameter model used by wide lenses.
	RationalPolynomial = DistortionModel("rational_polynomial")
	// Equidistant is the 4 parameter fisheye model.
	Equidistant = DistortionModel("equidistant")
)

// CameraInfo is the calibration published alongside one camera's images.
//
// K is the 3x3 intrinsic matrix, R the 3x3 rectification matrix and P the 3x4 projection
// matrix, all row-major. A CameraInfo is shared by every publish for the life of the process and
// must not be mutated once built; use Clone to get a private copy.
type CameraInfo struct {
	FrameID         string          `json:"frame_id"`
	Width           int             `json:"width"`
	Height          int             `json:"height"`
	DistortionModel DistortionModel `json:"distortion_model"`
	D               []float64       `json:"D"`
	K               [9]float64      `json:"K"`
	R               [9]float64      `json:"R"`
	P               [12]float64     `json:"P"`
}

// Clone returns a deep copy.
func (ci *CameraInfo) Clone() *CameraInfo {
	if ci == nil {
		return nil
	}
	clone := *ci
	clone.D = append([]float64(nil), ci.D...)
	return &clone
}

// KMatrix returns K as a 3x3 matrix:
//
//	[[fx 0 cx],
//	 [0 fy cy],
//	 [0 0  1]]
func (ci *CameraInfo) KMatrix() *mat.Dense {
	return mat.NewDense(3, 3, append([]float64(nil), ci.K[:]...))
}

// RMatrix returns R as a 3x3 matrix.
func (ci *CameraInfo) RMatrix() *mat.Dense {
	return mat.NewDense(3, 3, append([]float64(nil), ci.R[:]...))
}

// PMatrix returns P as a 3x4 matrix.
func (ci *CameraInfo) PMatrix() *mat.Dense {
	return mat.NewDense(3, 4, append([]float64(nil), ci.P[:]...))
}
