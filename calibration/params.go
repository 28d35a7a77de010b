package calibration

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

const (
	leftSectionPrefix  = "LEFT_CAM_"
	rightSectionPrefix = "RIGHT_CAM_"
	stereoSection      = "STEREO"

	baselineKey       = "BaseLine"
	legacyBaselineKey = "Baseline"
	rxKeyPrefix       = "RX_"
	rzKeyPrefix       = "RZ_"
	// The vertical rotation is stored under CV_<tier>, not RY_<tier>.
	ryKeyPrefix = "CV_"

	millimetersToMeters = 0.001
	// The stored RX is scaled by 5 before building the rotation vector.
	rxScale = 5.0
)

// LeftSection is the calibration file section holding the left camera's parameters for t.
func LeftSection(t Tier) string {
	return leftSectionPrefix + t.Suffix()
}

// RightSection is the calibration file section holding the right camera's parameters for t.
func RightSection(t Tier) string {
	return rightSectionPrefix + t.Suffix()
}

// MonoParams are the per-camera intrinsics and radial distortion stored in the calibration file.
type MonoParams struct {
	Cx float64
	Cy float64
	Fx float64
	Fy float64
	K1 float64
	K2 float64
}

// ReadMonoParams reads cx, cy, fx, fy, k1 and k2 from section. Every key is required.
func ReadMonoParams(store *Store, section string) (MonoParams, error) {
	var params MonoParams
	for _, field := range []struct {
		key string
		dst *float64
	}{
		{"cx", &params.Cx},
		{"cy", &params.Cy},
		{"fx", &params.Fx},
		{"fy", &params.Fy},
		{"k1", &params.K1},
		{"k2", &params.K2},
	} {
		v, err := store.Float(section, field.key)
		if err != nil {
			return MonoParams{}, err
		}
		*field.dst = v
	}
	return params, nil
}

// CheckValid reports parameters that cannot describe a camera of the given size. Building
// calibration does not require this; it exists so callers can warn about suspicious files.
func (p MonoParams) CheckValid(width, height int) error {
	if p.Fx <= 0 {
		return errors.Errorf("invalid focal length fx = %#v", p.Fx)
	}
	if p.Fy <= 0 {
		return errors.Errorf("invalid focal length fy = %#v", p.Fy)
	}
	if p.Cx < 0 || p.Cx > float64(width) {
		return errors.Errorf("principal point cx = %#v outside image width %d", p.Cx, width)
	}
	if p.Cy < 0 || p.Cy > float64(height) {
		return errors.Errorf("principal point cy = %#v outside image height %d", p.Cy, height)
	}
	return nil
}

// StereoExtrinsics relate the right camera to the left.
type StereoExtrinsics struct {
	BaselineMeters float64
	RX             float64
	RY             float64
	RZ             float64
}

// ReadStereoExtrinsics reads the baseline (converted from millimeters to meters) and the
// rotation parameters for t from the STEREO section.
func ReadStereoExtrinsics(store *Store, t Tier) (StereoExtrinsics, error) {
	var ext StereoExtrinsics

	baselineMM, err := readBaseline(store)
	if err != nil {
		return StereoExtrinsics{}, err
	}
	ext.BaselineMeters = baselineMM * millimetersToMeters

	if ext.RX, err = store.Float(stereoSection, rxKeyPrefix+t.Suffix()); err != nil {
		return StereoExtrinsics{}, err
	}
	if ext.RZ, err = store.Float(stereoSection, rzKeyPrefix+t.Suffix()); err != nil {
		return StereoExtrinsics{}, err
	}
	if ext.RY, err = store.Float(stereoSection, ryKeyPrefix+t.Suffix()); err != nil {
		return StereoExtrinsics{}, err
	}
	return ext, nil
}

// Older files spell the key "Baseline".
func readBaseline(store *Store) (float64, error) {
	for _, key := range []string{baselineKey, legacyBaselineKey} {
		if store.Has(stereoSection, key) {
			return store.Float(stereoSection, key)
		}
	}
	return 0, NewBaselineMissingError(stereoSection, baselineKey, legacyBaselineKey)
}

// RotationVector is the axis-angle vector of the right camera's rectification rotation.
func (e StereoExtrinsics) RotationVector() r3.Vector {
	return r3.Vector{X: rxScale * e.RX, Y: e.RY, Z: e.RZ}
}
