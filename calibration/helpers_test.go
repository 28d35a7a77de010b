package calibration

import (
	"testing"

	"go.viam.com/test"
)

// sampleConfig is a trimmed factory calibration file for a ZED camera (serial 12880).
const sampleConfig = `
[LEFT_CAM_2K]
cx=1104.52
cy=636.93
fx=1399.68
fy=1399.68
k1=-0.1713
k2=0.0245

[RIGHT_CAM_2K]
cx=1097.61
cy=624.12
fx=1397.82
fy=1397.82
k1=-0.1705
k2=0.0239

[LEFT_CAM_HD]
cx=655.49
cy=362.85
fx=699.84
fy=699.84
k1=-0.1713
k2=0.0245

[RIGHT_CAM_HD]
cx=652.31
cy=356.51
fx=698.91
fy=698.91
k1=-0.1705
k2=0.0239

[LEFT_CAM_VGA]
cx=331.245
cy=187.925
fx=349.92
fy=349.92
k1=-0.1713
k2=0.0245

[RIGHT_CAM_VGA]
cx=329.655
cy=184.755
fx=349.455
fy=349.455
k1=-0.1705
k2=0.0239

[STEREO]
BaseLine=120
CV_2K=0.0021
CV_HD=0.0021
CV_VGA=0.0021
RX_2K=0.0013
RX_HD=0.0013
RX_VGA=0.0013
RZ_2K=-0.0009
RZ_HD=-0.0009
RZ_VGA=-0.0009
`

func sampleStore(t *testing.T) *Store {
	t.Helper()
	store, err := ParseStoreINI([]byte(sampleConfig))
	test.That(t, err, test.ShouldBeNil)
	return store
}

// sampleTree returns the HD portion of sampleConfig as an in-memory tree, for tests that need to
// remove or alter individual keys.
func sampleTree() map[string]map[string]interface{} {
	return map[string]map[string]interface{}{
		"LEFT_CAM_HD": {
			"cx": 655.49, "cy": 362.85, "fx": 699.84, "fy": 699.84, "k1": -0.1713, "k2": 0.0245,
		},
		"RIGHT_CAM_HD": {
			"cx": 652.31, "cy": 356.51, "fx": 698.91, "fy": 698.91, "k1": -0.1705, "k2": 0.0239,
		},
		"STEREO": {
			"BaseLine": 120, "CV_HD": 0.0021, "RX_HD": 0.0013, "RZ_HD": -0.0009,
		},
	}
}
