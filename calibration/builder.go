package calibration

// Build derives both cameras' CameraInfo for tier t from a parsed calibration file.
//
// Left R is the identity and right R is the Rodrigues rotation of (5*RX, CV, RZ); the canonical
// composition with the left rectification is intentionally not applied. Right P carries
// Tx = -leftFx * baseline. Both records use the plumb_bob model with D = [k1, k2, 0, 0, 0].
func Build(store *Store, t Tier, leftFrameID, rightFrameID string) (*CameraInfo, *CameraInfo, error) {
	leftParams, err := ReadMonoParams(store, LeftSection(t))
	if err != nil {
		return nil, nil, err
	}
	rightParams, err := ReadMonoParams(store, RightSection(t))
	if err != nil {
		return nil, nil, err
	}
	ext, err := ReadStereoExtrinsics(store, t)
	if err != nil {
		return nil, nil, err
	}

	left := monoCameraInfo(leftParams, t, leftFrameID)
	right := monoCameraInfo(rightParams, t, rightFrameID)

	left.R = [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}
	rowMajor(Rodrigues(ext.RotationVector()), right.R[:])

	right.P[3] = -leftParams.Fx * ext.BaselineMeters
	return left, right, nil
}

// monoCameraInfo fills everything that depends only on one camera: D, K and P without Tx.
func monoCameraInfo(p MonoParams, t Tier, frameID string) *CameraInfo {
	return &CameraInfo{
		FrameID:         frameID,
		Width:           t.Width(),
		Height:          t.Height(),
		DistortionModel: PlumbBob,
		// The file only has k1 and k2; t1, t2 and k3 are zero.
		D: []float64{p.K1, p.K2, 0, 0, 0},
		K: [9]float64{
			p.Fx, 0, p.Cx,
			0, p.Fy, p.Cy,
			0, 0, 1,
		},
		P: [12]float64{
			p.Fx, 0, p.Cx, 0,
			0, p.Fy, p.Cy, 0,
			0, 0, 1, 0,
		},
	}
}
