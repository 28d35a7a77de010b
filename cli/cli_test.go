package cli

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/stereorepeater/calibration"
	"go.viam.com/stereorepeater/config"
	"go.viam.com/stereorepeater/logging"
)

const calibrationINI = `
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

[STEREO]
Baseline=120
CV_HD=0.0021
RX_HD=0.0013
RZ_HD=-0.0009
`

func writeCalibration(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "SN12880.conf")
	test.That(t, os.WriteFile(path, []byte(calibrationINI), 0o600), test.ShouldBeNil)
	return path
}

func TestCalibrationExport(t *testing.T) {
	calibrationFile := writeCalibration(t)
	outDir := filepath.Join(t.TempDir(), "out")

	err := NewApp().Run([]string{
		"stereorepeater", "--calibration-file", calibrationFile, "--resolution", "HD",
		"calibration", "export", "--out-dir", outDir,
	})
	test.That(t, err, test.ShouldBeNil)

	left, right, err := calibration.LoadStereoCameraInfoYAML(
		filepath.Join(outDir, "left.yaml"), filepath.Join(outDir, "right.yaml"), "left_camera", "right_camera")
	test.That(t, err, test.ShouldBeNil)

	store, err := calibration.LoadStoreINI(calibrationFile)
	test.That(t, err, test.ShouldBeNil)
	expectedLeft, expectedRight, err := calibration.Build(store, calibration.TierStandard, "left_camera", "right_camera")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, left, test.ShouldResemble, expectedLeft)
	test.That(t, right, test.ShouldResemble, expectedRight)
	test.That(t, right.P[3], test.ShouldAlmostEqual, -699.84*0.12)
}

func TestCalibrationExportMissingTier(t *testing.T) {
	err := NewApp().Run([]string{
		"stereorepeater", "--calibration-file", writeCalibration(t), "--resolution", "2K",
		"calibration", "export", "--out-dir", t.TempDir(),
	})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "LEFT_CAM_2K.cx")
}

func TestCalibrationShow(t *testing.T) {
	var out bytes.Buffer
	app := NewApp()
	app.Writer = &out
	err := app.Run([]string{
		"stereorepeater", "--calibration-file", writeCalibration(t), "--resolution", "HD", "calibration", "show",
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldContainSubstring, "left_camera")
	test.That(t, out.String(), test.ShouldContainSubstring, "1280x720")
	test.That(t, out.String(), test.ShouldContainSubstring, "plumb_bob")
	test.That(t, out.String(), test.ShouldContainSubstring, "-83.9808")
}

func TestFormatFloats(t *testing.T) {
	test.That(t, formatFloats([]float64{1, 0, 2, 0, 1, 3}, 3), test.ShouldEqual, "1 0 2\n0 1 3")
	test.That(t, formatFloats(nil, 3), test.ShouldEqual, "")
}

func TestRunActionInvalidConfig(t *testing.T) {
	err := NewApp().Run([]string{"stereorepeater", "run"})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "invalid configuration")

	err = NewApp().Run([]string{"stereorepeater", "--resolution", "QHD", "run"})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestLoadCameraInfosStored(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cfg := config.Default()
	cfg.CalibrationFile = writeCalibration(t)
	cfg.Resolution = calibration.TierStandard
	left, right, err := loadCameraInfos(cfg, logger)
	test.That(t, err, test.ShouldBeNil)

	dir := t.TempDir()
	test.That(t, calibration.WriteCameraInfoYAML(filepath.Join(dir, "l.yaml"), left, "zed_left"), test.ShouldBeNil)
	test.That(t, calibration.WriteCameraInfoYAML(filepath.Join(dir, "r.yaml"), right, "zed_right"), test.ShouldBeNil)

	cfg.LoadZEDConfig = false
	cfg.LeftCameraInfoFile = filepath.Join(dir, "l.yaml")
	cfg.RightCameraInfoFile = filepath.Join(dir, "r.yaml")
	cfg.LeftFrameID = "stored_left"
	storedLeft, storedRight, err := loadCameraInfos(cfg, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, storedLeft.FrameID, test.ShouldEqual, "stored_left")
	test.That(t, storedLeft.K, test.ShouldResemble, left.K)
	test.That(t, storedRight.P, test.ShouldResemble, right.P)

	cfg.RightCameraInfoFile = filepath.Join(dir, "missing.yaml")
	_, _, err = loadCameraInfos(cfg, logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func writeFrame(t *testing.T, staging, watched, name string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 200, A: 255})
	tmp := filepath.Join(staging, name)
	f, err := os.Create(tmp)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, png.Encode(f, img), test.ShouldBeNil)
	test.That(t, f.Close(), test.ShouldBeNil)
	test.That(t, os.Rename(tmp, filepath.Join(watched, name)), test.ShouldBeNil)
}

func TestRun(t *testing.T) {
	logger, observed := logging.NewObservedTestLogger(t)
	watched, staging := t.TempDir(), t.TempDir()

	cfg := config.Default()
	cfg.CalibrationFile = writeCalibration(t)
	cfg.Resolution = calibration.TierStandard
	cfg.ListenAddress = ""
	cfg.StatsInterval = 0
	cfg.Source.Dir = &config.DirSourceConfig{Path: watched}
	test.That(t, cfg.Validate(), test.ShouldBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, logger) }()

	received := func() bool {
		return observed.FilterMessage("left image received").Len() == 1 &&
			observed.FilterMessage("right image received").Len() == 1
	}
	deadline := time.Now().Add(5 * time.Second)
	for !received() && time.Now().Before(deadline) {
		// the watcher may not be running yet; keep dropping pairs until both sides are seen
		writeFrame(t, staging, watched, "left_0001.png")
		writeFrame(t, staging, watched, "right_0001.png")
		time.Sleep(20 * time.Millisecond)
	}
	test.That(t, received(), test.ShouldBeTrue)

	cancel()
	test.That(t, <-done, test.ShouldBeNil)

	// nobody subscribed, so every pair was skipped on all four channels
	test.That(t, observed.FilterMessage("publishing").Len(), test.ShouldEqual, 0)
	stats := observed.FilterMessage("repeater stats").All()
	test.That(t, stats, test.ShouldHaveLength, 1)
	test.That(t, stats[0].ContextMap()["left_image_published"], test.ShouldEqual, uint64(0))
}

func TestRunCalibrationFailureAborts(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cfg := config.Default()
	cfg.CalibrationFile = writeCalibration(t)
	cfg.Resolution = calibration.TierFull
	cfg.Source.Dir = &config.DirSourceConfig{Path: t.TempDir()}

	err := run(context.Background(), cfg, logger)
	test.That(t, err, test.ShouldNotBeNil)
	var missing *calibration.ConfigMissingError
	test.That(t, errors.As(err, &missing), test.ShouldBeTrue)
	test.That(t, missing.Section, test.ShouldEqual, "LEFT_CAM_2K")
}
