package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/stereorepeater/calibration"
	"go.viam.com/stereorepeater/config"
	"go.viam.com/stereorepeater/logging"
)

// loadCameraInfos produces the left and right calibration records from either the camera
// calibration file or the two pre-stored camera_info files.
func loadCameraInfos(cfg *config.Config, logger logging.Logger) (*calibration.CameraInfo, *calibration.CameraInfo, error) {
	if !cfg.LoadZEDConfig {
		left, right, err := calibration.LoadStereoCameraInfoYAML(
			cfg.LeftCameraInfoFile, cfg.RightCameraInfoFile, cfg.LeftFrameID, cfg.RightFrameID)
		if err != nil {
			return nil, nil, err
		}
		logger.Infow("loaded stored calibration",
			"left", cfg.LeftCameraInfoFile, "right", cfg.RightCameraInfoFile,
			"width", left.Width, "height", left.Height)
		return left, right, nil
	}

	store, err := calibration.LoadStoreINI(cfg.CalibrationFile)
	if err != nil {
		return nil, nil, err
	}
	left, right, err := calibration.Build(store, cfg.Resolution, cfg.LeftFrameID, cfg.RightFrameID)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "cannot derive calibration from %q", cfg.CalibrationFile)
	}
	for _, section := range []string{calibration.LeftSection(cfg.Resolution), calibration.RightSection(cfg.Resolution)} {
		params, err := calibration.ReadMonoParams(store, section)
		if err != nil {
			return nil, nil, err
		}
		if err := params.CheckValid(cfg.Resolution.Width(), cfg.Resolution.Height()); err != nil {
			logger.Warnw("suspicious calibration", "section", section, "error", err)
		}
	}
	logger.Infow("derived calibration",
		"file", cfg.CalibrationFile, "resolution", cfg.Resolution.Suffix(),
		"width", left.Width, "height", left.Height, "tx", right.P[3])
	return left, right, nil
}

// CalibrationExportAction writes the calibration the repeater would publish as camera_info
// YAML, ready to be used as pre-stored calibration.
func CalibrationExportAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, closeLogs, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLogs()

	left, right, err := loadCameraInfos(cfg, logger)
	if err != nil {
		return err
	}
	outDir := c.String(flagOutDir)
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return errors.Wrapf(err, "cannot create %q", outDir)
	}
	for name, info := range map[string]*calibration.CameraInfo{"left.yaml": left, "right.yaml": right} {
		path := filepath.Join(outDir, name)
		if err := calibration.WriteCameraInfoYAML(path, info, info.FrameID); err != nil {
			return err
		}
		logger.Infow("wrote calibration", "path", path)
	}
	return nil
}

// CalibrationShowAction prints the calibration the repeater would publish as a table.
func CalibrationShowAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, closeLogs, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLogs()

	left, right, err := loadCameraInfos(cfg, logger)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, calibrationTable(left, right))
	return err
}

// calibrationTable renders one row per camera with its matrices in row-major order.
func calibrationTable(infos ...*calibration.CameraInfo) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Frame", "Size", "Model", "D", "K", "R", "P"})
	for _, info := range infos {
		t.AppendRow(table.Row{
			info.FrameID,
			fmt.Sprintf("%dx%d", info.Width, info.Height),
			string(info.DistortionModel),
			formatFloats(info.D, len(info.D)),
			formatFloats(info.K[:], 3),
			formatFloats(info.R[:], 3),
			formatFloats(info.P[:], 4),
		})
	}
	return t.Render()
}

// formatFloats prints values with a line break after every cols entries.
func formatFloats(values []float64, cols int) string {
	var sb strings.Builder
	for i, v := range values {
		switch {
		case i == 0:
		case i%cols == 0:
			sb.WriteString("\n")
		default:
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%.6g", v)
	}
	return sb.String()
}
