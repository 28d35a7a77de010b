package calibration

import (
	"os"

	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gopkg.in/yaml.v2"
)

type yamlMatrix struct {
	Rows int       `yaml:"rows"`
	Cols int       `yaml:"cols"`
	Data []float64 `yaml:"data,flow"`
}

// cameraInfoYAML is the on-disk camera calibration format written by the ROS calibration tools.
type cameraInfoYAML struct {
	ImageWidth             int        `yaml:"image_width"`
	ImageHeight            int        `yaml:"image_height"`
	CameraName             string     `yaml:"camera_name"`
	CameraMatrix           yamlMatrix `yaml:"camera_matrix"`
	DistortionModel        string     `yaml:"distortion_model"`
	DistortionCoefficients yamlMatrix `yaml:"distortion_coefficients"`
	RectificationMatrix    yamlMatrix `yaml:"rectification_matrix"`
	ProjectionMatrix       yamlMatrix `yaml:"projection_matrix"`
}

func (m yamlMatrix) check(name string, rows, cols int) error {
	if m.Rows != rows || m.Cols != cols {
		return errors.Errorf("%s must be %dx%d, got %dx%d", name, rows, cols, m.Rows, m.Cols)
	}
	if len(m.Data) != rows*cols {
		return errors.Errorf("%s has %d values, expected %d", name, len(m.Data), rows*cols)
	}
	return nil
}

// ParseCameraInfoYAML decodes a pre-stored calibration. The frame id is not part of the file
// format and is taken from frameID. The camera name from the file is returned alongside.
func ParseCameraInfoYAML(data []byte, frameID string) (*CameraInfo, string, error) {
	var raw cameraInfoYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, "", errors.Wrap(err, "error parsing camera info YAML")
	}
	if err := raw.CameraMatrix.check("camera_matrix", 3, 3); err != nil {
		return nil, "", err
	}
	if err := raw.RectificationMatrix.check("rectification_matrix", 3, 3); err != nil {
		return nil, "", err
	}
	if err := raw.ProjectionMatrix.check("projection_matrix", 3, 4); err != nil {
		return nil, "", err
	}
	coeffs := raw.DistortionCoefficients
	if coeffs.Rows != 1 || coeffs.Cols != len(coeffs.Data) {
		return nil, "", errors.Errorf("distortion_coefficients must be 1x%d, got %dx%d",
			len(coeffs.Data), coeffs.Rows, coeffs.Cols)
	}
	if raw.ImageWidth <= 0 || raw.ImageHeight <= 0 {
		return nil, "", errors.Errorf("invalid image size (%d, %d)", raw.ImageWidth, raw.ImageHeight)
	}

	info := &CameraInfo{
		FrameID:         frameID,
		Width:           raw.ImageWidth,
		Height:          raw.ImageHeight,
		DistortionModel: DistortionModel(raw.DistortionModel),
		D:               append([]float64(nil), coeffs.Data...),
	}
	copy(info.K[:], raw.CameraMatrix.Data)
	copy(info.R[:], raw.RectificationMatrix.Data)
	copy(info.P[:], raw.ProjectionMatrix.Data)
	return info, raw.CameraName, nil
}

// LoadCameraInfoYAML reads a pre-stored calibration from path.
func LoadCameraInfoYAML(path, frameID string) (*CameraInfo, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading camera info file %q", path)
	}
	info, _, err := ParseCameraInfoYAML(data, frameID)
	if err != nil {
		return nil, errors.Wrapf(err, "camera info file %q", path)
	}
	return info, nil
}

// LoadStereoCameraInfoYAML reads the left and right pre-stored calibrations.
func LoadStereoCameraInfoYAML(leftPath, rightPath, leftFrameID, rightFrameID string) (*CameraInfo, *CameraInfo, error) {
	left, err := LoadCameraInfoYAML(leftPath, leftFrameID)
	if err != nil {
		return nil, nil, err
	}
	right, err := LoadCameraInfoYAML(rightPath, rightFrameID)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

// MarshalCameraInfoYAML encodes info in the pre-stored calibration format.
func MarshalCameraInfoYAML(info *CameraInfo, cameraName string) ([]byte, error) {
	if info == nil {
		return nil, errors.New("camera info is nil")
	}
	raw := cameraInfoYAML{
		ImageWidth:             info.Width,
		ImageHeight:            info.Height,
		CameraName:             cameraName,
		CameraMatrix:           yamlMatrix{3, 3, append([]float64(nil), info.K[:]...)},
		DistortionModel:        string(info.DistortionModel),
		DistortionCoefficients: yamlMatrix{1, len(info.D), append([]float64(nil), info.D...)},
		RectificationMatrix:    yamlMatrix{3, 3, append([]float64(nil), info.R[:]...)},
		ProjectionMatrix:       yamlMatrix{3, 4, append([]float64(nil), info.P[:]...)},
	}
	return yaml.Marshal(&raw)
}

// WriteCameraInfoYAML writes info to path in the pre-stored calibration format.
func WriteCameraInfoYAML(path string, info *CameraInfo, cameraName string) error {
	data, err := MarshalCameraInfoYAML(info, cameraName)
	if err != nil {
		return err
	}
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "error creating camera info file %q", path)
	}
	defer utils.UncheckedErrorFunc(f.Close)
	if _, err := f.Write(data); err != nil {
		return errors.Wrapf(err, "error writing camera info file %q", path)
	}
	return f.Sync()
}
