// Package config defines the repeater's configuration file and its validation.
package config

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/stereorepeater/calibration"
	"go.viam.com/stereorepeater/logging"
)

// Defaults applied before a file is read.
const (
	DefaultLeftFrameID       = "left_camera"
	DefaultRightFrameID      = "right_camera"
	DefaultLeftImageFrameID  = "left_frame"
	DefaultRightImageFrameID = "right_frame"
	DefaultListenAddress     = "localhost:8090"
	DefaultStatsInterval     = 30 * time.Second
)

// Config is the whole repeater configuration.
type Config struct {
	// Resolution selects the calibration tier by suffix ("FHD"), name ("HIGH") or index (1).
	Resolution calibration.Tier `yaml:"resolution"`

	// Frame ids of the calibration messages.
	LeftFrameID  string `yaml:"left_frame_id"`
	RightFrameID string `yaml:"right_frame_id"`
	// Frame ids stamped on republished images.
	LeftImageFrameID  string `yaml:"left_image_frame_id"`
	RightImageFrameID string `yaml:"right_image_frame_id"`

	// LoadZEDConfig derives calibration from CalibrationFile. When false the two pre-stored
	// camera_info files are used instead.
	LoadZEDConfig       bool   `yaml:"load_zed_config"`
	CalibrationFile     string `yaml:"calibration_file"`
	LeftCameraInfoFile  string `yaml:"left_camera_info_file"`
	RightCameraInfoFile string `yaml:"right_camera_info_file"`

	Topics        TopicsConfig  `yaml:"topics"`
	ListenAddress string        `yaml:"listen_address"`
	QueueSize     int           `yaml:"queue_size"`
	StatsInterval time.Duration `yaml:"stats_interval"`
	// FrameRate caps inbound frames per second and side. Zero disables the cap.
	FrameRate float64 `yaml:"frame_rate"`

	Source SourceConfig `yaml:"source"`
	Log    LogConfig    `yaml:"log"`
}

// TopicsConfig names the inbound and outbound topics.
type TopicsConfig struct {
	LeftIn     string `yaml:"left_in"`
	RightIn    string `yaml:"right_in"`
	LeftImage  string `yaml:"left_image"`
	RightImage string `yaml:"right_image"`
	LeftInfo   string `yaml:"left_info"`
	RightInfo  string `yaml:"right_info"`
}

// SourceConfig selects where inbound frames come from. Exactly one source is used.
type SourceConfig struct {
	Bag *BagSourceConfig `yaml:"bag,omitempty"`
	Dir *DirSourceConfig `yaml:"dir,omitempty"`
}

// BagSourceConfig replays a rosbag.
type BagSourceConfig struct {
	Path       string  `yaml:"path"`
	LeftTopic  string  `yaml:"left_topic"`
	RightTopic string  `yaml:"right_topic"`
	Rate       float64 `yaml:"rate"`
	Loop       bool    `yaml:"loop"`
}

// DirSourceConfig watches a directory for still images.
type DirSourceConfig struct {
	Path        string        `yaml:"path"`
	LeftPrefix  string        `yaml:"left_prefix"`
	RightPrefix string        `yaml:"right_prefix"`
	Settle      time.Duration `yaml:"settle"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	Compress   bool   `yaml:"compress"`
}

// Default returns a configuration with every default filled in.
func Default() *Config {
	return &Config{
		Resolution:        calibration.TierHigh,
		LeftFrameID:       DefaultLeftFrameID,
		RightFrameID:      DefaultRightFrameID,
		LeftImageFrameID:  DefaultLeftImageFrameID,
		RightImageFrameID: DefaultRightImageFrameID,
		LoadZEDConfig:     true,
		Topics: TopicsConfig{
			LeftIn:     "left/image_throttle",
			RightIn:    "right/image_throttle",
			LeftImage:  "left/image_raw",
			RightImage: "right/image_raw",
			LeftInfo:   "left/camera_info",
			RightInfo:  "right/camera_info",
		},
		ListenAddress: DefaultListenAddress,
		StatsInterval: DefaultStatsInterval,
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}

// Validate returns every problem found, combined.
func (cfg *Config) Validate() error {
	var errs error
	if !cfg.Resolution.Valid() {
		errs = multierr.Append(errs, utils.NewConfigValidationError("resolution",
			errors.Errorf("unknown tier %d", int(cfg.Resolution))))
	}
	for field, value := range map[string]string{
		"left_frame_id":  cfg.LeftFrameID,
		"right_frame_id": cfg.RightFrameID,
	} {
		if value == "" {
			errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError("", field))
		}
	}
	if cfg.LoadZEDConfig {
		if cfg.CalibrationFile == "" {
			errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError("", "calibration_file"))
		}
	} else {
		if cfg.LeftCameraInfoFile == "" {
			errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError("", "left_camera_info_file"))
		}
		if cfg.RightCameraInfoFile == "" {
			errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError("", "right_camera_info_file"))
		}
	}
	errs = multierr.Append(errs, cfg.Topics.Validate("topics"))
	if cfg.QueueSize < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError("queue_size",
			errors.Errorf("must be non-negative, got %d", cfg.QueueSize)))
	}
	if cfg.FrameRate < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError("frame_rate",
			errors.Errorf("must be non-negative, got %v", cfg.FrameRate)))
	}
	if cfg.StatsInterval < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError("stats_interval",
			errors.Errorf("must be non-negative, got %v", cfg.StatsInterval)))
	}
	errs = multierr.Append(errs, cfg.Source.Validate("source"))
	if _, err := logging.LevelFromString(cfg.Log.Level); err != nil {
		errs = multierr.Append(errs, utils.NewConfigValidationError("log.level", err))
	}
	return errs
}

// Validate checks that every topic is named and that no name is used twice.
func (tc TopicsConfig) Validate(path string) error {
	var errs error
	seen := map[string]string{}
	for _, topic := range []struct{ field, name string }{
		{"left_in", tc.LeftIn},
		{"right_in", tc.RightIn},
		{"left_image", tc.LeftImage},
		{"right_image", tc.RightImage},
		{"left_info", tc.LeftInfo},
		{"right_info", tc.RightInfo},
	} {
		if topic.name == "" {
			errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError(path, topic.field))
			continue
		}
		if other, ok := seen[topic.name]; ok {
			errs = multierr.Append(errs, utils.NewConfigValidationError(path,
				errors.Errorf("%s and %s both use topic %q", other, topic.field, topic.name)))
			continue
		}
		seen[topic.name] = topic.field
	}
	return errs
}

// Validate checks that exactly one source is configured and complete.
func (sc SourceConfig) Validate(path string) error {
	switch {
	case sc.Bag == nil && sc.Dir == nil:
		return utils.NewConfigValidationError(path, errors.New("one of bag or dir is required"))
	case sc.Bag != nil && sc.Dir != nil:
		return utils.NewConfigValidationError(path, errors.New("only one of bag or dir may be set"))
	case sc.Bag != nil:
		var errs error
		for field, value := range map[string]string{
			"path":        sc.Bag.Path,
			"left_topic":  sc.Bag.LeftTopic,
			"right_topic": sc.Bag.RightTopic,
		} {
			if value == "" {
				errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError(path+".bag", field))
			}
		}
		if sc.Bag.Rate < 0 {
			errs = multierr.Append(errs, utils.NewConfigValidationError(path+".bag",
				errors.Errorf("rate must be non-negative, got %v", sc.Bag.Rate)))
		}
		return errs
	default:
		var errs error
		if sc.Dir.Path == "" {
			errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError(path+".dir", "path"))
		}
		if sc.Dir.Settle < 0 {
			errs = multierr.Append(errs, utils.NewConfigValidationError(path+".dir",
				errors.Errorf("settle must be non-negative, got %v", sc.Dir.Settle)))
		}
		return errs
	}
}
