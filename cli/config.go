package cli

import (
	"github.com/urfave/cli/v2"

	"go.viam.com/stereorepeater/calibration"
	"go.viam.com/stereorepeater/config"
	"go.viam.com/stereorepeater/logging"
)

// loadConfig reads the config file, if any, and applies flag overrides on top.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String(flagConfig); path != "" {
		var err error
		if cfg, err = config.Read(path); err != nil {
			return nil, err
		}
	}
	if c.IsSet(flagResolution) {
		tier, err := calibration.ParseTier(c.String(flagResolution))
		if err != nil {
			return nil, err
		}
		cfg.Resolution = tier
	}
	if c.IsSet(flagCalibrationFile) {
		cfg.CalibrationFile = c.String(flagCalibrationFile)
		cfg.LoadZEDConfig = true
	}
	if c.IsSet(flagListen) {
		cfg.ListenAddress = c.String(flagListen)
	}
	if c.IsSet(flagLogFile) {
		cfg.Log.File = c.String(flagLogFile)
	}
	if c.Bool(flagDebug) {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// newLogger builds the process logger. The returned function flushes and closes its outputs.
func newLogger(cfg config.LogConfig) (logging.Logger, func(), error) {
	level, err := logging.LevelFromString(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.NewLogger("stereorepeater")
	logger.SetLevel(level)
	if cfg.File == "" {
		return logger, func() {
			//nolint:errcheck
			logger.Sync()
		}, nil
	}

	fileAppender := logging.NewFileAppender(logging.FileAppenderConfig{
		Filename:   cfg.File,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	})
	logger.AddAppender(fileAppender)
	return logger, func() {
		//nolint:errcheck
		logger.Sync()
		//nolint:errcheck
		fileAppender.Close()
	}, nil
}
