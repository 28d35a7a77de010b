// Package cli contains the stereorepeater command line application.
package cli

import (
	"github.com/urfave/cli/v2"
)

const (
	flagConfig          = "config"
	flagResolution      = "resolution"
	flagCalibrationFile = "calibration-file"
	flagListen          = "listen"
	flagDebug           = "debug"
	flagLogFile         = "log-file"
	flagOutDir          = "out-dir"

	envPrefix = "STEREOREPEATER_"
)

// NewApp returns the command line application. Running it without a command runs the repeater.
func NewApp() *cli.App {
	return &cli.App{
		Name:            "stereorepeater",
		Usage:           "republish stereo camera images with their calibration",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				EnvVars: []string{envPrefix + "CONFIG"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.StringFlag{
				Name:    flagResolution,
				EnvVars: []string{envPrefix + "RESOLUTION"},
				Usage:   "calibration tier: 2K, FHD, HD, VGA, a tier name or its index",
			},
			&cli.StringFlag{
				Name:    flagCalibrationFile,
				EnvVars: []string{envPrefix + "CALIBRATION_FILE"},
				Usage:   "camera calibration `FILE` (INI)",
			},
			&cli.StringFlag{
				Name:    flagListen,
				EnvVars: []string{envPrefix + "LISTEN"},
				Usage:   "`ADDRESS` to serve websocket topics on; empty disables the server",
			},
			&cli.StringFlag{
				Name:    flagLogFile,
				EnvVars: []string{envPrefix + "LOG_FILE"},
				Usage:   "also write logs to a rotating `FILE`",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Action: RunAction,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "run the repeater (default)",
				Action: RunAction,
			},
			{
				Name:            "calibration",
				Usage:           "work with camera calibration",
				HideHelpCommand: true,
				Subcommands: []*cli.Command{
					{
						Name:  "export",
						Usage: "write the derived left and right calibration as camera_info YAML",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  flagOutDir,
								Value: ".",
								Usage: "`DIR` to write left.yaml and right.yaml to",
							},
						},
						Action: CalibrationExportAction,
					},
					{
						Name:   "show",
						Usage:  "print the derived left and right calibration",
						Action: CalibrationShowAction,
					},
				},
			},
		},
	}
}
