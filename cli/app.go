// Package cli implements the pathtracker command line.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	flagConfig          = "config"
	flagPath            = "path"
	flagDefaultVelocity = "default-velocity"
	flagX               = "x"
	flagY               = "y"
	flagStop            = "stop"
	flagSize            = "size"
	flagDebug           = "debug"
	flagCapture         = "capture"
	flagDuration        = "duration"
)

var app = &cli.App{
	Name:            "pathtracker",
	Usage:           "plan and track a velocity-profiled path",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    flagConfig,
			Aliases: []string{"c"},
			Usage:   "load configuration from `FILE`",
		},
		&cli.BoolFlag{
			Name:    flagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "window",
			Usage:     "localize a position on a path and print the profiled lookahead window",
			UsageText: "pathtracker window --path <file> --x <x> --y <y> [--stop <index>]",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  flagPath,
					Usage: "waypoint CSV `FILE` with rows x,y,z,yaw[,velocity]",
				},
				&cli.Float64Flag{
					Name:  flagDefaultVelocity,
					Usage: "velocity for rows without one",
				},
				&cli.Float64Flag{
					Name:     flagX,
					Usage:    "vehicle x position",
					Required: true,
				},
				&cli.Float64Flag{
					Name:     flagY,
					Usage:    "vehicle y position",
					Required: true,
				},
				&cli.IntFlag{
					Name:  flagStop,
					Usage: "stop line path index, negative for none",
					Value: -1,
				},
				&cli.IntFlag{
					Name:  flagSize,
					Usage: "window size, overrides the config",
				},
			},
			Action: WindowAction,
		},
		{
			Name:      "run",
			Usage:     "track a path with a simulated vehicle in the loop",
			UsageText: "pathtracker run --path <file> [--capture <db>] [--duration <d>] [--stop <index>]",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  flagPath,
					Usage: "waypoint CSV `FILE`, overrides the config",
				},
				&cli.Float64Flag{
					Name:  flagDefaultVelocity,
					Usage: "velocity for rows without one",
				},
				&cli.StringFlag{
					Name:  flagCapture,
					Usage: "record windows and actuation to sqlite `FILE`",
				},
				&cli.DurationFlag{
					Name:  flagDuration,
					Usage: "stop after this long, zero runs until interrupted",
				},
				&cli.IntFlag{
					Name:  flagStop,
					Usage: "request a stop at this path index once running, negative for none",
					Value: -1,
				},
			},
			Action: RunAction,
		},
	},
}

// NewApp returns the command line app writing to out and errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
