// Package cli contains the actions of the lynx command.
package cli

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/lynxrobotics/lynx/logging"
)

// Flags.
const (
	flagDebug   = "debug"
	flagLogFile = "log-file"

	trainFlagRobot       = "robot"
	trainFlagMetadataDir = "metadata-dir"
	trainFlagSamples     = "samples"
	trainFlagWorkers     = "workers"
	trainFlagLevels      = "levels"
	trainFlagSeed        = "seed"

	planFlagProblem   = "problem"
	planFlagSeed      = "seed"
	planFlagTimeout   = "timeout"
	planFlagLocalOnly = "local-only"
	planFlagOutput    = "output"

	schemaFlagKind = "kind"
)

var app = &cli.App{
	Name:            "lynx",
	Usage:           "train collision metadata and plan robot motions",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    flagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
		&cli.PathFlag{
			Name:  flagLogFile,
			Usage: "also append logs to `FILE`, rotated at 64MB",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "train",
			Usage:     "train skip and average distance tensors of a robot",
			UsageText: "lynx train --robot <robot.json> --metadata-dir <dir> [other options]",
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:     trainFlagRobot,
					Required: true,
					Usage:    "kinematics `FILE` of the robot, JSON or JSON5 (.json5)",
				},
				&cli.PathFlag{
					Name:     trainFlagMetadataDir,
					Required: true,
					Usage:    "`DIR` holding link shapes and tensors",
				},
				&cli.IntFlag{
					Name:  trainFlagSamples,
					Value: 10000,
					Usage: "number of sampled configurations",
				},
				&cli.IntFlag{
					Name:  trainFlagWorkers,
					Usage: "number of sampling goroutines, defaults to the parallel factor",
				},
				&cli.StringSliceFlag{
					Name:  trainFlagLevels,
					Usage: "geometry levels to train, defaults to all",
				},
				&cli.Int64Flag{
					Name:  trainFlagSeed,
					Value: 1,
					Usage: "random seed of the sampler",
				},
			},
			Action: TrainAction,
		},
		{
			Name:      "plan",
			Usage:     "plan a motion described by a problem file",
			UsageText: "lynx plan --problem <problem.yaml> [other options]",
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:     planFlagProblem,
					Required: true,
					Usage:    "YAML or JSON problem `FILE`",
				},
				&cli.IntFlag{
					Name:  planFlagSeed,
					Value: -1,
					Usage: "override the random seed of the problem",
				},
				&cli.DurationFlag{
					Name:  planFlagTimeout,
					Usage: "override the timeout of the problem",
				},
				&cli.BoolFlag{
					Name:  planFlagLocalOnly,
					Usage: "run the local planner alone",
				},
				&cli.PathFlag{
					Name:  planFlagOutput,
					Usage: "write the plan as JSON to `FILE`",
				},
			},
			Action: PlanAction,
		},
		{
			Name:  "schema",
			Usage: "print the JSON schema of problem or robot files",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  schemaFlagKind,
					Value: "problem",
					Usage: "problem or robot",
				},
			},
			Action: SchemaAction,
		},
	},
}

// NewApp returns the lynx app writing to the given streams.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}

func newLogger(c *cli.Context) logging.Logger {
	logger := logging.NewLogger("lynx")
	if c.Bool(flagDebug) {
		logger = logging.NewDebugLogger("lynx")
	}
	if path := c.Path(flagLogFile); path != "" {
		logger.AddAppender(logging.NewFileAppender(path, 64))
	}
	return logger
}

func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}
