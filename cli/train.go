package cli

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/lynxrobotics/lynx/collision"
	"github.com/lynxrobotics/lynx/referenceframe"
)

// TrainAction is the corresponding action for 'train'.
func TrainAction(c *cli.Context) error {
	logger := newLogger(c)
	model, err := referenceframe.ParseModelJSONFile(c.Path(trainFlagRobot), "")
	if err != nil {
		return err
	}
	levels, err := parseLevels(c.StringSlice(trainFlagLevels))
	if err != nil {
		return err
	}

	root := c.Path(trainFlagMetadataDir)
	cache := collision.NewTensorCache(collision.NewFileTensorStore(root), logger)
	module, err := collision.BuildRobotModule(model, collision.ModuleConfig{MetadataRoot: root, Cache: cache}, logger)
	if err != nil {
		return err
	}

	opts := collision.NewDefaultTrainingOptions()
	opts.NumSamples = c.Int(trainFlagSamples)
	opts.Seed = c.Int64(trainFlagSeed)
	if c.IsSet(trainFlagWorkers) {
		opts.NumWorkers = c.Int(trainFlagWorkers)
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(c.App.Writer)
	tw.AppendHeader(table.Row{"level", "pairs", "always", "never", "checked", "mean ratio", "median ratio", "p90 ratio"})
	for _, level := range levels {
		_, report, err := collision.TrainSkipTensor(c.Context, module, model, level, opts, logger)
		if err != nil {
			return errors.Wrapf(err, "training %s skip tensor", level)
		}
		if _, err := collision.TrainAverageDistanceTensor(c.Context, module, model, level, opts, logger); err != nil {
			return errors.Wrapf(err, "training %s average distance tensor", level)
		}
		tw.AppendRow(table.Row{
			level, report.Pairs, report.AlwaysColliding, report.NeverColliding, report.Checked,
			report.MeanRatio, report.MedianRatio, report.P90Ratio,
		})
	}
	tw.Render()
	printf(c.App.Writer, "tensors for %s written to %s", model.Name(), root)
	return nil
}

func parseLevels(names []string) ([]collision.GeometryLevel, error) {
	if len(names) == 0 {
		return collision.AllGeometryLevels[:], nil
	}
	levels := make([]collision.GeometryLevel, 0, len(names))
	for _, name := range names {
		level, err := collision.GeometryLevelFromString(name)
		if err != nil {
			return nil, err
		}
		levels = append(levels, level)
	}
	return levels, nil
}
