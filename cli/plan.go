package cli

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"

	"github.com/lynxrobotics/lynx/motionplan/planning"
)

// PlanAction is the corresponding action for 'plan'.
func PlanAction(c *cli.Context) error {
	logger := newLogger(c)
	problem, err := planning.LoadProblem(c.Path(planFlagProblem))
	if err != nil {
		return err
	}
	if problem.Planner == nil {
		problem.Planner = map[string]interface{}{}
	}
	if seed := c.Int(planFlagSeed); seed >= 0 {
		problem.Planner["rseed"] = seed
	}
	if c.IsSet(planFlagTimeout) {
		problem.Planner["timeout"] = c.Duration(planFlagTimeout).Seconds()
	}
	if c.Bool(planFlagLocalOnly) {
		problem.LocalOnly = true
	}

	plan, err := planning.Solve(c.Context, logger, problem)
	if err != nil {
		return err
	}

	printf(c.App.Writer, "plan %s: %s %s", plan.ID, plan.Result.Kind, plan.Result.Reason)
	if path := plan.Result.Path; path != nil {
		tw := table.NewWriter()
		tw.SetOutputMirror(c.App.Writer)
		tw.AppendHeader(table.Row{"#", "configuration"})
		for i, q := range path.Waypoints {
			tw.AppendRow(table.Row{i, formatConfig(q)})
		}
		tw.AppendFooter(table.Row{"length", strconv.FormatFloat(path.Length(), 'f', 4, 64)})
		tw.Render()
	}
	plan.Meta.OutputTiming(c.App.Writer)

	if out := c.Path(planFlagOutput); out != "" {
		raw, err := json.MarshalIndent(plan, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(out, raw, 0o600); err != nil {
			return err
		}
		printf(c.App.Writer, "plan written to %s", out)
	}
	return nil
}

func formatConfig(q []float64) string {
	out := "["
	for i, v := range q {
		if i > 0 {
			out += " "
		}
		out += strconv.FormatFloat(v, 'f', 4, 64)
	}
	return out + "]"
}
