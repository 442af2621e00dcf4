package cli

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/lynxrobotics/lynx/motionplan/planning"
	"github.com/lynxrobotics/lynx/referenceframe"
)

// SchemaAction is the corresponding action for 'schema'.
func SchemaAction(c *cli.Context) error {
	var schema *jsonschema.Schema
	switch kind := c.String(schemaFlagKind); kind {
	case "problem":
		schema = jsonschema.Reflect(&planning.Problem{})
	case "robot":
		schema = jsonschema.Reflect(&referenceframe.ModelConfig{})
	default:
		return errors.Errorf("unknown schema kind %q, expected problem or robot", kind)
	}
	raw, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", raw)
	return nil
}
