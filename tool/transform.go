package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/planmesh/core"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// DataTransform reshapes a source value, typically a prior task's output
// wired in through reference resolution.
//
// Input:
//
//	source  (required) the value to transform
//	extract optional map of output key → gjson path evaluated against source
//	set     optional map of sjson path → value applied on top of source
//
// When "extract" is present the output is the extracted map; otherwise the
// output is the (possibly mutated) source. Missing extract paths yield nil
// for that key rather than failing the task.
type DataTransform struct{}

// NewDataTransform constructs the data-transform tool.
func NewDataTransform() *DataTransform { return &DataTransform{} }

// Kind returns core.ToolKindDataTransform.
func (t *DataTransform) Kind() core.ToolKind { return core.ToolKindDataTransform }

// Description returns the tool summary.
func (t *DataTransform) Description() string {
	return "Extract fields from or set fields on a prior task output"
}

// Execute applies the configured transformation.
func (t *DataTransform) Execute(ctx context.Context, execCtx *core.ExecutionContext, input map[string]any) (any, error) {
	source, ok := input["source"]
	if !ok {
		return nil, NewToolError(t.Kind(), `missing required input "source"`, "VALIDATION_ERROR")
	}

	encoded, err := json.Marshal(source)
	if err != nil {
		return nil, NewToolError(t.Kind(), fmt.Sprintf("encode source: %v", err), "VALIDATION_ERROR")
	}

	if sets, ok := input["set"].(map[string]any); ok {
		for path, value := range sets {
			encoded, err = sjson.SetBytes(encoded, path, value)
			if err != nil {
				return nil, fmt.Errorf("set %q: %w", path, err)
			}
		}
	}

	if extracts, ok := input["extract"].(map[string]any); ok {
		out := make(map[string]any, len(extracts))
		for key, rawPath := range extracts {
			path, ok := rawPath.(string)
			if !ok {
				return nil, NewToolError(t.Kind(), fmt.Sprintf("extract path for %q must be a string", key), "VALIDATION_ERROR")
			}
			out[key] = gjson.GetBytes(encoded, path).Value()
		}
		return out, nil
	}

	var result any
	if err := json.Unmarshal(encoded, &result); err != nil {
		return nil, fmt.Errorf("decode transformed source: %w", err)
	}
	return result, nil
}
