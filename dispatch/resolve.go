package dispatch

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/hupe1980/planmesh/logging"
	"github.com/tidwall/gjson"
)

// refPattern matches "{{taskID.field.path}}" references. The field path is
// a gjson path evaluated against the referenced task's output.
var refPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_-]+)\.([^{}\s]+)\s*\}\}`)

// ResolveReferences walks the input mapping and replaces every string-valued
// reference to a prior task output with the resolved value. A string that is
// exactly one reference resolves to the referenced value with its original
// type; references embedded in a larger string are interpolated as text.
//
// When resolution yields nothing, because the task has no recorded output
// or the path does not exist, the literal reference string is passed
// through unchanged and a warning is logged. A missing reference is
// treated as literal input, not an error.
//
// The original input is never mutated; nested maps and slices are copied.
func ResolveReferences(input map[string]any, outputs map[string]any, logger logging.Logger) map[string]any {
	if input == nil {
		return nil
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	resolved := make(map[string]any, len(input))
	for k, v := range input {
		resolved[k] = resolveValue(v, outputs, logger)
	}
	return resolved
}

func resolveValue(v any, outputs map[string]any, logger logging.Logger) any {
	switch val := v.(type) {
	case string:
		return resolveString(val, outputs, logger)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = resolveValue(inner, outputs, logger)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = resolveValue(inner, outputs, logger)
		}
		return out
	default:
		return v
	}
}

func resolveString(s string, outputs map[string]any, logger logging.Logger) any {
	matches := refPattern.FindStringSubmatch(s)
	if matches == nil {
		return s
	}

	// Whole-string reference: preserve the resolved value's type.
	if strings.TrimSpace(s) == matches[0] {
		if value, ok := lookup(matches[1], matches[2], outputs); ok {
			return value
		}
		logger.Warn("dispatch.reference_unresolved", "reference", s)
		return s
	}

	// Embedded references: interpolate as text.
	return refPattern.ReplaceAllStringFunc(s, func(ref string) string {
		parts := refPattern.FindStringSubmatch(ref)
		value, ok := lookup(parts[1], parts[2], outputs)
		if !ok {
			logger.Warn("dispatch.reference_unresolved", "reference", ref)
			return ref
		}
		return stringify(value)
	})
}

// lookup resolves taskID.path against the prior-outputs map by marshaling
// the output and walking the path with gjson.
func lookup(taskID, path string, outputs map[string]any) (any, bool) {
	output, ok := outputs[taskID]
	if !ok {
		return nil, false
	}
	encoded, err := json.Marshal(output)
	if err != nil {
		return nil, false
	}
	res := gjson.GetBytes(encoded, path)
	if !res.Exists() {
		return nil, false
	}
	return res.Value(), true
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}
