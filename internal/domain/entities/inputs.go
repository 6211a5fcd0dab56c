package entities

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// WorkflowInputs holds the typed input values for a workflow dispatch.
// Values keep their logical type (string, number, bool) internally; the
// remote dispatch API only accepts strings, so conversion happens once at
// the transport boundary via StringValues.
type WorkflowInputs map[string]cty.Value

// ParseInput converts a raw "key=value" pair into a typed input, sniffing
// bools and numbers so the logical type is preserved until dispatch.
func ParseInput(pair string) (string, cty.Value, error) {
	key, raw, found := strings.Cut(pair, "=")
	if !found || key == "" {
		return "", cty.NilVal, fmt.Errorf("invalid input %q, expected key=value", pair)
	}

	switch raw {
	case "true":
		return key, cty.True, nil
	case "false":
		return key, cty.False, nil
	}

	if num, err := cty.ParseNumberVal(raw); err == nil {
		return key, num, nil
	}
	return key, cty.StringVal(raw), nil
}

// StringValues serializes every input to its string form. This is an
// external API constraint of the dispatch endpoint, not an internal design
// choice: callers keep working with typed values until this point.
func (in WorkflowInputs) StringValues() (map[string]string, error) {
	out := make(map[string]string, len(in))
	for key, val := range in {
		converted, err := convert.Convert(val, cty.String)
		if err != nil {
			return nil, WrapError(ErrDispatchRejected,
				fmt.Sprintf("input %q cannot be serialized", key), err)
		}
		out[key] = converted.AsString()
	}
	return out, nil
}

// Keys returns the input names in stable order, for log output.
func (in WorkflowInputs) Keys() []string {
	keys := make([]string, 0, len(in))
	for key := range in {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
