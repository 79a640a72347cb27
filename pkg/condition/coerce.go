package condition

import (
	"fmt"
	"time"

	"github.com/relauth/relauth/pkg/schema"
)

// coerce converts a raw context value into the Go representation CEL
// expects for the declared parameter type: "Parameter values
// arriving from context are coerced to the declared parameter type;
// failure is a type error."
func coerce(raw any, want schema.ParamType) (any, error) {
	switch want {
	case schema.ParamBool:
		if v, ok := raw.(bool); ok {
			return v, nil
		}
	case schema.ParamString:
		if v, ok := raw.(string); ok {
			return v, nil
		}
	case schema.ParamInt:
		switch v := raw.(type) {
		case int:
			return int64(v), nil
		case int64:
			return v, nil
		case float64:
			if v == float64(int64(v)) {
				return int64(v), nil
			}
		}
	case schema.ParamDouble:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		}
	case schema.ParamTimestamp:
		switch v := raw.(type) {
		case time.Time:
			return v, nil
		case string:
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return nil, fmt.Errorf("invalid ISO-8601 timestamp %q: %w", v, err)
			}
			return t, nil
		}
	case schema.ParamDuration:
		switch v := raw.(type) {
		case time.Duration:
			return v, nil
		case string:
			d, err := parseDuration(v)
			if err != nil {
				return nil, err
			}
			return d, nil
		}
	case schema.ParamList:
		if v, ok := raw.([]any); ok {
			return v, nil
		}
	case schema.ParamMap:
		if v, ok := raw.(map[string]any); ok {
			return v, nil
		}
	}

	return nil, fmt.Errorf("value %v (%T) is not assignable to parameter type %s", raw, raw, want)
}

// parseDuration accepts either bare-seconds ("30s" via time.ParseDuration's
// own suffix form) or the standard XhYmZs composite form -- both are valid
// under time.ParseDuration already, so this is a thin, documented wrapper
// rather than a bespoke parser.
func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}
