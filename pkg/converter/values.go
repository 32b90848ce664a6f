// pkg/converter/values.go
package converter

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/David-Botos/texture-ingress/pkg/model"
)

// ValueForPostgres converts a dataset value to a database/sql argument (nil for NA)
func ValueForPostgres(v model.Value) interface{} {
	f, ok := v.Get()
	if !ok {
		return nil
	}
	return f
}

// isNull determines if a value should be treated as NULL
func isNull(value interface{}) bool {
	if value == nil {
		return true
	}

	switch v := value.(type) {
	case float64:
		return math.IsNaN(v)
	case float32:
		return math.IsNaN(float64(v))
	case model.Value:
		return v.IsNA()
	}

	return false
}

// toString converts an interface to string
func toString(v interface{}) string {
	if v == nil {
		return ""
	}

	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case model.Value:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}

// toFloat attempts to convert a value to float64
func toFloat(v interface{}) (float64, error) {
	if v == nil {
		return 0, errors.New("nil value")
	}

	switch val := v.(type) {
	case int:
		return float64(val), nil
	case int8:
		return float64(val), nil
	case int16:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case uint:
		return float64(val), nil
	case uint8:
		return float64(val), nil
	case uint16:
		return float64(val), nil
	case uint32:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	case float32:
		return float64(val), nil
	case float64:
		return val, nil
	case model.Value:
		f, ok := val.Get()
		if !ok {
			return 0, errors.New("NA value")
		}
		return f, nil
	case string:
		cleaned := strings.TrimSpace(val)
		if cleaned == "" {
			return 0, errors.New("empty string")
		}
		return strconv.ParseFloat(cleaned, 64)
	case []byte:
		cleaned := strings.TrimSpace(string(val))
		if cleaned == "" {
			return 0, errors.New("empty byte array")
		}
		return strconv.ParseFloat(cleaned, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float", v)
	}
}

// toInt attempts to convert a value to int64. Floats must be integral.
func toInt(v interface{}) (int64, error) {
	if v == nil {
		return 0, errors.New("nil value")
	}

	switch val := v.(type) {
	case int:
		return int64(val), nil
	case int8:
		return int64(val), nil
	case int16:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case int64:
		return val, nil
	case uint:
		return int64(val), nil
	case uint8:
		return int64(val), nil
	case uint16:
		return int64(val), nil
	case uint32:
		return int64(val), nil
	case uint64:
		if val > uint64(math.MaxInt64) {
			return 0, errors.New("uint64 value overflow for int64")
		}
		return int64(val), nil
	case float32:
		return floatToInt(float64(val))
	case float64:
		return floatToInt(val)
	case string, []byte:
		cleaned := strings.TrimSpace(toString(val))
		if cleaned == "" {
			return 0, errors.New("empty string")
		}
		if i, err := strconv.ParseInt(cleaned, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse '%s' as integer", cleaned)
		}
		return floatToInt(f)
	default:
		return 0, fmt.Errorf("cannot convert %T to int", v)
	}
}

func floatToInt(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%v is not an integer", f)
	}
	return int64(f), nil
}
