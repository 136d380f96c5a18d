package nem

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/google/uuid"
)

// ValueParser coerces a resolved parameter value to a semantic type
type ValueParser func(value any) (any, error)

// BuiltinParsers maps semantic parameter types to their coercion
var BuiltinParsers = map[string]ValueParser{
	"string": ParseString,
	"int":    ParseInt,
	"float":  ParseFloat64,
	"bool":   ParseBool,
	"uuid":   ParseUUID,
}

// ParserAliases maps convenient aliases to their semantic type names
var ParserAliases = map[string]string{
	"number":  "float",
	"float64": "float",
	"double":  "float",
	"integer": "int",
	"int64":   "int",
	"boolean": "bool",
	"UUID":    "uuid",
}

// expectations names the type in "invalid, <x> expected" messages
var expectations = map[string]string{
	"int":   "integer",
	"float": "float",
	"bool":  "boolean",
	"uuid":  "uuid",
}

// ResolveTypeAlias resolves a type alias to its semantic type name
func ResolveTypeAlias(typeName string) string {
	if actual, isAlias := ParserAliases[typeName]; isAlias {
		return actual
	}
	return typeName
}

// IsBuiltinType checks if a type is a built-in type, including aliases
func IsBuiltinType(typeName string) bool {
	_, exists := BuiltinParsers[ResolveTypeAlias(typeName)]
	return exists
}

// ParseString passes strings through and formats scalars
func ParseString(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return value, nil
	}
}

// ParseInt coerces to int
func ParseInt(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return nil, strconv.ErrSyntax
		}
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		return int(n), err
	case string:
		return strconv.Atoi(v)
	default:
		return nil, strconv.ErrSyntax
	}
}

// ParseFloat64 coerces to float64
func ParseFloat64(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) {
			return nil, strconv.ErrSyntax
		}
		return f, nil
	default:
		return nil, strconv.ErrSyntax
	}
}

// ParseBool coerces to bool
func ParseBool(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(v)
	default:
		return nil, strconv.ErrSyntax
	}
}

// ParseUUID coerces to uuid.UUID
func ParseUUID(value any) (any, error) {
	switch v := value.(type) {
	case uuid.UUID:
		return v, nil
	case string:
		return uuid.Parse(v)
	default:
		return nil, strconv.ErrSyntax
	}
}
