package events

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ExtensionKind is the closed set of extension value types.
type ExtensionKind uint8

const (
	KindString ExtensionKind = iota + 1
	KindInteger
	KindBoolean
)

func (k ExtensionKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	default:
		return "invalid"
	}
}

// ExtensionValue holds exactly one of string, integer or boolean.
// The zero value is invalid; use the constructors.
type ExtensionValue struct {
	kind ExtensionKind
	str  string
	num  int64
	flag bool
}

func StringValue(s string) ExtensionValue {
	return ExtensionValue{kind: KindString, str: s}
}

func IntegerValue(n int64) ExtensionValue {
	return ExtensionValue{kind: KindInteger, num: n}
}

func BooleanValue(b bool) ExtensionValue {
	return ExtensionValue{kind: KindBoolean, flag: b}
}

func (v ExtensionValue) Kind() ExtensionKind {
	return v.kind
}

// Integer reads the value for a bigint column. Strings are parsed as base-10
// int64; booleans never convert.
func (v ExtensionValue) Integer() (int64, error) {
	switch v.kind {
	case KindInteger:
		return v.num, nil
	case KindString:
		n, err := strconv.ParseInt(v.str, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse %q to integer: %w", v.str, err)
		}
		return n, nil
	case KindBoolean:
		return 0, fmt.Errorf("boolean %t is not an integer", v.flag)
	default:
		return 0, fmt.Errorf("extension value has no type")
	}
}

// Text reads the value for a text column.
func (v ExtensionValue) Text() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.num, 10)
	case KindBoolean:
		return strconv.FormatBool(v.flag)
	default:
		return v.str
	}
}

func (v ExtensionValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInteger:
		return json.Marshal(v.num)
	case KindBoolean:
		return json.Marshal(v.flag)
	case KindString:
		return json.Marshal(v.str)
	default:
		return nil, fmt.Errorf("extension value has no type")
	}
}

func (v ExtensionValue) String() string {
	return v.kind.String() + "(" + v.Text() + ")"
}
