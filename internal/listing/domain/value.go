package domain

import (
	"fmt"
	"strconv"
)

// AttributeType is the declared type of a category attribute.
type AttributeType string

const (
	TypeString  AttributeType = "string"
	TypeNumber  AttributeType = "number"
	TypeBoolean AttributeType = "boolean"
)

// TypedValue is a tagged attribute value. Exactly one of the payload fields
// is meaningful, selected by Type.
type TypedValue struct {
	Type AttributeType
	Str  string
	Num  float64
	Bool bool
}

func StringValue(s string) TypedValue {
	return TypedValue{Type: TypeString, Str: s}
}

func NumberValue(n float64) TypedValue {
	return TypedValue{Type: TypeNumber, Num: n}
}

func BoolValue(b bool) TypedValue {
	return TypedValue{Type: TypeBoolean, Bool: b}
}

// Matches reports whether the value satisfies the declared attribute type.
func (v TypedValue) Matches(def AttributeDefinition) bool {
	return v.Type == def.Type
}

func (v TypedValue) String() string {
	switch v.Type {
	case TypeString:
		return v.Str
	case TypeNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case TypeBoolean:
		return strconv.FormatBool(v.Bool)
	default:
		return fmt.Sprintf("unknown(%s)", string(v.Type))
	}
}
