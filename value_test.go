package vibelang

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueTruthy(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  bool
	}{
		{"null is falsy", NullValue(), false},
		{"false is falsy", BoolValue(false), false},
		{"true is truthy", BoolValue(true), true},
		{"zero is truthy", NumberValue(0), true},
		{"empty string is truthy", ObjectValue(&ObjString{Chars: ""}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.value.IsTruthy())
		})
	}
}

func TestValuesEqual(t *testing.T) {
	a := &ObjString{Chars: "hi", Hash: fnv1aHash("hi")}
	b := &ObjString{Chars: "hi", Hash: fnv1aHash("hi")}

	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"numbers equal", NumberValue(1), NumberValue(1), true},
		{"numbers differ", NumberValue(1), NumberValue(2), false},
		{"null equals null", NullValue(), NullValue(), true},
		{"null differs from false", NullValue(), BoolValue(false), false},
		{"distinct string objects with equal content", ObjectValue(a), ObjectValue(b), true},
		{"distinct string objects with different content", ObjectValue(a), ObjectValue(&ObjString{Chars: "bye"}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValuesEqual(tt.a, tt.b))
		})
	}
}

func TestPrint(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  string
	}{
		{"null", NullValue(), "null"},
		{"true", BoolValue(true), "true"},
		{"number", NumberValue(3.5), "3.5"},
		{"string", ObjectValue(&ObjString{Chars: "hello"}), "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Print(tt.value))
		})
	}
}
