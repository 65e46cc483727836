package vibelang

import "fmt"

// ValueType tags the four shapes a Value can hold.
type ValueType uint8

const (
	ValNull ValueType = iota
	ValBool
	ValNumber
	ValObject
)

// Value is the tagged union every register, constant, global, and field
// holds. Numbers are always 64-bit floats; object payloads are references
// into the VM-owned heap.
type Value struct {
	typ     ValueType
	boolean bool
	number  float64
	obj     Obj
}

func NullValue() Value           { return Value{typ: ValNull} }
func BoolValue(b bool) Value     { return Value{typ: ValBool, boolean: b} }
func NumberValue(n float64) Value { return Value{typ: ValNumber, number: n} }
func ObjectValue(o Obj) Value    { return Value{typ: ValObject, obj: o} }

func (v Value) Type() ValueType { return v.typ }

func (v Value) IsNull() bool   { return v.typ == ValNull }
func (v Value) IsBool() bool   { return v.typ == ValBool }
func (v Value) IsNumber() bool { return v.typ == ValNumber }
func (v Value) IsObject() bool { return v.typ == ValObject }

func (v Value) AsBool() bool      { return v.boolean }
func (v Value) AsNumber() float64 { return v.number }
func (v Value) AsObject() Obj     { return v.obj }

func (v Value) IsString() bool { return v.IsObject() && v.obj.Type() == ObjTypeString }
func (v Value) IsArray() bool  { return v.IsObject() && v.obj.Type() == ObjTypeArray }
func (v Value) IsFunction() bool {
	return v.IsObject() && v.obj.Type() == ObjTypeFunction
}
func (v Value) IsClass() bool    { return v.IsObject() && v.obj.Type() == ObjTypeClass }
func (v Value) IsInstance() bool { return v.IsObject() && v.obj.Type() == ObjTypeInstance }
func (v Value) IsBoundMethod() bool {
	return v.IsObject() && v.obj.Type() == ObjTypeBoundMethod
}

func (v Value) AsString() *ObjString     { return v.obj.(*ObjString) }
func (v Value) AsArray() *ObjArray       { return v.obj.(*ObjArray) }
func (v Value) AsFunction() *ObjFunction { return v.obj.(*ObjFunction) }
func (v Value) AsClass() *ObjClass       { return v.obj.(*ObjClass) }
func (v Value) AsInstance() *ObjInstance { return v.obj.(*ObjInstance) }
func (v Value) AsBoundMethod() *ObjBoundMethod {
	return v.obj.(*ObjBoundMethod)
}

// IsTruthy implements the language's truthiness rule: null and false are
// falsy, everything else (including 0, "", and []) is truthy.
func (v Value) IsTruthy() bool {
	switch v.typ {
	case ValNull:
		return false
	case ValBool:
		return v.boolean
	default:
		return true
	}
}

// ValuesEqual implements structural equality for scalars and strings, and
// identity equality for every other heap object.
func ValuesEqual(a, b Value) bool {
	if a.typ != b.typ {
		return false
	}
	switch a.typ {
	case ValNull:
		return true
	case ValBool:
		return a.boolean == b.boolean
	case ValNumber:
		return a.number == b.number
	case ValObject:
		as, aIsString := a.obj.(*ObjString)
		bs, bIsString := b.obj.(*ObjString)
		if aIsString && bIsString {
			return as == bs || as.Chars == bs.Chars
		}
		return a.obj == b.obj
	default:
		return false
	}
}

// Print renders a value the way the CLI driver prints a script's result:
// null/true/false, shortest round-trip decimal numbers, raw string bytes,
// "<function NAME>" for functions, and "<object>" for everything else.
func Print(v Value) string {
	switch v.typ {
	case ValNull:
		return "null"
	case ValBool:
		if v.boolean {
			return "true"
		}
		return "false"
	case ValNumber:
		return fmt.Sprintf("%g", v.number)
	case ValObject:
		switch o := v.obj.(type) {
		case *ObjString:
			return o.Chars
		case *ObjFunction:
			name := "<script>"
			if o.Name != nil {
				name = o.Name.Chars
			}
			return fmt.Sprintf("<function %s>", name)
		default:
			return "<object>"
		}
	default:
		return "<object>"
	}
}
