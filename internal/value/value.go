// Package value implements the XDL runtime value model: a tagged sum type
// covering scalars, arrays, structs, and handles into the context's object
// and dataframe arenas.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindUndefined Kind = iota
	KindByte           // u8
	KindInt            // i16
	KindUInt           // u16
	KindLong           // i32
	KindULong          // u32
	KindLong64         // i64
	KindULong64        // u64
	KindFloat          // f32
	KindDouble         // f64
	KindComplex        // pair of f32
	KindDComplex       // pair of f64
	KindString
	KindArray        // 1-D dense []float64
	KindMultiDim     // N-D dense []float64 + shape
	KindNestedArray  // heterogeneous/ragged
	KindStruct       // map[string]Value, upper-cased keys
	KindObject       // id into object arena
	KindDataFrame    // id into dataframe arena
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "UNDEFINED"
	case KindByte:
		return "BYTE"
	case KindInt:
		return "INT"
	case KindUInt:
		return "UINT"
	case KindLong:
		return "LONG"
	case KindULong:
		return "ULONG"
	case KindLong64:
		return "LONG64"
	case KindULong64:
		return "ULONG64"
	case KindFloat:
		return "FLOAT"
	case KindDouble:
		return "DOUBLE"
	case KindComplex:
		return "COMPLEX"
	case KindDComplex:
		return "DCOMPLEX"
	case KindString:
		return "STRING"
	case KindArray:
		return "ARRAY"
	case KindMultiDim:
		return "MULTIDIM"
	case KindNestedArray:
		return "NESTED"
	case KindStruct:
		return "STRUCT"
	case KindObject:
		return "OBJECT"
	case KindDataFrame:
		return "DATAFRAME"
	default:
		return "?"
	}
}

// Complex is a simple real/imaginary pair; used for both Complex and
// DComplex kinds (precision is carried only by the Kind tag).
type Complex struct {
	Re, Im float64
}

// Value is the tagged runtime value. Only the field(s) matching Kind are
// meaningful; the rest are zero.
type Value struct {
	Kind Kind

	// scalar payloads
	Num  float64 // byte/int/uint/long/ulong/long64/ulong64/float/double
	Cplx Complex
	Str  string

	// Array: 1-D dense buffer, element type promoted to f64.
	Data []float64

	// MultiDim: N-D dense buffer in column-major order, plus shape.
	Shape []int

	// NestedArray: heterogeneous/ragged rows.
	Nested []Value

	// Struct: case-insensitive (upper-cased) field map.
	Fields map[string]Value

	// Object / DataFrame: stable arena id.
	ID int
}

// Undefined is the zero Value of kind KindUndefined.
var Undefined = Value{Kind: KindUndefined}

func Double(f float64) Value { return Value{Kind: KindDouble, Num: f} }
func Float(f float64) Value  { return Value{Kind: KindFloat, Num: f} }
func Long(i int64) Value     { return Value{Kind: KindLong, Num: float64(i)} }
func Int(i int64) Value      { return Value{Kind: KindInt, Num: float64(i)} }
func Byte(b byte) Value      { return Value{Kind: KindByte, Num: float64(b)} }
func String(s string) Value  { return Value{Kind: KindString, Str: s} }

func Array(data []float64) Value {
	buf := make([]float64, len(data))
	copy(buf, data)
	return Value{Kind: KindArray, Data: buf}
}

// MultiDimArray builds an N-D value; panics if len(data) != product(shape),
// matching the invariant in spec.md §3 (callers are expected to validate
// shape on the way in — evaluator entry points do so explicitly).
func MultiDimArray(data []float64, shape []int) Value {
	if len(data) != Product(shape) {
		panic(fmt.Sprintf("value.MultiDimArray: %d elements for shape %v", len(data), shape))
	}
	buf := make([]float64, len(data))
	copy(buf, data)
	sh := make([]int, len(shape))
	copy(sh, shape)
	return Value{Kind: KindMultiDim, Data: buf, Shape: sh}
}

func NestedArray(elems []Value) Value {
	buf := make([]Value, len(elems))
	copy(buf, elems)
	return Value{Kind: KindNestedArray, Nested: buf}
}

func Struct(fields map[string]Value) Value {
	m := make(map[string]Value, len(fields))
	for k, v := range fields {
		m[strings.ToUpper(k)] = v
	}
	return Value{Kind: KindStruct, Fields: m}
}

func Object(id int) Value    { return Value{Kind: KindObject, ID: id} }
func DataFrame(id int) Value { return Value{Kind: KindDataFrame, ID: id} }

// IsNumeric reports whether the value holds a scalar numeric kind.
func (v Value) IsNumeric() bool {
	switch v.Kind {
	case KindByte, KindInt, KindUInt, KindLong, KindULong, KindLong64, KindULong64, KindFloat, KindDouble:
		return true
	default:
		return false
	}
}

// IsInteger reports whether the scalar kind is one of the integer kinds.
func (v Value) IsInteger() bool {
	switch v.Kind {
	case KindByte, KindInt, KindUInt, KindLong, KindULong, KindLong64, KindULong64:
		return true
	default:
		return false
	}
}

func (v Value) IsContainer() bool {
	switch v.Kind {
	case KindArray, KindMultiDim, KindNestedArray:
		return true
	default:
		return false
	}
}

// ToDouble coerces a scalar numeric value to float64. Non-numeric values
// yield 0, mirroring the source's lenient `to_double`.
func (v Value) ToDouble() float64 {
	if v.IsNumeric() {
		return v.Num
	}
	if v.Kind == KindString {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64); err == nil {
			return f
		}
	}
	return 0
}

// ToLong truncates ToDouble toward zero.
func (v Value) ToLong() int64 {
	return int64(v.ToDouble())
}

// IsZero implements the language's truthiness rule: scalars are zero-valued,
// containers are "zero" exactly when empty.
func (v Value) IsZero() bool {
	switch v.Kind {
	case KindUndefined:
		return true
	case KindString:
		return v.Str == ""
	case KindArray:
		return len(v.Data) == 0
	case KindMultiDim:
		return len(v.Data) == 0
	case KindNestedArray:
		return len(v.Nested) == 0
	default:
		if v.IsNumeric() {
			return v.Num == 0
		}
		return false
	}
}

// Len reports the element count for the container kinds (the product of
// the shape for MultiDim), the byte length for strings, 0 for Undefined,
// and 1 for other scalars (N_ELEMENTS returns it directly).
func (v Value) Len() int {
	switch v.Kind {
	case KindArray:
		return len(v.Data)
	case KindMultiDim:
		n := 1
		for _, s := range v.Shape {
			n *= s
		}
		return n
	case KindNestedArray:
		return len(v.Nested)
	case KindString:
		return len(v.Str)
	case KindUndefined:
		return 0
	default:
		return 1
	}
}

// Equal implements structural equality modulo numeric promotion (spec.md
// §3): Undefined equals only Undefined; numeric scalars compare via
// ToDouble; otherwise falls back to kind+payload comparison.
func (v Value) Equal(o Value) bool {
	if v.Kind == KindUndefined || o.Kind == KindUndefined {
		return v.Kind == KindUndefined && o.Kind == KindUndefined
	}
	if v.IsNumeric() && o.IsNumeric() {
		return v.Num == o.Num
	}
	if v.Kind == KindString && o.Kind == KindString {
		return v.Str == o.Str
	}
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindArray:
		if len(v.Data) != len(o.Data) {
			return false
		}
		for i := range v.Data {
			if v.Data[i] != o.Data[i] {
				return false
			}
		}
		return true
	case KindMultiDim:
		if len(v.Shape) != len(o.Shape) {
			return false
		}
		for i := range v.Shape {
			if v.Shape[i] != o.Shape[i] {
				return false
			}
		}
		if len(v.Data) != len(o.Data) {
			return false
		}
		for i := range v.Data {
			if v.Data[i] != o.Data[i] {
				return false
			}
		}
		return true
	case KindObject, KindDataFrame:
		return v.ID == o.ID
	default:
		return false
	}
}

// ToStringRepr renders a human-readable representation matching the
// scenario output format in spec.md §8 (space-separated doubles for
// arrays, bare scalar otherwise).
func (v Value) ToStringRepr() string {
	switch v.Kind {
	case KindUndefined:
		return ""
	case KindString:
		return v.Str
	case KindArray:
		parts := make([]string, len(v.Data))
		for i, f := range v.Data {
			parts[i] = formatDouble(f)
		}
		return strings.Join(parts, " ")
	case KindMultiDim:
		parts := make([]string, len(v.Data))
		for i, f := range v.Data {
			parts[i] = formatDouble(f)
		}
		return strings.Join(parts, " ")
	case KindNestedArray:
		parts := make([]string, len(v.Nested))
		for i, e := range v.Nested {
			parts[i] = e.ToStringRepr()
		}
		return strings.Join(parts, " ; ")
	case KindStruct:
		var sb strings.Builder
		sb.WriteString("{")
		first := true
		for k, f := range v.Fields {
			if !first {
				sb.WriteString(", ")
			}
			first = false
			fmt.Fprintf(&sb, "%s: %s", k, f.ToStringRepr())
		}
		sb.WriteString("}")
		return sb.String()
	case KindObject:
		return fmt.Sprintf("<OBJREF id=%d>", v.ID)
	case KindDataFrame:
		return fmt.Sprintf("<DATAFRAME id=%d>", v.ID)
	case KindComplex, KindDComplex:
		return fmt.Sprintf("(%s, %s)", formatDouble(v.Cplx.Re), formatDouble(v.Cplx.Im))
	default:
		if v.IsInteger() {
			return strconv.FormatInt(int64(v.Num), 10)
		}
		return formatDouble(v.Num)
	}
}

func formatDouble(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
