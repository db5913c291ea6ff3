package stdlib

import (
	"math"

	"xdl/internal/context"
	xerrors "xdl/internal/errors"
	"xdl/internal/value"
)

// elementwise applies f to every element of a scalar or container value,
// preserving Array/MultiDimArray shape (restored from
// original_source/xdl-stdlib/src/math.rs, which maps every unary math
// function over its operand the same way).
func elementwise(name string, v value.Value, f func(float64) float64) (value.Value, error) {
	switch v.Kind {
	case value.KindArray:
		out := make([]float64, len(v.Data))
		for i, x := range v.Data {
			out[i] = f(x)
		}
		return value.Array(out), nil
	case value.KindMultiDim:
		out := make([]float64, len(v.Data))
		for i, x := range v.Data {
			out[i] = f(x)
		}
		return value.MultiDimArray(out, v.Shape), nil
	default:
		if !v.IsNumeric() {
			return value.Undefined, xerrors.NewTypeMismatch("numeric", v.Kind.String())
		}
		return value.Double(f(v.Num)), nil
	}
}

func registerMath1(name string, f func(float64) float64) {
	register(name, func(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
		if err := requireArgs(args, 1, name); err != nil {
			return value.Undefined, err
		}
		return elementwise(name, args[0], f)
	})
}

// registerMathDomain registers a unary math function with a domain check
// (spec.md §7 MathError example: "sqrt of negative scalar"): a scalar
// operand outside the domain fails loudly, while the same function mapped
// over a container yields NaN per element — the same asymmetry spec.md
// §4.4 specifies for division by zero.
func registerMathDomain(name string, f func(float64) float64, inDomain func(float64) bool) {
	register(name, func(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
		if err := requireArgs(args, 1, name); err != nil {
			return value.Undefined, err
		}
		v := args[0]
		if v.IsNumeric() && !inDomain(v.Num) {
			return value.Undefined, xerrors.New(xerrors.MathError, "%s: argument %g out of domain", name, v.Num)
		}
		return elementwise(name, v, f)
	})
}

func init() {
	registerMath1("SIN", math.Sin)
	registerMath1("COS", math.Cos)
	registerMath1("TAN", math.Tan)
	registerMath1("ASIN", math.Asin)
	registerMath1("ACOS", math.Acos)
	registerMath1("ATAN", math.Atan)
	registerMath1("EXP", math.Exp)
	registerMathDomain("LOG", math.Log, func(x float64) bool { return x > 0 })
	registerMathDomain("LOG10", math.Log10, func(x float64) bool { return x > 0 })
	registerMathDomain("SQRT", math.Sqrt, func(x float64) bool { return x >= 0 })
	registerMath1("ABS", math.Abs)
	registerMath1("FLOOR", math.Floor)
	registerMath1("CEIL", math.Ceil)
	registerMath1("ROUND", math.Round)
}
