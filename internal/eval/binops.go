package eval

import (
	"math"

	xerrors "xdl/internal/errors"
	"xdl/internal/parser"
	"xdl/internal/value"
)

func (ev *Evaluator) evalBinary(b *parser.Binary) (value.Value, error) {
	left, err := ev.EvalExpr(b.Left)
	if err != nil {
		return value.Undefined, err
	}
	right, err := ev.EvalExpr(b.Right)
	if err != nil {
		return value.Undefined, err
	}
	return applyBinary(b.Op, left, right, b.Line)
}

func isComparisonOrLogical(op string) bool {
	switch op {
	case "==", "!=", "<", ">", "<=", ">=", "AND", "OR":
		return true
	}
	return false
}

// binScalarOp is the scalar kernel shared by every operand-shape case.
// strictDivision controls whether a zero divisor raises DivisionByZero
// (pure scalar ⊕ scalar) or silently yields NaN (any case involving a
// container operand) — spec.md §4.4's asymmetric division rule.
func binScalarOp(op string, a, b float64, strictDivision bool) (float64, error) {
	switch op {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		if b == 0 {
			if strictDivision {
				return 0, xerrors.New(xerrors.DivisionByZero, "division by zero")
			}
			return math.NaN(), nil
		}
		return a / b, nil
	case "MOD":
		if b == 0 {
			if strictDivision {
				return 0, xerrors.New(xerrors.DivisionByZero, "modulo by zero")
			}
			return math.NaN(), nil
		}
		return math.Mod(a, b), nil
	case "^":
		return math.Pow(a, b), nil
	case "==":
		return boolF(a == b), nil
	case "!=":
		return boolF(a != b), nil
	case "<":
		return boolF(a < b), nil
	case ">":
		return boolF(a > b), nil
	case "<=":
		return boolF(a <= b), nil
	case ">=":
		return boolF(a >= b), nil
	case "AND":
		return boolF(a != 0 && b != 0), nil
	case "OR":
		return boolF(a != 0 || b != 0), nil
	default:
		return 0, xerrors.New(xerrors.RuntimeErr, "unknown operator %s", op)
	}
}

func boolF(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func withOpLoc(err error, line int) (value.Value, error) {
	return value.Undefined, withLoc(err, line)
}

func applyBinary(op string, l, r value.Value, line int) (value.Value, error) {
	if op == "+" && l.Kind == value.KindString && r.Kind == value.KindString {
		return value.String(l.Str + r.Str), nil
	}
	if op == "##" {
		return matmul(l, r, line)
	}
	switch {
	case l.IsNumeric() && r.IsNumeric():
		return scalarScalar(op, l, r, line)
	case l.IsNumeric() && r.Kind == value.KindArray:
		return broadcastArray(op, l.ToDouble(), r, true, line)
	case l.Kind == value.KindArray && r.IsNumeric():
		return broadcastArray(op, r.ToDouble(), l, false, line)
	case l.IsNumeric() && r.Kind == value.KindMultiDim:
		return broadcastMultiDim(op, l.ToDouble(), r, true, line)
	case l.Kind == value.KindMultiDim && r.IsNumeric():
		return broadcastMultiDim(op, r.ToDouble(), l, false, line)
	case l.Kind == value.KindArray && r.Kind == value.KindArray:
		return arrayArray(op, l, r, line)
	case l.Kind == value.KindMultiDim && r.Kind == value.KindMultiDim:
		return multiDimMultiDim(op, l, r, line)
	default:
		return withOpLoc(xerrors.New(xerrors.TypeMismatch, "operator %s not defined for %s and %s", op, l.Kind, r.Kind), line)
	}
}

func scalarScalar(op string, l, r value.Value, line int) (value.Value, error) {
	f, err := binScalarOp(op, l.ToDouble(), r.ToDouble(), true)
	if err != nil {
		return withOpLoc(err, line)
	}
	if isComparisonOrLogical(op) {
		return value.Long(int64(f)), nil
	}
	if op == "/" || op == "^" || l.Kind == value.KindDouble || l.Kind == value.KindFloat ||
		r.Kind == value.KindDouble || r.Kind == value.KindFloat {
		return value.Double(f), nil
	}
	if l.IsInteger() && r.IsInteger() {
		return value.Long(int64(f)), nil
	}
	return value.Double(f), nil
}

// broadcastArray applies op between a scalar and every element of arr.
// scalarFirst records operand order so that non-commutative ops like "-"
// and "/" stay correct regardless of which side was the Array.
func broadcastArray(op string, scalar float64, arr value.Value, scalarFirst bool, line int) (value.Value, error) {
	out := make([]float64, len(arr.Data))
	for i, x := range arr.Data {
		var f float64
		var err error
		if scalarFirst {
			f, err = binScalarOp(op, scalar, x, false)
		} else {
			f, err = binScalarOp(op, x, scalar, false)
		}
		if err != nil {
			return withOpLoc(err, line)
		}
		out[i] = f
	}
	return value.Array(out), nil
}

func broadcastMultiDim(op string, scalar float64, md value.Value, scalarFirst bool, line int) (value.Value, error) {
	out := make([]float64, len(md.Data))
	for i, x := range md.Data {
		var f float64
		var err error
		if scalarFirst {
			f, err = binScalarOp(op, scalar, x, false)
		} else {
			f, err = binScalarOp(op, x, scalar, false)
		}
		if err != nil {
			return withOpLoc(err, line)
		}
		out[i] = f
	}
	shape := append([]int(nil), md.Shape...)
	return value.MultiDimArray(out, shape), nil
}

func arrayArray(op string, l, r value.Value, line int) (value.Value, error) {
	if len(l.Data) != len(r.Data) {
		return withOpLoc(xerrors.New(xerrors.DimensionError, "array length mismatch: %d vs %d", len(l.Data), len(r.Data)), line)
	}
	out := make([]float64, len(l.Data))
	for i := range l.Data {
		f, err := binScalarOp(op, l.Data[i], r.Data[i], false)
		if err != nil {
			return withOpLoc(err, line)
		}
		out[i] = f
	}
	return value.Array(out), nil
}

func shapesEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func multiDimMultiDim(op string, l, r value.Value, line int) (value.Value, error) {
	if !shapesEqual(l.Shape, r.Shape) {
		return withOpLoc(xerrors.New(xerrors.DimensionError, "shape mismatch: %v vs %v", l.Shape, r.Shape), line)
	}
	out := make([]float64, len(l.Data))
	for i := range l.Data {
		f, err := binScalarOp(op, l.Data[i], r.Data[i], false)
		if err != nil {
			return withOpLoc(err, line)
		}
		out[i] = f
	}
	shape := append([]int(nil), l.Shape...)
	return value.MultiDimArray(out, shape), nil
}

// matmul implements the "##" operator for two rank-2 MultiDimArray
// operands, honoring the package's column-major linear-index convention
// (value.Strides/value.LinearIndex).
func matmul(l, r value.Value, line int) (value.Value, error) {
	if l.Kind != value.KindMultiDim || r.Kind != value.KindMultiDim || len(l.Shape) != 2 || len(r.Shape) != 2 {
		return withOpLoc(xerrors.New(xerrors.TypeMismatch, "## requires two rank-2 matrices"), line)
	}
	m, k := l.Shape[0], l.Shape[1]
	k2, n := r.Shape[0], r.Shape[1]
	if k != k2 {
		return withOpLoc(xerrors.New(xerrors.DimensionError, "## shape mismatch: %dx%d times %dx%d", m, k, k2, n), line)
	}
	out := make([]float64, m*n)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var sum float64
			for t := 0; t < k; t++ {
				sum += l.Data[i+t*m] * r.Data[t+j*k]
			}
			out[i+j*m] = sum
		}
	}
	return value.MultiDimArray(out, []int{m, n}), nil
}

func (ev *Evaluator) evalUnary(u *parser.Unary) (value.Value, error) {
	v, err := ev.EvalExpr(u.Expr)
	if err != nil {
		return value.Undefined, err
	}
	switch u.Op {
	case "-":
		return negate(v, u.Line)
	case "NOT":
		return logicalNot(v, u.Line)
	default:
		return withOpLoc(xerrors.New(xerrors.RuntimeErr, "unknown unary operator %s", u.Op), u.Line)
	}
}

func negate(v value.Value, line int) (value.Value, error) {
	switch v.Kind {
	case value.KindArray:
		out := make([]float64, len(v.Data))
		for i, x := range v.Data {
			out[i] = -x
		}
		return value.Array(out), nil
	case value.KindMultiDim:
		out := make([]float64, len(v.Data))
		for i, x := range v.Data {
			out[i] = -x
		}
		return value.MultiDimArray(out, append([]int(nil), v.Shape...)), nil
	default:
		if !v.IsNumeric() {
			return withOpLoc(xerrors.New(xerrors.TypeMismatch, "unary - not defined for %s", v.Kind), line)
		}
		if v.Kind == value.KindDouble || v.Kind == value.KindFloat {
			return value.Double(-v.ToDouble()), nil
		}
		return value.Long(-v.ToLong()), nil
	}
}

func logicalNot(v value.Value, line int) (value.Value, error) {
	switch v.Kind {
	case value.KindArray:
		out := make([]float64, len(v.Data))
		for i, x := range v.Data {
			out[i] = boolF(x == 0)
		}
		return value.Array(out), nil
	case value.KindMultiDim:
		out := make([]float64, len(v.Data))
		for i, x := range v.Data {
			out[i] = boolF(x == 0)
		}
		return value.MultiDimArray(out, append([]int(nil), v.Shape...)), nil
	default:
		return value.Long(int64(boolF(v.IsZero()))), nil
	}
}
