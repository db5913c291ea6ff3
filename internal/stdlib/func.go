// Package stdlib implements XDL's built-in function/procedure table
// (spec.md §4.4's "Function call (built-in)" contract, and SPEC_FULL.md
// §5's supplemented feature list). Every entry has the uniform signature
// below so the evaluator can dispatch by uppercased name without a type
// switch per builtin, mirroring the teacher's builtin-call dispatch table
// in internal/vm/vm.go (`callCache`/native function map).
package stdlib

import (
	"strings"

	"xdl/internal/context"
	xerrors "xdl/internal/errors"
	"xdl/internal/value"
)

// Func is a built-in routine: positional args already evaluated, keyword
// args evaluated and keyed upper-case. Most builtins ignore ctx/kwargs;
// ctx is threaded through for the handful (XDLDATAFRAME_READ_CSV) that
// must allocate into a context arena.
type Func func(ctx *context.Context, args []value.Value, kwargs map[string]value.Value) (value.Value, error)

// Builtins is the full stdlib table, keyed upper-case. The evaluator
// consults it after checking user-defined routines (spec.md §4.5:
// "resolution order is: built-in stdlib table < user-defined").
var Builtins = map[string]Func{}

func register(name string, fn Func) {
	Builtins[strings.ToUpper(name)] = fn
}

func argAt(args []value.Value, i int) value.Value {
	if i < len(args) {
		return args[i]
	}
	return value.Undefined
}

func intArg(args []value.Value, i int, def int) int {
	if i >= len(args) || args[i].Kind == value.KindUndefined {
		return def
	}
	return int(args[i].ToLong())
}

func kwInt(kwargs map[string]value.Value, name string, def int) int {
	if v, ok := kwargs[strings.ToUpper(name)]; ok {
		return int(v.ToLong())
	}
	return def
}

func kwBool(kwargs map[string]value.Value, name string, def bool) bool {
	if v, ok := kwargs[strings.ToUpper(name)]; ok {
		return !v.IsZero()
	}
	return def
}

func kwString(kwargs map[string]value.Value, name string, def string) string {
	if v, ok := kwargs[strings.ToUpper(name)]; ok {
		return v.Str
	}
	return def
}

func requireArgs(args []value.Value, n int, name string) error {
	if len(args) < n {
		return xerrors.New(xerrors.InvalidArgument, "%s: expected at least %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

// toDataSlice extracts the flat float64 buffer of an Array/MultiDimArray,
// or a single-element slice for a numeric scalar.
func toDataSlice(v value.Value) ([]float64, error) {
	switch v.Kind {
	case value.KindArray, value.KindMultiDim:
		return v.Data, nil
	default:
		if v.IsNumeric() {
			return []float64{v.Num}, nil
		}
	}
	return nil, xerrors.NewTypeMismatch("numeric array", v.Kind.String())
}
