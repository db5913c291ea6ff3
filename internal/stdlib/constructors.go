package stdlib

import (
	"xdl/internal/context"
	xerrors "xdl/internal/errors"
	"xdl/internal/value"
)

// rangeArray builds [0, 1, ..., n-1] as a float64 buffer, the shared core
// of every *GEN/*ARR constructor (spec.md §4.4 array construction; names
// restored from original_source/xdl-stdlib/src/array.rs).
func rangeArray(n int) []float64 {
	data := make([]float64, n)
	for i := range data {
		data[i] = float64(i)
	}
	return data
}

func zeros(n int) []float64 { return make([]float64, n) }

func countArg(args []value.Value, name string) (int, error) {
	if err := requireArgs(args, 1, name); err != nil {
		return 0, err
	}
	return int(args[0].ToLong()), nil
}

func registerGenerators() {
	register("FINDGEN", func(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
		n, err := countArg(args, "FINDGEN")
		if err != nil {
			return value.Undefined, err
		}
		return value.Array(rangeArray(n)), nil
	})
	register("DINDGEN", func(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
		n, err := countArg(args, "DINDGEN")
		if err != nil {
			return value.Undefined, err
		}
		return value.Array(rangeArray(n)), nil
	})
	register("BINDGEN", func(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
		n, err := countArg(args, "BINDGEN")
		if err != nil {
			return value.Undefined, err
		}
		return value.Array(rangeArray(n)), nil
	})
	register("INDGEN", func(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
		n, err := countArg(args, "INDGEN")
		if err != nil {
			return value.Undefined, err
		}
		return value.Array(rangeArray(n)), nil
	})
	register("LINDGEN", func(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
		n, err := countArg(args, "LINDGEN")
		if err != nil {
			return value.Undefined, err
		}
		return value.Array(rangeArray(n)), nil
	})

	zeroCtor := func(name string) Func {
		return func(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
			if len(args) == 0 {
				return value.Undefined, xerrors.New(xerrors.InvalidArgument, "%s: expected at least one dimension", name)
			}
			if len(args) == 1 {
				n, err := countArg(args, name)
				if err != nil {
					return value.Undefined, err
				}
				return value.Array(zeros(n)), nil
			}
			shape := make([]int, len(args))
			for i, a := range args {
				shape[i] = int(a.ToLong())
			}
			return value.MultiDimArray(zeros(value.Product(shape)), shape), nil
		}
	}
	register("FLTARR", zeroCtor("FLTARR"))
	register("DBLARR", zeroCtor("DBLARR"))
	register("INTARR", zeroCtor("INTARR"))
	register("LONARR", zeroCtor("LONARR"))
	register("BYTARR", zeroCtor("BYTARR"))

	register("STRARR", func(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
		n, err := countArg(args, "STRARR")
		if err != nil {
			return value.Undefined, err
		}
		rows := make([]value.Value, n)
		for i := range rows {
			rows[i] = value.String("")
		}
		return value.NestedArray(rows), nil
	})

	register("REPLICATE", func(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
		if err := requireArgs(args, 2, "REPLICATE"); err != nil {
			return value.Undefined, err
		}
		fill := args[0]
		if len(args) == 2 {
			n := int(args[1].ToLong())
			data := make([]float64, n)
			for i := range data {
				data[i] = fill.ToDouble()
			}
			return value.Array(data), nil
		}
		shape := make([]int, len(args)-1)
		for i, a := range args[1:] {
			shape[i] = int(a.ToLong())
		}
		n := value.Product(shape)
		data := make([]float64, n)
		for i := range data {
			data[i] = fill.ToDouble()
		}
		return value.MultiDimArray(data, shape), nil
	})
}

func init() {
	registerGenerators()
}
