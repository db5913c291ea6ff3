package stdlib

import (
	"sort"

	"golang.org/x/exp/slices"

	"xdl/internal/context"
	xerrors "xdl/internal/errors"
	"xdl/internal/value"
)

func init() {
	register("REFORM", reform)
	register("TRANSPOSE", transpose)
	register("TOTAL", total)
	register("MEAN", mean)
	register("MIN", minFn)
	register("MAX", maxFn)
	register("N_ELEMENTS", nElements)
	register("WHERE", where)
	register("REVERSE", reverse)
	register("SORT", sortFn)
	register("SHIFT", shift)
	register("UNIQ", uniq)
	register("ARRAY_EQUAL", arrayEqual)
}

// reform reshapes an Array/MultiDimArray's flat buffer into a new shape
// without touching element order, column-major (spec.md §9).
func reform(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := requireArgs(args, 2, "REFORM"); err != nil {
		return value.Undefined, err
	}
	data, err := toDataSlice(args[0])
	if err != nil {
		return value.Undefined, err
	}
	shape := make([]int, len(args)-1)
	for i, a := range args[1:] {
		shape[i] = int(a.ToLong())
	}
	if value.Product(shape) != len(data) {
		return value.Undefined, xerrors.New(xerrors.DimensionError,
			"REFORM: %d elements cannot fill shape of %d elements", len(data), value.Product(shape))
	}
	if len(shape) == 1 {
		return value.Array(data), nil
	}
	return value.MultiDimArray(data, shape), nil
}

// transpose reverses the axis order of a MultiDimArray (2-D matrix
// transpose when rank 2, generalized swap-all-axes otherwise), or returns
// a 1-D Array unchanged (transposing a vector is a no-op).
func transpose(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := requireArgs(args, 1, "TRANSPOSE"); err != nil {
		return value.Undefined, err
	}
	v := args[0]
	if v.Kind == value.KindArray {
		return v, nil
	}
	if v.Kind != value.KindMultiDim {
		return value.Undefined, xerrors.NewTypeMismatch("array", v.Kind.String())
	}
	rank := len(v.Shape)
	newShape := make([]int, rank)
	for i := 0; i < rank; i++ {
		newShape[i] = v.Shape[rank-1-i]
	}
	out := make([]float64, len(v.Data))
	oldStrides := value.Strides(v.Shape)
	newStrides := value.Strides(newShape)
	idx := make([]int, rank)
	for lin := 0; lin < len(v.Data); lin++ {
		rem := lin
		for d := rank - 1; d >= 0; d-- {
			idx[d] = rem / oldStrides[d] % v.Shape[d]
		}
		newLin := 0
		for d := 0; d < rank; d++ {
			newLin += idx[rank-1-d] * newStrides[d]
		}
		out[newLin] = v.Data[lin]
	}
	return value.MultiDimArray(out, newShape), nil
}

func total(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	data, err := toDataSlice(argAt(args, 0))
	if err != nil {
		return value.Undefined, err
	}
	sum := 0.0
	for _, x := range data {
		sum += x
	}
	return value.Double(sum), nil
}

func mean(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	data, err := toDataSlice(argAt(args, 0))
	if err != nil {
		return value.Undefined, err
	}
	if len(data) == 0 {
		return value.Undefined, xerrors.New(xerrors.InvalidArgument, "MEAN: empty array")
	}
	sum := 0.0
	for _, x := range data {
		sum += x
	}
	return value.Double(sum / float64(len(data))), nil
}

func minFn(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	data, err := toDataSlice(argAt(args, 0))
	if err != nil {
		return value.Undefined, err
	}
	if len(data) == 0 {
		return value.Undefined, xerrors.New(xerrors.InvalidArgument, "MIN: empty array")
	}
	m := data[0]
	for _, x := range data[1:] {
		if x < m {
			m = x
		}
	}
	return value.Double(m), nil
}

func maxFn(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	data, err := toDataSlice(argAt(args, 0))
	if err != nil {
		return value.Undefined, err
	}
	if len(data) == 0 {
		return value.Undefined, xerrors.New(xerrors.InvalidArgument, "MAX: empty array")
	}
	m := data[0]
	for _, x := range data[1:] {
		if x > m {
			m = x
		}
	}
	return value.Double(m), nil
}

func nElements(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := requireArgs(args, 1, "N_ELEMENTS"); err != nil {
		return value.Undefined, err
	}
	return value.Long(int64(args[0].Len())), nil
}

// where returns the 0-based indices of every non-zero element, or a
// scalar Long(-1) when none match (classic IDL WHERE convention).
func where(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	data, err := toDataSlice(argAt(args, 0))
	if err != nil {
		return value.Undefined, err
	}
	var idx []float64
	for i, x := range data {
		if x != 0 {
			idx = append(idx, float64(i))
		}
	}
	if len(idx) == 0 {
		return value.Long(-1), nil
	}
	return value.Array(idx), nil
}

func reverse(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	data, err := toDataSlice(argAt(args, 0))
	if err != nil {
		return value.Undefined, err
	}
	out := make([]float64, len(data))
	for i, x := range data {
		out[len(data)-1-i] = x
	}
	return value.Array(out), nil
}

func sortFn(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	data, err := toDataSlice(argAt(args, 0))
	if err != nil {
		return value.Undefined, err
	}
	out := append([]float64(nil), data...)
	slices.Sort(out)
	return value.Array(out), nil
}

// shift rotates an array by n positions (positive shifts toward higher
// indices, matching IDL SHIFT semantics).
func shift(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	data, err := toDataSlice(argAt(args, 0))
	if err != nil {
		return value.Undefined, err
	}
	n := len(data)
	if n == 0 {
		return value.Array(nil), nil
	}
	by := intArg(args, 1, 0) % n
	if by < 0 {
		by += n
	}
	out := make([]float64, n)
	for i, x := range data {
		out[(i+by)%n] = x
	}
	return value.Array(out), nil
}

func uniq(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	data, err := toDataSlice(argAt(args, 0))
	if err != nil {
		return value.Undefined, err
	}
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	var out []float64
	for i, x := range sorted {
		if i == 0 || x != sorted[i-1] {
			out = append(out, x)
		}
	}
	return value.Array(out), nil
}

func arrayEqual(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := requireArgs(args, 2, "ARRAY_EQUAL"); err != nil {
		return value.Undefined, err
	}
	eq := args[0].Equal(args[1])
	if eq {
		return value.Long(1), nil
	}
	return value.Long(0), nil
}
