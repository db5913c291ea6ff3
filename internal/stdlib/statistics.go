// Statistics functions restored from
// original_source/xdl-stdlib/src/statistics.rs (VARIANCE, STDDEV, MEDIAN,
// MEANABSDEV, MOMENT), dropped by the distilled spec.md but named in
// SPEC_FULL.md §5.
package stdlib

import (
	"math"
	"sort"

	"xdl/internal/context"
	xerrors "xdl/internal/errors"
	"xdl/internal/value"
)

func init() {
	register("VARIANCE", varianceFn)
	register("STDDEV", stddevFn)
	register("MEDIAN", medianFn)
	register("MEANABSDEV", meanAbsDevFn)
	register("MOMENT", momentFn)
}

func sampleVariance(data []float64) (float64, error) {
	if len(data) < 2 {
		return 0, xerrors.New(xerrors.InvalidArgument, "VARIANCE: need at least 2 elements")
	}
	mean := 0.0
	for _, x := range data {
		mean += x
	}
	mean /= float64(len(data))
	ss := 0.0
	for _, x := range data {
		d := x - mean
		ss += d * d
	}
	return ss / float64(len(data)-1), nil
}

func varianceFn(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	data, err := toDataSlice(argAt(args, 0))
	if err != nil {
		return value.Undefined, err
	}
	v, err := sampleVariance(data)
	if err != nil {
		return value.Undefined, err
	}
	return value.Double(v), nil
}

func stddevFn(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	data, err := toDataSlice(argAt(args, 0))
	if err != nil {
		return value.Undefined, err
	}
	v, err := sampleVariance(data)
	if err != nil {
		return value.Undefined, err
	}
	return value.Double(math.Sqrt(v)), nil
}

func medianFn(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	data, err := toDataSlice(argAt(args, 0))
	if err != nil {
		return value.Undefined, err
	}
	if len(data) == 0 {
		return value.Undefined, xerrors.New(xerrors.InvalidArgument, "MEDIAN: empty array")
	}
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return value.Double(sorted[n/2]), nil
	}
	return value.Double((sorted[n/2-1] + sorted[n/2]) / 2), nil
}

func meanAbsDevFn(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	data, err := toDataSlice(argAt(args, 0))
	if err != nil {
		return value.Undefined, err
	}
	if len(data) == 0 {
		return value.Undefined, xerrors.New(xerrors.InvalidArgument, "MEANABSDEV: empty array")
	}
	mean := 0.0
	for _, x := range data {
		mean += x
	}
	mean /= float64(len(data))
	dev := 0.0
	for _, x := range data {
		dev += math.Abs(x - mean)
	}
	return value.Double(dev / float64(len(data))), nil
}

// momentFn returns a 4-element Array [mean, variance, skewness, kurtosis],
// the classic IDL MOMENT result shape.
func momentFn(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	data, err := toDataSlice(argAt(args, 0))
	if err != nil {
		return value.Undefined, err
	}
	n := len(data)
	if n < 2 {
		return value.Undefined, xerrors.New(xerrors.InvalidArgument, "MOMENT: need at least 2 elements")
	}
	mean := 0.0
	for _, x := range data {
		mean += x
	}
	mean /= float64(n)
	var m2, m3, m4 float64
	for _, x := range data {
		d := x - mean
		m2 += d * d
		m3 += d * d * d
		m4 += d * d * d * d
	}
	variance := m2 / float64(n-1)
	stddev := math.Sqrt(m2 / float64(n))
	var skew, kurt float64
	if stddev != 0 {
		skew = (m3 / float64(n)) / (stddev * stddev * stddev)
		kurt = (m4/float64(n))/(stddev*stddev*stddev*stddev) - 3
	}
	return value.Array([]float64{mean, variance, skew, kurt}), nil
}
