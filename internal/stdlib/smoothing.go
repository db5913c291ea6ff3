// Smoothing family restored from original_source/xdl-stdlib/src/math.rs:
// SMOOTH, MOVING_AVERAGE, WMA, EMA, CUMULATIVE_AVERAGE. SMOOTH,
// MOVING_AVERAGE and WMA pad windows that run past the array ends by
// reflection by default; the /EDGE_TRUNCATE flag shrinks the window
// instead. No integer edge-mode selector is read.
package stdlib

import (
	"xdl/internal/context"
	xerrors "xdl/internal/errors"
	"xdl/internal/value"
)

func init() {
	register("SMOOTH", smoothFn)
	register("MOVING_AVERAGE", movingAverageFn)
	register("WMA", wmaFn)
	register("EMA", emaFn)
	register("CUMULATIVE_AVERAGE", cumulativeAverageFn)
}

// edgeMode selects how a window centered near the array boundary is
// padded. 0 (default) = reflect, 1 = truncate (shrink the window).
type edgeMode int

const (
	edgeReflect edgeMode = iota
	edgeTruncate
)

func edgeModeFromKw(kwargs map[string]value.Value) edgeMode {
	if kwBool(kwargs, "EDGE_TRUNCATE", false) {
		return edgeTruncate
	}
	return edgeReflect
}

// reflectAt returns data[i] with out-of-range i reflected back into range,
// the default edge mode (spec.md §9 (iii)).
func reflectAt(data []float64, i int) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i - 1
		}
		if i >= n {
			i = 2*n - i - 1
		}
	}
	return data[i]
}

func windowAverage(data []float64, center, width int, mode edgeMode) float64 {
	half := width / 2
	sum := 0.0
	count := 0
	for k := -half; k <= half; k++ {
		idx := center + k
		if mode == edgeTruncate {
			if idx < 0 || idx >= len(data) {
				continue
			}
			sum += data[idx]
			count++
			continue
		}
		sum += reflectAt(data, idx)
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func smoothFn(_ *context.Context, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if err := requireArgs(args, 2, "SMOOTH"); err != nil {
		return value.Undefined, err
	}
	data, err := toDataSlice(args[0])
	if err != nil {
		return value.Undefined, err
	}
	width := int(args[1].ToLong())
	if width < 1 {
		return value.Undefined, xerrors.New(xerrors.InvalidArgument, "SMOOTH: width must be >= 1")
	}
	mode := edgeModeFromKw(kwargs)
	out := make([]float64, len(data))
	for i := range data {
		out[i] = windowAverage(data, i, width, mode)
	}
	return value.Array(out), nil
}

func movingAverageFn(ctx *context.Context, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	return smoothFn(ctx, args, kwargs)
}

// wmaFn is a weighted moving average: the most recent window element
// carries the highest linear weight.
func wmaFn(_ *context.Context, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if err := requireArgs(args, 2, "WMA"); err != nil {
		return value.Undefined, err
	}
	data, err := toDataSlice(args[0])
	if err != nil {
		return value.Undefined, err
	}
	width := int(args[1].ToLong())
	if width < 1 {
		return value.Undefined, xerrors.New(xerrors.InvalidArgument, "WMA: width must be >= 1")
	}
	mode := edgeModeFromKw(kwargs)
	out := make([]float64, len(data))
	denom := float64(width * (width + 1) / 2)
	for i := range data {
		sum := 0.0
		for k := 0; k < width; k++ {
			idx := i - width + 1 + k
			weight := float64(k + 1)
			var x float64
			if mode == edgeTruncate {
				if idx < 0 || idx >= len(data) {
					continue
				}
				x = data[idx]
			} else {
				x = reflectAt(data, idx)
			}
			sum += weight * x
		}
		out[i] = sum / denom
	}
	return value.Array(out), nil
}

// emaFn is an exponential moving average with smoothing factor
// alpha = 2/(width+1), the standard EMA convention.
func emaFn(_ *context.Context, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if err := requireArgs(args, 2, "EMA"); err != nil {
		return value.Undefined, err
	}
	data, err := toDataSlice(args[0])
	if err != nil {
		return value.Undefined, err
	}
	width := int(args[1].ToLong())
	if width < 1 {
		return value.Undefined, xerrors.New(xerrors.InvalidArgument, "EMA: width must be >= 1")
	}
	alpha := 2.0 / float64(width+1)
	if len(data) == 0 {
		return value.Array(nil), nil
	}
	out := make([]float64, len(data))
	out[0] = data[0]
	for i := 1; i < len(data); i++ {
		out[i] = alpha*data[i] + (1-alpha)*out[i-1]
	}
	return value.Array(out), nil
}

func cumulativeAverageFn(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	data, err := toDataSlice(argAt(args, 0))
	if err != nil {
		return value.Undefined, err
	}
	out := make([]float64, len(data))
	sum := 0.0
	for i, x := range data {
		sum += x
		out[i] = sum / float64(i+1)
	}
	return value.Array(out), nil
}
