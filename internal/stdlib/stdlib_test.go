package stdlib

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"xdl/internal/context"
	"xdl/internal/dataframe"
	"xdl/internal/value"
)

func call(t *testing.T, ctx *context.Context, name string, args ...value.Value) value.Value {
	t.Helper()
	fn, ok := Builtins[name]
	if !ok {
		t.Fatalf("no builtin %s registered", name)
	}
	v, err := fn(ctx, args, nil)
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return v
}

func TestFindgenScenario(t *testing.T) {
	ctx := context.New()
	x := call(t, ctx, "FINDGEN", value.Long(5))
	if x.Kind != value.KindArray || len(x.Data) != 5 {
		t.Fatalf("got %#v", x)
	}
	for i, v := range x.Data {
		if v != float64(i) {
			t.Fatalf("findgen[%d] = %v", i, v)
		}
	}
}

func TestReformColumnMajor(t *testing.T) {
	ctx := context.New()
	x := call(t, ctx, "FINDGEN", value.Long(24))
	a := call(t, ctx, "REFORM", append([]value.Value{x}, value.Long(2), value.Long(3), value.Long(4))...)
	if a.Kind != value.KindMultiDim {
		t.Fatalf("got %#v", a)
	}
	idx := []int{1, 2, 3}
	lin := value.LinearIndex(a.Shape, idx)
	if lin != 23 {
		t.Fatalf("linear index = %d, want 23", lin)
	}
	if a.Data[lin] != 23.0 {
		t.Fatalf("a[1,2,3] = %v, want 23.0", a.Data[lin])
	}
}

func TestMathDomainErrorOnScalarSqrt(t *testing.T) {
	ctx := context.New()
	fn := Builtins["SQRT"]
	_, err := fn(ctx, []value.Value{value.Double(-4)}, nil)
	if err == nil {
		t.Fatal("expected a MathError for sqrt(-4)")
	}
}

func TestSqrtOnArrayYieldsNaN(t *testing.T) {
	ctx := context.New()
	v := call(t, ctx, "SQRT", value.Array([]float64{4, -1, 9}))
	if !math.IsNaN(v.Data[1]) {
		t.Fatalf("expected NaN at index 1, got %v", v.Data)
	}
	if v.Data[0] != 2 || v.Data[2] != 3 {
		t.Fatalf("got %v", v.Data)
	}
}

func TestTotalMeanMinMax(t *testing.T) {
	ctx := context.New()
	arr := value.Array([]float64{1, 2, 3, 4})
	if call(t, ctx, "TOTAL", arr).ToDouble() != 10 {
		t.Fatal("total mismatch")
	}
	if call(t, ctx, "MEAN", arr).ToDouble() != 2.5 {
		t.Fatal("mean mismatch")
	}
	if call(t, ctx, "MIN", arr).ToDouble() != 1 {
		t.Fatal("min mismatch")
	}
	if call(t, ctx, "MAX", arr).ToDouble() != 4 {
		t.Fatal("max mismatch")
	}
}

func TestWhereAndUniq(t *testing.T) {
	ctx := context.New()
	arr := value.Array([]float64{0, 1, 0, 2, 3})
	w := call(t, ctx, "WHERE", arr)
	if len(w.Data) != 3 || w.Data[0] != 1 || w.Data[1] != 3 || w.Data[2] != 4 {
		t.Fatalf("got %v", w.Data)
	}
	u := call(t, ctx, "UNIQ", value.Array([]float64{3, 1, 1, 2, 3}))
	if len(u.Data) != 3 {
		t.Fatalf("got %v", u.Data)
	}
}

func TestMedianVarianceStddev(t *testing.T) {
	ctx := context.New()
	arr := value.Array([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if call(t, ctx, "MEDIAN", arr).ToDouble() != 4.5 {
		t.Fatal("median mismatch")
	}
	v := call(t, ctx, "VARIANCE", arr).ToDouble()
	if v <= 0 {
		t.Fatalf("variance = %v", v)
	}
	sd := call(t, ctx, "STDDEV", arr).ToDouble()
	if math.Abs(sd*sd-v) > 1e-9 {
		t.Fatalf("stddev^2 != variance: %v vs %v", sd*sd, v)
	}
}

func TestEmaMonotonicSmoothing(t *testing.T) {
	ctx := context.New()
	arr := value.Array([]float64{1, 1, 1, 10, 1, 1, 1})
	out := call(t, ctx, "EMA", arr, value.Long(3))
	if out.Data[0] != 1 {
		t.Fatalf("ema[0] = %v", out.Data[0])
	}
	if out.Data[3] <= 1 || out.Data[3] >= 10 {
		t.Fatalf("ema[3] = %v, expected smoothed between 1 and 10", out.Data[3])
	}
}

func TestDataFrameReadCSVScenario(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.csv")
	if err := os.WriteFile(path, []byte("a,b\n1,2\n3,4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx := context.New()
	dfVal := call(t, ctx, "XDLDATAFRAME_READ_CSV", value.String(path))
	if dfVal.Kind != value.KindDataFrame {
		t.Fatalf("got %#v", dfVal)
	}
	raw, ok := ctx.DataFrame(dfVal.ID)
	if !ok {
		t.Fatal("dataframe not stored in arena")
	}
	df := raw.(*dataframe.DataFrame)
	if df.NRows() != 2 {
		t.Fatalf("nrows = %d", df.NRows())
	}
}
