package cpu

import (
	"math"
	"testing"
)

func TestAddSubMulDiv(t *testing.T) {
	d := New()
	a, err := d.CreateBufferWithData([]float32{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	b, err := d.CreateBufferWithData([]float32{10, 20, 30})
	if err != nil {
		t.Fatal(err)
	}
	out, err := d.CreateBuffer(3)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Add(a, b, out, 3); err != nil {
		t.Fatal(err)
	}
	got := make([]float32, 3)
	out.Read(got)
	want := []float32{11, 22, 33}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Add[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSumReduce(t *testing.T) {
	d := New()
	a, _ := d.CreateBufferWithData([]float32{1, 2, 3, 4, 5})
	sum, err := d.SumReduce(a, 5)
	if err != nil {
		t.Fatal(err)
	}
	if sum != 15 {
		t.Fatalf("SumReduce = %v, want 15", sum)
	}
}

func TestMaxMinReduce(t *testing.T) {
	d := New()
	a, _ := d.CreateBufferWithData([]float32{3, -1, 7, 2})
	max, err := d.MaxReduce(a, 4)
	if err != nil {
		t.Fatal(err)
	}
	if max != 7 {
		t.Fatalf("MaxReduce = %v, want 7", max)
	}
	min, err := d.MinReduce(a, 4)
	if err != nil {
		t.Fatal(err)
	}
	if min != -1 {
		t.Fatalf("MinReduce = %v, want -1", min)
	}
}

func TestMatmulIdentity(t *testing.T) {
	d := New()
	// A = [[1,2],[3,4]] (2x2), identity B, expect C == A.
	a, _ := d.CreateBufferWithData([]float32{1, 2, 3, 4})
	b, _ := d.CreateBufferWithData([]float32{1, 0, 0, 1})
	out, _ := d.CreateBuffer(4)
	if err := d.Matmul(a, b, out, 2, 2, 2); err != nil {
		t.Fatal(err)
	}
	got := make([]float32, 4)
	out.Read(got)
	want := []float32{1, 2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Matmul[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestBufferSizeMismatch(t *testing.T) {
	d := New()
	a, _ := d.CreateBufferWithData([]float32{1, 2, 3})
	out, _ := d.CreateBuffer(2)
	if err := d.Add(a, a, out, 3); err == nil {
		t.Fatal("expected a BufferSizeMismatch error")
	}
}

func TestUnaryMath(t *testing.T) {
	d := New()
	a, _ := d.CreateBufferWithData([]float32{0, float32(math.Pi)})
	out, _ := d.CreateBuffer(2)
	if err := d.Sin(a, out, 2); err != nil {
		t.Fatal(err)
	}
	got := make([]float32, 2)
	out.Read(got)
	if math.Abs(float64(got[0])) > 1e-6 {
		t.Fatalf("sin(0) = %v, want ~0", got[0])
	}
	if math.Abs(float64(got[1])) > 1e-5 {
		t.Fatalf("sin(pi) = %v, want ~0", got[1])
	}
}
