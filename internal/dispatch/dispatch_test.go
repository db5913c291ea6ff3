package dispatch

import (
	"testing"

	"xdl/internal/gpu/cpu"
	"xdl/internal/stats"
)

func newTestDispatcher() *SmartDispatcher {
	return New(cpu.New(), nil, DefaultConfig(), stats.New())
}

func TestChooseTargetRespectsThresholds(t *testing.T) {
	d := newTestDispatcher()
	if target := d.ChooseTarget(Elementwise, 10); target != CPU {
		t.Fatalf("small elementwise call should stay on CPU, got %v", target)
	}
	// No GPU device installed: even a call above threshold stays CPU.
	if target := d.ChooseTarget(Elementwise, 1_000_000); target != CPU {
		t.Fatalf("with no GPU device installed, target should be CPU, got %v", target)
	}
}

func TestForceCPUWinsOverForceGPU(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ForceGPU = true
	cfg.ForceCPU = true
	d := New(cpu.New(), nil, cfg, stats.New())
	if target := d.ChooseTarget(Matmul, 10_000_000); target != CPU {
		t.Fatalf("force_cpu should win, got %v", target)
	}
}

func TestAddDispatchesAndRecordsStats(t *testing.T) {
	st := stats.New()
	st.Enable()
	d := New(cpu.New(), nil, DefaultConfig(), st)
	got, err := d.Add([]float32{1, 2, 3}, []float32{10, 20, 30})
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{11, 22, 33}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Add[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	rows := st.Snapshot()
	if len(rows) != 1 || rows[0].Op != "add_f32" || rows[0].Calls != 1 {
		t.Fatalf("unexpected stats rows: %+v", rows)
	}
}

func TestMatmulDimensionMismatch(t *testing.T) {
	d := newTestDispatcher()
	_, err := d.Matmul([]float32{1, 2, 3}, []float32{1, 2}, 2, 2, 2)
	if err == nil {
		t.Fatal("expected a DimensionError for mismatched operand length")
	}
}

func TestSumReduce(t *testing.T) {
	d := newTestDispatcher()
	got, err := d.Sum([]float32{1, 2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	if got != 10 {
		t.Fatalf("Sum = %v, want 10", got)
	}
}

func TestGetThresholds(t *testing.T) {
	d := newTestDispatcher()
	th := d.GetThresholds()
	if th.ElementwiseThreshold != 50_000 || th.ReductionThreshold != 100_000 || th.MatmulThreshold != 1_000_000 {
		t.Fatalf("unexpected default thresholds: %+v", th)
	}
}
