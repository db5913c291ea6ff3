package stats

import (
	"strings"
	"testing"
	"time"
)

func TestRecordAccumulatesPerOpLayer(t *testing.T) {
	s := New()
	s.Enable()
	s.Record("add_f32", CpuSerial, 100, ElementwiseBytes(100, 2), 10*time.Millisecond)
	s.Record("add_f32", CpuSerial, 50, ElementwiseBytes(50, 2), 5*time.Millisecond)
	s.Record("add_f32", GpuCompute, 1000, ElementwiseBytes(1000, 2), time.Millisecond)

	rows := s.Snapshot()
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	var serial, gpu Row
	for _, r := range rows {
		switch r.Layer {
		case CpuSerial:
			serial = r
		case GpuCompute:
			gpu = r
		}
	}
	if serial.Calls != 2 || serial.Elements != 150 {
		t.Fatalf("serial row = %+v", serial)
	}
	if gpu.Calls != 1 || gpu.Elements != 1000 {
		t.Fatalf("gpu row = %+v", gpu)
	}
}

func TestDisabledRecordIsNoop(t *testing.T) {
	s := New()
	s.Disable()
	s.Record("sin_f32", CpuSerial, 10, ReductionBytes(10), time.Millisecond)
	if len(s.Snapshot()) != 0 {
		t.Fatal("expected no rows recorded while disabled")
	}
}

func TestResetClears(t *testing.T) {
	s := New()
	s.Enable()
	s.Record("mul_f32", CpuSimd, 10, ElementwiseBytes(10, 2), time.Millisecond)
	s.Reset()
	if len(s.Snapshot()) != 0 {
		t.Fatal("expected Reset to clear recorded rows")
	}
}

func TestFormatReportContainsColumns(t *testing.T) {
	s := New()
	s.Enable()
	s.Record("add_f32", CpuSerial, 100, ElementwiseBytes(100, 2), time.Millisecond)
	report := s.FormatReport()
	for _, col := range []string{"op", "calls", "elements", "bytes", "seconds", "layer", "add_f32"} {
		if !strings.Contains(report, col) {
			t.Fatalf("report missing %q:\n%s", col, report)
		}
	}
}

func TestBackendNameRoundTrip(t *testing.T) {
	s := New()
	s.SetBackendName("cpu-serial")
	if got := s.BackendName(); got != "cpu-serial" {
		t.Fatalf("BackendName = %q, want cpu-serial", got)
	}
}

func TestElementwiseAndReductionByteFormulas(t *testing.T) {
	if got := ElementwiseBytes(100, 2); got != 1200 {
		t.Fatalf("ElementwiseBytes(100,2) = %d, want 1200", got)
	}
	if got := ReductionBytes(100); got != 400 {
		t.Fatalf("ReductionBytes(100) = %d, want 400", got)
	}
}
