// Package dispatch implements the smart compute dispatcher (spec.md
// §4.9 C10): picks a CPU or GPU execution target per call based on
// per-op-kind size thresholds (or a force flag), invokes the chosen
// gpu.Device, and records the call into internal/stats.
//
// Grounded on the teacher's builtin-dispatch-table idiom (a single
// decision point consulted per call site) generalized from a name-keyed
// table into a threshold-keyed policy over backend devices.
package dispatch

import (
	"time"

	"golang.org/x/sync/errgroup"

	"xdl/internal/gpu"
	"xdl/internal/gpu/cpu"
	xerrors "xdl/internal/errors"
	"xdl/internal/stats"
)

// OpKind classifies a call for threshold lookup (spec.md §4.9).
type OpKind int

const (
	Elementwise OpKind = iota
	Reduction
	Matmul
)

// DispatchConfig holds per-op-kind thresholds plus the two force flags.
// ForceCPU wins when both are set (spec.md §4.9).
type DispatchConfig struct {
	ElementwiseThreshold int
	ReductionThreshold   int
	MatmulThreshold      int // compared against m*n*k
	ForceGPU             bool
	ForceCPU             bool
}

// DefaultConfig returns spec.md §4.9's calibration: elementwise 50000,
// reduction 100000, matmul m*n*k >= 1000000.
func DefaultConfig() DispatchConfig {
	return DispatchConfig{
		ElementwiseThreshold: 50_000,
		ReductionThreshold:   100_000,
		MatmulThreshold:      1_000_000,
	}
}

// DispatchTarget is the backend a call was routed to.
type DispatchTarget int

const (
	CPU DispatchTarget = iota
	GPU
)

func (t DispatchTarget) String() string {
	if t == GPU {
		return "GPU"
	}
	return "CPU"
}

// SmartDispatcher owns the CPU reference device, an optional GPU device,
// the active DispatchConfig, and the statistics sink every call is
// recorded into.
type SmartDispatcher struct {
	cpuDev *cpu.Device
	gpuDev gpu.Device // nil if no GPU backend is installed
	cfg    DispatchConfig
	stats  *stats.Stats
}

// New builds a dispatcher around an always-present CPU device and an
// optional GPU device (pass nil when no GPU backend initialized).
func New(cpuDev *cpu.Device, gpuDev gpu.Device, cfg DispatchConfig, st *stats.Stats) *SmartDispatcher {
	if cpuDev == nil {
		cpuDev = cpu.New()
	}
	if st == nil {
		st = stats.Get()
	}
	d := &SmartDispatcher{cpuDev: cpuDev, gpuDev: gpuDev, cfg: cfg, stats: st}
	name := cpuDev.Name()
	if gpuDev != nil {
		name = gpuDev.Name()
	}
	st.SetBackendName(name)
	return d
}

// GetThresholds exposes the active configuration for introspection
// (spec.md §4.9).
func (d *SmartDispatcher) GetThresholds() DispatchConfig { return d.cfg }

// SetConfig updates the thresholds/force flags at runtime.
func (d *SmartDispatcher) SetConfig(cfg DispatchConfig) { d.cfg = cfg }

// ChooseTarget decides CPU vs GPU for a call of the given kind/size,
// honoring force flags (ForceCPU wins over ForceGPU) before consulting
// thresholds. ForceGPU yields GPU even when no GPU device is installed,
// so the op then fails with UnsupportedBackend; otherwise a GPU target is
// only returned if a GPU device is installed.
func (d *SmartDispatcher) ChooseTarget(kind OpKind, size int) DispatchTarget {
	if d.cfg.ForceCPU {
		return CPU
	}
	if d.cfg.ForceGPU {
		return GPU
	}
	if d.gpuDev == nil {
		return CPU
	}
	var threshold int
	switch kind {
	case Elementwise:
		threshold = d.cfg.ElementwiseThreshold
	case Reduction:
		threshold = d.cfg.ReductionThreshold
	case Matmul:
		threshold = d.cfg.MatmulThreshold
	}
	if size >= threshold {
		return GPU
	}
	return CPU
}

func (d *SmartDispatcher) layerFor(target DispatchTarget) stats.Layer {
	if target == GPU {
		return stats.GpuCompute
	}
	if d.cpuDev.Simd() {
		return stats.CpuSimd
	}
	return stats.CpuSerial
}

func (d *SmartDispatcher) deviceFor(target DispatchTarget) gpu.Device {
	if target == GPU {
		return d.gpuDev
	}
	return d.cpuDev
}

func (d *SmartDispatcher) record(op string, target DispatchTarget, elements int, bytes int64, start time.Time) {
	d.stats.Record(op, d.layerFor(target), elements, bytes, time.Since(start))
}

// binary dispatches a binary element-wise op (add/sub/mul/div) through
// the chosen device, with an explicit force_gpu-but-no-device error
// rather than a silent CPU fallback: the dispatcher never auto-falls
// back (spec.md §4.9 — "by design the dispatcher itself does not
// auto-fall-back").
func (d *SmartDispatcher) binary(op string, a, b []float32, call func(gpu.Device, gpu.Buffer, gpu.Buffer, gpu.Buffer, int) error) ([]float32, error) {
	n := len(a)
	if len(b) != n {
		return nil, xerrors.New(xerrors.DimensionError, "%s: operand length mismatch %d vs %d", op, n, len(b))
	}
	target := d.ChooseTarget(Elementwise, n)
	if target == GPU && d.gpuDev == nil {
		return nil, xerrors.New(xerrors.UnsupportedBackend, "%s: force_gpu requested but no GPU device is installed", op)
	}
	dev := d.deviceFor(target)
	start := time.Now()
	ba, err := dev.CreateBufferWithData(a)
	if err != nil {
		return nil, err
	}
	bb, err := dev.CreateBufferWithData(b)
	if err != nil {
		return nil, err
	}
	out, err := dev.CreateBuffer(n)
	if err != nil {
		return nil, err
	}
	if err := call(dev, ba, bb, out, n); err != nil {
		return nil, err
	}
	result := make([]float32, n)
	if err := out.Read(result); err != nil {
		return nil, err
	}
	d.record(op, target, n, stats.ElementwiseBytes(n, 2), start)
	return result, nil
}

func (d *SmartDispatcher) Add(a, b []float32) ([]float32, error) {
	return d.binary("add_f32", a, b, func(dev gpu.Device, x, y, out gpu.Buffer, n int) error { return dev.Add(x, y, out, n) })
}
func (d *SmartDispatcher) Sub(a, b []float32) ([]float32, error) {
	return d.binary("sub_f32", a, b, func(dev gpu.Device, x, y, out gpu.Buffer, n int) error { return dev.Sub(x, y, out, n) })
}
func (d *SmartDispatcher) Mul(a, b []float32) ([]float32, error) {
	return d.binary("mul_f32", a, b, func(dev gpu.Device, x, y, out gpu.Buffer, n int) error { return dev.Mul(x, y, out, n) })
}
func (d *SmartDispatcher) Div(a, b []float32) ([]float32, error) {
	return d.binary("div_f32", a, b, func(dev gpu.Device, x, y, out gpu.Buffer, n int) error { return dev.Div(x, y, out, n) })
}

func (d *SmartDispatcher) unary(op string, a []float32, call func(gpu.Device, gpu.Buffer, gpu.Buffer, int) error) ([]float32, error) {
	n := len(a)
	target := d.ChooseTarget(Elementwise, n)
	if target == GPU && d.gpuDev == nil {
		return nil, xerrors.New(xerrors.UnsupportedBackend, "%s: force_gpu requested but no GPU device is installed", op)
	}
	dev := d.deviceFor(target)
	start := time.Now()
	ba, err := dev.CreateBufferWithData(a)
	if err != nil {
		return nil, err
	}
	out, err := dev.CreateBuffer(n)
	if err != nil {
		return nil, err
	}
	if err := call(dev, ba, out, n); err != nil {
		return nil, err
	}
	result := make([]float32, n)
	if err := out.Read(result); err != nil {
		return nil, err
	}
	d.record(op, target, n, stats.ElementwiseBytes(n, 1), start)
	return result, nil
}

func (d *SmartDispatcher) Sin(a []float32) ([]float32, error) {
	return d.unary("sin_f32", a, func(dev gpu.Device, x, out gpu.Buffer, n int) error { return dev.Sin(x, out, n) })
}
func (d *SmartDispatcher) Cos(a []float32) ([]float32, error) {
	return d.unary("cos_f32", a, func(dev gpu.Device, x, out gpu.Buffer, n int) error { return dev.Cos(x, out, n) })
}
func (d *SmartDispatcher) Exp(a []float32) ([]float32, error) {
	return d.unary("exp_f32", a, func(dev gpu.Device, x, out gpu.Buffer, n int) error { return dev.Exp(x, out, n) })
}
func (d *SmartDispatcher) Log(a []float32) ([]float32, error) {
	return d.unary("log_f32", a, func(dev gpu.Device, x, out gpu.Buffer, n int) error { return dev.Log(x, out, n) })
}
func (d *SmartDispatcher) Sqrt(a []float32) ([]float32, error) {
	return d.unary("sqrt_f32", a, func(dev gpu.Device, x, out gpu.Buffer, n int) error { return dev.Sqrt(x, out, n) })
}

func (d *SmartDispatcher) Pow(a []float32, p float32) ([]float32, error) {
	n := len(a)
	target := d.ChooseTarget(Elementwise, n)
	if target == GPU && d.gpuDev == nil {
		return nil, xerrors.New(xerrors.UnsupportedBackend, "pow_f32: force_gpu requested but no GPU device is installed")
	}
	dev := d.deviceFor(target)
	start := time.Now()
	ba, err := dev.CreateBufferWithData(a)
	if err != nil {
		return nil, err
	}
	out, err := dev.CreateBuffer(n)
	if err != nil {
		return nil, err
	}
	if err := dev.Pow(ba, out, p, n); err != nil {
		return nil, err
	}
	result := make([]float32, n)
	if err := out.Read(result); err != nil {
		return nil, err
	}
	d.record("pow_f32", target, n, stats.ElementwiseBytes(n, 1), start)
	return result, nil
}

func (d *SmartDispatcher) reduce(op string, a []float32, call func(gpu.Device, gpu.Buffer, int) (float32, error)) (float32, error) {
	n := len(a)
	target := d.ChooseTarget(Reduction, n)
	if target == GPU && d.gpuDev == nil {
		return 0, xerrors.New(xerrors.UnsupportedBackend, "%s: force_gpu requested but no GPU device is installed", op)
	}
	dev := d.deviceFor(target)
	start := time.Now()
	ba, err := dev.CreateBufferWithData(a)
	if err != nil {
		return 0, err
	}
	result, err := call(dev, ba, n)
	if err != nil {
		return 0, err
	}
	d.record(op, target, n, stats.ReductionBytes(n), start)
	return result, nil
}

func (d *SmartDispatcher) Sum(a []float32) (float32, error) {
	return d.reduce("sum_reduce_f32", a, func(dev gpu.Device, b gpu.Buffer, n int) (float32, error) { return dev.SumReduce(b, n) })
}
func (d *SmartDispatcher) Max(a []float32) (float32, error) {
	return d.reduce("max_reduce_f32", a, func(dev gpu.Device, b gpu.Buffer, n int) (float32, error) { return dev.MaxReduce(b, n) })
}
func (d *SmartDispatcher) Min(a []float32) (float32, error) {
	return d.reduce("min_reduce_f32", a, func(dev gpu.Device, b gpu.Buffer, n int) (float32, error) { return dev.MinReduce(b, n) })
}

// Matmul computes C[M,N] = A[M,K] * B[K,N], row-major, choosing target by
// m*n*k against the matmul threshold.
func (d *SmartDispatcher) Matmul(a, b []float32, m, n, k int) ([]float32, error) {
	if len(a) != m*k {
		return nil, xerrors.New(xerrors.DimensionError, "matmul_f32: A has %d elements, want %d", len(a), m*k)
	}
	if len(b) != k*n {
		return nil, xerrors.New(xerrors.DimensionError, "matmul_f32: B has %d elements, want %d", len(b), k*n)
	}
	target := d.ChooseTarget(Matmul, m*n*k)
	if target == GPU && d.gpuDev == nil {
		return nil, xerrors.New(xerrors.UnsupportedBackend, "matmul_f32: force_gpu requested but no GPU device is installed")
	}
	dev := d.deviceFor(target)
	start := time.Now()
	ba, err := dev.CreateBufferWithData(a)
	if err != nil {
		return nil, err
	}
	bb, err := dev.CreateBufferWithData(b)
	if err != nil {
		return nil, err
	}
	out, err := dev.CreateBuffer(m * n)
	if err != nil {
		return nil, err
	}
	if err := dev.Matmul(ba, bb, out, m, n, k); err != nil {
		return nil, err
	}
	result := make([]float32, m*n)
	if err := out.Read(result); err != nil {
		return nil, err
	}
	d.record("matmul_f32", target, m*n*k, stats.ElementwiseBytes(m*n, 2), start)
	return result, nil
}

// SelfCheck runs a small CPU/GPU agreement probe concurrently across
// both devices, returning an error if they disagree beyond spec.md §8's
// elementwise tolerance. New does not run it; cmd/xdl calls it after
// building the dispatcher. A no-op when no GPU device is installed.
func (d *SmartDispatcher) SelfCheck() error {
	if d.gpuDev == nil {
		return nil
	}
	probe := []float32{1, 2, 3, 4, 5}
	var cpuOut, gpuOut []float32
	g := new(errgroup.Group)
	g.Go(func() error {
		out := make([]float32, len(probe))
		buf, err := d.cpuDev.CreateBufferWithData(probe)
		if err != nil {
			return err
		}
		res, err := d.cpuDev.CreateBuffer(len(probe))
		if err != nil {
			return err
		}
		if err := d.cpuDev.Add(buf, buf, res, len(probe)); err != nil {
			return err
		}
		if err := res.Read(out); err != nil {
			return err
		}
		cpuOut = out
		return nil
	})
	g.Go(func() error {
		out := make([]float32, len(probe))
		buf, err := d.gpuDev.CreateBufferWithData(probe)
		if err != nil {
			return err
		}
		res, err := d.gpuDev.CreateBuffer(len(probe))
		if err != nil {
			return err
		}
		if err := d.gpuDev.Add(buf, buf, res, len(probe)); err != nil {
			return err
		}
		if err := res.Read(out); err != nil {
			return err
		}
		gpuOut = out
		return nil
	})
	if err := g.Wait(); err != nil {
		return xerrors.New(xerrors.ExecutionFailed, "backend self-check failed: %v", err)
	}
	const relTol = 1e-5
	for i := range cpuOut {
		diff := cpuOut[i] - gpuOut[i]
		if diff < 0 {
			diff = -diff
		}
		denom := cpuOut[i]
		if denom < 0 {
			denom = -denom
		}
		if denom == 0 {
			denom = 1
		}
		if diff/denom > relTol {
			return xerrors.New(xerrors.ExecutionFailed, "CPU/GPU self-check disagreement at index %d: %v vs %v", i, cpuOut[i], gpuOut[i])
		}
	}
	return nil
}
