// Package cpu implements the CPU reference backend (spec.md §4.8 C8): the
// ground truth for numerical semantics that every GPU backend must agree
// with within tolerance. Element-wise ops are defined by IEEE-754 on f32
// with host rounding mode; reductions are left-to-right naive (not
// Kahan); matmul is a straightforward triple loop in row-major.
//
// Grounded on the teacher's backend-registration idiom (a named device
// satisfying a shared interface) generalized to host-native math, with
// feature detection following golang.org/x/sys/cpu's standard
// capability-struct pattern.
package cpu

import (
	"golang.org/x/sys/cpu"

	"xdl/internal/gpu"
	xerrors "xdl/internal/errors"
)

// HasSIMD reports whether this host's vector ISA would let an assembly
// kernel beat the serial path (AVX2 on x86-64, ASIMD on arm64). The Go
// implementation below is a single code path either way — no cgo/asm
// kernel is part of this module — but the flag is what the statistics
// layer uses to label calls CpuSimd vs CpuSerial (spec.md §4.10), and it
// mirrors how a real SIMD-accelerated backend would branch.
func HasSIMD() bool {
	return cpu.X86.HasAVX2 || cpu.ARM64.HasASIMD
}

// Device is the CPU reference backend.
type Device struct {
	simd bool
}

// New constructs the CPU backend, detecting host SIMD capability once at
// startup.
func New() *Device {
	return &Device{simd: HasSIMD()}
}

func (d *Device) Name() string {
	if d.simd {
		return "cpu-simd"
	}
	return "cpu-serial"
}

// Simd reports the capability this device instance detected (used by
// callers, e.g. the dispatcher, to pick the statistics layer label).
func (d *Device) Simd() bool { return d.simd }

func (d *Device) Synchronize() error { return nil }

// hostBuffer is a plain host-memory Buffer: the CPU backend's buffers
// never leave host RAM, so Read/Write are direct copies.
type hostBuffer struct {
	data []float32
}

func (b *hostBuffer) Size() int { return len(b.data) }

func (b *hostBuffer) Read(dst []float32) error {
	if err := gpu.CheckLen("cpu buffer read", len(dst), len(b.data)); err != nil {
		return err
	}
	copy(dst, b.data)
	return nil
}

func (b *hostBuffer) Write(src []float32) error {
	if err := gpu.CheckLen("cpu buffer write", len(src), len(b.data)); err != nil {
		return err
	}
	copy(b.data, src)
	return nil
}

func (d *Device) CreateBuffer(size int) (gpu.Buffer, error) {
	if size < 0 {
		return nil, xerrors.New(xerrors.BufferCreationFailed, "negative buffer size %d", size)
	}
	return &hostBuffer{data: make([]float32, size)}, nil
}

func (d *Device) CreateBufferWithData(data []float32) (gpu.Buffer, error) {
	buf := make([]float32, len(data))
	copy(buf, data)
	return &hostBuffer{data: buf}, nil
}

func asHost(name string, b gpu.Buffer) (*hostBuffer, error) {
	hb, ok := b.(*hostBuffer)
	if !ok {
		return nil, xerrors.New(xerrors.ExecutionFailed, "%s: buffer is not CPU-owned", name)
	}
	return hb, nil
}

func elementwise(name string, a, b, out gpu.Buffer, n int, fn func(x, y float32) float32) error {
	ah, err := asHost(name, a)
	if err != nil {
		return err
	}
	oh, err := asHost(name, out)
	if err != nil {
		return err
	}
	if err := gpu.CheckLen(name, len(ah.data), n); err != nil {
		return err
	}
	if err := gpu.CheckLen(name, len(oh.data), n); err != nil {
		return err
	}
	if b == nil {
		for i := 0; i < n; i++ {
			oh.data[i] = fn(ah.data[i], 0)
		}
		return nil
	}
	bh, err := asHost(name, b)
	if err != nil {
		return err
	}
	if err := gpu.CheckLen(name, len(bh.data), n); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		oh.data[i] = fn(ah.data[i], bh.data[i])
	}
	return nil
}

func (d *Device) Add(a, b, out gpu.Buffer, n int) error {
	return elementwise("add_f32", a, b, out, n, func(x, y float32) float32 { return x + y })
}

func (d *Device) Sub(a, b, out gpu.Buffer, n int) error {
	return elementwise("sub_f32", a, b, out, n, func(x, y float32) float32 { return x - y })
}

func (d *Device) Mul(a, b, out gpu.Buffer, n int) error {
	return elementwise("mul_f32", a, b, out, n, func(x, y float32) float32 { return x * y })
}

func (d *Device) Div(a, b, out gpu.Buffer, n int) error {
	return elementwise("div_f32", a, b, out, n, func(x, y float32) float32 { return x / y })
}

func (d *Device) unary(name string, a, out gpu.Buffer, n int, fn func(float32) float32) error {
	return elementwise(name, a, nil, out, n, func(x, _ float32) float32 { return fn(x) })
}

func (d *Device) Sin(a, out gpu.Buffer, n int) error  { return d.unary("sin_f32", a, out, n, sin32) }
func (d *Device) Cos(a, out gpu.Buffer, n int) error  { return d.unary("cos_f32", a, out, n, cos32) }
func (d *Device) Exp(a, out gpu.Buffer, n int) error  { return d.unary("exp_f32", a, out, n, exp32) }
func (d *Device) Log(a, out gpu.Buffer, n int) error  { return d.unary("log_f32", a, out, n, log32) }
func (d *Device) Sqrt(a, out gpu.Buffer, n int) error { return d.unary("sqrt_f32", a, out, n, sqrt32) }

func (d *Device) Pow(a, out gpu.Buffer, p float32, n int) error {
	return d.unary("pow_f32", a, out, n, func(x float32) float32 { return pow32(x, p) })
}

func (d *Device) reduce(name string, a gpu.Buffer, n int, init float32, fn func(acc, x float32) float32) (float32, error) {
	ah, err := asHost(name, a)
	if err != nil {
		return 0, err
	}
	if err := gpu.CheckLen(name, len(ah.data), n); err != nil {
		return 0, err
	}
	acc := init
	for i := 0; i < n; i++ {
		acc = fn(acc, ah.data[i])
	}
	return acc, nil
}

func (d *Device) SumReduce(a gpu.Buffer, n int) (float32, error) {
	return d.reduce("sum_reduce_f32", a, n, 0, func(acc, x float32) float32 { return acc + x })
}

func (d *Device) MaxReduce(a gpu.Buffer, n int) (float32, error) {
	if n == 0 {
		return 0, xerrors.New(xerrors.InvalidArgument, "max_reduce_f32: empty input")
	}
	ah, err := asHost("max_reduce_f32", a)
	if err != nil {
		return 0, err
	}
	acc := ah.data[0]
	for _, x := range ah.data[1:n] {
		if x > acc || acc != acc {
			acc = x
		}
	}
	return acc, nil
}

func (d *Device) MinReduce(a gpu.Buffer, n int) (float32, error) {
	if n == 0 {
		return 0, xerrors.New(xerrors.InvalidArgument, "min_reduce_f32: empty input")
	}
	ah, err := asHost("min_reduce_f32", a)
	if err != nil {
		return 0, err
	}
	acc := ah.data[0]
	for _, x := range ah.data[1:n] {
		if x < acc || acc != acc {
			acc = x
		}
	}
	return acc, nil
}

// Matmul computes C[M,N] = A[M,K] * B[K,N], all row-major, via a
// straightforward triple loop (spec.md §4.8).
func (d *Device) Matmul(a, b, c gpu.Buffer, m, n, k int) error {
	ah, err := asHost("matmul_f32", a)
	if err != nil {
		return err
	}
	bh, err := asHost("matmul_f32", b)
	if err != nil {
		return err
	}
	ch, err := asHost("matmul_f32", c)
	if err != nil {
		return err
	}
	if err := gpu.CheckLen("matmul_f32", len(ah.data), m*k); err != nil {
		return err
	}
	if err := gpu.CheckLen("matmul_f32", len(bh.data), k*n); err != nil {
		return err
	}
	if err := gpu.CheckLen("matmul_f32", len(ch.data), m*n); err != nil {
		return err
	}
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var sum float32
			for t := 0; t < k; t++ {
				sum += ah.data[i*k+t] * bh.data[t*n+j]
			}
			ch.data[i*n+j] = sum
		}
	}
	return nil
}
