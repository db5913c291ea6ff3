// Package gpu defines the device contract (spec.md §4.7) that every
// compute backend (internal/gpu/cpu, internal/gpu/cuda, internal/gpu/vulkan)
// implements: element-wise f32 ops, reductions, matmul, and a host-visible
// buffer abstraction. Grounded on the teacher's device/registration
// pattern for pluggable native backends (internal/vm's builtin dispatch
// table), generalized from a single process-global table into an
// interface any backend can satisfy.
package gpu

import xerrors "xdl/internal/errors"

// Buffer is a device-owned region of f32 storage. Buffers are owned by a
// single device and must not cross device boundaries (spec.md §4.7).
type Buffer interface {
	Size() int
	Read(dst []float32) error
	Write(src []float32) error
}

// Device is the full operation surface a compute backend provides.
// Every element-wise/reduction/matmul call is synchronous from the
// caller's perspective; internal async is permitted but must be joined
// before the call returns (spec.md §4.7 invariant).
type Device interface {
	Name() string

	CreateBuffer(size int) (Buffer, error)
	CreateBufferWithData(data []float32) (Buffer, error)

	Add(a, b, out Buffer, n int) error
	Sub(a, b, out Buffer, n int) error
	Mul(a, b, out Buffer, n int) error
	Div(a, b, out Buffer, n int) error

	Sin(a, out Buffer, n int) error
	Cos(a, out Buffer, n int) error
	Exp(a, out Buffer, n int) error
	Log(a, out Buffer, n int) error
	Sqrt(a, out Buffer, n int) error
	Pow(a, out Buffer, p float32, n int) error

	SumReduce(a Buffer, n int) (float32, error)
	MaxReduce(a Buffer, n int) (float32, error)
	MinReduce(a Buffer, n int) (float32, error)

	Matmul(a, b, c Buffer, m, n, k int) error

	Synchronize() error
}

// CheckLen returns BufferSizeMismatch when got != want, the uniform guard
// every backend's entry points apply before touching a slice/buffer.
func CheckLen(name string, got, want int) error {
	if got != want {
		return xerrors.New(xerrors.BufferSizeMismatch, "%s: buffer length %d does not match expected %d", name, got, want)
	}
	return nil
}
