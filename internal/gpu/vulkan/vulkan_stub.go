//go:build !vulkan

// Default build: no Vulkan SDK is assumed present. New always reports
// UnsupportedBackend (spec.md §4.8) so callers can probe for a device
// without needing a build-tag-aware call site.
package vulkan

import (
	"xdl/internal/gpu"
	xerrors "xdl/internal/errors"
)

type Device struct{}

func New() (*Device, error) {
	return nil, xerrors.New(xerrors.UnsupportedBackend, "vulkan backend not compiled in (build with -tags vulkan)")
}

func (d *Device) Name() string { return "vulkan" }

func (d *Device) CreateBuffer(size int) (gpu.Buffer, error) { return nil, unsupported() }
func (d *Device) CreateBufferWithData(data []float32) (gpu.Buffer, error) {
	return nil, unsupported()
}
func (d *Device) Add(a, b, out gpu.Buffer, n int) error         { return unsupported() }
func (d *Device) Sub(a, b, out gpu.Buffer, n int) error         { return unsupported() }
func (d *Device) Mul(a, b, out gpu.Buffer, n int) error         { return unsupported() }
func (d *Device) Div(a, b, out gpu.Buffer, n int) error         { return unsupported() }
func (d *Device) Sin(a, out gpu.Buffer, n int) error            { return unsupported() }
func (d *Device) Cos(a, out gpu.Buffer, n int) error            { return unsupported() }
func (d *Device) Exp(a, out gpu.Buffer, n int) error            { return unsupported() }
func (d *Device) Log(a, out gpu.Buffer, n int) error            { return unsupported() }
func (d *Device) Sqrt(a, out gpu.Buffer, n int) error           { return unsupported() }
func (d *Device) Pow(a, out gpu.Buffer, p float32, n int) error { return unsupported() }
func (d *Device) SumReduce(a gpu.Buffer, n int) (float32, error) { return 0, unsupported() }
func (d *Device) MaxReduce(a gpu.Buffer, n int) (float32, error) { return 0, unsupported() }
func (d *Device) MinReduce(a gpu.Buffer, n int) (float32, error) { return 0, unsupported() }
func (d *Device) Matmul(a, b, c gpu.Buffer, m, n, k int) error   { return unsupported() }
func (d *Device) Synchronize() error                             { return unsupported() }

func unsupported() error {
	return xerrors.New(xerrors.UnsupportedBackend, "vulkan backend not compiled in (build with -tags vulkan)")
}
