//go:build !cuda

package cuda

import (
	"testing"

	xerrors "xdl/internal/errors"
)

func TestNewReturnsUnsupportedBackendWithoutBuildTag(t *testing.T) {
	_, err := New()
	if err == nil {
		t.Fatal("expected an UnsupportedBackend error when built without -tags cuda")
	}
	xe, ok := err.(*xerrors.XdlError)
	if !ok || xe.Kind != xerrors.UnsupportedBackend {
		t.Fatalf("got %v, want UnsupportedBackend", err)
	}
}
