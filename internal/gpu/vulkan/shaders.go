//go:build vulkan

package vulkan

import "fmt"

// glslUnary builds a compute shader for out[i] = op(a[i]) over a
// storage-buffer pair, one workgroup dimension of 256 (spec.md §4.8/§6).
func glslUnary(op string) string {
	return fmt.Sprintf(`#version 450
layout(local_size_x = 256) in;
layout(binding = 0) readonly buffer A { float a[]; };
layout(binding = 1) writeonly buffer Out { float data[]; };
layout(push_constant) uniform Push { uint n; } pc;
void main() {
    uint i = gl_GlobalInvocationID.x;
    if (i >= pc.n) return;
    data[i] = %s;
}
`, op)
}

// glslBinary builds a compute shader for out[i] = op(a[i], b[i]).
func glslBinary(op string) string {
	return fmt.Sprintf(`#version 450
layout(local_size_x = 256) in;
layout(binding = 0) readonly buffer A { float a[]; };
layout(binding = 1) readonly buffer B { float b[]; };
layout(binding = 2) writeonly buffer Out { float data[]; };
layout(push_constant) uniform Push { uint n; } pc;
void main() {
    uint i = gl_GlobalInvocationID.x;
    if (i >= pc.n) return;
    data[i] = %s;
}
`, op)
}

const glslPow = `#version 450
layout(local_size_x = 256) in;
layout(binding = 0) readonly buffer A { float a[]; };
layout(binding = 1) writeonly buffer Out { float data[]; };
layout(push_constant) uniform Push { uint n; float p; } pc;
void main() {
    uint i = gl_GlobalInvocationID.x;
    if (i >= pc.n) return;
    data[i] = pow(a[i], pc.p);
}
`

// glslMatmul computes C[M,N] = A[M,K] * B[K,N], all row-major, 16x16
// workgroups (spec.md §4.8/§6).
const glslMatmul = `#version 450
layout(local_size_x = 16, local_size_y = 16) in;
layout(binding = 0) readonly buffer A { float a[]; };
layout(binding = 1) readonly buffer B { float b[]; };
layout(binding = 2) writeonly buffer C { float c[]; };
layout(push_constant) uniform Push { uint m; uint n; uint k; } pc;
void main() {
    uint row = gl_GlobalInvocationID.y;
    uint col = gl_GlobalInvocationID.x;
    if (row >= pc.m || col >= pc.n) return;
    float acc = 0.0;
    for (uint t = 0; t < pc.k; t++) {
        acc += a[row * pc.k + t] * b[t * pc.n + col];
    }
    c[row * pc.n + col] = acc;
}
`

// kernelSources maps each of the eleven compile-time SPIR-V modules named
// in spec.md §6 to its GLSL compute source, compiled via shaderc at
// backend init (compileShader in vulkan.go).
var kernelSources = map[string]string{
	"ADD_SPIRV":  glslBinary("a[i] + b[i]"),
	"SUB_SPIRV":  glslBinary("a[i] - b[i]"),
	"MUL_SPIRV":  glslBinary("a[i] * b[i]"),
	"DIV_SPIRV":  glslBinary("a[i] / b[i]"),
	"SIN_SPIRV":  glslUnary("sin(a[i])"),
	"COS_SPIRV":  glslUnary("cos(a[i])"),
	"EXP_SPIRV":  glslUnary("exp(a[i])"),
	"LOG_SPIRV":  glslUnary("log(a[i])"),
	"SQRT_SPIRV": glslUnary("sqrt(a[i])"),
	"POW_SPIRV":  glslPow,
	"MATMUL_SPIRV": glslMatmul,
}
