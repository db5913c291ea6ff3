//go:build vulkan

// Package vulkan implements the Vulkan GPU backend (spec.md §4.8/§6 C9):
// one SPIR-V module per op, each compiled at backend init (via shaderc)
// from the GLSL sources in shaders.go, with a storage-buffer descriptor
// layout (two bindings for unary ops and pow, three for binary ops and
// matmul; sizes and pow's exponent go in push constants). Each call
// allocates host-visible coherent
// buffers, maps and copies inputs, records a command buffer that binds
// the pipeline and dispatches workgroups (256 threads for element-wise,
// 16x16 for matmul), submits with a fence, and waits. Reductions fall
// back to the CPU backend: the Vulkan path carries no reduction shaders
// (spec.md §4.8, and spec.md §9 Open Question ii).
//
// Built only with -tags vulkan, against a local Vulkan SDK + shaderc
// (vulkan.h / shaderc.h on the cgo include path); see vulkan_stub.go for
// the default build.
package vulkan

/*
#cgo LDFLAGS: -lvulkan -lshaderc_shared
#include <vulkan/vulkan.h>
#include <shaderc/shaderc.h>
#include <stdlib.h>
*/
import "C"

import (
	"sync"
	"unsafe"

	"xdl/internal/gpu"
	"xdl/internal/gpu/cpu"
	xerrors "xdl/internal/errors"
)

const (
	workgroupSize1D = 256
	workgroupTile2D = 16
)

type pipeline struct {
	module      C.VkShaderModule
	layout      C.VkPipelineLayout
	setLayout   C.VkDescriptorSetLayout
	pipe        C.VkPipeline
	bindings    int // 2 (unary), 3 (binary/matmul)
	pushBytes   int
}

// Device is the Vulkan backend: one instance, one physical+logical
// device, one queue/command pool, and one pipeline per compiled kernel.
// Reductions are delegated to an embedded CPU device.
type Device struct {
	mu         sync.Mutex
	instance   C.VkInstance
	phys       C.VkPhysicalDevice
	dev        C.VkDevice
	queue      C.VkQueue
	queueIdx   uint32
	pool       C.VkCommandPool
	descPool   C.VkDescriptorPool
	pipelines  map[string]*pipeline
	cpuFallback *cpu.Device
}

func vkCheck(res C.VkResult, op string) error {
	if res != C.VK_SUCCESS {
		return xerrors.New(xerrors.ExecutionFailed, "%s failed: VkResult %d", op, int(res))
	}
	return nil
}

// compileShader compiles GLSL compute source to SPIR-V via shaderc,
// the runtime analog of the CUDA backend's NVRTC step.
func compileShader(name, src string) ([]byte, error) {
	compiler := C.shaderc_compiler_initialize()
	defer C.shaderc_compiler_release(compiler)
	csrc := C.CString(src)
	defer C.free(unsafe.Pointer(csrc))
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	centry := C.CString("main")
	defer C.free(unsafe.Pointer(centry))

	result := C.shaderc_compile_into_spv(compiler, csrc, C.size_t(len(src)),
		C.shaderc_compute_shader, cname, centry, nil)
	defer C.shaderc_result_release(result)

	if C.shaderc_result_get_compilation_status(result) != C.shaderc_compilation_status_success {
		msg := C.GoString(C.shaderc_result_get_error_message(result))
		return nil, xerrors.New(xerrors.CompilationFailed, "compiling %s: %s", name, msg)
	}
	n := C.shaderc_result_get_length(result)
	ptr := C.shaderc_result_get_bytes(result)
	return C.GoBytes(unsafe.Pointer(ptr), C.int(n)), nil
}

// New creates a headless Vulkan instance (no surface/swapchain — this is
// a compute-only backend), picks the first physical device with a
// compute queue family, and compiles+links every kernel in
// shaders.kernelSources into a pipeline.
func New() (*Device, error) {
	d := &Device{pipelines: make(map[string]*pipeline), cpuFallback: cpu.New()}

	appName := C.CString("xdl")
	defer C.free(unsafe.Pointer(appName))
	appInfo := C.VkApplicationInfo{
		sType:      C.VK_STRUCTURE_TYPE_APPLICATION_INFO,
		pApplicationName: appName,
		apiVersion: C.VK_API_VERSION_1_1,
	}
	instInfo := C.VkInstanceCreateInfo{
		sType:            C.VK_STRUCTURE_TYPE_INSTANCE_CREATE_INFO,
		pApplicationInfo: &appInfo,
	}
	if err := vkCheck(C.vkCreateInstance(&instInfo, nil, &d.instance), "vkCreateInstance"); err != nil {
		return nil, err
	}

	var count C.uint32_t
	C.vkEnumeratePhysicalDevices(d.instance, &count, nil)
	if count == 0 {
		return nil, xerrors.New(xerrors.UnsupportedBackend, "no Vulkan physical devices present")
	}
	devices := make([]C.VkPhysicalDevice, count)
	C.vkEnumeratePhysicalDevices(d.instance, &count, &devices[0])
	d.phys = devices[0]

	var qCount C.uint32_t
	C.vkGetPhysicalDeviceQueueFamilyProperties(d.phys, &qCount, nil)
	props := make([]C.VkQueueFamilyProperties, qCount)
	C.vkGetPhysicalDeviceQueueFamilyProperties(d.phys, &qCount, &props[0])
	found := false
	for i, p := range props {
		if p.queueFlags&C.VK_QUEUE_COMPUTE_BIT != 0 {
			d.queueIdx = uint32(i)
			found = true
			break
		}
	}
	if !found {
		return nil, xerrors.New(xerrors.UnsupportedBackend, "no compute-capable queue family")
	}

	priority := C.float(1.0)
	qInfo := C.VkDeviceQueueCreateInfo{
		sType:            C.VK_STRUCTURE_TYPE_DEVICE_QUEUE_CREATE_INFO,
		queueFamilyIndex: C.uint32_t(d.queueIdx),
		queueCount:       1,
		pQueuePriorities: &priority,
	}
	devInfo := C.VkDeviceCreateInfo{
		sType:                C.VK_STRUCTURE_TYPE_DEVICE_CREATE_INFO,
		queueCreateInfoCount: 1,
		pQueueCreateInfos:    &qInfo,
	}
	if err := vkCheck(C.vkCreateDevice(d.phys, &devInfo, nil, &d.dev), "vkCreateDevice"); err != nil {
		return nil, err
	}
	C.vkGetDeviceQueue(d.dev, C.uint32_t(d.queueIdx), 0, &d.queue)

	poolInfo := C.VkCommandPoolCreateInfo{
		sType:            C.VK_STRUCTURE_TYPE_COMMAND_POOL_CREATE_INFO,
		queueFamilyIndex: C.uint32_t(d.queueIdx),
		flags:            C.VK_COMMAND_POOL_CREATE_RESET_COMMAND_BUFFER_BIT,
	}
	if err := vkCheck(C.vkCreateCommandPool(d.dev, &poolInfo, nil, &d.pool), "vkCreateCommandPool"); err != nil {
		return nil, err
	}

	poolSize := C.VkDescriptorPoolSize{descriptorType: C.VK_DESCRIPTOR_TYPE_STORAGE_BUFFER, descriptorCount: 256}
	dpInfo := C.VkDescriptorPoolCreateInfo{
		sType:         C.VK_STRUCTURE_TYPE_DESCRIPTOR_POOL_CREATE_INFO,
		maxSets:       64,
		poolSizeCount: 1,
		pPoolSizes:    &poolSize,
		flags:         C.VK_DESCRIPTOR_POOL_CREATE_FREE_DESCRIPTOR_SET_BIT,
	}
	if err := vkCheck(C.vkCreateDescriptorPool(d.dev, &dpInfo, nil, &d.descPool), "vkCreateDescriptorPool"); err != nil {
		return nil, err
	}

	for name, src := range kernelSources {
		bindings := 3
		pushBytes := 4 // uint32 n
		switch name {
		case "SIN_SPIRV", "COS_SPIRV", "EXP_SPIRV", "LOG_SPIRV", "SQRT_SPIRV":
			bindings = 2
		case "POW_SPIRV":
			bindings = 2
			pushBytes = 8 // n:u32 + p:f32
		case "MATMUL_SPIRV":
			bindings = 3
			pushBytes = 12 // m,n,k: u32 x3
		}
		p, err := d.buildPipeline(name, src, bindings, pushBytes)
		if err != nil {
			return nil, err
		}
		d.pipelines[name] = p
	}

	return d, nil
}

func (d *Device) buildPipeline(name, src string, bindings, pushBytes int) (*pipeline, error) {
	spv, err := compileShader(name, src)
	if err != nil {
		return nil, err
	}
	p := &pipeline{bindings: bindings, pushBytes: pushBytes}

	modInfo := C.VkShaderModuleCreateInfo{
		sType:    C.VK_SHADER_MODULE_CREATE_INFO,
		codeSize: C.size_t(len(spv)),
		pCode:    (*C.uint32_t)(unsafe.Pointer(&spv[0])),
	}
	if err := vkCheck(C.vkCreateShaderModule(d.dev, &modInfo, nil, &p.module), "vkCreateShaderModule("+name+")"); err != nil {
		return nil, err
	}

	layoutBindings := make([]C.VkDescriptorSetLayoutBinding, bindings)
	for i := range layoutBindings {
		layoutBindings[i] = C.VkDescriptorSetLayoutBinding{
			binding:         C.uint32_t(i),
			descriptorType:  C.VK_DESCRIPTOR_TYPE_STORAGE_BUFFER,
			descriptorCount: 1,
			stageFlags:      C.VK_SHADER_STAGE_COMPUTE_BIT,
		}
	}
	setLayoutInfo := C.VkDescriptorSetLayoutCreateInfo{
		sType:        C.VK_STRUCTURE_TYPE_DESCRIPTOR_SET_LAYOUT_CREATE_INFO,
		bindingCount: C.uint32_t(bindings),
		pBindings:    &layoutBindings[0],
	}
	if err := vkCheck(C.vkCreateDescriptorSetLayout(d.dev, &setLayoutInfo, nil, &p.setLayout), "vkCreateDescriptorSetLayout("+name+")"); err != nil {
		return nil, err
	}

	pushRange := C.VkPushConstantRange{stageFlags: C.VK_SHADER_STAGE_COMPUTE_BIT, size: C.uint32_t(pushBytes)}
	layoutInfo := C.VkPipelineLayoutCreateInfo{
		sType:                  C.VK_STRUCTURE_TYPE_PIPELINE_LAYOUT_CREATE_INFO,
		setLayoutCount:         1,
		pSetLayouts:            &p.setLayout,
		pushConstantRangeCount: 1,
		pPushConstantRanges:    &pushRange,
	}
	if err := vkCheck(C.vkCreatePipelineLayout(d.dev, &layoutInfo, nil, &p.layout), "vkCreatePipelineLayout("+name+")"); err != nil {
		return nil, err
	}

	entry := C.CString("main")
	defer C.free(unsafe.Pointer(entry))
	stageInfo := C.VkPipelineShaderStageCreateInfo{
		sType:  C.VK_STRUCTURE_TYPE_PIPELINE_SHADER_STAGE_CREATE_INFO,
		stage:  C.VK_SHADER_STAGE_COMPUTE_BIT,
		module: p.module,
		pName:  entry,
	}
	pipeInfo := C.VkComputePipelineCreateInfo{
		sType:  C.VK_STRUCTURE_TYPE_COMPUTE_PIPELINE_CREATE_INFO,
		stage:  stageInfo,
		layout: p.layout,
	}
	if err := vkCheck(C.vkCreateComputePipelines(d.dev, nil, 1, &pipeInfo, nil, &p.pipe), "vkCreateComputePipelines("+name+")"); err != nil {
		return nil, err
	}
	return p, nil
}

func (d *Device) Name() string { return "vulkan" }

func (d *Device) Synchronize() error {
	return vkCheck(C.vkQueueWaitIdle(d.queue), "vkQueueWaitIdle")
}

// deviceBuffer is host-visible + coherent storage: mapped once at
// creation so Read/Write are plain memcpys, matching "allocates
// host-visible coherent buffers, maps-and-copies" (spec.md §4.8).
type deviceBuffer struct {
	buf    C.VkBuffer
	mem    C.VkDeviceMemory
	mapped unsafe.Pointer
	size   int
}

func (b *deviceBuffer) Size() int { return b.size }

func (b *deviceBuffer) Read(dst []float32) error {
	if err := gpu.CheckLen("vulkan buffer read", len(dst), b.size); err != nil {
		return err
	}
	if b.size == 0 {
		return nil
	}
	src := unsafe.Slice((*float32)(b.mapped), b.size)
	copy(dst, src)
	return nil
}

func (b *deviceBuffer) Write(src []float32) error {
	if err := gpu.CheckLen("vulkan buffer write", len(src), b.size); err != nil {
		return err
	}
	if b.size == 0 {
		return nil
	}
	dst := unsafe.Slice((*float32)(b.mapped), b.size)
	copy(dst, src)
	return nil
}

func (d *Device) findMemoryType(typeBits C.uint32_t, flags C.VkMemoryPropertyFlags) (C.uint32_t, error) {
	var props C.VkPhysicalDeviceMemoryProperties
	C.vkGetPhysicalDeviceMemoryProperties(d.phys, &props)
	for i := C.uint32_t(0); i < props.memoryTypeCount; i++ {
		if typeBits&(1<<i) != 0 && (props.memoryTypes[i].propertyFlags&flags) == flags {
			return i, nil
		}
	}
	return 0, xerrors.New(xerrors.BufferCreationFailed, "no host-visible coherent memory type available")
}

func (d *Device) CreateBuffer(size int) (gpu.Buffer, error) {
	byteSize := C.VkDeviceSize(size * 4)
	if byteSize == 0 {
		byteSize = 4
	}
	bufInfo := C.VkBufferCreateInfo{
		sType: C.VK_STRUCTURE_TYPE_BUFFER_CREATE_INFO,
		size:  byteSize,
		usage: C.VK_BUFFER_USAGE_STORAGE_BUFFER_BIT,
	}
	var buf C.VkBuffer
	if err := vkCheck(C.vkCreateBuffer(d.dev, &bufInfo, nil, &buf), "vkCreateBuffer"); err != nil {
		return nil, xerrors.New(xerrors.BufferCreationFailed, "%v", err)
	}
	var req C.VkMemoryRequirements
	C.vkGetBufferMemoryRequirements(d.dev, buf, &req)
	flags := C.VkMemoryPropertyFlags(C.VK_MEMORY_PROPERTY_HOST_VISIBLE_BIT | C.VK_MEMORY_PROPERTY_HOST_COHERENT_BIT)
	typeIdx, err := d.findMemoryType(C.uint32_t(req.memoryTypeBits), flags)
	if err != nil {
		return nil, err
	}
	allocInfo := C.VkMemoryAllocateInfo{
		sType:           C.VK_STRUCTURE_TYPE_MEMORY_ALLOCATE_INFO,
		allocationSize:  req.size,
		memoryTypeIndex: typeIdx,
	}
	var mem C.VkDeviceMemory
	if err := vkCheck(C.vkAllocateMemory(d.dev, &allocInfo, nil, &mem), "vkAllocateMemory"); err != nil {
		return nil, xerrors.New(xerrors.BufferCreationFailed, "%v", err)
	}
	C.vkBindBufferMemory(d.dev, buf, mem, 0)
	var mapped unsafe.Pointer
	C.vkMapMemory(d.dev, mem, 0, byteSize, 0, &mapped)
	return &deviceBuffer{buf: buf, mem: mem, mapped: mapped, size: size}, nil
}

func (d *Device) CreateBufferWithData(data []float32) (gpu.Buffer, error) {
	buf, err := d.CreateBuffer(len(data))
	if err != nil {
		return nil, err
	}
	if err := buf.Write(data); err != nil {
		return nil, err
	}
	return buf, nil
}

func asVkBuffer(name string, b gpu.Buffer) (*deviceBuffer, error) {
	db, ok := b.(*deviceBuffer)
	if !ok {
		return nil, xerrors.New(xerrors.ExecutionFailed, "%s: buffer is not Vulkan-owned", name)
	}
	return db, nil
}

// dispatch records a one-shot command buffer binding pipeline p over the
// given buffers and push-constant payload, submits it with a fence, and
// waits — the per-call lifecycle spec.md §4.8 and §5 describe.
func (d *Device) dispatch(kernel string, bufs []*deviceBuffer, push []byte, groupsX, groupsY, groupsZ uint32) error {
	p, ok := d.pipelines[kernel]
	if !ok {
		return xerrors.New(xerrors.UnsupportedBackend, "kernel %s not compiled", kernel)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	setAllocInfo := C.VkDescriptorSetAllocateInfo{
		sType:              C.VK_STRUCTURE_TYPE_DESCRIPTOR_SET_ALLOCATE_INFO,
		descriptorPool:     d.descPool,
		descriptorSetCount: 1,
		pSetLayouts:        &p.setLayout,
	}
	var set C.VkDescriptorSet
	if err := vkCheck(C.vkAllocateDescriptorSets(d.dev, &setAllocInfo, &set), "vkAllocateDescriptorSets"); err != nil {
		return err
	}
	defer C.vkFreeDescriptorSets(d.dev, d.descPool, 1, &set)

	writes := make([]C.VkWriteDescriptorSet, len(bufs))
	infos := make([]C.VkDescriptorBufferInfo, len(bufs))
	for i, b := range bufs {
		infos[i] = C.VkDescriptorBufferInfo{buffer: b.buf, offset: 0, range_: C.VkDeviceSize(C.VK_WHOLE_SIZE)}
		writes[i] = C.VkWriteDescriptorSet{
			sType:           C.VK_STRUCTURE_TYPE_WRITE_DESCRIPTOR_SET,
			dstSet:          set,
			dstBinding:      C.uint32_t(i),
			descriptorCount: 1,
			descriptorType:  C.VK_DESCRIPTOR_TYPE_STORAGE_BUFFER,
			pBufferInfo:     &infos[i],
		}
	}
	C.vkUpdateDescriptorSets(d.dev, C.uint32_t(len(writes)), &writes[0], 0, nil)

	cbAllocInfo := C.VkCommandBufferAllocateInfo{
		sType:              C.VK_STRUCTURE_TYPE_COMMAND_BUFFER_ALLOCATE_INFO,
		commandPool:        d.pool,
		level:              C.VK_COMMAND_BUFFER_LEVEL_PRIMARY,
		commandBufferCount: 1,
	}
	var cb C.VkCommandBuffer
	if err := vkCheck(C.vkAllocateCommandBuffers(d.dev, &cbAllocInfo, &cb), "vkAllocateCommandBuffers"); err != nil {
		return err
	}
	defer C.vkFreeCommandBuffers(d.dev, d.pool, 1, &cb)

	beginInfo := C.VkCommandBufferBeginInfo{sType: C.VK_STRUCTURE_TYPE_COMMAND_BUFFER_BEGIN_INFO}
	C.vkBeginCommandBuffer(cb, &beginInfo)
	C.vkCmdBindPipeline(cb, C.VK_PIPELINE_BIND_POINT_COMPUTE, p.pipe)
	C.vkCmdBindDescriptorSets(cb, C.VK_PIPELINE_BIND_POINT_COMPUTE, p.layout, 0, 1, &set, 0, nil)
	if len(push) > 0 {
		C.vkCmdPushConstants(cb, p.layout, C.VK_SHADER_STAGE_COMPUTE_BIT, 0, C.uint32_t(len(push)), unsafe.Pointer(&push[0]))
	}
	C.vkCmdDispatch(cb, C.uint32_t(groupsX), C.uint32_t(groupsY), C.uint32_t(groupsZ))
	C.vkEndCommandBuffer(cb)

	fenceInfo := C.VkFenceCreateInfo{sType: C.VK_STRUCTURE_TYPE_FENCE_CREATE_INFO}
	var fence C.VkFence
	C.vkCreateFence(d.dev, &fenceInfo, nil, &fence)
	defer C.vkDestroyFence(d.dev, fence, nil)

	submitInfo := C.VkSubmitInfo{
		sType:              C.VK_STRUCTURE_TYPE_SUBMIT_INFO,
		commandBufferCount: 1,
		pCommandBuffers:    &cb,
	}
	if err := vkCheck(C.vkQueueSubmit(d.queue, 1, &submitInfo, fence), "vkQueueSubmit"); err != nil {
		return err
	}
	return vkCheck(C.vkWaitForFences(d.dev, 1, &fence, C.VK_TRUE, ^C.uint64_t(0)), "vkWaitForFences")
}

func groups1D(n int) uint32 {
	return uint32((n + workgroupSize1D - 1) / workgroupSize1D)
}

func pushU32(n int) []byte {
	b := make([]byte, 4)
	v := uint32(n)
	b[0], b[1], b[2], b[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
	return b
}

func (d *Device) binaryOp(kernel string, a, b, out gpu.Buffer, n int) error {
	ab, err := asVkBuffer(kernel, a)
	if err != nil {
		return err
	}
	bb, err := asVkBuffer(kernel, b)
	if err != nil {
		return err
	}
	ob, err := asVkBuffer(kernel, out)
	if err != nil {
		return err
	}
	return d.dispatch(kernel, []*deviceBuffer{ab, bb, ob}, pushU32(n), groups1D(n), 1, 1)
}

func (d *Device) unaryOp(kernel string, a, out gpu.Buffer, n int) error {
	ab, err := asVkBuffer(kernel, a)
	if err != nil {
		return err
	}
	ob, err := asVkBuffer(kernel, out)
	if err != nil {
		return err
	}
	return d.dispatch(kernel, []*deviceBuffer{ab, ob}, pushU32(n), groups1D(n), 1, 1)
}

func (d *Device) Add(a, b, out gpu.Buffer, n int) error { return d.binaryOp("ADD_SPIRV", a, b, out, n) }
func (d *Device) Sub(a, b, out gpu.Buffer, n int) error { return d.binaryOp("SUB_SPIRV", a, b, out, n) }
func (d *Device) Mul(a, b, out gpu.Buffer, n int) error { return d.binaryOp("MUL_SPIRV", a, b, out, n) }
func (d *Device) Div(a, b, out gpu.Buffer, n int) error { return d.binaryOp("DIV_SPIRV", a, b, out, n) }

func (d *Device) Sin(a, out gpu.Buffer, n int) error  { return d.unaryOp("SIN_SPIRV", a, out, n) }
func (d *Device) Cos(a, out gpu.Buffer, n int) error  { return d.unaryOp("COS_SPIRV", a, out, n) }
func (d *Device) Exp(a, out gpu.Buffer, n int) error  { return d.unaryOp("EXP_SPIRV", a, out, n) }
func (d *Device) Log(a, out gpu.Buffer, n int) error  { return d.unaryOp("LOG_SPIRV", a, out, n) }
func (d *Device) Sqrt(a, out gpu.Buffer, n int) error { return d.unaryOp("SQRT_SPIRV", a, out, n) }

func (d *Device) Pow(a, out gpu.Buffer, p float32, n int) error {
	ab, err := asVkBuffer("POW_SPIRV", a)
	if err != nil {
		return err
	}
	ob, err := asVkBuffer("POW_SPIRV", out)
	if err != nil {
		return err
	}
	push := pushU32(n)
	pb := make([]byte, 4)
	*(*float32)(unsafe.Pointer(&pb[0])) = p
	push = append(push, pb...)
	return d.dispatch("POW_SPIRV", []*deviceBuffer{ab, ob}, push, groups1D(n), 1, 1)
}

// SumReduce/MaxReduce/MinReduce fall back to the CPU backend: the
// Vulkan path has no reduction shaders (spec.md §4.8, §9 Open Question
// ii). Device memory is read back into host buffers first.
func (d *Device) reduceViaCPU(a gpu.Buffer, n int, run func(gpu.Buffer, int) (float32, error)) (float32, error) {
	ab, err := asVkBuffer("reduce", a)
	if err != nil {
		return 0, err
	}
	host := make([]float32, n)
	if err := ab.Read(host); err != nil {
		return 0, err
	}
	cpuBuf, err := d.cpuFallback.CreateBufferWithData(host)
	if err != nil {
		return 0, err
	}
	return run(cpuBuf, n)
}

func (d *Device) SumReduce(a gpu.Buffer, n int) (float32, error) {
	return d.reduceViaCPU(a, n, func(b gpu.Buffer, n int) (float32, error) { return d.cpuFallback.SumReduce(b, n) })
}

func (d *Device) MaxReduce(a gpu.Buffer, n int) (float32, error) {
	return d.reduceViaCPU(a, n, func(b gpu.Buffer, n int) (float32, error) { return d.cpuFallback.MaxReduce(b, n) })
}

func (d *Device) MinReduce(a gpu.Buffer, n int) (float32, error) {
	return d.reduceViaCPU(a, n, func(b gpu.Buffer, n int) (float32, error) { return d.cpuFallback.MinReduce(b, n) })
}

func (d *Device) Matmul(a, b, c gpu.Buffer, m, n, k int) error {
	ab, err := asVkBuffer("MATMUL_SPIRV", a)
	if err != nil {
		return err
	}
	bb, err := asVkBuffer("MATMUL_SPIRV", b)
	if err != nil {
		return err
	}
	cb, err := asVkBuffer("MATMUL_SPIRV", c)
	if err != nil {
		return err
	}
	push := append(append(pushU32(m), pushU32(n)...), pushU32(k)...)
	groupsX := uint32((n + workgroupTile2D - 1) / workgroupTile2D)
	groupsY := uint32((m + workgroupTile2D - 1) / workgroupTile2D)
	return d.dispatch("MATMUL_SPIRV", []*deviceBuffer{ab, bb, cb}, push, groupsX, groupsY, 1)
}
