package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer"
)

// Waits on fences and acquisitions never time out.
const noTimeout = ^uint64(0)

// SurfaceProvider is the window side of the renderer.
type SurfaceProvider interface {
	InstanceProcAddr() unsafe.Pointer
	RequiredInstanceExtensions() []string
	CreateSurface(instance vk.Instance) (vk.Surface, error)
	FramebufferSize() (uint32, uint32)
}

type Options struct {
	AppName string
	// Enables the validation layer and the debug report callback.
	Debug          bool
	FramesInFlight uint32
	// Name of the shader program drawn every frame.
	ShaderProgram string
	Shaders       renderer.ShaderProvider
	// Receives validation messages. Defaults to renderer.LogDiagnostic.
	Sink renderer.DiagnosticSink
}

// VulkanRenderer owns the Vulkan objects and implements
// renderer.FrameBackend on top of them.
type VulkanRenderer struct {
	surface SurfaceProvider
	options Options
	context *VulkanContext

	vertexCount uint32
}

func New(surface SurfaceProvider, options Options) *VulkanRenderer {
	if options.FramesInFlight == 0 {
		options.FramesInFlight = DefaultFramesInFlight
	}
	if options.AppName == "" {
		options.AppName = "Trigon"
	}
	return &VulkanRenderer{
		surface: surface,
		options: options,
		context: &VulkanContext{
			Allocator: nil,
			Locks:     NewVulkanLockPool(),
		},
	}
}

// Initialize builds everything from the instance down to the frame slots.
// On failure the objects created so far are released.
func (vr *VulkanRenderer) Initialize() (err error) {
	defer func() {
		if err != nil {
			vr.Shutdown()
		}
	}()

	procAddr := vr.surface.InstanceProcAddr()
	if procAddr == nil {
		return fmt.Errorf("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vk: %s", err)
		return err
	}

	if err := vr.createInstance(); err != nil {
		return err
	}

	if vr.options.Debug {
		SetDiagnosticSink(vr.options.Sink)
		core.LogDebug("Creating Vulkan debugger...")
		if err := createDebugCallback(vr.context); err != nil {
			core.LogError(err.Error())
			return err
		}
		core.LogDebug("Vulkan debugger created.")
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := vr.surface.CreateSurface(vr.context.Instance)
	if err != nil {
		core.LogError("Failed to create platform surface: %s", err)
		return err
	}
	vr.context.Surface = surface
	core.LogDebug("Vulkan surface created.")

	vr.context.Device = &VulkanDevice{}
	if err := DeviceCreate(vr.context); err != nil {
		core.LogError("Failed to create device!")
		return err
	}

	width, height := vr.surface.FramebufferSize()
	if err := vr.createPresentation(renderer.Extent{Width: width, Height: height}); err != nil {
		return err
	}

	descriptors, err := DescriptorsCreate(vr.context, vr.options.FramesInFlight)
	if err != nil {
		return err
	}
	vr.context.Descriptors = descriptors

	vertices, err := GeometryUpload(vr.context, TriangleVertices)
	if err != nil {
		return err
	}
	vr.context.VertexBuffer = vertices
	vr.vertexCount = uint32(len(TriangleVertices))

	pipeline, err := vr.buildPipeline(vr.context.MainRenderpass)
	if err != nil {
		return err
	}
	vr.context.Pipeline = pipeline

	vr.context.Frames = make([]*VulkanFrame, vr.options.FramesInFlight)
	for i := range vr.context.Frames {
		frame, err := FrameCreate(vr.context, descriptors.Sets[i])
		if err != nil {
			return err
		}
		vr.context.Frames[i] = frame
	}

	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

func (vr *VulkanRenderer) createInstance() error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(vr.options.AppName),
		PEngineName:        VulkanSafeString("Trigon"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// Obtain a list of required extensions
	requiredExtensions := append([]string{}, vr.surface.RequiredInstanceExtensions()...)
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			PortabilityEnumerationExtensionName,
			PhysicalDeviceProperties2ExtensionName,
		)
		createInfo.Flags |= instanceCreateEnumeratePortabilityBit
	}
	if vr.options.Debug {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
	}
	core.LogDebug("Required extensions: %v", requiredExtensions)

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	// Validation layers are only requested when debugging and must exist.
	var layers []string
	if vr.options.Debug {
		core.LogInfo("Validation layers enabled. Enumerating...")
		layers = []string{ValidationLayerName}
		available, err := availableLayers()
		if err != nil {
			return err
		}
		if err := checkLayers(layers, available); err != nil {
			core.LogError(err.Error())
			return err
		}
		core.LogInfo("All required validation layers are present.")
	}
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	if res := vk.CreateInstance(&createInfo, vr.context.Allocator, &vr.context.Instance); res != vk.Success {
		err := fmt.Errorf("failed in creating the Vulkan Instance with error `%s`: %w", VulkanResultString(res, true), vk.Error(res))
		core.LogError(err.Error())
		return err
	}
	if err := vk.InitInstance(vr.context.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Vulkan Instance created.")
	return nil
}

func availableLayers() ([]string, error) {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return nil, fmt.Errorf("failed to enumerate instance layers: %w", vk.Error(res))
	}
	properties := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, properties); res != vk.Success {
		return nil, fmt.Errorf("failed to enumerate instance layers: %w", vk.Error(res))
	}
	names := make([]string, 0, count)
	for i := range properties {
		properties[i].Deref()
		names = append(names, vk.ToString(properties[i].LayerName[:]))
	}
	return names, nil
}

// checkLayers fails with ErrValidationLayerMissing naming the first
// required layer that is not available.
func checkLayers(required, available []string) error {
	for _, name := range required {
		found := false
		for _, a := range available {
			if a == name {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: %s", core.ErrValidationLayerMissing, name)
		}
	}
	return nil
}

// createPresentation builds the swapchain, the render pass when its format
// changed, and one framebuffer per image.
func (vr *VulkanRenderer) createPresentation(hint renderer.Extent) error {
	sc, err := SwapchainCreate(vr.context, hint.Width, hint.Height)
	if err != nil {
		return err
	}
	vr.context.Swapchain = sc

	if vr.context.MainRenderpass == nil {
		rp, err := RenderpassCreate(vr.context, sc.ImageFormat.Format)
		if err != nil {
			return err
		}
		vr.context.MainRenderpass = rp
	}
	return regenerateFramebuffers(vr.context, sc, vr.context.MainRenderpass)
}

func (vr *VulkanRenderer) buildPipeline(renderpass *VulkanRenderpass) (*VulkanPipeline, error) {
	if vr.options.Shaders == nil {
		return nil, fmt.Errorf("no shader provider configured")
	}
	program, err := vr.options.Shaders.LoadShaderProgram(vr.options.ShaderProgram)
	if err != nil {
		return nil, err
	}
	stages, err := NewShaderStages(vr.context, program)
	if err != nil {
		return nil, err
	}
	// Modules are no longer needed once the pipeline exists.
	defer DestroyShaderStages(vr.context, stages)

	return NewGraphicsPipeline(vr.context, &VulkanPipelineConfig{
		Renderpass:           renderpass,
		Stride:               vertexStride,
		Attributes:           vertexAttributes(),
		DescriptorSetLayouts: []vk.DescriptorSetLayout{vr.context.Descriptors.Layout},
		Stages:               stageCreateInfos(stages),
		CullMode:             vk.CullModeNone,
	})
}

func (vr *VulkanRenderer) FramesInFlight() uint32 {
	return vr.options.FramesInFlight
}

func (vr *VulkanRenderer) WaitForSlot(slot uint32) error {
	return vr.context.Frames[slot].InFlight.FenceWait(vr.context, noTimeout)
}

func surfaceStatus(result vk.Result) renderer.SurfaceStatus {
	switch result {
	case vk.Suboptimal:
		return renderer.SurfaceSuboptimal
	case vk.ErrorOutOfDate:
		return renderer.SurfaceOutOfDate
	}
	return renderer.SurfaceOptimal
}

func (vr *VulkanRenderer) AcquireImage(slot uint32) (uint32, renderer.SurfaceStatus, error) {
	frame := vr.context.Frames[slot]
	imageIndex, result, err := vr.context.Swapchain.SwapchainAcquireNextImageIndex(vr.context, noTimeout, frame.ImageAvailable, vk.NullFence)
	if err != nil {
		return 0, renderer.SurfaceOptimal, err
	}
	return imageIndex, surfaceStatus(result), nil
}

func (vr *VulkanRenderer) WriteUniforms(slot uint32, ubo renderer.UniformBufferObject) error {
	data := unsafe.Slice((*byte)(unsafe.Pointer(&ubo)), renderer.UniformBufferObjectSize)
	return vr.context.Frames[slot].UniformBuffer.LoadData(data)
}

func (vr *VulkanRenderer) Record(slot, imageIndex uint32) error {
	frame := vr.context.Frames[slot]
	cb := frame.CommandBuffer
	if err := cb.Reset(); err != nil {
		return err
	}
	if err := cb.Begin(false, false, false); err != nil {
		return err
	}

	renderer.RecordDrawPass(&commandEncoder{
		cb:          cb,
		renderpass:  vr.context.MainRenderpass,
		framebuffer: vr.context.Swapchain.Framebuffers[imageIndex],
		pipeline:    vr.context.Pipeline,
		vertices:    vr.context.VertexBuffer,
		descriptor:  frame.DescriptorSet,
	}, vr.Extent(), vr.vertexCount)

	return cb.End()
}

func (vr *VulkanRenderer) Submit(slot, imageIndex uint32) error {
	frame := vr.context.Frames[slot]

	// Reset right before the submission that signals it.
	if err := frame.InFlight.FenceReset(vr.context); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{frame.ImageAvailable},
		// Only colour output waits for the image; vertex work may start
		// before it is available.
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{frame.CommandBuffer.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{frame.RenderComplete},
	}

	err := vr.context.Locks.SafeQueueCall(vr.context.Device.GraphicsQueueIndex, func() error {
		if result := vk.QueueSubmit(vr.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, frame.InFlight.Handle); result != vk.Success {
			return fmt.Errorf("vkQueueSubmit failed with result %s: %w", VulkanResultString(result, true), vk.Error(result))
		}
		return nil
	})
	if err != nil {
		core.LogError(err.Error())
		return err
	}
	frame.CommandBuffer.UpdateSubmitted()
	return nil
}

func (vr *VulkanRenderer) Present(slot, imageIndex uint32) (renderer.SurfaceStatus, error) {
	frame := vr.context.Frames[slot]
	result, err := vr.context.Swapchain.SwapchainPresent(vr.context, vr.context.Device.PresentQueue, frame.RenderComplete, imageIndex)
	if err != nil {
		return renderer.SurfaceOptimal, err
	}
	return surfaceStatus(result), nil
}

func (vr *VulkanRenderer) WaitIdle() error {
	if vr.context.Device == nil || vr.context.Device.LogicalDevice == nil {
		return nil
	}
	if res := vk.DeviceWaitIdle(vr.context.Device.LogicalDevice); res != vk.Success {
		err := fmt.Errorf("vkDeviceWaitIdle failed with %s: %w", VulkanResultString(res, true), vk.Error(res))
		core.LogError(err.Error())
		return err
	}
	return nil
}

// RecreatePresentation retires the current swapchain and builds a new one
// for the hint. The render pass and pipeline are rebuilt only when the
// surface format changed. The device must be idle.
func (vr *VulkanRenderer) RecreatePresentation(hint renderer.Extent) error {
	oldFormat := vr.context.MainRenderpass.Format
	if vr.context.Swapchain != nil {
		vr.context.Swapchain.SwapchainDestroy(vr.context)
		vr.context.Swapchain = nil
	}

	sc, err := SwapchainCreate(vr.context, hint.Width, hint.Height)
	if err != nil {
		return err
	}
	vr.context.Swapchain = sc

	if sc.ImageFormat.Format != oldFormat {
		core.LogInfo("Surface format changed, rebuilding render pass and pipeline.")
		rp, err := RenderpassCreate(vr.context, sc.ImageFormat.Format)
		if err != nil {
			return err
		}
		pipeline, err := vr.buildPipeline(rp)
		if err != nil {
			rp.RenderpassDestroy(vr.context)
			return err
		}
		vr.context.Pipeline.Destroy(vr.context)
		vr.context.MainRenderpass.RenderpassDestroy(vr.context)
		vr.context.Pipeline = pipeline
		vr.context.MainRenderpass = rp
	}

	if err := regenerateFramebuffers(vr.context, sc, vr.context.MainRenderpass); err != nil {
		return err
	}
	core.LogInfo("Presentation rebuilt at %s.", vr.Extent())
	return nil
}

// RecreatePipeline builds the pipeline from freshly loaded shaders. The old
// pipeline is only destroyed once the new one exists.
func (vr *VulkanRenderer) RecreatePipeline() error {
	pipeline, err := vr.buildPipeline(vr.context.MainRenderpass)
	if err != nil {
		return err
	}
	if err := vr.WaitIdle(); err != nil {
		pipeline.Destroy(vr.context)
		return err
	}
	vr.context.Pipeline.Destroy(vr.context)
	vr.context.Pipeline = pipeline
	core.LogInfo("Pipeline reloaded from shader program '%s'.", vr.options.ShaderProgram)
	return nil
}

func (vr *VulkanRenderer) Extent() renderer.Extent {
	if vr.context.Swapchain == nil {
		return renderer.Extent{}
	}
	return renderer.Extent{
		Width:  vr.context.Swapchain.Extent.Width,
		Height: vr.context.Swapchain.Extent.Height,
	}
}

// Shutdown waits for the device and destroys everything in reverse order of
// creation. It is safe on a partially initialized renderer.
func (vr *VulkanRenderer) Shutdown() {
	ctx := vr.context
	_ = vr.WaitIdle()

	if ctx.Device != nil && ctx.Device.LogicalDevice != nil {
		for _, frame := range ctx.Frames {
			if frame != nil {
				frame.Destroy(ctx)
			}
		}
		ctx.Frames = nil

		if ctx.Pipeline != nil {
			ctx.Pipeline.Destroy(ctx)
			ctx.Pipeline = nil
		}
		if ctx.VertexBuffer != nil {
			ctx.VertexBuffer.Destroy(ctx)
			ctx.VertexBuffer = nil
		}
		if ctx.Descriptors != nil {
			ctx.Descriptors.Destroy(ctx)
			ctx.Descriptors = nil
		}
		if ctx.Swapchain != nil {
			ctx.Swapchain.SwapchainDestroy(ctx)
			ctx.Swapchain = nil
		}
		if ctx.MainRenderpass != nil {
			ctx.MainRenderpass.RenderpassDestroy(ctx)
			ctx.MainRenderpass = nil
		}

		core.LogDebug("Destroying Vulkan device...")
		DeviceDestroy(ctx)
	}
	ctx.Device = nil

	if ctx.Surface != vk.NullSurface {
		core.LogDebug("Destroying Vulkan surface...")
		vk.DestroySurface(ctx.Instance, ctx.Surface, ctx.Allocator)
		ctx.Surface = vk.NullSurface
	}

	destroyDebugCallback(ctx)

	if ctx.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(ctx.Instance, ctx.Allocator)
		ctx.Instance = nil
	}
}
