package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/math"
)

type VulkanSwapchain struct {
	ImageFormat vk.SurfaceFormat
	PresentMode vk.PresentMode
	Extent      vk.Extent2D
	Handle      vk.Swapchain
	ImageCount  uint32
	Images      []vk.Image
	Views       []vk.ImageView

	// framebuffers used for on-screen rendering.
	Framebuffers []*VulkanFramebuffer
}

type VulkanSwapchainSupportInfo struct {
	Capabilities     vk.SurfaceCapabilities
	FormatCount      uint32
	Formats          []vk.SurfaceFormat
	PresentModeCount uint32
	PresentModes     []vk.PresentMode
}

// SwapchainDescription is the set of parameters derived from the surface
// support. Creating twice from the same support and hint yields the same
// description.
type SwapchainDescription struct {
	Format      vk.SurfaceFormat
	PresentMode vk.PresentMode
	Extent      vk.Extent2D
	ImageCount  uint32
}

// ChooseSurfaceFormat prefers 8-bit BGRA sRGB and otherwise takes the first
// reported format.
func ChooseSurfaceFormat(formats []vk.SurfaceFormat) (vk.SurfaceFormat, error) {
	if len(formats) == 0 {
		return vk.SurfaceFormat{}, core.ErrNoSurfaceFormats
	}
	for _, format := range formats {
		if format.Format == vk.FormatB8g8r8a8Srgb && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format, nil
		}
	}
	return formats[0], nil
}

// ChoosePresentMode prefers mailbox. FIFO is always available.
func ChoosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, mode := range modes {
		if mode == vk.PresentModeMailbox {
			return mode
		}
	}
	return vk.PresentModeFifo
}

// ChooseExtent uses the surface extent as is unless the surface lets the
// swapchain decide, in which case the hint is clamped to the allowed range.
func ChooseExtent(capabilities *vk.SurfaceCapabilities, hint vk.Extent2D) vk.Extent2D {
	if capabilities.CurrentExtent.Width != surfaceExtentUndefined {
		return capabilities.CurrentExtent
	}
	min := capabilities.MinImageExtent
	max := capabilities.MaxImageExtent
	return vk.Extent2D{
		Width:  math.Clamp(hint.Width, min.Width, max.Width),
		Height: math.Clamp(hint.Height, min.Height, max.Height),
	}
}

// ChooseImageCount asks for one more than the minimum. A maximum of 0 means
// there is no limit.
func ChooseImageCount(capabilities *vk.SurfaceCapabilities) uint32 {
	return math.ClampMax(capabilities.MinImageCount+1, capabilities.MaxImageCount)
}

func DescribeSwapchain(support *VulkanSwapchainSupportInfo, hint vk.Extent2D) (SwapchainDescription, error) {
	format, err := ChooseSurfaceFormat(support.Formats)
	if err != nil {
		return SwapchainDescription{}, err
	}
	if len(support.PresentModes) == 0 {
		return SwapchainDescription{}, core.ErrNoPresentModes
	}
	return SwapchainDescription{
		Format:      format,
		PresentMode: ChoosePresentMode(support.PresentModes),
		Extent:      ChooseExtent(&support.Capabilities, hint),
		ImageCount:  ChooseImageCount(&support.Capabilities),
	}, nil
}

func SwapchainCreate(context *VulkanContext, width, height uint32) (*VulkanSwapchain, error) {
	// Capabilities change with the window, so always ask again.
	if err := DeviceQuerySwapchainSupport(context.Device.PhysicalDevice, context.Surface, &context.Device.SwapchainSupport); err != nil {
		return nil, err
	}
	desc, err := DescribeSwapchain(&context.Device.SwapchainSupport, vk.Extent2D{Width: width, Height: height})
	if err != nil {
		core.LogError("Swapchain cannot be created: %s", err.Error())
		return nil, err
	}

	swapchain := &VulkanSwapchain{
		ImageFormat: desc.Format,
		PresentMode: desc.PresentMode,
		Extent:      desc.Extent,
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    desc.ImageCount,
		ImageFormat:      desc.Format.Format,
		ImageColorSpace:  desc.Format.ColorSpace,
		ImageExtent:      desc.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     context.Device.SwapchainSupport.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      desc.PresentMode,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}

	// Setup the queue family indices
	if context.Device.GraphicsQueueIndex != context.Device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			context.Device.GraphicsQueueIndex,
			context.Device.PresentQueueIndex,
		}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	err = context.Locks.SafeCall(SwapchainManagement, func() error {
		if res := vk.CreateSwapchain(context.Device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &swapchain.Handle); res != vk.Success {
			return fmt.Errorf("failed to create swapchain: %w", vk.Error(res))
		}
		return nil
	})
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	// Images
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, nil); res != vk.Success {
		err := fmt.Errorf("failed to get swapchain images: %w", vk.Error(res))
		core.LogError(err.Error())
		return nil, err
	}
	swapchain.Images = make([]vk.Image, swapchain.ImageCount)
	swapchain.Views = make([]vk.ImageView, swapchain.ImageCount)
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, swapchain.Images); res != vk.Success {
		err := fmt.Errorf("failed to get swapchain images: %w", vk.Error(res))
		core.LogError(err.Error())
		return nil, err
	}

	// Views
	for i := 0; i < int(swapchain.ImageCount); i++ {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    swapchain.Images[i],
			ViewType: vk.ImageViewType2d,
			Format:   swapchain.ImageFormat.Format,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity,
				G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity,
				A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		}

		var view vk.ImageView
		if res := vk.CreateImageView(context.Device.LogicalDevice, &viewInfo, context.Allocator, &view); res != vk.Success {
			err := fmt.Errorf("failed to create image view: %w", vk.Error(res))
			core.LogError(err.Error())
			return nil, err
		}
		swapchain.Views[i] = view
	}

	core.LogInfo("Swapchain created: %d images, %dx%d.", swapchain.ImageCount, desc.Extent.Width, desc.Extent.Height)
	return swapchain, nil
}

// SwapchainDestroy releases the framebuffers, views and the swapchain. The
// device must be idle.
func (vs *VulkanSwapchain) SwapchainDestroy(context *VulkanContext) {
	for _, fb := range vs.Framebuffers {
		if fb != nil {
			fb.Destroy(context)
		}
	}
	vs.Framebuffers = nil

	// Only destroy the views, not the images, since those are owned by the swapchain and are thus
	// destroyed when it is.
	for i := range vs.Views {
		if vs.Views[i] != vk.NullImageView {
			vk.DestroyImageView(context.Device.LogicalDevice, vs.Views[i], context.Allocator)
		}
	}
	vs.Views = nil
	vs.Images = nil

	_ = context.Locks.SafeCall(SwapchainManagement, func() error {
		if vs.Handle != vk.NullSwapchain {
			vk.DestroySwapchain(context.Device.LogicalDevice, vs.Handle, context.Allocator)
			vs.Handle = vk.NullSwapchain
		}
		return nil
	})
}

// SwapchainAcquireNextImageIndex maps the two recoverable results onto a
// surface status. Any other failure is returned as an error.
func (vs *VulkanSwapchain) SwapchainAcquireNextImageIndex(context *VulkanContext, timeoutNS uint64, imageAvailableSemaphore vk.Semaphore, fence vk.Fence) (uint32, vk.Result, error) {
	var imageIndex uint32
	var result vk.Result
	_ = context.Locks.SafeCall(SwapchainManagement, func() error {
		result = vk.AcquireNextImage(context.Device.LogicalDevice, vs.Handle, timeoutNS, imageAvailableSemaphore, fence, &imageIndex)
		return nil
	})
	switch result {
	case vk.Success, vk.Suboptimal, vk.ErrorOutOfDate:
		return imageIndex, result, nil
	}
	err := fmt.Errorf("failed to acquire swapchain image: %w", vk.Error(result))
	core.LogError(err.Error())
	return 0, result, err
}

func (vs *VulkanSwapchain) SwapchainPresent(context *VulkanContext, presentQueue vk.Queue, renderCompleteSemaphore vk.Semaphore, presentImageIndex uint32) (vk.Result, error) {
	// Return the image to the swapchain for presentation.
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderCompleteSemaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{presentImageIndex},
	}

	var result vk.Result
	_ = context.Locks.SafeQueueCall(context.Device.PresentQueueIndex, func() error {
		result = vk.QueuePresent(presentQueue, &presentInfo)
		return nil
	})
	switch result {
	case vk.Success, vk.Suboptimal, vk.ErrorOutOfDate:
		return result, nil
	}
	err := fmt.Errorf("failed to present swapchain image: %w", vk.Error(result))
	core.LogError(err.Error())
	return result, err
}
