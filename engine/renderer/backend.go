package renderer

import "fmt"

type Extent struct {
	Width  uint32
	Height uint32
}

func (e Extent) IsZero() bool {
	return e.Width == 0 || e.Height == 0
}

func (e Extent) String() string {
	return fmt.Sprintf("%dx%d", e.Width, e.Height)
}

// SurfaceStatus is the outcome of an acquire or present call. Anything
// other than SurfaceOptimal means the presentation resources should be
// rebuilt.
type SurfaceStatus uint8

const (
	SurfaceOptimal SurfaceStatus = iota
	// The image is usable but no longer matches the surface exactly.
	SurfaceSuboptimal
	// The presentation resources can no longer be used with the surface.
	SurfaceOutOfDate
)

func (s SurfaceStatus) String() string {
	switch s {
	case SurfaceOptimal:
		return "optimal"
	case SurfaceSuboptimal:
		return "suboptimal"
	case SurfaceOutOfDate:
		return "out of date"
	}
	return "unknown"
}

// FrameBackend is the GPU side of the frame loop. Slots are indexed
// 0..FramesInFlight()-1 and every call is made from the loop goroutine.
type FrameBackend interface {
	FramesInFlight() uint32
	// WaitForSlot blocks until the previous submission of the slot finished.
	WaitForSlot(slot uint32) error
	AcquireImage(slot uint32) (uint32, SurfaceStatus, error)
	WriteUniforms(slot uint32, ubo UniformBufferObject) error
	// Record resets the slot command buffer and records the draw pass
	// against the given image.
	Record(slot, imageIndex uint32) error
	// Submit resets the slot fence and submits its command buffer.
	Submit(slot, imageIndex uint32) error
	Present(slot, imageIndex uint32) (SurfaceStatus, error)
	WaitIdle() error
	// RecreatePresentation rebuilds the swapchain and everything derived
	// from it. Callers wait for the device to go idle first.
	RecreatePresentation(hint Extent) error
	// RecreatePipeline reloads the shader program. On failure the previous
	// pipeline stays in use.
	RecreatePipeline() error
	Extent() Extent
}

// SurfaceSizer reports the current drawable size in pixels.
type SurfaceSizer interface {
	FramebufferSize() (uint32, uint32)
}
