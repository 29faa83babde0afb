package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/spaghettifunk/trigon/engine/core"
)

// Renderer drives the acquire, record, submit and present cycle over a
// fixed ring of frame slots and rebuilds the presentation resources when
// the surface changes.
type Renderer struct {
	backend FrameBackend
	sizer   SurfaceSizer

	slots        []frameSlot
	frameCounter uint64

	// resize and reload requests may come from event handlers
	mutex         sync.Mutex
	resizePending bool
	pendingExtent Extent
	reloadPending bool

	rebuilds uint64
}

func New(backend FrameBackend, sizer SurfaceSizer) (*Renderer, error) {
	n := backend.FramesInFlight()
	if n == 0 {
		return nil, errors.New("renderer needs at least one frame in flight")
	}
	return &Renderer{
		backend: backend,
		sizer:   sizer,
		slots:   make([]frameSlot, n),
	}, nil
}

// Resized records a new surface size. The rebuild happens at the start of
// the next frame and only the most recent size is kept.
func (r *Renderer) Resized(width, height uint32) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.resizePending = true
	r.pendingExtent = Extent{Width: width, Height: height}
}

// RequestPipelineReload rebuilds the pipeline at the start of the next frame.
func (r *Renderer) RequestPipelineReload() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.reloadPending = true
}

// FrameCount is the number of frames presented so far.
func (r *Renderer) FrameCount() uint64 {
	return r.frameCounter
}

// Rebuilds is the number of presentation rebuilds performed so far.
func (r *Renderer) Rebuilds() uint64 {
	return r.rebuilds
}

func (r *Renderer) SlotState(slot uint32) FrameState {
	return r.slots[slot].state
}

// DrawFrame renders one frame. elapsed is the time in seconds since the
// loop started. Stale presentation results are handled here and never
// returned as errors.
func (r *Renderer) DrawFrame(elapsed float64) error {
	ready, err := r.applyPending()
	if err != nil {
		return err
	}
	if !ready {
		return nil
	}

	slot := uint32(r.frameCounter % uint64(len(r.slots)))
	frame := &r.slots[slot]

	if err := r.backend.WaitForSlot(slot); err != nil {
		return fmt.Errorf("waiting for frame slot %d: %w", slot, err)
	}
	frame.state = FrameIdle

	imageIndex, acquireStatus, err := r.backend.AcquireImage(slot)
	if err != nil {
		return fmt.Errorf("acquiring swapchain image: %w", err)
	}
	if acquireStatus == SurfaceOutOfDate {
		// Nothing was drawn; the slot is retried on the next frame.
		core.LogDebug("Swapchain out of date on acquire, rebuilding.")
		_, err := r.rebuildPresentation(Extent{})
		return err
	}
	frame.state = FrameAcquired
	frame.imageIndex = imageIndex

	if err := r.backend.WriteUniforms(slot, ComputeUniforms(elapsed, r.backend.Extent())); err != nil {
		return fmt.Errorf("writing uniforms: %w", err)
	}

	if err := r.backend.Record(slot, imageIndex); err != nil {
		return fmt.Errorf("recording frame slot %d: %w", slot, err)
	}
	frame.state = FrameRecorded

	if err := r.backend.Submit(slot, imageIndex); err != nil {
		return fmt.Errorf("submitting frame slot %d: %w", slot, err)
	}
	frame.state = FrameSubmitted

	presentStatus, err := r.backend.Present(slot, imageIndex)
	if err != nil {
		return fmt.Errorf("presenting image %d: %w", imageIndex, err)
	}
	r.frameCounter++

	if acquireStatus != SurfaceOptimal || presentStatus != SurfaceOptimal {
		core.LogDebug("Swapchain %s after present, rebuilding.", worst(acquireStatus, presentStatus))
		if _, err := r.rebuildPresentation(Extent{}); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown waits for all submitted frames to finish.
func (r *Renderer) Shutdown() error {
	return r.backend.WaitIdle()
}

// applyPending performs any requested rebuilds. It returns false when the
// surface has no area and the frame must be skipped.
func (r *Renderer) applyPending() (bool, error) {
	r.mutex.Lock()
	resize, notified, reload := r.resizePending, r.pendingExtent, r.reloadPending
	r.reloadPending = false
	r.mutex.Unlock()

	if !resize && !reload {
		return true, nil
	}

	// RecreatePipeline waits for the device itself.
	if reload {
		if err := r.backend.RecreatePipeline(); err != nil {
			core.LogError("Shader reload failed, keeping the current pipeline: %s", err.Error())
		} else {
			core.LogInfo("Pipeline rebuilt.")
		}
	}

	if resize {
		rebuilt, err := r.rebuildPresentation(notified)
		if err != nil || !rebuilt {
			return false, err
		}
	}
	return true, nil
}

// rebuildPresentation waits for the device and recreates the presentation
// resources. The drawable size is queried again here since resize
// notifications may be stale; notified is used only when the query reports
// no area. A zero size leaves the rebuild pending.
func (r *Renderer) rebuildPresentation(notified Extent) (bool, error) {
	hint := notified
	if r.sizer != nil {
		w, h := r.sizer.FramebufferSize()
		if current := (Extent{Width: w, Height: h}); !current.IsZero() {
			hint = current
		}
	}

	r.mutex.Lock()
	if hint.IsZero() {
		// Minimized. Keep the request around until the surface has an area.
		r.resizePending = true
		r.pendingExtent = hint
		r.mutex.Unlock()
		return false, nil
	}
	r.resizePending = false
	r.mutex.Unlock()

	if err := r.backend.WaitIdle(); err != nil {
		return false, fmt.Errorf("waiting for device idle: %w", err)
	}
	r.resetSlots()

	if err := r.backend.RecreatePresentation(hint); err != nil {
		return false, fmt.Errorf("recreating presentation resources: %w", err)
	}
	r.rebuilds++
	core.LogDebug("Presentation resources rebuilt at %s.", r.backend.Extent())
	return true, nil
}

func (r *Renderer) resetSlots() {
	for i := range r.slots {
		r.slots[i].state = FrameIdle
	}
}

func worst(a, b SurfaceStatus) SurfaceStatus {
	if a > b {
		return a
	}
	return b
}
