package renderer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend simulates a GPU where a submission completes when its slot
// is waited on or the device goes idle.
type fakeBackend struct {
	t      *testing.T
	frames uint32
	extent Extent

	inFlight       []bool
	outstanding    int
	maxOutstanding int

	// acquire results consumed in order, then SurfaceOptimal
	acquireStatus []SurfaceStatus
	presentStatus []SurfaceStatus

	calls        []string
	uniformSlots []uint32
	presented    []uint32
	recreated    []Extent
	pipelineErr  error
	pipelines    int
	idleWaits    int
	nextImage    uint32
	imageCount   uint32
}

func newFakeBackend(t *testing.T, frames uint32) *fakeBackend {
	return &fakeBackend{
		t:          t,
		frames:     frames,
		extent:     Extent{Width: 800, Height: 600},
		inFlight:   make([]bool, frames),
		imageCount: 3,
	}
}

func (f *fakeBackend) FramesInFlight() uint32 { return f.frames }

func (f *fakeBackend) WaitForSlot(slot uint32) error {
	f.calls = append(f.calls, "wait")
	if f.inFlight[slot] {
		f.inFlight[slot] = false
		f.outstanding--
	}
	return nil
}

func (f *fakeBackend) AcquireImage(slot uint32) (uint32, SurfaceStatus, error) {
	f.calls = append(f.calls, "acquire")
	status := SurfaceOptimal
	if len(f.acquireStatus) > 0 {
		status, f.acquireStatus = f.acquireStatus[0], f.acquireStatus[1:]
	}
	idx := f.nextImage
	f.nextImage = (f.nextImage + 1) % f.imageCount
	return idx, status, nil
}

func (f *fakeBackend) WriteUniforms(slot uint32, ubo UniformBufferObject) error {
	f.calls = append(f.calls, "uniforms")
	f.uniformSlots = append(f.uniformSlots, slot)
	return nil
}

func (f *fakeBackend) Record(slot, imageIndex uint32) error {
	f.calls = append(f.calls, "record")
	return nil
}

func (f *fakeBackend) Submit(slot, imageIndex uint32) error {
	f.calls = append(f.calls, "submit")
	require.False(f.t, f.inFlight[slot], "slot %d submitted twice without a wait", slot)
	f.inFlight[slot] = true
	f.outstanding++
	if f.outstanding > f.maxOutstanding {
		f.maxOutstanding = f.outstanding
	}
	return nil
}

func (f *fakeBackend) Present(slot, imageIndex uint32) (SurfaceStatus, error) {
	f.calls = append(f.calls, "present")
	f.presented = append(f.presented, imageIndex)
	status := SurfaceOptimal
	if len(f.presentStatus) > 0 {
		status, f.presentStatus = f.presentStatus[0], f.presentStatus[1:]
	}
	return status, nil
}

func (f *fakeBackend) WaitIdle() error {
	f.idleWaits++
	for i := range f.inFlight {
		f.inFlight[i] = false
	}
	f.outstanding = 0
	return nil
}

func (f *fakeBackend) RecreatePresentation(hint Extent) error {
	f.calls = append(f.calls, "recreate")
	require.Zero(f.t, f.outstanding, "presentation rebuilt with work in flight")
	f.recreated = append(f.recreated, hint)
	f.extent = hint
	return nil
}

func (f *fakeBackend) RecreatePipeline() error {
	f.calls = append(f.calls, "pipeline")
	if f.pipelineErr != nil {
		return f.pipelineErr
	}
	f.pipelines++
	return nil
}

func (f *fakeBackend) Extent() Extent { return f.extent }

type fakeSizer struct {
	width, height uint32
}

func (s *fakeSizer) FramebufferSize() (uint32, uint32) { return s.width, s.height }

func newTestRenderer(t *testing.T, frames uint32) (*Renderer, *fakeBackend, *fakeSizer) {
	t.Helper()
	backend := newFakeBackend(t, frames)
	sizer := &fakeSizer{width: 800, height: 600}
	r, err := New(backend, sizer)
	require.NoError(t, err)
	return r, backend, sizer
}

func TestNewRequiresFrames(t *testing.T) {
	_, err := New(newFakeBackend(t, 0), nil)
	require.Error(t, err)
}

func TestOutstandingSubmissionsBounded(t *testing.T) {
	for _, n := range []uint32{1, 2, 3} {
		r, backend, _ := newTestRenderer(t, n)
		for i := 0; i < 10; i++ {
			require.NoError(t, r.DrawFrame(float64(i)/60))
			require.LessOrEqual(t, backend.outstanding, int(n))
		}
		assert.Equal(t, int(n), backend.maxOutstanding, "frames in flight %d", n)
		assert.Equal(t, uint64(10), r.FrameCount())
	}
}

func TestFrameCycleOrder(t *testing.T) {
	r, backend, _ := newTestRenderer(t, 2)
	require.NoError(t, r.DrawFrame(0))

	require.Equal(t, []string{"wait", "acquire", "uniforms", "record", "submit", "present"}, backend.calls)
	assert.Equal(t, FrameSubmitted, r.SlotState(0))
	assert.Equal(t, FrameIdle, r.SlotState(1))
}

func TestUniformsWrittenToCurrentSlot(t *testing.T) {
	r, backend, _ := newTestRenderer(t, 2)
	for i := 0; i < 5; i++ {
		require.NoError(t, r.DrawFrame(0))
	}
	require.Equal(t, []uint32{0, 1, 0, 1, 0}, backend.uniformSlots)
}

func TestStaleAcquireAbandonsFrame(t *testing.T) {
	r, backend, sizer := newTestRenderer(t, 2)
	require.NoError(t, r.DrawFrame(0))

	sizer.width, sizer.height = 1024, 768
	backend.acquireStatus = []SurfaceStatus{SurfaceOutOfDate}
	backend.calls = nil

	// frame K
	require.NoError(t, r.DrawFrame(0))
	assert.Equal(t, []string{"wait", "acquire", "recreate"}, backend.calls)
	assert.Len(t, backend.presented, 1)
	assert.Equal(t, uint64(1), r.FrameCount())
	assert.Equal(t, []Extent{{Width: 1024, Height: 768}}, backend.recreated)

	// frame K+1 uses the same slot against the rebuilt resources
	backend.calls = nil
	require.NoError(t, r.DrawFrame(0))
	assert.Equal(t, []string{"wait", "acquire", "uniforms", "record", "submit", "present"}, backend.calls)
	assert.Equal(t, []uint32{0, 1}, backend.uniformSlots)
	assert.Equal(t, uint64(2), r.FrameCount())
	assert.Equal(t, Extent{Width: 1024, Height: 768}, backend.Extent())
}

func TestResizeNotificationsCoalesce(t *testing.T) {
	r, backend, sizer := newTestRenderer(t, 2)

	r.Resized(640, 480)
	r.Resized(1280, 720)
	sizer.width, sizer.height = 1280, 720

	require.NoError(t, r.DrawFrame(0))
	require.NoError(t, r.DrawFrame(0))

	assert.Equal(t, []Extent{{Width: 1280, Height: 720}}, backend.recreated)
	assert.Equal(t, uint64(1), r.Rebuilds())
	assert.Equal(t, uint64(2), r.FrameCount())
}

func TestResizeRequeriesSurface(t *testing.T) {
	r, backend, sizer := newTestRenderer(t, 2)

	sizer.width, sizer.height = 1024, 768
	r.Resized(640, 480)
	require.NoError(t, r.DrawFrame(0))

	assert.Equal(t, []Extent{{Width: 1024, Height: 768}}, backend.recreated)
}

func TestResizeFallsBackToNotifiedSize(t *testing.T) {
	r, backend, sizer := newTestRenderer(t, 2)

	sizer.width, sizer.height = 0, 0
	r.Resized(640, 480)
	require.NoError(t, r.DrawFrame(0))

	assert.Equal(t, []Extent{{Width: 640, Height: 480}}, backend.recreated)
}

func TestMinimizedSkipsFrames(t *testing.T) {
	r, backend, sizer := newTestRenderer(t, 2)

	sizer.width, sizer.height = 0, 0
	r.Resized(0, 0)
	require.NoError(t, r.DrawFrame(0))
	require.NoError(t, r.DrawFrame(0))
	assert.Empty(t, backend.recreated)
	assert.Empty(t, backend.presented)
	assert.Equal(t, uint64(0), r.FrameCount())

	sizer.width, sizer.height = 800, 600
	require.NoError(t, r.DrawFrame(0))
	assert.Equal(t, []Extent{{Width: 800, Height: 600}}, backend.recreated)
	assert.Len(t, backend.presented, 1)
}

func TestDegradedResultsRebuildAfterPresent(t *testing.T) {
	r, backend, _ := newTestRenderer(t, 2)

	backend.acquireStatus = []SurfaceStatus{SurfaceSuboptimal}
	require.NoError(t, r.DrawFrame(0))
	assert.Equal(t, []string{"wait", "acquire", "uniforms", "record", "submit", "present", "recreate"}, backend.calls)
	assert.Equal(t, uint64(1), r.FrameCount())

	backend.calls = nil
	backend.presentStatus = []SurfaceStatus{SurfaceOutOfDate}
	require.NoError(t, r.DrawFrame(0))
	assert.Equal(t, "recreate", backend.calls[len(backend.calls)-1])
	assert.Equal(t, uint64(2), r.Rebuilds())
}

func TestRebuildIsIdempotent(t *testing.T) {
	r, backend, _ := newTestRenderer(t, 2)

	r.Resized(800, 600)
	require.NoError(t, r.DrawFrame(0))
	first := backend.Extent()

	r.Resized(800, 600)
	require.NoError(t, r.DrawFrame(0))

	assert.Equal(t, first, backend.Extent())
	assert.Equal(t, []Extent{first, first}, backend.recreated)
}

func TestPipelineReload(t *testing.T) {
	r, backend, _ := newTestRenderer(t, 2)
	require.NoError(t, r.DrawFrame(0))

	r.RequestPipelineReload()
	backend.calls = nil
	require.NoError(t, r.DrawFrame(0))
	assert.Equal(t, "pipeline", backend.calls[0])
	assert.Equal(t, 1, backend.pipelines)

	// A failing reload keeps rendering with the old pipeline.
	backend.pipelineErr = errors.New("bad shader")
	r.RequestPipelineReload()
	require.NoError(t, r.DrawFrame(0))
	assert.Equal(t, 1, backend.pipelines)
	assert.Equal(t, uint64(3), r.FrameCount())
}

type failingBackend struct {
	*fakeBackend
}

func (f *failingBackend) Submit(slot, imageIndex uint32) error {
	return errors.New("device lost")
}

func TestSubmitErrorIsFatal(t *testing.T) {
	r, err := New(&failingBackend{newFakeBackend(t, 2)}, nil)
	require.NoError(t, err)
	require.Error(t, r.DrawFrame(0))
	assert.Equal(t, FrameRecorded, r.SlotState(0))
}

func TestRebuildWaitsForIdleOnce(t *testing.T) {
	r, backend, _ := newTestRenderer(t, 2)
	require.NoError(t, r.DrawFrame(0))
	require.Zero(t, backend.idleWaits)

	r.Resized(1024, 768)
	require.NoError(t, r.DrawFrame(0))
	assert.Equal(t, 1, backend.idleWaits)

	backend.acquireStatus = []SurfaceStatus{SurfaceOutOfDate}
	require.NoError(t, r.DrawFrame(0))
	assert.Equal(t, 2, backend.idleWaits)
	assert.Equal(t, uint64(2), r.Rebuilds())
}
