package renderer

import (
	"fmt"
	"testing"

	"github.com/spaghettifunk/trigon/engine/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEncoder struct {
	ops []string
}

func (e *recordingEncoder) BeginRenderPass(area Rect, clear [4]float32) {
	e.ops = append(e.ops, fmt.Sprintf("begin %dx%d", area.Width, area.Height))
}
func (e *recordingEncoder) BindPipeline() { e.ops = append(e.ops, "pipeline") }
func (e *recordingEncoder) SetViewport(v Viewport) {
	e.ops = append(e.ops, fmt.Sprintf("viewport %.0fx%.0f", v.Width, v.Height))
}
func (e *recordingEncoder) SetScissor(s Rect) {
	e.ops = append(e.ops, fmt.Sprintf("scissor %dx%d", s.Width, s.Height))
}
func (e *recordingEncoder) BindVertexBuffer()  { e.ops = append(e.ops, "vertices") }
func (e *recordingEncoder) BindDescriptorSet() { e.ops = append(e.ops, "descriptor") }
func (e *recordingEncoder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	e.ops = append(e.ops, fmt.Sprintf("draw %d %d %d %d", vertexCount, instanceCount, firstVertex, firstInstance))
}
func (e *recordingEncoder) EndRenderPass() { e.ops = append(e.ops, "end") }

func TestRecordDrawPass(t *testing.T) {
	enc := &recordingEncoder{}
	RecordDrawPass(enc, Extent{Width: 1024, Height: 768}, 3)

	require.Equal(t, []string{
		"begin 1024x768",
		"pipeline",
		"viewport 1024x768",
		"scissor 1024x768",
		"vertices",
		"descriptor",
		"draw 3 1 0 0",
		"end",
	}, enc.ops)
}

func TestComputeUniforms(t *testing.T) {
	ubo := ComputeUniforms(1, Extent{Width: 800, Height: 600})

	// One second is a quarter turn.
	p := ubo.Model.TransformPoint(math.NewVec3(1, 0, 0))
	assert.True(t, p.Compare(math.NewVec3(0, 1, 0), 1e-5), "got %+v", p)

	assert.Less(t, ubo.Projection.Data[5], float32(0))
	assert.InDelta(t, -ubo.Projection.Data[5]/ubo.Projection.Data[0], 800.0/600.0, 1e-5)

	// No extent yet falls back to a square aspect.
	square := ComputeUniforms(0, Extent{})
	assert.InDelta(t, -square.Projection.Data[5], square.Projection.Data[0], 1e-5)

	assert.Equal(t, uint64(3*64), UniformBufferObjectSize)
}
