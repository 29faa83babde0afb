package renderer

type Viewport struct {
	X, Y          float32
	Width, Height float32
	MinDepth      float32
	MaxDepth      float32
}

type Rect struct {
	X, Y          int32
	Width, Height uint32
}

// CommandEncoder records into a command buffer that is already bound to
// one frame slot and its target image.
type CommandEncoder interface {
	BeginRenderPass(renderArea Rect, clearColor [4]float32)
	BindPipeline()
	SetViewport(viewport Viewport)
	SetScissor(scissor Rect)
	BindVertexBuffer()
	BindDescriptorSet()
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	EndRenderPass()
}

var ClearColor = [4]float32{0, 0, 0, 1}

// RecordDrawPass emits the single draw pass of a frame. Viewport and
// scissor are dynamic state and always cover the full extent.
func RecordDrawPass(enc CommandEncoder, extent Extent, vertexCount uint32) {
	area := Rect{Width: extent.Width, Height: extent.Height}

	enc.BeginRenderPass(area, ClearColor)
	enc.BindPipeline()
	enc.SetViewport(Viewport{
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	})
	enc.SetScissor(area)
	enc.BindVertexBuffer()
	enc.BindDescriptorSet()
	enc.Draw(vertexCount, 1, 0, 0)
	enc.EndRenderPass()
}
