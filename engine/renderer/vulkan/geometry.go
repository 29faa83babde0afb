package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/trigon/engine/math"
)

// TriangleVertices is the fixed triangle drawn every frame.
var TriangleVertices = []math.VertexColored2D{
	{Position: math.Vec2{X: 0.0, Y: -0.5}, Colour: math.Vec3{X: 1.0, Y: 0.0, Z: 0.0}},
	{Position: math.Vec2{X: 0.5, Y: 0.5}, Colour: math.Vec3{X: 0.0, Y: 1.0, Z: 0.0}},
	{Position: math.Vec2{X: -0.5, Y: 0.5}, Colour: math.Vec3{X: 0.0, Y: 0.0, Z: 1.0}},
}

var vertexStride = uint32(unsafe.Sizeof(math.VertexColored2D{}))

func vertexAttributes() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{
			// position
			Binding:  0,
			Location: 0,
			Format:   vk.FormatR32g32Sfloat,
			Offset:   uint32(unsafe.Offsetof(math.VertexColored2D{}.Position)),
		},
		{
			// colour
			Binding:  0,
			Location: 1,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(math.VertexColored2D{}.Colour)),
		},
	}
}

func vertexBytes(vertices []math.VertexColored2D) []byte {
	if len(vertices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), len(vertices)*int(vertexStride))
}

// GeometryUpload puts the vertices into a device local vertex buffer.
func GeometryUpload(context *VulkanContext, vertices []math.VertexColored2D) (*VulkanBuffer, error) {
	return BufferUploadDeviceLocal(context, vertexBytes(vertices), vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit))
}
