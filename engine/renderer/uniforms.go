package renderer

import (
	"unsafe"

	"github.com/spaghettifunk/trigon/engine/math"
)

const (
	// Degrees per second around the Z axis.
	rotationSpeed = 90.0
	fieldOfView   = 45.0
	nearClip      = 0.1
	farClip       = 10.0
)

// UniformBufferObject matches the uniform block of the triangle vertex
// shader (binding 0).
type UniformBufferObject struct {
	Model      math.Mat4
	View       math.Mat4
	Projection math.Mat4
}

var UniformBufferObjectSize = uint64(unsafe.Sizeof(UniformBufferObject{}))

// ComputeUniforms returns the transforms for the given elapsed time in
// seconds and the current swapchain extent.
func ComputeUniforms(elapsed float64, extent Extent) UniformBufferObject {
	aspect := float32(1)
	if !extent.IsZero() {
		aspect = float32(extent.Width) / float32(extent.Height)
	}

	proj := math.NewMat4Perspective(math.DegToRad(fieldOfView), aspect, nearClip, farClip)
	// Vulkan clip space has Y pointing down.
	proj.Data[5] *= -1

	return UniformBufferObject{
		Model: math.NewMat4EulerZ(math.DegToRad(float32(elapsed * rotationSpeed))),
		View: math.NewMat4LookAt(
			math.NewVec3(2, 2, 2),
			math.NewVec3Zero(),
			math.NewVec3(0, 0, 1),
		),
		Projection: proj,
	}
}
