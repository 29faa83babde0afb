package core

import (
	"errors"
)

var (
	ErrNoVulkanDevice         = errors.New("no devices which support Vulkan were found")
	ErrNoSuitableDevice       = errors.New("no physical device meets the rendering requirements")
	ErrNoSurfaceFormats       = errors.New("surface reports no formats")
	ErrNoPresentModes         = errors.New("surface reports no present modes")
	ErrValidationLayerMissing = errors.New("required validation layer is missing")
	ErrNoMemoryType           = errors.New("unable to find suitable memory type")
	ErrInvalidShaderCode      = errors.New("shader bytecode size is not a multiple of 4")
	ErrShaderNotFound         = errors.New("shader program not found")
	ErrInvalidConfig          = errors.New("invalid configuration")
)
