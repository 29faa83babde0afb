package loaders

import (
	"fmt"

	"github.com/spaghettifunk/trigon/engine/core"
)

// SPIR-V modules start with this magic word.
const SpirvMagicNumber uint32 = 0x07230203

// Magic, version, generator, bound and schema.
const SpirvHeaderWords = 5

type ShaderLoader struct {
	binary BinaryLoader
}

// Load reads a compiled SPIR-V module and checks its header.
func (sl *ShaderLoader) Load(path string) (*Resource, error) {
	res, err := sl.binary.Load(path)
	if err != nil {
		return nil, err
	}
	if len(res.Data) == 0 || res.Data[0] != SpirvMagicNumber {
		return nil, fmt.Errorf("%s is not a SPIR-V module", path)
	}
	if len(res.Data) < SpirvHeaderWords {
		return nil, fmt.Errorf("%w: %s has %d words, shorter than the SPIR-V header", core.ErrInvalidShaderCode, path, len(res.Data))
	}
	res.Type = ResourceTypeShader
	return res, nil
}

func (sl *ShaderLoader) Unload(r *Resource) error {
	return sl.binary.Unload(r)
}
