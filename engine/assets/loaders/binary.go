package loaders

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spaghettifunk/trigon/engine/core"
)

type ResourceType uint8

const (
	ResourceTypeNone ResourceType = iota
	ResourceTypeBinary
	ResourceTypeShader
)

// Resource is a file loaded from disk as little-endian 32-bit words.
type Resource struct {
	Name     string
	FullPath string
	Type     ResourceType
	// Size in bytes of the file on disk.
	DataSize uint64
	Data     []uint32
}

type BinaryLoader struct{}

func (bl *BinaryLoader) Load(path string) (*Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	words, err := bytesToBytecode(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		Type:     ResourceTypeBinary,
		DataSize: uint64(len(buf)),
		Data:     words,
	}, nil
}

func (bl *BinaryLoader) Unload(r *Resource) error {
	r.Data = nil
	r.DataSize = 0
	return nil
}

func bytesToBytecode(b []byte) ([]uint32, error) {
	if len(b)%4 != 0 {
		return nil, core.ErrInvalidShaderCode
	}
	byteCode := make([]uint32, len(b)/4)
	for i := range byteCode {
		byteCode[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return byteCode, nil
}
