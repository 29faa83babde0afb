package loaders

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/stretchr/testify/require"
)

func writeWords(t *testing.T, name string, words ...uint32) string {
	t.Helper()
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*4:], w)
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	return path
}

func TestBytesToBytecode(t *testing.T) {
	words, err := bytesToBytecode([]byte{0x03, 0x02, 0x23, 0x07, 0xff, 0x00, 0x00, 0x00})
	require.NoError(t, err)
	require.Equal(t, []uint32{SpirvMagicNumber, 0xff}, words)

	_, err = bytesToBytecode([]byte{0x03, 0x02, 0x23})
	require.ErrorIs(t, err, core.ErrInvalidShaderCode)
}

func TestBinaryLoader(t *testing.T) {
	path := writeWords(t, "blob.bin", 1, 2, 3)

	bl := &BinaryLoader{}
	res, err := bl.Load(path)
	require.NoError(t, err)
	require.Equal(t, "blob.bin", res.Name)
	require.Equal(t, uint64(12), res.DataSize)
	require.Equal(t, []uint32{1, 2, 3}, res.Data)

	require.NoError(t, bl.Unload(res))
	require.Nil(t, res.Data)

	_, err = bl.Load(filepath.Join(t.TempDir(), "missing.bin"))
	require.Error(t, err)
}

func TestShaderLoaderChecksMagic(t *testing.T) {
	sl := &ShaderLoader{}

	res, err := sl.Load(writeWords(t, "ok-vert.spv", SpirvMagicNumber, 0x00010000, 0, 1, 0))
	require.NoError(t, err)
	require.Equal(t, ResourceTypeShader, res.Type)

	_, err = sl.Load(writeWords(t, "bad-vert.spv", 0xdeadbeef))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "odd-frag.spv")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3, 4, 5}, 0o644))
	_, err = sl.Load(path)
	require.ErrorIs(t, err, core.ErrInvalidShaderCode)
}

func TestShaderLoaderRejectsTruncatedHeader(t *testing.T) {
	sl := &ShaderLoader{}

	_, err := sl.Load(writeWords(t, "magic-vert.spv", SpirvMagicNumber))
	require.ErrorIs(t, err, core.ErrInvalidShaderCode)

	_, err = sl.Load(writeWords(t, "short-frag.spv", SpirvMagicNumber, 0x00010000, 0, 1))
	require.ErrorIs(t, err, core.ErrInvalidShaderCode)
}
