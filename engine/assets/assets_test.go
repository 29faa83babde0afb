package assets

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spaghettifunk/trigon/engine/assets/loaders"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeShader(t *testing.T, dir, name string, words ...uint32) {
	t.Helper()
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*4:], w)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), buf, 0o644))
}

// spirv returns a minimal module header followed by body.
func spirv(body ...uint32) []uint32 {
	return append([]uint32{loaders.SpirvMagicNumber, 0x00010000, 0, 1, 0}, body...)
}

func TestDetermineAssetType(t *testing.T) {
	assert.Equal(t, loaders.ResourceTypeShader, determineAssetType("shaders/triangle-vert.spv"))
	assert.Equal(t, loaders.ResourceTypeShader, determineAssetType("TRIANGLE-FRAG.SPV"))
	assert.Equal(t, loaders.ResourceTypeBinary, determineAssetType("blob.bin"))
	assert.Equal(t, loaders.ResourceTypeNone, determineAssetType("triangle.vert"))
}

func TestLoadShaderProgram(t *testing.T) {
	dir := t.TempDir()
	writeShader(t, dir, "triangle-vert.spv", spirv(1)...)
	writeShader(t, dir, "triangle-frag.spv", spirv(2)...)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "triangle.vert"), []byte("#version 450"), 0o644))

	am, err := NewAssetManager(false)
	require.NoError(t, err)
	require.NoError(t, am.Initialize(dir))
	defer am.Shutdown()

	program, err := am.LoadShaderProgram("triangle")
	require.NoError(t, err)
	require.Equal(t, "triangle", program.Name)
	require.Len(t, program.Stages, 2)

	assert.Equal(t, renderer.ShaderStageVertex, program.Stages[0].Stage)
	assert.Equal(t, "main", program.Stages[0].EntryPoint)
	assert.Equal(t, spirv(1), program.Stages[0].Code)
	assert.Equal(t, renderer.ShaderStageFragment, program.Stages[1].Stage)
	assert.Equal(t, spirv(2), program.Stages[1].Code)

	_, ok := am.LastLoaded("triangle.vert")
	assert.False(t, ok)
}

func TestLoadShaderProgramMissingStage(t *testing.T) {
	dir := t.TempDir()
	writeShader(t, dir, "triangle-vert.spv", spirv()...)

	am, err := NewAssetManager(false)
	require.NoError(t, err)
	require.NoError(t, am.Initialize(dir))
	defer am.Shutdown()

	_, err = am.LoadShaderProgram("triangle")
	require.ErrorIs(t, err, core.ErrShaderNotFound)
}

func TestLoadShaderProgramTruncated(t *testing.T) {
	dir := t.TempDir()
	writeShader(t, dir, "triangle-vert.spv", loaders.SpirvMagicNumber)
	writeShader(t, dir, "triangle-frag.spv", spirv(2)...)

	am, err := NewAssetManager(false)
	require.NoError(t, err)
	require.NoError(t, am.Initialize(dir))
	defer am.Shutdown()

	_, err = am.LoadShaderProgram("triangle")
	require.ErrorIs(t, err, core.ErrShaderNotFound)
	assert.ErrorContains(t, err, "SPIR-V header")
}

func TestInitializeMissingDir(t *testing.T) {
	am, err := NewAssetManager(false)
	require.NoError(t, err)
	require.Error(t, am.Initialize(filepath.Join(t.TempDir(), "nope")))
}

type shaderListener struct {
	fired atomic.Int32
	last  atomic.Pointer[core.AssetEvent]
}

func (l *shaderListener) onShadersChanged(ctx core.EventContext) bool {
	if ae, ok := ctx.Data.(*core.AssetEvent); ok {
		l.last.Store(ae)
		l.fired.Add(1)
	}
	return false
}

func watchDir(t *testing.T, settle time.Duration) (string, *AssetManager, *shaderListener) {
	t.Helper()
	require.True(t, core.EventSystemInitialize())
	t.Cleanup(func() { _ = core.EventSystemShutdown() })

	l := &shaderListener{}
	require.True(t, core.EventRegister(core.EVENT_CODE_SHADERS_CHANGED, l, l.onShadersChanged))

	dir := t.TempDir()
	am, err := NewAssetManager(true)
	require.NoError(t, err)
	am.settleDelay = settle
	require.NoError(t, am.Initialize(dir))
	require.NoError(t, am.Watch())
	return dir, am, l
}

func TestWatchFiresShadersChanged(t *testing.T) {
	dir, am, l := watchDir(t, 20*time.Millisecond)

	writeShader(t, dir, "triangle-frag.spv", spirv()...)

	require.Eventually(t, func() bool { return l.fired.Load() > 0 }, 5*time.Second, 10*time.Millisecond)
	_, ok := am.LastLoaded("triangle-frag.spv")
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "triangle-frag.spv"), l.last.Load().Path)

	require.NoError(t, am.Shutdown())
	require.NoError(t, am.Shutdown())
}

func TestWatchCoalescesChunkedWrites(t *testing.T) {
	dir, am, l := watchDir(t, 300*time.Millisecond)
	defer am.Shutdown()

	buf := make([]byte, 0, 4*len(spirv(1, 2, 3)))
	for _, w := range spirv(1, 2, 3) {
		buf = binary.LittleEndian.AppendUint32(buf, w)
	}

	f, err := os.Create(filepath.Join(dir, "triangle-vert.spv"))
	require.NoError(t, err)
	chunk := len(buf) / 4
	for i := 0; i < 4; i++ {
		end := (i + 1) * chunk
		if i == 3 {
			end = len(buf)
		}
		_, err := f.Write(buf[i*chunk : end])
		require.NoError(t, err)
		require.NoError(t, f.Sync())
		time.Sleep(20 * time.Millisecond)
	}
	require.NoError(t, f.Close())
	writeShader(t, dir, "triangle-frag.spv", spirv()...)

	require.Eventually(t, func() bool { return l.fired.Load() > 0 }, 5*time.Second, 10*time.Millisecond)
	// Nothing else arrives once the files are quiet.
	time.Sleep(600 * time.Millisecond)
	assert.Equal(t, int32(1), l.fired.Load())
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "triangle-vert.spv"),
		filepath.Join(dir, "triangle-frag.spv"),
	}, l.last.Load().Paths)
}

func TestNoEventsBeforeWatch(t *testing.T) {
	require.True(t, core.EventSystemInitialize())
	defer core.EventSystemShutdown()

	l := &shaderListener{}
	require.True(t, core.EventRegister(core.EVENT_CODE_SHADERS_CHANGED, l, l.onShadersChanged))

	dir := t.TempDir()
	am, err := NewAssetManager(true)
	require.NoError(t, err)
	am.settleDelay = 20 * time.Millisecond
	require.NoError(t, am.Initialize(dir))
	defer am.Shutdown()

	writeShader(t, dir, "triangle-vert.spv", spirv()...)
	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, l.fired.Load())

	require.NoError(t, am.Watch())
	writeShader(t, dir, "triangle-frag.spv", spirv()...)
	require.Eventually(t, func() bool { return l.fired.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
}

func TestWatchDisabled(t *testing.T) {
	am, err := NewAssetManager(false)
	require.NoError(t, err)
	require.NoError(t, am.Initialize(t.TempDir()))
	require.NoError(t, am.Watch())
	require.NoError(t, am.Shutdown())
}
