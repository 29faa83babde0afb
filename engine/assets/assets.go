package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/trigon/engine/assets/loaders"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer"
)

// Shader programs are stored as <program>-vert.spv and <program>-frag.spv.
const (
	vertexShaderSuffix   = "-vert.spv"
	fragmentShaderSuffix = "-frag.spv"
	shaderEntryPoint     = "main"
)

// Compilers write modules in several chunks. A change is reported once the
// file has been quiet for this long.
const defaultSettleDelay = 100 * time.Millisecond

type AssetInfo struct {
	Path       string
	Type       loaders.ResourceType
	LastLoaded time.Time
}

type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	loaders map[loaders.ResourceType]Loader

	mutex sync.RWMutex

	watch       bool
	settleDelay time.Duration
	done        chan struct{}
	wg       sync.WaitGroup
	fsnotify *fsnotify.Watcher
	isClosed bool
}

// NewAssetManager creates a manager. With watch set, changes to compiled
// shaders are reported as EVENT_CODE_SHADERS_CHANGED.
func NewAssetManager(watch bool) (*AssetManager, error) {
	am := &AssetManager{
		assets:  make(map[string]AssetInfo),
		loaders: make(map[loaders.ResourceType]Loader),
		watch:       watch,
		settleDelay: defaultSettleDelay,
		done:        make(chan struct{}),
	}
	if watch {
		fsWatch, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, err
		}
		am.fsnotify = fsWatch
	}
	return am, nil
}

func (am *AssetManager) Initialize(assetsDir string) error {
	am.root = filepath.Clean(assetsDir)

	// Register loaders
	am.registerLoader(loaders.ResourceTypeBinary, &loaders.BinaryLoader{})
	am.registerLoader(loaders.ResourceTypeShader, &loaders.ShaderLoader{})

	return am.indexDir(am.root)
}

// Watch starts reporting shader changes under the asset root. It does
// nothing when the manager was created without watching.
func (am *AssetManager) Watch() error {
	if !am.watch {
		return nil
	}
	if err := am.add(am.root); err != nil {
		return err
	}
	am.wg.Add(1)
	go am.start()
	core.LogDebug("Watching `%s` for shader changes.", am.root)
	return nil
}

func (am *AssetManager) Shutdown() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	am.mutex.Unlock()

	close(am.done)
	am.wg.Wait()
	if am.fsnotify != nil {
		return am.fsnotify.Close()
	}
	return nil
}

// Add starts watching the named directory (non-recursively).
func (am *AssetManager) add(name string) error {
	if am.isClosed {
		return errors.New("asset watcher already closed")
	}
	return am.fsnotify.Add(name)
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType loaders.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// LoadAsset loads a file relative to the asset root with the loader
// registered for its type.
func (am *AssetManager) LoadAsset(filename string) (*loaders.Resource, error) {
	path := filepath.Join(am.root, filename)

	am.mutex.Lock()
	asset, exists := am.assets[path]
	if exists {
		// Update the loaded time
		asset.LastLoaded = time.Now()
		am.assets[path] = asset
	}
	am.mutex.Unlock()
	if !exists {
		return nil, fmt.Errorf("asset not found: %s", path)
	}

	loader, loaderExists := am.loaders[asset.Type]
	if !loaderExists {
		return nil, fmt.Errorf("no loader registered for asset type: %d", asset.Type)
	}
	return loader.Load(path)
}

// LoadShaderProgram reads the vertex and fragment stages of the named
// program from the asset root.
func (am *AssetManager) LoadShaderProgram(name string) (*renderer.ShaderProgram, error) {
	program := &renderer.ShaderProgram{Name: name}
	for _, stage := range []struct {
		stage  renderer.ShaderStage
		suffix string
	}{
		{renderer.ShaderStageVertex, vertexShaderSuffix},
		{renderer.ShaderStageFragment, fragmentShaderSuffix},
	} {
		res, err := am.LoadAsset(name + stage.suffix)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %s", core.ErrShaderNotFound, name, err.Error())
		}
		if res.Type != loaders.ResourceTypeShader {
			return nil, fmt.Errorf("%s is not a compiled shader", res.FullPath)
		}
		program.Stages = append(program.Stages, renderer.ShaderStageCode{
			Stage:      stage.stage,
			EntryPoint: shaderEntryPoint,
			Code:       res.Data,
		})
	}
	core.LogDebug("Loaded shader program `%s`.", name)
	return program, nil
}

// LastLoaded reports when the asset was last indexed or loaded.
func (am *AssetManager) LastLoaded(filename string) (time.Time, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	asset, ok := am.assets[filepath.Join(am.root, filename)]
	return asset.LastLoaded, ok
}

func (am *AssetManager) start() {
	defer am.wg.Done()

	settled := time.NewTimer(am.settleDelay)
	settled.Stop()
	defer settled.Stop()

	// shaders written since the last report, in order of first change
	var changed []string

	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			path, isShader := am.handleWatchEvent(e)
			if !isShader {
				continue
			}
			if !slices.Contains(changed, path) {
				changed = append(changed, path)
			}
			settled.Reset(am.settleDelay)

		case <-settled.C:
			am.reportShaderChanges(changed)
			changed = nil

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(err.Error())

		case <-am.done:
			return
		}
	}
}

// handleWatchEvent updates the index and returns the path when a compiled
// shader was created or written.
func (am *AssetManager) handleWatchEvent(e fsnotify.Event) (string, bool) {
	path := filepath.Clean(e.Name)
	switch {
	case e.Op&(fsnotify.Create|fsnotify.Write) != 0:
		if !am.handleFileEvent(path) {
			return "", false
		}
	case e.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		am.removeAsset(path)
		return "", false
	default:
		return "", false
	}
	return path, determineAssetType(path) == loaders.ResourceTypeShader
}

func (am *AssetManager) reportShaderChanges(paths []string) {
	if len(paths) == 0 {
		return
	}
	for _, path := range paths {
		core.LogInfo("Shader `%s` changed.", path)
	}
	core.EventFire(core.EventContext{
		Type: core.EVENT_CODE_SHADERS_CHANGED,
		Data: &core.AssetEvent{Path: paths[len(paths)-1], Paths: paths},
	})
}

// indexDir adds all known files in the directory to the asset index.
func (am *AssetManager) indexDir(path string) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		am.handleFileEvent(filepath.Join(path, entry.Name()))
	}
	return nil
}

// Handle the creation or modification of a file. Returns false when the
// file is not an asset.
func (am *AssetManager) handleFileEvent(path string) bool {
	assetType := determineAssetType(path)
	if assetType == loaders.ResourceTypeNone {
		return false
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[path] = AssetInfo{
		Path:       path,
		Type:       assetType,
		LastLoaded: time.Now(),
	}
	return true
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, path)
}

func determineAssetType(path string) loaders.ResourceType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".spv":
		return loaders.ResourceTypeShader
	case ".bin":
		return loaders.ResourceTypeBinary
	default:
		return loaders.ResourceTypeNone
	}
}
