package assets

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/lumen/engine/assets/loaders"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type AssetType int

const (
	AssetTypeNone AssetType = iota
	AssetTypeShader
	AssetTypeImage
	AssetTypeFont
)

const (
	materialsDir = "materials"
	fontsDir     = "fonts"
)

type AssetInfo struct {
	Path     string
	Type     AssetType
	Modified time.Time
}

/**
 * @brief Resolves asset paths from the configured roots, hands out the
 * typed loaders and, when watching, reports rebuilt shaders through the
 * event bus.
 */
type AssetManager struct {
	paths  core.ResourcePathConfig
	events *core.EventBus

	Images    *loaders.ImageLoader
	Shaders   *loaders.ShaderLoader
	Materials *loaders.MaterialLoader
	Fonts     *loaders.BitmapFontLoader

	mutex  sync.RWMutex
	assets map[string]AssetInfo

	fsnotify *fsnotify.Watcher
	done     chan struct{}
	stopped  sync.WaitGroup
	isClosed bool
}

func NewAssetManager(paths core.ResourcePathConfig, events *core.EventBus) *AssetManager {
	return &AssetManager{
		paths:     paths,
		events:    events,
		Images:    &loaders.ImageLoader{},
		Shaders:   &loaders.ShaderLoader{Root: paths.ShaderRoot},
		Materials: &loaders.MaterialLoader{Root: filepath.Join(paths.CommonRoot, materialsDir)},
		Fonts:     &loaders.BitmapFontLoader{},
		assets:    make(map[string]AssetInfo),
	}
}

// Watch starts reporting changes to compiled shaders under the shader root.
func (am *AssetManager) Watch() error {
	if am.fsnotify != nil {
		return nil
	}
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	am.fsnotify = fsWatch
	am.done = make(chan struct{})

	if err := am.watchRecursive(am.paths.ShaderRoot); err != nil {
		fsWatch.Close()
		am.fsnotify = nil
		return err
	}

	am.stopped.Add(1)
	go am.start()
	core.LogDebug("watching shaders in %s", am.paths.ShaderRoot)
	return nil
}

func (am *AssetManager) Shutdown() {
	if am.fsnotify == nil || am.isClosed {
		return
	}
	am.isClosed = true
	close(am.done)
	am.stopped.Wait()
}

// FontPath is the location of a .fnt file under the fonts directory.
func (am *AssetManager) FontPath(name string) string {
	return filepath.Join(am.paths.CommonRoot, fontsDir, name+".fnt")
}

// LoadShaderProgram reads every stage of the named program.
func (am *AssetManager) LoadShaderProgram(name string) (*metadata.ShaderProgramCode, error) {
	return am.Shaders.Load(name)
}

// Known returns what the watcher has indexed for path.
func (am *AssetManager) Known(path string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[path]
	return info, ok
}

func (am *AssetManager) start() {
	defer am.stopped.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					if err := am.watchRecursive(e.Name); err != nil {
						core.LogWarn("failed to watch '%s': %s", e.Name, err.Error())
					}
				}
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				am.handleFileEvent(e.Name)
			}
			if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				am.removeAsset(e.Name)
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(err.Error())

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

// watchRecursive adds all directories under the given one to the watch list.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return am.fsnotify.Add(walkPath)
		}
		am.indexFile(walkPath, fi.ModTime())
		return nil
	})
}

func (am *AssetManager) indexFile(path string, modified time.Time) AssetType {
	assetType := determineAssetType(path)
	if assetType == AssetTypeNone {
		return assetType
	}
	am.mutex.Lock()
	am.assets[path] = AssetInfo{Path: path, Type: assetType, Modified: modified}
	am.mutex.Unlock()
	return assetType
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string) {
	if am.indexFile(path, time.Now()) != AssetTypeShader {
		return
	}
	core.LogInfo("shader changed: %s", path)
	if am.events != nil {
		am.events.Fire(core.EventContext{
			Type: core.EVENT_CODE_SHADERS_CHANGED,
			Data: &core.FileEvent{Path: path},
		})
	}
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	delete(am.assets, path)
}

func determineAssetType(path string) AssetType {
	switch filepath.Ext(path) {
	case ".spv":
		if _, err := loaders.ShaderStageFromName(path); err != nil {
			return AssetTypeNone
		}
		return AssetTypeShader
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp":
		return AssetTypeImage
	case ".fnt":
		return AssetTypeFont
	default:
		return AssetTypeNone
	}
}
