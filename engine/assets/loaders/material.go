package loaders

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type MaterialLoader struct {
	Root string
}

/**
 * @brief Lists the material directories under the root, sorted by name.
 * The "default" directory is returned separately and must provide every
 * map; other materials may leave maps out.
 */
func (ml *MaterialLoader) Scan() ([]metadata.MaterialSource, metadata.MaterialSource, error) {
	var def metadata.MaterialSource

	entries, err := os.ReadDir(ml.Root)
	if err != nil {
		return nil, def, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var materials []metadata.MaterialSource
	foundDefault := false
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		src, err := scanMaterialDir(filepath.Join(ml.Root, e.Name()))
		if err != nil {
			return nil, def, err
		}
		if e.Name() == metadata.DefaultMaterialName {
			def = src
			foundDefault = true
			continue
		}
		materials = append(materials, src)
	}

	if !foundDefault {
		return nil, def, fmt.Errorf("%w: no '%s' directory in %s", core.ErrDefaultMaterialIncomplete, metadata.DefaultMaterialName, ml.Root)
	}
	for k := metadata.MapKind(0); k < metadata.MapCount; k++ {
		if def.Paths[k] == "" {
			return nil, def, fmt.Errorf("%w: %s", core.ErrDefaultMaterialIncomplete, k.FileName())
		}
	}
	return materials, def, nil
}

func scanMaterialDir(dir string) (metadata.MaterialSource, error) {
	src := metadata.MaterialSource{Name: filepath.Base(dir)}
	for k := metadata.MapKind(0); k < metadata.MapCount; k++ {
		p := filepath.Join(dir, k.FileName())
		info, err := os.Stat(p)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			continue
		case err != nil:
			return src, err
		case info.IsDir():
			continue
		}
		src.Paths[k] = p
	}
	return src, nil
}
