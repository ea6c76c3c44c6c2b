package loaders

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// SPIR-V magic number, first word of every module.
const spirvMagic uint32 = 0x07230203

type ShaderLoader struct {
	Root string
}

/**
 * @brief Maps a compiled shader file name to its stage by suffix:
 * *.vert.spv, *.frag.spv or *.geom.spv.
 */
func ShaderStageFromName(name string) (metadata.ShaderStage, error) {
	for s := metadata.ShaderStageVertex; s < metadata.ShaderStageCount; s++ {
		if strings.HasSuffix(name, s.Suffix()) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", core.ErrUnknownShaderStage, filepath.Base(name))
}

// LoadShaderCode reads a SPIR-V module as little-endian 32-bit words.
func LoadShaderCode(path string) ([]uint32, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil, fmt.Errorf("shader '%s' has size %d, not a multiple of 4", path, len(buf))
	}
	code := bytesToBytecode(buf)
	if code[0] != spirvMagic {
		return nil, fmt.Errorf("shader '%s' is not a SPIR-V module", path)
	}
	return code, nil
}

/**
 * @brief Loads every stage of the named program found under the root
 * (files named <name>.<stage>.spv). Vertex and fragment stages are
 * required; a missing one wraps ErrMissingShaderStage.
 */
func (sl *ShaderLoader) Load(name string) (*metadata.ShaderProgramCode, error) {
	matches, err := filepath.Glob(filepath.Join(sl.Root, name+".*.spv"))
	if err != nil {
		return nil, err
	}
	program := &metadata.ShaderProgramCode{
		Name:   name,
		Stages: make(map[metadata.ShaderStage][]uint32, len(matches)),
	}
	for _, m := range matches {
		stage, err := ShaderStageFromName(m)
		if err != nil {
			core.LogWarn("skipping '%s': %s", m, err.Error())
			continue
		}
		code, err := LoadShaderCode(m)
		if err != nil {
			return nil, err
		}
		program.Stages[stage] = code
	}
	for _, required := range []metadata.ShaderStage{metadata.ShaderStageVertex, metadata.ShaderStageFragment} {
		if _, ok := program.Stages[required]; !ok {
			return nil, fmt.Errorf("%w: %s%s", core.ErrMissingShaderStage, name, required.Suffix())
		}
	}
	return program, nil
}

func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := range byteCode {
		byteCode[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return byteCode
}
