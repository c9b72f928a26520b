package loaders

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spaghettifunk/anima-assets/engine/resources"
)

const spirvMagic uint32 = 0x07230203

// Shader is a compiled SPIR-V module ready to be handed to the renderer.
type Shader struct {
	mu         sync.RWMutex
	stage      string
	bytecode   []uint32
	generation uint32
}

// Stage is taken from the file name: "sprite.frag.spv" is a "frag" shader.
func (s *Shader) Stage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stage
}

func (s *Shader) Bytecode() []uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bytecode
}

func (s *Shader) Generation() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// ShaderLoader reads SPIR-V binaries. Compiled shaders cannot be saved back.
type ShaderLoader struct{}

func (sl *ShaderLoader) Extensions() []string {
	return []string{".spv"}
}

func (sl *ShaderLoader) Load(path string) (resources.Resource, error) {
	code, err := readSPIRV(path)
	if err != nil {
		return nil, err
	}
	return &Shader{stage: shaderStage(path), bytecode: code}, nil
}

func (sl *ShaderLoader) Reload(existing resources.Resource, path string) (resources.Resource, error) {
	s, ok := existing.(*Shader)
	if !ok {
		return nil, fmt.Errorf("shader loader cannot reload %T", existing)
	}
	code, err := readSPIRV(path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.bytecode = code
	s.stage = shaderStage(path)
	s.generation++
	return s, nil
}

func (sl *ShaderLoader) Icon() string {
	return "shader"
}

func (sl *ShaderLoader) InstantiateAsEntity() bool {
	return false
}

func readSPIRV(path string) ([]uint32, error) {
	// Read SPIR-V binary file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("%s: SPIR-V size %d is not a multiple of 4", filepath.Base(path), len(data))
	}
	code := bytesToBytecode(data)
	if code[0] != spirvMagic {
		return nil, fmt.Errorf("%s: bad SPIR-V magic 0x%08x", filepath.Base(path), code[0])
	}
	return code, nil
}

func shaderStage(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if ext := filepath.Ext(name); ext != "" {
		return strings.ToLower(strings.TrimPrefix(ext, "."))
	}
	return ""
}
