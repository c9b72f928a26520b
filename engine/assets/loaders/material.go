package loaders

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/resources"
)

// Colour is an RGBA colour with components in [0, 1].
type Colour [4]float32

type MaterialConfig struct {
	Name            string
	ShaderName      string
	DiffuseColour   Colour
	Shininess       float32
	DiffuseMapName  string
	SpecularMapName string
	NormalMapName   string
	AutoRelease     bool
}

// Material wraps a MaterialConfig so a reload can update it for every holder.
type Material struct {
	mu     sync.RWMutex
	config MaterialConfig
}

func NewMaterial(cfg MaterialConfig) *Material {
	return &Material{config: cfg}
}

func (m *Material) Config() MaterialConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

func (m *Material) Update(cfg MaterialConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = cfg
}

// MaterialLoader reads and writes .amt files: one key=value pair per line,
// '#' starts a comment.
type MaterialLoader struct{}

func (ml *MaterialLoader) Extensions() []string {
	return []string{".amt"}
}

func (ml *MaterialLoader) Load(path string) (resources.Resource, error) {
	mCfg, err := parseAMTFile(path)
	if err != nil {
		return nil, err
	}
	return &Material{config: *mCfg}, nil
}

func (ml *MaterialLoader) Save(res resources.Resource, path string) error {
	m, ok := res.(*Material)
	if !ok {
		return fmt.Errorf("material loader cannot save %T", res)
	}
	cfg := m.Config()
	if err := validateMaterial(&cfg); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeAMT(f, &cfg); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (ml *MaterialLoader) Reload(existing resources.Resource, path string) (resources.Resource, error) {
	m, ok := existing.(*Material)
	if !ok {
		return nil, fmt.Errorf("material loader cannot reload %T", existing)
	}
	mCfg, err := parseAMTFile(path)
	if err != nil {
		return nil, err
	}
	m.Update(*mCfg)
	return m, nil
}

func (ml *MaterialLoader) Icon() string {
	return "material"
}

func (ml *MaterialLoader) InstantiateAsEntity() bool {
	return false
}

func parseAMTFile(filename string) (*MaterialConfig, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return parseAMT(file)
}

func parseAMT(r io.Reader) (*MaterialConfig, error) {
	scanner := bufio.NewScanner(r)
	materialConfig := &MaterialConfig{}

	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}

		// Split key-value pairs by the first "=" sign
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: expected key=value, got %q", lineNo, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		switch key {
		case "name":
			materialConfig.Name = value
		case "shader":
			materialConfig.ShaderName = value
		case "diffuse_colour":
			colourValues := strings.Fields(value)
			if len(colourValues) != 4 {
				return nil, fmt.Errorf("line %d: invalid diffuse_colour, expected 4 values: %s", lineNo, value)
			}
			for i, v := range colourValues {
				f, err := strconv.ParseFloat(v, 32)
				if err != nil {
					return nil, fmt.Errorf("line %d: invalid diffuse_colour value: %s", lineNo, v)
				}
				materialConfig.DiffuseColour[i] = float32(f)
			}
		case "shininess":
			shininess, err := strconv.ParseFloat(value, 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid shininess value: %s", lineNo, value)
			}
			materialConfig.Shininess = float32(shininess)
		case "diffuse_map_name":
			materialConfig.DiffuseMapName = value
		case "specular_map_name":
			materialConfig.SpecularMapName = value
		case "normal_map_name":
			materialConfig.NormalMapName = value
		case "autorelease":
			autoRelease, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid autorelease value: %s", lineNo, value)
			}
			materialConfig.AutoRelease = autoRelease
		default:
			core.LogWarn("Unknown key '%s' found in material file. Skipping...", key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := validateMaterial(materialConfig); err != nil {
		return nil, err
	}
	return materialConfig, nil
}

func writeAMT(w io.Writer, cfg *MaterialConfig) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "name=%s\n", cfg.Name)
	fmt.Fprintf(bw, "shader=%s\n", cfg.ShaderName)
	c := cfg.DiffuseColour
	fmt.Fprintf(bw, "diffuse_colour=%g %g %g %g\n", c[0], c[1], c[2], c[3])
	fmt.Fprintf(bw, "shininess=%g\n", cfg.Shininess)
	if cfg.DiffuseMapName != "" {
		fmt.Fprintf(bw, "diffuse_map_name=%s\n", cfg.DiffuseMapName)
	}
	if cfg.SpecularMapName != "" {
		fmt.Fprintf(bw, "specular_map_name=%s\n", cfg.SpecularMapName)
	}
	if cfg.NormalMapName != "" {
		fmt.Fprintf(bw, "normal_map_name=%s\n", cfg.NormalMapName)
	}
	fmt.Fprintf(bw, "autorelease=%t\n", cfg.AutoRelease)
	return bw.Flush()
}

func validateMaterial(material *MaterialConfig) error {
	if material.Name == "" {
		return fmt.Errorf("material name is required")
	}

	if material.ShaderName == "" {
		return fmt.Errorf("shader name is required")
	}

	// Check that DiffuseColour values are within [0.0, 1.0] range
	for _, v := range material.DiffuseColour {
		if v < 0.0 || v > 1.0 {
			return fmt.Errorf("diffuse_colour values must be between 0.0 and 1.0")
		}
	}

	if material.Shininess < 0 {
		return fmt.Errorf("shininess must be a non-negative value")
	}
	return nil
}
