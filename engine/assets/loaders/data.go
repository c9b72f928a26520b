package loaders

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/spaghettifunk/anima-assets/engine/resources"
)

type Codec int

const (
	CodecJSON Codec = iota
	CodecYAML
	// CodecAuto picks YAML for .yaml and .yml files and JSON otherwise.
	CodecAuto
)

func (c Codec) String() string {
	switch c {
	case CodecYAML:
		return "yaml"
	case CodecAuto:
		return "data"
	default:
		return "json"
	}
}

func (c Codec) forPath(path string) Codec {
	if c != CodecAuto {
		return c
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return CodecYAML
	default:
		return CodecJSON
	}
}

func (c Codec) unmarshal(data []byte, v interface{}) error {
	if c == CodecYAML {
		return yaml.Unmarshal(data, v)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	return dec.Decode(v)
}

func (c Codec) marshal(v interface{}) ([]byte, error) {
	if c == CodecYAML {
		return yaml.Marshal(v)
	}
	return json.MarshalIndent(v, "", "  ")
}

// Document holds a decoded data file. Reloads replace its value for every holder.
type Document[T any] struct {
	mu    sync.RWMutex
	value T
}

func NewDocument[T any](v T) *Document[T] {
	return &Document[T]{value: v}
}

func (d *Document[T]) Get() T {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.value
}

func (d *Document[T]) Set(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.value = v
}

/*
DataLoader is the base for every loader that maps a structured text file onto
a Go type. The optional JSON schema is checked before decoding; YAML input is
converted to JSON first so both codecs share one schema.
*/
type DataLoader[T any] struct {
	Codec  Codec
	Exts   []string
	Schema *jsonschema.Schema
	// Check runs after decoding for rules a schema cannot express. Optional.
	Check func(v *T) error

	icon string
}

func NewDataLoader[T any](codec Codec, exts ...string) *DataLoader[T] {
	return &DataLoader[T]{Codec: codec, Exts: exts, icon: "data"}
}

// CompileSchema compiles a JSON schema document for use as DataLoader.Schema.
func CompileSchema(name string, schema []byte) (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schema))
	if err != nil {
		return nil, fmt.Errorf("unmarshaling schema %s: %w", name, err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, doc); err != nil {
		return nil, fmt.Errorf("adding schema resource %s: %w", name, err)
	}
	sch, err := c.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compiling schema %s: %w", name, err)
	}
	return sch, nil
}

func (dl *DataLoader[T]) Extensions() []string {
	return dl.Exts
}

func (dl *DataLoader[T]) Load(path string) (resources.Resource, error) {
	v, err := dl.decodeFile(path)
	if err != nil {
		return nil, err
	}
	return &Document[T]{value: v}, nil
}

func (dl *DataLoader[T]) Save(res resources.Resource, path string) error {
	doc, ok := res.(*Document[T])
	if !ok {
		return fmt.Errorf("%s loader cannot save %T", dl.Codec, res)
	}
	codec := dl.Codec.forPath(path)
	v := doc.Get()
	data, err := codec.marshal(&v)
	if err != nil {
		return err
	}
	if err := dl.validate(codec, data); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (dl *DataLoader[T]) Reload(existing resources.Resource, path string) (resources.Resource, error) {
	doc, ok := existing.(*Document[T])
	if !ok {
		return nil, fmt.Errorf("%s loader cannot reload %T", dl.Codec, existing)
	}
	v, err := dl.decodeFile(path)
	if err != nil {
		return nil, err
	}
	doc.Set(v)
	return doc, nil
}

func (dl *DataLoader[T]) Icon() string {
	if dl.icon == "" {
		return "data"
	}
	return dl.icon
}

func (dl *DataLoader[T]) InstantiateAsEntity() bool {
	return false
}

func (dl *DataLoader[T]) decodeFile(path string) (T, error) {
	var v T
	data, err := os.ReadFile(path)
	if err != nil {
		return v, err
	}
	codec := dl.Codec.forPath(path)
	if err := dl.validate(codec, data); err != nil {
		return v, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if err := codec.unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	if dl.Check != nil {
		if err := dl.Check(&v); err != nil {
			return v, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
	}
	return v, nil
}

func (dl *DataLoader[T]) validate(codec Codec, data []byte) error {
	if dl.Schema == nil {
		return nil
	}
	if codec == CodecYAML {
		var raw interface{}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parsing YAML: %w", err)
		}
		converted, err := json.Marshal(raw)
		if err != nil {
			return fmt.Errorf("converting YAML to JSON: %w", err)
		}
		data = converted
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parsing JSON: %w", err)
	}
	if err := dl.Schema.Validate(inst); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}

// NewGenericDataLoader decodes any .json, .yaml or .yml file into a map.
func NewGenericDataLoader() *DataLoader[map[string]interface{}] {
	return NewDataLoader[map[string]interface{}](CodecAuto, ".json", ".yaml", ".yml")
}
