package loaders

import (
	"fmt"
	"os"
	"sync"

	"github.com/spaghettifunk/anima-assets/engine/resources"
)

// Blob holds the raw bytes of a file the engine does not interpret.
type Blob struct {
	mu   sync.RWMutex
	data []byte
}

func (b *Blob) Bytes() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.data
}

func (b *Blob) String() string {
	return string(b.Bytes())
}

func (b *Blob) set(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = data
}

// BinaryLoader loads opaque binary files as a Blob.
type BinaryLoader struct{}

func (bl *BinaryLoader) Extensions() []string {
	return []string{".bin", ".dat"}
}

func (bl *BinaryLoader) Load(path string) (resources.Resource, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Blob{data: buf}, nil
}

func (bl *BinaryLoader) Save(res resources.Resource, path string) error {
	return saveBlob(res, path)
}

func (bl *BinaryLoader) Reload(existing resources.Resource, path string) (resources.Resource, error) {
	return reloadBlob(existing, path)
}

// TextLoader loads plain text files as a Blob.
type TextLoader struct{}

func (tl *TextLoader) Extensions() []string {
	return []string{".txt", ".md", ".csv"}
}

func (tl *TextLoader) Load(path string) (resources.Resource, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Blob{data: buf}, nil
}

func (tl *TextLoader) Save(res resources.Resource, path string) error {
	return saveBlob(res, path)
}

func (tl *TextLoader) Reload(existing resources.Resource, path string) (resources.Resource, error) {
	return reloadBlob(existing, path)
}

func (tl *TextLoader) Icon() string {
	return "text"
}

func (tl *TextLoader) InstantiateAsEntity() bool {
	return false
}

func saveBlob(res resources.Resource, path string) error {
	b, ok := res.(*Blob)
	if !ok {
		return fmt.Errorf("cannot save %T as a blob", res)
	}
	return os.WriteFile(path, b.Bytes(), 0o644)
}

func reloadBlob(existing resources.Resource, path string) (resources.Resource, error) {
	b, ok := existing.(*Blob)
	if !ok {
		return nil, fmt.Errorf("cannot reload %T as a blob", existing)
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b.set(buf)
	return b, nil
}

func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	return byteCode
}
