package loaders

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "image/gif"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/spaghettifunk/anima-assets/engine/resources"
)

const placeholderSize = 64

/*
Texture is the CPU side of an image asset. Its pixels are always stored as
NRGBA regardless of the source format. A hot reload swaps the pixels of the
same Texture and bumps Generation, so holders can tell their GPU copy is stale.
*/
type Texture struct {
	mu         sync.RWMutex
	pixels     *image.NRGBA
	format     string
	generation uint32
}

func NewTexture(img image.Image, format string) *Texture {
	return &Texture{pixels: toNRGBA(img), format: format}
}

func (t *Texture) Size() (width, height int) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.pixels == nil {
		return 0, 0
	}
	b := t.pixels.Bounds()
	return b.Dx(), b.Dy()
}

// Format returns the name of the codec the texture was decoded with.
func (t *Texture) Format() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.format
}

func (t *Texture) Generation() uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.generation
}

// Image returns the current pixels. The returned image must not be modified.
func (t *Texture) Image() *image.NRGBA {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pixels
}

// SubImage copies r out of the texture.
func (t *Texture) SubImage(r image.Rectangle) *image.NRGBA {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.pixels == nil {
		return image.NewNRGBA(image.Rectangle{})
	}
	r = r.Intersect(t.pixels.Bounds())
	dst := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), t.pixels, r.Min, draw.Src)
	return dst
}

func (t *Texture) replace(img *image.NRGBA, format string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pixels = img
	t.format = format
	t.generation++
}

func (t *Texture) release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pixels = nil
}

type TextureLoader struct {
	once        sync.Once
	placeholder *Texture
}

func (tl *TextureLoader) Extensions() []string {
	return []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp"}
}

func (tl *TextureLoader) Load(path string) (resources.Resource, error) {
	img, format, err := decodeImage(path)
	if err != nil {
		return nil, err
	}
	return &Texture{pixels: img, format: format}, nil
}

func (tl *TextureLoader) Save(res resources.Resource, path string) error {
	t, ok := res.(*Texture)
	if !ok {
		return fmt.Errorf("texture loader cannot save %T", res)
	}
	return encodeImage(t.Image(), path)
}

// Placeholder returns a shared magenta and black checkerboard.
func (tl *TextureLoader) Placeholder() resources.Resource {
	tl.once.Do(func() {
		tl.placeholder = &Texture{pixels: checkerboard(placeholderSize), format: "placeholder"}
	})
	return tl.placeholder
}

func (tl *TextureLoader) Reload(existing resources.Resource, path string) (resources.Resource, error) {
	t, ok := existing.(*Texture)
	if !ok {
		return nil, fmt.Errorf("texture loader cannot reload %T", existing)
	}
	img, format, err := decodeImage(path)
	if err != nil {
		return nil, err
	}
	t.replace(img, format)
	return t, nil
}

func (tl *TextureLoader) Unload(res resources.Resource) error {
	if t, ok := res.(*Texture); ok {
		t.release()
	}
	return nil
}

func (tl *TextureLoader) Icon() string {
	return "image"
}

func (tl *TextureLoader) InstantiateAsEntity() bool {
	return false
}

func decodeImage(path string) (*image.NRGBA, string, error) {
	// Open and decode the texture image file
	file, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return toNRGBA(img), format, nil
}

func encodeImage(img *image.NRGBA, path string) error {
	if img == nil {
		return fmt.Errorf("encode %s: texture has no pixels", filepath.Base(path))
	}

	var encode func(f *os.File) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		encode = func(f *os.File) error { return png.Encode(f, img) }
	case ".jpg", ".jpeg":
		encode = func(f *os.File) error { return jpeg.Encode(f, img, &jpeg.Options{Quality: 95}) }
	case ".bmp":
		encode = func(f *os.File) error { return bmp.Encode(f, img) }
	default:
		return fmt.Errorf("encode %s: %w", filepath.Base(path), resources.ErrUnsupportedOperation)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Bounds().Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

func checkerboard(size int) *image.NRGBA {
	magenta := color.NRGBA{R: 255, B: 255, A: 255}
	black := color.NRGBA{A: 255}
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	cell := size / 8
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if (x/cell+y/cell)%2 == 0 {
				img.SetNRGBA(x, y, magenta)
			} else {
				img.SetNRGBA(x, y, black)
			}
		}
	}
	return img
}
