// Package imageio loads source tileset images and answers per-block opacity
// questions about them. Results are memoized for the lifetime of a Reader.
package imageio

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/dgraph-io/ristretto/v2"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"mapforge.ai/internal/gamemap"
)

// ImageBlock is a rectangle of one source image. It is compared by value and
// is the unit of deduplication.
type ImageBlock struct {
	Image string
	Block gamemap.PixelBlock
}

func (b ImageBlock) String() string {
	return fmt.Sprintf("%s@%d,%d+%dx%d", b.Image, b.Block.X, b.Block.Y, b.Block.Width, b.Block.Height)
}

type RGBA struct {
	R, G, B, A uint8
}

// Reader caches decoded images and the opacity of every block it has been
// asked about. It is not safe for concurrent use.
type Reader struct {
	images      *ristretto.Cache[string, image.Image]
	opaque      map[ImageBlock]bool
	transparent map[ImageBlock]bool
	decodes     int
}

// NewReader creates a reader whose decoded-image cache holds up to maxBytes
// of pixel data.
func NewReader(maxBytes int64) (*Reader, error) {
	if maxBytes <= 0 {
		maxBytes = 256 << 20
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, image.Image]{
		NumCounters: 10000,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Reader{
		images:      cache,
		opaque:      map[ImageBlock]bool{},
		transparent: map[ImageBlock]bool{},
	}, nil
}

func (r *Reader) Close() {
	r.images.Close()
}

// Decodes reports how many times an image file was decoded.
func (r *Reader) Decodes() int { return r.decodes }

// Image returns the decoded image at path.
func (r *Reader) Image(path string) (image.Image, error) {
	if img, ok := r.images.Get(path); ok {
		return img, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	r.decodes++
	b := img.Bounds()
	r.images.Set(path, img, int64(b.Dx())*int64(b.Dy())*4)
	r.images.Wait()
	return img, nil
}

func (r *Reader) ReadPixel(path string, x, y int) (RGBA, error) {
	img, err := r.Image(path)
	if err != nil {
		return RGBA{}, err
	}
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return RGBA{}, fmt.Errorf("%s: pixel (%d,%d) outside %v", path, x, y, img.Bounds())
	}
	return pixelAt(img, x, y), nil
}

// IsFullyOpaque reports whether every pixel of b has alpha 255.
func (r *Reader) IsFullyOpaque(b ImageBlock) (bool, error) {
	if v, ok := r.opaque[b]; ok {
		return v, nil
	}
	v, err := r.scan(b, func(a uint8) bool { return a < 255 })
	if err != nil {
		return false, err
	}
	r.opaque[b] = v
	return v, nil
}

// IsFullyTransparent reports whether every pixel of b has alpha 0.
func (r *Reader) IsFullyTransparent(b ImageBlock) (bool, error) {
	if v, ok := r.transparent[b]; ok {
		return v, nil
	}
	v, err := r.scan(b, func(a uint8) bool { return a != 0 })
	if err != nil {
		return false, err
	}
	r.transparent[b] = v
	return v, nil
}

// scan returns false as soon as stop matches a pixel's alpha.
func (r *Reader) scan(b ImageBlock, stop func(alpha uint8) bool) (bool, error) {
	img, err := r.Image(b.Image)
	if err != nil {
		return false, err
	}
	rect := image.Rect(b.Block.X, b.Block.Y, b.Block.X+b.Block.Width, b.Block.Y+b.Block.Height)
	if !rect.In(img.Bounds()) {
		return false, fmt.Errorf("block %v outside image bounds %v", b, img.Bounds())
	}
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			if stop(pixelAt(img, x, y).A) {
				return false, nil
			}
		}
	}
	return true, nil
}

// pixelAt returns the straight-alpha color at (x, y). Indexed images are
// treated as fully opaque.
func pixelAt(img image.Image, x, y int) RGBA {
	c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	if _, ok := img.(*image.Paletted); ok {
		c.A = 0xff
	}
	return RGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}
