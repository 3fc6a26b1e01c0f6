package mapgen

import (
	"image"

	xdraw "golang.org/x/image/draw"

	"mapforge.ai/internal/gamemap"
	"mapforge.ai/internal/imageio"
)

// AtlasLayout places canonical indices on a near-square grid of
// destination tiles.
type AtlasLayout struct {
	Grid     gamemap.GridSize
	TileSize gamemap.PixelSize
}

// ComputeLayout sizes the grid for count entries plus the reserved slot 0:
// width = ceil(sqrt(count+1)), height = ceil((count+1)/width).
func ComputeLayout(count int, tile gamemap.PixelSize) (AtlasLayout, error) {
	total := count + 1
	w := ceilSqrt(total)
	h := (total + w - 1) / w
	if w*h < total {
		return AtlasLayout{}, invariantErrorf("atlas grid %dx%d cannot hold %d entries", w, h, total)
	}
	return AtlasLayout{Grid: gamemap.GridSize{Width: w, Height: h}, TileSize: tile}, nil
}

func ceilSqrt(n int) int {
	w := 1
	for w*w < n {
		w++
	}
	return w
}

func (a AtlasLayout) Coordinate(index int) gamemap.GridCoordinate {
	return gamemap.GridCoordinate{X: index % a.Grid.Width, Y: index / a.Grid.Width}
}

func (a AtlasLayout) PixelBlock(index int) gamemap.PixelBlock {
	c := a.Coordinate(index)
	return gamemap.PixelBlock{
		X:      c.X * a.TileSize.Width,
		Y:      c.Y * a.TileSize.Height,
		Width:  a.TileSize.Width,
		Height: a.TileSize.Height,
	}
}

func (a AtlasLayout) PixelSize() gamemap.PixelSize {
	return gamemap.PixelSize{Width: a.Grid.Width * a.TileSize.Width, Height: a.Grid.Height * a.TileSize.Height}
}

// ImageSource hands out decoded source images; *imageio.Reader implements it.
type ImageSource interface {
	Image(path string) (image.Image, error)
}

// Rasterize draws every entry of idx into its atlas cell, constituent blocks
// bottom to top. Unused cells stay transparent.
func Rasterize(idx *DedupIndex, layout AtlasLayout, images ImageSource) (*image.NRGBA, error) {
	size := layout.PixelSize()
	dst := image.NewNRGBA(image.Rect(0, 0, size.Width, size.Height))
	err := idx.Each(func(index int, blocks []imageio.ImageBlock) error {
		pb := layout.PixelBlock(index)
		dr := image.Rect(pb.X, pb.Y, pb.X+pb.Width, pb.Y+pb.Height)
		for _, b := range blocks {
			src, err := images.Image(b.Image)
			if err != nil {
				return wrapError(ErrResource, err, "read %s", b.Image)
			}
			sr := image.Rect(b.Block.X, b.Block.Y, b.Block.X+b.Block.Width, b.Block.Y+b.Block.Height)
			xdraw.NearestNeighbor.Scale(dst, dr, src, sr, xdraw.Over, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dst, nil
}
