package mapgen

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"mapforge.ai/internal/gamemap"
	"mapforge.ai/internal/imageio"
	"mapforge.ai/internal/tiled"
)

// The fixture tileset is a 4x2 grid of 16px tiles:
//
//	0 transparent   1 left half clear  2 green   3 black a=128
//	4 blue          5 yellow           6 cyan    7 magenta
//
// Tile 5 animates through 5,6,7 at 100ms; tile 6 has mixed frame durations.
const fixtureTileset = `{
  "name": "fixture",
  "tilewidth": 16, "tileheight": 16,
  "image": "tiles.png", "imagewidth": 64, "imageheight": 32,
  "columns": 4, "tilecount": 8,
  "tiles": [
    {"id": 5, "animation": [{"tileid": 5, "duration": 100}, {"tileid": 6, "duration": 100}, {"tileid": 7, "duration": 100}]},
    {"id": 6, "animation": [{"tileid": 6, "duration": 100}, {"tileid": 7, "duration": 250}]}
  ]
}`

func fixturePixel(tile, x int) color.NRGBA {
	switch tile {
	case 0:
		return color.NRGBA{}
	case 1:
		if x < 8 {
			return color.NRGBA{}
		}
		return color.NRGBA{R: 255, A: 255}
	case 2:
		return color.NRGBA{G: 255, A: 255}
	case 3:
		return color.NRGBA{A: 128}
	case 4:
		return color.NRGBA{B: 255, A: 255}
	case 5:
		return color.NRGBA{R: 255, G: 255, A: 255}
	case 6:
		return color.NRGBA{G: 255, B: 255, A: 255}
	default:
		return color.NRGBA{R: 255, B: 255, A: 255}
	}
}

func writeFixtureTileset(t *testing.T, dir string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 64, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			tile := (y/16)*4 + x/16
			img.SetNRGBA(x, y, fixturePixel(tile, x%16))
		}
	}
	f, err := os.Create(filepath.Join(dir, "tiles.png"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("png: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	writeFile(t, filepath.Join(dir, "tiles.json"), fixtureTileset)
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func fixtureTilesets() []tiled.LoadedTileset {
	ts := tiled.Tileset{
		Name:        "fixture",
		TileWidth:   16,
		TileHeight:  16,
		Image:       "tiles.png",
		ImageWidth:  64,
		ImageHeight: 32,
		Columns:     4,
		TileCount:   8,
		Tiles: []tiled.Tile{
			{ID: 5, Animation: []tiled.AnimationFrame{{TileID: 5, Duration: 100}, {TileID: 6, Duration: 100}, {TileID: 7, Duration: 100}}},
		},
	}
	inline := tiled.Tileset{Name: "inline", TileWidth: 16, TileHeight: 16, Image: "inline.png", ImageWidth: 32, ImageHeight: 16}
	return []tiled.LoadedTileset{
		{Tileset: ts, FirstGID: 1, ImagePath: "tiles.png"},
		{Tileset: inline, FirstGID: 9, ImagePath: "inline.png"},
	}
}

func block(img string, x, y int) imageio.ImageBlock {
	return imageio.ImageBlock{Image: img, Block: gamemap.PixelBlock{X: x, Y: y, Width: 16, Height: 16}}
}

// fakeOpacity answers opacity questions by image name.
type fakeOpacity struct {
	opaque      map[string]bool
	transparent map[string]bool
}

func (f fakeOpacity) IsFullyOpaque(b imageio.ImageBlock) (bool, error) {
	return f.opaque[b.Image], nil
}

func (f fakeOpacity) IsFullyTransparent(b imageio.ImageBlock) (bool, error) {
	return f.transparent[b.Image], nil
}
