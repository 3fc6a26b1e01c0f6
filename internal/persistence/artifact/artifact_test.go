package artifact

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"mapforge.ai/internal/gamemap"
)

func TestWriteZstd_ReadCompressedMapRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := gamemap.CompressedGameMap{
		ID:           "m1",
		Size:         gamemap.GridSize{Width: 1, Height: 1},
		TileSize:     gamemap.PixelSize{Width: 32, Height: 32},
		ConstantPool: [][][]int{{{-1, 1, 0}}},
		Tiles:        "AAE=",
		Blockers:     "AAE=",
	}
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	plain := filepath.Join(dir, "map.json")
	packed := plain + ZstdSuffix
	if err := WriteFile(plain, b); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := WriteZstd(packed, b); err != nil {
		t.Fatalf("write zstd: %v", err)
	}

	for _, p := range []string{plain, packed} {
		got, raw, err := ReadCompressedMap(p)
		if err != nil {
			t.Fatalf("read %s: %v", filepath.Base(p), err)
		}
		if !bytes.Equal(raw, b) {
			t.Fatalf("%s: bytes differ", filepath.Base(p))
		}
		if got.ID != "m1" || len(got.ConstantPool) != 1 {
			t.Fatalf("%s: got %+v", filepath.Base(p), got)
		}
	}
}

func TestWritePNG(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(1, 0, color.NRGBA{B: 200, A: 255})
	path := filepath.Join(t.TempDir(), "out", "tileset.png")
	if err := WritePNG(path, img); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	got, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, _, b, a := got.At(1, 0).RGBA(); b>>8 != 200 || a>>8 != 255 {
		t.Fatalf("pixel mismatch: b=%d a=%d", b>>8, a>>8)
	}
}
