package gamemap

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func sampleMap() RawGameMap {
	water := []AnimationFrame{
		{Coordinate: GridCoordinate{X: 2, Y: 0}, Duration: 250},
		{Coordinate: GridCoordinate{X: 3, Y: 0}, Duration: 250},
	}
	grass := StaticLayer(GridCoordinate{X: 1, Y: 0}, -1)
	return RawGameMap{
		ID:       "JavaIsland",
		Size:     GridSize{Width: 3, Height: 2},
		TileSize: PixelSize{Width: 32, Height: 32},
		Tiles: [][]Tile{
			{
				{Layers: []TileLayer{grass}, Blocker: NonBlocker},
				{Layers: []TileLayer{grass}, Blocker: NonBlocker},
				{Layers: []TileLayer{grass, AnimationLayer(water, 1)}, Blocker: Blocker},
			},
			{
				{Layers: []TileLayer{}, Blocker: NonBlocker},
				{Layers: []TileLayer{grass}, Blocker: Blocker},
				{Layers: []TileLayer{grass}, Blocker: Blocker},
			},
		},
		DynamicSprites: []DynamicSprite{
			{
				ID:            "flag",
				TopLeftCorner: GridCoordinate{X: 1, Y: 1},
				Frames:        [][][]GridCoordinate{{{{X: 4, Y: 0}}, {{X: 5, Y: 0}, {X: 0, Y: 1}}}},
			},
		},
		Objects: []MapObject{
			{
				ID:         "sign",
				Type:       ObjectPoint,
				Coordinate: GridCoordinate{X: 2, Y: 1},
				Size:       GridSize{Width: 1, Height: 1},
				Layer:      1,
				Properties: map[string]json.RawMessage{"text": json.RawMessage(`"hello"`)},
			},
		},
	}
}

func TestCompress_ConstantPoolDedup(t *testing.T) {
	c, err := sampleMap().Compress()
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	// [grass], [grass, water], []
	if len(c.ConstantPool) != 3 {
		t.Fatalf("constant pool size=%d want 3: %v", len(c.ConstantPool), c.ConstantPool)
	}
	if !reflect.DeepEqual(c.ConstantPool[1][1], []int{1, 250, 2, 0, 3, 0}) {
		t.Fatalf("animation encoding=%v", c.ConstantPool[1][1])
	}
}

func TestCompress_RoundTripRestoresMap(t *testing.T) {
	in := sampleMap()
	c, err := in.Compress()
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	out, err := c.Decompress()
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch:\n got=%+v\nwant=%+v", out, in)
	}
	if _, err := MarshalVerified(c); err != nil {
		t.Fatalf("MarshalVerified: %v", err)
	}
}

func TestCompress_RejectsMixedDurations(t *testing.T) {
	m := sampleMap()
	m.Tiles[0][2].Layers[1].Frames[1].Duration = 100
	if _, err := m.Compress(); err == nil {
		t.Fatalf("expected duration mismatch error")
	}
}

func TestCompress_RejectsRaggedRows(t *testing.T) {
	m := sampleMap()
	m.Tiles[1] = m.Tiles[1][:2]
	if _, err := m.Compress(); err == nil {
		t.Fatalf("expected shape error")
	}
}

func TestMarshalVerified_DetectsLossyPool(t *testing.T) {
	c, err := sampleMap().Compress()
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	// A duplicated pool entry is not reproduced by a fresh compression.
	c.ConstantPool = append(c.ConstantPool, c.ConstantPool[0])
	if _, err := MarshalVerified(c); !errors.Is(err, ErrRoundTrip) {
		t.Fatalf("err=%v want ErrRoundTrip", err)
	}
}

func TestDecompress_RejectsBadPoolIndex(t *testing.T) {
	c, err := sampleMap().Compress()
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	c.ConstantPool = c.ConstantPool[:1]
	if _, err := c.Decompress(); err == nil {
		t.Fatalf("expected out of range error")
	}
}
