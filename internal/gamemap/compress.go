package gamemap

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"mapforge.ai/internal/encoding"
)

// ErrRoundTrip reports that decompressing and re-compressing a map did not
// reproduce the original bytes.
var ErrRoundTrip = errors.New("compressed map round-trip mismatch")

// Compress folds identical per-cell layer lists into a constant pool.
// Animation layers must use one duration for every frame.
func (m RawGameMap) Compress() (CompressedGameMap, error) {
	if err := m.checkShape(); err != nil {
		return CompressedGameMap{}, err
	}

	out := CompressedGameMap{
		ID:             m.ID,
		Size:           m.Size,
		TileSize:       m.TileSize,
		ConstantPool:   [][][]int{},
		DynamicSprites: cloneSprites(m.DynamicSprites),
		Objects:        cloneObjects(m.Objects),
	}

	poolIndex := map[string]uint32{}
	cells := make([]uint32, 0, m.Size.Area())
	blockers := make([]uint32, 0, m.Size.Area())
	for y, row := range m.Tiles {
		for x, tile := range row {
			entry := make([][]int, 0, len(tile.Layers))
			for _, l := range tile.Layers {
				enc, err := encodeLayer(l)
				if err != nil {
					return CompressedGameMap{}, fmt.Errorf("tile (%d,%d): %w", x, y, err)
				}
				entry = append(entry, enc)
			}
			key := poolKey(entry)
			idx, ok := poolIndex[key]
			if !ok {
				idx = uint32(len(out.ConstantPool))
				poolIndex[key] = idx
				out.ConstantPool = append(out.ConstantPool, entry)
			}
			cells = append(cells, idx)
			if tile.Blocker < 0 {
				return CompressedGameMap{}, fmt.Errorf("tile (%d,%d): negative blocker %d", x, y, tile.Blocker)
			}
			blockers = append(blockers, uint32(tile.Blocker))
		}
	}
	out.Tiles = encoding.EncodeRLE(cells)
	out.Blockers = encoding.EncodeRLE(blockers)
	return out, nil
}

// Decompress expands the constant pool back into a per-cell grid.
func (c CompressedGameMap) Decompress() (RawGameMap, error) {
	if c.Size.Width < 0 || c.Size.Height < 0 {
		return RawGameMap{}, fmt.Errorf("bad map size %dx%d", c.Size.Width, c.Size.Height)
	}
	area := c.Size.Area()
	cells, err := encoding.DecodeRLE(c.Tiles, area)
	if err != nil {
		return RawGameMap{}, fmt.Errorf("tiles: %w", err)
	}
	blockers, err := encoding.DecodeRLE(c.Blockers, area)
	if err != nil {
		return RawGameMap{}, fmt.Errorf("blockers: %w", err)
	}
	if area > 0 && (len(cells) != area || len(blockers) != area) {
		return RawGameMap{}, fmt.Errorf("cell count mismatch: tiles=%d blockers=%d want %d", len(cells), len(blockers), area)
	}

	pool := make([][]TileLayer, len(c.ConstantPool))
	for i, entry := range c.ConstantPool {
		layers := make([]TileLayer, 0, len(entry))
		for _, enc := range entry {
			l, err := decodeLayer(enc)
			if err != nil {
				return RawGameMap{}, fmt.Errorf("constant pool entry %d: %w", i, err)
			}
			layers = append(layers, l)
		}
		pool[i] = layers
	}

	out := RawGameMap{
		ID:             c.ID,
		Size:           c.Size,
		TileSize:       c.TileSize,
		Tiles:          make([][]Tile, c.Size.Height),
		DynamicSprites: cloneSprites(c.DynamicSprites),
		Objects:        cloneObjects(c.Objects),
	}
	for y := 0; y < c.Size.Height; y++ {
		row := make([]Tile, c.Size.Width)
		for x := 0; x < c.Size.Width; x++ {
			i := y*c.Size.Width + x
			idx := cells[i]
			if int(idx) >= len(pool) {
				return RawGameMap{}, fmt.Errorf("tile (%d,%d): constant pool index %d out of range", x, y, idx)
			}
			row[x] = Tile{Layers: cloneLayers(pool[idx]), Blocker: int(blockers[i])}
		}
		out.Tiles[y] = row
	}
	return out, nil
}

// MarshalVerified encodes c and checks that decompress -> compress reproduces
// the same bytes. The encoded form is only returned when the check passes.
func MarshalVerified(c CompressedGameMap) ([]byte, error) {
	want, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	raw, err := c.Decompress()
	if err != nil {
		return nil, fmt.Errorf("%w: decompress: %v", ErrRoundTrip, err)
	}
	again, err := raw.Compress()
	if err != nil {
		return nil, fmt.Errorf("%w: compress: %v", ErrRoundTrip, err)
	}
	got, err := json.Marshal(again)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(got, want) {
		return nil, fmt.Errorf("%w: %d bytes vs %d bytes", ErrRoundTrip, len(got), len(want))
	}
	return want, nil
}

func (m RawGameMap) checkShape() error {
	if len(m.Tiles) != m.Size.Height {
		return fmt.Errorf("map %s: %d rows, want %d", m.ID, len(m.Tiles), m.Size.Height)
	}
	for y, row := range m.Tiles {
		if len(row) != m.Size.Width {
			return fmt.Errorf("map %s: row %d has %d tiles, want %d", m.ID, y, len(row), m.Size.Width)
		}
	}
	return nil
}

// encodeLayer flattens a layer: static is [layer, x, y], animation is
// [layer, duration, x1, y1, x2, y2, ...].
func encodeLayer(l TileLayer) ([]int, error) {
	switch l.Type {
	case LayerStatic:
		if l.Coordinate == nil {
			return nil, fmt.Errorf("static layer %d without coordinate", l.Layer)
		}
		return []int{l.Layer, l.Coordinate.X, l.Coordinate.Y}, nil
	case LayerAnimation:
		if len(l.Frames) == 0 {
			return nil, fmt.Errorf("animation layer %d without frames", l.Layer)
		}
		duration := l.Frames[0].Duration
		out := make([]int, 0, 2+2*len(l.Frames))
		out = append(out, l.Layer, duration)
		for _, f := range l.Frames {
			if f.Duration != duration {
				return nil, fmt.Errorf("animation layer %d: frame durations differ (%d vs %d)", l.Layer, f.Duration, duration)
			}
			out = append(out, f.Coordinate.X, f.Coordinate.Y)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown layer type %q", l.Type)
	}
}

func decodeLayer(enc []int) (TileLayer, error) {
	switch {
	case len(enc) == 3:
		return StaticLayer(GridCoordinate{X: enc[1], Y: enc[2]}, enc[0]), nil
	case len(enc) >= 4 && len(enc)%2 == 0:
		frames := make([]AnimationFrame, 0, (len(enc)-2)/2)
		for i := 2; i < len(enc); i += 2 {
			frames = append(frames, AnimationFrame{
				Coordinate: GridCoordinate{X: enc[i], Y: enc[i+1]},
				Duration:   enc[1],
			})
		}
		return AnimationLayer(frames, enc[0]), nil
	default:
		return TileLayer{}, fmt.Errorf("bad layer encoding of length %d", len(enc))
	}
}

func poolKey(entry [][]int) string {
	var b strings.Builder
	for _, l := range entry {
		for i, v := range l {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(v))
		}
		b.WriteByte(';')
	}
	return b.String()
}

func cloneLayers(in []TileLayer) []TileLayer {
	out := make([]TileLayer, len(in))
	for i, l := range in {
		if l.Coordinate != nil {
			c := *l.Coordinate
			l.Coordinate = &c
		}
		if l.Frames != nil {
			l.Frames = append([]AnimationFrame(nil), l.Frames...)
		}
		out[i] = l
	}
	return out
}

func cloneSprites(in []DynamicSprite) []DynamicSprite {
	out := make([]DynamicSprite, 0, len(in))
	for _, s := range in {
		frames := make([][][]GridCoordinate, len(s.Frames))
		for y, row := range s.Frames {
			frames[y] = make([][]GridCoordinate, len(row))
			for x, cell := range row {
				frames[y][x] = append([]GridCoordinate{}, cell...)
			}
		}
		s.Frames = frames
		out = append(out, s)
	}
	return out
}

func cloneObjects(in []MapObject) []MapObject {
	out := make([]MapObject, 0, len(in))
	for _, o := range in {
		if o.Properties != nil {
			props := make(map[string]json.RawMessage, len(o.Properties))
			for k, v := range o.Properties {
				props[k] = append(json.RawMessage(nil), v...)
			}
			o.Properties = props
		}
		out = append(out, o)
	}
	return out
}
