package mapgen

import (
	"mapforge.ai/internal/gamemap"
	"mapforge.ai/internal/imageio"
	"mapforge.ai/internal/tiled"
)

// TileLayer is one resolved layer of a cell: a *StaticLayer or an
// *AnimationLayer.
type TileLayer interface {
	// Depth is negative below the player layer and positive above it.
	Depth() int
	isTileLayer()
}

type StaticLayer struct {
	depth int
	Block imageio.ImageBlock
}

func (l *StaticLayer) Depth() int { return l.depth }
func (*StaticLayer) isTileLayer() {}

type AnimationFrame struct {
	Block    imageio.ImageBlock
	Duration int
}

type AnimationLayer struct {
	depth  int
	Frames []AnimationFrame
}

func (l *AnimationLayer) Depth() int { return l.depth }
func (*AnimationLayer) isTileLayer() {}

// Blocks returns the image block of every frame in order.
func (l *AnimationLayer) Blocks() []imageio.ImageBlock {
	out := make([]imageio.ImageBlock, len(l.Frames))
	for i, f := range l.Frames {
		out[i] = f.Block
	}
	return out
}

// Resolver maps global tile ids onto tileset image blocks.
type Resolver struct {
	tilesets []tiled.LoadedTileset
}

// NewResolver expects tilesets ordered by first global id.
func NewResolver(tilesets []tiled.LoadedTileset) *Resolver {
	return &Resolver{tilesets: tilesets}
}

func (r *Resolver) tilesetFor(gid int) *tiled.LoadedTileset {
	for i := 0; i < len(r.tilesets)-1; i++ {
		if gid >= r.tilesets[i].FirstGID && gid < r.tilesets[i+1].FirstGID {
			return &r.tilesets[i]
		}
	}
	return &r.tilesets[len(r.tilesets)-1]
}

// Resolve turns a non-zero global tile id into a layer at depth. Tiles with a
// declared animation become an *AnimationLayer.
func (r *Resolver) Resolve(gid uint32, depth int) (TileLayer, error) {
	if gid == 0 {
		return nil, invariantErrorf("tile id 0 reached the resolver")
	}
	if len(r.tilesets) == 0 {
		return nil, configErrorf("tile %d: map has no tilesets", gid)
	}
	if int(gid) < r.tilesets[0].FirstGID {
		return nil, configErrorf("tile %d: below first tileset id %d", gid, r.tilesets[0].FirstGID)
	}
	ts := r.tilesetFor(int(gid))
	offset := int(gid) - ts.FirstGID
	frames := ts.Animation(offset)
	if len(frames) == 0 {
		block, err := tileBlock(ts, offset)
		if err != nil {
			return nil, err
		}
		return &StaticLayer{depth: depth, Block: block}, nil
	}
	out := &AnimationLayer{depth: depth, Frames: make([]AnimationFrame, 0, len(frames))}
	for _, f := range frames {
		block, err := tileBlock(ts, f.TileID)
		if err != nil {
			return nil, err
		}
		out.Frames = append(out.Frames, AnimationFrame{Block: block, Duration: f.Duration})
	}
	return out, nil
}

// Blocks returns the image blocks a resolved layer draws: one for a static
// tile, one per frame for an animation.
func Blocks(l TileLayer) []imageio.ImageBlock {
	switch l := l.(type) {
	case *StaticLayer:
		return []imageio.ImageBlock{l.Block}
	case *AnimationLayer:
		return l.Blocks()
	default:
		panic("mapgen: unknown tile layer type")
	}
}

func tileBlock(ts *tiled.LoadedTileset, offset int) (imageio.ImageBlock, error) {
	gw := ts.GridWidth()
	if gw <= 0 {
		return imageio.ImageBlock{}, configErrorf("tileset %q: image width %d smaller than tile width %d", ts.Name, ts.ImageWidth, ts.TileWidth)
	}
	if n := tileCount(ts, gw); offset < 0 || offset >= n {
		return imageio.ImageBlock{}, configErrorf("tile %d: tileset %q has %d tiles", ts.FirstGID+offset, ts.Name, n)
	}
	return imageio.ImageBlock{
		Image: ts.ImagePath,
		Block: gamemap.PixelBlock{
			X:      (offset % gw) * ts.TileWidth,
			Y:      (offset / gw) * ts.TileHeight,
			Width:  ts.TileWidth,
			Height: ts.TileHeight,
		},
	}, nil
}

// tileCount is the number of whole tiles the image holds, capped by the
// declared tile count when the tileset has one.
func tileCount(ts *tiled.LoadedTileset, gw int) int {
	n := 0
	if ts.TileHeight > 0 {
		n = gw * (ts.ImageHeight / ts.TileHeight)
	}
	if ts.TileCount > 0 && ts.TileCount < n {
		n = ts.TileCount
	}
	return n
}
