package mapgen

import (
	"mapforge.ai/internal/imageio"
)

// Opacity answers per-block alpha questions; *imageio.Reader implements it.
type Opacity interface {
	IsFullyOpaque(b imageio.ImageBlock) (bool, error)
	IsFullyTransparent(b imageio.ImageBlock) (bool, error)
}

// SquashedLayer is a cell layer after squashing: a *CompositeLayer or an
// *AnimationLayer.
type SquashedLayer interface {
	Depth() int
	// DestTiles lists the atlas entries the layer needs. A composite needs
	// one entry holding all its blocks; an animation needs one per frame.
	DestTiles() [][]imageio.ImageBlock
}

// CompositeLayer draws consecutive static layers, bottom first, as a single
// atlas entry.
type CompositeLayer struct {
	Layers []*StaticLayer
}

// Depth is the depth of the lowest merged layer.
func (c *CompositeLayer) Depth() int {
	d := c.Layers[0].depth
	for _, l := range c.Layers[1:] {
		d = min(d, l.depth)
	}
	return d
}

func (c *CompositeLayer) Blocks() []imageio.ImageBlock {
	out := make([]imageio.ImageBlock, len(c.Layers))
	for i, l := range c.Layers {
		out[i] = l.Block
	}
	return out
}

func (c *CompositeLayer) DestTiles() [][]imageio.ImageBlock {
	return [][]imageio.ImageBlock{c.Blocks()}
}

func (l *AnimationLayer) DestTiles() [][]imageio.ImageBlock {
	out := make([][]imageio.ImageBlock, len(l.Frames))
	for i, f := range l.Frames {
		out[i] = []imageio.ImageBlock{f.Block}
	}
	return out
}

// SquashCell squashes the layers of one cell. Layers below and above the
// player are handled independently and never reordered across it.
func SquashCell(layers []TileLayer, op Opacity) ([]SquashedLayer, error) {
	var below, above []TileLayer
	for _, l := range layers {
		switch {
		case l.Depth() < 0:
			below = append(below, l)
		case l.Depth() > 0:
			above = append(above, l)
		default:
			return nil, invariantErrorf("layer at player depth in cell stack")
		}
	}
	out, err := squashSide(below, op)
	if err != nil {
		return nil, err
	}
	top, err := squashSide(above, op)
	if err != nil {
		return nil, err
	}
	return append(out, top...), nil
}

func squashSide(layers []TileLayer, op Opacity) ([]SquashedLayer, error) {
	visible, err := removeRedundantLayers(layers, op)
	if err != nil {
		return nil, err
	}
	return squash(visible), nil
}

// removeRedundantLayers drops everything underneath the topmost fully
// opaque layer, then every fully transparent layer.
func removeRedundantLayers(layers []TileLayer, op Opacity) ([]TileLayer, error) {
	if len(layers) == 0 {
		return layers, nil
	}
	top := -1
	for i := len(layers) - 1; i >= 0; i-- {
		ok, err := layerOpaque(layers[i], op)
		if err != nil {
			return nil, err
		}
		if ok {
			top = i
			break
		}
	}
	if top > 0 {
		layers = layers[top:]
	}
	out := make([]TileLayer, 0, len(layers))
	for _, l := range layers {
		invisible, err := layerTransparent(l, op)
		if err != nil {
			return nil, err
		}
		if !invisible {
			out = append(out, l)
		}
	}
	return out, nil
}

// squash merges runs of static layers into composites. Animation layers break
// a run and stay on their own so their frames remain separate atlas entries.
func squash(layers []TileLayer) []SquashedLayer {
	var out []SquashedLayer
	var run []*StaticLayer
	flush := func() {
		if len(run) > 0 {
			out = append(out, &CompositeLayer{Layers: run})
			run = nil
		}
	}
	for _, l := range layers {
		switch l := l.(type) {
		case *StaticLayer:
			run = append(run, l)
		case *AnimationLayer:
			flush()
			out = append(out, l)
		}
	}
	flush()
	return out
}

func layerOpaque(l TileLayer, op Opacity) (bool, error) {
	return allBlocks(Blocks(l), op.IsFullyOpaque)
}

func layerTransparent(l TileLayer, op Opacity) (bool, error) {
	return allBlocks(Blocks(l), op.IsFullyTransparent)
}

func allBlocks(blocks []imageio.ImageBlock, pred func(imageio.ImageBlock) (bool, error)) (bool, error) {
	for _, b := range blocks {
		ok, err := pred(b)
		if err != nil {
			return false, wrapError(ErrResource, err, "read %s", b.Image)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
