package mapgen

import (
	"mapforge.ai/internal/gamemap"
	"mapforge.ai/internal/imageio"
	"mapforge.ai/internal/tiled"
)

// DynamicSpriteData is a sprite's top-left cell and its row-major frame
// matrix. Each cell lists one block per animation frame, or a single block
// for a static tile.
type DynamicSpriteData struct {
	Name          string
	TopLeftCorner gamemap.GridCoordinate
	Frames        [][][]imageio.ImageBlock
}

// ExtractDynamicSprites reads every tile layer inside the top-level group
// named groupName. Each frame block is registered in idx on its own so
// sprite frames stay individually addressable.
func ExtractDynamicSprites(m tiled.Map, groupName string, maxFootprint int, r *Resolver, idx *DedupIndex) ([]DynamicSpriteData, error) {
	var group *tiled.Layer
	for i := range m.Layers {
		if m.Layers[i].Type == tiled.TypeGroup && m.Layers[i].Name == groupName {
			group = &m.Layers[i]
			break
		}
	}
	if group == nil {
		return nil, nil
	}

	seen := map[string]bool{}
	var out []DynamicSpriteData
	for _, l := range group.Layers {
		if l.Type != tiled.TypeTileLayer {
			continue
		}
		if seen[l.Name] {
			return nil, configErrorf("dynamic sprite %q declared twice", l.Name)
		}
		seen[l.Name] = true
		sprite, err := extractSprite(m, l, maxFootprint, r, idx)
		if err != nil {
			return nil, err
		}
		out = append(out, sprite)
	}
	return out, nil
}

func extractSprite(m tiled.Map, l tiled.Layer, maxFootprint int, r *Resolver, idx *DedupIndex) (DynamicSpriteData, error) {
	first, last := -1, -1
	for i, gid := range l.Data {
		if gid == 0 {
			continue
		}
		if first == -1 {
			first = i
		}
		last = i
	}
	if first == -1 {
		return DynamicSpriteData{}, configErrorf("dynamic sprite %q has no tiles", l.Name)
	}
	fx, fy := m.Coordinate(first)
	lx, ly := m.Coordinate(last)
	x0, x1 := min(fx, lx), max(fx, lx)
	width, height := x1-x0+1, ly-fy+1
	if width > maxFootprint || height > maxFootprint {
		return DynamicSpriteData{}, configErrorf("dynamic sprite %q at (%d,%d): width/height %d/%d exceeds %dx%d",
			l.Name, x0, fy, width, height, maxFootprint, maxFootprint)
	}

	sprite := DynamicSpriteData{
		Name:          l.Name,
		TopLeftCorner: gamemap.GridCoordinate{X: x0, Y: fy},
		Frames:        make([][][]imageio.ImageBlock, 0, height),
	}
	for y := fy; y <= ly; y++ {
		row := make([][]imageio.ImageBlock, 0, width)
		for x := x0; x <= x1; x++ {
			gid := l.Data[m.Index(x, y)]
			if gid == 0 {
				row = append(row, []imageio.ImageBlock{})
				continue
			}
			layer, err := r.Resolve(gid, 0)
			if err != nil {
				return DynamicSpriteData{}, err
			}
			blocks := Blocks(layer)
			for _, b := range blocks {
				idx.Register([]imageio.ImageBlock{b})
			}
			row = append(row, blocks)
		}
		sprite.Frames = append(sprite.Frames, row)
	}
	return sprite, nil
}

// ToGameMap resolves every frame block to its atlas coordinate.
func (s DynamicSpriteData) ToGameMap(idx *DedupIndex, layout AtlasLayout) (gamemap.DynamicSprite, error) {
	out := gamemap.DynamicSprite{
		ID:            s.Name,
		TopLeftCorner: s.TopLeftCorner,
		Frames:        make([][][]gamemap.GridCoordinate, len(s.Frames)),
	}
	for y, row := range s.Frames {
		out.Frames[y] = make([][]gamemap.GridCoordinate, len(row))
		for x, blocks := range row {
			coords := make([]gamemap.GridCoordinate, 0, len(blocks))
			for _, b := range blocks {
				i, ok := idx.Lookup([]imageio.ImageBlock{b})
				if !ok {
					return gamemap.DynamicSprite{}, invariantErrorf("dynamic sprite %q: block %v was never registered", s.Name, b)
				}
				coords = append(coords, layout.Coordinate(i))
			}
			out.Frames[y][x] = coords
		}
	}
	return out, nil
}
