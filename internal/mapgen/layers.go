package mapgen

import (
	"sort"
	"strings"

	"mapforge.ai/internal/tiled"
)

// LayerNames are the layer names with special meaning to the compiler.
type LayerNames struct {
	Player         string
	Blockers       string
	DynamicSprites string
}

// LayerStack is the render stack after flattening groups and dropping
// non-render layers. Depth is relative to the player layer: negative below,
// positive above, 0 for the player layer itself.
type LayerStack struct {
	Layers      []tiled.Layer
	PlayerIndex int
	depth       map[int]int
	player      string
}

// ClassifyLayers flattens one level of groups, drops invisible, blocker and
// dynamic sprite layers and assigns every surviving layer its depth.
func ClassifyLayers(layers []tiled.Layer, names LayerNames) (*LayerStack, error) {
	var flat []tiled.Layer
	for _, l := range layers {
		if l.Name == names.Blockers || l.Name == names.DynamicSprites || !l.Visible {
			continue
		}
		switch l.Type {
		case tiled.TypeTileLayer:
			flat = append(flat, l)
		case tiled.TypeGroup:
			for _, child := range l.Layers {
				if !child.Visible || child.Name == names.Blockers || child.Name == names.DynamicSprites {
					continue
				}
				child.DrawOrder = l.DrawOrder
				flat = append(flat, child)
			}
		default:
			flat = append(flat, l)
		}
	}

	byID := map[int][]string{}
	for _, l := range flat {
		byID[l.ID] = append(byID[l.ID], l.Name)
	}
	var dups []string
	for _, ls := range byID {
		if len(ls) > 1 {
			dups = append(dups, strings.Join(ls, ","))
		}
	}
	if len(dups) > 0 {
		sort.Strings(dups)
		return nil, configErrorf("multiple layers with the same id: %s", strings.Join(dups, "; "))
	}

	player := -1
	for i, l := range flat {
		if l.Name != names.Player {
			continue
		}
		if player != -1 {
			return nil, configErrorf("more than one layer named %q", names.Player)
		}
		player = i
	}
	if player == -1 {
		return nil, configErrorf("you must have a visible layer named %q", names.Player)
	}

	s := &LayerStack{Layers: flat, PlayerIndex: player, depth: make(map[int]int, len(flat)), player: names.Player}
	for i, l := range flat {
		s.depth[l.ID] = i - player
	}
	return s, nil
}

// Depth returns the depth of the layer with the given id.
func (s *LayerStack) Depth(layerID int) (int, bool) {
	d, ok := s.depth[layerID]
	return d, ok
}

// TileLayers returns the tile layers that contribute to cells, bottom to top.
// The player layer is not one of them.
func (s *LayerStack) TileLayers() []tiled.Layer {
	var out []tiled.Layer
	for _, l := range s.Layers {
		if l.Type == tiled.TypeTileLayer && l.Name != s.player {
			out = append(out, l)
		}
	}
	return out
}

// ObjectLayers returns the visible object groups in stack order.
func (s *LayerStack) ObjectLayers() []tiled.Layer {
	var out []tiled.Layer
	for _, l := range s.Layers {
		if l.Type == tiled.TypeObjectGroup {
			out = append(out, l)
		}
	}
	return out
}
