package mapgen

import (
	"mapforge.ai/internal/gamemap"
	"mapforge.ai/internal/tiled"
)

// BlockerMap is a sparse passability map. Cells without an entry are
// passable.
type BlockerMap map[gamemap.GridCoordinate]int

func (b BlockerMap) Get(c gamemap.GridCoordinate) int {
	if v, ok := b[c]; ok {
		return v
	}
	return gamemap.NonBlocker
}

// ExtractBlockers reads the top-level layer named layerName. Every non-zero
// cell blocks movement. A map without that layer has no blockers.
func ExtractBlockers(m tiled.Map, layerName string) BlockerMap {
	out := BlockerMap{}
	for _, l := range m.Layers {
		if l.Name != layerName {
			continue
		}
		for i, gid := range l.Data {
			if gid == 0 {
				continue
			}
			x, y := m.Coordinate(i)
			out[gamemap.GridCoordinate{X: x, Y: y}] = gamemap.Blocker
		}
		break
	}
	return out
}
