package mapgen

import (
	"encoding/json"
	"fmt"
	"math"

	"mapforge.ai/internal/gamemap"
	"mapforge.ai/internal/tiled"
)

// ReadObjects converts the objects of every visible object group into map
// objects positioned on the tile grid. Objects named after a mission are
// typed as mission objects and must be unique.
func ReadObjects(stack *LayerStack, tile gamemap.PixelSize, missionIDs map[string]bool) ([]gamemap.MapObject, error) {
	out := []gamemap.MapObject{}
	placed := map[string]string{}
	for _, l := range stack.ObjectLayers() {
		depth, _ := stack.Depth(l.ID)
		for _, o := range l.Objects {
			obj := gamemap.MapObject{
				ID:   o.Name,
				Type: objectType(o),
				Coordinate: gamemap.GridCoordinate{
					X: int(o.X) / tile.Width,
					Y: int(o.Y) / tile.Height,
				},
				Size: gamemap.GridSize{
					Width:  int(math.Ceil(o.Width / float64(tile.Width))),
					Height: int(math.Ceil(o.Height / float64(tile.Height))),
				},
				Layer:      depth,
				Properties: objectProperties(o.Properties),
			}
			if obj.ID == "" {
				obj.ID = fmt.Sprintf("%s-%d", l.Name, o.ID)
			}
			if missionIDs[obj.ID] {
				if prev, dup := placed[obj.ID]; dup {
					return nil, configErrorf("mission object %q placed twice (layers %q and %q)", obj.ID, prev, l.Name)
				}
				placed[obj.ID] = l.Name
				obj.Type = gamemap.ObjectMission
			}
			out = append(out, obj)
		}
	}
	return out, nil
}

func objectType(o tiled.Object) string {
	switch {
	case o.Type != "":
		return o.Type
	case o.Class != "":
		return o.Class
	default:
		return gamemap.ObjectPoint
	}
}

func objectProperties(props []tiled.Property) map[string]json.RawMessage {
	if len(props) == 0 {
		return nil
	}
	out := make(map[string]json.RawMessage, len(props))
	for _, p := range props {
		if len(p.Value) == 0 {
			out[p.Name] = json.RawMessage("null")
			continue
		}
		out[p.Name] = p.Value
	}
	return out
}

// Placements maps mission object ids to their grid coordinates.
func Placements(objects []gamemap.MapObject) map[string]gamemap.GridCoordinate {
	out := map[string]gamemap.GridCoordinate{}
	for _, o := range objects {
		if o.Type == gamemap.ObjectMission {
			out[o.ID] = o.Coordinate
		}
	}
	return out
}
