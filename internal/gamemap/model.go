// Package gamemap holds the runtime map document produced by the compiler and
// its compressed wire form.
package gamemap

import "encoding/json"

const (
	NonBlocker = 0
	Blocker    = 1
)

type GridCoordinate struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type GridSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s GridSize) Area() int { return s.Width * s.Height }

type PixelSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type PixelBlock struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type LayerType string

const (
	LayerStatic    LayerType = "static"
	LayerAnimation LayerType = "animation"
)

// TileLayer is one rendered layer of a map cell. Type selects which of
// Coordinate (static) or Frames (animation) is populated.
type TileLayer struct {
	Type       LayerType        `json:"type"`
	Coordinate *GridCoordinate  `json:"coordinate,omitempty"`
	Frames     []AnimationFrame `json:"frames,omitempty"`
	Layer      int              `json:"layer"`
}

type AnimationFrame struct {
	Coordinate GridCoordinate `json:"coordinate"`
	Duration   int            `json:"duration"`
}

func StaticLayer(c GridCoordinate, layer int) TileLayer {
	return TileLayer{Type: LayerStatic, Coordinate: &c, Layer: layer}
}

func AnimationLayer(frames []AnimationFrame, layer int) TileLayer {
	return TileLayer{Type: LayerAnimation, Frames: frames, Layer: layer}
}

type Tile struct {
	Layers  []TileLayer `json:"layers"`
	Blocker int         `json:"blocker"`
}

// DynamicSprite is a multi-cell decoration drawn separately from the tile grid.
// Frames is row-major; each cell lists the atlas coordinate of every frame.
type DynamicSprite struct {
	ID            string               `json:"id"`
	TopLeftCorner GridCoordinate       `json:"topLeftCorner"`
	Frames        [][][]GridCoordinate `json:"frames"`
}

const (
	ObjectPoint   = "point"
	ObjectMission = "mission"
)

type MapObject struct {
	ID         string                     `json:"id"`
	Type       string                     `json:"type"`
	Coordinate GridCoordinate             `json:"coordinate"`
	Size       GridSize                   `json:"size"`
	Layer      int                        `json:"layer"`
	Properties map[string]json.RawMessage `json:"properties,omitempty"`
}

// RawGameMap is the uncompressed map, tiles indexed [y][x].
type RawGameMap struct {
	ID             string          `json:"id"`
	Size           GridSize        `json:"size"`
	TileSize       PixelSize       `json:"tileSize"`
	Tiles          [][]Tile        `json:"tiles"`
	DynamicSprites []DynamicSprite `json:"dynamicSprites"`
	Objects        []MapObject     `json:"objects"`
}

// CompressedGameMap stores each distinct per-cell layer list once in
// ConstantPool and refers to it by index from the run-length encoded Tiles.
type CompressedGameMap struct {
	ID             string          `json:"id"`
	Size           GridSize        `json:"size"`
	TileSize       PixelSize       `json:"tileSize"`
	ConstantPool   [][][]int       `json:"constantPool"`
	Tiles          string          `json:"tiles"`
	Blockers       string          `json:"blockers"`
	DynamicSprites []DynamicSprite `json:"dynamicSprites"`
	Objects        []MapObject     `json:"objects"`
}
