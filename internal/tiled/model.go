// Package tiled reads the subset of the tile-editor JSON export the map
// compiler needs: layer grids, object layers and tilesets with animations.
package tiled

import "encoding/json"

const (
	TypeTileLayer   = "tilelayer"
	TypeObjectGroup = "objectgroup"
	TypeImageLayer  = "imagelayer"
	TypeGroup       = "group"
)

// Gid bits the editor uses for flipped and rotated tiles.
const (
	FlagFlippedHorizontally = 0x80000000
	FlagFlippedVertically   = 0x40000000
	FlagFlippedDiagonally   = 0x20000000
	FlagRotatedHex120       = 0x10000000

	flipMask = FlagFlippedHorizontally | FlagFlippedVertically | FlagFlippedDiagonally | FlagRotatedHex120
)

type Map struct {
	Width      int          `json:"width"`
	Height     int          `json:"height"`
	TileWidth  int          `json:"tilewidth"`
	TileHeight int          `json:"tileheight"`
	Infinite   bool         `json:"infinite"`
	Layers     []Layer      `json:"layers"`
	Tilesets   []TilesetRef `json:"tilesets"`
}

type Layer struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Visible     bool            `json:"visible"`
	Opacity     float64         `json:"opacity"`
	Width       int             `json:"width"`
	Height      int             `json:"height"`
	X           int             `json:"x"`
	Y           int             `json:"y"`
	DrawOrder   string          `json:"draworder,omitempty"`
	Encoding    string          `json:"encoding,omitempty"`
	Compression string          `json:"compression,omitempty"`
	RawData     json.RawMessage `json:"data,omitempty"`
	Layers      []Layer         `json:"layers,omitempty"`
	Objects     []Object        `json:"objects,omitempty"`
	Properties  []Property      `json:"properties,omitempty"`

	// Data holds the decoded global tile ids, row-major. 0 is "no tile".
	Data []uint32 `json:"-"`
}

type Object struct {
	ID         int        `json:"id"`
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	Class      string     `json:"class"`
	X          float64    `json:"x"`
	Y          float64    `json:"y"`
	Width      float64    `json:"width"`
	Height     float64    `json:"height"`
	Visible    bool       `json:"visible"`
	Properties []Property `json:"properties,omitempty"`
}

type Property struct {
	Name  string          `json:"name"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// TilesetRef is a map's tileset entry. Source points at an external tileset
// file; when empty the tileset fields are embedded in the entry itself.
type TilesetRef struct {
	FirstGID int    `json:"firstgid"`
	Source   string `json:"source,omitempty"`
	Tileset
}

type Tileset struct {
	Name        string `json:"name,omitempty"`
	TileWidth   int    `json:"tilewidth,omitempty"`
	TileHeight  int    `json:"tileheight,omitempty"`
	Image       string `json:"image,omitempty"`
	ImageWidth  int    `json:"imagewidth,omitempty"`
	ImageHeight int    `json:"imageheight,omitempty"`
	Columns     int    `json:"columns,omitempty"`
	TileCount   int    `json:"tilecount,omitempty"`
	Tiles       []Tile `json:"tiles,omitempty"`
}

type Tile struct {
	ID        int              `json:"id"`
	Animation []AnimationFrame `json:"animation,omitempty"`
}

type AnimationFrame struct {
	TileID   int `json:"tileid"`
	Duration int `json:"duration"`
}

// GridWidth is the number of tile columns in the tileset image.
func (t Tileset) GridWidth() int {
	if t.TileWidth <= 0 {
		return 0
	}
	return t.ImageWidth / t.TileWidth
}

// Animation returns the declared animation frames for a local tile id.
func (t Tileset) Animation(localID int) []AnimationFrame {
	for _, tile := range t.Tiles {
		if tile.ID == localID && len(tile.Animation) > 0 {
			return tile.Animation
		}
	}
	return nil
}

// LoadedTileset is a tileset together with its first global id and the
// resolved path of its image.
type LoadedTileset struct {
	Tileset
	FirstGID  int
	ImagePath string
}

// Source is a fully loaded export: the map plus its tilesets ordered by
// first global id.
type Source struct {
	Path     string
	Map      Map
	Tilesets []LoadedTileset
}

// Index returns the row-major cell index of (x, y).
func (m Map) Index(x, y int) int { return y*m.Width + x }

// Coordinate inverts Index.
func (m Map) Coordinate(i int) (x, y int) { return i % m.Width, i / m.Width }
