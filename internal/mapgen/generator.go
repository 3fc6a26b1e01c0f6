package mapgen

import (
	"errors"
	"io"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"mapforge.ai/internal/config"
	"mapforge.ai/internal/gamemap"
	"mapforge.ai/internal/imageio"
	"mapforge.ai/internal/missions"
	"mapforge.ai/internal/persistence/artifact"
	"mapforge.ai/internal/tiled"
)

type Options struct {
	MapID        string
	TiledMapPath string
	MissionRoot  string
	OutputDir    string
	Config       config.Config

	// Logger defaults to a logger that discards everything.
	Logger logrus.FieldLogger
}

// Generator compiles one map. It is single use: a second Generate call
// fails with ErrGeneratorUsed.
type Generator struct {
	opts  Options
	cfg   config.Config
	log   logrus.FieldLogger
	src   *tiled.Source
	stack *LayerStack
	used  bool
}

// OutputFile names a file written by a run.
type OutputFile struct {
	Name string
	Path string
}

type Result struct {
	MapID    string
	Cells    int
	Entries  int
	Atlas    gamemap.GridSize
	Sprites  int
	Objects  int
	Missions int
	Files    []OutputFile
	Map      gamemap.CompressedGameMap
}

// New loads the tile-editor export and classifies its layers. Nothing is
// written until Generate.
func New(opts Options) (*Generator, error) {
	switch {
	case opts.MapID == "":
		return nil, usageErrorf("empty map id")
	case opts.TiledMapPath == "":
		return nil, usageErrorf("empty tile-editor map path")
	case opts.OutputDir == "":
		return nil, usageErrorf("empty output directory")
	}
	cfg := opts.Config
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, wrapError(ErrConfig, err, "config")
	}
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	log = log.WithField("map", opts.MapID)

	src, err := tiled.Load(opts.TiledMapPath)
	if err != nil {
		if errors.Is(err, tiled.ErrInvalid) {
			return nil, wrapError(ErrConfig, err, "load %s", opts.TiledMapPath)
		}
		return nil, wrapError(ErrResource, err, "load %s", opts.TiledMapPath)
	}
	stack, err := ClassifyLayers(src.Map.Layers, LayerNames{
		Player:         cfg.PlayerLayer,
		Blockers:       cfg.BlockersLayer,
		DynamicSprites: cfg.DynamicSpritesGroup,
	})
	if err != nil {
		return nil, err
	}
	for _, l := range stack.Layers {
		d, _ := stack.Depth(l.ID)
		log.WithFields(logrus.Fields{"layer": l.Name, "type": l.Type, "depth": d}).Debug("classified layer")
	}
	log.WithFields(logrus.Fields{
		"size":     humanizeGrid(src.Map.Width, src.Map.Height),
		"layers":   len(stack.Layers),
		"tilesets": len(src.Tilesets),
	}).Info("loaded map")

	return &Generator{opts: opts, cfg: cfg, log: log, src: src, stack: stack}, nil
}

// Generate runs the whole pipeline and writes the atlas, the compressed map,
// its zstd copy, the raw map in dev mode and the missions document.
func (g *Generator) Generate() (*Result, error) {
	if g.used {
		return nil, ErrGeneratorUsed
	}
	g.used = true

	images, err := imageio.NewReader(int64(g.cfg.ImageCacheMB) << 20)
	if err != nil {
		return nil, wrapError(ErrResource, err, "image cache")
	}
	defer images.Close()

	m := g.src.Map
	resolver := NewResolver(g.src.Tilesets)
	idx := NewDedupIndex()

	blockers := ExtractBlockers(m, g.cfg.BlockersLayer)
	g.log.WithField("blocked", len(blockers)).Info("extracted blockers")

	cells, err := g.squashCells(resolver, images, idx)
	if err != nil {
		return nil, err
	}
	g.log.WithFields(logrus.Fields{"cells": m.Width * m.Height, "entries": idx.Len()}).Info("squashed cells")

	sprites, err := ExtractDynamicSprites(m, g.cfg.DynamicSpritesGroup, g.cfg.MaxSpriteFootprint, resolver, idx)
	if err != nil {
		return nil, err
	}

	layout, err := ComputeLayout(idx.Len(), gamemap.PixelSize{Width: g.cfg.DestTileWidth(), Height: g.cfg.DestTileHeight()})
	if err != nil {
		return nil, err
	}
	atlas, err := Rasterize(idx, layout, images)
	if err != nil {
		return nil, err
	}
	g.log.WithFields(logrus.Fields{
		"entries": idx.Len(),
		"atlas":   humanizeGrid(layout.Grid.Width, layout.Grid.Height),
		"sprites": len(sprites),
		"decodes": images.Decodes(),
	}).Info("packed atlas")

	specs, err := missions.Read(missions.Dir(g.opts.MissionRoot, g.opts.MapID), g.opts.MapID)
	if err != nil {
		if errors.Is(err, missions.ErrInvalid) {
			return nil, wrapError(ErrConfig, err, "missions")
		}
		return nil, wrapError(ErrResource, err, "missions")
	}
	objects, err := ReadObjects(g.stack, gamemap.PixelSize{Width: m.TileWidth, Height: m.TileHeight}, missions.IDs(specs))
	if err != nil {
		return nil, err
	}

	raw, err := g.buildRawMap(cells, blockers, sprites, objects, idx, layout)
	if err != nil {
		return nil, err
	}
	compressed, err := raw.Compress()
	if err != nil {
		return nil, wrapError(ErrInvariant, err, "compress")
	}
	mapJSON, err := gamemap.MarshalVerified(compressed)
	if err != nil {
		if errors.Is(err, gamemap.ErrRoundTrip) {
			return nil, wrapError(ErrInvariant, err, "map %s", g.opts.MapID)
		}
		return nil, wrapError(ErrInvariant, err, "encode map")
	}

	res := &Result{
		MapID:    g.opts.MapID,
		Cells:    m.Width * m.Height,
		Entries:  idx.Len(),
		Atlas:    layout.Grid,
		Sprites:  len(sprites),
		Objects:  len(objects),
		Missions: len(specs),
		Map:      compressed,
	}
	out := g.cfg.Outputs
	write := func(name, file string, fn func(path string) error) error {
		path := filepath.Join(g.opts.OutputDir, file)
		if err := fn(path); err != nil {
			return wrapError(ErrResource, err, "write %s", path)
		}
		res.Files = append(res.Files, OutputFile{Name: name, Path: path})
		return nil
	}

	if err := write("atlas", out.Atlas, func(p string) error { return artifact.WritePNG(p, atlas) }); err != nil {
		return nil, err
	}
	if err := write("map", out.Map, func(p string) error { return artifact.WriteFile(p, mapJSON) }); err != nil {
		return nil, err
	}
	if out.Zstd {
		if err := write("map_zstd", out.Map+artifact.ZstdSuffix, func(p string) error { return artifact.WriteZstd(p, mapJSON) }); err != nil {
			return nil, err
		}
	}
	if g.cfg.Dev {
		if err := write("raw_map", out.RawMap, func(p string) error { return artifact.WriteJSON(p, raw, true) }); err != nil {
			return nil, err
		}
	}
	doc := missions.Merge(g.opts.MapID, specs, Placements(objects))
	if err := write("missions", out.Missions, func(p string) error { return artifact.WriteJSON(p, doc, g.cfg.Dev) }); err != nil {
		return nil, err
	}

	g.log.WithFields(logrus.Fields{
		"map_bytes": humanize.Bytes(uint64(len(mapJSON))),
		"pool":      len(compressed.ConstantPool),
		"objects":   len(objects),
		"missions":  len(specs),
		"out":       g.opts.OutputDir,
	}).Info("wrote map")
	return res, nil
}

// squashCells resolves and squashes every cell, row-major, registering the
// dest tiles of each squashed layer as it goes.
func (g *Generator) squashCells(r *Resolver, op Opacity, idx *DedupIndex) ([][][]SquashedLayer, error) {
	m := g.src.Map
	tileLayers := g.stack.TileLayers()
	depths := make([]int, len(tileLayers))
	for i, l := range tileLayers {
		depths[i], _ = g.stack.Depth(l.ID)
	}

	cells := make([][][]SquashedLayer, m.Height)
	for y := 0; y < m.Height; y++ {
		cells[y] = make([][]SquashedLayer, m.Width)
		for x := 0; x < m.Width; x++ {
			var stack []TileLayer
			for i, l := range tileLayers {
				gid := l.Data[m.Index(x, y)]
				if gid == 0 {
					continue
				}
				tl, err := r.Resolve(gid, depths[i])
				if err != nil {
					return nil, err
				}
				stack = append(stack, tl)
			}
			squashed, err := SquashCell(stack, op)
			if err != nil {
				return nil, err
			}
			for _, s := range squashed {
				for _, dt := range s.DestTiles() {
					idx.Register(dt)
				}
			}
			cells[y][x] = squashed
		}
	}
	return cells, nil
}

func (g *Generator) buildRawMap(cells [][][]SquashedLayer, blockers BlockerMap, sprites []DynamicSpriteData,
	objects []gamemap.MapObject, idx *DedupIndex, layout AtlasLayout) (gamemap.RawGameMap, error) {
	m := g.src.Map
	raw := gamemap.RawGameMap{
		ID:             g.opts.MapID,
		Size:           gamemap.GridSize{Width: m.Width, Height: m.Height},
		TileSize:       layout.TileSize,
		Tiles:          make([][]gamemap.Tile, m.Height),
		DynamicSprites: make([]gamemap.DynamicSprite, 0, len(sprites)),
		Objects:        objects,
	}
	for y, row := range cells {
		raw.Tiles[y] = make([]gamemap.Tile, m.Width)
		for x, squashed := range row {
			c := gamemap.GridCoordinate{X: x, Y: y}
			layers := make([]gamemap.TileLayer, 0, len(squashed))
			for _, s := range squashed {
				l, err := outputLayer(s, c, idx, layout)
				if err != nil {
					return raw, err
				}
				layers = append(layers, l)
			}
			raw.Tiles[y][x] = gamemap.Tile{Layers: layers, Blocker: blockers.Get(c)}
		}
	}
	for _, s := range sprites {
		ds, err := s.ToGameMap(idx, layout)
		if err != nil {
			return raw, err
		}
		raw.DynamicSprites = append(raw.DynamicSprites, ds)
	}
	return raw, nil
}

// outputLayer renders a squashed layer to its atlas coordinates. All frames
// of an animation must share one duration.
func outputLayer(s SquashedLayer, c gamemap.GridCoordinate, idx *DedupIndex, layout AtlasLayout) (gamemap.TileLayer, error) {
	switch s := s.(type) {
	case *CompositeLayer:
		i, ok := idx.Lookup(s.Blocks())
		if !ok {
			return gamemap.TileLayer{}, invariantErrorf("cell (%d,%d): composite was never registered", c.X, c.Y)
		}
		return gamemap.StaticLayer(layout.Coordinate(i), s.Depth()), nil
	case *AnimationLayer:
		frames := make([]gamemap.AnimationFrame, 0, len(s.Frames))
		for _, f := range s.Frames {
			if f.Duration != s.Frames[0].Duration {
				return gamemap.TileLayer{}, configErrorf("cell (%d,%d) layer %d: animation frames have different durations (%d and %d)",
					c.X, c.Y, s.Depth(), s.Frames[0].Duration, f.Duration)
			}
			i, ok := idx.Lookup([]imageio.ImageBlock{f.Block})
			if !ok {
				return gamemap.TileLayer{}, invariantErrorf("cell (%d,%d): animation frame %v was never registered", c.X, c.Y, f.Block)
			}
			frames = append(frames, gamemap.AnimationFrame{Coordinate: layout.Coordinate(i), Duration: f.Duration})
		}
		return gamemap.AnimationLayer(frames, s.Depth()), nil
	default:
		return gamemap.TileLayer{}, invariantErrorf("cell (%d,%d): unknown squashed layer %T", c.X, c.Y, s)
	}
}

func humanizeGrid(w, h int) string {
	return humanize.Comma(int64(w)) + "x" + humanize.Comma(int64(h))
}
