package tiled

import (
	"bytes"
	_ "embed"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalid marks exports that were read fine but do not describe a map the
// compiler accepts. Anything else returned by Load is an I/O failure.
var ErrInvalid = errors.New("invalid tile-editor export")

var (
	//go:embed schema/map.schema.json
	mapSchemaJSON string
	//go:embed schema/tileset.schema.json
	tilesetSchemaJSON string
)

const schemaBase = "https://mapforge.ai/schema/"

type schemas struct {
	mapSchema     *jsonschema.Schema
	tilesetSchema *jsonschema.Schema
}

var loadSchemas = sync.OnceValues(func() (schemas, error) {
	var s schemas
	var err error
	if s.mapSchema, err = compileSchema(schemaBase+"map.schema.json", mapSchemaJSON); err != nil {
		return s, err
	}
	if s.tilesetSchema, err = compileSchema(schemaBase+"tileset.schema.json", tilesetSchemaJSON); err != nil {
		return s, err
	}
	return s, nil
})

func compileSchema(url, src string) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, strings.NewReader(src)); err != nil {
		return nil, fmt.Errorf("schema %s: %w", url, err)
	}
	s, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", url, err)
	}
	return s, nil
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Load reads a map export and every tileset it references. Tileset sources
// and images resolve relative to the file that names them.
func Load(path string) (*Source, error) {
	sch, err := loadSchemas()
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := validate(sch.mapSchema, raw, filepath.Base(path)); err != nil {
		return nil, err
	}
	var m Map
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, invalidf("%s: %v", filepath.Base(path), err)
	}
	if m.Infinite {
		return nil, invalidf("%s: infinite maps are not supported", filepath.Base(path))
	}
	if err := decodeLayers(m.Layers, m.Width, m.Height); err != nil {
		return nil, err
	}

	src := &Source{Path: path, Map: m}
	dir := filepath.Dir(path)
	for _, ref := range m.Tilesets {
		ts, err := loadTileset(sch.tilesetSchema, dir, ref)
		if err != nil {
			return nil, err
		}
		src.Tilesets = append(src.Tilesets, ts)
	}
	sort.SliceStable(src.Tilesets, func(i, j int) bool { return src.Tilesets[i].FirstGID < src.Tilesets[j].FirstGID })
	for i := 1; i < len(src.Tilesets); i++ {
		if src.Tilesets[i].FirstGID == src.Tilesets[i-1].FirstGID {
			return nil, invalidf("tilesets %q and %q share firstgid %d", src.Tilesets[i-1].Name, src.Tilesets[i].Name, src.Tilesets[i].FirstGID)
		}
	}
	return src, nil
}

func validate(s *jsonschema.Schema, raw []byte, name string) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return invalidf("%s: %v", name, err)
	}
	if err := s.Validate(doc); err != nil {
		return invalidf("%s: %v", name, err)
	}
	return nil
}

func loadTileset(s *jsonschema.Schema, dir string, ref TilesetRef) (LoadedTileset, error) {
	out := LoadedTileset{FirstGID: ref.FirstGID}
	if ref.Source == "" {
		embedded, err := json.Marshal(ref.Tileset)
		if err != nil {
			return out, err
		}
		if err := validate(s, embedded, fmt.Sprintf("embedded tileset (firstgid=%d)", ref.FirstGID)); err != nil {
			return out, err
		}
		out.Tileset = ref.Tileset
		out.ImagePath = filepath.Join(dir, out.Image)
		return out, nil
	}

	path := filepath.Join(dir, ref.Source)
	raw, err := os.ReadFile(path)
	if err != nil {
		return out, err
	}
	if err := validate(s, raw, filepath.Base(path)); err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out.Tileset); err != nil {
		return out, invalidf("%s: %v", filepath.Base(path), err)
	}
	if out.Name == "" {
		out.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	out.ImagePath = filepath.Join(filepath.Dir(path), out.Image)
	return out, nil
}

func decodeLayers(layers []Layer, width, height int) error {
	for i := range layers {
		l := &layers[i]
		switch l.Type {
		case TypeTileLayer:
			data, err := decodeData(l)
			if err != nil {
				return invalidf("layer %q: %v", l.Name, err)
			}
			if len(data) != width*height {
				return invalidf("layer %q: %d cells, want %dx%d", l.Name, len(data), width, height)
			}
			for j, gid := range data {
				if gid&flipMask != 0 {
					x, y := j%width, j/width
					return invalidf("layer %q: flipped tile at (%d,%d) is not supported", l.Name, x, y)
				}
			}
			l.Data = data
		case TypeGroup:
			if err := decodeLayers(l.Layers, width, height); err != nil {
				return err
			}
		}
	}
	return nil
}

func decodeData(l *Layer) ([]uint32, error) {
	if len(l.RawData) == 0 {
		return nil, nil
	}
	if l.RawData[0] == '[' {
		var out []uint32
		if err := json.Unmarshal(l.RawData, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	if l.Encoding != "base64" {
		return nil, fmt.Errorf("string data with encoding %q", l.Encoding)
	}
	var s string
	if err := json.Unmarshal(l.RawData, &s); err != nil {
		return nil, err
	}
	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	b, err = decompress(l.Compression, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.Compression, err)
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("data length %d is not a multiple of 4", len(b))
	}
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return out, nil
}

func decompress(method string, b []byte) ([]byte, error) {
	switch method {
	case "":
		return b, nil
	case "zlib":
		r, err := zlib.NewReader(bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case "gzip":
		r, err := gzip.NewReader(bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case "zstd":
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(b, nil)
	default:
		return nil, fmt.Errorf("unknown compression %q", method)
	}
}
