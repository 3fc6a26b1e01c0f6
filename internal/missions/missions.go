// Package missions reads per-map mission specs and merges them into the
// single missions document shipped next to a compiled map.
package missions

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"mapforge.ai/internal/gamemap"
)

// Spec is one mission. Fields other than the ones named here are kept as-is
// and passed through to the output document.
type Spec struct {
	ID        string                  `yaml:"id"`
	Title     string                  `yaml:"title"`
	Map       string                  `yaml:"map"`
	Placement *gamemap.GridCoordinate `yaml:"-"`
	Extra     map[string]any          `yaml:",inline"`
}

func (s Spec) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Extra)+4)
	for k, v := range s.Extra {
		out[k] = jsonable(v)
	}
	out["id"] = s.ID
	out["map"] = s.Map
	if s.Title != "" {
		out["title"] = s.Title
	}
	if s.Placement != nil {
		out["placement"] = *s.Placement
	}
	return json.Marshal(out)
}

// Document is the merged output keyed by map id.
type Document map[string][]Spec

// Dir is the mission directory for mapID under a mission data root.
func Dir(root, mapID string) string {
	return filepath.Join(root, mapID, "missions")
}

// Read loads every *.yml / *.yaml file in dir, in name order. A file may hold
// several YAML documents. A missing directory means the map has no missions.
func Read(dir, mapID string) ([]Spec, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := strings.ToLower(filepath.Ext(e.Name())); ext == ".yml" || ext == ".yaml" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	var out []Spec
	seen := map[string]string{}
	for _, path := range files {
		specs, err := readFile(path)
		if err != nil {
			return nil, err
		}
		for _, s := range specs {
			name := filepath.Base(path)
			if s.ID == "" {
				return nil, fmt.Errorf("%w: %s: mission without id", ErrInvalid, name)
			}
			if prev, ok := seen[s.ID]; ok {
				return nil, fmt.Errorf("%w: mission %s defined in %s and %s", ErrInvalid, s.ID, prev, name)
			}
			seen[s.ID] = name
			if s.Map == "" {
				s.Map = mapID
			}
			if s.Map != mapID {
				return nil, fmt.Errorf("%w: %s: mission %s belongs to map %s, not %s", ErrInvalid, name, s.ID, s.Map, mapID)
			}
			out = append(out, s)
		}
	}
	return out, nil
}

// ErrInvalid marks mission files that were read but could not be accepted.
var ErrInvalid = errors.New("invalid mission spec")

func readFile(path string) ([]Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	var out []Spec
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, filepath.Base(path), err)
		}
		if emptyDocument(&doc) {
			continue
		}
		var s Spec
		if err := doc.Decode(&s); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, filepath.Base(path), err)
		}
		out = append(out, s)
	}
	return out, nil
}

// emptyDocument reports documents with no content, such as the one after a
// trailing "---" or a file holding only comments.
func emptyDocument(doc *yaml.Node) bool {
	if doc.Kind == 0 {
		return true
	}
	if doc.Kind != yaml.DocumentNode {
		return false
	}
	return len(doc.Content) == 0 || doc.Content[0].ShortTag() == "!!null"
}

// Merge folds the specs of one map into a document, attaching the grid
// position of each mission's placement object when the map has one.
func Merge(mapID string, specs []Spec, placements map[string]gamemap.GridCoordinate) Document {
	merged := make([]Spec, 0, len(specs))
	for _, s := range specs {
		if c, ok := placements[s.ID]; ok {
			c := c
			s.Placement = &c
		}
		merged = append(merged, s)
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].ID < merged[j].ID })
	return Document{mapID: merged}
}

// IDs returns the set of mission ids.
func IDs(specs []Spec) map[string]bool {
	out := make(map[string]bool, len(specs))
	for _, s := range specs {
		out[s.ID] = true
	}
	return out
}

// jsonable converts YAML-decoded values into types encoding/json accepts.
func jsonable(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = jsonable(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[fmt.Sprint(k)] = jsonable(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = jsonable(e)
		}
		return out
	default:
		return v
	}
}
