package mapgen

import (
	"strings"
	"testing"

	"mapforge.ai/internal/tiled"
)

var testNames = LayerNames{Player: "Player", Blockers: "Blockers", DynamicSprites: "DynamicSprites"}

func tileLayer(id int, name string) tiled.Layer {
	return tiled.Layer{ID: id, Name: name, Type: tiled.TypeTileLayer, Visible: true}
}

func TestClassifyLayers_DepthRelativeToPlayer(t *testing.T) {
	hidden := tileLayer(4, "Hidden")
	hidden.Visible = false
	layers := []tiled.Layer{
		tileLayer(1, "Ground"),
		{ID: 2, Name: "Decor", Type: tiled.TypeGroup, Visible: true, DrawOrder: "index", Layers: []tiled.Layer{tileLayer(3, "Flowers"), hidden}},
		tileLayer(5, "Player"),
		tileLayer(6, "Blockers"),
		{ID: 7, Name: "DynamicSprites", Type: tiled.TypeGroup, Visible: true, Layers: []tiled.Layer{tileLayer(11, "flag")}},
		tileLayer(8, "Roof"),
		{ID: 9, Name: "Objects", Type: tiled.TypeObjectGroup, Visible: true},
	}
	s, err := ClassifyLayers(layers, testNames)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}

	want := map[int]int{1: -2, 3: -1, 5: 0, 8: 1, 9: 2}
	if len(s.Layers) != len(want) {
		t.Fatalf("layers=%d want %d", len(s.Layers), len(want))
	}
	for id, d := range want {
		got, ok := s.Depth(id)
		if !ok || got != d {
			t.Fatalf("depth(%d)=%d,%v want %d", id, got, ok, d)
		}
	}
	for _, id := range []int{4, 6, 7, 11} {
		if _, ok := s.Depth(id); ok {
			t.Fatalf("layer %d should have been dropped", id)
		}
	}
	if s.Layers[1].DrawOrder != "index" {
		t.Fatalf("group child did not inherit draw order: %q", s.Layers[1].DrawOrder)
	}
	if got := s.TileLayers(); len(got) != 3 || got[0].Name != "Ground" || got[2].Name != "Roof" {
		t.Fatalf("tile layers=%v", got)
	}
	if got := s.ObjectLayers(); len(got) != 1 || got[0].ID != 9 {
		t.Fatalf("object layers=%v", got)
	}
}

func TestClassifyLayers_DuplicateIDs(t *testing.T) {
	_, err := ClassifyLayers([]tiled.Layer{tileLayer(1, "Ground"), tileLayer(1, "Water"), tileLayer(2, "Player")}, testNames)
	if CodeOf(err) != ErrConfig {
		t.Fatalf("expected %s, got %v", ErrConfig, err)
	}
	if !strings.Contains(err.Error(), "Ground,Water") {
		t.Fatalf("error does not name the layers: %v", err)
	}
}

func TestClassifyLayers_PlayerLayer(t *testing.T) {
	hidden := tileLayer(2, "Player")
	hidden.Visible = false
	cases := map[string][]tiled.Layer{
		"missing":   {tileLayer(1, "Ground")},
		"invisible": {tileLayer(1, "Ground"), hidden},
		"twice":     {tileLayer(1, "Player"), tileLayer(2, "Player")},
	}
	for name, layers := range cases {
		if _, err := ClassifyLayers(layers, testNames); CodeOf(err) != ErrConfig {
			t.Fatalf("%s: expected %s, got %v", name, ErrConfig, err)
		}
	}
}
