package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"mapforge.ai/internal/gamemap"
	"mapforge.ai/internal/persistence/artifact"
)

func writeMap(t *testing.T, dir string) (string, string) {
	t.Helper()
	c1, c2 := gamemap.GridCoordinate{X: 1, Y: 0}, gamemap.GridCoordinate{X: 0, Y: 1}
	raw := gamemap.RawGameMap{
		ID:       "town",
		Size:     gamemap.GridSize{Width: 2, Height: 1},
		TileSize: gamemap.PixelSize{Width: 32, Height: 32},
		Tiles: [][]gamemap.Tile{{
			{Layers: []gamemap.TileLayer{gamemap.StaticLayer(c1, -1)}, Blocker: gamemap.Blocker},
			{Layers: []gamemap.TileLayer{gamemap.AnimationLayer([]gamemap.AnimationFrame{{Coordinate: c1, Duration: 80}, {Coordinate: c2, Duration: 80}}, 1)}},
		}},
		DynamicSprites: []gamemap.DynamicSprite{},
		Objects:        []gamemap.MapObject{},
	}
	c, err := raw.Compress()
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	b, err := gamemap.MarshalVerified(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	plain := filepath.Join(dir, "map.json")
	if err := artifact.WriteFile(plain, b); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := artifact.WriteZstd(plain+artifact.ZstdSuffix, b); err != nil {
		t.Fatalf("write zstd: %v", err)
	}
	return plain, plain + artifact.ZstdSuffix
}

func TestRun_SummarizesAndVerifies(t *testing.T) {
	plain, packed := writeMap(t, t.TempDir())
	for _, p := range []string{plain, packed} {
		var stdout, stderr bytes.Buffer
		if code := run([]string{"-map", p}, &stdout, &stderr); code != 0 {
			t.Fatalf("%s: exit=%d stderr=%s", filepath.Base(p), code, stderr.String())
		}
		out := stdout.String()
		for _, want := range []string{"map town", "size=2x1", "animations=1", "atlas_entries=2", "blocked=1", "round trip ok"} {
			if !strings.Contains(out, want) {
				t.Fatalf("%s: output %q lacks %q", filepath.Base(p), out, want)
			}
		}
	}
}

func TestRun_ReportsNonCanonicalFile(t *testing.T) {
	dir := t.TempDir()
	plain, _ := writeMap(t, dir)
	m, raw, err := artifact.ReadCompressedMap(plain)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	// Same map, different bytes: indented JSON is not the canonical encoding.
	pretty := filepath.Join(dir, "pretty.json")
	if err := artifact.WriteJSON(pretty, m, true); err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(raw) == 0 {
		t.Fatalf("empty map file")
	}
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-map", pretty}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit=%d want 1", code)
	}
	if !strings.Contains(stderr.String(), "round trip") {
		t.Fatalf("stderr=%q", stderr.String())
	}
}

func TestRun_MissingFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(nil, &stdout, &stderr); code != 2 {
		t.Fatalf("exit=%d want 2", code)
	}
}
