package mapgen

import (
	"testing"

	"mapforge.ai/internal/imageio"
)

var testOpacity = fakeOpacity{
	opaque:      map[string]bool{"opaque": true, "opaque2": true},
	transparent: map[string]bool{"clear": true},
}

func static(img string, depth int) *StaticLayer {
	return &StaticLayer{depth: depth, Block: block(img, 0, 0)}
}

func anim(depth int, imgs ...string) *AnimationLayer {
	a := &AnimationLayer{depth: depth}
	for _, img := range imgs {
		a.Frames = append(a.Frames, AnimationFrame{Block: block(img, 0, 0), Duration: 100})
	}
	return a
}

func images(blocks []imageio.ImageBlock) []string {
	out := make([]string, len(blocks))
	for i, b := range blocks {
		out[i] = b.Image
	}
	return out
}

func assertComposite(t *testing.T, l SquashedLayer, depth int, want ...string) {
	t.Helper()
	c, ok := l.(*CompositeLayer)
	if !ok {
		t.Fatalf("got %T want *CompositeLayer", l)
	}
	got := images(c.Blocks())
	if c.Depth() != depth || len(got) != len(want) {
		t.Fatalf("got depth=%d images=%v want depth=%d images=%v", c.Depth(), got, depth, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got images=%v want %v", got, want)
		}
	}
}

func TestSquashCell_OpaqueLayerHidesEverythingBelow(t *testing.T) {
	out, err := SquashCell([]TileLayer{static("semi", -3), static("opaque", -2), static("semi2", -1)}, testOpacity)
	if err != nil {
		t.Fatalf("squash: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("layers=%d want 1", len(out))
	}
	assertComposite(t, out[0], -2, "opaque", "semi2")
}

func TestSquashCell_TopmostOpaqueWins(t *testing.T) {
	out, err := SquashCell([]TileLayer{static("opaque", -3), static("semi", -2), static("opaque2", -1)}, testOpacity)
	if err != nil {
		t.Fatalf("squash: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("layers=%d want 1", len(out))
	}
	assertComposite(t, out[0], -1, "opaque2")
}

func TestSquashCell_DropsTransparentLayers(t *testing.T) {
	out, err := SquashCell([]TileLayer{static("clear", -2), static("semi", -1), static("clear", 1)}, testOpacity)
	if err != nil {
		t.Fatalf("squash: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("layers=%d want 1", len(out))
	}
	assertComposite(t, out[0], -1, "semi")
}

func TestSquashCell_AnimationBreaksRun(t *testing.T) {
	a := anim(-2, "frame1", "frame2")
	out, err := SquashCell([]TileLayer{static("semi", -4), static("semi2", -3), a, static("semi3", -1)}, testOpacity)
	if err != nil {
		t.Fatalf("squash: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("layers=%d want 3", len(out))
	}
	assertComposite(t, out[0], -4, "semi", "semi2")
	if out[1] != SquashedLayer(a) {
		t.Fatalf("animation layer not kept standalone: %T", out[1])
	}
	if got := out[1].DestTiles(); len(got) != 2 || len(got[0]) != 1 || len(got[1]) != 1 {
		t.Fatalf("animation dest tiles=%v", got)
	}
	assertComposite(t, out[2], -1, "semi3")
}

func TestSquashCell_NeverMergesAcrossPlayer(t *testing.T) {
	out, err := SquashCell([]TileLayer{static("semi", -1), static("opaque", 1), static("semi2", 2)}, testOpacity)
	if err != nil {
		t.Fatalf("squash: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("layers=%d want 2", len(out))
	}
	assertComposite(t, out[0], -1, "semi")
	assertComposite(t, out[1], 1, "opaque", "semi2")
}

func TestSquashCell_OpaqueAboveDoesNotHideBelow(t *testing.T) {
	out, err := SquashCell([]TileLayer{static("semi", -2), static("semi2", -1), static("opaque", 1)}, testOpacity)
	if err != nil {
		t.Fatalf("squash: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("layers=%d want 2", len(out))
	}
	assertComposite(t, out[0], -2, "semi", "semi2")
	assertComposite(t, out[1], 1, "opaque")
}

func TestSquashCell_PlayerDepthIsInvariantViolation(t *testing.T) {
	if _, err := SquashCell([]TileLayer{static("semi", 0)}, testOpacity); CodeOf(err) != ErrInvariant {
		t.Fatalf("expected %s, got %v", ErrInvariant, err)
	}
}

func TestSquashCell_Empty(t *testing.T) {
	out, err := SquashCell(nil, testOpacity)
	if err != nil || len(out) != 0 {
		t.Fatalf("got %v, %v", out, err)
	}
}
