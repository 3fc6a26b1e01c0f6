package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"

	"mapforge.ai/internal/gamemap"
	"mapforge.ai/internal/persistence/artifact"
	"mapforge.ai/internal/persistence/indexdb"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("mapinspect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		mapPath   = fs.String("map", "", "path to map.json or map.json.zst")
		indexPath = fs.String("index", "", "sqlite build index to list recent builds from (optional)")
		history   = fs.Int("history", 5, "number of recent builds to list with -index")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *mapPath == "" {
		fmt.Fprintln(stderr, "missing -map")
		return 2
	}

	m, raw, err := artifact.ReadCompressedMap(*mapPath)
	if err != nil {
		fmt.Fprintln(stderr, "read map:", err)
		return 1
	}
	dm, err := m.Decompress()
	if err != nil {
		fmt.Fprintln(stderr, "decompress:", err)
		return 1
	}

	s := summarize(dm)
	fmt.Fprintf(stdout, "map %s size=%dx%d tile=%dx%d bytes=%s pool=%d layers=%d animations=%d atlas_entries=%d blocked=%d sprites=%d objects=%d\n",
		m.ID, m.Size.Width, m.Size.Height, m.TileSize.Width, m.TileSize.Height, humanize.Bytes(uint64(len(raw))),
		len(m.ConstantPool), s.layers, s.animations, s.entries, s.blocked, len(m.DynamicSprites), len(m.Objects))

	again, err := gamemap.MarshalVerified(m)
	if err != nil {
		fmt.Fprintln(stderr, "round trip:", err)
		return 1
	}
	if !bytes.Equal(again, raw) {
		fmt.Fprintf(stderr, "round trip: re-encoded map differs from file (%d vs %d bytes)\n", len(again), len(raw))
		return 1
	}
	fmt.Fprintln(stdout, "round trip ok")

	if *indexPath == "" {
		return 0
	}
	idx, err := indexdb.OpenSQLite(*indexPath)
	if err != nil {
		fmt.Fprintln(stderr, "open index:", err)
		return 1
	}
	defer idx.Close()
	builds, err := idx.Builds(context.Background(), m.ID, *history)
	if err != nil {
		fmt.Fprintln(stderr, "list builds:", err)
		return 1
	}
	for _, b := range builds {
		fmt.Fprintf(stdout, "build %s at=%s entries=%d atlas=%dx%d sprites=%d missions=%d (%s)\n",
			b.ID, b.BuiltAt.Format("2006-01-02T15:04:05Z07:00"), b.Entries, b.AtlasW, b.AtlasH, b.Sprites, b.Missions,
			humanize.Time(b.BuiltAt))
	}
	return 0
}

type summary struct {
	layers     int
	animations int
	entries    int
	blocked    int
}

// summarize counts layers and the distinct atlas cells the map references.
func summarize(m gamemap.RawGameMap) summary {
	var s summary
	seen := map[gamemap.GridCoordinate]bool{}
	for _, row := range m.Tiles {
		for _, t := range row {
			if t.Blocker == gamemap.Blocker {
				s.blocked++
			}
			for _, l := range t.Layers {
				s.layers++
				switch l.Type {
				case gamemap.LayerStatic:
					seen[*l.Coordinate] = true
				case gamemap.LayerAnimation:
					s.animations++
					for _, f := range l.Frames {
						seen[f.Coordinate] = true
					}
				}
			}
		}
	}
	for _, sp := range m.DynamicSprites {
		for _, row := range sp.Frames {
			for _, cell := range row {
				for _, c := range cell {
					seen[c] = true
				}
			}
		}
	}
	s.entries = len(seen)
	return s
}
