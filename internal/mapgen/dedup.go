package mapgen

import (
	"strconv"
	"strings"

	"mapforge.ai/internal/imageio"
)

// DedupIndex assigns each distinct ordered list of image blocks a canonical
// index in first-seen order. Index 0 is reserved; the first entry is 1.
type DedupIndex struct {
	byKey   map[string]int
	entries [][]imageio.ImageBlock
}

func NewDedupIndex() *DedupIndex {
	return &DedupIndex{
		byKey:   map[string]int{},
		entries: [][]imageio.ImageBlock{nil},
	}
}

// Register returns the index of blocks, adding it if unseen. Lists are equal
// when they hold equal blocks in the same order.
func (d *DedupIndex) Register(blocks []imageio.ImageBlock) int {
	key := contentKey(blocks)
	if i, ok := d.byKey[key]; ok {
		return i
	}
	i := len(d.entries)
	d.byKey[key] = i
	d.entries = append(d.entries, append([]imageio.ImageBlock(nil), blocks...))
	return i
}

func (d *DedupIndex) Lookup(blocks []imageio.ImageBlock) (int, bool) {
	i, ok := d.byKey[contentKey(blocks)]
	return i, ok
}

// Len is the number of registered entries, excluding the reserved slot.
func (d *DedupIndex) Len() int { return len(d.entries) - 1 }

// Each visits entries in index order.
func (d *DedupIndex) Each(fn func(index int, blocks []imageio.ImageBlock) error) error {
	for i := 1; i < len(d.entries); i++ {
		if err := fn(i, d.entries[i]); err != nil {
			return err
		}
	}
	return nil
}

func contentKey(blocks []imageio.ImageBlock) string {
	var b strings.Builder
	for _, blk := range blocks {
		b.WriteString(strconv.Quote(blk.Image))
		for _, v := range [...]int{blk.Block.X, blk.Block.Y, blk.Block.Width, blk.Block.Height} {
			b.WriteByte(',')
			b.WriteString(strconv.Itoa(v))
		}
		b.WriteByte(';')
	}
	return b.String()
}
