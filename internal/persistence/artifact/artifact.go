// Package artifact writes and reads the files a compile produces.
package artifact

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"mapforge.ai/internal/gamemap"
)

// ZstdSuffix is appended to the compressed map file name for its zstd copy.
const ZstdSuffix = ".zst"

// WriteFile replaces path with data. The bytes go to a temporary sibling
// first so a failed write never leaves a truncated file behind.
func WriteFile(path string, data []byte) error {
	return writeAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// WriteJSON writes v compact, or indented when pretty is set.
func WriteJSON(path string, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return WriteFile(path, b)
}

func WritePNG(path string, img image.Image) error {
	return writeAtomic(path, func(w io.Writer) error {
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(w, img); err != nil {
			return fmt.Errorf("png encode: %w", err)
		}
		return nil
	})
}

// WriteZstd writes data compressed with zstd.
func WriteZstd(path string, data []byte) error {
	return writeAtomic(path, func(w io.Writer) error {
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			return err
		}
		if _, err := enc.Write(data); err != nil {
			_ = enc.Close()
			return err
		}
		return enc.Close()
	})
}

func writeAtomic(path string, fill func(w io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(f, 256*1024)
	err = fill(bw)
	if err == nil {
		err = bw.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// ReadMapBytes returns the JSON bytes of a compressed map file, undoing the
// zstd layer when the name ends in ZstdSuffix.
func ReadMapBytes(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !strings.HasSuffix(path, ZstdSuffix) {
		return io.ReadAll(f)
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, dec); err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	return buf.Bytes(), nil
}

func ReadCompressedMap(path string) (gamemap.CompressedGameMap, []byte, error) {
	var m gamemap.CompressedGameMap
	raw, err := ReadMapBytes(path)
	if err != nil {
		return m, nil, err
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return m, nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return m, raw, nil
}
