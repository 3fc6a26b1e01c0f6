package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// EncodeRLE encodes a sequence of ids into base64(varint pairs).
// The pairs are (id, run_len) repeated.
func EncodeRLE(ids []uint32) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	i := 0
	for i < len(ids) {
		v := ids[i]
		run := 1
		for j := i + 1; j < len(ids) && ids[j] == v && run < 1<<31; j++ {
			run++
		}

		n := binary.PutUvarint(tmp[:], uint64(v))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])

		i += run
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// DecodeRLE reverses EncodeRLE. want bounds the decoded length; pass 0 to
// accept any length.
func DecodeRLE(b64 string, want int) ([]uint32, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, 0, want)
	for i := 0; i < len(raw); {
		v, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if v > 0xFFFFFFFF {
			return nil, fmt.Errorf("id too large: %d", v)
		}
		if run == 0 {
			return nil, fmt.Errorf("zero run at %d", i)
		}
		if want > 0 && uint64(len(out))+run > uint64(want) {
			return nil, fmt.Errorf("run overflows %d values", want)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, uint32(v))
		}
	}
	if want > 0 && len(out) != want {
		return nil, fmt.Errorf("decoded %d values, want %d", len(out), want)
	}
	return out, nil
}
