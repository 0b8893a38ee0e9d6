package chainstore

import (
	"encoding/json"
	"fmt"

	"github.com/pierrec/lz4"
)

// CompressReport JSON-encodes then LZ4-compresses an arbitrary report
// value for on-disk storage, mirroring the pack's lz4 node-store block
// compression.
func CompressReport(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("chainstore: encode report: %w", err)
	}
	bound := lz4.CompressBlockBound(len(raw))
	compressed := make([]byte, bound)
	n, err := lz4.CompressBlock(raw, compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("chainstore: lz4 compress report: %w", err)
	}
	if n == 0 {
		// Incompressible input: lz4.CompressBlock returns 0 when the
		// compressed form wouldn't be smaller. Store raw with a length
		// prefix of 0 so DecompressReport can tell the two cases apart.
		out := make([]byte, 4+len(raw))
		putUint32(out, uint32(0))
		copy(out[4:], raw)
		return out, nil
	}
	out := make([]byte, 4+n)
	putUint32(out, uint32(len(raw)))
	copy(out[4:], compressed[:n])
	return out, nil
}

// DecompressReport reverses CompressReport into v (a pointer).
func DecompressReport(blob []byte, v interface{}) error {
	if len(blob) < 4 {
		return fmt.Errorf("chainstore: report blob too short (%d bytes)", len(blob))
	}
	rawLen := getUint32(blob)
	body := blob[4:]
	var raw []byte
	if rawLen == 0 {
		raw = body
	} else {
		raw = make([]byte, rawLen)
		n, err := lz4.UncompressBlock(body, raw)
		if err != nil {
			return fmt.Errorf("chainstore: lz4 decompress report: %w", err)
		}
		raw = raw[:n]
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("chainstore: decode report: %w", err)
	}
	return nil
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func getUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
