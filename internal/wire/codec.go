package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// encMode uses Core Deterministic Encoding, so equal messages encode to equal
// bytes.
var encMode cbor.EncMode

// decMode ignores unknown fields and caps nesting and collection sizes.
var decMode cbor.DecMode

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("wire: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		MaxNestedLevels:  16,
		MaxArrayElements: 1 << 16,
		MaxMapPairs:      1 << 12,
	}.DecMode()
	if err != nil {
		panic("wire: CBOR decoder initialization failed: " + err.Error())
	}

	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		panic("wire: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxBodySize))
	if err != nil {
		panic("wire: zstd decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v as deterministic CBOR.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Compression selects how large bodies are compressed.
type Compression int

const (
	CompressNone Compression = iota
	CompressLZ4
	CompressZstd
)

// ParseCompression parses a configured compression name.
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "", "lz4":
		return CompressLZ4, nil
	case "zstd":
		return CompressZstd, nil
	case "none":
		return CompressNone, nil
	default:
		return CompressNone, fmt.Errorf("unknown compression %q", s)
	}
}

// Bodies below this size are sent as is.
const compressThreshold = 1024

func compress(raw []byte, comp Compression) ([]byte, Flags) {
	if comp == CompressNone || len(raw) < compressThreshold {
		return raw, 0
	}

	out := make([]byte, 4, 4+lz4.CompressBlockBound(len(raw)))
	binary.LittleEndian.PutUint32(out, uint32(len(raw)))

	switch comp {
	case CompressLZ4:
		out = out[:cap(out)]
		n, err := lz4.CompressBlock(raw, out[4:], nil)
		// CompressBlock reports 0 for incompressible input.
		if err != nil || n == 0 || 4+n >= len(raw) {
			return raw, 0
		}
		return out[:4+n], FlagLZ4
	case CompressZstd:
		out = zstdEncoder.EncodeAll(raw, out)
		if len(out) >= len(raw) {
			return raw, 0
		}
		return out, FlagZstd
	default:
		return raw, 0
	}
}

func decompress(payload []byte, flags Flags) ([]byte, error) {
	if flags == 0 {
		return payload, nil
	}
	if flags&^(FlagLZ4|FlagZstd) != 0 || flags == FlagLZ4|FlagZstd {
		return nil, ErrBadFlags
	}
	if len(payload) < 4 {
		return nil, ErrShortBody
	}
	size := int(binary.LittleEndian.Uint32(payload))
	if size > MaxBodySize {
		return nil, ErrTooLarge
	}
	data := payload[4:]

	switch flags {
	case FlagLZ4:
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(data, out)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if n != size {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", n, size)
		}
		return out, nil
	default:
		out, err := zstdDecoder.DecodeAll(data, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(out) != size {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(out), size)
		}
		return out, nil
	}
}
