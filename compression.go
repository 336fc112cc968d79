package cacheplugin

import (
	"bytes"
	"errors"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"

	"github.com/goforj/cacheplugin/cachecore"
)

// CompressionCodec represents a value compression algorithm.
type CompressionCodec = cachecore.CompressionCodec

const (
	CompressionNone   = cachecore.CompressionNone
	CompressionGzip   = cachecore.CompressionGzip
	CompressionSnappy = cachecore.CompressionSnappy
	CompressionZstd   = cachecore.CompressionZstd
)

var (
	compressMagic = []byte("CMP1")

	ErrValueTooLarge      = errors.New("cacheplugin: value exceeds max size")
	ErrUnsupportedCodec   = errors.New("cacheplugin: unsupported compression codec")
	ErrCorruptCompression = errors.New("cacheplugin: corrupt compressed payload")
)

// zstd encoders and decoders are safe for concurrent EncodeAll/DecodeAll.
var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	zstdDecoder, _ = zstd.NewReader(nil)
)

func validCodec(codec CompressionCodec) bool {
	switch codec {
	case CompressionNone, CompressionGzip, CompressionSnappy, CompressionZstd:
		return true
	}
	return false
}

func encodeValue(codec CompressionCodec, max int, value []byte) ([]byte, error) {
	if max > 0 && len(value) > max {
		return nil, ErrValueTooLarge
	}
	var (
		tag     byte
		payload []byte
	)
	switch codec {
	case CompressionNone:
		return value, nil
	case CompressionGzip:
		var buf bytes.Buffer
		zw, _ := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
		if _, err := zw.Write(value); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		tag, payload = 'g', buf.Bytes()
	case CompressionSnappy:
		tag, payload = 's', snappy.Encode(nil, value)
	case CompressionZstd:
		tag, payload = 'z', zstdEncoder.EncodeAll(value, nil)
	default:
		return nil, ErrUnsupportedCodec
	}
	out := make([]byte, 0, len(compressMagic)+1+len(payload))
	out = append(out, compressMagic...)
	out = append(out, tag)
	out = append(out, payload...)
	if max > 0 && len(out) > max {
		return nil, ErrValueTooLarge
	}
	return out, nil
}

func decodeValue(in []byte) ([]byte, error) {
	if len(in) < len(compressMagic)+1 {
		return in, nil
	}
	if !bytes.Equal(in[:len(compressMagic)], compressMagic) {
		return in, nil
	}
	codec := in[len(compressMagic)]
	payload := in[len(compressMagic)+1:]
	switch codec {
	case 'g':
		gr, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, ErrCorruptCompression
		}
		defer gr.Close()
		out, err := io.ReadAll(gr)
		if err != nil {
			return nil, ErrCorruptCompression
		}
		return out, nil
	case 's':
		out, err := snappy.Decode(nil, payload)
		if err != nil {
			return nil, ErrCorruptCompression
		}
		return out, nil
	case 'z':
		out, err := zstdDecoder.DecodeAll(payload, nil)
		if err != nil {
			return nil, ErrCorruptCompression
		}
		return out, nil
	default:
		return nil, ErrUnsupportedCodec
	}
}
