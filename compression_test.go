package cacheplugin

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

func TestEncodeDecodeValueCodecs(t *testing.T) {
	value := bytes.Repeat([]byte(`{"name":"user/sw/app/color","value":"blue"}`), 32)
	for _, codec := range []CompressionCodec{CompressionNone, CompressionGzip, CompressionSnappy, CompressionZstd} {
		t.Run(string(codec), func(t *testing.T) {
			encoded, err := encodeValue(codec, 0, value)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			if codec == CompressionNone {
				if !bytes.Equal(encoded, value) {
					t.Fatalf("expected passthrough for none")
				}
			} else if !bytes.HasPrefix(encoded, compressMagic) || len(encoded) >= len(value) {
				t.Fatalf("expected compressed framed payload, got %d bytes", len(encoded))
			}
			decoded, err := decodeValue(encoded)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !bytes.Equal(decoded, value) {
				t.Fatalf("round trip mismatch")
			}
		})
	}
}

func TestEncodeValueLimits(t *testing.T) {
	if _, err := encodeValue(CompressionNone, 3, []byte("four")); !errors.Is(err, ErrValueTooLarge) {
		t.Fatalf("expected too large before compression, got %v", err)
	}
	// incompressible short input grows past the limit once framed
	if _, err := encodeValue(CompressionSnappy, 6, []byte("abcdef")); !errors.Is(err, ErrValueTooLarge) {
		t.Fatalf("expected too large after framing, got %v", err)
	}
	if _, err := encodeValue("lz4", 0, []byte("x")); !errors.Is(err, ErrUnsupportedCodec) {
		t.Fatalf("expected unsupported codec, got %v", err)
	}
}

func TestDecodeValueEdgeCases(t *testing.T) {
	plain := []byte("plain")
	if out, err := decodeValue(plain); err != nil || !bytes.Equal(out, plain) {
		t.Fatalf("expected unframed passthrough, got %q %v", out, err)
	}
	if out, err := decodeValue([]byte("CMP")); err != nil || string(out) != "CMP" {
		t.Fatalf("expected short passthrough, got %q %v", out, err)
	}
	for _, tag := range []byte{'g', 's', 'z'} {
		bad := append(append([]byte{}, compressMagic...), tag, 0xff, 0x00, 0x13)
		if _, err := decodeValue(bad); !errors.Is(err, ErrCorruptCompression) {
			t.Fatalf("tag %c: expected corrupt error, got %v", tag, err)
		}
	}
	unknown := append(append([]byte{}, compressMagic...), 'q')
	if _, err := decodeValue(unknown); !errors.Is(err, ErrUnsupportedCodec) {
		t.Fatalf("expected unsupported codec, got %v", err)
	}
}

func TestValidCodec(t *testing.T) {
	if !validCodec(CompressionZstd) || validCodec("") || validCodec("brotli") {
		t.Fatalf("unexpected codec validation")
	}
}

func TestShapingBackendIdentityWhenDisabled(t *testing.T) {
	inner := newNullBackend()
	if newShapingBackend(inner, "", 0) != inner {
		t.Fatalf("expected inner backend returned when shaping disabled")
	}
	if newShapingBackend(inner, CompressionNone, 0) != inner {
		t.Fatalf("expected inner backend returned for none codec")
	}
	if _, ok := newShapingBackend(inner, "", 10).(*shapingBackend); !ok {
		t.Fatalf("expected wrapper when size limited")
	}
}

func TestShapingBackendCompressesAtRest(t *testing.T) {
	ctx := context.Background()
	inner := newMemoryBackend("loc", time.Minute, time.Minute)
	shaped := newShapingBackend(inner, CompressionGzip, 0)
	if shaped.Driver() != inner.Driver() {
		t.Fatalf("expected driver passthrough")
	}
	value := bytes.Repeat([]byte("a"), 512)
	if err := shaped.Set(ctx, "k", value, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	raw, ok, err := inner.Get(ctx, "k")
	if err != nil || !ok || !bytes.HasPrefix(raw, compressMagic) {
		t.Fatalf("expected compressed bytes at rest: ok=%v err=%v", ok, err)
	}
	got, ok, err := shaped.Get(ctx, "k")
	if err != nil || !ok || !bytes.Equal(got, value) {
		t.Fatalf("expected decompressed value: ok=%v err=%v", ok, err)
	}

	if err := inner.Set(ctx, "bad", append(append([]byte{}, compressMagic...), 'g', 1, 2), 0); err != nil {
		t.Fatalf("set raw: %v", err)
	}
	if _, _, err := shaped.Get(ctx, "bad"); !errors.Is(err, ErrCorruptCompression) {
		t.Fatalf("expected corrupt error, got %v", err)
	}

	limited := newShapingBackend(inner, CompressionNone, 4)
	if err := limited.Set(ctx, "big", []byte("too big"), 0); !errors.Is(err, ErrValueTooLarge) {
		t.Fatalf("expected size error, got %v", err)
	}
	if _, ok, _ := inner.Get(ctx, "big"); ok {
		t.Fatalf("expected oversize value not written")
	}
	if err := shaped.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := shaped.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := shaped.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
