package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/alejandrosuarez/elodin/ecs"
)

// Compression selects the asset blob payload compression.
type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionLZ4  Compression = 1
	CompressionZstd Compression = 2
)

// Asset blob format:
//
//	[magic u32][version u32][compression u8][pad u8 x3][count u64]
//	[payload_len u64][crc32 u32][payload]
//
// The payload is count length-prefixed blobs (u64 length each),
// compressed as a whole per the compression byte. The CRC32 (IEEE) covers
// the stored payload bytes. All integers little-endian.
const (
	assetsMagic   = 0x45435341 // "ASCE"
	assetsVersion = 1
)

// EncodeAssets writes the asset store as one compact binary blob.
func EncodeAssets(w io.Writer, store *ecs.AssetStore, compression Compression) error {
	var raw bytes.Buffer
	blobs := store.Blobs
	for _, blob := range blobs {
		var lenBuf [8]byte
		binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(blob)))
		raw.Write(lenBuf[:])
		raw.Write(blob)
	}

	payload, err := compressPayload(raw.Bytes(), compression)
	if err != nil {
		return err
	}

	var header [32]byte
	binary.LittleEndian.PutUint32(header[0:], assetsMagic)
	binary.LittleEndian.PutUint32(header[4:], assetsVersion)
	header[8] = byte(compression)
	binary.LittleEndian.PutUint64(header[12:], uint64(len(blobs)))
	binary.LittleEndian.PutUint64(header[20:], uint64(len(payload)))
	binary.LittleEndian.PutUint32(header[28:], crc32.ChecksumIEEE(payload))

	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

// DecodeAssets parses an asset blob, verifying magic, version and
// checksum.
func DecodeAssets(data []byte) (*ecs.AssetStore, error) {
	if len(data) < 32 {
		return nil, fmt.Errorf("%w: %d header bytes", ErrMalformedAssets, len(data))
	}
	if magic := binary.LittleEndian.Uint32(data[0:]); magic != assetsMagic {
		return nil, fmt.Errorf("%w: bad magic 0x%08x", ErrMalformedAssets, magic)
	}
	if version := binary.LittleEndian.Uint32(data[4:]); version != assetsVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedAssets, version)
	}
	compression := Compression(data[8])
	count := binary.LittleEndian.Uint64(data[12:])
	payloadLen := binary.LittleEndian.Uint64(data[20:])
	sum := binary.LittleEndian.Uint32(data[28:])

	payload := data[32:]
	if uint64(len(payload)) != payloadLen {
		return nil, fmt.Errorf("%w: payload holds %d bytes, header says %d",
			ErrMalformedAssets, len(payload), payloadLen)
	}
	if got := crc32.ChecksumIEEE(payload); got != sum {
		return nil, fmt.Errorf("%w: got 0x%08x, want 0x%08x", ErrChecksumMismatch, got, sum)
	}

	raw, err := decompressPayload(payload, compression)
	if err != nil {
		return nil, err
	}

	store := ecs.NewAssetStore()
	for i := uint64(0); i < count; i++ {
		if len(raw) < 8 {
			return nil, fmt.Errorf("%w: truncated at blob %d", ErrMalformedAssets, i)
		}
		n := binary.LittleEndian.Uint64(raw)
		raw = raw[8:]
		if uint64(len(raw)) < n {
			return nil, fmt.Errorf("%w: blob %d wants %d bytes, %d left",
				ErrMalformedAssets, i, n, len(raw))
		}
		store.Insert(raw[:n])
		raw = raw[n:]
	}
	if len(raw) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformedAssets, len(raw))
	}
	return store, nil
}

func compressPayload(raw []byte, compression Compression) ([]byte, error) {
	switch compression {
	case CompressionNone:
		return raw, nil
	case CompressionLZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(raw); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(raw, nil), nil
	}
	return nil, fmt.Errorf("%w: unknown compression %d", ErrMalformedAssets, compression)
}

func decompressPayload(payload []byte, compression Compression) ([]byte, error) {
	switch compression {
	case CompressionNone:
		return payload, nil
	case CompressionLZ4:
		raw, err := io.ReadAll(lz4.NewReader(bytes.NewReader(payload)))
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %v", ErrMalformedAssets, err)
		}
		return raw, nil
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		raw, err := dec.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %v", ErrMalformedAssets, err)
		}
		return raw, nil
	}
	return nil, fmt.Errorf("%w: unknown compression %d", ErrMalformedAssets, compression)
}
