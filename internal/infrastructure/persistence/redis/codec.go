package redis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"

	"github.com/alchemorsel/recipemod/internal/domain/modification"
)

// Compression modes for stored entries.
const (
	CompressionNone   = "none"
	CompressionBrotli = "brotli"
)

// Stored values start with a one-byte marker so entries written with either
// mode stay readable after the setting changes.
const (
	markerJSON   byte = 'j'
	markerBrotli byte = 'b'
)

// entryCodec serializes cache entries for Redis.
type entryCodec struct {
	compress bool
	level    int
}

func newEntryCodec(compression string) (entryCodec, error) {
	switch compression {
	case "", CompressionNone:
		return entryCodec{}, nil
	case CompressionBrotli:
		return entryCodec{compress: true, level: brotli.DefaultCompression}, nil
	default:
		return entryCodec{}, fmt.Errorf("unknown compression %q", compression)
	}
}

func (c entryCodec) encode(entry *modification.CacheEntry) ([]byte, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("marshal cache entry: %w", err)
	}
	if !c.compress {
		return append([]byte{markerJSON}, payload...), nil
	}

	var buf bytes.Buffer
	buf.WriteByte(markerBrotli)
	w := brotli.NewWriterLevel(&buf, c.level)
	if _, err := w.Write(payload); err != nil {
		return nil, fmt.Errorf("compress cache entry: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress cache entry: %w", err)
	}
	return buf.Bytes(), nil
}

func (c entryCodec) decode(data []byte) (*modification.CacheEntry, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty cache entry")
	}

	payload := data[1:]
	switch data[0] {
	case markerJSON:
	case markerBrotli:
		raw, err := io.ReadAll(brotli.NewReader(bytes.NewReader(payload)))
		if err != nil {
			return nil, fmt.Errorf("decompress cache entry: %w", err)
		}
		payload = raw
	default:
		return nil, fmt.Errorf("unknown cache entry marker %q", data[0])
	}

	var entry modification.CacheEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, fmt.Errorf("unmarshal cache entry: %w", err)
	}
	return &entry, nil
}
