// Package codec serializes the favorites collection into the payload stored under the favorites key.
//
// The default encoding is a plain JSON array, identical to what the mobile client writes.
// Payloads can optionally be compressed with gzip or brotli; Decode detects the encoding
// from the payload itself, so changing the configured compression never strands old data.
package codec

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gabriel-vasile/mimetype"
	"github.com/tfkr-ae/darelteb/domain"
)

// Compression selects how encoded payloads are compressed.
type Compression string

const (
	None   Compression = "none"
	Gzip   Compression = "gzip"
	Brotli Compression = "brotli"
)

var (
	// ErrUnknownCompression is returned for a compression name that is not supported.
	ErrUnknownCompression = errors.New("unknown compression")
	// ErrMalformedPayload is returned when a payload cannot be decoded into a favorites collection.
	ErrMalformedPayload = errors.New("malformed favorites payload")
)

// ParseCompression maps a configuration value to a Compression. The empty string means None.
func ParseCompression(name string) (Compression, error) {
	switch c := Compression(strings.ToLower(strings.TrimSpace(name))); c {
	case "":
		return None, nil
	case None, Gzip, Brotli:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCompression, name)
	}
}

// Codec encodes and decodes favorites payloads.
type Codec struct {
	Compression Compression
}

// New returns a Codec using the given compression.
func New(compression Compression) (*Codec, error) {
	if _, err := ParseCompression(string(compression)); err != nil {
		return nil, err
	}
	if compression == "" {
		compression = None
	}
	return &Codec{Compression: compression}, nil
}

// Encode serializes the collection. A nil collection is written as an empty JSON array.
func (c *Codec) Encode(favorites []domain.FavoriteTest) ([]byte, error) {
	if favorites == nil {
		favorites = []domain.FavoriteTest{}
	}

	payload, err := json.Marshal(favorites)
	if err != nil {
		return nil, fmt.Errorf("marshalling favorites: %w", err)
	}

	switch c.Compression {
	case None, "":
		return payload, nil
	case Gzip:
		var buf bytes.Buffer
		gzipWriter := gzip.NewWriter(&buf)
		if _, err := gzipWriter.Write(payload); err != nil {
			return nil, fmt.Errorf("writing gzip content: %w", err)
		}
		if err := gzipWriter.Close(); err != nil {
			return nil, fmt.Errorf("closing gzip writer: %w", err)
		}
		return buf.Bytes(), nil
	case Brotli:
		var buf bytes.Buffer
		brotliWriter := brotli.NewWriter(&buf)
		if _, err := brotliWriter.Write(payload); err != nil {
			return nil, fmt.Errorf("writing brotli content: %w", err)
		}
		if err := brotliWriter.Close(); err != nil {
			return nil, fmt.Errorf("closing brotli writer: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompression, c.Compression)
	}
}

// Decode parses a payload written by Encode with any compression.
// An empty payload or a JSON null is an empty collection. Entries repeating an earlier ID are dropped.
func (c *Codec) Decode(payload []byte) ([]domain.FavoriteTest, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return []domain.FavoriteTest{}, nil
	}

	raw, err := decompress(payload)
	if err != nil {
		return nil, err
	}

	var favorites []domain.FavoriteTest
	if err := json.Unmarshal(raw, &favorites); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	return Dedupe(favorites), nil
}

// decompress returns the JSON text inside payload. Compressed payloads are read untrimmed.
func decompress(payload []byte) ([]byte, error) {
	if text := bytes.TrimSpace(payload); text[0] == '[' || bytes.Equal(text, []byte("null")) {
		return text, nil
	}

	switch mimetype.Detect(payload).String() {
	case "application/gzip", "application/x-gzip":
		gzipReader, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("%w: creating gzip reader: %v", ErrMalformedPayload, err)
		}
		defer gzipReader.Close()

		decompressed, err := io.ReadAll(gzipReader)
		if err != nil {
			return nil, fmt.Errorf("%w: reading gzip content: %v", ErrMalformedPayload, err)
		}
		return decompressed, nil
	}

	// Brotli has no magic number; try it last.
	decompressed, err := io.ReadAll(brotli.NewReader(bytes.NewReader(payload)))
	if err != nil {
		return nil, fmt.Errorf("%w: reading brotli content: %v", ErrMalformedPayload, err)
	}
	return decompressed, nil
}

// Dedupe keeps the first entry for every ID, preserving order.
func Dedupe(favorites []domain.FavoriteTest) []domain.FavoriteTest {
	seen := make(map[string]struct{}, len(favorites))
	result := make([]domain.FavoriteTest, 0, len(favorites))
	for _, favorite := range favorites {
		if _, ok := seen[favorite.ID]; ok {
			continue
		}
		seen[favorite.ID] = struct{}{}
		result = append(result, favorite)
	}
	return result
}
