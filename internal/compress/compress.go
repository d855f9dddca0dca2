// Package compress shrinks long text fields before they are persisted in the
// translation cache. The transform is reversible and tagged: compressed
// output carries a marker prefix that never appears in plain translations,
// so Decompress is safe to call on already-plain data.
package compress

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

const (
	// marker prefixes every compressed string. Plain translations never
	// start with it (it is not natural language), which is what makes
	// Decompress idempotent on untouched input.
	marker = "GZ:"

	// DefaultThreshold is the minimum length (in runes) worth compressing.
	// Below it the marker + base64 overhead outweighs any gain.
	DefaultThreshold = 100
)

// Compressor compresses strings above a length threshold.
type Compressor struct {
	threshold int
}

// New returns a compressor with the given rune-length threshold.
// Non-positive thresholds fall back to DefaultThreshold.
func New(threshold int) *Compressor {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Compressor{threshold: threshold}
}

// Compress returns s unchanged when it is shorter than the threshold or
// already compressed; otherwise it returns the marker-tagged gzip+base64
// encoding. Compression never fails: on any encoder error the original
// string is returned as-is (the cache only loses space savings, not data).
func (c *Compressor) Compress(s string) string {
	if utf8.RuneCountInString(s) < c.threshold || strings.HasPrefix(s, marker) {
		return s
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		return s
	}
	if err := zw.Close(); err != nil {
		return s
	}

	encoded := marker + base64.StdEncoding.EncodeToString(buf.Bytes())
	// Pathological inputs (already high entropy) can grow; keep the original.
	if len(encoded) >= len(s) {
		return s
	}
	return encoded
}

// Decompress reverses Compress. Untagged input is returned unchanged.
func (c *Compressor) Decompress(s string) (string, error) {
	if !strings.HasPrefix(s, marker) {
		return s, nil
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, marker))
	if err != nil {
		return "", fmt.Errorf("invalid compressed payload: %w", err)
	}

	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("invalid gzip stream: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return "", fmt.Errorf("failed to decompress: %w", err)
	}
	return string(out), nil
}

// IsCompressed reports whether s carries the compression marker.
func (c *Compressor) IsCompressed(s string) bool {
	return strings.HasPrefix(s, marker)
}
