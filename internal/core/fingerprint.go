package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// fingerprintChunk bounds the memory used while hashing.
const fingerprintChunk = 4096

// Fingerprint returns the hex SHA-256 digest of everything read from r.
func Fingerprint(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, fingerprintChunk)
	// Wrapping r hides any WriterTo so reads always go through buf.
	if _, err := io.CopyBuffer(h, struct{ io.Reader }{r}, buf); err != nil {
		return "", fmt.Errorf("hash source: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FingerprintFile hashes the file at path and reports its size.
func FingerprintFile(path string) (hash string, size int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", 0, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", 0, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	cr := NewCountingReader(f)
	hash, err = Fingerprint(cr)
	if err != nil {
		return "", 0, err
	}
	return hash, cr.BytesRead(), nil
}
