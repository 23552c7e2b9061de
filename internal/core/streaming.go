package core

// streaming.go provides the readers used when hashing and decoding source files.
//
//   - BOMSkippingReader: Removes the UTF-8 BOM (0xEF 0xBB 0xBF) written by Excel on Windows
//   - CountingReader: Tracks bytes read so the fingerprint can log file size
//
// Both wrap io.Reader and keep memory use independent of file size.

import (
	"bufio"
	"bytes"
	"io"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// BOMSkippingReader wraps an io.Reader and skips the UTF-8 BOM if present.
type BOMSkippingReader struct {
	br      *bufio.Reader
	checked bool
}

// NewBOMSkippingReader creates a new BOM-skipping reader.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{br: bufio.NewReader(r)}
}

// Read implements io.Reader. On the first read, it checks for and skips the BOM.
func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true
		head, err := r.br.Peek(len(utf8BOM))
		if err != nil && err != io.EOF {
			return 0, err
		}
		if bytes.Equal(head, utf8BOM) {
			if _, err := r.br.Discard(len(utf8BOM)); err != nil {
				return 0, err
			}
		}
	}
	return r.br.Read(p)
}

// CountingReader wraps an io.Reader and counts the bytes read through it.
type CountingReader struct {
	reader io.Reader
	n      int64
}

// NewCountingReader creates a new counting reader.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{reader: r}
}

// Read implements io.Reader.
func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.reader.Read(p)
	c.n += int64(n)
	return n, err
}

// BytesRead returns the total bytes read so far.
func (c *CountingReader) BytesRead() int64 {
	return c.n
}
