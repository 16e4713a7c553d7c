package catalog

// streaming.go prepares raw import bytes for CSV parsing without loading the
// file into memory:
//
//   - gzip payloads (detected by magic bytes) are decompressed
//   - a leading UTF-8 BOM from Windows exports is dropped
//   - invalid UTF-8 bytes are replaced with '?'
//   - bytes consumed are counted for progress logging
//
// Use OpenStream to apply all transforms in the correct order.

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
)

var (
	utf8BOM   = []byte{0xEF, 0xBB, 0xBF}
	gzipMagic = []byte{0x1F, 0x8B}
)

// Stream is a sanitized import stream. Close releases the decompressor, if
// any; it does not close the underlying reader.
type Stream struct {
	io.Reader
	counter *CountingReader
	closer  io.Closer
}

// BytesRead returns the number of raw bytes consumed so far.
func (s *Stream) BytesRead() int64 {
	return s.counter.BytesRead
}

// Close implements io.Closer.
func (s *Stream) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// OpenStream wraps r for parsing.
//
// The order matters:
//  1. Counting sees raw bytes so progress matches the file size
//  2. gzip is detected before anything inspects content
//  3. BOM is stripped from the decompressed text
//  4. UTF-8 sanitization happens last
func OpenStream(r io.Reader) (*Stream, error) {
	counter := NewCountingReader(r)
	br := bufio.NewReader(counter)

	s := &Stream{counter: counter}

	var src io.Reader = br
	if magic, _ := br.Peek(len(gzipMagic)); bytes.Equal(magic, gzipMagic) {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, &ReadError{Err: fmt.Errorf("open gzip stream: %w", err)}
		}
		src = zr
		s.closer = zr
	}

	text := bufio.NewReader(src)
	if head, _ := text.Peek(len(utf8BOM)); bytes.Equal(head, utf8BOM) {
		_, _ = text.Discard(len(utf8BOM))
	}

	s.Reader = NewUTF8Sanitizer(text)
	return s, nil
}

// UTF8Sanitizer wraps an io.Reader and replaces invalid UTF-8 bytes with '?'
// on the fly. A multi-byte sequence split across reads is carried over to
// the next call instead of being treated as invalid.
type UTF8Sanitizer struct {
	reader  io.Reader
	pending []byte
}

// NewUTF8Sanitizer creates a streaming UTF-8 sanitizer.
func NewUTF8Sanitizer(r io.Reader) *UTF8Sanitizer {
	return &UTF8Sanitizer{
		reader:  r,
		pending: make([]byte, 0, utf8.UTFMax),
	}
}

// Read implements io.Reader.
func (s *UTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	offset := 0
	if len(s.pending) > 0 {
		offset = copy(p, s.pending)
		s.pending = s.pending[:0]
	}

	n, err := s.reader.Read(p[offset:])
	n += offset
	if n == 0 {
		return 0, err
	}

	if isASCII(p[:n]) {
		return n, err
	}

	return s.sanitize(p[:n], err == io.EOF), err
}

// sanitize rewrites data in place and returns the number of bytes to emit.
// When atEOF is false a trailing partial rune is saved for the next read.
func (s *UTF8Sanitizer) sanitize(data []byte, atEOF bool) int {
	write := 0
	for read := 0; read < len(data); {
		r, size := utf8.DecodeRune(data[read:])

		if r == utf8.RuneError && size == 1 {
			if !atEOF && isPartialRune(data[read:]) {
				s.pending = append(s.pending, data[read:]...)
				return write
			}
			data[write] = '?'
			write++
			read++
			continue
		}

		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}
	return write
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// isPartialRune reports whether data is the valid beginning of a multi-byte
// sequence that was cut off.
func isPartialRune(data []byte) bool {
	if len(data) >= utf8.UTFMax || !utf8.RuneStart(data[0]) {
		return false
	}
	want := runeLen(data[0])
	if want <= len(data) {
		return false
	}
	for _, b := range data[1:] {
		if b&0xC0 != 0x80 {
			return false
		}
	}
	return true
}

// runeLen returns the sequence length announced by a leading byte.
func runeLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b < 0xC0:
		return 0
	case b < 0xE0:
		return 2
	case b < 0xF0:
		return 3
	default:
		return 4
	}
}

// CountingReader tracks bytes read for progress logging.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
}

// NewCountingReader creates a counting reader.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{reader: r}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}
