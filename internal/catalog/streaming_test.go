package catalog

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func TestOpenStream_BOM(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "file with BOM",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("A,B")...),
			expected: "A,B",
		},
		{
			name:     "file without BOM",
			input:    []byte("A,B"),
			expected: "A,B",
		},
		{
			name:     "empty file",
			input:    []byte{},
			expected: "",
		},
		{
			name:     "only BOM",
			input:    []byte{0xEF, 0xBB, 0xBF},
			expected: "",
		},
		{
			name:     "partial BOM at start",
			input:    []byte{0xEF, 0xBB, 'a', 'b', 'c'},
			expected: "??abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := OpenStream(bytes.NewReader(tt.input))
			if err != nil {
				t.Fatalf("OpenStream: %v", err)
			}
			defer s.Close()

			result, err := io.ReadAll(s)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
			if s.BytesRead() != int64(len(tt.input)) {
				t.Errorf("BytesRead = %d, want %d", s.BytesRead(), len(tt.input))
			}
		})
	}
}

func TestUTF8Sanitizer(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "valid ASCII",
			input:    []byte("Moto G8,Moto G8 Plus"),
			expected: "Moto G8,Moto G8 Plus",
		},
		{
			name:     "valid multibyte",
			input:    []byte("Película,Capa"),
			expected: "Película,Capa",
		},
		{
			name:     "invalid single byte replaced",
			input:    []byte{'h', 'e', 0x80, 'l', 'o'},
			expected: "he?lo",
		},
		{
			name:     "truncated rune at EOF replaced",
			input:    []byte{'a', 0xC3},
			expected: "a?",
		},
		{
			name:     "empty input",
			input:    []byte{},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := io.ReadAll(NewUTF8Sanitizer(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestUTF8Sanitizer_SplitRune(t *testing.T) {
	// One byte per read forces every multi-byte rune across a read boundary.
	input := "Película / Capinha"
	result, err := io.ReadAll(NewUTF8Sanitizer(iotest.OneByteReader(strings.NewReader(input))))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result) != input {
		t.Errorf("got %q, want %q", string(result), input)
	}
}

func TestCountingReader(t *testing.T) {
	input := strings.Repeat("x", 1000)
	reader := NewCountingReader(strings.NewReader(input))

	buf := make([]byte, 100)
	total := 0
	for {
		n, err := reader.Read(buf)
		total += n
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if total != len(input) {
		t.Errorf("total read = %d, want %d", total, len(input))
	}
	if reader.BytesRead != int64(len(input)) {
		t.Errorf("BytesRead = %d, want %d", reader.BytesRead, len(input))
	}
}
