package decode

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// normalizeReader sniffs the byte-order mark and hands back a reader that
// yields UTF-8. UTF-16 input is transcoded; a UTF-8 BOM is stripped. Legacy
// single-byte input has no BOM to sniff, so that case is handled cell by
// cell in normalizeCell instead.
func normalizeReader(r io.Reader) io.Reader {
	br := bufio.NewReaderSize(r, 32*1024)
	head, _ := br.Peek(3)

	switch {
	case bytes.HasPrefix(head, []byte{0xEF, 0xBB, 0xBF}):
		br.Discard(3)
		return br
	case bytes.HasPrefix(head, []byte{0xFF, 0xFE}):
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		return transform.NewReader(br, dec)
	case bytes.HasPrefix(head, []byte{0xFE, 0xFF}):
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		return transform.NewReader(br, dec)
	default:
		return br
	}
}

// normalizeCell converts one cell to canonical UTF-8: bytes that are not
// valid UTF-8 are reinterpreted as Windows-1252, control characters and
// zero-width characters are stripped (newlines and tabs survive), and
// surrounding whitespace is trimmed.
func normalizeCell(s string) string {
	if !utf8.ValidString(s) {
		if decoded, err := charmap.Windows1252.NewDecoder().String(s); err == nil {
			s = decoded
		}
	}

	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r < 0x20 || r == 0x7F:
			return -1
		case r == 0x200B || r == 0x200C || r == 0x200D || r == 0x2060 || r == 0xFEFF:
			return -1
		case r == utf8.RuneError:
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}
