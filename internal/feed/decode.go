package feed

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

const sniffBytes = 4096

var utf8BOM = []byte("\xef\xbb\xbf")

// Record is one decoded feed line plus its 1-based line number.
type Record struct {
	Line   int
	Fields map[string]any
}

// toUTF8 returns the whole feed as UTF-8. A feed holding any invalid UTF-8
// is sniffed with chardet around its first invalid byte and, when a
// supported single-byte charset is recognised, transcoded in full. Unknown
// charsets are passed through unchanged.
func toUTF8(r io.Reader) (io.Reader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	bad := firstInvalidUTF8(data)
	if bad < 0 {
		return bytes.NewReader(data), nil
	}

	det, err := chardet.NewTextDetector().DetectBest(sniffSample(data, bad))
	if err != nil || det == nil {
		return bytes.NewReader(data), nil
	}
	if enc := charsetEncoding(det.Charset); enc != nil {
		return transform.NewReader(bytes.NewReader(data), enc.NewDecoder()), nil
	}
	return bytes.NewReader(data), nil
}

func firstInvalidUTF8(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return -1
}

// sniffSample is up to sniffBytes starting at the line holding offset.
func sniffSample(data []byte, offset int) []byte {
	start := bytes.LastIndexByte(data[:offset], '\n') + 1
	end := start + sniffBytes
	if end > len(data) {
		end = len(data)
	}
	return data[start:end]
}

func charsetEncoding(name string) encoding.Encoding {
	switch strings.ToLower(name) {
	case "iso-8859-1", "latin1":
		return charmap.ISO8859_1
	case "windows-1252", "cp1252":
		return charmap.Windows1252
	case "windows-1251", "cp1251":
		return charmap.Windows1251
	case "iso-8859-2":
		return charmap.ISO8859_2
	case "iso-8859-9":
		return charmap.ISO8859_9
	case "iso-8859-15":
		return charmap.ISO8859_15
	default:
		return nil
	}
}

// DecodeLines reads line-delimited JSON objects. Blank lines are skipped.
func DecodeLines(r io.Reader, feedName string) ([]Record, error) {
	src, err := toUTF8(r)
	if err != nil {
		return nil, fmt.Errorf("%s feed: %w", feedName, err)
	}
	sc := bufio.NewScanner(src)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var out []Record
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if lineNo == 1 {
			line = bytes.TrimPrefix(line, utf8BOM)
		}
		if len(line) == 0 {
			continue
		}
		var fields map[string]any
		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		if err := dec.Decode(&fields); err != nil {
			return nil, fmt.Errorf("%s feed line %d: %w", feedName, lineNo, err)
		}
		if dec.InputOffset() != int64(len(line)) {
			return nil, fmt.Errorf("%s feed line %d: trailing data after JSON object", feedName, lineNo)
		}
		out = append(out, Record{Line: lineNo, Fields: fields})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s feed: %w", feedName, err)
	}
	return out, nil
}
