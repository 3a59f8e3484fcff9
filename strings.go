package passbridge

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// StringsTable is one parsed pass.strings file: localization key to text.
type StringsTable map[string]string

// ParseStrings parses the `"key" = "value";` format used by archive
// localization files. Comments (// and /* */) are skipped, and UTF-16
// input with a byte order mark is accepted.
func ParseStrings(data []byte) (StringsTable, error) {
	text, err := decodeStringsText(data)
	if err != nil {
		return nil, err
	}
	p := &stringsParser{src: text, line: 1}
	table := StringsTable{}
	for {
		p.skipSpace()
		if p.eof() {
			return table, nil
		}
		key, err := p.quoted()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if !p.consume('=') {
			return nil, p.errorf("expected '=' after key %q", key)
		}
		p.skipSpace()
		value, err := p.quoted()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if !p.consume(';') && !p.eof() {
			return nil, p.errorf("expected ';' after value for key %q", key)
		}
		table[key] = value
	}
}

// Marshal serializes the table with keys in sorted order.
func (t StringsTable) Marshal() []byte {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	for _, k := range keys {
		fmt.Fprintf(&buf, "\"%s\" = \"%s\";\n", escapeStrings(k), escapeStrings(t[k]))
	}
	return buf.Bytes()
}

func decodeStringsText(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}), bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		decoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		out, _, err := transform.Bytes(decoder, data)
		if err != nil {
			return "", fmt.Errorf("decode utf-16 strings: %w", err)
		}
		return string(out), nil
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		data = data[3:]
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("strings file is not valid UTF-8")
	}
	return string(data), nil
}

func escapeStrings(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`, "\r", `\r`)
	return r.Replace(s)
}

type stringsParser struct {
	src  string
	pos  int
	line int
}

func (p *stringsParser) eof() bool { return p.pos >= len(p.src) }

func (p *stringsParser) errorf(format string, args ...any) error {
	return fmt.Errorf("strings line %d: %s", p.line, fmt.Sprintf(format, args...))
}

func (p *stringsParser) consume(c byte) bool {
	if !p.eof() && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

// skipSpace skips whitespace and both comment forms.
func (p *stringsParser) skipSpace() {
	for !p.eof() {
		c := p.src[p.pos]
		switch {
		case c == '\n':
			p.line++
			p.pos++
		case c == ' ' || c == '\t' || c == '\r':
			p.pos++
		case strings.HasPrefix(p.src[p.pos:], "//"):
			end := strings.IndexByte(p.src[p.pos:], '\n')
			if end < 0 {
				p.pos = len(p.src)
				return
			}
			p.pos += end
		case strings.HasPrefix(p.src[p.pos:], "/*"):
			end := strings.Index(p.src[p.pos+2:], "*/")
			if end < 0 {
				p.pos = len(p.src)
				return
			}
			p.line += strings.Count(p.src[p.pos:p.pos+2+end], "\n")
			p.pos += end + 4
		default:
			return
		}
	}
}

func (p *stringsParser) quoted() (string, error) {
	if !p.consume('"') {
		return "", p.errorf("expected quoted string")
	}
	var b strings.Builder
	for !p.eof() {
		c := p.src[p.pos]
		p.pos++
		switch c {
		case '"':
			return b.String(), nil
		case '\n':
			p.line++
			b.WriteByte(c)
		case '\\':
			if p.eof() {
				return "", p.errorf("unterminated escape")
			}
			esc := p.src[p.pos]
			p.pos++
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case 'U', 'u':
				if p.pos+4 > len(p.src) {
					return "", p.errorf("short unicode escape")
				}
				code, err := strconv.ParseUint(p.src[p.pos:p.pos+4], 16, 32)
				if err != nil {
					return "", p.errorf("bad unicode escape: %v", err)
				}
				b.WriteRune(rune(code))
				p.pos += 4
			default:
				b.WriteByte(esc)
			}
		default:
			b.WriteByte(c)
		}
	}
	return "", p.errorf("unterminated string")
}
