package extract

import (
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokString
	tokArray
	tokOperator
	tokOther
)

type token struct {
	kind tokenKind
	text string
	// raw holds the undecoded bytes of a string token.
	raw   []byte
	num   float64
	items []token
}

// Approximate kerning (thousandths of an em) above which a TJ gap reads as a space.
const tjSpaceThreshold = 180

// decodeContent recovers readable text from a page content stream by
// interpreting the text-showing and text-positioning operators. fonts maps
// resource names (without the slash) to their ToUnicode tables; strings shown
// in a font without one are read as single-byte WinAnsi.
func decodeContent(stream []byte, fonts map[string]*cmap) string {
	it := &interpreter{out: &textBuffer{}, fonts: fonts}
	eachOperator(stream, it.apply)
	return it.out.String()
}

// eachOperator calls fn for every operator with the operands preceding it.
func eachOperator(stream []byte, fn func(op string, operands []token)) {
	s := &contentScanner{data: stream}
	var operands []token
	for {
		tok, ok := s.next()
		if !ok {
			return
		}
		if tok.kind != tokOperator {
			operands = append(operands, tok)
			continue
		}
		fn(tok.text, operands)
		operands = operands[:0]
	}
}

type interpreter struct {
	out   *textBuffer
	fonts map[string]*cmap
	font  *cmap
}

func (it *interpreter) show(t token) {
	if it.font != nil {
		it.out.write(it.font.decode(t.raw))
		return
	}
	it.out.write(decodeBytes(t.raw))
}

func (it *interpreter) apply(op string, operands []token) {
	out := it.out
	last := func() (token, bool) {
		if len(operands) == 0 {
			return token{}, false
		}
		return operands[len(operands)-1], true
	}
	switch op {
	case "Tf":
		if len(operands) >= 2 {
			name := strings.TrimPrefix(operands[len(operands)-2].text, "/")
			it.font = it.fonts[name]
		}
	case "Tj":
		if t, ok := last(); ok && t.kind == tokString {
			it.show(t)
		}
	case "'", "\"":
		out.newline()
		if t, ok := last(); ok && t.kind == tokString {
			it.show(t)
		}
	case "TJ":
		t, ok := last()
		if !ok || t.kind != tokArray {
			return
		}
		for _, item := range t.items {
			switch item.kind {
			case tokString:
				it.show(item)
			case tokNumber:
				if -item.num > tjSpaceThreshold {
					out.space()
				}
			}
		}
	case "Td", "TD":
		if len(operands) >= 2 && operands[len(operands)-1].kind == tokNumber {
			if operands[len(operands)-1].num != 0 {
				out.newline()
			} else {
				out.space()
			}
		}
	case "T*", "Tm", "ET":
		out.newline()
	}
}

type textBuffer struct {
	b strings.Builder
	// last is the final rune written, 0 when empty.
	last rune
}

func (t *textBuffer) write(s string) {
	for _, r := range s {
		if r == '\r' {
			r = '\n'
		}
		if r != '\n' && r != '\t' && !unicode.IsPrint(r) {
			continue
		}
		t.b.WriteRune(r)
		t.last = r
	}
}

func (t *textBuffer) space() {
	if t.last == 0 || t.last == ' ' || t.last == '\n' {
		return
	}
	t.b.WriteByte(' ')
	t.last = ' '
}

func (t *textBuffer) newline() {
	if t.last == 0 || t.last == '\n' {
		return
	}
	t.b.WriteByte('\n')
	t.last = '\n'
}

func (t *textBuffer) String() string {
	return strings.TrimSpace(t.b.String())
}

type contentScanner struct {
	data []byte
	pos  int
}

func isPDFWhitespace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

func isPDFDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (s *contentScanner) skipSpaceAndComments() {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if isPDFWhitespace(c) {
			s.pos++
			continue
		}
		if c == '%' {
			for s.pos < len(s.data) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
			continue
		}
		return
	}
}

func (s *contentScanner) next() (token, bool) {
	s.skipSpaceAndComments()
	if s.pos >= len(s.data) {
		return token{}, false
	}
	c := s.data[s.pos]
	switch {
	case c == '(':
		s.pos++
		return token{kind: tokString, raw: s.literal()}, true
	case c == '<' && s.peek(1) == '<':
		s.pos += 2
		return token{kind: tokOther, text: "<<"}, true
	case c == '>' && s.peek(1) == '>':
		s.pos += 2
		return token{kind: tokOther, text: ">>"}, true
	case c == '<':
		s.pos++
		return token{kind: tokString, raw: s.hex()}, true
	case c == '[':
		s.pos++
		return s.array(), true
	case c == ']' || c == '{' || c == '}' || c == ')' || c == '>':
		s.pos++
		return token{kind: tokOther, text: string(c)}, true
	case c == '/':
		start := s.pos
		s.pos++
		s.regular()
		return token{kind: tokOther, text: string(s.data[start:s.pos])}, true
	}

	start := s.pos
	s.regular()
	word := string(s.data[start:s.pos])
	if n, err := strconv.ParseFloat(word, 64); err == nil {
		return token{kind: tokNumber, num: n}, true
	}
	if word == "BI" {
		s.skipInlineImage()
		return token{kind: tokOther, text: "BI"}, true
	}
	return token{kind: tokOperator, text: word}, true
}

func (s *contentScanner) peek(off int) byte {
	if s.pos+off < len(s.data) {
		return s.data[s.pos+off]
	}
	return 0
}

func (s *contentScanner) regular() {
	for s.pos < len(s.data) && !isPDFWhitespace(s.data[s.pos]) && !isPDFDelimiter(s.data[s.pos]) {
		s.pos++
	}
}

func (s *contentScanner) array() token {
	arr := token{kind: tokArray}
	for {
		s.skipSpaceAndComments()
		if s.pos >= len(s.data) {
			return arr
		}
		if s.data[s.pos] == ']' {
			s.pos++
			return arr
		}
		tok, ok := s.next()
		if !ok {
			return arr
		}
		arr.items = append(arr.items, tok)
	}
}

// literal reads a (string) body; the opening paren is already consumed.
func (s *contentScanner) literal() []byte {
	var out []byte
	depth := 1
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		switch c {
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return out
			}
			out = append(out, c)
		case '\\':
			if s.pos >= len(s.data) {
				return out
			}
			e := s.data[s.pos]
			s.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if s.pos < len(s.data) && s.data[s.pos] == '\n' {
					s.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && s.pos < len(s.data) && s.data[s.pos] >= '0' && s.data[s.pos] <= '7'; i++ {
						v = v*8 + int(s.data[s.pos]-'0')
						s.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
		default:
			out = append(out, c)
		}
	}
	return out
}

// hex reads a <hex string> body; the opening angle is already consumed.
func (s *contentScanner) hex() []byte {
	var out []byte
	var hi byte
	half := false
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		if c == '>' {
			break
		}
		v, ok := hexValue(c)
		if !ok {
			continue
		}
		if half {
			out = append(out, hi<<4|v)
		} else {
			hi = v
		}
		half = !half
	}
	if half {
		out = append(out, hi<<4)
	}
	return out
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func (s *contentScanner) skipInlineImage() {
	for s.pos+2 <= len(s.data) {
		if s.data[s.pos] == 'E' && s.data[s.pos+1] == 'I' &&
			s.pos > 0 && isPDFWhitespace(s.data[s.pos-1]) &&
			(s.pos+2 == len(s.data) || isPDFWhitespace(s.data[s.pos+2])) {
			s.pos += 2
			return
		}
		s.pos++
	}
	s.pos = len(s.data)
}

// WinAnsi code points that differ from Latin-1.
var winAnsi = map[byte]rune{
	0x80: '€', 0x85: '…', 0x91: '‘', 0x92: '’', 0x93: '“', 0x94: '”',
	0x95: '•', 0x96: '–', 0x97: '—', 0x99: '™',
}

func decodeBytes(b []byte) string {
	if len(b) >= 2 && b[0] == 0xfe && b[1] == 0xff {
		return utf16BE(b[2:])
	}
	var sb strings.Builder
	for _, c := range b {
		if r, ok := winAnsi[c]; ok {
			sb.WriteRune(r)
			continue
		}
		sb.WriteRune(rune(c))
	}
	return sb.String()
}
