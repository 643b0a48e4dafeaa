package extract

import (
	"strings"
	"unicode/utf16"
)

// cmap maps character codes of a font to Unicode, as read from its
// ToUnicode stream.
type cmap struct {
	// codeLen is the byte width of one character code.
	codeLen int
	chars   map[uint32]string
	ranges  []cmapRange
}

type cmapRange struct {
	lo, hi uint32
	// base is the mapping of lo; later codes increment its last rune.
	base []rune
	// list, when set, maps lo+i to list[i].
	list []string
}

// parseCMap reads codespace, bfchar and bfrange sections. defaultLen is used
// when the stream declares no codespace.
func parseCMap(stream []byte, defaultLen int) *cmap {
	cm := &cmap{chars: map[uint32]string{}}
	eachOperator(stream, func(op string, operands []token) {
		switch op {
		case "endcodespacerange":
			if len(operands) > 0 && cm.codeLen == 0 && operands[0].kind == tokString {
				cm.codeLen = len(operands[0].raw)
			}
		case "endbfchar":
			for i := 0; i+1 < len(operands); i += 2 {
				src, dst := operands[i], operands[i+1]
				if src.kind != tokString || dst.kind != tokString {
					continue
				}
				cm.chars[codeOf(src.raw)] = utf16BE(dst.raw)
			}
		case "endbfrange":
			for i := 0; i+2 < len(operands); i += 3 {
				lo, hi, dst := operands[i], operands[i+1], operands[i+2]
				if lo.kind != tokString || hi.kind != tokString {
					continue
				}
				r := cmapRange{lo: codeOf(lo.raw), hi: codeOf(hi.raw)}
				switch dst.kind {
				case tokString:
					r.base = []rune(utf16BE(dst.raw))
				case tokArray:
					for _, item := range dst.items {
						r.list = append(r.list, utf16BE(item.raw))
					}
				default:
					continue
				}
				if r.hi >= r.lo {
					cm.ranges = append(cm.ranges, r)
				}
			}
		}
	})
	if cm.codeLen <= 0 || cm.codeLen > 4 {
		cm.codeLen = defaultLen
	}
	return cm
}

func (c *cmap) lookup(code uint32) (string, bool) {
	if s, ok := c.chars[code]; ok {
		return s, true
	}
	for _, r := range c.ranges {
		if code < r.lo || code > r.hi {
			continue
		}
		off := code - r.lo
		if r.list != nil {
			if int(off) < len(r.list) {
				return r.list[off], true
			}
			return "", false
		}
		if len(r.base) == 0 {
			return "", false
		}
		out := append([]rune(nil), r.base...)
		out[len(out)-1] += rune(off)
		return string(out), true
	}
	return "", false
}

// decode maps a shown string code by code. Unmapped single-byte codes fall
// back to WinAnsi; unmapped multi-byte codes are glyph ids and are dropped.
func (c *cmap) decode(b []byte) string {
	var sb strings.Builder
	for i := 0; i+c.codeLen <= len(b); i += c.codeLen {
		code := codeOf(b[i : i+c.codeLen])
		if s, ok := c.lookup(code); ok {
			sb.WriteString(s)
			continue
		}
		if c.codeLen == 1 {
			sb.WriteString(decodeBytes(b[i : i+1]))
		}
	}
	return sb.String()
}

func codeOf(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}

func utf16BE(b []byte) string {
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
	}
	return string(utf16.Decode(units))
}
