package hololisp

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatValue renders v the way print/prin1 write it: numbers in their
// shortest round-tripping decimal form, symbols by name, nil/true as
// the bare words, conses as parenthesized (possibly dotted) lists,
// and the remaining object kinds as a short `#<kind name>` tag;
// there is no reader syntax for them, so this is debug-readable only.
func FormatValue(v Value) string {
	var b strings.Builder
	writeValue(&b, v)
	return b.String()
}

func writeValue(b *strings.Builder, v Value) {
	switch {
	case IsNum(v):
		b.WriteString(strconv.FormatFloat(AsNum(v), 'g', -1, 64))
	case IsNil(v):
		b.WriteString("nil")
	case IsTrue(v):
		b.WriteString("true")
	case IsSymbol(v):
		b.WriteString(SymbolName(v))
	case IsCons(v):
		writeCons(b, v)
	case IsFunc(v):
		writeTagged(b, "func", v)
	case IsMacro(v):
		writeTagged(b, "macro", v)
	case IsBinding(v):
		b.WriteString("#<binding ")
		b.WriteString(BindingName(v))
		b.WriteByte('>')
	case IsEnv(v):
		b.WriteString("#<env>")
	default:
		b.WriteString("#<unknown>")
	}
}

func writeTagged(b *strings.Builder, tag string, fn Value) {
	b.WriteString("#<")
	b.WriteString(tag)
	if name := FuncChunk(fn).Name; !IsNil(name) && IsSymbol(name) {
		b.WriteByte(' ')
		b.WriteString(SymbolName(name))
	}
	b.WriteByte('>')
}

func writeCons(b *strings.Builder, v Value) {
	b.WriteByte('(')
	first := true
	for IsCons(v) {
		if !first {
			b.WriteByte(' ')
		}
		first = false
		writeValue(b, Car(v))
		v = Cdr(v)
	}
	if !IsNil(v) {
		b.WriteString(" . ")
		writeValue(b, v)
	}
	b.WriteByte(')')
}

// Disassemble renders one line per instruction in c, resolving
// constant-pool and jump operands inline so a reader never has to
// cross-reference the raw byte stream by hand. Used by
// tools/hololispdump.
func Disassemble(c *Chunk) []string {
	var lines []string
	ip := 0
	for ip < len(c.Code) {
		op := Op(c.Code[ip])
		line := fmt.Sprintf("%04d  %-8s", ip, op)
		switch op {
		case OpConst, OpMakeFunc:
			idx := readU16(c.Code, ip+1)
			line += fmt.Sprintf("%5d  ; %s", idx, FormatValue(c.Constants[idx]))
			ip += 3
		case OpJN, OpJmp:
			offset := int16(readU16(c.Code, ip+1))
			target := ip + 3 + int(offset)
			line += fmt.Sprintf("%5d  ; -> %04d", offset, target)
			ip += 3
		default:
			ip++
		}
		lines = append(lines, line)
	}
	return lines
}
