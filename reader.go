package hololisp

// Span is a byte range within one translation unit's source buffer.
type Span struct {
	Offset int
	Length int
}

// Node is the reader's output: a parallel tree alongside the Value
// tree it produced, carrying source spans the compiler needs to
// populate a Chunk's RLE location map. List is non-nil
// for list forms (one Node per element); Tail is set when the list
// had a dotted tail. A quoted form `'x` reads as the two-element list
// node (quote x), so the compiler only ever has to special-case the
// leading symbol, not a separate node kind.
type Node struct {
	Value Value
	Span  Span
	List  []*Node
	Tail  *Node
}

func (n *Node) isList() bool { return n.List != nil }

// Reader is the recursive-descent parser from tokens to a read
// tree. It shares a VM (for interning
// symbols and allocating conses) and a diagnosticSink (for read-layer
// errors) with the rest of the translation unit's pipeline.
type Reader struct {
	vm   *VM
	lex  *Lexer
	sink *diagnosticSink
}

// NewReader returns a Reader over lex, reporting through sink and
// allocating through vm.
func NewReader(vm *VM, lex *Lexer, sink *diagnosticSink) *Reader {
	return &Reader{vm: vm, lex: lex, sink: sink}
}

// AtEOF reports whether the underlying lexer has nothing left to read
// once whitespace and comments are skipped.
func (r *Reader) AtEOF() bool {
	tok, _ := r.lex.Peek()
	return tok.Kind == TokEOF
}

// Read parses one top-level form. ok is false if the lexer was
// already at EOF (no form to read) or a read-layer error aborted the
// attempt; the caller distinguishes the two via AtEOF.
func (r *Reader) Read() (*Node, bool) {
	r.vm.pushForbid()
	defer r.vm.popForbid()

	if r.AtEOF() {
		return nil, false
	}
	return r.readForm()
}

func (r *Reader) readForm() (*Node, bool) {
	tok, lexRes := r.lex.Peek()

	switch tok.Kind {
	case TokNumber:
		r.lex.Eat()
		if lexRes == LexIntOverflow {
			r.sink.report(ErrRead, tok.Offset, tok.Length, "integer literal out of range")
			return nil, false
		}
		return &Node{Value: MakeNum(tok.Num), Span: Span{tok.Offset, tok.Length}}, true

	case TokSymbol:
		r.lex.Eat()
		return &Node{Value: r.symbolValue(tok.Text), Span: Span{tok.Offset, tok.Length}}, true

	case TokDot:
		r.lex.Eat()
		if lexRes == LexAllDotSymbol {
			r.sink.report(ErrRead, tok.Offset, tok.Length, "invalid symbol %q", dotsText(tok.Length))
		} else {
			r.sink.report(ErrRead, tok.Offset, tok.Length, "unexpected '.'")
		}
		return nil, false

	case TokQuote:
		r.lex.Eat()
		inner, ok := r.readForm()
		if !ok {
			return nil, false
		}
		quoteSym := &Node{Value: r.vm.internSymbol("quote"), Span: Span{tok.Offset, 1}}
		listVal := r.vm.NewCons(inner.Value, MakeNil())
		listVal = r.vm.NewCons(quoteSym.Value, listVal)
		return &Node{
			Value: listVal,
			Span:  Span{tok.Offset, inner.Span.Offset + inner.Span.Length - tok.Offset},
			List:  []*Node{quoteSym, inner},
		}, true

	case TokLParen:
		r.lex.Eat()
		return r.readList(tok.Offset)

	case TokRParen:
		r.lex.Eat()
		r.sink.report(ErrRead, tok.Offset, tok.Length, "unexpected ')'")
		return nil, false

	case TokEOF:
		r.sink.report(ErrRead, tok.Offset, 0, "unexpected end of input, expected a form")
		return nil, false

	default: // TokUnexpected
		r.lex.Eat()
		r.sink.report(ErrRead, tok.Offset, tok.Length, "unexpected byte")
		return nil, false
	}
}

func dotsText(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '.'
	}
	return string(b)
}

func (r *Reader) symbolValue(text string) Value {
	switch text {
	case "nil":
		return MakeNil()
	case "true":
		return MakeTrue()
	default:
		return r.vm.internSymbol(text)
	}
}

// readList parses the form* [. form] ) tail after an already-consumed
// '(' at openOffset.
func (r *Reader) readList(openOffset int) (*Node, bool) {
	var elems []*Node
	var tailNode *Node
	tail := MakeNil()
	lastOffset := openOffset + 1

	for {
		tok, lexRes := r.lex.Peek()
		switch tok.Kind {
		case TokRParen:
			r.lex.Eat()
			lastOffset = tok.Offset + tok.Length
			goto done
		case TokEOF:
			r.sink.report(ErrRead, openOffset, 1, "unterminated list, missing ')'")
			return nil, false
		case TokDot:
			r.lex.Eat()
			if lexRes == LexAllDotSymbol {
				r.sink.report(ErrRead, tok.Offset, tok.Length, "invalid symbol %q", dotsText(tok.Length))
			}
			if len(elems) == 0 {
				r.sink.report(ErrRead, tok.Offset, tok.Length, "stray '.' in list")
				r.sink.report(ErrRead, openOffset, 1, "in list opened here")
				return nil, false
			}
			dotTail, ok := r.readForm()
			if !ok {
				r.sink.report(ErrRead, openOffset, 1, "in list opened here")
				return nil, false
			}
			closeTok, _ := r.lex.Peek()
			if closeTok.Kind != TokRParen {
				r.sink.report(ErrRead, closeTok.Offset, closeTok.Length, "expected ')' after dotted tail")
				r.sink.report(ErrRead, openOffset, 1, "in list opened here")
				return nil, false
			}
			r.lex.Eat()
			tail = dotTail.Value
			tailNode = dotTail
			lastOffset = closeTok.Offset + closeTok.Length
			goto done
		default:
			elem, ok := r.readForm()
			if !ok {
				r.sink.report(ErrRead, openOffset, 1, "in list opened here")
				return nil, false
			}
			elems = append(elems, elem)
		}
	}

done:
	result := tail
	for i := len(elems) - 1; i >= 0; i-- {
		result = r.vm.NewCons(elems[i].Value, result)
	}
	return &Node{
		Value: result,
		Span:  Span{openOffset, lastOffset - openOffset},
		List:  elems,
		Tail:  tailNode,
	}, true
}
