package hololisp

import "encoding/binary"

// Op is a bytecode opcode.
type Op byte

const (
	OpEnd Op = iota
	OpNil
	OpTrue
	OpConst // u16 constant-pool index
	OpAppend
	OpPop
	OpFind
	OpCall
	OpJN  // u16 signed offset, two's complement; pops cond, jumps if nil
	OpJmp // u16 signed offset, two's complement; unconditional
	OpLet
	OpPushEnv
	OpPopEnv
	OpCar
	OpCdr
	OpSetCar
	OpSetCdr
	OpMakeFunc // u16 constant-pool index
)

var opNames = [...]string{
	OpEnd:      "end",
	OpNil:      "nil",
	OpTrue:     "true",
	OpConst:    "const",
	OpAppend:   "append",
	OpPop:      "pop",
	OpFind:     "find",
	OpCall:     "call",
	OpJN:       "jn",
	OpJmp:      "jmp",
	OpLet:      "let",
	OpPushEnv:  "pushenv",
	OpPopEnv:   "popenv",
	OpCar:      "car",
	OpCdr:      "cdr",
	OpSetCar:   "setcar",
	OpSetCdr:   "setcdr",
	OpMakeFunc: "makefun",
}

func (op Op) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return "unknown"
}

// opHasU16Operand reports whether op is followed by a 2-byte operand
// in the encoded byte stream.
func opHasU16Operand(op Op) bool {
	switch op {
	case OpConst, OpJN, OpJmp, OpMakeFunc:
		return true
	default:
		return false
	}
}

// locEntry is one run-length-encoded op->source-offset mapping entry:
// `length` consecutive bytecode bytes starting at a running cursor
// all share `offset` as their source location.
type locEntry struct {
	length int
	offset int
}

// Chunk is the compilation unit produced by the compiler: the opcode
// byte vector, its constant pool, a debug translation-unit id, an
// owning name, and the RLE location map used to recover a source
// offset for any instruction during error reporting.
//
// refcount exists because a func/macro value's chunk may need to
// outlive the compiler-held template constant that first referenced
// it, and conversely a chunk may need freeing (in the refcount
// sense, see freeObj in gc.go) while other, unrelated func/macro
// values remain alive. The bytes themselves are ordinary Go-GC'd
// memory; refcount tracks the ownership bookkeeping, not actual
// deallocation.
type Chunk struct {
	Code      []byte
	Constants []Value

	TranslationUnit int
	Name            Value

	locs     []locEntry
	refcount int32
}

// NewChunk creates an empty chunk owned, from creation, by exactly
// one reference: the constant-pool template the compiler is about to
// install it under, or, for a top-level chunk, the wrapper closure
// runChunk builds around it.
func NewChunk(name Value, translationUnit int) *Chunk {
	return &Chunk{Name: name, TranslationUnit: translationUnit, refcount: 1}
}

func (c *Chunk) incRef() { c.refcount++ }

func (c *Chunk) decRef() {
	c.refcount--
	if c.refcount < 0 {
		panic("hololisp: bytecode chunk refcount underflow")
	}
}

// Refcount reports the chunk's current reference count, exposed so
// tests can observe the ownership bookkeeping.
func (c *Chunk) Refcount() int32 { return c.refcount }

func (c *Chunk) emitByte(b byte) int {
	c.Code = append(c.Code, b)
	return len(c.Code) - 1
}

func (c *Chunk) emitU16(v uint16) int {
	at := len(c.Code)
	c.Code = append(c.Code, 0, 0)
	binary.LittleEndian.PutUint16(c.Code[at:], v)
	return at
}

// patchU16 rewrites the u16 operand written at byte offset at, used
// to back-patch forward jump targets once the jump destination is
// known.
func (c *Chunk) patchU16(at int, v uint16) {
	binary.LittleEndian.PutUint16(c.Code[at:], v)
}

func readU16(code []byte, at int) uint16 {
	return binary.LittleEndian.Uint16(code[at:])
}

// addConstant appends v to the constant pool and returns its index.
// Constant-pool entries are GC roots while the chunk is live;
// gc.go's blacken enforces that.
func (c *Chunk) addConstant(v Value) uint16 {
	c.Constants = append(c.Constants, v)
	return uint16(len(c.Constants) - 1)
}

// emitOp appends op (and, if it has a fixed-size immediate operand,
// the zero-valued placeholder for it) at the current cursor, and
// records the RLE source-offset mapping entry for it. Returns the
// byte offset the operand (if any) was written at, so the caller can
// patch it in later (OpConst/OpMakeFunc indices, OpJN targets).
func (c *Chunk) emitOp(op Op, offset int) int {
	c.recordLoc(offset, 1)
	c.emitByte(byte(op))
	if opHasU16Operand(op) {
		c.recordLoc(offset, 2)
		return c.emitU16(0)
	}
	return -1
}

func (c *Chunk) recordLoc(offset, length int) {
	if n := len(c.locs); n > 0 && c.locs[n-1].offset == offset {
		c.locs[n-1].length += length
		return
	}
	c.locs = append(c.locs, locEntry{length: length, offset: offset})
}

// SourceOffset recovers the source byte offset an executed bytecode
// index op mapped from, by walking the RLE table. Used by the VM to
// tie a runtime error back to source.
func (c *Chunk) SourceOffset(opIdx int) int {
	cursor := 0
	for _, e := range c.locs {
		if opIdx >= cursor && opIdx < cursor+e.length {
			return e.offset
		}
		cursor += e.length
	}
	return 0
}
