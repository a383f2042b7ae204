package hololisp

import (
	"fmt"
	"sort"
)

// ErrorKind classifies a Diagnostic by the pipeline stage that raised
// it.
type ErrorKind int

const (
	ErrLex ErrorKind = iota
	ErrRead
	ErrCompile
	ErrRuntime
)

func (k ErrorKind) String() string {
	switch k {
	case ErrLex:
		return "lex"
	case ErrRead:
		return "read"
	case ErrCompile:
		return "compile"
	case ErrRuntime:
		return "runtime"
	default:
		return "unknown"
	}
}

// Diagnostic is a structured error record: a translation unit, a
// byte span within it, a kind, and a message. Line and column are
// never stored; they are recovered lazily from the translation
// unit's source buffer only when a diagnostic needs to be rendered.
type Diagnostic struct {
	TranslationUnit int
	Offset          int
	Length          int
	Kind            ErrorKind
	Message         string
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s error: %s", d.Kind, d.Message)
}

// TranslationUnit holds one interpret call's source buffer, its host
// facing name, and a lazily built LineIndex for offset-to-line/column
// recovery.
type TranslationUnit struct {
	Name   string
	Source []byte

	lineIndex *LineIndex
}

func newTranslationUnit(name string, source []byte) *TranslationUnit {
	return &TranslationUnit{Name: name, Source: source}
}

// Location renders the 1-based line and column for a byte offset
// within this translation unit, building the LineIndex on first use.
func (tu *TranslationUnit) Location(offset int) (line, column int) {
	if tu.lineIndex == nil {
		tu.lineIndex = NewLineIndex(tu.Source)
	}
	return tu.lineIndex.LineColumn(offset)
}

// LineIndex allows fast conversion from byte offsets to 1-based
// line/column pairs: it stores the start byte offset of each line and
// binary searches it, rather than rescanning the source on every
// diagnostic.
type LineIndex struct {
	source    []byte
	lineStart []int
}

// NewLineIndex builds a LineIndex over source in O(n).
func NewLineIndex(source []byte) *LineIndex {
	lineStart := make([]int, 1, 64)
	lineStart[0] = 0
	for i, b := range source {
		if b == '\n' {
			lineStart = append(lineStart, i+1)
		}
	}
	return &LineIndex{source: source, lineStart: lineStart}
}

// LineColumn returns the 1-based line and column for a byte offset.
func (li *LineIndex) LineColumn(offset int) (line, column int) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(li.source) {
		offset = len(li.source)
	}
	idx := sort.Search(len(li.lineStart), func(i int) bool {
		return li.lineStart[i] > offset
	}) - 1
	if idx < 0 {
		idx = 0
	}
	return idx + 1, offset - li.lineStart[idx] + 1
}

// diagnosticSink counts Diagnostic records and forwards each
// one to the host's error callback as it is produced: the core never
// buffers diagnostics for later rendering and never writes to a
// stream itself.
type diagnosticSink struct {
	tuID       int
	errorFn    func(Diagnostic)
	errorCount int
}

func (s *diagnosticSink) report(kind ErrorKind, offset, length int, format string, args ...interface{}) {
	d := Diagnostic{
		TranslationUnit: s.tuID,
		Offset:          offset,
		Length:          length,
		Kind:            kind,
		Message:         fmt.Sprintf(format, args...),
	}
	s.errorCount++
	if s.errorFn != nil {
		s.errorFn(d)
	}
}
