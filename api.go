package hololisp

// MakeVM constructs a VM from cfg, seeding every documented default
// for any field cfg leaves zero-valued, so a partially filled Config
// behaves the same as NewConfig plus explicit overrides.
func MakeVM(cfg *Config) *VM {
	if cfg == nil {
		cfg = NewConfig()
	}
	merged := *cfg
	defaults := NewConfig()
	if merged.WriteFn == nil {
		merged.WriteFn = defaults.WriteFn
	}
	if merged.ErrorFn == nil {
		merged.ErrorFn = defaults.ErrorFn
	}
	if merged.HeapSize == 0 {
		merged.HeapSize = defaults.HeapSize
	}
	if merged.MinHeapSize == 0 {
		merged.MinHeapSize = defaults.MinHeapSize
	}
	if merged.HeapGrowPercent == 0 {
		merged.HeapGrowPercent = defaults.HeapGrowPercent
	}
	if merged.MaxCallDepth == 0 {
		merged.MaxCallDepth = defaults.MaxCallDepth
	}
	return newVM(&merged)
}

// DeleteVM releases vm's host-visible state. Go's own collector owns
// every allocation the tracing GC merely tracks liveness for, so
// there is nothing to free by hand; this exists for API parity with
// the construct/destroy pairing of the embedding API, and as the one
// place a future caller-visible teardown step (flushing buffered
// output, say) would go.
func DeleteVM(vm *VM) {
	vm.stack = nil
	vm.callStack = nil
}

// AddBinding installs a host-implemented primitive under name in
// vm's global environment, usable both by installBuiltins and by an
// embedder extending the language before its first Interpret call.
func (vm *VM) AddBinding(name string, fn hostFn) {
	vm.pushForbid()
	b := vm.NewBinding(name, fn)
	vm.popForbid()
	vm.defineIn(vm.globalEnv, name, b)
}

// Interpret runs one translation unit end to end: lex, read, compile,
// and execute each top-level form in turn. Every diagnostic the pipeline produces is forwarded
// through cfg.ErrorFn as it's found rather than buffered; Interpret's
// return value only summarizes which of the three outcomes occurred.
//
// A read-layer error aborts the whole call immediately: a malformed
// token stream gives the reader nothing reliable to resynchronize on.
// A compile-layer error, by contrast, only aborts that one top-level
// form: compilation resumes with the next form, so a single source
// file can report more than one compile diagnostic per call. The
// first runtime error aborts the entire call outright, overriding
// whatever compile errors were already seen, since by definition a
// form ran far enough to have externally visible side effects.
func Interpret(vm *VM, source []byte, name string) Outcome {
	tu := newTranslationUnit(name, source)
	tuID := len(vm.tus)
	vm.tus = append(vm.tus, tu)

	sink := &diagnosticSink{tuID: tuID, errorFn: vm.Config.ErrorFn}
	vm.sink = sink

	lex := NewLexer(source)
	reader := NewReader(vm, lex, sink)

	sawError := false
	for !reader.AtEOF() {
		node, ok := reader.Read()
		if !ok {
			return OutcomeCompileError
		}

		// The read tree is held by Go Node structs the tracing GC
		// cannot see; pin its value graph until the compiler has
		// copied what it needs into the chunk's constant pool.
		vm.pushTempRoot(node.Value)
		formSink := &diagnosticSink{tuID: tuID, errorFn: vm.Config.ErrorFn}
		chunk := CompileTopLevel(vm, node, tuID, formSink)
		vm.popTempRoot()
		if formSink.errorCount > 0 {
			sawError = true
			continue
		}

		if _, err := vm.runChunk(chunk); err != nil {
			return OutcomeRuntimeError
		}
	}

	if sawError {
		return OutcomeCompileError
	}
	return OutcomeOK
}

// CompileAll lexes, reads, and compiles every top-level form in
// source without executing any of them, returning one chunk per form
// that compiled cleanly plus every diagnostic the pipeline raised
// along the way. This is the entry point tools/hololispdump uses to
// inspect bytecode rather than run it; Interpret itself never hands
// a caller a *Chunk, since running each form immediately is its whole
// point.
func CompileAll(vm *VM, source []byte, name string) ([]*Chunk, []Diagnostic) {
	tuID := len(vm.tus)
	vm.tus = append(vm.tus, newTranslationUnit(name, source))

	var diags []Diagnostic
	collect := func(d Diagnostic) { diags = append(diags, d) }

	lex := NewLexer(source)
	readSink := &diagnosticSink{tuID: tuID, errorFn: collect}
	reader := NewReader(vm, lex, readSink)

	var chunks []*Chunk
	for !reader.AtEOF() {
		node, ok := reader.Read()
		if !ok {
			break
		}
		vm.pushTempRoot(node.Value)
		formSink := &diagnosticSink{tuID: tuID, errorFn: collect}
		chunk := CompileTopLevel(vm, node, tuID, formSink)
		vm.popTempRoot()
		if formSink.errorCount == 0 {
			chunks = append(chunks, chunk)
		}
	}
	return chunks, diags
}
