package hololisp

import "fmt"

// frame is one bytecode call frame: the function value being executed
// (so its chunk's constants stay GC-reachable via blacken), a cached
// pointer to that chunk, the instruction pointer, the environment
// active for this frame's body, and the operand-stack base to trim
// back to on return.
type frame struct {
	fn    Value
	chunk *Chunk
	ip    int
	env   Value
	base  int
}

// VM is the stack-based bytecode interpreter: one fetch-decode-execute
// loop, one operand stack, one call-frame stack, a global and a
// compile-time-only macro environment, the symbol table, and the
// tracing collector.
type VM struct {
	Config Config

	gc gcState

	globalEnv Value
	macroEnv  Value
	env       Value

	stack     []Value
	callStack []frame

	symbols map[string]Value

	// activeChunks tracks every chunk the compiler currently has open,
	// innermost last; their constant pools are GC roots for as long as
	// compilation of the enclosing top-level form is in flight.
	activeChunks []*Chunk

	tus  []*TranslationUnit
	sink *diagnosticSink
}

func newVM(cfg *Config) *VM {
	vm := &VM{
		Config:  *cfg,
		gc:      newGCState(cfg.HeapSize),
		symbols: make(map[string]Value, 256),
	}
	vm.gc.stress = cfg.StressGC
	vm.globalEnv = vm.NewEnv(MakeNil())
	vm.macroEnv = vm.NewEnv(MakeNil())
	vm.env = vm.globalEnv
	installBuiltins(vm)
	return vm
}

func (vm *VM) push(v Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() Value {
	n := len(vm.stack) - 1
	v := vm.stack[n]
	vm.stack = vm.stack[:n]
	return v
}

// defineIn installs (name . value) as a new binding in env, shadowing
// any existing binding of the same name reachable from env.
func (vm *VM) defineIn(env Value, name string, v Value) {
	vm.pushForbid()
	sym := vm.internSymbol(name)
	pair := vm.NewCons(sym, v)
	SetEnvVars(env, vm.NewCons(pair, EnvVars(env)))
	vm.popForbid()
}

// lookup walks env's parent chain and returns the (name . value) pair
// cons itself, not just its value; FIND's result is further
// navigated with car/cdr by compiled code, which is how a symbol
// reference reads its value (cdr) and setq mutates it (setcdr)
// without the VM needing two different opcodes for the same search.
func (vm *VM) lookup(env, sym Value) (Value, bool) {
	for e := env; !IsNil(e); e = EnvUp(e) {
		for l := EnvVars(e); IsCons(l); l = Cdr(l) {
			pair := Car(l)
			if Car(pair) == sym {
				return pair, true
			}
		}
	}
	return MakeNil(), false
}

// bindParams creates a fresh env chained onto capturedEnv and binds
// params (a proper or dotted list of symbols) to the values in args.
// A dotted tail symbol collects any remaining arguments as a rest
// parameter, mirroring the reader's own proper/improper list shapes.
func (vm *VM) bindParams(params, args, capturedEnv Value) (Value, error) {
	vm.pushForbid()
	defer vm.popForbid()

	env := vm.NewEnv(capturedEnv)
	p, a := params, args
	for IsCons(p) {
		if !IsCons(a) {
			return MakeNil(), fmt.Errorf("too few arguments")
		}
		vm.defineIn(env, SymbolName(Car(p)), Car(a))
		p = Cdr(p)
		a = Cdr(a)
	}
	switch {
	case IsSymbol(p):
		vm.defineIn(env, SymbolName(p), a)
	case IsNil(p):
		if IsCons(a) {
			return MakeNil(), fmt.Errorf("too many arguments")
		}
	default:
		return MakeNil(), fmt.Errorf("malformed parameter list")
	}
	return env, nil
}

func (vm *VM) runtimeError(offset int, format string, args ...interface{}) error {
	if vm.sink != nil {
		vm.sink.report(ErrRuntime, offset, 1, format, args...)
	}
	return fmt.Errorf(format, args...)
}

// runChunk executes chunk as a fresh top-level call: it is wrapped in
// a throwaway zero-parameter closure over the global env so its
// constant pool is GC-reachable through the usual frame.fn path, just
// like any other call.
func (vm *VM) runChunk(chunk *Chunk) (Value, error) {
	vm.pushForbid()
	topFn := vm.NewFunc(chunk, MakeNil(), vm.globalEnv, false)
	vm.popForbid()

	floor := len(vm.callStack)
	base := len(vm.stack)
	savedEnv := vm.env
	vm.env = vm.globalEnv
	vm.callStack = append(vm.callStack, frame{fn: topFn, chunk: chunk, env: vm.globalEnv, base: base})
	if len(vm.callStack) > vm.Config.MaxCallDepth {
		vm.callStack = vm.callStack[:floor]
		vm.env = savedEnv
		return MakeNil(), fmt.Errorf("call depth exceeded")
	}
	result, err := vm.run(floor)
	if err != nil {
		// A runtime error leaves run's frames where they were; unwind
		// them so the VM is ready for the next top-level form.
		vm.callStack = vm.callStack[:floor]
		vm.stack = vm.stack[:base]
	}
	// The eval builtin re-enters here mid-instruction; the caller's
	// environment must come back with us.
	vm.env = savedEnv
	return result, err
}

// run is the fetch-decode-execute loop. It executes frames until the
// call stack shrinks back to floor, at which point the frame that
// runChunk/callFunc pushed has returned and its result is handed back
// to the Go caller; everything above floor is handled purely by
// manipulating vm.callStack, so hololisp-level recursion never grows
// the Go call stack.
func (vm *VM) run(floor int) (Value, error) {
	for {
		f := &vm.callStack[len(vm.callStack)-1]
		op := Op(f.chunk.Code[f.ip])
		opOffset := f.chunk.SourceOffset(f.ip)
		f.ip++

		switch op {
		case OpEnd:
			result := vm.pop()
			vm.stack = vm.stack[:f.base]
			vm.callStack = vm.callStack[:len(vm.callStack)-1]
			if len(vm.callStack) == floor {
				return result, nil
			}
			vm.push(result)
			vm.env = vm.callStack[len(vm.callStack)-1].env

		case OpNil:
			vm.push(MakeNil())

		case OpTrue:
			vm.push(MakeTrue())

		case OpConst:
			idx := readU16(f.chunk.Code, f.ip)
			f.ip += 2
			vm.push(f.chunk.Constants[idx])

		case OpPop:
			vm.pop()

		case OpFind:
			sym := vm.pop()
			pair, ok := vm.lookup(vm.env, sym)
			if !ok {
				return MakeNil(), vm.runtimeError(opOffset, "unbound symbol %s", SymbolName(sym))
			}
			vm.push(pair)

		case OpLet:
			// Duplicate-name detection is a compile-time concern
			// (compiler.go rejects repeated names within one let's
			// own binding clauses); at runtime LET always prepends,
			// which is also what lets a later defun of the same name
			// shadow an earlier one instead of erroring.
			val := vm.pop()
			name := vm.pop()
			vm.pushForbid()
			pair := vm.NewCons(name, val)
			SetEnvVars(vm.env, vm.NewCons(pair, EnvVars(vm.env)))
			vm.popForbid()

		case OpPushEnv:
			vm.env = vm.NewEnv(vm.env)
			f.env = vm.env

		case OpPopEnv:
			vm.env = EnvUp(vm.env)
			f.env = vm.env

		case OpCar:
			v := vm.pop()
			if !IsNil(v) && !IsCons(v) {
				return MakeNil(), vm.runtimeError(opOffset, "car: not a list")
			}
			vm.push(Car(v))

		case OpCdr:
			v := vm.pop()
			if !IsNil(v) && !IsCons(v) {
				return MakeNil(), vm.runtimeError(opOffset, "cdr: not a list")
			}
			vm.push(Cdr(v))

		case OpSetCar:
			val := vm.pop()
			target := vm.pop()
			if !IsCons(target) {
				return MakeNil(), vm.runtimeError(opOffset, "setcar: not a cons")
			}
			SetCar(target, val)
			vm.push(val)

		case OpSetCdr:
			val := vm.pop()
			target := vm.pop()
			if !IsCons(target) {
				return MakeNil(), vm.runtimeError(opOffset, "setcdr: not a cons")
			}
			SetCdr(target, val)
			vm.push(val)

		case OpAppend:
			x := vm.pop()
			vm.pushForbid()
			newCons := vm.NewCons(x, MakeNil())
			vm.popForbid()
			n := len(vm.stack)
			tail := vm.stack[n-1]
			if IsNil(tail) {
				vm.stack[n-2] = newCons
			} else {
				SetCdr(tail, newCons)
			}
			vm.stack[n-1] = newCons

		case OpJN:
			offset := int16(readU16(f.chunk.Code, f.ip))
			f.ip += 2
			cond := vm.pop()
			if IsNil(cond) {
				f.ip += int(offset)
			}

		case OpJmp:
			offset := int16(readU16(f.chunk.Code, f.ip))
			f.ip += 2
			f.ip += int(offset)

		case OpMakeFunc:
			idx := readU16(f.chunk.Code, f.ip)
			f.ip += 2
			template := f.chunk.Constants[idx]
			chunk := FuncChunk(template)
			chunk.incRef()
			vm.pushForbid()
			closure := vm.NewFunc(chunk, FuncParams(template), vm.env, IsMacro(template))
			vm.popForbid()
			vm.push(closure)

		case OpCall:
			args := vm.pop()
			callee := vm.pop()
			switch {
			case IsBinding(callee):
				// args/callee are off vm.stack for the duration of
				// the host call; pin them as temp roots so a
				// collection triggered by the binding's own
				// allocations can't sweep an argument that's
				// otherwise unreachable in the interim.
				vm.pushTempRoot(args)
				vm.pushTempRoot(callee)
				result, err := CallBinding(vm, callee, args)
				vm.popTempRoot()
				vm.popTempRoot()
				if err != nil {
					return MakeNil(), vm.runtimeError(opOffset, "%s", err.Error())
				}
				vm.push(result)

			case IsFunc(callee):
				env, err := vm.bindParams(FuncParams(callee), args, FuncEnv(callee))
				if err != nil {
					return MakeNil(), vm.runtimeError(opOffset, "%s", err.Error())
				}
				newBase := len(vm.stack)
				vm.callStack = append(vm.callStack, frame{fn: callee, chunk: FuncChunk(callee), env: env, base: newBase})
				if len(vm.callStack) > vm.Config.MaxCallDepth {
					return MakeNil(), vm.runtimeError(opOffset, "call depth exceeded")
				}
				vm.env = env

			case IsMacro(callee):
				return MakeNil(), vm.runtimeError(opOffset, "cannot call a macro at runtime")

			default:
				return MakeNil(), vm.runtimeError(opOffset, "not callable")
			}

		default:
			return MakeNil(), vm.runtimeError(opOffset, "corrupt bytecode: bad opcode %d", byte(op))
		}
	}
}

// callFunc invokes a func or macro value from host (Go) code; its
// caller is the compiler's compile-time macro expansion. Unlike
// OpCall, this is a genuine Go-level call, so each nested expansion
// adds Go stack depth.
func (vm *VM) callFunc(fn Value, args Value) (Value, error) {
	env, err := vm.bindParams(FuncParams(fn), args, FuncEnv(fn))
	if err != nil {
		return MakeNil(), err
	}
	floor := len(vm.callStack)
	base := len(vm.stack)
	savedEnv := vm.env
	vm.env = env
	vm.callStack = append(vm.callStack, frame{fn: fn, chunk: FuncChunk(fn), env: env, base: base})
	if len(vm.callStack) > vm.Config.MaxCallDepth {
		vm.callStack = vm.callStack[:floor]
		vm.env = savedEnv
		return MakeNil(), fmt.Errorf("call depth exceeded")
	}
	result, err := vm.run(floor)
	if err != nil {
		vm.callStack = vm.callStack[:floor]
		vm.stack = vm.stack[:base]
	}
	vm.env = savedEnv
	return result, err
}
