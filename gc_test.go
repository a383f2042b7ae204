package hololisp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countLiveObjects(vm *VM) int {
	n := 0
	for o := vm.gc.allObjects; o != nil; o = o.next {
		n++
	}
	return n
}

func isLive(vm *VM, v Value) bool {
	target := unboxPtr(v)
	for o := vm.gc.allObjects; o != nil; o = o.next {
		if o == target {
			return true
		}
	}
	return false
}

func TestCollectSweepsUnreachable(t *testing.T) {
	vm := newTestVM()
	vm.collectGarbage()
	baseline := countLiveObjects(vm)

	for i := 0; i < 100; i++ {
		vm.NewCons(MakeNum(float64(i)), MakeNil())
	}
	assert.Equal(t, baseline+100, countLiveObjects(vm))

	vm.collectGarbage()
	assert.Equal(t, baseline, countLiveObjects(vm), "unrooted conses must be swept")
}

// Property 3: everything transitively reachable from a root survives
// a collection.
func TestCollectKeepsReachable(t *testing.T) {
	vm := newTestVM()

	inner := vm.NewCons(MakeNum(2), MakeNil())
	outer := vm.NewCons(MakeNum(1), inner)
	vm.defineIn(vm.globalEnv, "keepme", outer)

	vm.collectGarbage()
	vm.collectGarbage()

	assert.True(t, isLive(vm, outer))
	assert.True(t, isLive(vm, inner))
	pair, ok := vm.lookup(vm.globalEnv, vm.internSymbol("keepme"))
	require.True(t, ok)
	assert.Equal(t, "(1 2)", FormatValue(Cdr(pair)))
}

func TestTempRoots(t *testing.T) {
	vm := newTestVM()

	v := vm.NewCons(MakeNum(1), MakeNil())
	vm.pushTempRoot(v)
	vm.collectGarbage()
	assert.True(t, isLive(vm, v), "temp-rooted value must survive")

	vm.popTempRoot()
	vm.collectGarbage()
	assert.False(t, isLive(vm, v))
}

func TestForbidCounter(t *testing.T) {
	vm := newTestVM()
	vm.gc.stress = true

	vm.pushForbid()
	a := vm.NewCons(MakeNum(1), MakeNil())
	b := vm.NewCons(MakeNum(2), a)
	assert.True(t, isLive(vm, a), "no collection may run inside a forbid section")
	assert.True(t, isLive(vm, b))
	vm.popForbid()

	t.Run("unbalanced pop panics", func(t *testing.T) {
		assert.Panics(t, func() { vm.popForbid() })
	})
}

// Symbols are interned against a table that is not itself a root: a
// collected symbol must leave the table so identity and byte equality
// keep coinciding.
func TestSymbolTableSweep(t *testing.T) {
	vm := newTestVM()

	vm.internSymbol("ephemeral")
	_, present := vm.symbols["ephemeral"]
	require.True(t, present)

	vm.collectGarbage()
	_, present = vm.symbols["ephemeral"]
	assert.False(t, present, "swept symbol must leave the intern table")

	again := vm.internSymbol("ephemeral")
	assert.Equal(t, "ephemeral", SymbolName(again))

	t.Run("rooted symbols stay interned", func(t *testing.T) {
		vm.defineIn(vm.globalEnv, "sticky", MakeNum(1))
		vm.collectGarbage()
		_, present := vm.symbols["sticky"]
		assert.True(t, present)
	})
}

func TestFuncKeepsConstantsAlive(t *testing.T) {
	vm := newTestVM()

	chunk := NewChunk(MakeNil(), 0)
	leaf := vm.NewCons(MakeNum(7), MakeNil())
	chunk.addConstant(leaf)

	fn := vm.NewFunc(chunk, MakeNil(), vm.globalEnv, false)
	vm.pushTempRoot(fn)
	vm.collectGarbage()

	assert.True(t, isLive(vm, leaf), "constant-pool entries are roots while the chunk is live")
	vm.popTempRoot()
}

func TestGrowPolicyClampsToMinHeap(t *testing.T) {
	cfg := NewConfig()
	cfg.WriteFn = func(string) {}
	cfg.ErrorFn = func(Diagnostic) {}
	cfg.MinHeapSize = 1 << 16
	vm := MakeVM(cfg)

	vm.collectGarbage()
	assert.GreaterOrEqual(t, vm.gc.nextGC, uintptr(1<<16))
}

func TestChunkRefcount(t *testing.T) {
	c := NewChunk(MakeNil(), 0)
	assert.Equal(t, int32(1), c.Refcount())
	c.incRef()
	assert.Equal(t, int32(2), c.Refcount())
	c.decRef()
	c.decRef()
	assert.Equal(t, int32(0), c.Refcount())
	assert.Panics(t, func() { c.decRef() })
}

// Every pipeline stage must stay correct when a collection runs on
// every single allocation.
func TestStressGCEndToEnd(t *testing.T) {
	source := `
(defmacro twice (x) (list 'progn x x))
(defun fact (n) (if (<= n 1) 1 (* n (fact (- n 1)))))
(let ((a (list 1 2 3)))
  (print (reverse a))
  (print (fact 5)))
(twice (print 'hi))
`
	out, diags, outcome := runWithConfig(t, source, func(cfg *Config) { cfg.StressGC = true })
	require.Empty(t, diags)
	assert.Equal(t, OutcomeOK, outcome)
	assert.Equal(t, "(3 2 1)\n120\nhi\nhi\n", out)
}
