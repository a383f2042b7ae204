package hololisp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeVMDefaults(t *testing.T) {
	vm := MakeVM(nil)
	defer DeleteVM(vm)

	assert.Equal(t, uintptr(defaultHeapSize), vm.Config.HeapSize)
	assert.Equal(t, uintptr(defaultMinHeapSize), vm.Config.MinHeapSize)
	assert.Equal(t, defaultHeapGrowPercent, vm.Config.HeapGrowPercent)
	assert.Equal(t, defaultMaxCallDepth, vm.Config.MaxCallDepth)
	assert.NotNil(t, vm.Config.WriteFn)
	assert.NotNil(t, vm.Config.ErrorFn)

	t.Run("partial config keeps explicit fields", func(t *testing.T) {
		vm := MakeVM(&Config{HeapGrowPercent: 200})
		assert.Equal(t, 200, vm.Config.HeapGrowPercent)
		assert.Equal(t, uintptr(defaultHeapSize), vm.Config.HeapSize)
	})
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "ok", OutcomeOK.String())
	assert.Equal(t, "compile-error", OutcomeCompileError.String())
	assert.Equal(t, "runtime-error", OutcomeRuntimeError.String())
}

func TestAddBinding(t *testing.T) {
	var out strings.Builder
	cfg := NewConfig()
	cfg.WriteFn = func(text string) { out.WriteString(text) }
	cfg.ErrorFn = func(Diagnostic) {}

	vm := MakeVM(cfg)
	vm.AddBinding("answer", func(_ *VM, args Value) (Value, error) {
		return MakeNum(42), nil
	})

	outcome := Interpret(vm, []byte("(print (answer))"), "<test>")
	assert.Equal(t, OutcomeOK, outcome)
	assert.Equal(t, "42\n", out.String())

	t.Run("host binding receives evaluated arguments", func(t *testing.T) {
		vm.AddBinding("first", func(_ *VM, args Value) (Value, error) {
			return Car(args), nil
		})
		out.Reset()
		outcome := Interpret(vm, []byte("(print (first (+ 2 3) 9))"), "<test>")
		assert.Equal(t, OutcomeOK, outcome)
		assert.Equal(t, "5\n", out.String())
	})
}

func TestInterpretStateAccumulates(t *testing.T) {
	var out strings.Builder
	cfg := NewConfig()
	cfg.WriteFn = func(text string) { out.WriteString(text) }
	cfg.ErrorFn = func(Diagnostic) {}
	vm := MakeVM(cfg)

	require.Equal(t, OutcomeOK, Interpret(vm, []byte("(defun inc (x) (+ x 1))"), "a"))
	require.Equal(t, OutcomeOK, Interpret(vm, []byte("(print (inc 41))"), "b"))
	assert.Equal(t, "42\n", out.String())
	assert.Len(t, vm.tus, 2, "each interpret call is its own translation unit")
}

func TestDiagnosticTranslationUnits(t *testing.T) {
	var diags []Diagnostic
	cfg := NewConfig()
	cfg.WriteFn = func(string) {}
	cfg.ErrorFn = func(d Diagnostic) { diags = append(diags, d) }
	vm := MakeVM(cfg)

	Interpret(vm, []byte("(print 1)"), "first.hl")
	Interpret(vm, []byte("(foo)"), "second.hl")

	require.Len(t, diags, 1)
	assert.Equal(t, 1, diags[0].TranslationUnit)
	assert.Equal(t, "second.hl", vm.tus[diags[0].TranslationUnit].Name)
}

func TestCompileAll(t *testing.T) {
	vm := newTestVM()

	chunks, diags := CompileAll(vm, []byte("(print 1) (print 2)"), "<test>")
	assert.Empty(t, diags)
	assert.Len(t, chunks, 2)

	t.Run("bad forms yield diagnostics instead of chunks", func(t *testing.T) {
		chunks, diags := CompileAll(vm, []byte("(if) (print 2)"), "<test>")
		assert.Len(t, diags, 1)
		assert.Len(t, chunks, 1)
	})
}

func TestDisassemble(t *testing.T) {
	vm := newTestVM()
	chunks, diags := CompileAll(vm, []byte("(if true 1 2)"), "<test>")
	require.Empty(t, diags)
	require.Len(t, chunks, 1)

	lines := Disassemble(chunks[0])
	require.NotEmpty(t, lines)
	assert.Contains(t, lines[0], "true")
	joined := strings.Join(lines, "\n")
	assert.Contains(t, joined, "jn")
	assert.Contains(t, joined, "end")
}

func FuzzInterpret(f *testing.F) {
	seeds := []string{
		"(print (+ 1 2 3))",
		"(defun f (x . r) (if x (f (car r)) 0)) (f 1 2 3)",
		"(let ((a 1)) (while (< a 3) (setq a (+ a 1))) (print a))",
		"'(1 2 . 3)",
		"(",
		")",
		"...",
		"(defmacro m (x) (list 'progn x)) (m (print 1))",
		"; comment only",
		"(quote (deeply (nested (list (of (things)))))))",
	}
	for _, s := range seeds {
		f.Add([]byte(s))
	}

	f.Fuzz(func(t *testing.T, source []byte) {
		if len(source) > 1<<16 {
			t.Skip()
		}
		cfg := NewConfig()
		cfg.WriteFn = func(string) {}
		cfg.ErrorFn = func(Diagnostic) {}
		cfg.MaxCallDepth = 128
		vm := MakeVM(cfg)
		defer DeleteVM(vm)
		// Any outcome is acceptable; the pipeline just must not panic
		// or corrupt the VM for a following run.
		Interpret(vm, source, "<fuzz>")
		Interpret(vm, []byte("(print 1)"), "<fuzz-2>")
	})
}
