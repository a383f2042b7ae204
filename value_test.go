package hololisp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestVM builds a VM whose output and diagnostics go nowhere, for
// tests that only care about values and heap behavior.
func newTestVM() *VM {
	cfg := NewConfig()
	cfg.WriteFn = func(string) {}
	cfg.ErrorFn = func(Diagnostic) {}
	return MakeVM(cfg)
}

func mkList(vm *VM, vals ...Value) Value {
	vm.pushForbid()
	defer vm.popForbid()
	result := MakeNil()
	for i := len(vals) - 1; i >= 0; i-- {
		result = vm.NewCons(vals[i], result)
	}
	return result
}

// valueEqual is structural equality the way spec property 1 defines
// it: numbers by IEEE comparison, symbols and singletons by identity,
// conses recursively.
func valueEqual(a, b Value) bool {
	if IsNum(a) && IsNum(b) {
		return AsNum(a) == AsNum(b)
	}
	if IsCons(a) && IsCons(b) {
		return valueEqual(Car(a), Car(b)) && valueEqual(Cdr(a), Cdr(b))
	}
	return a == b
}

func TestNumRoundTrip(t *testing.T) {
	for _, d := range []float64{0, 1, -1, 0.5, -0.25, 42, 1e300, -1e-300, math.MaxFloat64, math.Inf(1), math.Inf(-1)} {
		v := MakeNum(d)
		require.True(t, IsNum(v), "%v must classify as num", d)
		assert.Equal(t, d, AsNum(v))
	}

	t.Run("nan stays a number", func(t *testing.T) {
		v := MakeNum(math.NaN())
		require.True(t, IsNum(v))
		assert.True(t, math.IsNaN(AsNum(v)))
	})
}

func TestKindClassification(t *testing.T) {
	vm := newTestVM()

	cases := []struct {
		v    Value
		kind Kind
	}{
		{MakeNum(3), KindNum},
		{MakeNil(), KindNil},
		{MakeTrue(), KindTrue},
		{vm.NewCons(MakeNum(1), MakeNil()), KindCons},
		{vm.internSymbol("x"), KindSymbol},
		{vm.NewEnv(MakeNil()), KindEnv},
		{vm.NewBinding("f", func(*VM, Value) (Value, error) { return MakeNil(), nil }), KindBinding},
		{vm.NewFunc(NewChunk(MakeNil(), 0), MakeNil(), MakeNil(), false), KindFunc},
		{vm.NewFunc(NewChunk(MakeNil(), 0), MakeNil(), MakeNil(), true), KindMacro},
	}
	for _, c := range cases {
		assert.Equal(t, c.kind, KindOf(c.v))
		// Classification is mutually exclusive.
		assert.NotEqual(t, IsNum(c.v), IsObj(c.v) || isSingleton(c.v))
	}
}

func TestSingletons(t *testing.T) {
	assert.Equal(t, MakeNil(), MakeNil())
	assert.Equal(t, MakeTrue(), MakeTrue())
	assert.NotEqual(t, MakeNil(), MakeTrue())
	assert.True(t, IsNil(MakeNil()))
	assert.True(t, IsTrue(MakeTrue()))
	assert.False(t, IsNum(MakeNil()))
	assert.False(t, IsObj(MakeTrue()))
}

func TestSymbolInterning(t *testing.T) {
	vm := newTestVM()

	a := vm.internSymbol("hello")
	b := vm.internSymbol("hello")
	c := vm.internSymbol("world")

	assert.Equal(t, a, b, "same bytes must intern to the same object")
	assert.NotEqual(t, a, c)
	assert.Equal(t, "hello", SymbolName(a))
}

func TestCarCdr(t *testing.T) {
	vm := newTestVM()

	assert.True(t, IsNil(Car(MakeNil())))
	assert.True(t, IsNil(Cdr(MakeNil())))

	c := vm.NewCons(MakeNum(1), MakeNum(2))
	assert.Equal(t, 1.0, AsNum(Car(c)))
	assert.Equal(t, 2.0, AsNum(Cdr(c)))

	SetCar(c, MakeNum(10))
	SetCdr(c, MakeNil())
	assert.Equal(t, 10.0, AsNum(Car(c)))
	assert.True(t, IsNil(Cdr(c)))
}

func TestListLength(t *testing.T) {
	vm := newTestVM()

	assert.Equal(t, 0, ListLength(MakeNil()))
	assert.Equal(t, 0, ListLength(MakeNum(5)))

	l := mkList(vm, MakeNum(1), MakeNum(2), MakeNum(3))
	assert.Equal(t, 3, ListLength(l))

	// Property 6: consing onto a proper list adds exactly one.
	assert.Equal(t, 4, ListLength(vm.NewCons(MakeNum(0), l)))

	improper := vm.NewCons(MakeNum(1), vm.NewCons(MakeNum(2), MakeNum(3)))
	assert.Equal(t, 2, ListLength(improper))
}

func TestFormatValue(t *testing.T) {
	vm := newTestVM()

	cases := []struct {
		v    Value
		want string
	}{
		{MakeNum(6), "6"},
		{MakeNum(0.5), "0.5"},
		{MakeNum(-3), "-3"},
		{MakeNil(), "nil"},
		{MakeTrue(), "true"},
		{vm.internSymbol("foo"), "foo"},
		{mkList(vm, MakeNum(1), MakeNum(2), MakeNum(3)), "(1 2 3)"},
		{vm.NewCons(MakeNum(1), MakeNum(2)), "(1 . 2)"},
		{mkList(vm, vm.internSymbol("a"), mkList(vm, vm.internSymbol("b"))), "(a (b))"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FormatValue(c.v))
	}

	t.Run("named func", func(t *testing.T) {
		chunks, diags := CompileAll(vm, []byte("(defun fact (n) n)"), "<test>")
		require.Empty(t, diags)
		require.Len(t, chunks, 1)
		template := chunks[0].Constants[0]
		require.True(t, IsFunc(template))
		assert.Equal(t, "#<func fact>", FormatValue(template))
	})
}
