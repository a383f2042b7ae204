package hololisp

import (
	"fmt"
	"math"
)

// installBuiltins populates vm's root environment with the standard
// bindings. Extra bindings may be
// added later by the host via AddBinding, as long as that happens
// before any GC root comes to depend on them.
func installBuiltins(vm *VM) {
	reg := func(name string, fn hostFn) { vm.AddBinding(name, fn) }

	reg("print", biPrint)
	reg("prin1", biPrin1)

	reg("+", biAdd)
	reg("*", biMul)
	reg("-", biSub)
	reg("/", biDiv)
	reg("rem", biRem)

	reg("=", biNumEq)
	reg("/=", biNumNeq)
	reg("<", biNumLt)
	reg("<=", biNumLe)
	reg(">", biNumGt)
	reg(">=", biNumGe)

	reg("and", biAnd)

	reg("cons", biCons)
	reg("car", biCar)
	reg("cdr", biCdr)
	reg("setcar", biSetCar)
	reg("setcdr", biSetCdr)
	reg("list", biList)

	reg("not", biNot)
	reg("null", biNot)
	reg("listp", biListp)
	reg("numberp", biNumberp)
	reg("zerop", biZerop)
	reg("plusp", biPlusp)
	reg("minusp", biMinusp)
	reg("abs", biAbs)
	reg("min", biMin)
	reg("max", biMax)
	reg("nth", biNth)
	reg("nthcdr", biNthcdr)
	reg("append", biAppend)
	reg("reverse", biReverse)
	reg("eval", biEval)
}

func wrongType(fn string, v Value) error {
	return fmt.Errorf("%s: wrong type argument %s, expected a number", fn, KindOf(v))
}

func arityError(fn string, want string, got int) error {
	return fmt.Errorf("%s: wrong number of arguments, expected %s, got %d", fn, want, got)
}

// eachArg walks a proper argument list, invoking f on every element.
func eachArg(args Value, f func(Value) error) error {
	for a := args; IsCons(a); a = Cdr(a) {
		if err := f(Car(a)); err != nil {
			return err
		}
	}
	return nil
}

func argSlice(args Value) []Value {
	out := make([]Value, 0, ListLength(args))
	for a := args; IsCons(a); a = Cdr(a) {
		out = append(out, Car(a))
	}
	return out
}

func asNumArg(fn string, v Value) (float64, error) {
	if !IsNum(v) {
		return 0, wrongType(fn, v)
	}
	return AsNum(v), nil
}

func biPrint(vm *VM, args Value) (Value, error) {
	if ListLength(args) != 1 {
		return MakeNil(), arityError("print", "1", ListLength(args))
	}
	vm.Config.WriteFn(FormatValue(Car(args)) + "\n")
	return MakeNil(), nil
}

func biPrin1(vm *VM, args Value) (Value, error) {
	if ListLength(args) != 1 {
		return MakeNil(), arityError("prin1", "1", ListLength(args))
	}
	vm.Config.WriteFn(FormatValue(Car(args)))
	return MakeNil(), nil
}

func biAdd(_ *VM, args Value) (Value, error) {
	sum := 0.0
	err := eachArg(args, func(v Value) error {
		n, err := asNumArg("+", v)
		if err != nil {
			return err
		}
		sum += n
		return nil
	})
	if err != nil {
		return MakeNil(), err
	}
	return MakeNum(sum), nil
}

func biMul(_ *VM, args Value) (Value, error) {
	prod := 1.0
	err := eachArg(args, func(v Value) error {
		n, err := asNumArg("*", v)
		if err != nil {
			return err
		}
		prod *= n
		return nil
	})
	if err != nil {
		return MakeNil(), err
	}
	return MakeNum(prod), nil
}

func biSub(_ *VM, args Value) (Value, error) {
	vs := argSlice(args)
	if len(vs) < 1 {
		return MakeNil(), arityError("-", "at least 1", len(vs))
	}
	first, err := asNumArg("-", vs[0])
	if err != nil {
		return MakeNil(), err
	}
	if len(vs) == 1 {
		return MakeNum(-first), nil
	}
	for _, v := range vs[1:] {
		n, err := asNumArg("-", v)
		if err != nil {
			return MakeNil(), err
		}
		first -= n
	}
	return MakeNum(first), nil
}

func biDiv(_ *VM, args Value) (Value, error) {
	vs := argSlice(args)
	if len(vs) < 1 {
		return MakeNil(), arityError("/", "at least 1", len(vs))
	}
	first, err := asNumArg("/", vs[0])
	if err != nil {
		return MakeNil(), err
	}
	if len(vs) == 1 {
		return MakeNum(1 / first), nil
	}
	for _, v := range vs[1:] {
		n, err := asNumArg("/", v)
		if err != nil {
			return MakeNil(), err
		}
		first /= n
	}
	return MakeNum(first), nil
}

func biRem(_ *VM, args Value) (Value, error) {
	vs := argSlice(args)
	if len(vs) != 2 {
		return MakeNil(), arityError("rem", "2", len(vs))
	}
	a, err := asNumArg("rem", vs[0])
	if err != nil {
		return MakeNil(), err
	}
	b, err := asNumArg("rem", vs[1])
	if err != nil {
		return MakeNil(), err
	}
	return MakeNum(math.Mod(a, b)), nil
}

func boolValue(b bool) Value {
	if b {
		return MakeTrue()
	}
	return MakeNil()
}

func chainedCompare(fn string, args Value, ok func(a, b float64) bool) (Value, error) {
	vs := argSlice(args)
	if len(vs) < 1 {
		return MakeNil(), arityError(fn, "at least 1", len(vs))
	}
	nums := make([]float64, len(vs))
	for i, v := range vs {
		n, err := asNumArg(fn, v)
		if err != nil {
			return MakeNil(), err
		}
		nums[i] = n
	}
	for i := 1; i < len(nums); i++ {
		if !ok(nums[i-1], nums[i]) {
			return MakeNil(), nil
		}
	}
	return MakeTrue(), nil
}

func biNumEq(_ *VM, args Value) (Value, error) {
	return chainedCompare("=", args, func(a, b float64) bool { return a == b })
}

func biNumNeq(_ *VM, args Value) (Value, error) {
	vs := argSlice(args)
	if len(vs) < 1 {
		return MakeNil(), arityError("/=", "at least 1", len(vs))
	}
	nums := make([]float64, len(vs))
	for i, v := range vs {
		n, err := asNumArg("/=", v)
		if err != nil {
			return MakeNil(), err
		}
		nums[i] = n
	}
	for i := 0; i < len(nums); i++ {
		for j := i + 1; j < len(nums); j++ {
			if nums[i] == nums[j] {
				return MakeNil(), nil
			}
		}
	}
	return MakeTrue(), nil
}

func biNumLt(_ *VM, args Value) (Value, error) {
	return chainedCompare("<", args, func(a, b float64) bool { return a < b })
}

func biNumLe(_ *VM, args Value) (Value, error) {
	return chainedCompare("<=", args, func(a, b float64) bool { return a <= b })
}

func biNumGt(_ *VM, args Value) (Value, error) {
	return chainedCompare(">", args, func(a, b float64) bool { return a > b })
}

func biNumGe(_ *VM, args Value) (Value, error) {
	return chainedCompare(">=", args, func(a, b float64) bool { return a >= b })
}

func biAnd(_ *VM, args Value) (Value, error) {
	for a := args; IsCons(a); a = Cdr(a) {
		if IsNil(Car(a)) {
			return MakeNil(), nil
		}
	}
	return MakeTrue(), nil
}

func biCons(vm *VM, args Value) (Value, error) {
	vs := argSlice(args)
	if len(vs) != 2 {
		return MakeNil(), arityError("cons", "2", len(vs))
	}
	return vm.NewCons(vs[0], vs[1]), nil
}

func requireListLike(fn string, v Value) error {
	if !IsList(v) {
		return fmt.Errorf("%s: wrong type argument %s, expected a list", fn, KindOf(v))
	}
	return nil
}

func biCar(_ *VM, args Value) (Value, error) {
	vs := argSlice(args)
	if len(vs) != 1 {
		return MakeNil(), arityError("car", "1", len(vs))
	}
	if err := requireListLike("car", vs[0]); err != nil {
		return MakeNil(), err
	}
	return Car(vs[0]), nil
}

func biCdr(_ *VM, args Value) (Value, error) {
	vs := argSlice(args)
	if len(vs) != 1 {
		return MakeNil(), arityError("cdr", "1", len(vs))
	}
	if err := requireListLike("cdr", vs[0]); err != nil {
		return MakeNil(), err
	}
	return Cdr(vs[0]), nil
}

func biSetCar(_ *VM, args Value) (Value, error) {
	vs := argSlice(args)
	if len(vs) != 2 {
		return MakeNil(), arityError("setcar", "2", len(vs))
	}
	if !IsCons(vs[0]) {
		return MakeNil(), fmt.Errorf("setcar: wrong type argument %s, expected a cons", KindOf(vs[0]))
	}
	SetCar(vs[0], vs[1])
	return vs[1], nil
}

func biSetCdr(_ *VM, args Value) (Value, error) {
	vs := argSlice(args)
	if len(vs) != 2 {
		return MakeNil(), arityError("setcdr", "2", len(vs))
	}
	if !IsCons(vs[0]) {
		return MakeNil(), fmt.Errorf("setcdr: wrong type argument %s, expected a cons", KindOf(vs[0]))
	}
	SetCdr(vs[0], vs[1])
	return vs[1], nil
}

// biList builds a fresh proper list of its arguments. The forbid
// section protects the intermediate conses built while walking the
// argument slice backwards; none of them is reachable from a root
// until the whole chain is assembled.
func biList(vm *VM, args Value) (Value, error) {
	vs := argSlice(args)
	vm.pushForbid()
	defer vm.popForbid()
	result := MakeNil()
	for i := len(vs) - 1; i >= 0; i-- {
		result = vm.NewCons(vs[i], result)
	}
	return result, nil
}

func biNot(_ *VM, args Value) (Value, error) {
	vs := argSlice(args)
	if len(vs) != 1 {
		return MakeNil(), arityError("not", "1", len(vs))
	}
	return boolValue(IsNil(vs[0])), nil
}

func biListp(_ *VM, args Value) (Value, error) {
	vs := argSlice(args)
	if len(vs) != 1 {
		return MakeNil(), arityError("listp", "1", len(vs))
	}
	return boolValue(IsList(vs[0])), nil
}

func biNumberp(_ *VM, args Value) (Value, error) {
	vs := argSlice(args)
	if len(vs) != 1 {
		return MakeNil(), arityError("numberp", "1", len(vs))
	}
	return boolValue(IsNum(vs[0])), nil
}

func biZerop(_ *VM, args Value) (Value, error) {
	vs := argSlice(args)
	if len(vs) != 1 {
		return MakeNil(), arityError("zerop", "1", len(vs))
	}
	n, err := asNumArg("zerop", vs[0])
	if err != nil {
		return MakeNil(), err
	}
	return boolValue(n == 0), nil
}

func biPlusp(_ *VM, args Value) (Value, error) {
	vs := argSlice(args)
	if len(vs) != 1 {
		return MakeNil(), arityError("plusp", "1", len(vs))
	}
	n, err := asNumArg("plusp", vs[0])
	if err != nil {
		return MakeNil(), err
	}
	return boolValue(n > 0), nil
}

func biMinusp(_ *VM, args Value) (Value, error) {
	vs := argSlice(args)
	if len(vs) != 1 {
		return MakeNil(), arityError("minusp", "1", len(vs))
	}
	n, err := asNumArg("minusp", vs[0])
	if err != nil {
		return MakeNil(), err
	}
	return boolValue(n < 0), nil
}

func biAbs(_ *VM, args Value) (Value, error) {
	vs := argSlice(args)
	if len(vs) != 1 {
		return MakeNil(), arityError("abs", "1", len(vs))
	}
	n, err := asNumArg("abs", vs[0])
	if err != nil {
		return MakeNil(), err
	}
	return MakeNum(math.Abs(n)), nil
}

func biMin(_ *VM, args Value) (Value, error) {
	vs := argSlice(args)
	if len(vs) < 1 {
		return MakeNil(), arityError("min", "at least 1", len(vs))
	}
	best, err := asNumArg("min", vs[0])
	if err != nil {
		return MakeNil(), err
	}
	for _, v := range vs[1:] {
		n, err := asNumArg("min", v)
		if err != nil {
			return MakeNil(), err
		}
		if n < best {
			best = n
		}
	}
	return MakeNum(best), nil
}

func biMax(_ *VM, args Value) (Value, error) {
	vs := argSlice(args)
	if len(vs) < 1 {
		return MakeNil(), arityError("max", "at least 1", len(vs))
	}
	best, err := asNumArg("max", vs[0])
	if err != nil {
		return MakeNil(), err
	}
	for _, v := range vs[1:] {
		n, err := asNumArg("max", v)
		if err != nil {
			return MakeNil(), err
		}
		if n > best {
			best = n
		}
	}
	return MakeNum(best), nil
}

func biNth(_ *VM, args Value) (Value, error) {
	vs := argSlice(args)
	if len(vs) != 2 {
		return MakeNil(), arityError("nth", "2", len(vs))
	}
	n, err := asNumArg("nth", vs[0])
	if err != nil {
		return MakeNil(), err
	}
	l := vs[1]
	for i := 0; i < int(n) && IsCons(l); i++ {
		l = Cdr(l)
	}
	if !IsCons(l) {
		return MakeNil(), nil
	}
	return Car(l), nil
}

func biNthcdr(_ *VM, args Value) (Value, error) {
	vs := argSlice(args)
	if len(vs) != 2 {
		return MakeNil(), arityError("nthcdr", "2", len(vs))
	}
	n, err := asNumArg("nthcdr", vs[0])
	if err != nil {
		return MakeNil(), err
	}
	l := vs[1]
	for i := 0; i < int(n) && IsCons(l); i++ {
		l = Cdr(l)
	}
	return l, nil
}

// biAppend concatenates every argument list non-destructively: every
// cons but the very last list's cells is freshly allocated, exactly
// as Lisp's append is expected to behave.
func biAppend(vm *VM, args Value) (Value, error) {
	lists := argSlice(args)
	for _, l := range lists {
		if err := requireListLike("append", l); err != nil {
			return MakeNil(), err
		}
	}
	if len(lists) == 0 {
		return MakeNil(), nil
	}
	vm.pushForbid()
	defer vm.popForbid()

	result := lists[len(lists)-1]
	for i := len(lists) - 2; i >= 0; i-- {
		elems := argSlice(lists[i])
		for j := len(elems) - 1; j >= 0; j-- {
			result = vm.NewCons(elems[j], result)
		}
	}
	return result, nil
}

func biReverse(vm *VM, args Value) (Value, error) {
	vs := argSlice(args)
	if len(vs) != 1 {
		return MakeNil(), arityError("reverse", "1", len(vs))
	}
	if err := requireListLike("reverse", vs[0]); err != nil {
		return MakeNil(), err
	}
	vm.pushForbid()
	defer vm.popForbid()
	result := MakeNil()
	for l := vs[0]; IsCons(l); l = Cdr(l) {
		result = vm.NewCons(Car(l), result)
	}
	return result, nil
}

// biEval compiles and runs its single argument as if it had been read
// from source, sharing the calling VM's global and macro
// environments. It re-enters the compiler and the run loop, the same
// re-entrancy discipline compile-time macro invocation already relies
// on.
func biEval(vm *VM, args Value) (Value, error) {
	vs := argSlice(args)
	if len(vs) != 1 {
		return MakeNil(), arityError("eval", "1", len(vs))
	}
	chunk, err := compileValue(vm, vs[0])
	if err != nil {
		return MakeNil(), err
	}
	return vm.runChunk(chunk)
}
