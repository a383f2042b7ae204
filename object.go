package hololisp

// object is the common header shared by every heap value: a kind tag,
// the GC's mark bit, and the next pointer threading every live object
// into a single intrusive list (gc.allObjects). Every concrete payload
// type below embeds object as its first field so a *object can be
// reinterpreted as the concrete type (and vice versa) via unsafe
// pointer casts.
type object struct {
	kind   Kind
	marked bool
	next   *object
}

type consObj struct {
	object
	car, cdr Value
}

type symbolObj struct {
	object
	hash uint32
	name string
}

type envObj struct {
	object
	vars Value // association list of (name . value) pairs
	up   Value // parent env, or nil for the root
}

// hostFn is the signature every binding (host-implemented primitive)
// must satisfy.
type hostFn func(vm *VM, args Value) (Value, error)

type bindingObj struct {
	object
	name string
	fn   hostFn
}

// funcObj backs both func and macro values: they are structurally
// identical (a shared bytecode chunk, a parameter-name list, a
// captured environment) and differ only in whether the VM may call
// them at runtime (func) or only the compiler may call them at
// compile time (macro), distinguished by object.kind.
type funcObj struct {
	object
	chunk  *Chunk
	params Value
	env    Value
}

// SetCar mutates the car of a cons in place.
func SetCar(v Value, car Value) { unwrapCons(v).car = car }

// SetCdr mutates the cdr of a cons in place.
func SetCdr(v Value, cdr Value) { unwrapCons(v).cdr = cdr }

// BindingName returns the name a binding was installed under, used by
// diagnostics to name the offending primitive in type/arity errors.
func BindingName(v Value) string { return unwrapBinding(v).name }

// CallBinding invokes a binding's host function directly; no VM frame
// is pushed.
func CallBinding(vm *VM, v Value, args Value) (Value, error) {
	return unwrapBinding(v).fn(vm, args)
}

// FuncChunk, FuncParams, FuncEnv expose a func/macro's payload for
// the compiler (macro invocation) and VM (calling convention).
func FuncChunk(v Value) *Chunk    { return unwrapFunc(v).chunk }
func FuncParams(v Value) Value    { return unwrapFunc(v).params }
func FuncEnv(v Value) Value       { return unwrapFunc(v).env }
func EnvVars(v Value) Value       { return unwrapEnv(v).vars }
func EnvUp(v Value) Value         { return unwrapEnv(v).up }
func SetEnvVars(v Value, l Value) { unwrapEnv(v).vars = l }
