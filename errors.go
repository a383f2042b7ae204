package hololisp

// Outcome is the three-way result of Interpret. A VM
// never panics its way out of Interpret; every pipeline failure is
// instead reported via the error callback and folded into one of the
// two error outcomes.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeCompileError
	OutcomeRuntimeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeCompileError:
		return "compile-error"
	case OutcomeRuntimeError:
		return "runtime-error"
	default:
		return "unknown"
	}
}
