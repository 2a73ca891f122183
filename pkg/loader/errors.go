package loader

import "fmt"

// UnsupportedELFError reports an object file this loader cannot place: wrong
// class, wrong byte order, or an unexpected machine type.
type UnsupportedELFError struct {
	Reason string
}

func (e *UnsupportedELFError) Error() string {
	return fmt.Sprintf("unsupported ELF object: %s", e.Reason)
}

// InterpreterMismatchError reports that a PT_INTERP segment named an
// interpreter other than the one this loader was configured with.
type InterpreterMismatchError struct {
	Requested string
	Have      string
}

func (e *InterpreterMismatchError) Error() string {
	return fmt.Sprintf("object requests interpreter %q, loader has %q", e.Requested, e.Have)
}
