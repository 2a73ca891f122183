package linuxemu

import "fmt"

// ExitSignal is returned by Run when the guest called exit or
// exit_group; Code is the process exit status it requested.
type ExitSignal struct {
	Code int64
}

func (e *ExitSignal) Error() string {
	return fmt.Sprintf("guest exited with code %d", e.Code)
}

// BadSyscallError is returned for any syscall number outside the set
// this emulator implements. Guest programs that need more than this
// policy-minimum set belong to a different, larger harness.
type BadSyscallError struct {
	Number uint64
}

func (e *BadSyscallError) Error() string {
	return fmt.Sprintf("unimplemented syscall %d", e.Number)
}

// BreakpointSignal is returned when the guest executes an EBREAK.
type BreakpointSignal struct {
	PC uint64
}

func (e *BreakpointSignal) Error() string {
	return fmt.Sprintf("breakpoint at pc 0x%x", e.PC)
}

// BadFDError is returned when a syscall names a file descriptor this
// emulator's table doesn't have open.
type BadFDError struct {
	FD int32
}

func (e *BadFDError) Error() string {
	return fmt.Sprintf("bad file descriptor %d", e.FD)
}

// TimeoutError is returned by Run when the guest exhausts its instruction
// budget without exiting, trapping a breakpoint, or faulting. Distinct from
// a nil error: a hung or looping guest is not the same outcome as a clean
// run, and callers need to tell them apart.
type TimeoutError struct {
	Budget uint64
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("exceeded instruction budget of %d", e.Budget)
}

// PathNotAllowedError is returned by openat when the guest-requested path
// falls outside the confinement policy (climbs out of the allowed root).
type PathNotAllowedError struct {
	Path string
}

func (e *PathNotAllowedError) Error() string {
	return fmt.Sprintf("openat: path not allowed: %q", e.Path)
}
