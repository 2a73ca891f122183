package linuxemu

// RISC-V64 Linux syscall numbers, from asm-generic/unistd.h. Only the
// subset this emulator dispatches is named; anything else falls through
// to BadSyscallError.
const (
	sysIoctl          = 29
	sysOpenat         = 56
	sysClose          = 57
	sysRead           = 63
	sysWrite          = 64
	sysReadv          = 65
	sysWritev         = 66
	sysFstat          = 80
	sysExit           = 93
	sysExitGroup      = 94
	sysSetTidAddress  = 96
	sysClockGettime   = 113
	sysUname          = 160
	sysGetrandom      = 278
	sysBrk            = 214
	sysMunmap         = 215
	sysMmap           = 222
)

// Register indices for the RISC-V integer calling convention: a0-a7 are
// x10-x17. a7 carries the syscall number, a0-a5 the up-to-six arguments,
// a0 the return value. The Rust emulator this core was ported from reads
// arguments from a1..a4 instead — a bug that silently shifts every
// argument by one register. This dispatch reads a0..a5.
const (
	regA0 = 10
	regA1 = 11
	regA2 = 12
	regA3 = 13
	regA4 = 14
	regA5 = 15
	regA7 = 17
)

// dispatch decodes the pending syscall from the core's registers, runs it,
// and writes the return value back to a0 unless the syscall itself
// terminated the process.
func (e *LinuxEmu) dispatch() error {
	regs := e.Core.Regs
	num := regs.ReadX(regA7)
	args := [6]uint64{
		regs.ReadX(regA0),
		regs.ReadX(regA1),
		regs.ReadX(regA2),
		regs.ReadX(regA3),
		regs.ReadX(regA4),
		regs.ReadX(regA5),
	}

	if e.log != nil {
		e.log.Debugw("syscall", "num", num, "a0", args[0], "a1", args[1], "a2", args[2], "a3", args[3])
	}
	if e.TrailLimit > 0 {
		if len(e.Trail) >= e.TrailLimit {
			e.Trail = append(e.Trail[:0], e.Trail[len(e.Trail)-e.TrailLimit+1:]...)
		}
		e.Trail = append(e.Trail, SyscallRecord{Number: num, A0: args[0], A1: args[1], A2: args[2]})
	}

	ret, err := e.call(num, args)
	if err != nil {
		return err
	}
	regs.WriteX(regA0, uint64(ret))
	return nil
}

func (e *LinuxEmu) call(num uint64, args [6]uint64) (int64, error) {
	switch num {
	case sysExit, sysExitGroup:
		return 0, &ExitSignal{Code: int64(int32(args[0]))}
	case sysWrite:
		return e.sysWrite(int32(args[0]), args[1], args[2])
	case sysRead:
		return e.sysRead(int32(args[0]), args[1], args[2])
	case sysWritev:
		return e.sysIOV(int32(args[0]), args[1], int(args[2]), true)
	case sysReadv:
		return e.sysIOV(int32(args[0]), args[1], int(args[2]), false)
	case sysOpenat:
		return e.sysOpenat(int32(args[0]), args[1], int32(args[2]), uint32(args[3]))
	case sysClose:
		return e.sysClose(int32(args[0]))
	case sysBrk:
		return e.sysBrk(args[0])
	case sysMmap:
		return e.sysMmap(args[0], args[1], uint32(args[2]), uint32(args[3]))
	case sysMunmap:
		return e.sysMunmap(args[0], args[1])
	case sysGetrandom:
		return e.sysGetrandom(args[0], args[1], uint32(args[2]))
	case sysFstat:
		return e.sysFstat(int32(args[0]), args[1])
	case sysUname:
		return e.sysUname(args[0])
	case sysSetTidAddress:
		return e.sysSetTidAddress(args[0])
	case sysClockGettime:
		return e.sysClockGettime(int32(args[0]), args[1])
	case sysIoctl:
		return 0, nil
	default:
		return 0, &BadSyscallError{Number: num}
	}
}
